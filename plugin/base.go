package plugin

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/beevik/etree"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// HookFunc handles one element of a wrapping document and reports its output,
// failures and errors.
type HookFunc func(el *etree.Element) types.Record

// LogSaver copies a file into the log folder of the test
type LogSaver func(path, prefix string) error

// TeardownFunc undoes what a setup hook did. It receives a LogSaver so log
// files of stopped services can be archived.
type TeardownFunc func(save LogSaver) types.Record

// Hooks pairs a setup hook with its teardown
type Hooks struct {
	Setup    HookFunc
	Teardown TeardownFunc
}

func noopHook(*etree.Element) types.Record { return types.Record{} }

func noopTeardown(LogSaver) types.Record { return types.Record{} }

// BaseExecutor implements the bookkeeping shared by tag driven executors.
// Embedders register hooks keyed by the Clark notation tag of the elements
// they handle and call Parse from their Run method.
type BaseExecutor struct {
	ctx    types.ExecutorContext
	record types.Record

	setups  map[string]Hooks
	parsers map[string]HookFunc

	mu        sync.Mutex
	teardowns []TeardownFunc
}

// NewBaseExecutor creates a base executor with the suite elements pre-registered
func NewBaseExecutor(ctx types.ExecutorContext) *BaseExecutor {
	b := &BaseExecutor{
		ctx:     ctx,
		setups:  make(map[string]Hooks),
		parsers: make(map[string]HookFunc),
	}
	b.RegisterSetup(types.Qualify("setup"), nil, nil)
	b.RegisterSetup(types.Qualify("test"), nil, nil)
	for _, field := range types.DocumentationFields {
		b.RegisterParser(types.Qualify(field), nil)
	}
	return b
}

// Context returns the construction arguments of the executor
func (b *BaseExecutor) Context() types.ExecutorContext {
	return b.ctx
}

// Record implements types.Executor
func (b *BaseExecutor) Record() *types.Record {
	return &b.record
}

// RegisterSetup registers the hooks of an element found directly below the
// wrapping element or inside the setup element. Nil hooks do nothing.
func (b *BaseExecutor) RegisterSetup(tag string, setup HookFunc, teardown TeardownFunc) {
	if setup == nil {
		setup = noopHook
	}
	if teardown == nil {
		teardown = noopTeardown
	}
	b.setups[tag] = Hooks{Setup: setup, Teardown: teardown}
}

// RegisterParser registers the handler of an element found inside the test element
func (b *BaseExecutor) RegisterParser(tag string, fn HookFunc) {
	if fn == nil {
		fn = noopHook
	}
	b.parsers[tag] = fn
}

// Parse walks a wrapping document: first the children of the wrapping element,
// then the children of the setup element, then the children of the test
// element. Queued teardowns run when the walk ends, also when a hook panics.
func (b *BaseExecutor) Parse(doc *etree.Document) {
	defer b.runTeardowns()

	root := doc.Root()
	if root == nil {
		b.record.AddError("wrapping document has no root element")
		return
	}

	var setupChildren, testChildren []*etree.Element
	for _, child := range root.ChildElements() {
		switch {
		case types.InSuiteNamespace(child, "setup"):
			setupChildren = append(setupChildren, child.ChildElements()...)
		case types.InSuiteNamespace(child, "test"):
			testChildren = append(testChildren, child.ChildElements()...)
		}
	}

	b.applySetups(root.ChildElements())
	b.applySetups(setupChildren)

	for _, el := range testChildren {
		tag := types.QualifiedName(el)
		fn, ok := b.parsers[tag]
		if !ok {
			b.record.AddFailure(fmt.Sprintf("Tag '%s' is not known.", tag))
			continue
		}
		out := fn(el)
		b.record.Merge(out.Output, out.Failures, out.Errors)
	}
}

func (b *BaseExecutor) applySetups(elements []*etree.Element) {
	for _, el := range elements {
		tag := types.QualifiedName(el)
		hooks, ok := b.setups[tag]
		if !ok {
			b.record.AddFailure(fmt.Sprintf("Tag '%s' is not known.", tag))
			continue
		}
		b.mu.Lock()
		b.teardowns = append(b.teardowns, hooks.Teardown)
		b.mu.Unlock()

		out := hooks.Setup(el)
		b.record.Merge(out.Output, out.Failures, out.Errors)
	}
}

// Shutdown runs the queued teardowns. Each teardown runs at most once.
func (b *BaseExecutor) Shutdown() error {
	b.runTeardowns()
	return nil
}

func (b *BaseExecutor) runTeardowns() {
	b.mu.Lock()
	pending := b.teardowns
	b.teardowns = nil
	b.mu.Unlock()

	for _, teardown := range pending {
		out := teardown(b.SaveLogfile)
		b.record.Merge(out.Output, out.Failures, out.Errors)
	}
}

// SaveLogfile copies a file into the log folder, optionally prefixing its name.
// Files in the log folder are archived when the run ends.
func (b *BaseExecutor) SaveLogfile(path, prefix string) error {
	if b.ctx.LogFolder == "" {
		return fmt.Errorf("no log folder configured")
	}
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	defer src.Close()

	dest := filepath.Join(b.ctx.LogFolder, prefix+filepath.Base(path))
	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy log file %s: %w", path, err)
	}
	return dst.Close()
}
