// Package echo provides a test type whose tests only report what their
// documents tell them to. It makes the binary runnable without a system under
// test and exercises the plugin base.
package echo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/ethereum-optimism/infra/suite-tester/plugin"
	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// TypeName is the test type handled by this package
const TypeName = "echo"

const logFileName = "echo.log"

func init() {
	plugin.MustRegisterExecutor(TypeName, NewExecutor)
	plugin.MustRegisterCoordinator(TypeName, NewCoordinator)
	plugin.MustRegisterType(TypeName, plugin.TypeDefinition{
		Executor:            TypeName,
		ResourceCoordinator: TypeName,
	})
}

// Executor runs echo tests. Recognised test elements:
//
//	<echo>text</echo>     text is recorded as output
//	<fail>text</fail>     text is recorded as a failure
//	<error>text</error>   text is recorded as an error
//	<sleep>50ms</sleep>   waits, honouring cancellation of the run
//	<abort>text</abort>   Run returns an error carrying text
//	<panic>text</panic>   panics with text
//
// A <port/> element inside the setup reserves the port the coordinator planned
// for the test.
type Executor struct {
	*plugin.BaseExecutor

	ctx         context.Context
	coordinator *Coordinator
	abort       string
	lines       []string
}

var _ types.Executor = (*Executor)(nil)

// NewExecutor implements types.ExecutorFactory
func NewExecutor(ctx types.ExecutorContext) (types.Executor, error) {
	e := &Executor{BaseExecutor: plugin.NewBaseExecutor(ctx)}

	e.RegisterSetup(types.Qualify("port"), e.reservePort, e.releasePort)
	e.RegisterParser(types.Qualify("echo"), func(el *etree.Element) types.Record {
		return types.Record{Output: []string{e.logLine(el.Text())}}
	})
	e.RegisterParser(types.Qualify("fail"), func(el *etree.Element) types.Record {
		return types.Record{Failures: []string{e.logLine(el.Text())}}
	})
	e.RegisterParser(types.Qualify("error"), func(el *etree.Element) types.Record {
		return types.Record{Errors: []string{e.logLine(el.Text())}}
	})
	e.RegisterParser(types.Qualify("sleep"), e.sleep)
	e.RegisterParser(types.Qualify("abort"), func(el *etree.Element) types.Record {
		e.abort = strings.TrimSpace(el.Text())
		return types.Record{}
	})
	e.RegisterParser(types.Qualify("panic"), func(el *etree.Element) types.Record {
		panic(strings.TrimSpace(el.Text()))
	})
	return e, nil
}

// Run implements types.Executor
func (e *Executor) Run(ctx context.Context, doc *etree.Document, buildFolder string, coordinator types.ResourceCoordinator) error {
	e.ctx = ctx
	if coordinator != nil {
		c, ok := coordinator.(*Coordinator)
		if !ok {
			return errors.Errorf("unexpected resource coordinator %T", coordinator)
		}
		e.coordinator = c
	}

	if name := doc.Root().SelectAttrValue("name", ""); name != "" {
		e.Record().AddOutput(fmt.Sprintf("echo test '%s'", name))
	}

	e.Parse(doc)

	if err := e.writeLog(buildFolder); err != nil {
		return errors.Wrap(err, "failed to write echo log")
	}
	if e.abort != "" {
		return errors.New(e.abort)
	}
	return nil
}

func (e *Executor) logLine(text string) string {
	line := strings.TrimSpace(text)
	e.lines = append(e.lines, line)
	return line
}

func (e *Executor) sleep(el *etree.Element) types.Record {
	d, err := time.ParseDuration(strings.TrimSpace(el.Text()))
	if err != nil {
		return types.Record{Errors: []string{fmt.Sprintf("invalid sleep duration: %v", err)}}
	}
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-time.After(d):
		return types.Record{Output: []string{e.logLine(fmt.Sprintf("slept %s", d))}}
	case <-ctx.Done():
		return types.Record{Errors: []string{fmt.Sprintf("sleep interrupted: %v", ctx.Err())}}
	}
}

func (e *Executor) reservePort(*etree.Element) types.Record {
	if e.coordinator == nil {
		return types.Record{Errors: []string{"port requested but no resource coordinator is available"}}
	}
	port, ok := e.coordinator.Port(e.Context().ID)
	if !ok {
		return types.Record{Errors: []string{fmt.Sprintf("no port planned for test %d", e.Context().ID)}}
	}
	return types.Record{Output: []string{e.logLine(fmt.Sprintf("reserved port %d", port))}}
}

func (e *Executor) releasePort(save plugin.LogSaver) types.Record {
	if e.coordinator == nil {
		return types.Record{}
	}
	if port, ok := e.coordinator.Port(e.Context().ID); ok {
		return types.Record{Output: []string{fmt.Sprintf("released port %d", port)}}
	}
	return types.Record{}
}

// writeLog writes the echoed lines into the build folder and saves a copy
// into the log folder for archival.
func (e *Executor) writeLog(buildFolder string) error {
	if buildFolder == "" || e.Context().LogFolder == "" {
		return nil
	}
	path := filepath.Join(buildFolder, logFileName)
	content := strings.Join(e.lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return err
	}
	log.Debug("Wrote echo log", "path", path, "lines", len(e.lines))
	return e.SaveLogfile(path, fmt.Sprintf("test%d_", e.Context().ID))
}
