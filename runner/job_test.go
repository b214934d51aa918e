package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/suite-tester/plugin"
	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// scriptedExecutor runs a function in place of a real test
type scriptedExecutor struct {
	record   types.Record
	run      func(ctx context.Context, rec *types.Record, buildFolder string) error
	shutdown int
}

func (s *scriptedExecutor) Record() *types.Record { return &s.record }

func (s *scriptedExecutor) Run(ctx context.Context, _ *etree.Document, buildFolder string, _ types.ResourceCoordinator) error {
	return s.run(ctx, &s.record, buildFolder)
}

func (s *scriptedExecutor) Shutdown() error {
	s.shutdown++
	return nil
}

func scriptedType(t *testing.T, run func(ctx context.Context, rec *types.Record, buildFolder string) error) *plugin.ExecutorType {
	t.Helper()
	registry := plugin.NewRegistry()
	require.NoError(t, registry.RegisterExecutor("scripted", func(types.ExecutorContext) (types.Executor, error) {
		return &scriptedExecutor{run: run}, nil
	}))
	loader := plugin.NewLoader(log.NewLogger(log.DiscardHandler()), registry)
	bundle, err := loader.Load("scripted", plugin.TypeDefinition{Executor: "scripted"}, "")
	require.NoError(t, err)
	return bundle.Executor
}

type jobFixture struct {
	descriptor *JobDescriptor
	report     string
	console    *bytes.Buffer
	build      string
	logs       string
}

func newJobFixture(t *testing.T, name string, exec *plugin.ExecutorType) *jobFixture {
	t.Helper()
	dir := t.TempDir()
	f := &jobFixture{
		report:  filepath.Join(dir, "report.txt"),
		console: &bytes.Buffer{},
		build:   filepath.Join(dir, "build"),
		logs:    filepath.Join(dir, "build", "logs"),
	}
	require.NoError(t, os.MkdirAll(f.logs, 0755))

	writer, err := NewReportWriter(f.report, f.console)
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	suitePath := filepath.Join(dir, "suites", "basic.xml")
	f.descriptor = &JobDescriptor{
		Metadata: types.JobMetadata{
			ID:          7,
			Name:        name,
			SuitePath:   suitePath,
			BuildFolder: BuildFolderName(f.build, suitePath, name),
			TypeName:    "scripted",
			ReportFile:  f.report,
			Document:    "<wrapping/>",
		},
		Document:  etree.NewDocument(),
		LogFolder: f.logs,
		Executor:  exec,
		Writer:    writer,
		Folders:   NewFolderAllocator(),
		Log:       log.NewLogger(log.DiscardHandler()),
	}
	return f
}

func (f *jobFixture) readReport(t *testing.T) string {
	t.Helper()
	require.NoError(t, f.descriptor.Writer.Flush())
	data, err := os.ReadFile(f.report)
	require.NoError(t, err)
	return string(data)
}

func TestExecuteStatus(t *testing.T) {
	tests := []struct {
		name   string
		run    func(ctx context.Context, rec *types.Record, buildFolder string) error
		status types.Status
	}{
		{
			name: "success",
			run: func(_ context.Context, rec *types.Record, _ string) error {
				rec.AddOutput("all good")
				return nil
			},
			status: types.StatusSuccess,
		},
		{
			name: "failure",
			run: func(_ context.Context, rec *types.Record, _ string) error {
				rec.AddFailure("value mismatch")
				return nil
			},
			status: types.StatusFailure,
		},
		{
			name: "recorded error wins over failure",
			run: func(_ context.Context, rec *types.Record, _ string) error {
				rec.AddFailure("value mismatch")
				rec.AddError("connection refused")
				return nil
			},
			status: types.StatusError,
		},
		{
			name: "returned error",
			run: func(context.Context, *types.Record, string) error {
				return fmt.Errorf("setup exploded")
			},
			status: types.StatusError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newJobFixture(t, "status test", scriptedType(t, tt.run))
			res := Execute(context.Background(), f.descriptor)

			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, fmt.Sprintf("Test 'status test' status: %s.", tt.status.Label()), res.StatusMessage)
			assert.Equal(t, 7, res.ID)
			assert.Equal(t, "<wrapping/>", res.Document)
			assert.NoDirExists(t, res.BuildFolder)
		})
	}
}

func TestExecuteErrorReport(t *testing.T) {
	f := newJobFixture(t, "explodes", scriptedType(t, func(context.Context, *types.Record, string) error {
		return fmt.Errorf("boom")
	}))
	f.descriptor.Metadata.Verbose = true

	res := Execute(context.Background(), f.descriptor)
	require.Equal(t, types.StatusError, res.Status)
	require.GreaterOrEqual(t, len(res.Errors), 2)
	assert.Equal(t, "Testname : 'explodes'", res.Errors[0])
	assert.True(t, strings.HasPrefix(res.Errors[1], "*errors.errorString: boom"))

	report := f.readReport(t)
	assert.Contains(t, report, "Test Summary:")
	assert.Contains(t, report, "  testname: 'explodes'")
	assert.Contains(t, report, "  status: ERROR")
	assert.Contains(t, report, "Testname : 'explodes'")

	console := f.console.String()
	assert.Contains(t, console, "Starting Test 'explodes'")
	assert.Contains(t, console, "Started Test 'explodes' at ")
	assert.Contains(t, console, "Test 'explodes' status: ERROR.")
	assert.Contains(t, console, "Test Summary:")
}

func TestExecuteSummary(t *testing.T) {
	f := newJobFixture(t, "fails", scriptedType(t, func(_ context.Context, rec *types.Record, _ string) error {
		rec.AddFailure("expected 1 got 2")
		return nil
	}))
	res := Execute(context.Background(), f.descriptor)

	require.Equal(t, types.StatusFailure, res.Status)
	assert.Equal(t, strings.Repeat("-", 13), res.Summary[0])
	assert.Equal(t, "Test Summary:", res.Summary[1])
	assert.Equal(t, fmt.Sprintf("  testfile: '%s'", f.descriptor.Metadata.SuitePath), res.Summary[2])
	assert.Equal(t, "  status: FAILED", res.Summary[4])
	assert.Equal(t, []string{"", "Testname : 'fails'", "expected 1 got 2", ""}, res.Summary[5:9])
	assert.Equal(t, "  duration: 0 seconds", res.Summary[9])
	assert.Equal(t, strings.Repeat("-", DelimiterLength), res.Summary[10])

	console := f.console.String()
	assert.NotContains(t, console, "Test Summary:")
}

func TestExecuteDescription(t *testing.T) {
	f := newJobFixture(t, "documented", scriptedType(t, func(context.Context, *types.Record, string) error {
		return nil
	}))
	f.descriptor.Metadata.Documentation.Description = "checks that documented tests print their description"

	Execute(context.Background(), f.descriptor)
	require.NoError(t, f.descriptor.Writer.Flush())
	assert.Contains(t, f.console.String(), "Description: checks that documented tests print their description\n")
}

func TestExecutePanic(t *testing.T) {
	f := newJobFixture(t, "panics", scriptedType(t, func(context.Context, *types.Record, string) error {
		panic("kaboom")
	}))
	res := Execute(context.Background(), f.descriptor)

	require.Equal(t, types.StatusError, res.Status)
	assert.Contains(t, res.Errors[1], "panic string: kaboom")
}

func TestExecuteNoClean(t *testing.T) {
	f := newJobFixture(t, "keeps folder", scriptedType(t, func(_ context.Context, _ *types.Record, buildFolder string) error {
		return os.WriteFile(filepath.Join(buildFolder, "artifact"), []byte("data"), 0644)
	}))
	f.descriptor.NoClean = true

	res := Execute(context.Background(), f.descriptor)
	require.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, filepath.Join(f.build, "basic___keeps_folder"), res.BuildFolder)
	assert.FileExists(t, filepath.Join(res.BuildFolder, "artifact"))
	assert.DirExists(t, filepath.Join(f.logs, "basic___keeps_folder"))

	// A second run of the same test gets a fresh folder
	second := Execute(context.Background(), f.descriptor)
	assert.Equal(t, res.BuildFolder+"_1", second.BuildFolder)
}

func TestExecuteRepeatedAfterCleanup(t *testing.T) {
	f := newJobFixture(t, "repeated", scriptedType(t, func(context.Context, *types.Record, string) error {
		return nil
	}))

	first := Execute(context.Background(), f.descriptor)
	second := Execute(context.Background(), f.descriptor)
	require.Equal(t, types.StatusSuccess, first.Status)
	require.Equal(t, types.StatusSuccess, second.Status)
	assert.NoDirExists(t, first.BuildFolder)
	assert.Equal(t, first.BuildFolder+"_1", second.BuildFolder)
	assert.DirExists(t, filepath.Join(f.logs, filepath.Base(first.BuildFolder)))
	assert.DirExists(t, filepath.Join(f.logs, filepath.Base(second.BuildFolder)))
}

func TestExecuteCleanupError(t *testing.T) {
	origRemove, origDelay := removeAll, removeRetryDelay
	t.Cleanup(func() { removeAll, removeRetryDelay = origRemove, origDelay })
	removeAll = func(string) error { return fmt.Errorf("device busy") }
	removeRetryDelay = 0

	f := newJobFixture(t, "sticky", scriptedType(t, func(context.Context, *types.Record, string) error {
		return nil
	}))
	res := Execute(context.Background(), f.descriptor)

	require.Equal(t, types.StatusError, res.Status)
	assert.Equal(t, []string{"Testname : 'sticky'", "unable to remove build folder: device busy"}, res.Errors)
	assert.Contains(t, res.Summary, "Testname : 'sticky'")
}

func TestExecuteClosedWriter(t *testing.T) {
	f := newJobFixture(t, "unreported", scriptedType(t, func(context.Context, *types.Record, string) error {
		return nil
	}))
	var logs bytes.Buffer
	f.descriptor.Log = log.NewLogger(log.NewTerminalHandler(&logs, false))
	require.NoError(t, f.descriptor.Writer.Close())

	res := Execute(context.Background(), f.descriptor)
	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Contains(t, logs.String(), "Failed to write test start")
	assert.Contains(t, logs.String(), "Failed to write test report")
}

func TestExecuteTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	f := newJobFixture(t, "hangs", scriptedType(t, func(_ context.Context, rec *types.Record, _ string) error {
		rec.AddOutput("started")
		<-release
		return nil
	}))
	f.descriptor.Timeout = 50 * time.Millisecond

	res := Execute(context.Background(), f.descriptor)
	require.Equal(t, types.StatusError, res.Status)
	assert.Contains(t, res.Errors, "Test timed out after 50ms")
}

func TestExecuteCancelled(t *testing.T) {
	f := newJobFixture(t, "cancelled", scriptedType(t, func(ctx context.Context, _ *types.Record, _ string) error {
		<-ctx.Done()
		time.Sleep(time.Second)
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	res := Execute(ctx, f.descriptor)
	require.Equal(t, types.StatusError, res.Status)
	assert.Contains(t, res.Errors, "Test run cancelled: context canceled")
}

func TestExecuteConstructionError(t *testing.T) {
	registry := plugin.NewRegistry()
	require.NoError(t, registry.RegisterExecutor("broken", func(types.ExecutorContext) (types.Executor, error) {
		return nil, fmt.Errorf("cannot construct")
	}))
	loader := plugin.NewLoader(log.NewLogger(log.DiscardHandler()), registry)
	bundle, err := loader.Load("broken", plugin.TypeDefinition{Executor: "broken"}, "")
	require.NoError(t, err)

	f := newJobFixture(t, "never runs", bundle.Executor)
	res := Execute(context.Background(), f.descriptor)
	require.Equal(t, types.StatusError, res.Status)
	assert.Contains(t, strings.Join(res.Errors, "\n"), "cannot construct")
}
