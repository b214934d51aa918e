package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/suite-tester/metrics"
	"github.com/ethereum-optimism/infra/suite-tester/plugin"
	"github.com/ethereum-optimism/infra/suite-tester/reporting"
	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// JobDescriptor holds everything a single test needs to run
type JobDescriptor struct {
	Metadata    types.JobMetadata
	Document    *etree.Document // Wrapping document handed to the executor
	LogFolder   string          // Run-wide log folder; the test gets a subfolder
	Executor    *plugin.ExecutorType
	Coordinator types.ResourceCoordinator // nil when the test type has none
	Color       bool
	NoClean     bool
	Timeout     time.Duration // Zero means no timeout
	Writer      *ReportWriter
	Folders     *FolderAllocator // Shared by the jobs of a run; nil uses a process wide allocator
	Log         log.Logger
}

// Execute runs one test in isolation and returns its result. Everything that
// goes wrong while running the test is recorded in the result; Execute itself
// never fails.
func Execute(ctx context.Context, d *JobDescriptor) *types.JobResult {
	meta := d.Metadata
	logger := d.Log
	if logger == nil {
		logger = log.Root()
	}
	logger = logger.New("test", meta.Name, "id", meta.ID)

	ctx, span := otel.Tracer("test runner").Start(ctx, fmt.Sprintf("test %s", meta.Name), trace.WithAttributes(
		attribute.String("suite", meta.SuitePath),
		attribute.String("type", meta.TypeName),
		attribute.Int("id", meta.ID),
	))
	defer span.End()

	start := time.Now()
	metrics.TestStarted(meta.TypeName)

	var record types.Record
	var description string
	folders := d.Folders
	if folders == nil {
		folders = defaultFolders
	}
	buildFolder, logFolder, err := prepareFolders(folders, meta.BuildFolder, d.LogFolder)
	if err != nil {
		logger.Error("Failed to prepare test folders", "err", err)
		metrics.RecordErrorDetails("prepare_folders", err)
		record.AddError(formatError(err))
	} else {
		if err := d.Writer.Console(fmt.Sprintf("Starting Test '%s'", meta.Name)); err != nil {
			logger.Error("Failed to write test start", "err", err)
		}
		logger.Info("Starting test", "buildFolder", buildFolder)
		record, description = runExecutor(ctx, logger, d, buildFolder, logFolder)
	}

	if buildFolder != "" && !d.NoClean {
		if err := removeBuildFolder(logger, buildFolder); err != nil {
			logger.Error("Failed to remove build folder", "folder", buildFolder, "err", err)
			record.AddError(err.Error())
		}
	}

	if len(record.Errors) > 0 {
		record.Errors = append([]string{testnameLine(meta.Name)}, record.Errors...)
	}
	if len(record.Failures) > 0 {
		record.Failures = append([]string{testnameLine(meta.Name)}, record.Failures...)
	}

	duration := time.Since(start)
	status := record.Status()
	summary := generateSummary(meta.SuitePath, meta.Name, status, record, duration)
	statusMsg := fmt.Sprintf("Test '%s' status: %s.", meta.Name, status.Label())

	testOutput := append([]string{""}, record.Output...)
	testOutput = append(testOutput, summary...)
	testOutput = append(testOutput, "")
	report := strings.Join(testOutput, "\n")

	name := meta.Name
	if d.Color {
		name = text.Bold.Sprint(name)
	}
	console := fmt.Sprintf("%s\nStarted Test '%s' at %s\n\n", separator("-"), name, reporting.FormatTimestamp(start))
	if description != "" {
		console += description + "\n"
	}
	console += statusMsg
	if meta.Verbose {
		console += report
	}
	if d.Color {
		console = Colorize(console)
		for i := range summary {
			summary[i] = Colorize(summary[i])
		}
	}
	if err := d.Writer.Submit(report, console); err != nil {
		logger.Error("Failed to write test report", "err", err)
	}

	metrics.RecordTest(meta.TypeName, status, duration)
	span.SetAttributes(attribute.String("status", string(status)))
	if status != types.StatusSuccess {
		span.SetStatus(codes.Error, statusMsg)
	}
	logger.Info("Finished test", "status", status, "duration", duration)

	return &types.JobResult{
		ID:            meta.ID,
		Name:          meta.Name,
		SuitePath:     meta.SuitePath,
		Status:        status,
		StatusMessage: statusMsg,
		Output:        record.Output,
		Failures:      record.Failures,
		Errors:        record.Errors,
		Duration:      duration,
		Summary:       summary,
		Document:      meta.Document,
		BuildFolder:   buildFolder,
		Documentation: meta.Documentation,
		TypeName:      meta.TypeName,
	}
}

// prepareFolders resolves the build folder of a test and creates its log folder
func prepareFolders(folders *FolderAllocator, candidate, logRoot string) (string, string, error) {
	buildFolder, err := folders.MakeFolder(candidate, logRoot)
	if err != nil {
		return "", "", err
	}
	logFolder := filepath.Join(logRoot, filepath.Base(buildFolder))
	if err := os.MkdirAll(logFolder, 0755); err != nil {
		return buildFolder, "", fmt.Errorf("failed to create log folder %s: %w", logFolder, err)
	}
	return buildFolder, logFolder, nil
}

// runExecutor constructs the executor and runs the test. It returns a snapshot
// of the executor's record and the formatted description.
func runExecutor(ctx context.Context, logger log.Logger, d *JobDescriptor, buildFolder, logFolder string) (types.Record, string) {
	meta := d.Metadata
	exec, err := d.Executor.New(meta.SuitePath, meta.ID, logFolder)
	if err != nil {
		logger.Error("Failed to construct executor", "err", err)
		return types.Record{Errors: []string{formatError(err)}}, ""
	}

	var description string
	if meta.Documentation.Description != "" {
		fault := safeCall(func() error {
			description = FormatDescription(meta.Documentation.Description)
			return nil
		})
		if fault != "" {
			exec.Record().AddError(fault)
		}
	}

	// The record is only read while the executor is not running
	before := exec.Record().Snapshot()

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if d.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d.Timeout)
	}
	defer cancel()

	done := make(chan []string, 1)
	go func() {
		var faults []string
		if fault := safeCall(func() error {
			return exec.Run(runCtx, d.Document, buildFolder, d.Coordinator)
		}); fault != "" {
			faults = append(faults, fault)
		}
		if fault := safeCall(exec.Shutdown); fault != "" {
			faults = append(faults, "Shutdown failed: "+fault)
		}
		done <- faults
	}()

	select {
	case faults := <-done:
		rec := exec.Record()
		rec.AddError(faults...)
		for _, fault := range faults {
			logger.Error("Test raised an error", "fault", fault)
		}
		return rec.Snapshot(), description
	case <-runCtx.Done():
		// The executor is abandoned, its record is not read again
		err := runCtx.Err()
		msg := fmt.Sprintf("Test run cancelled: %v", err)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			msg = fmt.Sprintf("Test timed out after %s", d.Timeout)
		}
		logger.Error("Test did not finish", "reason", msg)
		before.AddError(msg)
		return before, description
	}
}

// safeCall invokes fn and renders a returned error or a recovered panic
func safeCall(fn func() error) (fault string) {
	defer func() {
		if r := recover(); r != nil {
			fault = formatPanic(r)
		}
	}()
	if err := fn(); err != nil {
		return formatError(err)
	}
	return ""
}

func testnameLine(name string) string {
	return fmt.Sprintf("Testname : '%s'", name)
}

// generateSummary builds the summary block written after the output of a test
func generateSummary(suitePath, name string, status types.Status, record types.Record, duration time.Duration) []string {
	summary := []string{
		strings.Repeat("-", 13),
		"Test Summary:",
		fmt.Sprintf("  testfile: '%s'", suitePath),
		fmt.Sprintf("  testname: '%s'", name),
		fmt.Sprintf("  status: %s", status.Label()),
	}
	switch status {
	case types.StatusError:
		summary = append(summary, "")
		summary = append(summary, record.Errors...)
		summary = append(summary, "")
	case types.StatusFailure:
		summary = append(summary, "")
		summary = append(summary, record.Failures...)
		summary = append(summary, "")
	}
	summary = append(summary,
		fmt.Sprintf("  duration: %s", reporting.FormatDuration(duration)),
		separator("-"),
	)
	return summary
}
