package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/suite-tester/logging"
	"github.com/ethereum-optimism/infra/suite-tester/metrics"
	"github.com/ethereum-optimism/infra/suite-tester/plugin"
	"github.com/ethereum-optimism/infra/suite-tester/reporting"
	"github.com/ethereum-optimism/infra/suite-tester/suite"
	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// Config holds the parameters of one run
type Config struct {
	Log                 log.Logger
	Paths               []string // Files or folders to search for suite documents
	BuildFolder         string
	ResourceFolder      string
	ResultsFolder       string
	ReportFile          string
	LogFile             string // Zip archive receiving the test logs
	TestrunnerConfig    string // Passed to every executor instance
	PoolSize            string
	PortRange           string
	Verbose             bool
	Color               bool
	NoClean             bool
	UsePreloaded        bool
	ConfiguredResources string
	Timeout             time.Duration // Per test, zero means none
	Catalog             *plugin.Catalog
	Loader              *plugin.Loader
	Console             io.Writer // Defaults to io.Discard
}

// RunResult is the outcome of a run
type RunResult struct {
	RunID    string
	TypeName string
	Results  []*types.JobResult // Sorted by id
	Counts   types.Counts
	Suites   int
	Start    time.Time
	Duration time.Duration
}

// Failed reports whether any test ended in FAILURE or ERROR
func (r *RunResult) Failed() bool {
	return r.Counts.Failures > 0 || r.Counts.Errors > 0
}

// SuiteRunner discovers a batch of tests and runs them over a bounded pool of
// workers. Create it with NewSuiteRunner.
type SuiteRunner struct {
	cfg       Config
	log       log.Logger
	runID     string
	start     time.Time
	poolSize  int
	ports     types.PortRange
	writer    *ReportWriter
	discovery *suite.Discovery
	jobs      []*JobDescriptor
	suites    int
	logFolder string
	folders   *FolderAllocator
	completed atomic.Int64
	finished  atomic.Bool
	closeOnce sync.Once
}

// NewSuiteRunner validates the run parameters, discovers the tests below the
// configured paths and prepares one job per test. Configuration, discovery and
// plugin contract errors are returned before anything runs.
func NewSuiteRunner(cfg Config) (*SuiteRunner, error) {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.Loader == nil {
		cfg.Loader = plugin.NewLoader(cfg.Log, nil)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = plugin.NewCatalog(cfg.Loader.Registry().Types())
	}
	if cfg.Console == nil {
		cfg.Console = io.Discard
	}

	poolSize, err := validatePoolSize(cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	if cfg.PortRange == "" {
		cfg.PortRange = types.DefaultPortRange
	}
	ports, err := types.ParsePortRange(cfg.PortRange)
	if err != nil {
		return nil, err
	}

	reportFile, err := filepath.Abs(cfg.ReportFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve report file: %w", err)
	}
	cfg.ReportFile = reportFile
	writer, err := NewReportWriter(reportFile, cfg.Console)
	if err != nil {
		return nil, types.NewInfrastructureError(err)
	}

	r := &SuiteRunner{
		cfg:      cfg,
		log:      cfg.Log.New("component", "suite-runner"),
		runID:    uuid.New().String(),
		start:    time.Now(),
		poolSize: poolSize,
		ports:    ports,
		writer:   writer,
		folders:  NewFolderAllocator(),
	}
	if err := r.init(); err != nil {
		_ = writer.Close()
		return nil, err
	}
	return r, nil
}

func (r *SuiteRunner) init() error {
	r.writeLines(true, fmt.Sprintf("Acceptance test started - %s", reporting.FormatTimestamp(r.start)))

	paths := make([]string, 0, len(r.cfg.Paths))
	for _, p := range r.cfg.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve test path %s: %w", p, err)
		}
		paths = append(paths, abs)
	}
	r.cfg.Paths = paths

	discovery, err := suite.Discover(suite.Config{
		Log:            r.cfg.Log,
		Catalog:        r.cfg.Catalog,
		Loader:         r.cfg.Loader,
		ExternalConfig: r.cfg.TestrunnerConfig,
	}, paths)
	if err != nil {
		return err
	}
	if discovery == nil {
		r.log.Debug("Found no testsuite files")
		return nil
	}
	r.discovery = discovery

	folders := []*string{&r.cfg.BuildFolder, &r.cfg.ResultsFolder, &r.cfg.ResourceFolder}
	for _, folder := range folders {
		abs, err := ensureFolder(*folder)
		if err != nil {
			return types.NewInfrastructureError(err)
		}
		*folder = abs
	}
	r.logFolder, err = ensureFolder(filepath.Join(r.cfg.BuildFolder, "logs"))
	if err != nil {
		return types.NewInfrastructureError(err)
	}

	suites := make(map[string]struct{})
	for _, tc := range discovery.Cases {
		suites[tc.SuitePath] = struct{}{}
		serialized, err := suite.Serialize(tc.Document)
		if err != nil {
			return types.NewInfrastructureError(fmt.Errorf("failed to serialize test %q: %w", tc.Name, err))
		}
		r.jobs = append(r.jobs, &JobDescriptor{
			Metadata: types.JobMetadata{
				ID:            tc.ID,
				Name:          tc.Name,
				SuitePath:     tc.SuitePath,
				BuildFolder:   BuildFolderName(r.cfg.BuildFolder, tc.SuitePath, tc.Name),
				TypeName:      discovery.TypeName,
				ReportFile:    r.cfg.ReportFile,
				Verbose:       r.cfg.Verbose,
				Document:      serialized,
				Documentation: tc.Documentation,
			},
			Document:  tc.Document,
			LogFolder: r.logFolder,
			Executor:  discovery.Bundle.Executor,
			Color:     r.cfg.Color,
			NoClean:   r.cfg.NoClean,
			Timeout:   r.cfg.Timeout,
			Writer:    r.writer,
			Folders:   r.folders,
			Log:       r.cfg.Log,
		})
	}
	r.suites = len(suites)

	r.writeLines(false, r.initializationLines()...)
	return nil
}

// RunID returns the unique id of this run
func (r *SuiteRunner) RunID() string {
	return r.runID
}

// Jobs returns the number of tests the run will execute
func (r *SuiteRunner) Jobs() int {
	return len(r.jobs)
}

// Progress returns the number of tests that have completed and whether the run
// is over.
func (r *SuiteRunner) Progress() (int, bool) {
	return int(r.completed.Load()), r.finished.Load()
}

// Run executes every discovered test and reports the results. A returned
// error is an InfrastructureError or a PluginContractError affecting the run
// as a whole; failing tests are reported through the RunResult.
func (r *SuiteRunner) Run(ctx context.Context) (*RunResult, error) {
	defer r.writer.Flush()
	defer r.finished.Store(true)

	ctx, span := otel.Tracer("suite runner").Start(ctx, "run", trace.WithAttributes(
		attribute.String("run_id", r.runID),
		attribute.Int("tests", len(r.jobs)),
	))
	defer span.End()

	if r.discovery == nil {
		r.writeLines(true, "Found no tests... exiting.")
		return &RunResult{RunID: r.runID, Start: r.start}, nil
	}

	results, err := r.runJobs(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	duration := time.Since(r.start)

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })

	var errs []error
	if n, err := logging.ArchiveLogs(r.logFolder, r.cfg.LogFile); err != nil {
		r.log.Error("Failed to archive logs", "err", err)
		errs = append(errs, err)
	} else {
		r.log.Debug("Archived logs", "files", n, "archive", r.cfg.LogFile)
	}
	if _, err := reporting.WriteJUnit(r.cfg.ResultsFolder, results); err != nil {
		r.log.Error("Failed to write junit files", "err", err)
		errs = append(errs, err)
	}

	counts := types.CountResults(results)
	r.writeLines(false, r.testSummaryLines(results)...)
	r.writeLines(true, r.summaryLines(counts, duration)...)

	err = reporting.WriteRST(filepath.Join(r.cfg.ResultsFolder, "sphinx-rst"), results, reporting.RunInfo{
		TypeName: r.discovery.TypeName,
		Start:    r.start,
		Duration: duration,
	})
	if err != nil {
		r.log.Error("Failed to write test documentation", "err", err)
		errs = append(errs, err)
	}

	metrics.RecordRun(r.runID, r.discovery.TypeName, counts, duration)
	r.log.Info("Run finished", "runID", r.runID, "tests", counts.Total,
		"failures", counts.Failures, "errors", counts.Errors, "duration", duration)

	result := &RunResult{
		RunID:    r.runID,
		TypeName: r.discovery.TypeName,
		Results:  results,
		Counts:   counts,
		Suites:   r.suites,
		Start:    r.start,
		Duration: duration,
	}
	span.SetAttributes(
		attribute.Int("failures", counts.Failures),
		attribute.Int("errors", counts.Errors),
	)
	if len(errs) > 0 {
		err := types.NewInfrastructureError(errors.Join(errs...))
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	return result, nil
}

// runJobs owns the coordinator lifecycle and dispatches every job over the pool
func (r *SuiteRunner) runJobs(ctx context.Context) (results []*types.JobResult, err error) {
	var coordinator types.ResourceCoordinator
	if ct := r.discovery.Bundle.Coordinator; ct != nil {
		metadata := make([]types.JobMetadata, len(r.jobs))
		for i, job := range r.jobs {
			metadata[i] = job.Metadata
		}
		coordinator, err = ct.New(types.CoordinatorContext{
			ResourceFolder:      r.cfg.ResourceFolder,
			Jobs:                metadata,
			UsePreloaded:        r.cfg.UsePreloaded,
			ConfiguredResources: r.cfg.ConfiguredResources,
			Ports:               r.ports,
		})
		if err != nil {
			if types.IsPluginContractError(err) {
				return nil, err
			}
			return nil, types.NewInfrastructureError(fmt.Errorf("failed to create resource coordinator: %w", err))
		}
		defer func() {
			if shutdownErr := coordinator.Shutdown(); shutdownErr != nil {
				r.log.Error("Resource coordinator shutdown failed", "err", shutdownErr)
				err = types.NewInfrastructureError(errors.Join(err, fmt.Errorf("resource coordinator shutdown failed: %w", shutdownErr)))
			}
		}()
	}

	r.writeLines(false, "Creating pool, and starting tests")

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Worker pool panicked", "panic", p)
			results = nil
			err = types.NewInfrastructureError(fmt.Errorf("worker pool panicked: %v", p))
		}
	}()

	p := pool.NewWithResults[*types.JobResult]().WithMaxGoroutines(r.poolSize)
	for _, job := range r.jobs {
		job.Coordinator = coordinator
		p.Go(func() *types.JobResult {
			defer r.completed.Add(1)
			if ctx.Err() != nil {
				return cancelledResult(job, ctx.Err())
			}
			return Execute(ctx, job)
		})
	}
	return p.Wait(), nil
}

// cancelledResult is the result of a job that never started because the run was cancelled
func cancelledResult(job *JobDescriptor, cause error) *types.JobResult {
	meta := job.Metadata
	record := types.Record{}
	record.AddError(testnameLine(meta.Name), fmt.Sprintf("Test run cancelled: %v", cause))
	status := record.Status()
	return &types.JobResult{
		ID:            meta.ID,
		Name:          meta.Name,
		SuitePath:     meta.SuitePath,
		Status:        status,
		StatusMessage: fmt.Sprintf("Test '%s' status: %s.", meta.Name, status.Label()),
		Errors:        record.Errors,
		Summary:       generateSummary(meta.SuitePath, meta.Name, status, record, 0),
		Document:      meta.Document,
		Documentation: meta.Documentation,
		TypeName:      meta.TypeName,
	}
}

// Close flushes and closes the report. It is safe to call more than once.
func (r *SuiteRunner) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.writer.Close()
	})
	return err
}

// writeLines always writes lines to the report and echoes them to the console
// when the run is verbose or force is set.
func (r *SuiteRunner) writeLines(force bool, lines ...string) {
	for _, line := range lines {
		r.log.Debug(line)
	}
	if err := r.writer.Lines(r.cfg.Verbose || force, lines...); err != nil {
		r.log.Error("Failed to write to report", "err", err)
	}
}

func validatePoolSize(s string) (int, error) {
	size, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, types.NewConfigurationError("pool size must be an integer, given pool size '%s'", s)
	}
	if size < 1 {
		return 0, types.NewConfigurationError("pool size must be at least 1, given pool size '%d'", size)
	}
	return size, nil
}

func (r *SuiteRunner) initializationLines() []string {
	bundle := r.discovery.Bundle
	header := [][2]string{
		{"test paths", fmt.Sprintf("%v", r.cfg.Paths)},
		{"build folder", r.cfg.BuildFolder},
		{"resource folder", r.cfg.ResourceFolder},
		{"report file", r.cfg.ReportFile},
		{"test result folder", r.cfg.ResultsFolder},
		{"pool size", strconv.Itoa(r.poolSize)},
		{"test type", r.discovery.TypeName},
		{"number of tests", strconv.Itoa(len(r.jobs))},
		{"number of testsuite files", strconv.Itoa(r.suites)},
		{"test runner", bundle.Executor.Name()},
	}
	if bundle.Coordinator != nil {
		header = append(header, [2]string{"resource manager", bundle.Coordinator.Name()})
	}
	if bundle.Schema != "" {
		header = append(header, [2]string{"schema file", bundle.Schema})
	}
	if r.cfg.Timeout > 0 {
		header = append(header, [2]string{"test timeout", r.cfg.Timeout.String()})
	}

	offset := 0
	for _, kv := range header {
		offset = max(offset, len(kv[0]))
	}
	offset += 5

	lines := []string{separator("="), "Acceptance-tester initialized:", ""}
	for _, kv := range header {
		key := kv[0] + ":"
		lines = append(lines, fmt.Sprintf("%s%s %s", key, strings.Repeat(".", offset-len(key)), kv[1]))
	}
	return append(lines, separator("="))
}

// testSummaryLines lists the summary block of every test, without its leading separator
func (r *SuiteRunner) testSummaryLines(results []*types.JobResult) []string {
	lines := []string{"", separator("="), "Test Summaries:", strings.Repeat("-", 14), ""}
	for _, res := range results {
		if len(res.Summary) > 1 {
			lines = append(lines, res.Summary[1:]...)
		}
		lines = append(lines, "")
	}
	return lines
}

func (r *SuiteRunner) summaryLines(counts types.Counts, duration time.Duration) []string {
	lines := []string{
		separator("="),
		fmt.Sprintf("Ran %d tests found in %d testfiles.", counts.Total, r.suites),
	}
	if counts.Errors > 0 {
		lines = append(lines, fmt.Sprintf("%d tests caused ERRORS", counts.Errors))
	}
	if counts.Failures > 0 {
		lines = append(lines, fmt.Sprintf("%d tests FAILED", counts.Failures))
	}
	if counts.Errors == 0 && counts.Failures == 0 {
		lines = append(lines, "All tests ran SUCCESSFULLY")
	}
	lines = append(lines, "", fmt.Sprintf("Duration: %s", reporting.FormatDuration(duration)), separator("="))
	if r.cfg.Color {
		for i := range lines {
			lines[i] = Colorize(lines[i])
		}
	}
	return lines
}
