package suitetester

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/suite-tester/plugin"
	"github.com/ethereum-optimism/infra/suite-tester/reporting"
	"github.com/ethereum-optimism/infra/suite-tester/runner"
	"github.com/ethereum-optimism/infra/suite-tester/service"
)

// suiteTester implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &suiteTester{}

// suiteTester runs one batch of acceptance tests and then asks the
// application to shut down.
type suiteTester struct {
	config  *Config
	version string
	runner  *runner.SuiteRunner
	service *service.Service
	result  *runner.RunResult
	console io.Writer

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New validates the run parameters and discovers the tests to run. Errors
// returned here are configuration, discovery or plugin contract errors.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*suiteTester, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}

	config.Log.Debug("Creating suite tester with config",
		"paths", config.Paths,
		"buildFolder", config.BuildFolder,
		"poolSize", config.PoolSize,
		"types", config.Catalog.Names())

	r, err := runner.NewSuiteRunner(runner.Config{
		Log:                 config.Log,
		Paths:               config.Paths,
		BuildFolder:         config.BuildFolder,
		ResourceFolder:      config.ResourceFolder,
		ResultsFolder:       config.ResultsFolder,
		ReportFile:          config.ReportFile,
		LogFile:             config.LogFile,
		TestrunnerConfig:    config.TestrunnerConfig,
		PoolSize:            config.PoolSize,
		PortRange:           config.PortRange,
		Verbose:             config.Verbose,
		Color:               config.Color,
		NoClean:             config.NoClean,
		UsePreloaded:        config.UsePreloaded,
		ConfiguredResources: config.ConfiguredResources,
		Timeout:             config.Timeout,
		Catalog:             config.Catalog,
		Loader:              plugin.NewLoader(config.Log, nil),
		Console:             os.Stdout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create suite runner: %w", err)
	}

	var svc *service.Service
	if config.HealthzAddr != "" || config.Metrics.Enabled {
		svc = service.New(service.Config{
			HealthzAddr:    config.HealthzAddr,
			MetricsEnabled: config.Metrics.Enabled,
			MetricsAddr:    net.JoinHostPort(config.Metrics.ListenAddr, strconv.Itoa(config.Metrics.ListenPort)),
			Progress:       func() service.Progress { return runProgress(r) },
		})
	}

	return &suiteTester{
		config:           config,
		version:          version,
		runner:           r,
		service:          svc,
		console:          os.Stdout,
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the tests and prints the results table.
// Start implements the cliapp.Lifecycle interface.
func (s *suiteTester) Start(ctx context.Context) error {
	s.running.Store(true)
	if s.service != nil {
		s.service.Start(ctx)
	}

	s.config.Log.Info("Starting suite-tester", "version", s.version, "runID", s.runner.RunID(), "tests", s.runner.Jobs())
	result, err := s.runner.Run(ctx)
	if closeErr := s.runner.Close(); closeErr != nil {
		s.config.Log.Error("Failed to close report", "err", closeErr)
	}
	if err != nil {
		s.config.Log.Error("Runtime error running tests", "err", err)
		return NewRuntimeError(err)
	}
	s.result = result

	if len(result.Results) > 0 {
		title := fmt.Sprintf("Acceptance Testing Results (%s)", reporting.FormatDuration(result.Duration))
		fmt.Fprint(s.console, reporting.NewTableFormatter(title, true).Format(result.Results, result.Duration))
	}
	s.config.Log.Info("Test run completed", "runID", result.RunID, "tests", result.Counts.Total,
		"failures", result.Counts.Failures, "errors", result.Counts.Errors)

	if result.Failed() {
		s.config.Log.Warn("Test run completed with failures, returning exit code 1")
		return NewTestFailureError(fmt.Sprintf("%d tests FAILED, %d tests caused ERRORS",
			result.Counts.Failures, result.Counts.Errors))
	}

	go func() {
		s.shutdownCallback(nil)
	}()
	return nil
}

// Stop implements the cliapp.Lifecycle interface.
func (s *suiteTester) Stop(ctx context.Context) error {
	if !s.running.Swap(false) {
		s.config.Log.Debug("Suite tester already stopped, nothing to do")
		return nil
	}
	s.config.Log.Info("Stopping suite-tester")
	if s.service != nil {
		s.service.Shutdown()
	}
	return s.runner.Close()
}

// Stopped implements the cliapp.Lifecycle interface.
func (s *suiteTester) Stopped() bool {
	return !s.running.Load()
}

// Result returns the result of the run, nil before the run completed
func (s *suiteTester) Result() *runner.RunResult {
	return s.result
}

func runProgress(r *runner.SuiteRunner) service.Progress {
	completed, finished := r.Progress()
	return service.Progress{
		RunID:     r.RunID(),
		Tests:     r.Jobs(),
		Completed: completed,
		Remaining: r.Jobs() - completed,
		Finished:  finished,
	}
}
