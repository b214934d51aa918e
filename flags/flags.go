package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

const EnvVarPrefix = "SUITE_TESTER"

var (
	File = &cli.StringFlag{
		Name:    "file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FILE"),
		Usage:   "File listing test paths, one per line. Used in addition to positional paths",
	}
	BuildFolder = &cli.StringFlag{
		Name:    "build-folder",
		Value:   "build-folder",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BUILD_FOLDER"),
		Usage:   "Folder the tests are built and run in",
	}
	ResourceFolder = &cli.StringFlag{
		Name:    "resource-folder",
		Value:   "resources",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RESOURCE_FOLDER"),
		Usage:   "Folder handed to the resource coordinator",
	}
	TestResultFolder = &cli.StringFlag{
		Name:    "test-result-folder",
		Value:   "test-results",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_RESULT_FOLDER"),
		Usage:   "Folder receiving the JUnit files and the test documentation",
	}
	ReportFile = &cli.StringFlag{
		Name:    "report-file",
		Value:   "test-report.txt",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT_FILE"),
		Usage:   "Report file the run appends to",
	}
	LogFile = &cli.StringFlag{
		Name:    "log-file",
		Value:   "logs.zip",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_FILE"),
		Usage:   "Zip archive receiving the log files of the tests",
	}
	TestrunnerConfig = &cli.StringFlag{
		Name:    "testrunner-config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TESTRUNNER_CONFIG"),
		Usage:   "Configuration handed to every test executor",
	}
	PoolSize = &cli.StringFlag{
		Name:    "pool-size",
		Value:   "8",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "POOL_SIZE"),
		Usage:   "Number of tests run concurrently",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "VERBOSE"),
		Usage:   "Print the full report of every test to the console",
	}
	Color = &cli.BoolFlag{
		Name:    "color",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COLOR"),
		Usage:   "Colorize the console output",
	}
	NoClean = &cli.BoolFlag{
		Name:    "no-clean",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NO_CLEAN"),
		Usage:   "Keep the build folders of the tests",
	}
	UsePreloadedResources = &cli.BoolFlag{
		Name:    "use-preloaded-resources",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "USE_PRELOADED_RESOURCES"),
		Usage:   "Allow the resource coordinator to use preloaded resources",
	}
	UseConfiguredResources = &cli.StringFlag{
		Name:    "use-configured-resources",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "USE_CONFIGURED_RESOURCES"),
		Usage:   "Path to a resource configuration for the resource coordinator",
	}
	PortRange = &cli.StringFlag{
		Name:    "port-range",
		Value:   types.DefaultPortRange,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PORT_RANGE"),
		Usage:   "Ports the resource coordinator may allocate from, as start-end",
	}
	Types = &cli.StringFlag{
		Name:    "types",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TYPES"),
		Usage:   "YAML catalog of test types, merged over the built-in types",
	}
	TestTimeout = &cli.DurationFlag{
		Name:    "test-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_TIMEOUT"),
		Usage:   "Timeout for a single test (e.g. '10m'). Set to 0 or omit for no timeout.",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Address to serve /healthz on while the run is in progress. Disabled when empty",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	File,
	BuildFolder,
	ResourceFolder,
	TestResultFolder,
	ReportFile,
	LogFile,
	TestrunnerConfig,
	PoolSize,
	Verbose,
	Color,
	NoClean,
	UsePreloadedResources,
	UseConfiguredResources,
	PortRange,
	Types,
	TestTimeout,
	HealthzAddr,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	if ctx.NArg() == 0 && ctx.String(File.Name) == "" {
		return fmt.Errorf("no test paths given, pass them as arguments or with --%s", File.Name)
	}
	return nil
}
