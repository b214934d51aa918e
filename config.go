package suitetester

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/suite-tester/flags"
	"github.com/ethereum-optimism/infra/suite-tester/plugin"
)

// Config holds the application configuration
type Config struct {
	Paths               []string // Files or folders to search for suite documents
	ListFile            string   // Optional file listing more paths, one per line
	BuildFolder         string
	ResourceFolder      string
	ResultsFolder       string
	ReportFile          string
	LogFile             string
	TestrunnerConfig    string
	PoolSize            string
	PortRange           string
	Verbose             bool
	Color               bool
	NoClean             bool
	UsePreloaded        bool
	ConfiguredResources string
	TypesFile           string        // Optional YAML catalog merged over the built-in types
	Timeout             time.Duration // Per test timeout, zero means none
	HealthzAddr         string
	Metrics             opmetrics.CLIConfig
	Catalog             *plugin.Catalog // Resolved by Resolve
	Log                 log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	cfg := &Config{
		Paths:               ctx.Args().Slice(),
		ListFile:            ctx.String(flags.File.Name),
		BuildFolder:         ctx.String(flags.BuildFolder.Name),
		ResourceFolder:      ctx.String(flags.ResourceFolder.Name),
		ResultsFolder:       ctx.String(flags.TestResultFolder.Name),
		ReportFile:          ctx.String(flags.ReportFile.Name),
		LogFile:             ctx.String(flags.LogFile.Name),
		TestrunnerConfig:    ctx.String(flags.TestrunnerConfig.Name),
		PoolSize:            ctx.String(flags.PoolSize.Name),
		PortRange:           ctx.String(flags.PortRange.Name),
		Verbose:             ctx.Bool(flags.Verbose.Name),
		Color:               ctx.Bool(flags.Color.Name),
		NoClean:             ctx.Bool(flags.NoClean.Name),
		UsePreloaded:        ctx.Bool(flags.UsePreloadedResources.Name),
		ConfiguredResources: ctx.String(flags.UseConfiguredResources.Name),
		TypesFile:           ctx.String(flags.Types.Name),
		Timeout:             ctx.Duration(flags.TestTimeout.Name),
		HealthzAddr:         ctx.String(flags.HealthzAddr.Name),
		Metrics:             opmetrics.ReadCLIConfig(ctx),
		Log:                 log,
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve reads the list file, makes every path absolute and loads the type catalog
func (c *Config) Resolve() error {
	if c.Log == nil {
		c.Log = log.Root()
	}

	var paths []string
	if c.ListFile != "" {
		listed, err := readPathList(c.ListFile)
		if err != nil {
			return err
		}
		paths = append(paths, listed...)
	}
	paths = append(paths, c.Paths...)
	if len(paths) == 0 {
		return errors.New("please supply a testfile or testfolder")
	}
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path for '%s': %w", p, err)
		}
		paths[i] = abs
	}
	c.Paths = paths

	for _, p := range []*string{&c.BuildFolder, &c.ResourceFolder, &c.ResultsFolder, &c.ReportFile, &c.LogFile} {
		if *p == "" {
			return errors.New("build, resource, result folders, report and log file must not be empty")
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path for '%s': %w", *p, err)
		}
		*p = abs
	}
	if c.ConfiguredResources != "" {
		abs, err := filepath.Abs(c.ConfiguredResources)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path for '%s': %w", c.ConfiguredResources, err)
		}
		c.ConfiguredResources = abs
	}
	if c.Timeout < 0 {
		return fmt.Errorf("test timeout must not be negative, got %s", c.Timeout)
	}

	catalog := plugin.NewCatalog(plugin.DefaultRegistry.Types())
	if c.TypesFile != "" {
		loaded, err := plugin.LoadCatalog(c.TypesFile, catalog)
		if err != nil {
			return fmt.Errorf("failed to load test types: %w", err)
		}
		catalog = loaded
	}
	c.Catalog = catalog
	return nil
}

// readPathList reads one path per line. Empty lines and lines starting with
// '#' are skipped.
func readPathList(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open test list: %w", err)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read test list: %w", err)
	}
	return paths, nil
}
