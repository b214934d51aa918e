package suitetester

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		BuildFolder:    "build-folder",
		ResourceFolder: "resources",
		ResultsFolder:  "test-results",
		ReportFile:     "test-report.txt",
		LogFile:        "logs.zip",
		PoolSize:       "8",
		Log:            log.NewLogger(log.DiscardHandler()),
	}
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "tests.txt")
	require.NoError(t, os.WriteFile(list, []byte("# suites to run\n"+dir+"/a.xml\n\n  relative/b.xml  \n"), 0644))

	cfg := baseConfig(t)
	cfg.ListFile = list
	cfg.Paths = []string{"c.xml"}
	require.NoError(t, cfg.Resolve())

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.xml"),
		filepath.Join(wd, "relative", "b.xml"),
		filepath.Join(wd, "c.xml"),
	}, cfg.Paths)
	assert.Equal(t, filepath.Join(wd, "build-folder"), cfg.BuildFolder)
	assert.Equal(t, filepath.Join(wd, "logs.zip"), cfg.LogFile)
	assert.True(t, filepath.IsAbs(cfg.ReportFile))
	require.NotNil(t, cfg.Catalog)
}

func TestResolveErrors(t *testing.T) {
	t.Run("no paths", func(t *testing.T) {
		assert.Error(t, baseConfig(t).Resolve())
	})

	t.Run("missing list file", func(t *testing.T) {
		cfg := baseConfig(t)
		cfg.ListFile = filepath.Join(t.TempDir(), "missing.txt")
		assert.Error(t, cfg.Resolve())
	})

	t.Run("empty folder", func(t *testing.T) {
		cfg := baseConfig(t)
		cfg.Paths = []string{"suites"}
		cfg.BuildFolder = ""
		assert.Error(t, cfg.Resolve())
	})

	t.Run("negative timeout", func(t *testing.T) {
		cfg := baseConfig(t)
		cfg.Paths = []string{"suites"}
		cfg.Timeout = -1
		assert.Error(t, cfg.Resolve())
	})

	t.Run("bad types file", func(t *testing.T) {
		cfg := baseConfig(t)
		cfg.Paths = []string{"suites"}
		cfg.TypesFile = filepath.Join(t.TempDir(), "missing.yaml")
		assert.Error(t, cfg.Resolve())
	})
}

func TestResolveTypesFile(t *testing.T) {
	dir := t.TempDir()
	typesFile := filepath.Join(dir, "types.yaml")
	require.NoError(t, os.WriteFile(typesFile, []byte(`types:
  echo-strict:
    executor: echo
    schema: echo.schema.json
`), 0644))

	cfg := baseConfig(t)
	cfg.Paths = []string{"suites"}
	cfg.TypesFile = typesFile
	require.NoError(t, cfg.Resolve())

	def, ok := cfg.Catalog.Lookup("echo-strict")
	require.True(t, ok)
	assert.Equal(t, "echo", def.Executor)
	assert.Equal(t, filepath.Join(dir, "echo.schema.json"), def.Schema)
}
