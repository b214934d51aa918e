package suite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/suite-tester/plugin"
	"github.com/ethereum-optimism/infra/suite-tester/types"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func suiteDoc(typeName string, body string) string {
	return `<testsuite xmlns="info:testsuite#" type="` + typeName + `">` + body + `</testsuite>`
}

func newTestConfig(t *testing.T) Config {
	t.Helper()
	reg := plugin.NewRegistry()
	factory := func(types.ExecutorContext) (types.Executor, error) { return nil, nil }
	require.NoError(t, reg.RegisterExecutor("hive", factory))
	require.NoError(t, reg.RegisterExecutor("addi", factory))

	logger := log.NewLogger(log.DiscardHandler())
	return Config{
		Log: logger,
		Catalog: plugin.NewCatalog(map[string]plugin.TypeDefinition{
			"hive-fcrepo": {Executor: "hive"},
			"addi-fcrepo": {Executor: "addi"},
			"broken":      {Executor: "missing"},
		}),
		Loader:         plugin.NewLoader(logger, reg),
		ExternalConfig: "runner.cfg",
	}
}

func TestDiscoverOrdering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.xml"), suiteDoc("hive-fcrepo", `<test name="second"/>`))
	writeFile(t, filepath.Join(dir, "a.xml"), suiteDoc("hive-fcrepo", `<test name="first"/>`))
	writeFile(t, filepath.Join(dir, "nested", "c.xml"), suiteDoc("hive-fcrepo", `<test name="third"/>`))

	discovery, err := Discover(newTestConfig(t), []string{dir})
	require.NoError(t, err)
	require.NotNil(t, discovery)

	assert.Equal(t, "hive-fcrepo", discovery.TypeName)
	assert.Equal(t, "hive", discovery.Bundle.Executor.Name())
	assert.Equal(t, "runner.cfg", discovery.Bundle.Executor.Config())

	require.Len(t, discovery.Cases, 3)
	for i, name := range []string{"first", "second", "third"} {
		c := discovery.Cases[i]
		assert.Equal(t, i, c.ID)
		assert.Equal(t, name, c.Name)
		assert.True(t, filepath.IsAbs(c.SuitePath))
		_, test := Unwrap(c.Document)
		require.NotNil(t, test)
		assert.Equal(t, name, test.SelectAttrValue("name", ""))
	}
	assert.Equal(t, filepath.Join(dir, "nested", "c.xml"), discovery.Cases[2].SuitePath)
}

func TestDiscoverMultipleTestsAndSetup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "suite.xml"), suiteDoc("hive-fcrepo", `
  <setup><hive/></setup>
  <test name="one">
    <description>
      The first
        test
    </description>
    <given>a running hive</given>
    <then>it answers</then>
  </test>
  <test name="two"/>`))

	discovery, err := Discover(newTestConfig(t), []string{dir})
	require.NoError(t, err)
	require.Len(t, discovery.Cases, 2)

	one := discovery.Cases[0]
	assert.Equal(t, types.Documentation{Description: "The first test", Given: "a running hive", Then: "it answers"}, one.Documentation)
	setup, _ := Unwrap(one.Document)
	require.NotNil(t, setup)
	assert.Len(t, setup.ChildElements(), 1)

	two := discovery.Cases[1]
	assert.True(t, two.Documentation.IsEmpty())
	setup, _ = Unwrap(two.Document)
	assert.NotNil(t, setup, "every test of a document gets the setup")
	assert.Contains(t, two.XML(), `<wrapping name="two">`)
}

func TestDiscoverAmbiguousType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.xml"), suiteDoc("hive-fcrepo", `<test name="a"/>`))
	writeFile(t, filepath.Join(dir, "b.xml"), suiteDoc("addi-fcrepo", `<test name="b"/>`))

	discovery, err := Discover(newTestConfig(t), []string{dir})
	require.Error(t, err)
	assert.Nil(t, discovery)
	assert.True(t, types.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "addi-fcrepo, hive-fcrepo")
}

func TestDiscoverTypeResolution(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.xml"), suiteDoc("solr", `<test name="a"/>`))
		_, err := Discover(newTestConfig(t), []string{dir})
		assert.True(t, types.IsConfigurationError(err))
	})

	t.Run("unregistered executor", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.xml"), suiteDoc("broken", `<test name="a"/>`))
		_, err := Discover(newTestConfig(t), []string{dir})
		assert.True(t, types.IsPluginContractError(err))
	})
}

func TestDiscoverBannedCharacters(t *testing.T) {
	for _, c := range BannedNameChars {
		name := "bad" + string(c) + "name"
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "a.xml"), suiteDoc("hive-fcrepo", `<test name="ok"/><test name="`+name+`"/>`))
			discovery, err := Discover(newTestConfig(t), []string{dir})
			require.Error(t, err)
			assert.Nil(t, discovery)
			assert.True(t, types.IsDiscoveryError(err))
			assert.Contains(t, err.Error(), name)
		})
	}

	assert.NoError(t, CheckName("names with spaces and-dashes_are fine"))
}

func TestDiscoverEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a suite")
	writeFile(t, filepath.Join(dir, "other.xml"), `<project/>`)
	writeFile(t, filepath.Join(dir, ".hidden", "a.xml"), suiteDoc("hive-fcrepo", `<test name="a"/>`))

	discovery, err := Discover(newTestConfig(t), []string{dir, filepath.Join(dir, "does-not-exist")})
	require.NoError(t, err)
	assert.Nil(t, discovery)
}

func TestDiscoverNoTests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.xml"), suiteDoc("hive-fcrepo", `<setup/>`))

	_, err := Discover(newTestConfig(t), []string{dir})
	require.Error(t, err)
	assert.True(t, types.IsDiscoveryError(err))
}

func TestDiscoverFilePath(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.xml"), suiteDoc("hive-fcrepo", `<test name="a"/>`))
	writeFile(t, filepath.Join(dir, "b.xml"), suiteDoc("hive-fcrepo", `<test name="b"/>`))

	discovery, err := Discover(newTestConfig(t), []string{a})
	require.NoError(t, err)
	require.Len(t, discovery.Cases, 1)
	assert.Equal(t, "a", discovery.Cases[0].Name)
}

func TestDiscoverSchema(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, filepath.Join(dir, "schemas", "hive.schema.json"), `{
  "type": "object",
  "properties": {
    "children": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "attributes": {
            "type": "object",
            "properties": {
              "name": {"type": "string", "pattern": "^[a-z ]+$"}
            }
          }
        }
      }
    }
  }
}`)
	suites := filepath.Join(dir, "suites")
	writeFile(t, filepath.Join(suites, "a.xml"), suiteDoc("hive-fcrepo", `<test name="valid"/>`))
	writeFile(t, filepath.Join(suites, "b.xml"), suiteDoc("hive-fcrepo", `<test name="Invalid9"/>`))

	cfg := newTestConfig(t)
	cfg.Catalog.Types["hive-fcrepo"] = plugin.TypeDefinition{Executor: "hive", Schema: schema}
	cfg.Schemas = NewSchemaSet()

	discovery, err := Discover(cfg, []string{suites})
	require.NoError(t, err)
	require.Len(t, discovery.Cases, 1)
	assert.Equal(t, "valid", discovery.Cases[0].Name)

	// nothing survives
	require.NoError(t, os.Remove(filepath.Join(suites, "a.xml")))
	_, err = Discover(cfg, []string{suites})
	assert.True(t, types.IsDiscoveryError(err))
}

func TestProject(t *testing.T) {
	doc, err := ValidateReader(strings.NewReader(`<testsuite xmlns="info:testsuite#" xmlns:x="urn:x" type="echo">
  <test name="a"> <x:step value="1">  text  </x:step></test>
</testsuite>`))
	require.NoError(t, err)

	p := Project(doc.Root())
	assert.Equal(t, "testsuite", p["tag"])
	assert.Equal(t, "info:testsuite#", p["namespace"])
	assert.Equal(t, map[string]any{"type": "echo"}, p["attributes"])

	children := p["children"].([]any)
	require.Len(t, children, 1)
	step := children[0].(map[string]any)["children"].([]any)[0].(map[string]any)
	assert.Equal(t, "step", step["tag"])
	assert.Equal(t, "urn:x", step["namespace"])
	assert.Equal(t, "text", step["text"])
	assert.Equal(t, map[string]any{"value": "1"}, step["attributes"])
}
