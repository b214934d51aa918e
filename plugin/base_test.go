package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

const wrappingDoc = `<wrapping name="search works">
  <setup xmlns="info:testsuite#" xmlns:s="urn:solr">
    <s:solr/>
  </setup>
  <test xmlns="info:testsuite#" xmlns:s="urn:solr" name="search works">
    <description>searching</description>
    <s:search/>
    <s:foo/>
  </test>
</wrapping>`

func parseDoc(t *testing.T, s string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(s))
	return doc
}

func newSolrExecutor(t *testing.T) (*BaseExecutor, *int) {
	t.Helper()
	teardowns := 0
	b := NewBaseExecutor(types.ExecutorContext{SuitePath: "suite.xml", LogFolder: t.TempDir()})
	b.RegisterSetup("{urn:solr}solr",
		func(el *etree.Element) types.Record {
			return types.Record{Output: []string{"solr up"}}
		},
		func(save LogSaver) types.Record {
			teardowns++
			return types.Record{Output: []string{"solr down"}}
		})
	b.RegisterParser("{urn:solr}search", func(el *etree.Element) types.Record {
		return types.Record{Output: []string{"searched"}}
	})
	return b, &teardowns
}

func TestBaseExecutorParse(t *testing.T) {
	b, teardowns := newSolrExecutor(t)

	b.Parse(parseDoc(t, wrappingDoc))

	assert.Equal(t, []string{"solr up", "searched", "solr down"}, b.Record().Output)
	assert.Equal(t, []string{"Tag '{urn:solr}foo' is not known."}, b.Record().Failures)
	assert.Empty(t, b.Record().Errors)
	assert.Equal(t, 1, *teardowns)

	// teardowns already ran during Parse
	require.NoError(t, b.Shutdown())
	assert.Equal(t, 1, *teardowns)
	assert.Len(t, b.Record().Output, 3)
}

func TestBaseExecutorUnknownWrappingChild(t *testing.T) {
	b := NewBaseExecutor(types.ExecutorContext{})
	b.Parse(parseDoc(t, `<wrapping name="x"><bogus/><test xmlns="info:testsuite#" name="x"/></wrapping>`))
	assert.Equal(t, []string{"Tag 'bogus' is not known."}, b.Record().Failures)
}

func TestBaseExecutorTeardownOnPanic(t *testing.T) {
	b, teardowns := newSolrExecutor(t)
	b.RegisterParser("{urn:solr}search", func(el *etree.Element) types.Record {
		panic("search exploded")
	})

	assert.Panics(t, func() { b.Parse(parseDoc(t, wrappingDoc)) })
	assert.Equal(t, 1, *teardowns)
	assert.Contains(t, b.Record().Output, "solr down")
}

func TestBaseExecutorHookResults(t *testing.T) {
	b := NewBaseExecutor(types.ExecutorContext{})
	b.RegisterParser("{urn:solr}search", func(el *etree.Element) types.Record {
		return types.Record{
			Output:   []string{"out"},
			Failures: []string{"expected 1 hit, got 0"},
			Errors:   []string{"connection refused"},
		}
	})
	b.Parse(parseDoc(t, wrappingDoc))

	assert.Equal(t, []string{"out"}, b.Record().Output)
	assert.Equal(t, []string{"Tag '{urn:solr}solr' is not known.", "expected 1 hit, got 0", "Tag '{urn:solr}foo' is not known."}, b.Record().Failures)
	assert.Equal(t, []string{"connection refused"}, b.Record().Errors)
	assert.Equal(t, types.StatusError, b.Record().Status())
}

func TestSaveLogfile(t *testing.T) {
	logFolder := t.TempDir()
	b := NewBaseExecutor(types.ExecutorContext{LogFolder: logFolder})

	src := filepath.Join(t.TempDir(), "solr.log")
	require.NoError(t, os.WriteFile(src, []byte("started\n"), 0644))

	require.NoError(t, b.SaveLogfile(src, "solr_"))
	data, err := os.ReadFile(filepath.Join(logFolder, "solr_solr.log"))
	require.NoError(t, err)
	assert.Equal(t, "started\n", string(data))

	require.NoError(t, b.SaveLogfile(src, ""))
	assert.FileExists(t, filepath.Join(logFolder, "solr.log"))

	assert.Error(t, b.SaveLogfile(filepath.Join(t.TempDir(), "missing.log"), ""))
	assert.Error(t, NewBaseExecutor(types.ExecutorContext{}).SaveLogfile(src, ""))
}
