package suite

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/suite-tester/plugin"
	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// BannedNameChars cannot appear in test names, as names end up in file paths
// and element names.
const BannedNameChars = "/.*@:()[]+,"

// TestCase is one test of a suite document, ready to be handed to an executor
type TestCase struct {
	ID            int
	SuitePath     string
	Name          string
	Document      *etree.Document // Wrapping document
	Documentation types.Documentation
}

// Discovery is the outcome of discovering a batch of suite documents
type Discovery struct {
	TypeName string
	Bundle   *plugin.Bundle
	Cases    []*TestCase
}

// Config holds the collaborators of discovery
type Config struct {
	Log            log.Logger
	Catalog        *plugin.Catalog
	Loader         *plugin.Loader
	Schemas        *SchemaSet // Optional, a fresh set is used when nil
	ExternalConfig string     // Passed to the executor type of the batch
}

// Discover finds the suite documents below paths and expands them into test
// cases. All documents of a batch must share one test type. A nil Discovery
// and nil error means no suite documents were found.
func Discover(cfg Config, paths []string) (*Discovery, error) {
	logger := cfg.Log.New("component", "discovery")

	var docs []*Document
	for _, path := range paths {
		found := collect(logger, path)
		if len(found) == 0 {
			logger.Warn("Found no testsuite files in path", "path", path)
			continue
		}
		docs = append(docs, found...)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	typeName, err := batchType(docs)
	if err != nil {
		return nil, err
	}
	def, ok := cfg.Catalog.Lookup(typeName)
	if !ok {
		return nil, types.NewConfigurationError("unknown test type '%s' (known types: %s)",
			typeName, strings.Join(cfg.Catalog.Names(), ", "))
	}
	bundle, err := cfg.Loader.Load(typeName, def, cfg.ExternalConfig)
	if err != nil {
		return nil, err
	}
	if bundle.Executor == nil {
		return nil, types.NewConfigurationError("type '%s' is missing an executor", typeName)
	}

	if bundle.Schema != "" {
		schemas := cfg.Schemas
		if schemas == nil {
			schemas = NewSchemaSet()
		}
		docs, err = filterValid(logger, schemas, bundle.Schema, docs)
		if err != nil {
			return nil, err
		}
	}

	cases, err := expand(docs)
	if err != nil {
		return nil, err
	}
	logger.Info("Discovered tests", "type", typeName, "documents", len(docs), "tests", len(cases))

	return &Discovery{
		TypeName: typeName,
		Bundle:   bundle,
		Cases:    cases,
	}, nil
}

// collect returns the structurally valid documents below path
func collect(logger log.Logger, path string) []*Document {
	candidates, err := FindCandidates(path)
	if err != nil {
		logger.Warn("Could not search path for testsuite files", "path", path, "err", err)
		return nil
	}

	var docs []*Document
	for _, candidate := range candidates {
		doc, err := ValidateDocument(candidate)
		if err != nil {
			logger.Debug("Rejected testsuite file", "path", candidate, "reason", err)
			continue
		}
		docs = append(docs, &Document{Path: candidate, Doc: doc})
	}
	if len(docs) > 0 {
		names := make([]string, len(docs))
		for i, d := range docs {
			names[i] = d.Path
		}
		logger.Debug("Found testsuite files", "path", path, "files", strings.Join(names, "\n"))
	}
	return docs
}

func batchType(docs []*Document) (string, error) {
	seen := make(map[string]struct{})
	for _, d := range docs {
		seen[d.Type()] = struct{}{}
	}
	if len(seen) > 1 {
		names := make([]string, 0, len(seen))
		for name := range seen {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", types.NewConfigurationError("found multiple test types in tests: %s", strings.Join(names, ", "))
	}
	return docs[0].Type(), nil
}

func filterValid(logger log.Logger, schemas *SchemaSet, ref string, docs []*Document) ([]*Document, error) {
	var valid []*Document
	for _, d := range docs {
		if err := schemas.Validate(ref, d.Doc); err != nil {
			logger.Info("Could not validate testsuite file", "path", d.Path, "schema", ref, "err", err)
			continue
		}
		valid = append(valid, d)
	}
	if len(valid) == 0 {
		return nil, types.NewDiscoveryError("found no testsuite files valid against schema '%s'", ref)
	}
	return valid, nil
}

func expand(docs []*Document) ([]*TestCase, error) {
	var cases []*TestCase
	for _, d := range docs {
		var setup *etree.Element
		var tests []*etree.Element
		for _, child := range d.Doc.Root().ChildElements() {
			switch {
			case types.InSuiteNamespace(child, "setup"):
				setup = child
			case types.InSuiteNamespace(child, "test"):
				tests = append(tests, child)
			}
		}

		for _, test := range tests {
			name := test.SelectAttrValue("name", "")
			if name == "" {
				return nil, types.NewDiscoveryError("test without a name in '%s'", d.Path)
			}
			if err := CheckName(name); err != nil {
				return nil, err
			}
			cases = append(cases, &TestCase{
				ID:            len(cases),
				SuitePath:     d.Path,
				Name:          name,
				Document:      Wrap(name, setup, test),
				Documentation: documentation(test),
			})
		}
	}
	if len(cases) == 0 {
		paths := make([]string, len(docs))
		for i, d := range docs {
			paths[i] = d.Path
		}
		return nil, types.NewDiscoveryError("found no tests in testsuite files %v", paths)
	}
	return cases, nil
}

// CheckName returns a DiscoveryError when name contains a banned character
func CheckName(name string) error {
	if i := strings.IndexAny(name, BannedNameChars); i >= 0 {
		return types.NewDiscoveryError("'%c' cannot be used in test names (%s), because this is also used as "+
			"filenames/xml-nodes. Please rename test and try again.", name[i], name)
	}
	return nil
}

func documentation(test *etree.Element) types.Documentation {
	var doc types.Documentation
	for _, child := range test.ChildElements() {
		for _, field := range types.DocumentationFields {
			if types.InSuiteNamespace(child, field) {
				doc.Set(field, types.FlattenText(child.Text()))
			}
		}
	}
	return doc
}

// XML returns the serialized wrapping document of the test case
func (c *TestCase) XML() string {
	s, err := Serialize(c.Document)
	if err != nil {
		return fmt.Sprintf("<!-- %v -->", err)
	}
	return s
}
