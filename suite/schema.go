package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaSet compiles type schemas on first use and validates suite documents
// against them. It is safe for concurrent use.
type SchemaSet struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewSchemaSet creates an empty schema set
func NewSchemaSet() *SchemaSet {
	return &SchemaSet{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate validates doc against the JSON Schema file at ref
func (s *SchemaSet) Validate(ref string, doc *etree.Document) error {
	schema, err := s.schema(ref)
	if err != nil {
		return err
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("document has no root element")
	}
	if err := schema.Validate(Project(root)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func (s *SchemaSet) schema(ref string) (*jsonschema.Schema, error) {
	abs, err := filepath.Abs(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve schema path: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if schema, ok := s.compiled[abs]; ok {
		return schema, nil
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	defer f.Close()

	doc, err := jsonschema.UnmarshalJSON(f)
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema %s: %w", abs, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(abs, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(abs)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", abs, err)
	}
	s.compiled[abs] = schema
	return schema, nil
}

// Project converts an element tree into the JSON value type schemas are written
// against. Every element becomes an object with the keys tag, namespace,
// attributes, text and children. Namespace declarations are not attributes.
func Project(el *etree.Element) map[string]any {
	attrs := make(map[string]any)
	for _, a := range el.Attr {
		if isNamespaceDecl(a) {
			continue
		}
		attrs[a.FullKey()] = a.Value
	}
	children := make([]any, 0)
	for _, child := range el.ChildElements() {
		children = append(children, Project(child))
	}
	return map[string]any{
		"tag":        el.Tag,
		"namespace":  el.NamespaceURI(),
		"attributes": attrs,
		"text":       strings.TrimSpace(el.Text()),
		"children":   children,
	}
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}
