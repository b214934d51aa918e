package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"
)

// TypeDefinition names the plugins that handle one test type
type TypeDefinition struct {
	Executor            string `yaml:"executor"`
	ResourceCoordinator string `yaml:"resource-coordinator,omitempty"`
	Schema              string `yaml:"schema,omitempty"`
}

// Catalog maps test type names, as found in the type attribute of suite
// documents, to their definitions.
type Catalog struct {
	Types map[string]TypeDefinition `yaml:"types"`
}

// NewCatalog creates a catalog holding a copy of defs
func NewCatalog(defs map[string]TypeDefinition) *Catalog {
	c := &Catalog{Types: make(map[string]TypeDefinition, len(defs))}
	for name, def := range defs {
		c.Types[name] = def
	}
	return c
}

// LoadCatalog reads a YAML catalog file and merges it over base, which may be nil.
// Relative schema paths are resolved against the directory of the file.
//
//	types:
//	  hive-fcrepo:
//	    executor: hive
//	    resource-coordinator: hive
//	    schema: schemas/hive.schema.json
func LoadCatalog(path string, base *Catalog) (*Catalog, error) {
	log.Debug("Reading type catalog", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}

	merged := NewCatalog(nil)
	if base != nil {
		merged = NewCatalog(base.Types)
	}

	dir := filepath.Dir(path)
	for name, def := range file.Types {
		if def.Schema != "" && !filepath.IsAbs(def.Schema) {
			def.Schema = filepath.Join(dir, def.Schema)
		}
		merged.Types[name] = def
	}
	return merged, nil
}

// Lookup returns the definition of a type
func (c *Catalog) Lookup(name string) (TypeDefinition, bool) {
	if c == nil {
		return TypeDefinition{}, false
	}
	def, ok := c.Types[name]
	return def, ok
}

// Names returns the sorted type names of the catalog
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Types))
	for name := range c.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
