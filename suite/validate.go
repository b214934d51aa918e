// Package suite finds test suite documents, validates them and expands them
// into individually runnable test cases.
package suite

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

var (
	ErrMalformed       = errors.New("document is not well-formed XML")
	ErrRootTag         = errors.New("root element is not a testsuite element")
	ErrMissingType     = errors.New("testsuite element has no type attribute")
	ErrUnexpectedChild = errors.New("testsuite element has a child that is neither setup nor test")
	ErrMultipleSetup   = errors.New("testsuite element has more than one setup element")
)

// ValidateDocument reads and structurally validates a test suite document
func ValidateDocument(path string) (*etree.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open suite document: %w", err)
	}
	defer f.Close()
	return ValidateReader(f)
}

// ValidateReader structurally validates a test suite document. The returned
// error wraps the sentinel of the first clause that does not hold.
func ValidateReader(r io.Reader) (*etree.Document, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := validateTree(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func validateTree(doc *etree.Document) error {
	if err := checkProlog(doc); err != nil {
		return err
	}
	root := doc.Root()
	if !types.InSuiteNamespace(root, "testsuite") {
		return fmt.Errorf("%w: found '%s'", ErrRootTag, types.QualifiedName(root))
	}
	if root.SelectAttrValue("type", "") == "" {
		return ErrMissingType
	}

	setups := 0
	for _, child := range root.ChildElements() {
		switch {
		case types.InSuiteNamespace(child, "setup"):
			setups++
		case types.InSuiteNamespace(child, "test"):
		default:
			return fmt.Errorf("%w: found '%s'", ErrUnexpectedChild, types.QualifiedName(child))
		}
	}
	if setups > 1 {
		return fmt.Errorf("%w: found %d", ErrMultipleSetup, setups)
	}
	return nil
}

// checkProlog enforces a single root element with nothing but markup and
// whitespace around it.
func checkProlog(doc *etree.Document) error {
	roots := 0
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			roots++
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return fmt.Errorf("%w: text outside the root element", ErrMalformed)
			}
		}
	}
	switch roots {
	case 0:
		return fmt.Errorf("%w: no root element", ErrMalformed)
	case 1:
		return nil
	default:
		return fmt.Errorf("%w: found %d root elements", ErrMalformed, roots)
	}
}
