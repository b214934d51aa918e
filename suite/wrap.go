package suite

import (
	"github.com/beevik/etree"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// Wrap builds the document a single test runs from: a wrapping element named
// after the test holding a deep copy of the setup element, when there is one,
// followed by a deep copy of the test element. Namespace declarations in scope
// of the originals are declared on the copies so they resolve the same way
// outside the suite document.
func Wrap(name string, setup, test *etree.Element) *etree.Document {
	doc := etree.NewDocument()
	root := doc.CreateElement("wrapping")
	root.CreateAttr("name", name)
	if setup != nil {
		root.AddChild(detach(setup))
	}
	root.AddChild(detach(test))
	return doc
}

// Unwrap returns the setup and test elements of a wrapping document. setup is
// nil when the test has no setup.
func Unwrap(doc *etree.Document) (setup, test *etree.Element) {
	root := doc.Root()
	if root == nil {
		return nil, nil
	}
	for _, child := range root.ChildElements() {
		switch {
		case types.InSuiteNamespace(child, "setup") && setup == nil:
			setup = child
		case types.InSuiteNamespace(child, "test") && test == nil:
			test = child
		}
	}
	return setup, test
}

// detach deep copies el and declares on the copy every namespace in scope of el
func detach(el *etree.Element) *etree.Element {
	cp := el.Copy()
	own := cp.Attr
	cp.Attr = nil

	declared := make(map[string]bool)
	for _, a := range own {
		if isNamespaceDecl(a) {
			declared[a.FullKey()] = true
		}
	}
	var inherited []etree.Attr
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if isNamespaceDecl(a) && !declared[a.FullKey()] {
				declared[a.FullKey()] = true
				inherited = append(inherited, a)
			}
		}
	}

	for _, a := range inherited {
		cp.CreateAttr(a.FullKey(), a.Value)
	}
	for _, a := range own {
		cp.CreateAttr(a.FullKey(), a.Value)
	}
	return cp
}

// Serialize renders a document as indented XML
func Serialize(doc *etree.Document) (string, error) {
	cp := doc.Copy()
	cp.Indent(2)
	return cp.WriteToString()
}
