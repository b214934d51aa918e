package types

import "github.com/beevik/etree"

// SuiteNamespace is the XML namespace of test suite documents
const SuiteNamespace = "info:testsuite#"

// Qualify returns the Clark notation name of a local element name in the suite namespace
func Qualify(local string) string {
	return "{" + SuiteNamespace + "}" + local
}

// QualifiedName returns the Clark notation name of an element, e.g. "{info:testsuite#}test".
// Elements outside any namespace are returned by their local name.
func QualifiedName(el *etree.Element) string {
	if ns := el.NamespaceURI(); ns != "" {
		return "{" + ns + "}" + el.Tag
	}
	return el.Tag
}

// InSuiteNamespace reports whether el is the named element of the suite namespace
func InSuiteNamespace(el *etree.Element, local string) bool {
	return el != nil && el.Tag == local && el.NamespaceURI() == SuiteNamespace
}
