package types

import "strings"

// Documentation field names recognised inside a test element
const (
	DocDescription = "description"
	DocGiven       = "given"
	DocWhen        = "when"
	DocThen        = "then"
)

// DocumentationFields lists the documentation elements in report order
var DocumentationFields = []string{DocDescription, DocGiven, DocWhen, DocThen}

// Documentation holds the flattened documentation text of a test case
type Documentation struct {
	Description string `json:"description,omitempty"`
	Given       string `json:"given,omitempty"`
	When        string `json:"when,omitempty"`
	Then        string `json:"then,omitempty"`
}

// Set assigns a value by field name. Unknown names are ignored.
func (d *Documentation) Set(field, value string) {
	switch field {
	case DocDescription:
		d.Description = value
	case DocGiven:
		d.Given = value
	case DocWhen:
		d.When = value
	case DocThen:
		d.Then = value
	}
}

// Get returns the value of a field by name
func (d Documentation) Get(field string) string {
	switch field {
	case DocDescription:
		return d.Description
	case DocGiven:
		return d.Given
	case DocWhen:
		return d.When
	case DocThen:
		return d.Then
	}
	return ""
}

// IsEmpty reports whether no documentation was given
func (d Documentation) IsEmpty() bool {
	return d == Documentation{}
}

// FlattenText collapses multi-line documentation text into a single line:
// empty lines are dropped, every line is trimmed and the rest joined by single spaces.
func FlattenText(text string) string {
	var parts []string
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}
