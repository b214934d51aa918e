package runner

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	// DelimiterLength is the width of the separator lines in reports
	DelimiterLength = 120

	descriptionWidth  = 80
	descriptionPrefix = "Description: "
)

var (
	errorColors   = text.Colors{text.FgRed, text.Bold}
	failureColors = text.Colors{text.FgYellow, text.Bold}
	successColors = text.Colors{text.FgGreen, text.Bold}
)

// FormatDescription wraps a description at 80 columns. The first line starts
// with "Description: ", continuation lines are indented to match. Words longer
// than a line are split.
func FormatDescription(description string) string {
	width := descriptionWidth - len(descriptionPrefix)
	indent := strings.Repeat(" ", len(descriptionPrefix))

	var lines []string
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		prefix := indent
		if len(lines) == 0 {
			prefix = descriptionPrefix
		}
		lines = append(lines, prefix+current.String())
		current.Reset()
	}

	for _, word := range strings.Fields(description) {
		for len(word) > width {
			flush()
			current.WriteString(word[:width])
			flush()
			word = word[width:]
		}
		if current.Len() > 0 && current.Len()+1+len(word) > width {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	flush()
	return strings.Join(lines, "\n")
}

// Colorize highlights the status words ERROR, FAILED and SUCCESS
func Colorize(s string) string {
	s = strings.ReplaceAll(s, "ERROR", errorColors.Sprint("ERROR"))
	s = strings.ReplaceAll(s, "FAILED", failureColors.Sprint("FAILED"))
	s = strings.ReplaceAll(s, "SUCCESS", successColors.Sprint("SUCCESS"))
	return s
}

func separator(c string) string {
	return strings.Repeat(c, DelimiterLength)
}
