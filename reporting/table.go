package reporting

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// TableFormatter renders the results of a run as an ASCII table
type TableFormatter struct {
	showIndividualTests bool
	title               string
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(title string, showIndividualTests bool) *TableFormatter {
	return &TableFormatter{
		showIndividualTests: showIndividualTests,
		title:               title,
	}
}

// Format renders one row per suite file, optionally followed by its tests
func (tf *TableFormatter) Format(results []*types.JobResult, duration time.Duration) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(tf.title)

	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Tests", "Passed", "Failed", "Errors", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 200, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Errors", Align: text.AlignRight},
	})

	groups := types.GroupBySuite(results)
	suites := make([]string, 0, len(groups))
	for path := range groups {
		suites = append(suites, path)
	}
	sort.Strings(suites)

	for _, path := range suites {
		tests := groups[path]
		counts := types.CountResults(tests)
		var suiteDuration time.Duration
		for _, r := range tests {
			suiteDuration += r.Duration
		}

		t.AppendRow(table.Row{
			"Suite",
			filepath.Base(path),
			FormatDuration(suiteDuration),
			counts.Total,
			counts.Successes,
			counts.Failures,
			counts.Errors,
			countsStatus(counts).Label(),
		})

		if tf.showIndividualTests {
			for i, r := range tests {
				prefix := "├──"
				if i == len(tests)-1 {
					prefix = "└──"
				}
				t.AppendRow(table.Row{
					"Test",
					fmt.Sprintf("%s %s", prefix, r.Name),
					FormatDuration(r.Duration),
					"",
					"",
					"",
					"",
					r.Status.Label(),
				})
			}
		}
		t.AppendSeparator()
	}

	total := types.CountResults(results)
	switch countsStatus(total) {
	case types.StatusError:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case types.StatusFailure:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		FormatDuration(duration),
		total.Total,
		total.Successes,
		total.Failures,
		total.Errors,
		countsStatus(total).Label(),
	})

	t.Render()
	return buf.String()
}

func countsStatus(c types.Counts) types.Status {
	switch {
	case c.Errors > 0:
		return types.StatusError
	case c.Failures > 0:
		return types.StatusFailure
	default:
		return types.StatusSuccess
	}
}
