package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// JUnitSuite is the testsuite element of a JUnit XML file
type JUnitSuite struct {
	XMLName   xml.Name         `xml:"testsuite"`
	Name      string           `xml:"name,attr"`
	Tests     int              `xml:"tests,attr"`
	Failures  int              `xml:"failures,attr"`
	Errors    int              `xml:"errors,attr"`
	Time      string           `xml:"time,attr"`
	TestCases []*JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase is a testcase element
type JUnitTestCase struct {
	Classname string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *JUnitProblem `xml:"failure,omitempty"`
	Error     *JUnitProblem `xml:"error,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitProblem contains data related to a failed or erroneous test
type JUnitProblem struct {
	Message  string `xml:"message,attr"`
	Type     string `xml:"type,attr"`
	Contents string `xml:",chardata"`
}

var junitNameReplacer = strings.NewReplacer(" ", "_", "-", "_", ",", "_")

// WriteJUnit writes one JUnit XML file per suite file to <folder>/xUnit and
// returns the paths of the written files.
func WriteJUnit(folder string, results []*types.JobResult) ([]string, error) {
	groups := types.GroupBySuite(results)
	if len(groups) == 0 {
		return nil, nil
	}

	dir := filepath.Join(folder, "xUnit")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create junit folder: %w", err)
	}

	suites := make([]string, 0, len(groups))
	for path := range groups {
		suites = append(suites, path)
	}
	sort.Strings(suites)

	var files []string
	for _, path := range suites {
		parts := suiteNameParts(path)
		filename := filepath.Join(dir, fmt.Sprintf("TEST-%s.xml", strings.Join(parts, ".")))
		suite := BuildJUnitSuite(path, groups[path])

		data, err := xml.MarshalIndent(suite, "", "  ")
		if err != nil {
			return files, fmt.Errorf("failed to encode junit suite %s: %w", path, err)
		}
		data = append([]byte(xml.Header), data...)
		if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
			return files, fmt.Errorf("failed to write junit file: %w", err)
		}
		files = append(files, filename)
	}
	return files, nil
}

// BuildJUnitSuite converts the results of one suite file into a JUnit testsuite
func BuildJUnitSuite(suitePath string, results []*types.JobResult) *JUnitSuite {
	parts := suiteNameParts(suitePath)
	classname := strings.Join(shortenSuiteParts(parts), ".")

	suite := &JUnitSuite{Name: strings.Join(parts, ".")}
	var total float64
	for i, r := range results {
		tc := &JUnitTestCase{
			Classname: classname,
			Name:      fmt.Sprintf("%d_%s", i, junitNameReplacer.Replace(r.Name)),
			Time:      fmt.Sprintf("%.3f", r.Duration.Seconds()),
			SystemOut: systemOut(r.Documentation),
		}
		switch r.Status {
		case types.StatusError:
			tc.Error = problem(string(r.Status), r.Errors)
			suite.Errors++
		case types.StatusFailure:
			tc.Failure = problem(string(r.Status), r.Failures)
			suite.Failures++
		}
		total += r.Duration.Seconds()
		suite.TestCases = append(suite.TestCases, tc)
	}
	suite.Tests = len(results)
	suite.Time = fmt.Sprintf("%.3f", total)
	return suite
}

// suiteNameParts splits a suite path into its elements and drops the file extension
func suiteNameParts(path string) []string {
	var parts []string
	for _, p := range strings.Split(filepath.ToSlash(path), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if n := len(parts); n > 0 {
		if i := strings.LastIndex(parts[n-1], "."); i > 0 {
			parts[n-1] = parts[n-1][:i]
		}
	}
	return parts
}

// shortenSuiteParts drops everything up to and including a "testsuites" folder
func shortenSuiteParts(parts []string) []string {
	for i, p := range parts {
		if p == "testsuites" {
			return parts[i+1:]
		}
	}
	return parts
}

func problem(kind string, lines []string) *JUnitProblem {
	p := &JUnitProblem{Type: kind, Contents: strings.Join(lines, "\n")}
	for _, l := range lines {
		if !strings.HasPrefix(l, "Testname : ") {
			p.Message = strings.SplitN(l, "\n", 2)[0]
			break
		}
	}
	return p
}

func systemOut(doc types.Documentation) string {
	return fmt.Sprintf("\nDescription:\n%s\n\nGiven:\n%s\n\nWhen:\n%s\n\nThen:\n%s\n",
		doc.Description, doc.Given, doc.When, doc.Then)
}
