package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// RunInfo describes the run a document tree is rendered for
type RunInfo struct {
	TypeName string
	Start    time.Time
	Duration time.Duration
}

type rstPage struct {
	docName   string
	suitePath string
	content   string
}

// WriteRST renders a reStructuredText document per test into folder together
// with treeview.rst, flatview.rst and index.rst. Document names are the base
// names of the build folders of the tests.
func WriteRST(folder string, results []*types.JobResult, info RunInfo) error {
	if len(results) == 0 {
		return nil
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("failed to create rst folder: %w", err)
	}

	sorted := append([]*types.JobResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	pages := make([]rstPage, 0, len(sorted))
	for _, r := range sorted {
		page := rstPage{
			docName:   docName(r),
			suitePath: r.SuitePath,
			content:   TestRST(r),
		}
		if err := os.WriteFile(filepath.Join(folder, page.docName+".rst"), []byte(page.content), 0644); err != nil {
			return fmt.Errorf("failed to write rst page: %w", err)
		}
		pages = append(pages, page)
	}

	files := map[string]string{
		"treeview.rst": treeView(pages, "Tree View"),
		"flatview.rst": flatView(pages, "Flat View"),
		"index.rst":    indexPage(len(pages), info),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(folder, name), []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

func docName(r *types.JobResult) string {
	if r.BuildFolder != "" {
		return filepath.Base(r.BuildFolder)
	}
	return fmt.Sprintf("test_%d", r.ID)
}

// TestRST renders the page of a single test: its name, its documentation, the
// suite file it came from and its wrapping document.
func TestRST(r *types.JobResult) string {
	lines := []string{r.Name, strings.Repeat("-", len(r.Name)), ""}
	for _, field := range types.DocumentationFields {
		if value := r.Documentation.Get(field); value != "" {
			lines = append(lines, fmt.Sprintf("**%s:**", capitalize(field)), "", value, "")
		}
	}
	lines = append(lines, fmt.Sprintf("``testsuite: %s``", filepath.Base(r.SuitePath)), "")
	lines = append(lines, ".. code-block:: xml", "")
	for _, l := range strings.Split(r.Document, "\n") {
		lines = append(lines, "   "+l)
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// tocNode is a node of a toctree. Leaves are documents, inner nodes folders.
type tocNode struct {
	name     string
	children []*tocNode
}

func (n *tocNode) child(name string) *tocNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	c := &tocNode{name: name}
	n.children = append(n.children, c)
	return c
}

func (n *tocNode) render(depth int, lines []string) []string {
	for _, c := range n.children {
		indent := strings.Repeat("  ", depth)
		if len(c.children) == 0 {
			lines = append(lines, fmt.Sprintf("%s* :doc:`%s`", indent, c.name), "")
		} else {
			lines = append(lines, fmt.Sprintf("%s* %s", indent, c.name), "")
			lines = c.render(depth+1, lines)
		}
	}
	return lines
}

// treeView groups the pages by the folders of their suite files relative to
// the deepest folder all suite files share.
func treeView(pages []rstPage, header string) string {
	dirs := make([]string, len(pages))
	for i, p := range pages {
		dirs[i] = filepath.Dir(p.suitePath)
	}
	common := commonDir(dirs)

	root := &tocNode{}
	for _, p := range pages {
		node := root
		rel, err := filepath.Rel(common, filepath.Dir(p.suitePath))
		if err == nil && rel != "." {
			for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
				node = node.child(part)
			}
		}
		node.child(p.docName)
	}

	lines := []string{header, strings.Repeat("=", len(header)), ""}
	lines = root.render(1, lines)
	return strings.Join(lines, "\n")
}

func commonDir(dirs []string) string {
	if len(dirs) == 0 {
		return ""
	}
	common := strings.Split(filepath.ToSlash(dirs[0]), "/")
	for _, d := range dirs[1:] {
		parts := strings.Split(filepath.ToSlash(d), "/")
		n := 0
		for n < len(common) && n < len(parts) && common[n] == parts[n] {
			n++
		}
		common = common[:n]
	}
	joined := strings.Join(common, "/")
	if joined == "" && strings.HasPrefix(filepath.ToSlash(dirs[0]), "/") {
		joined = "/"
	}
	return filepath.FromSlash(joined)
}

func flatView(pages []rstPage, header string) string {
	lines := []string{header, strings.Repeat("=", len(header)), ""}
	lines = append(lines, ".. toctree::", "   :maxdepth: 2", "")
	for _, p := range pages {
		lines = append(lines, "   "+p.docName)
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func indexPage(tests int, info RunInfo) string {
	title := fmt.Sprintf("Testrun: %s", info.TypeName)
	lines := []string{title, strings.Repeat("=", len(title)), "", "**Summary:**", ""}
	lines = append(lines,
		fmt.Sprintf("* Number of tests: %d", tests),
		fmt.Sprintf("* Build time: %s", FormatTimestamp(info.Start)),
		fmt.Sprintf("* Build duration: %s", FormatDuration(info.Duration)),
		"",
	)
	lines = append(lines, ".. toctree::", "    :maxdepth: 1", "", "    treeview", "    flatview", "")
	return strings.Join(lines, "\n")
}
