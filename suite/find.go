package suite

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Document is a structurally valid suite document and the file it was read from
type Document struct {
	Path string
	Doc  *etree.Document
}

// Type returns the test type named by the document
func (d *Document) Type() string {
	return d.Doc.Root().SelectAttrValue("type", "")
}

// FindCandidates returns the absolute paths of the XML files below path. A path
// naming an XML file is returned as is. Directories whose name starts with a
// dot are not descended into. The result is sorted.
func FindCandidates(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !strings.HasSuffix(path, ".xml") {
			return nil, nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		return []string{abs}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".xml") {
			abs, err := filepath.Abs(p)
			if err != nil {
				return err
			}
			files = append(files, abs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
