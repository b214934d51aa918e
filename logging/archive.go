// Package logging archives the log files tests leave behind.
package logging

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// ArchiveLogs writes every file below folder into a zip archive at dest and
// removes folder afterwards. Entry names are relative to the parent of folder,
// so a file logs/test/out.log is stored under that name when folder is logs.
// Returns the number of archived files.
func ArchiveLogs(folder, dest string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create archive directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive %s: %w", dest, err)
	}

	base := filepath.Dir(folder)
	zw := zip.NewWriter(out)
	count := 0
	walkErr := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		if err := addFile(zw, path, filepath.ToSlash(rel)); err != nil {
			return err
		}
		count++
		return nil
	})

	closeErr := zw.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if walkErr != nil {
		return count, fmt.Errorf("failed to archive %s: %w", folder, walkErr)
	}
	if closeErr != nil {
		return count, fmt.Errorf("failed to write archive %s: %w", dest, closeErr)
	}

	if err := os.RemoveAll(folder); err != nil {
		return count, fmt.Errorf("failed to remove log folder %s: %w", folder, err)
	}
	return count, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
