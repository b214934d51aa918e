package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

var (
	// removeRetryDelay is the pause before a failed build folder removal is retried
	removeRetryDelay = time.Second
	removeAll        = os.RemoveAll

	whitespace = regexp.MustCompile(`\s`)

	// defaultFolders serves jobs that are not given an allocator of their own
	defaultFolders = NewFolderAllocator()
)

// FolderAllocator hands out build folders for one run. A name is issued at
// most once, even after the folder was removed again.
type FolderAllocator struct {
	mu     sync.Mutex
	issued map[string]struct{}
}

// NewFolderAllocator returns an allocator with no folders issued
func NewFolderAllocator() *FolderAllocator {
	return &FolderAllocator{issued: make(map[string]struct{})}
}

// MakeFolder creates a fresh folder named candidate, or candidate_1,
// candidate_2, ... when that name was already issued, exists on disk or has a
// log folder of the same base name below logRoot. logRoot may be empty.
func (a *FolderAllocator) MakeFolder(candidate, logRoot string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := candidate
	for i := 1; ; i++ {
		taken, err := a.taken(name, logRoot)
		if err != nil {
			return "", err
		}
		if !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", candidate, i)
	}
	if err := os.Mkdir(name, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	a.issued[name] = struct{}{}
	return name, nil
}

func (a *FolderAllocator) taken(name, logRoot string) (bool, error) {
	if _, ok := a.issued[name]; ok {
		return true, nil
	}
	paths := []string{name}
	if logRoot != "" {
		paths = append(paths, filepath.Join(logRoot, filepath.Base(name)))
	}
	for _, p := range paths {
		if _, err := os.Lstat(p); err == nil {
			return true, nil
		} else if !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to stat %s: %w", p, err)
		}
	}
	return false, nil
}

// BuildFolderName returns the candidate build folder of a test:
// <root>/<suite file name without extension>___<test name, whitespace replaced by _>
func BuildFolderName(root, suitePath, testName string) string {
	suite := filepath.Base(suitePath)
	if i := strings.LastIndex(suite, "."); i >= 0 {
		suite = suite[:i]
	}
	return filepath.Join(root, fmt.Sprintf("%s___%s", suite, whitespace.ReplaceAllString(testName, "_")))
}

// ensureFolder creates folder if it is missing and returns its absolute path
func ensureFolder(folder string) (string, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", abs, err)
	}
	return abs, nil
}

// removeBuildFolder removes a build folder, retrying once after a pause
func removeBuildFolder(logger log.Logger, folder string) error {
	err := removeAll(folder)
	if err == nil {
		return nil
	}
	logger.Warn("Unable to remove build folder", "folder", folder, "err", err)
	time.Sleep(removeRetryDelay)
	if err := removeAll(folder); err != nil {
		return fmt.Errorf("unable to remove build folder: %w", err)
	}
	return nil
}
