package runner

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0644))

	var console bytes.Buffer
	w, err := NewReportWriter(path, &console)
	require.NoError(t, err)

	require.NoError(t, w.Submit("report block\n", text.FgRed.Sprint("console block")))
	require.NoError(t, w.Report(text.Bold.Sprint("bold")+"\n"))
	require.NoError(t, w.Console("console only"))
	require.NoError(t, w.Lines(true, "line one", "line two"))
	require.NoError(t, w.Lines(false, "quiet"))
	require.NoError(t, w.Flush())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Error(t, w.Report("after close"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing\nreport block\nbold\nline one\nline two\nquiet\n", string(data))
	assert.Equal(t, text.FgRed.Sprint("console block")+"\nconsole only\nline one\nline two\n", console.String())
}

func TestReportWriterBlocksAreNotInterleaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	w, err := NewReportWriter(path, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			block := strings.Repeat(fmt.Sprintf("%02d", i), 50) + "\n"
			assert.NoError(t, w.Report(block+block))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 40)
	for i := 0; i < len(lines); i += 2 {
		assert.Equal(t, lines[i], lines[i+1])
	}
}

func TestReportWriterBadPath(t *testing.T) {
	_, err := NewReportWriter(filepath.Join(t.TempDir(), "missing", "report.txt"), nil)
	assert.Error(t, err)
}
