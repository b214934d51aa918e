package runner

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/acarl005/stripansi"
)

// block is one unit of output. Report text goes to the report file, console
// text to the console. Either may be empty.
type block struct {
	report  string
	console string
	flushed chan struct{}
}

// ReportWriter serializes the output of concurrently running tests. A single
// goroutine owns the report file and the console, so blocks are never
// interleaved. The report file is opened in append mode and receives text with
// ANSI escape codes stripped.
type ReportWriter struct {
	file    *os.File
	console io.Writer
	queue   chan block
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewReportWriter opens the report file for appending and starts the writer
func NewReportWriter(path string, console io.Writer) (*ReportWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file %s: %w", path, err)
	}
	if console == nil {
		console = io.Discard
	}

	w := &ReportWriter{
		file:    file,
		console: console,
		queue:   make(chan block, 100),
	}
	w.wg.Add(1)
	go w.processQueue()
	return w, nil
}

// Submit queues a block. report is written verbatim to the report file;
// console is written to the console followed by a newline.
func (w *ReportWriter) Submit(report, console string) error {
	return w.enqueue(block{report: report, console: console})
}

// Report queues text for the report file only
func (w *ReportWriter) Report(report string) error {
	return w.Submit(report, "")
}

// Console queues a line for the console only
func (w *ReportWriter) Console(line string) error {
	return w.Submit("", line)
}

// Lines writes each line to the report file and, when echo is set, to the console
func (w *ReportWriter) Lines(echo bool, lines ...string) error {
	var report, console string
	for i, line := range lines {
		report += line + "\n"
		if echo {
			if i > 0 {
				console += "\n"
			}
			console += line
		}
	}
	return w.Submit(report, console)
}

// Flush blocks until every block queued before the call has been written
func (w *ReportWriter) Flush() error {
	flushed := make(chan struct{})
	if err := w.enqueue(block{flushed: flushed}); err != nil {
		return err
	}
	<-flushed
	return nil
}

func (w *ReportWriter) enqueue(b block) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return fmt.Errorf("report writer is closed")
	}
	w.queue <- b
	return nil
}

func (w *ReportWriter) processQueue() {
	defer w.wg.Done()

	for b := range w.queue {
		if b.report != "" {
			if _, err := io.WriteString(w.file, stripansi.Strip(b.report)); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing to report file: %v\n", err)
			}
		}
		if b.console != "" {
			if _, err := io.WriteString(w.console, b.console+"\n"); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing to console: %v\n", err)
			}
		}
		if b.flushed != nil {
			close(b.flushed)
		}
	}
}

// Close drains the queue and closes the report file. It is safe to call more than once.
func (w *ReportWriter) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
	return w.file.Close()
}
