package runner

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// formatError renders an error returned by an executor: its type, its message
// and, when the error carries one, the stack trace of where it was created.
func formatError(err error) string {
	var st stackTracer
	cause := walk(err, &st)
	lines := []string{fmt.Sprintf("%T: %s", cause, err.Error())}

	if st != nil {
		lines = append(lines, "Stack trace (most recent call first):")
		for _, frame := range strings.Split(strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace())), "\n") {
			if frame = strings.TrimRight(frame, " \t"); frame != "" {
				lines = append(lines, frame)
			}
		}
	} else {
		lines = append(lines, "no stack trace available")
	}
	return strings.Join(lines, "\n")
}

// formatPanic renders a recovered panic value with the stack of the panicking goroutine
func formatPanic(r any) string {
	lines := []string{fmt.Sprintf("panic %T: %v", r, r)}
	for _, line := range strings.Split(strings.TrimSpace(string(debug.Stack())), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// walk follows the chain of err to its root cause. target receives the
// innermost error of the chain that carries a stack trace.
func walk(err error, target *stackTracer) error {
	for {
		if st, ok := err.(stackTracer); ok {
			*target = st
		}
		next := errors.Unwrap(err)
		if next == nil {
			if c, ok := err.(interface{ Cause() error }); ok {
				next = c.Cause()
			}
		}
		if next == nil {
			return err
		}
		err = next
	}
}
