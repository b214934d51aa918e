package runner

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestFormatError(t *testing.T) {
	t.Run("with stack trace", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", errors.New("broken pipe"))
		out := formatError(err)
		lines := strings.Split(out, "\n")
		assert.Equal(t, "*errors.fundamental: outer: broken pipe", lines[0])
		assert.Equal(t, "Stack trace (most recent call first):", lines[1])
		assert.Contains(t, out, "TestFormatError")
	})

	t.Run("wrapped by pkg errors", func(t *testing.T) {
		err := errors.Wrap(fmt.Errorf("disk full"), "failed to write")
		out := formatError(err)
		assert.True(t, strings.HasPrefix(out, "*errors.errorString: failed to write: disk full"))
		assert.Contains(t, out, "Stack trace (most recent call first):")
	})

	t.Run("without stack trace", func(t *testing.T) {
		out := formatError(fmt.Errorf("plain"))
		assert.Equal(t, "*errors.errorString: plain\nno stack trace available", out)
	})
}

func TestFormatPanic(t *testing.T) {
	out := formatPanic("kaboom")
	assert.True(t, strings.HasPrefix(out, "panic string: kaboom\n"))
	assert.Contains(t, out, "goroutine")
}

func TestSafeCall(t *testing.T) {
	assert.Equal(t, "", safeCall(func() error { return nil }))
	assert.Contains(t, safeCall(func() error { return fmt.Errorf("nope") }), "nope")
	assert.Contains(t, safeCall(func() error { panic("kaboom") }), "panic string: kaboom")
}
