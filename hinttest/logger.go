// Copyright © 2024 The ELPS authors

package hinttest

import (
	"bytes"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

// Logger forwards complete lines written to it to t.Log, so output shows up
// next to the test that produced it.
type Logger struct {
	t   testing.TB
	buf []byte
}

var _ io.Writer = (*Logger)(nil)

// NewLogger returns a writer logging to t.
func NewLogger(t testing.TB) *Logger {
	return &Logger{t: t}
}

func (l *Logger) Write(b []byte) (int, error) {
	l.buf = append(l.buf, b...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			return len(b), nil
		}
		l.t.Log(string(l.buf[:i]))
		l.buf = l.buf[i+1:]
	}
}

// Flush logs a trailing partial line.
func (l *Logger) Flush() {
	if len(l.buf) == 0 {
		return
	}
	l.t.Log(string(l.buf))
	l.buf = nil
}

// NewTestLogger returns a debug level logger writing to t. Pending output is
// flushed when the test ends.
func NewTestLogger(t testing.TB) *log.Logger {
	w := NewLogger(t)
	t.Cleanup(w.Flush)
	return log.NewWithOptions(w, log.Options{
		Level:  log.DebugLevel,
		Prefix: "hinttest",
	})
}
