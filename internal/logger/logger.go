// Package logger is the pluggable log sink the scheduler writes to.
// Every job result produces at most one record, rendered as
// DONE | FAIL | WARN with the elapsed time, worker pid and job type.
package logger

import (
	"fmt"
	"io"
	"sync"
	"time"

	charm "github.com/charmbracelet/log"
)

// Logger is the sink interface. With returns a derived logger whose
// records carry the given context string (typically a distvname).
type Logger interface {
	Log(format string, args ...any)
	LogFail(format string, args ...any)
	With(context string) Logger
}

// Line renders one result record.
func Line(ok bool, elapsed time.Duration, pid int, typ, msg, annotation string) string {
	status := "DONE"
	if !ok {
		status = "FAIL"
	}
	line := fmt.Sprintf("%s %5.3f %6d %-9s %s", status, elapsed.Seconds(), pid, typ, msg)
	if annotation != "" {
		line += " (" + annotation + ")"
	}
	return line
}

// Warn renders a WARN record without timing fields.
func Warn(msg string) string {
	return "WARN " + msg
}

type charmLogger struct {
	l       *charm.Logger
	context string
}

// New builds the default logger writing to w through charmbracelet/log.
func New(w io.Writer, verbose bool) Logger {
	l := charm.NewWithOptions(w, charm.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	if verbose {
		l.SetLevel(charm.DebugLevel)
	}
	return &charmLogger{l: l}
}

func (c *charmLogger) Log(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c.context != "" {
		c.l.Info(msg, "dist", c.context)
		return
	}
	c.l.Info(msg)
}

func (c *charmLogger) LogFail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c.context != "" {
		c.l.Error(msg, "dist", c.context)
		return
	}
	c.l.Error(msg)
}

func (c *charmLogger) With(context string) Logger {
	return &charmLogger{l: c.l, context: context}
}

type discard struct{}

// Discard returns a logger that drops everything.
func Discard() Logger { return discard{} }

func (discard) Log(string, ...any)     {}
func (discard) LogFail(string, ...any) {}
func (discard) With(string) Logger     { return discard{} }

// Recorder captures records for assertions in tests.
type Recorder struct {
	mu      sync.Mutex
	context string
	parent  *Recorder

	Lines []string
	Fails []string
}

func (r *Recorder) root() *Recorder {
	if r.parent != nil {
		return r.parent.root()
	}
	return r
}

func (r *Recorder) record(fail bool, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.context != "" {
		msg = r.context + ": " + msg
	}
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	if fail {
		root.Fails = append(root.Fails, msg)
	} else {
		root.Lines = append(root.Lines, msg)
	}
}

func (r *Recorder) Log(format string, args ...any)     { r.record(false, format, args...) }
func (r *Recorder) LogFail(format string, args ...any) { r.record(true, format, args...) }

func (r *Recorder) With(context string) Logger {
	return &Recorder{context: context, parent: r.root()}
}

// All returns every record, in order of arrival within each class.
func (r *Recorder) All() []string {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	out := append([]string(nil), root.Lines...)
	return append(out, root.Fails...)
}
