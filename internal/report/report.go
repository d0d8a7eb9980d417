// Package report renders the terminal failure report of a run.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/my-mail-ru/cpm/internal/master"
)

// Emitter writes failure reports to a writer.
type Emitter struct {
	w io.Writer
}

// NewEmitter creates a report emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes the report. A nil report writes nothing.
func (e *Emitter) Emit(r *master.FailureReport) error {
	if r == nil {
		return nil
	}

	if len(r.Resolve) > 0 {
		if err := e.section("Failed to resolve", r.Resolve); err != nil {
			return err
		}
	}
	if len(r.Install) > 0 {
		if err := e.section("Failed to install", r.Install); err != nil {
			return err
		}
	}
	if len(r.Cycles) > 0 {
		if _, err := fmt.Fprint(e.w, "Circular dependencies:\n"); err != nil {
			return err
		}
		seen := make(map[string]bool)
		var lines []string
		for _, path := range r.Cycles {
			line := strings.Join(path, " -> ")
			if !seen[line] {
				seen[line] = true
				lines = append(lines, line)
			}
		}
		sort.Strings(lines)
		for _, line := range lines {
			if _, err := fmt.Fprintf(e.w, "  %s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Emitter) section(title string, items []string) error {
	if _, err := fmt.Fprintf(e.w, "%s:\n", title); err != nil {
		return err
	}
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	for _, item := range sorted {
		if _, err := fmt.Fprintf(e.w, "  %s\n", item); err != nil {
			return err
		}
	}
	return nil
}
