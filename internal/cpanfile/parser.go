// Package cpanfile parses the cpanfile DSL into the root requirement
// set of an install run.
package cpanfile

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/my-mail-ru/cpm/internal/distribution"
	"github.com/my-mail-ru/cpm/internal/requirement"
	"github.com/my-mail-ru/cpm/internal/version"
)

// Parser parses cpanfile DSL.
type Parser struct{}

// NewParser creates a new cpanfile parser.
func NewParser() *Parser {
	return &Parser{}
}

// Result contains parsed requirements grouped by phase.
type Result struct {
	Requirements map[distribution.Phase][]requirement.Entry
}

// Flatten merges the given phases into one requirement collection.
func (r *Result) Flatten(phases ...distribution.Phase) (*requirement.Collection, error) {
	c, _ := requirement.New()
	for _, phase := range phases {
		if err := c.Add(r.Requirements[phase]...); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var (
	requiresRe = regexp.MustCompile(`^\s*requires\s+['"]([^'"]+)['"]\s*(?:,\s*(.*?))?;?\s*$`)
	onBlockRe  = regexp.MustCompile(`^\s*on\s+['"](\w+)['"]\s*=>\s*sub\s*\{`)
	closeRe    = regexp.MustCompile(`^\s*\}`)
	optionRe   = regexp.MustCompile(`(\w+)\s*=>\s*['"]([^'"]*)['"]`)
	versionRe  = regexp.MustCompile(`^['"]([^'"]+)['"]`)
)

// Parse reads a cpanfile and returns requirements by phase.
func (p *Parser) Parse(path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cpanfile: %w", err)
	}
	defer file.Close()

	result := &Result{Requirements: make(map[distribution.Phase][]requirement.Entry)}
	currentPhase := distribution.PhaseRuntime
	inBlock := false

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if matches := onBlockRe.FindStringSubmatch(line); matches != nil {
			currentPhase = parsePhase(matches[1])
			inBlock = true
			continue
		}

		if inBlock && closeRe.MatchString(line) {
			currentPhase = distribution.PhaseRuntime
			inBlock = false
			continue
		}

		if matches := requiresRe.FindStringSubmatch(line); matches != nil {
			entry := parseEntry(matches[1], matches[2])
			result.Requirements[currentPhase] = append(result.Requirements[currentPhase], entry)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cpanfile: %w", err)
	}

	return result, nil
}

// parseEntry builds one requirement from the module name and the rest of
// the requires line: an optional version literal followed by
// key => 'value' options (git, ref).
func parseEntry(module, rest string) requirement.Entry {
	entry := requirement.Entry{Package: module, Range: version.AnyRange()}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return entry
	}

	if m := versionRe.FindStringSubmatch(rest); m != nil && !strings.Contains(strings.SplitN(rest, ",", 2)[0], "=>") {
		entry.Range = version.ParseRange(m[1])
	}

	var opts requirement.Options
	hasOpts := false
	for _, m := range optionRe.FindAllStringSubmatch(rest, -1) {
		switch m[1] {
		case "git":
			opts.Git = m[2]
			hasOpts = true
		case "ref":
			opts.Ref = m[2]
			hasOpts = true
		}
	}
	if hasOpts {
		entry.Options = &opts
	}
	return entry
}

func parsePhase(s string) distribution.Phase {
	switch strings.ToLower(s) {
	case "test":
		return distribution.PhaseTest
	case "build":
		return distribution.PhaseBuild
	case "configure":
		return distribution.PhaseConfigure
	default:
		return distribution.PhaseRuntime
	}
}
