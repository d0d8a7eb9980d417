package master

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/my-mail-ru/cpm/internal/cycle"
	"github.com/my-mail-ru/cpm/internal/distribution"
)

// Fail computes the terminal verdict. It returns nil when every
// distribution installed and nothing failed; otherwise a structured
// report of resolve failures, install failures and dependency cycles.
func (m *Master) Fail() *FailureReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	var resolve []string
	for pkg := range m.failResolve {
		resolve = append(resolve, pkg)
	}
	sort.Strings(resolve)

	installSet := make(map[string]bool)
	for df := range m.failInstall {
		installSet[m.distvnameFor(df)] = true
	}

	// distributions that neither installed nor failed outright stalled on
	// their dependencies; hand them to the cycle detector
	detector := cycle.New()
	var survivors []*distribution.Distribution
	for _, df := range m.distOrder {
		d := m.distributions[df]
		if d.Installed() || m.failInstall[df] {
			continue
		}
		survivors = append(survivors, d)
		provides := make([]string, len(d.Provides))
		for i, p := range d.Provides {
			provides[i] = p.Package
		}
		var requires []string
		entries, err := d.Requirements(
			distribution.PhaseConfigure, distribution.PhaseBuild,
			distribution.PhaseTest, distribution.PhaseRuntime,
		)
		if err == nil {
			for _, e := range entries {
				requires = append(requires, e.Package)
			}
		}
		detector.Add(df, d.Distvname(), provides, requires)
	}
	detector.Finalize()
	cycles := detector.Detect()

	loggedCycle := make(map[string]bool)
	for _, d := range survivors {
		installSet[d.Distvname()] = true
		if path, ok := cycles[d.Distfile]; ok {
			line := strings.Join(path, " -> ")
			if !loggedCycle[line] {
				loggedCycle[line] = true
				m.log.LogFail("Detected circular dependencies %s", line)
			}
		} else {
			m.log.LogFail("Failed to install distribution %s, because of installing some dependencies failed", d.Distvname())
		}
	}

	if len(m.rootReqs) > 0 && !m.rootSatisfied && !m.rootFailed {
		if status, _, _ := m.isSatisfied(m.rootReqs); status == Satisfied {
			m.rootSatisfied = true
		}
	}
	rootUnsatisfied := len(m.rootReqs) > 0 && !m.rootSatisfied
	if len(resolve) == 0 && len(installSet) == 0 && !m.rootFailed && !rootUnsatisfied {
		return nil
	}

	install := make([]string, 0, len(installSet))
	for name := range installSet {
		install = append(install, name)
	}
	sort.Strings(install)

	return &FailureReport{Resolve: resolve, Install: install, Cycles: cycles}
}

func (m *Master) distvnameFor(distfile string) string {
	if d, ok := m.distributions[distfile]; ok {
		return d.Distvname()
	}
	return distribution.NameFromDistfile(distfile)
}

func writeProgress(w io.Writer, n, total int) {
	fmt.Fprintf(w, "%d/%d\n", n, total)
}
