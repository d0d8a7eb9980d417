package master

import (
	"strings"

	"github.com/my-mail-ru/cpm/internal/distribution"
	"github.com/my-mail-ru/cpm/internal/job"
	"github.com/my-mail-ru/cpm/internal/logger"
	"github.com/my-mail-ru/cpm/internal/requirement"
	"github.com/my-mail-ru/cpm/internal/version"
)

// calculateJobs is the advancement pass: three sweeps, top-down, so a
// distribution advanced by an earlier sweep is not re-examined later in
// the same pass. The root requirement set is re-evaluated first; job
// deduplication and the resolve-once guard keep that re-evaluation from
// looping.
func (m *Master) calculateJobs() {
	if len(m.rootReqs) > 0 && !m.rootSatisfied && !m.rootFailed {
		m.evaluateRoot()
	}

	order := append([]string(nil), m.distOrder...)

	// fetch sweep
	for _, df := range order {
		d := m.distributions[df]
		if m.failInstall[df] || !d.Resolved() || d.Fetched() || d.Registered() {
			continue
		}
		d.SetRegistered(true)
		m.addJob(&job.Job{
			Type:     job.Fetch,
			Distfile: d.Distfile,
			Source:   d.Source,
			URI:      d.URI,
			Rev:      d.Rev,
			Ref:      d.Ref,
			Features: d.Features,
		})
	}

	// configure sweep
	for _, df := range order {
		d := m.distributions[df]
		if m.failInstall[df] || !d.Fetched() || d.Configured() || d.Registered() {
			continue
		}
		entries, err := d.Requirements(distribution.PhaseConfigure)
		if err != nil {
			m.log.With(d.Distvname()).LogFail("%v", err)
			m.failInstall[df] = true
			continue
		}
		m.advance(d, entries, func() {
			m.addJob(&job.Job{
				Type:      job.Configure,
				Distfile:  d.Distfile,
				Source:    d.Source,
				URI:       d.URI,
				Rev:       d.Rev,
				Ref:       d.Ref,
				Features:  d.Features,
				Meta:      d.Meta,
				Directory: d.Directory,
				Version:   d.Meta.Version,
				Distvname: d.Distvname(),
			})
		})
	}

	// install sweep
	for _, df := range order {
		d := m.distributions[df]
		if m.failInstall[df] || !d.Configured() || d.Installed() || d.Registered() {
			continue
		}
		phases := []distribution.Phase{distribution.PhaseBuild, distribution.PhaseTest, distribution.PhaseRuntime}
		if d.Prebuilt() {
			phases = append(phases, distribution.PhaseConfigure)
		}
		entries, err := d.Requirements(phases...)
		if err != nil {
			m.log.With(d.Distvname()).LogFail("%v", err)
			m.failInstall[df] = true
			continue
		}
		m.advance(d, entries, func() {
			m.addJob(&job.Job{
				Type:          job.Install,
				Distfile:      d.Distfile,
				Source:        d.Source,
				URI:           d.URI,
				Rev:           d.Rev,
				Ref:           d.Ref,
				Features:      d.Features,
				Meta:          d.Meta,
				Directory:     d.Directory,
				Distvname:     d.Distvname(),
				Distdata:      d.Distdata,
				StaticBuilder: d.StaticBuilder,
				Prebuilt:      d.Prebuilt(),
			})
		})
	}
}

// advance applies the four-branch stage logic to one distribution:
// conflict, satisfied, unsatisfied-with-new-resolves, perl version fail.
func (m *Master) advance(d *distribution.Distribution, entries []requirement.Entry, emit func()) {
	status, conflict, need := m.isSatisfied(entries)
	lg := m.log.With(d.Distvname())
	switch {
	case conflict:
		d.SetDepsRegistered(true)
		m.failInstall[d.Distfile] = true
	case status == Satisfied:
		d.SetRegistered(true)
		emit()
	case status == PerlVersionFail:
		lg.LogFail("requires a perl version that %s does not satisfy", m.targetPerl())
		m.failInstall[d.Distfile] = true
	case len(need) > 0 && !d.DepsRegistered():
		d.SetDepsRegistered(true)
		names := make([]string, len(need))
		for i, e := range need {
			names[i] = e.String()
		}
		lg.Log("Found dependencies: %s", strings.Join(names, ", "))
		if !m.registerResolveJobs(need) {
			m.failInstall[d.Distfile] = true
		}
	}
}

// registerResolveJobs enqueues a resolve job per package. Packages that
// already failed, or whose resolve already completed without producing a
// satisfying provider, are skipped and make the result false.
func (m *Master) registerResolveJobs(entries []requirement.Entry) bool {
	ok := true
	for _, e := range entries {
		if m.failResolve[e.Package] || m.resolveDone[e.Package] {
			ok = false
			continue
		}
		if df, found := m.providerIdx[e.Package]; found && m.failInstall[df] {
			ok = false
			continue
		}
		j := &job.Job{
			Type:      job.Resolve,
			Package:   e.Package,
			Range:     e.Range,
			Reinstall: m.opts.Reinstall,
		}
		if e.Options != nil {
			j.Features = e.Options.Features
			if e.Options.Git != "" {
				j.Source = distribution.SourceGit
				j.URI = e.Options.Git
				j.Ref = e.Options.Ref
			}
		}
		m.addJob(j)
	}
	return ok
}

// IsSatisfied classifies a flat requirement list against the current
// state: the overall status, whether a source conflict was seen, and the
// entries needing fresh resolve jobs.
func (m *Master) IsSatisfied(entries []requirement.Entry) (Status, bool, []requirement.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isSatisfied(entries)
}

// isSatisfied walks a flat requirement list and classifies it. It returns
// the overall status, whether a source conflict was seen, and the entries
// that need fresh resolve jobs.
func (m *Master) isSatisfied(entries []requirement.Entry) (Status, bool, []requirement.Entry) {
	status := Satisfied
	conflict := false
	pending := false
	var need []requirement.Entry

	for _, e := range entries {
		if e.Package == "perl" {
			if !m.targetPerl().Satisfies(e.Range) {
				status = PerlVersionFail
			}
			continue
		}
		if m.coreSatisfies(e) {
			continue
		}

		ref := ""
		gitURI := ""
		if e.Options != nil {
			ref = e.Options.Ref
			gitURI = e.Options.Git
		}

		if d := m.findProvider(e.Package, e.Range, ref); d != nil {
			if !sourceMatches(gitURI, d) {
				conflict = true
				m.log.LogFail("source conflict for %s: distribution %s comes from %s", e.Package, d.Distvname(), d.Source)
				pending = true
				continue
			}
			if m.opts.Reinstall {
				if ok, _ := m.isInstalled(e.Package, e.Range, ref); !ok {
					need = append(need, e)
					continue
				}
			}
			if d.Installed() {
				continue
			}
			pending = true
			continue
		}

		if ok, _ := m.isInstalled(e.Package, e.Range, ref); ok {
			continue
		}
		need = append(need, e)
	}

	if status != PerlVersionFail && (pending || len(need) > 0) {
		status = Unsatisfied
	}
	return status, conflict, need
}

// coreSatisfies reports whether the requirement is met by a module the
// target perl ships. A hit that the running perl no longer ships warns
// once and still counts as satisfied.
func (m *Master) coreSatisfies(e requirement.Entry) bool {
	if m.opts.Global || m.opts.TargetPerl.IsZero() {
		return false
	}
	coreV, ok := m.opts.CoreList.Find(m.opts.TargetPerl, e.Package)
	if !ok || !coreV.Satisfies(e.Range) {
		return false
	}
	if _, still := m.opts.CoreList.Find(m.opts.RunningPerl, e.Package); !still {
		if !m.removedCore[e.Package] {
			m.removedCore[e.Package] = true
			m.log.Log(logger.Warn(e.Package + " used to be core in perl " + m.opts.TargetPerl.String()))
		}
	}
	return true
}

// findProvider returns the distribution that provides pkg at a version
// satisfying rng (and matching ref when given), or nil.
func (m *Master) findProvider(pkg string, rng version.Range, ref string) *distribution.Distribution {
	if df, ok := m.providerIdx[pkg]; ok {
		if d := m.distributions[df]; d != nil && d.Providing(pkg, rng, ref) {
			return d
		}
	}
	for _, df := range m.distOrder {
		if d := m.distributions[df]; d.Providing(pkg, rng, ref) {
			return d
		}
	}
	return nil
}

// sourceMatches checks the source constraint of a requirement against a
// providing distribution: both registry, or the same git URI.
func sourceMatches(gitURI string, d *distribution.Distribution) bool {
	if gitURI == "" {
		return d.Source != distribution.SourceGit
	}
	return d.Source == distribution.SourceGit && d.URI == gitURI
}

// IsInstalled asks the installed-module oracle whether pkg satisfies rng,
// caching the probe and applying the reinstall policy.
func (m *Master) IsInstalled(pkg string, rng version.Range, ref string) (bool, version.Version) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isInstalled(pkg, rng, ref)
}

func (m *Master) isInstalled(pkg string, rng version.Range, ref string) (bool, version.Version) {
	// a git-pinned requirement cannot be vouched for by a plain module
	// probe; treat it as absent so the pinned source is fetched
	if ref != "" {
		return false, version.Version{}
	}
	info := m.probe(pkg)
	if info == nil {
		return false, version.Version{}
	}
	if !info.Version.Satisfies(rng) {
		return false, info.Version
	}
	if m.opts.Reinstall && !m.reinstalled[pkg] {
		// force one reinstall per package per run
		m.reinstalled[pkg] = true
		return false, info.Version
	}
	return true, info.Version
}

func (m *Master) probe(pkg string) *InstalledInfo {
	if m.probed[pkg] {
		return m.installedCache[pkg]
	}
	m.probed[pkg] = true
	info, ok := m.opts.Probe(pkg)
	if !ok {
		info = nil
	}
	m.installedCache[pkg] = info
	return info
}
