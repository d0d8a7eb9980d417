package master

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/my-mail-ru/cpm/internal/distribution"
	"github.com/my-mail-ru/cpm/internal/job"
	"github.com/my-mail-ru/cpm/internal/logger"
	"github.com/my-mail-ru/cpm/internal/version"
)

func (m *Master) registerResolveResult(j *job.Job, res *job.Result) {
	m.resolveDone[j.Package] = true

	if !res.OK {
		m.failResolve[j.Package] = true
		m.log.LogFail(logger.Line(false, res.Elapsed, res.PID, "resolve", j.Package, res.Message))
		return
	}

	if strings.HasPrefix(filepath.Base(res.Distfile), "perl-5") {
		m.log.LogFail(logger.Line(false, res.Elapsed, res.PID, "resolve",
			j.Package+", cannot upgrade core module", ""))
		m.failInstall[res.Distfile] = true
		return
	}

	resolved := version.Parse(res.Version)
	if !resolved.Satisfies(j.Range) {
		// the resolver could not find a distribution inside the range;
		// dependents of the package surface this as a dependency failure
		m.failResolve[j.Package] = true
		m.log.LogFail(logger.Line(false, res.Elapsed, res.PID, "resolve",
			j.Package+" "+res.Version+" does not satisfy "+j.Range.String(), ""))
		return
	}

	if !m.opts.Reinstall {
		if ok, _ := m.isInstalled(j.Package, version.Exact(resolved), res.Rev); ok {
			m.log.Log(logger.Line(true, res.Elapsed, res.PID, "install",
				j.Package+" is up to date. ("+res.Version+")", ""))
			return
		}
	}

	source := res.Source
	if source == "" {
		source = distribution.SourceCPAN
	}
	d := distribution.New(res.Distfile, source, res.URI)
	d.Rev = res.Rev
	d.Ref = j.Ref
	d.Features = j.Features
	if len(res.Provides) > 0 {
		d.Provides = res.Provides
	} else {
		d.Provides = []distribution.Provide{{Package: j.Package, Version: resolved, Ref: j.Ref}}
	}
	d.SetResolved()
	m.addDistribution(d)
	m.log.Log(logger.Line(true, res.Elapsed, res.PID, "resolve",
		j.Package+" -> "+d.Distvname()+" ("+res.Version+")", ""))
}

func (m *Master) registerFetchResult(j *job.Job, res *job.Result) {
	d := m.distributions[j.Distfile]
	if !res.OK || d == nil {
		m.failInstall[j.Distfile] = true
		m.log.LogFail(logger.Line(false, res.Elapsed, res.PID, "fetch",
			distribution.NameFromDistfile(j.Distfile), res.Message))
		return
	}

	d.Directory = res.Directory
	if res.Meta != (distribution.Meta{}) {
		d.Meta = res.Meta
	}
	if len(res.Provides) > 0 {
		d.Provides = res.Provides
		m.indexProvides(d)
	}
	if d.Source == distribution.SourceGit {
		if res.Rev != "" {
			d.Rev = res.Rev
		}
		if res.Version != "" {
			d.Meta.Version = res.Version
		}
		d.SetDistvname(d.Meta.Distvname())
	}

	for phase, entries := range res.Requirements {
		if err := d.SetRequirements(phase, entries); err != nil {
			m.log.With(d.Distvname()).LogFail("%v", err)
			m.failInstall[d.Distfile] = true
			return
		}
	}

	annotation := ""
	if res.Prebuilt {
		// a prebuilt layout bypasses the configure stage; its provides
		// stay as fetched and are never re-derived
		d.SetConfigured()
		d.SetPrebuilt()
		annotation = "using prebuilt"
	} else {
		d.SetFetched()
	}
	d.SetRegistered(false)
	m.log.Log(logger.Line(true, res.Elapsed, res.PID, "fetch", d.Distvname(), annotation))
}

func (m *Master) registerConfigureResult(j *job.Job, res *job.Result) {
	d := m.distributions[j.Distfile]
	if !res.OK || d == nil {
		m.failInstall[j.Distfile] = true
		m.log.LogFail(logger.Line(false, res.Elapsed, res.PID, "configure",
			distribution.NameFromDistfile(j.Distfile), res.Message))
		return
	}

	d.SetConfigured()
	for phase, entries := range res.Requirements {
		if err := d.SetRequirements(phase, entries); err != nil {
			m.log.With(d.Distvname()).LogFail("%v", err)
			m.failInstall[d.Distfile] = true
			return
		}
	}
	d.StaticBuilder = res.StaticBuilder
	d.Distdata = res.Distdata
	if d.Source == distribution.SourceGit && d.Distdata != nil {
		d.SetDistvname(d.Distdata.Distvname)
	}

	if d.Distdata != nil && len(d.Distdata.Provides) > 0 {
		// post-configure distdata is the authoritative provides list
		provides := append([]distribution.Provide(nil), d.Distdata.Provides...)
		for i := range provides {
			if provides[i].Ref == "" {
				provides[i].Ref = d.Ref
			}
		}
		sort.Slice(provides, func(a, b int) bool { return provides[a].Package < provides[b].Package })
		d.Provides = provides
		m.indexProvides(d)

		names := make([]string, len(provides))
		for i, p := range provides {
			names[i] = p.Package
		}
		m.log.With(d.Distvname()).Log("Provides: %s", strings.Join(names, ", "))
	}

	d.SetRegistered(false)
	d.SetDepsRegistered(false)
	m.log.Log(logger.Line(true, res.Elapsed, res.PID, "configure", d.Distvname(), ""))
}

func (m *Master) registerInstallResult(j *job.Job, res *job.Result) {
	d := m.distributions[j.Distfile]
	if !res.OK || d == nil {
		m.failInstall[j.Distfile] = true
		m.log.LogFail(logger.Line(false, res.Elapsed, res.PID, "install",
			distribution.NameFromDistfile(j.Distfile), res.Message))
		return
	}

	d.SetInstalled()
	d.SetRegistered(false)
	m.installedCount++
	for _, p := range d.Provides {
		// a reinstalled distribution covers every package it provides
		m.reinstalled[p.Package] = true
	}
	m.log.Log(logger.Line(true, res.Elapsed, res.PID, "install", d.Distvname(), ""))
	if m.opts.ShowProgress {
		writeProgress(m.opts.ProgressWriter, m.installedCount, len(m.distributions))
	}
}
