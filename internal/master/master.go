// Package master is the scheduler of the install pipeline. It owns every
// distribution under consideration, hands out resolve/fetch/configure/
// install jobs to workers, ingests their results and decides when the run
// is complete. It performs no I/O itself: workers and the installed-module
// oracle are injected.
package master

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/my-mail-ru/cpm/internal/corelist"
	"github.com/my-mail-ru/cpm/internal/distribution"
	"github.com/my-mail-ru/cpm/internal/job"
	"github.com/my-mail-ru/cpm/internal/logger"
	"github.com/my-mail-ru/cpm/internal/requirement"
	"github.com/my-mail-ru/cpm/internal/version"
)

// InstalledInfo describes a module found in the target environment.
type InstalledInfo struct {
	Package  string
	Version  version.Version
	Filename string
}

// ProbeFunc is the installed-module oracle. It is called from the
// scheduler only and its answers are cached for the whole run.
type ProbeFunc func(pkg string) (*InstalledInfo, bool)

// Status is the outcome of a satisfaction check.
type Status int

const (
	Unsatisfied Status = iota
	Satisfied
	PerlVersionFail
)

func (s Status) String() string {
	switch s {
	case Satisfied:
		return "satisfied"
	case PerlVersionFail:
		return "perl version fail"
	}
	return "unsatisfied"
}

// Options configures a Master.
type Options struct {
	// TargetPerl enables core-list consultation for that release.
	TargetPerl version.Version
	// RunningPerl is the environment's own perl version.
	RunningPerl version.Version
	// Global disables core-list side checks.
	Global bool
	// Reinstall forces re-processing of satisfied packages, at most once
	// per package per run.
	Reinstall bool
	// ShowProgress emits an n/total line after every install.
	ShowProgress   bool
	ProgressWriter io.Writer

	Logger   logger.Logger
	CoreList corelist.Table
	Probe    ProbeFunc
}

// FailureReport is the terminal verdict of a failed run.
type FailureReport struct {
	// Resolve lists packages the resolver permanently failed on.
	Resolve []string
	// Install lists distributions that failed or never installed.
	Install []string
	// Cycles maps distfiles on a circular dependency to the cycle path.
	Cycles map[string][]string
}

// Master is the single-threaded cooperative coordinator. The two worker
// boundary operations, GetJob and RegisterResult, serialize against all
// internal state through one mutex.
type Master struct {
	mu   sync.Mutex
	opts Options
	log  logger.Logger

	jobs          map[string]*job.Job
	distributions map[string]*distribution.Distribution
	distOrder     []string
	providerIdx   map[string]string // package -> distfile

	rootReqs      []requirement.Entry
	rootSatisfied bool
	rootFailed    bool

	failResolve    map[string]bool
	failInstall    map[string]bool
	resolveDone    map[string]bool
	installedCache map[string]*InstalledInfo
	probed         map[string]bool
	removedCore    map[string]bool
	reinstalled    map[string]bool
	installedCount int
}

// New creates a Master with the given options.
func New(opts Options) *Master {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.CoreList == nil {
		opts.CoreList = corelist.Default
	}
	if opts.Probe == nil {
		opts.Probe = func(string) (*InstalledInfo, bool) { return nil, false }
	}
	if opts.RunningPerl.IsZero() {
		opts.RunningPerl = version.Parse("5.38.0")
	}
	if opts.ProgressWriter == nil {
		opts.ProgressWriter = io.Discard
	}
	return &Master{
		opts:           opts,
		log:            opts.Logger,
		jobs:           make(map[string]*job.Job),
		distributions:  make(map[string]*distribution.Distribution),
		providerIdx:    make(map[string]string),
		failResolve:    make(map[string]bool),
		failInstall:    make(map[string]bool),
		resolveDone:    make(map[string]bool),
		installedCache: make(map[string]*InstalledInfo),
		probed:         make(map[string]bool),
		removedCore:    make(map[string]bool),
		reinstalled:    make(map[string]bool),
	}
}

// AddRequirements installs the root requirement set and enqueues resolve
// jobs for whatever the environment does not already satisfy.
func (m *Master) AddRequirements(entries []requirement.Entry) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rootReqs = append(m.rootReqs, entries...)
	return m.evaluateRoot()
}

func (m *Master) evaluateRoot() Status {
	status, conflict, need := m.isSatisfied(m.rootReqs)
	switch {
	case conflict:
		m.rootFailed = true
	case status == PerlVersionFail:
		m.log.LogFail("perl version requirement cannot be satisfied by %s", m.targetPerl())
		m.rootFailed = true
	case status == Satisfied:
		m.rootSatisfied = true
	default:
		if len(need) > 0 {
			m.registerResolveJobs(need)
		}
	}
	return status
}

// AddJob enqueues the job unless an equal one is already pending.
func (m *Master) AddJob(j *job.Job) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addJob(j)
}

func (m *Master) addJob(j *job.Job) bool {
	if have, ok := m.jobs[j.UID()]; ok && have.Equal(j) {
		return false
	}
	m.jobs[j.UID()] = j
	return true
}

// GetJob returns every job not yet assigned to a worker, marking them
// assigned. When none is ready it advances the pipeline once and tries
// again; an empty answer means nothing to do right now.
func (m *Master) GetJob() []*job.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	ready := m.readyJobs()
	if len(ready) == 0 {
		m.calculateJobs()
		ready = m.readyJobs()
	}
	for _, j := range ready {
		j.InCharge = true
	}
	return ready
}

func (m *Master) readyJobs() []*job.Job {
	var ready []*job.Job
	for _, j := range m.jobs {
		if !j.InCharge {
			ready = append(ready, j)
		}
	}
	sort.Slice(ready, func(i, k int) bool { return ready[i].UID() < ready[k].UID() })
	return ready
}

// PendingJobs reports how many jobs are pending or in flight.
func (m *Master) PendingJobs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// InstalledCount reports how many distributions were installed.
func (m *Master) InstalledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installedCount
}

// RegisterResult integrates one worker result, advances the affected
// distribution and retires the job. It never blocks on worker progress.
func (m *Master) RegisterResult(res *job.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[res.UID]
	if !ok {
		return fmt.Errorf("register result: unknown job %s", res.UID)
	}
	switch j.Type {
	case job.Resolve:
		m.registerResolveResult(j, res)
	case job.Fetch:
		m.registerFetchResult(j, res)
	case job.Configure:
		m.registerConfigureResult(j, res)
	case job.Install:
		m.registerInstallResult(j, res)
	default:
		delete(m.jobs, res.UID)
		return fmt.Errorf("register result: unknown job type %q", j.Type)
	}
	delete(m.jobs, res.UID)
	return nil
}

// AddDistribution inserts a distribution, or merges its provides into the
// already-known record with the same distfile. It reports whether the
// distribution was new.
func (m *Master) AddDistribution(d *distribution.Distribution) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addDistribution(d)
}

func (m *Master) addDistribution(d *distribution.Distribution) bool {
	if have, ok := m.distributions[d.Distfile]; ok {
		have.MergeProvides(d.Provides)
		m.indexProvides(have)
		return false
	}
	m.distributions[d.Distfile] = d
	m.distOrder = append(m.distOrder, d.Distfile)
	m.indexProvides(d)
	return true
}

func (m *Master) indexProvides(d *distribution.Distribution) {
	for _, p := range d.Provides {
		if _, ok := m.providerIdx[p.Package]; !ok {
			m.providerIdx[p.Package] = d.Distfile
		}
	}
}

func (m *Master) targetPerl() version.Version {
	if !m.opts.TargetPerl.IsZero() {
		return m.opts.TargetPerl
	}
	return m.opts.RunningPerl
}
