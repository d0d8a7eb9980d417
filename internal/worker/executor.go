package worker

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/my-mail-ru/cpm/internal/distribution"
	"github.com/my-mail-ru/cpm/internal/fetch"
	"github.com/my-mail-ru/cpm/internal/job"
	"github.com/my-mail-ru/cpm/internal/meta"
	"github.com/my-mail-ru/cpm/internal/resolver"
)

// CPANExecutor performs jobs against real backends: the resolver's
// indexes, the fetcher's cache and the perl toolchain.
type CPANExecutor struct {
	resolver *resolver.Resolver
	fetcher  *fetch.Fetcher
}

// NewCPANExecutor wires an executor from its backends.
func NewCPANExecutor(r *resolver.Resolver, f *fetch.Fetcher) *CPANExecutor {
	return &CPANExecutor{resolver: r, fetcher: f}
}

// Execute runs one job and reports the outcome. Failures land in
// Result.OK and Result.Message; the scheduler treats them as sticky.
func (e *CPANExecutor) Execute(ctx context.Context, j *job.Job) *job.Result {
	start := time.Now()
	res := &job.Result{
		UID:  j.UID(),
		Type: j.Type,
		OK:   true,
		PID:  os.Getpid(),
	}
	defer func() { res.Elapsed = time.Since(start) }()

	var err error
	switch j.Type {
	case job.Resolve:
		err = e.executeResolve(j, res)
	case job.Fetch:
		err = e.executeFetch(j, res)
	case job.Configure:
		err = e.executeConfigure(ctx, j, res)
	case job.Install:
		err = e.executeInstall(ctx, j, res)
	}
	if err != nil {
		res.OK = false
		res.Message = err.Error()
	}
	return res
}

func (e *CPANExecutor) executeResolve(j *job.Job, res *job.Result) error {
	res.Package = j.Package

	if j.Source == distribution.SourceGit {
		resolution, err := e.resolver.ResolveGit(j.URI, j.Ref)
		if err != nil {
			return err
		}
		res.Distfile = resolution.Distfile
		res.Source = resolution.Source
		res.URI = resolution.URI
		res.Rev = resolution.Rev
		return nil
	}

	resolution, err := e.resolver.Resolve(j.Package, j.Range)
	if err != nil {
		return err
	}
	res.Distfile = resolution.Distfile
	res.Source = resolution.Source
	res.URI = resolution.URI
	res.Version = resolution.Version
	return nil
}

func (e *CPANExecutor) executeFetch(j *job.Job, res *job.Result) error {
	var dir string
	var err error
	switch j.Source {
	case distribution.SourceGit:
		checkout := j.Ref
		if j.Rev != "" {
			// check out the commit pinned at resolve time
			checkout = j.Rev
		}
		dir, res.Rev, err = e.fetcher.Git(j.URI, checkout)
	case distribution.SourceLocal:
		dir, err = e.fetcher.LocalFile(j.URI)
	default:
		dir, _, err = e.fetcher.Tarball(j.URI, j.Distfile)
	}
	if err != nil {
		return err
	}
	res.Directory = dir

	// the prebuilt layout of a previously configured checkout bypasses
	// the configure stage entirely
	if _, statErr := os.Stat(filepath.Join(dir, "blib")); statErr == nil {
		res.Prebuilt = true
	}

	f, err := meta.Load(dir)
	if err != nil {
		// distributions without META still configure; prerequisites
		// surface from MYMETA afterwards
		return nil
	}
	res.Meta = f.Meta()
	res.Provides = f.ProvideList()
	res.Requirements = f.Requirements()
	if j.Source == distribution.SourceGit {
		res.Version = string(f.Version)
	}
	return nil
}

func (e *CPANExecutor) executeConfigure(ctx context.Context, j *job.Job, res *job.Result) error {
	script := "Makefile.PL"
	if _, err := os.Stat(filepath.Join(j.Directory, script)); err != nil {
		script = "Build.PL"
	}
	if err := runPerl(ctx, j.Directory, script); err != nil {
		return err
	}

	f, err := meta.Load(j.Directory)
	if err != nil {
		return err
	}
	res.Requirements = f.Requirements()
	res.Distdata = &distribution.Distdata{
		Distvname: f.Meta().Distvname(),
		Pathname:  j.Distfile,
		Version:   string(f.Version),
		Provides:  f.ProvideList(),
	}
	res.StaticBuilder = script == "Build.PL"
	return nil
}

func (e *CPANExecutor) executeInstall(ctx context.Context, j *job.Job, res *job.Result) error {
	if j.StaticBuilder {
		if !j.Prebuilt {
			if err := runCommand(ctx, j.Directory, "./Build"); err != nil {
				return err
			}
		}
		return runCommand(ctx, j.Directory, "./Build", "install")
	}
	if !j.Prebuilt {
		if err := runCommand(ctx, j.Directory, "make"); err != nil {
			return err
		}
	}
	return runCommand(ctx, j.Directory, "make", "install")
}

func runPerl(ctx context.Context, dir, script string) error {
	return runCommand(ctx, dir, "perl", script)
}

func runCommand(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}
