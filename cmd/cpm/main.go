package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/my-mail-ru/cpm/internal/corelist"
	"github.com/my-mail-ru/cpm/internal/cpanfile"
	"github.com/my-mail-ru/cpm/internal/distribution"
	"github.com/my-mail-ru/cpm/internal/fetch"
	"github.com/my-mail-ru/cpm/internal/index"
	"github.com/my-mail-ru/cpm/internal/logger"
	"github.com/my-mail-ru/cpm/internal/master"
	"github.com/my-mail-ru/cpm/internal/probe"
	"github.com/my-mail-ru/cpm/internal/report"
	"github.com/my-mail-ru/cpm/internal/requirement"
	"github.com/my-mail-ru/cpm/internal/resolver"
	"github.com/my-mail-ru/cpm/internal/version"
	"github.com/my-mail-ru/cpm/internal/worker"
)

var (
	cpanfilePath string
	workers      int
	mirror       string
	localMirror  string
	targetPerl   string
	global       bool
	reinstall    bool
	showProgress bool
	verbose      bool
	searchINC    []string
	coreINC      []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cpm",
		Short: "A fast parallel CPAN module installer",
	}

	installCmd := &cobra.Command{
		Use:   "install [module...]",
		Short: "Install modules and their dependencies in parallel",
		RunE:  runInstall,
	}

	installCmd.Flags().StringVarP(&cpanfilePath, "cpanfile", "f", "./cpanfile", "cpanfile path used when no modules are given")
	installCmd.Flags().IntVarP(&workers, "workers", "w", 5, "Number of parallel workers")
	installCmd.Flags().StringVarP(&mirror, "mirror", "m", "https://cpan.metacpan.org", "CPAN mirror URL")
	installCmd.Flags().StringVar(&localMirror, "local-mirror", "", "Directory of local distribution tarballs")
	installCmd.Flags().StringVar(&targetPerl, "target-perl", "", "Consult the core module list of this perl release")
	installCmd.Flags().BoolVarP(&global, "global", "g", false, "Disable core list side checks")
	installCmd.Flags().BoolVar(&reinstall, "reinstall", false, "Reinstall modules even when satisfied")
	installCmd.Flags().BoolVar(&showProgress, "show-progress", false, "Show n/total progress after every install")
	installCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	installCmd.Flags().StringSliceVar(&searchINC, "search-inc", nil, "Directories to probe for installed modules")
	installCmd.Flags().StringSliceVar(&coreINC, "core-inc", nil, "Directories whose contents count as runtime core")

	rootCmd.AddCommand(installCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInstall(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	entries, err := rootRequirements(args)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no modules to install")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("getting home directory: %w", err)
	}
	cacheDir := filepath.Join(homeDir, ".cpm", "cache")
	workDir := filepath.Join(homeDir, ".cpm", "work")

	cpanIdx := index.NewCPAN(mirror, cacheDir)
	if err := cpanIdx.Load(); err != nil {
		return fmt.Errorf("loading CPAN index: %w", err)
	}

	var localIdx *index.Local
	if localMirror != "" {
		localIdx = index.NewLocal(localMirror)
		if err := localIdx.Load(); err != nil {
			return fmt.Errorf("loading local mirror: %w", err)
		}
	}

	oracle := probe.New(searchINC, coreINC)

	opts := master.Options{
		RunningPerl:  runningPerl(),
		Global:       global,
		Reinstall:    reinstall,
		ShowProgress: showProgress,
		Logger:       logger.New(os.Stderr, verbose),
		CoreList:     corelist.Default,
		Probe: func(pkg string) (*master.InstalledInfo, bool) {
			info, ok := oracle.Probe(pkg)
			if !ok {
				return nil, false
			}
			return &master.InstalledInfo{
				Package:  info.Package,
				Version:  info.Version,
				Filename: info.Filename,
			}, true
		},
	}
	if showProgress {
		opts.ProgressWriter = os.Stderr
	}
	if targetPerl != "" {
		opts.TargetPerl = version.Parse(targetPerl)
	}

	m := master.New(opts)
	m.AddRequirements(entries)

	exec := worker.NewCPANExecutor(
		resolver.New(cpanIdx, localIdx),
		fetch.New(filepath.Join(cacheDir, "authors"), workDir),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worker.NewPool(m, exec, workers).Run(ctx); err != nil {
		return err
	}

	if failure := m.Fail(); failure != nil {
		if err := report.NewEmitter(os.Stderr).Emit(failure); err != nil {
			return err
		}
		return fmt.Errorf("%d distribution(s) failed to install", len(failure.Install)+len(failure.Resolve))
	}

	fmt.Printf("Installed %d distribution(s)\n", m.InstalledCount())
	return nil
}

// rootRequirements builds the root requirement set from the command line
// modules, or from the cpanfile when none are given. A module argument
// may carry a range as Module@1.0 or "Module~>= 1.0, < 2.0".
func rootRequirements(args []string) ([]requirement.Entry, error) {
	if len(args) == 0 {
		result, err := cpanfile.NewParser().Parse(cpanfilePath)
		if err != nil {
			return nil, err
		}
		flat, err := result.Flatten(
			distribution.PhaseRuntime, distribution.PhaseBuild, distribution.PhaseTest,
		)
		if err != nil {
			return nil, err
		}
		return flat.Entries(), nil
	}

	var entries []requirement.Entry
	for _, arg := range args {
		entries = append(entries, parseModuleArg(arg))
	}
	return entries, nil
}

// runningPerl asks the perl on PATH for its version, falling back to a
// recent release when none is available.
func runningPerl() version.Version {
	out, err := exec.Command("perl", "-e", "print substr($^V, 1)").Output()
	if err == nil && len(out) > 0 {
		return version.Parse(string(out))
	}
	return version.Parse("5.38.0")
}

func parseModuleArg(arg string) requirement.Entry {
	for i, c := range arg {
		switch c {
		case '@':
			return requirement.Entry{
				Package: arg[:i],
				Range:   version.Exact(version.Parse(arg[i+1:])),
			}
		case '~':
			return requirement.Entry{
				Package: arg[:i],
				Range:   version.ParseRange(arg[i+1:]),
			}
		}
	}
	return requirement.Entry{Package: arg, Range: version.AnyRange()}
}
