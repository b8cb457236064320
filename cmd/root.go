// Package cmd wires cctr's command-line surface: a single root command
// that discovers and runs a test corpus, plus flags for filtering,
// updating, and verbosity.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/andreasjansson/cctr/internal/config"
	"github.com/andreasjansson/cctr/internal/corpus"
	"github.com/andreasjansson/cctr/internal/discovery"
	"github.com/andreasjansson/cctr/internal/reporter"
	"github.com/andreasjansson/cctr/internal/runner"
	"github.com/andreasjansson/cctr/internal/scheduler"
	"github.com/andreasjansson/cctr/internal/shellexec"
	"github.com/andreasjansson/cctr/models"
)

var (
	flagPattern    string
	flagUpdate     bool
	flagList       bool
	flagVerbose    int
	flagVeryVerbose bool
	flagSequential bool
	flagNoColor    bool
	flagShell      string
	flagConfigFile string
)

var rootCmd = &cobra.Command{
	Use:   "cctr [root]",
	Short: "Run CLI-output corpus tests against typed pattern expectations",
	Long: `cctr discovers a corpus of delimiter-fenced test files, runs each
test's command through a shell, and matches the captured output against a
pattern of literal text and typed holes, optionally checking 'where'
constraints over the captured bindings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRoot,
}

func init() {
	rootCmd.Flags().StringVarP(&flagPattern, "pattern", "p", "", "substring filter on 'suite/file: test-name'")
	rootCmd.Flags().BoolVarP(&flagUpdate, "update", "u", false, "rewrite failing hole-free expectations in place")
	rootCmd.Flags().BoolVarP(&flagList, "list", "l", false, "list discovered tests without running them")
	rootCmd.Flags().CountVarP(&flagVerbose, "verbose", "v", "one line per test with timing (-vv also streams child output live)")
	rootCmd.Flags().BoolVar(&flagVeryVerbose, "vv", false, "also stream child output live")
	rootCmd.Flags().BoolVarP(&flagSequential, "sequential", "s", false, "run suites one at a time")
	rootCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	rootCmd.Flags().StringVar(&flagShell, "shell", "", "override the default shell (bash, sh, powershell, cmd)")
	rootCmd.Flags().StringVar(&flagConfigFile, "config", ".cctr.toml", "path to an optional TOML config file")
}

// Execute runs the root command and returns the process exit code (0, 1 or
// 2) for main.go to pass to os.Exit.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if ee, ok := err.(exitCodeError); ok {
			return ee.code
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return exitCode
}

// exitCode is set by runRoot before returning, since cobra's RunE only
// distinguishes "error" from "no error", not the three-way exit taxonomy
// spec.md §6 requires (0/1/2).
var exitCode int

type exitCodeError struct {
	code int
	err  error
}

func (e exitCodeError) Error() string { return e.err.Error() }

func runRoot(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	flagsSet := collectSetFlags(cmd)
	flagsSet["root"] = len(args) == 1

	cfg, err := config.Load(flagConfigFile, config.Config{
		Root: root, Pattern: flagPattern, Update: flagUpdate, ListOnly: flagList,
		Verbose: verboseLevel(), Sequential: flagSequential, NoColor: flagNoColor, Shell: flagShell,
	}, flagsSet)
	if err != nil {
		exitCode = 2
		return err
	}

	suites, err := discovery.Discover(cfg.Root)
	if err != nil {
		logger.Errorf("discovery failed: %v", err)
		exitCode = 2
		return err
	}

	if cfg.ListOnly {
		listTests(suites, cfg.Pattern)
		exitCode = 0
		return nil
	}

	rep := reporter.New(os.Stdout, cfg.Verbose, cfg.NoColor)
	var shell shellexec.Shell
	if cfg.Shell != "" {
		shell = shellexec.Shell(cfg.Shell)
	}

	var stream io.Writer
	if cfg.Verbose >= 2 {
		stream = os.Stdout
	}

	anyFailed := false
	ctx := context.Background()
	runErr := scheduler.Schedule(ctx, suites, func(ctx context.Context, s discovery.Suite) (models.SuiteResult, error) {
		return runner.Run(ctx, s, runner.Options{
			Shell: shell, Update: cfg.Update, Verbose: cfg.Verbose > 0,
			Pattern: cfg.Pattern, Stream: stream, OnTestDone: rep.Test,
		})
	}, scheduler.Options{Sequential: cfg.Sequential}, func(res models.SuiteResult) {
		rep.Suite(res)
		_, failed, _ := res.Counts()
		if failed > 0 || !res.SetupOK {
			anyFailed = true
		}
	})

	if runErr != nil {
		exitCode = 2
		return runErr
	}
	if anyFailed {
		exitCode = 1
		return nil
	}
	exitCode = 0
	return nil
}

// collectSetFlags maps cctr's flag names onto config.Load's override keys,
// so only flags the user actually passed take precedence over a .cctr.toml
// or CCTR_* environment value.
func collectSetFlags(cmd *cobra.Command) map[string]bool {
	names := map[string]string{
		"pattern": "pattern", "update": "update", "list": "list",
		"verbose": "verbose", "vv": "verbose", "sequential": "sequential",
		"no-color": "no_color", "shell": "shell",
	}
	set := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := names[f.Name]; ok {
			set[key] = true
		}
	})
	return set
}

func verboseLevel() int {
	if flagVeryVerbose || flagVerbose >= 2 {
		return 2
	}
	return flagVerbose
}

// listTests prints every discovered test's "suite/file: test-name" label,
// honoring the -p filter at test granularity (spec.md §6).
func listTests(suites []discovery.Suite, pattern string) {
	for _, s := range suites {
		for _, f := range s.Files {
			tc, err := corpus.ParseFile(f)
			if err != nil {
				continue
			}
			for _, t := range tc.Tests {
				label := fmt.Sprintf("%s/%s: %s", s.Name, filepath.Base(f), t.Name)
				if pattern == "" || discovery.MatchFilter(label, pattern) {
					fmt.Println(label)
				}
			}
		}
	}
}
