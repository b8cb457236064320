// Package runner executes one discovered suite: setup, regular tests in
// file order, teardown, against a fresh workspace.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/andreasjansson/cctr/internal/corpus"
	"github.com/andreasjansson/cctr/internal/discovery"
	"github.com/andreasjansson/cctr/internal/expr"
	"github.com/andreasjansson/cctr/internal/pattern"
	"github.com/andreasjansson/cctr/internal/shellexec"
	"github.com/andreasjansson/cctr/internal/updater"
	"github.com/andreasjansson/cctr/internal/workspace"
	"github.com/andreasjansson/cctr/models"
)

// Options configures a suite run.
type Options struct {
	Shell      shellexec.Shell
	Platform   string // runtime.GOOS by default, overridable for tests
	Update     bool
	Fs         afero.Fs
	Verbose    bool
	Pattern    string // -p substring/glob filter on "suite/file: test-name"
	Stream     io.Writer // non-nil under -vv: tee child stdout/stderr live
	OnTestDone func(models.TestResult)
}

// Run executes suite and returns its aggregated result. ctx is checked at
// suite and test boundaries for cooperative cancellation, and cancellation
// also kills the currently-running child process group.
func Run(ctx context.Context, suite discovery.Suite, opts Options) (models.SuiteResult, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	platform := opts.Platform
	if platform == "" {
		platform = runtime.GOOS
		opts.Platform = platform
	}
	shell := opts.Shell
	if shell == "" {
		shell = shellexec.DefaultShell(platform)
	}

	start := time.Now()
	result := models.SuiteResult{SuiteName: suite.Name}

	ws, err := workspace.New(fs, suite.Name, suite.Dir, suite.FixtureDir)
	if err != nil {
		result.SetupOK = false
		result.SetupErr = err
		result.Elapsed = time.Since(start).Seconds()
		return result, err
	}
	defer ws.Destroy()

	r := &suiteRunner{
		suite: suite,
		ws:    ws,
		opts:  opts,
		shell: shell,
		env:   ws.Env(),
		upd:   updater.New(),
	}

	setupOK := true
	if suite.SetupFile != "" {
		setupOK = r.runSetup(ctx)
	}
	result.SetupOK = setupOK

	if setupOK {
		for _, file := range suite.Files {
			if ctx.Err() != nil {
				result.Interrupted = true
				break
			}
			fileResults, err := r.runFile(ctx, file)
			if err != nil {
				return result, err
			}
			result.Tests = append(result.Tests, fileResults...)
		}
	} else {
		for _, file := range suite.Files {
			f, err := corpus.ParseFile(file)
			if err != nil {
				continue
			}
			for _, tc := range f.Tests {
				result.Tests = append(result.Tests, models.TestResult{
					Case: tc, Kind: models.ResultSkipped, Reason: "setup failed",
				})
			}
		}
	}

	if suite.TeardownFile != "" {
		// Teardown still runs after a first interrupt, so it must not inherit
		// the suite's cancellation.
		result.TeardownOK, result.TeardownErr = r.runTeardown(context.WithoutCancel(ctx))
	}

	if opts.Update {
		if err := r.upd.Flush(fs); err != nil {
			return result, err
		}
	}

	result.Elapsed = time.Since(start).Seconds()
	return result, nil
}

type suiteRunner struct {
	suite discovery.Suite
	ws    *workspace.Workspace
	opts  Options
	shell shellexec.Shell
	env   []string
	upd   *updater.Updater
}

// runSetup runs _setup.txt sequentially; any failing test fails the setup.
func (r *suiteRunner) runSetup(ctx context.Context) bool {
	f, err := corpus.ParseFile(r.suite.SetupFile)
	if err != nil {
		return false
	}
	for _, tc := range f.Tests {
		res := r.runTest(ctx, tc, f.Directives)
		if res.Kind == models.ResultFailed {
			return false
		}
	}
	return true
}

func (r *suiteRunner) runTeardown(ctx context.Context) (bool, error) {
	f, err := corpus.ParseFile(r.suite.TeardownFile)
	if err != nil {
		return false, err
	}
	ok := true
	for _, tc := range f.Tests {
		res := r.runTest(ctx, tc, f.Directives)
		if res.Kind == models.ResultFailed {
			ok = false
		}
	}
	return ok, nil
}

func (r *suiteRunner) runFile(ctx context.Context, file string) ([]models.TestResult, error) {
	f, err := corpus.ParseFile(file)
	if err != nil {
		return nil, err
	}
	if skip, reason := filePlatformSkip(f.Directives, r.opts.Platform); skip {
		var out []models.TestResult
		for _, tc := range f.Tests {
			out = append(out, models.TestResult{Case: tc, Kind: models.ResultSkipped, Reason: reason})
		}
		return out, nil
	}

	var out []models.TestResult
	for _, tc := range f.Tests {
		if r.opts.Pattern != "" && !discovery.MatchFilter(testLabel(r.suite.Name, file, tc.Name), r.opts.Pattern) {
			continue
		}
		if ctx.Err() != nil {
			out = append(out, models.TestResult{Case: tc, Kind: models.ResultSkipped, Reason: "interrupted"})
			continue
		}
		res := r.runTest(ctx, tc, f.Directives)
		out = append(out, res)
		if r.opts.OnTestDone != nil {
			r.opts.OnTestDone(res)
		}
		if r.opts.Update && res.Kind == models.ResultFailed && res.FailKind == models.FailurePatternMismatch {
			r.scheduleUpdate(tc, res)
		}
	}
	return out, nil
}

// scheduleUpdate registers a rewrite only for hole-free, constraint-free
// tests, per spec.md §4.5.
func (r *suiteRunner) scheduleUpdate(tc *models.TestCase, res models.TestResult) {
	if len(tc.WhereExprs) > 0 {
		return
	}
	parts, err := pattern.ParseParts(pattern.ExpandTemplates(tc.ExpectedRaw, r.ws.Dir, r.ws.FixtureDir, envMap(r.env)))
	if err == nil && pattern.HasHoles(parts) {
		return
	}
	r.upd.Schedule(tc.Source, pattern.Normalize(res.Stdout))
}

func filePlatformSkip(directives []models.Directive, platform string) (bool, string) {
	for _, d := range directives {
		if d.Kind != models.DirectivePlatform {
			continue
		}
		for _, p := range d.Platforms {
			if matchesPlatform(p, platform) {
				return false, ""
			}
		}
		return true, "platform mismatch: requires " + fmt.Sprint(d.Platforms)
	}
	return false, ""
}

func matchesPlatform(want, actual string) bool {
	switch want {
	case "macos":
		return actual == "darwin"
	default:
		return want == actual
	}
}

// runTest evaluates directives, runs the command, and classifies the
// result. fileDirectives carries %platform/%skip/%shell inherited from the
// file header; tc.Directives carries test-scoped overrides.
func (r *suiteRunner) runTest(ctx context.Context, tc *models.TestCase, fileDirectives []models.Directive) models.TestResult {
	all := append(append([]models.Directive{}, fileDirectives...), tc.Directives...)

	for _, d := range all {
		if d.Kind != models.DirectiveSkip {
			continue
		}
		if d.IfCommand == "" {
			return models.TestResult{Case: tc, Kind: models.ResultSkipped, Reason: skipReason(d)}
		}
		res, _, err := shellexec.Run(ctx, r.shell, r.ws.Dir, d.IfCommand, r.env)
		if err == nil && res.ExitCode == 0 {
			return models.TestResult{Case: tc, Kind: models.ResultSkipped, Reason: skipReason(d)}
		}
	}

	shell := r.shell
	for _, d := range all {
		if d.Kind == models.DirectiveShell {
			shell = shellexec.Shell(d.Shell)
		}
	}

	start := time.Now()
	command := pattern.ExpandTemplates(tc.Command, r.ws.Dir, r.ws.FixtureDir, envMap(r.env))
	execResult, _, err := shellexec.RunStreaming(ctx, shell, r.ws.Dir, command, r.env, r.opts.Stream)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		return models.TestResult{Case: tc, Kind: models.ResultFailed, FailKind: models.FailureNonZeroExit, Detail: err.Error(), Elapsed: elapsed}
	}

	exitOnly := isBlank(tc.ExpectedRaw)
	if exitOnly {
		if execResult.ExitCode == 0 {
			return models.TestResult{Case: tc, Kind: models.ResultPassed, Elapsed: elapsed, Stdout: execResult.Stdout, Stderr: execResult.Stderr}
		}
		return models.TestResult{
			Case: tc, Kind: models.ResultFailed, FailKind: models.FailureNonZeroExit,
			Detail: fmt.Sprintf("exit code %d", execResult.ExitCode), Elapsed: elapsed,
			Stdout: execResult.Stdout, Stderr: execResult.Stderr,
		}
	}

	if execResult.ExitCode != 0 {
		return models.TestResult{
			Case: tc, Kind: models.ResultFailed, FailKind: models.FailureNonZeroExit,
			Detail: fmt.Sprintf("exit code %d", execResult.ExitCode), Elapsed: elapsed,
			Stdout: execResult.Stdout, Stderr: execResult.Stderr,
		}
	}

	return r.matchAndConstrain(tc, execResult, elapsed)
}

func (r *suiteRunner) matchAndConstrain(tc *models.TestCase, execResult shellexec.Result, elapsed float64) models.TestResult {
	expanded := pattern.ExpandTemplates(tc.ExpectedRaw, r.ws.Dir, r.ws.FixtureDir, envMap(r.env))
	parts, err := pattern.ParseParts(expanded)
	if err != nil {
		return models.TestResult{Case: tc, Kind: models.ResultFailed, FailKind: models.FailureExpressionError, Detail: err.Error(), Elapsed: elapsed}
	}
	matcher, err := pattern.Compile(parts)
	if err != nil {
		return models.TestResult{Case: tc, Kind: models.ResultFailed, FailKind: models.FailureExpressionError, Detail: err.Error(), Elapsed: elapsed}
	}

	actual := pattern.Normalize(execResult.Stdout)
	bindings, mismatch := matcher.Match(actual)
	if mismatch != nil {
		return models.TestResult{
			Case: tc, Kind: models.ResultFailed, FailKind: models.FailurePatternMismatch,
			Detail: fmt.Sprintf("expected:\n%s\nactual:\n%s", mismatch.Expected, mismatch.Actual),
			Elapsed: elapsed, Stdout: execResult.Stdout, Stderr: execResult.Stderr,
		}
	}

	env := expr.NewEnv(bindings)
	for _, exprSrc := range tc.WhereExprs {
		ok, err := expr.EvalBool(exprSrc, env)
		if err != nil {
			return models.TestResult{
				Case: tc, Kind: models.ResultFailed, FailKind: models.FailureExpressionError,
				Detail: err.Error(), Elapsed: elapsed, Stdout: execResult.Stdout, Stderr: execResult.Stderr,
			}
		}
		if !ok {
			return models.TestResult{
				Case: tc, Kind: models.ResultFailed, FailKind: models.FailureConstraintFailed,
				Detail: fmt.Sprintf("%s\nbindings: %s", exprSrc, bindingSnapshot(bindings)),
				Elapsed: elapsed, Stdout: execResult.Stdout, Stderr: execResult.Stderr,
			}
		}
	}

	return models.TestResult{Case: tc, Kind: models.ResultPassed, Elapsed: elapsed, Stdout: execResult.Stdout, Stderr: execResult.Stderr}
}

// bindingSnapshot renders every captured hole as compact canonical JSON, so
// a ConstraintFailed report shows exactly what the constraint expression
// saw regardless of incidental whitespace in the captured text.
func bindingSnapshot(bindings pattern.Bindings) string {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		v, err := bindings[name].Val.CanonicalJSON()
		if err != nil {
			v = bindings[name].Raw
		}
		parts = append(parts, fmt.Sprintf("%s=%s", name, v))
	}
	return strings.Join(parts, ", ")
}

func skipReason(d models.Directive) string {
	if d.Reason != "" {
		return d.Reason
	}
	if d.IfCommand != "" {
		return "skip if: " + d.IfCommand
	}
	return "skipped"
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// testLabel builds the "suite/file: test-name" label the -p filter
// matches against, per spec.md §6's command-line surface.
func testLabel(suiteName, file, testName string) string {
	return fmt.Sprintf("%s/%s: %s", suiteName, filepath.Base(file), testName)
}

// envMap builds the template-expansion map from the process environment
// plus env, so {{ VAR }} resolves to any set variable and the workspace's
// CCTR_* additions take precedence.
func envMap(env []string) map[string]string {
	full := append(os.Environ(), env...)
	out := make(map[string]string, len(full))
	for _, kv := range full {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}
