package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/truthtrail/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Golden string // golden trace directory
	Update bool   // regenerate golden files
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// ScenarioReport holds the overall result.
type ScenarioReport struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// String renders the report as text.
func (r ScenarioReport) String() string {
	var b bytes.Buffer
	for _, s := range r.Scenarios {
		if s.Pass {
			fmt.Fprintf(&b, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(&b, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	fmt.Fprintf(&b, "\nScenarios: %d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
	return b.String()
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file>...",
		Short: "Run scripted game scenarios",
		Long: `Run scenario files against the session engine with a fixed clock,
an in-memory store and a fake remote service.

With --golden, each trace is also compared with <dir>/<name>.golden;
--update rewrites those files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden trace files")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")

	return cmd
}

func runScenarios(opts *ScenarioOptions, paths []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Update && opts.Golden == "" {
		_ = f.Error(ErrCodeScenario, "--update requires --golden", nil)
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	report := ScenarioReport{Scenarios: make([]ScenarioResult, 0, len(paths)), Total: len(paths)}
	for _, path := range paths {
		f.VerboseLog("Running %s", path)
		res := runScenarioFile(opts, path, cmd)
		report.Scenarios = append(report.Scenarios, res)
		if res.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if report.Failed > 0 {
		if f.JSON() {
			_ = f.encode(CLIResponse{
				Status: "error",
				Data:   report,
				Error: &CLIError{
					Code:    ErrCodeScenario,
					Message: fmt.Sprintf("%d scenario(s) failed", report.Failed),
				},
			})
		} else {
			_ = f.Success(report)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return f.Success(report)
}

func runScenarioFile(opts *ScenarioOptions, path string, cmd *cobra.Command) ScenarioResult {
	s, err := harness.LoadScenario(path)
	if err != nil {
		return ScenarioResult{Name: filepath.Base(path), Errors: []string{fmt.Sprintf("load: %v", err)}}
	}

	res, err := harness.Run(cmd.Context(), s)
	if err != nil {
		return ScenarioResult{Name: s.Name, Errors: []string{fmt.Sprintf("run: %v", err)}}
	}

	out := ScenarioResult{Name: s.Name, Pass: res.Pass, Errors: res.Errors}
	if opts.Golden == "" {
		return out
	}

	trace, err := harness.MarshalTrace(s.Name, res.Trace)
	if err != nil {
		return failed(out, fmt.Sprintf("marshal trace: %v", err))
	}
	goldenPath := filepath.Join(opts.Golden, s.Name+".golden")

	if opts.Update {
		if err := writeGolden(goldenPath, trace); err != nil {
			return failed(out, err.Error())
		}
		return out
	}

	want, err := os.ReadFile(goldenPath)
	if err != nil {
		return failed(out, fmt.Sprintf("read golden file: %v", err))
	}
	if !bytes.Equal(want, trace) {
		return failed(out, "trace does not match golden file (run with --update to regenerate)")
	}
	return out
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create golden directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write golden file")
	}
	return nil
}

func failed(r ScenarioResult, msg string) ScenarioResult {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
	return r
}
