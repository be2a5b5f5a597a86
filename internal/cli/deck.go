package cli

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/truthtrail/internal/deck"
)

// DeckCheck is the validation outcome for one deck file.
type DeckCheck struct {
	Path   string `json:"path"`
	Name   string `json:"name,omitempty"`
	Claims int    `json:"claims"`
	Valid  bool   `json:"valid"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// DeckReport lists deck checks.
type DeckReport struct {
	Decks []DeckCheck `json:"decks"`
	Valid bool        `json:"valid"`
}

// String renders the report as text.
func (r DeckReport) String() string {
	lines := make([]string, len(r.Decks))
	for i, d := range r.Decks {
		if d.Valid {
			lines[i] = fmt.Sprintf("✓ %s: %q, %d claims", d.Path, d.Name, d.Claims)
		} else {
			lines[i] = fmt.Sprintf("✗ %s: [%s] %s", d.Path, d.Code, d.Error)
		}
	}
	return strings.Join(lines, "\n")
}

// NewDeckCommand creates the deck command group.
func NewDeckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Work with claim decks",
	}
	cmd.AddCommand(newDeckValidateCommand(rootOpts))
	return cmd
}

func newDeckValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate deck files",
		Long: `Validate deck files against the deck schema.

Checks YAML syntax, required fields, answers (TRUE, FALSE or MIXED),
claim id format and id uniqueness.

Exit codes:
  0 - All decks valid
  1 - One or more decks invalid`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeckValidate(rootOpts, args, cmd)
		},
	}
}

func runDeckValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	report := DeckReport{Decks: make([]DeckCheck, 0, len(paths)), Valid: true}

	for _, path := range paths {
		check := DeckCheck{Path: path}
		d, err := deck.Load(path)
		if err != nil {
			report.Valid = false
			check.Error = err.Error()
			var le *deck.LoadError
			if errors.As(err, &le) {
				check.Code = le.Code
				check.Error = le.Message
			}
		} else {
			check.Valid = true
			check.Name = d.Name
			check.Claims = d.Len()
		}
		report.Decks = append(report.Decks, check)
	}

	if !report.Valid {
		if f.JSON() {
			_ = f.encode(CLIResponse{
				Status: "error",
				Data:   report,
				Error:  &CLIError{Code: ErrCodeDeck, Message: "invalid deck"},
			})
		} else {
			_ = f.Success(report)
		}
		return NewExitError(ExitFailure, "invalid deck")
	}
	return f.Success(report)
}
