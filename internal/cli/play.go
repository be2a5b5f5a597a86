package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/truthtrail/internal/deck"
	"github.com/roach88/truthtrail/internal/game"
	"github.com/roach88/truthtrail/internal/session"
	"github.com/roach88/truthtrail/internal/syncqueue"
)

// streakCueDelay is how long a streak celebration waits for the next answer.
const streakCueDelay = 750 * time.Millisecond

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Deck       string
	Team       string
	Rounds     int
	Predict    int
	Difficulty string
	Resume     bool
}

// PlayResult is the outcome of a play command.
type PlayResult struct {
	SessionID string            `json:"sessionId"`
	Team      string            `json:"team"`
	Phase     game.Phase        `json:"phase"`
	Round     int               `json:"round"`
	Debrief   *session.Debrief  `json:"debrief,omitempty"`
	Sync      *syncqueue.Result `json:"sync,omitempty"`
	Queued    int               `json:"queued"`
}

// String renders the end-of-command summary.
func (r PlayResult) String() string {
	var b strings.Builder
	if r.Debrief == nil {
		fmt.Fprintf(&b, "Game saved at round %d. Resume with: truthtrail play --resume", r.Round)
		return b.String()
	}

	d := r.Debrief
	fmt.Fprintf(&b, "Game over, %s!\n", r.Team)
	fmt.Fprintf(&b, "  Score:        %d (predicted %d)\n", d.Score, d.PredictedScore)
	fmt.Fprintf(&b, "  Calibration:  +%d\n", d.CalibrationBonus)
	fmt.Fprintf(&b, "  Final score:  %d\n", d.FinalScore)
	fmt.Fprintf(&b, "  Accuracy:     %d%%\n", d.Accuracy)
	if len(d.Achievements) > 0 {
		titles := make([]string, len(d.Achievements))
		for i, a := range d.Achievements {
			titles[i] = a.Title
		}
		fmt.Fprintf(&b, "  Achievements: %s\n", strings.Join(titles, ", "))
	}
	if r.Sync != nil {
		fmt.Fprintf(&b, "  Synced:       %d\n", r.Sync.Success)
	}
	fmt.Fprintf(&b, "  Pending sync: %d", r.Queued)
	return b.String()
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game from a deck",
		Long: `Play a game round by round from standard input.

Each round shows a claim. Answer with:

  VERDICT CONFIDENCE [HINTS]

where VERDICT is TRUE, FALSE or MIXED, CONFIDENCE is 1-3 and HINTS is
the number of hints the team looked at. Type "hint" to reveal the next
hint or "quit" to stop; the game is saved after every round.

Examples:
  truthtrail play --deck decks/starter.yaml --team Owls --rounds 5 --predict 8
  truthtrail play --resume`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Deck, "deck", "", "deck file (YAML)")
	cmd.Flags().StringVar(&opts.Team, "team", "Team", "team name")
	cmd.Flags().IntVar(&opts.Rounds, "rounds", 5, "number of rounds")
	cmd.Flags().IntVar(&opts.Predict, "predict", 0, "predicted final score")
	cmd.Flags().StringVar(&opts.Difficulty, "difficulty", "", "only claims of this difficulty (easy|medium|hard)")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "resume the saved game if there is one")

	return cmd
}

func runPlay(ctx context.Context, opts *PlayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(ctx, opts.RootOptions, f, f.ErrWriter)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	m := a.machine(ctx, session.WithStreakCue(streakCueDelay, func(streak int) {
		f.Printf("  %d in a row!\n", streak)
	}))
	defer func() { _ = m.Close() }()

	resumed := false
	if opts.Resume {
		resumed, err = m.ResumeSavedGame()
		if err != nil {
			return WrapExitError(ExitCommandError, "resume saved game", err)
		}
		if !resumed {
			f.Printf("No saved game to resume, starting a new one.\n")
		}
	}
	if !resumed {
		if err := startGame(m, opts, f); err != nil {
			return err
		}
	}

	s := m.Session()
	f.Printf("Team %s: %d rounds, predicted score %d\n", s.Team.Name, s.TotalRounds, s.Team.PredictedScore)

	if err := playRounds(m, cmd.InOrStdin(), f); err != nil {
		return err
	}
	if err := m.Flush(ctx); err != nil {
		return WrapExitError(ExitFailure, "save game", err)
	}

	s = m.Session()
	result := PlayResult{SessionID: s.ID, Team: s.Team.Name, Phase: s.Phase, Round: s.CurrentRound}
	if d, ok := m.Debrief(); ok {
		result.Debrief = &d
		if a.remoteReady() {
			res, err := a.queue.Sync(ctx, a.client)
			if err != nil {
				f.VerboseLog("sync after game failed: %v", err)
			} else {
				result.Sync = &res
			}
		}
	}
	result.Queued = a.queue.Counts(ctx).Total

	f.Printf("\n")
	return f.Success(result)
}

func startGame(m *session.Machine, opts *PlayOptions, f *OutputFormatter) error {
	if opts.Deck == "" {
		_ = f.Error(ErrCodeDeck, "--deck is required to start a game", nil)
		return NewExitError(ExitCommandError, "--deck is required to start a game")
	}
	d, err := deck.Load(opts.Deck)
	if err != nil {
		_ = f.Error(ErrCodeDeck, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load deck", err)
	}
	d = d.ForDifficulty(opts.Difficulty)
	f.VerboseLog("Deck %q: %d claims", d.Name, d.Len())

	err = m.StartGame(session.Settings{
		TeamName:       opts.Team,
		Rounds:         opts.Rounds,
		Difficulty:     opts.Difficulty,
		PredictedScore: opts.Predict,
		Claims:         d.Claims,
	})
	if err != nil {
		_ = f.Error(ErrCodeGame, err.Error(), nil)
		return WrapExitError(ExitCommandError, "start game", err)
	}
	return nil
}

// playRounds reads answers until the game ends, the input ends or the
// team quits.
func playRounds(m *session.Machine, in io.Reader, f *OutputFormatter) error {
	scanner := bufio.NewScanner(in)
	prompt := true
	revealed := 0

	for m.Phase() == game.PhasePlaying {
		s := m.Session()
		claim := s.CurrentClaim
		if claim == nil {
			return NewExitError(ExitFailure, fmt.Sprintf("saved game has no claim for round %d", s.CurrentRound))
		}
		if prompt {
			f.Printf("\nRound %d/%d: %s\n", s.CurrentRound, s.TotalRounds, claim.Text)
			if n := len(claim.Hints); n > 0 {
				f.Printf("  (%d hint(s) available, type \"hint\")\n", n)
			}
			prompt = false
		}
		f.Printf("> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return WrapExitError(ExitCommandError, "read answers", err)
			}
			return nil
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "hint":
			if revealed < len(claim.Hints) {
				f.Printf("  Hint: %s\n", claim.Hints[revealed])
				revealed++
			} else {
				f.Printf("  No more hints.\n")
			}
			continue
		}

		sub, err := parseAnswer(line, *claim, revealed)
		if err != nil {
			f.Printf("  %v\n  Enter: VERDICT CONFIDENCE [HINTS], e.g. FALSE 3\n", err)
			continue
		}
		res, err := m.SubmitRound(sub)
		if err != nil {
			if errors.Is(err, session.ErrInvalidSubmission) {
				f.Printf("  %v\n", err)
				continue
			}
			return WrapExitError(ExitFailure, "submit round", err)
		}

		printRound(f, res, *claim, m.Session().Team.Score)
		prompt = true
		revealed = 0
	}
	return nil
}

// parseAnswer reads "VERDICT CONFIDENCE [HINTS]". HINTS defaults to the
// number of hints revealed this round and cannot exceed the claim's hints.
func parseAnswer(line string, claim game.Claim, revealed int) (session.Submission, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return session.Submission{}, errors.Errorf("expected 2 or 3 fields, got %d", len(fields))
	}

	verdict, err := game.ParseVerdict(fields[0])
	if err != nil {
		return session.Submission{}, err
	}
	confidence, err := strconv.Atoi(fields[1])
	if err != nil {
		return session.Submission{}, errors.Errorf("confidence %q is not a number", fields[1])
	}

	hints := revealed
	if len(fields) == 3 {
		hints, err = strconv.Atoi(fields[2])
		if err != nil || hints < 0 {
			return session.Submission{}, errors.Errorf("hints %q is not a count", fields[2])
		}
		if hints > len(claim.Hints) {
			return session.Submission{}, errors.Errorf("hints %q exceeds the %d available", fields[2], len(claim.Hints))
		}
	}

	used := slices.Clone(claim.Hints[:hints])
	return session.Submission{Verdict: verdict, Confidence: confidence, HintsUsed: used}, nil
}

func printRound(f *OutputFormatter, res game.RoundResult, claim game.Claim, score int) {
	if res.Correct {
		f.Printf("  Correct! %+d (score %d)\n", res.Points, score)
	} else {
		f.Printf("  Wrong, it was %s. %+d (score %d)\n", claim.Answer, res.Points, score)
	}
	if claim.Explanation != "" {
		f.Printf("  %s\n", claim.Explanation)
	}
	if claim.AIGenerated {
		f.Printf("  This claim was AI-generated.\n")
	}
}
