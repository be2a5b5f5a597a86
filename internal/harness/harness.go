package harness

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/roach88/truthtrail/internal/game"
	"github.com/roach88/truthtrail/internal/kv"
	"github.com/roach88/truthtrail/internal/live"
	"github.com/roach88/truthtrail/internal/session"
	"github.com/roach88/truthtrail/internal/snapshot"
	"github.com/roach88/truthtrail/internal/syncqueue"
	"github.com/roach88/truthtrail/internal/testutil"
)

// Epoch is the instant every scenario run starts at.
var Epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// Error codes recorded in traces for non-transition failures.
const (
	CodeInsufficientContent = "INSUFFICIENT_CONTENT"
	CodeInvalidSettings     = "INVALID_SETTINGS"
	CodeInvalidSubmission   = "INVALID_SUBMISSION"
	CodeClosed              = "CLOSED"
	CodeError               = "ERROR"
)

// Option configures a run.
type Option func(*runner)

// WithLogger sets the logger handed to every component. Runs are silent
// by default.
func WithLogger(l zerolog.Logger) Option {
	return func(r *runner) { r.logger = l }
}

type runner struct {
	logger zerolog.Logger
}

// Run executes a scenario and returns its trace and expectation results.
//
// Run returns an error only when the run itself cannot proceed. Failed
// expectations are reported in Result.Errors.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	if s == nil {
		return nil, errors.New("nil scenario")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "run scenario")
	}
	r := &runner{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}

	store := kv.NewMemory()
	clk := testutil.NewFakeClock(Epoch)
	client := testutil.NewFakeRemote()
	if s.Remote.Down {
		client.FailAll()
	}
	client.Fail(s.Remote.Fail...)

	queue := syncqueue.New(store, clk,
		syncqueue.WithIDs(testutil.NewSequenceIDs("q")),
		syncqueue.WithLogger(r.logger),
	)
	deps := session.Deps{
		Snapshots: snapshot.New(store, clk, snapshot.WithLogger(r.logger)),
		Queue:     queue,
		Live:      live.New(client, clk, live.WithLogger(r.logger)),
		Clock:     clk,
		IDs:       testutil.NewSequenceIDs("s"),
	}
	m := session.New(ctx, deps, session.WithLogger(r.logger))
	defer func() { _ = m.Close() }()

	res := NewResult()
	flush := func() error {
		return errors.Wrap(m.Flush(ctx), "flush effects")
	}

	settings := session.Settings{
		TeamName:       s.Settings.Team,
		Avatar:         s.Settings.Avatar,
		Players:        s.Settings.Players,
		Rounds:         s.Settings.Rounds,
		Difficulty:     s.Settings.Difficulty,
		PredictedScore: s.Settings.PredictedScore,
		Claims:         s.Claims,
	}
	startErr := m.StartGame(settings)
	res.add(TraceEvent{Type: EventStart, Phase: string(m.Phase()), Error: ErrorCode(startErr)})
	checkStart(res, s, startErr)
	if err := flush(); err != nil {
		return nil, err
	}

	for i, step := range s.Rounds {
		result, err := m.SubmitRound(session.Submission{
			Verdict:    game.Verdict(step.Verdict),
			Confidence: step.Confidence,
			HintsUsed:  step.Hints,
			Reasoning:  step.Reasoning,
		})
		ev := TraceEvent{Type: EventRound, Phase: string(m.Phase()), Error: ErrorCode(err)}
		if err == nil {
			ev.Round = &result
		}
		res.add(ev)
		checkRound(res, i, step.Expect, ev)
		if err := flush(); err != nil {
			return nil, err
		}
	}

	if d, ok := m.Debrief(); ok {
		res.add(TraceEvent{Type: EventDebrief, Phase: string(m.Phase()), Debrief: &DebriefTrace{
			Score:            d.Score,
			PredictedScore:   d.PredictedScore,
			CalibrationBonus: d.CalibrationBonus,
			FinalScore:       d.FinalScore,
			Accuracy:         d.Accuracy,
			Achievements:     d.AchievementIDs(),
		}})
	}

	if s.Reflection != "" {
		err := m.SubmitReflection(s.Reflection)
		res.add(TraceEvent{Type: EventReflection, Phase: string(m.Phase()), Error: ErrorCode(err)})
		if err := flush(); err != nil {
			return nil, err
		}
	}

	for i := 0; i < s.Sync; i++ {
		out, err := queue.Sync(ctx, client)
		if err != nil {
			return nil, errors.Wrapf(err, "sync pass %d", i+1)
		}
		res.add(TraceEvent{Type: EventSync, Sync: &out})
	}

	queued := queue.Counts(ctx).Total
	res.add(TraceEvent{Type: EventEnd, Phase: string(m.Phase()), Queued: &queued})

	res.Session = m.Session()
	checkEnd(res, s.Expect, res.Session, queued)
	return res, nil
}

// ErrorCode maps an operation error to the code recorded in traces.
// A nil error maps to "".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var te *session.TransitionError
	if errors.As(err, &te) {
		return string(te.Code)
	}
	switch {
	case errors.Is(err, session.ErrInsufficientContent):
		return CodeInsufficientContent
	case errors.Is(err, session.ErrInvalidSettings):
		return CodeInvalidSettings
	case errors.Is(err, session.ErrInvalidSubmission):
		return CodeInvalidSubmission
	case errors.Is(err, session.ErrClosed):
		return CodeClosed
	default:
		return CodeError
	}
}
