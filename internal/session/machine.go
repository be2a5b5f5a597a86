package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/roach88/truthtrail/internal/achievement"
	"github.com/roach88/truthtrail/internal/clock"
	"github.com/roach88/truthtrail/internal/game"
	"github.com/roach88/truthtrail/internal/ident"
	"github.com/roach88/truthtrail/internal/live"
	"github.com/roach88/truthtrail/internal/scoring"
	"github.com/roach88/truthtrail/internal/snapshot"
	"github.com/roach88/truthtrail/internal/syncqueue"
)

// Deps are the collaborators a Machine drives. Snapshots and Queue are
// required; a nil Live disables live progress.
type Deps struct {
	Snapshots *snapshot.Store
	Queue     *syncqueue.Queue
	Live      *live.Publisher
	Clock     clock.Clock
	IDs       ident.Generator
}

// Settings configure a new game.
type Settings struct {
	TeamName       string       `json:"teamName" yaml:"team_name"`
	Avatar         string       `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Players        []string     `json:"players,omitempty" yaml:"players,omitempty"`
	Rounds         int          `json:"rounds" yaml:"rounds"`
	Difficulty     string       `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	PredictedScore int          `json:"predictedScore" yaml:"predicted_score"`
	Claims         []game.Claim `json:"claims" yaml:"-"`
}

// Submission is one round's answer.
type Submission struct {
	Verdict    game.Verdict
	Confidence int
	HintsUsed  []string
	Reasoning  string
}

// Machine is the session state machine.
type Machine struct {
	mu      sync.RWMutex
	session game.Session
	streak  int
	debrief *Debrief
	closed  bool

	deps   Deps
	strict bool
	logger zerolog.Logger
	cue    *streakCue

	effects    *effectQueue
	ctx        context.Context
	cancel     context.CancelFunc
	workerDone chan struct{}
}

// Option configures a Machine.
type Option func(*Machine)

// WithStrict makes transition errors panic instead of returning.
// Intended for development builds and tests.
func WithStrict(strict bool) Option {
	return func(m *Machine) { m.strict = strict }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithStreakCue registers fn to run delay after a correct answer brings the
// streak to a milestone (3, 5 or 10). A later submission, ResetGame or Close
// cancels a cue that has not fired yet.
func WithStreakCue(delay time.Duration, fn func(streak int)) Option {
	return func(m *Machine) {
		if fn == nil {
			return
		}
		m.cue = &streakCue{delay: delay, fn: fn}
	}
}

// New creates a Machine in the setup phase and starts its effect worker.
// Cancelling ctx tears the machine down: pending effects are skipped.
func New(ctx context.Context, deps Deps, opts ...Option) *Machine {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.IDs == nil {
		deps.IDs = ident.UUIDv7{}
	}

	m := &Machine{
		session:    game.NewSession(),
		deps:       deps,
		logger:     log.Logger,
		effects:    newEffectQueue(),
		workerDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cue != nil {
		m.cue.clock = deps.Clock
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	go m.runEffects()
	return m
}

// Session returns a deep copy of the canonical session.
func (m *Machine) Session() game.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Clone()
}

// Phase returns the current phase.
func (m *Machine) Phase() game.Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Phase
}

// Streak returns the current run of correct answers.
func (m *Machine) Streak() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streak
}

// Debrief returns the end-of-game summary while in the debrief phase.
func (m *Machine) Debrief() (Debrief, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.debrief == nil {
		return Debrief{}, false
	}
	d := *m.debrief
	d.Achievements = append([]achievement.Info{}, d.Achievements...)
	return d, true
}

// StartGame moves setup to playing.
//
// Fails with ErrInvalidSettings for a non-positive round count and with
// ErrInsufficientContent when fewer claims than rounds are supplied. No
// state changes on error.
func (m *Machine) StartGame(settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.session.Phase != game.PhaseSetup {
		return m.transitionFailed(wrongPhase("StartGame", m.session))
	}
	if settings.Rounds <= 0 {
		return errors.Wrapf(ErrInvalidSettings, "rounds must be positive, got %d", settings.Rounds)
	}
	if len(settings.Claims) == 0 || len(settings.Claims) < settings.Rounds {
		return errors.Wrapf(ErrInsufficientContent, "%d claims for %d rounds", len(settings.Claims), settings.Rounds)
	}

	next := game.NewSession()
	next.ID = m.deps.IDs.Generate()
	next.Phase = game.PhasePlaying
	next.CurrentRound = 1
	next.TotalRounds = settings.Rounds
	next.Difficulty = settings.Difficulty
	next.Claims = append([]game.Claim{}, settings.Claims[:settings.Rounds]...)
	next.Team = game.Team{
		Name:           game.NormalizeName(settings.TeamName),
		PredictedScore: settings.PredictedScore,
		Results:        []game.RoundResult{},
		Avatar:         settings.Avatar,
	}
	for _, p := range settings.Players {
		if name := game.NormalizeName(p); name != "" {
			next.Team.Players = append(next.Team.Players, name)
		}
	}
	next = next.Clone()
	next.CurrentClaim = next.ClaimAt(1)

	m.commit(next, 0, nil)
	m.logger.Info().
		Str("session_id", next.ID).
		Str("team", next.Team.Name).
		Int("rounds", next.TotalRounds).
		Msg("game started")

	m.dispatchProgress("start", next, 0)
	return nil
}

// SubmitRound scores one answer against the current claim and advances.
//
// Returns a *TransitionError outside the playing phase or when the session
// has no current claim, and ErrInvalidSubmission for a confidence outside
// 1..3 or an unknown verdict. The session is unchanged on error.
func (m *Machine) SubmitRound(sub Submission) (game.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return game.RoundResult{}, ErrClosed
	}
	cur := m.session
	if cur.Phase != game.PhasePlaying {
		return game.RoundResult{}, m.transitionFailed(wrongPhase("SubmitRound", cur))
	}
	if cur.CurrentClaim == nil {
		return game.RoundResult{}, m.transitionFailed(noCurrentClaim("SubmitRound", cur))
	}
	if !game.ValidConfidence(sub.Confidence) {
		return game.RoundResult{}, errors.Wrapf(ErrInvalidSubmission, "confidence %d", sub.Confidence)
	}
	verdict, err := game.ParseVerdict(string(sub.Verdict))
	if err != nil {
		return game.RoundResult{}, errors.Wrap(ErrInvalidSubmission, err.Error())
	}

	claim := *cur.CurrentClaim
	correct := verdict == claim.Answer
	result := game.RoundResult{
		ClaimID:     claim.ID,
		TeamVerdict: verdict,
		Confidence:  sub.Confidence,
		Correct:     correct,
		Points:      scoring.NetPoints(correct, sub.Confidence, len(sub.HintsUsed)),
		HintsUsed:   len(sub.HintsUsed),
		Reasoning:   strings.TrimSpace(sub.Reasoning),
		Round:       cur.CurrentRound,
	}

	next := cur.Clone()
	next.Team.Results = append(next.Team.Results, result)
	next.Team.Score += result.Points

	streak := 0
	if correct {
		streak = m.streak + 1
	}

	if next.CurrentRound < next.TotalRounds {
		next.CurrentRound++
		// Nil when a resumed session carries fewer claims than rounds.
		next.CurrentClaim = next.ClaimAt(next.CurrentRound)
		if next.CurrentClaim == nil {
			m.logger.Warn().
				Str("session_id", next.ID).
				Int("round", next.CurrentRound).
				Int("claims", len(next.Claims)).
				Msg("no claim for round")
		}
		m.commit(next, streak, nil)
		m.cue.schedule(streak, m.alive)
		m.dispatchProgress("round", next, streak)
		return result, nil
	}

	next.Phase = game.PhaseDebrief
	next.CurrentClaim = nil
	d := buildDebrief(next)
	m.commit(next, streak, &d)
	m.cue.schedule(streak, m.alive)

	m.logger.Info().
		Str("session_id", next.ID).
		Int("score", d.Score).
		Int("final_score", d.FinalScore).
		Strs("achievements", d.AchievementIDs()).
		Msg("game finished")

	m.dispatchFinish(next, d)
	return result, nil
}

// ResetGame returns to a fresh setup session from any phase. The snapshot
// is cleared and pending cues are cancelled; the sync queue is left alone.
func (m *Machine) ResetGame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	prev := m.session
	m.cue.cancel()
	m.commit(game.NewSession(), 0, nil)

	snaps, pub := m.deps.Snapshots, m.deps.Live
	m.enqueue("reset", func(ctx context.Context) {
		snaps.Clear(ctx)
		if prev.Phase == game.PhasePlaying && prev.ID != "" {
			if err := pub.Remove(ctx, prev.ID); err != nil {
				m.logger.Warn().Err(err).Str("session_id", prev.ID).Msg("live cleanup on reset failed")
			}
		}
	})
	m.logger.Info().Str("session_id", prev.ID).Msg("game reset")
}

// ResumeSavedGame restores the saved session and streak verbatim, if the
// snapshot is valid and its session satisfies game.Session invariants.
// Only allowed in the setup phase. Returns whether a game was resumed.
func (m *Machine) ResumeSavedGame() (bool, error) {
	// Pending saves and clears must land before the snapshot is read.
	if err := m.Flush(m.ctx); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}
	if m.session.Phase != game.PhaseSetup {
		return false, m.transitionFailed(wrongPhase("ResumeSavedGame", m.session))
	}

	snap := m.loadResumable()
	if snap == nil {
		return false, nil
	}

	restored := snap.GameState.Clone()
	m.commit(restored, snap.CurrentStreak, nil)
	m.logger.Info().
		Str("session_id", restored.ID).
		Int("round", restored.CurrentRound).
		Msg("saved game resumed")

	pub := m.deps.Live
	progress := progressOf(restored)
	m.enqueue("resume", func(ctx context.Context) { pub.Push(ctx, progress) })
	return true, nil
}

// HasSavedGame reports whether ResumeSavedGame would resume. Like it, it
// discards a snapshot that fails validation.
func (m *Machine) HasSavedGame() bool {
	if err := m.Flush(m.ctx); err != nil {
		return false
	}
	return m.loadResumable() != nil
}

// loadResumable returns the stored snapshot when it passes both the store's
// checks and the session invariants. An inconsistent snapshot is cleared.
func (m *Machine) loadResumable() *snapshot.Snapshot {
	snap := m.deps.Snapshots.Load(m.ctx)
	if snap == nil {
		return nil
	}
	if err := snap.GameState.CheckInvariants(); err != nil {
		m.logger.Warn().Err(err).Msg("saved game is inconsistent, discarding")
		m.deps.Snapshots.Clear(m.ctx)
		return nil
	}
	return snap
}

// SubmitReflection queues the team's post-game reflection. Debrief only.
func (m *Machine) SubmitReflection(text string) error {
	text = strings.TrimSpace(text)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.session.Phase != game.PhaseDebrief {
		return m.transitionFailed(wrongPhase("SubmitReflection", m.session))
	}
	if text == "" {
		return errors.Wrap(ErrInvalidSubmission, "empty reflection")
	}

	rec := ReflectionRecord{
		SessionID: m.session.ID,
		TeamName:  m.session.Team.Name,
		Text:      text,
		Score:     m.session.Team.Score,
		CreatedAt: clock.EpochMillis(m.deps.Clock.Now()),
	}
	m.enqueueDurable(syncqueue.TypeReflection, rec)
	return nil
}

// SubmitClaim queues a player-proposed claim. Allowed in any phase.
func (m *Machine) SubmitClaim(c ClaimSubmission) error {
	c.Text = strings.TrimSpace(c.Text)
	if c.Text == "" {
		return errors.Wrap(ErrInvalidSubmission, "empty claim text")
	}
	verdict, err := game.ParseVerdict(string(c.Answer))
	if err != nil {
		return errors.Wrap(ErrInvalidSubmission, err.Error())
	}
	c.Answer = verdict

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if c.TeamName == "" {
		c.TeamName = m.session.Team.Name
	}
	c.SubmittedAt = clock.EpochMillis(m.deps.Clock.Now())
	m.enqueueDurable(syncqueue.TypeClaim, c)
	return nil
}

// ShareAchievement queues an earned achievement for the shared board.
// An empty player defaults to the current team.
func (m *Machine) ShareAchievement(id string, player Player) error {
	info, ok := achievement.Lookup(id)
	if !ok {
		return errors.Wrapf(ErrUnknownAchievement, "%q", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if player.Name == "" {
		player = Player{Name: m.session.Team.Name, Avatar: m.session.Team.Avatar}
	}
	m.enqueueDurable(syncqueue.TypeAchievement, sharePayload{Achievement: info, Player: player})
	return nil
}

// Flush waits until every effect queued so far has run.
func (m *Machine) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !m.effects.Enqueue(effect{name: "flush", done: done}) {
		// Closed: Close already drained the queue.
		return nil
	}
	select {
	case <-done:
		return nil
	case <-m.workerDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting operations, cancels pending cues, runs every queued
// effect and then cancels the machine context. Idempotent.
func (m *Machine) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cue.cancel()
	m.effects.Close()
	<-m.workerDone
	m.cancel()
	return nil
}

// commit swaps in the next session. Caller holds m.mu.
func (m *Machine) commit(next game.Session, streak int, d *Debrief) {
	m.session = next
	m.streak = streak
	m.debrief = d
}

func (m *Machine) alive() bool {
	return m.ctx.Err() == nil
}

func (m *Machine) transitionFailed(te *TransitionError) error {
	m.logger.Error().
		Str("code", string(te.Code)).
		Str("op", te.Op).
		Str("phase", string(te.Phase)).
		Int("round", te.Round).
		Msg("invalid session transition")
	if m.strict {
		panic(te)
	}
	return te
}

// dispatchProgress saves the snapshot and pushes live progress for a
// playing session. s must be a private copy.
func (m *Machine) dispatchProgress(name string, s game.Session, streak int) {
	snaps, pub := m.deps.Snapshots, m.deps.Live
	m.enqueue(name, func(ctx context.Context) {
		snaps.Save(ctx, s, streak)
		pub.Push(ctx, progressOf(s))
	})
}

// dispatchFinish clears the snapshot, queues the game record and finishes
// the live session. s must be a private copy.
func (m *Machine) dispatchFinish(s game.Session, d Debrief) {
	snaps, queue, pub := m.deps.Snapshots, m.deps.Queue, m.deps.Live
	record := newGameRecord(s, d, clock.EpochMillis(m.deps.Clock.Now()))
	m.enqueue("finish", func(ctx context.Context) {
		snaps.Clear(ctx)
		if _, err := queue.Enqueue(ctx, syncqueue.TypeGame, record); err != nil {
			m.logger.Error().Err(err).Str("session_id", s.ID).Msg("queueing game record failed")
		}
		if err := pub.Finish(ctx, progressOf(s)); err != nil {
			m.logger.Warn().Err(err).Str("session_id", s.ID).Msg("live session cleanup failed")
		}
	})
}

func (m *Machine) enqueueDurable(typ syncqueue.ItemType, payload any) {
	queue := m.deps.Queue
	m.enqueue(string(typ), func(ctx context.Context) {
		if _, err := queue.Enqueue(ctx, typ, payload); err != nil {
			m.logger.Error().Err(err).Str("type", string(typ)).Msg("queueing remote write failed")
		}
	})
}

func (m *Machine) enqueue(name string, run func(ctx context.Context)) {
	if !m.effects.Enqueue(effect{name: name, run: run}) {
		m.logger.Warn().Str("effect", name).Msg("effect dropped, machine closed")
	}
}

// runEffects is the single effect worker. It exits once the queue is
// closed and drained, or when the machine context ends.
func (m *Machine) runEffects() {
	defer close(m.workerDone)

	for {
		if e, ok := m.effects.TryDequeue(); ok {
			m.runEffect(e)
			continue
		}
		if m.effects.Drained() {
			return
		}

		select {
		case <-m.ctx.Done():
			m.skipRemaining()
			return
		case <-m.effects.Wait():
		}
	}
}

func (m *Machine) runEffect(e effect) {
	if e.done != nil {
		defer close(e.done)
	}
	if e.run == nil {
		return
	}
	if !m.alive() {
		m.logger.Debug().Str("effect", e.name).Msg("skipping effect after teardown")
		return
	}
	e.run(m.ctx)
}

func (m *Machine) skipRemaining() {
	for {
		e, ok := m.effects.TryDequeue()
		if !ok {
			return
		}
		if e.done != nil {
			close(e.done)
		}
	}
}
