// Package snapshot persists a durable copy of an in-progress session for
// crash recovery.
//
// Only playing-phase sessions are saved. Load validates what it reads in a
// fixed order and discards (clearing the store) on the first failure:
//
//  1. parse     - the stored value is not a snapshot document
//  2. version   - version != 1
//  3. phase     - gameState.phase != "playing"
//  4. structure - currentRound/totalRounds not numbers, claims not a list,
//     team missing, currentStreak not a number
//  5. expired   - now - savedAt > TTL (24h by default)
//
// No operation returns an error or panics: an unavailable store degrades to
// false/nil results, logged at warn level.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/roach88/truthtrail/internal/clock"
	"github.com/roach88/truthtrail/internal/game"
	"github.com/roach88/truthtrail/internal/kv"
)

const (
	// Key is the store key holding the snapshot document.
	Key = "truthtrail.snapshot"

	// Version is the only snapshot document version Load accepts.
	Version = 1

	// DefaultTTL bounds how old a snapshot may be and still resume.
	DefaultTTL = 24 * time.Hour
)

// DiscardReason names why Load rejected a stored snapshot.
type DiscardReason string

const (
	ReasonParse     DiscardReason = "parse"
	ReasonVersion   DiscardReason = "version"
	ReasonPhase     DiscardReason = "phase"
	ReasonStructure DiscardReason = "structure"
	ReasonExpired   DiscardReason = "expired"
)

// Snapshot is the persisted document.
type Snapshot struct {
	Version       int          `json:"version"`
	GameState     game.Session `json:"gameState"`
	CurrentStreak int          `json:"currentStreak"`
	SavedAt       int64        `json:"savedAt"`
}

// Store reads and writes the snapshot through a kv.Store.
type Store struct {
	kv     kv.Store
	clock  clock.Clock
	ttl    time.Duration
	logger zerolog.Logger

	// onDiscard observes discards; nil in production.
	onDiscard func(DiscardReason)
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for discard and failure warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithDiscardHook registers a callback invoked with every discard reason.
func WithDiscardHook(fn func(DiscardReason)) Option {
	return func(s *Store) { s.onDiscard = fn }
}

// New creates a Store over store using clk for savedAt and expiry.
func New(store kv.Store, clk clock.Clock, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		clock:  clk,
		ttl:    DefaultTTL,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes session and streak. It is a no-op returning false unless the
// session is playing, and returns false when the store rejects the write.
func (s *Store) Save(ctx context.Context, session game.Session, streak int) bool {
	if session.Phase != game.PhasePlaying {
		return false
	}

	doc := Snapshot{
		Version:       Version,
		GameState:     session,
		CurrentStreak: streak,
		SavedAt:       clock.EpochMillis(s.clock.Now()),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn().Err(err).Msg("snapshot encode failed")
		return false
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		s.logger.Warn().Err(err).Msg("snapshot save failed")
		return false
	}
	return true
}

// Load returns the stored snapshot if it is valid, playing and fresh.
// Anything else is discarded and nil is returned.
func (s *Store) Load(ctx context.Context) *Snapshot {
	raw, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("snapshot load failed")
		}
		return nil
	}

	snap, reason, detail := s.validate([]byte(raw))
	if reason != "" {
		s.discard(ctx, reason, detail)
		return nil
	}
	return snap
}

// Clear deletes the snapshot. Idempotent; failures are only logged.
func (s *Store) Clear(ctx context.Context) {
	if err := s.kv.Remove(ctx, Key); err != nil {
		s.logger.Warn().Err(err).Msg("snapshot clear failed")
	}
}

// HasSavedGame reports whether Load would return a snapshot.
// Like Load, it discards an invalid document as a side effect.
func (s *Store) HasSavedGame(ctx context.Context) bool {
	return s.Load(ctx) != nil
}

// envelope mirrors Snapshot with version, streak and game state left raw so
// each is type-checked by the step that owns it rather than failing the parse.
type envelope struct {
	Version       json.RawMessage `json:"version"`
	GameState     json.RawMessage `json:"gameState"`
	CurrentStreak json.RawMessage `json:"currentStreak"`
	SavedAt       int64           `json:"savedAt"`
}

func (s *Store) validate(raw []byte) (*Snapshot, DiscardReason, string) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ReasonParse, err.Error()
	}

	var version int
	if !isJSONNumber(env.Version) || json.Unmarshal(env.Version, &version) != nil || version != Version {
		return nil, ReasonVersion, "unsupported snapshot version"
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(env.GameState, &fields); err != nil || fields == nil {
		return nil, ReasonPhase, "gameState is not an object"
	}
	var phase string
	if err := json.Unmarshal(fields["phase"], &phase); err != nil || game.Phase(phase) != game.PhasePlaying {
		return nil, ReasonPhase, "gameState is not playing"
	}

	if detail := checkStructure(fields); detail != "" {
		return nil, ReasonStructure, detail
	}

	var streak int
	if len(env.CurrentStreak) > 0 {
		if !isJSONNumber(env.CurrentStreak) || json.Unmarshal(env.CurrentStreak, &streak) != nil {
			return nil, ReasonStructure, "currentStreak is not a number"
		}
	}

	var session game.Session
	if err := json.Unmarshal(env.GameState, &session); err != nil {
		return nil, ReasonStructure, err.Error()
	}

	age := s.clock.Now().Sub(clock.FromEpochMillis(env.SavedAt))
	if age > s.ttl {
		return nil, ReasonExpired, age.String()
	}

	return &Snapshot{
		Version:       Version,
		GameState:     session,
		CurrentStreak: streak,
		SavedAt:       env.SavedAt,
	}, "", ""
}

func checkStructure(fields map[string]json.RawMessage) string {
	for _, name := range []string{"currentRound", "totalRounds"} {
		raw, ok := fields[name]
		if !ok {
			return name + " missing"
		}
		if !isJSONNumber(raw) {
			return name + " is not a number"
		}
	}

	claims, ok := fields["claims"]
	if !ok || !isJSONArray(claims) {
		return "claims is not a list"
	}

	team, ok := fields["team"]
	if !ok || !isJSONObject(team) {
		return "team missing"
	}
	return ""
}

func (s *Store) discard(ctx context.Context, reason DiscardReason, detail string) {
	s.logger.Warn().
		Str("reason", string(reason)).
		Str("detail", detail).
		Msg("discarding saved game snapshot")
	s.Clear(ctx)
	if s.onDiscard != nil {
		s.onDiscard(reason)
	}
}

func isJSONNumber(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9'))
}

func isJSONArray(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '['
}

func isJSONObject(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '{'
}
