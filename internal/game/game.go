// Package game defines the canonical quiz session record shared by the
// state machine, the snapshot store and the scenario harness.
//
// All types are plain values with JSON tags matching the persisted snapshot
// wire shape. The state machine never edits a Session in place; it builds a
// modified Clone and swaps it in, so readers never observe a torn record.
package game

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// Phase is the session lifecycle phase.
type Phase string

const (
	PhaseSetup   Phase = "setup"
	PhasePlaying Phase = "playing"
	PhaseDebrief Phase = "debrief"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseSetup, PhasePlaying, PhaseDebrief:
		return true
	}
	return false
}

// Verdict is a team's (or the claim's) judgement of a claim.
type Verdict string

const (
	VerdictTrue  Verdict = "TRUE"
	VerdictFalse Verdict = "FALSE"
	VerdictMixed Verdict = "MIXED"
)

// ErrUnknownVerdict is returned by ParseVerdict for unrecognised input.
var ErrUnknownVerdict = errors.New("unknown verdict")

// ParseVerdict normalizes s (NFC, trimmed, upper-cased) and maps it to a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(strings.ToUpper(strings.TrimSpace(norm.NFC.String(s))))
	switch v {
	case VerdictTrue, VerdictFalse, VerdictMixed:
		return v, nil
	}
	return "", errors.Wrapf(ErrUnknownVerdict, "%q", s)
}

// Confidence levels a team can stake on a verdict.
const (
	ConfidenceLow    = 1
	ConfidenceMedium = 2
	ConfidenceHigh   = 3
)

// ValidConfidence reports whether c is one of 1, 2 or 3.
func ValidConfidence(c int) bool {
	return c >= ConfidenceLow && c <= ConfidenceHigh
}

// Claim is one statement the team must judge.
type Claim struct {
	ID          string   `json:"id" yaml:"id"`
	Text        string   `json:"text" yaml:"text"`
	Answer      Verdict  `json:"answer" yaml:"answer"`
	Difficulty  string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	AIGenerated bool     `json:"aiGenerated,omitempty" yaml:"ai_generated,omitempty"`
	Hints       []string `json:"hints,omitempty" yaml:"hints,omitempty"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// RoundResult records the outcome of one submitted round.
// It is created once by the state machine and never modified afterwards.
type RoundResult struct {
	ClaimID     string  `json:"claimId"`
	TeamVerdict Verdict `json:"teamVerdict"`
	Confidence  int     `json:"confidence"`
	Correct     bool    `json:"correct"`
	Points      int     `json:"points"`
	HintsUsed   int     `json:"hintsUsed"`
	Reasoning   string  `json:"reasoning,omitempty"`
	Round       int     `json:"round"`
}

// Team is the playing team and its running tally.
type Team struct {
	Name           string        `json:"name"`
	Score          int           `json:"score"`
	PredictedScore int           `json:"predictedScore"`
	Results        []RoundResult `json:"results"`
	Avatar         string        `json:"avatar,omitempty"`
	Players        []string      `json:"players,omitempty"`
}

// Session is the canonical game record.
type Session struct {
	ID           string  `json:"id,omitempty"`
	Phase        Phase   `json:"phase"`
	CurrentRound int     `json:"currentRound"`
	TotalRounds  int     `json:"totalRounds"`
	Difficulty   string  `json:"difficulty,omitempty"`
	Claims       []Claim `json:"claims"`
	CurrentClaim *Claim  `json:"currentClaim"`
	Team         Team    `json:"team"`
}

// NewSession returns the zeroed setup-phase session.
func NewSession() Session {
	return Session{
		Phase:  PhaseSetup,
		Claims: []Claim{},
		Team:   Team{Results: []RoundResult{}},
	}
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	out := s
	out.Claims = cloneClaims(s.Claims)
	if s.CurrentClaim != nil {
		c := cloneClaim(*s.CurrentClaim)
		out.CurrentClaim = &c
	}
	out.Team.Results = append([]RoundResult{}, s.Team.Results...)
	if s.Team.Players != nil {
		out.Team.Players = append([]string{}, s.Team.Players...)
	}
	return out
}

// ClaimAt returns the claim for 1-based round n, or nil when out of range.
func (s Session) ClaimAt(n int) *Claim {
	if n < 1 || n > len(s.Claims) {
		return nil
	}
	c := cloneClaim(s.Claims[n-1])
	return &c
}

// FindClaim looks up a claim by id.
func (s Session) FindClaim(id string) (Claim, bool) {
	for _, c := range s.Claims {
		if c.ID == id {
			return c, true
		}
	}
	return Claim{}, false
}

// CorrectCount returns the number of correct round results.
func (s Session) CorrectCount() int {
	n := 0
	for _, r := range s.Team.Results {
		if r.Correct {
			n++
		}
	}
	return n
}

// CheckInvariants returns an error describing the first violated session invariant.
func (s Session) CheckInvariants() error {
	if !s.Phase.Valid() {
		return errors.Errorf("unknown phase %q", s.Phase)
	}
	if s.Phase == PhaseSetup {
		return nil
	}
	if s.TotalRounds <= 0 {
		return errors.Errorf("totalRounds must be positive, got %d", s.TotalRounds)
	}
	if s.CurrentRound < 0 || s.CurrentRound > s.TotalRounds {
		return errors.Errorf("currentRound %d outside 0..%d", s.CurrentRound, s.TotalRounds)
	}

	// While playing, currentRound names the round being answered, so one
	// fewer result exists. In debrief every round has a result.
	want := s.CurrentRound
	if s.Phase == PhasePlaying {
		want = s.CurrentRound - 1
	}
	if len(s.Team.Results) != want {
		return errors.Errorf("%d results recorded for round %d in phase %s", len(s.Team.Results), s.CurrentRound, s.Phase)
	}

	sum := 0
	for _, r := range s.Team.Results {
		sum += r.Points
	}
	if sum != s.Team.Score {
		return errors.Errorf("score %d does not equal sum of round points %d", s.Team.Score, sum)
	}
	return nil
}

// NormalizeName applies Unicode NFC and trims surrounding whitespace.
// Team names arrive from free-text input on different platforms.
func NormalizeName(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func cloneClaims(in []Claim) []Claim {
	out := make([]Claim, len(in))
	for i, c := range in {
		out[i] = cloneClaim(c)
	}
	return out
}

func cloneClaim(c Claim) Claim {
	if c.Hints != nil {
		c.Hints = append([]string{}, c.Hints...)
	}
	return c
}
