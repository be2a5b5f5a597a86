package harness

import (
	"github.com/roach88/truthtrail/internal/game"
	"github.com/roach88/truthtrail/internal/syncqueue"
)

// Trace event types.
const (
	EventStart      = "start"
	EventRound      = "round"
	EventDebrief    = "debrief"
	EventReflection = "reflection"
	EventSync       = "sync"
	EventEnd        = "end"
)

// TraceEvent is one observable step of a scenario run.
type TraceEvent struct {
	Seq     int               `json:"seq"`
	Type    string            `json:"type"`
	Phase   string            `json:"phase,omitempty"`
	Error   string            `json:"error,omitempty"`
	Round   *game.RoundResult `json:"round,omitempty"`
	Debrief *DebriefTrace     `json:"debrief,omitempty"`
	Sync    *syncqueue.Result `json:"sync,omitempty"`
	Queued  *int              `json:"queued,omitempty"`
}

// DebriefTrace is the debrief summary recorded in traces.
type DebriefTrace struct {
	Score            int      `json:"score"`
	PredictedScore   int      `json:"predictedScore"`
	CalibrationBonus int      `json:"calibrationBonus"`
	FinalScore       int      `json:"finalScore"`
	Accuracy         int      `json:"accuracy"`
	Achievements     []string `json:"achievements"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Trace lists the run's events in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Session is the final session record.
	Session game.Session `json:"session"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// add appends ev with the next sequence number.
func (r *Result) add(ev TraceEvent) TraceEvent {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
	return ev
}

// Last returns the most recent event of type typ.
func (r *Result) Last(typ string) (TraceEvent, bool) {
	for i := len(r.Trace) - 1; i >= 0; i-- {
		if r.Trace[i].Type == typ {
			return r.Trace[i], true
		}
	}
	return TraceEvent{}, false
}
