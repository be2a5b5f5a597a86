// Package remote defines the contract with the remote scoring service and a
// message-bus implementation of it.
//
// The session engine and the sync queue depend only on Client; transports
// live behind it. Operations fall into two categories:
//
//   - durable: SaveGameRecord, SaveReflection, SubmitClaim, ShareAchievement.
//     Only ever called by the sync queue, which retries them.
//   - best-effort: UpsertLiveSession, RemoveLiveSession. Called directly by
//     the live progress publisher and never queued.
//
// A nil error means the remote write was accepted.
package remote

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrNotReady is returned by operations on a client that is not initialised
// or has been torn down.
var ErrNotReady = errors.New("remote client not ready")

// Client is the remote service contract.
type Client interface {
	// Ready reports whether the client can currently attempt remote writes.
	Ready() bool

	SaveGameRecord(ctx context.Context, record json.RawMessage) error
	SaveReflection(ctx context.Context, record json.RawMessage) error
	SubmitClaim(ctx context.Context, payload json.RawMessage) error
	ShareAchievement(ctx context.Context, achievement, player json.RawMessage) error

	UpsertLiveSession(ctx context.Context, id string, progress LiveProgress) error
	RemoveLiveSession(ctx context.Context, id string) error
}

// Lifecycle is implemented by clients holding a shared connection.
// Callers own one instance and drive it explicitly; there is no global client.
type Lifecycle interface {
	Init(ctx context.Context) error
	Teardown(ctx context.Context) error
}

// LiveProgress is the concurrent-viewer projection of a running session.
type LiveProgress struct {
	SessionID   string `json:"sessionId"`
	TeamName    string `json:"teamName"`
	Phase       string `json:"phase"`
	Round       int    `json:"round"`
	TotalRounds int    `json:"totalRounds"`
	Score       int    `json:"score"`
	UpdatedAt   int64  `json:"updatedAt"`
}
