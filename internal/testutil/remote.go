package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/roach88/truthtrail/internal/remote"
)

// ErrRemoteDown is returned by FakeRemote operations configured to fail.
var ErrRemoteDown = errors.New("fake remote: unavailable")

// RemoteCall records one call made to FakeRemote.
type RemoteCall struct {
	Op      string
	ID      string
	Payload json.RawMessage
}

// FakeRemote is an in-memory remote.Client for tests.
//
// By default every call succeeds. Fail marks operations (by remote.Op* name)
// as failing; FailNext fails the next n calls of any kind. Calls are recorded
// in order so tests can assert on dispatch.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeRemote struct {
	mu       sync.Mutex
	notReady bool
	failing  map[string]bool
	failNext int
	calls    []RemoteCall
	live     map[string]remote.LiveProgress

	// BeforeCall, if set, runs at the start of every operation outside the lock.
	BeforeCall func(op string)
}

// NewFakeRemote creates a ready fake that accepts every write.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		failing: make(map[string]bool),
		live:    make(map[string]remote.LiveProgress),
	}
}

// SetReady toggles Ready().
func (f *FakeRemote) SetReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notReady = !ready
}

// Fail makes the named operations fail until Recover is called.
func (f *FakeRemote) Fail(ops ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		f.failing[op] = true
	}
}

// FailAll makes every operation fail.
func (f *FakeRemote) FailAll() {
	f.Fail(
		remote.OpSaveGameRecord, remote.OpSaveReflection, remote.OpSubmitClaim,
		remote.OpShareAchievement, remote.OpUpsertLiveSession, remote.OpRemoveLiveSession,
	)
}

// FailNext fails the next n calls regardless of operation.
func (f *FakeRemote) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

// Recover clears every configured failure.
func (f *FakeRemote) Recover() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = make(map[string]bool)
	f.failNext = 0
}

// Calls returns a copy of the recorded calls.
func (f *FakeRemote) Calls() []RemoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RemoteCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times op was attempted.
func (f *FakeRemote) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// LiveSession returns the stored live progress for id.
func (f *FakeRemote) LiveSession(id string) (remote.LiveProgress, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.live[id]
	return p, ok
}

func (f *FakeRemote) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.notReady
}

func (f *FakeRemote) SaveGameRecord(ctx context.Context, record json.RawMessage) error {
	return f.record(ctx, remote.OpSaveGameRecord, "", record)
}

func (f *FakeRemote) SaveReflection(ctx context.Context, record json.RawMessage) error {
	return f.record(ctx, remote.OpSaveReflection, "", record)
}

func (f *FakeRemote) SubmitClaim(ctx context.Context, payload json.RawMessage) error {
	return f.record(ctx, remote.OpSubmitClaim, "", payload)
}

func (f *FakeRemote) ShareAchievement(ctx context.Context, achievement, player json.RawMessage) error {
	payload, _ := json.Marshal(map[string]json.RawMessage{"achievement": achievement, "player": player})
	return f.record(ctx, remote.OpShareAchievement, "", payload)
}

func (f *FakeRemote) UpsertLiveSession(ctx context.Context, id string, progress remote.LiveProgress) error {
	payload, _ := json.Marshal(progress)
	if err := f.record(ctx, remote.OpUpsertLiveSession, id, payload); err != nil {
		return err
	}
	f.mu.Lock()
	f.live[id] = progress
	f.mu.Unlock()
	return nil
}

func (f *FakeRemote) RemoveLiveSession(ctx context.Context, id string) error {
	if err := f.record(ctx, remote.OpRemoveLiveSession, id, nil); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.live, id)
	f.mu.Unlock()
	return nil
}

func (f *FakeRemote) record(ctx context.Context, op, id string, payload json.RawMessage) error {
	if f.BeforeCall != nil {
		f.BeforeCall(op)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, RemoteCall{Op: op, ID: id, Payload: payload})

	if f.notReady {
		return remote.ErrNotReady
	}
	if f.failNext > 0 {
		f.failNext--
		return ErrRemoteDown
	}
	if f.failing[op] {
		return ErrRemoteDown
	}
	return nil
}

var _ remote.Client = (*FakeRemote)(nil)
