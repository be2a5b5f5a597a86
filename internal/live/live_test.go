package live

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthtrail/internal/remote"
	"github.com/roach88/truthtrail/internal/testutil"
)

var epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newPublisher(t *testing.T) (*Publisher, *testutil.FakeRemote, *testutil.FakeClock) {
	t.Helper()
	client := testutil.NewFakeRemote()
	clk := testutil.NewFakeClock(epoch)
	return New(client, clk, WithLogger(zerolog.Nop())), client, clk
}

func TestPush_StampsUpdatedAt(t *testing.T) {
	p, client, _ := newPublisher(t)

	p.Push(context.Background(), remote.LiveProgress{SessionID: "s-1", Round: 2, TotalRounds: 5})

	got, ok := client.LiveSession("s-1")
	require.True(t, ok)
	assert.Equal(t, 2, got.Round)
	assert.Equal(t, epoch.UnixMilli(), got.UpdatedAt)
}

func TestPush_FailureIsSwallowed(t *testing.T) {
	p, client, _ := newPublisher(t)
	client.FailAll()

	assert.NotPanics(t, func() {
		p.Push(context.Background(), remote.LiveProgress{SessionID: "s-1"})
	})
	assert.Equal(t, 1, client.CallCount(remote.OpUpsertLiveSession), "push is never retried")
}

func TestRemove_FirstTry(t *testing.T) {
	p, client, clk := newPublisher(t)
	require.NoError(t, p.Remove(context.Background(), "s-1"))
	assert.Equal(t, 1, client.CallCount(remote.OpRemoveLiveSession))
	assert.Empty(t, clk.Sleeps())
}

func TestRemove_GivesUpAfterThreeAttempts(t *testing.T) {
	p, client, clk := newPublisher(t)
	client.Fail(remote.OpRemoveLiveSession)

	err := p.Remove(context.Background(), "s-1")
	assert.True(t, errors.Is(err, ErrCleanupAbandoned))
	assert.Equal(t, 3, client.CallCount(remote.OpRemoveLiveSession))
	assert.Equal(t, []time.Duration{DefaultDelay, DefaultDelay}, clk.Sleeps())
}

func TestRemove_RecoversOnRetry(t *testing.T) {
	p, client, clk := newPublisher(t)
	client.FailNext(1)

	require.NoError(t, p.Remove(context.Background(), "s-1"))
	assert.Equal(t, 2, client.CallCount(remote.OpRemoveLiveSession))
	assert.Len(t, clk.Sleeps(), 1)
}

func TestRemove_CustomBudget(t *testing.T) {
	client := testutil.NewFakeRemote()
	client.Fail(remote.OpRemoveLiveSession)
	clk := testutil.NewFakeClock(epoch)
	p := New(client, clk, WithAttempts(5), WithDelay(time.Second), WithLogger(zerolog.Nop()))

	assert.Error(t, p.Remove(context.Background(), "s-1"))
	assert.Equal(t, 5, client.CallCount(remote.OpRemoveLiveSession))
	assert.Len(t, clk.Sleeps(), 4)
}

func TestRemove_CancelledStops(t *testing.T) {
	p, client, _ := newPublisher(t)
	client.Fail(remote.OpRemoveLiveSession)
	ctx, cancel := context.WithCancel(context.Background())
	client.BeforeCall = func(string) { cancel() }

	err := p.Remove(ctx, "s-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, client.CallCount(remote.OpRemoveLiveSession), 1)
}

func TestFinish_PushesThenRemoves(t *testing.T) {
	p, client, _ := newPublisher(t)

	require.NoError(t, p.Finish(context.Background(), remote.LiveProgress{SessionID: "s-1", Phase: "debrief"}))

	calls := client.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, remote.OpUpsertLiveSession, calls[0].Op)
	assert.Equal(t, remote.OpRemoveLiveSession, calls[1].Op)
	_, ok := client.LiveSession("s-1")
	assert.False(t, ok)
}

func TestNilClientIsNoop(t *testing.T) {
	p := New(nil, testutil.NewFakeClock(epoch))
	ctx := context.Background()

	assert.NotPanics(t, func() { p.Push(ctx, remote.LiveProgress{SessionID: "x"}) })
	assert.NoError(t, p.Finish(ctx, remote.LiveProgress{SessionID: "x"}))
	assert.NoError(t, p.Remove(ctx, "x"))
}
