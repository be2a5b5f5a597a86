package syncqueue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthtrail/internal/remote"
	"github.com/roach88/truthtrail/internal/testutil"
)

func TestSync_DeliversAndEmpties(t *testing.T) {
	q, _ := newQueue(t)
	client := testutil.NewFakeRemote()
	ctx := context.Background()

	_, _ = q.Enqueue(ctx, TypeGame, map[string]int{"score": 4})
	_, _ = q.Enqueue(ctx, TypeReflection, map[string]string{"note": "close one"})
	_, _ = q.Enqueue(ctx, TypeClaim, map[string]string{"text": "Bats are blind."})
	_, _ = q.Enqueue(ctx, TypeAchievement, map[string]json.RawMessage{
		"achievement": json.RawMessage(`{"id":"calibrated"}`),
		"player":      json.RawMessage(`{"name":"Owls"}`),
	})

	res, err := q.Sync(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, Result{Success: 4}, res)
	assert.False(t, q.HasPending(ctx))

	calls := client.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, remote.OpSaveGameRecord, calls[0].Op)
	assert.Equal(t, remote.OpSaveReflection, calls[1].Op)
	assert.Equal(t, remote.OpSubmitClaim, calls[2].Op)
	assert.Equal(t, remote.OpShareAchievement, calls[3].Op)
	assert.JSONEq(t, `{"achievement":{"id":"calibrated"},"player":{"name":"Owls"}}`, string(calls[3].Payload))
}

func TestSync_DropsAfterExactlyMaxRetries(t *testing.T) {
	q, _ := newQueue(t)
	client := testutil.NewFakeRemote()
	client.FailAll()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, TypeGame, map[string]int{"score": 1})
	require.NoError(t, err)

	for pass := 1; pass <= 2; pass++ {
		res, err := q.Sync(ctx, client)
		require.NoError(t, err)
		assert.Equal(t, Result{}, res, "pass %d", pass)

		items, err := q.Items(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, pass, items[0].Retries)
	}

	res, err := q.Sync(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, Result{Failed: 1}, res)
	assert.False(t, q.HasPending(ctx))
	assert.Equal(t, 3, client.CallCount(remote.OpSaveGameRecord))

	res, err = q.Sync(ctx, client)
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestSync_PartialFailureKeepsOthers(t *testing.T) {
	q, _ := newQueue(t)
	client := testutil.NewFakeRemote()
	client.Fail(remote.OpSubmitClaim)
	ctx := context.Background()

	_, _ = q.Enqueue(ctx, TypeGame, nil)
	claim, _ := q.Enqueue(ctx, TypeClaim, nil)
	_, _ = q.Enqueue(ctx, TypeReflection, nil)

	res, err := q.Sync(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, Result{Success: 2}, res)

	items, err := q.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, claim.ID, items[0].ID)
	assert.Equal(t, 1, items[0].Retries)

	client.Recover()
	res, err = q.Sync(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, Result{Success: 1}, res)
}

func TestSync_NotReadyIsNoop(t *testing.T) {
	q, _ := newQueue(t)
	client := testutil.NewFakeRemote()
	client.SetReady(false)
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, TypeGame, nil)

	res, err := q.Sync(ctx, client)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Empty(t, client.Calls())

	items, _ := q.Items(ctx)
	require.Len(t, items, 1)
	assert.Zero(t, items[0].Retries, "not-ready must not burn retries")

	res, err = q.Sync(ctx, nil)
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestSync_ConcurrentCallRejected(t *testing.T) {
	q, _ := newQueue(t)
	client := testutil.NewFakeRemote()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, TypeGame, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	client.BeforeCall = func(string) {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	done := make(chan Result, 1)
	go func() {
		res, err := q.Sync(ctx, client)
		assert.NoError(t, err)
		done <- res
	}()

	<-entered
	_, err := q.Sync(ctx, client)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	select {
	case res := <-done:
		assert.Equal(t, Result{Success: 1}, res)
	case <-time.After(2 * time.Second):
		t.Fatal("first sync did not finish")
	}

	// Guard is released afterwards.
	_, err = q.Sync(ctx, client)
	assert.NoError(t, err)
}

func TestSync_SkipsItemsRemovedMidPass(t *testing.T) {
	q, _ := newQueue(t)
	client := testutil.NewFakeRemote()
	client.FailAll()
	ctx := context.Background()

	_, _ = q.Enqueue(ctx, TypeGame, nil)
	second, _ := q.Enqueue(ctx, TypeClaim, nil)

	client.BeforeCall = func(op string) {
		if op == remote.OpSaveGameRecord {
			q.Dequeue(ctx, second.ID)
		}
	}

	res, err := q.Sync(ctx, client)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Zero(t, client.CallCount(remote.OpSubmitClaim), "vanished item is not dispatched")

	items, _ := q.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, TypeGame, items[0].Type)
}

func TestSync_EnqueueDuringPassIsKept(t *testing.T) {
	q, _ := newQueue(t)
	client := testutil.NewFakeRemote()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, TypeGame, nil)

	var once sync.Once
	client.BeforeCall = func(string) {
		once.Do(func() { _, _ = q.Enqueue(ctx, TypeReflection, nil) })
	}

	res, err := q.Sync(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, Result{Success: 1}, res)
	assert.True(t, q.HasPending(ctx, TypeReflection))
}

func TestSync_CancelledStopsBeforeNextItem(t *testing.T) {
	q, _ := newQueue(t)
	client := testutil.NewFakeRemote()
	ctx, cancel := context.WithCancel(context.Background())

	_, _ = q.Enqueue(ctx, TypeGame, nil)
	_, _ = q.Enqueue(ctx, TypeClaim, nil)
	client.BeforeCall = func(string) { cancel() }

	_, err := q.Sync(ctx, client)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, client.CallCount(remote.OpSubmitClaim))

	items, _ := q.Items(context.Background())
	require.Len(t, items, 2)
	assert.Zero(t, items[0].Retries, "cancelled attempt is not counted")
}

func TestSync_UnknownPersistedTypeIsDropped(t *testing.T) {
	q, store := newQueue(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, Key, `[{"id":"x","type":"legacy","data":{},"timestamp":0,"retries":2}]`))

	res, err := q.Sync(ctx, testutil.NewFakeRemote())
	require.NoError(t, err)
	assert.Equal(t, Result{Failed: 1}, res)
}

func TestWatch_SyncsOnSignal(t *testing.T) {
	q, _ := newQueue(t)
	client := testutil.NewFakeRemote()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _ = q.Enqueue(ctx, TypeGame, nil)

	signals := make(chan struct{})
	results := make(chan Result, 1)
	done := make(chan error, 1)
	go func() {
		done <- q.Watch(ctx, signals, client, func(r Result) { results <- r })
	}()

	signals <- struct{}{}
	select {
	case r := <-results:
		assert.Equal(t, Result{Success: 1}, r)
	case <-time.After(2 * time.Second):
		t.Fatal("no sync result")
	}

	close(signals)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	q, _ := newQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.Watch(ctx, make(chan struct{}), testutil.NewFakeRemote(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
