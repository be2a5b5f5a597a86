package syncqueue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthtrail/internal/kv"
	"github.com/roach88/truthtrail/internal/testutil"
)

var epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newQueue(t *testing.T, opts ...Option) (*Queue, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	base := []Option{
		WithIDs(testutil.NewSequenceIDs("q")),
		WithLogger(zerolog.Nop()),
	}
	q := New(store, testutil.NewFakeClock(epoch), append(base, opts...)...)
	return q, store
}

func TestEnqueue_PersistsItem(t *testing.T) {
	q, store := newQueue(t)
	ctx := context.Background()

	item, err := q.Enqueue(ctx, TypeGame, map[string]any{"score": 7})
	require.NoError(t, err)
	assert.Equal(t, "q-1", item.ID)
	assert.Equal(t, TypeGame, item.Type)
	assert.Equal(t, epoch.UnixMilli(), item.Timestamp)
	assert.Zero(t, item.Retries)

	raw, err := store.Get(ctx, Key)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"id":"q-1","type":"game","data":{"score":7},"timestamp":1773478800000,"retries":0}]`,
		raw)
}

func TestEnqueue_KeepsOrder(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	for _, typ := range []ItemType{TypeGame, TypeReflection, TypeClaim} {
		_, err := q.Enqueue(ctx, typ, json.RawMessage(`{}`))
		require.NoError(t, err)
	}

	items, err := q.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"q-1", "q-2", "q-3"}, []string{items[0].ID, items[1].ID, items[2].ID})
}

func TestEnqueue_UnknownType(t *testing.T) {
	q, store := newQueue(t)
	_, err := q.Enqueue(context.Background(), ItemType("telemetry"), nil)
	assert.True(t, errors.Is(err, ErrUnknownType))
	assert.Zero(t, store.Len())
}

func TestEnqueue_InvalidRawPayload(t *testing.T) {
	q, _ := newQueue(t)
	_, err := q.Enqueue(context.Background(), TypeClaim, json.RawMessage(`{oops`))
	assert.Error(t, err)
}

func TestEnqueue_StorageFailure(t *testing.T) {
	q, store := newQueue(t)
	store.SetFailing(true)

	_, err := q.Enqueue(context.Background(), TypeGame, map[string]int{"a": 1})
	assert.True(t, errors.Is(err, ErrStorage))
}

func TestDequeue(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	a, _ := q.Enqueue(ctx, TypeGame, nil)
	b, _ := q.Enqueue(ctx, TypeClaim, nil)

	assert.True(t, q.Dequeue(ctx, a.ID))
	assert.False(t, q.Dequeue(ctx, a.ID), "second dequeue finds nothing")
	assert.False(t, q.Dequeue(ctx, "missing"))

	items, err := q.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
}

func TestCountsAndHasPending(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	assert.False(t, q.HasPending(ctx))
	assert.Equal(t, 0, q.Counts(ctx).Total)

	_, _ = q.Enqueue(ctx, TypeGame, nil)
	_, _ = q.Enqueue(ctx, TypeGame, nil)
	_, _ = q.Enqueue(ctx, TypeReflection, nil)

	c := q.Counts(ctx)
	assert.Equal(t, 3, c.Total)
	assert.Equal(t, 2, c.ByType[TypeGame])
	assert.Equal(t, 1, c.ByType[TypeReflection])

	assert.True(t, q.HasPending(ctx))
	assert.True(t, q.HasPending(ctx, TypeClaim, TypeReflection))
	assert.False(t, q.HasPending(ctx, TypeAchievement))
}

func TestLoad_CorruptQueueReadsEmpty(t *testing.T) {
	q, store := newQueue(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, Key, `{"not":"an array"}`))

	items, err := q.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = q.Enqueue(ctx, TypeGame, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Counts(ctx).Total)
}

func TestSubscribe(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	var seen []int
	unsubscribe := q.Subscribe(func(c Counts) { seen = append(seen, c.Total) })

	a, _ := q.Enqueue(ctx, TypeGame, nil)
	_, _ = q.Enqueue(ctx, TypeGame, nil)
	q.Dequeue(ctx, a.ID)
	q.Dequeue(ctx, "missing")
	assert.Equal(t, []int{1, 2, 1}, seen, "no notification without a change")

	unsubscribe()
	_, _ = q.Enqueue(ctx, TypeGame, nil)
	assert.Len(t, seen, 3)
}

func TestWithMaxRetries_IgnoresNonPositive(t *testing.T) {
	q, _ := newQueue(t, WithMaxRetries(0))
	assert.Equal(t, DefaultMaxRetries, q.MaxRetries())

	q, _ = newQueue(t, WithMaxRetries(5))
	assert.Equal(t, 5, q.MaxRetries())
}
