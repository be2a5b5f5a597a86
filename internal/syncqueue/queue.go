package syncqueue

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/roach88/truthtrail/internal/clock"
	"github.com/roach88/truthtrail/internal/ident"
	"github.com/roach88/truthtrail/internal/kv"
)

// Key is the store key holding the queue array.
const Key = "truthtrail.syncQueue"

// DefaultMaxRetries is the attempt budget per item.
const DefaultMaxRetries = 3

var (
	// ErrSyncInProgress is returned when Sync is called while another Sync runs.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrStorage wraps failures of the underlying kv store.
	ErrStorage = errors.New("queue storage failed")

	// ErrUnknownType is returned for items whose type has no remote operation.
	ErrUnknownType = errors.New("unknown queue item type")
)

// ItemType selects the remote operation an item is dispatched to.
type ItemType string

const (
	TypeGame        ItemType = "game"
	TypeReflection  ItemType = "reflection"
	TypeClaim       ItemType = "claim"
	TypeAchievement ItemType = "achievement"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case TypeGame, TypeReflection, TypeClaim, TypeAchievement:
		return true
	}
	return false
}

// Item is one pending remote write.
type Item struct {
	ID        string          `json:"id"`
	Type      ItemType        `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Retries   int             `json:"retries"`
}

// Counts summarises the queue for UI badges.
type Counts struct {
	Total  int              `json:"total"`
	ByType map[ItemType]int `json:"byType"`
}

// Queue is the durable outbox.
//
// Thread-safety: Enqueue, Dequeue and the read helpers are safe from any
// goroutine. Sync guards itself against concurrent invocation.
type Queue struct {
	// mu serializes read-modify-write cycles on the persisted array.
	mu sync.Mutex

	kv         kv.Store
	clock      clock.Clock
	ids        ident.Generator
	maxRetries int
	logger     zerolog.Logger

	syncing atomic.Bool

	subMu   sync.Mutex
	subs    map[int]func(Counts)
	nextSub int
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxRetries overrides DefaultMaxRetries. Values below 1 are ignored.
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n >= 1 {
			q.maxRetries = n
		}
	}
}

// WithIDs overrides the item id generator (UUIDv7 by default).
func WithIDs(g ident.Generator) Option {
	return func(q *Queue) { q.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// New creates a Queue persisted in store.
func New(store kv.Store, clk clock.Clock, opts ...Option) *Queue {
	q := &Queue{
		kv:         store,
		clock:      clk,
		ids:        ident.UUIDv7{},
		maxRetries: DefaultMaxRetries,
		logger:     log.Logger,
		subs:       make(map[int]func(Counts)),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// MaxRetries returns the per-item attempt budget.
func (q *Queue) MaxRetries() int {
	return q.maxRetries
}

// Enqueue appends a new item with zero retries and persists the queue.
// payload is JSON-encoded unless it already is a json.RawMessage.
func (q *Queue) Enqueue(ctx context.Context, typ ItemType, payload any) (Item, error) {
	if !typ.Valid() {
		return Item{}, errors.Wrapf(ErrUnknownType, "%q", typ)
	}
	data, err := encodePayload(payload)
	if err != nil {
		return Item{}, errors.Wrap(err, "encode payload")
	}

	item := Item{
		ID:        q.ids.Generate(),
		Type:      typ,
		Data:      data,
		Timestamp: clock.EpochMillis(q.clock.Now()),
	}

	err = q.mutate(ctx, func(items []Item) ([]Item, bool) {
		return append(items, item), true
	})
	if err != nil {
		q.logger.Error().Err(err).Str("type", string(typ)).Msg("enqueue failed")
		return Item{}, err
	}

	q.logger.Debug().Str("id", item.ID).Str("type", string(typ)).Msg("queued remote write")
	return item, nil
}

// Dequeue removes the item with id. Returns false if it was not queued or the
// store failed.
func (q *Queue) Dequeue(ctx context.Context, id string) bool {
	removed := false
	err := q.mutate(ctx, func(items []Item) ([]Item, bool) {
		out := items[:0:0]
		for _, it := range items {
			if it.ID == id {
				removed = true
				continue
			}
			out = append(out, it)
		}
		return out, removed
	})
	if err != nil {
		q.logger.Warn().Err(err).Str("id", id).Msg("dequeue failed")
		return false
	}
	return removed
}

// Items returns the persisted queue in order.
func (q *Queue) Items(ctx context.Context) ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

// Counts returns totals per type. A store failure reads as an empty queue.
func (q *Queue) Counts(ctx context.Context) Counts {
	items, err := q.Items(ctx)
	if err != nil {
		q.logger.Warn().Err(err).Msg("queue counts unavailable")
	}
	return countItems(items)
}

// HasPending reports whether any item of the given types is queued.
// With no types, any item counts.
func (q *Queue) HasPending(ctx context.Context, types ...ItemType) bool {
	c := q.Counts(ctx)
	if len(types) == 0 {
		return c.Total > 0
	}
	for _, t := range types {
		if c.ByType[t] > 0 {
			return true
		}
	}
	return false
}

// Subscribe registers fn to receive the queue counts after every mutation.
// The returned function unsubscribes.
func (q *Queue) Subscribe(fn func(Counts)) func() {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	return func() {
		q.subMu.Lock()
		defer q.subMu.Unlock()
		delete(q.subs, id)
	}
}

// mutate re-reads the persisted queue, applies fn and writes the result back
// when fn reports a change. Subscribers are notified after a successful write.
func (q *Queue) mutate(ctx context.Context, fn func([]Item) ([]Item, bool)) error {
	q.mu.Lock()
	items, err := q.load(ctx)
	if err != nil {
		q.mu.Unlock()
		return err
	}
	next, changed := fn(items)
	if !changed {
		q.mu.Unlock()
		return nil
	}
	if err := q.save(ctx, next); err != nil {
		q.mu.Unlock()
		return err
	}
	counts := countItems(next)
	q.mu.Unlock()

	q.notify(counts)
	return nil
}

func (q *Queue) load(ctx context.Context) ([]Item, error) {
	raw, err := q.kv.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "load: %v", err)
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		// A corrupt array cannot be partially recovered; start over.
		q.logger.Error().Err(err).Msg("discarding corrupt sync queue")
		return []Item{}, nil
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

func (q *Queue) save(ctx context.Context, items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "encode queue")
	}
	if err := q.kv.Set(ctx, Key, string(data)); err != nil {
		return errors.Wrapf(ErrStorage, "save: %v", err)
	}
	return nil
}

func (q *Queue) notify(c Counts) {
	q.subMu.Lock()
	fns := make([]func(Counts), 0, len(q.subs))
	for _, fn := range q.subs {
		fns = append(fns, fn)
	}
	q.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func countItems(items []Item) Counts {
	c := Counts{ByType: make(map[ItemType]int)}
	for _, it := range items {
		c.Total++
		c.ByType[it.Type]++
	}
	return c
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, errors.New("payload is not valid JSON")
		}
		return p, nil
	case nil:
		return json.RawMessage(`null`), nil
	default:
		return json.Marshal(p)
	}
}
