package remote

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/roach88/truthtrail/internal/ident"
)

// Metadata keys set on every published message.
const (
	MetaOp        = "op"
	MetaSessionID = "session_id"
)

// Operation names carried in MetaOp.
const (
	OpSaveGameRecord    = "save_game_record"
	OpSaveReflection    = "save_reflection"
	OpSubmitClaim       = "submit_claim"
	OpShareAchievement  = "share_achievement"
	OpUpsertLiveSession = "upsert_live_session"
	OpRemoveLiveSession = "remove_live_session"
)

// Topics names the stream each operation is published to.
type Topics struct {
	GameRecords  string
	Reflections  string
	Claims       string
	Achievements string
	LiveSessions string
}

// DefaultTopics returns the topic names the scoring service consumes.
func DefaultTopics() Topics {
	return Topics{
		GameRecords:  "truthtrail.game_records",
		Reflections:  "truthtrail.reflections",
		Claims:       "truthtrail.claims",
		Achievements: "truthtrail.achievements",
		LiveSessions: "truthtrail.live_sessions",
	}
}

// Bus is a Client that publishes each remote write as one watermill message.
//
// A successful Publish is treated as an accepted write. Bus must be Init'ed
// before use; after Teardown every call returns ErrNotReady.
//
// Thread-safety: all methods are safe for concurrent use.
type Bus struct {
	mu      sync.RWMutex
	pub     message.Publisher
	closers []io.Closer
	topics  Topics
	ids     ident.Generator
	ready   bool
	logger  zerolog.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithTopics overrides DefaultTopics.
func WithTopics(t Topics) BusOption {
	return func(b *Bus) { b.topics = t }
}

// WithIDs overrides the message id generator.
func WithIDs(g ident.Generator) BusOption {
	return func(b *Bus) { b.ids = g }
}

// WithBusLogger sets the logger.
func WithBusLogger(l zerolog.Logger) BusOption {
	return func(b *Bus) { b.logger = l }
}

// withCloser registers an extra resource released on Teardown.
func withCloser(c io.Closer) BusOption {
	return func(b *Bus) { b.closers = append(b.closers, c) }
}

// NewBus wraps an existing publisher.
func NewBus(pub message.Publisher, opts ...BusOption) *Bus {
	b := &Bus{
		pub:    pub,
		topics: DefaultTopics(),
		ids:    ident.UUIDv7{},
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewRedisBus builds a Bus publishing to Redis Streams at addr.
func NewRedisBus(addr string, opts ...BusOption) (*Bus, error) {
	b := NewBus(nil, opts...)

	client := redis.NewClient(&redis.Options{Addr: addr})
	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: rstream.DefaultMarshallerUnmarshaller{},
	}, NewWatermillLogger(b.logger))
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "create redis stream publisher")
	}

	b.pub = pub
	withCloser(client)(b)
	return b, nil
}

// Init marks the bus ready.
func (b *Bus) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pub == nil {
		return errors.New("bus has no publisher")
	}
	b.ready = true
	return nil
}

// Teardown closes the publisher and any owned connections.
// Idempotent: a second call is a no-op.
func (b *Bus) Teardown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pub == nil {
		return nil
	}
	b.ready = false

	var firstErr error
	if err := b.pub.Close(); err != nil {
		firstErr = errors.Wrap(err, "close publisher")
	}
	for _, c := range b.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "close connection")
		}
	}
	b.pub = nil
	b.closers = nil
	return firstErr
}

// Ready reports whether Init succeeded and Teardown has not run.
func (b *Bus) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready
}

func (b *Bus) SaveGameRecord(ctx context.Context, record json.RawMessage) error {
	return b.publish(ctx, b.topics.GameRecords, OpSaveGameRecord, "", record)
}

func (b *Bus) SaveReflection(ctx context.Context, record json.RawMessage) error {
	return b.publish(ctx, b.topics.Reflections, OpSaveReflection, "", record)
}

func (b *Bus) SubmitClaim(ctx context.Context, payload json.RawMessage) error {
	return b.publish(ctx, b.topics.Claims, OpSubmitClaim, "", payload)
}

func (b *Bus) ShareAchievement(ctx context.Context, achievement, player json.RawMessage) error {
	payload, err := json.Marshal(struct {
		Achievement json.RawMessage `json:"achievement"`
		Player      json.RawMessage `json:"player"`
	}{achievement, player})
	if err != nil {
		return errors.Wrap(err, "encode achievement share")
	}
	return b.publish(ctx, b.topics.Achievements, OpShareAchievement, "", payload)
}

func (b *Bus) UpsertLiveSession(ctx context.Context, id string, progress LiveProgress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return errors.Wrap(err, "encode live progress")
	}
	return b.publish(ctx, b.topics.LiveSessions, OpUpsertLiveSession, id, payload)
}

func (b *Bus) RemoveLiveSession(ctx context.Context, id string) error {
	return b.publish(ctx, b.topics.LiveSessions, OpRemoveLiveSession, id, []byte(`{}`))
}

func (b *Bus) publish(ctx context.Context, topic, op, sessionID string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.ready {
		return ErrNotReady
	}

	msg := message.NewMessage(b.ids.Generate(), payload)
	msg.Metadata.Set(MetaOp, op)
	if sessionID != "" {
		msg.Metadata.Set(MetaSessionID, sessionID)
	}
	msg.SetContext(ctx)

	if err := b.pub.Publish(topic, msg); err != nil {
		b.logger.Debug().Err(err).Str("topic", topic).Str("op", op).Msg("publish failed")
		return errors.Wrapf(err, "publish %s", op)
	}
	return nil
}
