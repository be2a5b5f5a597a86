package cli

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/roach88/truthtrail/internal/clock"
	"github.com/roach88/truthtrail/internal/config"
	"github.com/roach88/truthtrail/internal/kv"
	"github.com/roach88/truthtrail/internal/live"
	"github.com/roach88/truthtrail/internal/logging"
	"github.com/roach88/truthtrail/internal/remote"
	"github.com/roach88/truthtrail/internal/session"
	"github.com/roach88/truthtrail/internal/snapshot"
	"github.com/roach88/truthtrail/internal/syncqueue"
)

// ClientFactory connects the remote client for a configuration. A nil
// client with a nil error means the remote is disabled.
type ClientFactory func(ctx context.Context, cfg config.Config, logger zerolog.Logger) (remote.Client, error)

// redisClient connects the redis stream bus when the remote is enabled.
func redisClient(ctx context.Context, cfg config.Config, logger zerolog.Logger) (remote.Client, error) {
	if !cfg.Remote.Enabled {
		return nil, nil
	}
	bus, err := remote.NewRedisBus(cfg.Remote.RedisAddr, remote.WithBusLogger(logging.Component(logger, "remote")))
	if err != nil {
		return nil, err
	}
	if err := bus.Init(ctx); err != nil {
		_ = bus.Teardown(ctx)
		return nil, err
	}
	return bus, nil
}

// app holds the components shared by the commands.
type app struct {
	cfg       config.Config
	logger    zerolog.Logger
	clock     clock.Clock
	store     kv.Store
	snapshots *snapshot.Store
	queue     *syncqueue.Queue
	client    remote.Client
}

// openApp loads configuration, sets up logging and opens the store and the
// remote client. Failures are reported through f and returned as command
// errors.
func openApp(ctx context.Context, opts *RootOptions, f *OutputFormatter, logs io.Writer) (*app, error) {
	fail := func(code, msg string, err error) (*app, error) {
		exitErr := WrapExitError(ExitCommandError, msg, err)
		_ = f.Error(code, exitErr.Error(), nil)
		return nil, exitErr
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fail(ErrCodeConfig, "load config", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = zerolog.LevelDebugValue
	}
	logger, err := logging.Setup(level, cfg.Log.Format, logs)
	if err != nil {
		return fail(ErrCodeConfig, "set up logging", err)
	}

	store, err := kv.Open(ctx, cfg.KVOptions())
	if err != nil {
		return fail(ErrCodeStore, "open store", err)
	}

	connect := opts.connect
	if connect == nil {
		connect = redisClient
	}
	client, err := connect(ctx, cfg, logger)
	if err != nil {
		_ = kv.Close(store)
		return fail(ErrCodeRemote, "connect remote", err)
	}

	clk := clock.System{}
	return &app{
		cfg:    cfg,
		logger: logger,
		clock:  clk,
		store:  store,
		snapshots: snapshot.New(store, clk,
			snapshot.WithTTL(cfg.SnapshotTTL),
			snapshot.WithLogger(logging.Component(logger, "snapshot")),
		),
		queue: syncqueue.New(store, clk,
			syncqueue.WithMaxRetries(cfg.Sync.MaxRetries),
			syncqueue.WithLogger(logging.Component(logger, "syncqueue")),
		),
		client: client,
	}, nil
}

// publisher returns the live progress publisher, disabled without a client.
func (a *app) publisher() *live.Publisher {
	return live.New(a.client, a.clock,
		live.WithAttempts(a.cfg.Live.CleanupAttempts),
		live.WithDelay(a.cfg.Live.CleanupDelay),
		live.WithLogger(logging.Component(a.logger, "live")),
	)
}

// machine starts a session machine over the app's components.
func (a *app) machine(ctx context.Context, opts ...session.Option) *session.Machine {
	opts = append([]session.Option{session.WithLogger(logging.Component(a.logger, "session"))}, opts...)
	return session.New(ctx, session.Deps{
		Snapshots: a.snapshots,
		Queue:     a.queue,
		Live:      a.publisher(),
		Clock:     a.clock,
	}, opts...)
}

// remoteReady reports whether a connected client can take writes.
func (a *app) remoteReady() bool {
	return a.client != nil && a.client.Ready()
}

// Close tears down the remote client and closes the store.
func (a *app) Close(ctx context.Context) error {
	var first error
	if lc, ok := a.client.(remote.Lifecycle); ok {
		if err := lc.Teardown(ctx); err != nil {
			first = errors.Wrap(err, "teardown remote")
		}
	}
	if err := kv.Close(a.store); err != nil && first == nil {
		first = errors.Wrap(err, "close store")
	}
	return first
}
