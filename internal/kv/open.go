package kv

import (
	"context"

	"github.com/pkg/errors"
)

// Backend kinds accepted by Open.
const (
	KindSQLite = "sqlite"
	KindRedis  = "redis"
	KindMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Kind        string
	Path        string // sqlite database file
	RedisAddr   string
	RedisPrefix string
}

// Open builds the backend named by opts.Kind.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Kind {
	case KindSQLite, "":
		if opts.Path == "" {
			return nil, errors.New("sqlite store requires a database path")
		}
		return OpenSQLite(opts.Path)
	case KindRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPrefix)
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, errors.Errorf("unknown store kind %q", opts.Kind)
	}
}
