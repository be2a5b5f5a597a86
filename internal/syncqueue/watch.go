package syncqueue

import (
	"context"

	"github.com/pkg/errors"

	"github.com/roach88/truthtrail/internal/remote"
)

// Watch runs Sync every time signals fires (a reconnect, a timer tick) until
// ctx is done or signals is closed. notify, if set, receives every non-empty
// Result. A pass that overlaps a running Sync is skipped.
func (q *Queue) Watch(ctx context.Context, signals <-chan struct{}, client remote.Client, notify func(Result)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-signals:
			if !ok {
				return nil
			}
		}

		res, err := q.Sync(ctx, client)
		switch {
		case errors.Is(err, ErrSyncInProgress):
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			q.logger.Warn().Err(err).Msg("background sync failed")
			continue
		}
		if notify != nil && !res.Empty() {
			notify(res)
		}
	}
}
