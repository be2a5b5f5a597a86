package syncqueue

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/roach88/truthtrail/internal/remote"
)

// Result reports one Sync pass.
type Result struct {
	// Success counts items delivered and removed.
	Success int `json:"success"`
	// Failed counts items dropped after exhausting their retries.
	Failed int `json:"failed"`
}

// Empty reports whether the pass changed nothing.
func (r Result) Empty() bool {
	return r.Success == 0 && r.Failed == 0
}

// achievementPayload is the Data shape of TypeAchievement items.
type achievementPayload struct {
	Achievement json.RawMessage `json:"achievement"`
	Player      json.RawMessage `json:"player"`
}

// Sync dispatches every queued item once, in order.
//
// A delivered item is removed. A failed item has its retry count
// incremented and is dropped once it reaches MaxRetries. Items removed by
// someone else while the pass runs are skipped. When the client is nil or
// not ready Sync is a no-op returning an empty Result.
//
// Cancelling ctx stops the pass before the next item; state already
// written stays written.
func (q *Queue) Sync(ctx context.Context, client remote.Client) (Result, error) {
	var res Result
	if client == nil || !client.Ready() {
		q.logger.Debug().Msg("sync skipped, remote not ready")
		return res, nil
	}
	if !q.syncing.CompareAndSwap(false, true) {
		return res, ErrSyncInProgress
	}
	defer q.syncing.Store(false)

	items, err := q.Items(ctx)
	if err != nil {
		return res, err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if !q.contains(ctx, item.ID) {
			continue
		}

		dispatchErr := dispatch(ctx, client, item)
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if dispatchErr == nil {
			if q.Dequeue(ctx, item.ID) {
				res.Success++
			}
			continue
		}

		dropped, err := q.recordFailure(ctx, item.ID)
		if err != nil {
			q.logger.Warn().Err(err).Str("id", item.ID).Msg("recording sync failure")
			continue
		}
		if dropped {
			res.Failed++
			q.logger.Error().
				Err(dispatchErr).
				Str("id", item.ID).
				Str("type", string(item.Type)).
				Int("retries", q.maxRetries).
				Msg("dropping queue item after max retries")
		} else {
			q.logger.Warn().Err(dispatchErr).Str("id", item.ID).Msg("sync attempt failed")
		}
	}

	if !res.Empty() {
		q.logger.Info().Int("success", res.Success).Int("failed", res.Failed).Msg("sync pass complete")
	}
	return res, nil
}

// contains re-reads the persisted queue for id.
func (q *Queue) contains(ctx context.Context, id string) bool {
	items, err := q.Items(ctx)
	if err != nil {
		return false
	}
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

// recordFailure increments the retry count of id, removing the item when
// the budget is spent. Returns true when the item was dropped.
func (q *Queue) recordFailure(ctx context.Context, id string) (bool, error) {
	dropped := false
	err := q.mutate(ctx, func(items []Item) ([]Item, bool) {
		out := items[:0:0]
		found := false
		for _, it := range items {
			if it.ID != id {
				out = append(out, it)
				continue
			}
			found = true
			it.Retries++
			if it.Retries >= q.maxRetries {
				dropped = true
				continue
			}
			out = append(out, it)
		}
		return out, found
	})
	return dropped, err
}

func dispatch(ctx context.Context, client remote.Client, item Item) error {
	switch item.Type {
	case TypeGame:
		return client.SaveGameRecord(ctx, item.Data)
	case TypeReflection:
		return client.SaveReflection(ctx, item.Data)
	case TypeClaim:
		return client.SubmitClaim(ctx, item.Data)
	case TypeAchievement:
		var p achievementPayload
		if err := json.Unmarshal(item.Data, &p); err != nil {
			return errors.Wrap(err, "decode achievement payload")
		}
		return client.ShareAchievement(ctx, p.Achievement, p.Player)
	default:
		return errors.Wrapf(ErrUnknownType, "%q", item.Type)
	}
}
