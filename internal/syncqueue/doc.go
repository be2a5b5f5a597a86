// Package syncqueue is the durable outbox of pending remote writes.
//
// Every completed remote-bound operation (game record, reflection, claim
// submission, achievement share) is appended as a typed Item and persisted
// as one JSON array under a single key. Sync walks the queue and dispatches
// each item to the matching remote.Client call.
//
// DELIVERY:
//
// At-least-once with a bounded attempt budget. A failed item has its retry
// count incremented; once it reaches MaxRetries (3) it is dropped and counted
// as failed. No idempotency key travels with a retry, so a remote write that
// partially succeeded and is retried may be applied twice server-side.
//
// CONSISTENCY:
//
// The persisted array is the single source of truth and is re-read on every
// mutation, so Enqueue/Dequeue from unrelated code paths interleave safely
// with a running Sync. Sync itself is not reentrant: a second concurrent
// call returns ErrSyncInProgress instead of racing the first.
package syncqueue
