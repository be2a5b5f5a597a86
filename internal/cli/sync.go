package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/truthtrail/internal/syncqueue"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Watch    bool
	Interval time.Duration
}

// SyncSummary reports one or more sync passes.
type SyncSummary struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// String renders the summary as text.
func (s SyncSummary) String() string {
	return fmt.Sprintf("Synced %d, dropped %d, pending %d", s.Success, s.Failed, s.Pending)
}

func (s *SyncSummary) add(r syncqueue.Result) {
	s.Success += r.Success
	s.Failed += r.Failed
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Deliver pending writes to the remote service",
		Long: `Deliver queued writes to the remote service in order.

A write that keeps failing is dropped after sync.max_retries passes.
With --watch, sync repeats every interval until interrupted.

Exit codes:
  0 - Pass completed (failures are retried on the next pass)
  2 - Command error (remote disabled, store unavailable)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "keep syncing every interval until interrupted")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "watch interval (default sync.interval from config)")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(ctx, opts.RootOptions, f, f.ErrWriter)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	if a.client == nil {
		_ = f.Error(ErrCodeRemote, "remote is disabled; set remote.enabled in the config", nil)
		return NewExitError(ExitCommandError, "remote is disabled")
	}

	var summary SyncSummary
	if opts.Watch {
		interval := opts.Interval
		if interval <= 0 {
			interval = a.cfg.Sync.Interval
		}
		if err := watchSync(ctx, a, interval, f, &summary); err != nil {
			_ = f.Error(ErrCodeRemote, err.Error(), nil)
			return WrapExitError(ExitCommandError, "sync", err)
		}
	} else {
		res, err := a.queue.Sync(ctx, a.client)
		if err != nil {
			_ = f.Error(ErrCodeRemote, err.Error(), nil)
			return WrapExitError(ExitCommandError, "sync", err)
		}
		summary.add(res)
	}

	// Watch ends by cancellation; the final count must still be read.
	summary.Pending = a.queue.Counts(context.WithoutCancel(ctx)).Total
	return f.Success(summary)
}

// watchSync runs a pass immediately and then every interval until ctx is
// done or the process is interrupted.
func watchSync(ctx context.Context, a *app, interval time.Duration, f *OutputFormatter, summary *SyncSummary) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	signals := make(chan struct{}, 1)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(signals)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case signals <- struct{}{}:
			default:
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	g.Go(func() error {
		err := a.queue.Watch(ctx, signals, a.client, func(r syncqueue.Result) {
			summary.add(r)
			f.Printf("Synced %d, dropped %d\n", r.Success, r.Failed)
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	f.VerboseLog("Watching the queue every %s", interval)
	return g.Wait()
}
