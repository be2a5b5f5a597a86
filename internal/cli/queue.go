package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/truthtrail/internal/syncqueue"
)

// QueueSummary lists pending remote writes.
type QueueSummary struct {
	Total  int                        `json:"total"`
	ByType map[syncqueue.ItemType]int `json:"byType"`
	Items  []syncqueue.Item           `json:"items,omitempty"`
}

// String renders the summary as text.
func (q QueueSummary) String() string {
	if q.Total == 0 {
		return "Queue is empty"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pending: %d", q.Total)
	types := make([]string, 0, len(q.ByType))
	for t := range q.ByType {
		types = append(types, string(t))
	}
	slices.Sort(types)
	for _, t := range types {
		fmt.Fprintf(&b, "\n  %-12s %d", t, q.ByType[syncqueue.ItemType(t)])
	}
	for _, it := range q.Items {
		fmt.Fprintf(&b, "\n  %s %s retries=%d", it.ID, it.Type, it.Retries)
	}
	return b.String()
}

// NewQueueCommand creates the queue command.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show pending remote writes",
		Long: `Show the writes waiting in the outbox, counted by type.

With --verbose every item is listed with its retry count.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueue(rootOpts, cmd)
		},
	}
	return cmd
}

func runQueue(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts, cmd)
	a, err := openApp(ctx, opts, f, f.ErrWriter)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	counts := a.queue.Counts(ctx)
	summary := QueueSummary{Total: counts.Total, ByType: counts.ByType}
	if opts.Verbose {
		items, err := a.queue.Items(ctx)
		if err != nil {
			_ = f.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "read queue", err)
		}
		summary.Items = items
	}
	return f.Success(summary)
}
