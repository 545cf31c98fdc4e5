package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tagtree/internal/engine"
	"github.com/roach88/tagtree/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplaySummary holds the replay result.
type ReplaySummary struct {
	SnapshotID    string            `json:"snapshot_id,omitempty"`
	Ops           int               `json:"ops"`
	TotalOps      int               `json:"total_ops"`
	Nodes         int               `json:"nodes"`
	Capacity      int               `json:"capacity"`
	LastSeq       int64             `json:"last_seq"`
	Mismatches    []engine.Mismatch `json:"mismatches"`
	SnapshotMatch bool              `json:"snapshot_match"`
	Deterministic bool              `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the op log and verify determinism",
		Long: `Rebuild the arena from the op log and verify determinism.

The arena is rebuilt twice: once from the latest snapshot plus the ops after
it, and once from the whole log. Every recorded result label must be
reproduced, and both rebuilds must hold identical nodes.

Exit codes:
  0 - The log replays deterministically
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not readable, etc.)

Examples:
  tagtree replay --db ./tagtree.db
  tagtree replay --db ./tagtree.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to the configured db)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	cfg, err := opts.config()
	if err != nil {
		return commandFailed(formatter, err)
	}
	path, err := opts.database(opts.Database)
	if err != nil {
		return commandFailed(formatter, err)
	}

	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	summary, err := replayAndVerify(ctx, st, cfg.Capacity)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, "failed to replay op log", err.Error())
		return WrapExitError(ExitCommandError, "failed to replay op log", err)
	}
	formatter.VerboseLog("replayed %d of %d ops on top of snapshot %q", summary.Ops, summary.TotalOps, summary.SnapshotID)

	if summary.Deterministic {
		return formatter.Success(summary)
	}

	// Determinism failure = exit code 1
	if err := formatter.Failure(ErrCodeDeterminism, "determinism verification failed", summary); err != nil {
		return err
	}
	if !formatter.IsJSON() {
		fmt.Fprintln(formatter.Writer, summary)
	}
	return NewExitError(ExitFailure, "determinism verification failed")
}

// replayAndVerify rebuilds the arena from the snapshot and from scratch and
// compares the two.
func replayAndVerify(ctx context.Context, st *store.Store, capacity int) (ReplaySummary, error) {
	fromSnapshot, err := engine.Replay(ctx, st, engine.ReplayOptions{Capacity: capacity})
	if err != nil {
		return ReplaySummary{}, fmt.Errorf("replay from snapshot: %w", err)
	}

	full, err := engine.Replay(ctx, st, engine.ReplayOptions{Capacity: capacity, FromScratch: true})
	if err != nil {
		return ReplaySummary{}, fmt.Errorf("replay from scratch: %w", err)
	}

	// Mismatches in the tail appear in both replays; report each op once.
	mismatches := slices.Clone(full.Mismatches)
	for _, m := range fromSnapshot.Mismatches {
		if !slices.ContainsFunc(mismatches, func(o engine.Mismatch) bool { return o.Op.ID == m.Op.ID }) {
			mismatches = append(mismatches, m)
		}
	}
	if mismatches == nil {
		mismatches = []engine.Mismatch{}
	}

	snapshotMatch := slices.Equal(fromSnapshot.Tree.Nodes(), full.Tree.Nodes())

	return ReplaySummary{
		SnapshotID:    fromSnapshot.SnapshotID,
		Ops:           fromSnapshot.Ops,
		TotalOps:      full.Ops,
		Nodes:         full.Tree.Len(),
		Capacity:      full.Tree.Capacity(),
		LastSeq:       full.LastSeq,
		Mismatches:    mismatches,
		SnapshotMatch: snapshotMatch,
		Deterministic: len(mismatches) == 0 && snapshotMatch,
	}, nil
}

func (s ReplaySummary) String() string {
	status := "✓"
	if !s.Deterministic {
		status = "✗"
	}

	out := fmt.Sprintf("Replay Summary: %d op(s), %d node(s), last seq %d\n", s.TotalOps, s.Nodes, s.LastSeq)
	if s.SnapshotID != "" {
		out += fmt.Sprintf("  Snapshot: %s (+%d ops)\n", s.SnapshotID, s.Ops)
		if !s.SnapshotMatch {
			out += "  Warning: snapshot replay differs from full replay!\n"
		}
	}
	for _, m := range s.Mismatches {
		out += fmt.Sprintf("  Mismatch: %s\n", m)
	}

	if s.Deterministic {
		return out + status + " Op log verified deterministic"
	}
	return out + status + " Determinism verification failed"
}
