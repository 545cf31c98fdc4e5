package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagtree/internal/ir"
	"github.com/roach88/tagtree/internal/label"
	"github.com/roach88/tagtree/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
	Kind     string // optional - filter to one op kind
}

// LogEntry is a single op in the timeline.
type LogEntry struct {
	Seq      int64  `json:"seq"`
	ID       string `json:"id"`
	Session  string `json:"session"`
	Kind     string `json:"kind"`
	Position uint32 `json:"position,omitempty"`
	Left     string `json:"left,omitempty"`
	Right    string `json:"right,omitempty"`
	Result   string `json:"result"`
}

// LogStats holds summary statistics for the timeline.
type LogStats struct {
	TotalOps int `json:"total_ops"`
	Interns  int `json:"interns"`
	Unions   int `json:"unions"`
	Marks    int `json:"marks"`
}

// LogResult holds the complete log output.
type LogResult struct {
	Session  string                 `json:"session,omitempty"`
	Sessions []store.SessionSummary `json:"sessions"`
	Timeline []LogEntry             `json:"timeline"`
	Stats    LogStats               `json:"stats"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the op timeline",
		Long: `Show recorded ops in seq order.

The output includes:
- Sessions: every session token with its op count and seq span
- Timeline: the ops, optionally restricted to one session or kind
- Stats: op counts per kind

Examples:
  tagtree log --db ./tagtree.db
  tagtree log --db ./tagtree.db --session 01928f4e-...
  tagtree log --db ./tagtree.db --kind union --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to the configured db)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "show one session only")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one op kind (intern|union|mark)")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	if opts.Kind != "" && !ir.OpKind(opts.Kind).Valid() {
		return badArgument(formatter, fmt.Sprintf("invalid kind %q", opts.Kind),
			fmt.Errorf("must be one of intern, union, mark"))
	}

	path, err := opts.database(opts.Database)
	if err != nil {
		return commandFailed(formatter, err)
	}

	// Open database
	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result, err := buildLog(ctx, st, opts.Session, ir.OpKind(opts.Kind))
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, "failed to read op log", err.Error())
		return WrapExitError(ExitCommandError, "failed to read op log", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputLogText(formatter, result)
	return nil
}

// buildLog reads the timeline. An empty kind keeps every op.
func buildLog(ctx context.Context, st *store.Store, session string, kind ir.OpKind) (LogResult, error) {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return LogResult{}, err
	}

	var ops []ir.Op
	if session != "" {
		ops, err = st.ReadSessionOps(ctx, session)
	} else {
		ops, err = st.ReadOps(ctx, 0)
	}
	if err != nil {
		return LogResult{}, err
	}

	result := LogResult{
		Session:  session,
		Sessions: sessions,
		Timeline: []LogEntry{},
	}
	for _, op := range ops {
		if kind != "" && op.Kind != kind {
			continue
		}
		result.Timeline = append(result.Timeline, toLogEntry(op))

		switch op.Kind {
		case ir.OpIntern:
			result.Stats.Interns++
		case ir.OpUnion:
			result.Stats.Unions++
		case ir.OpMark:
			result.Stats.Marks++
		}
	}
	result.Stats.TotalOps = len(result.Timeline)

	return result, nil
}

func toLogEntry(op ir.Op) LogEntry {
	entry := LogEntry{
		Seq:     op.Seq,
		ID:      op.ID,
		Session: op.Session,
		Kind:    string(op.Kind),
	}
	switch op.Kind {
	case ir.OpIntern:
		entry.Position = op.Position
		entry.Result = label.Label(op.Result).String()
	case ir.OpUnion:
		entry.Left = label.Label(op.Left).String()
		entry.Right = label.Label(op.Right).String()
		entry.Result = label.Label(op.Result).String()
	case ir.OpMark:
		entry.Left = label.Label(op.Left).String()
		entry.Result = fmt.Sprintf("%t", op.Result == 1)
	}
	return entry
}

func (e LogEntry) String() string {
	var call string
	switch e.Kind {
	case string(ir.OpIntern):
		call = fmt.Sprintf("intern(%d)", e.Position)
	case string(ir.OpUnion):
		call = fmt.Sprintf("union(%s, %s)", e.Left, e.Right)
	default:
		call = fmt.Sprintf("%s(%s)", e.Kind, e.Left)
	}
	return fmt.Sprintf("[%d] %s = %s", e.Seq, call, e.Result)
}

// outputLogText outputs the log as text.
func outputLogText(formatter *OutputFormatter, result LogResult) {
	w := formatter.Writer

	if len(result.Sessions) == 0 {
		fmt.Fprintln(w, "No ops found in database.")
		return
	}

	if result.Session == "" {
		fmt.Fprintf(w, "Sessions: %d\n", len(result.Sessions))
		for _, s := range result.Sessions {
			fmt.Fprintf(w, "  %s: %d op(s), seq %d-%d\n", s.Session, s.Ops, s.FirstSeq, s.LastSeq)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "Session: %s\n\n", result.Session)
	}

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No matching ops.")
		return
	}

	fmt.Fprintln(w, "Timeline:")
	for _, e := range result.Timeline {
		line := e.String()
		if formatter.Verbose {
			line += fmt.Sprintf("  (%s, %s)", shortID(e.ID), e.Session)
		}
		fmt.Fprintf(w, "  %s\n", line)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d op(s): %s\n", result.Stats.TotalOps, strings.Join([]string{
		fmt.Sprintf("%d intern", result.Stats.Interns),
		fmt.Sprintf("%d union", result.Stats.Unions),
		fmt.Sprintf("%d mark", result.Stats.Marks),
	}, ", "))
}

// shortID truncates an op id for display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
