package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagtree/internal/label"
)

// OpOptions holds flags shared by the arena commands.
type OpOptions struct {
	*RootOptions
	Database string
	Chain    bool // decode only
}

// OpResult is the outcome of one intern, union or mark.
type OpResult struct {
	Op       string   `json:"op"`
	Position *uint32  `json:"position,omitempty"`
	Operands []string `json:"operands,omitempty"`
	Label    string   `json:"label,omitempty"`
	Raw      *uint32  `json:"raw,omitempty"`
	Marked   *bool    `json:"marked,omitempty"`
}

func (r OpResult) String() string {
	var arg string
	if r.Position != nil {
		arg = strconv.FormatUint(uint64(*r.Position), 10)
	} else {
		arg = strings.Join(r.Operands, ", ")
	}
	if r.Marked != nil {
		return fmt.Sprintf("%s(%s) = %t", r.Op, arg, *r.Marked)
	}
	return fmt.Sprintf("%s(%s) = %s", r.Op, arg, r.Label)
}

// OpsResult holds every op a command applied.
type OpsResult struct {
	Session string     `json:"session"`
	Results []OpResult `json:"results"`
}

func (r OpsResult) String() string {
	lines := make([]string, len(r.Results))
	for i, res := range r.Results {
		lines[i] = res.String()
	}
	return strings.Join(lines, "\n")
}

func labelResult(op string, l label.Label) OpResult {
	raw := uint32(l)
	return OpResult{Op: op, Label: l.String(), Raw: &raw}
}

func addDatabaseFlag(cmd *cobra.Command, opts *OpOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to the configured db)")
}

// NewInternCommand creates the intern command.
func NewInternCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "intern <position>...",
		Short: "Intern singleton sets",
		Long: `Return the label of the singleton set {position} for each argument.

Interning the same position twice usually returns the same label. An
intern of a smaller position in between can split the gap in front of it,
after which the same position gets a new label that decodes to the same
set.

Examples:
  tagtree intern --db ./tagtree.db 3 4 10
  tagtree intern 42 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			positions := make([]uint32, len(args))
			for i, arg := range args {
				pos, err := strconv.ParseUint(arg, 10, 32)
				if err != nil {
					return badArgument(opts.formatter(cmd), fmt.Sprintf("invalid position %q", arg), err)
				}
				positions[i] = uint32(pos)
			}
			return runOps(opts, cmd, func(ctx context.Context, a *openedArena) ([]OpResult, error) {
				results := make([]OpResult, 0, len(positions))
				for _, pos := range positions {
					l, err := a.engine.Intern(ctx, a.session, pos)
					if err != nil {
						return results, err
					}
					res := labelResult("intern", l)
					res.Position = &pos
					results = append(results, res)
				}
				return results, nil
			})
		},
	}

	addDatabaseFlag(cmd, opts)
	return cmd
}

// NewUnionCommand creates the union command.
func NewUnionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "union <label> <label>",
		Short: "Union two labelled sets",
		Long: `Return the label of the union of two sets.

Labels are written as printed by the other commands ("12", "12+ext") or as
raw 32-bit integers ("0xF000000C").

Examples:
  tagtree union --db ./tagtree.db 2 4
  tagtree union 2+ext 7`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := parseLabels(opts.formatter(cmd), args)
			if err != nil {
				return err
			}
			return runOps(opts, cmd, func(ctx context.Context, a *openedArena) ([]OpResult, error) {
				l, err := a.engine.Union(ctx, a.session, labels[0], labels[1])
				if err != nil {
					return nil, err
				}
				res := labelResult("union", l)
				res.Operands = []string{labels[0].String(), labels[1].String()}
				return []OpResult{res}, nil
			})
		},
	}

	addDatabaseFlag(cmd, opts)
	return cmd
}

// NewMarkCommand creates the mark command.
func NewMarkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mark <label>",
		Short: "Mark the last run of a labelled set",
		Long: `Set the sticky mark on the node a label names.

The mark shows up in decoded ranges and is carried into every union that
reuses the node.

Example:
  tagtree mark --db ./tagtree.db 9`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := parseLabels(opts.formatter(cmd), args)
			if err != nil {
				return err
			}
			return runOps(opts, cmd, func(ctx context.Context, a *openedArena) ([]OpResult, error) {
				ok, err := a.engine.Mark(ctx, a.session, labels[0])
				if err != nil {
					return nil, err
				}
				return []OpResult{{
					Op:       "mark",
					Operands: []string{labels[0].String()},
					Marked:   &ok,
				}}, nil
			})
		},
	}

	addDatabaseFlag(cmd, opts)
	return cmd
}

// DecodeResult is the output of the decode command.
type DecodeResult struct {
	Label    string   `json:"label"`
	Extended bool     `json:"extended"`
	Ranges   []string `json:"ranges"`
	Chain    []uint32 `json:"chain,omitempty"`
}

func (r DecodeResult) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: {%s}", r.Label, strings.Join(r.Ranges, " "))
	if r.Chain != nil {
		ids := make([]string, len(r.Chain))
		for i, id := range r.Chain {
			ids[i] = strconv.FormatUint(uint64(id), 10)
		}
		fmt.Fprintf(&buf, "\nchain: %s", strings.Join(ids, " -> "))
	}
	return buf.String()
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <label>",
		Short: "Decode a label into its ranges",
		Long: `Print the set a label names as ascending [begin,end) ranges.

Marked ranges carry a trailing "*". With --chain, also print the node ids
from the label up to the root; labels that share a prefix share these
nodes.

Examples:
  tagtree decode --db ./tagtree.db 9
  tagtree decode 9 --chain --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			labels, err := parseLabels(formatter, args)
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := openArena(ctx, opts.RootOptions, opts.Database, opts.newLogger(cmd.ErrOrStderr()))
			if err != nil {
				return commandFailed(formatter, err)
			}
			defer a.Close()

			d, err := a.engine.Decode(ctx, labels[0])
			if err != nil {
				return commandFailed(formatter, WrapExitError(ExitCommandError, "decode failed", err))
			}

			result := DecodeResult{
				Label:    d.Label.String(),
				Extended: d.Extended,
				Ranges:   make([]string, len(d.Ranges)),
			}
			for i, r := range d.Ranges {
				result.Ranges[i] = r.String()
			}
			if opts.Chain {
				result.Chain = d.Chain
				if result.Chain == nil {
					result.Chain = []uint32{}
				}
			}
			return formatter.Success(result)
		},
	}

	addDatabaseFlag(cmd, opts)
	cmd.Flags().BoolVar(&opts.Chain, "chain", false, "print the node chain")
	return cmd
}

// runOps opens the arena, applies fn and prints what it returned.
func runOps(opts *OpOptions, cmd *cobra.Command, fn func(context.Context, *openedArena) ([]OpResult, error)) error {
	formatter := opts.formatter(cmd)
	ctx := context.Background()

	a, err := openArena(ctx, opts.RootOptions, opts.Database, opts.newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return commandFailed(formatter, err)
	}

	results, opErr := fn(ctx, a)
	closeErr := a.Close()

	if opErr != nil {
		return commandFailed(formatter, WrapExitError(ExitCommandError, "operation failed", opErr))
	}
	if closeErr != nil {
		return commandFailed(formatter, WrapExitError(ExitCommandError, "failed to close arena", closeErr))
	}

	return formatter.Success(OpsResult{Session: a.session, Results: results})
}

func parseLabels(formatter *OutputFormatter, args []string) ([]label.Label, error) {
	labels := make([]label.Label, len(args))
	for i, arg := range args {
		l, err := label.Parse(arg)
		if err != nil {
			return nil, badArgument(formatter, fmt.Sprintf("invalid label %q", arg), err)
		}
		labels[i] = l
	}
	return labels, nil
}

func badArgument(formatter *OutputFormatter, message string, err error) error {
	_ = formatter.Error(ErrCodeBadArgument, message, err.Error())
	return WrapExitError(ExitCommandError, message, err)
}

// commandFailed reports err in the configured format and returns it.
func commandFailed(formatter *OutputFormatter, err error) error {
	code := ErrCodeEngine
	var loadErr *LoadError
	switch {
	case errors.As(err, &loadErr):
		code = loadErr.Code
	case GetExitCode(err) == ExitFailure:
		code = ErrCodeDeterminism
	}
	if formatter.IsJSON() {
		_ = formatter.Error(code, err.Error(), nil)
	}
	return err
}
