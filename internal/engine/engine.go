package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/tagtree/internal/ir"
	"github.com/roach88/tagtree/internal/label"
	"github.com/roach88/tagtree/internal/store"
)

// Engine is the single-writer loop that owns a label.Tree.
//
// The tree has no locking of its own, so every read and write goes through
// the Run goroutine. Callers submit requests from any goroutine and wait
// for the reply.
//
// Thread-safety model:
//   - Intern, Union, Mark, Decode, Stats, Snapshot: safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - NewSession(): safe from any goroutine (delegates to the generator)
type Engine struct {
	tree     *label.Tree
	store    *store.Store // nil: ops are applied but not recorded
	clock    Sequencer
	queue    *requestQueue
	sessions SessionGenerator
	logger   *slog.Logger

	// snapshotEvery > 0 writes a snapshot after every n-th recorded op.
	snapshotEvery int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the default clock. Used to resume numbering after
// replay and to plug in a deterministic clock in tests.
func WithClock(c Sequencer) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSnapshotEvery writes an arena snapshot after every n-th recorded op.
// Zero disables automatic snapshots.
func WithSnapshotEvery(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.snapshotEvery = int64(n)
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over tree. st may be nil, in which case ops are
// applied but never persisted.
func New(tree *label.Tree, st *store.Store, sessions SessionGenerator, opts ...Option) *Engine {
	e := &Engine{
		tree:     tree,
		store:    st,
		clock:    NewClock(),
		queue:    newRequestQueue(),
		sessions: sessions,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// NewSession generates a new session token.
func (e *Engine) NewSession() string {
	return e.sessions.Generate()
}

// Run starts the single-writer loop.
// Blocks until ctx is cancelled or Stop() is called.
//
// Requests accepted before Stop are still applied. When ctx is cancelled
// the remaining requests are answered with ErrStopped.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting",
		"nodes", e.tree.Len(),
		"capacity", e.tree.Capacity(),
		"seq", e.clock.Current(),
	)

	for {
		if req, ok := e.queue.TryDequeue(); ok {
			req.reply <- e.apply(ctx, req)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.drain()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed.
			if e.queue.Drained() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Closes the request queue, which will cause Run() to return.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) drain() {
	for {
		req, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		req.reply <- response{err: ErrStopped}
	}
}

// submit enqueues req and waits for the loop to answer it.
func (e *Engine) submit(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)
	if !e.queue.Enqueue(req) {
		return response{}, ErrStopped
	}

	select {
	case <-ctx.Done():
		return response{}, ctx.Err()
	case resp := <-req.reply:
		return resp, resp.err
	}
}

// Intern returns the label of the singleton set {pos}.
func (e *Engine) Intern(ctx context.Context, session string, pos uint32) (label.Label, error) {
	resp, err := e.submit(ctx, request{kind: requestIntern, session: session, pos: pos})
	return resp.label, err
}

// Union returns the label of the union of a and b.
func (e *Engine) Union(ctx context.Context, session string, a, b label.Label) (label.Label, error) {
	resp, err := e.submit(ctx, request{kind: requestUnion, session: session, a: a, b: b})
	return resp.label, err
}

// Mark promotes the mark on l's last run. It reports false for empty and
// unknown labels.
func (e *Engine) Mark(ctx context.Context, session string, l label.Label) (bool, error) {
	resp, err := e.submit(ctx, request{kind: requestMark, session: session, a: l})
	return resp.marked, err
}

// Decoded is the expanded form of a label.
type Decoded struct {
	Label    label.Label   `json:"label"`
	Extended bool          `json:"extended"`
	Ranges   []label.Range `json:"ranges"`
	Chain    []uint32      `json:"chain"`
}

// Contains reports whether pos lies in one of the decoded ranges.
func (d Decoded) Contains(pos uint32) bool {
	for _, r := range d.Ranges {
		if pos >= r.Begin && pos < r.End {
			return true
		}
	}
	return false
}

// Decode expands l into its ranges and node chain. It never mutates the
// arena and is not recorded.
func (e *Engine) Decode(ctx context.Context, l label.Label) (Decoded, error) {
	resp, err := e.submit(ctx, request{kind: requestDecode, a: l})
	return resp.decoded, err
}

// Stats describes the arena at a point in the request order.
type Stats struct {
	Nodes     int   `json:"nodes"`
	Capacity  int   `json:"capacity"`
	Saturated bool  `json:"saturated"`
	Seq       int64 `json:"seq"`
}

// Stats reports the arena size and the current seq.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	resp, err := e.submit(ctx, request{kind: requestStats})
	return resp.stats, err
}

// Snapshot copies the arena and, when a store is attached, persists it.
func (e *Engine) Snapshot(ctx context.Context) (ir.Snapshot, error) {
	resp, err := e.submit(ctx, request{kind: requestSnapshot})
	if resp.snapshot == nil {
		return ir.Snapshot{}, err
	}
	return *resp.snapshot, err
}

// apply runs one request against the tree.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) apply(ctx context.Context, req request) response {
	switch req.kind {
	case requestIntern:
		l := e.tree.Intern(req.pos)
		e.warnIfSaturated(req, l)
		err := e.record(ctx, req.session, ir.Op{Kind: ir.OpIntern, Position: req.pos, Result: uint32(l)})
		return response{label: l, err: err}

	case requestUnion:
		l := e.tree.Union(req.a, req.b)
		e.warnIfSaturated(req, l)
		err := e.record(ctx, req.session, ir.Op{Kind: ir.OpUnion, Left: uint32(req.a), Right: uint32(req.b), Result: uint32(l)})
		return response{label: l, err: err}

	case requestMark:
		ok := e.tree.Mark(req.a)
		var result uint32
		if ok {
			result = 1
		}
		err := e.record(ctx, req.session, ir.Op{Kind: ir.OpMark, Left: uint32(req.a), Result: result})
		return response{marked: ok, err: err}

	case requestDecode:
		return response{decoded: Decoded{
			Label:    req.a,
			Extended: req.a.Extended(),
			Ranges:   e.tree.Decode(req.a),
			Chain:    e.tree.Chain(req.a),
		}}

	case requestStats:
		return response{stats: Stats{
			Nodes:     e.tree.Len(),
			Capacity:  e.tree.Capacity(),
			Saturated: e.tree.Saturated(),
			Seq:       e.clock.Current(),
		}}

	case requestSnapshot:
		snap, err := e.snapshot(ctx)
		return response{snapshot: snap, err: err}

	default:
		return response{err: &RuntimeError{
			Code:    ErrCodeUnknownRequest,
			Message: "unknown request kind " + req.kind.String(),
		}}
	}
}

// record stamps op with the next seq and appends it to the op log.
func (e *Engine) record(ctx context.Context, session string, op ir.Op) error {
	op.Session = session
	op.Seq = e.clock.Next()
	op.FormatVersion = ir.FormatVersion

	e.logger.Debug("op applied",
		"kind", op.Kind,
		"session", op.Session,
		"seq", op.Seq,
		"result", label.Label(op.Result),
	)

	if e.store == nil {
		return nil
	}

	id, err := ir.OpID(op)
	if err != nil {
		return newPersistError(session, op.Seq, err)
	}
	op.ID = id

	if err := e.store.WriteOp(ctx, op); err != nil {
		e.logger.Error("op log write failed",
			"error", err,
			"op_id", op.ID,
			"session", op.Session,
			"seq", op.Seq,
		)
		return newPersistError(session, op.Seq, err)
	}

	if e.snapshotEvery > 0 && op.Seq%e.snapshotEvery == 0 {
		if _, err := e.snapshot(ctx); err != nil {
			// The op itself is durable; a missed snapshot only costs replay time.
			e.logger.Warn("automatic snapshot failed", "error", err, "seq", op.Seq)
		}
	}

	return nil
}

func (e *Engine) warnIfSaturated(req request, l label.Label) {
	if l.IsEmpty() && e.tree.Saturated() {
		e.logger.Warn("arena saturated, returning empty label",
			"request", req.kind.String(),
			"session", req.session,
			"capacity", e.tree.Capacity(),
		)
	}
}
