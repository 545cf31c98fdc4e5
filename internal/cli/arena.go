package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tagtree/internal/engine"
	"github.com/roach88/tagtree/internal/store"
)

// openedArena is a running engine over the arena recorded in a database.
type openedArena struct {
	store   *store.Store
	engine  *engine.Engine
	replay  engine.ReplayResult
	session string
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan error
}

// openArena opens the database, rebuilds the arena from its op log and
// starts an engine on it. New ops continue the log's seq numbering.
//
// A log that does not replay deterministically is refused: new ops would
// be recorded against labels that no longer mean what the log says.
func openArena(ctx context.Context, opts *RootOptions, dbFlag string, logger *slog.Logger) (*openedArena, error) {
	cfg, err := opts.config()
	if err != nil {
		return nil, err
	}
	path, err := opts.database(dbFlag)
	if err != nil {
		return nil, err
	}

	logger.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	res, err := engine.Replay(ctx, st, engine.ReplayOptions{Capacity: cfg.Capacity})
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to replay op log", err)
	}
	if !res.Deterministic() {
		st.Close()
		return nil, WrapExitError(ExitFailure, "op log does not replay deterministically",
			errors.New(res.Mismatches[0].String()))
	}
	logger.Debug("arena rebuilt",
		"snapshot_id", res.SnapshotID,
		"ops", res.Ops,
		"nodes", res.Tree.Len(),
		"seq", res.LastSeq,
	)

	eng := engine.New(res.Tree, st, opts.sessions(),
		engine.WithClock(engine.NewClockAt(res.LastSeq)),
		engine.WithSnapshotEvery(cfg.SnapshotEvery),
		engine.WithLogger(logger),
	)

	runCtx, cancel := context.WithCancel(ctx)
	a := &openedArena{
		store:   st,
		engine:  eng,
		replay:  res,
		session: eng.NewSession(),
		logger:  logger,
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() { a.done <- eng.Run(runCtx) }()

	return a, nil
}

// Close stops the engine after pending requests and closes the database.
func (a *openedArena) Close() error {
	a.engine.Stop()
	runErr := <-a.done
	a.cancel()

	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("engine: %w", runErr)
	}
	return nil
}
