package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/klingon-exchange/ledger-indexer/internal/storage"
	"github.com/klingon-exchange/ledger-indexer/pkg/logging"
)

// EventSink receives notifications after a mutating operation commits.
// It lets the transport layer observe engine state changes (e.g. to
// broadcast over a websocket feed) without the engine importing transport
// packages.
type EventSink interface {
	BlockApplied(height int64, blockID string)
	RollbackCompleted(height int64)
}

type noopSink struct{}

func (noopSink) BlockApplied(int64, string) {}
func (noopSink) RollbackCompleted(int64)    {}

// Engine sequences the validator, applier, rollback engine and balance
// service against a single store. Mutating operations are serialized with
// a process-wide mutex so only one write is ever in flight; each holds
// exactly one store transaction for its entire duration.
type Engine struct {
	store *storage.Storage
	log   *logging.Logger
	sink  EventSink

	mu sync.Mutex
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithEventSink registers a sink notified after every committed mutation.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// NewEngine constructs an Engine over store, logging through log.
func NewEngine(store *storage.Storage, log *logging.Logger, opts ...Option) *Engine {
	e := &Engine{store: store, log: log, sink: noopSink{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitBlock validates req and, on acceptance, atomically applies it.
func (e *Engine) SubmitBlock(ctx context.Context, req *BlockRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		e.log.Error("submit block: failed to begin transaction", "height", req.Height, "err", err)
		return errInternal(err)
	}

	if err := validateBlock(ctx, tx, req); err != nil {
		tx.Rollback()
		e.log.Error("submit block: rejected", "height", req.Height, "id", req.ID, "err", err)
		return err
	}

	if err := applyBlock(ctx, tx, req, time.Now().Unix()); err != nil {
		tx.Rollback()
		e.log.Error("submit block: failed to apply", "height", req.Height, "id", req.ID, "err", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		e.log.Error("submit block: failed to commit", "height", req.Height, "id", req.ID, "err", err)
		return errInternal(err)
	}

	e.log.Info("block applied", "height", req.Height, "id", req.ID)
	e.sink.BlockApplied(req.Height, req.ID)
	return nil
}

// GetBalance answers a point balance query from the cache.
func (e *Engine) GetBalance(ctx context.Context, address string) (int64, error) {
	balance, err := GetBalance(ctx, e.store.DB(), address)
	if err != nil {
		e.log.Error("get balance: failed", "address", address, "err", err)
		return 0, err
	}
	return balance, nil
}

// ComputeBalance audits address by summing unspent outputs directly,
// bypassing the cache.
func (e *Engine) ComputeBalance(ctx context.Context, address string) (int64, error) {
	sum, err := ComputeBalance(ctx, e.store.DB(), address)
	if err != nil {
		e.log.Error("compute balance: failed", "address", address, "err", err)
		return 0, err
	}
	return sum, nil
}

// Rollback reverts state to the snapshot immediately after applying the
// block at targetHeight.
func (e *Engine) Rollback(ctx context.Context, targetHeight int64) error {
	if targetHeight < 0 {
		err := errInvalidTarget(targetHeight)
		e.log.Error("rollback: rejected", "target", targetHeight, "err", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		e.log.Error("rollback: failed to begin transaction", "target", targetHeight, "err", err)
		return errInternal(err)
	}

	mutated, err := rollbackTo(ctx, tx, targetHeight)
	if err != nil {
		tx.Rollback()
		e.log.Error("rollback: failed", "target", targetHeight, "err", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		e.log.Error("rollback: failed to commit", "target", targetHeight, "err", err)
		return errInternal(err)
	}

	e.log.Info("rollback completed", "target", targetHeight, "mutated", mutated)
	e.sink.RollbackCompleted(targetHeight)
	return nil
}
