package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/klingon-exchange/ledger-indexer/internal/storage"
)

// applyBlock mutates the store to apply an already-validated block within
// a single transaction: insert the block, then per transaction insert the
// transaction row, spend its inputs, and create its outputs. now is a unix
// timestamp stamped on the inserted block and transaction rows.
func applyBlock(ctx context.Context, tx storage.Queryer, req *BlockRequest, now int64) error {
	if err := storage.InsertBlock(ctx, tx, req.ID, req.Height, now); err != nil {
		return errInternal(err)
	}

	for _, t := range req.Transactions {
		if err := storage.InsertTransaction(ctx, tx, t.ID, req.ID, now); err != nil {
			return errInternal(err)
		}

		for _, in := range t.Inputs {
			out, err := storage.GetOutput(ctx, tx, in.TxID, in.Index)
			if err != nil {
				return errInternal(err)
			}
			if out == nil {
				// The validator already confirmed this output exists and
				// is unspent within the same transaction; this can only
				// happen if a concurrent writer bypassed the engine's
				// single-writer lock.
				return errInternal(fmt.Errorf("referenced output %s:%d vanished between validation and apply", in.TxID, in.Index))
			}

			if err := storage.MarkOutputSpent(ctx, tx, in.TxID, in.Index); err != nil {
				return errInternal(err)
			}
			if err := storage.InsertInput(ctx, tx, uuid.NewString(), t.ID, in.TxID, in.Index); err != nil {
				return errInternal(err)
			}
			if err := storage.UpsertBalanceDelta(ctx, tx, out.Address, -out.Value); err != nil {
				return errInternal(err)
			}
		}

		for i, o := range t.Outputs {
			if err := storage.InsertOutput(ctx, tx, t.ID, int64(i), o.Address, o.Value); err != nil {
				return errInternal(err)
			}
			if err := storage.UpsertBalanceDelta(ctx, tx, o.Address, o.Value); err != nil {
				return errInternal(err)
			}
		}
	}

	return nil
}
