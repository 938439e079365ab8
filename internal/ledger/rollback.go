package ledger

import (
	"context"

	"github.com/klingon-exchange/ledger-indexer/internal/storage"
)

// rollbackTo reverts the store to the state immediately after applying the
// block at targetHeight, within the given transaction. Returns whether any
// mutation occurred — false means the target was already at or above the
// current height, so the call is an idempotent no-op.
func rollbackTo(ctx context.Context, tx storage.Queryer, targetHeight int64) (bool, error) {
	currentHeight, err := storage.MaxHeight(ctx, tx)
	if err != nil {
		return false, errInternal(err)
	}
	if currentHeight == 0 || targetHeight >= currentHeight {
		return false, nil
	}

	if err := storage.DeleteBlocksAboveHeight(ctx, tx, targetHeight); err != nil {
		return false, errInternal(err)
	}
	// Cascading deletes above may have removed the inputs that justified
	// an output's spent flag; un-spend anything no longer referenced.
	if err := storage.UnspendOrphanedOutputs(ctx, tx); err != nil {
		return false, errInternal(err)
	}
	// Incremental deltas cannot be trusted after a cascading delete;
	// recompute the balance view from the surviving unspent outputs.
	if err := storage.RebuildBalances(ctx, tx); err != nil {
		return false, errInternal(err)
	}

	return true, nil
}
