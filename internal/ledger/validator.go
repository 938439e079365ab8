package ledger

import (
	"context"
	"fmt"

	"github.com/klingon-exchange/ledger-indexer/internal/storage"
)

// validateBlock runs the height, economic, and hash checks in order
// against a read view of the store (q may be a pool or an in-flight
// transaction — the validator never mutates). The first failure aborts;
// validation failures are returned as *Error, store failures wrapped as
// CodeInternalServerError.
func validateBlock(ctx context.Context, q storage.Queryer, req *BlockRequest) error {
	if err := validateHeight(ctx, q, req); err != nil {
		return err
	}
	if err := validateEconomics(ctx, q, req); err != nil {
		return err
	}
	return validateHash(req)
}

func validateHeight(ctx context.Context, q storage.Queryer, req *BlockRequest) error {
	currentMax, err := storage.MaxHeight(ctx, q)
	if err != nil {
		return errInternal(err)
	}
	expected := currentMax + 1
	if req.Height != expected {
		return errInvalidHeight(expected, req.Height)
	}
	return nil
}

func validateEconomics(ctx context.Context, q storage.Queryer, req *BlockRequest) error {
	spentInBlock := make(map[string]bool)

	for _, t := range req.Transactions {
		var inputSum int64
		for _, in := range t.Inputs {
			key := spentKey(in.TxID, in.Index)
			if spentInBlock[key] {
				return errDoubleSpend(in.TxID, in.Index)
			}

			out, err := storage.GetOutput(ctx, q, in.TxID, in.Index)
			if err != nil {
				return errInternal(err)
			}
			if out == nil {
				return errNonexistentOutput(in.TxID, in.Index)
			}
			if out.Spent {
				return errAlreadySpent(in.TxID, in.Index)
			}

			spentInBlock[key] = true
			inputSum += out.Value
		}

		var outputSum int64
		for _, o := range t.Outputs {
			outputSum += o.Value
		}

		if len(t.Inputs) > 0 && inputSum != outputSum {
			return errSumMismatch(t.ID, inputSum, outputSum)
		}
	}

	return nil
}

func validateHash(req *BlockRequest) error {
	txIDs := make([]string, len(req.Transactions))
	for i, t := range req.Transactions {
		txIDs[i] = t.ID
	}

	expected := ComputeBlockID(req.Height, txIDs)
	if expected != req.ID {
		return errInvalidBlockID(expected, req.ID)
	}
	return nil
}

func spentKey(txID string, index int64) string {
	return fmt.Sprintf("%s:%d", txID, index)
}
