package ledger

import (
	"context"

	"github.com/klingon-exchange/ledger-indexer/internal/storage"
)

// GetBalance reads the cached per-address balance, returning 0 for an
// address never seen.
func GetBalance(ctx context.Context, q storage.Queryer, address string) (int64, error) {
	balance, err := storage.GetBalance(ctx, q, address)
	if err != nil {
		return 0, errInternal(err)
	}
	return balance, nil
}

// ComputeBalance sums unspent-output values for address directly. It
// exists for auditing, and must always agree with GetBalance once the
// store is at rest.
func ComputeBalance(ctx context.Context, q storage.Queryer, address string) (int64, error) {
	sum, err := storage.SumUnspentByAddress(ctx, q, address)
	if err != nil {
		return 0, errInternal(err)
	}
	return sum, nil
}
