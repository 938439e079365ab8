package storage

import "context"

// Input is a row of the inputs relation. It references the output it
// consumes but does not own it.
type Input struct {
	ID                 string
	TransactionID      string
	SpentTransactionID string
	SpentOutputIndex   int64
}

// InsertInput inserts a new input row linking transaction txID to the
// output it consumes, (spentTxID, spentIndex).
func InsertInput(ctx context.Context, q Queryer, id, txID, spentTxID string, spentIndex int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO inputs (id, transaction_id, spent_transaction_id, spent_output_index) VALUES (?, ?, ?, ?)`,
		id, txID, spentTxID, spentIndex,
	)
	return err
}
