package storage

import (
	"context"
	"database/sql"
)

// Output is a row of the outputs relation.
type Output struct {
	TransactionID string
	OutputIndex   int64
	Address       string
	Value         int64
	Spent         bool
}

// InsertOutput inserts a new, unspent output.
func InsertOutput(ctx context.Context, q Queryer, txID string, index int64, address string, value int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO outputs (transaction_id, output_index, address, value, spent) VALUES (?, ?, ?, ?, 0)`,
		txID, index, address, value,
	)
	return err
}

// GetOutput retrieves an output by (transaction_id, output_index). Returns
// (nil, nil) if absent — the validator relies on this to distinguish
// NONEXISTENT_OUTPUT (absent) from ALREADY_SPENT (present, spent=true).
func GetOutput(ctx context.Context, q Queryer, txID string, index int64) (*Output, error) {
	var o Output
	var spent int
	err := q.QueryRowContext(ctx,
		`SELECT transaction_id, output_index, address, value, spent FROM outputs WHERE transaction_id = ? AND output_index = ?`,
		txID, index,
	).Scan(&o.TransactionID, &o.OutputIndex, &o.Address, &o.Value, &spent)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Spent = spent != 0
	return &o, nil
}

// MarkOutputSpent sets an output's spent flag to true.
func MarkOutputSpent(ctx context.Context, q Queryer, txID string, index int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE outputs SET spent = 1 WHERE transaction_id = ? AND output_index = ?`,
		txID, index,
	)
	return err
}

// UnspendOrphanedOutputs sets spent = false on every output currently
// marked spent that no surviving input references. Called by the rollback
// engine after cascading block deletion may have removed the inputs that
// originally justified an output's spent flag.
func UnspendOrphanedOutputs(ctx context.Context, q Queryer) error {
	_, err := q.ExecContext(ctx, `
		UPDATE outputs
		SET spent = 0
		WHERE spent = 1
		AND NOT EXISTS (
			SELECT 1 FROM inputs
			WHERE inputs.spent_transaction_id = outputs.transaction_id
			AND inputs.spent_output_index = outputs.output_index
		)
	`)
	return err
}

// SumUnspentByAddress sums the value of every unspent output owned by
// address. Used by the balance service's audit path, which must always
// agree with the cached address_balances relation.
func SumUnspentByAddress(ctx context.Context, q Queryer, address string) (int64, error) {
	var sum sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT SUM(value) FROM outputs WHERE address = ? AND spent = 0`, address,
	).Scan(&sum)
	if err != nil {
		return 0, err
	}
	if !sum.Valid {
		return 0, nil
	}
	return sum.Int64, nil
}
