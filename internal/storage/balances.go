package storage

import (
	"context"
	"database/sql"
)

// UpsertBalanceDelta adds delta to address's cached balance, inserting a
// new row with delta as the initial balance if the address has never been
// seen. Deltas on insert are always non-negative in practice — an address
// is always first seen as the recipient of a new output.
func UpsertBalanceDelta(ctx context.Context, q Queryer, address string, delta int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO address_balances (address, balance) VALUES (?, ?)
		ON CONFLICT(address) DO UPDATE SET balance = balance + excluded.balance
	`, address, delta)
	return err
}

// GetBalance reads the cached balance for address, returning 0 if absent.
func GetBalance(ctx context.Context, q Queryer, address string) (int64, error) {
	var balance int64
	err := q.QueryRowContext(ctx,
		`SELECT balance FROM address_balances WHERE address = ?`, address,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// RebuildBalances clears the address_balances relation and repopulates it
// from the current set of unspent outputs, one row per address carrying
// the sum of its unspent values. Addresses with no unspent outputs are
// omitted by construction (absence reads back as 0). Used by the rollback
// engine, which cannot trust incremental deltas after a cascading delete.
func RebuildBalances(ctx context.Context, q Queryer) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM address_balances`); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO address_balances (address, balance)
		SELECT address, SUM(value) FROM outputs WHERE spent = 0 GROUP BY address
	`)
	return err
}
