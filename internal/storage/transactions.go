package storage

import (
	"context"
	"database/sql"
)

// Transaction is a row of the transactions relation.
type Transaction struct {
	ID        string
	BlockID   string
	CreatedAt int64
}

// InsertTransaction inserts a new transaction row belonging to blockID.
func InsertTransaction(ctx context.Context, q Queryer, id, blockID string, createdAt int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO transactions (id, block_id, created_at) VALUES (?, ?, ?)`,
		id, blockID, createdAt,
	)
	return err
}

// GetTransaction retrieves a transaction by id. Returns (nil, nil) if absent.
func GetTransaction(ctx context.Context, q Queryer, id string) (*Transaction, error) {
	var t Transaction
	err := q.QueryRowContext(ctx,
		`SELECT id, block_id, created_at FROM transactions WHERE id = ?`, id,
	).Scan(&t.ID, &t.BlockID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
