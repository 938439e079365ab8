package storage

import (
	"context"
	"database/sql"
)

// Block is a row of the blocks relation.
type Block struct {
	ID        string
	Height    int64
	CreatedAt int64
}

// InsertBlock inserts a new block row. The caller guarantees height
// uniqueness via the validator's height check; the UNIQUE constraint on
// height is a backstop, not the primary enforcement mechanism.
func InsertBlock(ctx context.Context, q Queryer, id string, height int64, createdAt int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO blocks (id, height, created_at) VALUES (?, ?, ?)`,
		id, height, createdAt,
	)
	return err
}

// MaxHeight returns the current maximum block height, or 0 if no blocks
// exist.
func MaxHeight(ctx context.Context, q Queryer) (int64, error) {
	var height sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT MAX(height) FROM blocks`).Scan(&height)
	if err != nil {
		return 0, err
	}
	if !height.Valid {
		return 0, nil
	}
	return height.Int64, nil
}

// DeleteBlocksAboveHeight removes every block with height strictly greater
// than target. Foreign-key cascades (ON DELETE CASCADE, requiring
// _foreign_keys=on) remove their transactions, outputs and inputs.
func DeleteBlocksAboveHeight(ctx context.Context, q Queryer, target int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM blocks WHERE height > ?`, target)
	return err
}

// GetBlock retrieves a block by id. Returns (nil, nil) if absent.
func GetBlock(ctx context.Context, q Queryer, id string) (*Block, error) {
	var b Block
	err := q.QueryRowContext(ctx,
		`SELECT id, height, created_at FROM blocks WHERE id = ?`, id,
	).Scan(&b.ID, &b.Height, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
