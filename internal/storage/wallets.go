package storage

import (
	"context"
	"fmt"
	"strings"

	"finanze/internal/core"
)

func (r *SQLiteRepository) ListWallets(ctx context.Context) ([]core.CryptoWalletConnection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity_id, address, name FROM crypto_wallet_connections ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []core.CryptoWalletConnection
	for rows.Next() {
		var w core.CryptoWalletConnection
		if err := rows.Scan(&w.ID, &w.EntityID, &w.Address, &w.Name); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (r *SQLiteRepository) InsertWallet(ctx context.Context, w core.CryptoWalletConnection) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO crypto_wallet_connections (id, entity_id, address, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.EntityID, w.Address, w.Name, formatTime(r.now()))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("wallet %s on %s: %w", w.Address, w.EntityID, core.ErrDuplicateWallet)
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RenameWallet(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE crypto_wallet_connections SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename wallet: %w", err)
	}
	return requireAffected(res, fmt.Errorf("wallet %s: %w", id, core.ErrWalletNotFound))
}

func (r *SQLiteRepository) DeleteWallet(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM crypto_wallet_connections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	return requireAffected(res, fmt.Errorf("wallet %s: %w", id, core.ErrWalletNotFound))
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffecter, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
