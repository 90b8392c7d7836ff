package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finanze/internal/core"
)

// ReplaceCommodities swaps the whole register list, keeping request order.
func (r *SQLiteRepository) ReplaceCommodities(ctx context.Context, regs []core.CommodityRegister) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM commodity_registers`); err != nil {
			return fmt.Errorf("clear commodities: %w", err)
		}
		for i, c := range regs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO commodity_registers (position, name, amount, unit, type, initial_investment, average_buy_price, currency)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				i, c.Name, c.Amount, string(c.Unit), string(c.Type),
				nullFloat(c.InitialInvestment), nullFloat(c.AverageBuyPrice), nullString(c.Currency))
			if err != nil {
				return fmt.Errorf("insert commodity %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ListCommodities(ctx context.Context) ([]core.CommodityRegister, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, amount, unit, type, initial_investment, average_buy_price, currency
		 FROM commodity_registers ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list commodities: %w", err)
	}
	defer rows.Close()

	regs := []core.CommodityRegister{}
	for rows.Next() {
		var (
			c                 core.CommodityRegister
			unit, typ         string
			initial, avgPrice sql.NullFloat64
			currency          sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Amount, &unit, &typ, &initial, &avgPrice, &currency); err != nil {
			return nil, fmt.Errorf("scan commodity: %w", err)
		}
		if c.Unit, err = core.ParseWeightUnit(unit); err != nil {
			return nil, err
		}
		if c.Type, err = core.ParseCommodityType(typ); err != nil {
			return nil, err
		}
		if initial.Valid {
			c.InitialInvestment = core.Ptr(initial.Float64)
		}
		if avgPrice.Valid {
			c.AverageBuyPrice = core.Ptr(avgPrice.Float64)
		}
		if currency.Valid {
			c.Currency = core.Ptr(currency.String)
		}
		regs = append(regs, c)
	}
	return regs, rows.Err()
}

// SaveSnapshot stores the latest fetched data of an entity, replacing the
// previous one.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, entityID string, data core.FetchedData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO fetched_snapshots (entity_id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (entity_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		entityID, string(b), formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", entityID, err)
	}
	return nil
}

// Snapshot is the latest data of one entity.
type Snapshot struct {
	EntityID  string
	Data      core.FetchedData
	UpdatedAt time.Time
}

// Snapshots returns every stored snapshot ordered by entity id.
func (r *SQLiteRepository) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT entity_id, payload, updated_at FROM fetched_snapshots ORDER BY entity_id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			s            Snapshot
			raw, updated string
		)
		if err := rows.Scan(&s.EntityID, &raw, &updated); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &s.Data); err != nil {
			return nil, fmt.Errorf("decode snapshot of %s: %w", s.EntityID, err)
		}
		if s.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSnapshot returns the snapshot of one entity, or an empty one.
func (r *SQLiteRepository) GetSnapshot(ctx context.Context, entityID string) (core.FetchedData, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM fetched_snapshots WHERE entity_id = ?`, entityID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FetchedData{}, nil
	}
	if err != nil {
		return core.FetchedData{}, fmt.Errorf("get snapshot: %w", err)
	}
	var data core.FetchedData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return core.FetchedData{}, fmt.Errorf("decode snapshot of %s: %w", entityID, err)
	}
	return data, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
