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

const entityColumns = `id, name, type, is_real, features, credentials_template, setup_login_type, pin_positions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (core.Entity, error) {
	var (
		e          core.Entity
		typ        string
		isReal     int64
		features   string
		template   sql.NullString
		setupLogin sql.NullString
		pin        sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.Name, &typ, &isReal, &features, &template, &setupLogin, &pin); err != nil {
		return core.Entity{}, err
	}

	t, err := core.ParseEntityType(typ)
	if err != nil {
		return core.Entity{}, fmt.Errorf("entity %s: %w", e.ID, err)
	}
	e.Type = t
	e.IsReal = isReal != 0

	if err := json.Unmarshal([]byte(features), &e.Features); err != nil {
		return core.Entity{}, fmt.Errorf("entity %s features: %w", e.ID, err)
	}
	if e.Features == nil {
		e.Features = []core.Feature{}
	}
	if template.Valid {
		if err := json.Unmarshal([]byte(template.String), &e.CredentialsTemplate); err != nil {
			return core.Entity{}, fmt.Errorf("entity %s credentials template: %w", e.ID, err)
		}
	}
	if setupLogin.Valid {
		slt, err := core.ParseEntitySetupLoginType(setupLogin.String)
		if err != nil {
			return core.Entity{}, fmt.Errorf("entity %s: %w", e.ID, err)
		}
		e.SetupLoginType = &slt
	}
	if pin.Valid {
		e.PIN = &core.PINConfig{Positions: int(pin.Int64)}
	}
	return e, nil
}

// ListEntities returns the entity catalog ordered by name. Status, wallets and
// last fetch dates are not filled in.
func (r *SQLiteRepository) ListEntities(ctx context.Context) ([]core.Entity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var entities []core.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (r *SQLiteRepository) GetEntity(ctx context.Context, id string) (core.Entity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entity{}, fmt.Errorf("entity %q: %w", id, core.ErrEntityNotFound)
	}
	if err != nil {
		return core.Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

// FindEntityByName looks an entity up by display name. Virtual imports use
// names as their only key.
func (r *SQLiteRepository) FindEntityByName(ctx context.Context, name string) (core.Entity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE name = ?`, name)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entity{}, fmt.Errorf("entity named %q: %w", name, core.ErrEntityNotFound)
	}
	if err != nil {
		return core.Entity{}, fmt.Errorf("find entity: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) InsertEntity(ctx context.Context, e core.Entity) error {
	features, err := json.Marshal(core.Features(e.Features))
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	var template, setupLogin sql.NullString
	var pin sql.NullInt64
	if e.CredentialsTemplate != nil {
		b, err := json.Marshal(e.CredentialsTemplate)
		if err != nil {
			return fmt.Errorf("encode credentials template: %w", err)
		}
		template = sql.NullString{String: string(b), Valid: true}
	}
	if e.SetupLoginType != nil {
		setupLogin = sql.NullString{String: string(*e.SetupLoginType), Valid: true}
	}
	if e.PIN != nil {
		pin = sql.NullInt64{Int64: int64(e.PIN.Positions), Valid: true}
	}
	isReal := 0
	if e.IsReal {
		isReal = 1
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entities (`+entityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, string(e.Type), isReal, string(features), template, setupLogin, pin)
	if err != nil {
		return fmt.Errorf("insert entity %s: %w", e.ID, err)
	}
	r.logger.InfoContext(ctx, "Entity created", "entity_id", e.ID, "is_real", e.IsReal)
	return nil
}

// LastFetches returns the last fetch time per feature, grouped by entity.
func (r *SQLiteRepository) LastFetches(ctx context.Context) (map[string]map[core.Feature]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT entity_id, feature, fetched_at FROM last_fetches`)
	if err != nil {
		return nil, fmt.Errorf("list last fetches: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[core.Feature]time.Time)
	for rows.Next() {
		var entityID, feature, at string
		if err := rows.Scan(&entityID, &feature, &at); err != nil {
			return nil, fmt.Errorf("scan last fetch: %w", err)
		}
		f, err := core.ParseFeature(feature)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping last fetch with unknown feature", "entity_id", entityID, "feature", feature)
			continue
		}
		t, err := parseTime(at)
		if err != nil {
			return nil, err
		}
		if out[entityID] == nil {
			out[entityID] = make(map[core.Feature]time.Time)
		}
		out[entityID][f] = t
	}
	return out, rows.Err()
}

// EntityLastFetches returns the last fetch time per feature of one entity.
func (r *SQLiteRepository) EntityLastFetches(ctx context.Context, entityID string) (map[core.Feature]time.Time, error) {
	all, err := r.LastFetches(ctx)
	if err != nil {
		return nil, err
	}
	if m, ok := all[entityID]; ok {
		return m, nil
	}
	return map[core.Feature]time.Time{}, nil
}

func (r *SQLiteRepository) SaveLastFetch(ctx context.Context, entityID string, features []core.Feature, at time.Time) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, f := range features {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO last_fetches (entity_id, feature, fetched_at) VALUES (?, ?, ?)
				 ON CONFLICT (entity_id, feature) DO UPDATE SET fetched_at = excluded.fetched_at`,
				entityID, string(f), formatTime(at))
			if err != nil {
				return fmt.Errorf("save last fetch %s/%s: %w", entityID, f, err)
			}
		}
		return nil
	})
}
