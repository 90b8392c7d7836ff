package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Session is the reusable login state a fetcher keeps between runs.
type Session struct {
	Payload   map[string]string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Valid reports whether the session can still be used at now.
func (s Session) Valid(now time.Time) bool {
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

func (r *SQLiteRepository) GetCredentials(ctx context.Context, entityID string) (map[string]string, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT credentials FROM entity_credentials WHERE entity_id = ?`, entityID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get credentials: %w", err)
	}
	plain, err := r.unseal(raw)
	if err != nil {
		return nil, false, fmt.Errorf("credentials of %s: %w", entityID, err)
	}
	var creds map[string]string
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, false, fmt.Errorf("decode credentials of %s: %w", entityID, err)
	}
	return creds, true, nil
}

func (r *SQLiteRepository) SaveCredentials(ctx context.Context, entityID string, creds map[string]string) error {
	b, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	sealed, err := r.seal(b)
	if err != nil {
		return err
	}
	now := formatTime(r.now())
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entity_credentials (entity_id, credentials, created_at, last_used_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (entity_id) DO UPDATE SET credentials = excluded.credentials, last_used_at = excluded.last_used_at`,
		entityID, sealed, now, now)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCredentials(ctx context.Context, entityID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entity_credentials WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

// CredentialEntities returns the ids of every entity with stored credentials.
func (r *SQLiteRepository) CredentialEntities(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT entity_id FROM entity_credentials`)
	if err != nil {
		return nil, fmt.Errorf("list credential entities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan credential entity: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetSession(ctx context.Context, entityID string) (Session, bool, error) {
	var (
		raw, created string
		expires      sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, created_at, expires_at FROM entity_sessions WHERE entity_id = ?`, entityID).
		Scan(&raw, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("get session: %w", err)
	}

	plain, err := r.unseal(raw)
	if err != nil {
		return Session{}, false, fmt.Errorf("session of %s: %w", entityID, err)
	}
	s := Session{}
	if err := json.Unmarshal(plain, &s.Payload); err != nil {
		return Session{}, false, fmt.Errorf("decode session of %s: %w", entityID, err)
	}
	if s.CreatedAt, err = parseTime(created); err != nil {
		return Session{}, false, err
	}
	if s.ExpiresAt, err = parseNullTime(expires); err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, entityID string, s Session) error {
	b, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	sealed, err := r.seal(b)
	if err != nil {
		return err
	}
	var expires sql.NullString
	if s.ExpiresAt != nil {
		expires = sql.NullString{String: formatTime(*s.ExpiresAt), Valid: true}
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entity_sessions (entity_id, payload, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (entity_id) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at, expires_at = excluded.expires_at`,
		entityID, sealed, formatTime(created), expires)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, entityID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entity_sessions WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// EnvCredentials serves credentials from the process environment instead of
// the database. A field is read from FINANZE_CREDENTIALS_<ENTITY>_<FIELD>,
// upper-cased with dashes turned into underscores. Writes are ignored.
type EnvCredentials struct {
	Fields func(entityID string) []string
	lookup func(string) (string, bool)
}

func NewEnvCredentials(fields func(entityID string) []string) *EnvCredentials {
	return &EnvCredentials{Fields: fields, lookup: os.LookupEnv}
}

func envKey(entityID, field string) string {
	norm := func(s string) string {
		return strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	}
	return "FINANZE_CREDENTIALS_" + norm(entityID) + "_" + norm(field)
}

func (e *EnvCredentials) GetCredentials(_ context.Context, entityID string) (map[string]string, bool, error) {
	creds := make(map[string]string)
	for _, field := range e.Fields(entityID) {
		if v, ok := e.lookup(envKey(entityID, field)); ok && v != "" {
			creds[field] = v
		}
	}
	if len(creds) == 0 {
		return nil, false, nil
	}
	return creds, true, nil
}

func (e *EnvCredentials) SaveCredentials(context.Context, string, map[string]string) error {
	return nil
}

func (e *EnvCredentials) DeleteCredentials(context.Context, string) error {
	return nil
}
