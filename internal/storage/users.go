package storage

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"finanze/internal/core"
)

type User struct {
	Username     string
	PasswordHash string
	// KeySalt salts the derivation of the sealing key. It is empty for
	// users created before credentials were sealed.
	KeySalt    []byte
	CreatedAt  time.Time
	LastLogged *time.Time
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string, keySalt []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, key_salt, created_at) VALUES (?, ?, ?, ?)`,
		username, passwordHash, base64.StdEncoding.EncodeToString(keySalt), formatTime(r.now()))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("user %s: %w", username, core.ErrUserExists)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, username string) (User, error) {
	var (
		u          User
		created    string
		lastLogged sql.NullString
		salt       sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password_hash, key_salt, created_at, last_logged FROM users WHERE username = ?`, username).
		Scan(&u.Username, &u.PasswordHash, &salt, &created, &lastLogged)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", username, core.ErrUserNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	if salt.Valid && salt.String != "" {
		if u.KeySalt, err = base64.StdEncoding.DecodeString(salt.String); err != nil {
			return User{}, fmt.Errorf("decode key salt of %s: %w", username, err)
		}
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return User{}, err
	}
	if u.LastLogged, err = parseNullTime(lastLogged); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// SetKeySalt records the key salt of a user created before sealing existed.
func (r *SQLiteRepository) SetKeySalt(ctx context.Context, username string, keySalt []byte) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET key_salt = ? WHERE username = ?`,
		base64.StdEncoding.EncodeToString(keySalt), username)
	if err != nil {
		return fmt.Errorf("set key salt: %w", err)
	}
	return requireAffected(res, fmt.Errorf("user %s: %w", username, core.ErrUserNotFound))
}

func (r *SQLiteRepository) TouchLastLogged(ctx context.Context, username string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_logged = ? WHERE username = ?`, formatTime(at), username)
	if err != nil {
		return fmt.Errorf("touch last logged: %w", err)
	}
	return requireAffected(res, fmt.Errorf("user %s: %w", username, core.ErrUserNotFound))
}
