package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"finanze/internal/core"
)

// Entity credentials and sessions are sealed with XChaCha20-Poly1305 under a
// key derived from the user password with Argon2id. The key only lives in
// memory between login and logout.
const (
	sealedPrefix = "sealed:v1:"
	keySaltSize  = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// ErrUnsealFailed means a stored payload could not be opened with the
// current key.
var ErrUnsealFailed = errors.New("sealed data could not be opened")

// NewKeySalt returns a random salt for DeriveKey.
func NewKeySalt() ([]byte, error) {
	salt := make([]byte, keySaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate key salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches password into a sealing key.
func DeriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

// Unlock makes key the sealing key for credentials and sessions.
func (r *SQLiteRepository) Unlock(key []byte) error {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("sealing key: %w", err)
	}
	r.vaultMu.Lock()
	r.aead = aead
	r.vaultMu.Unlock()
	return nil
}

// Lock forgets the sealing key. Credentials and sessions cannot be read or
// written until the next Unlock.
func (r *SQLiteRepository) Lock() {
	r.vaultMu.Lock()
	r.aead = nil
	r.vaultMu.Unlock()
}

func (r *SQLiteRepository) Unlocked() bool {
	r.vaultMu.RLock()
	defer r.vaultMu.RUnlock()
	return r.aead != nil
}

func (r *SQLiteRepository) currentAEAD() (cipher.AEAD, error) {
	r.vaultMu.RLock()
	defer r.vaultMu.RUnlock()
	if r.aead == nil {
		return nil, fmt.Errorf("credential vault: %w", core.ErrLocked)
	}
	return r.aead, nil
}

func seal(aead cipher.AEAD, plain []byte) (string, error) {
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, plain, nil)), nil
}

// unseal opens a stored payload. Rows written before sealing existed are
// plain JSON and returned as is; they are sealed on their next write.
func unseal(aead cipher.AEAD, stored string) ([]byte, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return []byte(stored), nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(raw) < aead.NonceSize() {
		return nil, ErrUnsealFailed
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], nil)
	if err != nil {
		return nil, ErrUnsealFailed
	}
	return plain, nil
}

func (r *SQLiteRepository) seal(plain []byte) (string, error) {
	aead, err := r.currentAEAD()
	if err != nil {
		return "", err
	}
	return seal(aead, plain)
}

func (r *SQLiteRepository) unseal(stored string) ([]byte, error) {
	aead, err := r.currentAEAD()
	if err != nil {
		return nil, err
	}
	return unseal(aead, stored)
}

// ChangeUserKey stores a new password hash and key salt for username and
// reseals every credential and session under newKey, all in one
// transaction. The repository must be unlocked with the old key.
func (r *SQLiteRepository) ChangeUserKey(ctx context.Context, username, passwordHash string, salt, newKey []byte) error {
	oldAEAD, err := r.currentAEAD()
	if err != nil {
		return err
	}
	newAEAD, err := chacha20poly1305.NewX(newKey)
	if err != nil {
		return fmt.Errorf("sealing key: %w", err)
	}

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users SET password_hash = ?, key_salt = ? WHERE username = ?`,
			passwordHash, base64.StdEncoding.EncodeToString(salt), username)
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if err := requireAffected(res, fmt.Errorf("user %s: %w", username, core.ErrUserNotFound)); err != nil {
			return err
		}
		if err := reseal(ctx, tx, "entity_credentials", "credentials", oldAEAD, newAEAD); err != nil {
			return err
		}
		return reseal(ctx, tx, "entity_sessions", "payload", oldAEAD, newAEAD)
	})
	if err != nil {
		return err
	}

	r.vaultMu.Lock()
	r.aead = newAEAD
	r.vaultMu.Unlock()
	return nil
}

// reseal rewrites column of every row of table under to. table and column
// are constants of this package.
func reseal(ctx context.Context, tx *sql.Tx, table, column string, from, to cipher.AEAD) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT entity_id, %s FROM %s`, column, table))
	if err != nil {
		return fmt.Errorf("read %s: %w", table, err)
	}
	sealed := make(map[string]string)
	for rows.Next() {
		var id, stored string
		if err := rows.Scan(&id, &stored); err != nil {
			rows.Close()
			return fmt.Errorf("scan %s: %w", table, err)
		}
		plain, err := unseal(from, stored)
		if err != nil {
			rows.Close()
			return fmt.Errorf("%s of %s: %w", table, id, err)
		}
		if sealed[id], err = seal(to, plain); err != nil {
			rows.Close()
			return err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read %s: %w", table, err)
	}

	for id, value := range sealed {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET %s = ? WHERE entity_id = ?`, table, column), value, id); err != nil {
			return fmt.Errorf("reseal %s of %s: %w", table, id, err)
		}
	}
	return nil
}
