package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/core"
)

func rawColumn(t *testing.T, repo *SQLiteRepository, query, entityID string) string {
	t.Helper()
	var raw string
	require.NoError(t, repo.db.QueryRowContext(context.Background(), query, entityID).Scan(&raw))
	return raw
}

func TestVault_SealsAtRest(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveCredentials(ctx, "demo-bank", map[string]string{"password": "hunter2"}))
	require.NoError(t, repo.SaveSession(ctx, "demo-bank", Session{Payload: map[string]string{"token": "tok-123"}}))

	creds := rawColumn(t, repo, `SELECT credentials FROM entity_credentials WHERE entity_id = ?`, "demo-bank")
	assert.True(t, strings.HasPrefix(creds, sealedPrefix))
	assert.NotContains(t, creds, "hunter2")
	session := rawColumn(t, repo, `SELECT payload FROM entity_sessions WHERE entity_id = ?`, "demo-bank")
	assert.True(t, strings.HasPrefix(session, sealedPrefix))
	assert.NotContains(t, session, "tok-123")

	got, ok, err := repo.GetCredentials(ctx, "demo-bank")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hunter2", got["password"])
}

func TestVault_Locked(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveCredentials(ctx, "demo-bank", map[string]string{"password": "hunter2"}))

	repo.Lock()
	assert.False(t, repo.Unlocked())
	_, _, err := repo.GetCredentials(ctx, "demo-bank")
	assert.ErrorIs(t, err, core.ErrLocked)
	assert.ErrorIs(t, repo.SaveSession(ctx, "demo-bank", Session{}), core.ErrLocked)

	// Listing which entities have credentials needs no key.
	ids, err := repo.CredentialEntities(ctx)
	require.NoError(t, err)
	assert.True(t, ids["demo-bank"])
}

func TestVault_WrongKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveCredentials(ctx, "demo-bank", map[string]string{"password": "hunter2"}))

	salt, err := NewKeySalt()
	require.NoError(t, err)
	require.NoError(t, repo.Unlock(DeriveKey("not the password", salt)))
	_, _, err = repo.GetCredentials(ctx, "demo-bank")
	assert.ErrorIs(t, err, ErrUnsealFailed)

	assert.Error(t, repo.Unlock([]byte("short")))
}

func TestVault_ChangeUserKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, "alice", "old-hash", []byte("old-salt")))
	require.NoError(t, repo.SaveCredentials(ctx, "demo-bank", map[string]string{"password": "hunter2"}))
	require.NoError(t, repo.SaveSession(ctx, "demo-broker", Session{Payload: map[string]string{"token": "tok"}}))
	before := rawColumn(t, repo, `SELECT credentials FROM entity_credentials WHERE entity_id = ?`, "demo-bank")

	newKey := DeriveKey("new password", []byte("new-salt"))
	require.NoError(t, repo.ChangeUserKey(ctx, "alice", "new-hash", []byte("new-salt"), newKey))

	u, err := repo.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", u.PasswordHash)
	assert.Equal(t, []byte("new-salt"), u.KeySalt)
	assert.NotEqual(t, before, rawColumn(t, repo, `SELECT credentials FROM entity_credentials WHERE entity_id = ?`, "demo-bank"))

	// Only the new key opens the resealed rows.
	require.NoError(t, repo.Unlock(testKey))
	_, _, err = repo.GetCredentials(ctx, "demo-bank")
	assert.ErrorIs(t, err, ErrUnsealFailed)

	require.NoError(t, repo.Unlock(newKey))
	creds, _, err := repo.GetCredentials(ctx, "demo-bank")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", creds["password"])
	session, _, err := repo.GetSession(ctx, "demo-broker")
	require.NoError(t, err)
	assert.Equal(t, "tok", session.Payload["token"])

	assert.ErrorIs(t, repo.ChangeUserKey(ctx, "bob", "h", nil, newKey), core.ErrUserNotFound)
	repo.Lock()
	assert.ErrorIs(t, repo.ChangeUserKey(ctx, "alice", "h", nil, newKey), core.ErrLocked)
}

func TestVault_LegacyPlaintext(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO entity_credentials (entity_id, credentials, created_at) VALUES (?, ?, ?)`,
		"demo-bank", `{"password":"old"}`, formatTime(repo.now()))
	require.NoError(t, err)

	creds, ok, err := repo.GetCredentials(ctx, "demo-bank")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "old", creds["password"])

	require.NoError(t, repo.CreateUser(ctx, "alice", "h", nil))
	require.NoError(t, repo.ChangeUserKey(ctx, "alice", "h2", []byte("salt"), testKey))
	raw := rawColumn(t, repo, `SELECT credentials FROM entity_credentials WHERE entity_id = ?`, "demo-bank")
	assert.True(t, strings.HasPrefix(raw, sealedPrefix))
}
