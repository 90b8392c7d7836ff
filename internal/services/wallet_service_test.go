package services

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/core"
	"finanze/internal/log"
)

func TestWalletService(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := NewWalletService(repo, log.Discard())

	w, err := svc.Create(ctx, core.CreateCryptoWalletRequest{EntityID: "bitcoin", Name: " Cold ", Address: "bc1qxyz"})
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "Cold", w.Name)

	_, err = svc.Create(ctx, core.CreateCryptoWalletRequest{EntityID: "bitcoin", Name: "Again", Address: "bc1qxyz"})
	assert.True(t, errors.Is(err, core.ErrDuplicateWallet))

	// The same address may be connected to another entity.
	_, err = svc.Create(ctx, core.CreateCryptoWalletRequest{EntityID: "ethereum", Name: "Again", Address: "bc1qxyz"})
	assert.NoError(t, err)

	require.NoError(t, svc.Update(ctx, core.UpdateCryptoWalletConnectionRequest{ID: w.ID, Name: "Vault"}))
	wallets, err := repo.ListWallets(ctx)
	require.NoError(t, err)
	assert.Contains(t, wallets, core.CryptoWalletConnection{ID: w.ID, EntityID: "bitcoin", Address: "bc1qxyz", Name: "Vault"})

	require.NoError(t, svc.Delete(ctx, w.ID))
	assert.True(t, errors.Is(svc.Delete(ctx, w.ID), core.ErrWalletNotFound))
	assert.True(t, errors.Is(svc.Update(ctx, core.UpdateCryptoWalletConnectionRequest{ID: w.ID, Name: "x"}), core.ErrWalletNotFound))
}

func TestWalletService_Errors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := NewWalletService(repo, log.Discard())

	tests := []struct {
		name string
		req  core.CreateCryptoWalletRequest
		want error
	}{
		{"missing address", core.CreateCryptoWalletRequest{EntityID: "bitcoin", Name: "a"}, core.ErrInvalidRequest},
		{"unknown entity", core.CreateCryptoWalletRequest{EntityID: "dogecoin", Name: "a", Address: "x"}, core.ErrEntityNotFound},
		{"not a crypto entity", core.CreateCryptoWalletRequest{EntityID: "demo-bank", Name: "a", Address: "x"}, core.ErrNotCryptoEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	assert.True(t, errors.Is(svc.Delete(ctx, " "), core.ErrInvalidRequest))
}
