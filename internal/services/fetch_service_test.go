package services

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/core"
	"finanze/internal/fetcher"
)

func fetchReq(entity string, features ...core.Feature) core.FetchRequest {
	return core.FetchRequest{Entity: lo.ToPtr(entity), Features: features}
}

func TestFetchService_ResultCodes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  core.FetchRequest
		want core.FetchResultCode
	}{
		{"unknown entity", fetchReq("nope", core.FeaturePosition), core.FetchEntityNotFound},
		{"unsupported feature", fetchReq("demo-broker", core.FeatureAutoContributions), core.FetchFeatureNotSupported},
		{"entity without fetcher", fetchReq("commodities", core.FeaturePosition), core.FetchFeatureNotSupported},
		{"no credentials", fetchReq("demo-bank", core.FeaturePosition), core.FetchNoCredentialsAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.fetch.Fetch(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Code)
			assert.Nil(t, resp.Data)
		})
	}

	_, err := h.fetch.Fetch(ctx, core.FetchRequest{Features: []core.Feature{core.FeaturePosition}})
	assert.True(t, errors.Is(err, core.ErrInvalidRequest))
	_, err = h.fetch.Fetch(ctx, fetchReq("demo-bank"))
	assert.True(t, errors.Is(err, core.ErrInvalidRequest))
}

func TestFetchService_CompletedAndCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.repo.SaveCredentials(ctx, "demo-bank", map[string]string{"user": "user", "password": "password"}))

	resp, err := h.fetch.Fetch(ctx, fetchReq("demo-bank", core.FeaturePosition, core.FeatureTransactions))
	require.NoError(t, err)
	require.Equal(t, core.FetchCompleted, resp.Code)
	require.NotNil(t, resp.Data)
	require.NotNil(t, resp.Data.Position)
	assert.Len(t, resp.Data.Transactions, 1)
	require.NoError(t, resp.Validate())

	last, err := h.repo.EntityLastFetches(ctx, "demo-bank")
	require.NoError(t, err)
	assert.Contains(t, last, core.FeaturePosition)
	assert.Contains(t, last, core.FeatureTransactions)
	assert.NotContains(t, last, core.FeatureHistoric)

	snapshot, err := h.repo.GetSnapshot(ctx, "demo-bank")
	require.NoError(t, err)
	assert.NotNil(t, snapshot.Position)

	resp, err = h.fetch.Fetch(ctx, fetchReq("demo-bank", core.FeaturePosition))
	require.NoError(t, err)
	assert.Equal(t, core.FetchCooldown, resp.Code)
	assert.Equal(t, core.Countdown{Seconds: core.DefaultUpdateCooldown}, resp.Details)

	h.clock.add(30 * time.Second)
	resp, err = h.fetch.Fetch(ctx, fetchReq("demo-bank", core.FeaturePosition))
	require.NoError(t, err)
	assert.Equal(t, core.Countdown{Seconds: 30}, resp.Details)

	// Features never fetched are not cooling down.
	resp, err = h.fetch.Fetch(ctx, fetchReq("demo-bank", core.FeatureHistoric))
	require.NoError(t, err)
	assert.Equal(t, core.FetchCompleted, resp.Code)

	h.clock.add(31 * time.Second)
	resp, err = h.fetch.Fetch(ctx, fetchReq("demo-bank", core.FeaturePosition))
	require.NoError(t, err)
	assert.Equal(t, core.FetchCompleted, resp.Code)

	snapshot, err = h.repo.GetSnapshot(ctx, "demo-bank")
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot.Transactions, "refetching one feature keeps the others")
	assert.NotEmpty(t, snapshot.Historic)
}

func TestFetchService_CustomCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.settings.update(func(s *core.Settings) { s.Fetch.UpdateCooldown = 5 })
	require.NoError(t, h.repo.SaveLastFetch(ctx, "demo-bank", []core.Feature{core.FeaturePosition}, h.clock.now().Add(-2*time.Second)))
	require.NoError(t, h.repo.SaveCredentials(ctx, "demo-bank", map[string]string{"user": "user", "password": "password"}))

	resp, err := h.fetch.Fetch(ctx, fetchReq("demo-bank", core.FeaturePosition))
	require.NoError(t, err)
	assert.Equal(t, core.Countdown{Seconds: 3}, resp.Details)
}

func TestFetchService_Conflict(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.fetch.locks.TryLock("demo-bank"))

	_, err := h.fetch.Fetch(context.Background(), fetchReq("demo-bank", core.FeaturePosition))
	assert.True(t, errors.Is(err, core.ErrExecutionConflict))
}

func TestFetchService_TwoFactor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.repo.SaveCredentials(ctx, "demo-broker", map[string]string{"phone": "600000000", "password": "password"}))

	req := fetchReq("demo-broker", core.FeaturePosition)
	req.AvoidNewLogin = lo.ToPtr(true)
	resp, err := h.fetch.Fetch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, core.FetchNotLogged, resp.Code)

	resp, err = h.fetch.Fetch(ctx, fetchReq("demo-broker", core.FeaturePosition))
	require.NoError(t, err)
	require.Equal(t, core.FetchCodeRequested, resp.Code)
	ref, ok := resp.Details.(core.ProcessRef)
	require.True(t, ok)

	req = fetchReq("demo-broker", core.FeaturePosition)
	req.Code = lo.ToPtr(fetcher.TwoFactorCode)
	req.ProcessID = lo.ToPtr("unknown")
	resp, err = h.fetch.Fetch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, core.FetchInvalidCode, resp.Code)

	req.ProcessID = lo.ToPtr(ref.ProcessID)
	resp, err = h.fetch.Fetch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, core.FetchCompleted, resp.Code)

	// The stored session is resumed without a new code.
	h.clock.add(2 * time.Minute)
	resp, err = h.fetch.Fetch(ctx, fetchReq("demo-broker", core.FeaturePosition))
	require.NoError(t, err)
	assert.Equal(t, core.FetchCompleted, resp.Code)
}

func TestFetchService_CryptoWallets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.repo.InsertWallet(ctx, core.CryptoWalletConnection{
		ID: "w1", EntityID: "bitcoin", Address: "bc1qxyz", Name: "Cold",
	}))
	require.NoError(t, h.repo.InsertWallet(ctx, core.CryptoWalletConnection{
		ID: "w2", EntityID: "ethereum", Address: "0xabc", Name: "Hot",
	}))

	resp, err := h.fetch.Fetch(ctx, fetchReq("bitcoin", core.FeaturePosition))
	require.NoError(t, err)
	require.Equal(t, core.FetchCompleted, resp.Code)
	require.Len(t, resp.Data.Position.Assets, 1)
	assert.Equal(t, "Cold", resp.Data.Position.Assets[0].Name)
}
