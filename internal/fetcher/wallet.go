package fetcher

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"finanze/internal/core"
)

// WalletFetcher reports a balance for every connected address of a crypto
// entity. Balances are derived from the address so repeated runs agree.
type WalletFetcher struct {
	entityID string
	symbol   string
}

func NewWalletFetcher(entityID, symbol string) *WalletFetcher {
	return &WalletFetcher{entityID: entityID, symbol: symbol}
}

// Login always succeeds: public addresses need no authentication.
func (w *WalletFetcher) Login(context.Context, LoginParams) LoginResult {
	return LoginResult{Code: core.LoginResumed}
}

func (w *WalletFetcher) Fetch(ctx context.Context, feature core.Feature, opts FetchOptions) (core.FetchedData, error) {
	if err := ctx.Err(); err != nil {
		return core.FetchedData{}, err
	}
	if feature != core.FeaturePosition {
		return core.FetchedData{}, errors.Wrapf(core.ErrFeatureNotSupported, "%s on %s", feature, w.entityID)
	}

	assets := make([]core.Asset, 0, len(opts.Wallets))
	for _, c := range opts.Wallets {
		if c.EntityID != w.entityID {
			continue
		}
		assets = append(assets, core.Asset{
			Name:     c.Name,
			Type:     "CRYPTO",
			Amount:   float64(seedOf(c.Address)%100000) / 10000,
			Currency: w.symbol,
		})
	}
	return core.FetchedData{Position: &core.GlobalPosition{
		EntityID: w.entityID,
		Date:     time.Now().UTC(),
		Assets:   assets,
	}}, nil
}
