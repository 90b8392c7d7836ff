// Package fetcher defines the port every financial data source implements and
// a registry resolving entity ids to their fetcher.
package fetcher

import (
	"context"
	"sync"
	"time"

	"finanze/internal/core"
)

// LoginParams carries everything a fetcher may need to authenticate.
type LoginParams struct {
	Credentials map[string]string
	// Code and ProcessID are set when resuming a two-factor attempt.
	Code      *string
	ProcessID *string
	// Session is the stored session payload, nil when none is usable.
	Session       map[string]string
	AvoidNewLogin bool
}

// LoginResult is the outcome of a fetcher login.
type LoginResult struct {
	Code    core.LoginResultCode
	Details core.Details
	// Session is persisted on CREATED and reused on later logins.
	Session    map[string]string
	SessionTTL time.Duration
	Message    string
}

type FetchOptions struct {
	Deep    bool
	Wallets []core.CryptoWalletConnection
}

// EntityFetcher authenticates against and reads from one entity.
type EntityFetcher interface {
	Login(ctx context.Context, params LoginParams) LoginResult
	// Fetch returns core.ErrFeatureNotSupported for features the source does
	// not provide.
	Fetch(ctx context.Context, feature core.Feature, opts FetchOptions) (core.FetchedData, error)
}

// Registry maps entity ids to fetchers.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]EntityFetcher
}

func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]EntityFetcher)}
}

func (r *Registry) Register(entityID string, f EntityFetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[entityID] = f
}

func (r *Registry) Get(entityID string) (EntityFetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[entityID]
	return f, ok
}

// Demo returns a registry backed by simulated fetchers for the built-in
// catalog.
func Demo() *Registry {
	r := NewRegistry()
	r.Register("demo-bank", NewSimulated(SimulatedConfig{
		EntityID: "demo-bank",
		Expected: map[string]string{"user": "user", "password": "password"},
		Features: []core.Feature{core.FeaturePosition, core.FeatureAutoContributions, core.FeatureTransactions, core.FeatureHistoric},
	}))
	r.Register("demo-broker", NewSimulated(SimulatedConfig{
		EntityID:  "demo-broker",
		Expected:  map[string]string{"password": "password"},
		Features:  []core.Feature{core.FeaturePosition, core.FeatureTransactions, core.FeatureHistoric},
		TwoFactor: true,
	}))
	r.Register("demo-manual", NewSimulated(SimulatedConfig{
		EntityID: "demo-manual",
		Features: []core.Feature{core.FeaturePosition, core.FeatureTransactions},
		Manual:   "sessionToken",
	}))
	r.Register("bitcoin", NewWalletFetcher("bitcoin", "BTC"))
	r.Register("ethereum", NewWalletFetcher("ethereum", "ETH"))
	return r
}
