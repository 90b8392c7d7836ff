// Package services orchestrates the login, fetch, export and bookkeeping
// flows on top of storage, fetchers and the sheet adapters.
package services

import (
	"context"
	"sync"

	"finanze/internal/amqp"
	"finanze/internal/core"
	"finanze/internal/rates"
)

// CredentialStore persists entity credentials. Both the SQLite repository
// and the environment backed store implement it.
type CredentialStore interface {
	GetCredentials(ctx context.Context, entityID string) (map[string]string, bool, error)
	SaveCredentials(ctx context.Context, entityID string, creds map[string]string) error
	DeleteCredentials(ctx context.Context, entityID string) error
}

// SettingsLoader returns the current user settings.
type SettingsLoader interface {
	Load(ctx context.Context) (core.Settings, error)
}

// JobPublisher enqueues export jobs for a worker.
type JobPublisher interface {
	PublishExportJob(ctx context.Context, msg *amqp.ExportJobMessage) error
}

// RateSource serves latest exchange rates and metal prices.
type RateSource interface {
	Latest(ctx context.Context, base string) (map[string]float64, error)
	MetalPrice(ctx context.Context, t core.CommodityType) (rates.MetalPrice, error)
}

// keyedLock hands out non-blocking per-key locks. A second caller for a held
// key is refused instead of queued.
type keyedLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{held: make(map[string]struct{})}
}

func (l *keyedLock) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

func (l *keyedLock) Unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
