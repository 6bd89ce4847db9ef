package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/n2k-switching-core/internal/switching"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry caches the source registry in memory.
//
// The cache is populated via RefreshCache() and kept current by Watch.
// A failed refresh keeps the previous contents, so translation continues
// against the last known registry.
//
// All public methods are thread-safe.
type Registry struct {
	repo        Repository
	cache       switching.Snapshot
	loaded      bool
	lastRefresh time.Time
	lastErr     error
	cacheMu     sync.RWMutex
	logger      Logger
}

// Stats summarises the registry cache.
type Stats struct {
	Records     int       `json:"records"`
	SwitchBanks int       `json:"switch_banks"`
	Loaded      bool      `json:"loaded"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// NewRegistry creates a new source registry over repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all records from the repository.
// On error the cached records are left untouched.
func (r *Registry) RefreshCache(ctx context.Context) error {
	records, err := r.repo.List(ctx)

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	if err != nil {
		r.lastErr = err
		return fmt.Errorf("loading sources: %w", err)
	}

	r.cache = cloneSnapshot(records)
	r.loaded = true
	r.lastErr = nil
	r.lastRefresh = time.Now().UTC()

	r.logger.Debug("source cache refreshed",
		"records", len(records),
		"switch_banks", len(r.cache.SwitchBanks()),
	)
	return nil
}

// Snapshot returns a copy of the cached records. It is empty before the
// first successful refresh.
func (r *Registry) Snapshot() switching.Snapshot {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return cloneSnapshot(r.cache)
}

// SwitchBanks returns the cached records that qualify as switch banks.
// Returns ErrNotLoaded before the first successful refresh.
func (r *Registry) SwitchBanks() ([]switching.DeviceRecord, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if !r.loaded {
		return nil, ErrNotLoaded
	}
	return r.cache.SwitchBanks(), nil
}

// Count returns the number of cached records.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// GetStats returns cache statistics.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		Records:     len(r.cache),
		SwitchBanks: len(r.cache.SwitchBanks()),
		Loaded:      r.loaded,
		LastRefresh: r.lastRefresh,
	}
	if r.lastErr != nil {
		stats.LastError = r.lastErr.Error()
	}
	return stats
}

// Watch refreshes the cache every interval until ctx is cancelled.
// Refresh errors are logged and the previous contents retained.
//
// Parameters:
//   - ctx: Cancelling stops the loop
//   - interval: Time between refreshes; must be positive
func (r *Registry) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.logger.Warn("source refresh disabled", "interval", interval)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshCache(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("source refresh failed, keeping previous records", "error", err)
			}
		}
	}
}

func cloneSnapshot(s switching.Snapshot) switching.Snapshot {
	if s == nil {
		return switching.Snapshot{}
	}
	out := make(switching.Snapshot, len(s))
	copy(out, s)
	return out
}
