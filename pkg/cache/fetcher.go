// Package cache implements the read-through cache in front of the scheduling API.
//
// A cached value is served while it is younger than the configured TTL. When the network
// or the session fails, any cached value is served regardless of age so the client stays
// usable offline. Entries are stored as {"data": <json>, "timestamp": <unix ms>}.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/apierr"
)

// DefaultTTL is how long an entry is served without a network call
const DefaultTTL = 4 * time.Hour

const msgUnexpectedFetch = "An unexpected error occurred while fetching data"

// Getter performs an authenticated GET returning the raw body of a 2xx response.
// Failures must be *apierr.Error values so the fetcher can decide on fallback.
type Getter interface {
	GetJSON(ctx context.Context, path string) ([]byte, error)
}

// Origin says where a fetched value came from
type Origin int

const (
	OriginCache   Origin = iota + 1 // fresh cache entry, no network call
	OriginNetwork                   // fetched and written back
	OriginStale                     // network or auth failure, served from cache
)

func (o Origin) String() string {
	switch o {
	case OriginCache:
		return "cache"
	case OriginNetwork:
		return "network"
	case OriginStale:
		return "stale"
	default:
		return "unknown"
	}
}

type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// EntryInfo describes one stored entry
type EntryInfo struct {
	Key       string
	Namespace Namespace
	Age       time.Duration
	Valid     bool // false when the stored bytes are not a readable entry
}

type Fetcher struct {
	store    Store
	getter   Getter
	registry *Registry
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewFetcher(store Store, getter Getter, registry *Registry, ttl time.Duration, logger *zap.Logger) *Fetcher {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		store:    store,
		getter:   getter,
		registry: registry,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source, for tests
func (f *Fetcher) SetClock(now func() time.Time) {
	f.now = now
}

func (f *Fetcher) Registry() *Registry {
	return f.registry
}

func (f *Fetcher) TTL() time.Duration {
	return f.ttl
}

// FetchWithCache returns the value for key, reading path from the API when the
// cached entry is missing, stale or forceRefresh is set.
func FetchWithCache[T any](ctx context.Context, f *Fetcher, key, path string, forceRefresh bool) (T, error) {
	v, _, err := FetchWithOrigin[T](ctx, f, key, path, forceRefresh)
	return v, err
}

// FetchWithOrigin is FetchWithCache that also reports where the value came from,
// so callers can show a stale-data indicator.
func FetchWithOrigin[T any](ctx context.Context, f *Fetcher, key, path string, forceRefresh bool) (T, Origin, error) {
	var zero T
	log := f.logger.With(zap.String("key", key))

	if !forceRefresh {
		if v, ts, ok := readEntry[T](ctx, f, key); ok && f.now().Sub(ts) < f.ttl {
			log.Debug("Cache hit")
			return v, OriginCache, nil
		}
	}

	data, err := f.getter.GetJSON(ctx, path)
	if err != nil {
		kind, tagged := apierr.KindOf(err)
		switch {
		case tagged && (kind == apierr.KindNetwork || kind == apierr.KindAuth):
			if v, ts, ok := readEntry[T](ctx, f, key); ok {
				log.Info("Serving cached data after fetch failure",
					zap.Duration("age", f.now().Sub(ts)),
					zap.Error(err),
				)
				return v, OriginStale, nil
			}
			return zero, 0, err
		case tagged && kind == apierr.KindAPI:
			return zero, 0, err
		default:
			return zero, 0, apierr.Unexpected(msgUnexpectedFetch, err)
		}
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, 0, apierr.Unexpected(msgUnexpectedFetch, fmt.Errorf("%w: %v", apierr.ErrMalformedResponse, err))
	}

	f.writeEntry(ctx, key, data)
	log.Debug("Fetched from network")
	return v, OriginNetwork, nil
}

// readEntry returns ok=false for missing, unreadable or malformed entries
func readEntry[T any](ctx context.Context, f *Fetcher, key string) (T, time.Time, bool) {
	var zero T
	raw, err := f.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			f.logger.Debug("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return zero, time.Time{}, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil || len(e.Data) == 0 {
		f.logger.Debug("Ignoring malformed cache entry", zap.String("key", key))
		return zero, time.Time{}, false
	}

	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		f.logger.Debug("Ignoring cache entry of wrong shape", zap.String("key", key), zap.Error(err))
		return zero, time.Time{}, false
	}
	return v, time.UnixMilli(e.Timestamp), true
}

// writeEntry never fails the caller; the fetched value is still returned
func (f *Fetcher) writeEntry(ctx context.Context, key string, data []byte) {
	raw, err := json.Marshal(entry{Data: data, Timestamp: f.now().UnixMilli()})
	if err == nil {
		err = f.store.Set(ctx, key, raw)
	}
	if err != nil {
		f.logger.Debug("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// managedKeys lists stored keys that belong to a registered namespace
func (f *Fetcher) managedKeys(ctx context.Context) ([]string, error) {
	keys, err := f.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var managed []string
	for _, k := range keys {
		if _, ok := f.registry.Owner(k); ok {
			managed = append(managed, k)
		}
	}
	return managed, nil
}

// ClearCache removes every entry in a registered namespace
func (f *Fetcher) ClearCache(ctx context.Context) error {
	keys, err := f.managedKeys(ctx)
	if err != nil {
		return apierr.Unexpected("Failed to clear cache", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := f.store.Remove(ctx, keys...); err != nil {
		return apierr.Unexpected("Failed to clear cache", err)
	}
	f.logger.Info("Cleared cache", zap.Int("entries", len(keys)))
	return nil
}

// ClearNamespace removes the entries of a single namespace, e.g. after a mutation
func (f *Fetcher) ClearNamespace(ctx context.Context, n Namespace) error {
	keys, err := f.managedKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	var owned []string
	for _, k := range keys {
		if owner, _ := f.registry.Owner(k); owner == n {
			owned = append(owned, k)
		}
	}
	if len(owned) == 0 {
		return nil
	}
	if err := f.store.Remove(ctx, owned...); err != nil {
		return fmt.Errorf("failed to clear %s cache: %w", n, err)
	}
	return nil
}

// HasOfflineData reports whether any managed entry exists. Store errors count as no data.
func (f *Fetcher) HasOfflineData(ctx context.Context) bool {
	keys, err := f.managedKeys(ctx)
	return err == nil && len(keys) > 0
}

// Entries describes every managed entry, sorted by key
func (f *Fetcher) Entries(ctx context.Context) ([]EntryInfo, error) {
	keys, err := f.managedKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}

	infos := make([]EntryInfo, 0, len(keys))
	for _, k := range keys {
		owner, _ := f.registry.Owner(k)
		info := EntryInfo{Key: k, Namespace: owner}
		if _, ts, ok := readEntry[json.RawMessage](ctx, f, k); ok {
			info.Valid = true
			info.Age = f.now().Sub(ts)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// PurgeExpired removes managed entries older than maxAge, and malformed ones.
// Stale entries back the offline fallback, so maxAge is normally well beyond the TTL.
func (f *Fetcher) PurgeExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	infos, err := f.Entries(ctx)
	if err != nil {
		return 0, err
	}

	var expired []string
	for _, info := range infos {
		if !info.Valid || info.Age >= maxAge {
			expired = append(expired, info.Key)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := f.store.Remove(ctx, expired...); err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	f.logger.Info("Purged expired cache entries", zap.Int("entries", len(expired)))
	return len(expired), nil
}
