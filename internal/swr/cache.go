// Package swr implements a stale-while-revalidate cache over the local
// key-value store. Reads are cache-first within a TTL; a failed refresh
// falls back to whatever was cached, however old.
package swr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/clock"
	"ContractGuard/internal/ports"
)

// Source tells the caller where a value came from.
type Source string

const (
	SourceCache      Source = "cache"
	SourceNetwork    Source = "network"
	SourceStaleCache Source = "stale-cache"
)

// Reason explains why Fetch returned no value.
type Reason string

const (
	ReasonUnauth  Reason = "unauth"
	ReasonNetwork Reason = "network"
)

// Entry is the persisted form of a cached value.
type Entry[T any] struct {
	Value     T         `json:"value"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Result is a successful Fetch.
type Result[T any] struct {
	Value     T
	Source    Source
	FetchedAt time.Time
}

// FetchError is a failed Fetch.
type FetchError struct {
	Reason Reason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return "swr: " + string(e.Reason)
	}
	return "swr: " + string(e.Reason) + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// ReasonOf returns the Reason of a *FetchError in err's chain, or "".
func ReasonOf(err error) Reason {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}

// Options tune a single Fetch.
type Options struct {
	Force bool
	// TTL overrides the cache default when positive.
	TTL time.Duration
}

// Config wires one cache instance.
type Config struct {
	Key         string
	TTL         time.Duration
	Store       ports.KVStore
	Credentials ports.TokenSource
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Cache is a stale-while-revalidate cache for one entity of type T stored
// under a single key.
type Cache[T any] struct {
	key    string
	ttl    time.Duration
	store  ports.KVStore
	creds  ports.TokenSource
	clock  clock.Clock
	logger *slog.Logger
	group  singleflight.Group
}

// New builds a cache. A nil Credentials means the entity is public.
func New[T any](cfg Config) *Cache[T] {
	c := cfg.Clock
	if c == nil {
		c = clock.System{}
	}
	return &Cache[T]{
		key:    cfg.Key,
		ttl:    cfg.TTL,
		store:  cfg.Store,
		creds:  cfg.Credentials,
		clock:  c,
		logger: cfg.Logger,
	}
}

// Key returns the storage key.
func (c *Cache[T]) Key() string { return c.key }

// Read is a pure local read. It never blocks on the network and never
// fails; an unreadable entry reads as absent.
func (c *Cache[T]) Read() (Entry[T], bool) {
	var entry Entry[T]
	raw, ok := c.store.Get(c.key)
	if !ok || raw == "" {
		return entry, false
	}
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.debug("discarding unreadable cache entry", "key", c.key, "error", err)
		return Entry[T]{}, false
	}
	return entry, true
}

// IsFresh reports whether entry was fetched less than ttl before now.
// An entry without a fetch time is never fresh.
func IsFresh[T any](entry *Entry[T], ttl time.Duration, now time.Time) bool {
	if entry == nil || entry.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(entry.FetchedAt) < ttl
}

// Fetch returns the cached value when fresh, otherwise calls remote.
// A failing remote falls back to any cached value as SourceStaleCache.
// Without a credential the entry is cleared and ReasonUnauth is returned
// before remote is considered.
func (c *Cache[T]) Fetch(ctx context.Context, remote func(context.Context) (T, error), opts Options) (Result[T], error) {
	if c.creds != nil && c.creds.Token() == "" {
		c.Clear()
		return Result[T]{}, &FetchError{
			Reason: ReasonUnauth,
			Err:    apperr.New(apperr.KindUnauthenticated, "fetch "+c.key, "no credential"),
		}
	}

	ttl := c.ttl
	if opts.TTL > 0 {
		ttl = opts.TTL
	}

	if cached, ok := c.Read(); ok && !opts.Force && IsFresh(&cached, ttl, c.clock.Now()) {
		return Result[T]{Value: cached.Value, Source: SourceCache, FetchedAt: cached.FetchedAt}, nil
	}

	v, err, _ := c.group.Do(c.key, func() (interface{}, error) {
		value, err := remote(ctx)
		if err != nil {
			return nil, err
		}
		entry := Entry[T]{Value: value, FetchedAt: c.clock.Now()}
		c.write(entry)
		return entry, nil
	})
	if err == nil {
		entry := v.(Entry[T])
		return Result[T]{Value: entry.Value, Source: SourceNetwork, FetchedAt: entry.FetchedAt}, nil
	}

	if apperr.IsKind(err, apperr.KindUnauthenticated) {
		c.Clear()
		return Result[T]{}, &FetchError{Reason: ReasonUnauth, Err: err}
	}

	// The entry may have changed while remote was in flight.
	if latest, ok := c.Read(); ok {
		c.warn("refresh failed, serving stale cache", "key", c.key, "error", err)
		return Result[T]{Value: latest.Value, Source: SourceStaleCache, FetchedAt: latest.FetchedAt}, nil
	}

	return Result[T]{}, &FetchError{Reason: ReasonNetwork, Err: err}
}

// Seed overwrites the entry with value fetched now, as if from the network.
func (c *Cache[T]) Seed(value T) {
	c.write(Entry[T]{Value: value, FetchedAt: c.clock.Now()})
}

// Patch rewrites the cached value in place, keeping its fetch time. It is a
// no-op when nothing is cached.
func (c *Cache[T]) Patch(fn func(T) T) bool {
	entry, ok := c.Read()
	if !ok {
		return false
	}
	entry.Value = fn(entry.Value)
	c.write(entry)
	return true
}

// Clear deletes the entry.
func (c *Cache[T]) Clear() {
	if err := c.store.Remove(c.key); err != nil {
		c.warn("cache clear failed", "key", c.key, "error", err)
	}
}

func (c *Cache[T]) write(entry Entry[T]) {
	raw, err := json.Marshal(entry)
	if err != nil {
		c.warn("cache encode failed", "key", c.key, "error", err)
		return
	}
	if err := c.store.Set(c.key, string(raw)); err != nil {
		c.warn("cache write failed", "key", c.key, "error", err)
	}
}

func (c *Cache[T]) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Cache[T]) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
