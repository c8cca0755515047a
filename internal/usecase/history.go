package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/clock"
	"ContractGuard/internal/domain"
	"ContractGuard/internal/ports"
	"ContractGuard/internal/swr"
)

// HistoryCacheKey is the store key of the cached history list.
const HistoryCacheKey = "HISTORY_CACHE_V1"

// HistoryDeps wires the history service.
type HistoryDeps struct {
	API     ports.HistoryAPI
	Store   ports.KVStore
	Session ports.TokenSource
	Clock   clock.Clock
	Logger  *slog.Logger
	TTL     time.Duration
	// OnUnauthenticated runs when the server rejects the session.
	OnUnauthenticated func()
}

// HistoryService lists and deletes past analyses through the SWR cache.
type HistoryService struct {
	api      ports.HistoryAPI
	cache    *swr.Cache[[]domain.HistoryItem]
	onUnauth func()
	logger   *slog.Logger
}

// NewHistoryService constructs the history use case.
func NewHistoryService(deps HistoryDeps) *HistoryService {
	return &HistoryService{
		api: deps.API,
		cache: swr.New[[]domain.HistoryItem](swr.Config{
			Key:         HistoryCacheKey,
			TTL:         deps.TTL,
			Store:       deps.Store,
			Credentials: deps.Session,
			Clock:       deps.Clock,
			Logger:      deps.Logger,
		}),
		onUnauth: deps.OnUnauthenticated,
		logger:   deps.Logger,
	}
}

// SetOnUnauthenticated replaces the session rejection hook.
func (s *HistoryService) SetOnUnauthenticated(fn func()) {
	s.onUnauth = fn
}

// List returns normalized history, newest first.
func (s *HistoryService) List(ctx context.Context, force bool) (swr.Result[[]domain.HistoryItem], error) {
	res, err := s.cache.Fetch(ctx, s.fetch, swr.Options{Force: force})
	if err != nil && swr.ReasonOf(err) == swr.ReasonUnauth && s.onUnauth != nil {
		s.onUnauth()
	}
	return res, err
}

// Cached is a local read of the history list.
func (s *HistoryService) Cached() ([]domain.HistoryItem, bool) {
	entry, ok := s.cache.Read()
	return entry.Value, ok
}

// Delete removes one analysis and drops it from the cached list without
// touching the list's fetch time.
func (s *HistoryService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.New(apperr.KindInvalidInput, "delete analysis", "missing id")
	}
	if err := s.api.DeleteAnalysis(ctx, id); err != nil {
		return s.remoteFailed("delete analysis", err)
	}
	s.cache.Patch(func(items []domain.HistoryItem) []domain.HistoryItem {
		return domain.WithoutHistoryItem(items, id)
	})
	return nil
}

// Wipe deletes every analysis of the account.
func (s *HistoryService) Wipe(ctx context.Context) error {
	if err := s.api.DeleteAllAnalyses(ctx); err != nil {
		return s.remoteFailed("wipe history", err)
	}
	s.cache.Clear()
	return nil
}

// Clear drops the cached list so the next List goes to the network.
func (s *HistoryService) Clear() {
	s.cache.Clear()
}

func (s *HistoryService) fetch(ctx context.Context) ([]domain.HistoryItem, error) {
	raw, err := s.api.History(ctx)
	if err != nil {
		return nil, err
	}
	items := domain.NormalizeHistory(raw)
	if s.logger != nil {
		s.logger.Debug("history loaded", "items", len(items))
	}
	return items, nil
}

func (s *HistoryService) remoteFailed(op string, err error) error {
	if apperr.IsKind(err, apperr.KindUnauthenticated) {
		s.cache.Clear()
		if s.onUnauth != nil {
			s.onUnauth()
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
