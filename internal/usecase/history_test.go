package usecase

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/clock"
	"ContractGuard/internal/domain"
	"ContractGuard/internal/infrastructure/storage"
	"ContractGuard/internal/swr"
)

type fakeHistoryAPI struct {
	mu        sync.Mutex
	items     []domain.HistoryItem
	listErr   error
	deleteErr error
	lists     int
	deleted   []string
	wiped     int
}

func (f *fakeHistoryAPI) History(context.Context) ([]domain.HistoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return f.items, f.listErr
}

func (f *fakeHistoryAPI) DeleteAnalysis(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeHistoryAPI) DeleteAllAnalyses(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wiped++
	return nil
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newHistoryFixture(t *testing.T) (*HistoryService, *fakeHistoryAPI, *clock.Fake) {
	t.Helper()
	api := &fakeHistoryAPI{items: []domain.HistoryItem{
		{ID: "1", Type: "lease", Date: "2025-11-01T10:00:00", Result: domain.HistoryScore{Score: 35.6}},
		{ID: "2", Type: "lease", Date: "2025-11-03T10:00:00", Result: domain.HistoryScore{Score: 88}},
		{ID: "3", Type: "nda", Date: "2025-11-02T10:00:00", Result: domain.HistoryScore{Score: 55}},
	}}
	fake := clock.NewFake(testEpoch)
	svc := NewHistoryService(HistoryDeps{
		API:     api,
		Store:   storage.NewMemoryStore(),
		Session: staticToken("tok"),
		Clock:   fake,
		TTL:     time.Minute,
	})
	return svc, api, fake
}

func TestHistoryListNormalizesAndCaches(t *testing.T) {
	t.Parallel()

	svc, api, fake := newHistoryFixture(t)

	res, err := svc.List(context.Background(), false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := res.Value
	if len(got) != 3 || got[0].ID != "2" || got[1].ID != "3" || got[2].ID != "1" {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if got[0].DisplayName != "lease-02" || got[2].DisplayName != "lease-01" || got[1].DisplayName != "nda-01" {
		t.Fatalf("unexpected display names: %s %s %s", got[0].DisplayName, got[1].DisplayName, got[2].DisplayName)
	}
	if got[2].Score != 36 || got[2].Risk != domain.RiskHigh {
		t.Fatalf("unexpected score/risk %d %s", got[2].Score, got[2].Risk)
	}

	fake.Advance(30 * time.Second)
	res, err = svc.List(context.Background(), false)
	if err != nil || res.Source != swr.SourceCache {
		t.Fatalf("expected cached list, got %v %v", res.Source, err)
	}
	if api.lists != 1 {
		t.Fatalf("expected one remote list, got %d", api.lists)
	}
}

func TestHistoryDeleteNeverResurfacesWithinTTL(t *testing.T) {
	t.Parallel()

	svc, api, fake := newHistoryFixture(t)
	first, err := svc.List(context.Background(), false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	fake.Advance(10 * time.Second)
	if err := svc.Delete(context.Background(), "3"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	res, err := svc.List(context.Background(), false)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if res.Source != swr.SourceCache || !res.FetchedAt.Equal(first.FetchedAt) {
		t.Fatalf("patch must keep the fetch time, got %v at %v", res.Source, res.FetchedAt)
	}
	for _, it := range res.Value {
		if it.ID == "3" {
			t.Fatalf("deleted item resurfaced")
		}
	}
	if len(res.Value) != 2 || api.lists != 1 {
		t.Fatalf("unexpected list %+v after %d fetches", res.Value, api.lists)
	}
}

func TestHistoryDeleteFailureKeepsCache(t *testing.T) {
	t.Parallel()

	svc, api, _ := newHistoryFixture(t)
	if _, err := svc.List(context.Background(), false); err != nil {
		t.Fatalf("list: %v", err)
	}
	api.deleteErr = remoteErr(http.StatusInternalServerError)

	if err := svc.Delete(context.Background(), "3"); !apperr.IsKind(err, apperr.KindRemoteRejected) {
		t.Fatalf("expected remote rejection, got %v", err)
	}
	items, ok := svc.Cached()
	if !ok || len(items) != 3 {
		t.Fatalf("failed delete must not patch the cache")
	}
	if err := svc.Delete(context.Background(), " "); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("expected invalid input for blank id, got %v", err)
	}
}

func TestHistoryWipeClearsCache(t *testing.T) {
	t.Parallel()

	svc, api, _ := newHistoryFixture(t)
	if _, err := svc.List(context.Background(), false); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := svc.Wipe(context.Background()); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if _, ok := svc.Cached(); ok {
		t.Fatalf("wipe must clear the cache")
	}
	if api.wiped != 1 {
		t.Fatalf("expected one wipe call")
	}
}

func TestHistoryUnauthRunsHook(t *testing.T) {
	t.Parallel()

	svc, api, _ := newHistoryFixture(t)
	signedOut := 0
	svc.SetOnUnauthenticated(func() { signedOut++ })

	api.listErr = remoteErr(http.StatusUnauthorized)
	_, err := svc.List(context.Background(), true)
	if swr.ReasonOf(err) != swr.ReasonUnauth {
		t.Fatalf("expected unauth reason, got %v", err)
	}
	if signedOut != 1 {
		t.Fatalf("expected sign out hook, got %d", signedOut)
	}
}
