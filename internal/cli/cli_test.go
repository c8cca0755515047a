package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ContractGuard/internal/app"
	"ContractGuard/internal/apperr"
	"ContractGuard/internal/clock"
	"ContractGuard/internal/config"
	"ContractGuard/internal/infrastructure/storage"
	"ContractGuard/internal/session"
)

type backend struct {
	mu      sync.Mutex
	credits int
	paths   []string
	deleted []string
}

func (b *backend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			t.Errorf("encode: %v", err)
		}
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]string{"access_token": "tok"})
	})
	mux.HandleFunc("GET /v1/users/me", authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		credits := b.credits
		b.mu.Unlock()
		writeJSON(w, map[string]any{"id": 7, "display_name": "Li", "credits": credits})
	}))
	mux.HandleFunc("GET /v1/contracts/history", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"id": "a1", "type": "lease", "date": "2025-01-02T10:00:00", "result": map[string]any{"score": 35, "originalContent": "Tenant shall pay"}},
			{"id": "a2", "type": "lease", "date": "2025-02-02T10:00:00", "result": map[string]any{"score": 80}},
		}})
	}))
	mux.HandleFunc("DELETE /v1/analyses/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.deleted = append(b.deleted, r.PathValue("id"))
		b.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	}))
	mux.HandleFunc("POST /v1/contracts/analyze/text", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":          "r1",
			"score":       42.4,
			"riskSummary": "Deposit terms favour the landlord",
			"clauses": []map[string]any{
				{"title": "Deposit", "level": "HIGH", "suggestion": "Cap the deposit"},
			},
		})
	}))
	mux.HandleFunc("GET /v1/shares/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "old" {
			w.WriteHeader(http.StatusGone)
			return
		}
		writeJSON(w, map[string]any{"contractName": "Lease", "score": 81, "scoreTitle": "Low risk"})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.paths = append(b.paths, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

type harness struct {
	store   *storage.MemoryStore
	backend *backend
	cfg     config.Config
}

func newHarness(t *testing.T, token string, credits int) *harness {
	t.Helper()

	b := &backend{credits: credits}
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)

	store := storage.NewMemoryStore()
	if token != "" {
		if err := store.Set(session.CanonicalKey, token); err != nil {
			t.Fatalf("seed token: %v", err)
		}
	}

	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	cfg.Storage.Driver = "memory"
	cfg.Compress.OutputDir = t.TempDir()
	return &harness{store: store, backend: b, cfg: cfg}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	root := NewRootCommand(Options{
		App: app.Options{
			Store:    h.store,
			Notifier: nopNotifier{},
			Clock:    clock.NewFake(time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)),
		},
		Stdin:  strings.NewReader(stdin),
		Stdout: &out,
		Stderr: &errOut,
		Config: &h.cfg,
	})
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

type nopNotifier struct{}

func (nopNotifier) Toast(string) {}

func TestLoginStoresTokenAndPrintsBalance(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "", 3)

	out, err := h.run(t, "secret\n", "login", "--phone", "13800000000")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Signed in as Li (3 credits)") {
		t.Fatalf("unexpected output: %q", out)
	}
	if v, _ := h.store.Get(session.CanonicalKey); v != "tok" {
		t.Fatalf("expected stored token, got %q", v)
	}
}

func TestLoginRejectedShowsUserMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "", 3)

	_, err := h.run(t, "", "login", "--phone", "1", "--password", "wrong")
	if !apperr.IsKind(err, apperr.KindUnauthenticated) {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
	if got := errorText(err); got != "Please sign in first" {
		t.Fatalf("unexpected error text %q", got)
	}
}

func TestMeReportsSource(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "tok", 5)

	out, err := h.run(t, "", "me")
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if !strings.Contains(out, "Credits:  5") || !strings.Contains(out, "Source:   network") {
		t.Fatalf("unexpected output: %q", out)
	}

	out, err = h.run(t, "", "me")
	if err != nil {
		t.Fatalf("me again: %v", err)
	}
	if !strings.Contains(out, "Source:   cache") {
		t.Fatalf("second read should come from cache: %q", out)
	}
}

func TestHistoryListAndDelete(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "tok", 1)

	out, err := h.run(t, "", "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", out)
	}
	if !strings.HasPrefix(lines[1], "a2") || !strings.Contains(lines[1], "lease-02") {
		t.Fatalf("newest analysis must come first: %q", lines[1])
	}
	if !strings.Contains(lines[2], "HIGH") {
		t.Fatalf("expected high risk for score 35: %q", lines[2])
	}

	if _, err := h.run(t, "", "history", "delete", "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	h.backend.mu.Lock()
	deleted := append([]string(nil), h.backend.deleted...)
	h.backend.mu.Unlock()
	if len(deleted) != 1 || deleted[0] != "a1" {
		t.Fatalf("unexpected deletes: %v", deleted)
	}
}

func TestAnalyzeTextPrintsReport(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "tok", 2)

	out, err := h.run(t, "The tenant pays a deposit of three months.", "analyze", "text", "--type", "lease", "--yes")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"Analysis r1", "Score:    42 (medium risk)", "[HIGH] Deposit", "Suggestion: Cap the deposit"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "(succeeded)") {
		t.Fatalf("expected plain progress lines:\n%s", out)
	}
}

func TestAnalyzeWithoutCreditsStopsBeforeUpload(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "tok", 0)

	_, err := h.run(t, "some contract", "analyze", "text", "--yes")
	if !apperr.IsKind(err, apperr.KindInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	for _, p := range h.backend.paths {
		if strings.Contains(p, "analyze") {
			t.Fatalf("upload must not start: %v", h.backend.paths)
		}
	}
}

func TestAnalyzeSignedOutSendsNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "", 5)

	_, err := h.run(t, "some contract", "analyze", "text", "--yes")
	if !apperr.IsKind(err, apperr.KindUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	if len(h.backend.paths) != 0 {
		t.Fatalf("no request may be sent without a session: %v", h.backend.paths)
	}
}

func TestAnalyzeDeclinedConfirmation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "tok", 2)

	out, err := h.run(t, "", "analyze", "file", "contract.pdf")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Aborted") {
		t.Fatalf("expected abort on empty answer: %q", out)
	}
}

func TestShareGetExpired(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "", 0)

	out, err := h.run(t, "", "share", "get", "old")
	if err != nil {
		t.Fatalf("share get: %v", err)
	}
	if !strings.Contains(out, "expired") {
		t.Fatalf("unexpected output: %q", out)
	}

	out, err = h.run(t, "", "share", "get", "s1")
	if err != nil {
		t.Fatalf("share get: %v", err)
	}
	if !strings.Contains(out, "Score:    81 (Low risk)") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "", 0)

	out, err := h.run(t, "", "ping")
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !strings.Contains(out, "(status ok)") {
		t.Fatalf("unexpected output: %q", out)
	}
}
