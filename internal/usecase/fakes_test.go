package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/clock"
	"ContractGuard/internal/domain"
	"ContractGuard/internal/infrastructure/storage"
	"ContractGuard/internal/ports"
	"ContractGuard/internal/session"
)

var testEpoch = time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)

type fakeAccountAPI struct {
	mu       sync.Mutex
	profile  domain.Profile
	err      error
	meCalls  int
	renamed  string
	token    string
	loginErr error
}

func (f *fakeAccountAPI) Me(context.Context) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	return f.profile, f.err
}

func (f *fakeAccountAPI) UpdateMe(_ context.Context, name string) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renamed = name
	p := f.profile
	p.DisplayName = name
	return p, f.err
}

func (f *fakeAccountAPI) UploadAvatar(context.Context, string) (string, error) {
	return "/static/avatars/1.png", nil
}

func (f *fakeAccountAPI) Login(context.Context, string, string) (string, error) {
	return f.token, f.loginErr
}

func (f *fakeAccountAPI) set(p domain.Profile, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile, f.err = p, err
}

func (f *fakeAccountAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls
}

type clearCounter struct {
	mu sync.Mutex
	n  int
}

func (c *clearCounter) Clear() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *clearCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type accountFixture struct {
	svc     *AccountService
	api     *fakeAccountAPI
	session *session.Store
	kv      *storage.MemoryStore
	clock   *clock.Fake
	scoped  *clearCounter
}

func newAccountFixture(t *testing.T, token string, credits int) *accountFixture {
	t.Helper()
	kv := storage.NewMemoryStore()
	sess := session.NewStore(kv, nil)
	if token != "" {
		if err := sess.SetToken(token); err != nil {
			t.Fatalf("set token: %v", err)
		}
	}
	api := &fakeAccountAPI{profile: domain.Profile{ID: 1, Credits: credits}}
	fake := clock.NewFake(testEpoch)
	scoped := &clearCounter{}
	svc := NewAccountService(AccountDeps{
		API:          api,
		Store:        kv,
		Session:      sess,
		Clock:        fake,
		TTL:          30 * time.Second,
		ScopedCaches: []Clearer{scoped},
	})
	return &accountFixture{svc: svc, api: api, session: sess, kv: kv, clock: fake, scoped: scoped}
}

type fakeAnalysisAPI struct {
	mu        sync.Mutex
	uploads   []ports.BatchPart
	finalized []string
	texts     []string
	files     []domain.FileRef

	result    domain.AnalysisResult
	uploadErr map[int]error
	onUpload  func(part ports.BatchPart)
	delay     time.Duration
	processed bool
}

func (f *fakeAnalysisAPI) AnalyzeText(_ context.Context, content string, _ domain.AnalysisOptions) (domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, content)
	return f.result, nil
}

func (f *fakeAnalysisAPI) AnalyzeFile(_ context.Context, file domain.FileRef, _ domain.AnalysisOptions) (domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, file)
	return f.result, nil
}

func (f *fakeAnalysisAPI) UploadBatchPart(ctx context.Context, part ports.BatchPart) (domain.AnalysisResult, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, part)
	err := f.uploadErr[part.Index]
	hook := f.onUpload
	processed := f.processed
	f.mu.Unlock()

	if hook != nil {
		hook(part)
	}
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	ack := domain.AnalysisResult{}
	if processed {
		ack.Meta = &domain.ResultMeta{ProcessedImages: part.Index, TotalImages: part.Total, BatchID: part.BatchID}
	}
	return ack, nil
}

func (f *fakeAnalysisAPI) FinalizeBatch(_ context.Context, batchID string) (domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = append(f.finalized, batchID)
	return f.result, nil
}

func (f *fakeAnalysisAPI) uploaded() []ports.BatchPart {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.BatchPart, len(f.uploads))
	copy(out, f.uploads)
	return out
}

func (f *fakeAnalysisAPI) finalizeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.finalized)
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []string
}

func (r *recordingNotifier) Toast(msg string) {
	r.mu.Lock()
	r.toasts = append(r.toasts, msg)
	r.mu.Unlock()
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.toasts))
	copy(out, r.toasts)
	return out
}

func remoteErr(status int) error {
	kind := apperr.KindRemoteRejected
	if status == 401 {
		kind = apperr.KindUnauthenticated
	}
	return &apperr.Error{Kind: kind, Op: "test", StatusCode: status, Message: "rejected"}
}

func pages(names ...string) []domain.FileRef {
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = "/tmp/" + n
	}
	return domain.PagesFromPaths(paths)
}
