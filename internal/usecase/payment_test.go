package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/clock"
	"ContractGuard/internal/domain"
)

type fakePaymentAPI struct {
	mu       sync.Mutex
	statuses []domain.OrderStatus
	orderErr error
	polls    int
	limits   []int
	prepay   domain.Prepay
}

func (f *fakePaymentAPI) Prepay(context.Context, string) (domain.Prepay, error) {
	return f.prepay, nil
}

func (f *fakePaymentAPI) Order(_ context.Context, outTradeNo string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	f.polls++
	if f.orderErr != nil {
		return domain.Order{}, f.orderErr
	}
	status := domain.OrderCreated
	if i < len(f.statuses) {
		status = f.statuses[i]
	}
	return domain.Order{OutTradeNo: outTradeNo, Status: status}, nil
}

func (f *fakePaymentAPI) Orders(_ context.Context, limit int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	return nil, nil
}

type stubBalance struct {
	mu        sync.Mutex
	cached    int
	refreshed []int
	refreshes int
}

func (s *stubBalance) Peek() (domain.Profile, bool) {
	return domain.Profile{Credits: s.cached}, true
}

func (s *stubBalance) Refresh(context.Context) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	credits := s.cached
	if s.refreshes < len(s.refreshed) {
		credits = s.refreshed[s.refreshes]
	}
	s.refreshes++
	return domain.Profile{Credits: credits}, nil
}

func (s *stubBalance) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

func newPaymentFixture(api *fakePaymentAPI, bal *stubBalance) (*PaymentService, *clock.Fake) {
	fake := clock.NewFake(testEpoch)
	return NewPaymentService(PaymentDeps{
		API:      api,
		Account:  bal,
		Clock:    fake,
		Settings: DefaultPaymentSettings(),
	}), fake
}

func waitConfirmation(t *testing.T, conf *Confirmation) {
	t.Helper()
	select {
	case <-conf.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("reconciliation did not finish")
	}
}

func TestConfirmSkipsPollingWhenBalanceRose(t *testing.T) {
	t.Parallel()

	api := &fakePaymentAPI{}
	bal := &stubBalance{cached: 2, refreshed: []int{7}}
	svc, fake := newPaymentFixture(api, bal)

	conf := svc.ConfirmCompleted(context.Background(), "o-1")
	waitConfirmation(t, conf)

	if !conf.Credited() || conf.Polls() != 0 || api.polls != 0 {
		t.Fatalf("expected no polling, got %d polls", api.polls)
	}
	if len(fake.Sleeps()) != 0 {
		t.Fatalf("expected no pauses, got %v", fake.Sleeps())
	}
}

func TestConfirmStopsOncePaid(t *testing.T) {
	t.Parallel()

	api := &fakePaymentAPI{statuses: []domain.OrderStatus{domain.OrderCreated, domain.OrderPaid, domain.OrderPaid}}
	bal := &stubBalance{cached: 2}
	svc, fake := newPaymentFixture(api, bal)

	conf := svc.ConfirmCompleted(context.Background(), "o-1")
	waitConfirmation(t, conf)

	if conf.Polls() != 2 || !conf.Credited() || !conf.LastOrder().Paid() {
		t.Fatalf("expected to stop after the PAID poll, got %d polls", conf.Polls())
	}
	if bal.count() != 3 {
		t.Fatalf("expected the balance refreshed after each poll, got %d refreshes", bal.count())
	}
	want := []time.Duration{600 * time.Millisecond, 900 * time.Millisecond}
	assertSleeps(t, fake.Sleeps(), want)
}

func TestConfirmGivesUpAfterBoundedTries(t *testing.T) {
	t.Parallel()

	api := &fakePaymentAPI{}
	bal := &stubBalance{cached: 2}
	svc, fake := newPaymentFixture(api, bal)

	conf := svc.ConfirmCompleted(context.Background(), "o-1")
	waitConfirmation(t, conf)

	if conf.Polls() != 3 || conf.Credited() {
		t.Fatalf("expected three unsuccessful polls, got %d", conf.Polls())
	}
	assertSleeps(t, fake.Sleeps(), []time.Duration{600 * time.Millisecond, 900 * time.Millisecond, 900 * time.Millisecond})
}

func TestConfirmSwallowsPollErrors(t *testing.T) {
	t.Parallel()

	api := &fakePaymentAPI{orderErr: errors.New("network down")}
	bal := &stubBalance{cached: 2}
	svc, _ := newPaymentFixture(api, bal)

	conf := svc.ConfirmCompleted(context.Background(), "o-1")
	waitConfirmation(t, conf)

	if conf.Polls() != 3 || bal.count() != 4 {
		t.Fatalf("expected 3 polls and 4 refreshes, got %d and %d", conf.Polls(), bal.count())
	}
}

func assertSleeps(t *testing.T, got, want []time.Duration) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected pauses %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pause %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestOrdersClampLimit(t *testing.T) {
	t.Parallel()

	api := &fakePaymentAPI{}
	svc, _ := newPaymentFixture(api, &stubBalance{})

	for _, limit := range []int{0, -3, 1, 50, 51, 500} {
		if _, err := svc.Orders(context.Background(), limit); err != nil {
			t.Fatalf("orders(%d): %v", limit, err)
		}
	}
	want := []int{20, 1, 1, 50, 50, 50}
	for i := range want {
		if api.limits[i] != want[i] {
			t.Fatalf("call %d: expected limit %d, got %d", i, want[i], api.limits[i])
		}
	}
}

func TestPrepayValidates(t *testing.T) {
	t.Parallel()

	api := &fakePaymentAPI{}
	svc, _ := newPaymentFixture(api, &stubBalance{})

	if _, err := svc.Prepay(context.Background(), ""); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Prepay(context.Background(), "pack_10"); !apperr.IsKind(err, apperr.KindMalformed) {
		t.Fatalf("expected malformed for empty prepay params, got %v", err)
	}

	api.prepay = domain.Prepay{OutTradeNo: "o-9", PaymentParams: map[string]any{"package": "prepay_id=x"}}
	pre, err := svc.Prepay(context.Background(), "pack_10")
	if err != nil || pre.OutTradeNo != "o-9" {
		t.Fatalf("unexpected prepay %+v %v", pre, err)
	}
}
