package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/clock"
	"ContractGuard/internal/domain"
	"ContractGuard/internal/ports"
)

const (
	defaultOrdersLimit = 20
	maxOrdersLimit     = 50
)

// PaymentSettings bound the post-payment reconciliation.
type PaymentSettings struct {
	ConfirmTries    int
	ConfirmInterval time.Duration
	ConfirmDelay    time.Duration
}

// DefaultPaymentSettings polls three times, 900ms apart, after 600ms.
func DefaultPaymentSettings() PaymentSettings {
	return PaymentSettings{
		ConfirmTries:    3,
		ConfirmInterval: 900 * time.Millisecond,
		ConfirmDelay:    600 * time.Millisecond,
	}
}

// BalanceSource reads and refreshes the cached balance.
type BalanceSource interface {
	Peek() (domain.Profile, bool)
	Refresh(ctx context.Context) (domain.Profile, error)
}

// PaymentDeps wires the payment service.
type PaymentDeps struct {
	API      ports.PaymentAPI
	Account  BalanceSource
	Clock    clock.Clock
	Logger   *slog.Logger
	Settings PaymentSettings
}

// PaymentService buys credits and reconciles the balance afterwards.
type PaymentService struct {
	api      ports.PaymentAPI
	account  BalanceSource
	clock    clock.Clock
	logger   *slog.Logger
	settings PaymentSettings
}

// NewPaymentService constructs the payment use case.
func NewPaymentService(deps PaymentDeps) *PaymentService {
	c := deps.Clock
	if c == nil {
		c = clock.System{}
	}
	return &PaymentService{
		api:      deps.API,
		account:  deps.Account,
		clock:    c,
		logger:   deps.Logger,
		settings: deps.Settings,
	}
}

// Prepay creates an order for sku and returns the provider parameters.
func (s *PaymentService) Prepay(ctx context.Context, sku string) (domain.Prepay, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return domain.Prepay{}, apperr.New(apperr.KindInvalidInput, "prepay", "missing sku")
	}
	pre, err := s.api.Prepay(ctx, sku)
	if err != nil {
		return domain.Prepay{}, fmt.Errorf("prepay %s: %w", sku, err)
	}
	if !pre.Valid() {
		return domain.Prepay{}, apperr.New(apperr.KindMalformed, "prepay "+sku, "missing payment parameters")
	}
	return pre, nil
}

// Order reads one order as the server currently sees it.
func (s *PaymentService) Order(ctx context.Context, outTradeNo string) (domain.Order, error) {
	order, err := s.api.Order(ctx, outTradeNo)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", outTradeNo, err)
	}
	return order, nil
}

// Orders lists recent orders; limit is clamped to 1..50 and 0 means 20.
func (s *PaymentService) Orders(ctx context.Context, limit int) ([]domain.Order, error) {
	switch {
	case limit == 0:
		limit = defaultOrdersLimit
	case limit < 1:
		limit = 1
	case limit > maxOrdersLimit:
		limit = maxOrdersLimit
	}
	orders, err := s.api.Orders(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Confirmation tracks one detached reconciliation.
type Confirmation struct {
	done chan struct{}

	mu       sync.Mutex
	credited bool
	polls    int
	last     domain.Order
}

// Done is closed when reconciliation has ended.
func (c *Confirmation) Done() <-chan struct{} { return c.done }

// Credited reports whether the balance went up or the order turned PAID.
func (c *Confirmation) Credited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credited
}

// Polls is the number of order status requests issued.
func (c *Confirmation) Polls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls
}

// LastOrder is the last order read, zero if none succeeded.
func (c *Confirmation) LastOrder() domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// ConfirmCompleted reconciles the balance after the payment provider
// reported success. It refreshes the balance once; if it did not go up, the
// order is polled a bounded number of times in the background. Failures
// are logged and swallowed.
func (s *PaymentService) ConfirmCompleted(ctx context.Context, outTradeNo string) *Confirmation {
	conf := &Confirmation{done: make(chan struct{})}

	before := 0
	if me, ok := s.account.Peek(); ok {
		before = me.Credits
	}
	after, err := s.account.Refresh(ctx)
	if err != nil {
		s.warn("balance refresh after payment failed", "out_trade_no", outTradeNo, "error", err)
	}
	if err == nil && after.Credits > before {
		conf.credited = true
		close(conf.done)
		return conf
	}

	go func() {
		defer close(conf.done)
		s.reconcile(ctx, outTradeNo, conf)
	}()
	return conf
}

func (s *PaymentService) reconcile(ctx context.Context, outTradeNo string, conf *Confirmation) {
	if err := s.clock.Sleep(ctx, s.settings.ConfirmDelay); err != nil {
		return
	}

	for i := 0; i < s.settings.ConfirmTries; i++ {
		order, err := s.api.Order(ctx, outTradeNo)
		conf.mu.Lock()
		conf.polls++
		if err == nil {
			conf.last = order
		}
		conf.mu.Unlock()
		if err != nil {
			s.debug("order poll failed", "out_trade_no", outTradeNo, "attempt", i+1, "error", err)
		}

		if _, rerr := s.account.Refresh(ctx); rerr != nil {
			s.debug("balance refresh failed", "attempt", i+1, "error", rerr)
		}

		if err == nil && order.Paid() {
			conf.mu.Lock()
			conf.credited = true
			conf.mu.Unlock()
			s.info("payment confirmed", "out_trade_no", outTradeNo, "attempt", i+1)
			return
		}

		if i < s.settings.ConfirmTries-1 {
			if err := s.clock.Sleep(ctx, s.settings.ConfirmInterval); err != nil {
				return
			}
		}
	}
	s.info("payment not yet confirmed", "out_trade_no", outTradeNo, "tries", s.settings.ConfirmTries)
}

func (s *PaymentService) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *PaymentService) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *PaymentService) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
