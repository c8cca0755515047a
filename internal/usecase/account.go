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

// ProfileCacheKey is the store key of the cached profile and balance.
const ProfileCacheKey = "ME_CACHE_V1"

// Credentials is the session store the account service signs in and out of.
type Credentials interface {
	ports.TokenSource
	SetToken(token string) error
	Clear() error
}

// Clearer drops a session-scoped cache.
type Clearer interface {
	Clear()
}

// AccountDeps wires the account service.
type AccountDeps struct {
	API     ports.AccountAPI
	Store   ports.KVStore
	Session Credentials
	Clock   clock.Clock
	Logger  *slog.Logger
	TTL     time.Duration
	// ScopedCaches are cleared together with the profile on sign in and out.
	ScopedCaches []Clearer
}

// AccountService owns the profile/credit cache and the session lifecycle.
type AccountService struct {
	api     ports.AccountAPI
	session Credentials
	cache   *swr.Cache[domain.Profile]
	scoped  []Clearer
	logger  *slog.Logger
}

// NewAccountService constructs the account use case.
func NewAccountService(deps AccountDeps) *AccountService {
	return &AccountService{
		api:     deps.API,
		session: deps.Session,
		cache: swr.New[domain.Profile](swr.Config{
			Key:         ProfileCacheKey,
			TTL:         deps.TTL,
			Store:       deps.Store,
			Credentials: deps.Session,
			Clock:       deps.Clock,
			Logger:      deps.Logger,
		}),
		scoped: deps.ScopedCaches,
		logger: deps.Logger,
	}
}

// AddScopedCache registers another cache dropped on sign in and out.
func (s *AccountService) AddScopedCache(c Clearer) {
	s.scoped = append(s.scoped, c)
}

// Me returns the profile, cache first unless force is set.
func (s *AccountService) Me(ctx context.Context, force bool) (swr.Result[domain.Profile], error) {
	res, err := s.cache.Fetch(ctx, s.api.Me, swr.Options{Force: force})
	if err != nil && swr.ReasonOf(err) == swr.ReasonUnauth {
		s.signOut()
	}
	return res, err
}

// Peek is a local read of the cached profile. It reports false when signed
// out or nothing is cached.
func (s *AccountService) Peek() (domain.Profile, bool) {
	if s.session.Token() == "" {
		return domain.Profile{}, false
	}
	entry, ok := s.cache.Read()
	return entry.Value, ok
}

// Guard is the fast pre-check before offering a metered action. It only
// reads the cache: a session and a cached profile must exist, whatever its
// age, and the cached balance must be positive. The server is consulted
// later by Revalidate.
func (s *AccountService) Guard() error {
	const op = "check balance"
	if s.session.Token() == "" {
		return apperr.New(apperr.KindUnauthenticated, op, "no session")
	}
	entry, ok := s.cache.Read()
	if !ok {
		return apperr.New(apperr.KindUnauthenticated, op, "no cached profile")
	}
	if entry.Value.Credits <= 0 {
		return apperr.New(apperr.KindInsufficientBalance, op, "no credits")
	}
	return nil
}

// SpendCredit lowers the cached balance by one after a metered action
// succeeded. The fetch time is kept so the next refresh happens on schedule.
func (s *AccountService) SpendCredit() {
	s.cache.Patch(func(p domain.Profile) domain.Profile {
		if p.Credits > 0 {
			p.Credits--
		}
		return p
	})
}

// Revalidate force-refreshes the profile right before committing to a
// metered action. Only a network answer counts; a stale cache fallback is
// treated as a failed check.
func (s *AccountService) Revalidate(ctx context.Context) (domain.Profile, error) {
	const op = "revalidate balance"
	res, err := s.Me(ctx, true)
	if err != nil {
		if swr.ReasonOf(err) == swr.ReasonUnauth {
			return domain.Profile{}, apperr.New(apperr.KindUnauthenticated, op, "session rejected")
		}
		return domain.Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.Source != swr.SourceNetwork {
		return domain.Profile{}, apperr.New(apperr.KindTransport, op, "balance could not be confirmed")
	}
	if res.Value.Credits <= 0 {
		return res.Value, apperr.New(apperr.KindInsufficientBalance, op, "no credits")
	}
	return res.Value, nil
}

// Refresh force-refreshes the profile and returns whatever was obtained.
func (s *AccountService) Refresh(ctx context.Context) (domain.Profile, error) {
	res, err := s.Me(ctx, true)
	return res.Value, err
}

// UpdateDisplayName renames the account and caches the server's answer.
func (s *AccountService) UpdateDisplayName(ctx context.Context, name string) (domain.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Profile{}, apperr.New(apperr.KindInvalidInput, "update display name", "empty name")
	}
	me, err := s.api.UpdateMe(ctx, name)
	if err != nil {
		return domain.Profile{}, s.remoteFailed("update display name", err)
	}
	s.cache.Seed(me)
	return me, nil
}

// UploadAvatar replaces the avatar and reloads the profile.
func (s *AccountService) UploadAvatar(ctx context.Context, path string) (domain.Profile, error) {
	if strings.TrimSpace(path) == "" {
		return domain.Profile{}, apperr.New(apperr.KindInvalidInput, "upload avatar", "missing path")
	}
	avatar, err := s.api.UploadAvatar(ctx, path)
	if err != nil {
		return domain.Profile{}, s.remoteFailed("upload avatar", err)
	}
	s.debug("avatar uploaded", "avatar_url", avatar)
	return s.Refresh(ctx)
}

// Login signs in and loads the new identity's profile.
func (s *AccountService) Login(ctx context.Context, phone, password string) (domain.Profile, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return domain.Profile{}, apperr.New(apperr.KindInvalidInput, "login", "phone and password are required")
	}
	token, err := s.api.Login(ctx, phone, password)
	if err != nil {
		return domain.Profile{}, err
	}
	s.clearCaches()
	if err := s.session.SetToken(token); err != nil {
		return domain.Profile{}, fmt.Errorf("store token: %w", err)
	}
	return s.Refresh(ctx)
}

// Logout forgets the credential and every session-scoped cache.
func (s *AccountService) Logout() error {
	s.clearCaches()
	if err := s.session.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *AccountService) remoteFailed(op string, err error) error {
	if apperr.IsKind(err, apperr.KindUnauthenticated) {
		s.signOut()
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *AccountService) signOut() {
	if err := s.Logout(); err != nil {
		s.warn("sign out failed", "error", err)
	}
}

func (s *AccountService) clearCaches() {
	s.cache.Clear()
	for _, c := range s.scoped {
		c.Clear()
	}
}

func (s *AccountService) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *AccountService) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
