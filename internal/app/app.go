package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ContractGuard/internal/clock"
	"ContractGuard/internal/config"
	"ContractGuard/internal/infrastructure/compress"
	"ContractGuard/internal/infrastructure/httpapi"
	"ContractGuard/internal/infrastructure/notify"
	"ContractGuard/internal/infrastructure/storage"
	"ContractGuard/internal/logging"
	"ContractGuard/internal/ports"
	"ContractGuard/internal/session"
	"ContractGuard/internal/usecase"
	"ContractGuard/pkg/logger"
)

// Application wires configs to use cases and owns their resources.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	closer io.Closer

	Session  *session.Store
	Client   *httpapi.Client
	Account  *usecase.AccountService
	History  *usecase.HistoryService
	Analysis *usecase.Orchestrator
	Payments *usecase.PaymentService
	Shares   *usecase.ShareService
	Notifier ports.Notifier
}

// Options override collaborators, mainly for tests.
type Options struct {
	Store    ports.KVStore
	Notifier ports.Notifier
	Clock    clock.Clock
}

// New builds the application from cfg.
func New(cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format, nil)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	kv := opts.Store
	if kv == nil {
		store, closer, err := openStore(cfg.Storage, logger.For(baseLogger, "storage"))
		if err != nil {
			return nil, err
		}
		kv, a.closer = store, closer
	}

	a.Notifier = opts.Notifier
	if a.Notifier == nil {
		a.Notifier = notify.NewConsole(nil)
	}

	a.Session = session.NewStore(kv, logger.For(baseLogger, "session"))
	a.Client = httpapi.NewClient(httpapi.Config{
		BaseURL:         cfg.API.BaseURL,
		UserAgent:       cfg.API.UserAgent,
		RequestTimeout:  cfg.API.RequestTimeout,
		UploadTimeout:   cfg.API.UploadTimeout,
		FinalizeTimeout: cfg.API.FinalizeTimeout,
	}, a.Session, nil, logger.For(baseLogger, "httpapi"))

	a.History = usecase.NewHistoryService(usecase.HistoryDeps{
		API:     a.Client,
		Store:   kv,
		Session: a.Session,
		Clock:   clk,
		Logger:  logger.For(baseLogger, "history"),
		TTL:     cfg.Cache.HistoryTTL,
	})
	a.Account = usecase.NewAccountService(usecase.AccountDeps{
		API:          a.Client,
		Store:        kv,
		Session:      a.Session,
		Clock:        clk,
		Logger:       logger.For(baseLogger, "account"),
		TTL:          cfg.Cache.ProfileTTL,
		ScopedCaches: []usecase.Clearer{a.History},
	})
	a.History.SetOnUnauthenticated(func() {
		if err := a.Account.Logout(); err != nil {
			baseLogger.Warn("sign out after rejected session failed", "error", err)
		}
	})

	a.Analysis = usecase.NewOrchestrator(usecase.AnalysisDeps{
		API:        a.Client,
		Account:    a.Account,
		History:    a.History,
		Compressor: compress.NewResizer(cfg.Compress.OutputDir, logger.For(baseLogger, "compress")),
		CompressOptions: ports.CompressOptions{
			MaxSide: cfg.Compress.MaxSide,
			Quality: cfg.Compress.Quality,
			Format:  cfg.Compress.Format,
		},
		Notifier: a.Notifier,
		Clock:    clk,
		Logger:   logger.For(baseLogger, "analysis"),
		Settings: analysisSettings(cfg.Analysis),
	})
	a.Payments = usecase.NewPaymentService(usecase.PaymentDeps{
		API:     a.Client,
		Account: a.Account,
		Clock:   clk,
		Logger:  logger.For(baseLogger, "payment"),
		Settings: usecase.PaymentSettings{
			ConfirmTries:    cfg.Payment.ConfirmTries,
			ConfirmInterval: cfg.Payment.ConfirmInterval,
			ConfirmDelay:    cfg.Payment.ConfirmDelay,
		},
	})
	a.Shares = usecase.NewShareService(a.Client)

	return a, nil
}

// Config returns the effective configuration.
func (a *Application) Config() config.Config { return a.cfg }

// Logger returns the base logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Ping checks backend connectivity.
func (a *Application) Ping(ctx context.Context) (map[string]any, error) {
	return a.Client.Ping(ctx)
}

// Close releases the local store.
func (a *Application) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func analysisSettings(c config.AnalysisConfig) usecase.AnalysisSettings {
	return usecase.AnalysisSettings{
		ProgressInterval:      c.ProgressInterval,
		BatchProgressInterval: c.BatchProgressInterval,
		StageInterval:         c.StageInterval,
		SingleCeiling:         c.SingleCeiling,
		BatchCeiling:          c.BatchCeiling,
		SingleStep:            c.SingleStep,
		BatchStep:             c.BatchStep,
		BatchPause:            c.BatchPause,
		CompletionDelay:       c.CompletionDelay,
		MaxImages:             c.MaxImages,
	}
}

func openStore(cfg config.StorageConfig, log *slog.Logger) (ports.KVStore, io.Closer, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return storage.NewMemoryStore(), nil, nil
	case "sqlite3", "sqlite":
		if dir := filepath.Dir(cfg.DSN); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, nil, fmt.Errorf("create store dir: %w", err)
			}
		}
		store, err := storage.OpenSQLStore("sqlite3", cfg.DSN, log)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store, nil
	case "postgres":
		store, err := storage.OpenSQLStore("postgres", cfg.DSN, log)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
