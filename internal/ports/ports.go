package ports

import (
	"context"

	"ContractGuard/internal/domain"
)

// KVStore is durable local storage. Get never fails on a missing key.
type KVStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// TokenSource yields the current bearer credential, "" when signed out.
type TokenSource interface {
	Token() string
}

// AccountAPI covers the signed-in user endpoints.
type AccountAPI interface {
	Me(ctx context.Context) (domain.Profile, error)
	UpdateMe(ctx context.Context, displayName string) (domain.Profile, error)
	UploadAvatar(ctx context.Context, path string) (string, error)
	Login(ctx context.Context, phone, password string) (string, error)
}

// HistoryAPI lists and deletes past analyses.
type HistoryAPI interface {
	History(ctx context.Context) ([]domain.HistoryItem, error)
	DeleteAnalysis(ctx context.Context, id string) error
	DeleteAllAnalyses(ctx context.Context) error
}

// BatchPart is one page of a multi-image submission.
type BatchPart struct {
	BatchID string
	Index   int // 1-based
	Total   int
	File    domain.FileRef
	Options domain.AnalysisOptions
}

// AnalysisAPI submits documents for analysis.
type AnalysisAPI interface {
	AnalyzeText(ctx context.Context, content string, opts domain.AnalysisOptions) (domain.AnalysisResult, error)
	AnalyzeFile(ctx context.Context, file domain.FileRef, opts domain.AnalysisOptions) (domain.AnalysisResult, error)
	UploadBatchPart(ctx context.Context, part BatchPart) (domain.AnalysisResult, error)
	FinalizeBatch(ctx context.Context, batchID string) (domain.AnalysisResult, error)
}

// PaymentAPI creates and inspects credit purchases.
type PaymentAPI interface {
	Prepay(ctx context.Context, skuID string) (domain.Prepay, error)
	Order(ctx context.Context, outTradeNo string) (domain.Order, error)
	Orders(ctx context.Context, limit int) ([]domain.Order, error)
}

// ShareAPI publishes analysis summaries.
type ShareAPI interface {
	CreateShare(ctx context.Context, analysisID, contractName string) (domain.Share, error)
	Share(ctx context.Context, shareID string) (domain.Share, error)
}

// CompressOptions tune image downscaling.
type CompressOptions struct {
	MaxSide int
	Quality int // 1..100
	Format  string
}

// Compressor downsizes photos before upload. Items that fail keep their
// original path.
type Compressor interface {
	Compress(ctx context.Context, paths []string, opts CompressOptions) []string
}

// Notifier shows short user-facing messages.
type Notifier interface {
	Toast(msg string)
}
