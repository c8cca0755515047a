package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/domain"
	"ContractGuard/internal/ports"
)

// ShareService publishes and reads analysis summaries.
type ShareService struct {
	api ports.ShareAPI
}

// NewShareService constructs the share use case.
func NewShareService(api ports.ShareAPI) *ShareService {
	return &ShareService{api: api}
}

// Create publishes analysisID under contractName.
func (s *ShareService) Create(ctx context.Context, analysisID, contractName string) (domain.Share, error) {
	analysisID = strings.TrimSpace(analysisID)
	if analysisID == "" {
		return domain.Share{}, apperr.New(apperr.KindInvalidInput, "create share", "missing analysis id")
	}
	share, err := s.api.CreateShare(ctx, analysisID, strings.TrimSpace(contractName))
	if err != nil {
		return domain.Share{}, fmt.Errorf("create share: %w", err)
	}
	return share, nil
}

// Get reads a public share. Expired links yield domain.ErrShareExpired.
func (s *ShareService) Get(ctx context.Context, shareID string) (domain.Share, error) {
	shareID = strings.TrimSpace(shareID)
	if shareID == "" {
		return domain.Share{}, apperr.New(apperr.KindInvalidInput, "get share", "missing share id")
	}
	share, err := s.api.Share(ctx, shareID)
	if err != nil {
		if apperr.StatusCode(err) == http.StatusGone {
			return domain.Share{}, fmt.Errorf("get share %s: %w", shareID, domain.ErrShareExpired)
		}
		return domain.Share{}, fmt.Errorf("get share %s: %w", shareID, err)
	}
	return share, nil
}
