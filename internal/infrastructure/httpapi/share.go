package httpapi

import (
	"context"
	"net/http"
	"net/url"

	"ContractGuard/internal/domain"
)

// CreateShare publishes a summary of analysisID.
func (c *Client) CreateShare(ctx context.Context, analysisID, contractName string) (domain.Share, error) {
	var share domain.Share
	err := c.Send(ctx, Request{
		Method: http.MethodPost,
		Path:   "/v1/shares",
		Body: map[string]string{
			"analysis_id":  analysisID,
			"contractName": contractName,
		},
	}, &share)
	return share, err
}

// Share reads a public share; no credential is sent.
func (c *Client) Share(ctx context.Context, shareID string) (domain.Share, error) {
	var share domain.Share
	err := c.Send(ctx, Request{
		Method: http.MethodGet,
		Path:   "/v1/shares/" + url.PathEscape(shareID),
		Public: true,
	}, &share)
	if err == nil {
		share.ShareID = shareID
	}
	return share, err
}
