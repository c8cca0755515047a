package httpapi

import (
	"context"
	"net/http"
	"net/url"

	"ContractGuard/internal/domain"
)

// History returns the raw history list, newest first as stored server side.
func (c *Client) History(ctx context.Context) ([]domain.HistoryItem, error) {
	var resp struct {
		Items []domain.HistoryItem `json:"items"`
	}
	if err := c.Send(ctx, Request{Method: http.MethodGet, Path: "/v1/contracts/history"}, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []domain.HistoryItem{}
	}
	return resp.Items, nil
}

// DeleteAnalysis removes one analysis.
func (c *Client) DeleteAnalysis(ctx context.Context, id string) error {
	return c.Send(ctx, Request{Method: http.MethodDelete, Path: "/v1/analyses/" + url.PathEscape(id)}, nil)
}

// DeleteAllAnalyses wipes the user's history.
func (c *Client) DeleteAllAnalyses(ctx context.Context) error {
	return c.Send(ctx, Request{Method: http.MethodDelete, Path: "/v1/analyses"}, nil)
}
