package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"ContractGuard/internal/domain"
)

// Prepay creates an order for skuID.
func (c *Client) Prepay(ctx context.Context, skuID string) (domain.Prepay, error) {
	var pre domain.Prepay
	err := c.Send(ctx, Request{
		Method: http.MethodPost,
		Path:   "/v1/pay/prepay",
		Body:   map[string]string{"sku_id": skuID},
	}, &pre)
	return pre, err
}

// Order fetches one order; the server reconciles with the payment provider
// before answering.
func (c *Client) Order(ctx context.Context, outTradeNo string) (domain.Order, error) {
	var order domain.Order
	err := c.Send(ctx, Request{
		Method: http.MethodGet,
		Path:   "/v1/pay/orders/" + url.PathEscape(outTradeNo),
	}, &order)
	return order, err
}

// Orders lists recent orders, newest first.
func (c *Client) Orders(ctx context.Context, limit int) ([]domain.Order, error) {
	var resp struct {
		Items []domain.Order `json:"items"`
	}
	err := c.Send(ctx, Request{
		Method: http.MethodGet,
		Path:   "/v1/pay/orders",
		Query:  url.Values{"limit": {strconv.Itoa(limit)}},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}
