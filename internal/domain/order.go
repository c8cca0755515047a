package domain

import "time"

// OrderStatus mirrors the backend order lifecycle: CREATED -> PAID | CLOSED.
type OrderStatus string

const (
	OrderCreated OrderStatus = "CREATED"
	OrderPaid    OrderStatus = "PAID"
	OrderClosed  OrderStatus = "CLOSED"
)

// Order is a credit purchase. The server is authoritative for Status.
type Order struct {
	OutTradeNo      string      `json:"outTradeNo"`
	SkuID           string      `json:"skuId,omitempty"`
	Status          OrderStatus `json:"status"`
	Credits         int         `json:"credits"`
	TotalFee        int         `json:"totalFee"`
	CreatedAt       string      `json:"createdAt,omitempty"`
	PaidAt          string      `json:"paidAt,omitempty"`
	WxTransactionID string      `json:"wxTransactionId,omitempty"`
}

// Paid reports whether the server has credited the order.
func (o Order) Paid() bool {
	return o.Status == OrderPaid
}

// StatusText is the short label used in listings.
func (o Order) StatusText() string {
	switch o.Status {
	case OrderPaid:
		return "paid"
	case OrderCreated:
		return "pending"
	default:
		return "closed"
	}
}

// FeeText renders TotalFee (minor units) as a decimal amount.
func (o Order) FeeText() string {
	return formatMinorUnits(o.TotalFee)
}

// Created parses CreatedAt; the backend emits ISO timestamps without zone.
func (o Order) Created() (time.Time, bool) {
	return parseTimestamp(o.CreatedAt)
}

// Prepay is the server answer to a purchase request.
type Prepay struct {
	OutTradeNo    string         `json:"outTradeNo"`
	PaymentParams map[string]any `json:"paymentParams"`
}

// Valid reports whether the payment can be launched.
func (p Prepay) Valid() bool {
	return p.OutTradeNo != "" && len(p.PaymentParams) > 0
}
