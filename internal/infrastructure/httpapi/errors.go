package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/PuerkitoBio/goquery"

	"ContractGuard/internal/apperr"
)

const maxDiagnosticRunes = 200

func remoteError(op string, status int, contentType string, body []byte) *apperr.Error {
	kind := apperr.KindRemoteRejected
	switch status {
	case http.StatusUnauthorized:
		kind = apperr.KindUnauthenticated
	case http.StatusPaymentRequired:
		kind = apperr.KindInsufficientBalance
	}
	return &apperr.Error{
		Kind:       kind,
		Op:         op,
		StatusCode: status,
		Body:       body,
		Message:    diagnostic(status, contentType, body),
	}
}

func transportError(op string, err error) *apperr.Error {
	return &apperr.Error{
		Kind:    apperr.KindTransport,
		Op:      op,
		Code:    transportCode(err),
		Message: "request did not complete",
		Err:     err,
	}
}

func transportCode(err error) string {
	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection_refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "connection_reset"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	}
	return "network"
}

// diagnostic extracts a short human-readable reason from an error body.
// FastAPI answers {"detail": ...}; other services use {"message": ...};
// reverse proxies answer with an HTML page.
func diagnostic(status int, contentType string, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return http.StatusText(status)
	}

	if strings.Contains(contentType, "html") || bytes.HasPrefix(trimmed, []byte("<")) {
		if msg := htmlDiagnostic(trimmed); msg != "" {
			return truncate(msg)
		}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				return truncate(s)
			}
			return truncate(string(raw))
		}
	}

	return truncate(string(trimmed))
}

func htmlDiagnostic(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"title", "h1", "body"} {
		text := strings.Join(strings.Fields(doc.Find(sel).First().Text()), " ")
		if text != "" {
			return text
		}
	}
	return ""
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > maxDiagnosticRunes {
		return string(runes[:maxDiagnosticRunes]) + "…"
	}
	return s
}
