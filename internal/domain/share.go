package domain

import "errors"

// ErrShareExpired is returned for a share link past its expiry.
var ErrShareExpired = errors.New("share expired")

// Share is a public, expiring summary of one analysis.
type Share struct {
	ShareID      string `json:"shareId,omitempty"`
	ContractName string `json:"contractName,omitempty"`
	Score        int    `json:"score"`
	ScoreTitle   string `json:"scoreTitle,omitempty"`
	RiskSummary  string `json:"riskSummary,omitempty"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
}
