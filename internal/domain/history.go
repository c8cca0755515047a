package domain

import (
	"fmt"
	"sort"
	"strings"
)

// HistoryItem is one past analysis, normalized for display and caching.
type HistoryItem struct {
	ID             string       `json:"id"`
	Type           string       `json:"type"`
	Identity       string       `json:"identity"`
	PromptVersion  string       `json:"promptVersion,omitempty"`
	Date           string       `json:"date"`
	FileURL        string       `json:"fileUrl,omitempty"`
	FileName       string       `json:"fileName,omitempty"`
	Result         HistoryScore `json:"result"`
	DisplayName    string       `json:"displayName,omitempty"`
	Score          int          `json:"score"`
	Risk           RiskLevel    `json:"risk,omitempty"`
	SnippetPreview string       `json:"snippetPreview,omitempty"`
}

// HistoryScore is the subset of the stored result the history list carries.
type HistoryScore struct {
	Score           float64      `json:"score"`
	RiskSummary     string       `json:"riskSummary"`
	OriginalContent string       `json:"originalContent"`
	Clauses         []RiskClause `json:"clauses"`
}

const snippetPreviewRunes = 28

// NormalizeHistory numbers items per contract type in ascending date order,
// computes score and risk, and returns the list newest first.
func NormalizeHistory(raw []HistoryItem) []HistoryItem {
	items := make([]HistoryItem, len(raw))
	copy(items, raw)

	groups := map[string][]int{}
	for i := range items {
		t := items[i].Type
		if t == "" {
			t = string(ContractGeneral)
		}
		groups[t] = append(groups[t], i)
	}

	for t, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			ia, ib := items[idx[a]], items[idx[b]]
			if ia.Date != ib.Date {
				return ia.Date < ib.Date
			}
			return ia.ID < ib.ID
		})
		for n, i := range idx {
			items[i].DisplayName = fmt.Sprintf("%s-%02d", t, n+1)
		}
	}

	for i := range items {
		items[i].Score = ClampScore(items[i].Result.Score)
		items[i].Risk = RiskForScore(items[i].Score)
		items[i].SnippetPreview = snippet(items[i].Result.OriginalContent)
	}

	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Date != items[b].Date {
			return items[a].Date > items[b].Date
		}
		return items[a].ID > items[b].ID
	})
	return items
}

// WithoutHistoryItem returns items minus the one with id.
func WithoutHistoryItem(items []HistoryItem, id string) []HistoryItem {
	out := make([]HistoryItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func snippet(text string) string {
	raw := strings.Join(strings.Fields(text), " ")
	if raw == "" {
		return ""
	}
	runes := []rune(raw)
	if len(runes) > snippetPreviewRunes {
		return string(runes[:snippetPreviewRunes]) + "…"
	}
	return raw
}
