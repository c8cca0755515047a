package domain

// RiskLevel buckets a clause or a whole contract.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// RiskClause is one flagged clause of an analyzed contract.
type RiskClause struct {
	Section      string    `json:"section"`
	Title        string    `json:"title"`
	OriginalText string    `json:"originalText"`
	Explanation  string    `json:"explanation"`
	Suggestion   string    `json:"suggestion"`
	Level        RiskLevel `json:"level"`
}

// ResultMeta is attached to batch part acknowledgements.
type ResultMeta struct {
	ProcessedImages int    `json:"processedImages,omitempty"`
	TotalImages     int    `json:"totalImages,omitempty"`
	BatchID         string `json:"batchId,omitempty"`
	Pending         bool   `json:"pending,omitempty"`
	ReadyToFinalize bool   `json:"readyToFinalize,omitempty"`
}

// AnalysisResult is the final report for one submission.
type AnalysisResult struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Date            string       `json:"date"`
	Score           float64      `json:"score"`
	RiskSummary     string       `json:"riskSummary"`
	Clauses         []RiskClause `json:"clauses"`
	OriginalContent string       `json:"originalContent"`
	Status          string       `json:"status"`
	Type            string       `json:"type"`
	Identity        string       `json:"identity"`
	PromptVersion   string       `json:"promptVersion"`
	ImagePreview    string       `json:"imagePreview,omitempty"`
	FileURL         string       `json:"fileUrl,omitempty"`
	FileName        string       `json:"fileName,omitempty"`
	Meta            *ResultMeta  `json:"meta,omitempty"`
}

// ClampScore rounds score into 0..100.
func ClampScore(score float64) int {
	if score != score || score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score + 0.5)
}

// RiskForScore maps a contract score to its overall risk bucket.
// Lower scores mean riskier contracts.
func RiskForScore(score int) RiskLevel {
	switch {
	case score < 40:
		return RiskHigh
	case score < 70:
		return RiskMedium
	default:
		return RiskLow
	}
}
