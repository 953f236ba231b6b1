// Package models holds the client-side projections of backend records.
// The authoritative rows live behind the API; nothing here is mutated
// locally except by replacing it with a fresh fetch.
package models

// Final statuses an application moves through. Only the backend changes
// them; approve/reject are the manager's two levers.
const (
	StatusPending     = "pending"
	StatusEligible    = "eligible"
	StatusNeedsReview = "needs_review"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
)

// Reviewable reports whether a manager may act on an application in the
// given status.
func Reviewable(status string) bool {
	return status == StatusEligible || status == StatusNeedsReview
}

// ApplicationSummary is one dashboard row.
type ApplicationSummary struct {
	ID            string  `json:"id"`
	SessionID     string  `json:"session_id"`
	Name          string  `json:"name,omitempty"`
	IncomeClaimed float64 `json:"income_claimed,omitempty"`
	LoanAmount    float64 `json:"loan_amount,omitempty"`
	CreditScore   int     `json:"credit_score,omitempty"`
	FinalStatus   string  `json:"final_status"`
	CreatedAt     string  `json:"created_at"`
}

// ApplicationDetail is the full record shown in the review overlay.
type ApplicationDetail struct {
	ID                 string              `json:"id"`
	SessionID          string              `json:"session_id"`
	Name               string              `json:"name,omitempty"`
	IncomeClaimed      float64             `json:"income_claimed,omitempty"`
	IncomeExtracted    float64             `json:"income_extracted,omitempty"`
	LoanAmount         float64             `json:"loan_amount,omitempty"`
	CreditScore        int                 `json:"credit_score,omitempty"`
	EmploymentType     string              `json:"employment_type,omitempty"`
	EMIDetected        float64             `json:"emi_detected,omitempty"`
	AadhaarVerified    bool                `json:"aadhaar_verified"`
	DocumentsVerified  bool                `json:"documents_verified"`
	EligibilityScore   float64             `json:"eligibility_score,omitempty"`
	FinalStatus        string              `json:"final_status"`
	ShapExplanation    []ExplanationFactor `json:"shap_explanation,omitempty"`
	AadhaarDocumentURL string              `json:"aadhaar_document_url,omitempty"`
	BankStatementURL   string              `json:"bank_statement_url,omitempty"`
	CreatedAt          string              `json:"created_at"`
	UpdatedAt          string              `json:"updated_at"`
}

// ExplanationFactor is one attributed input feature behind a score. The
// client renders factors in backend order and never recomputes them.
type ExplanationFactor struct {
	Feature   string      `json:"feature"`
	Impact    float64     `json:"impact"`
	Value     interface{} `json:"value"`
	Direction string      `json:"direction"`
}
