package api

import "loanflow/internal/models"

// Next-step directives the chat endpoint may attach to a reply. The
// applicant flow navigates only on an exact match.
const NextStepUploadDocuments = "upload_documents"

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
	NextStep string `json:"next_step,omitempty"`
}

type AadhaarVerifyResponse struct {
	Verified      bool                   `json:"verified"`
	Message       string                 `json:"message"`
	ExtractedData map[string]interface{} `json:"extracted_data,omitempty"`
}

type BankStatementResponse struct {
	IncomeExtracted float64 `json:"income_extracted"`
	EMIDetected     float64 `json:"emi_detected"`
	Message         string  `json:"message"`
}

type PredictResponse struct {
	EligibilityScore float64                    `json:"eligibility_score"`
	Eligible         bool                       `json:"eligible"`
	Message          string                     `json:"message"`
	ShapExplanation  []models.ExplanationFactor `json:"shap_explanation"`
}

type applicationListResponse struct {
	Applications []models.ApplicationSummary `json:"applications"`
}

type startSessionRequest struct {
	Channel string `json:"channel"`
}

type chatInputRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type documentRequest struct {
	SessionID    string `json:"session_id"`
	DocumentText string `json:"document_text"`
}

type sessionOnlyRequest struct {
	SessionID string `json:"session_id"`
}

type managerLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type reviewActionRequest struct {
	ApplicationID string `json:"application_id"`
	ManagerEmail  string `json:"manager_email"`
}
