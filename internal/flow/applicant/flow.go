// Package applicant drives the loan application workflow: Landing →
// Chat → UploadDocuments → AadhaarStatus → Result. Transitions are gated
// by server-declared directives and the cached session id; every
// downstream state re-validates the session precondition itself.
package applicant

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"loanflow/internal/api"
	"loanflow/internal/common/config"
	flowerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/metrics"
	"loanflow/internal/common/store"
	"loanflow/internal/docs"
	"loanflow/internal/models"
	"loanflow/internal/notify"
)

// State is the page the applicant currently sees.
type State string

const (
	StateLanding         State = "landing"
	StateChat            State = "chat"
	StateUploadDocuments State = "upload_documents"
	StateAadhaarStatus   State = "aadhaar_status"
	StateResult          State = "result"
)

// Generic user-facing messages; backend detail never leaks into them.
const (
	msgSessionNotFound   = "Session not found"
	msgStartFailed       = "Could not start your application. Please try again."
	msgChatApology       = "Sorry, something went wrong. Please try again."
	msgSubmitFailed      = "Document submission failed. Please try again."
	msgResultUnavailable = "Could not load your results. Please try again later."
)

// Backend is the slice of the API client the applicant flow uses.
type Backend interface {
	StartSession(ctx context.Context, channel string) (*api.SessionResponse, error)
	SendChatMessage(ctx context.Context, sessionID, message string) (*api.ChatResponse, error)
	VerifyAadhaar(ctx context.Context, sessionID, documentText string) (*api.AadhaarVerifyResponse, error)
	ProcessBankStatement(ctx context.Context, sessionID, documentText string) (*api.BankStatementResponse, error)
	PredictEligibility(ctx context.Context, sessionID string) (*api.PredictResponse, error)
	SaveReport(ctx context.Context, sessionID string) error
}

// Result is the terminal rendering of the flow.
type Result struct {
	Score       float64
	Eligible    bool
	Message     string
	Factors     []models.ExplanationFactor
	Unavailable bool
}

// Verification is the AadhaarStatus outcome.
type Verification struct {
	Resolved bool
	Verified bool
}

type Flow struct {
	backend  Backend
	store    store.Store
	notifier notify.Notifier
	logger   logger.Logger
	delays   config.DelayConfig
	channel  string

	state    State
	messages []models.ChatMessage

	aadhaarPath string
	bankPath    string

	aadhaarVerified bool
	incomeExtracted float64
	emiDetected     float64

	verification Verification
	result       Result
}

func New(backend Backend, st store.Store, notifier notify.Notifier, log logger.Logger, delays config.DelayConfig, channel string) *Flow {
	return &Flow{
		backend:  backend,
		store:    st,
		notifier: notifier,
		logger: log.WithFields(map[string]interface{}{
			"flow":  "applicant",
			"runId": uuid.NewString(),
		}),
		delays:  delays,
		channel: channel,
		state:   StateLanding,
	}
}

func (f *Flow) State() State { return f.state }

// Messages returns a copy of the append-only conversation log.
func (f *Flow) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *Flow) Verification() Verification { return f.verification }
func (f *Flow) Result() Result             { return f.result }

// Extraction reports the figures the backend pulled from the bank
// statement, available once documents are submitted.
func (f *Flow) Extraction() (income, emi float64) {
	return f.incomeExtracted, f.emiDetected
}

func (f *Flow) setState(s State) {
	f.state = s
	metrics.FlowTransitionsTotal.WithLabelValues("applicant", string(s)).Inc()
	f.logger.Info("state transition", map[string]interface{}{"to": string(s)})
}

// BeginApplication is the Landing → Chat transition. It opens a session,
// caches its id, and seeds the conversation with the greeting. On
// failure the flow stays on Landing.
func (f *Flow) BeginApplication(ctx context.Context) error {
	resp, err := f.backend.StartSession(ctx, f.channel)
	if err != nil {
		f.logger.WithError(err).Warn("session start failed", nil)
		f.notifier.Error(msgStartFailed)
		return err
	}

	if err := f.store.Put(store.KeySessionID, resp.SessionID); err != nil {
		f.logger.WithError(err).Error("failed to cache session id", nil)
		f.notifier.Error(msgStartFailed)
		return err
	}

	f.messages = append(f.messages, models.ChatMessage{Role: models.RoleAssistant, Content: resp.Message})
	f.setState(StateChat)
	return nil
}

// SendMessage posts one applicant turn. A failed call appends the
// generic apology in place of the assistant's reply and keeps the flow
// on Chat. A reply carrying exactly the upload_documents directive moves
// the flow forward after the chat-transition delay, leaving the
// assistant's final message visible meanwhile.
func (f *Flow) SendMessage(ctx context.Context, text string) error {
	const op = "applicant.send_message"
	if f.state != StateChat {
		return flowerrors.NewPreconditionError(op, "not in chat")
	}

	sessionID, ok, err := f.store.Get(store.KeySessionID)
	if err != nil || !ok {
		f.notifier.Error(msgSessionNotFound)
		f.setState(StateLanding)
		return flowerrors.NewPreconditionError(op, "no cached session id")
	}

	f.messages = append(f.messages, models.ChatMessage{Role: models.RoleUser, Content: text})

	resp, err := f.backend.SendChatMessage(ctx, sessionID, text)
	if err != nil {
		f.messages = append(f.messages, models.ChatMessage{Role: models.RoleAssistant, Content: msgChatApology})
		f.notifier.Error(msgChatApology)
		return nil
	}

	f.messages = append(f.messages, models.ChatMessage{Role: models.RoleAssistant, Content: resp.Response})

	if resp.NextStep == api.NextStepUploadDocuments {
		if err := sleep(ctx, f.delays.ChatTransition); err != nil {
			return err
		}
		f.setState(StateUploadDocuments)
	}
	return nil
}

// SelectAadhaarDocument records the identity document path.
func (f *Flow) SelectAadhaarDocument(path string) { f.aadhaarPath = path }

// SelectBankStatement records the financial document path.
func (f *Flow) SelectBankStatement(path string) { f.bankPath = path }

// CanSubmitDocuments reports whether both documents are selected; the
// submit action stays disabled until they are.
func (f *Flow) CanSubmitDocuments() bool {
	return f.aadhaarPath != "" && f.bankPath != ""
}

// SubmitDocuments sends the identity document for verification and then
// the financial document for processing, strictly in that order and
// sequentially. The financial document is processed even when the
// backend reports the identity document as not verified; only a thrown
// error aborts. Selections survive a failed submit for retry.
func (f *Flow) SubmitDocuments(ctx context.Context) error {
	const op = "applicant.submit_documents"
	if f.state != StateUploadDocuments {
		return flowerrors.NewPreconditionError(op, "not on upload page")
	}
	if !f.CanSubmitDocuments() {
		return flowerrors.NewValidationError(op, "both documents must be selected")
	}

	sessionID, ok, err := f.store.Get(store.KeySessionID)
	if err != nil || !ok {
		f.notifier.Error(msgSessionNotFound)
		f.setState(StateLanding)
		return flowerrors.NewPreconditionError(op, "no cached session id")
	}

	aadhaarText, err := docs.Load(f.aadhaarPath)
	if err != nil {
		f.notifier.Error(msgSubmitFailed)
		return err
	}
	bankText, err := docs.Load(f.bankPath)
	if err != nil {
		f.notifier.Error(msgSubmitFailed)
		return err
	}

	verifyResp, err := f.backend.VerifyAadhaar(ctx, sessionID, aadhaarText)
	if err != nil {
		f.notifier.Error(msgSubmitFailed)
		return err
	}
	f.aadhaarVerified = verifyResp.Verified

	stmtResp, err := f.backend.ProcessBankStatement(ctx, sessionID, bankText)
	if err != nil {
		f.notifier.Error(msgSubmitFailed)
		return err
	}
	f.incomeExtracted = stmtResp.IncomeExtracted
	f.emiDetected = stmtResp.EMIDetected

	f.notifier.Success("Documents submitted")

	if err := sleep(ctx, f.delays.UploadNavigation); err != nil {
		return err
	}
	f.setState(StateAadhaarStatus)
	return nil
}

// BackToChat is the only forward-flow backward transition.
func (f *Flow) BackToChat() {
	if f.state == StateUploadDocuments {
		f.setState(StateChat)
	}
}

// CheckVerification is the AadhaarStatus entry. It requires a cached
// session id, waits out the verification pacing, then resolves from the
// verified flag the upload step recorded.
func (f *Flow) CheckVerification(ctx context.Context) error {
	const op = "applicant.check_verification"

	if _, ok, err := f.store.Get(store.KeySessionID); err != nil || !ok {
		f.notifier.Error(msgSessionNotFound)
		f.setState(StateLanding)
		return flowerrors.NewPreconditionError(op, "no cached session id")
	}

	if err := sleep(ctx, f.delays.VerificationWait); err != nil {
		return err
	}

	f.verification = Verification{Resolved: true, Verified: f.aadhaarVerified}
	if f.verification.Verified {
		f.notifier.Success("Aadhaar verified")
	} else {
		f.notifier.Error("Aadhaar verification failed")
	}
	return nil
}

// ProceedToResult is the explicit user action off AadhaarStatus.
func (f *Flow) ProceedToResult() error {
	if f.state != StateAadhaarStatus || !f.verification.Resolved {
		return flowerrors.NewPreconditionError("applicant.proceed_to_result", "verification not resolved")
	}
	f.setState(StateResult)
	return nil
}

// LoadResult is the Result entry: predict, then persist the report
// unconditionally. Failure of either call leaves the terminal
// results-unavailable rendering with a manual return to start.
func (f *Flow) LoadResult(ctx context.Context) error {
	const op = "applicant.load_result"

	sessionID, ok, err := f.store.Get(store.KeySessionID)
	if err != nil || !ok {
		f.notifier.Error(msgSessionNotFound)
		f.setState(StateLanding)
		return flowerrors.NewPreconditionError(op, "no cached session id")
	}

	pred, err := f.backend.PredictEligibility(ctx, sessionID)
	if err != nil {
		f.logger.WithError(err).Warn("prediction failed", nil)
		f.notifier.Error(msgResultUnavailable)
		f.result = Result{Unavailable: true}
		return err
	}

	if err := f.backend.SaveReport(ctx, sessionID); err != nil {
		f.logger.WithError(err).Warn("report save failed", nil)
		f.notifier.Error(msgResultUnavailable)
		f.result = Result{Unavailable: true}
		return err
	}

	f.result = Result{
		Score:    pred.EligibilityScore,
		Eligible: pred.Eligible,
		Message:  pred.Message,
		Factors:  pred.ShapExplanation,
	}
	return nil
}

// ReturnToLanding discards the cached session id and restarts the flow.
// This is the only point the id is deliberately dropped.
func (f *Flow) ReturnToLanding() error {
	if err := f.store.Delete(store.KeySessionID); err != nil {
		return err
	}
	f.setState(StateLanding)
	f.messages = nil
	f.aadhaarPath = ""
	f.bankPath = ""
	f.verification = Verification{}
	f.result = Result{}
	return nil
}

// FormatScore renders an eligibility score in [0,1] as an integer
// percentage, round-to-nearest: 0.73 → "73%".
func FormatScore(score float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(score*100)))
}

// sleep waits out a pacing delay, bailing early if the flow's context
// is cancelled (navigating away abandons the pause).
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
