package applicant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanflow/internal/api"
	"loanflow/internal/common/config"
	flowerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/store"
	"loanflow/internal/notify"
)

// ==========================
// Test Helper Functions
// ==========================

// fakeBackend records the order of calls and serves canned responses.
type fakeBackend struct {
	calls []string

	startSession func(channel string) (*api.SessionResponse, error)
	sendChat     func(sessionID, message string) (*api.ChatResponse, error)
	verify       func(sessionID, documentText string) (*api.AadhaarVerifyResponse, error)
	process      func(sessionID, documentText string) (*api.BankStatementResponse, error)
	predict      func(sessionID string) (*api.PredictResponse, error)
	saveReport   func(sessionID string) error
}

func (b *fakeBackend) StartSession(_ context.Context, channel string) (*api.SessionResponse, error) {
	b.calls = append(b.calls, "start-session")
	if b.startSession != nil {
		return b.startSession(channel)
	}
	return &api.SessionResponse{SessionID: "abc123", Message: "Hello! Let's check your loan eligibility."}, nil
}

func (b *fakeBackend) SendChatMessage(_ context.Context, sessionID, message string) (*api.ChatResponse, error) {
	b.calls = append(b.calls, "chat-input")
	if b.sendChat != nil {
		return b.sendChat(sessionID, message)
	}
	return &api.ChatResponse{Response: "Noted."}, nil
}

func (b *fakeBackend) VerifyAadhaar(_ context.Context, sessionID, documentText string) (*api.AadhaarVerifyResponse, error) {
	b.calls = append(b.calls, "verify-aadhaar")
	if b.verify != nil {
		return b.verify(sessionID, documentText)
	}
	return &api.AadhaarVerifyResponse{Verified: true, Message: "ok"}, nil
}

func (b *fakeBackend) ProcessBankStatement(_ context.Context, sessionID, documentText string) (*api.BankStatementResponse, error) {
	b.calls = append(b.calls, "process-bank-statement")
	if b.process != nil {
		return b.process(sessionID, documentText)
	}
	return &api.BankStatementResponse{IncomeExtracted: 52000, EMIDetected: 4000, Message: "ok"}, nil
}

func (b *fakeBackend) PredictEligibility(_ context.Context, sessionID string) (*api.PredictResponse, error) {
	b.calls = append(b.calls, "predict")
	if b.predict != nil {
		return b.predict(sessionID)
	}
	return &api.PredictResponse{EligibilityScore: 0.73, Eligible: true, Message: "looks good"}, nil
}

func (b *fakeBackend) SaveReport(_ context.Context, sessionID string) error {
	b.calls = append(b.calls, "save-report")
	if b.saveReport != nil {
		return b.saveReport(sessionID)
	}
	return nil
}

func createTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// createTestFlow wires a flow with zeroed pacing delays.
func createTestFlow(t *testing.T, backend *fakeBackend, st store.Store, rec *notify.Recorder) *Flow {
	t.Helper()
	return New(backend, st, rec, logger.NewTestLogger(t), config.DelayConfig{}, "web")
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// advanceToUpload walks a fresh flow to the UploadDocuments state.
func advanceToUpload(t *testing.T, flow *Flow) {
	t.Helper()
	require.NoError(t, flow.BeginApplication(context.Background()))
	backend := flow.backend.(*fakeBackend)
	prev := backend.sendChat
	backend.sendChat = func(sessionID, message string) (*api.ChatResponse, error) {
		return &api.ChatResponse{Response: "Please upload your documents.", NextStep: api.NextStepUploadDocuments}, nil
	}
	require.NoError(t, flow.SendMessage(context.Background(), "I need a loan"))
	backend.sendChat = prev
	require.Equal(t, StateUploadDocuments, flow.State())
}

// ==========================
// Chat Entry & Directive Tests
// ==========================

func TestBeginApplication_CachesSessionAndSeedsGreeting(t *testing.T) {
	backend := &fakeBackend{}
	st := createTestStore(t)
	flow := createTestFlow(t, backend, st, notify.NewRecorder())

	require.NoError(t, flow.BeginApplication(context.Background()))

	assert.Equal(t, StateChat, flow.State())

	id, ok, err := st.Get(store.KeySessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc123", id)

	msgs := flow.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "assistant", msgs[0].Role)
	assert.Equal(t, "Hello! Let's check your loan eligibility.", msgs[0].Content)
}

func TestBeginApplication_FailureStaysOnLanding(t *testing.T) {
	backend := &fakeBackend{
		startSession: func(string) (*api.SessionResponse, error) {
			return nil, flowerrors.NewNetworkError("start-session", errors.New("dial tcp: refused"))
		},
	}
	st := createTestStore(t)
	rec := notify.NewRecorder()
	flow := createTestFlow(t, backend, st, rec)

	err := flow.BeginApplication(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateLanding, flow.State())
	_, ok, _ := st.Get(store.KeySessionID)
	assert.False(t, ok)
	last, found := rec.Last()
	require.True(t, found)
	assert.Equal(t, "error", last.Level)
}

func TestSendMessage_DirectiveNavigation(t *testing.T) {
	tests := []struct {
		name      string
		nextStep  string
		wantState State
	}{
		{name: "exact upload_documents directive navigates", nextStep: "upload_documents", wantState: StateUploadDocuments},
		{name: "absent directive stays", nextStep: "", wantState: StateChat},
		{name: "unknown directive stays", nextStep: "verify_aadhaar", wantState: StateChat},
		{name: "near-miss directive stays", nextStep: "upload_document", wantState: StateChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{
				sendChat: func(sessionID, message string) (*api.ChatResponse, error) {
					return &api.ChatResponse{Response: "ok", NextStep: tt.nextStep}, nil
				},
			}
			flow := createTestFlow(t, backend, createTestStore(t), notify.NewRecorder())
			require.NoError(t, flow.BeginApplication(context.Background()))

			require.NoError(t, flow.SendMessage(context.Background(), "I need a loan"))

			assert.Equal(t, tt.wantState, flow.State())
		})
	}
}

func TestSendMessage_FailureAppendsApology(t *testing.T) {
	backend := &fakeBackend{
		sendChat: func(sessionID, message string) (*api.ChatResponse, error) {
			return nil, flowerrors.NewNetworkError("chat-input", errors.New("boom"))
		},
	}
	rec := notify.NewRecorder()
	flow := createTestFlow(t, backend, createTestStore(t), rec)
	require.NoError(t, flow.BeginApplication(context.Background()))

	require.NoError(t, flow.SendMessage(context.Background(), "hello"))

	msgs := flow.Messages()
	require.Len(t, msgs, 3) // greeting, user turn, apology
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "Sorry, something went wrong. Please try again.", msgs[2].Content)
	assert.Equal(t, StateChat, flow.State())
}

func TestScenario_StartSessionThenDirective(t *testing.T) {
	backend := &fakeBackend{
		sendChat: func(sessionID, message string) (*api.ChatResponse, error) {
			require.Equal(t, "abc123", sessionID)
			require.Equal(t, "I need a loan", message)
			return &api.ChatResponse{Response: "Great, upload your documents next.", NextStep: "upload_documents"}, nil
		},
	}
	st := createTestStore(t)
	flow := createTestFlow(t, backend, st, notify.NewRecorder())

	require.NoError(t, flow.BeginApplication(context.Background()))
	require.NoError(t, flow.SendMessage(context.Background(), "I need a loan"))

	id, ok, _ := st.Get(store.KeySessionID)
	require.True(t, ok)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, StateUploadDocuments, flow.State())
}

// ==========================
// Document Submission Tests
// ==========================

func TestSubmitDocuments_RequiresBothSelections(t *testing.T) {
	backend := &fakeBackend{}
	flow := createTestFlow(t, backend, createTestStore(t), notify.NewRecorder())
	advanceToUpload(t, flow)

	flow.SelectAadhaarDocument(writeDoc(t, "aadhaar.txt", "id text"))

	assert.False(t, flow.CanSubmitDocuments())
	err := flow.SubmitDocuments(context.Background())
	require.Error(t, err)
	assert.True(t, flowerrors.IsKind(err, flowerrors.KindValidation))
	assert.NotContains(t, backend.calls, "verify-aadhaar")
	assert.NotContains(t, backend.calls, "process-bank-statement")
}

func TestSubmitDocuments_OrderingInvariant(t *testing.T) {
	backend := &fakeBackend{}
	flow := createTestFlow(t, backend, createTestStore(t), notify.NewRecorder())
	advanceToUpload(t, flow)

	flow.SelectAadhaarDocument(writeDoc(t, "aadhaar.txt", "id text"))
	flow.SelectBankStatement(writeDoc(t, "statement.txt", "stmt text"))

	require.NoError(t, flow.SubmitDocuments(context.Background()))

	require.Equal(t, []string{"start-session", "chat-input", "verify-aadhaar", "process-bank-statement"}, backend.calls)
	assert.Equal(t, StateAadhaarStatus, flow.State())

	income, emi := flow.Extraction()
	assert.InDelta(t, 52000, income, 1e-9)
	assert.InDelta(t, 4000, emi, 1e-9)
}

func TestSubmitDocuments_ProcessesStatementWhenNotVerified(t *testing.T) {
	backend := &fakeBackend{
		verify: func(sessionID, documentText string) (*api.AadhaarVerifyResponse, error) {
			return &api.AadhaarVerifyResponse{Verified: false, Message: "could not match"}, nil
		},
	}
	flow := createTestFlow(t, backend, createTestStore(t), notify.NewRecorder())
	advanceToUpload(t, flow)

	flow.SelectAadhaarDocument(writeDoc(t, "aadhaar.txt", "id text"))
	flow.SelectBankStatement(writeDoc(t, "statement.txt", "stmt text"))

	require.NoError(t, flow.SubmitDocuments(context.Background()))

	assert.Contains(t, backend.calls, "process-bank-statement")
	assert.Equal(t, StateAadhaarStatus, flow.State())
}

func TestSubmitDocuments_ErrorPreservesSelections(t *testing.T) {
	backend := &fakeBackend{
		process: func(sessionID, documentText string) (*api.BankStatementResponse, error) {
			return nil, flowerrors.NewNetworkError("process-bank-statement", errors.New("boom"))
		},
	}
	rec := notify.NewRecorder()
	flow := createTestFlow(t, backend, createTestStore(t), rec)
	advanceToUpload(t, flow)

	flow.SelectAadhaarDocument(writeDoc(t, "aadhaar.txt", "id text"))
	flow.SelectBankStatement(writeDoc(t, "statement.txt", "stmt text"))

	err := flow.SubmitDocuments(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateUploadDocuments, flow.State())
	assert.True(t, flow.CanSubmitDocuments(), "selections must survive a failed submit")
	last, found := rec.Last()
	require.True(t, found)
	assert.Equal(t, "error", last.Level)
}

// ==========================
// AadhaarStatus Tests
// ==========================

func TestCheckVerification_NoSessionRedirectsWithoutAPICalls(t *testing.T) {
	backend := &fakeBackend{}
	rec := notify.NewRecorder()
	flow := createTestFlow(t, backend, createTestStore(t), rec)

	err := flow.CheckVerification(context.Background())

	require.Error(t, err)
	assert.True(t, flowerrors.IsKind(err, flowerrors.KindPrecondition))
	assert.Equal(t, StateLanding, flow.State())
	assert.Empty(t, backend.calls)
	last, found := rec.Last()
	require.True(t, found)
	assert.Equal(t, "Session not found", last.Message)
}

func TestCheckVerification_ResolvesFromRecordedFlag(t *testing.T) {
	tests := []struct {
		name     string
		verified bool
	}{
		{name: "verified", verified: true},
		{name: "failed", verified: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{
				verify: func(sessionID, documentText string) (*api.AadhaarVerifyResponse, error) {
					return &api.AadhaarVerifyResponse{Verified: tt.verified}, nil
				},
			}
			flow := createTestFlow(t, backend, createTestStore(t), notify.NewRecorder())
			advanceToUpload(t, flow)
			flow.SelectAadhaarDocument(writeDoc(t, "aadhaar.txt", "id text"))
			flow.SelectBankStatement(writeDoc(t, "statement.txt", "stmt text"))
			require.NoError(t, flow.SubmitDocuments(context.Background()))

			require.NoError(t, flow.CheckVerification(context.Background()))

			v := flow.Verification()
			assert.True(t, v.Resolved)
			assert.Equal(t, tt.verified, v.Verified)
		})
	}
}

// ==========================
// Result Tests
// ==========================

func TestLoadResult_NoSessionRedirectsWithoutAPICalls(t *testing.T) {
	backend := &fakeBackend{}
	rec := notify.NewRecorder()
	flow := createTestFlow(t, backend, createTestStore(t), rec)

	err := flow.LoadResult(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateLanding, flow.State())
	assert.Empty(t, backend.calls)
	last, found := rec.Last()
	require.True(t, found)
	assert.Equal(t, "Session not found", last.Message)
}

func TestLoadResult_PredictsThenSavesReport(t *testing.T) {
	backend := &fakeBackend{}
	st := createTestStore(t)
	flow := createTestFlow(t, backend, st, notify.NewRecorder())
	require.NoError(t, st.Put(store.KeySessionID, "abc123"))

	require.NoError(t, flow.LoadResult(context.Background()))

	assert.Equal(t, []string{"predict", "save-report"}, backend.calls)
	res := flow.Result()
	assert.False(t, res.Unavailable)
	assert.InDelta(t, 0.73, res.Score, 1e-9)
	assert.True(t, res.Eligible)
}

func TestLoadResult_FailureRendersUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
	}{
		{
			name: "predict fails",
			backend: &fakeBackend{
				predict: func(string) (*api.PredictResponse, error) {
					return nil, flowerrors.NewNetworkError("predict", errors.New("boom"))
				},
			},
		},
		{
			name: "save-report fails",
			backend: &fakeBackend{
				saveReport: func(string) error {
					return flowerrors.NewNetworkError("save-report", errors.New("boom"))
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := createTestStore(t)
			rec := notify.NewRecorder()
			flow := createTestFlow(t, tt.backend, st, rec)
			require.NoError(t, st.Put(store.KeySessionID, "abc123"))

			err := flow.LoadResult(context.Background())

			require.Error(t, err)
			assert.True(t, flow.Result().Unavailable)
			last, found := rec.Last()
			require.True(t, found)
			assert.Equal(t, "error", last.Level)
		})
	}
}

func TestReturnToLanding_DiscardsSessionID(t *testing.T) {
	backend := &fakeBackend{}
	st := createTestStore(t)
	flow := createTestFlow(t, backend, st, notify.NewRecorder())
	require.NoError(t, flow.BeginApplication(context.Background()))

	require.NoError(t, flow.ReturnToLanding())

	assert.Equal(t, StateLanding, flow.State())
	_, ok, err := st.Get(store.KeySessionID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, flow.Messages())
}

// ==========================
// Rendering Tests
// ==========================

func TestFormatScore(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{score: 0.73, want: "73%"},
		{score: 1.0, want: "100%"},
		{score: 0, want: "0%"},
		{score: 0.005, want: "1%"},
		{score: 0.004, want: "0%"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatScore(tt.score))
	}
}
