// Package api is the typed client for the loan-eligibility backend. One
// method per endpoint, single-shot request/response: no retries, no
// caching, no deduplication of rapid repeat calls.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	flowerrors "loanflow/internal/common/errors"
	httpx "loanflow/internal/common/http"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/metrics"
	"loanflow/internal/models"
)

type Client struct {
	baseURL    string
	httpClient *httpx.Client
	logger     logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpx.NewClient(timeout),
		logger:     log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// StartSession opens a new applicant session on the given channel.
func (c *Client) StartSession(ctx context.Context, channel string) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.post(ctx, "start-session", "/start-session", "", startSessionRequest{Channel: channel}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendChatMessage sends one applicant turn and returns the assistant
// reply, possibly carrying a next-step directive.
func (c *Client) SendChatMessage(ctx context.Context, sessionID, message string) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.post(ctx, "chat-input", "/chat-input", "", chatInputRequest{SessionID: sessionID, Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyAadhaar submits identity-document text for verification.
func (c *Client) VerifyAadhaar(ctx context.Context, sessionID, documentText string) (*AadhaarVerifyResponse, error) {
	var out AadhaarVerifyResponse
	if err := c.post(ctx, "verify-aadhaar", "/verify-aadhaar", "", documentRequest{SessionID: sessionID, DocumentText: documentText}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessBankStatement submits financial-document text for extraction.
func (c *Client) ProcessBankStatement(ctx context.Context, sessionID, documentText string) (*BankStatementResponse, error) {
	var out BankStatementResponse
	if err := c.post(ctx, "process-bank-statement", "/process-bank-statement", "", documentRequest{SessionID: sessionID, DocumentText: documentText}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictEligibility asks the backend to score the session's application.
func (c *Client) PredictEligibility(ctx context.Context, sessionID string) (*PredictResponse, error) {
	var out PredictResponse
	if err := c.post(ctx, "predict", "/predict", "", sessionOnlyRequest{SessionID: sessionID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveReport asks the backend to persist the session's report. The
// acknowledgement carries no body the client cares about.
func (c *Client) SaveReport(ctx context.Context, sessionID string) error {
	return c.post(ctx, "save-report", "/save-report", "", sessionOnlyRequest{SessionID: sessionID}, nil)
}

// ManagerLogin exchanges credentials for a bearer bundle.
func (c *Client) ManagerLogin(ctx context.Context, email, password string) (*models.ManagerCredential, error) {
	var out models.ManagerCredential
	if err := c.post(ctx, "manager-login", "/manager/login", "", managerLoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetApplications fetches the full dashboard list, unfiltered and
// unpaginated.
func (c *Client) GetApplications(ctx context.Context, token string) ([]models.ApplicationSummary, error) {
	var out applicationListResponse
	if err := c.get(ctx, "manager-applications", "/manager/applications", token, &out); err != nil {
		return nil, err
	}
	return out.Applications, nil
}

// GetApplicationDetail fetches one full record by id.
func (c *Client) GetApplicationDetail(ctx context.Context, applicationID, token string) (*models.ApplicationDetail, error) {
	var out models.ApplicationDetail
	path := "/manager/application/" + applicationID
	if err := c.get(ctx, "manager-application-detail", path, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveApplication marks an application approved on behalf of the
// manager.
func (c *Client) ApproveApplication(ctx context.Context, applicationID, managerEmail, token string) error {
	return c.post(ctx, "manager-approve", "/manager/approve", token, reviewActionRequest{ApplicationID: applicationID, ManagerEmail: managerEmail}, nil)
}

// RejectApplication marks an application rejected on behalf of the
// manager.
func (c *Client) RejectApplication(ctx context.Context, applicationID, managerEmail, token string) error {
	return c.post(ctx, "manager-reject", "/manager/reject", token, reviewActionRequest{ApplicationID: applicationID, ManagerEmail: managerEmail}, nil)
}

func (c *Client) post(ctx context.Context, op, path, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.execute(req, op, out)
}

func (c *Client) get(ctx context.Context, op, path, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.execute(req, op, out)
}

func (c *Client) execute(req *http.Request, op string, out interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.APIRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		c.logger.Warn("request failed", map[string]interface{}{"operation": op, "error": err.Error()})
		return flowerrors.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.APIRequestsTotal.WithLabelValues(op, fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
		c.logger.Warn("request rejected", map[string]interface{}{
			"operation": op,
			"status":    resp.StatusCode,
		})
		return classifyStatus(op, resp.StatusCode, body)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			metrics.APIRequestsTotal.WithLabelValues(op, "decode_error").Inc()
			return flowerrors.Wrap(flowerrors.KindNetwork, op, "failed to decode response", err)
		}
	}

	metrics.APIRequestsTotal.WithLabelValues(op, "success").Inc()
	c.logger.Debug("request completed", map[string]interface{}{"operation": op})
	return nil
}

func classifyStatus(op string, status int, body []byte) error {
	err := fmt.Errorf("status %d: %s", status, string(body))
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return flowerrors.NewAuthError(op, err)
	case http.StatusNotFound:
		return flowerrors.NewNotFoundError(op, err)
	default:
		return flowerrors.NewNetworkError(op, err)
	}
}
