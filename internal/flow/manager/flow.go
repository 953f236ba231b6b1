// Package manager drives the review workflow: Login → Dashboard →
// Detail → approve/reject → Dashboard. It lives in a separate session
// space from the applicant flow; the only shared resource is the local
// store, where it owns exactly three keys.
package manager

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loanflow/internal/common/config"
	flowerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/metrics"
	"loanflow/internal/common/store"
	"loanflow/internal/models"
	"loanflow/internal/notify"
)

type State string

const (
	StateLogin     State = "login"
	StateDashboard State = "dashboard"
	StateDetail    State = "detail"
)

const (
	msgLoginRequired      = "Please log in"
	msgInvalidCredentials = "Invalid email or password"
	msgListFailed         = "Could not load applications"
	msgDetailFailed       = "Could not load application details"
	msgActionFailed       = "Action failed. Please try again."
)

// Backend is the slice of the API client the manager flow uses.
type Backend interface {
	ManagerLogin(ctx context.Context, email, password string) (*models.ManagerCredential, error)
	GetApplications(ctx context.Context, token string) ([]models.ApplicationSummary, error)
	GetApplicationDetail(ctx context.Context, applicationID, token string) (*models.ApplicationDetail, error)
	ApproveApplication(ctx context.Context, applicationID, managerEmail, token string) error
	RejectApplication(ctx context.Context, applicationID, managerEmail, token string) error
}

type Flow struct {
	backend  Backend
	store    store.Store
	notifier notify.Notifier
	logger   logger.Logger
	delays   config.DelayConfig

	state        State
	applications []models.ApplicationSummary
	detail       *models.ApplicationDetail
}

func New(backend Backend, st store.Store, notifier notify.Notifier, log logger.Logger, delays config.DelayConfig) *Flow {
	return &Flow{
		backend:  backend,
		store:    st,
		notifier: notifier,
		logger: log.WithFields(map[string]interface{}{
			"flow":  "manager",
			"runId": uuid.NewString(),
		}),
		delays: delays,
		state:  StateLogin,
	}
}

func (f *Flow) State() State { return f.state }

// Applications returns the last fetched dashboard list.
func (f *Flow) Applications() []models.ApplicationSummary {
	out := make([]models.ApplicationSummary, len(f.applications))
	copy(out, f.applications)
	return out
}

// Detail returns the open overlay record, nil when dismissed.
func (f *Flow) Detail() *models.ApplicationDetail { return f.detail }

func (f *Flow) setState(s State) {
	f.state = s
	metrics.FlowTransitionsTotal.WithLabelValues("manager", string(s)).Inc()
	f.logger.Info("state transition", map[string]interface{}{"to": string(s)})
}

// Login validates both fields client-side before dispatch, so an empty
// form never issues a request. On success it persists the credential
// bundle and moves to Dashboard after the login-redirect delay. Backend
// distinctions between wrong password and unknown account are not
// surfaced.
func (f *Flow) Login(ctx context.Context, email, password string) error {
	const op = "manager.login"
	if email == "" || password == "" {
		f.notifier.Error("Email and password are required")
		return flowerrors.NewValidationError(op, "email and password are required")
	}

	cred, err := f.backend.ManagerLogin(ctx, email, password)
	if err != nil {
		f.logger.WithError(err).Warn("login failed", nil)
		f.notifier.Error(msgInvalidCredentials)
		return err
	}

	if err := f.putCredential(cred); err != nil {
		f.notifier.Error(msgInvalidCredentials)
		return err
	}

	f.notifier.Success("Logged in as " + cred.Name)

	if err := sleep(ctx, f.delays.LoginRedirect); err != nil {
		return err
	}
	f.setState(StateDashboard)
	return nil
}

func (f *Flow) putCredential(cred *models.ManagerCredential) error {
	if err := f.store.Put(store.KeyManagerToken, cred.Token); err != nil {
		return err
	}
	if err := f.store.Put(store.KeyManagerName, cred.Name); err != nil {
		return err
	}
	return f.store.Put(store.KeyManagerEmail, cred.Email)
}

// token enforces the dashboard precondition: no cached bearer token
// redirects to Login without issuing any API call.
func (f *Flow) token(op string) (string, error) {
	tok, ok, err := f.store.Get(store.KeyManagerToken)
	if err != nil || !ok || tok == "" {
		f.notifier.Error(msgLoginRequired)
		f.setState(StateLogin)
		return "", flowerrors.NewPreconditionError(op, "no cached bearer token")
	}
	return tok, nil
}

// LoadDashboard fetches the full application list, unfiltered and
// unpaginated.
func (f *Flow) LoadDashboard(ctx context.Context) error {
	const op = "manager.load_dashboard"

	tok, err := f.token(op)
	if err != nil {
		return err
	}

	apps, err := f.backend.GetApplications(ctx, tok)
	if err != nil {
		f.logger.WithError(err).Warn("application list fetch failed", nil)
		f.notifier.Error(msgListFailed)
		return err
	}

	f.applications = apps
	if f.state != StateDashboard {
		f.setState(StateDashboard)
	}
	return nil
}

// OpenDetail fetches the full record for one row and opens the overlay.
func (f *Flow) OpenDetail(ctx context.Context, applicationID string) error {
	const op = "manager.open_detail"

	tok, err := f.token(op)
	if err != nil {
		return err
	}

	detail, err := f.backend.GetApplicationDetail(ctx, applicationID, tok)
	if err != nil {
		f.logger.WithError(err).Warn("detail fetch failed", map[string]interface{}{"applicationId": applicationID})
		f.notifier.Error(msgDetailFailed)
		return err
	}

	f.detail = detail
	f.setState(StateDetail)
	return nil
}

// CloseDetail dismisses the overlay without refetching the list.
func (f *Flow) CloseDetail() {
	f.detail = nil
	if f.state == StateDetail {
		f.setState(StateDashboard)
	}
}

// CanReview reports whether approve/reject actions render for the open
// record.
func (f *Flow) CanReview() bool {
	return f.detail != nil && models.Reviewable(f.detail.FinalStatus)
}

// Approve approves the open application. On success the overlay closes
// and the list is refetched; there is no optimistic local mutation. On
// failure the overlay stays open for retry.
func (f *Flow) Approve(ctx context.Context) error {
	return f.review(ctx, "manager.approve", f.backend.ApproveApplication)
}

// Reject rejects the open application with the same post-action
// behavior as Approve.
func (f *Flow) Reject(ctx context.Context) error {
	return f.review(ctx, "manager.reject", f.backend.RejectApplication)
}

func (f *Flow) review(ctx context.Context, op string, action func(ctx context.Context, applicationID, managerEmail, token string) error) error {
	if !f.CanReview() {
		return flowerrors.NewPreconditionError(op, "application is not reviewable")
	}

	tok, err := f.token(op)
	if err != nil {
		return err
	}
	email, _, err := f.store.Get(store.KeyManagerEmail)
	if err != nil {
		return err
	}

	if err := action(ctx, f.detail.ID, email, tok); err != nil {
		f.logger.WithError(err).Warn("review action failed", map[string]interface{}{"applicationId": f.detail.ID})
		f.notifier.Error(msgActionFailed)
		return err
	}

	f.notifier.Success("Application updated")
	f.CloseDetail()
	return f.LoadDashboard(ctx)
}

// sleep waits out a pacing delay, bailing early on cancellation.
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

// Logout clears exactly the three manager-scoped keys, leaving the
// applicant session key untouched, and returns to Login unconditionally.
func (f *Flow) Logout() error {
	err := f.store.Delete(store.KeyManagerToken, store.KeyManagerName, store.KeyManagerEmail)
	f.applications = nil
	f.detail = nil
	f.setState(StateLogin)
	return err
}
