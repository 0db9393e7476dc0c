// Package authflow drives the login form: credentials, an optional OTP
// challenge, and Google sign-in. It validates input before any request
// and leaves the stage unchanged when a request fails.
package authflow

import (
	"context"
	"errors"
	"strings"
)

type Stage string

const (
	StageCredentials   Stage = "credentials-entry"
	StageOTP           Stage = "otp-challenge"
	StageAuthenticated Stage = "authenticated"
)

const (
	AdminRedirect   = "/admin/dashboard"
	DefaultRedirect = "/"

	otpSentMessage      = "OTP sent to your email. Please verify."
	missingUserMessage  = "User ID not found. Please try logging in again."
	loginFailedMessage  = "Login failed. Please check your credentials."
	otpFailedMessage    = "OTP verification failed"
	googleFailedMessage = "Google login failed"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoPendingOTP = errors.New("no pending otp challenge")
	ErrWrongStage   = errors.New("action not allowed at this stage")
)

// Principal is the signed-in user as the flow needs it.
type Principal struct {
	ID       uint   `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Image    string `json:"image"`
	Role     string `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == "admin" }

type LoginResult struct {
	User       Principal
	RequireOTP bool
	TempUserID uint
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	VerifyOTP(ctx context.Context, userID uint, otp string) (*Principal, error)
	GoogleLogin(ctx context.Context, credential string) (*Principal, error)
}

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

type Notice struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// State is what survives between requests. Handlers keep it in the
// session.
type State struct {
	Stage      Stage      `json:"stage"`
	TempUserID uint       `json:"tempUserId,omitempty"`
	User       *Principal `json:"user,omitempty"`
}

type Flow struct {
	auth   Authenticator
	state  State
	errs   FieldErrors
	notice *Notice
}

func New(auth Authenticator) *Flow {
	return Restore(auth, State{})
}

func Restore(auth Authenticator, s State) *Flow {
	if s.Stage == "" {
		s.Stage = StageCredentials
	}
	return &Flow{auth: auth, state: s, errs: FieldErrors{}}
}

func (f *Flow) State() State             { return f.state }
func (f *Flow) Stage() Stage             { return f.state.Stage }
func (f *Flow) User() *Principal         { return f.state.User }
func (f *Flow) FieldErrors() FieldErrors { return f.errs }
func (f *Flow) Notice() *Notice          { return f.notice }
func (f *Flow) Dismiss()                 { f.notice = nil }

// RedirectPath is where an authenticated user lands.
func (f *Flow) RedirectPath() string {
	if f.state.User != nil && f.state.User.IsAdmin() {
		return AdminRedirect
	}
	return DefaultRedirect
}

// SubmitCredentials validates the form and logs in. Users that need a
// second factor move to the OTP stage; everyone else is authenticated.
func (f *Flow) SubmitCredentials(ctx context.Context, email, password string) error {
	if f.state.Stage != StageCredentials {
		return ErrWrongStage
	}
	f.errs = ValidateCredentials(email, password)
	if !f.errs.Empty() {
		return f.errs
	}

	res, err := f.auth.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		f.fail(err, loginFailedMessage)
		return err
	}
	if res.RequireOTP {
		f.state = State{Stage: StageOTP, TempUserID: res.TempUserID}
		f.notice = &Notice{Severity: SeverityInfo, Message: otpSentMessage}
		return nil
	}
	f.authenticate(res.User)
	return nil
}

// SubmitOTP completes a pending challenge.
func (f *Flow) SubmitOTP(ctx context.Context, otp string) error {
	if f.state.Stage != StageOTP {
		return ErrWrongStage
	}
	f.errs = ValidateOTP(otp)
	if !f.errs.Empty() {
		return f.errs
	}
	if f.state.TempUserID == 0 {
		f.notice = &Notice{Severity: SeverityError, Message: missingUserMessage}
		return ErrNoPendingOTP
	}

	user, err := f.auth.VerifyOTP(ctx, f.state.TempUserID, otp)
	if err != nil {
		f.fail(err, otpFailedMessage)
		return err
	}
	f.authenticate(*user)
	return nil
}

// GoogleLogin exchanges an identity-provider credential for a session.
func (f *Flow) GoogleLogin(ctx context.Context, credential string) error {
	if f.state.Stage != StageCredentials {
		return ErrWrongStage
	}
	user, err := f.auth.GoogleLogin(ctx, credential)
	if err != nil {
		f.fail(err, googleFailedMessage)
		return err
	}
	f.authenticate(*user)
	return nil
}

// Reset abandons an OTP challenge and returns to the credentials form.
func (f *Flow) Reset() {
	f.state = State{Stage: StageCredentials}
	f.errs = FieldErrors{}
	f.notice = nil
}

func (f *Flow) authenticate(u Principal) {
	f.state = State{Stage: StageAuthenticated, User: &u}
	f.errs = FieldErrors{}
	f.notice = nil
}

func (f *Flow) fail(err error, fallback string) {
	f.notice = &Notice{Severity: SeverityError, Message: Message(err, fallback)}
}

// Message returns the user-facing text carried by err, or fallback.
func Message(err error, fallback string) string {
	var m interface{ UserMessage() string }
	if errors.As(err, &m) && m.UserMessage() != "" {
		return m.UserMessage()
	}
	return fallback
}
