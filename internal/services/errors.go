package services

import "errors"

// Error is a sentinel that also carries the text shown to users.
type Error struct {
	msg  string
	user string
}

func newError(msg, user string) *Error { return &Error{msg: msg, user: user} }

func (e *Error) Error() string       { return e.msg }
func (e *Error) UserMessage() string { return e.user }

var (
	ErrNotFound           = newError("not found", "Not found")
	ErrForbidden          = newError("forbidden", "You are not allowed to do that")
	ErrInvalidCredentials = newError("invalid credentials", "Invalid email or password")
	ErrInvalidOTP         = newError("invalid otp", "Invalid OTP")
	ErrOTPExpired         = newError("otp expired", "OTP has expired. Please log in again.")
	ErrOTPLocked          = newError("too many otp attempts", "Too many incorrect codes. Please log in again.")
	ErrInvalidReset       = newError("invalid reset code", "The reset code is invalid or has expired. Please request a new one.")
	ErrEmailTaken         = newError("email taken", "Email is already registered")
	ErrGoogleToken        = newError("invalid google token", "Google login failed")
	ErrEmptyContent       = newError("empty content", "Content cannot be empty")
)

// IsUserError reports whether err carries a message safe to show.
func IsUserError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
