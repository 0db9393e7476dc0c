package authflow

import (
	"regexp"
	"strings"
)

const (
	MinPasswordLength = 6
	OTPLength         = 6
)

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

func (e FieldErrors) Empty() bool { return len(e) == 0 }

// First returns one message, email before password before otp.
func (e FieldErrors) First() string {
	for _, f := range []string{"email", "password", "otp"} {
		if msg, ok := e[f]; ok {
			return msg
		}
	}
	return ""
}

func (e FieldErrors) Error() string { return e.First() }

func (e FieldErrors) Is(target error) bool { return target == ErrInvalidInput }

// UserMessage lets the message travel through thread.Message and the
// API error body.
func (e FieldErrors) UserMessage() string { return e.First() }

func ValidateEmail(email string) FieldErrors {
	errs := FieldErrors{}
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["email"] = "Invalid email address"
	}
	return errs
}

func ValidateCredentials(email, password string) FieldErrors {
	errs := ValidateEmail(email)
	switch {
	case password == "":
		errs["password"] = "Password is required"
	case len(password) < MinPasswordLength:
		errs["password"] = "Password must be at least 6 characters"
	}
	return errs
}

// ValidateOTP counts the code as entered; surrounding spaces are not stripped.
func ValidateOTP(otp string) FieldErrors {
	errs := FieldErrors{}
	if len(otp) != OTPLength {
		errs["otp"] = "OTP must be 6 characters long"
	}
	return errs
}
