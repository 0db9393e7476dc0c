package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ehub/internal/authflow"
	"ehub/internal/models"
	"ehub/internal/utils"

	"gorm.io/gorm"
)

// RequestPasswordReset mails a reset code when email belongs to an
// account. Unknown addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if errs := authflow.ValidateEmail(email); !errs.Empty() {
		return errs
	}
	db := s.db.WithContext(ctx)

	var u models.User
	err := db.Where("LOWER(email) = ?", strings.ToLower(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	code, err := utils.NumericCode(otpDigits)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(code)
	if err != nil {
		return err
	}
	expires := s.now().Add(s.otpTTL)
	err = db.Model(&u).Updates(map[string]any{"reset_code": hash, "reset_expires_at": expires, "reset_attempts": 0}).Error
	if err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}
	s.mail.SendPasswordResetEmail(u.Email, code, s.otpTTL)
	return nil
}

// ResetPassword replaces the password when code matches the mailed one.
// A used, expired or repeatedly mistyped code is reported as ErrInvalidReset.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, password string) error {
	email = strings.TrimSpace(email)
	if errs := authflow.ValidateCredentials(email, password); !errs.Empty() {
		return errs
	}
	db := s.db.WithContext(ctx)

	var u models.User
	err := db.Where("LOWER(email) = ?", strings.ToLower(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidReset
	}
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if u.ResetCode == "" || u.ResetExpiresAt == nil || s.now().After(*u.ResetExpiresAt) {
		return ErrInvalidReset
	}

	if !utils.CheckPasswordHash(code, u.ResetCode) {
		if u.ResetAttempts+1 >= maxOTPAttempts {
			err = db.Model(&u).Updates(map[string]any{"reset_code": "", "reset_expires_at": nil, "reset_attempts": 0}).Error
		} else {
			err = db.Model(&u).UpdateColumn("reset_attempts", gorm.Expr("reset_attempts + ?", 1)).Error
		}
		if err != nil {
			return fmt.Errorf("failed to record reset attempt: %w", err)
		}
		return ErrInvalidReset
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	err = db.Model(&u).Updates(map[string]any{
		"password":         hash,
		"reset_code":       "",
		"reset_expires_at": nil,
		"reset_attempts":   0,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
