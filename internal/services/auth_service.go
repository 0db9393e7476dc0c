package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ehub/internal/authflow"
	"ehub/internal/models"
	"ehub/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	otpDigits = 6
	// maxOTPAttempts wrong codes discard the pending one.
	maxOTPAttempts = 5
)

type OTPMailer interface {
	SendOTPEmail(email, code string, ttl time.Duration)
}

type WelcomeMailer interface {
	SendWelcomeEmail(email, username string)
}

type ResetMailer interface {
	SendPasswordResetEmail(email, code string, ttl time.Duration)
}

type Mailer interface {
	OTPMailer
	WelcomeMailer
	ResetMailer
}

type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

// AuthService checks passwords, issues and verifies mailed one-time codes
// for admins, and signs in Google users.
type AuthService struct {
	db     *gorm.DB
	mail   Mailer
	google TokenVerifier
	otpTTL time.Duration
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, mail Mailer, google TokenVerifier, otpTTL time.Duration) *AuthService {
	return &AuthService{db: db, mail: mail, google: google, otpTTL: otpTTL, now: time.Now}
}

func Principal(u *models.User) authflow.Principal {
	return authflow.Principal{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Image:    u.Image,
		Role:     u.Role,
	}
}

func (s *AuthService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

// Login verifies the password. Admins get a mailed code and must finish
// with VerifyOTP.
func (s *AuthService) Login(ctx context.Context, email, password string) (*authflow.LoginResult, error) {
	db := s.db.WithContext(ctx)

	var u models.User
	err := db.Where("LOWER(email) = ?", strings.ToLower(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return nil, ErrInvalidCredentials
	}

	if !u.IsAdmin() {
		return &authflow.LoginResult{User: Principal(&u)}, nil
	}

	code, err := utils.NumericCode(otpDigits)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(code)
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(s.otpTTL)
	err = db.Model(&u).Updates(map[string]any{"otp_code": hash, "otp_expires_at": expires, "otp_attempts": 0}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}
	s.mail.SendOTPEmail(u.Email, code, s.otpTTL)

	return &authflow.LoginResult{RequireOTP: true, TempUserID: u.ID}, nil
}

// VerifyOTP checks the pending code and clears it on success.
func (s *AuthService) VerifyOTP(ctx context.Context, userID uint, otp string) (*authflow.Principal, error) {
	db := s.db.WithContext(ctx)

	u, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.OTPCode == "" || u.OTPExpiresAt == nil {
		return nil, ErrInvalidOTP
	}
	if s.now().After(*u.OTPExpiresAt) {
		return nil, ErrOTPExpired
	}
	if !utils.CheckPasswordHash(otp, u.OTPCode) {
		return nil, s.recordFailedOTP(ctx, u)
	}

	err = db.Model(u).Updates(map[string]any{"otp_code": "", "otp_expires_at": nil, "otp_attempts": 0}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to clear otp: %w", err)
	}
	p := Principal(u)
	return &p, nil
}

// recordFailedOTP counts a wrong code and drops the pending one once the
// limit is reached.
func (s *AuthService) recordFailedOTP(ctx context.Context, u *models.User) error {
	db := s.db.WithContext(ctx)
	if u.OTPAttempts+1 >= maxOTPAttempts {
		err := db.Model(u).Updates(map[string]any{"otp_code": "", "otp_expires_at": nil, "otp_attempts": 0}).Error
		if err != nil {
			return fmt.Errorf("failed to clear otp: %w", err)
		}
		return ErrOTPLocked
	}
	err := db.Model(u).UpdateColumn("otp_attempts", gorm.Expr("otp_attempts + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("failed to count otp attempt: %w", err)
	}
	return ErrInvalidOTP
}

// GoogleLogin verifies an ID token and finds the user by Google id, then
// by email, registering a new account when neither matches.
func (s *AuthService) GoogleLogin(ctx context.Context, credential string) (*authflow.Principal, error) {
	id, err := s.google.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var u models.User
	res := db.Where("google_id = ?", id.Subject).Or("LOWER(email) = ?", strings.ToLower(id.Email)).Limit(1).Find(&u)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to find google user: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		username := id.Name
		if username == "" {
			username = strings.Split(id.Email, "@")[0]
		}
		created, err := s.createUser(ctx, username, id.Email, uuid.NewString())
		if err != nil {
			return nil, err
		}
		u = *created
	}

	if u.GoogleID == "" {
		u.GoogleID = id.Subject
		if u.Image == "" {
			u.Image = id.Picture
		}
		if err := db.Save(&u).Error; err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
	}

	p := Principal(&u)
	return &p, nil
}

// Register creates a regular user account.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, ErrEmptyContent
	}
	if errs := authflow.ValidateCredentials(email, password); !errs.Empty() {
		return nil, errs
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = ?", strings.ToLower(email)).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if n > 0 {
		return nil, ErrEmailTaken
	}

	u, err := s.createUser(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	s.mail.SendWelcomeEmail(u.Email, u.Username)
	return u, nil
}

func (s *AuthService) createUser(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Role:     models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &u, nil
}
