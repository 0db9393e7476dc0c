package services

import (
	"context"
	"testing"
	"time"

	"ehub/internal/authflow"
	"ehub/internal/models"
	"ehub/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestPasswordReset(t *testing.T) {
	svc, mail := newAuth(t, nil)
	u := createUser(t, svc.db, "sam", models.RoleUser)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "SAM@example.com"))
	require.Len(t, mail.resets, 1)
	sent := mail.resets[0]
	assert.Equal(t, u.Email, sent.to)
	require.Len(t, sent.code, 6)

	err := svc.ResetPassword(ctx, u.Email, wrongCode(sent.code), "brand-new")
	assert.ErrorIs(t, err, ErrInvalidReset)

	require.NoError(t, svc.ResetPassword(ctx, u.Email, sent.code, "brand-new"))

	_, err = svc.Login(ctx, u.Email, "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "the old password is gone")
	res, err := svc.Login(ctx, u.Email, "brand-new")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	err = svc.ResetPassword(ctx, u.Email, sent.code, "another1")
	assert.ErrorIs(t, err, ErrInvalidReset, "codes are single use")
}

func TestPasswordResetUnknownEmailSendsNothing(t *testing.T) {
	svc, mail := newAuth(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, mail.resets)

	err := svc.RequestPasswordReset(ctx, "not-an-email")
	assert.ErrorIs(t, err, authflow.ErrInvalidInput)

	err = svc.ResetPassword(ctx, "nobody@example.com", "123456", "brand-new")
	assert.ErrorIs(t, err, ErrInvalidReset)
}

func TestPasswordResetValidatesNewPassword(t *testing.T) {
	svc, mail := newAuth(t, nil)
	u := createUser(t, svc.db, "sam", models.RoleUser)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, u.Email))

	err := svc.ResetPassword(ctx, u.Email, mail.resets[0].code, "abc")
	var fe authflow.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Password must be at least 6 characters", fe["password"])

	require.NoError(t, svc.ResetPassword(ctx, u.Email, mail.resets[0].code, "long-enough"), "a rejected password leaves the code usable")
}

func TestPasswordResetCodeExpires(t *testing.T) {
	svc, mail := newAuth(t, nil)
	u := createUser(t, svc.db, "sam", models.RoleUser)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }
	require.NoError(t, svc.RequestPasswordReset(ctx, u.Email))

	svc.now = func() time.Time { return now.Add(11 * time.Minute) }
	err := svc.ResetPassword(ctx, u.Email, mail.resets[0].code, "brand-new")
	assert.ErrorIs(t, err, ErrInvalidReset)
}

func TestPasswordResetDiscardedAfterRepeatedWrongCodes(t *testing.T) {
	svc, mail := newAuth(t, nil)
	u := createUser(t, svc.db, "sam", models.RoleUser)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, u.Email))
	code := mail.resets[0].code

	for range maxOTPAttempts {
		err := svc.ResetPassword(ctx, u.Email, wrongCode(code), "brand-new")
		require.ErrorIs(t, err, ErrInvalidReset)
	}

	err := svc.ResetPassword(ctx, u.Email, code, "brand-new")
	assert.ErrorIs(t, err, ErrInvalidReset, "the right code no longer works")

	stored, err := svc.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ResetCode)
	assert.True(t, utils.CheckPasswordHash("secret1", stored.Password))
}
