package services

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the verified subject of a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier checks the signature, expiry and audience of Google ID
// tokens against Google's published keys.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	if idToken == "" || v.clientID == "" {
		return nil, ErrGoogleToken
	}

	payload, err := v.validate(ctx, idToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoogleToken, err)
	}

	email := claimString(payload.Claims, "email")
	verified, _ := payload.Claims["email_verified"].(bool)
	if payload.Subject == "" || email == "" || !verified {
		return nil, ErrGoogleToken
	}

	return &GoogleIdentity{
		Subject: payload.Subject,
		Email:   email,
		Name:    claimString(payload.Claims, "name"),
		Picture: claimString(payload.Claims, "picture"),
	}, nil
}

func claimString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}
