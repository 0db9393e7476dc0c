package handlers

import (
	"log/slog"
	"net/http"

	"ehub/internal/authflow"
	"ehub/internal/config"
	"ehub/internal/session"
	"ehub/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// NewGoogleOAuthConfig returns nil when no client id is configured.
func NewGoogleOAuthConfig(cfg config.Google) *oauth2.Config {
	if !cfg.Enabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// GoogleLogin starts the Google OAuth redirect.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.oauth == nil {
		RenderError(c, http.StatusNotFound, "Google sign-in is not available")
		return
	}

	state := utils.StateToken()
	s := session.Default(c)
	s.SetOAuthState(state)
	if err := s.Save(); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to save session", "error", err)
	}

	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthCodeURL(state))
}

// GoogleCallback finishes the Google OAuth redirect.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.oauth == nil {
		RenderError(c, http.StatusNotFound, "Google sign-in is not available")
		return
	}

	s := session.Default(c)
	f := authflow.New(h.accounts)
	saved := s.TakeOAuthState()
	if saved == "" || c.Query("state") != saved {
		_ = s.Save()
		RenderError(c, http.StatusBadRequest, "Invalid sign-in state. Please try again.")
		return
	}

	code := c.Query("code")
	if code == "" {
		_ = s.Save()
		RenderError(c, http.StatusBadRequest, "Google sign-in was cancelled")
		return
	}

	token, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to exchange google code", "error", err)
		_ = s.Save()
		RenderError(c, http.StatusBadGateway, "Google login failed")
		return
	}

	idToken, _ := token.Extra("id_token").(string)
	if err := f.GoogleLogin(c.Request.Context(), idToken); err != nil {
		_ = s.Save()
		h.renderLogin(c, statusFor(err), f, "")
		return
	}
	h.finish(c, s, f)
}
