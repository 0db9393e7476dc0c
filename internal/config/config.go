// Package config reads process configuration from the environment. A
// .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nasermirzaei89/env"
)

const (
	DefaultPort         = "8080"
	DefaultSessionName  = "ehub_session"
	DefaultBlogPageSize = 6
	DefaultOTPTTL       = 10 * time.Minute
	DefaultCarouselTick = 20 * time.Millisecond
)

type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Enabled reports whether enough settings are present to send mail.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.Username != "" && s.Password != ""
}

type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (g Google) Enabled() bool { return g.ClientID != "" }

type Config struct {
	Port          string
	DatabaseURL   string
	SessionName   string
	SessionSecret string
	SecureCookies bool
	SiteURL       string
	AssetBaseURL  string
	CORSOrigins   []string
	Google        Google
	SMTP          SMTP
	LogLevel      slog.Level
	BlogPageSize  int
	OTPTTL        time.Duration
	CarouselTick  time.Duration
	TemplateDir   string
	StaticDir     string
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading configuration from the environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	siteURL := strings.TrimRight(env.GetString("SITE_URL", "http://localhost:"+DefaultPort), "/")

	cfg := &Config{
		Port:          env.GetString("PORT", DefaultPort),
		DatabaseURL:   env.GetString("DATABASE_URL", ""),
		SessionName:   env.GetString("SESSION_NAME", DefaultSessionName),
		SessionSecret: env.GetString("SESSION_SECRET", ""),
		SecureCookies: env.GetBool("SECURE_COOKIES", false),
		SiteURL:       siteURL,
		AssetBaseURL:  strings.TrimRight(env.GetString("ASSET_BASE_URL", ""), "/"),
		CORSOrigins:   env.GetStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		Google: Google{
			ClientID:     env.GetString("GOOGLE_CLIENT_ID", ""),
			ClientSecret: env.GetString("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  env.GetString("GOOGLE_REDIRECT_URL", siteURL+"/auth/google/callback"),
		},
		SMTP: SMTP{
			Host:     env.GetString("SMTP_HOST", ""),
			Port:     env.GetString("SMTP_PORT", "587"),
			Username: env.GetString("SMTP_USERNAME", ""),
			Password: env.GetString("SMTP_PASSWORD", ""),
			From:     env.GetString("SMTP_FROM", ""),
		},
		LogLevel:    ParseLogLevel(env.GetString("LOG_LEVEL", "info")),
		TemplateDir: env.GetString("TEMPLATE_DIR", "./web/templates"),
		StaticDir:   env.GetString("STATIC_DIR", "./web/static"),
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	var err error
	if cfg.BlogPageSize, err = positiveInt("BLOG_PAGE_SIZE", DefaultBlogPageSize); err != nil {
		return nil, err
	}
	if cfg.OTPTTL, err = duration("OTP_TTL", DefaultOTPTTL); err != nil {
		return nil, err
	}
	if cfg.CarouselTick, err = duration("CAROUSEL_TICK", DefaultCarouselTick); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		slog.Warn("SESSION_SECRET is not set, using an insecure default")
		cfg.SessionSecret = "secret_key_change_me"
	}

	return cfg, nil
}

func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", s)

		return slog.LevelInfo
	}
}

func positiveInt(key string, def int) (int, error) {
	raw := env.GetString(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("failed to parse %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := env.GetString(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("failed to parse %s %q: must be positive", key, raw)
	}
	return d, nil
}
