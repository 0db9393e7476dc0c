package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"path/filepath"
	"strings"
	"time"

	"ehub/internal/config"
)

// MailService sends HTML mail rendered from web/templates/email.
type MailService struct {
	cfg         config.SMTP
	templateDir string
	send        func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailService(cfg config.SMTP, templateDir string) *MailService {
	if !cfg.Enabled() {
		slog.Warn("mail service disabled: missing SMTP settings")
	}
	return &MailService{
		cfg:         cfg,
		templateDir: filepath.Join(templateDir, "email"),
		send:        smtp.SendMail,
	}
}

func (s *MailService) Enabled() bool { return s.cfg.Enabled() }

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled() {
		slog.Info("mail not sent, service disabled", "to", to, "subject", subject)
		return
	}

	go func() {
		if err := s.deliver(to, subject, body); err != nil {
			slog.Error("failed to send email", "to", to, "error", err)
			return
		}
		slog.Info("email sent", "to", to, "subject", subject)
	}()
}

func (s *MailService) deliver(to []string, subject, body string) error {
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: ehub <%s>\r\n"+
		"Subject: %s\r\n"+
		"%s\r\n%s", strings.Join(to, ","), s.cfg.From, subject, mime, body))

	return s.send(addr, auth, s.cfg.From, to, msg)
}

func (s *MailService) parseTemplate(templateName string, data any) (string, error) {
	path := filepath.Join(s.templateDir, templateName)
	t, err := template.ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func (s *MailService) SendOTPEmail(email, code string, ttl time.Duration) {
	body, err := s.parseTemplate("otp.html", map[string]any{
		"Code":    code,
		"Minutes": int(ttl.Minutes()),
	})
	if err != nil {
		slog.Error("failed to render otp email", "error", err)
		return
	}
	s.sendAsync([]string{email}, "Your ehub login code", body)
}

func (s *MailService) SendPasswordResetEmail(email, code string, ttl time.Duration) {
	body, err := s.parseTemplate("reset.html", map[string]any{
		"Code":    code,
		"Minutes": int(ttl.Minutes()),
	})
	if err != nil {
		slog.Error("failed to render reset email", "error", err)
		return
	}
	s.sendAsync([]string{email}, "Reset your ehub password", body)
}

func (s *MailService) SendWelcomeEmail(email, username string) {
	body, err := s.parseTemplate("welcome.html", map[string]string{
		"Username": username,
	})
	if err != nil {
		slog.Error("failed to render welcome email", "error", err)
		return
	}
	s.sendAsync([]string{email}, "Welcome to ehub", body)
}
