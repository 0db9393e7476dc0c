// Package session gives typed access to the values kept in the signed
// session cookie.
package session

import (
	"encoding/json"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	keyUserID       = "user_id"
	keyTempUserID   = "temp_user_id"
	keyOAuthState   = "oauth_state"
	keyCaptcha      = "captcha_answer"
	keyResetCaptcha = "reset_captcha_answer"
	flashNotices    = "notices"
	flashLoginForm  = "login_email"
)

// Notice is a one-shot message shown on the next rendered page.
type Notice struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type Session struct {
	s sessions.Session
}

func Default(c *gin.Context) *Session {
	return &Session{s: sessions.Default(c)}
}

func Wrap(s sessions.Session) *Session {
	return &Session{s: s}
}

func (s *Session) Save() error { return s.s.Save() }

func (s *Session) UserID() (uint, bool) {
	return uintValue(s.s.Get(keyUserID))
}

// Login stores the user and drops any pending OTP challenge.
func (s *Session) Login(userID uint) {
	s.s.Delete(keyTempUserID)
	s.s.Set(keyUserID, userID)
}

func (s *Session) Logout() {
	s.s.Clear()
}

func (s *Session) TempUserID() (uint, bool) {
	return uintValue(s.s.Get(keyTempUserID))
}

func (s *Session) SetTempUserID(id uint) { s.s.Set(keyTempUserID, id) }

func (s *Session) ClearTempUserID() { s.s.Delete(keyTempUserID) }

func (s *Session) SetOAuthState(state string) { s.s.Set(keyOAuthState, state) }

// TakeOAuthState returns the stored state once.
func (s *Session) TakeOAuthState() string {
	v, _ := s.s.Get(keyOAuthState).(string)
	s.s.Delete(keyOAuthState)
	return v
}

func (s *Session) SetCaptchaAnswer(answer int) { s.s.Set(keyCaptcha, answer) }

func (s *Session) CaptchaAnswer() (int, bool) {
	v, ok := s.s.Get(keyCaptcha).(int)
	return v, ok
}

func (s *Session) SetResetCaptchaAnswer(answer int) { s.s.Set(keyResetCaptcha, answer) }

// TakeResetCaptchaAnswer returns the stored answer once.
func (s *Session) TakeResetCaptchaAnswer() (int, bool) {
	v, ok := s.s.Get(keyResetCaptcha).(int)
	s.s.Delete(keyResetCaptcha)
	return v, ok
}

func (s *Session) AddNotice(severity, message string) {
	data, err := json.Marshal(Notice{Severity: severity, Message: message})
	if err != nil {
		return
	}
	s.s.AddFlash(string(data), flashNotices)
}

// Notices drains the queued notices. The caller must Save.
func (s *Session) Notices() []Notice {
	var out []Notice
	for _, f := range s.s.Flashes(flashNotices) {
		raw, ok := f.(string)
		if !ok {
			continue
		}
		var n Notice
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// RememberEmail keeps the login email so a failed POST can refill the form.
func (s *Session) RememberEmail(email string) { s.s.AddFlash(email, flashLoginForm) }

func (s *Session) RememberedEmail() string {
	for _, f := range s.s.Flashes(flashLoginForm) {
		if v, ok := f.(string); ok {
			return v
		}
	}
	return ""
}

func uintValue(v any) (uint, bool) {
	switch id := v.(type) {
	case uint:
		return id, id != 0
	case int:
		return uint(id), id > 0
	case int64:
		return uint(id), id > 0
	case float64:
		return uint(id), id > 0
	}
	return 0, false
}
