package services

import (
	"fmt"
	"math/rand"
	"time"
)

type CaptchaService struct {
	rnd *rand.Rand
}

func NewCaptchaService() *CaptchaService {
	return &CaptchaService{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateMathProblem returns a display string (e.g. "3 + 5") and the
// answer, which the signup handler keeps in the session.
func (s *CaptchaService) GenerateMathProblem() (string, int) {
	a := s.rnd.Intn(10)
	b := s.rnd.Intn(10)

	if s.rnd.Intn(2) == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}
