package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ehub/internal/db"
	"ehub/internal/models"
	"ehub/internal/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, name, role string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword("secret1")
	require.NoError(t, err)
	u := &models.User{Username: name, Email: name + "@example.com", Password: hash, Role: role}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

type sentMail struct {
	to   string
	code string
}

type fakeMailer struct {
	mu      sync.Mutex
	otps    []sentMail
	resets  []sentMail
	welcome []string
}

func (m *fakeMailer) SendOTPEmail(email, code string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps = append(m.otps, sentMail{to: email, code: code})
}

func (m *fakeMailer) SendPasswordResetEmail(email, code string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, sentMail{to: email, code: code})
}

func (m *fakeMailer) SendWelcomeEmail(email, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcome = append(m.welcome, email)
}

func (m *fakeMailer) lastOTP() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otps[len(m.otps)-1]
}
