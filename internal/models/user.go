package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             uint       `gorm:"primaryKey" json:"_id"`
	Username       string     `gorm:"not null" json:"username"`
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	Password       string     `gorm:"not null" json:"-"`                           // bcrypt hash
	Image          string     `json:"image"`                                       // relative to the asset base
	Role           string     `gorm:"size:20;default:'user';not null" json:"role"` // user, admin
	GoogleID       string     `gorm:"index" json:"-"`
	OTPCode        string     `gorm:"size:100" json:"-"` // bcrypt hash of the pending one-time code
	OTPExpiresAt   *time.Time `json:"-"`
	OTPAttempts    int        `gorm:"not null;default:0" json:"-"` // wrong codes entered against the pending one
	ResetCode      string     `gorm:"size:100" json:"-"`           // bcrypt hash of the mailed password reset code
	ResetExpiresAt *time.Time `json:"-"`
	ResetAttempts  int        `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
