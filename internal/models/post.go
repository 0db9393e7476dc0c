package models

import (
	"time"
)

// Post is a blog article. Content holds sanitised-on-render HTML.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Category  string    `gorm:"size:100;index" json:"category"`
	Image     string    `json:"image"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
