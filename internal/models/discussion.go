package models

import (
	"time"
)

type Discussion struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	AuthorID  uint      `gorm:"not null;index" json:"authorId"`
	Author    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Replies   []Reply   `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Reply struct {
	ID           uint       `gorm:"primaryKey" json:"_id"`
	DiscussionID uint       `gorm:"not null;index" json:"discussionId"`
	Discussion   Discussion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AuthorID     uint       `gorm:"not null;index" json:"authorId"`
	Author       User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// DiscussionLike and ReplyLike store like sets; the composite unique
// index keeps each user at most once per target.
type DiscussionLike struct {
	ID           uint       `gorm:"primaryKey"`
	DiscussionID uint       `gorm:"not null;uniqueIndex:idx_discussion_like"`
	Discussion   Discussion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UserID       uint       `gorm:"not null;uniqueIndex:idx_discussion_like"`
	CreatedAt    time.Time
}

type ReplyLike struct {
	ID        uint  `gorm:"primaryKey"`
	ReplyID   uint  `gorm:"not null;uniqueIndex:idx_reply_like"`
	Reply     Reply `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UserID    uint  `gorm:"not null;uniqueIndex:idx_reply_like"`
	CreatedAt time.Time
}
