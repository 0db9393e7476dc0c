package services

import (
	"context"
	"fmt"

	"ehub/internal/models"

	"gorm.io/gorm"
)

// ShowcaseService serves the static cards and winners shown on the
// landing pages.
type ShowcaseService struct {
	db *gorm.DB
}

func NewShowcaseService(db *gorm.DB) *ShowcaseService {
	return &ShowcaseService{db: db}
}

// ServiceCards returns cards in display order. A limit below 1 returns
// all of them.
func (s *ShowcaseService) ServiceCards(ctx context.Context, limit int) ([]models.ServiceCard, error) {
	q := s.db.WithContext(ctx).Order("position ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var cards []models.ServiceCard
	if err := q.Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("failed to list service cards: %w", err)
	}
	return cards, nil
}

func (s *ShowcaseService) Winners(ctx context.Context) ([]models.Winner, error) {
	var winners []models.Winner
	if err := s.db.WithContext(ctx).Order("position ASC, id ASC").Find(&winners).Error; err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	return winners, nil
}

type Stats struct {
	Users       int64
	Posts       int64
	Discussions int64
	Replies     int64
}

func (s *ShowcaseService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.User{}, &st.Users},
		{&models.Post{}, &st.Posts},
		{&models.Discussion{}, &st.Discussions},
		{&models.Reply{}, &st.Replies},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return Stats{}, fmt.Errorf("failed to count rows: %w", err)
		}
	}
	return st, nil
}
