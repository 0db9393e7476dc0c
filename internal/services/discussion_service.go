package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ehub/internal/models"
	"ehub/internal/thread"
	"ehub/internal/utils"

	"gorm.io/gorm"
)

type DiscussionService struct {
	db *gorm.DB
}

func NewDiscussionService(db *gorm.DB) *DiscussionService {
	return &DiscussionService{db: db}
}

// DiscussionSummary is one row of the discussions list.
type DiscussionSummary struct {
	ID         uint      `json:"_id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	AuthorName string    `json:"authorName"`
	Replies    int64     `json:"replies"`
	Likes      int64     `json:"likes"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *DiscussionService) ListDiscussions(ctx context.Context) ([]DiscussionSummary, error) {
	var discussions []models.Discussion
	err := s.db.WithContext(ctx).Preload("Author").Order("created_at DESC").Find(&discussions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}
	if len(discussions) == 0 {
		return []DiscussionSummary{}, nil
	}

	ids := make([]uint, len(discussions))
	for i, d := range discussions {
		ids[i] = d.ID
	}
	replies, err := s.countBy(ctx, &models.Reply{}, ids)
	if err != nil {
		return nil, err
	}
	likes, err := s.countBy(ctx, &models.DiscussionLike{}, ids)
	if err != nil {
		return nil, err
	}

	out := make([]DiscussionSummary, len(discussions))
	for i, d := range discussions {
		out[i] = DiscussionSummary{
			ID:         d.ID,
			Slug:       d.Slug,
			Title:      d.Title,
			AuthorName: d.Author.Username,
			Replies:    replies[d.ID],
			Likes:      likes[d.ID],
			CreatedAt:  d.CreatedAt,
		}
	}
	return out, nil
}

func (s *DiscussionService) countBy(ctx context.Context, model any, ids []uint) (map[uint]int64, error) {
	var rows []struct {
		DiscussionID uint
		N            int64
	}
	err := s.db.WithContext(ctx).Model(model).
		Select("discussion_id, count(*) AS n").
		Where("discussion_id IN ?", ids).
		Group("discussion_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count discussion rows: %w", err)
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.DiscussionID] = r.N
	}
	return out, nil
}

func (s *DiscussionService) CreateDiscussion(ctx context.Context, actor *models.User, title, content string) (*models.Discussion, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, ErrEmptyContent
	}

	d := models.Discussion{
		Slug:     utils.Slugify(title),
		Title:    title,
		Content:  content,
		AuthorID: actor.ID,
	}
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, fmt.Errorf("failed to create discussion: %w", err)
	}
	d.Author = *actor
	return &d, nil
}

// FindDiscussionBySlug loads a discussion with its replies in posting
// order and every like set.
func (s *DiscussionService) FindDiscussionBySlug(ctx context.Context, slug string) (thread.Discussion, error) {
	db := s.db.WithContext(ctx)

	var d models.Discussion
	err := db.Preload("Author").
		Preload("Replies", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }).
		Preload("Replies.Author").
		Where("slug = ?", slug).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return thread.Discussion{}, ErrNotFound
	}
	if err != nil {
		return thread.Discussion{}, fmt.Errorf("failed to find discussion: %w", err)
	}

	likes, err := s.discussionLikes(db, d.ID)
	if err != nil {
		return thread.Discussion{}, err
	}

	replyIDs := make([]uint, len(d.Replies))
	for i, r := range d.Replies {
		replyIDs[i] = r.ID
	}
	replyLikes := map[uint]thread.LikeSet{}
	if len(replyIDs) > 0 {
		var rows []models.ReplyLike
		if err := db.Where("reply_id IN ?", replyIDs).Find(&rows).Error; err != nil {
			return thread.Discussion{}, fmt.Errorf("failed to load reply likes: %w", err)
		}
		for _, l := range rows {
			if replyLikes[l.ReplyID] == nil {
				replyLikes[l.ReplyID] = thread.NewLikeSet()
			}
			replyLikes[l.ReplyID][l.UserID] = struct{}{}
		}
	}

	out := thread.Discussion{
		ID:          d.ID,
		Slug:        d.Slug,
		Title:       d.Title,
		Content:     d.Content,
		AuthorID:    d.AuthorID,
		AuthorName:  d.Author.Username,
		AuthorImage: d.Author.Image,
		Likes:       likes,
		Replies:     make([]thread.Reply, len(d.Replies)),
		CreatedAt:   d.CreatedAt,
	}
	for i, r := range d.Replies {
		out.Replies[i] = toThreadReply(r, replyLikes[r.ID])
	}
	return out, nil
}

func toThreadReply(r models.Reply, likes thread.LikeSet) thread.Reply {
	if likes == nil {
		likes = thread.NewLikeSet()
	}
	return thread.Reply{
		ID:          r.ID,
		AuthorID:    r.AuthorID,
		AuthorName:  r.Author.Username,
		AuthorImage: r.Author.Image,
		Content:     r.Content,
		Likes:       likes,
		CreatedAt:   r.CreatedAt,
	}
}

func (s *DiscussionService) discussionLikes(db *gorm.DB, discussionID uint) (thread.LikeSet, error) {
	var ids []uint
	if err := db.Model(&models.DiscussionLike{}).Where("discussion_id = ?", discussionID).Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load discussion likes: %w", err)
	}
	return thread.NewLikeSet(ids...), nil
}

func (s *DiscussionService) replyLikes(db *gorm.DB, replyID uint) (thread.LikeSet, error) {
	var ids []uint
	if err := db.Model(&models.ReplyLike{}).Where("reply_id = ?", replyID).Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load reply likes: %w", err)
	}
	return thread.NewLikeSet(ids...), nil
}

// ToggleDiscussionLike flips the actor's like and returns the stored set.
func (s *DiscussionService) ToggleDiscussionLike(ctx context.Context, actor *models.User, discussionID uint) (thread.LikeSet, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	var likes thread.LikeSet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Discussion{}, discussionID); err != nil {
			return err
		}

		var like models.DiscussionLike
		res := tx.Where("discussion_id = ? AND user_id = ?", discussionID, actor.ID).Limit(1).Find(&like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Delete(&like).Error; err != nil {
				return err
			}
		} else if err := tx.Create(&models.DiscussionLike{DiscussionID: discussionID, UserID: actor.ID}).Error; err != nil {
			return err
		}

		var err error
		likes, err = s.discussionLikes(tx, discussionID)
		return err
	})
	if err != nil {
		return nil, wrap("failed to toggle discussion like", err)
	}
	return likes, nil
}

func (s *DiscussionService) ToggleReplyLike(ctx context.Context, actor *models.User, replyID uint) (thread.LikeSet, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	var likes thread.LikeSet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Reply{}, replyID); err != nil {
			return err
		}

		var like models.ReplyLike
		res := tx.Where("reply_id = ? AND user_id = ?", replyID, actor.ID).Limit(1).Find(&like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Delete(&like).Error; err != nil {
				return err
			}
		} else if err := tx.Create(&models.ReplyLike{ReplyID: replyID, UserID: actor.ID}).Error; err != nil {
			return err
		}

		var err error
		likes, err = s.replyLikes(tx, replyID)
		return err
	})
	if err != nil {
		return nil, wrap("failed to toggle reply like", err)
	}
	return likes, nil
}

func (s *DiscussionService) CreateReply(ctx context.Context, actor *models.User, discussionID uint, content string) (thread.Reply, error) {
	if actor == nil {
		return thread.Reply{}, ErrForbidden
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return thread.Reply{}, ErrEmptyContent
	}
	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Discussion{}, discussionID); err != nil {
		return thread.Reply{}, wrap("failed to create reply", err)
	}

	r := models.Reply{DiscussionID: discussionID, AuthorID: actor.ID, Content: content}
	if err := db.Create(&r).Error; err != nil {
		return thread.Reply{}, fmt.Errorf("failed to create reply: %w", err)
	}
	r.Author = *actor
	return toThreadReply(r, nil), nil
}

// UpdateReply replaces a reply's content. Only its author or an admin
// may do this.
func (s *DiscussionService) UpdateReply(ctx context.Context, actor *models.User, replyID uint, content string) (thread.Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return thread.Reply{}, ErrEmptyContent
	}
	db := s.db.WithContext(ctx)
	r, err := s.modifiableReply(db, actor, replyID)
	if err != nil {
		return thread.Reply{}, err
	}

	if err := db.Model(r).Update("content", content).Error; err != nil {
		return thread.Reply{}, fmt.Errorf("failed to update reply: %w", err)
	}
	r.Content = content
	likes, err := s.replyLikes(db, r.ID)
	if err != nil {
		return thread.Reply{}, err
	}
	return toThreadReply(*r, likes), nil
}

func (s *DiscussionService) DeleteReply(ctx context.Context, actor *models.User, replyID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.modifiableReply(tx, actor, replyID)
		if err != nil {
			return err
		}
		if err := tx.Where("reply_id = ?", r.ID).Delete(&models.ReplyLike{}).Error; err != nil {
			return fmt.Errorf("failed to delete reply likes: %w", err)
		}
		if err := tx.Delete(r).Error; err != nil {
			return fmt.Errorf("failed to delete reply: %w", err)
		}
		return nil
	})
}

// DiscussionSlugForReply lets reply-addressed API calls find their thread.
func (s *DiscussionService) DiscussionSlugForReply(ctx context.Context, replyID uint) (string, error) {
	var slugs []string
	err := s.db.WithContext(ctx).Model(&models.Discussion{}).
		Joins("JOIN replies ON replies.discussion_id = discussions.id").
		Where("replies.id = ?", replyID).
		Limit(1).
		Pluck("discussions.slug", &slugs).Error
	if err != nil {
		return "", fmt.Errorf("failed to find discussion for reply: %w", err)
	}
	if len(slugs) == 0 {
		return "", ErrNotFound
	}
	return slugs[0], nil
}

func (s *DiscussionService) modifiableReply(db *gorm.DB, actor *models.User, replyID uint) (*models.Reply, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	var r models.Reply
	err := db.Preload("Author").First(&r, replyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reply: %w", err)
	}
	if r.AuthorID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return &r, nil
}

// ForActor binds the service to one user so it can back a thread.
func (s *DiscussionService) ForActor(actor *models.User) thread.Backend {
	return &actorBackend{svc: s, actor: actor}
}

type actorBackend struct {
	svc   *DiscussionService
	actor *models.User
}

func (b *actorBackend) ToggleDiscussionLike(ctx context.Context, id uint) (thread.LikeSet, error) {
	return b.svc.ToggleDiscussionLike(ctx, b.actor, id)
}

func (b *actorBackend) ToggleReplyLike(ctx context.Context, id uint) (thread.LikeSet, error) {
	return b.svc.ToggleReplyLike(ctx, b.actor, id)
}

func (b *actorBackend) CreateReply(ctx context.Context, discussionID uint, content string) (thread.Reply, error) {
	return b.svc.CreateReply(ctx, b.actor, discussionID, content)
}

func (b *actorBackend) UpdateReply(ctx context.Context, id uint, content string) (thread.Reply, error) {
	return b.svc.UpdateReply(ctx, b.actor, id, content)
}

func (b *actorBackend) DeleteReply(ctx context.Context, id uint) error {
	return b.svc.DeleteReply(ctx, b.actor, id)
}

func exists(db *gorm.DB, model any, id uint) error {
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// wrap returns sentinel errors as they are.
func wrap(msg string, err error) error {
	if IsUserError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
