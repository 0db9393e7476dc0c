package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ehub/internal/models"
	"ehub/internal/utils"

	"gorm.io/gorm"
)

const (
	postListCacheKey = "posts:all"
	postListCacheTTL = time.Minute
)

type PostService struct {
	db    *gorm.DB
	cache *utils.TTLCache[[]models.Post]
}

func NewPostService(db *gorm.DB, cache *utils.TTLCache[[]models.Post]) *PostService {
	return &PostService{db: db, cache: cache}
}

// ListPosts returns every post, newest first.
func (s *PostService) ListPosts(ctx context.Context) ([]models.Post, error) {
	if posts, ok := s.cache.Get(postListCacheKey); ok {
		return posts, nil
	}

	var posts []models.Post
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	s.cache.Set(postListCacheKey, posts, postListCacheTTL)
	return posts, nil
}

func (s *PostService) FindPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return &post, nil
}

type NewPost struct {
	Title    string
	Content  string
	Category string
	Image    string
}

func (s *PostService) CreatePost(ctx context.Context, actor *models.User, in NewPost) (*models.Post, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyContent
	}

	post := models.Post{
		Title:    title,
		Content:  in.Content,
		Category: strings.TrimSpace(in.Category),
		Image:    strings.TrimSpace(in.Image),
		Slug:     utils.Slugify(title),
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	s.cache.Delete(postListCacheKey)
	return &post, nil
}

func (s *PostService) DeletePost(ctx context.Context, actor *models.User, slug string) error {
	if actor == nil || !actor.IsAdmin() {
		return ErrForbidden
	}
	res := s.db.WithContext(ctx).Where("slug = ?", slug).Delete(&models.Post{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.cache.Delete(postListCacheKey)
	return nil
}
