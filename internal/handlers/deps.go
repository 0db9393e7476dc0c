package handlers

import (
	"context"

	"ehub/internal/authflow"
	"ehub/internal/models"
	"ehub/internal/services"
	"ehub/internal/thread"
)

type PostStore interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	FindPostBySlug(ctx context.Context, slug string) (*models.Post, error)
	CreatePost(ctx context.Context, actor *models.User, in services.NewPost) (*models.Post, error)
	DeletePost(ctx context.Context, actor *models.User, slug string) error
}

type DiscussionStore interface {
	ListDiscussions(ctx context.Context) ([]services.DiscussionSummary, error)
	CreateDiscussion(ctx context.Context, actor *models.User, title, content string) (*models.Discussion, error)
	FindDiscussionBySlug(ctx context.Context, slug string) (thread.Discussion, error)
	DiscussionSlugForReply(ctx context.Context, replyID uint) (string, error)
	ForActor(actor *models.User) thread.Backend
}

type Showcase interface {
	ServiceCards(ctx context.Context, limit int) ([]models.ServiceCard, error)
	Winners(ctx context.Context) ([]models.Winner, error)
	Stats(ctx context.Context) (services.Stats, error)
}

type Accounts interface {
	authflow.Authenticator
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, password string) error
}
