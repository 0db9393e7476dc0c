package handlers

import (
	"net/http"

	"ehub/internal/middleware"
	"ehub/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	posts    PostStore
	showcase Showcase
}

func NewAdminHandler(posts PostStore, showcase Showcase) *AdminHandler {
	return &AdminHandler{posts: posts, showcase: showcase}
}

func (h *AdminHandler) dashboardData(c *gin.Context) (gin.H, error) {
	ctx := c.Request.Context()
	stats, err := h.showcase.Stats(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := h.posts.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"Title":  "Dashboard",
		"Active": "admin",
		"Stats":  stats,
		"Posts":  posts,
	}, nil
}

// Dashboard shows site counts and the post list.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	data, err := h.dashboardData(c)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, messageFor(c, err, "Failed to load dashboard"))
		return
	}
	Render(c, http.StatusOK, "admin/dashboard.html", data)
}

func (h *AdminHandler) CreatePost(c *gin.Context) {
	in := services.NewPost{
		Title:    c.PostForm("title"),
		Content:  c.PostForm("content"),
		Category: c.PostForm("category"),
		Image:    c.PostForm("image"),
	}
	post, err := h.posts.CreatePost(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		data, derr := h.dashboardData(c)
		if derr != nil {
			RenderError(c, http.StatusInternalServerError, messageFor(c, derr, "Failed to load dashboard"))
			return
		}
		data["Error"] = messageFor(c, err, "Failed to create post")
		data["Form"] = in
		Render(c, statusFor(err), "admin/dashboard.html", data)
		return
	}
	redirectWithNotice(c, "/admin/dashboard", "success", "Post \""+post.Title+"\" published")
}

func (h *AdminHandler) DeletePost(c *gin.Context) {
	err := h.posts.DeletePost(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug"))
	if err != nil {
		redirectWithNotice(c, "/admin/dashboard", "error", messageFor(c, err, "Failed to delete post"))
		return
	}
	redirectWithNotice(c, "/admin/dashboard", "success", "Post deleted")
}
