package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ehub/internal/blog"
	"ehub/internal/models"
	"ehub/internal/utils"

	"github.com/gin-gonic/gin"
)

type BlogHandler struct {
	posts     PostStore
	pageSize  int
	assetBase string
	now       func() time.Time
}

func NewBlogHandler(posts PostStore, pageSize int, assetBase string, now func() time.Time) *BlogHandler {
	if now == nil {
		now = time.Now
	}
	return &BlogHandler{posts: posts, pageSize: pageSize, assetBase: assetBase, now: now}
}

func (h *BlogHandler) query(c *gin.Context) blog.Query {
	return blog.Query{
		Search:   c.Query("q"),
		Category: c.Query("category"),
		Time:     blog.ParseTimeFilter(c.Query("time")),
		Page:     utils.PageParam(c.Query("page")),
		PageSize: h.pageSize,
	}
}

// List renders the blog with search, category and time filters.
func (h *BlogHandler) List(c *gin.Context) {
	posts, err := h.posts.ListPosts(c.Request.Context())
	if err != nil {
		RenderError(c, http.StatusInternalServerError, messageFor(c, err, "Failed to load posts"))
		return
	}

	q := h.query(c)
	result := blog.Apply(posts, q, h.now())

	Render(c, http.StatusOK, "blog/list.html", gin.H{
		"Title":       "Blog",
		"Active":      "blog",
		"Query":       q,
		"Result":      result,
		"Categories":  blog.Categories(posts),
		"TimeFilters": blog.TimeFilters,
		"PageURL":     pageURL(q),
	})
}

// pageURL keeps the active filters when moving between pages.
func pageURL(q blog.Query) func(page int) string {
	return func(page int) string {
		v := url.Values{}
		if q.Search != "" {
			v.Set("q", q.Search)
		}
		if q.Category != "" {
			v.Set("category", q.Category)
		}
		if q.Time != blog.TimeAll {
			v.Set("time", string(q.Time))
		}
		v.Set("page", strconv.Itoa(page))
		return "/blog?" + v.Encode()
	}
}

func (h *BlogHandler) Detail(c *gin.Context) {
	post, err := h.posts.FindPostBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RenderError(c, statusFor(err), messageFor(c, err, "Failed to load post"))
		return
	}

	Render(c, http.StatusOK, "blog/detail.html", gin.H{
		"Title":  post.Title,
		"Active": "blog",
		"Post":   post,
	})
}

type postJSON struct {
	ID        uint      `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Excerpt   string    `json:"excerpt"`
	Category  string    `json:"category"`
	Image     string    `json:"image"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *BlogHandler) toJSON(p models.Post) postJSON {
	return postJSON{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Excerpt:   utils.Excerpt(p.Content),
		Category:  p.Category,
		Image:     utils.AssetURL(h.assetBase, p.Image),
		Slug:      p.Slug,
		CreatedAt: p.CreatedAt,
	}
}

// APIList serves GET /api/getPosts. Without query parameters it returns
// every post; with them it applies the same filters as the blog page.
func (h *BlogHandler) APIList(c *gin.Context) {
	posts, err := h.posts.ListPosts(c.Request.Context())
	if err != nil {
		apiError(c, err, "Failed to load posts")
		return
	}

	body := gin.H{}
	if len(c.Request.URL.Query()) > 0 {
		result := blog.Apply(posts, h.query(c), h.now())
		posts = result.Posts
		body["page"] = result.Page
		body["pageCount"] = result.PageCount
		body["total"] = result.Total
	}

	out := make([]postJSON, len(posts))
	for i, p := range posts {
		out[i] = h.toJSON(p)
	}
	body["posts"] = out
	c.JSON(http.StatusOK, body)
}
