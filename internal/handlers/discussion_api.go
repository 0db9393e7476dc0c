package handlers

import (
	"net/http"

	"ehub/internal/middleware"
	"ehub/internal/thread"
	"ehub/internal/utils"

	"github.com/gin-gonic/gin"
)

type contentRequest struct {
	Content string `json:"content"`
}

// threadForReply finds and loads the thread a reply belongs to.
func (h *DiscussionHandler) threadForReply(c *gin.Context) (*thread.Thread, uint, bool) {
	id, ok := utils.StringToID(c.Param("id"))
	if !ok {
		apiError(c, thread.ErrReplyNotFound, "")
		return nil, 0, false
	}
	slug, err := h.store.DiscussionSlugForReply(c.Request.Context(), id)
	if err != nil {
		apiError(c, err, "Failed to load reply")
		return nil, 0, false
	}
	th, err := h.load(c, slug)
	if err != nil {
		apiError(c, err, "Failed to load discussion")
		return nil, 0, false
	}
	return th, id, true
}

func findReply(th *thread.Thread, id uint) (thread.Reply, bool) {
	for _, r := range th.Replies() {
		if r.ID == id {
			return r, true
		}
	}
	return thread.Reply{}, false
}

func (h *DiscussionHandler) APIShow(c *gin.Context) {
	d, err := h.store.FindDiscussionBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apiError(c, err, "Failed to load discussion")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DiscussionHandler) APIList(c *gin.Context) {
	list, err := h.store.ListDiscussions(c.Request.Context())
	if err != nil {
		apiError(c, err, "Failed to load discussions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussions": list})
}

func (h *DiscussionHandler) APICreate(c *gin.Context) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid request body"})
		return
	}
	d, err := h.store.CreateDiscussion(c.Request.Context(), middleware.CurrentUser(c), req.Title, req.Content)
	if err != nil {
		apiError(c, err, "Failed to create discussion")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"_id": d.ID, "slug": d.Slug, "title": d.Title})
}

func (h *DiscussionHandler) APILike(c *gin.Context) {
	th, err := h.load(c, c.Param("slug"))
	if err != nil {
		apiError(c, err, "Failed to load discussion")
		return
	}
	if err := th.LikeDiscussion(c.Request.Context()); err != nil {
		apiError(c, err, "Failed to like discussion")
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": th.Discussion().Likes, "liked": th.LikedDiscussion()})
}

func (h *DiscussionHandler) APIReply(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid request body"})
		return
	}
	th, err := h.load(c, c.Param("slug"))
	if err != nil {
		apiError(c, err, "Failed to load discussion")
		return
	}

	th.SetDraft(req.Content)
	if err := th.SubmitReply(c.Request.Context()); err != nil {
		apiError(c, err, "Failed to post reply")
		return
	}
	replies := th.Replies()
	c.JSON(http.StatusCreated, replies[len(replies)-1])
}

func (h *DiscussionHandler) APIUpdateReply(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid request body"})
		return
	}
	th, id, ok := h.threadForReply(c)
	if !ok {
		return
	}

	if err := th.BeginEdit(id); err != nil {
		apiError(c, err, "Failed to update reply")
		return
	}
	_ = th.SetEditContent(id, req.Content)
	if err := th.SaveEdit(c.Request.Context(), id); err != nil {
		apiError(c, err, "Failed to update reply")
		return
	}
	r, _ := findReply(th, id)
	c.JSON(http.StatusOK, r)
}

func (h *DiscussionHandler) APIDeleteReply(c *gin.Context) {
	th, id, ok := h.threadForReply(c)
	if !ok {
		return
	}

	if err := th.RequestDelete(id); err != nil {
		apiError(c, err, "Failed to delete reply")
		return
	}
	if err := th.ConfirmDelete(c.Request.Context(), id); err != nil {
		apiError(c, err, "Failed to delete reply")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": th.Notification().Message})
}

func (h *DiscussionHandler) APILikeReply(c *gin.Context) {
	th, id, ok := h.threadForReply(c)
	if !ok {
		return
	}
	if err := th.LikeReply(c.Request.Context(), id); err != nil {
		apiError(c, err, "Failed to like comment")
		return
	}
	r, _ := findReply(th, id)
	c.JSON(http.StatusOK, gin.H{"likes": r.Likes, "liked": th.LikedReply(r)})
}
