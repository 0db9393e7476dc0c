package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ehub/internal/middleware"
	"ehub/internal/models"
	"ehub/internal/services"
	"ehub/internal/thread"
	"ehub/internal/utils"

	"github.com/gin-gonic/gin"
)

type DiscussionHandler struct {
	store DiscussionStore
}

func NewDiscussionHandler(store DiscussionStore) *DiscussionHandler {
	return &DiscussionHandler{store: store}
}

func viewerOf(u *models.User) thread.Viewer {
	if u == nil {
		return thread.Viewer{}
	}
	return thread.Viewer{ID: u.ID, Admin: u.IsAdmin()}
}

// load builds the thread for the current user.
func (h *DiscussionHandler) load(c *gin.Context, slug string) (*thread.Thread, error) {
	d, err := h.store.FindDiscussionBySlug(c.Request.Context(), slug)
	if err != nil {
		return nil, err
	}
	user := middleware.CurrentUser(c)
	return thread.New(h.store.ForActor(user), viewerOf(user), d), nil
}

func threadPath(slug string) string { return "/discussions/" + slug }

func replyAnchor(slug string, replyID uint) string {
	return fmt.Sprintf("%s#reply-%d", threadPath(slug), replyID)
}

func (h *DiscussionHandler) List(c *gin.Context) {
	list, err := h.store.ListDiscussions(c.Request.Context())
	if err != nil {
		RenderError(c, http.StatusInternalServerError, messageFor(c, err, "Failed to load discussions"))
		return
	}
	Render(c, http.StatusOK, "discussion/list.html", gin.H{
		"Title":       "Group Discussions",
		"Active":      "discussions",
		"Discussions": list,
	})
}

func (h *DiscussionHandler) Create(c *gin.Context) {
	title := c.PostForm("title")
	content := c.PostForm("content")

	d, err := h.store.CreateDiscussion(c.Request.Context(), middleware.CurrentUser(c), title, content)
	if err != nil {
		list, _ := h.store.ListDiscussions(c.Request.Context())
		Render(c, statusFor(err), "discussion/list.html", gin.H{
			"Title":       "Group Discussions",
			"Active":      "discussions",
			"Discussions": list,
			"Error":       messageFor(c, err, "Failed to create discussion"),
			"Form":        gin.H{"Title": title, "Content": content},
		})
		return
	}
	redirectWithNotice(c, threadPath(d.Slug), "success", "Discussion created")
}

// Show renders the thread. ?edit=ID opens a reply editor and ?delete=ID
// opens the delete confirmation.
func (h *DiscussionHandler) Show(c *gin.Context) {
	th, err := h.load(c, c.Param("slug"))
	if err != nil {
		RenderError(c, statusFor(err), messageFor(c, err, "Failed to load discussion"))
		return
	}

	if id, ok := utils.StringToID(c.Query("edit")); ok {
		_ = th.BeginEdit(id)
	} else if id, ok := utils.StringToID(c.Query("delete")); ok {
		_ = th.RequestDelete(id)
	} else if id, ok := utils.StringToID(c.Query("menu")); ok {
		_ = th.OpenMenu(id)
	}

	h.render(c, http.StatusOK, th)
}

func (h *DiscussionHandler) render(c *gin.Context, code int, th *thread.Thread) {
	data := gin.H{
		"Title":  th.Discussion().Title,
		"Active": "discussions",
		"Thread": th,
	}
	if n := th.Notification(); n != nil {
		data["ThreadNotice"] = n
	}
	Render(c, code, "discussion/detail.html", data)
}

// act runs one thread action and redirects back with its notice.
func (h *DiscussionHandler) act(c *gin.Context, back func(slug string) string, action func(th *thread.Thread) error) {
	slug := c.Param("slug")
	th, err := h.load(c, slug)
	if err != nil {
		RenderError(c, statusFor(err), messageFor(c, err, "Failed to load discussion"))
		return
	}

	err = action(th)
	switch n := th.Notification(); {
	case n != nil:
		redirectWithNotice(c, back(slug), string(n.Severity), n.Message)
	case err != nil:
		redirectWithNotice(c, back(slug), "error", messageFor(c, err, "Something went wrong"))
	default:
		redirectWithNotice(c, back(slug), "", "")
	}
}

func (h *DiscussionHandler) Like(c *gin.Context) {
	h.act(c, threadPath, func(th *thread.Thread) error {
		return th.LikeDiscussion(c.Request.Context())
	})
}

func (h *DiscussionHandler) Reply(c *gin.Context) {
	slug := c.Param("slug")
	th, err := h.load(c, slug)
	if err != nil {
		RenderError(c, statusFor(err), messageFor(c, err, "Failed to load discussion"))
		return
	}

	th.SetDraft(c.PostForm("content"))
	if err := th.SubmitReply(c.Request.Context()); err != nil {
		// keep the draft on the page
		h.renderWithError(c, th, err, "Failed to post reply")
		return
	}
	replies := th.Replies()
	redirectWithNotice(c, replyAnchor(slug, replies[len(replies)-1].ID), "success", th.Notification().Message)
}

func (h *DiscussionHandler) LikeReply(c *gin.Context) {
	id, ok := utils.StringToID(c.Param("id"))
	if !ok {
		RenderError(c, http.StatusNotFound, "Reply not found")
		return
	}
	h.act(c, func(slug string) string { return replyAnchor(slug, id) }, func(th *thread.Thread) error {
		return th.LikeReply(c.Request.Context(), id)
	})
}

// EditReply saves an edit. A failed save re-renders the thread with the
// editor still open.
func (h *DiscussionHandler) EditReply(c *gin.Context) {
	id, ok := utils.StringToID(c.Param("id"))
	if !ok {
		RenderError(c, http.StatusNotFound, "Reply not found")
		return
	}
	slug := c.Param("slug")
	th, err := h.load(c, slug)
	if err != nil {
		RenderError(c, statusFor(err), messageFor(c, err, "Failed to load discussion"))
		return
	}

	if err := th.BeginEdit(id); err != nil {
		redirectWithNotice(c, threadPath(slug), "error", messageFor(c, err, "Failed to update reply"))
		return
	}
	_ = th.SetEditContent(id, c.PostForm("content"))
	if err := th.SaveEdit(c.Request.Context(), id); err != nil {
		h.renderWithError(c, th, err, "Failed to update reply")
		return
	}
	redirectWithNotice(c, replyAnchor(slug, id), "success", th.Notification().Message)
}

func (h *DiscussionHandler) DeleteReply(c *gin.Context) {
	id, ok := utils.StringToID(c.Param("id"))
	if !ok {
		RenderError(c, http.StatusNotFound, "Reply not found")
		return
	}
	h.act(c, threadPath, func(th *thread.Thread) error {
		if err := th.RequestDelete(id); err != nil {
			return err
		}
		return th.ConfirmDelete(c.Request.Context(), id)
	})
}

func (h *DiscussionHandler) renderWithError(c *gin.Context, th *thread.Thread, err error, fallback string) {
	code := statusFor(err)
	if th.Notification() == nil {
		// validation failures never reach the backend
		msg := messageFor(c, err, fallback)
		if errors.Is(err, thread.ErrEmptyReply) || errors.Is(err, services.ErrEmptyContent) {
			msg = "Reply cannot be empty"
		}
		Render(c, code, "discussion/detail.html", gin.H{
			"Title":        th.Discussion().Title,
			"Active":       "discussions",
			"Thread":       th,
			"ThreadNotice": &thread.Notification{Severity: thread.SeverityError, Message: strings.TrimSpace(msg)},
		})
		return
	}
	h.render(c, code, th)
}
