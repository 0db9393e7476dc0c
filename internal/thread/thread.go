// Package thread holds the view state of one discussion and its replies:
// likes, the reply draft, per-reply edit and delete modes, and the
// notice shown after each action. Requests go through a Backend.
package thread

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

var (
	ErrNotAuthenticated = errors.New("please log in to continue")
	ErrRequestPending   = errors.New("a request for this item is already in progress")
	ErrEmptyReply       = errors.New("reply cannot be empty")
	ErrNotPermitted     = errors.New("you can only change your own replies")
	ErrReplyNotFound    = errors.New("reply not found")
	ErrWrongMode        = errors.New("reply is not in the required state")
)

type Discussion struct {
	ID          uint      `json:"_id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	AuthorID    uint      `json:"authorId"`
	AuthorName  string    `json:"authorName"`
	AuthorImage string    `json:"authorImage"`
	Likes       LikeSet   `json:"likes"`
	Replies     []Reply   `json:"comments"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Reply struct {
	ID          uint      `json:"_id"`
	AuthorID    uint      `json:"authorId"`
	AuthorName  string    `json:"authorName"`
	AuthorImage string    `json:"authorImage"`
	Content     string    `json:"content"`
	Likes       LikeSet   `json:"likes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Viewer is the user looking at the thread. A zero ID is anonymous.
type Viewer struct {
	ID    uint
	Admin bool
}

func (v Viewer) Anonymous() bool { return v.ID == 0 }

// Backend performs the requests behind each action on behalf of the
// viewer. Returned like sets are authoritative.
type Backend interface {
	ToggleDiscussionLike(ctx context.Context, discussionID uint) (LikeSet, error)
	ToggleReplyLike(ctx context.Context, replyID uint) (LikeSet, error)
	CreateReply(ctx context.Context, discussionID uint, content string) (Reply, error)
	UpdateReply(ctx context.Context, replyID uint, content string) (Reply, error)
	DeleteReply(ctx context.Context, replyID uint) error
}

// Thread is not safe for concurrent use; actions arrive one user event
// at a time.
type Thread struct {
	backend    Backend
	viewer     Viewer
	discussion Discussion

	draft    string
	modes    map[uint]Mode
	edits    map[uint]string
	editErrs map[uint]string
	menu     Menu
	requests map[actionKey]RequestState
	notice   *Notification
}

func New(backend Backend, viewer Viewer, d Discussion) *Thread {
	if d.Likes == nil {
		d.Likes = NewLikeSet()
	}
	for i := range d.Replies {
		if d.Replies[i].Likes == nil {
			d.Replies[i].Likes = NewLikeSet()
		}
	}
	return &Thread{
		backend:    backend,
		viewer:     viewer,
		discussion: d,
		modes:      make(map[uint]Mode),
		edits:      make(map[uint]string),
		editErrs:   make(map[uint]string),
		requests:   make(map[actionKey]RequestState),
	}
}

func (t *Thread) Discussion() Discussion { return t.discussion }
func (t *Thread) Replies() []Reply       { return t.discussion.Replies }
func (t *Thread) Viewer() Viewer         { return t.viewer }
func (t *Thread) Draft() string          { return t.draft }
func (t *Thread) Menu() Menu             { return t.menu }

// CanSubmit mirrors the disabled state of the post button.
func (t *Thread) CanSubmit() bool {
	return strings.TrimSpace(t.draft) != ""
}

func (t *Thread) Mode(replyID uint) Mode { return t.modes[replyID] }

func (t *Thread) EditContent(replyID uint) string { return t.edits[replyID] }

// EditError is the inline error left on a reply whose save failed.
func (t *Thread) EditError(replyID uint) string { return t.editErrs[replyID] }

func (t *Thread) LikedDiscussion() bool {
	return !t.viewer.Anonymous() && t.discussion.Likes.Has(t.viewer.ID)
}

func (t *Thread) LikedReply(r Reply) bool {
	return !t.viewer.Anonymous() && r.Likes.Has(t.viewer.ID)
}

// CanModify decides whether edit and delete controls are shown for r.
// Only the reply's author or an admin sees them.
func (t *Thread) CanModify(r Reply) bool {
	if t.viewer.Anonymous() {
		return false
	}
	return t.viewer.ID == r.AuthorID || t.viewer.Admin
}

func (t *Thread) Notification() *Notification { return t.notice }

func (t *Thread) Dismiss() { t.notice = nil }

func (t *Thread) LikeDiscussionState() RequestState {
	return t.requests[actionKey{kind: actionLikeDiscussion, id: t.discussion.ID}]
}

func (t *Thread) LikeReplyState(replyID uint) RequestState {
	return t.requests[actionKey{kind: actionLikeReply, id: replyID}]
}

func (t *Thread) SubmitState() RequestState {
	return t.requests[actionKey{kind: actionSubmitReply, id: t.discussion.ID}]
}

func (t *Thread) EditState(replyID uint) RequestState {
	return t.requests[actionKey{kind: actionEditReply, id: replyID}]
}

func (t *Thread) DeleteState(replyID uint) RequestState {
	return t.requests[actionKey{kind: actionDeleteReply, id: replyID}]
}

// LikeDiscussion toggles the viewer's like immediately and rolls it back
// if the request fails.
func (t *Thread) LikeDiscussion(ctx context.Context) error {
	if t.viewer.Anonymous() {
		return ErrNotAuthenticated
	}
	key := actionKey{kind: actionLikeDiscussion, id: t.discussion.ID}
	if err := t.begin(key); err != nil {
		return err
	}

	t.discussion.Likes.Toggle(t.viewer.ID)
	likes, err := t.backend.ToggleDiscussionLike(ctx, t.discussion.ID)
	if err != nil {
		t.discussion.Likes.Toggle(t.viewer.ID)
		t.fail(key, err, "Failed to like discussion")
		return err
	}
	if likes != nil {
		t.discussion.Likes = likes
	}
	t.requests[key] = RequestState{Status: Succeeded}
	return nil
}

// LikeReply is LikeDiscussion for one reply.
func (t *Thread) LikeReply(ctx context.Context, replyID uint) error {
	if t.viewer.Anonymous() {
		return ErrNotAuthenticated
	}
	i := t.indexOf(replyID)
	if i < 0 {
		return ErrReplyNotFound
	}
	key := actionKey{kind: actionLikeReply, id: replyID}
	if err := t.begin(key); err != nil {
		return err
	}

	t.discussion.Replies[i].Likes.Toggle(t.viewer.ID)
	likes, err := t.backend.ToggleReplyLike(ctx, replyID)
	if err != nil {
		// the reply may have moved while the request was out
		if j := t.indexOf(replyID); j >= 0 {
			t.discussion.Replies[j].Likes.Toggle(t.viewer.ID)
		}
		t.fail(key, err, "Failed to like comment")
		return err
	}
	if j := t.indexOf(replyID); j >= 0 && likes != nil {
		t.discussion.Replies[j].Likes = likes
	}
	t.requests[key] = RequestState{Status: Succeeded}
	return nil
}

func (t *Thread) SetDraft(s string) { t.draft = s }

// SubmitReply appends the draft as a new reply once the backend has
// stored it, then clears the draft. On failure the draft is kept.
func (t *Thread) SubmitReply(ctx context.Context) error {
	if t.viewer.Anonymous() {
		return ErrNotAuthenticated
	}
	content := strings.TrimSpace(t.draft)
	if content == "" {
		return ErrEmptyReply
	}
	key := actionKey{kind: actionSubmitReply, id: t.discussion.ID}
	if err := t.begin(key); err != nil {
		return err
	}

	reply, err := t.backend.CreateReply(ctx, t.discussion.ID, content)
	if err != nil {
		t.fail(key, err, "Failed to post reply")
		return err
	}
	if reply.Likes == nil {
		reply.Likes = NewLikeSet()
	}
	t.discussion.Replies = append(t.discussion.Replies, reply)
	t.draft = ""
	t.requests[key] = RequestState{Status: Succeeded}
	t.notify(SeveritySuccess, "Reply posted successfully")
	return nil
}

// OpenMenu opens the action menu on a reply the viewer may modify.
func (t *Thread) OpenMenu(replyID uint) error {
	r, err := t.modifiable(replyID)
	if err != nil {
		return err
	}
	t.menu = OpenMenu(r.ID)
	return nil
}

func (t *Thread) CloseMenu() { t.menu = ClosedMenu() }

// BeginEdit puts a reply into editing with its current content loaded.
func (t *Thread) BeginEdit(replyID uint) error {
	r, err := t.modifiable(replyID)
	if err != nil {
		return err
	}
	if t.modes[replyID] != Viewing {
		return ErrWrongMode
	}
	t.menu = ClosedMenu()
	t.modes[replyID] = Editing
	t.edits[replyID] = r.Content
	delete(t.editErrs, replyID)
	return nil
}

func (t *Thread) SetEditContent(replyID uint, content string) error {
	if t.modes[replyID] != Editing {
		return ErrWrongMode
	}
	t.edits[replyID] = content
	return nil
}

func (t *Thread) CancelEdit(replyID uint) error {
	if t.modes[replyID] != Editing {
		return ErrWrongMode
	}
	t.reset(replyID)
	return nil
}

// SaveEdit sends the edited content. Success replaces the content and
// returns to viewing; failure stays in editing with an inline error.
func (t *Thread) SaveEdit(ctx context.Context, replyID uint) error {
	if t.modes[replyID] != Editing {
		return ErrWrongMode
	}
	content := strings.TrimSpace(t.edits[replyID])
	if content == "" {
		t.editErrs[replyID] = "Reply cannot be empty"
		return ErrEmptyReply
	}
	key := actionKey{kind: actionEditReply, id: replyID}
	if err := t.begin(key); err != nil {
		return err
	}

	updated, err := t.backend.UpdateReply(ctx, replyID, content)
	if err != nil {
		t.fail(key, err, "Failed to update reply")
		t.editErrs[replyID] = t.notice.Message
		return err
	}
	if i := t.indexOf(replyID); i >= 0 {
		t.discussion.Replies[i].Content = updated.Content
	}
	t.reset(replyID)
	t.requests[key] = RequestState{Status: Succeeded}
	t.notify(SeveritySuccess, "Reply updated successfully")
	return nil
}

// RequestDelete opens the confirmation dialog for a reply.
func (t *Thread) RequestDelete(replyID uint) error {
	if _, err := t.modifiable(replyID); err != nil {
		return err
	}
	if t.modes[replyID] != Viewing {
		return ErrWrongMode
	}
	t.menu = ClosedMenu()
	t.modes[replyID] = PendingDelete
	return nil
}

func (t *Thread) CancelDelete(replyID uint) error {
	if t.modes[replyID] != PendingDelete {
		return ErrWrongMode
	}
	t.reset(replyID)
	return nil
}

// ConfirmDelete removes the reply once the backend has deleted it. A
// failed request closes the dialog and leaves the reply in place.
func (t *Thread) ConfirmDelete(ctx context.Context, replyID uint) error {
	if t.modes[replyID] != PendingDelete {
		return ErrWrongMode
	}
	key := actionKey{kind: actionDeleteReply, id: replyID}
	if err := t.begin(key); err != nil {
		return err
	}

	err := t.backend.DeleteReply(ctx, replyID)
	t.reset(replyID)
	if err != nil {
		t.fail(key, err, "Failed to delete reply")
		return err
	}
	t.discussion.Replies = slices.DeleteFunc(t.discussion.Replies, func(r Reply) bool {
		return r.ID == replyID
	})
	t.requests[key] = RequestState{Status: Succeeded}
	t.notify(SeveritySuccess, "Reply deleted successfully")
	return nil
}

func (t *Thread) modifiable(replyID uint) (Reply, error) {
	i := t.indexOf(replyID)
	if i < 0 {
		return Reply{}, ErrReplyNotFound
	}
	r := t.discussion.Replies[i]
	if !t.CanModify(r) {
		return Reply{}, ErrNotPermitted
	}
	return r, nil
}

func (t *Thread) indexOf(replyID uint) int {
	return slices.IndexFunc(t.discussion.Replies, func(r Reply) bool {
		return r.ID == replyID
	})
}

func (t *Thread) begin(key actionKey) error {
	if t.requests[key].Pending() {
		return ErrRequestPending
	}
	t.requests[key] = RequestState{Status: Pending}
	return nil
}

func (t *Thread) fail(key actionKey, err error, fallback string) {
	msg := Message(err, fallback)
	t.requests[key] = RequestState{Status: Failed, Reason: msg}
	t.notify(SeverityError, msg)
}

func (t *Thread) notify(sev Severity, msg string) {
	t.notice = &Notification{Severity: sev, Message: msg}
}

func (t *Thread) reset(replyID uint) {
	delete(t.modes, replyID)
	delete(t.edits, replyID)
	delete(t.editErrs, replyID)
}

// Message returns the user-facing text carried by err, or fallback when
// err has none.
func Message(err error, fallback string) string {
	var m interface{ UserMessage() string }
	if errors.As(err, &m) && m.UserMessage() != "" {
		return m.UserMessage()
	}
	return fallback
}
