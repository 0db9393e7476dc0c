package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"ehub/internal/authflow"
	"ehub/internal/config"
	"ehub/internal/middleware"
	"ehub/internal/models"
	"ehub/internal/services"
	"ehub/internal/thread"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)

type fakePosts struct {
	posts []models.Post
}

func (f *fakePosts) ListPosts(context.Context) ([]models.Post, error) {
	return append([]models.Post(nil), f.posts...), nil
}

func (f *fakePosts) FindPostBySlug(_ context.Context, slug string) (*models.Post, error) {
	for i := range f.posts {
		if f.posts[i].Slug == slug {
			return &f.posts[i], nil
		}
	}
	return nil, services.ErrNotFound
}

func (f *fakePosts) CreatePost(_ context.Context, actor *models.User, in services.NewPost) (*models.Post, error) {
	if !actor.IsAdmin() {
		return nil, services.ErrForbidden
	}
	p := models.Post{ID: uint(len(f.posts) + 1), Title: in.Title, Content: in.Content, Slug: "new-post", CreatedAt: testNow}
	f.posts = append([]models.Post{p}, f.posts...)
	return &p, nil
}

func (f *fakePosts) DeletePost(_ context.Context, actor *models.User, slug string) error {
	if !actor.IsAdmin() {
		return services.ErrForbidden
	}
	return nil
}

// fakeDiscussions holds a single discussion.
type fakeDiscussions struct {
	mu     sync.Mutex
	d      thread.Discussion
	nextID uint
}

func (f *fakeDiscussions) ListDiscussions(context.Context) ([]services.DiscussionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []services.DiscussionSummary{{
		ID: f.d.ID, Slug: f.d.Slug, Title: f.d.Title, AuthorName: f.d.AuthorName,
		Replies: int64(len(f.d.Replies)), Likes: int64(f.d.Likes.Len()), CreatedAt: f.d.CreatedAt,
	}}, nil
}

func (f *fakeDiscussions) CreateDiscussion(_ context.Context, actor *models.User, title, content string) (*models.Discussion, error) {
	if strings.TrimSpace(title) == "" {
		return nil, services.ErrEmptyContent
	}
	return &models.Discussion{ID: 99, Slug: "new-topic", Title: title, Content: content, AuthorID: actor.ID}, nil
}

func (f *fakeDiscussions) FindDiscussionBySlug(_ context.Context, slug string) (thread.Discussion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slug != f.d.Slug {
		return thread.Discussion{}, services.ErrNotFound
	}
	d := f.d
	d.Likes = f.d.Likes.Clone()
	d.Replies = make([]thread.Reply, len(f.d.Replies))
	for i, r := range f.d.Replies {
		r.Likes = r.Likes.Clone()
		d.Replies[i] = r
	}
	return d, nil
}

func (f *fakeDiscussions) DiscussionSlugForReply(_ context.Context, replyID uint) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index(replyID) < 0 {
		return "", services.ErrNotFound
	}
	return f.d.Slug, nil
}

func (f *fakeDiscussions) ForActor(actor *models.User) thread.Backend {
	return &fakeBackend{store: f, actor: actor}
}

func (f *fakeDiscussions) index(replyID uint) int {
	for i, r := range f.d.Replies {
		if r.ID == replyID {
			return i
		}
	}
	return -1
}

type fakeBackend struct {
	store *fakeDiscussions
	actor *models.User
}

func (b *fakeBackend) ToggleDiscussionLike(_ context.Context, _ uint) (thread.LikeSet, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.store.d.Likes.Toggle(b.actor.ID)
	return b.store.d.Likes.Clone(), nil
}

func (b *fakeBackend) ToggleReplyLike(_ context.Context, id uint) (thread.LikeSet, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	i := b.store.index(id)
	if i < 0 {
		return nil, services.ErrNotFound
	}
	b.store.d.Replies[i].Likes.Toggle(b.actor.ID)
	return b.store.d.Replies[i].Likes.Clone(), nil
}

func (b *fakeBackend) CreateReply(_ context.Context, _ uint, content string) (thread.Reply, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.store.nextID++
	r := thread.Reply{ID: b.store.nextID, AuthorID: b.actor.ID, AuthorName: b.actor.Username, Content: content, Likes: thread.NewLikeSet(), CreatedAt: testNow}
	b.store.d.Replies = append(b.store.d.Replies, r)
	return r, nil
}

func (b *fakeBackend) modifiable(id uint) (int, error) {
	i := b.store.index(id)
	if i < 0 {
		return -1, services.ErrNotFound
	}
	if b.store.d.Replies[i].AuthorID != b.actor.ID && !b.actor.IsAdmin() {
		return -1, services.ErrForbidden
	}
	return i, nil
}

func (b *fakeBackend) UpdateReply(_ context.Context, id uint, content string) (thread.Reply, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	i, err := b.modifiable(id)
	if err != nil {
		return thread.Reply{}, err
	}
	b.store.d.Replies[i].Content = content
	return b.store.d.Replies[i], nil
}

func (b *fakeBackend) DeleteReply(_ context.Context, id uint) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	i, err := b.modifiable(id)
	if err != nil {
		return err
	}
	b.store.d.Replies = append(b.store.d.Replies[:i], b.store.d.Replies[i+1:]...)
	return nil
}

type fakeShowcase struct{}

func (fakeShowcase) ServiceCards(_ context.Context, limit int) ([]models.ServiceCard, error) {
	cards := make([]models.ServiceCard, 8)
	for i := range cards {
		cards[i] = models.ServiceCard{ID: uint(i + 1), Title: fmt.Sprintf("Service %d", i+1), URL: "/services", Position: i}
	}
	if limit > 0 && limit < len(cards) {
		cards = cards[:limit]
	}
	return cards, nil
}

func (fakeShowcase) Winners(context.Context) ([]models.Winner, error) {
	return []models.Winner{{Name: "Ada", Image: "/winners/ada.png"}, {Name: "Linus", Image: "/winners/linus.png"}}, nil
}

func (fakeShowcase) Stats(context.Context) (services.Stats, error) {
	return services.Stats{Users: 3, Posts: 8, Discussions: 1, Replies: 2}, nil
}

const testPassword = "secret1"

type fakeAccounts struct {
	mu         sync.Mutex
	users      map[uint]*models.User
	otp        string
	loginCalls int
	resetCode  string
	resetFor   []string
}

func (f *fakeAccounts) byEmail(email string) *models.User {
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *fakeAccounts) UserByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, services.ErrNotFound
}

func (f *fakeAccounts) Login(_ context.Context, email, password string) (*authflow.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	u := f.byEmail(email)
	if u == nil || password != testPassword {
		return nil, services.ErrInvalidCredentials
	}
	if u.IsAdmin() {
		return &authflow.LoginResult{RequireOTP: true, TempUserID: u.ID}, nil
	}
	return &authflow.LoginResult{User: services.Principal(u)}, nil
}

func (f *fakeAccounts) VerifyOTP(_ context.Context, userID uint, otp string) (*authflow.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, services.ErrNotFound
	}
	if otp != f.otp {
		return nil, services.ErrInvalidOTP
	}
	p := services.Principal(u)
	return &p, nil
}

func (f *fakeAccounts) GoogleLogin(context.Context, string) (*authflow.Principal, error) {
	return nil, services.ErrGoogleToken
}

func (f *fakeAccounts) RequestPasswordReset(_ context.Context, email string) error {
	if errs := authflow.ValidateEmail(email); !errs.Empty() {
		return errs
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byEmail(email) != nil {
		f.resetFor = append(f.resetFor, email)
	}
	return nil
}

func (f *fakeAccounts) ResetPassword(_ context.Context, email, code, password string) error {
	if errs := authflow.ValidateCredentials(email, password); !errs.Empty() {
		return errs
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.resetFor, email) || code != f.resetCode {
		return services.ErrInvalidReset
	}
	f.resetFor = slices.DeleteFunc(f.resetFor, func(e string) bool { return e == email })
	return nil
}

func (f *fakeAccounts) Register(_ context.Context, username, email, _ string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byEmail(email) != nil {
		return nil, services.ErrEmailTaken
	}
	u := &models.User{ID: uint(len(f.users) + 1), Username: username, Email: email, Role: models.RoleUser}
	f.users[u.ID] = u
	return u, nil
}

type testEnv struct {
	engine      *gin.Engine
	accounts    *fakeAccounts
	discussions *fakeDiscussions
	posts       *fakePosts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	posts := make([]models.Post, 8)
	for i := range posts {
		// newest first, one day apart
		posts[i] = models.Post{
			ID:        uint(8 - i),
			Title:     fmt.Sprintf("Post %d", 8-i),
			Content:   "<p>Body</p>",
			Category:  "News",
			Image:     "/uploads/cover.png",
			Slug:      fmt.Sprintf("post-%d", 8-i),
			CreatedAt: testNow.Add(-time.Duration(i) * 24 * time.Hour),
			UpdatedAt: testNow,
		}
	}

	env := &testEnv{
		posts: &fakePosts{posts: posts},
		accounts: &fakeAccounts{
			otp:       "123456",
			resetCode: "654321",
			users: map[uint]*models.User{
				1: {ID: 1, Username: "alice", Email: "alice@example.com", Role: models.RoleUser},
				2: {ID: 2, Username: "bob", Email: "bob@example.com", Role: models.RoleUser},
				3: {ID: 3, Username: "root", Email: "admin@example.com", Role: models.RoleAdmin},
			},
		},
		discussions: &fakeDiscussions{
			nextID: 10,
			d: thread.Discussion{
				ID: 1, Slug: "welcome", Title: "Welcome thread", Content: "Say **hi**",
				AuthorID: 1, AuthorName: "alice", Likes: thread.NewLikeSet(), CreatedAt: testNow,
				Replies: []thread.Reply{
					{ID: 1, AuthorID: 1, AuthorName: "alice", Content: "First reply", Likes: thread.NewLikeSet(), CreatedAt: testNow},
					{ID: 2, AuthorID: 2, AuthorName: "bob", Content: "Second reply", Likes: thread.NewLikeSet(2), CreatedAt: testNow},
				},
			},
		},
	}

	engine, err := New(Deps{
		Config: &config.Config{
			SessionName:   "test_session",
			SessionSecret: "test-secret",
			SiteURL:       "https://ehub.example",
			AssetBaseURL:  "https://cdn.example",
			CORSOrigins:   []string{"https://app.example"},
			BlogPageSize:  6,
			CarouselTick:  5 * time.Millisecond,
			TemplateDir:   "../../web/templates",
		},
		Posts:       env.posts,
		Discussions: env.discussions,
		Showcase:    fakeShowcase{},
		Accounts:    env.accounts,
		Users:       env.accounts,
		Limiter:     middleware.NewRateLimiter(1000, time.Minute),
		Now:         func() time.Time { return testNow },
	})
	require.NoError(t, err)
	env.engine = engine
	return env
}

// client keeps the session cookie between requests.
type client struct {
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (e *testEnv) client() *client {
	return &client{env: e, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.env.engine.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, path, "", "")
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, path, "application/x-www-form-urlencoded", form.Encode())
}

func (c *client) postJSON(path string, v any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(v)
	return c.do(http.MethodPost, path, "application/json", string(b))
}

func (c *client) login(t *testing.T, email string) {
	t.Helper()
	w := c.postJSON("/api/auth/login", gin.H{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHomeShowsSixCards(t *testing.T) {
	env := newTestEnv(t)
	w := env.client().get("/")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Service 6")
	assert.NotContains(t, body, "Service 7")
	assert.Contains(t, body, "https://cdn.example/winners/ada.png")

	w = env.client().get("/services")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Service 8")
}

func TestBlogPagination(t *testing.T) {
	env := newTestEnv(t)

	w := env.client().get("/blog?page=2")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Post 2")
	assert.Contains(t, body, "Post 1")
	assert.NotContains(t, body, ">Post 8<")

	w = env.client().get("/blog?q=post+8")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ">Post 8<")
	assert.NotContains(t, w.Body.String(), ">Post 7<")
}

func TestPostDetail(t *testing.T) {
	env := newTestEnv(t)

	w := env.client().get("/post/post-3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Post 3")

	w = env.client().get("/post/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIGetPostsUsesAssetBase(t *testing.T) {
	env := newTestEnv(t)

	w := env.client().get("/api/getPosts")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Posts []struct {
			Title string `json:"title"`
			Image string `json:"image"`
		} `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Posts, 8)
	assert.Equal(t, "https://cdn.example/uploads/cover.png", body.Posts[0].Image)

	w = env.client().get("/api/getPosts?page=2")
	got := decode(t, w)
	assert.EqualValues(t, 2, got["page"])
	assert.EqualValues(t, 2, got["pageCount"])
	assert.Len(t, got["posts"], 2)
}

func TestHugePageNumberIsEmptyPage(t *testing.T) {
	env := newTestEnv(t)

	w := env.client().get("/api/getPosts?page=9223372036854775807")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Empty(t, got["posts"])
	assert.EqualValues(t, 2, got["pageCount"])

	w = env.client().get("/blog?page=9223372036854775807")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), ">Post 8<")
}

func TestAPILoginRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	w := env.client().postJSON("/api/auth/login", gin.H{"email": "not-an-email", "password": testPassword})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "Invalid email address", body["message"])

	w = env.client().postJSON("/api/auth/login", gin.H{"email": "alice@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must be at least 6 characters", decode(t, w)["message"])

	assert.Zero(t, env.accounts.loginCalls)
}

func TestAPILoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	w := env.client().postJSON("/api/auth/login", gin.H{"email": "alice@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode(t, w)["message"])
}

func TestAPIAdminOTPFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	w := c.postJSON("/api/auth/login", gin.H{"email": "admin@example.com", "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["requireOTP"])
	assert.EqualValues(t, 3, body["userId"])

	w = c.postJSON("/api/auth/verify-otp", gin.H{"userId": 3, "otp": "000000"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.postJSON("/api/auth/verify-otp", gin.H{"userId": 3, "otp": "123456"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/admin/dashboard", decode(t, w)["redirect"])

	w = c.get("/admin/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTMLAdminOTPFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	w := c.postForm("/login", url.Values{"email": {"admin@example.com"}, "password": {testPassword}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = c.get("/login")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/login/otp"`)
	assert.Contains(t, w.Body.String(), "OTP sent to your email. Please verify.")

	w = c.postForm("/login/otp", url.Values{"otp": {"12"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "OTP must be 6 characters long")

	w = c.postForm("/login/otp", url.Values{"otp": {"123456"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
}

func TestHTMLLoginRegularUser(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	w := c.postForm("/login", url.Values{"email": {"alice@example.com"}, "password": {testPassword}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = c.get("/admin/dashboard")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = c.get("/logout")
	assert.Equal(t, http.StatusFound, w.Code)
	w = c.get("/admin/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

var captchaQuestion = regexp.MustCompile(`<label for="captcha">(\d+) (\+|&#43;|-) (\d+)</label>`)

// solveCaptcha answers the arithmetic question rendered on the page.
func solveCaptcha(t *testing.T, body string) string {
	t.Helper()
	m := captchaQuestion.FindStringSubmatch(body)
	require.Len(t, m, 4, "captcha question not found")
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[3])
	if m[2] == "-" {
		return strconv.Itoa(a - b)
	}
	return strconv.Itoa(a + b)
}

func TestHTMLPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	w := c.get("/login")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/forgot-password"`)

	w = c.get("/forgot-password")
	require.Equal(t, http.StatusOK, w.Code)
	w = c.postForm("/forgot-password", url.Values{"email": {"alice@example.com"}, "captcha": {"-100"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Incorrect answer to the captcha")
	assert.Empty(t, env.accounts.resetFor)

	answer := solveCaptcha(t, w.Body.String())
	w = c.postForm("/forgot-password", url.Values{"email": {"alice@example.com"}, "captcha": {answer}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/reset-password?email=alice%40example.com", w.Header().Get("Location"))
	assert.Equal(t, []string{"alice@example.com"}, env.accounts.resetFor)

	w = c.get("/reset-password?email=alice%40example.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a reset code is on its way")
	assert.Contains(t, w.Body.String(), `value="alice@example.com"`)

	form := url.Values{"email": {"alice@example.com"}, "code": {"000000"}, "password": {"newpass1"}}
	w = c.postForm("/reset-password", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or has expired")

	form.Set("code", "654321")
	w = c.postForm("/reset-password", form)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Empty(t, env.accounts.resetFor, "codes are single use")
}

func TestHTMLForgotPasswordUnknownEmailLooksTheSame(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	w := c.get("/forgot-password")
	require.Equal(t, http.StatusOK, w.Code)
	w = c.postForm("/forgot-password", url.Values{"email": {"nobody@example.com"}, "captcha": {solveCaptcha(t, w.Body.String())}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/reset-password?email=nobody%40example.com", w.Header().Get("Location"))
	assert.Empty(t, env.accounts.resetFor)
}

func TestAPIPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	w := c.postJSON("/api/auth/forgot-password", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid email address", decode(t, w)["message"])

	w = c.postJSON("/api/auth/forgot-password", gin.H{"email": "bob@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = c.postJSON("/api/auth/reset-password", gin.H{"email": "bob@example.com", "code": "654321", "password": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must be at least 6 characters", decode(t, w)["message"])

	w = c.postJSON("/api/auth/reset-password", gin.H{"email": "bob@example.com", "code": "111111", "password": "newpass1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "The reset code is invalid or has expired. Please request a new one.", decode(t, w)["message"])

	w = c.postJSON("/api/auth/reset-password", gin.H{"email": "bob@example.com", "code": "654321", "password": "newpass1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])
}

func TestOTPWithoutPendingLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.client().postForm("/login/otp", url.Values{"otp": {"123456"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "User ID not found. Please try logging in again.")
}

func TestReplyEditByNonAuthorIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	c.login(t, "bob@example.com")

	w := c.do(http.MethodPut, "/api/replies/1", "application/json", `{"content":"hijacked"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, true, decode(t, w)["error"])

	w = c.do(http.MethodDelete, "/api/replies/1", "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, "First reply", env.discussions.d.Replies[0].Content)
}

func TestReplyEditByAuthor(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	c.login(t, "bob@example.com")

	w := c.do(http.MethodPut, "/api/replies/2", "application/json", `{"content":"Edited"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Edited", decode(t, w)["content"])

	w = c.do(http.MethodDelete, "/api/replies/2", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.discussions.d.Replies, 1)
}

func TestAdminMayEditAnyReply(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	c.postJSON("/api/auth/login", gin.H{"email": "admin@example.com", "password": testPassword})
	require.Equal(t, http.StatusOK, c.postJSON("/api/auth/verify-otp", gin.H{"otp": "123456"}).Code)

	w := c.do(http.MethodPut, "/api/replies/1", "application/json", `{"content":"Moderated"}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAPIMutationsRequireLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.client().postJSON("/api/discussions/welcome/like", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, true, decode(t, w)["error"])
}

func TestAPILikeToggles(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	c.login(t, "alice@example.com")

	w := c.postJSON("/api/discussions/welcome/like", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["liked"])

	w = c.postJSON("/api/discussions/welcome/like", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["liked"])

	w = c.postJSON("/api/replies/2/like", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []any{float64(1), float64(2)}, decode(t, w)["likes"])
}

func TestAPIReplyRejectsEmpty(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	c.login(t, "alice@example.com")

	w := c.postJSON("/api/discussions/welcome/replies", gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.postJSON("/api/discussions/welcome/replies", gin.H{"content": "Hello"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Hello", decode(t, w)["content"])
}

func TestThreadPageModes(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	c.login(t, "bob@example.com")

	w := c.get("/discussions/welcome?edit=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/discussions/welcome/replies/2/edit"`)

	// not bob's reply, so no editor
	w = c.get("/discussions/welcome?edit=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `action="/discussions/welcome/replies/1/edit"`)

	w = c.get("/discussions/welcome?delete=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Are you sure you want to delete this reply?")
}

func TestHTMLReplyFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	c.login(t, "alice@example.com")

	w := c.postForm("/discussions/welcome/replies", url.Values{"content": {"A fresh reply"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/discussions/welcome#reply-11", w.Header().Get("Location"))

	w = c.get("/discussions/welcome")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "A fresh reply")

	w = c.postForm("/discussions/welcome/replies", url.Values{"content": {""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Reply cannot be empty")

	w = c.postForm("/discussions/welcome/replies/2/delete", nil)
	require.Equal(t, http.StatusFound, w.Code)
	w = c.get("/discussions/welcome")
	assert.Contains(t, w.Body.String(), "Second reply")
}

func TestSEORoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.client().get("/robots.txt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sitemap: https://ehub.example/sitemap.xml")

	w = env.client().get("/sitemap.xml")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<loc>https://ehub.example/post/post-8</loc>")
	assert.Contains(t, w.Body.String(), "<loc>https://ehub.example/discussions/welcome</loc>")

	w = env.client().get("/feed.xml")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/rss+xml")
	feed := w.Body.String()
	assert.Contains(t, feed, `<rss version="2.0"`)
	assert.Contains(t, feed, "<title>Post 8</title>")
	assert.Contains(t, feed, "<link>https://ehub.example/post/post-8</link>")
	assert.Contains(t, feed, "<category>News</category>")
	assert.Contains(t, feed, "<language>en</language>")
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.client().get("/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, true, decode(t, w)["error"])

	w = env.client().get("/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")
}

func TestCORSPreflightOnAPI(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWinnersWebsocket(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.engine)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/winners?content=500&viewport=100"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first struct {
		Type string          `json:"type"`
		Data []models.Winner `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "winners", first.Type)
	assert.Len(t, first.Data, 2)

	var tick struct {
		Type string `json:"type"`
		Data struct {
			Offset float64 `json:"offset"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&tick))
	assert.Equal(t, "offset", tick.Type)
	assert.Equal(t, 1.0, tick.Data.Offset)
}
