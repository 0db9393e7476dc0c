package router

import (
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ehub/internal/config"
	"ehub/internal/handlers"
	"ehub/internal/middleware"
	"ehub/internal/services"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// Views are the page templates under views/, keyed by the name handlers render.
var Views = []string{
	"home.html",
	"services.html",
	"error.html",
	"blog/list.html",
	"blog/detail.html",
	"discussion/list.html",
	"discussion/detail.html",
	"auth/login.html",
	"auth/register.html",
	"auth/forgot_password.html",
	"auth/reset_password.html",
	"admin/dashboard.html",
}

// Deps is everything the routes need.
type Deps struct {
	Config      *config.Config
	Posts       handlers.PostStore
	Discussions handlers.DiscussionStore
	Showcase    handlers.Showcase
	Accounts    handlers.Accounts
	Users       middleware.UserLoader
	Captcha     *services.CaptchaService
	Limiter     *middleware.RateLimiter
	Now         func() time.Time
}

// LoadTemplates pairs every view with the shared layouts, includes and
// components so each page is parsed on its own.
func LoadTemplates(templatesDir string, funcMap template.FuncMap) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	var shared []string
	for _, dir := range []string{"layouts", "includes", "components"} {
		files, err := filepath.Glob(filepath.Join(templatesDir, dir, "*.html"))
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s templates: %w", dir, err)
		}
		shared = append(shared, files...)
	}
	if len(shared) == 0 {
		return nil, fmt.Errorf("no layout templates found in %s", templatesDir)
	}

	for _, view := range Views {
		path := filepath.Join(templatesDir, "views", filepath.FromSlash(view))
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to find view %s: %w", view, err)
		}
		files := append(append([]string{}, shared...), path)
		r.AddFromFilesFuncs(view, funcMap, files...)
	}
	return r, nil
}

// New builds the engine with every route registered.
func New(d Deps) (*gin.Engine, error) {
	cfg := d.Config
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Limiter == nil {
		d.Limiter = middleware.NewRateLimiter(10, time.Minute)
	}
	if d.Captcha == nil {
		d.Captcha = services.NewCaptchaService()
	}

	r := gin.New()

	renderer, err := LoadTemplates(cfg.TemplateDir, handlers.TemplateFuncs(cfg.AssetBaseURL))
	if err != nil {
		return nil, err
	}
	r.HTMLRender = renderer

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	r.Use(
		middleware.RequestLogger(),
		gin.Recovery(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws/"})),
		sessions.Sessions(cfg.SessionName, store),
		middleware.LoadUser(d.Users),
	)

	if cfg.StaticDir != "" {
		r.Static("/static", cfg.StaticDir)
	}

	homeHandler := handlers.NewHomeHandler(d.Showcase)
	blogHandler := handlers.NewBlogHandler(d.Posts, cfg.BlogPageSize, cfg.AssetBaseURL, d.Now)
	discussionHandler := handlers.NewDiscussionHandler(d.Discussions)
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Captcha, handlers.NewGoogleOAuthConfig(cfg.Google))
	adminHandler := handlers.NewAdminHandler(d.Posts, d.Showcase)
	carouselHandler := handlers.NewCarouselHandler(d.Showcase, cfg.CarouselTick, cfg.CORSOrigins)
	seoHandler := handlers.NewSEOHandler(cfg.SiteURL, d.Posts, d.Discussions)

	limited := d.Limiter.Middleware()

	// Public routes
	r.GET("/", homeHandler.Home)
	r.GET("/services", homeHandler.ListServices)
	r.GET("/blog", blogHandler.List)
	r.GET("/post/:slug", blogHandler.Detail)
	r.GET("/discussions", discussionHandler.List)
	r.GET("/discussions/:slug", discussionHandler.Show)
	r.GET("/ws/winners", carouselHandler.Stream)

	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)
	r.GET("/feed.xml", seoHandler.RSSFeed)

	r.GET("/signup", authHandler.ShowRegister)
	r.POST("/signup", limited, authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", limited, authHandler.Login)
	r.POST("/login/otp", limited, authHandler.VerifyOTP)
	r.GET("/logout", authHandler.Logout)
	r.GET("/forgot-password", authHandler.ShowForgotPassword)
	r.POST("/forgot-password", limited, authHandler.ForgotPassword)
	r.GET("/reset-password", authHandler.ShowResetPassword)
	r.POST("/reset-password", limited, authHandler.ResetPassword)
	r.GET("/auth/google", authHandler.GoogleLogin)
	r.GET("/auth/google/callback", authHandler.GoogleCallback)

	// Signed-in routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/discussions", discussionHandler.Create)
		authorized.POST("/discussions/:slug/like", discussionHandler.Like)
		authorized.POST("/discussions/:slug/replies", discussionHandler.Reply)
		authorized.POST("/discussions/:slug/replies/:id/like", discussionHandler.LikeReply)
		authorized.POST("/discussions/:slug/replies/:id/edit", discussionHandler.EditReply)
		authorized.POST("/discussions/:slug/replies/:id/delete", discussionHandler.DeleteReply)
	}

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/dashboard", adminHandler.Dashboard)
		admin.POST("/posts", adminHandler.CreatePost)
		admin.POST("/posts/:slug/delete", adminHandler.DeletePost)
	}

	// JSON API for the single page app
	api := r.Group("/api")
	api.Use(middleware.CORS(cfg.CORSOrigins))
	{
		// preflight requests are answered by the CORS middleware
		api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		api.GET("/getPosts", blogHandler.APIList)
		api.GET("/discussions", discussionHandler.APIList)
		api.GET("/discussions/:slug", discussionHandler.APIShow)

		auth := api.Group("/auth")
		{
			auth.POST("/login", limited, authHandler.APILogin)
			auth.POST("/verify-otp", limited, authHandler.APIVerifyOTP)
			auth.POST("/google", limited, authHandler.APIGoogleLogin)
			auth.POST("/forgot-password", limited, authHandler.APIForgotPassword)
			auth.POST("/reset-password", limited, authHandler.APIResetPassword)
			auth.POST("/logout", authHandler.APILogout)
		}

		member := api.Group("/")
		member.Use(middleware.AuthRequired())
		{
			member.POST("/discussions", discussionHandler.APICreate)
			member.POST("/discussions/:slug/like", discussionHandler.APILike)
			member.POST("/discussions/:slug/replies", discussionHandler.APIReply)
			member.PUT("/replies/:id", discussionHandler.APIUpdateReply)
			member.DELETE("/replies/:id", discussionHandler.APIDeleteReply)
			member.POST("/replies/:id/like", discussionHandler.APILikeReply)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		if middleware.WantsJSON(c) {
			c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Not found"})
			return
		}
		handlers.RenderError(c, http.StatusNotFound, "Page not found")
	})

	return r, nil
}
