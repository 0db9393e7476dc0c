package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"ehub/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
)

const feedSize = 20

type SEOHandler struct {
	siteURL     string
	posts       PostStore
	discussions DiscussionStore
	now         func() time.Time
}

func NewSEOHandler(siteURL string, posts PostStore, discussions DiscussionStore) *SEOHandler {
	return &SEOHandler{siteURL: siteURL, posts: posts, discussions: discussions, now: time.Now}
}

func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /admin/
Disallow: /api/
Disallow: /ws/
Disallow: /login
Disallow: /signup
Disallow: /forgot-password
Disallow: /reset-password

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// SitemapXML lists the landing pages, every post and every discussion.
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	ctx := c.Request.Context()
	today := h.now().Format("2006-01-02")

	set := urlset{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range []struct{ path, freq, prio string }{
		{"/", "daily", "1.0"},
		{"/blog", "daily", "0.9"},
		{"/discussions", "hourly", "0.9"},
		{"/services", "weekly", "0.7"},
	} {
		set.URLs = append(set.URLs, sitemapURL{Loc: h.siteURL + p.path, LastMod: today, ChangeFreq: p.freq, Priority: p.prio})
	}

	posts, err := h.posts.ListPosts(ctx)
	if err != nil {
		c.String(statusFor(err), messageFor(c, err, "Failed to build sitemap"))
		return
	}
	for _, post := range posts {
		freq, prio := "weekly", "0.6"
		if h.now().Sub(post.CreatedAt) < 7*24*time.Hour {
			freq, prio = "daily", "0.8"
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.siteURL + "/post/" + post.Slug,
			LastMod:    post.UpdatedAt.Format("2006-01-02"),
			ChangeFreq: freq,
			Priority:   prio,
		})
	}

	discussions, err := h.discussions.ListDiscussions(ctx)
	if err != nil {
		c.String(statusFor(err), messageFor(c, err, "Failed to build sitemap"))
		return
	}
	for _, d := range discussions {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.siteURL + threadPath(d.Slug),
			LastMod:    d.CreatedAt.Format("2006-01-02"),
			ChangeFreq: "daily",
			Priority:   "0.6",
		})
	}

	h.writeXML(c, "application/xml; charset=utf-8", set)
}

// RSSFeed serves the latest posts as RSS 2.0.
func (h *SEOHandler) RSSFeed(c *gin.Context) {
	posts, err := h.posts.ListPosts(c.Request.Context())
	if err != nil {
		c.String(statusFor(err), messageFor(c, err, "Failed to build feed"))
		return
	}
	if len(posts) > feedSize {
		posts = posts[:feedSize]
	}

	feed := &feeds.Feed{
		Title:       "ehub blog",
		Link:        &feeds.Link{Href: h.siteURL + "/blog"},
		Description: "News and stories from the hub",
		Updated:     h.now(),
	}
	for _, post := range posts {
		link := h.siteURL + "/post/" + post.Slug
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       post.Title,
			Link:        &feeds.Link{Href: link},
			Description: utils.Excerpt(post.Content),
			Id:          link,
			Created:     post.CreatedAt,
		})
	}

	rss := (&feeds.Rss{Feed: feed}).RssFeed()
	rss.Language = "en"
	for i, item := range rss.Items {
		item.Category = posts[i].Category
	}

	out, err := feeds.ToXML(rss)
	if err != nil {
		c.String(http.StatusInternalServerError, messageFor(c, err, "Failed to encode feed"))
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(out))
}

func (h *SEOHandler) writeXML(c *gin.Context, contentType string, v any) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		c.String(http.StatusInternalServerError, messageFor(c, err, "Failed to encode xml"))
		return
	}
	c.Data(http.StatusOK, contentType, append([]byte(xml.Header), out...))
}
