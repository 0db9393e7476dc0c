package utils

import (
	"html"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

const ExcerptLength = 120

var stripPolicy = bluemonday.StrictPolicy()

// AssetURL joins a relative asset path onto the asset host. Absolute
// URLs and data URIs are returned unchanged.
func AssetURL(base, path string) string {
	if path == "" || isAbsolute(path) || base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "//") ||
		strings.HasPrefix(path, "data:")
}

// StripHTML removes every tag and decodes entities.
func StripHTML(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(stripPolicy.Sanitize(s))), " ")
}

// Excerpt is the plain-text preview shown on blog cards.
func Excerpt(s string) string {
	text := StripHTML(s)
	if utf8.RuneCountInString(text) <= ExcerptLength {
		return text
	}
	return string([]rune(text)[:ExcerptLength]) + "..."
}

// EnhanceHTMLContent points images at the asset base, lazy-loads them and
// turns bare YouTube links into embedded players.
func EnhanceHTMLContent(htmlStr, assetBase string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			s.SetAttr("src", AssetURL(assetBase, src))
		}
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
		s.SetAttr("onerror", "this.onerror=null; this.src='/static/img/imgerr.svg'")
	})

	// a YouTube link alone in a paragraph becomes a player
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if !strings.HasPrefix(text, "http") || strings.Contains(text, " ") {
			return
		}

		var videoID string
		if strings.Contains(text, "youtube.com/watch?v=") {
			parts := strings.Split(text, "v=")
			videoID = strings.Split(parts[1], "&")[0]
		} else if strings.Contains(text, "youtu.be/") {
			parts := strings.Split(text, "youtu.be/")
			videoID = strings.Split(parts[1], "?")[0]
		}
		if videoID != "" {
			s.ReplaceWithHtml(`<div class="video-container"><iframe src="https://www.youtube.com/embed/` +
				template.HTMLEscapeString(videoID) +
				`" frameborder="0" allowfullscreen allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"></iframe></div>`)
		}
	})

	// goquery renders full document tags if missing, we just want the body content
	out, _ := doc.Find("body").Html()
	if out == "" {
		out, _ = doc.Html()
	}

	return template.HTML(out)
}
