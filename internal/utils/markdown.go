package utils

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy = newPolicy()
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowImages()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// RenderMarkdown renders user-written discussion text.
func RenderMarkdown(source, assetBase string) template.HTML {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}

	sanitized := policy.SanitizeBytes(buf.Bytes())

	return EnhanceHTMLContent(string(sanitized), assetBase)
}

// SanitizeHTML cleans stored post bodies, which are already HTML.
func SanitizeHTML(source, assetBase string) template.HTML {
	return EnhanceHTMLContent(policy.Sanitize(source), assetBase)
}
