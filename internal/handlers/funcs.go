package handlers

import (
	"fmt"
	"html/template"
	"time"

	"ehub/internal/utils"
)

// TemplateFuncs are the helpers available to every page template.
func TemplateFuncs(assetBase string) template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"timeAgo": func(t time.Time) string {
			return timeAgo(t, time.Now())
		},
		"date": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"asset": func(path string) string {
			return utils.AssetURL(assetBase, path)
		},
		"markdown": func(s string) template.HTML {
			return utils.RenderMarkdown(s, assetBase)
		},
		"postHTML": func(s string) template.HTML {
			return utils.SanitizeHTML(s, assetBase)
		},
		"excerpt": utils.Excerpt,
	}
}

func timeAgo(t, now time.Time) string {
	seconds := int(now.Sub(t).Seconds())

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", unit)
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 2592000:
		return plural(seconds/86400, "day")
	case seconds < 31536000:
		return plural(seconds/2592000, "month")
	}
	return plural(seconds/31536000, "year")
}
