// ABOUTME: Picks one representative image per feed item
// ABOUTME: Tries media fields, then image enclosures, then the first inline img

package normalizer

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".avif": {}, ".bmp": {},
}

// pickImage returns at most one representative image for item, in fallback order:
// media/thumbnail fields, then the first image enclosure, then the first inline image.
func pickImage(item *gofeed.Item, base *url.URL) string {
	for _, candidate := range mediaImages(item) {
		if u := absoluteImage(candidate, base); u != "" {
			return u
		}
	}

	for _, enc := range item.Enclosures {
		if enc == nil || !isImage(enc.Type, enc.URL) {
			continue
		}
		if u := absoluteImage(enc.URL, base); u != "" {
			return u
		}
	}

	for _, markup := range []string{item.Content, item.Description} {
		if u := absoluteImage(firstInlineImage(markup), base); u != "" {
			return u
		}
	}
	return ""
}

// mediaImages lists explicit thumbnail-like fields in priority order
func mediaImages(item *gofeed.Item) []string {
	var out []string
	if media, ok := item.Extensions["media"]; ok {
		out = append(out, mediaFromMap(media)...)
		for _, group := range media["group"] {
			out = append(out, mediaFromMap(group.Children)...)
		}
	}
	if item.ITunesExt != nil && item.ITunesExt.Image != "" {
		out = append(out, item.ITunesExt.Image)
	}
	return out
}

func mediaFromMap(m map[string][]ext.Extension) []string {
	var out []string
	for _, thumb := range m["thumbnail"] {
		if u := thumb.Attrs["url"]; u != "" {
			out = append(out, u)
		}
	}
	for _, content := range m["content"] {
		u := content.Attrs["url"]
		if u == "" {
			continue
		}
		if content.Attrs["medium"] == "image" || isImage(content.Attrs["type"], u) {
			out = append(out, u)
		}
		for _, thumb := range content.Children["thumbnail"] {
			if tu := thumb.Attrs["url"]; tu != "" {
				out = append(out, tu)
			}
		}
	}
	return out
}

func isImage(mimeType, rawURL string) bool {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return true
	}
	if mimeType != "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(u.Path))]
	return ok
}

func firstInlineImage(markup string) string {
	if !strings.Contains(markup, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}

func absoluteImage(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		if base == nil {
			return ""
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
