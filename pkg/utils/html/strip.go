// ABOUTME: HTML utilities for stripping markup from feed text
// ABOUTME: Uses a bluemonday strict policy so script/style bodies never leak into article text

package html

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy drops every element; configured once, then only read
var strictPolicy = bluemonday.StrictPolicy()

// blockTags are replaced by a space before sanitizing so adjacent blocks don't glue words together
var blockTags = strings.NewReplacer(
	"</p>", "</p> ",
	"<br>", "<br> ",
	"<br/>", "<br/> ",
	"<br />", "<br /> ",
	"</div>", "</div> ",
	"</li>", "</li> ",
	"</h1>", "</h1> ",
	"</h2>", "</h2> ",
	"</h3>", "</h3> ",
	"</td>", "</td> ",
)

// StripHTML removes all markup, decodes entities and collapses whitespace
func StripHTML(input string) string {
	if input == "" {
		return ""
	}

	text := strictPolicy.Sanitize(blockTags.Replace(input))

	return CollapseWhitespace(DecodeEntities(text))
}

// DecodeEntities decodes named and numeric HTML entities
func DecodeEntities(text string) string {
	// Feeds frequently double-escape ("&amp;amp;"), so unescape until stable
	for i := 0; i < 3; i++ {
		decoded := html.UnescapeString(text)
		if decoded == text {
			break
		}
		text = decoded
	}
	return strings.ReplaceAll(text, "\u00a0", " ")
}

// CollapseWhitespace trims and reduces every whitespace run to a single space
func CollapseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
