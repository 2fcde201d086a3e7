// ABOUTME: Recovers items from feed documents the parser rejects
// ABOUTME: Each item or entry element is parsed on its own

package normalizer

import (
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

var (
	rssItemPattern    = regexp.MustCompile(`(?is)<item[\s>].*?</item>`)
	atomEntryPattern  = regexp.MustCompile(`(?is)<entry[\s>].*?</entry>`)
	headerLanguage    = regexp.MustCompile(`(?is)<(?:dc:)?language>\s*([^<\s]+)\s*</(?:dc:)?language>`)
	headerLink        = regexp.MustCompile(`(?is)<link>\s*([^<\s]+)\s*</link>`)
	headerAtomLink    = regexp.MustCompile(`(?is)<link\s[^>]*href=["']([^"']+)["']`)
	headerAtomXMLLang = regexp.MustCompile(`(?is)<feed\s[^>]*xml:lang=["']([^"']+)["']`)
)

const rssEnvelopeOpen = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"><channel>`

const rssEnvelopeClose = `</channel></rss>`

const atomEnvelopeOpen = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:media="http://search.yahoo.com/mrss/" xmlns:dc="http://purl.org/dc/elements/1.1/">`

const atomEnvelopeClose = `</feed>`

// salvaged is what could be recovered from a document the parser rejected
type salvaged struct {
	feed    *gofeed.Feed
	found   int
	skipped int
}

// salvage re-parses each complete item or entry element of a broken document on its own,
// so one damaged element cannot take down its siblings
func salvage(raw string) salvaged {
	pattern, head, tail := rssItemPattern, rssEnvelopeOpen, rssEnvelopeClose
	locs := pattern.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		pattern, head, tail = atomEntryPattern, atomEnvelopeOpen, atomEnvelopeClose
		locs = pattern.FindAllStringIndex(raw, -1)
	}

	out := salvaged{feed: &gofeed.Feed{}, found: len(locs)}
	if len(locs) == 0 {
		return out
	}

	header := raw[:locs[0][0]]
	out.feed.Language = firstGroup(headerLanguage, header)
	if out.feed.Language == "" {
		out.feed.Language = firstGroup(headerAtomXMLLang, header)
	}
	out.feed.Link = firstGroup(headerLink, header)
	if out.feed.Link == "" {
		out.feed.Link = firstGroup(headerAtomLink, header)
	}

	for _, loc := range locs {
		var b strings.Builder
		b.WriteString(head)
		b.WriteString(raw[loc[0]:loc[1]])
		b.WriteString(tail)

		parsed, err := gofeed.NewParser().ParseString(b.String())
		if err != nil || len(parsed.Items) == 0 {
			out.skipped++
			continue
		}
		out.feed.Items = append(out.feed.Items, parsed.Items...)
	}
	return out
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
