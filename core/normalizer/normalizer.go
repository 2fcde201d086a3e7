// ABOUTME: Normalizer turns raw RSS, Atom and RDF documents into canonical Article records
// ABOUTME: Bad entries are skipped and counted; only an unreadable document is an error

package normalizer

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/pkg/metrics"
	htmlutil "digests-pipeline/pkg/utils/html"
	"digests-pipeline/pkg/utils/text"
	timeutil "digests-pipeline/pkg/utils/time"
)

// DefaultClockSkew is how far past fetch time a publish date may be before it is distrusted
const DefaultClockSkew = 15 * time.Minute

// Result is the outcome of normalizing one document
type Result struct {
	Articles []domain.Article

	// Skipped counts malformed entries that were dropped
	Skipped int

	// Duplicates counts entries whose canonical URL repeated an earlier entry
	Duplicates int

	// Salvaged is set when the document failed to parse whole and entries were recovered one by one
	Salvaged bool
}

// Normalizer parses feed documents. It is safe for concurrent use; a parser is created per call.
type Normalizer struct {
	logger  interfaces.Logger
	metrics *metrics.Manager
	now     func() time.Time
	skew    time.Duration
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithLogger sets the logger
func WithLogger(logger interfaces.Logger) Option {
	return func(n *Normalizer) { n.logger = logger }
}

// WithMetrics counts skipped entries
func WithMetrics(mm *metrics.Manager) Option {
	return func(n *Normalizer) { n.metrics = mm }
}

// WithClock overrides the fetch-time fallback clock
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithClockSkew sets the tolerance for future-dated entries
func WithClockSkew(skew time.Duration) Option {
	return func(n *Normalizer) { n.skew = skew }
}

// New creates a Normalizer
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		logger: interfaces.NopLogger{},
		now:    time.Now,
		skew:   DefaultClockSkew,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize parses raw for sourceID, fetched now
func (n *Normalizer) Normalize(sourceID string, raw []byte) ([]domain.Article, error) {
	res, err := n.NormalizeSource(domain.Source{ID: sourceID}, raw, n.now())
	if err != nil {
		return nil, err
	}
	return res.Articles, nil
}

// NormalizeSource parses raw for src. Articles inherit the source's category; the
// feed-declared language wins over the source's configured one.
func (n *Normalizer) NormalizeSource(src domain.Source, raw []byte, fetchedAt time.Time) (*Result, error) {
	res := &Result{}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		rescue := salvage(string(raw))
		if len(rescue.feed.Items) == 0 {
			return nil, &errors.ParseError{SourceID: src.ID, Err: err}
		}
		n.logger.Warn("Recovered entries from malformed feed", map[string]interface{}{
			"source_id": src.ID,
			"recovered": len(rescue.feed.Items),
			"skipped":   rescue.skipped,
			"error":     err.Error(),
		})
		feed = rescue.feed
		res.Skipped += rescue.skipped
		res.Salvaged = true
	}

	n.convert(src, feed, fetchedAt.UTC(), res)

	if res.Skipped > 0 {
		n.metrics.EntriesSkipped(res.Skipped)
		n.logger.Debug("Skipped malformed entries", map[string]interface{}{
			"source_id": src.ID,
			"skipped":   res.Skipped,
		})
	}
	return res, nil
}

func (n *Normalizer) convert(src domain.Source, feed *gofeed.Feed, fetchedAt time.Time, res *Result) {
	base := baseURL(feed.Link, src.FeedURL)

	lang := text.NormalizeLanguage(feed.Language)
	if lang == "" {
		lang = text.NormalizeLanguage(src.Language)
	}

	seen := make(map[string]struct{}, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			res.Skipped++
			continue
		}
		article, ok := n.article(src, item, base, lang, fetchedAt)
		if !ok {
			res.Skipped++
			continue
		}
		if _, dup := seen[article.CanonicalURL]; dup {
			res.Duplicates++
			continue
		}
		seen[article.CanonicalURL] = struct{}{}
		res.Articles = append(res.Articles, article)
	}
}

func (n *Normalizer) article(src domain.Source, item *gofeed.Item, base *url.URL, lang string, fetchedAt time.Time) (domain.Article, bool) {
	canonical := resolveLink(item, base)
	if canonical == "" {
		return domain.Article{}, false
	}

	title := htmlutil.StripHTML(item.Title)
	body := htmlutil.StripHTML(item.Content)
	if body == "" {
		body = htmlutil.StripHTML(item.Description)
	}
	if title == "" && body == "" {
		return domain.Article{}, false
	}

	itemBase := base
	if u, err := url.Parse(canonical); err == nil {
		itemBase = u
	}

	return domain.Article{
		ID:           ArticleID(canonical),
		SourceID:     src.ID,
		CanonicalURL: canonical,
		Title:        title,
		Body:         body,
		ImageURL:     pickImage(item, itemBase),
		Author:       author(item),
		Category:     src.Category,
		Language:     lang,
		PublishedAt: timeutil.Resolve(fetchedAt, n.skew,
			[]*time.Time{item.PublishedParsed, item.UpdatedParsed}, item.Published, item.Updated),
		FetchedAt: fetchedAt,
	}, true
}

// ArticleID derives the stable article id from a canonical URL
func ArticleID(canonicalURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(canonicalURL)).String()
}

// resolveLink tries link, then alternate links, then a URL-shaped GUID
func resolveLink(item *gofeed.Item, base *url.URL) string {
	candidates := make([]string, 0, 2+len(item.Links))
	candidates = append(candidates, item.Link)
	candidates = append(candidates, item.Links...)
	if looksLikeURL(item.GUID) {
		candidates = append(candidates, item.GUID)
	}

	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if canonical, err := CanonicalURL(c, base); err == nil {
			return canonical
		}
	}
	return ""
}

func looksLikeURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func author(item *gofeed.Item) string {
	for _, p := range item.Authors {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			return strings.TrimSpace(p.Name)
		}
	}
	if item.DublinCoreExt != nil {
		for _, c := range item.DublinCoreExt.Creator {
			if strings.TrimSpace(c) != "" {
				return strings.TrimSpace(c)
			}
		}
	}
	if item.ITunesExt != nil && item.ITunesExt.Author != "" {
		return item.ITunesExt.Author
	}
	return ""
}

// baseURL picks the first absolute http(s) URL to resolve relative links against
func baseURL(candidates ...string) *url.URL {
	for _, c := range candidates {
		u, err := url.Parse(strings.TrimSpace(c))
		if err == nil && u.IsAbs() && (u.Scheme == "http" || u.Scheme == "https") {
			return u
		}
	}
	return nil
}
