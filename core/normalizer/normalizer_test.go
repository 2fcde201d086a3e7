package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
)

var fetchedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(WithClock(func() time.Time { return fetchedAt }))
}

const threeEntriesOneMalformed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example News</title>
  <link>https://example.com/</link>
  <language>en-US</language>
  <item>
    <title>Central Bank Raises Rates</title>
    <link>https://example.com/business/rates?utm_source=rss</link>
    <description>&lt;p&gt;The central bank raised its benchmark rate.&lt;/p&gt;</description>
    <pubDate>Fri, 01 Mar 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Entry without any link</title>
    <guid isPermaLink="false">urn:example:42</guid>
  </item>
  <item>
    <title>Storm Closes Coastal Highways</title>
    <link>/weather/storm</link>
    <description>Roads along the coast were closed overnight.</description>
    <pubDate>Fri, 01 Mar 2024 09:30:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestNormalize_SkipsMalformedEntry(t *testing.T) {
	n := newTestNormalizer()

	res, err := n.NormalizeSource(domain.Source{ID: "example", Category: "business"}, []byte(threeEntriesOneMalformed), fetchedAt)
	require.NoError(t, err)
	require.Len(t, res.Articles, 2)
	assert.Equal(t, 1, res.Skipped)
	assert.False(t, res.Salvaged)

	first := res.Articles[0]
	assert.Equal(t, "https://example.com/business/rates", first.CanonicalURL)
	assert.Equal(t, ArticleID(first.CanonicalURL), first.ID)
	assert.Equal(t, "Central Bank Raises Rates", first.Title)
	assert.Equal(t, "The central bank raised its benchmark rate.", first.Body)
	assert.Equal(t, "example", first.SourceID)
	assert.Equal(t, "business", first.Category)
	assert.Equal(t, "en", first.Language)
	assert.True(t, first.PublishedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, first.FetchedAt.Equal(fetchedAt))

	assert.Equal(t, "https://example.com/weather/storm", res.Articles[1].CanonicalURL)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer()

	first, err := n.Normalize("example", []byte(threeEntriesOneMalformed))
	require.NoError(t, err)
	second, err := n.Normalize("example", []byte(threeEntriesOneMalformed))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNormalize_EmptyFeedIsNotAnError(t *testing.T) {
	n := newTestNormalizer()

	articles, err := n.Normalize("empty", []byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>Quiet</title></channel></rss>`))
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestNormalize_UnparseableDocument(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.Normalize("broken", []byte("<html><body>Service Unavailable</body></html>"))
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
	assert.Equal(t, domain.ReasonParse, errors.ReasonOf(err))

	_, err = n.Normalize("broken", nil)
	assert.True(t, errors.IsParse(err))
}

func TestNormalize_SalvagesTruncatedDocument(t *testing.T) {
	truncated := `<?xml version="1.0"?>
<rss version="2.0"><channel><link>https://example.com/</link><language>fr</language>
<item><title>Premier</title><link>https://example.com/1</link></item>
<item><title>Second</title><link>https://example.com/2</link></item>
<item><title>Troisi`

	res, err := newTestNormalizer().NormalizeSource(domain.Source{ID: "cut"}, []byte(truncated), fetchedAt)
	require.NoError(t, err)
	require.Len(t, res.Articles, 2)
	assert.Equal(t, "https://example.com/1", res.Articles[0].CanonicalURL)
	assert.Equal(t, "https://example.com/2", res.Articles[1].CanonicalURL)
	assert.Equal(t, "fr", res.Articles[0].Language)
}

func TestSalvage_RecoversSiblingsOfDamagedItem(t *testing.T) {
	doc := `<rss><channel><link>https://example.com/</link>
<item><title>Good one</title><link>https://example.com/good</link></item>
<item><title>Bad &bogus; <b>unclosed</title><link>https://example.com/bad</link></item>
<item><title>Good two</title><link>https://example.com/good2</link></item>
</channel>`

	out := salvage(doc)
	assert.Equal(t, 3, out.found)
	assert.Equal(t, "https://example.com/", out.feed.Link)
	assert.GreaterOrEqual(t, len(out.feed.Items), 2)
	assert.Equal(t, out.found, len(out.feed.Items)+out.skipped)
}

func TestNormalize_DuplicateURLsKeepFirst(t *testing.T) {
	doc := `<rss version="2.0"><channel><link>https://example.com/</link>
<item><title>Original</title><link>https://example.com/a?utm_source=x</link></item>
<item><title>Repeat</title><link>https://EXAMPLE.com/a#top</link></item>
</channel></rss>`

	res, err := newTestNormalizer().NormalizeSource(domain.Source{ID: "dup"}, []byte(doc), fetchedAt)
	require.NoError(t, err)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "Original", res.Articles[0].Title)
	assert.Equal(t, 1, res.Duplicates)
}

func TestNormalize_ImageFallbackOrder(t *testing.T) {
	doc := `<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel><link>https://example.com/</link>
<item>
  <title>Thumbnail wins</title><link>https://example.com/1</link>
  <media:thumbnail url="https://img.example.com/thumb.jpg"/>
  <enclosure url="https://img.example.com/enclosure.jpg" type="image/jpeg" length="1"/>
  <description>&lt;img src="https://img.example.com/inline.jpg"&gt;</description>
</item>
<item>
  <title>Enclosure next</title><link>https://example.com/2</link>
  <enclosure url="https://img.example.com/enclosure.png" type="image/png" length="1"/>
  <description>&lt;img src="https://img.example.com/inline.jpg"&gt;</description>
</item>
<item>
  <title>Inline last</title><link>https://example.com/news/3</link>
  <content:encoded>&lt;p&gt;Text&lt;/p&gt;&lt;img src="/images/inline.jpg"&gt;</content:encoded>
</item>
<item>
  <title>Media content image</title><link>https://example.com/4</link>
  <media:content url="https://img.example.com/content.jpg" medium="image"/>
</item>
<item>
  <title>No image</title><link>https://example.com/5</link>
  <description>plain text</description>
</item>
</channel></rss>`

	res, err := newTestNormalizer().NormalizeSource(domain.Source{ID: "img"}, []byte(doc), fetchedAt)
	require.NoError(t, err)
	require.Len(t, res.Articles, 5)

	assert.Equal(t, "https://img.example.com/thumb.jpg", res.Articles[0].ImageURL)
	assert.Equal(t, "https://img.example.com/enclosure.png", res.Articles[1].ImageURL)
	assert.Equal(t, "https://example.com/images/inline.jpg", res.Articles[2].ImageURL)
	assert.Equal(t, "https://img.example.com/content.jpg", res.Articles[3].ImageURL)
	assert.Empty(t, res.Articles[4].ImageURL)
}

func TestNormalize_Atom(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <link href="https://atom.example.com/"/>
  <updated>2024-03-01T08:00:00Z</updated>
  <entry>
    <title>Atom entry</title>
    <link rel="alternate" href="https://atom.example.com/posts/1/"/>
    <id>urn:uuid:1</id>
    <updated>2024-03-01T08:00:00Z</updated>
    <author><name>Ada Writer</name></author>
    <summary>Summary text</summary>
  </entry>
</feed>`

	res, err := newTestNormalizer().NormalizeSource(domain.Source{ID: "atom", Language: "de"}, []byte(doc), fetchedAt)
	require.NoError(t, err)
	require.Len(t, res.Articles, 1)

	a := res.Articles[0]
	assert.Equal(t, "https://atom.example.com/posts/1", a.CanonicalURL)
	assert.Equal(t, "Ada Writer", a.Author)
	assert.Equal(t, "Summary text", a.Body)
	assert.True(t, a.PublishedAt.Equal(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)))
}

func TestNormalize_RDF(t *testing.T) {
	doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel rdf:about="https://rdf.example.com/">
    <title>RDF Example</title>
    <link>https://rdf.example.com/</link>
  </channel>
  <item rdf:about="https://rdf.example.com/a">
    <title>RDF entry</title>
    <link>https://rdf.example.com/a</link>
    <description>Body</description>
    <dc:creator>Jo Reporter</dc:creator>
    <dc:date>2024-03-01T07:00:00Z</dc:date>
  </item>
</rdf:RDF>`

	res, err := newTestNormalizer().NormalizeSource(domain.Source{ID: "rdf"}, []byte(doc), fetchedAt)
	require.NoError(t, err)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "https://rdf.example.com/a", res.Articles[0].CanonicalURL)
	assert.Equal(t, "Jo Reporter", res.Articles[0].Author)
}

func TestNormalize_FutureDateFallsBackToFetchTime(t *testing.T) {
	doc := `<rss version="2.0"><channel><link>https://example.com/</link>
<item><title>From the future</title><link>https://example.com/f</link><pubDate>Mon, 01 Jan 2035 00:00:00 GMT</pubDate></item>
<item><title>Undated</title><link>https://example.com/u</link></item>
</channel></rss>`

	res, err := newTestNormalizer().NormalizeSource(domain.Source{ID: "t"}, []byte(doc), fetchedAt)
	require.NoError(t, err)
	require.Len(t, res.Articles, 2)
	assert.True(t, res.Articles[0].PublishedAt.Equal(fetchedAt))
	assert.True(t, res.Articles[1].PublishedAt.Equal(fetchedAt))
}

func TestNormalize_GUIDPermalinkFallback(t *testing.T) {
	doc := `<rss version="2.0"><channel><link>https://example.com/</link>
<item><title>Guid only</title><guid>https://example.com/guid-story</guid></item>
</channel></rss>`

	articles, err := newTestNormalizer().Normalize("g", []byte(doc))
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "https://example.com/guid-story", articles[0].CanonicalURL)
}

func TestNormalize_SourceLanguageWhenFeedSilent(t *testing.T) {
	doc := `<rss version="2.0"><channel><link>https://example.com/</link>
<item><title>Hallo</title><link>https://example.com/h</link></item>
</channel></rss>`

	res, err := newTestNormalizer().NormalizeSource(domain.Source{ID: "de", Language: "de-AT"}, []byte(doc), fetchedAt)
	require.NoError(t, err)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "de", res.Articles[0].Language)
}
