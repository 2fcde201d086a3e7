// ABOUTME: Controlled keyword vocabulary and frequency fallback
// ABOUTME: Matches alias phrases first, then ranks frequent non-stopword terms

package enricher

import (
	"sort"
	"strings"
	"unicode/utf8"

	"digests-pipeline/pkg/utils/text"
)

// DefaultMaxKeywords is used when no limit is configured
const DefaultMaxKeywords = 5

// Vocabulary is a controlled set of topic labels, each matched through one or more alias phrases
type Vocabulary struct {
	terms []vocabTerm
}

type vocabTerm struct {
	label   string
	aliases [][]string
}

// NewVocabulary builds a vocabulary from label -> aliases. The label itself is always an alias.
func NewVocabulary(entries map[string][]string) *Vocabulary {
	labels := make([]string, 0, len(entries))
	for label := range entries {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	v := &Vocabulary{terms: make([]vocabTerm, 0, len(labels))}
	for _, label := range labels {
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" {
			continue
		}
		t := vocabTerm{label: key}
		seen := map[string]struct{}{}
		for _, alias := range append([]string{key}, entries[label]...) {
			toks := text.Tokenize(alias)
			if len(toks) == 0 {
				continue
			}
			joined := strings.Join(toks, " ")
			if _, dup := seen[joined]; dup {
				continue
			}
			seen[joined] = struct{}{}
			t.aliases = append(t.aliases, toks)
		}
		v.terms = append(v.terms, t)
	}
	return v
}

// Len returns the number of labels
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

type scored struct {
	term  string
	score int
}

// Match scores every label as 2 x title hits + body hits and returns the top limit labels,
// highest score first, ties by label
func (v *Vocabulary) Match(title, body string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxKeywords
	}
	titleToks := text.Tokenize(title)
	bodyToks := text.Tokenize(body)

	var hits []scored
	for _, t := range v.terms {
		score := 0
		for _, alias := range t.aliases {
			score += 2*countPhrase(titleToks, alias) + countPhrase(bodyToks, alias)
		}
		if score > 0 {
			hits = append(hits, scored{term: t.label, score: score})
		}
	}
	return top(hits, limit)
}

// FrequentTerms returns the most frequent content tokens of title and body, title counted twice.
// Tokens shorter than 4 runes are ignored.
func FrequentTerms(title, body string, limit int, langs ...string) []string {
	if limit <= 0 {
		limit = DefaultMaxKeywords
	}
	counts := map[string]int{}
	for _, tok := range text.ContentTokens(title, langs...) {
		if utf8.RuneCountInString(tok) >= 4 {
			counts[tok] += 2
		}
	}
	for _, tok := range text.ContentTokens(body, langs...) {
		if utf8.RuneCountInString(tok) >= 4 {
			counts[tok]++
		}
	}

	hits := make([]scored, 0, len(counts))
	for term, n := range counts {
		hits = append(hits, scored{term: term, score: n})
	}
	return top(hits, limit)
}

func top(hits []scored, limit int) []string {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].term < hits[j].term
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.term
	}
	return out
}

func countPhrase(tokens, phrase []string) int {
	if len(phrase) == 0 || len(tokens) < len(phrase) {
		return 0
	}
	n := 0
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, p := range phrase {
			if tokens[i+j] != p {
				continue outer
			}
		}
		n++
	}
	return n
}

// DefaultVocabulary covers common news topics with a few non-English aliases
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(map[string][]string{
		"central bank":   {"central banks", "federal reserve", "reserve bank", "ecb", "bank of england", "zentralbank", "banque centrale", "banco central"},
		"interest rates": {"interest rate", "rate hike", "rate hikes", "rate cut", "rate cuts", "raises rates", "hikes rates", "cuts rates", "leitzins", "taux d'intérêt", "tipos de interés"},
		"inflation":      {"consumer prices", "cpi", "inflación", "inflazione"},
		"economy":        {"economic", "gdp", "recession", "economic growth", "wirtschaft", "économie", "economía"},
		"markets":        {"stock market", "stocks", "shares", "wall street", "bond yields", "börse", "bourse"},
		"employment":     {"jobs", "unemployment", "jobless", "labour market", "labor market", "payrolls"},
		"trade":          {"tariff", "tariffs", "exports", "imports", "trade war"},
		"energy":         {"oil", "gas prices", "opec", "electricity", "renewables"},
		"climate":        {"climate change", "emissions", "global warming", "carbon", "klima", "climat"},
		"weather":        {"storm", "hurricane", "flood", "flooding", "heatwave", "wildfire", "tornado"},
		"elections":      {"election", "vote", "voters", "ballot", "polls", "wahl", "élection", "elecciones"},
		"government":     {"parliament", "congress", "senate", "minister", "cabinet", "white house", "regierung"},
		"war":            {"military", "troops", "airstrike", "ceasefire", "invasion", "krieg", "guerre", "guerra"},
		"health":         {"hospital", "vaccine", "pandemic", "virus", "outbreak", "public health"},
		"technology":     {"tech", "software", "smartphone", "semiconductor", "chips", "startup"},
		"ai":             {"artificial intelligence", "machine learning", "chatbot", "openai", "generative ai"},
		"cybersecurity":  {"cyberattack", "hackers", "ransomware", "data breach", "hack"},
		"science":        {"researchers", "study", "scientists", "nasa", "space"},
		"sport":          {"football", "soccer", "tennis", "olympics", "championship", "league", "world cup"},
		"crime":          {"police", "arrested", "murder", "court", "trial", "sentenced"},
		"housing":        {"house prices", "mortgage", "mortgages", "rent", "property market"},
		"transport":      {"airline", "airport", "rail", "highway", "highways", "traffic"},
	})
}
