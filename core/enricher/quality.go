// ABOUTME: Heuristic quality score for normalized articles
// ABOUTME: Blends body length, readability, title shape, image and author signals

package enricher

import (
	"math"
	"strings"
	"unicode"

	"digests-pipeline/core/domain"
)

// Quality weights; they sum to 1
const (
	weightLength      = 0.30
	weightReadability = 0.25
	weightTitle       = 0.20
	weightImage       = 0.15
	weightAuthor      = 0.10
)

// fullLengthWords is the body length at which the length signal saturates
const fullLengthWords = 600

// QualityBreakdown is the per-signal view of a quality score, each signal in [0,1]
type QualityBreakdown struct {
	Length      float64 `json:"length"`
	Readability float64 `json:"readability"`
	Title       float64 `json:"title"`
	Image       float64 `json:"image"`
	Author      float64 `json:"author"`
	Score       float64 `json:"score"`
}

// Quality computes the deterministic quality score of an article. It never fails.
func Quality(a *domain.Article) QualityBreakdown {
	words := strings.Fields(a.Body)

	q := QualityBreakdown{
		Length:      math.Min(1, math.Log1p(float64(len(words)))/math.Log1p(fullLengthWords)),
		Readability: readability(a.Body, words, a.Language),
		Title:       titleScore(a.Title),
	}
	if a.ImageURL != "" {
		q.Image = 1
	}
	if strings.TrimSpace(a.Author) != "" {
		q.Author = 1
	}

	score := weightLength*q.Length +
		weightReadability*q.Readability +
		weightTitle*q.Title +
		weightImage*q.Image +
		weightAuthor*q.Author
	q.Score = math.Round(clamp01(score)*10000) / 10000
	return q
}

func titleScore(title string) float64 {
	n := len([]rune(strings.TrimSpace(title)))
	switch {
	case n == 0:
		return 0
	case n < 30:
		return float64(n) / 30
	case n <= 110:
		return 1
	default:
		return clamp01(1 - float64(n-110)/110)
	}
}

// readability blends sentence length with Flesch reading ease for English and
// the share of word-like tokens for everything else
func readability(body string, words []string, lang string) float64 {
	if len(words) == 0 {
		return 0
	}
	sentences := countSentences(body)
	perSentence := float64(len(words)) / float64(sentences)
	lengthScore := sentenceLengthScore(perSentence)

	if lang == "" || lang == "en" {
		syllables := 0
		for _, w := range words {
			syllables += countSyllables(w)
		}
		flesch := 206.835 - 1.015*perSentence - 84.6*(float64(syllables)/float64(len(words)))
		return clamp01(0.5*clamp01(flesch/100) + 0.5*lengthScore)
	}
	return clamp01(0.5*wordlikeRatio(words) + 0.5*lengthScore)
}

func sentenceLengthScore(avg float64) float64 {
	switch {
	case avg < 12:
		return avg / 12
	case avg <= 25:
		return 1
	default:
		return clamp01(1 - (avg-25)/25)
	}
}

func countSentences(body string) int {
	n := 0
	prevTerminal := false
	for _, r := range body {
		terminal := r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？'
		if terminal && !prevTerminal {
			n++
		}
		prevTerminal = terminal
	}
	if n == 0 {
		return 1
	}
	return n
}

func countSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }))
	if word == "" {
		return 0
	}
	count := 0
	prevVowel := false
	for _, r := range word {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		return 1
	}
	return count
}

// wordlikeRatio is the share of tokens between 2 and 15 runes long
func wordlikeRatio(words []string) float64 {
	wordlike := 0
	for _, w := range words {
		n := len([]rune(w))
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(words))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
