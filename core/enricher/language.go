// ABOUTME: Language detection for articles whose feed declares none
// ABOUTME: Wraps lingua-go restricted to the languages with stopword lists

package enricher

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Detector identifies the primary language subtag of a text
type Detector interface {
	Detect(text string) (string, bool)
}

// linguaDetector wraps a lingua detector restricted to common feed languages
type linguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector for the languages that have stopword sets
func NewLinguaDetector() Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English, lingua.German, lingua.French, lingua.Spanish,
			lingua.Italian, lingua.Portuguese, lingua.Dutch, lingua.Swedish,
			lingua.Russian,
		).
		WithMinimumRelativeDistance(0.1).
		Build()
	return &linguaDetector{detector: detector}
}

// Detect implements Detector
func (d *linguaDetector) Detect(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(language.IsoCode639_1().String()), true
}
