// ABOUTME: Request parsing helpers for the ranked feed endpoint
// ABOUTME: Turns compact query strings into the UserContext the ranker consumes

package requests

import (
	"strconv"
	"strings"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
)

// FeedQuery is the parsed query of GET /feed
type FeedQuery struct {
	UserID    string
	Interests string
	Keywords  string
}

// ParseInterests reads "business:0.8,tech:0.5" into a category weight map.
// A category without a weight gets 1.
func ParseInterests(raw string) (map[string]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	out := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, weight, hasWeight := strings.Cut(part, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, &errors.ValidationError{Field: "interests", Message: "empty category in " + strconv.Quote(part)}
		}

		w := 1.0
		if hasWeight {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
			if err != nil || parsed < 0 || parsed > 1 {
				return nil, &errors.ValidationError{Field: "interests", Message: "weight for " + name + " must be a number in [0,1]"}
			}
			w = parsed
		}
		out[name] = w
	}
	return out, nil
}

// ParseKeywords splits a comma separated keyword list, lower-cased and de-duplicated
func ParseKeywords(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, kw := range strings.Split(raw, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// UserContext builds the ranker input for q
func (q FeedQuery) UserContext() (domain.UserContext, error) {
	interests, err := ParseInterests(q.Interests)
	if err != nil {
		return domain.UserContext{}, err
	}
	return domain.UserContext{
		UserID:    strings.TrimSpace(q.UserID),
		Interests: interests,
		Keywords:  ParseKeywords(q.Keywords),
	}, nil
}
