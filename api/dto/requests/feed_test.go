package requests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digests-pipeline/core/errors"
)

func TestParseInterests(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]float64
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{name: "weighted", raw: "Business:0.8, tech:0.5", want: map[string]float64{"business": 0.8, "tech": 0.5}},
		{name: "implicit weight", raw: "sport", want: map[string]float64{"sport": 1}},
		{name: "trailing comma", raw: "sport,", want: map[string]float64{"sport": 1}},
		{name: "weight above one", raw: "sport:2", wantErr: true},
		{name: "not a number", raw: "sport:lots", wantErr: true},
		{name: "missing name", raw: ":0.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInterests(tt.raw)
			if tt.wantErr {
				assert.True(t, errors.IsValidation(err), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"rates", "inflation"}, ParseKeywords(" Rates,inflation, rates ,,"))
	assert.Nil(t, ParseKeywords(""))
}

func TestFeedQuery_UserContext(t *testing.T) {
	u, err := FeedQuery{UserID: " u1 ", Interests: "business:0.5", Keywords: "Markets"}.UserContext()
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, 0.5, u.Interests["business"])
	assert.Equal(t, []string{"markets"}, u.Keywords)

	_, err = FeedQuery{Interests: "business:9"}.UserContext()
	assert.Error(t, err)
}
