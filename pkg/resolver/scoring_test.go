package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_JaroWinkler(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{name: "identical", a: "星巴克", b: "星巴克", min: 1.0, max: 1.0},
		{name: "identical latin", a: "iphone", b: "iphone", min: 1.0, max: 1.0},
		{name: "shared prefix", a: "星巴克咖啡", b: "星巴克", min: 0.85, max: 1.0},
		{name: "close latin strings", a: "martha", b: "marhta", min: 0.9, max: 1.0},
		{name: "unrelated", a: "苹果", b: "银行", min: 0.0, max: 0.0},
		{name: "empty", a: "", b: "星巴克", min: 0.0, max: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := s.JaroWinkler(tt.a, tt.b)
			assert.GreaterOrEqual(t, score, tt.min)
			assert.LessOrEqual(t, score, tt.max)
		})
	}
}

func TestScorer_JaroWinkler_Symmetric(t *testing.T) {
	s := NewScorer()
	assert.InDelta(t, s.JaroWinkler("咖啡店", "咖啡馆"), s.JaroWinkler("咖啡馆", "咖啡店"), 1e-9)
}

func TestScorer_LevenshteinDistance(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		a        string
		b        string
		expected int
	}{
		{a: "", b: "", expected: 0},
		{a: "abc", b: "", expected: 3},
		{a: "kitten", b: "sitting", expected: 3},
		{a: "星巴克", b: "星巴克", expected: 0},
		// Rune-based distance, not byte-based
		{a: "星巴克", b: "星巴洛", expected: 1},
		{a: "咖啡", b: "咖啡店", expected: 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, s.LevenshteinDistance(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestScorer_Levenshtein(t *testing.T) {
	s := NewScorer()
	assert.InDelta(t, 1.0, s.Levenshtein("", ""), 1e-9)
	assert.InDelta(t, 2.0/3.0, s.Levenshtein("星巴克", "星巴洛"), 1e-9)
}

func TestScorer_ExactMatch(t *testing.T) {
	s := NewScorer()
	assert.Equal(t, 1.0, s.ExactMatch("Starbucks", "starbucks", false))
	assert.Equal(t, 0.0, s.ExactMatch("Starbucks", "starbucks", true))
}
