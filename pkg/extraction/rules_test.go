package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleExtractor_Extract(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	e := NewRuleExtractor()

	t.Run("apples this morning", func(t *testing.T) {
		candidates, err := e.Extract(context.Background(), "我今天早上吃了3个苹果", now)
		require.NoError(t, err)
		require.Len(t, candidates, 1)

		c := candidates[0]
		assert.Equal(t, "吃", c.Action)
		assert.Equal(t, "苹果", c.Target)
		require.NotNil(t, c.Quantity)
		assert.Equal(t, 3.0, *c.Quantity)
		require.NotNil(t, c.Unit)
		assert.Equal(t, "个", *c.Unit)
		assert.GreaterOrEqual(t, c.Confidence, 0.8)
		require.NotNil(t, c.Timestamp)
		assert.Equal(t, time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC), *c.Timestamp)
	})

	t.Run("yesterday evening", func(t *testing.T) {
		candidates, err := e.Extract(context.Background(), "昨天晚上喝了两杯咖啡", now)
		require.NoError(t, err)
		require.Len(t, candidates, 1)

		c := candidates[0]
		assert.Equal(t, "喝", c.Action)
		assert.Equal(t, "咖啡", c.Target)
		require.NotNil(t, c.Quantity)
		assert.Equal(t, 2.0, *c.Quantity)
		assert.Equal(t, "杯", *c.Unit)
		assert.Equal(t, time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC), *c.Timestamp)
	})

	t.Run("no quantity lowers confidence", func(t *testing.T) {
		candidates, err := e.Extract(context.Background(), "今天去了公园", now)
		require.NoError(t, err)
		require.Len(t, candidates, 1)

		c := candidates[0]
		assert.Equal(t, "去", c.Action)
		assert.Equal(t, "公园", c.Target)
		assert.Nil(t, c.Quantity)
		assert.Less(t, c.Confidence, 0.8)
	})

	t.Run("multiple clauses", func(t *testing.T) {
		candidates, err := e.Extract(context.Background(), "早上喝了一杯咖啡，下午买了2本书", now)
		require.NoError(t, err)
		require.Len(t, candidates, 2)

		assert.Equal(t, "喝", candidates[0].Action)
		assert.Equal(t, "咖啡", candidates[0].Target)
		assert.Equal(t, 1.0, *candidates[0].Quantity)
		assert.Equal(t, "买", candidates[1].Action)
		assert.Equal(t, "书", candidates[1].Target)
		assert.Equal(t, 2.0, *candidates[1].Quantity)
		assert.Equal(t, "本", *candidates[1].Unit)
	})

	t.Run("no recognizable verb", func(t *testing.T) {
		candidates, err := e.Extract(context.Background(), "天气真好", now)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("verb with no target", func(t *testing.T) {
		candidates, err := e.Extract(context.Background(), "今天早上吃了", now)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})
}

func TestParseChineseNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{input: "一", expected: 1},
		{input: "两", expected: 2},
		{input: "三", expected: 3},
		{input: "十", expected: 10},
		{input: "十二", expected: 12},
		{input: "二十", expected: 20},
		{input: "二十三", expected: 23},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseChineseNumber(tt.input), "input %s", tt.input)
	}
}

func TestResolveTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		content  string
		expected time.Time
	}{
		{name: "no time words", content: "吃了苹果", expected: now},
		{name: "today morning", content: "今天早上吃了苹果", expected: time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)},
		{name: "yesterday", content: "昨天吃了苹果", expected: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)},
		{name: "day before yesterday at noon", content: "前天中午吃了苹果", expected: time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC)},
		{name: "late night", content: "深夜看了电影", expected: time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveTimestamp(tt.content, now))
		})
	}
}

func TestSanitize(t *testing.T) {
	quantity := func(v float64) *float64 { return &v }
	unit := func(s string) *string { return &s }

	tests := []struct {
		name     string
		input    []Candidate
		expected int
		check    func(t *testing.T, got []Candidate)
	}{
		{
			name:     "empty action dropped",
			input:    []Candidate{{Action: " ", Target: "苹果", Confidence: 0.9}},
			expected: 0,
		},
		{
			name:     "empty target dropped",
			input:    []Candidate{{Action: "吃", Target: "", Confidence: 0.9}},
			expected: 0,
		},
		{
			name:     "confidence clamped",
			input:    []Candidate{{Action: "吃", Target: "苹果", Confidence: 1.7}},
			expected: 1,
			check: func(t *testing.T, got []Candidate) {
				assert.Equal(t, 1.0, got[0].Confidence)
			},
		},
		{
			name:     "non-positive quantity cleared",
			input:    []Candidate{{Action: "吃", Target: "苹果", Confidence: 0.9, Quantity: quantity(-1), Unit: unit("个")}},
			expected: 1,
			check: func(t *testing.T, got []Candidate) {
				assert.Nil(t, got[0].Quantity)
				assert.Nil(t, got[0].Unit)
			},
		},
		{
			name:     "quantity without unit cleared",
			input:    []Candidate{{Action: "吃", Target: "苹果", Confidence: 0.9, Quantity: quantity(3)}},
			expected: 1,
			check: func(t *testing.T, got []Candidate) {
				assert.Nil(t, got[0].Quantity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitize(tt.input)
			require.Len(t, got, tt.expected)
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}
