package patterns

import (
	"fmt"
	"testing"
	"time"

	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		LookbackDays:             30,
		FrequencyMinOccurrences:  20,
		FrequencyDiscount:        0.7,
		PreferenceMinRatio:       0.7,
		PreferenceMinOccurrences: 5,
	}
}

// dailyEvents builds one event per day at the given hour
func dailyEvents(action, target string, days, hour int, now time.Time) []models.Event {
	events := make([]models.Event, 0, days)
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, -i)
		events = append(events, models.Event{
			ID:        fmt.Sprintf("%s-%s-%d-%d", action, target, hour, i),
			UserID:    "user-1",
			Action:    action,
			Target:    target,
			Timestamp: time.Date(day.Year(), day.Month(), day.Day(), hour, 30, 0, 0, time.UTC),
		})
	}
	return events
}

func TestDetector_DetectFrequency(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	d := NewDetector(testConfig())

	t.Run("daily morning coffee becomes a pattern", func(t *testing.T) {
		events := dailyEvents("喝", "咖啡", 25, 8, now)

		candidates := d.detectFrequency(events)
		require.Len(t, candidates, 1)

		c := candidates[0]
		assert.Equal(t, "经常在早上喝咖啡", c.Hypothesis)
		assert.Equal(t, "咖啡", c.Subject)
		assert.Equal(t, models.ViewTypePattern, c.ViewType)
		assert.Len(t, c.EventIDs, 25)
		assert.Equal(t, 25, c.ValidationCount)
		assert.InDelta(t, 25.0/30.0*0.7, c.Confidence, 1e-9)
	})

	t.Run("below the occurrence floor", func(t *testing.T) {
		events := dailyEvents("喝", "咖啡", 19, 8, now)
		assert.Empty(t, d.detectFrequency(events))
	})

	t.Run("occurrences split across time buckets do not combine", func(t *testing.T) {
		events := dailyEvents("喝", "咖啡", 12, 8, now)
		events = append(events, dailyEvents("喝", "咖啡", 12, 20, now)...)
		assert.Empty(t, d.detectFrequency(events))
	})

	t.Run("confidence caps at the discount", func(t *testing.T) {
		// Two occurrences per day exceeds one per lookback day
		events := dailyEvents("喝", "咖啡", 28, 8, now)
		events = append(events, dailyEvents("喝", "咖啡", 28, 9, now)...)

		candidates := d.detectFrequency(events)
		require.Len(t, candidates, 1)
		assert.InDelta(t, 0.7, candidates[0].Confidence, 1e-9)
	})
}

func TestDetector_DetectPreference(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	d := NewDetector(testConfig())

	t.Run("dominant target becomes a preference", func(t *testing.T) {
		events := dailyEvents("喝", "咖啡", 8, 8, now)
		events = append(events, dailyEvents("喝", "茶", 2, 8, now)...)

		candidates := d.detectPreference(events)
		require.Len(t, candidates, 1)

		c := candidates[0]
		assert.Equal(t, "喜欢喝咖啡", c.Hypothesis)
		assert.Equal(t, "咖啡", c.Subject)
		assert.Equal(t, models.ViewTypePreference, c.ViewType)
		assert.InDelta(t, 0.8, c.Confidence, 1e-9)
		assert.Equal(t, 8, c.ValidationCount)
	})

	t.Run("high share with too few occurrences", func(t *testing.T) {
		events := dailyEvents("喝", "咖啡", 4, 8, now)
		events = append(events, dailyEvents("喝", "茶", 1, 8, now)...)
		assert.Empty(t, d.detectPreference(events))
	})

	t.Run("share below the ratio floor", func(t *testing.T) {
		events := dailyEvents("喝", "咖啡", 6, 8, now)
		events = append(events, dailyEvents("喝", "茶", 5, 8, now)...)
		assert.Empty(t, d.detectPreference(events))
	})

	t.Run("preferences are scoped to an action", func(t *testing.T) {
		events := dailyEvents("喝", "咖啡", 8, 8, now)
		events = append(events, dailyEvents("吃", "苹果", 6, 8, now)...)

		candidates := d.detectPreference(events)
		require.Len(t, candidates, 2)
		assert.Equal(t, "喜欢吃苹果", candidates[0].Hypothesis)
		assert.Equal(t, "喜欢喝咖啡", candidates[1].Hypothesis)
	})
}

func TestDetector_Detect(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	d := NewDetector(testConfig())

	t.Run("frequency and preference candidates combine", func(t *testing.T) {
		events := dailyEvents("喝", "咖啡", 25, 8, now)

		candidates := d.Detect(events, now)
		require.Len(t, candidates, 2)
		assert.Equal(t, models.ViewTypePattern, candidates[0].ViewType)
		assert.Equal(t, models.ViewTypePreference, candidates[1].ViewType)
	})

	t.Run("events outside the lookback window are ignored", func(t *testing.T) {
		events := dailyEvents("喝", "咖啡", 25, 8, now.AddDate(0, 0, -40))
		assert.Empty(t, d.Detect(events, now))
	})

	t.Run("archived events are ignored", func(t *testing.T) {
		events := dailyEvents("喝", "咖啡", 25, 8, now)
		for i := range events {
			events[i].Archived = true
		}
		assert.Empty(t, d.Detect(events, now))
	})
}

func TestHourBucket(t *testing.T) {
	tests := []struct {
		hour     int
		expected string
	}{
		{hour: 5, expected: "早上"},
		{hour: 10, expected: "早上"},
		{hour: 11, expected: "中午"},
		{hour: 13, expected: "中午"},
		{hour: 14, expected: "下午"},
		{hour: 17, expected: "下午"},
		{hour: 18, expected: "晚上"},
		{hour: 22, expected: "晚上"},
		{hour: 23, expected: "深夜"},
		{hour: 2, expected: "深夜"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, hourBucket(tt.hour), "hour %d", tt.hour)
	}
}
