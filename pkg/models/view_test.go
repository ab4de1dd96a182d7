package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    ViewStatus
		to      ViewStatus
		allowed bool
	}{
		{name: "active to expired", from: ViewStatusActive, to: ViewStatusExpired, allowed: true},
		{name: "active to promoted", from: ViewStatusActive, to: ViewStatusPromoted, allowed: true},
		{name: "active to rejected", from: ViewStatusActive, to: ViewStatusRejected, allowed: true},
		{name: "active to active", from: ViewStatusActive, to: ViewStatusActive, allowed: false},
		{name: "expired to active", from: ViewStatusExpired, to: ViewStatusActive, allowed: false},
		{name: "promoted to rejected", from: ViewStatusPromoted, to: ViewStatusRejected, allowed: false},
		{name: "rejected to promoted", from: ViewStatusRejected, to: ViewStatusPromoted, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewDerivedView(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	lifetime := 30 * 24 * time.Hour

	t.Run("valid view", func(t *testing.T) {
		v, err := NewDerivedView("user-1", "喜欢喝咖啡", "咖啡", ViewTypePreference, []string{"e1", "e2"}, 0.8, now, lifetime)
		require.NoError(t, err)
		assert.Equal(t, ViewStatusActive, v.Status)
		assert.Equal(t, now.Add(lifetime), v.ExpiresAt)
		assert.Equal(t, 1, v.Revision)
		assert.Equal(t, StringList{"e1", "e2"}, v.DerivedFrom)
		assert.Empty(t, v.CounterEvidence)
	})

	t.Run("empty evidence rejected", func(t *testing.T) {
		_, err := NewDerivedView("user-1", "喜欢喝咖啡", "咖啡", ViewTypePreference, nil, 0.8, now, lifetime)
		require.Error(t, err)
	})

	t.Run("missing hypothesis rejected", func(t *testing.T) {
		_, err := NewDerivedView("user-1", "", "咖啡", ViewTypePreference, []string{"e1"}, 0.8, now, lifetime)
		require.Error(t, err)
	})

	t.Run("confidence out of range rejected", func(t *testing.T) {
		_, err := NewDerivedView("user-1", "喜欢喝咖啡", "咖啡", ViewTypePreference, []string{"e1"}, 1.2, now, lifetime)
		require.Error(t, err)
	})
}

func TestDerivedView_CounterRatio(t *testing.T) {
	tests := []struct {
		name     string
		view     DerivedView
		expected float64
	}{
		{
			name:     "no counter evidence",
			view:     DerivedView{DerivedFrom: StringList{"a", "b"}},
			expected: 0,
		},
		{
			name:     "two of ten",
			view:     DerivedView{DerivedFrom: make(StringList, 10), CounterEvidence: make(StringList, 2)},
			expected: 0.2,
		},
		{
			name:     "no evidence at all counts as fully contradicted",
			view:     DerivedView{},
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.view.CounterRatio(), 1e-9)
		})
	}
}

func TestViewStatus_Valid(t *testing.T) {
	assert.True(t, ViewStatusActive.Valid())
	assert.True(t, ViewStatusExpired.Valid())
	assert.True(t, ViewStatusPromoted.Valid())
	assert.True(t, ViewStatusRejected.Valid())
	assert.False(t, ViewStatus("pending").Valid())
}
