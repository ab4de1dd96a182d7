package gate

import (
	"testing"
	"time"

	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	return Config{
		PromoteConfidence:  0.85,
		PromoteMinAge:      30 * 24 * time.Hour,
		PromoteMinValidate: 3,
		PromoteMaxCounter:  0.15,
		RejectCounterRatio: 0.30,
	}
}

func makeView(evidence, counter int, confidence float64, age, lifetime time.Duration, now time.Time) *models.DerivedView {
	supporting := make(models.StringList, evidence)
	for i := range supporting {
		supporting[i] = "evt-" + string(rune('a'+i))
	}
	counterEvidence := make(models.StringList, counter)
	for i := range counterEvidence {
		counterEvidence[i] = "ctr-" + string(rune('a'+i))
	}
	return &models.DerivedView{
		ID:              "view-1",
		UserID:          "user-1",
		Hypothesis:      "喜欢喝咖啡",
		Subject:         "咖啡",
		ViewType:        models.ViewTypePreference,
		DerivedFrom:     supporting,
		CounterEvidence: counterEvidence,
		Confidence:      confidence,
		ValidationCount: evidence,
		Status:          models.ViewStatusActive,
		CreatedAt:       now.Add(-age),
		ExpiresAt:       now.Add(-age).Add(lifetime),
	}
}

const (
	monthLifetime = 30 * 24 * time.Hour
	// Threshold-isolating cases use a long lifetime so the named threshold is
	// the only thing standing between the view and promotion.
	longLifetime = 90 * 24 * time.Hour
)

func TestGate_Evaluate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	g := New(testConfig())

	tests := []struct {
		name        string
		view        *models.DerivedView
		hasConflict bool
		expected    Decision
	}{
		{
			name:     "qualifies for promotion",
			view:     makeView(10, 0, 0.9, 31*24*time.Hour, longLifetime, now),
			expected: DecisionPromote,
		},
		{
			name:     "too young",
			view:     makeView(10, 0, 0.9, 29*24*time.Hour, monthLifetime, now),
			expected: DecisionKeepActive,
		},
		{
			name:     "confidence exactly at threshold is not enough",
			view:     makeView(10, 0, 0.85, 31*24*time.Hour, longLifetime, now),
			expected: DecisionKeepActive,
		},
		{
			name:     "too few validations",
			view:     makeView(2, 0, 0.9, 31*24*time.Hour, longLifetime, now),
			expected: DecisionKeepActive,
		},
		{
			name:        "conflict blocks promotion",
			view:        makeView(10, 0, 0.9, 31*24*time.Hour, longLifetime, now),
			hasConflict: true,
			expected:    DecisionKeepActive,
		},
		{
			name:     "counter ratio above reject threshold",
			view:     makeView(10, 4, 0.6, 10*24*time.Hour, monthLifetime, now),
			expected: DecisionReject,
		},
		{
			name:     "rejection overrides an otherwise promotable view",
			view:     makeView(10, 4, 0.95, 40*24*time.Hour, longLifetime, now),
			expected: DecisionReject,
		},
		{
			name:     "counter ratio exactly at reject threshold survives",
			view:     makeView(10, 3, 0.6, 10*24*time.Hour, monthLifetime, now),
			expected: DecisionKeepActive,
		},
		{
			name:     "counter ratio between promote and reject thresholds blocks promotion",
			view:     makeView(10, 2, 0.95, 40*24*time.Hour, longLifetime, now),
			expected: DecisionKeepActive,
		},
		{
			name:     "promotion precedes expiry check",
			view:     makeView(10, 0, 0.9, 31*24*time.Hour, monthLifetime, now),
			expected: DecisionPromote,
		},
		{
			name:     "non-promotable view past its lifetime expires",
			view:     makeView(2, 0, 0.5, 31*24*time.Hour, monthLifetime, now),
			expected: DecisionExpire,
		},
		{
			name:     "young view stays active",
			view:     makeView(2, 0, 0.5, 5*24*time.Hour, monthLifetime, now),
			expected: DecisionKeepActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, g.Evaluate(tt.view, tt.hasConflict, now))
		})
	}
}

func TestGate_Evaluate_TerminalViewsUntouched(t *testing.T) {
	now := time.Now().UTC()
	g := New(testConfig())

	for _, status := range []models.ViewStatus{models.ViewStatusExpired, models.ViewStatusPromoted, models.ViewStatusRejected} {
		view := makeView(10, 0, 0.9, 40*24*time.Hour, monthLifetime, now)
		view.Status = status
		assert.Equal(t, DecisionKeepActive, g.Evaluate(view, false, now), "terminal status %s", status)
	}
}

// Promotion is monotonic in time: once a view with fixed evidence qualifies,
// it keeps qualifying at every later instant.
func TestGate_Evaluate_PromotionMonotonicInTime(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := New(testConfig())

	view := makeView(10, 1, 0.9, 0, monthLifetime, created)
	view.CreatedAt = created
	view.ExpiresAt = created.Add(monthLifetime)

	qualified := false
	for day := 0; day <= 90; day++ {
		now := created.AddDate(0, 0, day)
		decision := g.Evaluate(view, false, now)
		if decision == DecisionPromote {
			qualified = true
		}
		if qualified {
			assert.Equal(t, DecisionPromote, decision, "day %d", day)
		}
	}
	assert.True(t, qualified, "view should eventually qualify")
}

func TestRecalculateConfidence(t *testing.T) {
	tests := []struct {
		name            string
		validationCount int
		counterCount    int
		expected        float64
	}{
		{name: "single validation", validationCount: 1, counterCount: 0, expected: 0.5},
		{name: "ten validations", validationCount: 10, counterCount: 0, expected: 0.55},
		{name: "hundred validations", validationCount: 100, counterCount: 0, expected: 0.6},
		{name: "counter evidence pulls down", validationCount: 10, counterCount: 2, expected: 0.35},
		{name: "clamped at zero", validationCount: 1, counterCount: 10, expected: 0},
		{name: "zero validations treated as one", validationCount: 0, counterCount: 0, expected: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, RecalculateConfidence(tt.validationCount, tt.counterCount), 1e-9)
		})
	}
}

func TestRecalculateConfidence_MoreValidationsNeverLower(t *testing.T) {
	prev := 0.0
	for v := 1; v <= 1000; v *= 10 {
		c := RecalculateConfidence(v, 0)
		assert.GreaterOrEqual(t, c, prev)
		prev = c
	}
}
