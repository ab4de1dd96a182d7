package conflicts

import (
	"testing"

	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func view(id, subject, hypothesis string) models.DerivedView {
	return models.DerivedView{
		ID:         id,
		UserID:     "user-1",
		Subject:    subject,
		Hypothesis: hypothesis,
		Status:     models.ViewStatusActive,
	}
}

func TestDetector_FindConflicts(t *testing.T) {
	d := NewDetector(nil, nil)

	t.Run("opposing preferences on the same subject", func(t *testing.T) {
		views := []models.DerivedView{
			view("v1", "咖啡", "喜欢喝咖啡"),
			view("v2", "咖啡", "不喜欢喝咖啡"),
		}
		found := d.FindConflicts(views)
		require.Len(t, found, 1)
		assert.Equal(t, "咖啡", found[0].Subject)
		assert.Equal(t, "v1", found[0].ViewA.ID)
		assert.Equal(t, "v2", found[0].ViewB.ID)
	})

	t.Run("different subjects never conflict", func(t *testing.T) {
		views := []models.DerivedView{
			view("v1", "咖啡", "喜欢喝咖啡"),
			view("v2", "茶", "不喜欢喝茶"),
		}
		assert.Empty(t, d.FindConflicts(views))
	})

	t.Run("empty subjects never conflict", func(t *testing.T) {
		views := []models.DerivedView{
			view("v1", "", "喜欢喝咖啡"),
			view("v2", "", "不喜欢喝咖啡"),
		}
		assert.Empty(t, d.FindConflicts(views))
	})

	t.Run("both negated hypotheses do not conflict", func(t *testing.T) {
		views := []models.DerivedView{
			view("v1", "咖啡", "不喜欢喝咖啡"),
			view("v2", "咖啡", "不喜欢买咖啡"),
		}
		assert.Empty(t, d.FindConflicts(views))
	})

	t.Run("frequency markers conflict", func(t *testing.T) {
		views := []models.DerivedView{
			view("v1", "跑步", "经常去跑步"),
			view("v2", "跑步", "很少去跑步"),
		}
		assert.Len(t, d.FindConflicts(views), 1)
	})

	t.Run("categorical membership conflicts across subjects", func(t *testing.T) {
		views := []models.DerivedView{
			view("v1", "肉", "用户喜欢吃肉"),
			view("v2", "素食主义者", "用户是素食主义者"),
		}
		found := d.FindConflicts(views)
		require.Len(t, found, 1)
		assert.Equal(t, "素食主义者", found[0].Subject)
		assert.Equal(t, "吃肉", found[0].MarkerA)
		assert.Equal(t, "是素食主义者", found[0].MarkerB)
	})

	t.Run("membership before the incompatible assertion", func(t *testing.T) {
		views := []models.DerivedView{
			view("v1", "素食主义者", "用户是素食主义者"),
			view("v2", "鱼", "用户经常吃鱼"),
		}
		require.Len(t, d.FindConflicts(views), 1)
	})

	t.Run("compatible assertion does not conflict with membership", func(t *testing.T) {
		views := []models.DerivedView{
			view("v1", "素食主义者", "用户是素食主义者"),
			view("v2", "蔬菜", "用户喜欢吃蔬菜"),
		}
		assert.Empty(t, d.FindConflicts(views))
	})

	t.Run("negated membership does not conflict", func(t *testing.T) {
		views := []models.DerivedView{
			view("v1", "素食主义者", "用户不是素食主义者"),
			view("v2", "肉", "用户喜欢吃肉"),
		}
		assert.Empty(t, d.FindConflicts(views))
	})
}

func TestContainsMarker(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		marker   string
		opposite string
		expected bool
	}{
		{name: "plain occurrence", s: "喜欢喝咖啡", marker: "喜欢", opposite: "不喜欢", expected: true},
		{name: "occurrence only inside opposite", s: "不喜欢喝咖啡", marker: "喜欢", opposite: "不喜欢", expected: false},
		{name: "opposite marker itself", s: "不喜欢喝咖啡", marker: "不喜欢", opposite: "喜欢", expected: true},
		{name: "both forms present", s: "以前喜欢现在不喜欢", marker: "喜欢", opposite: "不喜欢", expected: true},
		{name: "absent", s: "每天喝咖啡", marker: "喜欢", opposite: "不喜欢", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, containsMarker(tt.s, tt.marker, tt.opposite))
		})
	}
}

func TestDetector_HasConflict(t *testing.T) {
	d := NewDetector(nil, nil)
	target := view("v1", "咖啡", "喜欢喝咖啡")

	t.Run("conflicting sibling", func(t *testing.T) {
		others := []models.DerivedView{view("v2", "咖啡", "讨厌喝咖啡")}
		assert.True(t, d.HasConflict(&target, others))
	})

	t.Run("skips itself", func(t *testing.T) {
		others := []models.DerivedView{view("v1", "咖啡", "不喜欢喝咖啡")}
		assert.False(t, d.HasConflict(&target, others))
	})

	t.Run("no conflicts", func(t *testing.T) {
		others := []models.DerivedView{view("v2", "咖啡", "每天早上喝咖啡")}
		assert.False(t, d.HasConflict(&target, others))
	})

	t.Run("categorical sibling blocks both directions", func(t *testing.T) {
		meat := view("v1", "肉", "用户喜欢吃肉")
		vegetarian := view("v2", "素食主义者", "用户是素食主义者")
		assert.True(t, d.HasConflict(&meat, []models.DerivedView{vegetarian}))
		assert.True(t, d.HasConflict(&vegetarian, []models.DerivedView{meat}))
	})
}

func TestDetector_IsCounterEvidence(t *testing.T) {
	d := NewDetector(nil, nil)
	liked := view("v1", "咖啡", "喜欢喝咖啡")
	vegetarian := view("v2", "素食主义者", "用户是素食主义者")

	tests := []struct {
		name     string
		event    models.Event
		view     models.DerivedView
		expected bool
	}{
		{
			name:     "opposing action on the subject",
			event:    models.Event{Action: "不喜欢", Target: "咖啡"},
			view:     liked,
			expected: true,
		},
		{
			name:     "same-direction action is not counter evidence",
			event:    models.Event{Action: "喜欢", Target: "咖啡"},
			view:     liked,
			expected: false,
		},
		{
			name:     "different target",
			event:    models.Event{Action: "不喜欢", Target: "茶"},
			view:     liked,
			expected: false,
		},
		{
			name:     "neutral action",
			event:    models.Event{Action: "喝", Target: "咖啡"},
			view:     liked,
			expected: false,
		},
		{
			name:     "event incompatible with categorical membership",
			event:    models.Event{Action: "吃", Target: "肉"},
			view:     vegetarian,
			expected: true,
		},
		{
			name:     "event compatible with categorical membership",
			event:    models.Event{Action: "吃", Target: "蔬菜"},
			view:     vegetarian,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.IsCounterEvidence(&tt.event, &tt.view))
		})
	}
}

func TestDetector_CustomAntonyms(t *testing.T) {
	d := NewDetector([]AntonymPair{{A: "likes", B: "dislikes"}}, nil)
	views := []models.DerivedView{
		view("v1", "coffee", "likes coffee"),
		view("v2", "coffee", "dislikes coffee"),
	}
	assert.Len(t, d.FindConflicts(views), 1)
}
