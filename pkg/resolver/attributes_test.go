package resolver

import (
	"testing"
	"time"

	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_ApplyAttribute(t *testing.T) {
	r := &Resolver{cfg: Config{AttributeDecayDays: 90}}
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("new attribute is stored", func(t *testing.T) {
		e := &models.Entity{}
		r.applyAttribute(e, "typical_quantity", 3.0, 0.8, now)

		attr, ok := e.Attributes["typical_quantity"]
		require.True(t, ok)
		assert.Equal(t, 3.0, attr.Value)
		assert.Equal(t, 0.8, attr.Confidence)
		assert.Equal(t, 1, attr.Mentions)
	})

	t.Run("fresh confident value survives a weaker observation", func(t *testing.T) {
		e := &models.Entity{Attributes: models.AttributeMap{
			"roast": {Value: "dark", Confidence: 0.9, Mentions: 4, UpdatedAt: now.Add(-24 * time.Hour)},
		}}
		r.applyAttribute(e, "roast", "light", 0.8, now)

		attr := e.Attributes["roast"]
		assert.Equal(t, "dark", attr.Value)
		assert.Equal(t, 0.9, attr.Confidence)
		assert.Equal(t, 5, attr.Mentions, "mentions still count the observation")
	})

	t.Run("decay lets a weaker observation replace a stale value", func(t *testing.T) {
		// 0.9 after 90 days decays to 0.9/e, well under 0.8
		e := &models.Entity{Attributes: models.AttributeMap{
			"roast": {Value: "dark", Confidence: 0.9, Mentions: 4, UpdatedAt: now.AddDate(0, 0, -90)},
		}}
		r.applyAttribute(e, "roast", "light", 0.8, now)

		attr := e.Attributes["roast"]
		assert.Equal(t, "light", attr.Value)
		assert.Equal(t, 0.8, attr.Confidence)
		assert.Equal(t, 5, attr.Mentions)
		assert.Equal(t, now, attr.UpdatedAt)
	})

	t.Run("equal confidence does not overwrite", func(t *testing.T) {
		e := &models.Entity{Attributes: models.AttributeMap{
			"roast": {Value: "dark", Confidence: 0.8, Mentions: 1, UpdatedAt: now},
		}}
		r.applyAttribute(e, "roast", "light", 0.8, now)

		assert.Equal(t, "dark", e.Attributes["roast"].Value)
	})
}
