package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuditLog(t *testing.T) {
	t.Run("successful read crossing", func(t *testing.T) {
		entry := NewAuditLog("user-1", "assistant", "audit.read", "audit").
			WithRemoteIP("10.0.0.1").
			WithResultCount(42)

		assert.Equal(t, "user-1", entry.UserID)
		assert.Equal(t, "assistant", entry.Actor)
		assert.Equal(t, "audit.read", entry.Action)
		assert.Equal(t, "audit", entry.Resource)
		assert.True(t, entry.Success)
		require.NotNil(t, entry.ResultCount)
		assert.Equal(t, 42, *entry.ResultCount)
		require.NotNil(t, entry.RemoteIP)
		assert.Equal(t, "10.0.0.1", *entry.RemoteIP)
		assert.Nil(t, entry.Error)
		assert.False(t, entry.CreatedAt.IsZero())
	})

	t.Run("failed crossing records the reason", func(t *testing.T) {
		entry := NewAuditLog("user-1", "coach", "views.read", "view").
			WithError(errors.New("storage unavailable"))

		assert.False(t, entry.Success)
		require.NotNil(t, entry.Error)
		assert.Equal(t, "storage unavailable", *entry.Error)
		assert.Nil(t, entry.ResultCount)
	})

	t.Run("blank remote ip is not recorded", func(t *testing.T) {
		entry := NewAuditLog("user-1", "assistant", "stats.read", "stats").WithRemoteIP("")
		assert.Nil(t, entry.RemoteIP)
	})
}
