package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Content("user-1", "我今天吃了苹果"), Content("user-1", "我今天吃了苹果"))
	})

	t.Run("whitespace variations collapse", func(t *testing.T) {
		assert.Equal(t, Content("user-1", "hello  world"), Content("user-1", "hello\tworld"))
		assert.Equal(t, Content("user-1", " hello world "), Content("user-1", "hello world"))
	})

	t.Run("content changes the fingerprint", func(t *testing.T) {
		assert.NotEqual(t, Content("user-1", "吃了苹果"), Content("user-1", "吃了香蕉"))
	})

	t.Run("scoped to the user", func(t *testing.T) {
		assert.NotEqual(t, Content("user-1", "吃了苹果"), Content("user-2", "吃了苹果"))
	})

	t.Run("hex sha256", func(t *testing.T) {
		assert.Len(t, Content("user-1", "吃了苹果"), 64)
	})
}
