package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermission_Allows(t *testing.T) {
	tests := []struct {
		name     string
		held     Permission
		required Permission
		allowed  bool
	}{
		{name: "read only covers read only", held: PermissionReadOnly, required: PermissionReadOnly, allowed: true},
		{name: "read only cannot write", held: PermissionReadOnly, required: PermissionReadWriteDerived, allowed: false},
		{name: "read write covers read only", held: PermissionReadWriteDerived, required: PermissionReadOnly, allowed: true},
		{name: "read write covers itself", held: PermissionReadWriteDerived, required: PermissionReadWriteDerived, allowed: true},
		{name: "unknown required permission", held: PermissionReadWriteDerived, required: Permission("admin"), allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.held.Allows(tt.required))
		})
	}
}

func TestNewRegistry(t *testing.T) {
	t.Run("valid grants", func(t *testing.T) {
		r, err := NewRegistry([]string{"assistant:read_only", "coach:read_write_derived"})
		require.NoError(t, err)

		perm, ok := r.Lookup("assistant")
		require.True(t, ok)
		assert.Equal(t, PermissionReadOnly, perm)

		perm, ok = r.Lookup("coach")
		require.True(t, ok)
		assert.Equal(t, PermissionReadWriteDerived, perm)
	})

	t.Run("unknown consumer", func(t *testing.T) {
		r, err := NewRegistry(nil)
		require.NoError(t, err)
		_, ok := r.Lookup("stranger")
		assert.False(t, ok)
	})

	t.Run("blank entries skipped", func(t *testing.T) {
		r, err := NewRegistry([]string{"", " ", "assistant:read_only"})
		require.NoError(t, err)
		_, ok := r.Lookup("assistant")
		assert.True(t, ok)
	})

	t.Run("malformed grant", func(t *testing.T) {
		_, err := NewRegistry([]string{"assistant"})
		assert.Error(t, err)
	})

	t.Run("unknown permission", func(t *testing.T) {
		_, err := NewRegistry([]string{"assistant:root"})
		assert.Error(t, err)
	})
}
