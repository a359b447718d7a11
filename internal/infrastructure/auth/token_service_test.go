package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService(t *testing.T) {
	t.Run("IssueAndParse", func(t *testing.T) {
		svc := NewTokenService("test-secret")
		token, err := svc.Issue(7, "alice")
		require.NoError(t, err)

		userID, err := svc.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, int32(7), userID)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := NewTokenService("secret-a").Issue(7, "alice")
		require.NoError(t, err)

		_, err = NewTokenService("secret-b").Parse(token)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := NewTokenService("test-secret").Parse("not.a.token")
		assert.Error(t, err)
	})

	t.Run("EmptySecret", func(t *testing.T) {
		_, err := NewTokenService("").Issue(7, "alice")
		assert.Error(t, err)
	})
}
