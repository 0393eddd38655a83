package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	h, err := HashPassword("segredo123")
	require.NoError(t, err)
	assert.NotEqual(t, "segredo123", h)
	assert.True(t, CheckPassword("segredo123", h))
	assert.False(t, CheckPassword("segredo124", h))
}

func TestHashPasswordTooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 100))
	require.Error(t, err)
}

func TestNewIDUnique(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
