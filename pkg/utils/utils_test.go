package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"The Forest Hiker", "the-forest-hiker"},
		{"  The Sea   Explorer  ", "the-sea-explorer"},
		{"Crème Brûlée & Café Tour", "creme-brulee-cafe-tour"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in), tc.in)
	}
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("pass1234")
	require.NoError(t, err)
	assert.NotEqual(t, "pass1234", h)
	assert.True(t, CheckPassword("pass1234", h))
	assert.False(t, CheckPassword("wrong", h))
}

func TestResetToken(t *testing.T) {
	plain, hashed := NewResetToken()
	assert.Len(t, plain, 64)
	assert.Equal(t, hashed, HashToken(plain))
	assert.NotEqual(t, plain, hashed)
}
