package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(bcrypt.MinCost)

	for _, pw := range []string{"pw123", "correct horse battery staple", "ünïcødé", " "} {
		hashed, err := h.Hash(pw)
		require.NoError(t, err)
		assert.True(t, h.Verify(pw, hashed), "password %q should verify", pw)
	}
}

func TestPasswordHasher_SaltFreshness(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(bcrypt.MinCost)

	first, err := h.Hash("pw123")
	require.NoError(t, err)
	second, err := h.Hash("pw123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("pw123", first))
	assert.True(t, h.Verify("pw123", second))
}

func TestPasswordHasher_Mismatch(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(bcrypt.MinCost)

	hashed, err := h.Hash("pw123")
	require.NoError(t, err)

	assert.False(t, h.Verify("pw124", hashed))
	assert.False(t, h.Verify("", hashed))
	assert.False(t, h.Verify("pw123", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("pw123", ""))
}

func TestPasswordHasher_CostFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(bcrypt.MinCost).cost)
}

func TestPasswordHasher_VerifyDummyDoesNotPanic(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(bcrypt.MinCost)
	require.NotEmpty(t, h.dummy)
	h.VerifyDummy("whatever")
}
