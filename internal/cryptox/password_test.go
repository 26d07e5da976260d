package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(MinCost)

	hash, err := h.Hash("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", hash)

	assert.True(t, h.Compare(hash, "pw1"))
	assert.False(t, h.Compare(hash, "pw2"))
}

func TestHasher_CostFloor(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("secret")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, MinCost, cost)
}

func TestHasher_RejectsMalformed(t *testing.T) {
	h := NewHasher(MinCost)
	assert.False(t, h.Compare("", "anything"))
	assert.False(t, h.Compare("not-a-hash", "anything"))
}

func TestHasher_TooLong(t *testing.T) {
	_, err := NewHasher(MinCost).Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestIsHash(t *testing.T) {
	hash, err := NewHasher(MinCost).Hash("pw")
	require.NoError(t, err)

	weak, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, IsHash(hash))
	assert.False(t, IsHash(string(weak)))
	assert.False(t, IsHash("pw"))
	assert.False(t, IsHash(""))
}
