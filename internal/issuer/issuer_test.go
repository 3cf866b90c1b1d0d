package issuer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIssuer_MintOne(t *testing.T) {
	iss := NewMemoryIssuer()

	id, err := iss.MintOne(context.Background(), "alice", "game-authority", "plush", "ipfs://plush", "rare")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	c, ok := iss.Get(id)
	require.True(t, ok)
	assert.Equal(t, "alice", c.Owner)
	assert.Equal(t, "game-authority", c.CollectionAuthority)
	assert.Equal(t, "rare", c.Tier)
	assert.False(t, c.IssuedAt.IsZero())

	owned := iss.Owned("alice")
	require.Len(t, owned, 1)
	assert.Equal(t, id, owned[0].ID)
	assert.Empty(t, iss.Owned("bob"))
}

func TestMemoryIssuer_FailNextIsOneShot(t *testing.T) {
	iss := NewMemoryIssuer()
	iss.FailNext(true)

	_, err := iss.MintOne(context.Background(), "alice", "auth", "plush", "", "common")
	require.ErrorIs(t, err, ErrIssuanceFailed)

	// The injected failure applies to one call only.
	id, err := iss.MintOne(context.Background(), "alice", "auth", "plush", "", "common")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Len(t, iss.Owned("alice"), 1)
}
