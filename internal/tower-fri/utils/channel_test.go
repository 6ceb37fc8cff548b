package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
)

func newTestChannel(t *testing.T, hashName, seed string) *Channel {
	t.Helper()
	newHash, err := core.NewHasher(hashName)
	require.NoError(t, err)
	ch, err := NewChannel(newHash, []byte(seed))
	require.NoError(t, err)
	return ch
}

func TestNewChannelRejectsEmptySeed(t *testing.T) {
	newHash, err := core.NewHasher(core.DefaultHashFunction)
	require.NoError(t, err)
	_, err = NewChannel(newHash, nil)
	assert.Error(t, err)
	_, err = NewChannel(newHash, []byte{})
	assert.Error(t, err)
}

func TestChannelIsDeterministic(t *testing.T) {
	for _, hashName := range []string{"keccak256", "sha3-256", "sha256"} {
		t.Run(hashName, func(t *testing.T) {
			a := newTestChannel(t, hashName, "proto/test")
			b := newTestChannel(t, hashName, "proto/test")

			a.Absorb([]byte("commitment"))
			b.Absorb([]byte("commitment"))
			a.AbsorbUint64(42)
			b.AbsorbUint64(42)

			assert.True(t, a.SqueezeChallenge().Equal(b.SqueezeChallenge()))
			assert.True(t, a.SqueezeChallenge().Equal(b.SqueezeChallenge()),
				"counter advances identically")

			ai, err := a.SqueezeIndex(1000)
			require.NoError(t, err)
			bi, err := b.SqueezeIndex(1000)
			require.NoError(t, err)
			assert.Equal(t, ai, bi)
		})
	}
}

func TestChallengesDependOnTranscript(t *testing.T) {
	a := newTestChannel(t, core.DefaultHashFunction, "proto/test")
	b := newTestChannel(t, core.DefaultHashFunction, "proto/test")
	c := newTestChannel(t, core.DefaultHashFunction, "proto/other")

	a.Absorb([]byte{1})
	b.Absorb([]byte{2})
	c.Absorb([]byte{1})

	ca := a.SqueezeChallenge()
	assert.False(t, ca.Equal(b.SqueezeChallenge()), "different absorbs")
	assert.False(t, ca.Equal(c.SqueezeChallenge()), "different seeds")
	assert.Equal(t, core.MaxLevel, ca.Level())
}

func TestRepeatedSqueezesDiffer(t *testing.T) {
	ch := newTestChannel(t, core.DefaultHashFunction, "proto/test")
	first := ch.SqueezeChallenge()
	second := ch.SqueezeChallenge()
	assert.False(t, first.Equal(second))
}

func TestSqueezeIndexStaysBelowBound(t *testing.T) {
	ch := newTestChannel(t, core.DefaultHashFunction, "proto/test")

	for _, bound := range []uint64{1, 2, 7, 64, 1000, 1 << 40} {
		for i := 0; i < 32; i++ {
			idx, err := ch.SqueezeIndex(bound)
			require.NoError(t, err)
			assert.Less(t, idx, bound)
		}
	}

	_, err := ch.SqueezeIndex(0)
	assert.Error(t, err)
}

func TestSqueezeIndicesCoversSmallDomains(t *testing.T) {
	ch := newTestChannel(t, core.DefaultHashFunction, "proto/test")

	indices, err := ch.SqueezeIndices(144, 8)
	require.NoError(t, err)
	require.Len(t, indices, 8)
	for i, idx := range indices {
		assert.Equal(t, uint64(i), idx, "small domains are checked exhaustively")
	}

	indices, err = ch.SqueezeIndices(16, 1<<20)
	require.NoError(t, err)
	assert.Len(t, indices, 16)

	_, err = ch.SqueezeIndices(0, 10)
	assert.Error(t, err)
	_, err = ch.SqueezeIndices(10, 0)
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsPowerOfTwo(1))
	assert.True(t, IsPowerOfTwo(64))
	assert.False(t, IsPowerOfTwo(0))
	assert.False(t, IsPowerOfTwo(12))
	assert.Equal(t, 0, Log2(1))
	assert.Equal(t, 6, Log2(64))
	assert.Equal(t, 6, Log2(100))
}
