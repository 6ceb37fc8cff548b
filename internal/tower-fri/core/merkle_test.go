package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerkleTreeRejectsBadLeafCounts(t *testing.T) {
	newHash, err := NewHasher(DefaultHashFunction)
	require.NoError(t, err)
	for _, n := range []int{0, 3, 6} {
		_, err := NewMerkleTree(newHash, make([]Element, n))
		assert.ErrorIs(t, err, ErrInvalidDomain, "%d leaves", n)
	}
}

func TestMerklePathsVerify(t *testing.T) {
	for _, hashName := range []string{"keccak256", "sha3-256", "sha256"} {
		t.Run(hashName, func(t *testing.T) {
			newHash, err := NewHasher(hashName)
			require.NoError(t, err)

			leaves := randomElems(t, MaxLevel, 32)
			tree, err := NewMerkleTree(newHash, leaves)
			require.NoError(t, err)
			require.Equal(t, 5, tree.Depth())
			root := tree.Root()

			for i, leaf := range leaves {
				path, err := tree.Path(i)
				require.NoError(t, err)
				require.Len(t, path, 5)
				assert.True(t, VerifyPath(newHash, root, i, leaf, path), "leaf %d", i)
			}
		})
	}
}

func TestMerklePathRejectsTampering(t *testing.T) {
	newHash, err := NewHasher(DefaultHashFunction)
	require.NoError(t, err)
	leaves := randomElems(t, MaxLevel, 16)
	tree, err := NewMerkleTree(newHash, leaves)
	require.NoError(t, err)
	root := tree.Root()
	path, err := tree.Path(7)
	require.NoError(t, err)

	assert.False(t, VerifyPath(newHash, root, 7, leaves[6], path), "wrong leaf")
	assert.False(t, VerifyPath(newHash, root, 6, leaves[7], path), "wrong index")
	assert.False(t, VerifyPath(newHash, root, 99, leaves[7], path), "index out of range")

	path[2][0] ^= 1
	assert.False(t, VerifyPath(newHash, root, 7, leaves[7], path), "corrupted sibling")
	path[2][0] ^= 1
	assert.True(t, VerifyPath(newHash, root, 7, leaves[7], path))

	_, err = tree.Path(16)
	assert.Error(t, err)
}

func TestMerkleTreeIsDeterministic(t *testing.T) {
	newHash, err := NewHasher(DefaultHashFunction)
	require.NoError(t, err)
	leaves := randomElems(t, MaxLevel, 64)

	first, err := NewMerkleTree(newHash, leaves)
	require.NoError(t, err)
	second, err := NewMerkleTree(newHash, leaves)
	require.NoError(t, err)
	assert.Equal(t, first.Root(), second.Root(), "parallel hashing must stay position-deterministic")
}

func TestSingleLeafTree(t *testing.T) {
	newHash, err := NewHasher(DefaultHashFunction)
	require.NoError(t, err)
	leaf := One(MaxLevel)
	tree, err := NewMerkleTree(newHash, []Element{leaf})
	require.NoError(t, err)
	require.Equal(t, 0, tree.Depth())

	path, err := tree.Path(0)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.True(t, VerifyPath(newHash, tree.Root(), 0, leaf, path))
}

func TestUnsupportedHashName(t *testing.T) {
	_, err := NewHasher("md5")
	assert.Error(t, err)
}
