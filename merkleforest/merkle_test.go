// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkleforest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootStableAndProofVerifies(t *testing.T) {
	require := require.New(t)

	leaves := make([]Hash, 4)
	for i := range leaves {
		leaves[i] = HashLeaf([]byte{byte(i)})
	}

	tree, err := New(leaves)
	require.NoError(err)
	root := tree.Root()

	for i := range leaves {
		proof, err := tree.Proof(i)
		require.NoError(err)
		require.True(Verify(leaves[i], proof, root))
	}
}

func TestVerifyRejectsWrongLeaf(t *testing.T) {
	require := require.New(t)

	leaves := []Hash{HashLeaf([]byte("a")), HashLeaf([]byte("b")), HashLeaf([]byte("c"))}
	tree, err := New(leaves)
	require.NoError(err)

	proof, err := tree.Proof(1)
	require.NoError(err)

	require.False(Verify(HashLeaf([]byte("tampered")), proof, tree.Root()))
}

func TestOddLeafCountDuplicatesLast(t *testing.T) {
	require := require.New(t)

	leaves := []Hash{HashLeaf([]byte("x")), HashLeaf([]byte("y")), HashLeaf([]byte("z"))}
	tree, err := New(leaves)
	require.NoError(err)

	for i := range leaves {
		proof, err := tree.Proof(i)
		require.NoError(err)
		require.True(Verify(leaves[i], proof, tree.Root()))
	}
}

func TestSingleLeafTreeRootIsLeaf(t *testing.T) {
	require := require.New(t)

	leaf := HashLeaf([]byte("solo"))
	tree, err := New([]Hash{leaf})
	require.NoError(err)
	require.Equal(leaf, tree.Root())
}
