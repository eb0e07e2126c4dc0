// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package merkleforest builds one binary Merkle tree per CT-RBC/WSS
// instance over the n per-replica leaves (shard hashes or commitment
// hashes) and verifies inclusion proofs against a bound root.
//
// Leaves are domain-separated from internal nodes the way
// crypto/binding.Merkle3 in the consensus stack tags each input with a
// one-byte index before hashing, so a leaf hash can never collide with
// an internal-node hash for the same bytes.
package merkleforest

import (
	"crypto/sha256"
	"fmt"

	"github.com/luxfi/ids"
)

// Hash is a 32-byte digest, aliased to the consensus stack's canonical
// content-addressed ID type so Merkle roots and commitments interoperate
// with the rest of the ecosystem.
type Hash = ids.ID

const (
	leafTag     = byte(0x00)
	internalTag = byte(0x01)
)

// HashLeaf computes the domain-separated leaf hash H_merkle(x).
func HashLeaf(data []byte) Hash {
	h := sha256.New()
	h.Write([]byte{leafTag})
	h.Write(data)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

func hashInternal(left, right Hash) Hash {
	h := sha256.New()
	h.Write([]byte{internalTag})
	h.Write(left[:])
	h.Write(right[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Proof is an inclusion proof: the ordered sibling hashes from leaf to
// root, plus the leaf's index and the leaf hash itself (so a proof is
// self-contained and carries the root it validates against, matching
// CTRBCMsg's invariant that proof.leaf_hash == H(shard)).
type Proof struct {
	LeafIndex int
	LeafHash  Hash
	Siblings  []Hash
	Root      Hash
}

// Tree is a Merkle tree over n leaves, ordered by replica id 0..n-1.
// Odd-count levels duplicate the last node, the standard tie-break.
type Tree struct {
	levels [][]Hash
}

// New builds a tree over the given leaves. len(leaves) must be >= 1.
func New(leaves []Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("merkleforest: cannot build a tree with zero leaves")
	}

	levels := [][]Hash{append([]Hash(nil), leaves...)}
	for len(levels[len(levels)-1]) > 1 {
		cur := levels[len(levels)-1]
		if len(cur)%2 == 1 {
			cur = append(cur, cur[len(cur)-1])
		}
		next := make([]Hash, len(cur)/2)
		for i := range next {
			next[i] = hashInternal(cur[2*i], cur[2*i+1])
		}
		levels = append(levels, next)
	}
	return &Tree{levels: levels}, nil
}

// Root returns the tree's root hash.
func (t *Tree) Root() Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the inclusion proof for the leaf at index.
func (t *Tree) Proof(index int) (Proof, error) {
	leaves := t.levels[0]
	if index < 0 || index >= len(leaves) {
		return Proof{}, fmt.Errorf("merkleforest: leaf index %d out of range [0,%d)", index, len(leaves))
	}

	proof := Proof{
		LeafIndex: index,
		LeafHash:  leaves[index],
		Root:      t.Root(),
	}

	idx := index
	for level := 0; level < len(t.levels)-1; level++ {
		cur := t.levels[level]
		// Re-derive the (possibly duplicated) sibling without mutating t.levels.
		siblingIdx := idx ^ 1
		var sibling Hash
		if siblingIdx < len(cur) {
			sibling = cur[siblingIdx]
		} else {
			sibling = cur[idx] // duplicated last node
		}
		proof.Siblings = append(proof.Siblings, sibling)
		idx /= 2
	}
	return proof, nil
}

// Verify recomputes the root from leaf and proof.Siblings and reports
// whether it equals root. It also checks proof.LeafHash matches leaf and
// proof.Root matches the supplied root, per spec §4.2.
func Verify(leaf Hash, proof Proof, root Hash) bool {
	if proof.LeafHash != leaf || proof.Root != root {
		return false
	}

	cur := leaf
	idx := proof.LeafIndex
	for _, sibling := range proof.Siblings {
		if idx%2 == 0 {
			cur = hashInternal(cur, sibling)
		} else {
			cur = hashInternal(sibling, cur)
		}
		idx /= 2
	}
	return cur == root
}
