// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wss

import "github.com/luxfi/weakcoin/merkleforest"

// Effect is something ReplicaContext must carry out after a handler
// runs: a broadcast, a termination/failure notification, or the
// downstream Gather trigger. Keeping handlers pure and effect-returning
// is the queue-based dispatch spec §9's Design Notes call for, avoiding
// the recursive self-delivery of the original implementation.
type Effect interface{ isEffect() }

// BroadcastEffect asks the context to broadcast Msg to every replica
// (including self, via self-enqueue).
type BroadcastEffect struct{ Msg Message }

func (BroadcastEffect) isEffect() {}

// TerminatedSecretEffect reports C5 termination for Origin. Accepted is
// false when this replica terminated via root-quorum alone without ever
// holding its own WSSInit (see SPEC_FULL.md's single-secret reconstruction
// resolution).
type TerminatedSecretEffect struct {
	Origin   int
	Accepted bool
	Record   SecretRecord
}

func (TerminatedSecretEffect) isEffect() {}

// TerminatedBatchEffect reports C6 termination for Origin, carrying the
// recovered commitment vectors: Commitments[i] is the i-th batched
// secret's per-replica commitment vector (n entries), per
// SPEC_FULL.md's commitment-vector chunking feature.
type TerminatedBatchEffect struct {
	Origin      int
	Commitments [][]merkleforest.Hash
}

func (TerminatedBatchEffect) isEffect() {}

// FailedEffect reports a permanent ReconstructionRootMismatch for Origin.
type FailedEffect struct{ Origin int }

func (FailedEffect) isEffect() {}
