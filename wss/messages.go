// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wss

import (
	"github.com/luxfi/weakcoin/field"
	"github.com/luxfi/weakcoin/merkleforest"
	"github.com/luxfi/weakcoin/rbc"
)

// Message is the tagged sum of wire messages from spec §6. No dynamic
// dispatch is used beyond the type switch in ReplicaContext.process,
// per spec §9's "polymorphism over message variants is a tagged sum".
type Message interface{ isMessage() }

// WSSInit carries a single-secret share, its nonce, commitment, and the
// Merkle inclusion proof binding the commitment to the dealer's root.
type WSSInit struct {
	Origin      int
	SecretShare field.Element
	Nonce       field.Element
	Commitment  merkleforest.Hash
	Proof       merkleforest.Proof
}

func (WSSInit) isMessage() {}

// WSSEcho is the light root-only echo for the single-secret variant.
type WSSEcho struct {
	Root   merkleforest.Hash
	Origin int
	Sender int
}

func (WSSEcho) isMessage() {}

// WSSReady is the light root-only ready for the single-secret variant.
type WSSReady struct {
	Root   merkleforest.Hash
	Origin int
	Sender int
}

func (WSSReady) isMessage() {}

// BatchWSSInit carries the dealer's per-recipient shard and proof for
// the batched commitment-vector payload, plus the master root.
type BatchWSSInit struct {
	Origin     int
	MasterRoot merkleforest.Hash
	Entry      rbc.Entry
}

func (BatchWSSInit) isMessage() {}

// BatchWSSEcho is a full CT-RBC echo carrying sender's own shard.
type BatchWSSEcho struct {
	Origin     int
	MasterRoot merkleforest.Hash
	Sender     int
	Entry      rbc.Entry
}

func (BatchWSSEcho) isMessage() {}

// BatchWSSReady is a full CT-RBC ready carrying sender's own shard.
type BatchWSSReady struct {
	Origin     int
	MasterRoot merkleforest.Hash
	Sender     int
	Entry      rbc.Entry
}

func (BatchWSSReady) isMessage() {}

// BatchWSSReconstruct is broadcast by a replica once it has terminated,
// carrying its own shard as a post-termination nudge for stragglers.
// Per SPEC_FULL.md's resolution it is handled identically to READY for
// amplification/termination bookkeeping.
type BatchWSSReconstruct struct {
	Origin     int
	MasterRoot merkleforest.Hash
	Sender     int
	Entry      rbc.Entry
}

func (BatchWSSReconstruct) isMessage() {}

// GatherEcho is emitted to the downstream Gather layer once n-f
// instances have terminated (spec §6).
type GatherEcho struct {
	TerminatedOrigins []int
	Sender            int
}

func (GatherEcho) isMessage() {}
