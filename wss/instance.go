// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// WSSInstance implements C5: the single-secret WSS variant. Per
// SPEC_FULL.md's "single-secret reconstruction" resolution, it disperses
// only a Merkle root (the per-replica shard is private, so ECHO/READY
// here attest root equality, not a reconstructible shard) — a replica
// that misses WSSInit still reaches Terminated via root quorum but
// never populates its own accepted secret record.
package wss

import (
	"crypto/sha256"
	"fmt"

	"github.com/luxfi/weakcoin/field"
	"github.com/luxfi/weakcoin/merkleforest"
	"github.com/luxfi/weakcoin/rbc"
)

// SecretRecord is a dealer's committed share as held by one recipient.
type SecretRecord struct {
	Share      field.Element
	Nonce      field.Element
	Commitment merkleforest.Hash
}

// commitmentHash computes H(encode_be(nonce+share)) per spec §4.5,
// using a fixed 32-byte big-endian encoding of the field sum so the
// hash is stable regardless of the sum's leading zero bytes.
func commitmentHash(nonce, share field.Element) merkleforest.Hash {
	sum := nonce.Add(share)
	var buf [32]byte
	sumBytes := sum.Bytes()
	copy(buf[32-len(sumBytes):], sumBytes)
	digest := sha256.Sum256(buf[:])
	return merkleforest.Hash(digest)
}

// WSSInstance is the per-origin record run by one recipient replica for
// the single-secret variant.
type WSSInstance struct {
	self, n, f, origin int

	state     rbc.State
	rootBound bool
	root      merkleforest.Hash
	failed    bool

	record *SecretRecord

	echoSenders  map[int]bool
	readySenders map[int]bool

	pendingEchoSenders  map[merkleforest.Hash]map[int]bool
	pendingReadySenders map[merkleforest.Hash]map[int]bool
}

// NewInstance constructs a WSSInstance for the given origin.
func NewInstance(self, n, f, origin int) *WSSInstance {
	return &WSSInstance{
		self:                self,
		n:                   n,
		f:                   f,
		origin:              origin,
		state:               rbc.Idle,
		echoSenders:         make(map[int]bool),
		readySenders:        make(map[int]bool),
		pendingEchoSenders:  make(map[merkleforest.Hash]map[int]bool),
		pendingReadySenders: make(map[merkleforest.Hash]map[int]bool),
	}
}

// State returns the instance's lifecycle state.
func (ins *WSSInstance) State() rbc.State { return ins.state }

// Failed reports whether the instance permanently failed.
func (ins *WSSInstance) Failed() bool { return ins.failed }

// Record returns the accepted SecretRecord if this replica ever
// received a valid WSSInit for the origin, or nil otherwise.
func (ins *WSSInstance) Record() *SecretRecord { return ins.record }

// HandleInit processes a WSSInit addressed to self.
func (ins *WSSInstance) HandleInit(share, nonce field.Element, commitment merkleforest.Hash, proof merkleforest.Proof) []Effect {
	if ins.terminatedOrFailed() || ins.state != rbc.Idle {
		return nil
	}

	if commitmentHash(nonce, share) != commitment {
		return nil // MalformedProof: wrong commitment, discard
	}
	if proof.LeafHash != merkleforest.HashLeaf(commitment[:]) || !merkleforest.Verify(proof.LeafHash, proof, proof.Root) {
		return nil
	}

	ins.bindRoot(proof.Root)
	ins.record = &SecretRecord{Share: share, Nonce: nonce, Commitment: commitment}
	ins.state = rbc.EchoSent

	effects := []Effect{BroadcastEffect{Msg: WSSEcho{Root: ins.root, Origin: ins.origin, Sender: ins.self}}}
	effects = append(effects, ins.drainPending()...)
	return effects
}

// HandleEcho processes a WSSEcho from sender.
func (ins *WSSInstance) HandleEcho(sender int, root merkleforest.Hash) []Effect {
	if ins.terminatedOrFailed() {
		return nil
	}

	if !ins.rootBound {
		bufferSet(ins.pendingEchoSenders, root, sender)
		return nil
	}
	if root != ins.root {
		return nil
	}
	if ins.echoSenders[sender] {
		return nil // duplicate: idempotent no-op
	}
	ins.echoSenders[sender] = true

	return ins.checkEchoQuorum()
}

// HandleReady processes a WSSReady from sender.
func (ins *WSSInstance) HandleReady(sender int, root merkleforest.Hash) []Effect {
	if ins.terminatedOrFailed() {
		return nil
	}

	if !ins.rootBound {
		bufferSet(ins.pendingReadySenders, root, sender)
		return ins.tryBindFromAmplification()
	}
	if root != ins.root {
		return nil
	}
	if ins.readySenders[sender] {
		return nil
	}
	ins.readySenders[sender] = true

	return ins.checkAmplificationAndTermination()
}

func (ins *WSSInstance) terminatedOrFailed() bool {
	return ins.state == rbc.Terminated || ins.failed
}

func (ins *WSSInstance) bindRoot(root merkleforest.Hash) {
	if ins.rootBound {
		return
	}
	ins.rootBound = true
	ins.root = root
}

func bufferSet(buf map[merkleforest.Hash]map[int]bool, root merkleforest.Hash, sender int) {
	bucket, ok := buf[root]
	if !ok {
		bucket = make(map[int]bool)
		buf[root] = bucket
	}
	bucket[sender] = true
}

func (ins *WSSInstance) drainPending() []Effect {
	if bucket, ok := ins.pendingEchoSenders[ins.root]; ok {
		for sender := range bucket {
			ins.echoSenders[sender] = true
		}
	}
	ins.pendingEchoSenders = make(map[merkleforest.Hash]map[int]bool)

	if bucket, ok := ins.pendingReadySenders[ins.root]; ok {
		for sender := range bucket {
			ins.readySenders[sender] = true
		}
	}
	ins.pendingReadySenders = make(map[merkleforest.Hash]map[int]bool)

	effects := ins.checkEchoQuorum()
	return append(effects, ins.checkAmplificationAndTermination()...)
}

func (ins *WSSInstance) tryBindFromAmplification() []Effect {
	if ins.rootBound {
		return nil
	}
	for root, bucket := range ins.pendingReadySenders {
		if len(bucket) >= ins.f+1 {
			ins.bindRoot(root)
			return ins.drainPending()
		}
	}
	return nil
}

func (ins *WSSInstance) checkEchoQuorum() []Effect {
	if ins.state != rbc.EchoSent {
		return nil
	}
	if len(ins.echoSenders) < 2*ins.f+1 {
		return nil
	}

	ins.state = rbc.ReadySent
	return []Effect{BroadcastEffect{Msg: WSSReady{Root: ins.root, Origin: ins.origin, Sender: ins.self}}}
}

func (ins *WSSInstance) checkAmplificationAndTermination() []Effect {
	var effects []Effect

	if ins.state != rbc.Terminated && ins.state != rbc.ReadySent && len(ins.readySenders) >= ins.f+1 {
		ins.state = rbc.ReadySent
		effects = append(effects, BroadcastEffect{Msg: WSSReady{Root: ins.root, Origin: ins.origin, Sender: ins.self}})
	}

	if ins.state == rbc.Terminated {
		return effects
	}
	if len(ins.readySenders) < 2*ins.f+1 {
		return effects
	}

	ins.state = rbc.Terminated
	eff := TerminatedSecretEffect{Origin: ins.origin}
	if ins.record != nil {
		eff.Accepted = true
		eff.Record = *ins.record
	}
	return append(effects, eff)
}

// Describe returns a short diagnostic string for logging.
func (ins *WSSInstance) Describe() string {
	return fmt.Sprintf("origin=%d state=%s echos=%d readys=%d", ins.origin, ins.state, len(ins.echoSenders), len(ins.readySenders))
}
