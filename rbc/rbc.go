// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rbc implements C4, the Cachin-Tessaro erasure-coded reliable
// broadcast state machine, as a single per-origin Instance. It is pure:
// every Handle* method takes the current state and an inbound message
// and returns the effects the caller (wss.ReplicaContext, C7) should
// carry out, rather than performing network I/O itself — the
// (State, InMsg) -> (State, []Effect) shape spec §9's Design Notes call
// for, grounded in the quorum state machines under
// luxfi-consensus/quorum (poly_threshold.go, flat.go) which similarly
// separate pure vote-counting transitions from dispatch.
package rbc

import (
	"bytes"
	"fmt"

	"github.com/luxfi/weakcoin/erasure"
	"github.com/luxfi/weakcoin/merkleforest"
)

// State is the per-origin lifecycle state from spec §3.
type State int

const (
	Idle State = iota
	Initialised
	EchoSent
	ReadySent
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Initialised:
		return "Initialised"
	case EchoSent:
		return "EchoSent"
	case ReadySent:
		return "ReadySent"
	case Terminated:
		return "Terminated"
	default:
		return "Failed"
	}
}

// Entry is a replica's (shard, proof) pair as carried by INIT/ECHO/READY.
type Entry struct {
	Shard []byte
	Proof merkleforest.Proof
}

func (e Entry) equal(o Entry) bool {
	return bytes.Equal(e.Shard, o.Shard) && e.Proof.LeafHash == o.Proof.LeafHash &&
		e.Proof.Root == o.Proof.Root && e.Proof.LeafIndex == o.Proof.LeafIndex
}

// Effect is something the owning ReplicaContext must carry out: a
// broadcast, a termination notification, or a permanent-failure marker.
type Effect interface{ isEffect() }

// BroadcastEffect asks the caller to broadcast Kind carrying Entry for Origin.
type BroadcastEffect struct {
	Kind   string // "ECHO", "READY" or "RECONSTRUCT"
	Origin int
	Entry  Entry
}

func (BroadcastEffect) isEffect() {}

// TerminatedEffect reports that Origin has terminated with Payload.
type TerminatedEffect struct {
	Origin  int
	Payload []byte
}

func (TerminatedEffect) isEffect() {}

// FailedEffect reports a permanent reconstruction-root mismatch for Origin.
type FailedEffect struct{ Origin int }

func (FailedEffect) isEffect() {}

// Instance is the per-origin CT-RBC record run by one recipient replica.
type Instance struct {
	self, n, f, origLen int
	codec                *erasure.Codec
	origin               int

	state      State
	rootBound  bool
	root       merkleforest.Hash
	selfEntry  *Entry
	failed     bool
	terminated bool
	payload    []byte

	echos  map[int]Entry
	readys map[int]Entry

	pendingEchos  map[merkleforest.Hash]map[int]Entry
	pendingReadys map[merkleforest.Hash]map[int]Entry
}

// New constructs an Instance for the given origin. origLen is the
// known-out-of-band length of the payload C1 disperses for this origin
// (spec §4.1); it must be identical across all honest replicas.
func New(self, n, f, origin, origLen int, codec *erasure.Codec) *Instance {
	return &Instance{
		self:          self,
		n:             n,
		f:             f,
		origin:        origin,
		origLen:       origLen,
		codec:         codec,
		state:         Idle,
		echos:         make(map[int]Entry),
		readys:        make(map[int]Entry),
		pendingEchos:  make(map[merkleforest.Hash]map[int]Entry),
		pendingReadys: make(map[merkleforest.Hash]map[int]Entry),
	}
}

// State returns the instance's current lifecycle state.
func (ins *Instance) State() State { return ins.state }

// Failed reports whether the instance has permanently failed (spec §7's
// ReconstructionRootMismatch).
func (ins *Instance) Failed() bool { return ins.failed }

// Payload returns the accepted payload once Terminated, or nil otherwise.
func (ins *Instance) Payload() []byte { return ins.payload }

func selfConsistent(e Entry) bool {
	return e.Proof.LeafHash == merkleforest.HashLeaf(e.Shard) &&
		merkleforest.Verify(e.Proof.LeafHash, e.Proof, e.Proof.Root)
}

// HandleInit processes an INIT carrying self's own shard+proof.
func (ins *Instance) HandleInit(entry Entry) []Effect {
	if ins.terminated || ins.failed || ins.state != Idle {
		return nil
	}
	if entry.Proof.LeafIndex != ins.self || !selfConsistent(entry) {
		return nil // MalformedProof: discard, no state change
	}

	ins.bindRoot(entry.Proof.Root)
	ins.selfEntry = &entry
	ins.state = EchoSent

	effects := []Effect{BroadcastEffect{Kind: "ECHO", Origin: ins.origin, Entry: entry}}
	effects = append(effects, ins.drainPending()...)
	return effects
}

// HandleEcho processes an ECHO from sender.
func (ins *Instance) HandleEcho(sender int, entry Entry) []Effect {
	if ins.terminated || ins.failed {
		return nil
	}
	if !selfConsistent(entry) {
		return nil
	}

	if !ins.rootBound {
		ins.bufferPending(ins.pendingEchos, sender, entry)
		return nil
	}

	if entry.Proof.Root != ins.root {
		return nil // RootMismatch: discard
	}
	if !ins.insert(ins.echos, sender, entry) {
		return nil
	}

	return ins.checkEchoQuorum()
}

// HandleReady processes a READY (or, per the BatchWSSReconstruct
// resolution in SPEC_FULL.md, a post-termination reconstruct nudge
// treated identically) from sender.
func (ins *Instance) HandleReady(sender int, entry Entry) []Effect {
	if ins.terminated || ins.failed {
		return nil
	}
	if !selfConsistent(entry) {
		return nil
	}

	if !ins.rootBound {
		ins.bufferPending(ins.pendingReadys, sender, entry)
		return ins.tryBindFromReadyAmplification()
	}

	if entry.Proof.Root != ins.root {
		return nil
	}
	if !ins.insert(ins.readys, sender, entry) {
		return nil
	}

	return ins.checkReadyAmplificationAndTermination()
}

func (ins *Instance) bindRoot(root merkleforest.Hash) {
	if ins.rootBound {
		return
	}
	ins.rootBound = true
	ins.root = root
}

func (ins *Instance) bufferPending(buf map[merkleforest.Hash]map[int]Entry, sender int, entry Entry) {
	bucket, ok := buf[entry.Proof.Root]
	if !ok {
		bucket = make(map[int]Entry)
		buf[entry.Proof.Root] = bucket
	}
	if existing, ok := bucket[sender]; ok && !existing.equal(entry) {
		return // DuplicateFromSender with conflicting payload: discard
	}
	bucket[sender] = entry
}

// insert applies duplicate-suppression (Invariant 4 / testable property
// 6): identical re-sends are a no-op, conflicting re-sends (equivocation)
// are discarded, and only a genuinely new entry returns true.
func (ins *Instance) insert(m map[int]Entry, sender int, entry Entry) bool {
	if _, ok := m[sender]; ok {
		return false // already counted, whether identical replay or discarded equivocation
	}
	m[sender] = entry
	return true
}

// drainPending revalidates buffered ECHO/READY entries once the root is
// bound (spec §9's buffer-revalidation resolution) and folds matching
// ones into the live maps.
func (ins *Instance) drainPending() []Effect {
	var effects []Effect

	if bucket, ok := ins.pendingEchos[ins.root]; ok {
		for sender, entry := range bucket {
			if selfConsistent(entry) && entry.Proof.Root == ins.root {
				ins.insert(ins.echos, sender, entry)
			}
		}
	}
	ins.pendingEchos = make(map[merkleforest.Hash]map[int]Entry)

	if bucket, ok := ins.pendingReadys[ins.root]; ok {
		for sender, entry := range bucket {
			if selfConsistent(entry) && entry.Proof.Root == ins.root {
				ins.insert(ins.readys, sender, entry)
			}
		}
	}
	ins.pendingReadys = make(map[merkleforest.Hash]map[int]Entry)

	effects = append(effects, ins.checkEchoQuorum()...)
	effects = append(effects, ins.checkReadyAmplificationAndTermination()...)
	return effects
}

// tryBindFromReadyAmplification binds the root from f+1 buffered READYs
// sharing the same root when INIT never arrives — the amplification
// threshold already implies at least one honest sender, per spec §4.4's
// amplification-via-reconstruction rationale.
func (ins *Instance) tryBindFromReadyAmplification() []Effect {
	if ins.rootBound {
		return nil
	}
	for root, bucket := range ins.pendingReadys {
		if len(bucket) >= ins.f+1 {
			ins.bindRoot(root)
			return ins.drainPending()
		}
	}
	return nil
}

func (ins *Instance) checkEchoQuorum() []Effect {
	if ins.state != EchoSent {
		return nil // already sent READY, or self has no shard yet to attach
	}
	if len(ins.echos) < 2*ins.f+1 {
		return nil
	}

	selfEntry, err := ins.ownEntry()
	if err != nil {
		return nil // ErasureShortage: retry on next READY arrival
	}

	ins.state = ReadySent
	ins.insert(ins.readys, ins.self, selfEntry)
	return []Effect{BroadcastEffect{Kind: "READY", Origin: ins.origin, Entry: selfEntry}}
}

func (ins *Instance) checkReadyAmplificationAndTermination() []Effect {
	var effects []Effect

	if ins.state != Terminated && ins.state != ReadySent && len(ins.readys) >= ins.f+1 {
		selfEntry, err := ins.ownEntry()
		if err == nil {
			ins.state = ReadySent
			ins.insert(ins.readys, ins.self, selfEntry)
			effects = append(effects, BroadcastEffect{Kind: "READY", Origin: ins.origin, Entry: selfEntry})
		}
	}

	if ins.state == Terminated || ins.failed {
		return effects
	}
	if len(ins.readys) < 2*ins.f+1 {
		return effects
	}

	payload, ok := ins.reconstructAndVerify()
	if !ok {
		ins.failed = true
		return append(effects, FailedEffect{Origin: ins.origin})
	}

	ins.state = Terminated
	ins.terminated = true
	ins.payload = payload
	// Nudge stragglers still short of quorum with our own shard, per
	// batchwss_ready.rs:94-102.
	if selfEntry, err := ins.ownEntry(); err == nil {
		effects = append(effects, BroadcastEffect{Kind: "RECONSTRUCT", Origin: ins.origin, Entry: selfEntry})
	}
	return append(effects, TerminatedEffect{Origin: ins.origin, Payload: payload})
}

// ownEntry returns self's own (shard, proof), reconstructing it from the
// readys collected so far if INIT was never received.
func (ins *Instance) ownEntry() (Entry, error) {
	if ins.selfEntry != nil {
		return *ins.selfEntry, nil
	}

	shards, err := ins.reconstructShards(ins.readys)
	if err != nil {
		return Entry{}, err
	}

	tree, leafHashes, err := ins.buildTree(shards)
	if err != nil {
		return Entry{}, err
	}
	proof, err := tree.Proof(ins.self)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Shard: shards[ins.self], Proof: proof}
	_ = leafHashes
	ins.selfEntry = &entry
	return entry, nil
}

func (ins *Instance) reconstructShards(from map[int]Entry) ([][]byte, error) {
	opts := make([][]byte, ins.n)
	for sender, e := range from {
		opts[sender] = e.Shard
	}
	return ins.codec.ReconstructAll(opts)
}

func (ins *Instance) buildTree(shards [][]byte) (*merkleforest.Tree, []merkleforest.Hash, error) {
	leaves := make([]merkleforest.Hash, len(shards))
	for i, s := range shards {
		leaves[i] = merkleforest.HashLeaf(s)
	}
	tree, err := merkleforest.New(leaves)
	if err != nil {
		return nil, nil, err
	}
	return tree, leaves, nil
}

func (ins *Instance) reconstructAndVerify() ([]byte, bool) {
	shards, err := ins.reconstructShards(ins.readys)
	if err != nil {
		return nil, false
	}

	tree, _, err := ins.buildTree(shards)
	if err != nil {
		return nil, false
	}
	if tree.Root() != ins.root {
		return nil, false // ReconstructionRootMismatch: permanent failure
	}

	if ins.origLen > ins.codec.K()*len(shards[0]) {
		return nil, false
	}
	out := make([]byte, 0, ins.origLen)
	for i := 0; i < ins.codec.K() && len(out) < ins.origLen; i++ {
		out = append(out, shards[i]...)
	}
	if len(out) < ins.origLen {
		return nil, false
	}
	return out[:ins.origLen], nil
}

// Describe returns a short diagnostic string, used only for logging.
func (ins *Instance) Describe() string {
	return fmt.Sprintf("origin=%d state=%s echos=%d readys=%d failed=%t",
		ins.origin, ins.state, len(ins.echos), len(ins.readys), ins.failed)
}
