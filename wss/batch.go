// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// BatchWSSInstance implements C6: a single CT-RBC instance (rbc.Instance)
// amortised over batchSize secrets' worth of per-replica commitments.
// Grounded on original_source's consensus/dag_rider/src/node/batch_wss
// and consensus/hash_cc_baa/src/node/batch_wss (batchwss_echo.rs,
// batchwss_ready.rs) for the concatenate-disperse-chunk shape.
package wss

import (
	"fmt"

	"github.com/luxfi/weakcoin/erasure"
	"github.com/luxfi/weakcoin/merkleforest"
	"github.com/luxfi/weakcoin/rbc"
)

// CommitmentHashSize is the fixed width of one commitment hash (spec §6).
const CommitmentHashSize = 32

// BatchWSSInstance wraps rbc.Instance with the master-root bookkeeping
// and termination-time commitment-vector chunking from spec §4.6.
type BatchWSSInstance struct {
	self, n, f, origin, batchSize int
	rbcInst                       *rbc.Instance
	commitments                   [][]merkleforest.Hash
}

// NewBatchInstance constructs a BatchWSSInstance for origin, dispersing
// batchSize secrets' n-wide commitment vectors (batchSize*n*32 bytes
// total, known out-of-band to every replica per spec §4.1).
func NewBatchInstance(self, n, f, origin, batchSize int, codec *erasure.Codec) *BatchWSSInstance {
	origLen := batchSize * n * CommitmentHashSize
	return &BatchWSSInstance{
		self:      self,
		n:         n,
		f:         f,
		origin:    origin,
		batchSize: batchSize,
		rbcInst:   rbc.New(self, n, f, origin, origLen, codec),
	}
}

// State returns the underlying CT-RBC lifecycle state.
func (b *BatchWSSInstance) State() rbc.State { return b.rbcInst.State() }

// Failed reports whether the instance permanently failed.
func (b *BatchWSSInstance) Failed() bool { return b.rbcInst.Failed() }

// Commitments returns the recovered per-secret commitment vectors once
// terminated, or nil otherwise.
func (b *BatchWSSInstance) Commitments() [][]merkleforest.Hash { return b.commitments }

// HandleInit processes a BatchWSSInit.
func (b *BatchWSSInstance) HandleInit(masterRoot merkleforest.Hash, entry rbc.Entry) []Effect {
	if entry.Proof.Root != masterRoot {
		return nil
	}
	return b.translate(b.rbcInst.HandleInit(entry), masterRoot)
}

// HandleEcho processes a BatchWSSEcho.
func (b *BatchWSSInstance) HandleEcho(sender int, masterRoot merkleforest.Hash, entry rbc.Entry) []Effect {
	if entry.Proof.Root != masterRoot {
		return nil
	}
	return b.translate(b.rbcInst.HandleEcho(sender, entry), masterRoot)
}

// HandleReady processes a BatchWSSReady.
func (b *BatchWSSInstance) HandleReady(sender int, masterRoot merkleforest.Hash, entry rbc.Entry) []Effect {
	if entry.Proof.Root != masterRoot {
		return nil
	}
	return b.translate(b.rbcInst.HandleReady(sender, entry), masterRoot)
}

// HandleReconstruct processes a BatchWSSReconstruct. Per SPEC_FULL.md's
// resolution this is bookkeeping-equivalent to a READY.
func (b *BatchWSSInstance) HandleReconstruct(sender int, masterRoot merkleforest.Hash, entry rbc.Entry) []Effect {
	return b.HandleReady(sender, masterRoot, entry)
}

func (b *BatchWSSInstance) translate(rbcEffects []rbc.Effect, masterRoot merkleforest.Hash) []Effect {
	var out []Effect
	for _, e := range rbcEffects {
		switch v := e.(type) {
		case rbc.BroadcastEffect:
			out = append(out, BroadcastEffect{Msg: b.wireMessage(v, masterRoot)})
		case rbc.TerminatedEffect:
			b.commitments = chunkCommitments(v.Payload, b.n, b.batchSize)
			out = append(out, TerminatedBatchEffect{Origin: b.origin, Commitments: b.commitments})
		case rbc.FailedEffect:
			out = append(out, FailedEffect{Origin: b.origin})
		}
	}
	return out
}

func (b *BatchWSSInstance) wireMessage(eff rbc.BroadcastEffect, masterRoot merkleforest.Hash) Message {
	switch eff.Kind {
	case "ECHO":
		return BatchWSSEcho{Origin: b.origin, MasterRoot: masterRoot, Sender: b.self, Entry: eff.Entry}
	case "READY":
		return BatchWSSReady{Origin: b.origin, MasterRoot: masterRoot, Sender: b.self, Entry: eff.Entry}
	case "RECONSTRUCT":
		return BatchWSSReconstruct{Origin: b.origin, MasterRoot: masterRoot, Sender: b.self, Entry: eff.Entry}
	default:
		panic(fmt.Sprintf("wss: unknown rbc broadcast kind %q", eff.Kind))
	}
}

// chunkCommitments truncates payload to n*32*batchSize bytes (origLen
// already guarantees this) and splits it into batchSize per-secret
// vectors of n 32-byte commitment hashes each, per SPEC_FULL.md's
// commitment-vector chunking feature (grounded on batchwss_ready.rs).
func chunkCommitments(payload []byte, n, batchSize int) [][]merkleforest.Hash {
	vectors := make([][]merkleforest.Hash, batchSize)
	for s := 0; s < batchSize; s++ {
		vec := make([]merkleforest.Hash, n)
		for r := 0; r < n; r++ {
			off := (s*n + r) * CommitmentHashSize
			var h merkleforest.Hash
			copy(h[:], payload[off:off+CommitmentHashSize])
			vec[r] = h
		}
		vectors[s] = vec
	}
	return vectors
}
