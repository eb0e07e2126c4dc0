// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package erasure implements the C1 ErasureCodec: systematic
// Reed-Solomon dispersal across n = k+m shards, k = f+1 data shards and
// m = 2f parity shards, so any k of the n shards reconstruct the
// original payload. Grounded on original_source's
// types/src/msg/appxcon/erasure.rs (shard sizing and zero-padding) and
// on gordian-engine-gordian's use of klauspost/reedsolomon for the same
// systematic RS(k, m) shape.
package erasure

import (
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// ErrErasureShortage is returned when reconstruction is attempted with
// fewer than k non-nil shards.
var ErrErasureShortage = errors.New("erasure: fewer than k shards available to reconstruct")

// Codec encodes and reconstructs payloads for a fixed (n, f) deployment.
// It is pure and safe for concurrent use across instances, per spec §5.
type Codec struct {
	f, k, m, n int
	enc        reedsolomon.Encoder
}

// New builds a Codec for tolerance f, giving k = f+1 data shards and
// m = 2f parity shards, n = k+m = 3f+1 total.
func New(f int) (*Codec, error) {
	if f < 1 {
		return nil, fmt.Errorf("erasure: f must be >= 1, got %d", f)
	}
	k := f + 1
	m := 2 * f
	enc, err := reedsolomon.New(k, m)
	if err != nil {
		return nil, fmt.Errorf("erasure: construct encoder: %w", err)
	}
	return &Codec{f: f, k: k, m: m, n: k + m, enc: enc}, nil
}

// N returns the total shard count n = 3f+1.
func (c *Codec) N() int { return c.n }

// K returns the data-shard count k = f+1 — the reconstruction threshold.
func (c *Codec) K() int { return c.k }

// Encode splits data into k equal-length, zero-padded data shards and
// computes m parity shards, returning all n shards in replica-id order.
// Encoding is deterministic: same input always yields the same n
// shards, required so that every honest replica's Merkle root over the
// shards agrees (spec §4.1).
func (c *Codec) Encode(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("erasure: cannot encode empty payload")
	}

	shards, err := c.enc.Split(data)
	if err != nil {
		return nil, fmt.Errorf("erasure: split payload: %w", err)
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("erasure: compute parity shards: %w", err)
	}
	return shards, nil
}

// ReconstructData recovers the original payload from opts, a length-n
// slice where missing shards are nil. It requires at least k non-nil
// entries and returns the first k data shards concatenated and
// truncated to origLen.
func (c *Codec) ReconstructData(opts [][]byte, origLen int) ([]byte, error) {
	if err := c.checkShortage(opts); err != nil {
		return nil, err
	}

	work := cloneShards(opts, c.n)
	if err := c.enc.ReconstructData(work); err != nil {
		return nil, fmt.Errorf("erasure: reconstruct data shards: %w", err)
	}

	out := make([]byte, 0, c.k*len(work[0]))
	for i := 0; i < c.k; i++ {
		out = append(out, work[i]...)
	}
	if origLen > len(out) {
		return nil, fmt.Errorf("erasure: origLen %d exceeds reconstructed length %d", origLen, len(out))
	}
	return out[:origLen], nil
}

// ReconstructAll recovers every missing shard (data and parity) from
// opts, a length-n slice where missing shards are nil.
func (c *Codec) ReconstructAll(opts [][]byte) ([][]byte, error) {
	if err := c.checkShortage(opts); err != nil {
		return nil, err
	}

	work := cloneShards(opts, c.n)
	if err := c.enc.Reconstruct(work); err != nil {
		return nil, fmt.Errorf("erasure: reconstruct all shards: %w", err)
	}
	return work, nil
}

func (c *Codec) checkShortage(opts [][]byte) error {
	if len(opts) != c.n {
		return fmt.Errorf("erasure: expected %d shard slots, got %d", c.n, len(opts))
	}
	present := 0
	for _, s := range opts {
		if s != nil {
			present++
		}
	}
	if present < c.k {
		return ErrErasureShortage
	}
	return nil
}

func cloneShards(opts [][]byte, n int) [][]byte {
	out := make([][]byte, n)
	for i, s := range opts {
		if s == nil {
			continue
		}
		cp := make([]byte, len(s))
		copy(cp, s)
		out[i] = cp
	}
	return out
}

