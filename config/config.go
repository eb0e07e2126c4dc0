// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the process-wide deployment parameters for the
// weak secret-sharing pipeline, built with a fluent Builder the way
// luxfi-consensus's config package assembles its Config via NewBuilder.
package config

import (
	"fmt"
	"math/big"

	"github.com/luxfi/weakcoin/field"
)

// Config is the fixed, process-wide set of parameters for one
// deployment, per spec §3: n, f, the batch size, and the public prime.
type Config struct {
	N         int
	F         int
	BatchSize int
	Prime     *big.Int
}

// Validate enforces the deployment shape required by the protocol:
// f >= 1, n == 3f+1 (spec §1), a positive batch size, and a positive
// modulus. The modulus is not tested for primality.
func (c Config) Validate() error {
	if c.F < 1 {
		return fmt.Errorf("config: f must be >= 1, got %d", c.F)
	}
	if c.N != 3*c.F+1 {
		return fmt.Errorf("config: n must equal 3f+1 (f=%d expects n=%d, got n=%d)", c.F, 3*c.F+1, c.N)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("config: batch size must be >= 1, got %d", c.BatchSize)
	}
	if c.Prime == nil || c.Prime.Sign() <= 0 {
		return fmt.Errorf("config: prime must be a positive modulus")
	}
	return nil
}

// Builder assembles a Config fluently, mirroring the teacher's
// NewBuilder()...Build() chain.
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder defaulting to the deployment prime from
// package field and a batch size of 1.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{BatchSize: 1, Prime: field.Prime}}
}

// WithF sets the Byzantine tolerance f and derives n = 3f+1.
func (b *Builder) WithF(f int) *Builder {
	b.cfg.F = f
	b.cfg.N = 3*f + 1
	return b
}

// WithN overrides the replica count explicitly; Build still validates
// n == 3f+1.
func (b *Builder) WithN(n int) *Builder {
	b.cfg.N = n
	return b
}

// WithBatchSize sets the number of secrets amortised per BatchWSSInstance.
func (b *Builder) WithBatchSize(batchSize int) *Builder {
	b.cfg.BatchSize = batchSize
	return b
}

// WithPrime overrides the field modulus; deployments should leave this
// at the package default unless running a distinct instance of the
// protocol with its own field.
func (b *Builder) WithPrime(p *big.Int) *Builder {
	b.cfg.Prime = p
	return b
}

// Build validates and returns the assembled Config.
func (b *Builder) Build() (Config, error) {
	if err := b.cfg.Validate(); err != nil {
		return Config{}, err
	}
	return b.cfg, nil
}
