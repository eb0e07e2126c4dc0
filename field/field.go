// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package field implements arithmetic over the fixed prime field used by
// the weak secret-sharing pipeline's Shamir splitter and commitments.
//
// The field is deliberately small (the prime fits in 50 bits) so that
// secrets, shares, and nonces all round-trip through 32-byte big-endian
// encodings without ever approaching the modulus bit length; math/big is
// used for the modular arithmetic itself since no library in the
// consensus stack's dependency tree implements prime-field arithmetic
// over an arbitrary deployment-chosen modulus (the stack's elliptic-curve
// secret sharing packages are bound to their curve's group order, not to
// this protocol's p).
package field

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Prime is the fixed public modulus for the deployment, per spec §6.
var Prime = mustPrime("685373784908497")

func mustPrime(s string) *big.Int {
	p, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(fmt.Sprintf("field: invalid prime literal %q", s))
	}
	return p
}

// Element is a value in Z_p, always kept reduced into [0, Prime).
type Element struct {
	v *big.Int
}

// Zero is the additive identity.
var Zero = Element{v: big.NewInt(0)}

// FromUint64 reduces x into the field.
func FromUint64(x uint64) Element {
	return reduce(new(big.Int).SetUint64(x))
}

// FromBytes reduces a big-endian byte string into the field.
func FromBytes(b []byte) Element {
	return reduce(new(big.Int).SetBytes(b))
}

func reduce(v *big.Int) Element {
	v.Mod(v, Prime)
	return Element{v: v}
}

// Random samples a uniform element of Z_p.
func Random() (Element, error) {
	v, err := rand.Int(rand.Reader, Prime)
	if err != nil {
		return Element{}, fmt.Errorf("field: sample random element: %w", err)
	}
	return Element{v: v}, nil
}

// Add returns e+o mod p.
func (e Element) Add(o Element) Element {
	return reduce(new(big.Int).Add(e.bigOrZero(), o.bigOrZero()))
}

// Sub returns e-o mod p.
func (e Element) Sub(o Element) Element {
	return reduce(new(big.Int).Sub(e.bigOrZero(), o.bigOrZero()))
}

// Mul returns e*o mod p.
func (e Element) Mul(o Element) Element {
	return reduce(new(big.Int).Mul(e.bigOrZero(), o.bigOrZero()))
}

// Inverse returns the multiplicative inverse of e, or an error if e is zero.
func (e Element) Inverse() (Element, error) {
	if e.IsZero() {
		return Element{}, fmt.Errorf("field: inverse of zero is undefined")
	}
	inv := new(big.Int).ModInverse(e.bigOrZero(), Prime)
	if inv == nil {
		return Element{}, fmt.Errorf("field: element is not invertible mod p")
	}
	return Element{v: inv}, nil
}

// Div returns e/o mod p.
func (e Element) Div(o Element) (Element, error) {
	inv, err := o.Inverse()
	if err != nil {
		return Element{}, err
	}
	return e.Mul(inv), nil
}

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool {
	return e.bigOrZero().Sign() == 0
}

// Equal reports whether e and o represent the same field element.
func (e Element) Equal(o Element) bool {
	return e.bigOrZero().Cmp(o.bigOrZero()) == 0
}

// Bytes returns the big-endian encoding of e, with no fixed width.
func (e Element) Bytes() []byte {
	return e.bigOrZero().Bytes()
}

// Uint64 returns e reduced into a uint64; used only for small coordinate
// values (replica indices 1..n), never for secrets.
func (e Element) Uint64() uint64 {
	return e.bigOrZero().Uint64()
}

func (e Element) String() string {
	return e.bigOrZero().String()
}

func (e Element) bigOrZero() *big.Int {
	if e.v == nil {
		return big.NewInt(0)
	}
	return e.v
}
