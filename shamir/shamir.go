// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package shamir implements (t, n) Shamir secret sharing over the fixed
// prime field in package field, grounded on the split/reconstruct pair
// in original_source's ShamirSecretSharing (consensus/hash_cc_baa/src/node/wss/wssinit.rs).
package shamir

import (
	"fmt"

	"github.com/luxfi/weakcoin/field"
)

// Share is a single (i, f(i)) evaluation point, i in [1, n].
type Share struct {
	Index uint64
	Value field.Element
}

// Split produces n shares of secret with reconstruction threshold t
// (t = f+1 in the deployment). The zero-degree coefficient is the
// secret; the remaining t-1 coefficients are sampled uniformly.
func Split(secret field.Element, t, n int) ([]Share, error) {
	if t < 1 || n < t {
		return nil, fmt.Errorf("shamir: invalid parameters t=%d n=%d", t, n)
	}

	coeffs := make([]field.Element, t)
	coeffs[0] = secret
	for i := 1; i < t; i++ {
		c, err := field.Random()
		if err != nil {
			return nil, fmt.Errorf("shamir: sample coefficient: %w", err)
		}
		coeffs[i] = c
	}

	shares := make([]Share, n)
	for i := 1; i <= n; i++ {
		x := field.FromUint64(uint64(i))
		shares[i-1] = Share{Index: uint64(i), Value: evalPoly(coeffs, x)}
	}
	return shares, nil
}

func evalPoly(coeffs []field.Element, x field.Element) field.Element {
	// Horner's method, highest degree first.
	acc := field.Zero
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc = acc.Mul(x).Add(coeffs[i])
	}
	return acc
}

// Reconstruct recovers the secret (the polynomial's value at x=0) from
// at least t shares via Lagrange interpolation. Any t of the n shares
// suffice; passing more than t is accepted and still correct as long as
// they are all consistent with the same polynomial (Byzantine dealers
// aside — see WSS's weaker guarantee in spec §4.5).
func Reconstruct(shares []Share) (field.Element, error) {
	if len(shares) == 0 {
		return field.Element{}, fmt.Errorf("shamir: no shares supplied")
	}

	secret := field.Zero
	for i, si := range shares {
		xi := field.FromUint64(si.Index)

		num := field.FromUint64(1)
		den := field.FromUint64(1)
		for j, sj := range shares {
			if i == j {
				continue
			}
			xj := field.FromUint64(sj.Index)
			num = num.Mul(field.Zero.Sub(xj)) // (0 - xj)
			den = den.Mul(xi.Sub(xj))
		}

		coeff, err := num.Div(den)
		if err != nil {
			return field.Element{}, fmt.Errorf("shamir: degenerate share set (duplicate index?): %w", err)
		}
		secret = secret.Add(si.Value.Mul(coeff))
	}
	return secret, nil
}
