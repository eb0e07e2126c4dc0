// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Dealer-side origination for C5 and C6: sampling a secret, splitting
// it, committing each share, and building the Merkle-attested messages
// the originator sends out, per spec §4.5 steps 1-5 and §4.6.
package wss

import (
	"fmt"

	"github.com/luxfi/weakcoin/erasure"
	"github.com/luxfi/weakcoin/field"
	"github.com/luxfi/weakcoin/merkleforest"
	"github.com/luxfi/weakcoin/rbc"
	"github.com/luxfi/weakcoin/shamir"
)

// dealOneSecret samples a fresh secret, splits it (t=f+1, n), and
// commits each recipient's share with a fresh nonce, returning the
// commitment vector indexed by replica id.
func dealOneSecret(n, f int) (secret field.Element, commitments []merkleforest.Hash, shares []field.Element, nonces []field.Element, err error) {
	secret, err = field.Random()
	if err != nil {
		return field.Element{}, nil, nil, nil, fmt.Errorf("wss: sample secret: %w", err)
	}

	split, err := shamir.Split(secret, f+1, n)
	if err != nil {
		return field.Element{}, nil, nil, nil, fmt.Errorf("wss: split secret: %w", err)
	}

	shares = make([]field.Element, n)
	nonces = make([]field.Element, n)
	commitments = make([]merkleforest.Hash, n)
	for i := 0; i < n; i++ {
		shares[i] = split[i].Value
		nonces[i], err = field.Random()
		if err != nil {
			return field.Element{}, nil, nil, nil, fmt.Errorf("wss: sample nonce: %w", err)
		}
		commitments[i] = commitmentHash(nonces[i], shares[i])
	}
	return secret, commitments, shares, nonces, nil
}

// DealSingleSecret runs the C5 originator role for origin: it samples a
// secret, splits it, and returns one WSSInit per recipient replica id
// 0..n-1, plus the dealt secret (for tests and diagnostics — the wire
// protocol never reveals it directly).
func DealSingleSecret(n, f, origin int) (msgs []WSSInit, secret field.Element, err error) {
	secret, commitments, shares, nonces, err := dealOneSecret(n, f)
	if err != nil {
		return nil, field.Element{}, err
	}

	leaves := make([]merkleforest.Hash, n)
	for i, c := range commitments {
		leaves[i] = merkleforest.HashLeaf(c[:])
	}
	tree, err := merkleforest.New(leaves)
	if err != nil {
		return nil, field.Element{}, fmt.Errorf("wss: build commitment tree: %w", err)
	}

	msgs = make([]WSSInit, n)
	for i := 0; i < n; i++ {
		proof, err := tree.Proof(i)
		if err != nil {
			return nil, field.Element{}, fmt.Errorf("wss: build proof for replica %d: %w", i, err)
		}
		msgs[i] = WSSInit{
			Origin:      origin,
			SecretShare: shares[i],
			Nonce:       nonces[i],
			Commitment:  commitments[i],
			Proof:       proof,
		}
	}
	return msgs, secret, nil
}

// DealBatch runs the C6 originator role for origin: it deals batchSize
// independent secrets, concatenates their commitment vectors into one
// payload, erasure-codes and Merkle-trees that payload, and returns one
// BatchWSSInit per recipient replica id 0..n-1.
func DealBatch(n, f, origin, batchSize int, codec *erasure.Codec) (msgs []BatchWSSInit, secrets []field.Element, err error) {
	secrets = make([]field.Element, batchSize)
	payload := make([]byte, 0, batchSize*n*CommitmentHashSize)

	for s := 0; s < batchSize; s++ {
		secret, commitments, _, _, err := dealOneSecret(n, f)
		if err != nil {
			return nil, nil, fmt.Errorf("wss: deal secret %d/%d: %w", s, batchSize, err)
		}
		secrets[s] = secret
		for _, c := range commitments {
			payload = append(payload, c[:]...)
		}
	}

	shards, err := codec.Encode(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("wss: encode batch payload: %w", err)
	}

	leaves := make([]merkleforest.Hash, len(shards))
	for i, sh := range shards {
		leaves[i] = merkleforest.HashLeaf(sh)
	}
	tree, err := merkleforest.New(leaves)
	if err != nil {
		return nil, nil, fmt.Errorf("wss: build master tree: %w", err)
	}
	masterRoot := tree.Root()

	msgs = make([]BatchWSSInit, n)
	for i := 0; i < n; i++ {
		proof, err := tree.Proof(i)
		if err != nil {
			return nil, nil, fmt.Errorf("wss: build master proof for replica %d: %w", i, err)
		}
		msgs[i] = BatchWSSInit{
			Origin:     origin,
			MasterRoot: masterRoot,
			Entry:      rbc.Entry{Shard: shards[i], Proof: proof},
		}
	}
	return msgs, secrets, nil
}
