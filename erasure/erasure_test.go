// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package erasure

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeReconstructRoundTrip(t *testing.T) {
	require := require.New(t)

	c, err := New(1) // n=4, k=2, m=2
	require.NoError(err)
	require.Equal(4, c.N())
	require.Equal(2, c.K())

	payload := []byte("hello weak secret sharing")
	shards, err := c.Encode(payload)
	require.NoError(err)
	require.Len(shards, 4)

	opts := make([][]byte, 4)
	opts[0] = shards[0]
	opts[2] = shards[2]

	out, err := c.ReconstructData(opts, len(payload))
	require.NoError(err)
	require.Equal(payload, out)
}

func TestReconstructShortage(t *testing.T) {
	require := require.New(t)

	c, err := New(1)
	require.NoError(err)

	payload := []byte("data")
	shards, err := c.Encode(payload)
	require.NoError(err)

	opts := make([][]byte, 4)
	opts[0] = shards[0]

	_, err = c.ReconstructData(opts, len(payload))
	require.ErrorIs(err, ErrErasureShortage)
}

func TestReconstructAllFillsParity(t *testing.T) {
	require := require.New(t)

	c, err := New(1)
	require.NoError(err)

	payload := []byte("deterministic shards across replicas")
	shards, err := c.Encode(payload)
	require.NoError(err)

	opts := make([][]byte, 4)
	opts[1] = shards[1]
	opts[3] = shards[3]

	full, err := c.ReconstructAll(opts)
	require.NoError(err)
	for i := range full {
		require.Equal(shards[i], full[i])
	}
}
