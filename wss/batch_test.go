// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wss

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/weakcoin/config"
	"github.com/luxfi/weakcoin/erasure"
)

func TestBatchDealAndTerminationViaReplicaContext(t *testing.T) {
	require := require.New(t)
	const n, f, batchSize = 4, 1, 3

	cfg, err := config.NewBuilder().WithF(f).WithBatchSize(batchSize).Build()
	require.NoError(err)

	net := newTestNetwork(n)
	replicas := make([]*ReplicaContext, n)
	for i := 0; i < n; i++ {
		ctx, err := NewReplicaContext(i, cfg, net, nil, nil, nil)
		require.NoError(err)
		replicas[i] = ctx
	}
	net.contexts = replicas

	codec, err := erasure.New(f)
	require.NoError(err)

	msgs, secrets, err := DealBatch(n, f, 0, batchSize, codec)
	require.NoError(err)
	require.Len(msgs, n)
	require.Len(secrets, batchSize)

	for i, m := range msgs {
		replicas[i].Inbound(m)
	}
	runToFixedPoint(replicas)

	for i, r := range replicas {
		require.Contains(r.TerminatedOrigins(), 0, "replica %d", i)
		commitments, ok := r.AcceptedBatches()[0]
		require.True(ok, "replica %d missing accepted batch", i)
		require.Len(commitments, batchSize)
		for _, vec := range commitments {
			require.Len(vec, n)
		}
	}
}

// TestScenarioS5BatchTerminationThreshold exercises S5: four concurrent
// BatchWSSInit dealings, one per dealer; once any three terminate the
// local replica emits exactly one GatherEcho containing those origins.
func TestScenarioS5BatchTerminationThreshold(t *testing.T) {
	require := require.New(t)
	const n, f, batchSize = 4, 1, 2

	cfg, err := config.NewBuilder().WithF(f).WithBatchSize(batchSize).Build()
	require.NoError(err)

	net := newTestNetwork(n)
	replicas := make([]*ReplicaContext, n)
	gathers := make([]*recordingGather, n)
	for i := 0; i < n; i++ {
		g := &recordingGather{}
		gathers[i] = g
		ctx, err := NewReplicaContext(i, cfg, net, nil, nil, g)
		require.NoError(err)
		replicas[i] = ctx
	}
	net.contexts = replicas

	codec, err := erasure.New(f)
	require.NoError(err)

	// Every replica deals a batch as origin == its own id.
	for dealer := 0; dealer < n; dealer++ {
		msgs, _, err := DealBatch(n, f, dealer, batchSize, codec)
		require.NoError(err)
		for i, m := range msgs {
			replicas[i].Inbound(m)
		}
	}
	runToFixedPoint(replicas)

	for i, r := range replicas {
		require.GreaterOrEqual(len(r.TerminatedOrigins()), n-f, "replica %d", i)
		require.Len(gathers[i].calls, 1, "replica %d gather did not fire exactly once", i)
	}
}

type recordingGather struct {
	calls [][]int
}

func (g *recordingGather) OnGather(terminated []int) {
	g.calls = append(g.calls, terminated)
}
