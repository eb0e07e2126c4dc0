// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// End-to-end scenarios from spec.md §8, run in-process against
// ReplicaContext with a fake fully-connected Network, with n=4, f=1.
package wss

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/weakcoin/config"
	"github.com/luxfi/weakcoin/shamir"
)

type fakeNetwork struct {
	contexts []*ReplicaContext
	dropTo   map[int]bool // replica ids that silently drop inbound sends (root equivocation sim)
}

func (fn *fakeNetwork) Send(dest int, msg Message) error {
	if fn.dropTo[dest] {
		return nil
	}
	fn.contexts[dest].Inbound(msg)
	return nil
}

func (fn *fakeNetwork) Broadcast(self int, msg Message) error {
	for i, c := range fn.contexts {
		if i == self {
			continue
		}
		if fn.dropTo[i] {
			continue
		}
		c.Inbound(msg)
	}
	return nil
}

func newTestNetwork(n int) *fakeNetwork {
	return &fakeNetwork{contexts: make([]*ReplicaContext, n)}
}

func runToFixedPoint(contexts []*ReplicaContext) {
	for {
		progressed := false
		for _, c := range contexts {
			if c.Pending() > 0 {
				c.Run()
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

func buildReplicas(t *testing.T, n, f int, net *fakeNetwork) []*ReplicaContext {
	t.Helper()
	cfg, err := config.NewBuilder().WithF(f).Build()
	require.NoError(t, err)

	contexts := make([]*ReplicaContext, n)
	for i := 0; i < n; i++ {
		ctx, err := NewReplicaContext(i, cfg, net, nil, nil, nil)
		require.NoError(t, err)
		contexts[i] = ctx
	}
	net.contexts = contexts
	return contexts
}

// S1: happy-path single WSS — dealer 0 deals a secret, all four
// replicas terminate, each accepting its own share of the secret.
func TestScenarioS1HappyPathSingleWSS(t *testing.T) {
	require := require.New(t)
	const n, f = 4, 1

	net := newTestNetwork(n)
	replicas := buildReplicas(t, n, f, net)

	msgs, secret, err := DealSingleSecret(n, f, 0)
	require.NoError(err)
	require.False(secret.IsZero())

	for i, m := range msgs {
		replicas[i].Inbound(m)
	}
	runToFixedPoint(replicas)

	shares := make([]shamir.Share, 0, n)
	for i, r := range replicas {
		require.Contains(r.TerminatedOrigins(), 0, "replica %d", i)
		rec, ok := r.AcceptedSecrets()[0]
		require.True(ok, "replica %d missing accepted secret", i)
		shares = append(shares, shamir.Share{Index: uint64(i + 1), Value: rec.Share})
	}

	// Testable property 5: any f+1 honest shares reconstruct the secret.
	got, err := shamir.Reconstruct(shares[:f+1])
	require.NoError(err)
	require.True(got.Equal(secret))
}

// S2: missing INIT at replica 2 — it buffers ECHOs for the unbound root
// and still terminates; with this schedule it converges via READY
// amplification before its INIT is delivered.
func TestScenarioS2MissingInitThenLateArrival(t *testing.T) {
	require := require.New(t)
	const n, f = 4, 1

	net := newTestNetwork(n)
	replicas := buildReplicas(t, n, f, net)

	msgs, _, err := DealSingleSecret(n, f, 0)
	require.NoError(err)

	// Deliver INIT to 0,1,3 first; replica 2's copy is held back, so it
	// only sees ECHOs/READYs for an as-yet-unbound root.
	for _, i := range []int{0, 1, 3} {
		replicas[i].Inbound(msgs[i])
	}
	runToFixedPoint(replicas)

	for _, i := range []int{0, 1, 3} {
		require.Contains(replicas[i].TerminatedOrigins(), 0, "replica %d", i)
	}

	// The late INIT now arrives (a no-op if replica 2 already converged
	// via READY amplification, still required for it to ever observe a
	// genuine WSSInit should the amplification path not have fired).
	replicas[2].Inbound(msgs[2])
	runToFixedPoint(replicas)

	require.Contains(replicas[2].TerminatedOrigins(), 0)
}

// S3: Byzantine dealer sends replica 3 a wrong commitment — replica 3's
// WSSInit is discarded as malformed, so it never holds its own share,
// but the other three still reach 2f+1 ECHOs/READYs on the honest root
// and replica 3 itself terminates via READY amplification without an
// accepted secret.
func TestScenarioS3ByzantineDealerWrongCommitment(t *testing.T) {
	require := require.New(t)
	const n, f = 4, 1

	net := newTestNetwork(n)
	replicas := buildReplicas(t, n, f, net)

	msgs, _, err := DealSingleSecret(n, f, 0)
	require.NoError(err)

	tampered := msgs[3]
	tampered.Commitment[0] ^= 0xff
	msgs[3] = tampered

	for i, m := range msgs {
		replicas[i].Inbound(m)
	}
	runToFixedPoint(replicas)

	for _, i := range []int{0, 1, 2} {
		require.Contains(replicas[i].TerminatedOrigins(), 0, "replica %d", i)
		rec, ok := replicas[i].AcceptedSecrets()[0]
		require.True(ok, "replica %d missing accepted secret", i)
		require.False(rec.Share.IsZero())
	}

	require.Contains(replicas[3].TerminatedOrigins(), 0, "replica 3 should still terminate via amplification")
	_, ok := replicas[3].AcceptedSecrets()[0]
	require.False(ok, "replica 3 never held a valid WSSInit, so it accepts no secret")
}

// S4: root equivocation — dealer sends root R1 to replicas 0,1 and R2 to
// 2,3. No root reaches 2f+1=3 echoes; no honest replica terminates.
func TestScenarioS4RootEquivocationStalls(t *testing.T) {
	require := require.New(t)
	const n, f = 4, 1

	net := newTestNetwork(n)
	replicas := buildReplicas(t, n, f, net)

	msgsA, _, err := DealSingleSecret(n, f, 0)
	require.NoError(err)
	msgsB, _, err := DealSingleSecret(n, f, 0)
	require.NoError(err)

	// 0 and 1 get dealing A's INIT, 2 and 3 get dealing B's INIT, for the
	// same origin id — simulating a Byzantine dealer's equivocation.
	replicas[0].Inbound(msgsA[0])
	replicas[1].Inbound(msgsA[1])
	replicas[2].Inbound(msgsB[2])
	replicas[3].Inbound(msgsB[3])
	runToFixedPoint(replicas)

	for i, r := range replicas {
		require.Empty(r.TerminatedOrigins(), "replica %d should not terminate", i)
	}
}

// S6: duplicate ECHO — replaying the same (origin, sender) ECHO five
// times leaves the echo set unchanged from the single-send case.
func TestScenarioS6DuplicateEchoIsNoOp(t *testing.T) {
	require := require.New(t)
	const n, f = 4, 1

	net := newTestNetwork(n)
	replicas := buildReplicas(t, n, f, net)

	msgs, _, err := DealSingleSecret(n, f, 0)
	require.NoError(err)
	// INIT to replicas 0 and 1 only: replica 1 binds the root and holds
	// ECHOs from {0, 1}, short of the 2f+1 quorum.
	replicas[0].Inbound(msgs[0])
	replicas[1].Inbound(msgs[1])
	runToFixedPoint(replicas)

	before := len(replicas[1].single(0).echoSenders)
	dup := WSSEcho{Root: replicas[1].single(0).root, Origin: 0, Sender: 0}
	for i := 0; i < 5; i++ {
		replicas[1].Inbound(dup)
		runToFixedPoint(replicas)
	}
	require.Equal(before, len(replicas[1].single(0).echoSenders))
}
