// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// ReplicaContext implements C7: it owns the per-origin instance maps,
// drives the queue-based dispatch loop spec §9 calls for in place of
// the original's recursive self-delivery, and holds the injected
// Network, Logger, and Metrics collaborators.
package wss

import (
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/weakcoin/config"
	"github.com/luxfi/weakcoin/erasure"
	"github.com/luxfi/weakcoin/merkleforest"
)

// Network is the authenticated point-to-point transport this package
// treats as an external collaborator (spec §1's explicit out-of-scope
// boundary). Send/Broadcast deliver the authenticated wire form to
// peers; self-delivery is handled internally by ReplicaContext so that
// self never bypasses the same handler path remote messages take
// (spec §4.7).
type Network interface {
	Send(dest int, msg Message) error
	Broadcast(self int, msg Message) error
}

// GatherListener receives the downstream notification (spec §6's
// outbound event), emitted exactly once when at least n-f origins have
// terminated. Terminated single-secret origins count even where this
// replica holds no accepted record for them.
type GatherListener interface {
	OnGather(terminatedOrigins []int)
}

// ReplicaContext is the per-replica runtime: one per process.
type ReplicaContext struct {
	self int
	cfg  config.Config

	codec   *erasure.Codec
	network Network
	logger  log.Logger
	metrics *Metrics
	gather  GatherListener

	queue []Message

	singleInstances map[int]*WSSInstance
	batchInstances  map[int]*BatchWSSInstance
	startedAt       map[int]time.Time

	terminatedOrigins map[int]bool
	acceptedSecrets   map[int]SecretRecord
	acceptedBatches   map[int][][]merkleforest.Hash
	failedOrigins     map[int]bool

	sentOuterEcho bool
}

// NewReplicaContext constructs the context for replica self in
// deployment cfg. gather and metrics may be nil (metrics nil disables
// collection; gather nil means the downstream event is dropped).
func NewReplicaContext(self int, cfg config.Config, network Network, logger log.Logger, metrics *Metrics, gather GatherListener) (*ReplicaContext, error) {
	codec, err := erasure.New(cfg.F)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &ReplicaContext{
		self:              self,
		cfg:               cfg,
		codec:             codec,
		network:           network,
		logger:            logger,
		metrics:           metrics,
		gather:            gather,
		singleInstances:   make(map[int]*WSSInstance),
		batchInstances:    make(map[int]*BatchWSSInstance),
		startedAt:         make(map[int]time.Time),
		terminatedOrigins: make(map[int]bool),
		acceptedSecrets:   make(map[int]SecretRecord),
		acceptedBatches:   make(map[int][][]merkleforest.Hash),
		failedOrigins:     make(map[int]bool),
	}, nil
}

// AcceptedSecrets returns a snapshot of single-secret records accepted
// so far.
func (ctx *ReplicaContext) AcceptedSecrets() map[int]SecretRecord {
	out := make(map[int]SecretRecord, len(ctx.acceptedSecrets))
	for k, v := range ctx.acceptedSecrets {
		out[k] = v
	}
	return out
}

// AcceptedBatches returns a snapshot of recovered batch commitment
// vectors accepted so far.
func (ctx *ReplicaContext) AcceptedBatches() map[int][][]merkleforest.Hash {
	out := make(map[int][][]merkleforest.Hash, len(ctx.acceptedBatches))
	for k, v := range ctx.acceptedBatches {
		out[k] = v
	}
	return out
}

// TerminatedOrigins reports which origins have terminated so far.
func (ctx *ReplicaContext) TerminatedOrigins() []int {
	out := make([]int, 0, len(ctx.terminatedOrigins))
	for o := range ctx.terminatedOrigins {
		out = append(out, o)
	}
	return out
}

// FailedOrigins reports which origins have permanently failed
// (spec §7's ReconstructionRootMismatch) so far.
func (ctx *ReplicaContext) FailedOrigins() []int {
	out := make([]int, 0, len(ctx.failedOrigins))
	for o := range ctx.failedOrigins {
		out = append(out, o)
	}
	return out
}

// Pending reports how many messages are queued for this replica.
func (ctx *ReplicaContext) Pending() int { return len(ctx.queue) }

// Inbound enqueues a message arriving from the network (or from self,
// via Broadcast) for processing on the next Run call.
func (ctx *ReplicaContext) Inbound(msg Message) {
	ctx.queue = append(ctx.queue, msg)
}

// Run drains the inbound queue to completion, processing messages one
// at a time. Handlers never call Run recursively: effects that require
// further processing (self-delivery, amplification) are enqueued and
// picked up by this same loop, per spec §9.
func (ctx *ReplicaContext) Run() {
	for len(ctx.queue) > 0 {
		msg := ctx.queue[0]
		ctx.queue = ctx.queue[1:]
		ctx.process(msg)
	}
}

func (ctx *ReplicaContext) process(msg Message) {
	switch m := msg.(type) {
	case WSSInit:
		ctx.bumpCounter(ctx.metrics.incInit)
		ctx.noteStart(m.Origin)
		effects := ctx.single(m.Origin).HandleInit(m.SecretShare, m.Nonce, m.Commitment, m.Proof)
		ctx.applyEffects(m.Origin, effects)

	case WSSEcho:
		ctx.bumpCounter(ctx.metrics.incEcho)
		effects := ctx.single(m.Origin).HandleEcho(m.Sender, m.Root)
		ctx.applyEffects(m.Origin, effects)

	case WSSReady:
		ctx.bumpCounter(ctx.metrics.incReady)
		effects := ctx.single(m.Origin).HandleReady(m.Sender, m.Root)
		ctx.applyEffects(m.Origin, effects)

	case BatchWSSInit:
		ctx.bumpCounter(ctx.metrics.incInit)
		ctx.noteStart(m.Origin)
		effects := ctx.batch(m.Origin).HandleInit(m.MasterRoot, m.Entry)
		ctx.applyEffects(m.Origin, effects)

	case BatchWSSEcho:
		ctx.bumpCounter(ctx.metrics.incEcho)
		effects := ctx.batch(m.Origin).HandleEcho(m.Sender, m.MasterRoot, m.Entry)
		ctx.applyEffects(m.Origin, effects)

	case BatchWSSReady:
		ctx.bumpCounter(ctx.metrics.incReady)
		effects := ctx.batch(m.Origin).HandleReady(m.Sender, m.MasterRoot, m.Entry)
		ctx.applyEffects(m.Origin, effects)

	case BatchWSSReconstruct:
		ctx.bumpCounter(ctx.metrics.incReady)
		effects := ctx.batch(m.Origin).HandleReconstruct(m.Sender, m.MasterRoot, m.Entry)
		ctx.applyEffects(m.Origin, effects)

	case GatherEcho:
		// Only this replica's own GatherEcho reaches the local listener;
		// peers' GatherEchos would otherwise fire it once per sender.
		if ctx.gather != nil && m.Sender == ctx.self {
			ctx.gather.OnGather(m.TerminatedOrigins)
		}

	default:
		ctx.logger.Warn("wss: dropping unrecognised message type")
	}
}

func (ctx *ReplicaContext) single(origin int) *WSSInstance {
	ins, ok := ctx.singleInstances[origin]
	if !ok {
		ins = NewInstance(ctx.self, ctx.cfg.N, ctx.cfg.F, origin)
		ctx.singleInstances[origin] = ins
	}
	return ins
}

func (ctx *ReplicaContext) batch(origin int) *BatchWSSInstance {
	ins, ok := ctx.batchInstances[origin]
	if !ok {
		ins = NewBatchInstance(ctx.self, ctx.cfg.N, ctx.cfg.F, origin, ctx.cfg.BatchSize, ctx.codec)
		ctx.batchInstances[origin] = ins
	}
	return ins
}

func (ctx *ReplicaContext) noteStart(origin int) {
	if _, ok := ctx.startedAt[origin]; !ok {
		ctx.startedAt[origin] = time.Now()
	}
}

func (ctx *ReplicaContext) applyEffects(origin int, effects []Effect) {
	for _, e := range effects {
		switch v := e.(type) {
		case BroadcastEffect:
			if err := ctx.network.Broadcast(ctx.self, v.Msg); err != nil {
				ctx.logger.Warn("wss: broadcast failed", "error", err)
			}
			ctx.Inbound(v.Msg)

		case TerminatedSecretEffect:
			ctx.terminatedOrigins[origin] = true
			if v.Accepted {
				ctx.acceptedSecrets[origin] = v.Record
			}
			ctx.onTerminated(origin)

		case TerminatedBatchEffect:
			ctx.terminatedOrigins[origin] = true
			ctx.acceptedBatches[origin] = v.Commitments
			ctx.onTerminated(origin)

		case FailedEffect:
			ctx.failedOrigins[origin] = true
			if ctx.metrics != nil {
				ctx.metrics.Failed.Inc()
			}
		}
	}
}

func (ctx *ReplicaContext) onTerminated(origin int) {
	if ctx.metrics != nil {
		ctx.metrics.Terminated.Inc()
		if start, ok := ctx.startedAt[origin]; ok {
			ctx.metrics.TimeToTermination.Observe(time.Since(start).Seconds())
		}
	}
	ctx.logger.Debug("wss: instance terminated", "origin", origin)
	ctx.checkGather()
}

// checkGather emits GatherEcho exactly once, when at least n-f
// instances have terminated (spec §6), guarded by sentOuterEcho.
func (ctx *ReplicaContext) checkGather() {
	if ctx.sentOuterEcho {
		return
	}
	if len(ctx.terminatedOrigins) < ctx.cfg.N-ctx.cfg.F {
		return
	}

	ctx.sentOuterEcho = true
	msg := GatherEcho{TerminatedOrigins: ctx.TerminatedOrigins(), Sender: ctx.self}
	if err := ctx.network.Broadcast(ctx.self, msg); err != nil {
		ctx.logger.Warn("wss: gather broadcast failed", "error", err)
	}
	ctx.Inbound(msg)
}

func (ctx *ReplicaContext) bumpCounter(inc func()) {
	if ctx.metrics == nil {
		return
	}
	inc()
}

func (m *Metrics) incInit()  { m.InitProcessed.Inc() }
func (m *Metrics) incEcho()  { m.EchoProcessed.Inc() }
func (m *Metrics) incReady() { m.ReadyProcessed.Inc() }
