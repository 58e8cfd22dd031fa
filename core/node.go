// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package core wires together one local node's subsystems: the DAG store,
// BFT engine, failure detector, reputation and stake ledgers, peer
// recovery and degraded-mode coordinator, fork reconciler, persistent
// storage, and state sync. Every other package in this module is usable
// standalone; Node is the assembly that a running process constructs
// exactly once.
package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/meridianbft/consensus/bft"
	"github.com/meridianbft/consensus/config"
	"github.com/meridianbft/consensus/dag"
	"github.com/meridianbft/consensus/failuredetector"
	"github.com/meridianbft/consensus/fork"
	"github.com/meridianbft/consensus/ids"
	"github.com/meridianbft/consensus/metrics"
	"github.com/meridianbft/consensus/pqcrypto"
	"github.com/meridianbft/consensus/protocol"
	"github.com/meridianbft/consensus/recovery"
	"github.com/meridianbft/consensus/reputation"
	"github.com/meridianbft/consensus/stake"
	"github.com/meridianbft/consensus/statesync"
	"github.com/meridianbft/consensus/storage"
)

// Config bundles everything a caller must supply to assemble a Node. The
// caller owns transport (Network), persistence location (Storage, may be
// nil to run memory-only), and identity material.
type Config struct {
	Self       ids.NodeID
	Validators []ids.NodeID

	ActivePeers []ids.NodeID
	BackupPeers []ids.NodeID

	PrivateKey []byte
	PublicKeys map[ids.NodeID][]byte

	Params  config.Parameters
	Network bft.Network
	Storage *storage.Store
	Logger  *zap.Logger
	Metrics *metrics.Registry

	// Hasher and Signer default to Blake3Hasher and DilithiumSigner; tests
	// may substitute lighter-weight doubles here.
	Hasher pqcrypto.Hasher
	Signer pqcrypto.Signer
}

// Node is one local participant's full subsystem assembly.
type Node struct {
	self ids.NodeID
	cfg  config.Parameters

	dag        *dag.Store
	engine     *bft.Engine
	detector   *failuredetector.Detector
	reputation *reputation.Ledger
	stake      *stake.Ledger
	peers      *recovery.PeerSet
	degraded   *recovery.Coordinator
	reconciler *fork.Reconciler
	store      *storage.Store
	metrics    *metrics.Registry
	hasher     pqcrypto.Hasher

	log *zap.SugaredLogger
}

// New assembles a Node from c. The returned Node owns no goroutines; the
// caller drives it by calling RecordHeartbeat/EvaluateHealth on its own
// schedule and by dispatching inbound protocol messages to the Handle*
// methods.
func New(c Config) (*Node, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := c.Metrics
	if reg == nil {
		reg = metrics.NewNoOpRegistry()
	}

	hasher := c.Hasher
	if hasher == nil {
		hasher = pqcrypto.NewBlake3Hasher()
	}
	signer := c.Signer
	if signer == nil {
		signer = pqcrypto.NewDilithiumSigner()
	}
	dagStore := dag.NewStore(hasher)

	repLedger := reputation.New(
		c.Params.MinReputation,
		c.Params.ReliabilityThreshold,
		c.Params.ReputationDecayRate,
		c.Params.ByzantineThreshold,
		reg,
	)
	stakeLedger := stake.New(reg)

	detector := failuredetector.New(failuredetector.Config{
		MaxSamples:                     c.Params.MaxSamples,
		PhiThreshold:                   c.Params.PhiThreshold,
		SigmaMin:                       c.Params.SigmaMin,
		AcceptableHeartbeatPauseMillis: float64(c.Params.AcceptableHeartbeatPause.Milliseconds()),
	}, reg)

	peerSet := recovery.NewPeerSet(c.ActivePeers, c.BackupPeers, c.Params.MaxReplacementsPerWindow)
	degraded := recovery.NewCoordinator(peerSet, c.Params, reg)
	reconciler := fork.New(dagStore, repLedger, stakeLedger, c.Params.ForkScoreEpsilon)

	engine := bft.New(bft.EngineConfig{
		Self:       c.Self,
		Nodes:      c.Validators,
		PrivateKey: c.PrivateKey,
		PublicKeys: c.PublicKeys,
		Params:     c.Params,
		DAG:        dagStore,
		Reputation: repLedger,
		Stake:      stakeLedger,
		Detector:   detector,
		Hasher:     hasher,
		Signer:     signer,
		Network:    c.Network,
		Logger:     logger,
		Metrics:    reg,
	})

	n := &Node{
		self:       c.Self,
		cfg:        c.Params,
		dag:        dagStore,
		engine:     engine,
		detector:   detector,
		reputation: repLedger,
		stake:      stakeLedger,
		peers:      peerSet,
		degraded:   degraded,
		reconciler: reconciler,
		store:      c.Storage,
		metrics:    reg,
		hasher:     hasher,
		log:        logger.Sugar(),
	}

	engine.OnFinalize(n.onFinalize)
	return n, nil
}

// onFinalize rewards the creator's reputation and, when persistent storage
// is configured, commits the finalized vertex so it survives a restart.
func (n *Node) onFinalize(v *dag.Vertex) {
	n.reputation.RecordActivity(v.Creator, reputation.EventVertexFinalized, time.Now())

	if n.store == nil {
		return
	}
	meta := storage.VertexMeta{
		State:       uint8(v.State),
		FinalizedAt: v.FinalizedAt,
	}
	if err := n.store.PutVertex(v.ContentHash, v.CanonicalBytes(), meta); err != nil {
		n.log.Errorw("persist finalized vertex failed", "vertex", v.ContentHash.String(), "err", err)
	}
}

// ProposeVertex proposes v as the current view's next sequence. Only the
// current leader may call this successfully; see bft.Engine.ProposeVertex.
func (n *Node) ProposeVertex(v *dag.Vertex, now time.Time) (protocol.PrePrepare, error) {
	return n.engine.ProposeVertex(v, now)
}

// HandlePrePrepare dispatches an inbound PrePrepare to the BFT engine.
func (n *Node) HandlePrePrepare(msg protocol.PrePrepare, v *dag.Vertex, now time.Time) error {
	n.recordLiveness(msg.Envelope.NodeID, now)
	return n.engine.HandlePrePrepare(msg, v, now)
}

// HandlePrepare dispatches an inbound Prepare vote to the BFT engine.
func (n *Node) HandlePrepare(msg protocol.Prepare, now time.Time) error {
	n.recordLiveness(msg.Envelope.NodeID, now)
	if err := n.engine.HandlePrepare(msg, now); err != nil {
		return err
	}
	return nil
}

// HandleCommit dispatches an inbound Commit vote to the BFT engine.
func (n *Node) HandleCommit(msg protocol.Commit, now time.Time) error {
	n.recordLiveness(msg.Envelope.NodeID, now)
	if err := n.engine.HandleCommit(msg, now); err != nil {
		return err
	}
	return nil
}

// HandleViewChange dispatches an inbound ViewChange to the BFT engine.
func (n *Node) HandleViewChange(msg protocol.ViewChange, now time.Time) error {
	n.recordLiveness(msg.Envelope.NodeID, now)
	return n.engine.HandleViewChange(msg, now)
}

// HandleNewView dispatches an inbound NewView to the BFT engine.
func (n *Node) HandleNewView(msg protocol.NewView, knownVertices map[ids.ID][]byte, now time.Time) error {
	n.recordLiveness(msg.Envelope.NodeID, now)
	if n.metrics != nil {
		n.metrics.ViewChanges.Inc()
	}
	return n.engine.HandleNewView(msg, knownVertices, now)
}

// TriggerViewChange forces a view change, e.g. after a local timeout or a
// degraded-mode escalation.
func (n *Node) TriggerViewChange(now time.Time) error {
	return n.engine.TriggerViewChange(now)
}

// Leader returns the node ranked to lead view at now.
func (n *Node) Leader(view uint64, now time.Time) (ids.NodeID, bool) {
	return n.engine.Leader(view, now)
}

// CurrentView returns the local node's current BFT view.
func (n *Node) CurrentView() uint64 {
	return n.engine.CurrentView()
}

// recordLiveness feeds an inbound message's sender into the failure
// detector and credits a small reputation participation event. It runs
// before the engine validates the message, so every inbound protocol
// message counts, including one the engine then rejects.
func (n *Node) recordLiveness(sender ids.NodeID, now time.Time) {
	if sender.IsEmpty() || sender == n.self {
		return
	}
	n.detector.RecordHeartbeat(sender, now.UnixMilli())
	n.reputation.RecordActivity(sender, reputation.EventConsensusParticipation, now)
}

// RecordHeartbeat feeds an explicit Heartbeat message into the failure
// detector, independent of consensus traffic.
func (n *Node) RecordHeartbeat(peer ids.NodeID, now time.Time) {
	n.detector.RecordHeartbeat(peer, now.UnixMilli())
}

// HealthReport summarizes one EvaluateHealth call.
type HealthReport struct {
	Mode           recovery.Mode
	Params         recovery.EffectiveParameters
	ModeChanged    bool
	Available      int
	Suspected      int
	Failed         int
	PartitionState bool
}

// EvaluateHealth recomputes peer liveness and the degraded-mode tier. The
// caller is expected to invoke this periodically (e.g. once per
// heartbeat_interval); on a peer crossing into Failed, it is removed from
// the active set and a backup is promoted if the replacement budget
// allows it.
func (n *Node) EvaluateHealth(now time.Time) HealthReport {
	nowMillis := now.UnixMilli()
	available, suspected, failed := n.detector.Counts(nowMillis)

	for _, peer := range n.peers.ActivePeers() {
		if n.detector.Status(peer, nowMillis) == failuredetector.StatusFailed {
			n.peers.OnFailed(peer)
		}
	}

	total := len(n.engine.Validators())
	mode, params, changed := n.degraded.EvaluateMode(total)
	if changed {
		n.log.Infow("degraded mode changed", "mode", mode.String(), "active", n.peers.ActiveCount(), "total", total)
	}

	quorum := config.QuorumSize(len(n.engine.Validators()))
	return HealthReport{
		Mode:           mode,
		Params:         params,
		ModeChanged:    changed,
		Available:      available,
		Suspected:      suspected,
		Failed:         failed,
		PartitionState: n.detector.DetectPartition(quorum, nowMillis),
	}
}

// ResetRecoveryWindow clears the peer-replacement budget for a new
// recovery window; call once per config.Parameters.RecoveryWindow.
func (n *Node) ResetRecoveryWindow() {
	n.peers.ResetWindow()
}

// ReconcileFork resolves a conflict between two chain tips, applying
// rollback and reputation/stake penalties as needed.
func (n *Node) ReconcileFork(v1, v2 ids.ID, now time.Time) (fork.Result, error) {
	return n.reconciler.Reconcile(v1, v2, now)
}

// CreateSnapshot captures the node's current finalized state for a peer
// catching up.
func (n *Node) CreateSnapshot(view, sequence uint64, now time.Time) (statesync.Snapshot, error) {
	return statesync.CreateSnapshot(n.dag, n.reputation, n.stake, n.hasher, view, sequence, now, n.cfg.MaxSnapshotBytes)
}

// SyncWithPeer catches the local DAG store up to client's finalized set.
func (n *Node) SyncWithPeer(ctx context.Context, client statesync.PeerClient, local statesync.Snapshot) error {
	return statesync.SyncWithPeer(ctx, n.dag, client, n.hasher, local)
}

// DAG exposes the node's DAG store for read-only inspection by callers
// (e.g. an RPC layer answering GetAncestors/GetTips queries).
func (n *Node) DAG() *dag.Store { return n.dag }

// Reputation exposes the node's reputation ledger for read-only queries.
func (n *Node) Reputation() *reputation.Ledger { return n.reputation }

// Stake exposes the node's stake ledger for read-only queries.
func (n *Node) Stake() *stake.Ledger { return n.stake }

// Close releases the node's persistent storage handle, if any.
func (n *Node) Close() error {
	if n.store == nil {
		return nil
	}
	return n.store.Close()
}
