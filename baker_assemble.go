package baker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/tez-baker/baker/clock"
	"github.com/tez-baker/baker/keys"
	"github.com/tez-baker/baker/rpc"
	"github.com/tez-baker/baker/stamp"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// maxBakeGateRetries bounds how many times Bake restarts its mempool-gate
// wait before proceeding regardless.
const maxBakeGateRetries = 10

// bakeGateSleepFallback is used wherever no rtt tracker is wired, matching
// a literal ~500ms constant.
const bakeGateSleepFallback = 500 * time.Millisecond

// Baker assembles a candidate block for head.Level+1: it waits for enough
// mempool visibility, selects and classifies operations, preapplies,
// stamps, and signs, producing a PendingCandidate the Injector will later
// submit.
type Baker struct {
	RPC          rpc.Client
	Keys         keys.Provider
	Network      NetworkPreset
	Metrics      Recorder
	Logger       *zap.Logger
	Clock        clock.Clock
	StampWorkers int
	Gate         *Gate
	Bad          badOps
	RTT          *rtt
}

// NewBaker builds a Baker from a Config plus the shared Gate/bad-ops/rtt
// state the Controller owns.
func NewBaker(cfg *Config, gate *Gate, bad badOps, rttTracker *rtt) *Baker {
	return &Baker{
		RPC: cfg.RPC, Keys: cfg.Keys, Network: cfg.Network,
		Metrics: cfg.Metrics, Logger: cfg.Logger, Clock: cfg.Clock, StampWorkers: cfg.StampWorkers,
		Gate: gate, Bad: bad, RTT: rttTracker,
	}
}

// sleepOrDone races b.Clock.Sleep(d) against ctx, the way clock.Clock's own
// doc comment says a cancellable wait should be built on top of it: Sleep
// itself doesn't know about ctx, so a caller needing cancellation runs it
// on its own goroutine and selects on whichever finishes first. Against a
// clock.Mock, Sleep returns immediately (it only advances the mock's
// notion of now), so this never actually blocks a test.
func (b *Baker) sleepOrDone(ctx context.Context, d time.Duration) error {
	done := make(chan struct{})

	go func() {
		b.Clock.Sleep(d)
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (b *Baker) gateSleep() time.Duration {
	if b.RTT == nil {
		return bakeGateSleepFallback
	}

	return b.RTT.gateSleep()
}

// Bake runs the full assembly pipeline for head.Level+1 at priority,
// scheduled for timestamp. headStillCurrent is consulted once before any
// RPC work begins, realizing the head-changed guard for Baker.
func (b *Baker) Bake(ctx context.Context, head HeadSnapshot, priority uint16, timestamp time.Time, headStillCurrent func() bool) (*PendingCandidate, error) {
	if !headStillCurrent() {
		return nil, ErrHeadChanged
	}

	targetLevel := head.Level + 1

	var (
		seed          *Seed
		seedHex       string
		seedNonceHash string
	)

	if b.Network.IsCommitmentLevel(targetLevel) {
		var raw Seed

		if _, err := rand.Read(raw[:]); err != nil {
			return nil, errors.Wrap(err, "baker: generate commitment seed")
		}

		seed = &raw
		seedHex = hex.EncodeToString(raw[:])

		seedHash := blake2b.Sum256(raw[:])
		seedNonceHash = keys.EncodeSeedNonceHash(seedHash[:])
	}

	matrix, fingerprint, err := b.waitForMempoolAndSelect(ctx, head, false, 0, [4][]rpc.MempoolOperation{})
	if err != nil {
		return nil, err
	}

	preapplied, err := b.preapplyWithRetry(ctx, head, priority, timestamp, matrix, fingerprint, seedNonceHash)
	if err != nil {
		return nil, err
	}

	forgedPrefix, err := b.forgeShellPrefix(ctx, head, priority, preapplied.Operations)
	if err != nil {
		return nil, err
	}

	result, err := stamp.Search(ctx, stamp.Header{
		ForgedPrefix: forgedPrefix,
		Priority:     priority,
		SeedHex:      seedHex,
	}, b.StampWorkers)
	if err != nil {
		return nil, errors.Wrap(err, "baker: stamp search")
	}

	b.Metrics.StampAttempts(uint64(result.PowCounter) + 1)

	signedBytes, _, err := b.Keys.Sign(result.Bytes, keys.Block, []byte(head.ChainID))
	if err != nil {
		return nil, errors.Wrap(err, "baker: sign candidate")
	}

	var opRefs [4][]OperationRef
	for pass, ops := range preapplied.Operations {
		for _, op := range ops {
			opRefs[pass] = append(opRefs[pass], OperationRef{Branch: op.Branch, Data: op.Data, Hash: op.Hash})
		}
	}

	b.Metrics.BlockBaked()

	return &PendingCandidate{
		TargetLevel:     targetLevel,
		TargetTimestamp: timestamp,
		ChainID:         head.ChainID,
		SignedBlockHex:  hex.EncodeToString(signedBytes),
		Operations:      opRefs,
		Seed:            seed,
		SeedNonceHash:   seedNonceHash,
	}, nil
}

// waitForMempoolAndSelect runs the MempoolGate retry loop and, once
// accepted, selects and classifies the pool's operations into the 4-way
// pass matrix. havePrev/prevFingerprint/prevMatrix let a caller that
// already holds a classified matrix from an earlier call in the same Bake
// attempt skip re-running selectAndClassify when Gate's mempool
// fingerprint hasn't moved since — preapplyWithRetry's
// insufficient-endorsements branch re-polls the same mempool shortly after
// the first selection, and usually finds it unchanged.
func (b *Baker) waitForMempoolAndSelect(ctx context.Context, head HeadSnapshot, havePrev bool, prevFingerprint uint64, prevMatrix [4][]rpc.MempoolOperation) ([4][]rpc.MempoolOperation, uint64, error) {
	var matrix [4][]rpc.MempoolOperation

	for attempt := 0; attempt <= maxBakeGateRetries; attempt++ {
		pool, err := b.RPC.PendingOperations(ctx, head.ChainID)
		if err != nil {
			return matrix, 0, errors.Wrap(err, "baker: pending operations")
		}

		accept, _ := b.Gate.Accept(pool.Applied)
		if accept {
			fp := b.Gate.LastFingerprint()

			if havePrev && fp == prevFingerprint {
				return prevMatrix, fp, nil
			}

			matrix = b.selectAndClassify(head, pool.Applied)

			return matrix, fp, nil
		}

		if err := b.sleepOrDone(ctx, b.gateSleep()); err != nil {
			return matrix, 0, err
		}
	}

	return matrix, 0, nil
}

func (b *Baker) selectAndClassify(head HeadSnapshot, applied []rpc.MempoolOperation) [4][]rpc.MempoolOperation {
	var matrix [4][]rpc.MempoolOperation

	seen := make(map[string]struct{}, len(applied))

	for _, op := range applied {
		if op.Branch != head.BlockHash {
			continue
		}

		if b.Bad.has(op.Hash) {
			continue
		}

		if _, dup := seen[op.Hash]; dup {
			continue
		}

		seen[op.Hash] = struct{}{}

		pass := Classify(op)
		matrix[pass] = append(matrix[pass], op)
	}

	return matrix
}

// preapplyWithRetry builds the template header, preapplies it, and
// handles the two retryable failure shapes. fingerprint is the
// MempoolGate snapshot fingerprint matrix was classified from, threaded
// through so a retry that finds the mempool unchanged can skip
// reclassifying it.
func (b *Baker) preapplyWithRetry(ctx context.Context, head HeadSnapshot, priority uint16, timestamp time.Time, matrix [4][]rpc.MempoolOperation, fingerprint uint64, seedNonceHash string) (rpc.PreappliedBlock, error) {
	for {
		header := b.buildTemplate(head, priority, matrix, seedNonceHash)

		preapplyTimestamp := timestamp
		if now := b.Clock.Now(); now.After(preapplyTimestamp) {
			preapplyTimestamp = now
		}

		result, err := b.RPC.PreapplyBlock(ctx, head.ChainID, head.BlockHash, header, preapplyTimestamp, true)
		if err == nil {
			return result, nil
		}

		if ne, ok := rpc.IsNodeError(err); ok {
			if required, ok := rpc.ParseRequiredEndorsements(ne.Body); ok {
				b.Gate.SetRequired(required)

				if err := b.sleepOrDone(ctx, b.gateSleep()); err != nil {
					return rpc.PreappliedBlock{}, err
				}

				newMatrix, newFingerprint, selErr := b.waitForMempoolAndSelect(ctx, head, true, fingerprint, matrix)
				if selErr != nil {
					return rpc.PreappliedBlock{}, selErr
				}

				matrix = newMatrix
				fingerprint = newFingerprint

				continue
			}
		}

		b.Logger.Warn("preapply failed, retrying with empty operations", zap.Error(err))

		empty := [4][]rpc.MempoolOperation{}

		emptyHeader := b.buildTemplate(head, priority, empty, seedNonceHash)

		result, err = b.RPC.PreapplyBlock(ctx, head.ChainID, head.BlockHash, emptyHeader, preapplyTimestamp, true)
		if err != nil {
			return rpc.PreappliedBlock{}, errors.Wrap(err, "baker: preapply failed fatally for this level")
		}

		return result, nil
	}
}

func (b *Baker) buildTemplate(head HeadSnapshot, priority uint16, matrix [4][]rpc.MempoolOperation, seedNonceHash string) rpc.ShellHeader {
	var ops [4][]rpc.PreappliedOperation

	for pass, entries := range matrix {
		for _, op := range entries {
			ops[pass] = append(ops[pass], rpc.PreappliedOperation{Branch: op.Branch, Data: op.Data, Hash: op.Hash})
		}
	}

	return rpc.ShellHeader{
		ProtocolData: rpc.ProtocolData{
			Protocol:         head.ProtocolID,
			Priority:         int(priority),
			ProofOfWorkNonce: "0000000000000000",
			Signature:        zeroSignaturePlaceholder,
			SeedNonceHash:    seedNonceHash,
		},
		Operations: ops,
	}
}

// zeroSignaturePlaceholder is 64 zero bytes, hex-encoded: the signature
// placeholder the template header needs.
const zeroSignaturePlaceholder = "00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000"

// forgeShellPrefix asks the node to forge the shell
// header with a hex-encoded, not-yet-stamped protocol_data tail, then
// strip that 22-hex-character tail back off so StampSearch can rebuild it
// with real pow_counter values.
func (b *Baker) forgeShellPrefix(ctx context.Context, head HeadSnapshot, priority uint16, operations [4][]rpc.PreappliedOperation) ([]byte, error) {
	protocolDataHex := stamp.ProtocolData(priority, "", "", "")

	forgedHex, err := b.RPC.ForgeBlockHeader(ctx, head.ChainID, head.BlockHash, rpc.ForgeHeaderInput{
		ProtocolData: protocolDataHex,
		Operations:   operations,
	})
	if err != nil {
		return nil, errors.Wrap(err, "baker: forge block header")
	}

	forged, err := hex.DecodeString(forgedHex)
	if err != nil {
		return nil, errors.Wrap(err, "baker: decode forged header hex")
	}

	tailLen := len(protocolDataHex) / 2
	if len(forged) < tailLen {
		return nil, errors.New("baker: forged header shorter than its own protocol_data tail")
	}

	return forged[:len(forged)-tailLen], nil
}
