package baker

import (
	"context"
	"time"

	"github.com/tez-baker/baker/nonce"
	"github.com/tez-baker/baker/rpc"
	"go.uber.org/zap"
)

// Injector drains pendingBlocks: candidates whose scheduled timestamp has
// arrived are submitted for injection; candidates whose target level has
// already been overtaken by the observed head are discarded.
type Injector struct {
	RPC     rpc.Client
	Metrics Recorder
	Logger  *zap.Logger
}

// NewInjector builds an Injector from a Config.
func NewInjector(cfg *Config) *Injector {
	return &Injector{RPC: cfg.RPC, Metrics: cfg.Metrics, Logger: cfg.Logger}
}

// Drain runs one Injector pass over pending. injectedLevels and badOps are
// mutated in place (idempotence marker inserted before the RPC dispatches,
// per the idempotence marker below). onNonce is invoked with a new nonce.Record when a
// successfully-injected candidate carried a commitment seed; the caller
// (Controller) is responsible for handing that record to nonce.Scheduler.
//
// It returns the candidates that must be retained for a future tick
// (their target_timestamp has not arrived yet).
func (inj *Injector) Drain(
	ctx context.Context,
	pending []PendingCandidate,
	head HeadSnapshot,
	now time.Time,
	injectedLevels levelSet,
	bad badOps,
	onNonce func(nonce.Record),
) []PendingCandidate {
	retained := make([]PendingCandidate, 0, len(pending))

	for _, cand := range pending {
		if cand.TargetTimestamp.After(now) {
			retained = append(retained, cand)
			continue
		}

		if cand.TargetLevel <= head.Level {
			inj.Logger.Warn("dropping stale candidate", zap.Uint32("target_level", cand.TargetLevel), zap.Uint32("head", head.Level))
			continue
		}

		if injectedLevels.has(cand.TargetLevel) {
			continue
		}

		injectedLevels.add(cand.TargetLevel)

		blockHash, err := inj.RPC.InjectBlock(ctx, cand.ChainID, cand.SignedBlockHex)
		if err != nil {
			inj.handleInjectionFailure(cand, err, bad)
			continue
		}

		inj.Metrics.BlockInjected()
		logInjected(inj.Logger, cand.TargetLevel, blockHash)

		if cand.Seed != nil {
			onNonce(nonce.Record{
				Level:             cand.TargetLevel,
				Seed:              *cand.Seed,
				SeedNonceHash:     cand.SeedNonceHash,
				InjectedBlockHash: blockHash,
				Revealed:          false,
			})
		}
	}

	return retained
}

func (inj *Injector) handleInjectionFailure(cand PendingCandidate, err error, bad badOps) {
	reason := "unknown"

	if ne, ok := rpc.IsNodeError(err); ok {
		offenders := rpc.ParseInjectionOffenses(ne.Body)
		if len(offenders) > 0 {
			bad.add(offenders...)
			reason = "operation_rejected"
		}
	}

	inj.Metrics.InjectionFailure(reason)
	logCouldntBake(inj.Logger, cand.TargetLevel, err)
}
