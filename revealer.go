package baker

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tez-baker/baker/keys"
	"github.com/tez-baker/baker/nonce"
	"github.com/tez-baker/baker/rpc"
	"go.uber.org/zap"
)

// Revealer publishes a commitment nonce's seed during its reveal window.
// It shares the forge-sign-preapply-inject pipeline with Endorser.
type Revealer struct {
	RPC     rpc.Client
	Keys    keys.Provider
	Metrics Recorder
	Logger  *zap.Logger
	Head    func() HeadSnapshot
}

// NewRevealer builds a Revealer from a Config. currentHead is consulted at
// reveal time for the branch/chain-id/protocol the operation is forged
// against; nonce.Scheduler only knows the record being revealed, not the
// live head, so the Controller supplies it here as a closure.
func NewRevealer(cfg *Config, currentHead func() HeadSnapshot) *Revealer {
	return &Revealer{RPC: cfg.RPC, Keys: cfg.Keys, Metrics: cfg.Metrics, Logger: cfg.Logger, Head: currentHead}
}

// AsRevealFunc adapts Revealer into the nonce.RevealFunc signature
// nonce.Scheduler drives its reveal pass with.
func (r *Revealer) AsRevealFunc() nonce.RevealFunc {
	return func(ctx context.Context, rec nonce.Record) error {
		return r.Reveal(ctx, rec)
	}
}

// Reveal runs the pipeline for one seed-nonce-revelation. A
// failure here is logged by the caller (nonce.Scheduler) and does not
// block the nonce from being dropped — this method's only job is to try.
func (r *Revealer) Reveal(ctx context.Context, rec nonce.Record) error {
	head := r.Head()

	levelJSON, err := json.Marshal(rec.Level)
	if err != nil {
		return errors.Wrap(err, "revealer: encode level")
	}

	seed := rec.Seed
	nonceJSON, err := json.Marshal(hex.EncodeToString(seed[:]))
	if err != nil {
		return errors.Wrap(err, "revealer: encode seed")
	}

	contents := []rpc.OperationContent{{
		Kind: "seed_nonce_revelation",
		Extra: map[string]json.RawMessage{
			"level": levelJSON,
			"nonce": nonceJSON,
		},
	}}

	opHash, err := forgeSignPreapplyInject(ctx, r.RPC, r.Keys, keys.GenericOperation,
		head.ChainID, head.BlockHash, head.ProtocolID, contents)
	if err != nil {
		return errors.Wrap(err, "revealer: pipeline")
	}

	r.Metrics.NonceRevealed()
	logline(r.Logger, glyphOK, "Revealed nonce", zap.Uint32("level", rec.Level), zap.String("hash", opHash))

	return nil
}
