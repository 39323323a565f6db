package baker

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tez-baker/baker/keys"
	"github.com/tez-baker/baker/rpc"
	"go.uber.org/zap"
)

// Endorser signs an endorsement for the current head level when the
// configured delegate holds endorsing rights there.
type Endorser struct {
	RPC     rpc.Client
	Keys    keys.Provider
	Metrics Recorder
	Logger  *zap.Logger
}

// NewEndorser builds an Endorser from a Config.
func NewEndorser(cfg *Config) *Endorser {
	return &Endorser{RPC: cfg.RPC, Keys: cfg.Keys, Metrics: cfg.Metrics, Logger: cfg.Logger}
}

// Endorse attempts one endorsement of head.Level for delegate. headStillCurrent
// is polled right after the rights query, before any signing/injection work
// begins, to realize the head-changed guard: it should report
// whether the Controller's view of head is still the one Endorse started
// with. A false result aborts silently, without
// setting any marker.
func (e *Endorser) Endorse(ctx context.Context, head HeadSnapshot, delegate string, headStillCurrent func() bool) (endorsed bool, err error) {
	rights, err := e.RPC.EndorsingRights(ctx, head.ChainID, head.BlockHash, head.Level, delegate)
	if err != nil {
		return false, errors.Wrap(err, "endorser: endorsing rights")
	}

	if len(rights) == 0 {
		return false, nil
	}

	if !headStillCurrent() {
		return false, ErrHeadChanged
	}

	levelJSON, err := json.Marshal(head.Level)
	if err != nil {
		return false, errors.Wrap(err, "endorser: encode level")
	}

	contents := []rpc.OperationContent{{
		Kind:  "endorsement",
		Extra: map[string]json.RawMessage{"level": levelJSON},
	}}

	opHash, err := forgeSignPreapplyInject(ctx, e.RPC, e.Keys, keys.Endorsement,
		head.ChainID, head.BlockHash, head.ProtocolID, contents)
	if err != nil {
		return false, errors.Wrap(err, "endorser: pipeline")
	}

	e.Metrics.EndorsementSent()
	logline(e.Logger, glyphOK, "Endorsed", zap.Uint32("level", head.Level), zap.String("hash", opHash))

	return true, nil
}
