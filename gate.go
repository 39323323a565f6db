package baker

import (
	"github.com/spaolacci/murmur3"
	"github.com/tez-baker/baker/rpc"
)

// Gate decides whether block assembly
// may proceed past the mempool-visibility check for this bake attempt.
type Gate struct {
	requiredEndorsements int
	rejections           int
	lastFingerprint      uint64
}

// NewGate returns a Gate with no endorsement requirement yet recorded
// (if no requirement has been learned yet, accept unconditionally).
func NewGate() *Gate {
	return &Gate{}
}

// maxGateRejections bounds how long the gate will keep rejecting before forcing acceptance.
const maxGateRejections = 10

// SetRequired records a required-endorsement count learned from a preapply
// "not enough endorsements" error during preapply.
func (g *Gate) SetRequired(n int) {
	g.requiredEndorsements = n
	g.rejections = 0
}

// Accept runs one MempoolGate decision over the pool's applied operations.
// It returns true when assembly may proceed; Forced reports whether
// acceptance happened only because the rejection budget was exhausted.
func (g *Gate) Accept(applied []rpc.MempoolOperation) (accept bool, forced bool) {
	g.lastFingerprint = fingerprint(applied)

	if g.requiredEndorsements == 0 {
		return true, false
	}

	count := countEndorsements(applied)
	if count >= g.requiredEndorsements {
		g.requiredEndorsements = 0
		g.rejections = 0

		return true, false
	}

	g.rejections++
	if g.rejections > maxGateRejections {
		g.rejections = 0

		return true, true
	}

	return false, false
}

func countEndorsements(applied []rpc.MempoolOperation) int {
	count := 0

	for _, op := range applied {
		for _, c := range op.Contents {
			if c.Kind == "endorsement" {
				count++
				break
			}
		}
	}

	return count
}

// fingerprint hashes the set of operation hashes currently visible in the
// pool, letting callers cheaply notice that two consecutive gate retries
// observed the same mempool snapshot without comparing the full operation
// slices. Baker.waitForMempoolAndSelect uses this via LastFingerprint to
// skip redundant reclassification work on a preapply retry that finds the
// mempool unchanged.
func fingerprint(applied []rpc.MempoolOperation) uint64 {
	h := murmur3.New64()

	for _, op := range applied {
		_, _ = h.Write([]byte(op.Hash))
	}

	return h.Sum64()
}

// LastFingerprint returns the murmur3 fingerprint of the most recently
// observed mempool snapshot passed to Accept.
func (g *Gate) LastFingerprint() uint64 {
	return g.lastFingerprint
}
