package baker

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Seed is the 32 bytes of randomness a commitment nonce draws, and also the
// shape of its blake2b-256 digest (seed hash). Both are 32-byte values, the
// same shape util.Uint256 represents elsewhere for block and payload
// hashes, so it is reused here rather than introducing a parallel
// fixed-size-array type.
type Seed = util.Uint256

// HeadSnapshot is the immutable view of the chain head the Controller works
// with during one tick. A new snapshot replaces the previous one atomically
// at the start of the next tick; nothing mutates a HeadSnapshot in place.
type HeadSnapshot struct {
	ChainID    string
	ProtocolID string
	BlockHash  string
	Level      uint32
	Timestamp  time.Time
}

// sameAs reports whether other identifies the same block as s. Used by the
// head-changed guard: Endorser and Baker re-check this between querying
// rights and acting.
func (s HeadSnapshot) sameAs(other HeadSnapshot) bool {
	return s.BlockHash == other.BlockHash && s.Level == other.Level
}

// PendingCandidate is a signed block built by Baker and waiting for its
// scheduled timestamp to be reached so Injector can submit it. It is
// consumed exactly once; the signed bytes are never mutated after
// construction (Invariant 4).
type PendingCandidate struct {
	TargetLevel     uint32
	TargetTimestamp time.Time
	ChainID         string
	SignedBlockHex  string
	Operations      [4][]OperationRef
	// Seed and SeedNonceHash are non-nil only when the candidate commits
	// to a fresh nonce at this level.
	Seed          *Seed
	SeedNonceHash string
}

// OperationRef is the {branch, data} pair a preapplied block's operations
// matrix entries are normalized to.
type OperationRef struct {
	Branch string
	Data   string
	Hash   string
}

// levelSet is the integer-level marker set used for injected_levels,
// endorsed_levels and baked_levels. It is single-writer (the Controller's
// tick goroutine and the short-lived work it dispatches, synchronized back
// onto it) and is never pruned automatically: Invariant 5 requires that
// markers for levels above a rolled-back head remain set.
type levelSet map[uint32]struct{}

func newLevelSet() levelSet {
	return make(levelSet)
}

func (s levelSet) has(level uint32) bool {
	_, ok := s[level]
	return ok
}

func (s levelSet) add(level uint32) {
	s[level] = struct{}{}
}

// prune drops every marker strictly below the given level. Never called by
// the Controller itself (see DESIGN.md's Open Question decisions); kept
// for an operator-triggered recovery tool outside this core's scope.
func (s levelSet) prune(below uint32) {
	for l := range s {
		if l < below {
			delete(s, l)
		}
	}
}

// badOpsCacheSize bounds how many rejected operation hashes badOps
// remembers at once. A long-running baker sees a steady trickle of
// operations rejected at block injection; without a bound the set would
// grow for the life of the process.
const badOpsCacheSize = 4096

// badOps is the set of operation hashes the node rejected during a past
// injection attempt, evicting the least recently seen entry once full
// rather than growing without bound for the process lifetime.
type badOps struct {
	cache *lru.Cache
}

func newBadOps() badOps {
	cache, err := lru.New(badOpsCacheSize)
	if err != nil {
		panic("baker: bad ops cache: " + err.Error())
	}

	return badOps{cache: cache}
}

func (b badOps) has(hash string) bool {
	return b.cache.Contains(hash)
}

func (b badOps) add(hashes ...string) {
	for _, h := range hashes {
		b.cache.Add(h, struct{}{})
	}
}
