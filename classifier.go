package baker

import "github.com/tez-baker/baker/rpc"

// Pass is one of the four validation lanes a node groups block operations
// into.
type Pass int

const (
	PassEndorsement Pass = 0
	PassVoting      Pass = 1
	PassManagement  Pass = 2
	PassOther       Pass = 3
)

// Classify returns the pass a mempool operation belongs in. Single-content
// operations dispatch by kind; anything with more than one content, or
// with no content at all, goes to PassOther unconditionally.
func Classify(op rpc.MempoolOperation) Pass {
	if len(op.Contents) != 1 {
		return PassOther
	}

	switch op.Contents[0].Kind {
	case "endorsement":
		return PassEndorsement
	case "proposals", "ballot":
		return PassVoting
	case "seed_nonce_revelation", "double_endorsement_evidence", "double_baking_evidence", "activate_account":
		return PassManagement
	default:
		return PassOther
	}
}
