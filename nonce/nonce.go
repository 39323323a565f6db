// Package nonce tracks commitment-nonce lifecycle: persisting the
// outstanding seed/seed-hash records a Baker commits to at commitment
// levels, and scheduling their reveal (or abandonment) as the chain head
// advances through the reveal cycle.
package nonce

import "github.com/nspcc-dev/neo-go/pkg/util"

// Record is a commitment nonce: {level, seed, seed_nonce_hash,
// injected_block_hash, revealed} tuple. Seed is a 32-byte value
// represented with util.Uint256, the same fixed-size-hash type used
// elsewhere in this module for block and payload hashes.
type Record struct {
	Level             uint32       `json:"level"`
	Seed              util.Uint256 `json:"seed"`
	SeedNonceHash     string       `json:"seed_nonce_hash"`
	InjectedBlockHash string       `json:"injected_block_hash"`
	Revealed          bool         `json:"revealed"`
}
