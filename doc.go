// Package baker implements the orchestration engine of a block-producing
// agent for a proof-of-stake blockchain in the Tezos family: it watches the
// chain head, bakes and endorses at the levels where a configured key holds
// rights, commits and reveals seed nonces on schedule, and solves the
// proof-of-work stamp required on every candidate block header.
//
// Cryptographic primitives, the node RPC transport, operation forging and
// key storage are external collaborators reached through the narrow
// interfaces in the keys and rpc packages; this package owns none of them.
package baker
