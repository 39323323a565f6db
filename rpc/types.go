// Package rpc is the narrow interface the core uses to talk to a trusted
// chain node, and a concrete net/http implementation of it. The transport
// itself is an external collaborator; the core only ever depends on the
// Client interface in client.go.
//
// Node responses are loosely-typed JSON ("Dynamic JSON at the
// boundary"): every struct here parses only the fields the core consumes.
// OperationContent also carries an Extra map so unknown content fields
// survive untouched through a forge/preapply round trip; the other structs
// drop fields they do not name.
package rpc

import (
	"encoding/json"
	"time"
)

// Head is the node's view of the current chain head.
type Head struct {
	ChainID    string    `json:"chain_id"`
	ProtocolID string    `json:"protocol"`
	Hash       string    `json:"hash"`
	Level      uint32    `json:"level"`
	Timestamp  time.Time `json:"timestamp"`
}

// Right is one entry of an endorsing_rights or baking_rights response.
type Right struct {
	Delegate      string    `json:"delegate"`
	Level         uint32    `json:"level"`
	Priority      *int      `json:"priority,omitempty"` // baking rights only
	Slots         []int     `json:"slots,omitempty"`    // endorsing rights only
	EstimatedTime time.Time `json:"estimated_time"`
}

// OperationContent is a single content entry of an operation, e.g.
// {"kind": "endorsement", "level": 100}. Extra carries whatever fields
// beyond Kind the caller cares about for a given content type (level,
// nonce, ...); callers store each value as its own json.Marshal output.
type OperationContent struct {
	Kind  string                     `json:"kind"`
	Extra map[string]json.RawMessage `json:"-"`
}

// MarshalJSON flattens Kind and Extra into one JSON object.
func (c OperationContent) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(c.Extra)+1)

	kindJSON, err := json.Marshal(c.Kind)
	if err != nil {
		return nil, err
	}

	m["kind"] = kindJSON

	for k, v := range c.Extra {
		m[k] = v
	}

	return json.Marshal(m)
}

// UnmarshalJSON splits a flat JSON object into Kind and Extra.
func (c *OperationContent) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	c.Extra = make(map[string]json.RawMessage, len(m))

	for k, v := range m {
		if k == "kind" {
			if err := json.Unmarshal(v, &c.Kind); err != nil {
				return err
			}

			continue
		}

		c.Extra[k] = v
	}

	return nil
}

// UnsignedOperation is {branch, contents} before forging/signing.
type UnsignedOperation struct {
	Branch   string             `json:"branch"`
	Contents []OperationContent `json:"contents"`
}

// SignedOperation is what gets sent to preapply/operations: the forged
// unsigned fields plus a protocol id and a base58-prefixed signature.
type SignedOperation struct {
	Branch    string             `json:"branch"`
	Contents  []OperationContent `json:"contents"`
	Protocol  string             `json:"protocol"`
	Signature string             `json:"signature"`
}

// PreappliedOperation is one entry of preapply's applied/refused lists, or
// of a preapplied block's per-pass operations matrix.
type PreappliedOperation struct {
	Branch string `json:"branch"`
	Data   string `json:"data"`
	Hash   string `json:"hash"`
}

// MempoolOperation is one entry of pending_operations' applied list. Data
// is the operation's own forged+signed hex bytes, as the node already
// holds them; carrying it lets the Baker build its candidate operations
// matrix without re-forging operations it didn't originate.
type MempoolOperation struct {
	Hash     string             `json:"hash"`
	Branch   string             `json:"branch"`
	Contents []OperationContent `json:"contents"`
	Data     string             `json:"data,omitempty"`
}

// Mempool is the node's pending_operations response.
type Mempool struct {
	Applied       []MempoolOperation `json:"applied"`
	Refused       []json.RawMessage  `json:"refused"`
	BranchRefused []json.RawMessage  `json:"branch_refused"`
}

// ProtocolData is the protocol_data object carried by a block header
// template: protocol, priority, an 8-zero-byte
// proof-of-work placeholder, a signature placeholder, and optionally a
// commitment's seed_nonce_hash.
type ProtocolData struct {
	Protocol         string `json:"protocol"`
	Priority         int    `json:"priority"`
	ProofOfWorkNonce string `json:"proof_of_work_nonce"`
	Signature        string `json:"signature"`
	SeedNonceHash    string `json:"seed_nonce_hash,omitempty"`
}

// ShellHeader is the block shell plus protocol_data, the argument to both
// preapply/block and forge_block_header.
type ShellHeader struct {
	ProtocolData ProtocolData             `json:"protocol_data"`
	Operations   [4][]PreappliedOperation `json:"operations,omitempty"`
}

// PreappliedBlock is preapply/block's response: the node's own shell
// header plus the per-pass operations matrix it accepted.
type PreappliedBlock struct {
	ShellHeader ShellHeader              `json:"shell_header"`
	Operations  [4][]PreappliedOperation `json:"operations"`
}

// ForgeBlockHeaderResult is forge_block_header's response.
type ForgeBlockHeaderResult struct {
	Block string `json:"block"`
}

// ForgeHeaderInput is forge_block_header's request shape, distinct from
// ShellHeader: unlike PreapplyBlock, the protocol_data field here is
// already the hex-encoded template the node is asked to forge verbatim —
// it carries priority, a zeroed proof-of-work placeholder, and an empty
// signature, not yet stamped or signed.
type ForgeHeaderInput struct {
	ProtocolData string                   `json:"protocol_data"`
	Operations   [4][]PreappliedOperation `json:"operations,omitempty"`
}
