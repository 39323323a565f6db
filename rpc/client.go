package rpc

import (
	"context"
	"time"
)

// Client is the node RPC surface the core talks to. The core depends only
// on this interface; HTTPClient (http.go) is the concrete implementation.
type Client interface {
	// Head returns the node's current view of chainID's head. Required
	// by the "fetch head" step of every Controller tick; realized as
	// GET /chains/{chain}/blocks/head/header, the standard way a Tezos
	// node exposes this.
	Head(ctx context.Context, chainID string) (Head, error)

	// EndorsingRights calls GET .../helpers/endorsing_rights.
	EndorsingRights(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]Right, error)

	// BakingRights calls GET .../helpers/baking_rights.
	BakingRights(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]Right, error)

	// ForgeOperation calls POST .../helpers/forge/operations.
	ForgeOperation(ctx context.Context, chainID, blockHash string, op UnsignedOperation) (hexBytes string, err error)

	// PreapplyOperations calls POST .../helpers/preapply/operations.
	PreapplyOperations(ctx context.Context, chainID, blockHash string, ops []SignedOperation) ([]PreappliedOperation, error)

	// PreapplyBlock calls POST .../helpers/preapply/block?sort=true&timestamp=T.
	PreapplyBlock(ctx context.Context, chainID, blockHash string, header ShellHeader, timestamp time.Time, sort bool) (PreappliedBlock, error)

	// ForgeBlockHeader calls POST .../helpers/forge_block_header.
	ForgeBlockHeader(ctx context.Context, chainID, blockHash string, header ForgeHeaderInput) (hexBytes string, err error)

	// InjectOperation calls POST /injection/operation.
	InjectOperation(ctx context.Context, hexBytes string) (opHash string, err error)

	// InjectBlock calls POST /injection/block?chain=CHAIN_ID.
	InjectBlock(ctx context.Context, chainID, hexBytes string) (blockHash string, err error)

	// PendingOperations calls GET .../mempool/pending_operations.
	PendingOperations(ctx context.Context, chainID string) (Mempool, error)
}
