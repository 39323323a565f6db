package baker

import (
	"context"
	"time"

	"github.com/tez-baker/baker/rpc"
)

// fakeClient is a hand-rolled rpc.Client fake. Each RPC method
// delegates to an optional function field; unset fields return an
// innocuous zero value so a test only needs to wire the calls it cares
// about.
type fakeClient struct {
	HeadFunc               func(ctx context.Context, chainID string) (rpc.Head, error)
	EndorsingRightsFunc    func(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]rpc.Right, error)
	BakingRightsFunc       func(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]rpc.Right, error)
	ForgeOperationFunc     func(ctx context.Context, chainID, blockHash string, op rpc.UnsignedOperation) (string, error)
	PreapplyOperationsFunc func(ctx context.Context, chainID, blockHash string, ops []rpc.SignedOperation) ([]rpc.PreappliedOperation, error)
	PreapplyBlockFunc      func(ctx context.Context, chainID, blockHash string, header rpc.ShellHeader, timestamp time.Time, sort bool) (rpc.PreappliedBlock, error)
	ForgeBlockHeaderFunc   func(ctx context.Context, chainID, blockHash string, header rpc.ForgeHeaderInput) (string, error)
	InjectOperationFunc    func(ctx context.Context, hexBytes string) (string, error)
	InjectBlockFunc        func(ctx context.Context, chainID, hexBytes string) (string, error)
	PendingOperationsFunc  func(ctx context.Context, chainID string) (rpc.Mempool, error)
}

func (f *fakeClient) Head(ctx context.Context, chainID string) (rpc.Head, error) {
	if f.HeadFunc != nil {
		return f.HeadFunc(ctx, chainID)
	}

	return rpc.Head{}, nil
}

func (f *fakeClient) EndorsingRights(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]rpc.Right, error) {
	if f.EndorsingRightsFunc != nil {
		return f.EndorsingRightsFunc(ctx, chainID, blockHash, level, delegate)
	}

	return nil, nil
}

func (f *fakeClient) BakingRights(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]rpc.Right, error) {
	if f.BakingRightsFunc != nil {
		return f.BakingRightsFunc(ctx, chainID, blockHash, level, delegate)
	}

	return nil, nil
}

func (f *fakeClient) ForgeOperation(ctx context.Context, chainID, blockHash string, op rpc.UnsignedOperation) (string, error) {
	if f.ForgeOperationFunc != nil {
		return f.ForgeOperationFunc(ctx, chainID, blockHash, op)
	}

	return "", nil
}

func (f *fakeClient) PreapplyOperations(ctx context.Context, chainID, blockHash string, ops []rpc.SignedOperation) ([]rpc.PreappliedOperation, error) {
	if f.PreapplyOperationsFunc != nil {
		return f.PreapplyOperationsFunc(ctx, chainID, blockHash, ops)
	}

	out := make([]rpc.PreappliedOperation, len(ops))
	for i, op := range ops {
		out[i] = rpc.PreappliedOperation{Branch: op.Branch}
	}

	return out, nil
}

func (f *fakeClient) PreapplyBlock(ctx context.Context, chainID, blockHash string, header rpc.ShellHeader, timestamp time.Time, sort bool) (rpc.PreappliedBlock, error) {
	if f.PreapplyBlockFunc != nil {
		return f.PreapplyBlockFunc(ctx, chainID, blockHash, header, timestamp, sort)
	}

	return rpc.PreappliedBlock{ShellHeader: header}, nil
}

func (f *fakeClient) ForgeBlockHeader(ctx context.Context, chainID, blockHash string, header rpc.ForgeHeaderInput) (string, error) {
	if f.ForgeBlockHeaderFunc != nil {
		return f.ForgeBlockHeaderFunc(ctx, chainID, blockHash, header)
	}

	return "", nil
}

func (f *fakeClient) InjectOperation(ctx context.Context, hexBytes string) (string, error) {
	if f.InjectOperationFunc != nil {
		return f.InjectOperationFunc(ctx, hexBytes)
	}

	return "opHash", nil
}

func (f *fakeClient) InjectBlock(ctx context.Context, chainID, hexBytes string) (string, error) {
	if f.InjectBlockFunc != nil {
		return f.InjectBlockFunc(ctx, chainID, hexBytes)
	}

	return "blockHash", nil
}

func (f *fakeClient) PendingOperations(ctx context.Context, chainID string) (rpc.Mempool, error) {
	if f.PendingOperationsFunc != nil {
		return f.PendingOperationsFunc(ctx, chainID)
	}

	return rpc.Mempool{}, nil
}

var _ rpc.Client = (*fakeClient)(nil)
