package baker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tez-baker/baker/clock"
	"github.com/tez-baker/baker/rpc"
	"go.uber.org/zap"
)

func newTestBaker(client *fakeClient) *Baker {
	return &Baker{
		RPC: client, Keys: &fakeKeys{pkh: "tz1test"}, Network: MainNet,
		Metrics: NopRecorder(), Logger: zap.NewNop(), Clock: clock.NewMock(time.Now()), StampWorkers: 2,
		Gate: NewGate(), Bad: newBadOps(),
	}
}

func bakeHead(level uint32) HeadSnapshot {
	return HeadSnapshot{ChainID: "main", ProtocolID: "ProtoX", BlockHash: "BLhead", Level: level}
}

func TestBakerAbortsOnHeadRace(t *testing.T) {
	b := newTestBaker(&fakeClient{})
	_, err := b.Bake(context.Background(), bakeHead(100), 0, time.Now(), func() bool { return false })
	require.ErrorIs(t, err, ErrHeadChanged)
}

func TestBakerHappyPathNoCommitment(t *testing.T) {
	// head.Level+1 = 101, which is not a commitment level under MainNet
	// (101 mod 32 = 5).
	client := &fakeClient{
		ForgeOperationFunc: func(ctx context.Context, chainID, blockHash string, op rpc.UnsignedOperation) (string, error) {
			return "", nil
		},
		ForgeBlockHeaderFunc: func(ctx context.Context, chainID, blockHash string, header rpc.ForgeHeaderInput) (string, error) {
			// 32 bytes of shell-header filler followed by the unstamped
			// protocol_data tail the Baker itself computed, so stripping
			// it back off round-trips cleanly.
			return "00112233445566778899aabbccddeeff00112233445566778899aabbccddee" + header.ProtocolData, nil
		},
	}

	b := newTestBaker(client)

	cand, err := b.Bake(context.Background(), bakeHead(100), 0, time.Now(), func() bool { return true })
	require.NoError(t, err)
	require.NotNil(t, cand)
	require.Equal(t, uint32(101), cand.TargetLevel)
	require.Nil(t, cand.Seed)
	require.Empty(t, cand.SeedNonceHash)
	require.NotEmpty(t, cand.SignedBlockHex)
}

func TestBakerHappyPathCommitmentLevel(t *testing.T) {
	// head.Level+1 = 128, a commitment level under MainNet (128 mod 32 = 0).
	client := &fakeClient{
		ForgeBlockHeaderFunc: func(ctx context.Context, chainID, blockHash string, header rpc.ForgeHeaderInput) (string, error) {
			return "00112233445566778899aabbccddeeff00112233445566778899aabbccddee" + header.ProtocolData, nil
		},
	}

	b := newTestBaker(client)

	cand, err := b.Bake(context.Background(), bakeHead(127), 0, time.Now(), func() bool { return true })
	require.NoError(t, err)
	require.NotNil(t, cand)
	require.Equal(t, uint32(128), cand.TargetLevel)
	require.NotNil(t, cand.Seed)
	require.NotEmpty(t, cand.SeedNonceHash)
}

func TestBakerGateWaitsForRequiredEndorsements(t *testing.T) {
	calls := 0
	client := &fakeClient{
		PendingOperationsFunc: func(ctx context.Context, chainID string) (rpc.Mempool, error) {
			calls++
			return rpc.Mempool{Applied: endorsements(3)}, nil
		},
		ForgeBlockHeaderFunc: func(ctx context.Context, chainID, blockHash string, header rpc.ForgeHeaderInput) (string, error) {
			return "00112233445566778899aabbccddeeff00112233445566778899aabbccddee" + header.ProtocolData, nil
		},
	}

	b := newTestBaker(client)
	b.Gate.SetRequired(3)

	cand, err := b.Bake(context.Background(), bakeHead(100), 0, time.Now(), func() bool { return true })
	require.NoError(t, err)
	require.NotNil(t, cand)
	require.GreaterOrEqual(t, calls, 1)
}

func TestBakerSelectionExcludesBadOpsAndWrongBranch(t *testing.T) {
	client := &fakeClient{
		PendingOperationsFunc: func(ctx context.Context, chainID string) (rpc.Mempool, error) {
			return rpc.Mempool{Applied: []rpc.MempoolOperation{
				{Hash: "opGood", Branch: "BLhead", Contents: []rpc.OperationContent{{Kind: "transaction"}}},
				{Hash: "opBad", Branch: "BLhead", Contents: []rpc.OperationContent{{Kind: "transaction"}}},
				{Hash: "opWrongBranch", Branch: "BLother", Contents: []rpc.OperationContent{{Kind: "transaction"}}},
			}}, nil
		},
		ForgeBlockHeaderFunc: func(ctx context.Context, chainID, blockHash string, header rpc.ForgeHeaderInput) (string, error) {
			return "00112233445566778899aabbccddeeff00112233445566778899aabbccddee" + header.ProtocolData, nil
		},
	}

	b := newTestBaker(client)
	b.Bad.add("opBad")

	matrix := b.selectAndClassify(bakeHead(100), []rpc.MempoolOperation{
		{Hash: "opGood", Branch: "BLhead", Contents: []rpc.OperationContent{{Kind: "transaction"}}},
		{Hash: "opBad", Branch: "BLhead", Contents: []rpc.OperationContent{{Kind: "transaction"}}},
		{Hash: "opWrongBranch", Branch: "BLother", Contents: []rpc.OperationContent{{Kind: "transaction"}}},
	})

	require.Len(t, matrix[PassOther], 1)
	require.Equal(t, "opGood", matrix[PassOther][0].Hash)
}
