package baker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tez-baker/baker/rpc"
	"go.uber.org/zap"
)

func TestEndorserSkipsWithoutRights(t *testing.T) {
	client := &fakeClient{
		EndorsingRightsFunc: func(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]rpc.Right, error) {
			return nil, nil
		},
	}
	e := &Endorser{RPC: client, Keys: &fakeKeys{pkh: "tz1test"}, Metrics: NopRecorder(), Logger: zap.NewNop()}

	endorsed, err := e.Endorse(context.Background(), HeadSnapshot{Level: 10}, "tz1test", func() bool { return true })
	require.NoError(t, err)
	require.False(t, endorsed)
}

func TestEndorserAbortsOnHeadRace(t *testing.T) {
	client := &fakeClient{
		EndorsingRightsFunc: func(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]rpc.Right, error) {
			return []rpc.Right{{Delegate: delegate, Level: level}}, nil
		},
	}
	e := &Endorser{RPC: client, Keys: &fakeKeys{pkh: "tz1test"}, Metrics: NopRecorder(), Logger: zap.NewNop()}

	endorsed, err := e.Endorse(context.Background(), HeadSnapshot{Level: 10}, "tz1test", func() bool { return false })
	require.ErrorIs(t, err, ErrHeadChanged)
	require.False(t, endorsed)
}

func TestEndorserSignsAndInjectsWithRights(t *testing.T) {
	var injected string
	client := &fakeClient{
		EndorsingRightsFunc: func(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]rpc.Right, error) {
			return []rpc.Right{{Delegate: delegate, Level: level}}, nil
		},
		ForgeOperationFunc: func(ctx context.Context, chainID, blockHash string, op rpc.UnsignedOperation) (string, error) {
			return "aabbcc", nil
		},
		InjectOperationFunc: func(ctx context.Context, hexBytes string) (string, error) {
			injected = hexBytes
			return "opEndorse1", nil
		},
	}
	e := &Endorser{RPC: client, Keys: &fakeKeys{pkh: "tz1test"}, Metrics: NopRecorder(), Logger: zap.NewNop()}

	endorsed, err := e.Endorse(context.Background(), HeadSnapshot{Level: 10, ChainID: "main", BlockHash: "BLhead"}, "tz1test", func() bool { return true })
	require.NoError(t, err)
	require.True(t, endorsed)
	require.NotEmpty(t, injected)
}
