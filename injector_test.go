package baker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tez-baker/baker/nonce"
	"github.com/tez-baker/baker/rpc"
	"go.uber.org/zap"
)

func TestInjectorRetainsFutureCandidates(t *testing.T) {
	inj := &Injector{RPC: &fakeClient{}, Metrics: NopRecorder(), Logger: zap.NewNop()}
	now := time.Now()
	levels := newLevelSet()
	bad := newBadOps()

	pending := []PendingCandidate{{TargetLevel: 101, TargetTimestamp: now.Add(time.Minute)}}
	remaining := inj.Drain(context.Background(), pending, HeadSnapshot{Level: 100}, now, levels, bad, func(nonce.Record) {})

	require.Len(t, remaining, 1)
	require.False(t, levels.has(101))
}

func TestInjectorDropsStaleCandidate(t *testing.T) {
	inj := &Injector{RPC: &fakeClient{}, Metrics: NopRecorder(), Logger: zap.NewNop()}
	now := time.Now()
	levels := newLevelSet()
	bad := newBadOps()

	pending := []PendingCandidate{{TargetLevel: 100, TargetTimestamp: now.Add(-time.Second)}}
	remaining := inj.Drain(context.Background(), pending, HeadSnapshot{Level: 100}, now, levels, bad, func(nonce.Record) {})

	require.Empty(t, remaining)
	require.False(t, levels.has(100))
}

func TestInjectorInjectsDueCandidateAndMarksLevel(t *testing.T) {
	var injectedHex string
	client := &fakeClient{
		InjectBlockFunc: func(ctx context.Context, chainID, hexBytes string) (string, error) {
			injectedHex = hexBytes
			return "BLnew", nil
		},
	}
	inj := &Injector{RPC: client, Metrics: NopRecorder(), Logger: zap.NewNop()}
	now := time.Now()
	levels := newLevelSet()
	bad := newBadOps()

	var gotRecord nonce.Record
	pending := []PendingCandidate{{
		TargetLevel: 101, TargetTimestamp: now.Add(-time.Second),
		ChainID: "main", SignedBlockHex: "deadbeef",
		Seed: &Seed{1, 2, 3}, SeedNonceHash: "nceXYZ",
	}}

	remaining := inj.Drain(context.Background(), pending, HeadSnapshot{Level: 100}, now, levels, bad, func(r nonce.Record) {
		gotRecord = r
	})

	require.Empty(t, remaining)
	require.True(t, levels.has(101))
	require.Equal(t, "deadbeef", injectedHex)
	require.Equal(t, uint32(101), gotRecord.Level)
	require.Equal(t, "nceXYZ", gotRecord.SeedNonceHash)
	require.Equal(t, "BLnew", gotRecord.InjectedBlockHash)
}

func TestInjectorRecordsBadOpsOnRejection(t *testing.T) {
	client := &fakeClient{
		InjectBlockFunc: func(ctx context.Context, chainID, hexBytes string) (string, error) {
			return "", &rpc.NodeError{StatusCode: 400, Body: []byte(`[{"operation":"opHashX"}]`)}
		},
	}
	inj := &Injector{RPC: client, Metrics: NopRecorder(), Logger: zap.NewNop()}
	now := time.Now()
	levels := newLevelSet()
	bad := newBadOps()

	pending := []PendingCandidate{{TargetLevel: 101, TargetTimestamp: now.Add(-time.Second), SignedBlockHex: "deadbeef"}}
	remaining := inj.Drain(context.Background(), pending, HeadSnapshot{Level: 100}, now, levels, bad, func(nonce.Record) {})

	require.Empty(t, remaining)
	require.True(t, bad.has("opHashX"))
}
