package baker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tez-baker/baker/clock"
	"github.com/tez-baker/baker/nonce"
	"github.com/tez-baker/baker/rpc"
	"go.uber.org/zap"
)

func newTestController(t *testing.T, client *fakeClient, mockClock *clock.Mock) *Controller {
	store := nonce.NewFileStore(filepath.Join(t.TempDir(), "nonces.json"))

	c, err := NewController(
		WithRPC(client),
		WithKeys(&fakeKeys{pkh: "tz1test"}),
		WithChainID("NetXdQprcVkpaWU"),
		WithNonceStore(store),
		WithClock(mockClock),
		WithLogger(zap.NewNop()),
		WithTickInterval(time.Hour),
	)
	require.NoError(t, err)

	return c
}

func headFuncSequence(levels ...uint32) func(ctx context.Context, chainID string) (rpc.Head, error) {
	i := 0

	return func(ctx context.Context, chainID string) (rpc.Head, error) {
		level := levels[i]
		if i < len(levels)-1 {
			i++
		}

		return rpc.Head{ChainID: chainID, ProtocolID: "ProtoX", Hash: "BL" + string(rune('A'+level%26)), Level: level}, nil
	}
}

func TestControllerStandsDownOnFirstHead(t *testing.T) {
	client := &fakeClient{HeadFunc: headFuncSequence(100)}
	c := newTestController(t, client, clock.NewMock(time.Now()))

	c.Tick(context.Background())

	require.True(t, c.haveHead)
	require.Equal(t, uint32(100), c.head.Level)
	require.Equal(t, uint32(101), c.startLevel)
	require.False(t, c.endorsedLevels.has(100))
	require.False(t, c.bakedLevels.has(101))
}

func TestControllerDoesNotActBeforeStandDownLevel(t *testing.T) {
	// First tick stands down at level 100 (startLevel = 101). A second
	// tick still observing level 100 must not endorse or bake, since
	// head.Level (100) has not yet reached startLevel (101).
	client := &fakeClient{HeadFunc: headFuncSequence(100, 100)}
	c := newTestController(t, client, clock.NewMock(time.Now()))

	c.Tick(context.Background())
	c.Tick(context.Background())

	require.False(t, c.endorsedLevels.has(100))
	require.False(t, c.bakedLevels.has(101))
}

func TestControllerEndorsesAndBakesAfterStandDown(t *testing.T) {
	now := time.Now()
	mockClock := clock.NewMock(now)

	var endorseWG, bakeWG sync.WaitGroup
	endorseWG.Add(1)
	bakeWG.Add(1)

	client := &fakeClient{
		HeadFunc: headFuncSequence(100, 101, 101, 101),
		EndorsingRightsFunc: func(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]rpc.Right, error) {
			return []rpc.Right{{Delegate: delegate, Level: level}}, nil
		},
		BakingRightsFunc: func(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]rpc.Right, error) {
			priority := 0
			return []rpc.Right{{Delegate: delegate, Level: level, Priority: &priority, EstimatedTime: now.Add(-time.Minute)}}, nil
		},
		InjectOperationFunc: func(ctx context.Context, hexBytes string) (string, error) {
			endorseWG.Done()
			return "opHash", nil
		},
		ForgeBlockHeaderFunc: func(ctx context.Context, chainID, blockHash string, header rpc.ForgeHeaderInput) (string, error) {
			defer bakeWG.Done()
			return "00112233445566778899aabbccddeeff00112233445566778899aabbccddee" + header.ProtocolData, nil
		},
	}

	c := newTestController(t, client, mockClock)

	// First tick: stand-down at level 100.
	c.Tick(context.Background())

	// Second tick: head advances to 101, past startLevel (101).
	c.Tick(context.Background())

	require.True(t, c.endorsedLevels.has(101))
	require.True(t, c.bakedLevels.has(102))

	waitWithTimeout(t, &endorseWG, 10*time.Second)
	waitWithTimeout(t, &bakeWG, 10*time.Second)

	deadline := time.Now().Add(10 * time.Second)
	for len(c.Pending()) == 0 && time.Now().Before(deadline) {
		c.drainDoneWork()
		time.Sleep(time.Millisecond)
	}

	require.Len(t, c.Pending(), 1)
	require.Equal(t, uint32(102), c.Pending()[0].TargetLevel)
}

func TestControllerInjectorDrainsDueCandidateOnNextTick(t *testing.T) {
	now := time.Now()
	mockClock := clock.NewMock(now)

	client := &fakeClient{
		HeadFunc: headFuncSequence(100, 101),
		InjectBlockFunc: func(ctx context.Context, chainID, hexBytes string) (string, error) {
			return "BLinjected", nil
		},
	}

	c := newTestController(t, client, mockClock)
	c.Tick(context.Background()) // stand-down at 100

	c.pending = append(c.pending, PendingCandidate{
		TargetLevel:     102,
		TargetTimestamp: now.Add(-time.Second),
		ChainID:         "NetXdQprcVkpaWU",
		SignedBlockHex:  "ff",
	})

	c.Tick(context.Background()) // head advances to 101; candidate is due

	require.Empty(t, c.Pending())
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for dispatched work")
	}
}
