package baker

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tez-baker/baker/clock"
	"github.com/tez-baker/baker/keys"
	"github.com/tez-baker/baker/nonce"
	"github.com/tez-baker/baker/rpc"
	"go.uber.org/zap"
)

// Controller runs the single periodic tick that drives every other
// component: it fetches the head, drains due candidates, reveals nonces,
// and dispatches endorsing and baking for the levels the configured key
// holds rights at. All control-loop state is owned by the tick goroutine;
// nothing outside it mutates a marker set, the pending queue, or the
// nonce scheduler directly.
type Controller struct {
	clock   clock.Clock
	rpc     rpc.Client
	keys    keys.Provider
	network NetworkPreset
	chainID string
	metrics Recorder
	logger  *zap.Logger

	endorser *Endorser
	baker    *Baker
	injector *Injector
	revealer *Revealer
	nonces   *nonce.Scheduler

	gate *Gate
	bad  badOps
	rtt  *rtt

	injectedLevels levelSet
	endorsedLevels levelSet
	bakedLevels    levelSet

	pending []PendingCandidate

	head         HeadSnapshot
	haveHead     bool
	standDown    bool
	startLevel   uint32
	lockBaker    sync.Mutex
	fetchingHead bool

	tickInterval time.Duration
	ticker       *time.Ticker
	stopCh       chan struct{}
	wg           sync.WaitGroup

	done chan func()
}

// NewController wires a Controller from opts, following the same
// functional-options construction used throughout this module.
func NewController(opts ...Option) (*Controller, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Keys == nil {
		return nil, wrapCryptoInit(errors.New("baker: key provider is nil"))
	}

	if err := checkConfig(cfg); err != nil {
		return nil, err
	}

	rttTracker := newRTT()
	gate := NewGate()
	bad := newBadOps()

	c := &Controller{
		clock: cfg.Clock, rpc: cfg.RPC, keys: cfg.Keys, network: cfg.Network,
		chainID: cfg.ChainID, metrics: cfg.Metrics, logger: cfg.Logger,
		gate: gate, bad: bad, rtt: rttTracker,
		injectedLevels: newLevelSet(), endorsedLevels: newLevelSet(), bakedLevels: newLevelSet(),
		tickInterval: cfg.TickInterval,
		done:         make(chan func(), 64),
		stopCh:       make(chan struct{}),
		standDown:    true,
	}

	c.endorser = NewEndorser(cfg)
	c.baker = NewBaker(cfg, gate, bad, rttTracker)
	c.injector = NewInjector(cfg)
	c.revealer = NewRevealer(cfg, func() HeadSnapshot { return c.head })

	scheduler, err := nonce.NewScheduler(context.Background(), cfg.NonceStore, cfg.Network.RevealWindow, c.revealer.AsRevealFunc(), cfg.Logger)
	if err != nil {
		return nil, err
	}

	scheduler.OnAbandon = func(level uint32) {
		c.metrics.NonceAbandoned()
		logAbandonNonce(c.logger, level)
	}

	c.nonces = scheduler

	return c, nil
}

// Start begins the tick loop on its own goroutine. Stop must be called to
// release the ticker.
func (c *Controller) Start(ctx context.Context) {
	c.ticker = time.NewTicker(c.tickInterval)

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		for {
			select {
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			case <-c.ticker.C:
				c.Tick(ctx)
			}
		}
	}()
}

// Stop clears the tick timer but lets in-flight work dispatched by the
// current tick complete; it does not cancel ctx itself.
func (c *Controller) Stop() {
	if c.ticker != nil {
		c.ticker.Stop()
	}

	close(c.stopCh)
	c.wg.Wait()
}

// Tick runs one Controller pass in the order step 1 through step 6 below.
// It never overlaps with itself: head fetch is the only step guarded by
// lockBaker, and a tick that finds a fetch still in flight skips the rest
// of its own body.
func (c *Controller) Tick(ctx context.Context) {
	c.drainDoneWork()

	// step 1: drain injector over the current pending queue.
	if c.haveHead {
		c.pending = c.injector.Drain(ctx, c.pending, c.head, c.clock.Now(), c.injectedLevels, c.bad, func(r nonce.Record) {
			if err := c.nonces.Add(ctx, r); err != nil {
				c.logger.Warn("failed to persist new nonce", zap.Error(err))
			}
		})
	}

	// step 2: fetch head, mutually exclusive.
	if !c.lockBaker.TryLock() {
		return
	}

	newHead, err := c.fetchHead(ctx)

	c.lockBaker.Unlock()

	if err != nil {
		c.logger.Warn("head fetch failed", zap.Error(err))
		return
	}

	c.head = newHead
	c.haveHead = true
	c.metrics.HeadLevel(c.head.Level)

	// step 3: reveal due nonces.
	if err := c.nonces.Tick(ctx, c.head.Level); err != nil {
		c.logger.Warn("nonce scheduler tick failed", zap.Error(err))
	}

	// step 4: stand-down guard on the first observed head.
	if c.standDown {
		c.standDown = false
		c.startLevel = c.head.Level + 1

		return
	}

	delegate := c.keys.PublicKeyHash()
	head := c.head

	// step 5: endorse head.Level.
	if c.head.Level >= c.startLevel && !c.endorsedLevels.has(c.head.Level) {
		c.endorsedLevels.add(c.head.Level)

		c.dispatch(func() {
			_, err := c.endorser.Endorse(ctx, head, delegate, func() bool { return c.head.sameAs(head) })
			if err == ErrHeadChanged {
				c.done <- func() { delete(c.endorsedLevels, head.Level) }
				return
			}

			if err != nil {
				c.logger.Warn("endorse failed", zap.Error(err))
			}
		})
	}

	// step 6: bake head.Level+1 once its top-priority right's scheduled
	// time has passed.
	c.maybeBake(ctx, head, delegate)
}

// maybeBake queries baking rights for head.Level+1, and if the configured
// delegate holds the top-priority one and its estimated_time has passed,
// dispatches Baker.Bake.
func (c *Controller) maybeBake(ctx context.Context, head HeadSnapshot, delegate string) {
	targetLevel := head.Level + 1

	if head.Level < c.startLevel || c.bakedLevels.has(targetLevel) {
		return
	}

	rights, err := c.rpc.BakingRights(ctx, head.ChainID, head.BlockHash, targetLevel, delegate)
	if err != nil {
		c.logger.Warn("baking rights failed", zap.Error(err))
		return
	}

	if len(rights) == 0 {
		return
	}

	right := rights[0]

	if c.clock.Now().Before(right.EstimatedTime) {
		return
	}

	priority := uint16(0)
	if right.Priority != nil {
		priority = uint16(*right.Priority)
	}

	c.bakedLevels.add(targetLevel)

	timestamp := right.EstimatedTime

	logTryingToBake(c.logger, targetLevel)

	c.dispatch(func() {
		cand, err := c.baker.Bake(ctx, head, priority, timestamp, func() bool { return c.head.sameAs(head) })
		if err != nil {
			if err == ErrHeadChanged {
				c.done <- func() { delete(c.bakedLevels, targetLevel) }
			} else {
				logCouldntBake(c.logger, targetLevel, err)
			}

			return
		}

		c.done <- func() { c.pending = append(c.pending, *cand) }
	})
}

// fetchHead fetches and converts the node's head into a HeadSnapshot.
func (c *Controller) fetchHead(ctx context.Context) (HeadSnapshot, error) {
	start := c.clock.Now()

	h, err := c.rpc.Head(ctx, c.chainID)
	if err != nil {
		return HeadSnapshot{}, err
	}

	c.rtt.addTime(c.clock.Now().Sub(start))

	return HeadSnapshot{
		ChainID: h.ChainID, ProtocolID: h.ProtocolID, BlockHash: h.Hash,
		Level: h.Level, Timestamp: h.Timestamp,
	}, nil
}

// dispatch runs fn on its own goroutine; its side effects on Controller
// state are deferred onto c.done and applied from the tick goroutine at
// the start of the next tick, so every mutation of shared state still
// happens from the single tick-owning goroutine.
func (c *Controller) dispatch(fn func()) {
	go fn()
}

func (c *Controller) drainDoneWork() {
	for {
		select {
		case fn := <-c.done:
			fn()
		default:
			return
		}
	}
}

// Pending exposes the current deferred-injection queue, for tests and
// operator inspection.
func (c *Controller) Pending() []PendingCandidate {
	return append([]PendingCandidate{}, c.pending...)
}

// HeadSnapshotNow exposes the Controller's last observed head, for tests.
func (c *Controller) HeadSnapshotNow() HeadSnapshot {
	return c.head
}
