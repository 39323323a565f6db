package baker

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tez-baker/baker/clock"
	"github.com/tez-baker/baker/keys"
	"github.com/tez-baker/baker/nonce"
	"github.com/tez-baker/baker/rpc"
	"go.uber.org/zap"
)

// Config holds everything a Controller needs to run, built with functional
// options, the usual Go functional-options pattern.
type Config struct {
	Logger       *zap.Logger
	Clock        clock.Clock
	RPC          rpc.Client
	Keys         keys.Provider
	Metrics      Recorder
	Network      NetworkPreset
	ChainID      string
	NonceStore   nonce.Store
	TickInterval time.Duration
	StampWorkers int
}

const defaultTickInterval = time.Second

func defaultConfig() *Config {
	return &Config{
		Logger:       zap.NewNop(),
		Clock:        clock.System{},
		Metrics:      NopRecorder(),
		Network:      MainNet,
		TickInterval: defaultTickInterval,
		StampWorkers: 4,
	}
}

func checkConfig(cfg *Config) error {
	switch {
	case cfg.RPC == nil:
		return errors.New("baker: RPC client is nil")
	case cfg.Keys == nil:
		return errors.New("baker: key provider is nil")
	case cfg.ChainID == "":
		return errors.New("baker: ChainID is empty")
	case cfg.NonceStore == nil:
		return errors.New("baker: NonceStore is nil")
	}

	return nil
}

// Option configures a Config; see the With* constructors below.
type Option func(*Config)

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(cfg *Config) { cfg.Logger = log }
}

// WithClock overrides the ClockAdapter, primarily for tests.
func WithClock(c clock.Clock) Option {
	return func(cfg *Config) { cfg.Clock = c }
}

// WithRPC sets the node RPC client.
func WithRPC(c rpc.Client) Option {
	return func(cfg *Config) { cfg.RPC = c }
}

// WithKeys sets the key provider.
func WithKeys(k keys.Provider) Option {
	return func(cfg *Config) { cfg.Keys = k }
}

// WithMetrics sets the operational Recorder.
func WithMetrics(m Recorder) Option {
	return func(cfg *Config) { cfg.Metrics = m }
}

// WithNetwork sets the cycle-geometry preset.
func WithNetwork(n NetworkPreset) Option {
	return func(cfg *Config) { cfg.Network = n }
}

// WithChainID sets the chain id used for watermark prefixing and injection.
func WithChainID(id string) Option {
	return func(cfg *Config) { cfg.ChainID = id }
}

// WithNonceStore sets the persisted nonce store.
func WithNonceStore(s nonce.Store) Option {
	return func(cfg *Config) { cfg.NonceStore = s }
}

// WithTickInterval overrides the Controller's tick period.
func WithTickInterval(d time.Duration) Option {
	return func(cfg *Config) { cfg.TickInterval = d }
}

// WithStampWorkers sets the number of goroutines StampSearch shards its
// counter space across.
func WithStampWorkers(n int) Option {
	return func(cfg *Config) { cfg.StampWorkers = n }
}
