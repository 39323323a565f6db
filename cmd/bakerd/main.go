// Command bakerd wires a Controller to a live node and runs its tick loop
// until interrupted. It is a thin demonstration harness, not a production
// key-management or deployment tool: keys are read from a raw hex seed on
// the command line, never from a hardware wallet or an encrypted keystore.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tez-baker/baker"
	"github.com/tez-baker/baker/keys"
	"github.com/tez-baker/baker/nonce"
	"github.com/tez-baker/baker/rpc"
)

var (
	flagNodeURL      string
	flagChainID      string
	flagNetwork      string
	flagSeedHex      string
	flagNoncePath    string
	flagPostgresDSN  string
	flagTickInterval time.Duration
	flagStampWorkers int
	flagMetricsAddr  string
	flagDebug        bool
)

func main() {
	root := &cobra.Command{
		Use:   "bakerd",
		Short: "Run a baking and endorsing agent against a Tezos-family node",
		Long: `bakerd drives a single delegate's baking and endorsing duties
against a node's RPC interface: it tracks the chain head, signs and injects
endorsements and blocks for the levels the delegate holds rights at, and
manages the seed-nonce commit/reveal cycle across cycle boundaries.`,
		RunE: run,
	}

	flags := root.Flags()
	flags.StringVar(&flagNodeURL, "node-url", "http://127.0.0.1:8732", "base URL of the node's RPC endpoint")
	flags.StringVar(&flagChainID, "chain-id", "", "base58 chain id to operate against (required)")
	flags.StringVar(&flagNetwork, "network", "mainnet", "cycle-geometry preset: mainnet, testnet, or zeronet")
	flags.StringVar(&flagSeedHex, "seed-hex", "", "hex-encoded ed25519 private key seed (required; demo only, not for production custody)")
	flags.StringVar(&flagNoncePath, "nonce-file", "", "path to the JSON nonce store (mutually exclusive with --postgres-dsn)")
	flags.StringVar(&flagPostgresDSN, "postgres-dsn", "", "PostgreSQL DSN for the nonce store (mutually exclusive with --nonce-file)")
	flags.DurationVar(&flagTickInterval, "tick-interval", time.Second, "period of the control loop")
	flags.IntVar(&flagStampWorkers, "stamp-workers", 4, "goroutines searching for a valid proof-of-work stamp")
	flags.StringVar(&flagMetricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9091)")
	flags.BoolVar(&flagDebug, "debug", false, "enable debug-level logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flagChainID == "" {
		return fmt.Errorf("bakerd: --chain-id is required")
	}

	if flagSeedHex == "" {
		return fmt.Errorf("bakerd: --seed-hex is required")
	}

	logger, err := newLogger(flagDebug)
	if err != nil {
		return fmt.Errorf("bakerd: init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	delegate, err := loadDelegateKey(flagSeedHex)
	if err != nil {
		return fmt.Errorf("bakerd: load key: %w", err)
	}

	network, err := resolveNetwork(flagNetwork)
	if err != nil {
		return err
	}

	store, err := resolveNonceStore(cmd.Context())
	if err != nil {
		return err
	}

	recorder := newRecorder(flagMetricsAddr, logger)

	ctrl, err := baker.NewController(
		baker.WithLogger(logger),
		baker.WithRPC(rpc.NewHTTPClient(flagNodeURL, nil)),
		baker.WithKeys(delegate),
		baker.WithChainID(flagChainID),
		baker.WithNetwork(network),
		baker.WithNonceStore(store),
		baker.WithMetrics(recorder),
		baker.WithTickInterval(flagTickInterval),
		baker.WithStampWorkers(flagStampWorkers),
	)
	if err != nil {
		return fmt.Errorf("bakerd: build controller: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting bakerd",
		zap.String("delegate", delegate.PublicKeyHash()),
		zap.String("network", network.Name),
		zap.String("node_url", flagNodeURL))

	ctrl.Start(ctx)

	<-ctx.Done()

	logger.Info("shutting down")
	ctrl.Stop()

	return nil
}

// loadDelegateKey builds a software Ed25519 key from a hex-encoded 32-byte
// seed. Hardware-backed delegates implement keys.Provider the same way and
// simply aren't wired up here.
func loadDelegateKey(seedHex string) (*keys.Software, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	return keys.NewSoftwareEd25519(ed25519.NewKeyFromSeed(seed))
}

func resolveNetwork(name string) (baker.NetworkPreset, error) {
	switch name {
	case "mainnet":
		return baker.MainNet, nil
	case "testnet":
		return baker.TestNet, nil
	case "zeronet":
		return baker.ZeroNet, nil
	default:
		return baker.NetworkPreset{}, fmt.Errorf("bakerd: unknown --network %q", name)
	}
}

func resolveNonceStore(ctx context.Context) (nonce.Store, error) {
	switch {
	case flagPostgresDSN != "" && flagNoncePath != "":
		return nil, fmt.Errorf("bakerd: --nonce-file and --postgres-dsn are mutually exclusive")
	case flagPostgresDSN != "":
		pool, err := pgxpool.New(ctx, flagPostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		pg := nonce.NewPGStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}

		return pg, nil
	case flagNoncePath != "":
		return nonce.NewFileStore(flagNoncePath), nil
	default:
		return nonce.NewFileStore("bakerd-nonces.json"), nil
	}
}

// newRecorder wires a PrometheusRecorder and, if addr is set, serves it on
// its own HTTP server rather than dialing Controller into the decision of
// whether metrics are exposed.
func newRecorder(addr string, logger *zap.Logger) baker.Recorder {
	if addr == "" {
		return baker.NopRecorder()
	}

	reg := prometheus.NewRegistry()
	recorder := baker.NewPrometheusRecorder(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	return recorder
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
