package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcZap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/config"
	"github.com/validexlabs/sensorledger/internal/coordinator"
	"github.com/validexlabs/sensorledger/internal/ledger"
	"github.com/validexlabs/sensorledger/internal/metrics"
	"github.com/validexlabs/sensorledger/internal/peers"
	"github.com/validexlabs/sensorledger/internal/prune"
	"github.com/validexlabs/sensorledger/internal/rpc"
	"github.com/validexlabs/sensorledger/internal/store/clickhouse"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()
	grpcZap.ReplaceGrpcLoggerV2(logger)

	cfg, err := config.Parse(os.Args)
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("ledger node failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewStore())
	if err != nil {
		return err
	}

	ledgerEngine := ledger.New(st, logger)
	if err := ledgerEngine.Init(ctx); err != nil {
		return err
	}

	rpcClient, err := rpc.NewClient(rpc.ClientTLSConfig{
		CertFile: cfg.TLSCertFile,
		KeyFile:  cfg.TLSKeyFile,
		CAFile:   cfg.TLSCAFile,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rpcClient.Close(); closeErr != nil {
			logger.Warn("close peer connections", zap.Error(closeErr))
		}
	}()

	peerMetrics := metrics.NewPeers()
	prober := peers.NewObservedProbe(rpcClient, peerMetrics)
	registry := peers.New(cfg.SelfAddress, cfg.SeedPeers, prober, peerMetrics, logger,
		peers.WithDiscoveryInterval(cfg.DiscoveryInterval),
		peers.WithHealthTimeout(cfg.HealthTimeout),
		peers.WithUnhealthyTTL(cfg.UnhealthyTTL),
	)

	coord := coordinator.New(ledgerEngine, registry, rpcClient, metrics.NewCoordinator(), logger,
		coordinator.WithBroadcastCooldown(cfg.BroadcastCooldown),
		coordinator.WithBroadcastTimeout(cfg.BroadcastTimeout),
		coordinator.WithBroadcastWorkers(cfg.BroadcastWorkers),
		coordinator.WithSyncFetchWorkers(cfg.SyncFetchWorkers),
		coordinator.WithSyncPeerTimeout(cfg.SyncPeerTimeout),
		coordinator.WithSyncLockTimeout(cfg.SyncLockTimeout),
	)

	pruneEngine := prune.New(ledgerEngine, st, metrics.NewPrune(), logger,
		prune.WithPruningThreshold(cfg.PruningThreshold),
		prune.WithArchiveInterval(cfg.ArchiveInterval),
		prune.WithCheckInterval(cfg.PruneCheckInterval),
		prune.WithChunkSize(cfg.PruneChunkSize),
		prune.WithChunkRPS(cfg.PruneChunkRPS),
	)

	grpcServer, err := rpc.NewServer(rpc.ServerTLSConfig{
		CertFile:     cfg.TLSCertFile,
		KeyFile:      cfg.TLSKeyFile,
		ClientCAFile: cfg.TLSClientCAFile,
	}, logger)
	if err != nil {
		return err
	}
	handler := rpc.NewHandler(ledgerEngine, coord, metrics.NewRPC(), logger)
	rpc.RegisterPeerServiceServer(grpcServer, handler)

	socket, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}
	go func() {
		logger.Info("starting gRPC peer service", zap.String("addr", cfg.ListenAddr))
		if serveErr := grpcServer.Serve(socket); serveErr != nil {
			logger.Error("grpc serve error", zap.Error(serveErr))
		}
	}()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down gRPC peer service")
		grpcServer.GracefulStop()
	}()

	adminServer := newAdminServer(cfg.AdminAddr, registry, pruneEngine)
	go func() {
		logger.Info("starting admin HTTP server", zap.String("addr", cfg.AdminAddr))
		if serveErr := adminServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("admin http serve error", zap.Error(serveErr))
		}
	}()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down admin HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := adminServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("admin http shutdown error", zap.Error(shutdownErr))
		}
	}()

	go func() {
		if runErr := registry.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Warn("peer registry loop exited", zap.Error(runErr))
		}
	}()
	go func() {
		if runErr := coord.RunSync(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Warn("sync coordinator loop exited", zap.Error(runErr))
		}
	}()
	go func() {
		if runErr := pruneEngine.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Warn("pruning loop exited", zap.Error(runErr))
		}
	}()

	<-ctx.Done()

	logger.Info("draining pending broadcasts", zap.Duration("timeout", maxBroadcastDrain))
	coord.DrainBroadcasts(maxBroadcastDrain)

	// Taking the chain-writer lock waits out any in-flight
	// append/replace/prune before the store is closed.
	logger.Info("flushing block store")
	closeErr := ledgerEngine.WithWriterLock(context.Background(), func(context.Context) error {
		return st.Close()
	})
	if closeErr != nil {
		logger.Error("close block store", zap.Error(closeErr))
	}

	return nil
}

// maxBroadcastDrain bounds how long shutdown waits for in-flight
// broadcasts to finish before giving up on them, per spec.md §6's "drain
// pending broadcasts for ≤ 1 s".
const maxBroadcastDrain = time.Second

// newAdminServer builds the small admin HTTP surface: peer table,
// Prometheus metrics, and archive search. Grounded on
// cmd/api-gateway/main.go's rs/cors-wrapped admin mux construction.
func newAdminServer(addr string, registry *peers.Registry, pruneEngine *prune.Engine) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/peers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, registry.All())
	})

	mux.HandleFunc("/archive/search", func(w http.ResponseWriter, r *http.Request) {
		results, err := pruneEngine.ArchiveSearch(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, results)
	})

	return &http.Server{
		Addr:              addr,
		Handler:           cors.Default().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
