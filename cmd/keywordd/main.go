// Command keywordd serves keyword valuation over gRPC and HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/keyword-estimator/internal/common"
	"github.com/joseph-ayodele/keyword-estimator/internal/export"
	"github.com/joseph-ayodele/keyword-estimator/internal/extract"
	"github.com/joseph-ayodele/keyword-estimator/internal/ocr"
	"github.com/joseph-ayodele/keyword-estimator/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var (
		cfgFile = flag.String("config", "", "YAML config file")
		docRoot = flag.String("documents", "", "directory that document paths are resolved against (required)")
	)
	flag.Parse()

	cfg, err := common.LoadConfigFile(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	if *docRoot == "" {
		logger.Error("keywordd.start", "error", "--documents is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *docRoot, logger); err != nil {
		logger.Error("keywordd.exit", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, docRoot string, logger *slog.Logger) error {
	opener, recognizer, err := ocr.NewBackend(ocr.FromConfig(cfg.OCR), logger)
	if err != nil {
		return fmt.Errorf("ocr backend: %w", err)
	}
	svc := server.NewService(
		extract.NewPipeline(opener, recognizer, logger),
		export.NewService(logger),
		logger,
		server.WithDocumentRoot(docRoot),
	)

	grpcServer := grpc.NewServer()
	hs := server.Register(grpcServer, svc, logger)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewRouter(svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("keywordd.grpc.serving", "addr", lis.Addr().String(), "documents", docRoot)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("keywordd.http.serving", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("keywordd.shutdown")
		hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(sctx); err != nil {
			logger.Warn("keywordd.http.shutdown", "error", err)
		}
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-sctx.Done():
			grpcServer.Stop()
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	logger.Info("keywordd.stopped")
	return nil
}
