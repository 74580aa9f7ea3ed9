// Command certscored serves the certificate analysis HTTP API.
//
// All settings come from CERTSCORE_* environment variables; see package
// config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/tsawler/certscore"
	"github.com/tsawler/certscore/config"
	"github.com/tsawler/certscore/ocr"
	"github.com/tsawler/certscore/raster"
	"github.com/tsawler/certscore/scoring"
	"github.com/tsawler/certscore/server"
	"github.com/tsawler/certscore/store"
	"github.com/tsawler/certscore/tables"
)

func main() {
	cfg := config.Load()
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("certscored stopped", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	policy := scoring.DefaultPolicy()
	if cfg.ReferenceFile != "" {
		var err error
		if policy, err = config.LoadReference(cfg.ReferenceFile, policy); err != nil {
			return err
		}
		logger.Info("reference loaded", "path", cfg.ReferenceFile)
	}

	analyzer, err := newAnalyzer(cfg, policy, logger)
	if err != nil {
		return err
	}

	var repo *store.Repository
	if cfg.Database.DSN != "" {
		repo, err = store.Open(ctx, storeConfig(cfg.Database), logger)
		if err != nil {
			return err
		}
		defer repo.Close()
	}

	opts := server.Options{Analyzer: analyzer, Policy: policy, MaxUpload: cfg.Server.MaxUpload, Logger: logger}
	if repo != nil {
		opts.Store = repo
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(opts).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var grpcServer *grpc.Server
	if cfg.Server.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCHealthAddr)
		if err != nil {
			return fmt.Errorf("listen grpc health: %w", err)
		}
		grpcServer = grpc.NewServer()
		hs := health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, hs)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		reflection.Register(grpcServer)
		if repo != nil {
			go watchStore(ctx, hs, repo, healthInterval, logger)
		}

		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("grpc serve", "error", err)
			}
		}()
		logger.Info("grpc health serving", "addr", cfg.Server.GRPCHealthAddr)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr, "workers", cfg.Pipeline.Workers)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}

// healthInterval is how often the daemon pings the store
const healthInterval = 15 * time.Second

// pinger is the part of the store the health watcher needs
type pinger interface {
	Ping(ctx context.Context) error
}

// healthSetter is satisfied by *health.Server
type healthSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// watchStore reports NOT_SERVING while the store cannot be pinged, and
// SERVING again once it recovers. It returns when ctx is done.
func watchStore(ctx context.Context, hs healthSetter, db pinger, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_SERVING
	for {
		checkStore(ctx, hs, db, &last, logger)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func checkStore(ctx context.Context, hs healthSetter, db pinger, last *healthpb.HealthCheckResponse_ServingStatus, logger *slog.Logger) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := db.Ping(pingCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		status = healthpb.HealthCheckResponse_NOT_SERVING
		logger.Warn("store ping failed", "error", err)
	}
	if status != *last {
		logger.Info("health status changed", "status", status.String())
		*last = status
	}
	hs.SetServingStatus("", status)
}

// newAnalyzer builds the analyzer described by cfg. Audited tables go to
// one CSV directory or workbook per uploaded document.
func newAnalyzer(cfg *config.Config, policy scoring.Policy, logger *slog.Logger) (*certscore.Analyzer, error) {
	pdftoppm := raster.NewPdftoppm()
	pdftoppm.Binary = cfg.OCR.Pdftoppm
	pdftoppm.DPI = cfg.OCR.DPI
	pdftoppm.Timeout = cfg.OCR.Timeout

	a := certscore.New().
		Workers(cfg.Pipeline.Workers).
		OCRTimeout(cfg.OCR.Timeout).
		Language(cfg.OCR.Language).
		Rasterizer(raster.Chain{pdftoppm, raster.Embedded{}}).
		Recognizer(ocr.Default(ocr.Options{Language: cfg.OCR.Language, Tesseract: cfg.OCR.Tesseract})).
		Policy(policy).
		Logger(logger)

	if cfg.Audit.Dir == "" {
		return a, nil
	}
	if err := os.MkdirAll(cfg.Audit.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	switch cfg.Audit.Format {
	case "xlsx":
		return a.AuditSinks(tables.XLSXPerDocument(cfg.Audit.Dir)), nil
	default:
		return a.AuditSinks(tables.CSVPerDocument(cfg.Audit.Dir)), nil
	}
}

func storeConfig(db config.DatabaseConfig) store.Config {
	return store.Config{
		Driver:          store.Dialect(db.Driver),
		DSN:             db.DSN,
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		MaxConnLifetime: db.MaxConnLifetime,
		MaxConnIdleTime: db.MaxConnIdleTime,
		DialTimeout:     db.DialTimeout,
	}
}
