package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "github.com/bayuairbender2950/youtube-to-url/internal/api/http"
	"github.com/bayuairbender2950/youtube-to-url/internal/app"
	"github.com/bayuairbender2950/youtube-to-url/internal/metrics"
	"github.com/bayuairbender2950/youtube-to-url/internal/remux"
	mongorepo "github.com/bayuairbender2950/youtube-to-url/internal/repository/mongo"
	"github.com/bayuairbender2950/youtube-to-url/internal/source/httpfetch"
	"github.com/bayuairbender2950/youtube-to-url/internal/source/innertube"
	"github.com/bayuairbender2950/youtube-to-url/internal/telemetry"
	"github.com/bayuairbender2950/youtube-to-url/internal/usecase"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "ytstream")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "ytstream"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("ffmpegPath", cfg.FFmpegPath),
		slog.Bool("historyEnabled", cfg.MongoURI != ""),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// History persistence is optional: without MONGO_URI the service
	// streams fine, the /history endpoints just report not configured.
	var mongoClient *mongo.Client
	var history *mongorepo.Repository
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		defer cancel()

		mongoClient, err = mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err != nil {
			logger.Error("mongo connect failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
			logger.Error("mongo ping failed", slog.String("error", err.Error()))
			os.Exit(1)
		}

		history = mongorepo.NewRepository(mongoClient, cfg.MongoDatabase, cfg.MongoCollection)
		if err := history.EnsureIndexes(ctx); err != nil {
			logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
		}
	}

	resolverOpts := []innertube.Option{
		innertube.WithLogger(logger),
		innertube.WithRateLimit(cfg.ResolveRPS, cfg.ResolveBurst),
	}
	if cfg.InnerTubeURL != "" {
		resolverOpts = append(resolverOpts, innertube.WithBaseURL(cfg.InnerTubeURL))
	}
	resolver := innertube.New(resolverOpts...)

	fetcher := httpfetch.New(nil)

	engine := remux.NewEngine(cfg.FFmpegPath, int(cfg.RemuxBufferKB)*1024, logger)

	stream := &usecase.BuildStream{
		Resolver: resolver,
		Fetcher:  fetcher,
		Remuxer:  engine,
	}

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithAllowedOrigins(cfg.AllowedOrigins),
	}
	if history != nil {
		serverOpts = append(serverOpts, apihttp.WithHistory(history))
	}
	handler := apihttp.NewServer(stream, serverOpts...)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Responses stream for as long as the client watches.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
