package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/xtrntr/auction/internal/api"
	"github.com/xtrntr/auction/internal/auth"
	"github.com/xtrntr/auction/internal/bidding"
	"github.com/xtrntr/auction/internal/bidfeed"
	"github.com/xtrntr/auction/internal/config"
	"github.com/xtrntr/auction/internal/db"
	"github.com/xtrntr/auction/internal/insight"
	"github.com/xtrntr/auction/internal/logger"
	"github.com/xtrntr/auction/internal/memdb"
	"github.com/xtrntr/auction/internal/realtime"
)

// store is everything the server needs from a storage backend
type store interface {
	bidding.Ledger
	auth.UserStore
	api.Catalog
	api.Pinger
	Close(ctx context.Context) error
}

func openStore(ctx context.Context, cfg config.StorageConfig, log logrus.FieldLogger) (store, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory storage; data is lost on exit")
		return memdb.New(), nil
	}

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx); err != nil {
		database.Close(ctx)
		return nil, err
	}
	if cfg.Migrate {
		if err := database.Migrate(ctx); err != nil {
			database.Close(ctx)
			return nil, err
		}
	}
	return database, nil
}

// Main entry point: sets up storage, bidding pipeline, realtime hub and HTTP server
func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	st, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	defer st.Close(context.Background())

	// Accepted-bid export
	var sinks []bidding.EventSink
	if cfg.Events.AMQPURL != "" {
		publisher, err := bidfeed.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			log.WithError(err).Fatal("failed to connect bid feed")
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
		log.WithField("exchange", cfg.Events.Exchange).Info("publishing accepted bids")
	}

	// Bidding core
	hub := realtime.NewHub(log)
	pipeline := bidding.NewPipeline(st, bidding.NewValidator(time.Now), hub, log,
		bidding.WithTimeout(cfg.Storage.BidTimeout),
		bidding.WithSinks(sinks...),
	)
	reads := bidding.NewReconciler(st)
	authService := auth.NewAuthService(st, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	ws := realtime.NewServer(hub, authService, pipeline, reads, realtime.Options{
		SendBuffer:        cfg.Realtime.SendBuffer,
		MessagesPerSecond: cfg.Realtime.MessagesPerSecond,
		Burst:             cfg.Realtime.Burst,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
	}, log)

	handler := api.NewHandler(st, reads, pipeline, authService, log)
	handler.Health = st
	if cfg.Insight.Endpoint != "" {
		oracle := insight.NewHTTPOracle(&http.Client{Timeout: cfg.Insight.Timeout}, cfg.Insight.Endpoint, cfg.Insight.APIKey, cfg.Insight.Model)
		handler.Insight = insight.NewService(oracle, reads, cfg.Insight.Timeout, log)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(cfg.Server.AllowedOrigins, ws),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Server.Addr,
			"storage": cfg.Storage.Driver,
		}).Info("starting server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}
