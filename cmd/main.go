/*
Package main is the entry point for the ClawChat realtime server.

It loads configuration, initializes logging, connects to PostgreSQL (optionally
bootstrapping the schema), wires the hub and broadcaster, serves HTTP and websocket traffic,
optionally consumes relayed events from Redis, and shuts everything down
gracefully on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"clawchat/internal/app/db"
	"clawchat/internal/app/identity"
	"clawchat/internal/app/realtime"
	"clawchat/internal/app/relay"
	"clawchat/internal/configs"
	"clawchat/internal/handler"
	"clawchat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Strs("bot_handles", cfg.BotHandles).
		Bool("relay_enabled", cfg.RedisAddr != "").
		Bool("enforce_room_membership", cfg.EnforceRoomMembership).
		Bool("bootstrap_schema", cfg.BootstrapSchema).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()

	if cfg.BootstrapSchema {
		if err := db.Bootstrap(ctx, pool); err != nil {
			logx.Fatal(err, "Failed to bootstrap database schema")
		}
	}

	store := db.NewStore(pool)

	opts := realtime.Options{
		SendQueueSize:   cfg.SendQueueSize,
		LastSeenTimeout: cfg.LastSeenTimeout,
	}
	if cfg.EnforceRoomMembership {
		opts.Authorizer = realtime.NewMembershipAuthorizer(store)
	}

	hub := realtime.NewHub(store, opts)
	broadcaster := realtime.NewBroadcaster(hub, realtime.NewMentionMatcher(cfg.BotHandles), store)

	deps := &handler.AppDeps{
		Hub:         hub,
		Broadcaster: broadcaster,
		Auth:        identity.NewVerifier(cfg.JWTSecret, store),
		Config:      cfg,
		DB:          pool,
	}

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           handler.Router(ctx, deps),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logx.Info(fmt.Sprintf("ClawChat realtime server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.RedisAddr != "" {
		redisClient := relay.NewClient(cfg.RedisAddr)
		defer redisClient.Close()

		subscriber := relay.NewSubscriber(redisClient, cfg.RedisEventsChannel, broadcaster)
		g.Go(func() error {
			return subscriber.Run(gctx)
		})
	}

	g.Go(func() error {
		// Wait for a signal or a failed sibling, then shut down with a timeout of 10 seconds.
		<-gctx.Done()
		logx.Info("Starting graceful shutdown...")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logx.Error(err, "Server forced to shutdown")
		}

		return hub.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logx.Fatal(err, "Server stopped with error")
	}

	logx.Info("Server gracefully stopped.")
}
