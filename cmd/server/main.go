package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"eduplatform/internal/app"
	"eduplatform/internal/config"
	"eduplatform/internal/logger"
	"eduplatform/internal/service"
	"eduplatform/internal/transport/rest"
	"eduplatform/internal/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		port       int
	)
	pflag.StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")
	pflag.IntVar(&port, "port", 0, "listen port (overrides EDU_PORT)")
	pflag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Port = port
	}

	log := logger.New(os.Stdout, logger.Options{
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
		Env:          cfg.Env,
		RollbarToken: cfg.RollbarToken,
	})
	slog.SetDefault(log)
	defer logger.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	// Initialize WebSocket hub
	wsHub := ws.NewHub(log)

	// Initialize services
	validator := service.NewValidator()
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	testSvc := service.NewTestService(stores.TestRepo, validator, log)
	attemptSvc := service.NewAttemptService(stores.TestRepo, stores.AttemptRepo, stores.UserRepo, stores.Leaderboard, log)
	if err := attemptSvc.WarmLeaderboard(ctx); err != nil {
		log.Error("failed to warm leaderboard", "error", err)
	}
	meetingSvc := service.NewMeetingService(stores.MeetingRepo, stores.InviteRepo, validator, cfg.ICEServers, log)
	presenceSvc := service.NewPresenceService(service.NewRoomRegistry(), stores.ChatHistory, log)
	relay := service.NewSignalRelay(log)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	presenceSvc.SetBroadcaster(wsHub)
	relay.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		AuthService:     authSvc,
		TestService:     testSvc,
		AttemptService:  attemptSvc,
		MeetingService:  meetingSvc,
		PresenceService: presenceSvc,
		SignalRelay:     relay,
		WSHub:           wsHub,
		CORS: rest.CORSConfig{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: cfg.CORSMethods,
			AllowedHeaders: cfg.CORSHeaders,
		},
		Logger: log,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", srv.Addr, "storage", cfg.StorageDriver, "chat", cfg.ChatDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		wsHub.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}
