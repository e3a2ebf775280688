package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ysv/peatio-core/internal/auth/jwt"
	"github.com/ysv/peatio-core/internal/bus"
	"github.com/ysv/peatio-core/internal/common/cnst"
	"github.com/ysv/peatio-core/internal/common/config"
	"github.com/ysv/peatio-core/internal/ranger"
	"github.com/ysv/peatio-core/pkg/logger"
	"github.com/ysv/peatio-core/pkg/metrics"
	"github.com/ysv/peatio-core/pkg/version"
)

var (
	configPath string
	injectUID  string

	rootCmd = &cobra.Command{
		Use:   cnst.CommandName,
		Short: "Ranger realtime gateway",
		Long:  `Ranger bridges the peatio event bus to websocket clients with per-stream authorization`,
	}

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the ranger gateway process",
		Run: func(cmd *cobra.Command, args []string) {
			start()
		},
	}

	injectCmd = &cobra.Command{
		Use:   "inject",
		Short: "Publish a canned sequence of sample events to the bus",
		Run: func(cmd *cobra.Command, args []string) {
			inject()
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ranger",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", cnst.AppName, version.Get())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "", "path to configuration file")
	injectCmd.Flags().StringVar(&injectUID, "uid", "IDE8E2280FD1", "user id for the private sample events")
	rootCmd.AddCommand(startCmd, injectCmd, versionCmd)
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("RANGER_CONFIG"); envPath != "" {
		return envPath
	}
	return "configs/" + cnst.RangerYaml
}

// loadDeps builds the pieces both subcommands need
func loadDeps() (*config.RangerConfig, *zap.Logger) {
	cfg, err := config.LoadConfig[config.RangerConfig](getConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, zapLogger
}

func start() {
	cfg, zapLogger := loadDeps()
	defer func() { _ = zapLogger.Sync() }()

	verifier, err := jwt.NewVerifierFromFile(cfg.Auth.JWTPublicKey)
	if err != nil {
		zapLogger.Fatal("failed to load JWT public key",
			zap.String("path", cfg.Auth.JWTPublicKey),
			zap.Error(err))
	}

	eventBus, err := bus.New(zapLogger, &cfg.Bus)
	if err != nil {
		zapLogger.Fatal("failed to initialize event bus", zap.Error(err))
	}
	defer func() { _ = eventBus.Close() }()

	m := metrics.New(cfg.Metrics)
	srv := ranger.NewServer(zapLogger, cfg, verifier, eventBus, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		zapLogger.Fatal("failed to subscribe to event bus", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	srv.RegisterRoutes(router)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zapLogger.Info("ranger listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("path", cfg.Server.Path))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("failed to shutdown server", zap.Error(err))
	}
}

// inject publishes a short demo sequence so deliveries can be observed
// end to end against a running gateway
func inject() {
	cfg, zapLogger := loadDeps()
	defer func() { _ = zapLogger.Sync() }()

	eventBus, err := bus.New(zapLogger, &cfg.Bus)
	if err != nil {
		zapLogger.Fatal("failed to initialize event bus", zap.Error(err))
	}
	defer func() { _ = eventBus.Close() }()

	ctx := context.Background()
	events := []*bus.Event{
		{Scope: bus.ScopePublic, Target: "btcusd", Stream: "order", Payload: json.RawMessage(`{"data":"btcusd_order_1"}`)},
		{Scope: bus.ScopePublic, Target: "btcusd", Stream: "trade", Payload: json.RawMessage(`{"data":"btcusd_trade_1"}`)},
		{Scope: bus.ScopePublic, Target: "ethusd", Stream: "order", Payload: json.RawMessage(`{"data":"ethusd_order_1"}`)},
		{Scope: bus.ScopePrivate, Target: injectUID, Stream: "stream_1", Payload: json.RawMessage(`{"data":"stream_1_message_1"}`)},
		{Scope: bus.ScopePrivate, Target: injectUID, Stream: "stream_2", Payload: json.RawMessage(`{"data":"stream_2_message_1"}`)},
	}
	for _, event := range events {
		if err := eventBus.Publish(ctx, event); err != nil {
			zapLogger.Fatal("failed to publish event",
				zap.String("channel", event.Channel()),
				zap.Error(err))
		}
		zapLogger.Info("published event", zap.String("channel", event.Channel()))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
