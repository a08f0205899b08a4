package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/observability"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/assistant"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/gateway/app"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/poller"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/source"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/auth"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
)

func main() {
	log := logging.NewFromEnv("gateway")

	cfg, err := loadConfig()
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		log.Error("metrics registration failed", "err", err)
		os.Exit(1)
	}

	cfg.Source.Logger = log
	src, closeSource, err := source.Open(cfg.Source)
	if err != nil {
		log.Error("cannot open snapshot source", "kind", cfg.Source.Kind, "err", err)
		os.Exit(1)
	}
	defer closeSource()

	tokens, err := auth.ParseTokens(cfg.AuthTokens)
	if err != nil {
		log.Error("invalid AUTH_TOKENS", "err", err)
		os.Exit(1)
	}

	health := app.NewHealth(log)
	registry := poller.NewRegistry(ctx, poller.RegistryConfig{
		Source:    src,
		Logger:    log,
		Metrics:   metrics,
		Intervals: cfg.Intervals,
		OnUpdate:  health.OnUpdate,
		OnError:   health.OnError,
	})
	defer registry.Close()

	var responder assistant.Responder
	if cfg.ResponderURL != "" {
		responder = assistant.NewHTTPResponder(assistant.HTTPResponderConfig{
			URL:     cfg.ResponderURL,
			APIKey:  cfg.ResponderKey,
			Model:   cfg.ResponderModel,
			Timeout: 2 * cfg.HTTPTimeout,
			Logger:  log,
		})
	}
	router := assistant.New(assistant.Config{
		Snapshots: registry,
		Responder: responder,
		Metrics:   metrics,
		Logger:    log,
	})

	if cfg.MQTTHost != "" {
		go runBridge(ctx, cfg, router, tokens)
	}

	gw := app.NewGateway(app.Config{
		Snapshots:      registry,
		Auth:           tokens,
		Assistant:      router,
		Metrics:        metrics,
		HTTPTimeout:    cfg.HTTPTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         log,
	})

	// gRPC health
	grpcSrv := app.NewGRPCServer(health, metrics)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Error("grpc listen failed", "port", cfg.GRPCPort, "err", err)
		os.Exit(1)
	}
	go func() {
		log.Info("grpc health listening", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			log.Warn("grpc server stopped", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gw.AccessLogged(os.Stdout),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("gateway listening", "addr", srv.Addr, "source", cfg.Source.Kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
}

// runBridge connects to the broker and serves spoken utterances until ctx
// is done. A broker outage disables voice but not the dashboard.
func runBridge(ctx context.Context, cfg Config, router *assistant.Router, tokens auth.Authenticator) {
	log := logging.OrDefault(nil).With("component", "bridge")
	mq := &rabbitmq.RabbitMQConfig{
		Host:     cfg.MQTTHost,
		Port:     cfg.MQTTPort,
		User:     cfg.MQTTUser,
		Password: cfg.MQTTPassword,
		ClientID: "gateway-" + uuid.NewString()[:8],
		Logger:   log,
	}
	client, err := rabbitmq.NewRabbitMQConn(ctx, mq)
	if err != nil {
		log.Error("speech bridge disabled", "err", err)
		return
	}
	bridge := assistant.NewBridge(assistant.BridgeConfig{
		Consumer:  rabbitmq.NewConsumer(client, assistant.UtteranceTopic, nil, log),
		Publisher: rabbitmq.NewPublisher(client, "", log),
		Router:    router,
		Auth:      tokens,
		Logger:    log,
	})
	bridge.Start(ctx)
}
