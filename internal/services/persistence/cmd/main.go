package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/messages"
	persistencepkg "github.com/LeonardoBeccarini/campus_dashboard/internal/services/persistence"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	log := logging.NewFromEnv("persistence")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- MQTT ---
	mqClient, err := rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
		Host:     env("MQTT_HOST", "localhost"),
		Port:     envInt("MQTT_PORT", 1883),
		User:     env("MQTT_USER", "guest"),
		Password: env("MQTT_PASSWORD", "guest"),
		ClientID: env("MQTT_CLIENT_ID", "persistence-service"),
		Logger:   log,
	})
	if err != nil {
		log.Error("mqtt connect failed", "err", err)
		os.Exit(1)
	}
	consumer := rabbitmq.NewConsumer(mqClient, env("MQTT_TOPIC", messages.ReadingsFilter), nil, log)

	// --- InfluxDB ---
	writer, closeInflux, err := persistencepkg.NewInfluxWriter(persistencepkg.InfluxConfig{
		InfluxURL:    env("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  env("INFLUX_TOKEN", ""),
		InfluxOrg:    env("INFLUX_ORG", "campus"),
		InfluxBucket: env("INFLUX_BUCKET", "live"),
	})
	if err != nil {
		// senza Influx il servizio resta utile come cache
		log.Warn("influx disabled", "err", err)
		writer, closeInflux = nil, func() {}
	}
	defer closeInflux()

	svc := persistencepkg.NewService(consumer, writer, log)

	httpPort := env("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           handlers.RecoveryHandler()(persistencepkg.NewRouter(svc)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("persistence HTTP listening", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()

	go svc.Start(ctx)

	<-ctx.Done()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Info("shutdown complete")
}
