package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/observability"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/aggregator"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/poller"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/source"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
)

// The recommender keeps the seating categories of every scope polled and
// publishes the best pick of each refresh on
// dashboard/recommendation/{scope}/{category}.
func main() {
	log := logging.NewFromEnv("recommender")
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Source.Logger = log
	src, closeSource, err := source.Open(cfg.Source)
	if err != nil {
		log.Error("cannot open snapshot source", "kind", cfg.Source.Kind, "err", err)
		os.Exit(1)
	}
	defer closeSource()

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		if st, ok := src.(*source.Static); ok {
			scopes = st.Scopes()
		}
	}
	if len(scopes) == 0 {
		log.Error("no scopes to watch, set SCOPES")
		os.Exit(1)
	}

	client, err := rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
		Host:     cfg.MQTTHost,
		Port:     cfg.MQTTPort,
		User:     cfg.MQTTUser,
		Password: cfg.MQTTPassword,
		ClientID: cfg.ClientID,
		Logger:   log,
	})
	if err != nil {
		log.Error("failed to connect to MQTT broker", "err", err)
		os.Exit(1)
	}
	publisher := rabbitmq.NewPublisher(client, "", log)
	defer publisher.Close()

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		log.Error("metrics registration failed", "err", err)
		os.Exit(1)
	}
	recommender := aggregator.NewRecommender(publisher, log)
	registry := poller.NewRegistry(ctx, poller.RegistryConfig{
		Source:   src,
		Logger:   log,
		Metrics:  metrics,
		OnUpdate: recommender.OnSnapshot,
	})
	defer registry.Close()

	// One lease per (category, scope) keeps its poller running.
	for _, scope := range scopes {
		for _, c := range []entities.Category{entities.CategoryParking, entities.CategoryLibrary, entities.CategoryFood} {
			lease := registry.Acquire(c, scope)
			defer lease.Release()
		}
	}

	log.Info("recommender running", "scopes", scopes, "pollers", registry.Active())
	<-ctx.Done()
	log.Info("recommender stopping")
}
