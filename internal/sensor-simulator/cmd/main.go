package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sensorSimulator "github.com/LeonardoBeccarini/campus_dashboard/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/source"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
)

func main() {
	// define flags
	fixtures := flag.String("fixtures", "configs/fixtures.yaml", "fixtures file the simulation starts from")
	scopesFlag := flag.String("scopes", "", "comma separated scopes (default: all in fixtures)")
	clientID := flag.String("client-id", "campusFeed1", "MQTT client ID")
	host := flag.String("mqtt-host", "localhost", "MQTT host")
	port := flag.Int("mqtt-port", 1883, "MQTT port")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	log := logging.NewFromEnv("campus-feed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	static, err := source.LoadStatic(*fixtures)
	if err != nil {
		log.Error("cannot load fixtures", "err", err)
		os.Exit(1)
	}
	scopes := static.Scopes()
	if *scopesFlag != "" {
		scopes = strings.Split(*scopesFlag, ",")
	}

	client, err := rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
		Host:     *host,
		Port:     *port,
		User:     "guest",
		Password: "guest",
		ClientID: *clientID,
		Logger:   log,
	})
	if err != nil {
		log.Error("mqtt connect failed", "err", err)
		os.Exit(1)
	}

	publisher := rabbitmq.NewPublisher(client, "", log)
	sim := sensorSimulator.NewSensorSimulator(source.NewSimulated(static, *seed), publisher, scopes, log)
	log.Info("campus feed running", "scopes", scopes, "interval", interval.String())
	sim.Start(ctx, *interval)
}
