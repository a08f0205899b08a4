package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/source"
)

type Config struct {
	Source source.Settings
	// Scopes are the universities to keep warm; empty means every scope of
	// the fixtures file.
	Scopes []string

	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	ClientID     string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}
func getenvDuration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dd, err := time.ParseDuration(v); err == nil {
			return dd
		}
	}
	return d
}

func loadConfig() Config {
	var scopes []string
	for _, s := range strings.Split(getenv("SCOPES", ""), ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return Config{
		Source: source.Settings{
			Kind:            getenv("SOURCE_KIND", source.KindStatic),
			FixturesPath:    getenv("FIXTURES_PATH", "configs/fixtures.yaml"),
			Seed:            int64(getenvInt("SIM_SEED", 1)),
			BaseURL:         getenv("UPSTREAM_URL", ""),
			APIKey:          getenv("UPSTREAM_API_KEY", ""),
			Timeout:         getenvDuration("UPSTREAM_TIMEOUT", 5*time.Second),
			BreakerFailures: getenvInt("CB_FAILS", 5),
			BreakerOpenFor:  getenvDuration("CB_OPEN", 10*time.Second),
			InfluxURL:       getenv("INFLUX_URL", "http://influxdb:8086"),
			InfluxToken:     getenv("INFLUX_TOKEN", ""),
			InfluxOrg:       getenv("INFLUX_ORG", "campus"),
			InfluxBucket:    getenv("INFLUX_BUCKET", "campus"),
		},
		Scopes: scopes,

		MQTTHost:     getenv("MQTT_HOST", "localhost"),
		MQTTPort:     getenvInt("MQTT_PORT", 1883),
		MQTTUser:     getenv("MQTT_USER", "guest"),
		MQTTPassword: getenv("MQTT_PASSWORD", "guest"),
		ClientID:     getenv("MQTT_CLIENT_ID", "recommender1"),
	}
}
