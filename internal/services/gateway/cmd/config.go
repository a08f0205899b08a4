package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/source"
)

type Config struct {
	Port     string
	GRPCPort string

	Source    source.Settings
	Intervals map[entities.Category]time.Duration

	AuthTokens     string // "tok=user@scope,..."
	AllowedOrigins []string
	HTTPTimeout    time.Duration

	// Assistant free-text fallback (opzionale)
	ResponderURL   string
	ResponderKey   string
	ResponderModel string

	// Speech bridge over MQTT (opzionale, vuoto = disabilitato)
	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
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

// parseIntervals legge "elevator=5s,parking=20s".
func parseIntervals(s string) (map[entities.Category]time.Duration, error) {
	out := make(map[entities.Category]time.Duration)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid POLL_INTERVALS entry: %q", p)
		}
		c, ok := entities.ParseCategory(kv[0])
		if !ok {
			return nil, fmt.Errorf("unknown category in POLL_INTERVALS: %q", kv[0])
		}
		d, err := time.ParseDuration(strings.TrimSpace(kv[1]))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid interval for %s: %q", c, kv[1])
		}
		out[c] = d
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadConfig() (Config, error) {
	intervals, err := parseIntervals(getenv("POLL_INTERVALS", ""))
	if err != nil {
		return Config{}, err
	}
	timeout := getenvDuration("UPSTREAM_TIMEOUT", 5*time.Second)
	return Config{
		Port:     getenv("PORT", "5009"),
		GRPCPort: getenv("GRPC_PORT", "5010"),

		Source: source.Settings{
			Kind:            getenv("SOURCE_KIND", source.KindStatic),
			FixturesPath:    getenv("FIXTURES_PATH", "configs/fixtures.yaml"),
			Seed:            int64(getenvInt("SIM_SEED", 1)),
			BaseURL:         getenv("UPSTREAM_URL", ""),
			APIKey:          getenv("UPSTREAM_API_KEY", ""),
			Timeout:         timeout,
			BreakerFailures: getenvInt("CB_FAILS", 5),
			BreakerOpenFor:  getenvDuration("CB_OPEN", 10*time.Second),
			InfluxURL:       getenv("INFLUX_URL", "http://influxdb:8086"),
			InfluxToken:     getenv("INFLUX_TOKEN", ""),
			InfluxOrg:       getenv("INFLUX_ORG", "campus"),
			InfluxBucket:    getenv("INFLUX_BUCKET", "campus"),
		},
		Intervals: intervals,

		AuthTokens:     getenv("AUTH_TOKENS", ""),
		AllowedOrigins: splitList(getenv("CORS_ORIGINS", "")),
		HTTPTimeout:    timeout,

		ResponderURL:   getenv("RESPONDER_URL", ""),
		ResponderKey:   getenv("RESPONDER_API_KEY", ""),
		ResponderModel: getenv("RESPONDER_MODEL", ""),

		MQTTHost:     getenv("MQTT_HOST", ""),
		MQTTPort:     getenvInt("MQTT_PORT", 1883),
		MQTTUser:     getenv("MQTT_USER", "guest"),
		MQTTPassword: getenv("MQTT_PASSWORD", "guest"),
	}, nil
}
