package source

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/poller"
)

// Kinds accepted by Open.
const (
	KindStatic    = "static"
	KindHTTP      = "http"
	KindInflux    = "influx"
	KindSimulated = "simulated"
)

// Settings selects and configures the snapshot source of a service.
type Settings struct {
	Kind string

	// static, simulated; also the fallback of http and influx when set
	FixturesPath string
	Seed         int64

	// http
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	BreakerFailures int
	BreakerOpenFor  time.Duration

	// influx
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	Logger *slog.Logger
}

// Open builds the source named by s.Kind. The returned close function
// releases its clients and is never nil.
func Open(s Settings) (poller.Source, func(), error) {
	noop := func() {}
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	var fixtures *Static
	if s.FixturesPath != "" {
		st, err := LoadStatic(s.FixturesPath)
		if err != nil {
			return nil, noop, err
		}
		fixtures = st
	}
	withFallback := func(primary poller.Source) poller.Source {
		if fixtures == nil {
			return primary
		}
		return &Fallback{Primary: primary, Secondary: fixtures, Logger: log}
	}

	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case "", KindStatic:
		if fixtures == nil {
			return nil, noop, fmt.Errorf("static source needs a fixtures file")
		}
		return fixtures, noop, nil

	case KindSimulated:
		if fixtures == nil {
			return nil, noop, fmt.Errorf("simulated source needs a fixtures file")
		}
		return NewSimulated(fixtures, s.Seed), noop, nil

	case KindHTTP:
		if s.BaseURL == "" {
			return nil, noop, fmt.Errorf("http source needs a base URL")
		}
		return withFallback(NewHTTP(HTTPConfig{
			BaseURL:         s.BaseURL,
			APIKey:          s.APIKey,
			Timeout:         s.Timeout,
			BreakerFailures: s.BreakerFailures,
			BreakerOpenFor:  s.BreakerOpenFor,
			Logger:          log,
		})), noop, nil

	case KindInflux:
		if s.InfluxURL == "" {
			return nil, noop, fmt.Errorf("influx source needs a URL")
		}
		client := influxdb2.NewClient(s.InfluxURL, s.InfluxToken)
		src := NewInflux(client, InfluxConfig{
			Org:          s.InfluxOrg,
			Bucket:       s.InfluxBucket,
			QueryTimeout: s.Timeout,
			Logger:       log,
		})
		return withFallback(src), client.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown source kind %q", s.Kind)
}
