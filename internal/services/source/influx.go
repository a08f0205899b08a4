package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

type InfluxConfig struct {
	Org    string
	Bucket string
	// MeasurementPrefix + category names the measurement, e.g. "campus_parking".
	MeasurementPrefix string
	// Window bounds how far back the latest reading may be.
	Window       time.Duration
	QueryTimeout time.Duration

	Logger *slog.Logger
}

// Influx reads the latest reading of every resource from InfluxDB.
// Tags carry identity (id, scope, name, building), fields carry state.
type Influx struct {
	client influxdb2.Client
	cfg    InfluxConfig
	log    *slog.Logger
}

func NewInflux(client influxdb2.Client, cfg InfluxConfig) *Influx {
	if cfg.MeasurementPrefix == "" {
		cfg.MeasurementPrefix = "campus_"
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 3 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Influx{client: client, cfg: cfg, log: log}
}

func buildLatestFlux(bucket, measurement, scope string, window time.Duration) string {
	minutes := int(window.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.scope == %q)
  |> last()
  |> drop(columns: ["_start","_stop","_time","_measurement"])
  |> pivot(rowKey: ["id"], columnKey: ["_field"], valueColumn: "_value")
  |> group()
  |> sort(columns: ["id"])
`, bucket, minutes, measurement, scope)
}

func (s *Influx) Fetch(ctx context.Context, c entities.Category, scope string) (entities.Snapshot, error) {
	if _, ok := DefaultPaths[c]; !ok {
		return entities.Snapshot{}, fmt.Errorf("influx source: %w: %q", ErrUnknownCategory, c)
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	measurement := s.cfg.MeasurementPrefix + string(c)
	res, err := s.client.QueryAPI(s.cfg.Org).Query(ctx, buildLatestFlux(s.cfg.Bucket, measurement, scope, s.cfg.Window))
	if err != nil {
		return entities.Snapshot{}, fmt.Errorf("influx query %s: %w", measurement, err)
	}
	defer res.Close()

	rows := make([]map[string]interface{}, 0, 16)
	for res.Next() {
		row := make(map[string]interface{})
		for k, v := range res.Record().Values() {
			if k == "result" || k == "table" || strings.HasPrefix(k, "_") {
				continue
			}
			row[k] = v
		}
		rows = append(rows, row)
	}
	if res.Err() != nil {
		return entities.Snapshot{}, fmt.Errorf("influx iterate %s: %w", measurement, res.Err())
	}

	// Rows go through the tolerant JSON decoders of the entities.
	raw, err := json.Marshal(rows)
	if err != nil {
		return entities.Snapshot{}, err
	}
	snap := entities.Snapshot{Category: c, Scope: scope, FetchedAt: time.Now()}
	if err := decodeInto(&snap, c, raw); err != nil {
		return entities.Snapshot{}, fmt.Errorf("influx decode %s: %w", measurement, err)
	}
	stampCategory(&snap, c)
	keepScope(&snap, scope)
	s.log.Debug("influx snapshot", "measurement", measurement, "scope", scope, "rows", len(rows))
	return snap, nil
}
