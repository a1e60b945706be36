package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evsync/core/metrics"
	"github.com/kilianp07/evsync/infra/logger"
)

// InfluxConfig holds the InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes synchronization outcomes to an InfluxDB instance using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.OutcomeRecorder {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordOutcome writes a sync_outcome point.
func (s *InfluxSink) RecordOutcome(o coremetrics.Outcome) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("sync_outcome").
		AddTag("adapter_id", o.AdapterID).
		AddTag("path", string(o.Path)).
		AddTag("kind", o.Kind).
		AddField("items", o.Items).
		AddField("warnings", o.Warnings).
		AddField("runtime_ms", round3(o.Runtime.Seconds()*1000)).
		SetTime(o.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordQueueDepth writes a sync_queue_depth point.
func (s *InfluxSink) RecordQueueDepth(d coremetrics.QueueDepth) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("sync_queue_depth").
		AddTag("adapter_id", d.AdapterID).
		AddField("add", d.Add).
		AddField("update", d.Update).
		AddField("remove", d.Remove).
		AddField("status_fast", d.StatusFast).
		AddField("status_delayed", d.StatusDelayed).
		AddField("cdr", d.CDR).
		SetTime(d.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordNotForwarded writes a cdr_not_forwarded point.
func (s *InfluxSink) RecordNotForwarded(n coremetrics.NotForwarded) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("cdr_not_forwarded").
		AddTag("adapter_id", n.AdapterID).
		AddField("records", n.Records).
		SetTime(n.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
