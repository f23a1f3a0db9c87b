package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/groundlink/core/logger"
	coremetrics "github.com/kilianp07/groundlink/core/metrics"
	infralogger "github.com/kilianp07/groundlink/infra/logger"
)

// InfluxSink writes coordination events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      infralogger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
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

func (s *InfluxSink) RecordMessage(r coremetrics.MessageRecord) error {
	p := write.NewPointWithMeasurement("message_event").
		AddTag("vehicle_id", r.VehicleID).
		AddTag("type", r.Type).
		AddTag("outcome", r.Outcome).
		AddField("count", 1).
		SetTime(time.Now())
	return s.write(p)
}

func (s *InfluxSink) RecordAck(r coremetrics.AckRecord) error {
	p := write.NewPointWithMeasurement("ack_event").
		AddTag("vehicle_id", r.VehicleID).
		AddTag("type", r.Type).
		AddTag("acknowledged", strconv.FormatBool(r.Acknowledged)).
		AddField("attempts", r.Attempts).
		AddField("latency_ms", r.Latency.Milliseconds()).
		SetTime(time.Now())
	return s.write(p)
}

func (s *InfluxSink) RecordMissionStatus(r coremetrics.MissionRecord) error {
	p := write.NewPointWithMeasurement("mission_event").
		AddTag("status", r.Status).
		AddField("index", r.Index).
		SetTime(time.Now())
	return s.write(p)
}

func (s *InfluxSink) RecordFleetSize(active int) error {
	p := write.NewPointWithMeasurement("fleet_size").
		AddField("active", active).
		SetTime(time.Now())
	return s.write(p)
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
