package repository

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"birdsbuddy/internal/models"
)

const reservoirMeasurement = "reservoir"

// pointWriter is the part of api.WriteAPIBlocking used here.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// TelemetryInflux keeps samples in an InfluxDB v2 bucket.
type TelemetryInflux struct {
	client influxdb2.Client
	write  pointWriter
	query  api.QueryAPI
	bucket string
}

func NewTelemetryInflux(url, token, org, bucket string) *TelemetryInflux {
	client := influxdb2.NewClient(url, token)
	return &TelemetryInflux{
		client: client,
		write:  client.WriteAPIBlocking(org, bucket),
		query:  client.QueryAPI(org),
		bucket: bucket,
	}
}

func samplePoint(s models.TelemetrySample) *write.Point {
	t := s.RecordedAt
	if t.IsZero() {
		t = time.Now()
	}
	fields := map[string]interface{}{
		"food_pct":  s.FoodReservoirPct,
		"water_pct": s.WaterReservoirPct,
		"food_g":    s.FoodWeightGrams,
	}
	return influxdb2.NewPoint(reservoirMeasurement, map[string]string{"source": "console"}, fields, t.UTC())
}

func (r *TelemetryInflux) Record(ctx context.Context, s models.TelemetrySample) error {
	return r.write.WritePoint(ctx, samplePoint(s))
}

// buildHourlyFlux averages both reservoir fields per hour. fn is mean or count.
func buildHourlyFlux(bucket string, from, to time.Time, fn string) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q and (r._field == "food_pct" or r._field == "water_pct"))
  |> aggregateWindow(every: 1h, fn: %s, createEmpty: false)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"])`,
		bucket, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339), reservoirMeasurement, fn)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}

// Hourly returns one point per hour in [from, to). aggregateWindow stamps
// windows with their stop time, so each point is shifted back one hour.
func (r *TelemetryInflux) Hourly(ctx context.Context, from, to time.Time) ([]models.HistoryPoint, error) {
	counts := map[time.Time]int{}
	res, err := r.query.Query(ctx, buildHourlyFlux(r.bucket, from, to, "count"))
	if err != nil {
		return nil, fmt.Errorf("query sample counts: %w", err)
	}
	for res.Next() {
		rec := res.Record()
		counts[rec.Time().UTC()] = int(toFloat(rec.ValueByKey("food_pct")))
	}
	if err := res.Err(); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("read sample counts: %w", err)
	}
	_ = res.Close()

	res, err = r.query.Query(ctx, buildHourlyFlux(r.bucket, from, to, "mean"))
	if err != nil {
		return nil, fmt.Errorf("query hourly means: %w", err)
	}
	defer res.Close()

	var out []models.HistoryPoint
	for res.Next() {
		rec := res.Record()
		stop := rec.Time().UTC()
		out = append(out, models.HistoryPoint{
			Hour:              stop.Add(-time.Hour),
			FoodReservoirPct:  toFloat(rec.ValueByKey("food_pct")),
			WaterReservoirPct: toFloat(rec.ValueByKey("water_pct")),
			Samples:           counts[stop],
		})
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("read hourly means: %w", err)
	}
	return out, nil
}

func (r *TelemetryInflux) Close() {
	r.client.Close()
}
