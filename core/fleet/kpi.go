package fleet

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/groundlink/core/model"
)

// KPI summarizes fleet health for the operator API.
type KPI struct {
	Vehicles          int     `json:"vehicles"`
	ActiveVehicles    int     `json:"active_vehicles"`
	AvailabilityRatio float64 `json:"availability_ratio"`
	AckCount          int     `json:"ack_count"`
	AckMeanSeconds    float64 `json:"ack_mean_seconds"`
	AckStdDevSeconds  float64 `json:"ack_stddev_seconds"`
	AckP95Seconds     float64 `json:"ack_p95_seconds"`
}

// KPITracker accumulates acknowledgment latencies in a bounded window. It is
// fed from the event bus, which runs outside the loop, so it carries its own
// lock.
type KPITracker struct {
	mu        sync.Mutex
	latencies []float64
	limit     int
}

// NewKPITracker creates a tracker keeping the most recent limit samples.
func NewKPITracker(limit int) *KPITracker {
	if limit <= 0 {
		limit = 1024
	}
	return &KPITracker{limit: limit}
}

// Observe records one acknowledgment latency.
func (t *KPITracker) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latencies = append(t.latencies, d.Seconds())
	if len(t.latencies) > t.limit {
		t.latencies = t.latencies[len(t.latencies)-t.limit:]
	}
}

// Compute derives the KPI set from the latency window and a fleet snapshot.
func (t *KPITracker) Compute(vehicles []model.Vehicle) KPI {
	t.mu.Lock()
	lat := append([]float64(nil), t.latencies...)
	t.mu.Unlock()

	k := KPI{Vehicles: len(vehicles), AckCount: len(lat)}
	available := 0
	for _, v := range vehicles {
		if v.IsActive {
			k.ActiveVehicles++
			if v.IsAvailable {
				available++
			}
		}
	}
	if k.ActiveVehicles > 0 {
		k.AvailabilityRatio = float64(available) / float64(k.ActiveVehicles)
	}
	if len(lat) > 0 {
		k.AckMeanSeconds, k.AckStdDevSeconds = stat.MeanStdDev(lat, nil)
		if len(lat) == 1 {
			k.AckStdDevSeconds = 0
			k.AckP95Seconds = lat[0]
		} else {
			sort.Float64s(lat)
			k.AckP95Seconds = stat.Quantile(0.95, stat.Empirical, lat, nil)
		}
	}
	return k
}
