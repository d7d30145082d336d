package delivery

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/constellation-tracker/core"
	"github.com/signalsfoundry/constellation-tracker/internal/catalog"
	"github.com/signalsfoundry/constellation-tracker/internal/logging"
	"github.com/signalsfoundry/constellation-tracker/model"
)

// aggregateSampleCap bounds how many satellites are propagated when
// computing physical comparison aggregates. The "active" catalog group is
// tens of thousands of objects; aggregates over the first hundred are
// representative enough for a comparison view.
const aggregateSampleCap = 100

// MetricsRecorder receives delivery-level metric updates; nil is ignored.
type MetricsRecorder interface {
	AddPropagationFailures(n int)
	ObservePropagationBatch(scenarioID string, satellites int, d time.Duration)
}

// Coordinator turns a scenario's satellite set plus a time parameter into
// position batches: one-shot, paginated, time-stepped, or live frames. It
// is transport-agnostic; HTTP/SSE/WebSocket framing lives in the api
// package.
type Coordinator struct {
	registry *catalog.Registry
	log      logging.Logger
	metrics  MetricsRecorder
	now      func() time.Time
}

// NewCoordinator wires a coordinator to a registry. The metrics recorder
// may be nil.
func NewCoordinator(registry *catalog.Registry, log logging.Logger, metrics MetricsRecorder) *Coordinator {
	if log == nil {
		log = logging.Noop()
	}
	return &Coordinator{
		registry: registry,
		log:      log,
		metrics:  metrics,
		now:      time.Now,
	}
}

// SatelliteSummary is the satellite listing payload: identity and regime
// without elements or position.
type SatelliteSummary struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Regime model.OrbitRegime `json:"orbit_type"`
}

// SatelliteList is the result of listing a scenario's satellites.
type SatelliteList struct {
	ScenarioID string             `json:"scenario_id"`
	Count      int                `json:"count"`
	Satellites []SatelliteSummary `json:"satellites"`
	Elapsed    time.Duration      `json:"-"`
}

// PositionSet is an ordered batch of position samples plus chunking and
// latency metadata.
type PositionSet struct {
	ScenarioID    string                 `json:"scenario_id"`
	Timestamp     time.Time              `json:"timestamp"`
	TimeOffsetSec float64                `json:"time_offset_seconds"`
	Count         int                    `json:"count"`
	Positions     []model.PositionSample `json:"positions"`

	// Chunking metadata; populated by PositionsPage.
	ChunkSize   int `json:"chunk_size,omitempty"`
	ChunkIndex  int `json:"chunk_index,omitempty"`
	TotalChunks int `json:"total_chunks,omitempty"`
	TotalCount  int `json:"total_count,omitempty"`

	Elapsed time.Duration `json:"-"`
}

// ListSatellites materializes the scenario and returns id/name/regime for
// each member, with the materialization latency attached.
func (c *Coordinator) ListSatellites(ctx context.Context, scenarioID string) (SatelliteList, error) {
	start := c.now()
	sats, err := c.registry.Materialize(ctx, scenarioID)
	if err != nil {
		return SatelliteList{}, err
	}

	summaries := make([]SatelliteSummary, 0, len(sats))
	for _, sat := range sats {
		summaries = append(summaries, SatelliteSummary{ID: sat.ID, Name: sat.Name, Regime: sat.Regime})
	}
	return SatelliteList{
		ScenarioID: scenarioID,
		Count:      len(summaries),
		Satellites: summaries,
		Elapsed:    c.now().Sub(start),
	}, nil
}

// Positions propagates the full satellite set to now+offset, dropping
// members that fail to propagate. A positive limit truncates the
// materialized set before propagation.
func (c *Coordinator) Positions(ctx context.Context, scenarioID string, offsetSec float64, limit int) (PositionSet, error) {
	start := c.now()
	sats, err := c.registry.Materialize(ctx, scenarioID)
	if err != nil {
		return PositionSet{}, err
	}
	if limit > 0 && limit < len(sats) {
		sats = sats[:limit]
	}

	target := start.Add(secondsToDuration(offsetSec))
	samples := c.propagateBatch(scenarioID, sats, target)

	return PositionSet{
		ScenarioID:    scenarioID,
		Timestamp:     target,
		TimeOffsetSec: offsetSec,
		Count:         len(samples),
		Positions:     samples,
		Elapsed:       c.now().Sub(start),
	}, nil
}

// PositionsPage slices the materialized (not yet propagated) set to
// [chunkIndex*chunkSize, +chunkSize) and propagates only that slice. The
// union of all chunks reconstructs the full ordered set exactly once; an
// out-of-range index yields an empty page.
func (c *Coordinator) PositionsPage(ctx context.Context, scenarioID string, offsetSec float64, chunkSize, chunkIndex int) (PositionSet, error) {
	if chunkSize <= 0 {
		return PositionSet{}, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkIndex < 0 {
		return PositionSet{}, fmt.Errorf("chunk index must be non-negative, got %d", chunkIndex)
	}

	start := c.now()
	sats, err := c.registry.Materialize(ctx, scenarioID)
	if err != nil {
		return PositionSet{}, err
	}

	total := len(sats)
	totalChunks := (total + chunkSize - 1) / chunkSize

	lo := chunkIndex * chunkSize
	hi := lo + chunkSize
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}

	target := start.Add(secondsToDuration(offsetSec))
	samples := c.propagateBatch(scenarioID, sats[lo:hi], target)

	return PositionSet{
		ScenarioID:    scenarioID,
		Timestamp:     target,
		TimeOffsetSec: offsetSec,
		Count:         len(samples),
		Positions:     samples,
		ChunkSize:     chunkSize,
		ChunkIndex:    chunkIndex,
		TotalChunks:   totalChunks,
		TotalCount:    total,
		Elapsed:       c.now().Sub(start),
	}, nil
}

// propagateBatch advances every satellite to target, omitting failures
// from the result. Order follows input order.
func (c *Coordinator) propagateBatch(scenarioID string, sats []model.Satellite, target time.Time) []model.PositionSample {
	start := c.now()
	samples := make([]model.PositionSample, 0, len(sats))
	failures := 0
	for _, sat := range sats {
		prop, err := core.ForSatellite(sat)
		if err != nil {
			failures++
			continue
		}
		sample, err := prop.Propagate(sat, target)
		if err != nil {
			failures++
			c.log.Debug(context.Background(), "dropping satellite from batch",
				logging.String("scenario_id", scenarioID),
				logging.String("satellite_id", sat.ID),
				logging.String("error", err.Error()),
			)
			continue
		}
		samples = append(samples, sample)
	}

	if c.metrics != nil {
		if failures > 0 {
			c.metrics.AddPropagationFailures(failures)
		}
		c.metrics.ObservePropagationBatch(scenarioID, len(sats), c.now().Sub(start))
	}
	return samples
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

// ---- Scenario comparison ----

// CompareMetric selects the aggregate computed by Compare.
type CompareMetric string

const (
	MetricCount    CompareMetric = "count"
	MetricAltitude CompareMetric = "altitude"
	MetricVelocity CompareMetric = "velocity"
	MetricCoverage CompareMetric = "coverage"
)

// ValidCompareMetric reports whether m names a supported metric.
func ValidCompareMetric(m CompareMetric) bool {
	switch m {
	case MetricCount, MetricAltitude, MetricVelocity, MetricCoverage:
		return true
	}
	return false
}

// ScenarioAggregate is one scenario's comparison result. Fields are
// populated according to the requested metric.
type ScenarioAggregate struct {
	Name           string  `json:"name,omitempty"`
	SatelliteCount int     `json:"satellite_count"`
	Min            float64 `json:"min,omitempty"`
	Max            float64 `json:"max,omitempty"`
	Mean           float64 `json:"mean,omitempty"`
	Unit           string  `json:"unit,omitempty"`

	LatitudeMinDeg    float64 `json:"latitude_min,omitempty"`
	LatitudeMaxDeg    float64 `json:"latitude_max,omitempty"`
	LatitudeSpreadDeg float64 `json:"latitude_spread_degrees,omitempty"`
}

// Comparison holds per-scenario aggregates for one metric.
type Comparison struct {
	Metric    CompareMetric                `json:"metric"`
	Scenarios map[string]ScenarioAggregate `json:"comparison"`
	Elapsed   time.Duration                `json:"-"`
}

// Compare materializes each known scenario in ids and computes the
// requested aggregate at now+offset. Unknown ids are skipped, matching
// the rest of the core's degrade-not-fail behaviour.
func (c *Coordinator) Compare(ctx context.Context, ids []string, metric CompareMetric, offsetSec float64) (Comparison, error) {
	if !ValidCompareMetric(metric) {
		return Comparison{}, fmt.Errorf("unsupported comparison metric %q", metric)
	}

	start := c.now()
	target := start.Add(secondsToDuration(offsetSec))
	result := Comparison{Metric: metric, Scenarios: make(map[string]ScenarioAggregate)}

	for _, id := range ids {
		scenario, ok := c.registry.Get(id)
		if !ok {
			continue
		}
		sats, err := c.registry.Materialize(ctx, id)
		if err != nil {
			continue
		}

		switch metric {
		case MetricCount:
			result.Scenarios[id] = ScenarioAggregate{Name: scenario.Name, SatelliteCount: len(sats)}
		case MetricAltitude:
			agg, ok := c.physicalAggregate(id, sats, target, func(s model.PositionSample) float64 {
				return s.AltitudeM / 1000 // km
			})
			if ok {
				agg.Unit = "km"
				agg.SatelliteCount = len(sats)
				result.Scenarios[id] = agg
			}
		case MetricVelocity:
			agg, ok := c.physicalAggregate(id, sats, target, func(s model.PositionSample) float64 {
				return s.SpeedKmS
			})
			if ok {
				agg.Unit = "km/s"
				agg.SatelliteCount = len(sats)
				result.Scenarios[id] = agg
			}
		case MetricCoverage:
			if agg, ok := c.coverageAggregate(id, sats, target); ok {
				agg.SatelliteCount = len(sats)
				result.Scenarios[id] = agg
			}
		}
	}

	result.Elapsed = c.now().Sub(start)
	return result, nil
}

func (c *Coordinator) physicalAggregate(scenarioID string, sats []model.Satellite, target time.Time, value func(model.PositionSample) float64) (ScenarioAggregate, bool) {
	if len(sats) > aggregateSampleCap {
		sats = sats[:aggregateSampleCap]
	}
	samples := c.propagateBatch(scenarioID, sats, target)
	if len(samples) == 0 {
		return ScenarioAggregate{}, false
	}

	min, max, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, s := range samples {
		v := value(s)
		min = math.Min(min, v)
		max = math.Max(max, v)
		sum += v
	}
	return ScenarioAggregate{Min: min, Max: max, Mean: sum / float64(len(samples))}, true
}

func (c *Coordinator) coverageAggregate(scenarioID string, sats []model.Satellite, target time.Time) (ScenarioAggregate, bool) {
	if len(sats) > aggregateSampleCap {
		sats = sats[:aggregateSampleCap]
	}
	samples := c.propagateBatch(scenarioID, sats, target)
	if len(samples) == 0 {
		return ScenarioAggregate{}, false
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		min = math.Min(min, s.LatitudeDeg)
		max = math.Max(max, s.LatitudeDeg)
	}
	return ScenarioAggregate{
		LatitudeMinDeg:    min,
		LatitudeMaxDeg:    max,
		LatitudeSpreadDeg: max - min,
	}, true
}
