package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/signalsfoundry/constellation-tracker/core"
	"github.com/signalsfoundry/constellation-tracker/internal/logging"
	"github.com/signalsfoundry/constellation-tracker/model"
)

const tracerName = "github.com/signalsfoundry/constellation-tracker/internal/catalog"

// ErrUnknownScenario is returned when a scenario id is not registered.
var ErrUnknownScenario = errors.New("unknown scenario")

const celestrakBase = "https://celestrak.org/NORAD/elements/gp.php"

// MetricsRecorder receives registry-level metric updates. Implemented by
// the observability collector; a nil recorder is ignored.
type MetricsRecorder interface {
	SetScenarioSatellites(scenarioID string, count int)
	ObserveMaterialization(scenarioID, source string, d time.Duration)
	IncUpstreamFetchFailures()
}

// Registry maps scenario ids to their definitions and materializes
// satellite sets on demand through the element cache. It is constructed
// explicitly and passed by reference from the composition root; request
// handlers never mutate it except through the materialization path, which
// back-fills satellite counts.
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]model.Scenario
	order     []string

	cache   *ElementCache
	fetcher *Fetcher
	log     logging.Logger
	metrics MetricsRecorder

	// group coalesces concurrent rebuilds of the same uncached scenario so
	// one fetch or generation serves every waiter.
	group singleflight.Group

	// deterministic seeds the generator per scenario id so regeneration
	// after cache expiry is bit-exact.
	deterministic bool
}

// Option configures optional Registry collaborators.
type Option func(*Registry)

// WithMetricsRecorder attaches a metrics recorder to the registry.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithDeterministicGeneration makes generated scenarios reproduce the same
// element set on every materialization.
func WithDeterministicGeneration() Option {
	return func(r *Registry) { r.deterministic = true }
}

// NewRegistry constructs an empty registry. Call Seed to register the
// built-in scenarios.
func NewRegistry(cache *ElementCache, fetcher *Fetcher, log logging.Logger, opts ...Option) *Registry {
	if cache == nil {
		cache = NewElementCache(0)
	}
	if fetcher == nil {
		fetcher = NewFetcher(nil)
	}
	if log == nil {
		log = logging.Noop()
	}
	r := &Registry{
		scenarios: make(map[string]model.Scenario),
		cache:     cache,
		fetcher:   fetcher,
		log:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a scenario definition. Re-registering an id overwrites the
// previous definition but keeps its listing position.
func (r *Registry) Register(s model.Scenario) error {
	if s.ID == "" {
		return fmt.Errorf("scenario id is required")
	}
	if s.SourceURL == "" && s.Generation == nil {
		return fmt.Errorf("scenario %q needs a source URL or generation parameters", s.ID)
	}
	r.mu.Lock()
	if _, exists := r.scenarios[s.ID]; !exists {
		r.order = append(r.order, s.ID)
	}
	r.scenarios[s.ID] = s
	r.mu.Unlock()
	return nil
}

// Seed registers the built-in scenario set: the CelesTrak catalog groups
// the service has always tracked, plus two synthesized Walker
// constellations exercising the analytic propagation path.
func (r *Registry) Seed(now time.Time) error {
	external := []struct {
		id, name, desc, group string
	}{
		{"starlink", "Starlink Constellation", "SpaceX Starlink broadband satellites", "starlink"},
		{"gps", "GPS Constellation", "US Global Positioning System satellites", "gps-ops"},
		{"iridium", "Iridium NEXT", "Iridium satellite phone constellation", "iridium-NEXT"},
		{"space-stations", "Space Stations", "ISS and other crewed stations", "stations"},
		{"oneweb", "OneWeb Constellation", "OneWeb broadband satellites", "oneweb"},
		{"active", "All Active Satellites", "All currently active satellites (large dataset)", "active"},
	}
	for _, e := range external {
		if err := r.Register(model.Scenario{
			ID:          e.id,
			Name:        e.name,
			Description: e.desc,
			SourceURL:   fmt.Sprintf("%s?GROUP=%s&FORMAT=tle", celestrakBase, e.group),
			CreatedAt:   now,
		}); err != nil {
			return err
		}
	}

	generated := []model.Scenario{
		{
			ID:          "gps-constellation",
			Name:        "Synthetic GPS Constellation",
			Description: "Walker-delta 24-satellite MEO navigation constellation",
			Generation: &model.GenerationParams{
				Planes: 6, SatsPerPlane: 4,
				AltitudeKm: 20200, InclinationDeg: 55,
				Regime: model.RegimeMEO,
			},
			CreatedAt: now,
		},
		{
			ID:          "leo-mesh",
			Name:        "Synthetic LEO Mesh",
			Description: "Walker-delta 240-satellite LEO broadband mesh",
			Generation: &model.GenerationParams{
				Planes: 12, SatsPerPlane: 20,
				AltitudeKm: 550, InclinationDeg: 53,
				Regime: model.RegimeLEO,
			},
			CreatedAt: now,
		},
	}
	for _, s := range generated {
		s.SatelliteCount = s.Generation.Planes * s.Generation.SatsPerPlane
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// List returns all scenarios in registration order.
func (r *Registry) List() []model.Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Scenario, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.scenarios[id])
	}
	return out
}

// Get returns the scenario definition for id.
func (r *Registry) Get(id string) (model.Scenario, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[id]
	return s, ok
}

// Cache exposes the element cache, mainly for stats reporting.
func (r *Registry) Cache() *ElementCache { return r.cache }

// Materialize returns the satellite set for a scenario, serving from the
// element cache when fresh and rebuilding it otherwise. External-source
// scenarios are fetched and parsed; generated scenarios are synthesized.
// An upstream fetch failure degrades to an empty set with no cache write
// and no retry. Unknown ids return ErrUnknownScenario.
func (r *Registry) Materialize(ctx context.Context, id string) ([]model.Satellite, error) {
	scenario, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}

	if sats, ok := r.cache.Get(id); ok {
		return sats, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		// A waiter that lost the race may find the winner's entry already
		// cached.
		if sats, ok := r.cache.Get(id); ok {
			return sats, nil
		}
		return r.rebuild(ctx, scenario), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Satellite), nil
}

func (r *Registry) rebuild(ctx context.Context, scenario model.Scenario) []model.Satellite {
	tracer := otel.Tracer(tracerName)
	source := "upstream"
	if scenario.Generated() {
		source = "generated"
	}
	ctx, span := tracer.Start(ctx, "catalog.Materialize")
	span.SetAttributes(
		attribute.String("scenario.id", scenario.ID),
		attribute.String("scenario.source", source),
	)
	defer span.End()

	start := time.Now()
	var sats []model.Satellite
	if scenario.Generated() {
		sats = r.generate(scenario)
	} else {
		sats = r.fetchAndParse(ctx, scenario)
		if sats == nil {
			// Fetch failed; report the empty set without caching it.
			span.SetAttributes(attribute.Bool("scenario.fetch_failed", true))
			return nil
		}
	}

	r.cache.Set(scenario.ID, sats)
	r.setCount(scenario.ID, len(sats))

	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.ObserveMaterialization(scenario.ID, source, elapsed)
	}
	r.log.Info(ctx, "materialized scenario",
		logging.String("scenario_id", scenario.ID),
		logging.String("source", source),
		logging.Int("satellites", len(sats)),
		logging.Duration("elapsed", elapsed),
	)
	span.SetAttributes(attribute.Int("scenario.satellites", len(sats)))
	return sats
}

func (r *Registry) generate(scenario model.Scenario) []model.Satellite {
	p := scenario.Generation
	var rng *rand.Rand
	if r.deterministic {
		rng = core.SeededRand(scenario.ID)
	}
	return core.GenerateConstellation(
		scenario.ID,
		p.Planes, p.SatsPerPlane,
		p.AltitudeKm, p.InclinationDeg,
		p.Regime, rng,
	)
}

func (r *Registry) fetchAndParse(ctx context.Context, scenario model.Scenario) []model.Satellite {
	text, err := r.fetcher.Fetch(ctx, scenario.SourceURL)
	if err != nil {
		if r.metrics != nil {
			r.metrics.IncUpstreamFetchFailures()
		}
		r.log.Warn(ctx, "upstream fetch failed",
			logging.String("scenario_id", scenario.ID),
			logging.String("error", err.Error()),
		)
		return nil
	}
	sats := core.ParseTLE(ctx, text, r.log)
	if sats == nil {
		sats = []model.Satellite{}
	}
	return sats
}

func (r *Registry) setCount(id string, count int) {
	r.mu.Lock()
	if s, ok := r.scenarios[id]; ok {
		s.SatelliteCount = count
		r.scenarios[id] = s
	}
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.SetScenarioSatellites(id, count)
	}
}
