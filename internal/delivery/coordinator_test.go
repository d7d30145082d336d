package delivery

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/constellation-tracker/internal/catalog"
	"github.com/signalsfoundry/constellation-tracker/model"
)

// newTestCoordinator builds a coordinator over a registry holding two
// deterministically generated scenarios, so no test touches the network.
func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	r := catalog.NewRegistry(catalog.NewElementCache(time.Hour), nil, nil,
		catalog.WithDeterministicGeneration())

	scenarios := []model.Scenario{
		{
			ID:   "nav-walker",
			Name: "Navigation Walker",
			Generation: &model.GenerationParams{
				Planes: 6, SatsPerPlane: 4,
				AltitudeKm: 20200, InclinationDeg: 55,
				Regime: model.RegimeMEO,
			},
		},
		{
			ID:   "mesh-walker",
			Name: "Mesh Walker",
			Generation: &model.GenerationParams{
				Planes: 4, SatsPerPlane: 5,
				AltitudeKm: 550, InclinationDeg: 53,
				Regime: model.RegimeLEO,
			},
		},
	}
	for _, s := range scenarios {
		if err := r.Register(s); err != nil {
			t.Fatalf("Register(%s): %v", s.ID, err)
		}
	}
	return NewCoordinator(r, nil, nil)
}

func TestListSatellites(t *testing.T) {
	c := newTestCoordinator(t)

	list, err := c.ListSatellites(context.Background(), "nav-walker")
	if err != nil {
		t.Fatalf("ListSatellites: %v", err)
	}
	if list.ScenarioID != "nav-walker" || list.Count != 24 || len(list.Satellites) != 24 {
		t.Fatalf("list = %+v, want 24 satellites for nav-walker", list)
	}
	if list.Satellites[0].ID != "nav-walker-P01-S01" {
		t.Errorf("first satellite id = %q", list.Satellites[0].ID)
	}
	for _, s := range list.Satellites {
		if s.Regime != model.RegimeMEO {
			t.Errorf("satellite %q regime = %q, want MEO", s.ID, s.Regime)
		}
	}

	if _, err := c.ListSatellites(context.Background(), "nope"); !errors.Is(err, catalog.ErrUnknownScenario) {
		t.Fatalf("unknown scenario err = %v", err)
	}
}

func TestPositionsFullBatch(t *testing.T) {
	c := newTestCoordinator(t)

	set, err := c.Positions(context.Background(), "nav-walker", 120, 0)
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if set.Count != 24 || len(set.Positions) != 24 {
		t.Fatalf("got %d positions, want 24", set.Count)
	}
	if set.TimeOffsetSec != 120 {
		t.Errorf("offset = %v, want 120", set.TimeOffsetSec)
	}

	// MEO shell sanity: circular vis-viva speed at 20200 km is ~3.87 km/s
	// and the small generated eccentricities keep radius near nominal.
	for _, p := range set.Positions {
		altKm := p.AltitudeM / 1000
		if math.Abs(altKm-20200) > 250 {
			t.Errorf("satellite %q altitude %.1f km outside MEO shell", p.ID, altKm)
		}
		if math.Abs(p.SpeedKmS-3.87) > 0.05 {
			t.Errorf("satellite %q speed %.3f km/s implausible for MEO", p.ID, p.SpeedKmS)
		}
		if p.LatitudeDeg < -56 || p.LatitudeDeg > 56 {
			t.Errorf("satellite %q latitude %.2f exceeds inclination bound", p.ID, p.LatitudeDeg)
		}
	}
}

func TestPositionsLimit(t *testing.T) {
	c := newTestCoordinator(t)

	set, err := c.Positions(context.Background(), "nav-walker", 0, 5)
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if set.Count != 5 {
		t.Fatalf("limited batch has %d positions, want 5", set.Count)
	}

	// A limit past the set size is a no-op.
	set, err = c.Positions(context.Background(), "nav-walker", 0, 500)
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if set.Count != 24 {
		t.Fatalf("oversized limit returned %d positions, want 24", set.Count)
	}
}

func TestPositionsPageReassemblesFullSet(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	full, err := c.Positions(ctx, "nav-walker", 60, 0)
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}

	const chunkSize = 7 // 24 satellites -> 4 chunks, last one partial
	var reassembled []string
	for idx := 0; ; idx++ {
		page, err := c.PositionsPage(ctx, "nav-walker", 60, chunkSize, idx)
		if err != nil {
			t.Fatalf("PositionsPage(%d): %v", idx, err)
		}
		if page.TotalChunks != 4 || page.TotalCount != 24 {
			t.Fatalf("page %d metadata = %d chunks / %d total, want 4 / 24", idx, page.TotalChunks, page.TotalCount)
		}
		if page.Count == 0 {
			break
		}
		for _, p := range page.Positions {
			reassembled = append(reassembled, p.ID)
		}
	}

	if len(reassembled) != len(full.Positions) {
		t.Fatalf("reassembled %d positions, want %d", len(reassembled), len(full.Positions))
	}
	for i, p := range full.Positions {
		if reassembled[i] != p.ID {
			t.Errorf("position %d = %q, want %q", i, reassembled[i], p.ID)
		}
	}
}

func TestPositionsPageValidation(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.PositionsPage(ctx, "nav-walker", 0, 0, 0); err == nil {
		t.Error("chunk size 0 accepted")
	}
	if _, err := c.PositionsPage(ctx, "nav-walker", 0, 10, -1); err == nil {
		t.Error("negative chunk index accepted")
	}

	page, err := c.PositionsPage(ctx, "nav-walker", 0, 10, 99)
	if err != nil {
		t.Fatalf("out-of-range page: %v", err)
	}
	if page.Count != 0 {
		t.Errorf("out-of-range page has %d positions, want 0", page.Count)
	}
}

func TestCompareCount(t *testing.T) {
	c := newTestCoordinator(t)

	cmp, err := c.Compare(context.Background(), []string{"nav-walker", "mesh-walker", "ghost"}, MetricCount, 0)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(cmp.Scenarios) != 2 {
		t.Fatalf("compared %d scenarios, want 2 (unknown skipped)", len(cmp.Scenarios))
	}
	if got := cmp.Scenarios["nav-walker"].SatelliteCount; got != 24 {
		t.Errorf("nav-walker count = %d, want 24", got)
	}
	if got := cmp.Scenarios["mesh-walker"].SatelliteCount; got != 20 {
		t.Errorf("mesh-walker count = %d, want 20", got)
	}
	if cmp.Scenarios["nav-walker"].Name != "Navigation Walker" {
		t.Errorf("scenario name not carried: %+v", cmp.Scenarios["nav-walker"])
	}
}

func TestCompareAltitudeAndVelocity(t *testing.T) {
	c := newTestCoordinator(t)

	cmp, err := c.Compare(context.Background(), []string{"nav-walker", "mesh-walker"}, MetricAltitude, 0)
	if err != nil {
		t.Fatalf("Compare altitude: %v", err)
	}
	nav := cmp.Scenarios["nav-walker"]
	mesh := cmp.Scenarios["mesh-walker"]
	if nav.Unit != "km" {
		t.Errorf("altitude unit = %q, want km", nav.Unit)
	}
	if math.Abs(nav.Mean-20200) > 250 {
		t.Errorf("nav mean altitude = %.1f km, want ~20200", nav.Mean)
	}
	if math.Abs(mesh.Mean-550) > 50 {
		t.Errorf("mesh mean altitude = %.1f km, want ~550", mesh.Mean)
	}
	if nav.Min > nav.Mean || nav.Mean > nav.Max {
		t.Errorf("aggregate ordering violated: %+v", nav)
	}

	cmp, err = c.Compare(context.Background(), []string{"mesh-walker"}, MetricVelocity, 0)
	if err != nil {
		t.Fatalf("Compare velocity: %v", err)
	}
	v := cmp.Scenarios["mesh-walker"]
	if v.Unit != "km/s" {
		t.Errorf("velocity unit = %q, want km/s", v.Unit)
	}
	if math.Abs(v.Mean-7.59) > 0.1 {
		t.Errorf("mesh mean velocity = %.3f km/s, want ~7.59", v.Mean)
	}
}

func TestCompareCoverage(t *testing.T) {
	c := newTestCoordinator(t)

	cmp, err := c.Compare(context.Background(), []string{"nav-walker"}, MetricCoverage, 0)
	if err != nil {
		t.Fatalf("Compare coverage: %v", err)
	}
	agg := cmp.Scenarios["nav-walker"]
	if agg.LatitudeMinDeg > agg.LatitudeMaxDeg {
		t.Fatalf("coverage bounds inverted: %+v", agg)
	}
	if agg.LatitudeSpreadDeg != agg.LatitudeMaxDeg-agg.LatitudeMinDeg {
		t.Errorf("spread %.2f != max-min", agg.LatitudeSpreadDeg)
	}
	if agg.LatitudeMaxDeg > 56 || agg.LatitudeMinDeg < -56 {
		t.Errorf("coverage exceeds inclination bound: %+v", agg)
	}
}

func TestCompareRejectsUnknownMetric(t *testing.T) {
	c := newTestCoordinator(t)
	if _, err := c.Compare(context.Background(), []string{"nav-walker"}, CompareMetric("inclination"), 0); err == nil {
		t.Fatal("unsupported metric accepted")
	}
}
