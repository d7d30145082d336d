package core

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/constellation-tracker/model"
)

func sgp4Sat(id string, line1, line2 string) model.Satellite {
	return model.Satellite{
		ID:     id,
		Name:   id,
		Regime: model.RegimeLEO,
		Elements: model.ElementSet{
			TwoLine: &model.TwoLineElements{
				CatalogID: id,
				Line1:     line1,
				Line2:     line2,
			},
		},
	}
}

func TestSGP4PropagatesISS(t *testing.T) {
	p := NewSGP4Propagator()
	sat := sgp4Sat("25544", issLine1, issLine2)
	at := time.Date(2021, time.October, 3, 12, 0, 0, 0, time.UTC)

	sample, err := p.Propagate(sat, at)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}

	if sample.ID != "25544" {
		t.Errorf("sample.ID = %q, want %q", sample.ID, "25544")
	}
	if sample.LatitudeDeg < -90 || sample.LatitudeDeg > 90 {
		t.Errorf("latitude %v out of range", sample.LatitudeDeg)
	}
	if sample.LongitudeDeg < -180 || sample.LongitudeDeg > 180 {
		t.Errorf("longitude %v out of range", sample.LongitudeDeg)
	}
	// ISS sits in a roughly 420 km shell; allow decay drift either way.
	if sample.AltitudeM < 300_000 || sample.AltitudeM > 500_000 {
		t.Errorf("altitude %v m outside LEO shell", sample.AltitudeM)
	}
	if sample.SpeedKmS < 7 || sample.SpeedKmS > 8.5 {
		t.Errorf("speed %v km/s implausible for LEO", sample.SpeedKmS)
	}
	for _, v := range []float64{sample.LatitudeDeg, sample.LongitudeDeg, sample.AltitudeM, sample.SpeedKmS} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite field in sample %+v", sample)
		}
	}
}

func TestSGP4PositionChangesOverTime(t *testing.T) {
	p := NewSGP4Propagator()
	sat := sgp4Sat("25544", issLine1, issLine2)
	t0 := time.Date(2021, time.October, 3, 12, 0, 0, 0, time.UTC)

	a, err := p.Propagate(sat, t0)
	if err != nil {
		t.Fatalf("Propagate at t0: %v", err)
	}
	b, err := p.Propagate(sat, t0.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("Propagate at t0+5m: %v", err)
	}

	if a.LatitudeDeg == b.LatitudeDeg && a.LongitudeDeg == b.LongitudeDeg {
		t.Errorf("position did not change over 5 minutes: %+v", a)
	}
}

func TestSGP4RejectsBadElements(t *testing.T) {
	p := NewSGP4Propagator()
	at := time.Date(2021, time.October, 3, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sat  model.Satellite
	}{
		{
			name: "no two-line elements",
			sat: model.Satellite{ID: "k1", Elements: model.ElementSet{
				Keplerian: &model.KeplerianElements{SemiMajorAxisKm: 7000},
			}},
		},
		{
			name: "truncated lines",
			sat:  sgp4Sat("bad", "1 25544U", "2 25544"),
		},
		{
			name: "swapped line markers",
			sat:  sgp4Sat("bad", issLine2, issLine1),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Propagate(tc.sat, at)
			if !errors.Is(err, ErrPropagation) {
				t.Fatalf("err = %v, want ErrPropagation", err)
			}
		})
	}
}

func TestForSatelliteDispatch(t *testing.T) {
	p, err := ForSatellite(sgp4Sat("25544", issLine1, issLine2))
	if err != nil {
		t.Fatalf("ForSatellite(two-line): %v", err)
	}
	if _, ok := p.(*SGP4Propagator); !ok {
		t.Errorf("two-line satellite dispatched to %T, want *SGP4Propagator", p)
	}

	p, err = ForSatellite(keplerianSat(model.KeplerianElements{
		SemiMajorAxisKm: EarthRadiusKm + 20200,
		InclinationDeg:  55,
	}))
	if err != nil {
		t.Fatalf("ForSatellite(keplerian): %v", err)
	}
	if _, ok := p.(*TwoBodyPropagator); !ok {
		t.Errorf("keplerian satellite dispatched to %T, want *TwoBodyPropagator", p)
	}

	if _, err := ForSatellite(model.Satellite{ID: "empty"}); !errors.Is(err, ErrPropagation) {
		t.Fatalf("empty element set err = %v, want ErrPropagation", err)
	}
}
