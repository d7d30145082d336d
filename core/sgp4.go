package core

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/constellation-tracker/model"
)

// SGP4Propagator advances two-line element satellites with the SGP4
// perturbation model from github.com/joshuaferrara/go-satellite. Output is
// converted to geodetic coordinates via the spherical approximation in
// ToGeodetic; Earth rotation is intentionally not applied.
type SGP4Propagator struct {
	grav satellite.Gravity
}

// NewSGP4Propagator returns an SGP4 propagator using the WGS-72 gravity
// model, the standard for TLE data.
func NewSGP4Propagator() *SGP4Propagator {
	return &SGP4Propagator{grav: satellite.GravityWGS72}
}

// Propagate implements Propagator for two-line element satellites.
func (p *SGP4Propagator) Propagate(sat model.Satellite, t time.Time) (model.PositionSample, error) {
	tle := sat.Elements.TwoLine
	if tle == nil {
		return model.PositionSample{}, fmt.Errorf("%w: satellite %q has no two-line elements", ErrPropagation, sat.ID)
	}

	// go-satellite terminates the process on structurally invalid lines,
	// so reject anything that is not a plausible 69-column record first.
	if err := validateTLELines(tle.Line1, tle.Line2); err != nil {
		return model.PositionSample{}, fmt.Errorf("%w: satellite %q: %v", ErrPropagation, sat.ID, err)
	}

	rec := satellite.TLEToSat(tle.Line1, tle.Line2, p.grav)
	if rec.Error != 0 {
		return model.PositionSample{}, fmt.Errorf("%w: satellite %q: sgp4 init code %d", ErrPropagation, sat.ID, rec.Error)
	}

	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	pos, vel := satellite.Propagate(rec, year, int(month), day, hour, min, sec)

	p3 := Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
	v3 := Vec3{X: vel.X, Y: vel.Y, Z: vel.Z}
	if !finiteVec(p3) || !finiteVec(v3) {
		return model.PositionSample{}, fmt.Errorf("%w: satellite %q: non-finite sgp4 output", ErrPropagation, sat.ID)
	}

	// A decayed or badly conditioned orbit produces positions far outside
	// any physically meaningful shell.
	r := p3.Norm()
	if r < 6200 || r > 500000 {
		return model.PositionSample{}, fmt.Errorf("%w: satellite %q: implausible radius %.1f km", ErrPropagation, sat.ID, r)
	}

	geo := ToGeodetic(p3)
	return model.PositionSample{
		ID:           sat.ID,
		Name:         sat.Name,
		Regime:       sat.Regime,
		LongitudeDeg: geo.LongitudeDeg,
		LatitudeDeg:  geo.LatitudeDeg,
		AltitudeM:    geo.AltitudeM,
		SpeedKmS:     v3.Norm(),
	}, nil
}

func validateTLELines(line1, line2 string) error {
	if len(line1) < 60 || len(line2) < 63 {
		return fmt.Errorf("short TLE lines (%d, %d chars)", len(line1), len(line2))
	}
	if line1[0] != '1' || line2[0] != '2' {
		return fmt.Errorf("bad TLE line markers %q, %q", line1[0], line2[0])
	}
	return nil
}

func finiteVec(v Vec3) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
