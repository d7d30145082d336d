package core

import (
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/constellation-tracker/model"
)

// DefaultKeplerIterations is the fixed-point iteration count used when the
// propagator is constructed with defaults. Ten unchecked iterations match
// the behaviour this model has always had; set Tolerance to opt into early
// convergence exit instead.
const DefaultKeplerIterations = 10

// TwoBodyPropagator advances Keplerian-element satellites with a
// self-contained analytic two-body model. The stored true anomaly is
// treated as if it were already a mean anomaly, a known simplification
// that is acceptable for the near-circular orbits the generator emits.
type TwoBodyPropagator struct {
	// Epoch is the reference time the element set is valid at. The mean
	// anomaly is advanced linearly by n*(t-Epoch).
	Epoch time.Time

	// Iterations bounds the Kepler equation fixed-point relaxation.
	Iterations int

	// Tolerance, when positive, stops the relaxation once successive
	// estimates differ by less than this value (radians). Zero keeps the
	// compatibility behaviour of running exactly Iterations passes.
	Tolerance float64
}

// NewTwoBodyPropagator returns a two-body propagator with the Unix epoch
// as element reference time and the compatibility solver settings.
func NewTwoBodyPropagator() *TwoBodyPropagator {
	return &TwoBodyPropagator{
		Epoch:      time.Unix(0, 0).UTC(),
		Iterations: DefaultKeplerIterations,
	}
}

// Propagate implements Propagator for Keplerian-element satellites.
func (p *TwoBodyPropagator) Propagate(sat model.Satellite, t time.Time) (model.PositionSample, error) {
	kep := sat.Elements.Keplerian
	if kep == nil {
		return model.PositionSample{}, fmt.Errorf("%w: satellite %q has no keplerian elements", ErrPropagation, sat.ID)
	}
	if kep.SemiMajorAxisKm <= EarthRadiusKm {
		return model.PositionSample{}, fmt.Errorf("%w: satellite %q: semi-major axis %.1f km inside Earth", ErrPropagation, sat.ID, kep.SemiMajorAxisKm)
	}
	if kep.Eccentricity < 0 || kep.Eccentricity >= 1 {
		return model.PositionSample{}, fmt.Errorf("%w: satellite %q: eccentricity %v outside [0,1)", ErrPropagation, sat.ID, kep.Eccentricity)
	}

	a := kep.SemiMajorAxisKm
	e := kep.Eccentricity

	// Mean motion and linear mean anomaly advance from the stored anomaly.
	n := math.Sqrt(EarthMuKm3S2 / (a * a * a))
	dt := t.Sub(p.Epoch).Seconds()
	meanAnomaly := normalizeRadians(kep.TrueAnomalyDeg*math.Pi/180 + n*dt)

	iters := p.Iterations
	if iters <= 0 {
		iters = DefaultKeplerIterations
	}
	eccAnomaly := solveKepler(meanAnomaly, e, iters, p.Tolerance)

	// True anomaly via the half-angle formula, radius from the conic.
	trueAnomaly := 2 * math.Atan2(
		math.Sqrt(1+e)*math.Sin(eccAnomaly/2),
		math.Sqrt(1-e)*math.Cos(eccAnomaly/2),
	)
	r := a * (1 - e*math.Cos(eccAnomaly))

	pos := perifocalToInertial(
		r*math.Cos(trueAnomaly),
		r*math.Sin(trueAnomaly),
		kep.RAANDeg*math.Pi/180,
		kep.InclinationDeg*math.Pi/180,
		kep.ArgPerigeeDeg*math.Pi/180,
	)

	geo := ToGeodetic(pos)
	return model.PositionSample{
		ID:           sat.ID,
		Name:         sat.Name,
		Regime:       sat.Regime,
		LongitudeDeg: geo.LongitudeDeg,
		LatitudeDeg:  geo.LatitudeDeg,
		AltitudeM:    geo.AltitudeM,
		SpeedKmS:     math.Sqrt(EarthMuKm3S2 * (2/r - 1/a)),
	}, nil
}

// solveKepler relaxes M = E - e*sin(E) by fixed-point iteration
// E <- M + e*sin(E). With tolerance zero it runs exactly iters passes.
func solveKepler(meanAnomaly, ecc float64, iters int, tolerance float64) float64 {
	eccAnomaly := meanAnomaly
	for i := 0; i < iters; i++ {
		next := meanAnomaly + ecc*math.Sin(eccAnomaly)
		if tolerance > 0 && math.Abs(next-eccAnomaly) < tolerance {
			return next
		}
		eccAnomaly = next
	}
	return eccAnomaly
}

// perifocalToInertial rotates an in-plane position through the standard
// 3-1-3 sequence (RAAN about Z, inclination about X, argument of perigee
// about Z).
func perifocalToInertial(xp, yp, raan, incl, argp float64) Vec3 {
	cosO, sinO := math.Cos(raan), math.Sin(raan)
	cosI, sinI := math.Cos(incl), math.Sin(incl)
	cosW, sinW := math.Cos(argp), math.Sin(argp)

	return Vec3{
		X: xp*(cosO*cosW-sinO*sinW*cosI) - yp*(cosO*sinW+sinO*cosW*cosI),
		Y: xp*(sinO*cosW+cosO*sinW*cosI) - yp*(sinO*sinW-cosO*cosW*cosI),
		Z: xp*sinW*sinI + yp*cosW*sinI,
	}
}

func normalizeRadians(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}
