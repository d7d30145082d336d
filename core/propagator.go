package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/constellation-tracker/model"
)

// ErrPropagation indicates that a satellite could not be advanced to the
// requested time. Callers drop the sample and continue; propagation
// failures are never fatal.
var ErrPropagation = errors.New("propagation failed")

// Propagator advances a satellite's state to a target time and returns its
// geodetic position sample.
type Propagator interface {
	Propagate(sat model.Satellite, t time.Time) (model.PositionSample, error)
}

// ForSatellite selects the propagation strategy matching the populated
// element variant: SGP4 for two-line elements, the analytic two-body model
// for Keplerian elements.
func ForSatellite(sat model.Satellite) (Propagator, error) {
	switch {
	case sat.Elements.TwoLine != nil:
		return NewSGP4Propagator(), nil
	case sat.Elements.Keplerian != nil:
		return NewTwoBodyPropagator(), nil
	default:
		return nil, fmt.Errorf("%w: satellite %q has no element set", ErrPropagation, sat.ID)
	}
}
