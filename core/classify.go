package core

import "github.com/signalsfoundry/constellation-tracker/model"

// ClassifyOrbit derives the orbit regime from mean motion (revolutions per
// day) and eccentricity.
//
// Band boundaries are deliberate: a period of exactly 128 minutes is MEO,
// exactly 720 minutes falls through to the GEO/HEO branch, and the
// geostationary window (1430, 1450) additionally requires a near-circular
// orbit (e < 0.01). Everything else is HEO.
func ClassifyOrbit(meanMotionRevPerDay, eccentricity float64) model.OrbitRegime {
	periodMinutes := 1440 / meanMotionRevPerDay

	switch {
	case periodMinutes < 128:
		return model.RegimeLEO
	case periodMinutes < 720:
		return model.RegimeMEO
	case periodMinutes > 1430 && periodMinutes < 1450 && eccentricity < 0.01:
		return model.RegimeGEO
	default:
		return model.RegimeHEO
	}
}
