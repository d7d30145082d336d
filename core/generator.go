package core

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/signalsfoundry/constellation-tracker/model"
)

// GenerateConstellation synthesizes a Walker-delta constellation of
// planes*satsPerPlane Keplerian satellites. Planes are spaced evenly in
// RAAN; satellites are spaced evenly within a plane with a fixed
// cross-plane phase offset of 360/(planes*satsPerPlane) degrees per plane.
//
// Eccentricity, inclination, and argument of perigee each receive a small
// random perturbation per satellite, so two calls with the same parameters
// and a nil rng produce different element sets. Pass a seeded rng (see
// SeededRand) when reproducible regeneration is required.
func GenerateConstellation(prefix string, planes, satsPerPlane int, altitudeKm, inclinationDeg float64, regime model.OrbitRegime, rng *rand.Rand) []model.Satellite {
	if planes <= 0 || satsPerPlane <= 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	sats := make([]model.Satellite, 0, planes*satsPerPlane)
	for plane := 0; plane < planes; plane++ {
		raan := 360 * float64(plane) / float64(planes)

		for s := 0; s < satsPerPlane; s++ {
			// Walker-delta phasing: even in-plane spacing plus a
			// cross-plane offset so adjacent planes interleave.
			phase := 360*float64(s)/float64(satsPerPlane) +
				360*float64(plane)/float64(planes*satsPerPlane)
			phase = math.Mod(phase, 360)

			id := fmt.Sprintf("%s-P%02d-S%02d", prefix, plane+1, s+1)
			sats = append(sats, model.Satellite{
				ID:     id,
				Name:   id,
				Regime: regime,
				Elements: model.ElementSet{
					Keplerian: &model.KeplerianElements{
						SemiMajorAxisKm: EarthRadiusKm + altitudeKm,
						Eccentricity:    0.001 + rng.Float64()*0.005,
						InclinationDeg:  inclinationDeg + (rng.Float64() - 0.5),
						RAANDeg:         raan,
						ArgPerigeeDeg:   rng.Float64() * 360,
						TrueAnomalyDeg:  phase,
					},
				},
			})
		}
	}
	return sats
}

// SeededRand returns a rand source seeded deterministically from a
// scenario id, for callers that need bit-exact regeneration after cache
// expiry.
func SeededRand(scenarioID string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(scenarioID))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
