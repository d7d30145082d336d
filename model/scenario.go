package model

import "time"

// GenerationParams are the Walker-delta design parameters for a synthesized
// constellation.
type GenerationParams struct {
	Planes         int
	SatsPerPlane   int
	AltitudeKm     float64
	InclinationDeg float64
	Regime         OrbitRegime
}

// Scenario describes one named constellation: either backed by an external
// TLE source or synthesized from generation parameters.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// SatelliteCount is authoritative only after the satellite set has been
	// materialized at least once; external-source scenarios start at 0.
	SatelliteCount int `json:"satellite_count"`

	// SourceURL is set for external-source scenarios.
	SourceURL string `json:"tle_url,omitempty"`

	// Generation is set for synthesized scenarios.
	Generation *GenerationParams `json:"generation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Generated reports whether the scenario is synthesized rather than fetched.
func (s Scenario) Generated() bool { return s.Generation != nil }
