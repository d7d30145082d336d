package model

// OrbitRegime classifies an orbit by its period and eccentricity.
type OrbitRegime string

const (
	RegimeLEO OrbitRegime = "LEO" // Low Earth Orbit (160-2000 km)
	RegimeMEO OrbitRegime = "MEO" // Medium Earth Orbit (2000-35786 km)
	RegimeGEO OrbitRegime = "GEO" // Geostationary (35786 km)
	RegimeHEO OrbitRegime = "HEO" // Highly Elliptical Orbit
)

// TwoLineElements holds a catalog TLE entry in its raw fixed-column form
// plus the two fields extracted for regime classification.
type TwoLineElements struct {
	CatalogID    string
	Line1        string
	Line2        string
	MeanMotion   float64 // revolutions per day, > 0
	Eccentricity float64 // [0, 1)
}

// KeplerianElements holds classical orbital elements for the analytic
// two-body model. Angles are degrees, normalizable to [0, 360).
type KeplerianElements struct {
	SemiMajorAxisKm float64 // > Earth radius
	Eccentricity    float64 // [0, 1)
	InclinationDeg  float64
	RAANDeg         float64
	ArgPerigeeDeg   float64
	TrueAnomalyDeg  float64
}

// ElementSet is a tagged union over the two element variants. Exactly one
// of TwoLine or Keplerian is non-nil for a well-formed satellite.
type ElementSet struct {
	TwoLine   *TwoLineElements
	Keplerian *KeplerianElements
}

// Satellite is one tracked object. Immutable once constructed; produce a
// new value rather than mutating fields.
type Satellite struct {
	ID       string // unique within a scenario
	Name     string
	Regime   OrbitRegime
	Elements ElementSet
}

// PositionSample is a geodetic position for one satellite at one instant.
// Recomputed per request, never persisted.
type PositionSample struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Regime       OrbitRegime `json:"orbit_type"`
	LongitudeDeg float64     `json:"longitude"` // (-180, 180]
	LatitudeDeg  float64     `json:"latitude"`  // [-90, 90]
	AltitudeM    float64     `json:"altitude"`  // metres above spherical Earth
	SpeedKmS     float64     `json:"velocity"`  // km/s
}
