package core

import "math"

// EarthRadiusKm is the mean Earth radius used for all geodetic
// conversions in the tracker (kilometres). The Earth is treated as a
// sphere; no flattening, rotation, precession, or nutation is applied.
const EarthRadiusKm = 6371.0

// EarthMuKm3S2 is the standard gravitational parameter of the Earth
// (km^3/s^2), shared by both propagation models.
const EarthMuKm3S2 = 398600.4418

// Vec3 is an Earth-centred inertial vector in kilometres (or km/s for
// velocities).
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Geodetic is a spherical-Earth latitude/longitude/altitude triple.
type Geodetic struct {
	LatitudeDeg  float64 // [-90, 90]
	LongitudeDeg float64 // (-180, 180]
	AltitudeM    float64 // metres above the sphere
}

// ToGeodetic converts an inertial position to spherical geodetic
// coordinates: lon = atan2(y, x), lat = asin(z/r), alt = r - R_earth.
func ToGeodetic(pos Vec3) Geodetic {
	r := pos.Norm()
	if r == 0 {
		return Geodetic{AltitudeM: -EarthRadiusKm * 1000}
	}
	return Geodetic{
		LatitudeDeg:  math.Asin(pos.Z/r) * 180 / math.Pi,
		LongitudeDeg: math.Atan2(pos.Y, pos.X) * 180 / math.Pi,
		AltitudeM:    (r - EarthRadiusKm) * 1000,
	}
}
