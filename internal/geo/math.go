package geo

import "math"

// Vec3 is a position in globe space. The globe is a unit sphere centred on the
// origin with Y pointing to the north pole.
type Vec3 struct {
	X, Y, Z float64
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Add returns the component-wise sum of v and o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Length returns the euclidean norm of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// RotateY rotates v around the polar axis by angle radians.
func (v Vec3) RotateY(angle float64) Vec3 {
	sin, cos := math.Sincos(angle)
	return Vec3{
		X: v.X*cos + v.Z*sin,
		Y: v.Y,
		Z: -v.X*sin + v.Z*cos,
	}
}

// MapPoint projects WGS84 latitude and longitude (degrees) onto the unit sphere.
//
// Polar angle is measured from the north pole and azimuth from the 180th
// meridian: (0, 0) maps to -X and (0, 90) maps to +Z.
// No range checks are made.
func MapPoint(lat, lon float64) Vec3 {
	phi := (90 - lat) * math.Pi / 180
	theta := (180 - lon) * math.Pi / 180

	sinPhi, cosPhi := math.Sincos(phi)
	sinTheta, cosTheta := math.Sincos(theta)

	return Vec3{
		X: sinPhi * cosTheta,
		Y: cosPhi,
		Z: sinPhi * sinTheta,
	}
}
