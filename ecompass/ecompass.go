/*
Package ecompass turns one accelerometer and one magnetometer reading into a
tilt-compensated compass attitude.

Readings are in the LSM303DLHC package frame: x and y in the plane of the
package, z out of its top face. A level, resting sensor reads a = (0, 0, +1 g).
Internally the readings are moved to a forward, right, down frame, where the
usual e-compass equations hold.
*/
package ecompass

import (
	"errors"
	"math"
)

const (
	Pi    = math.Pi
	Deg   = Pi / 180
	Small = 1e-9
)

var (
	ErrNoGravity = errors.New("ecompass: acceleration too small to level")
	ErrNoField   = errors.New("ecompass: no horizontal magnetic field")
)

/*
Attitude returns roll (right wing down positive), pitch (nose up positive) and
magnetic heading, in degrees. Heading is clockwise from magnetic north in
[0, 360). Pitch is limited to ±90; beyond that roll and heading flip by 180.
Neither vector needs to be normalized, but a must be dominated by gravity.
*/
func Attitude(a, m [3]float64) (roll, pitch, heading float64, err error) {
	gx, gy, gz := -a[0], a[1], a[2]
	bx, by, bz := m[0], -m[1], -m[2]

	if math.Sqrt(gx*gx+gy*gy+gz*gz) < Small {
		return 0, 0, 0, ErrNoGravity
	}

	phi := math.Atan2(gy, gz)
	sphi, cphi := math.Sincos(phi)
	theta := math.Atan(-gx / (gy*sphi + gz*cphi))
	stheta, ctheta := math.Sincos(theta)

	// De-rotate the field to the horizontal plane.
	hx := bx*ctheta + by*stheta*sphi + bz*stheta*cphi
	hy := bz*sphi - by*cphi
	if math.Hypot(hx, hy) < Small {
		return phi / Deg, theta / Deg, 0, ErrNoField
	}
	psi := math.Atan2(hy, hx)

	return phi / Deg, theta / Deg, normalize(psi / Deg), nil
}

// TrueHeading corrects a magnetic heading by the local declination, east
// positive, both in degrees.
func TrueHeading(magnetic, declination float64) float64 {
	return normalize(magnetic + declination)
}

// normalize maps an angle in degrees to [0, 360).
func normalize(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h -= 360
	}
	return h
}
