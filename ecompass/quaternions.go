package ecompass

import (
	"math"

	"github.com/westphae/quaternion"
)

// ToQuaternion calculates the 0,1,2,3 components of the rotation quaternion
// corresponding to the Tait-Bryan angles phi, theta, psi, in radians.
// The earth frame is east, north, up; the body frame is nose, left wing, up.
func ToQuaternion(phi, theta, psi float64) (float64, float64, float64, float64) {
	phi = -phi            // We want phi positive to mean a roll to the right
	psi = psi - math.Pi/2 // We want psi=0 means north, psi=Pi/2 means east
	cphi := math.Cos(phi / 2)
	sphi := math.Sin(phi / 2)
	ctheta := math.Cos(theta / 2)
	stheta := math.Sin(theta / 2)
	cpsi := math.Cos(psi / 2)
	spsi := math.Sin(psi / 2)

	q0 := cphi*ctheta*cpsi - sphi*stheta*spsi
	q1 := sphi*ctheta*cpsi + cphi*stheta*spsi
	q2 := cphi*stheta*cpsi - sphi*ctheta*spsi
	q3 := cphi*ctheta*spsi + sphi*stheta*cpsi
	return q0, q1, q2, q3
}

// FromQuaternion calculates the Tait-Bryan angles phi, theta, psi corresponding to
// the quaternion. psi is in [0, 2*Pi).
func FromQuaternion(q0, q1, q2, q3 float64) (float64, float64, float64) {
	phi := math.Atan2(-2*(q0*q1-q2*q3), q0*q0-q1*q1-q2*q2+q3*q3)
	theta := math.Asin(2 * (q0*q2 + q3*q1) / math.Sqrt(q0*q0+q1*q1+q2*q2+q3*q3))
	psi := math.Pi/2 + math.Atan2(2*(q0*q3-q1*q2), q0*q0+q1*q1-q2*q2-q3*q3)
	if psi < -1e-4 {
		psi += 2 * math.Pi
	}
	return phi, theta, psi
}

// Orientation returns the body-to-earth rotation for roll, pitch and heading
// given in degrees.
func Orientation(roll, pitch, heading float64) quaternion.Quaternion {
	q0, q1, q2, q3 := ToQuaternion(roll*Deg, pitch*Deg, heading*Deg)
	return quaternion.Quaternion{W: q0, X: q1, Y: q2, Z: q3}
}

// Angles is the inverse of Orientation.
func Angles(q quaternion.Quaternion) (roll, pitch, heading float64) {
	phi, theta, psi := FromQuaternion(q.W, q.X, q.Y, q.Z)
	return phi / Deg, theta / Deg, normalize(psi / Deg)
}

// Rotate applies q to the 3-vector v.
func Rotate(q quaternion.Quaternion, v [3]float64) [3]float64 {
	r := quaternion.Prod(q, quaternion.Quaternion{X: v[0], Y: v[1], Z: v[2]}, quaternion.Conj(q))
	return [3]float64{r.X, r.Y, r.Z}
}
