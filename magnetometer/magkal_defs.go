// Package magkal estimates hard-iron offsets and per-axis scale for a 3-axis
// magnetometer from readings taken while the sensor is turned through many
// orientations.
package magkal

import (
	"errors"
	"math"

	"github.com/westphae/goecompass/sensors"
)

const (
	Small = 1e-9
	Big   = 1e9
)

var ErrTooFewSamples = errors.New("magkal: not enough samples")

// Calibration maps a raw field reading m to (m - Offset) * Scale, per axis.
type Calibration struct {
	Offset [3]float64 // Hard-iron bias, gauss
	Scale  [3]float64 // Soft-iron rescaling, diagonal only
}

// Identity returns the calibration that leaves readings unchanged.
func Identity() Calibration {
	return Calibration{Scale: [3]float64{1, 1, 1}}
}

// Apply returns the calibrated reading.
func (c Calibration) Apply(m [3]float64) (r [3]float64) {
	for i := 0; i < 3; i++ {
		r[i] = (m[i] - c.Offset[i]) * c.Scale[i]
	}
	return
}

// CalData converts c to the form saved on disk.
func (c Calibration) CalData() sensors.MagCalData {
	return sensors.MagCalData{
		M01: c.Offset[0], M02: c.Offset[1], M03: c.Offset[2],
		Ms1: c.Scale[0], Ms2: c.Scale[1], Ms3: c.Scale[2],
	}
}

// FromCalData is the inverse of CalData. A zero scale is read as 1 so that a
// file holding only offsets still works.
func FromCalData(d sensors.MagCalData) Calibration {
	c := Calibration{
		Offset: [3]float64{d.M01, d.M02, d.M03},
		Scale:  [3]float64{d.Ms1, d.Ms2, d.Ms3},
	}
	for i := range c.Scale {
		if math.Abs(c.Scale[i]) < Small {
			c.Scale[i] = 1
		}
	}
	return c
}

// NormDiff calculates the norm of the diff of two 3-vectors to see how different they are.
func NormDiff(v1, v2 [3]float64) (res float64) {
	for i := 0; i < 3; i++ {
		res += (v1[i] - v2[i]) * (v1[i] - v2[i])
	}
	res = math.Sqrt(res)
	return
}
