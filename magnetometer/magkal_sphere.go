// The Sphere procedure fits a sphere to all readings by least squares. Its
// center is the hard-iron offset. It uses every reading rather than only the
// extremes, so it tolerates noise and incomplete rotations better than Simple.
package magkal

import (
	"fmt"
	"math"

	"github.com/skelterjohn/go.matrix"
	"gonum.org/v1/gonum/stat"
)

// Fit is the result of FitSphere.
type Fit struct {
	Center       [3]float64
	Radius       float64
	ResidualMean float64 // Mean of |m - Center| - Radius over the samples
	ResidualStd  float64
	N            int
}

// Calibration returns the offset-only calibration of the fit.
func (f Fit) Calibration() Calibration {
	return Calibration{Offset: f.Center, Scale: [3]float64{1, 1, 1}}
}

/*
FitSphere solves |m - c|² = r² in the least-squares sense. Written as
	m·m = 2c·m + (r² - c·c)
it is linear in (2c, r² - c·c) and is solved through the normal equations.
*/
func FitSphere(samples [][3]float64) (f Fit, err error) {
	n := len(samples)
	if n < 4 {
		return f, fmt.Errorf("%w: %d readings, need 4", ErrTooFewSamples, n)
	}

	a := matrix.Zeros(n, 4)
	b := matrix.Zeros(n, 1)
	for i, m := range samples {
		a.Set(i, 0, m[0])
		a.Set(i, 1, m[1])
		a.Set(i, 2, m[2])
		a.Set(i, 3, 1)
		b.Set(i, 0, m[0]*m[0]+m[1]*m[1]+m[2]*m[2])
	}

	at := a.Transpose()
	ata := matrix.Product(at, a)
	inv, err := ata.Inverse()
	if err != nil {
		return f, fmt.Errorf("magkal: readings do not span a sphere: %s", err)
	}
	x := matrix.Product(inv, matrix.Product(at, b))

	for i := 0; i < 3; i++ {
		f.Center[i] = x.Get(i, 0) / 2
	}
	r2 := x.Get(3, 0) + f.Center[0]*f.Center[0] + f.Center[1]*f.Center[1] + f.Center[2]*f.Center[2]
	if r2 <= 0 || math.IsNaN(r2) {
		return f, fmt.Errorf("magkal: degenerate fit, r²=%g", r2)
	}
	f.Radius = math.Sqrt(r2)
	f.N = n
	f.ResidualMean, f.ResidualStd = Residuals(samples, f.Center, f.Radius)
	return f, nil
}

// Residuals returns the mean and standard deviation of the distance of each
// sample from the sphere surface.
func Residuals(samples [][3]float64, center [3]float64, radius float64) (mean, std float64) {
	res := make([]float64, len(samples))
	for i, m := range samples {
		res[i] = NormDiff(m, center) - radius
	}
	return stat.MeanStdDev(res, nil)
}
