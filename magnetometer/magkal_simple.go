// The Simple procedure bases the offset and scale on the measured min/max value
// along each axis. It gives a useful calibration but needs the sensor to be
// turned so that every axis points both ways along the field.
package magkal

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
)

// SimpleCalibrator tracks the per-axis extremes of the readings it is given.
type SimpleCalibrator struct {
	min, max [3]float64
	n        int
}

func NewSimpleCalibrator() *SimpleCalibrator {
	s := new(SimpleCalibrator)
	s.Reset()
	return s
}

// Reset forgets all readings.
func (s *SimpleCalibrator) Reset() {
	s.min = [3]float64{Big, Big, Big}
	s.max = [3]float64{-Big, -Big, -Big}
	s.n = 0
}

// Add records one reading, in gauss.
func (s *SimpleCalibrator) Add(m [3]float64) {
	for i := 0; i < 3; i++ {
		s.min[i] = math.Min(s.min[i], m[i])
		s.max[i] = math.Max(s.max[i], m[i])
	}
	s.n++
}

// N returns the number of readings recorded.
func (s *SimpleCalibrator) N() int {
	return s.n
}

// Calibration centers each axis between its extremes and rescales each axis so
// that all three have the mean half-range.
func (s *SimpleCalibrator) Calibration() (c Calibration, err error) {
	if s.n < 2 {
		return Identity(), fmt.Errorf("%w: %d readings", ErrTooFewSamples, s.n)
	}
	var half [3]float64
	var avg float64
	for i := 0; i < 3; i++ {
		half[i] = (s.max[i] - s.min[i]) / 2
		if half[i] < Small {
			return Identity(), fmt.Errorf("magkal: axis %d never moved", i+1)
		}
		avg += half[i] / 3
	}
	for i := 0; i < 3; i++ {
		c.Offset[i] = (s.max[i] + s.min[i]) / 2
		c.Scale[i] = avg / half[i]
	}
	return c, nil
}

// ComputeSimple feeds every reading received on cIn to a SimpleCalibrator and
// sends the updated calibration on cOut whenever it changes. cOut is closed
// when cIn is.
func ComputeSimple(cIn <-chan [3]float64, cOut chan<- Calibration) {
	s := NewSimpleCalibrator()
	var last Calibration

	log.Print("Starting Simple MagKal")
	for m := range cIn {
		s.Add(m)
		c, err := s.Calibration()
		if err != nil || c == last {
			continue
		}
		last = c
		log.Debugf("SimpleMagKal Updating L=%1.4f K=%1.4f", c.Offset, c.Scale)
		cOut <- c
	}
	close(cOut)
}
