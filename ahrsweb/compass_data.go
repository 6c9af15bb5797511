package ahrsweb

import (
	"strings"
	"time"

	"github.com/westphae/goecompass/ecompass"
	"github.com/westphae/goecompass/sensors"
)

const Port = 8000

// CompassData is the message streamed to web clients.
type CompassData struct {
	T  float64 // Seconds since the listener started
	N  int     // Sequence number
	DT float64 // Seconds spent reading the sensor

	A1, A2, A3 float64 // Accelerometer, g
	M1, M2, M3 float64 // Calibrated magnetometer, gauss
	Temp       int16   // Raw die temperature

	AValid, MValid, TValid bool

	// Final output, degrees
	Roll, Pitch, Heading float64
	AttValid             bool

	Err string `json:",omitempty"`
}

// NewCompassData fills a CompassData from one reading. The attitude is
// computed only when both vectors were read.
func NewCompassData(d *sensors.MagAccelData, t0 time.Time) *CompassData {
	c := &CompassData{
		T:    d.T.Sub(t0).Seconds(),
		N:    d.N,
		DT:   d.DT.Seconds(),
		A1:   d.A1,
		A2:   d.A2,
		A3:   d.A3,
		M1:   d.M1,
		M2:   d.M2,
		M3:   d.M3,
		Temp: d.Temp,

		AValid: d.AError == nil,
		MValid: d.MagError == nil,
		TValid: d.TempError == nil,
	}

	var errs []string
	for _, err := range []error{d.AError, d.MagError, d.TempError} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if c.AValid && c.MValid {
		roll, pitch, heading, err := ecompass.Attitude(
			[3]float64{d.A1, d.A2, d.A3}, [3]float64{d.M1, d.M2, d.M3})
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			c.Roll, c.Pitch, c.Heading, c.AttValid = roll, pitch, heading, true
		}
	}
	c.Err = strings.Join(errs, "; ")
	return c
}
