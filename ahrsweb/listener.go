package ahrsweb

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	magkal "github.com/westphae/goecompass/magnetometer"
	"github.com/westphae/goecompass/sensors"
	"github.com/westphae/goecompass/sensors/saul"
)

// Source is a combined accelerometer and magnetometer, such as an
// *lsm303dlhc.Device.
type Source interface {
	ReadAccelPhysical(res *saul.Phydat) (int, error)
	ReadMagPhysical(res *saul.Phydat) (int, error)
	ReadTemperature() (int16, error)
}

// Listener polls a Source and streams each reading to a Room.
type Listener struct {
	r        *Room
	src      Source
	cal      magkal.Calibration
	interval time.Duration
	t0       time.Time
	n        int
}

func NewListener(r *Room, src Source, cal magkal.Calibration, interval time.Duration) *Listener {
	return &Listener{
		r:        r,
		src:      src,
		cal:      cal,
		interval: interval,
		t0:       time.Now(),
	}
}

// Read takes one reading of every sensor. Failures are recorded in the
// result rather than returned.
func (l *Listener) Read() *sensors.MagAccelData {
	var p saul.Phydat
	d := new(sensors.MagAccelData)
	t := time.Now()

	if _, d.AError = l.src.ReadAccelPhysical(&p); d.AError == nil {
		d.A1, d.A2, d.A3 = p.Float(0), p.Float(1), p.Float(2)
	}
	if _, d.MagError = l.src.ReadMagPhysical(&p); d.MagError == nil {
		m := l.cal.Apply([3]float64{p.Float(0), p.Float(1), p.Float(2)})
		d.M1, d.M2, d.M3 = m[0], m[1], m[2]
	}
	d.Temp, d.TempError = l.src.ReadTemperature()

	l.n++
	d.N = l.n
	d.T = t
	d.DT = time.Since(t)
	return d
}

// Run reads the source every interval and forwards the result to the room
// until ctx is done or the room stops.
func (l *Listener) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d := l.Read()
		if d.AError != nil || d.MagError != nil {
			log.Warnf("AHRSWeb: sensor read error: accel %v, mag %v", d.AError, d.MagError)
		}
		msg, err := json.Marshal(NewCompassData(d, l.t0))
		if err != nil {
			log.Println("AHRSWeb: Error marshalling json data:", err)
			continue
		}
		if !l.r.Forward(msg) {
			return
		}
	}
}
