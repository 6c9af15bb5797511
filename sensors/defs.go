package sensors

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultCalDataLocation is where the CLI keeps magnetometer calibration.
const DefaultCalDataLocation = "/etc/lsm303_cal.json"

// MagAccelData contains all the values measured by an LSM303DLHC or equivalent.
type MagAccelData struct {
	A1, A2, A3       float64 // Acceleration, g
	M1, M2, M3       float64 // Magnetic field, gauss
	Temp             int16   // Raw die temperature
	AError, MagError error
	TempError        error
	N                int
	T                time.Time
	DT               time.Duration
}

// MagCalData holds the hard-iron offsets and per-axis scale of a magnetometer.
type MagCalData struct {
	M01, M02, M03 float64 // Magnetometer hard-iron bias, gauss
	Ms1, Ms2, Ms3 float64 // Magnetometer per-axis rescaling
}

func (d *MagCalData) Reset() {
	d.M01, d.M02, d.M03 = 0, 0, 0
	d.Ms1, d.Ms2, d.Ms3 = 1, 1, 1
}

// Save writes d as JSON to path.
func (d *MagCalData) Save(path string) error {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(0644))
	if err != nil {
		log.Printf("error saving magnetometer calibration data to %s: %s", path, err)
		return err
	}
	defer fd.Close()
	calData, err := json.Marshal(d)
	if err != nil {
		log.Printf("error marshaling magnetometer calibration data: %s", err)
		return err
	}
	_, err = fd.Write(calData)
	return err
}

// Load reads d from the JSON file at path.
func (d *MagCalData) Load(path string) (err error) {
	errstr := "error reading magnetometer calibration data from %s: %s"
	buf, rerr := os.ReadFile(path)
	if rerr != nil {
		err = fmt.Errorf(errstr, path, rerr.Error())
		return
	}
	rerr = json.Unmarshal(buf, d)
	if rerr != nil {
		err = fmt.Errorf(errstr, path, rerr.Error())
		return
	}
	return
}
