package lsm303dlhc

import (
	"github.com/westphae/goecompass/sensors/saul"
)

// ReadAccelPhysical reads the accelerometer in milli-g.
func (d *Device) ReadAccelPhysical(res *saul.Phydat) (int, error) {
	s, err := d.ReadAcceleration()
	if err != nil {
		return 0, err
	}
	fac := d.cfg.AccelScale.MilliGPerLSB()
	res.Val = [3]int16{
		saturate16(int32(s.X) * fac),
		saturate16(int32(s.Y) * fac),
		saturate16(int32(s.Z) * fac),
	}
	res.Unit = saul.UnitG
	res.Scale = -3
	return 3, nil
}

// ReadMagPhysical reads the magnetometer in milli-gauss. Z has already been
// brought to the X/Y sensitivity by ReadMagnetometer, so one factor serves all
// three axes.
func (d *Device) ReadMagPhysical(res *saul.Phydat) (int, error) {
	s, err := d.ReadMagnetometer()
	if err != nil {
		return 0, err
	}
	xy, _ := d.cfg.MagGain.LSBPerGauss()
	res.Val = [3]int16{
		saturate16(int32(s.X) * 1000 / xy),
		saturate16(int32(s.Y) * 1000 / xy),
		saturate16(int32(s.Z) * 1000 / xy),
	}
	res.Unit = saul.UnitGauss
	res.Scale = -3
	return 3, nil
}

// AccelDriver exposes the accelerometer to a saul.Registry.
func AccelDriver(d *Device) saul.Driver {
	return saul.Driver{Read: d.ReadAccelPhysical, Type: saul.SenseAccel}
}

// MagDriver exposes the magnetometer to a saul.Registry.
func MagDriver(d *Device) saul.Driver {
	return saul.Driver{Read: d.ReadMagPhysical, Type: saul.SenseMag}
}

// Register adds both sensors of d to r under name, suffixed by sensor.
func Register(r *saul.Registry, name string, d *Device) error {
	if _, err := r.Add(name+"-accel", AccelDriver(d)); err != nil {
		return err
	}
	_, err := r.Add(name+"-mag", MagDriver(d))
	return err
}
