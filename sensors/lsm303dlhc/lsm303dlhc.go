/*
Package lsm303dlhc drives an ST LSM303DLHC 3D accelerometer and 3D magnetometer.
Reference: ST LSM303DLHC datasheet, DocID018771.

The two sensors sit at separate I2C addresses on one package. All calls are
synchronous; the bus is acquired only while register traffic is in flight.
*/
package lsm303dlhc

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrTransport marks every failure reported by the bus or a data-ready pin.
	ErrTransport = errors.New("LSM303DLHC transport error")
	// ErrMagNotReady is returned when a bounded data-ready poll runs out.
	ErrMagNotReady = errors.New("LSM303DLHC Error: magnetometer data not ready")
)

// Bus is the I2C transport. Acquire and Release bracket each transaction so the
// bus can be shared with other drivers.
type Bus interface {
	Acquire()
	Release()
	WriteReg(addr, reg, value byte) error
	ReadReg(addr, reg byte) (byte, error)
	ReadRegs(addr, reg byte, buf []byte) error
}

// Pin is a data-ready input line. Read returns 0 for low, nonzero for high.
type Pin interface {
	InitInput() error
	Read() (int, error)
}

// Config holds the settings programmed by New.
type Config struct {
	AccelAddress byte
	AccelRate    AccelRate
	AccelScale   AccelScale
	MagAddress   byte
	MagRate      MagRate
	MagGain      MagGain
	// MagPollLimit bounds the number of data-ready polls in ReadMagnetometer.
	// Zero polls forever.
	MagPollLimit int
}

// DefaultConfig returns the factory addresses with moderate rates.
func DefaultConfig() Config {
	return Config{
		AccelAddress: AccelAddress,
		AccelRate:    AccelRate100Hz,
		AccelScale:   AccelScale2G,
		MagAddress:   MagAddress,
		MagRate:      MagRate15Hz,
		MagGain:      MagGain4_7,
	}
}

// Sample is one raw 3-axis reading, in sensor counts.
type Sample struct {
	X, Y, Z int16
}

/*
Device represents one LSM303DLHC. It keeps no state besides its configuration;
everything mutable lives in the chip registers.
*/
type Device struct {
	bus    Bus
	accPin Pin
	magPin Pin
	cfg    Config
}

/*
New programs the chip according to cfg and returns its handle.
accPin and magPin are the INT1 and DRDY lines; either may be nil. Without a
DRDY pin ReadMagnetometer polls the SR_REG_M status bit instead.

Every configuration step is attempted even after a failure. If any failed, the
returned error wraps ErrTransport and the Device is still returned: the chip may
then be only partially configured.
*/
func New(bus Bus, accPin, magPin Pin, cfg Config) (*Device, error) {
	d := &Device{
		bus:    bus,
		accPin: accPin,
		magPin: magPin,
		cfg:    cfg,
	}
	acc, mag := cfg.AccelAddress, cfg.MagAddress
	var errs []error

	// Reboot memory content, alone in its own bus transaction.
	d.bus.Acquire()
	errs = append(errs, d.i2cWrite(acc, RegCtrl5A, Ctrl5ABoot))
	d.bus.Release()

	d.bus.Acquire()
	errs = append(errs,
		d.i2cWrite(acc, RegCtrl1A, Ctrl1AXYZEn|byte(cfg.AccelRate)),
		d.i2cWrite(acc, RegCtrl4A, Ctrl4ABDU|byte(cfg.AccelScale)|Ctrl4AHR),
		d.i2cWrite(acc, RegCtrl3A, Ctrl3AI1None),
	)
	d.bus.Release()

	errs = append(errs, pinInit(d.accPin, "INT1"))

	// Continuous mode must come last.
	d.bus.Acquire()
	errs = append(errs,
		d.i2cWrite(mag, RegCraM, CraMTempEn|byte(cfg.MagRate)),
		d.i2cWrite(mag, RegCrbM, byte(cfg.MagGain)),
		d.i2cWrite(mag, RegMrM, MagModeContinuous),
	)
	d.bus.Release()

	errs = append(errs, pinInit(d.magPin, "DRDY"))

	if err := errors.Join(errs...); err != nil {
		log.Warnf("LSM303DLHC: initialization incomplete: %s", err)
		return d, fmt.Errorf("LSM303DLHC Error: initialization incomplete: %w", err)
	}
	log.Debugf("LSM303DLHC: configured accel %s %s, mag %s %s",
		cfg.AccelRate, cfg.AccelScale, cfg.MagRate, cfg.MagGain)
	return d, nil
}

// Config returns the configuration the device was created with.
func (d *Device) Config() Config {
	return d.cfg
}

// ReadAcceleration reads one accelerometer sample. The status register is read
// for tracing only; the call does not wait for new data.
func (d *Device) ReadAcceleration() (Sample, error) {
	var (
		lo, hi [3]byte
		errs   []error
		err    error
	)
	regs := [3][2]byte{
		{RegOutXLA, RegOutXHA},
		{RegOutYLA, RegOutYHA},
		{RegOutZLA, RegOutZHA},
	}
	acc := d.cfg.AccelAddress

	d.bus.Acquire()
	if status, errStatus := d.i2cRead(acc, RegStatusA); errStatus != nil {
		log.Debugf("LSM303DLHC: couldn't read accel status: %s", errStatus)
	} else {
		log.Debugf("LSM303DLHC: accel status %#02x", status)
	}
	for i, r := range regs {
		lo[i], err = d.i2cRead(acc, r[0])
		errs = append(errs, err)
		hi[i], err = d.i2cRead(acc, r[1])
		errs = append(errs, err)
	}
	d.bus.Release()

	if err = errors.Join(errs...); err != nil {
		return Sample{}, err
	}
	return Sample{
		X: DecodeAccel(lo[0], hi[0]),
		Y: DecodeAccel(lo[1], hi[1]),
		Z: DecodeAccel(lo[2], hi[2]),
	}, nil
}

/*
ReadMagnetometer waits for the magnetometer data-ready signal, then burst-reads
the output block. The wait happens without holding the bus. With MagPollLimit
zero the wait has no bound.
*/
func (d *Device) ReadMagnetometer() (Sample, error) {
	if err := d.waitMagReady(); err != nil {
		return Sample{}, err
	}

	var raw [6]byte
	d.bus.Acquire()
	err := d.i2cReadBytes(d.cfg.MagAddress, RegOutXHM, raw[:])
	d.bus.Release()
	if err != nil {
		return Sample{}, err
	}
	return DecodeMag(raw, d.cfg.MagGain), nil
}

// ReadTemperature returns the raw die temperature word, high byte first on
// the wire. The burst starts at TEMP_OUT_H_M (0x31) on purpose: the high byte
// sits at the lower address, as in the output registers.
func (d *Device) ReadTemperature() (int16, error) {
	var raw [2]byte
	d.bus.Acquire()
	err := d.i2cReadBytes(d.cfg.MagAddress, RegTempOutHM, raw[:])
	d.bus.Release()
	if err != nil {
		return 0, err
	}
	return int16(Swap16(uint16(raw[0]) | uint16(raw[1])<<8)), nil
}

/*
Enable powers both sensors back up. It programs fixed settings rather than the
ones given to New: 1344 Hz, ±2 g with high resolution and block update, INT1 on
data ready, and a 75 Hz magnetometer at ±4.7 gauss with the thermometer on.
*/
func (d *Device) Enable() error {
	acc, mag := d.cfg.AccelAddress, d.cfg.MagAddress
	var errs []error

	d.bus.Acquire()
	errs = append(errs,
		d.i2cWrite(acc, RegCtrl1A, Ctrl1AXYZEn|byte(AccelRateN1344HzL5376)),
		d.i2cWrite(acc, RegCtrl4A, Ctrl4ABDU|byte(AccelScale2G)|Ctrl4AHR),
		d.i2cWrite(acc, RegCtrl3A, Ctrl3AI1DRDY1),
	)
	d.bus.Release()

	errs = append(errs, pinInit(d.accPin, "INT1"), pinInit(d.magPin, "DRDY"))

	d.bus.Acquire()
	errs = append(errs,
		d.i2cWrite(mag, RegCraM, CraMTempEn|byte(MagRate75Hz)),
		d.i2cWrite(mag, RegCrbM, byte(MagGain4_7)),
		d.i2cWrite(mag, RegMrM, MagModeContinuous),
	)
	d.bus.Release()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("LSM303DLHC Error: enable incomplete: %w", err)
	}
	return nil
}

// Disable powers the accelerometer off, puts the magnetometer to sleep and
// turns the thermometer off.
func (d *Device) Disable() error {
	acc, mag := d.cfg.AccelAddress, d.cfg.MagAddress

	d.bus.Acquire()
	err := errors.Join(
		d.i2cWrite(acc, RegCtrl1A, Ctrl1APowerOff),
		d.i2cWrite(mag, RegMrM, MagModeSleep),
		d.i2cWrite(mag, RegCraM, 0x00),
	)
	d.bus.Release()

	if err != nil {
		return fmt.Errorf("LSM303DLHC Error: disable incomplete: %w", err)
	}
	return nil
}

// ProbeID checks the magnetometer identification registers.
func (d *Device) ProbeID() error {
	var id [3]byte
	d.bus.Acquire()
	err := d.i2cReadBytes(d.cfg.MagAddress, RegIraM, id[:])
	d.bus.Release()
	if err != nil {
		return err
	}
	if id != [3]byte{IraMValue, IrbMValue, IrcMValue} {
		return fmt.Errorf("LSM303DLHC Error: wrong identification, got %q", id[:])
	}
	return nil
}

func (d *Device) waitMagReady() error {
	for n := 1; ; n++ {
		ready, err := d.magReady()
		if err != nil {
			return err
		}
		if ready {
			if n > 1 {
				log.Debugf("LSM303DLHC: magnetometer ready after %d polls", n)
			}
			return nil
		}
		if d.cfg.MagPollLimit > 0 && n >= d.cfg.MagPollLimit {
			return fmt.Errorf("%w after %d polls", ErrMagNotReady, n)
		}
		runtime.Gosched()
	}
}

func (d *Device) magReady() (bool, error) {
	if d.magPin != nil {
		v, err := d.magPin.Read()
		if err != nil {
			return false, fmt.Errorf("%w: reading DRDY: %s", ErrTransport, err)
		}
		return v != 0, nil
	}
	d.bus.Acquire()
	sr, err := d.i2cRead(d.cfg.MagAddress, RegSrM)
	d.bus.Release()
	return sr&SrMDRDY != 0, err
}

// DecodeAccel assembles a little-endian register pair and drops the four
// padding bits of the left-justified 12-bit sample, keeping its sign.
func DecodeAccel(lo, hi byte) int16 {
	return int16(uint16(lo)|uint16(hi)<<8) >> 4
}

/*
DecodeMag decodes the six bytes read from OUT_X_H_M onwards. The chip emits
big-endian words in X, Z, Y order; Z is rescaled to the X/Y sensitivity of the
gain band.
*/
func DecodeMag(raw [6]byte, gain MagGain) Sample {
	x := int16(Swap16(uint16(raw[0]) | uint16(raw[1])<<8))
	z := int16(Swap16(uint16(raw[2]) | uint16(raw[3])<<8))
	y := int16(Swap16(uint16(raw[4]) | uint16(raw[5])<<8))
	return Sample{X: x, Y: y, Z: CompensateZ(z, gain)}
}

// Swap16 exchanges the two bytes of v.
func Swap16(v uint16) uint16 {
	return v<<8 | v>>8
}

// CompensateZ scales a Z reading by the X/Y to Z sensitivity ratio of gain,
// truncating toward zero. For ±4.7 gauss this is z*400/355.
func CompensateZ(z int16, gain MagGain) int16 {
	xy, zl := gain.LSBPerGauss()
	return saturate16(int32(z) * xy / zl)
}

func saturate16(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

func pinInit(p Pin, name string) error {
	if p == nil {
		return nil
	}
	if err := p.InitInput(); err != nil {
		return fmt.Errorf("%w: configuring %s as input: %s", ErrTransport, name, err)
	}
	return nil
}

func (d *Device) i2cWrite(addr, register, value byte) (err error) {
	if errWrite := d.bus.WriteReg(addr, register, value); errWrite != nil {
		err = fmt.Errorf("%w: writing %X to %X at %X: %s", ErrTransport, value, register, addr, errWrite)
	}
	return
}

func (d *Device) i2cRead(addr, register byte) (value byte, err error) {
	value, errRead := d.bus.ReadReg(addr, register)
	if errRead != nil {
		err = fmt.Errorf("%w: reading %X at %X: %s", ErrTransport, register, addr, errRead)
	}
	return
}

func (d *Device) i2cReadBytes(addr, register byte, value []byte) (err error) {
	if errRead := d.bus.ReadRegs(addr, register, value); errRead != nil {
		err = fmt.Errorf("%w: reading %d bytes from %X at %X: %s", ErrTransport, len(value), register, addr, errRead)
	}
	return
}
