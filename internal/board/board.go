// Package board opens the host I2C bus and data-ready pins named in the
// configuration and hands them to the LSM303DLHC driver.
package board

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/westphae/goecompass/internal/config"
	"github.com/westphae/goecompass/sensors/i2cbus"
	"github.com/westphae/goecompass/sensors/lsm303dlhc"
)

// Board is an opened bus with its optional INT1 and DRDY pins.
type Board struct {
	Bus    lsm303dlhc.Bus
	AccPin lsm303dlhc.Pin
	MagPin lsm303dlhc.Pin

	closers []func() error
}

// Opener opens a board for one bus driver.
type Opener func(opt config.BusOpt) (*Board, error)

var (
	mu      sync.Mutex
	openers = map[string]Opener{
		"periph": openPeriph,
		"embd":   openEmbd,
	}
)

// Register makes an Opener available under driver, replacing any previous one.
func Register(driver string, o Opener) {
	mu.Lock()
	defer mu.Unlock()
	openers[driver] = o
}

// Open opens the bus described by opt.
func Open(opt config.BusOpt) (*Board, error) {
	mu.Lock()
	o, ok := openers[opt.Driver]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown bus driver %q", opt.Driver)
	}
	b, err := o(opt)
	if err != nil {
		return nil, err
	}
	log.Debugf("opened %s I2C bus %q", opt.Driver, opt.Name)
	return b, nil
}

// New wraps an already opened bus. Pins may be nil.
func New(bus lsm303dlhc.Bus, accPin, magPin lsm303dlhc.Pin, closers ...func() error) *Board {
	return &Board{Bus: bus, AccPin: accPin, MagPin: magPin, closers: closers}
}

// Device configures the LSM303DLHC on the board. As with lsm303dlhc.New, the
// device is returned even when some configuration steps failed.
func (b *Board) Device(cfg lsm303dlhc.Config) (*lsm303dlhc.Device, error) {
	return lsm303dlhc.New(b.Bus, b.AccPin, b.MagPin, cfg)
}

// Close releases the bus and pins, last opened first.
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

func openPeriph(opt config.BusOpt) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(opt.Name)
	if err != nil {
		return nil, fmt.Errorf("opening I2C bus %q: %w", opt.Name, err)
	}
	b := New(i2cbus.NewPeriph(bus), nil, nil, bus.Close)
	if opt.AccPin != "" {
		p := gpioreg.ByName(opt.AccPin)
		if p == nil {
			b.Close()
			return nil, fmt.Errorf("no GPIO pin %q", opt.AccPin)
		}
		b.AccPin = i2cbus.NewPeriphPin(p)
	}
	if opt.MagPin != "" {
		p := gpioreg.ByName(opt.MagPin)
		if p == nil {
			b.Close()
			return nil, fmt.Errorf("no GPIO pin %q", opt.MagPin)
		}
		b.MagPin = i2cbus.NewPeriphPin(p)
	}
	return b, nil
}

func openEmbd(opt config.BusOpt) (*Board, error) {
	n, err := strconv.Atoi(opt.Name)
	if err != nil || n < 0 || n > 255 {
		return nil, fmt.Errorf("embd bus name must be a bus number, got %q", opt.Name)
	}
	if err := embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("embd I2C init: %w", err)
	}
	b := New(i2cbus.NewEmbd(embd.NewI2CBus(byte(n))), nil, nil, embd.CloseI2C)
	if opt.AccPin == "" && opt.MagPin == "" {
		return b, nil
	}

	if err := embd.InitGPIO(); err != nil {
		b.Close()
		return nil, fmt.Errorf("embd GPIO init: %w", err)
	}
	b.closers = append(b.closers, embd.CloseGPIO)
	for _, p := range []struct {
		name string
		dst  *lsm303dlhc.Pin
	}{{opt.AccPin, &b.AccPin}, {opt.MagPin, &b.MagPin}} {
		if p.name == "" {
			continue
		}
		pin, err := embd.NewDigitalPin(p.name)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("opening GPIO pin %q: %w", p.name, err)
		}
		b.closers = append(b.closers, pin.Close)
		*p.dst = i2cbus.NewEmbdPin(pin)
	}
	return b, nil
}
