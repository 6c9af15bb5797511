package i2cbus_test

import (
	"testing"

	"github.com/kidoman/embd"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/westphae/goecompass/sensors/i2cbus"
	"github.com/westphae/goecompass/sensors/lsm303dlhc"
)

var (
	_ lsm303dlhc.Bus = (*i2cbus.Embd)(nil)
	_ lsm303dlhc.Bus = (*i2cbus.Periph)(nil)
	_ lsm303dlhc.Pin = (*i2cbus.EmbdPin)(nil)
	_ lsm303dlhc.Pin = (*i2cbus.PeriphPin)(nil)
)

func TestPeriphDriverTraffic(t *testing.T) {
	const acc, mag = lsm303dlhc.AccelAddress, lsm303dlhc.MagAddress
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: acc, W: []byte{0x24, 0x80}},
			{Addr: acc, W: []byte{0x20, 0x57}},
			{Addr: acc, W: []byte{0x23, 0x88}},
			{Addr: acc, W: []byte{0x22, 0x00}},
			{Addr: mag, W: []byte{0x00, 0x90}},
			{Addr: mag, W: []byte{0x01, 0xA0}},
			{Addr: mag, W: []byte{0x02, 0x00}},
			{Addr: mag, W: []byte{0x03}, R: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}},
			{Addr: mag, W: []byte{0x31}, R: []byte{0x00, 0x19}},
		},
	}
	drdy := &gpiotest.Pin{N: "DRDY", L: gpio.High}

	d, err := lsm303dlhc.New(i2cbus.NewPeriph(bus), nil, i2cbus.NewPeriphPin(drdy), lsm303dlhc.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	s, err := d.ReadMagnetometer()
	if err != nil {
		t.Fatalf("ReadMagnetometer: %s", err)
	}
	if s.X != 0x0102 || s.Y != 0x0506 {
		t.Errorf("wrong sample %+v", s)
	}
	temp, err := d.ReadTemperature()
	if err != nil || temp != 0x19 {
		t.Errorf("ReadTemperature = %d, %v", temp, err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("unplayed traffic: %s", err)
	}
}

func TestPeriphReadReg(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{{Addr: 0x19, W: []byte{0x27}, R: []byte{0x08}}},
	}
	b := i2cbus.NewPeriph(bus)
	b.Acquire()
	v, err := b.ReadReg(0x19, 0x27)
	b.Release()
	if err != nil || v != 0x08 {
		t.Errorf("ReadReg = %#x, %v", v, err)
	}
}

func TestPeriphPin(t *testing.T) {
	pin := &gpiotest.Pin{N: "DRDY", L: gpio.Low}
	p := i2cbus.NewPeriphPin(pin)
	if err := p.InitInput(); err != nil {
		t.Fatalf("InitInput: %s", err)
	}
	if v, _ := p.Read(); v != 0 {
		t.Errorf("low pin read %d", v)
	}
	pin.L = gpio.High
	if v, _ := p.Read(); v != 1 {
		t.Errorf("high pin read %d", v)
	}
}

// embdBus records register traffic. Methods the adapter doesn't use are left
// to the embedded nil interface.
type embdBus struct {
	embd.I2CBus
	regs   map[[2]byte]byte
	closed bool
}

func (b *embdBus) WriteByteToReg(addr, reg, value byte) error {
	b.regs[[2]byte{addr, reg}] = value
	return nil
}

func (b *embdBus) ReadByteFromReg(addr, reg byte) (byte, error) {
	return b.regs[[2]byte{addr, reg}], nil
}

func (b *embdBus) ReadFromReg(addr, reg byte, value []byte) error {
	for i := range value {
		value[i] = b.regs[[2]byte{addr, reg + byte(i)}]
	}
	return nil
}

func (b *embdBus) Close() error {
	b.closed = true
	return nil
}

type embdPin struct {
	embd.DigitalPin
	dir   embd.Direction
	level int
}

func (p *embdPin) SetDirection(dir embd.Direction) error {
	p.dir = dir
	return nil
}

func (p *embdPin) Read() (int, error) {
	return p.level, nil
}

func TestEmbdDriverTraffic(t *testing.T) {
	raw := &embdBus{regs: make(map[[2]byte]byte)}
	bus := i2cbus.NewEmbd(raw)
	pin := &embdPin{dir: embd.Out, level: 1}

	d, err := lsm303dlhc.New(bus, nil, i2cbus.NewEmbdPin(pin), lsm303dlhc.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	if pin.dir != embd.In {
		t.Error("DRDY pin not set as input")
	}
	if v := raw.regs[[2]byte{lsm303dlhc.MagAddress, lsm303dlhc.RegCrbM}]; v != byte(lsm303dlhc.MagGain4_7) {
		t.Errorf("CRB_REG_M = %#x", v)
	}

	raw.regs[[2]byte{lsm303dlhc.MagAddress, lsm303dlhc.RegOutXHM}] = 0x01
	raw.regs[[2]byte{lsm303dlhc.MagAddress, lsm303dlhc.RegOutXLM}] = 0x00
	s, err := d.ReadMagnetometer()
	if err != nil || s.X != 256 {
		t.Errorf("ReadMagnetometer = %+v, %v", s, err)
	}

	if err := d.Disable(); err != nil {
		t.Fatalf("Disable: %s", err)
	}
	if v := raw.regs[[2]byte{lsm303dlhc.MagAddress, lsm303dlhc.RegMrM}]; v != lsm303dlhc.MagModeSleep {
		t.Errorf("MR_REG_M = %#x after Disable", v)
	}
	if err := bus.Close(); err != nil || !raw.closed {
		t.Errorf("Close: %v", err)
	}
}
