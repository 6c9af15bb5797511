/*
Package i2cbus adapts host I2C and GPIO stacks to the register-level transport
used by the sensor drivers. One adapter is shared by every device on the same
physical bus; Acquire and Release serialize their transactions.
*/
package i2cbus

import (
	"sync"

	"github.com/kidoman/embd"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// Embd is a shareable bus on top of an embd I2C bus.
type Embd struct {
	mu  sync.Mutex
	bus embd.I2CBus
}

// NewEmbd wraps bus, usually obtained from embd.NewI2CBus.
func NewEmbd(bus embd.I2CBus) *Embd {
	return &Embd{bus: bus}
}

func (b *Embd) Acquire() { b.mu.Lock() }
func (b *Embd) Release() { b.mu.Unlock() }

func (b *Embd) WriteReg(addr, reg, value byte) error {
	return b.bus.WriteByteToReg(addr, reg, value)
}

func (b *Embd) ReadReg(addr, reg byte) (byte, error) {
	return b.bus.ReadByteFromReg(addr, reg)
}

func (b *Embd) ReadRegs(addr, reg byte, buf []byte) error {
	return b.bus.ReadFromReg(addr, reg, buf)
}

// Close closes the underlying bus.
func (b *Embd) Close() error {
	return b.bus.Close()
}

// EmbdPin is a data-ready input on an embd GPIO pin.
type EmbdPin struct {
	pin embd.DigitalPin
}

func NewEmbdPin(pin embd.DigitalPin) *EmbdPin {
	return &EmbdPin{pin: pin}
}

func (p *EmbdPin) InitInput() error {
	return p.pin.SetDirection(embd.In)
}

func (p *EmbdPin) Read() (int, error) {
	return p.pin.Read()
}

// Periph is a shareable bus on top of a periph.io I2C bus.
type Periph struct {
	mu  sync.Mutex
	bus i2c.Bus
}

// NewPeriph wraps bus, usually obtained from i2creg.Open.
func NewPeriph(bus i2c.Bus) *Periph {
	return &Periph{bus: bus}
}

func (b *Periph) Acquire() { b.mu.Lock() }
func (b *Periph) Release() { b.mu.Unlock() }

func (b *Periph) WriteReg(addr, reg, value byte) error {
	return b.bus.Tx(uint16(addr), []byte{reg, value}, nil)
}

func (b *Periph) ReadReg(addr, reg byte) (byte, error) {
	var v [1]byte
	if err := b.bus.Tx(uint16(addr), []byte{reg}, v[:]); err != nil {
		return 0, err
	}
	return v[0], nil
}

// ReadRegs reads len(buf) consecutive registers. The magnetometer auto-increments
// on its own; accelerometer bursts need the 0x80 bit set in reg by the caller.
func (b *Periph) ReadRegs(addr, reg byte, buf []byte) error {
	return b.bus.Tx(uint16(addr), []byte{reg}, buf)
}

// PeriphPin is a data-ready input on a periph.io GPIO pin.
type PeriphPin struct {
	pin gpio.PinIn
}

func NewPeriphPin(pin gpio.PinIn) *PeriphPin {
	return &PeriphPin{pin: pin}
}

func (p *PeriphPin) InitInput() error {
	return p.pin.In(gpio.Float, gpio.NoEdge)
}

func (p *PeriphPin) Read() (int, error) {
	if p.pin.Read() == gpio.High {
		return 1, nil
	}
	return 0, nil
}
