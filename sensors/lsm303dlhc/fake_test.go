package lsm303dlhc

import (
	"errors"
	"fmt"
	"testing"
)

// recorder keeps the calls made on a fakeBus and its pins in one sequence.
type recorder struct {
	calls []string
}

func (r *recorder) add(format string, a ...interface{}) {
	r.calls = append(r.calls, fmt.Sprintf(format, a...))
}

func (r *recorder) index(call string) int {
	for i, c := range r.calls {
		if c == call {
			return i
		}
	}
	return -1
}

func (r *recorder) count(call string) (n int) {
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return
}

func regKey(addr, reg byte) uint16 {
	return uint16(addr)<<8 | uint16(reg)
}

var errNack = errors.New("nack")

type fakeBus struct {
	t          *testing.T
	rec        *recorder
	regs       map[uint16]byte
	fail       map[uint16]bool
	failWriteN int // 1-based write that fails, 0 for none
	writes     int
	reads      int
	held       bool
}

func newFakeBus(t *testing.T, rec *recorder) *fakeBus {
	return &fakeBus{
		t:    t,
		rec:  rec,
		regs: make(map[uint16]byte),
		fail: make(map[uint16]bool),
	}
}

func (b *fakeBus) Acquire() {
	if b.held {
		b.t.Error("bus acquired while already held")
	}
	b.held = true
	b.rec.add("acquire")
}

func (b *fakeBus) Release() {
	if !b.held {
		b.t.Error("bus released while not held")
	}
	b.held = false
	b.rec.add("release")
}

func (b *fakeBus) WriteReg(addr, reg, value byte) error {
	if !b.held {
		b.t.Errorf("write to %X/%X without holding the bus", addr, reg)
	}
	b.writes++
	b.rec.add("write %02X %02X %02X", addr, reg, value)
	if b.failWriteN == b.writes || b.fail[regKey(addr, reg)] {
		return errNack
	}
	b.regs[regKey(addr, reg)] = value
	return nil
}

func (b *fakeBus) ReadReg(addr, reg byte) (byte, error) {
	if !b.held {
		b.t.Errorf("read from %X/%X without holding the bus", addr, reg)
	}
	b.reads++
	b.rec.add("read %02X %02X", addr, reg)
	if b.fail[regKey(addr, reg)] {
		return 0, errNack
	}
	return b.regs[regKey(addr, reg)], nil
}

func (b *fakeBus) ReadRegs(addr, reg byte, buf []byte) error {
	if !b.held {
		b.t.Errorf("burst read from %X/%X without holding the bus", addr, reg)
	}
	b.reads++
	b.rec.add("read %02X %02X x%d", addr, reg, len(buf))
	if b.fail[regKey(addr, reg)] {
		return errNack
	}
	for i := range buf {
		buf[i] = b.regs[regKey(addr, reg+byte(i))]
	}
	return nil
}

type fakePin struct {
	rec     *recorder
	name    string
	levels  []int // successive Read results, the last one repeats
	reads   int
	inits   int
	initErr error
	readErr error
}

func (p *fakePin) InitInput() error {
	p.inits++
	p.rec.add("init %s", p.name)
	return p.initErr
}

func (p *fakePin) Read() (int, error) {
	p.rec.add("poll %s", p.name)
	i := p.reads
	p.reads++
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.levels) == 0 {
		return 1, nil
	}
	if i >= len(p.levels) {
		i = len(p.levels) - 1
	}
	return p.levels[i], nil
}

type fixture struct {
	rec    *recorder
	bus    *fakeBus
	accPin *fakePin
	magPin *fakePin
}

func newFixture(t *testing.T) *fixture {
	rec := new(recorder)
	return &fixture{
		rec:    rec,
		bus:    newFakeBus(t, rec),
		accPin: &fakePin{rec: rec, name: "INT1"},
		magPin: &fakePin{rec: rec, name: "DRDY"},
	}
}

// device builds a Device on the fixture and clears the recorded setup traffic.
func (f *fixture) device(t *testing.T, cfg Config) *Device {
	d, err := New(f.bus, f.accPin, f.magPin, cfg)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	f.rec.calls = nil
	f.bus.writes, f.bus.reads = 0, 0
	return d
}
