/*
Package saul is a small sensor/actuator registry in the style of RIOT's SAUL layer:
drivers register read (and optionally write) functions under a name, and generic
tools (the shell "saul" command, the web API) reach every sensor through it without
knowing the chip behind it.
*/
package saul

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MaxEntries is the fixed capacity of a Registry.
const MaxEntries = 16

var (
	ErrRegistryFull = errors.New("saul: registry full")
	ErrNoEntry      = errors.New("saul: no such entry")
	ErrNotSupported = errors.New("saul: operation not supported")
)

// Unit tags the physical unit of a Phydat value.
type Unit byte

const (
	UnitNone Unit = iota
	UnitG
	UnitGauss
	UnitTemp
)

func (u Unit) String() string {
	switch u {
	case UnitG:
		return "g"
	case UnitGauss:
		return "Gs"
	case UnitTemp:
		return "°C"
	default:
		return ""
	}
}

// Class identifies what kind of device an entry is.
type Class byte

const (
	ClassUndef Class = iota
	SenseAccel
	SenseMag
	SenseTemp
)

func (c Class) String() string {
	switch c {
	case SenseAccel:
		return "SENSE_ACCEL"
	case SenseMag:
		return "SENSE_MAG"
	case SenseTemp:
		return "SENSE_TEMP"
	default:
		return "CLASS_UNDEF"
	}
}

// Phydat holds up to three values sharing one unit and a decimal exponent:
// the physical quantity is Val[i] * 10^Scale Unit.
type Phydat struct {
	Val   [3]int16
	Unit  Unit
	Scale int8
}

func scalePrefix(scale int8) string {
	switch scale {
	case -3:
		return "m"
	case -6:
		return "u"
	case 3:
		return "k"
	case 0:
		return ""
	default:
		return fmt.Sprintf("E%d", scale)
	}
}

// Dump formats the first dim values the way the RIOT shell prints them.
func (p Phydat) Dump(dim int) string {
	if dim < 1 || dim > len(p.Val) {
		dim = len(p.Val)
	}
	var b strings.Builder
	b.WriteString("Data:")
	unit := scalePrefix(p.Scale) + p.Unit.String()
	for i := 0; i < dim; i++ {
		if dim > 1 {
			fmt.Fprintf(&b, "\t[%d] %d %s\n", i, p.Val[i], unit)
		} else {
			fmt.Fprintf(&b, "\t%d %s\n", p.Val[i], unit)
		}
	}
	return b.String()
}

func (p Phydat) String() string {
	return p.Dump(len(p.Val))
}

// Float returns Val[i] in the unit of p, applying the decimal scale.
func (p Phydat) Float(i int) float64 {
	v := float64(p.Val[i])
	for s := p.Scale; s < 0; s++ {
		v /= 10
	}
	for s := p.Scale; s > 0; s-- {
		v *= 10
	}
	return v
}

// Driver is the pair of functions a device exposes to the registry.
// Read and Write return the number of dimensions used in the Phydat.
type Driver struct {
	Read  func(res *Phydat) (int, error)
	Write func(data *Phydat) (int, error)
	Type  Class
}

// Entry is one registered device.
type Entry struct {
	Name   string
	Driver Driver
}

// Registry is a bounded table of entries, indexed by small integers in
// registration order.
type Registry struct {
	mu      sync.Mutex
	entries [MaxEntries]*Entry
	n       int
}

// Add registers a driver and returns its index.
func (r *Registry) Add(name string, d Driver) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n >= MaxEntries {
		return -1, fmt.Errorf("%w: cannot add %q", ErrRegistryFull, name)
	}
	r.entries[r.n] = &Entry{Name: name, Driver: d}
	r.n++
	return r.n - 1, nil
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Find returns the entry at index i.
func (r *Registry) Find(i int) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= r.n {
		return nil, fmt.Errorf("%w: %d", ErrNoEntry, i)
	}
	return r.entries[i], nil
}

// FindName returns the index of the first entry registered under name.
func (r *Registry) FindName(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < r.n; i++ {
		if r.entries[i].Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNoEntry, name)
}

// Read reads entry i into res.
func (r *Registry) Read(i int, res *Phydat) (int, error) {
	e, err := r.Find(i)
	if err != nil {
		return 0, err
	}
	if e.Driver.Read == nil {
		return 0, ErrNotSupported
	}
	return e.Driver.Read(res)
}

// Write writes data to entry i.
func (r *Registry) Write(i int, data *Phydat) (int, error) {
	e, err := r.Find(i)
	if err != nil {
		return 0, err
	}
	if e.Driver.Write == nil {
		return 0, ErrNotSupported
	}
	return e.Driver.Write(data)
}

// Dump writes the registry listing printed by the shell "saul" command.
func (r *Registry) Dump(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n == 0 {
		_, err := fmt.Fprintln(w, "No devices found")
		return err
	}
	if _, err := fmt.Fprintln(w, "ID\tClass\t\tName"); err != nil {
		return err
	}
	for i := 0; i < r.n; i++ {
		e := r.entries[i]
		if _, err := fmt.Fprintf(w, "#%d\t%s\t%s\n", i, e.Driver.Type, e.Name); err != nil {
			return err
		}
	}
	return nil
}
