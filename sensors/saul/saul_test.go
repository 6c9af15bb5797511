package saul

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"
)

func constDriver(c Class, v [3]int16) Driver {
	return Driver{
		Read: func(res *Phydat) (int, error) {
			res.Val = v
			res.Unit = UnitG
			res.Scale = -3
			return 3, nil
		},
		Type: c,
	}
}

func TestRegistryFull(t *testing.T) {
	var r Registry
	for i := 0; i < MaxEntries; i++ {
		n, err := r.Add(fmt.Sprintf("dev%d", i), Driver{Type: SenseTemp})
		if err != nil {
			t.Fatalf("Add %d: %s", i, err)
		}
		if n != i {
			t.Errorf("Add returned index %d, should be %d", n, i)
		}
	}
	if _, err := r.Add("one-too-many", Driver{}); !errors.Is(err, ErrRegistryFull) {
		t.Errorf("got %v, should be ErrRegistryFull", err)
	}
	if r.Len() != MaxEntries {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestRegistryLookup(t *testing.T) {
	var r Registry
	r.Add("accel", constDriver(SenseAccel, [3]int16{1, 2, 3}))
	r.Add("mag", constDriver(SenseMag, [3]int16{4, 5, 6}))

	i, err := r.FindName("mag")
	if err != nil || i != 1 {
		t.Fatalf("FindName(mag) = %d, %v", i, err)
	}
	if _, err := r.FindName("gyro"); !errors.Is(err, ErrNoEntry) {
		t.Errorf("got %v, should be ErrNoEntry", err)
	}
	for _, i := range []int{-1, 2, MaxEntries} {
		if _, err := r.Find(i); !errors.Is(err, ErrNoEntry) {
			t.Errorf("Find(%d): got %v, should be ErrNoEntry", i, err)
		}
	}

	var p Phydat
	n, err := r.Read(1, &p)
	if err != nil || n != 3 {
		t.Fatalf("Read: %d, %v", n, err)
	}
	if p.Val != [3]int16{4, 5, 6} {
		t.Errorf("read %v", p.Val)
	}
	if _, err := r.Write(1, &p); err != ErrNotSupported {
		t.Errorf("Write: got %v, should be ErrNotSupported", err)
	}
	if _, err := r.Read(5, &p); !errors.Is(err, ErrNoEntry) {
		t.Errorf("Read(5): got %v", err)
	}
}

func TestRegistryDump(t *testing.T) {
	var r Registry
	var b bytes.Buffer
	if err := r.Dump(&b); err != nil {
		t.Fatal(err)
	}
	if b.String() != "No devices found\n" {
		t.Errorf("empty dump: %q", b.String())
	}

	r.Add("lsm303dlhc-accel", Driver{Type: SenseAccel})
	r.Add("lsm303dlhc-mag", Driver{Type: SenseMag})
	b.Reset()
	if err := r.Dump(&b); err != nil {
		t.Fatal(err)
	}
	want := "ID\tClass\t\tName\n" +
		"#0\tSENSE_ACCEL\tlsm303dlhc-accel\n" +
		"#1\tSENSE_MAG\tlsm303dlhc-mag\n"
	if b.String() != want {
		t.Errorf("dump:\n%s\nshould be:\n%s", b.String(), want)
	}
}

func TestPhydatDump(t *testing.T) {
	p := Phydat{Val: [3]int16{12, -5, 1000}, Unit: UnitG, Scale: -3}
	want := "Data:\t[0] 12 mg\n\t[1] -5 mg\n\t[2] 1000 mg\n"
	if got := p.String(); got != want {
		t.Errorf("got %q, should be %q", got, want)
	}
	p = Phydat{Val: [3]int16{27}, Unit: UnitTemp}
	if got := p.Dump(1); got != "Data:\t27 °C\n" {
		t.Errorf("got %q", got)
	}
}

func TestPhydatFloat(t *testing.T) {
	cases := []struct {
		p    Phydat
		want float64
	}{
		{Phydat{Val: [3]int16{1500}, Scale: -3}, 1.5},
		{Phydat{Val: [3]int16{-25}, Scale: -1}, -2.5},
		{Phydat{Val: [3]int16{7}, Scale: 2}, 700},
		{Phydat{Val: [3]int16{7}}, 7},
	}
	for _, c := range cases {
		if got := c.p.Float(0); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("%+v: got %v, should be %v", c.p, got, c.want)
		}
	}
}
