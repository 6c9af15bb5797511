package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/rpi"

	"github.com/westphae/goecompass/sensors/i2cbus"
	"github.com/westphae/goecompass/sensors/lsm303dlhc"
	"github.com/westphae/goecompass/sensors/saul"
)

func main() {
	if err := embd.InitI2C(); err != nil {
		fmt.Printf("no I2C: %s\n", err)
		return
	}
	defer embd.CloseI2C()
	bus := i2cbus.NewEmbd(embd.NewI2CBus(1))

	cfg := lsm303dlhc.DefaultConfig()
	cfg.MagRate = lsm303dlhc.MagRate75Hz
	cfg.MagPollLimit = 10000
	lsm, err := lsm303dlhc.New(bus, nil, nil, cfg)
	if err != nil {
		fmt.Printf("LSM303DLHC only partly configured: %s\n", err)
	}
	if err := lsm.ProbeID(); err != nil {
		fmt.Printf("no LSM303DLHC: %s\n", err)
		return
	}

	var a, m saul.Phydat
	t0 := time.Now()
	for {
		_, errA := lsm.ReadAccelPhysical(&a)
		_, errM := lsm.ReadMagPhysical(&m)
		temp, errT := lsm.ReadTemperature()
		if err := errors.Join(errA, errM, errT); err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Printf("%.3f,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f,%d\n", float64(time.Since(t0))/1e9,
			a.Float(0), a.Float(1), a.Float(2), m.Float(0), m.Float(1), m.Float(2), temp)
		time.Sleep(13 * time.Millisecond)
	}
}
