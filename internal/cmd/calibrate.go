package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	magkal "github.com/westphae/goecompass/magnetometer"
	"github.com/westphae/goecompass/sensors/saul"
)

func calibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "calibrate estimates the magnetometer hard-iron offset",
		Long: `calibrate collects magnetometer readings while the sensor is turned through
as many orientations as possible, fits an offset (and, for the simple method,
per-axis scale) and saves it for read, watch and serve.`,
		Example: "  lsm303 calibrate --samples 1000 --method sphere --output ./cal.json",
		Args:    cobra.NoArgs,
		RunE:    runCalibrate,
	}
	cmd.Flags().Int("samples", 0, "number of readings to collect")
	cmd.Flags().String("method", "", "simple (min/max) or sphere (least-squares)")
	cmd.Flags().StringP("output", "o", "", "calibration file, defaults to the configured calibration path")
	return cmd
}

func runCalibrate(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opt := s.opt.Calibration
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		opt.Path = out
	}
	if opt.Method != "simple" && opt.Method != "sphere" {
		return fmt.Errorf("unknown calibration method %q", opt.Method)
	}
	if opt.Samples <= 0 {
		return fmt.Errorf("invalid number of samples %d", opt.Samples)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("collecting %d magnetometer readings, turn the sensor in every direction", opt.Samples)
	samples := make([][3]float64, 0, opt.Samples)
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	var p saul.Phydat
	for n := 0; len(samples) < opt.Samples; n++ {
		if n > 0 && !wait(ctx, ticker.C) {
			return fmt.Errorf("interrupted after %d readings", len(samples))
		}
		if _, err := s.dev.ReadMagPhysical(&p); err != nil {
			log.Warnln(err)
		} else {
			samples = append(samples, [3]float64{p.Float(0), p.Float(1), p.Float(2)})
			if len(samples)%100 == 0 {
				log.Infof("%d/%d readings", len(samples), opt.Samples)
			}
		}
	}

	cal, err := fitCalibration(opt.Method, samples)
	if err != nil {
		return err
	}
	d := cal.CalData()
	if err := d.Save(opt.Path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "offset %.4f, scale %.4f saved to %s\n", cal.Offset, cal.Scale, opt.Path)
	return nil
}

func fitCalibration(method string, samples [][3]float64) (magkal.Calibration, error) {
	if method == "simple" {
		c := magkal.NewSimpleCalibrator()
		for _, m := range samples {
			c.Add(m)
		}
		return c.Calibration()
	}
	f, err := magkal.FitSphere(samples)
	if err != nil {
		return magkal.Identity(), err
	}
	log.Infof("field %.4f gauss, residual %.4f ± %.4f over %d readings",
		f.Radius, f.ResidualMean, f.ResidualStd, f.N)
	return f.Calibration(), nil
}
