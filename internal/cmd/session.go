package cmd

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/westphae/goecompass/internal/board"
	"github.com/westphae/goecompass/internal/config"
	magkal "github.com/westphae/goecompass/magnetometer"
	"github.com/westphae/goecompass/sensors"
	"github.com/westphae/goecompass/sensors/lsm303dlhc"
)

// session is a parsed configuration with the device opened on its board.
type session struct {
	opt   config.GoECompassOpt
	board *board.Board
	dev   *lsm303dlhc.Device
}

func openSession(cmd *cobra.Command) (*session, error) {
	desc := config.NewGoECompassDesc()
	if err := desc.Parse(cmd); err != nil {
		return nil, err
	}
	desc.PostParse()

	cfg, err := desc.Opt.DriverConfig()
	if err != nil {
		return nil, err
	}
	b, err := board.Open(desc.Opt.Bus)
	if err != nil {
		return nil, err
	}
	dev, err := b.Device(cfg)
	if err != nil {
		// The chip may be partially configured; reads report their own errors.
		log.Warnln(err)
	}
	return &session{opt: desc.Opt, board: b, dev: dev}, nil
}

func (s *session) Close() {
	if err := s.board.Close(); err != nil {
		log.Warnf("closing bus: %s", err)
	}
}

func (s *session) interval() time.Duration {
	if s.opt.IntervalMs <= 0 {
		return time.Duration(config.DefaultIntervalMs) * time.Millisecond
	}
	return time.Duration(s.opt.IntervalMs) * time.Millisecond
}

// calibration loads the saved magnetometer calibration, falling back to the
// identity when there is none.
func (s *session) calibration() magkal.Calibration {
	var d sensors.MagCalData
	if err := d.Load(s.opt.Calibration.Path); err != nil {
		log.Warnf("%s, using uncalibrated magnetometer", err)
		return magkal.Identity()
	}
	log.Debugf("loaded magnetometer calibration from %s", s.opt.Calibration.Path)
	return magkal.FromCalData(d)
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "probe checks the magnetometer identification registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg := s.dev.Config()
			if err := s.dev.ProbeID(); err != nil {
				return fmt.Errorf("no LSM303DLHC at %#02x/%#02x: %w", cfg.AccelAddress, cfg.MagAddress, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "LSM303DLHC found at %#02x/%#02x\n", cfg.AccelAddress, cfg.MagAddress)
			return nil
		},
	}
}

func enableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "enable powers both sensors up with the fixed high-rate settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.dev.Enable(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "LSM303DLHC enabled")
			return nil
		},
	}
}

func disableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "disable powers the accelerometer off and puts the magnetometer to sleep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.dev.Disable(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "LSM303DLHC disabled")
			return nil
		},
	}
}
