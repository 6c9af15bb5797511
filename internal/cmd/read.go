package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/westphae/goecompass/ahrsweb"
	"github.com/westphae/goecompass/ecompass"
)

const csvHeader = "T,N,A1,A2,A3,M1,M2,M3,Temp,Roll,Pitch,Heading"

func readCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "read prints accelerometer, magnetometer and heading samples as CSV",
		Example: `  lsm303 read --count 100
  lsm303 read --publish ws://localhost:8000/ahrsweb`,
		Args: cobra.NoArgs,
		RunE: runRead,
	}
	cmd.Flags().Int("count", 0, "number of samples, 0 reads until interrupted")
	cmd.Flags().String("publish", "", "also publish samples to an ahrsweb server at this websocket URL")
	cmd.Flags().String("calibration", "", "magnetometer calibration file")
	return cmd
}

func runRead(cmd *cobra.Command, _ []string) error {
	count, _ := cmd.Flags().GetInt("count")
	url, _ := cmd.Flags().GetString("publish")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var pub *ahrsweb.Publisher
	if url != "" {
		if pub, err = ahrsweb.NewPublisher(url); err != nil {
			return fmt.Errorf("connecting to %s: %w", url, err)
		}
		defer pub.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, csvHeader)

	l := ahrsweb.NewListener(nil, s.dev, s.calibration(), s.interval())
	t0 := time.Now()
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for n := 0; count == 0 || n < count; n++ {
		if n > 0 {
			if !wait(ctx, ticker.C) {
				return nil
			}
		}
		d := l.Read()
		c := ahrsweb.NewCompassData(d, t0)
		if c.Err != "" {
			log.Warnln(c.Err)
		}
		writeCSV(out, c, s.opt.Calibration.Declination)

		if pub != nil {
			if err := pub.Send(d); err != nil {
				log.Warnln(err)
			}
		}
	}
	return nil
}

func wait(ctx context.Context, c <-chan time.Time) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c:
		return true
	}
}

// writeCSV prints one sample. Fields that could not be read are left empty.
func writeCSV(w io.Writer, c *ahrsweb.CompassData, declination float64) {
	fmt.Fprintf(w, "%.3f,%d,", c.T, c.N)
	if c.AValid {
		fmt.Fprintf(w, "%.4f,%.4f,%.4f,", c.A1, c.A2, c.A3)
	} else {
		fmt.Fprint(w, ",,,")
	}
	if c.MValid {
		fmt.Fprintf(w, "%.4f,%.4f,%.4f,", c.M1, c.M2, c.M3)
	} else {
		fmt.Fprint(w, ",,,")
	}
	if c.TValid {
		fmt.Fprintf(w, "%d,", c.Temp)
	} else {
		fmt.Fprint(w, ",")
	}
	if c.AttValid {
		fmt.Fprintf(w, "%.1f,%.1f,%.1f\n", c.Roll, c.Pitch, ecompass.TrueHeading(c.Heading, declination))
	} else {
		fmt.Fprint(w, ",,\n")
	}
}
