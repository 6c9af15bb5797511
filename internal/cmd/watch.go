package cmd

import (
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/westphae/goecompass/ahrsweb"
	"github.com/westphae/goecompass/ecompass"
)

var watchHeader = []string{"Quantity", "X / Roll", "Y / Pitch", "Z / Heading"}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "watch shows live readings in the terminal, q to quit",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	cmd.Flags().String("calibration", "", "magnetometer calibration file")
	return cmd
}

func getTable() *widgets.Table {
	table := widgets.NewTable()
	table.Rows = watchRows(nil, 0)
	table.ColumnWidths = []int{14, 14, 14, 14}
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.TextAlignment = ui.AlignRight
	table.SetRect(0, 0, 60, 13)
	return table
}

// watchRows lays one reading out as table rows. A nil reading gives the
// empty table.
func watchRows(c *ahrsweb.CompassData, declination float64) [][]string {
	rows := [][]string{watchHeader}
	if c == nil {
		return append(rows,
			[]string{"accel, g", "", "", ""},
			[]string{"mag, gauss", "", "", ""},
			[]string{"temp, raw", "", "", ""},
			[]string{"attitude, deg", "", "", ""},
			[]string{"sample", "", "", ""},
		)
	}

	v3 := func(ok bool, name, f string, x, y, z float64) []string {
		if !ok {
			return []string{name, "-", "-", "-"}
		}
		return []string{name, fmt.Sprintf(f, x), fmt.Sprintf(f, y), fmt.Sprintf(f, z)}
	}
	temp := "-"
	if c.TValid {
		temp = fmt.Sprintf("%d", c.Temp)
	}
	return append(rows,
		v3(c.AValid, "accel, g", "%.3f", c.A1, c.A2, c.A3),
		v3(c.MValid, "mag, gauss", "%.3f", c.M1, c.M2, c.M3),
		[]string{"temp, raw", "", "", temp},
		v3(c.AttValid, "attitude, deg", "%.1f", c.Roll, c.Pitch, ecompass.TrueHeading(c.Heading, declination)),
		[]string{"sample", fmt.Sprintf("%d", c.N), fmt.Sprintf("%.1fs", c.T), fmt.Sprintf("%.1fms", c.DT*1000)},
	)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := ui.Init(); err != nil {
		return fmt.Errorf("failed to initialize termui: %w", err)
	}
	defer ui.Close()

	table := getTable()
	ui.Render(table)

	l := ahrsweb.NewListener(nil, s.dev, s.calibration(), s.interval())
	t0 := time.Now()
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	uiEvents := ui.PollEvents()
	for {
		select {
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			}
		case <-ticker.C:
			c := ahrsweb.NewCompassData(l.Read(), t0)
			if c.Err != "" {
				log.Debugln(c.Err)
			}
			table.Rows = watchRows(c, s.opt.Calibration.Declination)
			ui.Render(table)
		}
	}
}
