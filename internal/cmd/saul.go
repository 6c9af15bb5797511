package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/westphae/goecompass/sensors/lsm303dlhc"
	"github.com/westphae/goecompass/sensors/saul"
)

const saulName = "lsm303dlhc"

func saulCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saul",
		Short: "saul lists the registered sensors",
		Long:  "saul lists the sensors the LSM303DLHC exposes to the sensor registry; saul read reads them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			reg, err := registry(s.dev)
			if err != nil {
				return err
			}
			return reg.Dump(cmd.OutOrStdout())
		},
	}

	read := &cobra.Command{
		Use:     "read <device id>|all",
		Short:   "read reads one registered sensor, or all of them",
		Example: "  lsm303 saul read 0\n  lsm303 saul read all",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			reg, err := registry(s.dev)
			if err != nil {
				return err
			}
			return saulRead(cmd.OutOrStdout(), reg, args[0])
		},
	}
	cmd.AddCommand(read)
	return cmd
}

func registry(dev *lsm303dlhc.Device) (*saul.Registry, error) {
	reg := new(saul.Registry)
	if err := lsm303dlhc.Register(reg, saulName, dev); err != nil {
		return nil, err
	}
	return reg, nil
}

// saulRead prints the reading of entry arg, or of every entry for "all".
func saulRead(w io.Writer, reg *saul.Registry, arg string) error {
	if arg == "all" {
		var errs []error
		for i := 0; i < reg.Len(); i++ {
			errs = append(errs, saulReadOne(w, reg, i))
		}
		return errors.Join(errs...)
	}
	i, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid device id %q", arg)
	}
	return saulReadOne(w, reg, i)
}

func saulReadOne(w io.Writer, reg *saul.Registry, i int) error {
	e, err := reg.Find(i)
	if err != nil {
		return fmt.Errorf("undefined device id given: %w", err)
	}
	var res saul.Phydat
	dim, err := reg.Read(i, &res)
	if err != nil {
		return fmt.Errorf("failed to read from device #%d: %w", i, err)
	}
	fmt.Fprintf(w, "Reading from #%d (%s|%s)\n", i, e.Name, e.Driver.Type)
	fmt.Fprint(w, res.Dump(dim))
	return nil
}
