// Package cmd holds the lsm303 command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/westphae/goecompass/internal/config"
)

func rootCmdFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "default configuration path")
	cmd.PersistentFlags().Bool("debug", false, "toggle debug logging")
	cmd.PersistentFlags().String("driver", config.DefaultBusDriver, "I2C stack, periph or embd")
	cmd.PersistentFlags().String("bus", config.DefaultBusName, "I2C bus name (periph) or number (embd)")
	cmd.PersistentFlags().Int("interval", config.DefaultIntervalMs, "sampling interval in milliseconds")
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:        "init",
		SuggestFor: []string{"ini"},
		Short:      "init create a configuration template",
		Long:       "init create a configuration template. If --print is set, it will print the configuration template to stdout",
		Example: `  lsm303 init --print
  lsm303 init --output /path/to/config.yaml`,
		Args: cobra.NoArgs,
		RunE: config.InitCfg,
	}
	initCmdFlags(cmd)
	return cmd
}

func initCmdFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("print", "p", false, "print default configuration to stdout")
	cmd.Flags().StringP("output", "o", config.DefaultConfig, "specify output path")
	cmd.Flags().BoolP("yes", "y", false, "overwrite")
}

func getRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lsm303",
		Short: "lsm303 reads an LSM303DLHC accelerometer and magnetometer",
		Long: `lsm303 configures an ST LSM303DLHC over I2C, reads it, calibrates its
magnetometer and streams a tilt-compensated compass heading to browsers.`,
		SilenceUsage: true,
	}
	rootCmdFlags(root)

	root.AddCommand(
		initCmd(),
		probeCmd(),
		readCmd(),
		saulCmd(),
		enableCmd(),
		disableCmd(),
		calibrateCmd(),
		watchCmd(),
		serveCmd(),
	)
	return root
}

func Execute() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
