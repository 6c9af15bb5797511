package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/westphae/goecompass/sensors"
	"github.com/westphae/goecompass/sensors/lsm303dlhc"
)

const DefaultAppName = "goecompass"
const DefaultConfigName = "config"
const DefaultBusDriver = "periph"
const DefaultBusName = "1"
const DefaultAPIInterface = "0.0.0.0"
const DefaultAPIPort = 8000
const DefaultIntervalMs = 100
const DefaultCalSamples = 500
const DefaultCalMethod = "sphere"

var userHomeDir, _ = os.UserHomeDir()
var DefaultConfig = path.Join(userHomeDir, ".config/"+DefaultAppName+"/"+DefaultConfigName+".yaml")
var DefaultConfigSearchPath0 = path.Join(userHomeDir, ".config", DefaultAppName)

const DefaultConfigSearchPath1 = "/etc/" + DefaultAppName
const DefaultConfigSearchPath2 = "./"

// BusOpt selects the host I2C stack and the data-ready pins.
type BusOpt struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // periph or embd
	Name   string `yaml:"name" mapstructure:"name"`     // periph bus name, or embd bus number
	AccPin string `yaml:"acc_pin" mapstructure:"acc_pin"`
	MagPin string `yaml:"mag_pin" mapstructure:"mag_pin"`
}

type SensorOpt struct {
	AccelAddress int    `yaml:"accel_address" mapstructure:"accel_address"`
	AccelRate    string `yaml:"accel_rate" mapstructure:"accel_rate"`
	AccelScale   string `yaml:"accel_scale" mapstructure:"accel_scale"`
	MagAddress   int    `yaml:"mag_address" mapstructure:"mag_address"`
	MagRate      string `yaml:"mag_rate" mapstructure:"mag_rate"`
	MagGain      string `yaml:"mag_gain" mapstructure:"mag_gain"`
	MagPollLimit int    `yaml:"mag_poll_limit" mapstructure:"mag_poll_limit"`
}

type APIOpt struct {
	Port      int    `yaml:"port" mapstructure:"port"`
	Interface string `yaml:"interface" mapstructure:"interface"`
}

type CalibrationOpt struct {
	Path        string  `yaml:"path" mapstructure:"path"`
	Samples     int     `yaml:"samples" mapstructure:"samples"`
	Method      string  `yaml:"method" mapstructure:"method"` // simple or sphere
	Declination float64 `yaml:"declination" mapstructure:"declination"`
}

type GoECompassOpt struct {
	Bus         BusOpt         `yaml:"bus" mapstructure:"bus"`
	Sensor      SensorOpt      `yaml:"sensor" mapstructure:"sensor"`
	API         APIOpt         `yaml:"api" mapstructure:"api"`
	Calibration CalibrationOpt `yaml:"calibration" mapstructure:"calibration"`
	IntervalMs  int            `yaml:"interval_ms" mapstructure:"interval_ms"`
	Debug       bool           `yaml:"debug" mapstructure:"debug"`
}

type GoECompassDesc struct {
	Opt   GoECompassOpt
	Viper *viper.Viper
}

func NewGoECompassDesc() GoECompassDesc {
	return GoECompassDesc{
		Opt:   NewGoECompassOpt(),
		Viper: nil,
	}
}

func NewGoECompassOpt() GoECompassOpt {
	d := lsm303dlhc.DefaultConfig()
	return GoECompassOpt{
		Bus: BusOpt{
			Driver: DefaultBusDriver,
			Name:   DefaultBusName,
		},
		Sensor: SensorOpt{
			AccelAddress: int(d.AccelAddress),
			AccelRate:    strings.TrimSuffix(d.AccelRate.String(), "Hz"),
			AccelScale:   strings.TrimSuffix(d.AccelScale.String(), "g"),
			MagAddress:   int(d.MagAddress),
			MagRate:      strings.TrimSuffix(d.MagRate.String(), "Hz"),
			MagGain:      strings.TrimSuffix(d.MagGain.String(), "Gs"),
			MagPollLimit: d.MagPollLimit,
		},
		API: APIOpt{
			Port:      DefaultAPIPort,
			Interface: DefaultAPIInterface,
		},
		Calibration: CalibrationOpt{
			Path:    sensors.DefaultCalDataLocation,
			Samples: DefaultCalSamples,
			Method:  DefaultCalMethod,
		},
		IntervalMs: DefaultIntervalMs,
		Debug:      false,
	}
}

func setDefaults(v *viper.Viper, o GoECompassOpt) {
	v.SetDefault("bus.driver", o.Bus.Driver)
	v.SetDefault("bus.name", o.Bus.Name)
	v.SetDefault("bus.acc_pin", o.Bus.AccPin)
	v.SetDefault("bus.mag_pin", o.Bus.MagPin)
	v.SetDefault("sensor.accel_address", o.Sensor.AccelAddress)
	v.SetDefault("sensor.accel_rate", o.Sensor.AccelRate)
	v.SetDefault("sensor.accel_scale", o.Sensor.AccelScale)
	v.SetDefault("sensor.mag_address", o.Sensor.MagAddress)
	v.SetDefault("sensor.mag_rate", o.Sensor.MagRate)
	v.SetDefault("sensor.mag_gain", o.Sensor.MagGain)
	v.SetDefault("sensor.mag_poll_limit", o.Sensor.MagPollLimit)
	v.SetDefault("api.port", o.API.Port)
	v.SetDefault("api.interface", o.API.Interface)
	v.SetDefault("calibration.path", o.Calibration.Path)
	v.SetDefault("calibration.samples", o.Calibration.Samples)
	v.SetDefault("calibration.method", o.Calibration.Method)
	v.SetDefault("calibration.declination", o.Calibration.Declination)
	v.SetDefault("interval_ms", o.IntervalMs)
	v.SetDefault("debug", o.Debug)
}

// Parse loads the options from, in increasing priority: defaults, the config
// file, GOECOMPASS_* environment variables and the command line flags.
func (o *GoECompassDesc) Parse(cmd *cobra.Command) error {
	vipCfg := viper.New()
	setDefaults(vipCfg, NewGoECompassOpt())

	explicit := false
	if configFileCmd, err := cmd.Flags().GetString("config"); err == nil && configFileCmd != "" {
		vipCfg.SetConfigFile(configFileCmd)
		explicit = true
	} else {
		configFileEnv := os.Getenv("GOECOMPASS_CONFIG")
		if configFileEnv != "" {
			vipCfg.SetConfigFile(configFileEnv)
			explicit = true
		} else {
			vipCfg.SetConfigName(DefaultConfigName)
			vipCfg.SetConfigType("yaml")
			vipCfg.AddConfigPath(DefaultConfigSearchPath0)
			vipCfg.AddConfigPath(DefaultConfigSearchPath1)
			vipCfg.AddConfigPath(DefaultConfigSearchPath2)
		}
	}

	vipCfg.SetEnvPrefix(DefaultAppName)
	vipCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vipCfg.AutomaticEnv()

	for key, flag := range map[string]string{
		"api.port":            "port",
		"api.interface":       "interface",
		"bus.driver":          "driver",
		"bus.name":            "bus",
		"interval_ms":         "interval",
		"calibration.path":    "calibration",
		"calibration.samples": "samples",
		"calibration.method":  "method",
		"debug":               "debug",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = vipCfg.BindPFlag(key, f)
		}
	}

	// If a config file is found, read it in.
	if err := vipCfg.ReadInConfig(); err == nil {
		log.Debugln("using config file:", vipCfg.ConfigFileUsed())
	} else {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
		log.Debugln("no config file found, using defaults")
	}

	if err := vipCfg.Unmarshal(&o.Opt); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	o.Viper = vipCfg
	return nil
}

func (o *GoECompassDesc) PostParse() {
	if o.Opt.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// DriverConfig converts the sensor options to a driver configuration.
func (o *GoECompassOpt) DriverConfig() (cfg lsm303dlhc.Config, err error) {
	s := o.Sensor
	if s.AccelAddress < 0 || s.AccelAddress > 0x7F || s.MagAddress < 0 || s.MagAddress > 0x7F {
		return cfg, fmt.Errorf("I2C addresses %#x/%#x out of range", s.AccelAddress, s.MagAddress)
	}
	cfg.AccelAddress = byte(s.AccelAddress)
	cfg.MagAddress = byte(s.MagAddress)
	cfg.MagPollLimit = s.MagPollLimit

	var errs []error
	var e error
	cfg.AccelRate, e = lsm303dlhc.ParseAccelRate(s.AccelRate)
	errs = append(errs, e)
	cfg.AccelScale, e = lsm303dlhc.ParseAccelScale(s.AccelScale)
	errs = append(errs, e)
	cfg.MagRate, e = lsm303dlhc.ParseMagRate(s.MagRate)
	errs = append(errs, e)
	cfg.MagGain, e = lsm303dlhc.ParseMagGain(s.MagGain)
	errs = append(errs, e)
	return cfg, errors.Join(errs...)
}

// DumpOption writes opt as YAML to outputPath, creating its directory.
// An existing file is kept unless overwrite is set.
func DumpOption(opt interface{}, outputPath string, overwrite bool) error {
	buffer, err := yaml.Marshal(opt)
	if err != nil {
		return err
	}

	parentPath := filepath.Dir(outputPath)
	if err := os.MkdirAll(parentPath, 0700); err != nil {
		log.Errorln("cannot create directory", parentPath)
		return err
	}

	if !overwrite {
		if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
			return fmt.Errorf("configuration %s already exists, use --yes to overwrite", outputPath)
		}
	}

	log.Infoln("writing default configuration to", outputPath)
	return os.WriteFile(outputPath, buffer, 0600)
}

// InitCfg prepares config for the application
func InitCfg(cmd *cobra.Command, _ []string) error {
	printFlag, _ := cmd.Flags().GetBool("print")
	outputPath, _ := cmd.Flags().GetString("output")
	overwriteFlag, _ := cmd.Flags().GetBool("yes")

	desc := NewGoECompassDesc()
	err := desc.Parse(cmd)
	if err != nil {
		log.Errorln(err)
		return err
	}

	if printFlag {
		configBuffer, _ := yaml.Marshal(desc.Opt)
		fmt.Fprint(cmd.OutOrStdout(), string(configBuffer))
		return nil
	}
	return DumpOption(desc.Opt, outputPath, overwriteFlag)
}
