package lsm303dlhc

import (
	"fmt"
	"strings"
)

// Default I2C addresses.
const (
	AccelAddress = 0x19
	MagAddress   = 0x1E
)

// Accelerometer registers
const (
	RegCtrl1A     = 0x20
	RegCtrl2A     = 0x21
	RegCtrl3A     = 0x22
	RegCtrl4A     = 0x23
	RegCtrl5A     = 0x24
	RegCtrl6A     = 0x25
	RegReferenceA = 0x26
	RegStatusA    = 0x27
	RegOutXLA     = 0x28
	RegOutXHA     = 0x29
	RegOutYLA     = 0x2A
	RegOutYHA     = 0x2B
	RegOutZLA     = 0x2C
	RegOutZHA     = 0x2D
)

// Magnetometer registers. The output block is X, Z, Y, high byte first.
const (
	RegCraM      = 0x00
	RegCrbM      = 0x01
	RegMrM       = 0x02
	RegOutXHM    = 0x03
	RegOutXLM    = 0x04
	RegOutZHM    = 0x05
	RegOutZLM    = 0x06
	RegOutYHM    = 0x07
	RegOutYLM    = 0x08
	RegSrM       = 0x09
	RegIraM      = 0x0A
	RegIrbM      = 0x0B
	RegIrcM      = 0x0C
	RegTempOutHM = 0x31
	RegTempOutLM = 0x32
)

// CTRL_REG1_A bits
const (
	Ctrl1APowerOff = 0x00
	Ctrl1AXEn      = 0x01
	Ctrl1AYEn      = 0x02
	Ctrl1AZEn      = 0x04
	Ctrl1ALowPower = 0x08
	Ctrl1AXYZEn    = Ctrl1AXEn | Ctrl1AYEn | Ctrl1AZEn
)

// CTRL_REG3_A bits: interrupt routing to INT1
const (
	Ctrl3AI1None    = 0x00
	Ctrl3AI1Overrun = 0x02
	Ctrl3AI1WTM     = 0x04
	Ctrl3AI1DRDY2   = 0x08
	Ctrl3AI1DRDY1   = 0x10
	Ctrl3AI1AOI2    = 0x20
	Ctrl3AI1AOI1    = 0x40
	Ctrl3AI1Click   = 0x80
)

// CTRL_REG4_A bits
const (
	Ctrl4AHR  = 0x08
	Ctrl4ABLE = 0x40
	Ctrl4ABDU = 0x80
)

// CTRL_REG5_A bits
const (
	Ctrl5ABoot = 0x80
)

// STATUS_REG_A bits
const (
	StatusAZYXDA = 0x08
	StatusAZYXOR = 0x80
)

// CRA_REG_M bits
const (
	CraMTempEn = 0x80
)

// MR_REG_M modes
const (
	MagModeContinuous = 0x00
	MagModeSingle     = 0x01
	MagModeSleep      = 0x03
)

// SR_REG_M bits
const (
	SrMDRDY = 0x01
	SrMLock = 0x02
)

// Identification registers read back "H43".
const (
	IraMValue = 0x48
	IrbMValue = 0x34
	IrcMValue = 0x33
)

// AccelRate is the ODR field of CTRL_REG1_A.
type AccelRate byte

const (
	AccelRate1Hz          AccelRate = 0x10
	AccelRate10Hz         AccelRate = 0x20
	AccelRate25Hz         AccelRate = 0x30
	AccelRate50Hz         AccelRate = 0x40
	AccelRate100Hz        AccelRate = 0x50
	AccelRate200Hz        AccelRate = 0x60
	AccelRate400Hz        AccelRate = 0x70
	AccelRate1620HzLP     AccelRate = 0x80
	AccelRateN1344HzL5376 AccelRate = 0x90
)

var accelRateNames = map[AccelRate]string{
	AccelRate1Hz:          "1",
	AccelRate10Hz:         "10",
	AccelRate25Hz:         "25",
	AccelRate50Hz:         "50",
	AccelRate100Hz:        "100",
	AccelRate200Hz:        "200",
	AccelRate400Hz:        "400",
	AccelRate1620HzLP:     "1620",
	AccelRateN1344HzL5376: "1344",
}

func (r AccelRate) String() string {
	if s, ok := accelRateNames[r]; ok {
		return s + "Hz"
	}
	return fmt.Sprintf("AccelRate(%#x)", byte(r))
}

// ParseAccelRate accepts the rate in Hz, e.g. "100" or "100Hz".
func ParseAccelRate(s string) (AccelRate, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Hz")
	if s == "5376" {
		return AccelRateN1344HzL5376, nil
	}
	for r, name := range accelRateNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("LSM303DLHC Error: %q is not a valid accelerometer rate", s)
}

// AccelScale is the FS field of CTRL_REG4_A.
type AccelScale byte

const (
	AccelScale2G  AccelScale = 0x00
	AccelScale4G  AccelScale = 0x10
	AccelScale8G  AccelScale = 0x20
	AccelScale16G AccelScale = 0x30
)

// MilliGPerLSB is the high-resolution sensitivity of the scale.
func (s AccelScale) MilliGPerLSB() int32 {
	switch s {
	case AccelScale4G:
		return 2
	case AccelScale8G:
		return 4
	case AccelScale16G:
		return 12
	default:
		return 1
	}
}

func (s AccelScale) String() string {
	switch s {
	case AccelScale2G:
		return "2g"
	case AccelScale4G:
		return "4g"
	case AccelScale8G:
		return "8g"
	case AccelScale16G:
		return "16g"
	}
	return fmt.Sprintf("AccelScale(%#x)", byte(s))
}

// ParseAccelScale accepts the full scale in g, e.g. "4" or "4g".
func ParseAccelScale(s string) (AccelScale, error) {
	switch strings.TrimSuffix(strings.TrimSpace(s), "g") {
	case "2":
		return AccelScale2G, nil
	case "4":
		return AccelScale4G, nil
	case "8":
		return AccelScale8G, nil
	case "16":
		return AccelScale16G, nil
	}
	return 0, fmt.Errorf("LSM303DLHC Error: %q is not a valid accelerometer scale", s)
}

// MagRate is the DO field of CRA_REG_M.
type MagRate byte

const (
	MagRate0_75Hz MagRate = 0x00
	MagRate1_5Hz  MagRate = 0x04
	MagRate3Hz    MagRate = 0x08
	MagRate7_5Hz  MagRate = 0x0C
	MagRate15Hz   MagRate = 0x10
	MagRate30Hz   MagRate = 0x14
	MagRate75Hz   MagRate = 0x18
	MagRate220Hz  MagRate = 0x1C
)

var magRateNames = []string{"0.75", "1.5", "3", "7.5", "15", "30", "75", "220"}

func (r MagRate) String() string {
	if r&0x03 == 0 && int(r>>2) < len(magRateNames) {
		return magRateNames[r>>2] + "Hz"
	}
	return fmt.Sprintf("MagRate(%#x)", byte(r))
}

// ParseMagRate accepts the rate in Hz, e.g. "7.5" or "75Hz".
func ParseMagRate(s string) (MagRate, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Hz")
	for i, name := range magRateNames {
		if name == s {
			return MagRate(i << 2), nil
		}
	}
	return 0, fmt.Errorf("LSM303DLHC Error: %q is not a valid magnetometer rate", s)
}

// MagGain is the GN field of CRB_REG_M.
type MagGain byte

const (
	MagGain1_3 MagGain = 0x20
	MagGain1_9 MagGain = 0x40
	MagGain2_5 MagGain = 0x60
	MagGain4_0 MagGain = 0x80
	MagGain4_7 MagGain = 0xA0
	MagGain5_6 MagGain = 0xC0
	MagGain8_1 MagGain = 0xE0
)

type magGainBand struct {
	name  string
	lsbXY int32 // LSB/gauss, X and Y
	lsbZ  int32 // LSB/gauss, Z
}

var magGainBands = map[MagGain]magGainBand{
	MagGain1_3: {"1.3", 1100, 980},
	MagGain1_9: {"1.9", 855, 760},
	MagGain2_5: {"2.5", 670, 600},
	MagGain4_0: {"4.0", 450, 400},
	MagGain4_7: {"4.7", 400, 355},
	MagGain5_6: {"5.6", 330, 295},
	MagGain8_1: {"8.1", 230, 205},
}

// LSBPerGauss returns the X/Y and Z sensitivities of the gain band.
// An unknown gain falls back to the ±4.7 gauss band.
func (g MagGain) LSBPerGauss() (xy, z int32) {
	b, ok := magGainBands[g]
	if !ok {
		b = magGainBands[MagGain4_7]
	}
	return b.lsbXY, b.lsbZ
}

func (g MagGain) String() string {
	if b, ok := magGainBands[g]; ok {
		return b.name + "Gs"
	}
	return fmt.Sprintf("MagGain(%#x)", byte(g))
}

// ParseMagGain accepts the full scale in gauss, e.g. "4.7" or "4.7Gs".
func ParseMagGain(s string) (MagGain, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Gs")
	if s == "4" {
		s = "4.0"
	}
	for g, b := range magGainBands {
		if b.name == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("LSM303DLHC Error: %q is not a valid magnetometer gain", s)
}
