package snapshot

// #region positions
// Position is a physical sensor slot index in the streaming bitmap.
type Position int

// NoPosition disables a role on platforms that lack the sensor.
const NoPosition Position = -1

// MaxPositions bounds the per-position arrays and the bitmap width.
const MaxPositions = 16

// Layout maps camera roles to physical positions.
type Layout struct {
	Wide      Position `yaml:"wide" json:"wide"`
	Front     Position `yaml:"front" json:"front"`
	Tele      Position `yaml:"tele" json:"tele"`
	Tele2     Position `yaml:"tele2" json:"tele2"`
	UltraWide Position `yaml:"ultrawide" json:"ultrawide"`
	Macro     Position `yaml:"macro" json:"macro"`
}

// DefaultLayout returns the reference board layout. Macro is not fitted.
func DefaultLayout() Layout {
	return Layout{
		Wide:      0,
		Front:     1,
		Tele:      2,
		UltraWide: 4,
		Tele2:     6,
		Macro:     NoPosition,
	}
}

// Mask returns the bitmap bit for p, or 0 for a disabled or out of range role.
func (p Position) Mask() uint32 {
	if p < 0 || p >= MaxPositions {
		return 0
	}
	return 1 << uint(p)
}

// RearMask is the union of every rear role.
func (l Layout) RearMask() uint32 {
	return l.Wide.Mask() | l.Tele.Mask() | l.Tele2.Mask() | l.UltraWide.Mask() | l.Macro.Mask()
}

// FrontMask is the front role bit.
func (l Layout) FrontMask() uint32 {
	return l.Front.Mask()
}

// RearPositions lists the enabled rear positions in wide, tele, tele2,
// ultrawide, macro order.
func (l Layout) RearPositions() []Position {
	var out []Position
	for _, p := range []Position{l.Wide, l.Tele, l.Tele2, l.UltraWide, l.Macro} {
		if p.Mask() != 0 {
			out = append(out, p)
		}
	}
	return out
}

// #endregion positions

// #region classes
// Facing is the camera-facing group.
type Facing string

const (
	FacingRear  Facing = "rear"
	FacingFront Facing = "front"
	FacingPIP   Facing = "pip"
)

// Count is the sensor-count class.
type Count string

const (
	CountSingle Count = "single"
	CountDual   Count = "dual"
	CountTriple Count = "triple"
)

// Sensor is the resolved sensor-role combination, special modes folded in.
type Sensor string

const (
	SensorWide          Sensor = "wide"
	SensorWideFastAE    Sensor = "wide_fastae"
	SensorWideRemosaic  Sensor = "wide_remosaic"
	SensorWideSSM       Sensor = "wide_ssm"
	SensorTele          Sensor = "tele"
	SensorTeleRemosaic  Sensor = "tele_remosaic"
	SensorUltraWide     Sensor = "ultrawide"
	SensorUltraWideSSM  Sensor = "ultrawide_ssm"
	SensorMacro         Sensor = "macro"
	SensorWideTele      Sensor = "wide_tele"
	SensorWideUltraWide Sensor = "wide_ultrawide"
	SensorWideMacro     Sensor = "wide_macro"
	SensorTriple        Sensor = "triple"
	SensorFront         Sensor = "front"
	SensorFrontFastAE   Sensor = "front_fastae"
	SensorFrontSecure   Sensor = "front_secure"
	SensorFrontVT       Sensor = "front_vt"
	SensorPIP           Sensor = "pip"
)

// Mode is the operating mode.
type Mode string

const (
	ModePhoto   Mode = "photo"
	ModeCapture Mode = "capture"
	ModeVideo   Mode = "video"
)

// Resolution is the output-size class.
type Resolution string

const (
	ResolutionFHD        Resolution = "fhd"
	ResolutionUHD        Resolution = "uhd"
	ResolutionEightK     Resolution = "8k"
	ResolutionFullSensor Resolution = "full"
)

// FPSClass is the frame-rate bucket.
type FPSClass int

const (
	FPS24  FPSClass = 24
	FPS30  FPSClass = 30
	FPS60  FPSClass = 60
	FPS120 FPSClass = 120
	FPS240 FPSClass = 240
	FPS480 FPSClass = 480
)

// SpecialMode is the sensor special mode reported by the sensor driver.
type SpecialMode int

const (
	SpecialNone     SpecialMode = 0
	SpecialFastAE   SpecialMode = 1
	SpecialRemosaic SpecialMode = 2
)

// Vendor is the vendor sub-mode carried in the high half of the scenario
// control word.
type Vendor int

const (
	VendorNone        Vendor = 0
	VendorSSM         Vendor = 1
	VendorVideoHDR    Vendor = 2
	VendorVT          Vendor = 3
	VendorSuperSteady Vendor = 4
)

// #endregion classes

// #region input
// Input is the live camera state the builder reads. It is filled by the
// caller from the device and frame metadata.
type Input struct {
	SensorMap   uint32 // positions that completed stream setup
	DualEngaged bool   // dual tracker mode is not None
	MaxFPS      [MaxPositions]int
	Throttled   bool // limited_fps asserted
	Standby     bool // idle-standby feature compiled in
	Capture     bool

	Special      SpecialMode
	SensorFPS    int
	SensorWidth  int
	SensorHeight int
	RecordWidth  int
	RecordHeight int
	Common       int // common mode bits of the scenario control word
	Vendor       Vendor
	Secure       bool
	HighFreq     bool // high-frequency output DMA enabled
}

// #endregion input

// #region snapshot
// Snapshot is the classified tuple a selector consumes. When Err is set the
// remaining fields are partial and must not be used.
type Snapshot struct {
	SensorMap  uint32
	ActiveMap  uint32
	Facing     Facing
	Count      Count
	Sensor     Sensor
	Mode       Mode
	Resolution Resolution
	FPS        FPSClass
	HighFreq   bool
	Vendor     Vendor
	Err        error
}

// Valid reports whether every derivation succeeded.
func (s Snapshot) Valid() bool {
	return s.Err == nil
}

// #endregion snapshot
