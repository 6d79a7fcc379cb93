package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
)

// #region errors
// ErrInvalid is wrapped by every derivation failure.
var ErrInvalid = errors.New("invalid context snapshot")

// DerivationError names the field that could not be classified.
type DerivationError struct {
	Field string
	Value string
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("%s: cannot classify %s (%s)", ErrInvalid, e.Field, e.Value)
}

func (e *DerivationError) Unwrap() error {
	return ErrInvalid
}

func invalid(field, format string, args ...any) error {
	return &DerivationError{Field: field, Value: fmt.Sprintf(format, args...)}
}

// #endregion errors

// #region thresholds
// Pixel-count thresholds. Each class admits up to three times the nominal
// frame area to cover cropped and padded outputs.
const (
	FHDThreshold    = 3 * 1920 * 1080
	UHDThreshold    = 3 * 3840 * 2160
	EightKThreshold = 3 * 7680 * 4320
)

// Target frame-rate thresholds for the contribution test.
const (
	activeFPS        = 5
	activeFPSStandby = 10
)

// #endregion thresholds

// #region position-active
// IsPositionActive is the single contribution test for a sensor position.
// Under throttling any nonzero target rate counts; otherwise the rate must
// reach 5fps, or 10fps when idle standby is enabled.
func IsPositionActive(pos Position, fps int, throttled, standby bool) bool {
	if pos < 0 || pos >= MaxPositions {
		return false
	}
	if throttled {
		return fps != 0
	}
	if standby {
		return fps >= activeFPSStandby
	}
	return fps >= activeFPS
}

// #endregion position-active

// #region build
// Build classifies in against layout. It never panics; a failing step sets
// Err and the snapshot must be treated as a classification failure.
func Build(in Input, layout Layout) Snapshot {
	snap := Snapshot{
		SensorMap: in.SensorMap,
		ActiveMap: in.SensorMap,
		Vendor:    in.Vendor,
	}

	mode, modeErr := classifyMode(in)
	resolution, resolErr := ClassifyResolution(mode, in.RecordWidth, in.RecordHeight, in.SensorWidth, in.SensorHeight)

	if in.DualEngaged {
		for _, pos := range layout.RearPositions() {
			if !IsPositionActive(pos, in.MaxFPS[pos], in.Throttled, in.Standby) {
				snap.ActiveMap &^= pos.Mask()
			}
		}
		if snap.ActiveMap == 0 {
			slog.Warn("snapshot: dual info inconsistent",
				"sensor_map", fmt.Sprintf("0x%x", in.SensorMap),
				"resolution", resolution)
			if resolErr == nil && resolution == ResolutionEightK {
				snap.ActiveMap = in.SensorMap
			}
		}
	}

	rear := snap.ActiveMap & layout.RearMask()
	front := snap.ActiveMap & layout.FrontMask()

	facing, err := classifyFacing(rear, front)
	if err != nil {
		snap.Err = err
		return snap
	}
	snap.Facing = facing

	count, err := classifyCount(facing, rear, front)
	if err != nil {
		snap.Err = err
		return snap
	}
	snap.Count = count

	sensor, err := classifySensor(in, layout, snap.ActiveMap, facing, count)
	if err != nil {
		snap.Err = err
		return snap
	}
	snap.Sensor = sensor
	snap.HighFreq = in.HighFreq && count == CountSingle

	if modeErr != nil {
		snap.Err = modeErr
		return snap
	}
	snap.Mode = mode

	if resolErr != nil {
		snap.Err = resolErr
		return snap
	}
	snap.Resolution = resolution

	fps, err := ClassifyFPS(in.SensorFPS)
	if err != nil {
		snap.Err = err
		return snap
	}
	snap.FPS = fps

	return snap
}

// #endregion build

// #region derivations

func classifyFacing(rear, front uint32) (Facing, error) {
	switch {
	case rear != 0 && front != 0:
		return FacingPIP, nil
	case rear != 0:
		return FacingRear, nil
	case front != 0:
		return FacingFront, nil
	default:
		return "", invalid("facing", "no active sensor")
	}
}

func classifyCount(facing Facing, rear, front uint32) (Count, error) {
	n := bits.OnesCount32(rear)
	switch facing {
	case FacingFront:
		n = bits.OnesCount32(front)
		if n == 1 {
			return CountSingle, nil
		}
	case FacingRear:
		switch n {
		case 1:
			return CountSingle, nil
		case 2:
			return CountDual, nil
		case 3:
			return CountTriple, nil
		}
	case FacingPIP:
		n += bits.OnesCount32(front)
		switch n {
		case 2:
			return CountDual, nil
		case 3:
			return CountTriple, nil
		}
	}
	return "", invalid("count", "%s with %d sensors", facing, n)
}

func classifySensor(in Input, l Layout, active uint32, facing Facing, count Count) (Sensor, error) {
	has := func(p Position) bool { return active&p.Mask() != 0 }
	fastAE := in.Special == SpecialFastAE
	remosaic := in.Special == SpecialRemosaic

	switch facing {
	case FacingRear:
		switch count {
		case CountSingle:
			switch {
			case has(l.Wide):
				if fastAE {
					return SensorWideFastAE, nil
				}
				if remosaic {
					return SensorWideRemosaic, nil
				}
				if in.Vendor == VendorSSM {
					return SensorWideSSM, nil
				}
				return SensorWide, nil
			case has(l.Tele) || has(l.Tele2):
				if fastAE {
					return SensorWideFastAE, nil
				}
				if remosaic {
					return SensorTeleRemosaic, nil
				}
				return SensorTele, nil
			case has(l.UltraWide):
				if fastAE {
					return SensorWideFastAE, nil
				}
				if in.Vendor == VendorSSM {
					return SensorUltraWideSSM, nil
				}
				return SensorUltraWide, nil
			case has(l.Macro):
				if fastAE {
					return SensorWideFastAE, nil
				}
				return SensorMacro, nil
			}
		case CountDual:
			switch {
			case has(l.Wide) && (has(l.Tele) || has(l.Tele2)):
				return SensorWideTele, nil
			case has(l.Wide) && has(l.UltraWide):
				return SensorWideUltraWide, nil
			case has(l.Wide) && has(l.Macro):
				return SensorWideMacro, nil
			}
		case CountTriple:
			return SensorTriple, nil
		}
	case FacingFront:
		switch {
		case fastAE:
			return SensorFrontFastAE, nil
		case in.Secure:
			return SensorFrontSecure, nil
		case in.Vendor == VendorVT:
			return SensorFrontVT, nil
		default:
			return SensorFront, nil
		}
	case FacingPIP:
		if fastAE {
			return SensorWideFastAE, nil
		}
		switch count {
		case CountDual:
			return SensorPIP, nil
		case CountTriple:
			return SensorTriple, nil
		}
	}
	return "", invalid("sensor", "%s %s active=0x%x", facing, count, active)
}

func classifyMode(in Input) (Mode, error) {
	if in.Capture {
		return ModeCapture, nil
	}
	switch in.Common {
	case CommonPhoto:
		return ModePhoto, nil
	case CommonVideo:
		return ModeVideo, nil
	default:
		return "", invalid("mode", "common mode %d", in.Common)
	}
}

// ClassifyResolution buckets a record size. FullSensor applies only in Photo
// mode and only when the size equals the native sensor size.
func ClassifyResolution(mode Mode, width, height, sensorWidth, sensorHeight int) (Resolution, error) {
	pixels := width * height
	sensorPixels := sensorWidth * sensorHeight
	switch {
	case mode == ModePhoto && sensorPixels > 0 && pixels == sensorPixels:
		return ResolutionFullSensor, nil
	case pixels < FHDThreshold:
		return ResolutionFHD, nil
	case pixels < UHDThreshold:
		return ResolutionUHD, nil
	case pixels < EightKThreshold:
		return ResolutionEightK, nil
	default:
		return "", invalid("resolution", "%dx%d", width, height)
	}
}

// ClassifyFPS buckets a sensor frame rate.
func ClassifyFPS(fps int) (FPSClass, error) {
	for _, c := range []FPSClass{FPS24, FPS30, FPS60, FPS120, FPS240, FPS480} {
		if fps <= int(c) {
			return c, nil
		}
	}
	return 0, invalid("fps", "%d", fps)
}

// #endregion derivations
