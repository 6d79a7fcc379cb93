package catalog

// #region scenario-id
// ScenarioID identifies a DVFS scenario. Values are dense and ordered; the
// order is part of the platform table layout and must not change.
type ScenarioID int

// Unset marks a slot that holds no scenario.
const Unset ScenarioID = -1

const (
	Default ScenarioID = iota

	// rear single wide
	RearSingleWidePhoto
	RearSingleWidePhotoFull
	RearSingleWideCapture
	RearSingleWideVideoFHD30
	RearSingleWideVideoFHD60
	RearSingleWideVideoFHD60HF
	RearSingleWideVideoFHD60SuperSteady
	RearSingleWideVideoFHD60HFSuperSteady
	RearSingleWideVideoFHD120
	RearSingleWideVideoFHD240
	RearSingleWideVideoFHD480
	RearSingleWideVideoUHD30
	RearSingleWideVideoUHD60
	RearSingleWideVideoUHD60HF
	RearSingleWideVideoUHD120
	RearSingleWideVideo8K24
	RearSingleWideVideo8K24HF
	RearSingleWideVideo8K30
	RearSingleWideVideo8K30HF
	RearSingleWideRemosaicPhoto
	RearSingleWideRemosaicCapture
	RearSingleWideFastAE
	RearSingleWideVideoHDR
	RearSingleWideSSM
	RearSingleWideVT

	// rear single tele
	RearSingleTelePhoto
	RearSingleTelePhotoFull
	RearSingleTeleCapture
	RearSingleTeleVideoFHD30
	RearSingleTeleVideoFHD60
	RearSingleTeleVideoUHD30
	RearSingleTeleVideoUHD60
	RearSingleTeleVideo8K24
	RearSingleTeleVideo8K24HF
	RearSingleTeleVideo8K30
	RearSingleTeleVideo8K30HF
	RearSingleTeleVideo8KThermal
	RearSingleTeleRemosaicPhoto
	RearSingleTeleRemosaicCapture

	// rear single ultrawide
	RearSingleUltraWidePhoto
	RearSingleUltraWidePhotoFull
	RearSingleUltraWideCapture
	RearSingleUltraWideVideoFHD30
	RearSingleUltraWideVideoFHD30SuperSteady
	RearSingleUltraWideVideoFHD30HFSuperSteady
	RearSingleUltraWideVideoFHD60
	RearSingleUltraWideVideoFHD60SuperSteady
	RearSingleUltraWideVideoFHD60HFSuperSteady
	RearSingleUltraWideVideoFHD120
	RearSingleUltraWideVideoFHD480
	RearSingleUltraWideVideoUHD30
	RearSingleUltraWideVideoUHD60
	RearSingleUltraWideSSM

	// rear single macro
	RearSingleMacroPhoto
	RearSingleMacroPhotoFull
	RearSingleMacroCapture
	RearSingleMacroVideoFHD30

	// rear dual wide + tele
	RearDualWideTelePhoto
	RearDualWideTeleCapture
	RearDualWideTeleVideoFHD30
	RearDualWideTeleVideoUHD30
	RearDualWideTeleVideoFHD60
	RearDualWideTeleVideoUHD60

	// rear dual wide + ultrawide
	RearDualWideUltraWidePhoto
	RearDualWideUltraWideCapture
	RearDualWideUltraWideVideoFHD30
	RearDualWideUltraWideVideoUHD30
	RearDualWideUltraWideVideoFHD60
	RearDualWideUltraWideVideoUHD60

	// rear dual wide + macro
	RearDualWideMacroPhoto
	RearDualWideMacroCapture
	RearDualWideMacroVideoFHD30

	// front single
	FrontSinglePhoto
	FrontSinglePhotoFull
	FrontSingleCapture
	FrontSingleVideoFHD30
	FrontSingleVideoFHD60
	FrontSingleVideoFHD120
	FrontSingleVideoUHD30
	FrontSingleVideoUHD60
	FrontSingleVideoUHD120
	FrontSingleFastAE
	FrontSingleSecure
	FrontSingleVT

	// picture in picture
	PIPDualPhoto
	PIPDualCapture
	PIPDualVideoFHD30

	// triple
	TriplePhoto
	TripleVideoFHD30
	TripleVideoUHD30
	TripleVideoFHD60
	TripleVideoUHD60
	TripleCapture

	// external sensor path
	ExtRearSingle
	ExtRearDual
	ExtFront
	ExtFrontSecure

	// Max is the highest-floor scenario, used as the safe fallback and as the
	// bump target for coupled resources.
	Max

	// End is the number of scenarios including Max.
	End
)

// Valid reports whether id names a real scenario (Default through Max).
func (id ScenarioID) Valid() bool {
	return id >= Default && id < End
}

// #endregion scenario-id

// #region category
// Category names the selector slot a scenario was resolved for.
type Category string

const (
	CategoryStatic   Category = "static"
	CategoryDynamic  Category = "dynamic"
	CategoryExternal Category = "external"
)

// #endregion category

// #region descriptor
// Descriptor is the read-only catalog entry for one scenario.
type Descriptor struct {
	ID    ScenarioID
	Key   string // platform table key, e.g. "rear_single_wide_photo_"
	Ticks int    // frames a dynamic selection is held; -1 means no hold
}

// TickConfig controls the hold length of capture scenarios.
type TickConfig struct {
	KeepFrameTickDefault int
}

// DefaultTickConfig returns the tick settings used when the platform file
// does not override them.
func DefaultTickConfig() TickConfig {
	return TickConfig{KeepFrameTickDefault: 5}
}

// CaptureTick is the hold length of single-sensor capture scenarios.
func (c TickConfig) CaptureTick() int {
	return c.KeepFrameTickDefault + 3
}

// DualCaptureTick is the hold length of dual-sensor capture scenarios.
func (c TickConfig) DualCaptureTick() int {
	return 2 * c.CaptureTick()
}

// #endregion descriptor
