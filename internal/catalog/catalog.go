package catalog

import (
	"fmt"
	"strings"
)

// #region keys
var scenarioKeys = [End]string{
	Default: "default_",

	RearSingleWidePhoto:                   "rear_single_wide_photo_",
	RearSingleWidePhotoFull:               "rear_single_wide_photo_full_",
	RearSingleWideCapture:                 "rear_single_wide_capture_",
	RearSingleWideVideoFHD30:              "rear_single_wide_video_fhd30_",
	RearSingleWideVideoFHD60:              "rear_single_wide_video_fhd60_",
	RearSingleWideVideoFHD60HF:            "rear_single_wide_video_fhd60_hf_",
	RearSingleWideVideoFHD60SuperSteady:   "rear_single_wide_video_fhd60_supersteady_",
	RearSingleWideVideoFHD60HFSuperSteady: "rear_single_wide_video_fhd60_hf_supersteady_",
	RearSingleWideVideoFHD120:             "rear_single_wide_video_fhd120_",
	RearSingleWideVideoFHD240:             "rear_single_wide_video_fhd240_",
	RearSingleWideVideoFHD480:             "rear_single_wide_video_fhd480_",
	RearSingleWideVideoUHD30:              "rear_single_wide_video_uhd30_",
	RearSingleWideVideoUHD60:              "rear_single_wide_video_uhd60_",
	RearSingleWideVideoUHD60HF:            "rear_single_wide_video_uhd60_hf_",
	RearSingleWideVideoUHD120:             "rear_single_wide_video_uhd120_",
	RearSingleWideVideo8K24:               "rear_single_wide_video_8k24_",
	RearSingleWideVideo8K24HF:             "rear_single_wide_video_8k24_hf_",
	RearSingleWideVideo8K30:               "rear_single_wide_video_8k30_",
	RearSingleWideVideo8K30HF:             "rear_single_wide_video_8k30_hf_",
	RearSingleWideRemosaicPhoto:           "rear_single_wide_remosaic_photo_",
	RearSingleWideRemosaicCapture:         "rear_single_wide_remosaic_capture_",
	RearSingleWideFastAE:                  "rear_single_wide_fastae_",
	RearSingleWideVideoHDR:                "rear_single_wide_videohdr_",
	RearSingleWideSSM:                     "rear_single_wide_ssm_",
	RearSingleWideVT:                      "rear_single_wide_vt_",

	RearSingleTelePhoto:           "rear_single_tele_photo_",
	RearSingleTelePhotoFull:       "rear_single_tele_photo_full_",
	RearSingleTeleCapture:         "rear_single_tele_capture_",
	RearSingleTeleVideoFHD30:      "rear_single_tele_video_fhd30_",
	RearSingleTeleVideoFHD60:      "rear_single_tele_video_fhd60_",
	RearSingleTeleVideoUHD30:      "rear_single_tele_video_uhd30_",
	RearSingleTeleVideoUHD60:      "rear_single_tele_video_uhd60_",
	RearSingleTeleVideo8K24:       "rear_single_tele_video_8k24_",
	RearSingleTeleVideo8K24HF:     "rear_single_tele_video_8k24_hf_",
	RearSingleTeleVideo8K30:       "rear_single_tele_video_8k30_",
	RearSingleTeleVideo8K30HF:     "rear_single_tele_video_8k30_hf_",
	RearSingleTeleVideo8KThermal:  "rear_single_tele_video_8k_thermal_",
	RearSingleTeleRemosaicPhoto:   "rear_single_tele_remosaic_photo_",
	RearSingleTeleRemosaicCapture: "rear_single_tele_remosaic_capture_",

	RearSingleUltraWidePhoto:                   "rear_single_ultrawide_photo_",
	RearSingleUltraWidePhotoFull:               "rear_single_ultrawide_photo_full_",
	RearSingleUltraWideCapture:                 "rear_single_ultrawide_capture_",
	RearSingleUltraWideVideoFHD30:              "rear_single_ultrawide_video_fhd30_",
	RearSingleUltraWideVideoFHD30SuperSteady:   "rear_single_ultrawide_video_fhd30_supersteady_",
	RearSingleUltraWideVideoFHD30HFSuperSteady: "rear_single_ultrawide_video_fhd30_hf_supersteady_",
	RearSingleUltraWideVideoFHD60:              "rear_single_ultrawide_video_fhd60_",
	RearSingleUltraWideVideoFHD60SuperSteady:   "rear_single_ultrawide_video_fhd60_supersteady_",
	RearSingleUltraWideVideoFHD60HFSuperSteady: "rear_single_ultrawide_video_fhd60_hf_supersteady_",
	RearSingleUltraWideVideoFHD120:             "rear_single_ultrawide_video_fhd120_",
	RearSingleUltraWideVideoFHD480:             "rear_single_ultrawide_video_fhd480_",
	RearSingleUltraWideVideoUHD30:              "rear_single_ultrawide_video_uhd30_",
	RearSingleUltraWideVideoUHD60:              "rear_single_ultrawide_video_uhd60_",
	RearSingleUltraWideSSM:                     "rear_single_ultrawide_ssm_",

	RearSingleMacroPhoto:      "rear_single_macro_photo_",
	RearSingleMacroPhotoFull:  "rear_single_macro_photo_full_",
	RearSingleMacroCapture:    "rear_single_macro_capture_",
	RearSingleMacroVideoFHD30: "rear_single_macro_video_fhd30_",

	RearDualWideTelePhoto:      "rear_dual_wide_tele_photo_",
	RearDualWideTeleCapture:    "rear_dual_wide_tele_capture_",
	RearDualWideTeleVideoFHD30: "rear_dual_wide_tele_video_fhd30_",
	RearDualWideTeleVideoUHD30: "rear_dual_wide_tele_video_uhd30_",
	RearDualWideTeleVideoFHD60: "rear_dual_wide_tele_video_fhd60_",
	RearDualWideTeleVideoUHD60: "rear_dual_wide_tele_video_uhd60_",

	RearDualWideUltraWidePhoto:      "rear_dual_wide_ultrawide_photo_",
	RearDualWideUltraWideCapture:    "rear_dual_wide_ultrawide_capture_",
	RearDualWideUltraWideVideoFHD30: "rear_dual_wide_ultrawide_video_fhd30_",
	RearDualWideUltraWideVideoUHD30: "rear_dual_wide_ultrawide_video_uhd30_",
	RearDualWideUltraWideVideoFHD60: "rear_dual_wide_ultrawide_video_fhd60_",
	RearDualWideUltraWideVideoUHD60: "rear_dual_wide_ultrawide_video_uhd60_",

	RearDualWideMacroPhoto:      "rear_dual_wide_macro_photo_",
	RearDualWideMacroCapture:    "rear_dual_wide_macro_capture_",
	RearDualWideMacroVideoFHD30: "rear_dual_wide_macro_video_fhd30_",

	FrontSinglePhoto:       "front_single_photo_",
	FrontSinglePhotoFull:   "front_single_photo_full_",
	FrontSingleCapture:     "front_single_capture_",
	FrontSingleVideoFHD30:  "front_single_video_fhd30_",
	FrontSingleVideoFHD60:  "front_single_video_fhd60_",
	FrontSingleVideoFHD120: "front_single_video_fhd120_",
	FrontSingleVideoUHD30:  "front_single_video_uhd30_",
	FrontSingleVideoUHD60:  "front_single_video_uhd60_",
	FrontSingleVideoUHD120: "front_single_video_uhd120_",
	FrontSingleFastAE:      "front_single_fastae_",
	FrontSingleSecure:      "front_single_secure_",
	FrontSingleVT:          "front_single_vt_",

	PIPDualPhoto:      "pip_dual_photo_",
	PIPDualCapture:    "pip_dual_capture_",
	PIPDualVideoFHD30: "pip_dual_video_fhd30_",

	TriplePhoto:      "triple_photo_",
	TripleVideoFHD30: "triple_video_fhd30_",
	TripleVideoUHD30: "triple_video_uhd30_",
	TripleVideoFHD60: "triple_video_fhd60_",
	TripleVideoUHD60: "triple_video_uhd60_",
	TripleCapture:    "triple_capture_",

	ExtRearSingle:  "ext_rear_single_",
	ExtRearDual:    "ext_rear_dual_",
	ExtFront:       "ext_front_",
	ExtFrontSecure: "ext_front_secure_",

	Max: "max_",
}

// #endregion keys

// #region tick-classes
type tickClass int

const (
	tickNone tickClass = iota
	tickCapture
	tickDualCapture
)

var captureTicks = map[ScenarioID]tickClass{
	RearSingleWideCapture:         tickCapture,
	RearSingleWideRemosaicCapture: tickCapture,
	RearSingleTeleCapture:         tickCapture,
	RearSingleTeleRemosaicCapture: tickCapture,
	RearSingleUltraWideCapture:    tickCapture,
	RearSingleMacroCapture:        tickCapture,
	RearDualWideTeleCapture:       tickDualCapture,
	RearDualWideUltraWideCapture:  tickDualCapture,
	RearDualWideMacroCapture:      tickDualCapture,
	FrontSingleCapture:            tickCapture,
	PIPDualCapture:                tickCapture,
	TripleCapture:                 tickCapture,
}

// #endregion tick-classes

// #region catalog-struct
// Catalog is the ordered, read-only scenario table. Build it once and share
// the pointer; nothing mutates it after New returns.
type Catalog struct {
	descs []Descriptor
	byKey map[string]ScenarioID
	ticks TickConfig
}

// #endregion catalog-struct

// #region constructor
// New builds the catalog with the given capture hold lengths.
func New(cfg TickConfig) *Catalog {
	c := &Catalog{
		descs: make([]Descriptor, End),
		byKey: make(map[string]ScenarioID, End),
		ticks: cfg,
	}
	for id := Default; id < End; id++ {
		d := Descriptor{ID: id, Key: scenarioKeys[id], Ticks: -1}
		switch captureTicks[id] {
		case tickCapture:
			d.Ticks = cfg.CaptureTick()
		case tickDualCapture:
			d.Ticks = cfg.DualCaptureTick()
		}
		c.descs[id] = d
		c.byKey[d.Key] = id
	}
	return c
}

// #endregion constructor

// #region accessors

// Count returns the number of scenarios, Max included.
func (c *Catalog) Count() int {
	return len(c.descs)
}

// TickConfig returns the hold settings the catalog was built with.
func (c *Catalog) TickConfig() TickConfig {
	return c.ticks
}

// Descriptor returns the entry for id.
func (c *Catalog) Descriptor(id ScenarioID) (Descriptor, bool) {
	if !id.Valid() {
		return Descriptor{}, false
	}
	return c.descs[id], true
}

// Ticks returns the hold length for id, or -1 for unknown ids.
func (c *Catalog) Ticks(id ScenarioID) int {
	d, ok := c.Descriptor(id)
	if !ok {
		return -1
	}
	return d.Ticks
}

// Name returns the display name: the key upper-cased without its trailing
// underscore.
func (c *Catalog) Name(id ScenarioID) string {
	d, ok := c.Descriptor(id)
	if !ok {
		return "UNKNOWN"
	}
	return strings.ToUpper(strings.TrimSuffix(d.Key, "_"))
}

// Label formats id for diagnostics, prefixed with the slot category.
func (c *Catalog) Label(id ScenarioID, category Category) string {
	return fmt.Sprintf("%s:%s", category, c.Name(id))
}

// Lookup resolves a platform table key. The trailing underscore is optional
// and case is ignored.
func (c *Catalog) Lookup(key string) (ScenarioID, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if !strings.HasSuffix(k, "_") {
		k += "_"
	}
	id, ok := c.byKey[k]
	return id, ok
}

// All returns a copy of every descriptor in id order.
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.descs))
	copy(out, c.descs)
	return out
}

// #endregion accessors
