package applier

import "github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"

// #region bundle
// captureBundle scenarios raise CSIS/CAM through Max and mark the bundle as
// operating; leaving them later restores through Max again.
var captureBundle = map[catalog.ScenarioID]bool{
	catalog.RearSingleWideCapture:        true,
	catalog.RearSingleTeleCapture:        true,
	catalog.RearDualWideTeleCapture:      true,
	catalog.RearDualWideUltraWideCapture: true,
	catalog.FrontSingleCapture:           true,
}

// previewBundle scenarios always step CSIS/CAM through Max.
var previewBundle = map[catalog.ScenarioID]bool{
	catalog.RearSingleWidePhoto:             true,
	catalog.RearSingleTelePhoto:             true,
	catalog.RearSingleUltraWidePhoto:        true,
	catalog.RearDualWideTelePhoto:           true,
	catalog.RearDualWideUltraWidePhoto:      true,
	catalog.RearSingleWideVideoFHD30:        true,
	catalog.RearSingleWideVideoUHD30:        true,
	catalog.RearSingleTeleVideoFHD30:        true,
	catalog.RearSingleTeleVideoUHD30:        true,
	catalog.RearSingleUltraWideVideoFHD30:   true,
	catalog.RearSingleUltraWideVideoUHD30:   true,
	catalog.RearDualWideTeleVideoFHD30:      true,
	catalog.RearDualWideTeleVideoUHD30:      true,
	catalog.RearDualWideUltraWideVideoFHD30: true,
	catalog.RearDualWideUltraWideVideoUHD30: true,
	catalog.RearSingleWideVideoFHD60:        true,
	catalog.RearSingleWideVideoUHD60:        true,
	catalog.RearSingleTeleVideoFHD60:        true,
	catalog.RearSingleTeleVideoUHD60:        true,
	catalog.RearDualWideTeleVideoFHD60:      true,
	catalog.RearDualWideTeleVideoUHD60:      true,
	catalog.RearDualWideUltraWideVideoFHD60: true,
	catalog.RearDualWideUltraWideVideoUHD60: true,
	catalog.PIPDualPhoto:                    true,
	catalog.PIPDualVideoFHD30:               true,
	catalog.TriplePhoto:                     true,
	catalog.TripleVideoFHD30:                true,
	catalog.TripleVideoUHD30:                true,
	catalog.TripleVideoFHD60:                true,
	catalog.TripleVideoUHD60:                true,
	catalog.FrontSingleVideoFHD30:           true,
	catalog.FrontSingleVideoUHD30:           true,
	catalog.FrontSingleVideoFHD60:           true,
	catalog.FrontSingleVideoUHD60:           true,
}

// bundleStep is one write of the CSIS/CAM sequence.
type bundleStep struct {
	csis     bool
	scenario catalog.ScenarioID
}

// bundleSequence decides whether id needs the two-phase CSIS/CAM write and
// returns the new operating flag. The sequence always raises both to Max
// before settling CAM then CSIS on the target, so CSIS never drops below
// the pipeline it feeds.
func bundleSequence(id catalog.ScenarioID, operating bool) ([]bundleStep, bool) {
	need := false
	switch {
	case captureBundle[id]:
		need = true
		operating = true
	case previewBundle[id]:
		need = true
	case operating:
		need = true
		operating = false
	}
	if !need {
		return nil, operating
	}
	return []bundleStep{
		{csis: true, scenario: catalog.Max},
		{csis: false, scenario: catalog.Max},
		{csis: false, scenario: id},
		{csis: true, scenario: id},
	}, operating
}

// #endregion bundle
