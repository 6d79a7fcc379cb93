package selector

import (
	c "github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	s "github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
)

// #region classify
// Classify walks the decision tree for a snapshot: facing, sensor count,
// sensor combination, then mode, resolution, frame rate and the high
// frequency flag. The case order encodes precedence.
func Classify(snap s.Snapshot) (c.ScenarioID, error) {
	if !snap.Valid() {
		return c.Unset, miss("snapshot", snap)
	}

	switch snap.Facing {
	case s.FacingRear:
		switch snap.Count {
		case s.CountSingle:
			switch snap.Sensor {
			case s.SensorWide:
				return rearSingleWide(snap)
			case s.SensorWideFastAE:
				return c.RearSingleWideFastAE, nil
			case s.SensorWideRemosaic:
				return remosaic(snap, c.RearSingleWideRemosaicPhoto, c.RearSingleWideRemosaicCapture)
			case s.SensorWideSSM:
				return c.RearSingleWideSSM, nil
			case s.SensorTele:
				return rearSingleTele(snap)
			case s.SensorTeleRemosaic:
				return remosaic(snap, c.RearSingleTeleRemosaicPhoto, c.RearSingleTeleRemosaicCapture)
			case s.SensorUltraWide:
				return rearSingleUltraWide(snap)
			case s.SensorUltraWideSSM:
				return c.RearSingleUltraWideSSM, nil
			case s.SensorMacro:
				return rearSingleMacro(snap)
			}
		case s.CountDual:
			switch snap.Sensor {
			case s.SensorWideTele:
				return rearDual(snap, dualWideTele)
			case s.SensorWideUltraWide:
				return rearDual(snap, dualWideUltraWide)
			case s.SensorWideMacro:
				return rearDualWideMacro(snap)
			}
		case s.CountTriple:
			return triple(snap)
		}
	case s.FacingFront:
		if snap.Count == s.CountSingle {
			switch snap.Sensor {
			case s.SensorFront:
				return frontSingle(snap)
			case s.SensorFrontFastAE:
				return c.FrontSingleFastAE, nil
			case s.SensorFrontSecure:
				return c.FrontSingleSecure, nil
			case s.SensorFrontVT:
				return c.FrontSingleVT, nil
			}
		}
	case s.FacingPIP:
		if snap.Sensor == s.SensorWideFastAE {
			return c.RearSingleWideFastAE, nil
		}
		switch snap.Count {
		case s.CountDual:
			return pipDual(snap)
		case s.CountTriple:
			return triple(snap)
		}
	}
	return c.Unset, miss("topology", snap)
}

// ClassifyExternal resolves the auxiliary sensor path. Only the topology
// stages of the snapshot are consulted.
func ClassifyExternal(snap s.Snapshot) (c.ScenarioID, error) {
	if snap.Sensor == "" {
		return c.Unset, miss("external snapshot", snap)
	}
	switch snap.Facing {
	case s.FacingRear:
		switch snap.Count {
		case s.CountSingle:
			return c.ExtRearSingle, nil
		case s.CountDual:
			return c.ExtRearDual, nil
		}
	case s.FacingFront:
		if snap.Count == s.CountSingle {
			switch snap.Sensor {
			case s.SensorFront, s.SensorFrontSecure:
				return c.ExtFront, nil
			}
		}
	}
	return c.Unset, miss("external topology", snap)
}

// #endregion classify

// #region mode-split
// byMode resolves the Photo and Capture arms shared by every tree and
// defers Video to the caller. full is used when the output matches the
// native sensor size; pass c.Unset for trees without a full variant.
func byMode(snap s.Snapshot, photo, full, capture c.ScenarioID, video func() (c.ScenarioID, error)) (c.ScenarioID, error) {
	switch snap.Mode {
	case s.ModePhoto:
		if full != c.Unset && snap.Resolution == s.ResolutionFullSensor {
			return full, nil
		}
		return photo, nil
	case s.ModeCapture:
		return capture, nil
	case s.ModeVideo:
		return video()
	}
	return c.Unset, miss("mode", snap)
}

func remosaic(snap s.Snapshot, photo, capture c.ScenarioID) (c.ScenarioID, error) {
	switch snap.Mode {
	case s.ModePhoto:
		return photo, nil
	case s.ModeCapture:
		return capture, nil
	}
	return c.Unset, miss("remosaic mode", snap)
}

// #endregion mode-split

// #region rear-single

func rearSingleWide(snap s.Snapshot) (c.ScenarioID, error) {
	return byMode(snap, c.RearSingleWidePhoto, c.RearSingleWidePhotoFull, c.RearSingleWideCapture, func() (c.ScenarioID, error) {
		superSteady := snap.Vendor == s.VendorSuperSteady
		switch snap.Resolution {
		case s.ResolutionFHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				if snap.Vendor == s.VendorVideoHDR {
					return c.RearSingleWideVideoHDR, nil
				}
				return c.RearSingleWideVideoFHD30, nil
			case s.FPS60:
				switch {
				case snap.HighFreq && superSteady:
					return c.RearSingleWideVideoFHD60HFSuperSteady, nil
				case snap.HighFreq:
					return c.RearSingleWideVideoFHD60HF, nil
				case superSteady:
					return c.RearSingleWideVideoFHD60SuperSteady, nil
				default:
					return c.RearSingleWideVideoFHD60, nil
				}
			case s.FPS120:
				return c.RearSingleWideVideoFHD120, nil
			case s.FPS240:
				return c.RearSingleWideVideoFHD240, nil
			case s.FPS480:
				return c.RearSingleWideVideoFHD480, nil
			}
		case s.ResolutionUHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return c.RearSingleWideVideoUHD30, nil
			case s.FPS60:
				if snap.HighFreq {
					return c.RearSingleWideVideoUHD60HF, nil
				}
				return c.RearSingleWideVideoUHD60, nil
			case s.FPS120:
				return c.RearSingleWideVideoUHD120, nil
			}
		case s.ResolutionEightK:
			switch snap.FPS {
			case s.FPS24:
				return pickHF(snap, c.RearSingleWideVideo8K24, c.RearSingleWideVideo8K24HF), nil
			case s.FPS30:
				return pickHF(snap, c.RearSingleWideVideo8K30, c.RearSingleWideVideo8K30HF), nil
			}
		}
		return c.Unset, miss("rear single wide video", snap)
	})
}

func rearSingleTele(snap s.Snapshot) (c.ScenarioID, error) {
	return byMode(snap, c.RearSingleTelePhoto, c.RearSingleTelePhotoFull, c.RearSingleTeleCapture, func() (c.ScenarioID, error) {
		switch snap.Resolution {
		case s.ResolutionFHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return c.RearSingleTeleVideoFHD30, nil
			case s.FPS60:
				return c.RearSingleTeleVideoFHD60, nil
			}
		case s.ResolutionUHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return c.RearSingleTeleVideoUHD30, nil
			case s.FPS60:
				return c.RearSingleTeleVideoUHD60, nil
			}
		case s.ResolutionEightK:
			switch snap.FPS {
			case s.FPS24:
				return pickHF(snap, c.RearSingleTeleVideo8K24, c.RearSingleTeleVideo8K24HF), nil
			case s.FPS30:
				return pickHF(snap, c.RearSingleTeleVideo8K30, c.RearSingleTeleVideo8K30HF), nil
			}
		}
		return c.Unset, miss("rear single tele video", snap)
	})
}

func rearSingleUltraWide(snap s.Snapshot) (c.ScenarioID, error) {
	return byMode(snap, c.RearSingleUltraWidePhoto, c.RearSingleUltraWidePhotoFull, c.RearSingleUltraWideCapture, func() (c.ScenarioID, error) {
		switch snap.Resolution {
		case s.ResolutionFHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return c.RearSingleUltraWideVideoFHD30, nil
			case s.FPS60:
				if snap.Vendor == s.VendorSuperSteady {
					return c.RearSingleUltraWideVideoFHD60SuperSteady, nil
				}
				return c.RearSingleUltraWideVideoFHD60, nil
			case s.FPS120:
				return c.RearSingleUltraWideVideoFHD120, nil
			case s.FPS480:
				return c.RearSingleUltraWideVideoFHD480, nil
			}
		case s.ResolutionUHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return c.RearSingleUltraWideVideoUHD30, nil
			case s.FPS60:
				return c.RearSingleUltraWideVideoUHD60, nil
			}
		}
		return c.Unset, miss("rear single ultrawide video", snap)
	})
}

func rearSingleMacro(snap s.Snapshot) (c.ScenarioID, error) {
	return byMode(snap, c.RearSingleMacroPhoto, c.RearSingleMacroPhotoFull, c.RearSingleMacroCapture, func() (c.ScenarioID, error) {
		if snap.Resolution == s.ResolutionFHD {
			return c.RearSingleMacroVideoFHD30, nil
		}
		return c.Unset, miss("rear single macro video", snap)
	})
}

func pickHF(snap s.Snapshot, plain, hf c.ScenarioID) c.ScenarioID {
	if snap.HighFreq {
		return hf
	}
	return plain
}

// #endregion rear-single

// #region rear-dual
// dualSet lists the six scenarios of a fusion pair.
type dualSet struct {
	name                       string
	photo, capture             c.ScenarioID
	fhd30, fhd60, uhd30, uhd60 c.ScenarioID
}

var dualWideTele = dualSet{
	name:    "rear dual wide tele",
	photo:   c.RearDualWideTelePhoto,
	capture: c.RearDualWideTeleCapture,
	fhd30:   c.RearDualWideTeleVideoFHD30,
	fhd60:   c.RearDualWideTeleVideoFHD60,
	uhd30:   c.RearDualWideTeleVideoUHD30,
	uhd60:   c.RearDualWideTeleVideoUHD60,
}

var dualWideUltraWide = dualSet{
	name:    "rear dual wide ultrawide",
	photo:   c.RearDualWideUltraWidePhoto,
	capture: c.RearDualWideUltraWideCapture,
	fhd30:   c.RearDualWideUltraWideVideoFHD30,
	fhd60:   c.RearDualWideUltraWideVideoFHD60,
	uhd30:   c.RearDualWideUltraWideVideoUHD30,
	uhd60:   c.RearDualWideUltraWideVideoUHD60,
}

func rearDual(snap s.Snapshot, set dualSet) (c.ScenarioID, error) {
	return byMode(snap, set.photo, c.Unset, set.capture, func() (c.ScenarioID, error) {
		switch snap.Resolution {
		case s.ResolutionFHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return set.fhd30, nil
			case s.FPS60:
				return set.fhd60, nil
			}
		case s.ResolutionUHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return set.uhd30, nil
			case s.FPS60:
				return set.uhd60, nil
			}
		}
		return c.Unset, miss(set.name+" video", snap)
	})
}

func rearDualWideMacro(snap s.Snapshot) (c.ScenarioID, error) {
	return byMode(snap, c.RearDualWideMacroPhoto, c.Unset, c.RearDualWideMacroCapture, func() (c.ScenarioID, error) {
		if snap.Resolution == s.ResolutionFHD {
			return c.RearDualWideMacroVideoFHD30, nil
		}
		return c.Unset, miss("rear dual wide macro video", snap)
	})
}

// #endregion rear-dual

// #region front-pip-triple

func frontSingle(snap s.Snapshot) (c.ScenarioID, error) {
	return byMode(snap, c.FrontSinglePhoto, c.FrontSinglePhotoFull, c.FrontSingleCapture, func() (c.ScenarioID, error) {
		switch snap.Resolution {
		case s.ResolutionFHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return c.FrontSingleVideoFHD30, nil
			case s.FPS60:
				return c.FrontSingleVideoFHD60, nil
			case s.FPS120:
				return c.FrontSingleVideoFHD120, nil
			}
		case s.ResolutionUHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return c.FrontSingleVideoUHD30, nil
			case s.FPS60:
				return c.FrontSingleVideoUHD60, nil
			case s.FPS120:
				return c.FrontSingleVideoUHD120, nil
			}
		}
		return c.Unset, miss("front single video", snap)
	})
}

func pipDual(snap s.Snapshot) (c.ScenarioID, error) {
	return byMode(snap, c.PIPDualPhoto, c.Unset, c.PIPDualCapture, func() (c.ScenarioID, error) {
		if snap.Resolution == s.ResolutionFHD {
			return c.PIPDualVideoFHD30, nil
		}
		return c.Unset, miss("pip dual video", snap)
	})
}

func triple(snap s.Snapshot) (c.ScenarioID, error) {
	return byMode(snap, c.TriplePhoto, c.Unset, c.TripleCapture, func() (c.ScenarioID, error) {
		switch snap.Resolution {
		case s.ResolutionFHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return c.TripleVideoFHD30, nil
			case s.FPS60:
				return c.TripleVideoFHD60, nil
			}
		case s.ResolutionUHD:
			switch snap.FPS {
			case s.FPS24, s.FPS30:
				return c.TripleVideoUHD30, nil
			case s.FPS60:
				return c.TripleVideoUHD60, nil
			}
		}
		return c.Unset, miss("triple video", snap)
	})
}

// #endregion front-pip-triple
