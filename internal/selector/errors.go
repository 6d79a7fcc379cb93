package selector

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
)

// #region errors
var (
	// ErrClassification is wrapped by every decision-tree miss.
	ErrClassification = errors.New("scenario classification failed")

	// ErrTableNotSelected is returned until the engine has picked a floor table.
	ErrTableNotSelected = errors.New("dvfs table is not selected")
)

// ClassificationError records where in the tree a context fell through.
type ClassificationError struct {
	Stage      string
	Facing     snapshot.Facing
	Count      snapshot.Count
	Sensor     snapshot.Sensor
	Mode       snapshot.Mode
	Resolution snapshot.Resolution
	FPS        snapshot.FPSClass
	Err        error // snapshot derivation failure, if any
}

func (e *ClassificationError) Error() string {
	msg := fmt.Sprintf("%s: %s not supported (face=%s num=%s sensor=%s mode=%s resol=%s fps=%d)",
		ErrClassification, e.Stage, e.Facing, e.Count, e.Sensor, e.Mode, e.Resolution, e.FPS)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ClassificationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrClassification, e.Err}
	}
	return []error{ErrClassification}
}

func miss(stage string, s snapshot.Snapshot) error {
	return &ClassificationError{
		Stage:      stage,
		Facing:     s.Facing,
		Count:      s.Count,
		Sensor:     s.Sensor,
		Mode:       s.Mode,
		Resolution: s.Resolution,
		FPS:        s.FPS,
		Err:        s.Err,
	}
}

// #endregion errors
