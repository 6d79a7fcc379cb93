package engine

import (
	"errors"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/applier"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/config"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/dual"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/floor"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/selector"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
)

// #region config
// Config wires the engine's shared components.
type Config struct {
	Catalog  *catalog.Catalog
	Table    *floor.Table
	Layout   snapshot.Layout
	Dual     dual.Config
	Features applier.Features
	Disabled bool // DVFS kill switch: frames are tracked but nothing is applied
}

// ConfigFromPlatform builds the catalog and floor table described by p.
func ConfigFromPlatform(p *config.Platform) (Config, error) {
	cat, tbl, err := p.Build()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Catalog:  cat,
		Table:    tbl,
		Layout:   p.SensorLayout(),
		Dual:     p.DualConfig(),
		Features: p.Features(),
	}, nil
}

// #endregion config

// #region frame
// Frame is what one sensor-group shot reports to the engine.
type Frame struct {
	Seq          int64
	Input        snapshot.Input // DualEngaged, MaxFPS, Throttled and Standby are filled by the engine
	Position     snapshot.Position
	HeadIsSensor bool
	TargetFPS    int
	OutputWidth  int
	OutputHeight int
	Reprocessing bool
}

// #endregion frame

// #region result
// CategoryDual marks decisions made by the dual debounce.
const CategoryDual = "dual"

// Actions reported in a FrameResult.
const (
	ActionSelect        = selector.ActionSelect
	ActionHold          = selector.ActionHold
	ActionNotApplicable = selector.ActionNotApplicable
	ActionRestore       = "restore"
	ActionSkip          = "skip"
	ActionThrottle      = "throttle"
	ActionError         = "error"
)

// FrameResult is one decision the engine made.
type FrameResult struct {
	Frame    int64              `json:"frame"`
	Category string             `json:"category"`
	Action   string             `json:"action"`
	Scenario catalog.ScenarioID `json:"scenario"`
	Name     string             `json:"name,omitempty"`
	Reason   string             `json:"reason,omitempty"`
	Ticks    int                `json:"ticks"`
}

// #endregion result

// #region errors
var (
	ErrUnknownInstance = errors.New("unknown camera instance")
	ErrNotStreaming    = errors.New("camera instance is not streaming")
)

// #endregion errors
