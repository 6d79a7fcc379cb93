package dual

import (
	"log/slog"
	"sync"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
)

// #region modes
// Mode is the fusion state of the rear sensor group.
type Mode string

const (
	ModeNone    Mode = "none"
	ModeBypass  Mode = "bypass"
	ModeSync    Mode = "sync"
	ModeSwitch  Mode = "switch"
	ModeOverrun Mode = "overrun"
)

// Fusing reports whether more than one sensor feeds the pipeline.
func (m Mode) Fusing() bool {
	return m == ModeSync || m == ModeOverrun
}

// DefaultDualTick is the number of frames to wait after leaving fusion
// before re-selecting the static scenario.
const DefaultDualTick = 4

// #endregion modes

// #region config
// Config controls a Tracker.
type Config struct {
	Layout   snapshot.Layout
	DualTick int
	Standby  bool // idle standby feature: contribution needs 10fps
}

// DefaultConfig returns the tracker settings for the default layout.
func DefaultConfig() Config {
	return Config{
		Layout:   snapshot.DefaultLayout(),
		DualTick: DefaultDualTick,
	}
}

// #endregion config

// #region state
// FrameObservation is what one sensor frame reports to the tracker.
type FrameObservation struct {
	SensorMap    uint32
	Position     snapshot.Position
	HeadIsSensor bool // the frame's group head is the sensor device
	TargetFPS    int  // upper bound of the AE target fps range
	Throttled    bool // limited_fps is asserted
	OutputWidth  int
	OutputHeight int
}

// State is a copy of the tracker's fields for diagnostics and persistence.
type State struct {
	Mode      Mode
	PrevMode  Mode
	Tick      int
	MaxFPS    [snapshot.MaxPositions]int
	MaxWidth  int
	MaxHeight int
}

// TickResult is the outcome of the debounce half of a dual DVFS update.
type TickResult struct {
	Trigger bool // static scenario must be re-selected this frame
	Tick    int
	From    Mode
	To      Mode
	Invalid bool // an unknown transition forced a reset
}

// #endregion state

// #region tracker
// Tracker follows the fusion mode of one physical device. All camera
// instances that may fuse share it.
type Tracker struct {
	mu    sync.Mutex
	cfg   Config
	state State
}

// New creates a Tracker in ModeNone with the debounce counter disabled.
func New(cfg Config) *Tracker {
	if cfg.DualTick <= 0 {
		cfg.DualTick = DefaultDualTick
	}
	return &Tracker{
		cfg: cfg,
		state: State{
			Mode:     ModeNone,
			PrevMode: ModeNone,
			Tick:     -1,
		},
	}
}

// applies reports whether the topology can fuse at all: wide plus at least
// one of tele, tele2, ultrawide or macro.
func (t *Tracker) applies(sensorMap uint32, headIsSensor bool) bool {
	l := t.cfg.Layout
	if !headIsSensor || sensorMap&l.Wide.Mask() == 0 {
		return false
	}
	partners := l.Tele.Mask() | l.Tele2.Mask() | l.UltraWide.Mask() | l.Macro.Mask()
	return sensorMap&partners != 0
}

// Update records the frame's target fps and recomputes the mode from the
// number of contributing rear positions.
func (t *Tracker) Update(obs FrameObservation) Mode {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.applies(obs.SensorMap, obs.HeadIsSensor) {
		return t.state.Mode
	}
	if obs.Position >= 0 && obs.Position < snapshot.MaxPositions {
		t.state.MaxFPS[obs.Position] = obs.TargetFPS
	}

	streaming := 0
	for _, pos := range t.cfg.Layout.RearPositions() {
		if snapshot.IsPositionActive(pos, t.state.MaxFPS[pos], obs.Throttled, t.cfg.Standby) {
			streaming++
		}
	}

	switch {
	case streaming == 1:
		t.state.Mode = ModeBypass
	case streaming == 2:
		t.state.Mode = ModeSync
	case streaming >= 3:
		t.state.Mode = ModeOverrun
	default:
		t.state.Mode = ModeNone
	}

	if t.state.Mode.Fusing() {
		t.state.MaxWidth = max(t.state.MaxWidth, obs.OutputWidth)
		t.state.MaxHeight = max(t.state.MaxHeight, obs.OutputHeight)
	} else {
		t.state.MaxWidth = obs.OutputWidth
		t.state.MaxHeight = obs.OutputHeight
	}
	return t.state.Mode
}

// Tick runs the debounce counter once. The counter is decremented while it
// is non-negative, then rearmed on a mode change: disabled when the new mode
// is None, 0 when leaving Bypass, Switch or None, DualTick when leaving Sync
// or Overrun. A counter of exactly 0 triggers.
func (t *Tracker) Tick(sensorMap uint32, headIsSensor bool) TickResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	res := TickResult{From: t.state.PrevMode, To: t.state.Mode, Tick: t.state.Tick}
	if !t.applies(sensorMap, headIsSensor) {
		return res
	}

	if t.state.Tick >= 0 {
		t.state.Tick--
	}

	if t.state.PrevMode != t.state.Mode {
		switch {
		case t.state.Mode == ModeNone:
			t.state.Tick = -1
		case t.state.PrevMode == ModeBypass, t.state.PrevMode == ModeSwitch, t.state.PrevMode == ModeNone:
			t.state.Tick = 0
		case t.state.PrevMode.Fusing():
			t.state.Tick = t.cfg.DualTick
		default:
			slog.Error("dual: invalid mode transition", "from", t.state.PrevMode, "to", t.state.Mode)
			t.state.Tick = -1
			t.state.PrevMode = ModeNone
			t.state.Mode = ModeNone
			res.Invalid = true
		}
	}

	res.Tick = t.state.Tick
	res.To = t.state.Mode
	res.Trigger = t.state.Tick == 0
	t.state.PrevMode = t.state.Mode
	return res
}

// Mode returns the current fusion mode.
func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Mode
}

// State returns a copy of the tracker state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Reset returns the tracker to its initial state, as when the device closes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = State{Mode: ModeNone, PrevMode: ModeNone, Tick: -1}
}

// #endregion tracker
