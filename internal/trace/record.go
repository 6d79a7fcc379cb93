package trace

import (
	"fmt"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/engine"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
)

// Record kinds. A trace replays a device session: instances are opened and
// started, frames flow, limiting and pins toggle, instances close.
const (
	KindOpen       = "open"
	KindStart      = "start"
	KindExternal   = "external"
	KindFrame      = "frame"
	KindLimitedFPS = "limited_fps"
	KindUserQoS    = "user_qos"
	KindClose      = "close"
)

// Record is one trace event. Instance is a trace-local key; the replayer
// maps it onto engine instance ids. The scenario and record-size fields are
// the raw HAL control words.
type Record struct {
	Seq          int64  `msgpack:"seq" json:"seq"`
	Kind         string `msgpack:"kind" json:"kind"`
	Instance     int    `msgpack:"instance" json:"instance"`
	HALVersion   string `msgpack:"hal,omitempty" json:"hal,omitempty"`
	SensorMap    uint32 `msgpack:"sensor_map,omitempty" json:"sensor_map,omitempty"`
	Position     int    `msgpack:"position,omitempty" json:"position,omitempty"`
	HeadIsSensor bool   `msgpack:"head_is_sensor,omitempty" json:"head_is_sensor,omitempty"`
	TargetFPS    int    `msgpack:"target_fps,omitempty" json:"target_fps,omitempty"`
	OutputWidth  int    `msgpack:"out_w,omitempty" json:"out_w,omitempty"`
	OutputHeight int    `msgpack:"out_h,omitempty" json:"out_h,omitempty"`
	Reprocessing bool   `msgpack:"reprocessing,omitempty" json:"reprocessing,omitempty"`
	Capture      bool   `msgpack:"capture,omitempty" json:"capture,omitempty"`
	Special      int    `msgpack:"special,omitempty" json:"special,omitempty"`
	SensorFPS    int    `msgpack:"sensor_fps,omitempty" json:"sensor_fps,omitempty"`
	SensorWidth  int    `msgpack:"sensor_w,omitempty" json:"sensor_w,omitempty"`
	SensorHeight int    `msgpack:"sensor_h,omitempty" json:"sensor_h,omitempty"`
	Scenario     uint32 `msgpack:"scenario,omitempty" json:"scenario,omitempty"`
	RecordSize   uint32 `msgpack:"record_size,omitempty" json:"record_size,omitempty"`
	Secure       bool   `msgpack:"secure,omitempty" json:"secure,omitempty"`
	HighFreq     bool   `msgpack:"high_freq,omitempty" json:"high_freq,omitempty"`
	LimitedFPS   int    `msgpack:"limited_fps,omitempty" json:"limited_fps,omitempty"`
	On           bool   `msgpack:"on,omitempty" json:"on,omitempty"`
}

// Validate checks that the kind is known.
func (r Record) Validate() error {
	switch r.Kind {
	case KindOpen, KindStart, KindExternal, KindFrame, KindLimitedFPS, KindUserQoS, KindClose:
		return nil
	}
	return fmt.Errorf("record %d: unknown kind %q", r.Seq, r.Kind)
}

// Input decodes the record's live camera state.
func (r Record) Input() snapshot.Input {
	in := snapshot.Input{
		SensorMap:    r.SensorMap,
		Capture:      r.Capture,
		Special:      snapshot.SpecialMode(r.Special),
		SensorFPS:    r.SensorFPS,
		SensorWidth:  r.SensorWidth,
		SensorHeight: r.SensorHeight,
		Secure:       r.Secure,
		HighFreq:     r.HighFreq,
	}
	in.ApplyControls(r.Scenario, r.RecordSize)
	return in
}

// Frame converts a frame record for the engine.
func (r Record) Frame() engine.Frame {
	return engine.Frame{
		Seq:          r.Seq,
		Input:        r.Input(),
		Position:     snapshot.Position(r.Position),
		HeadIsSensor: r.HeadIsSensor,
		TargetFPS:    r.TargetFPS,
		OutputWidth:  r.OutputWidth,
		OutputHeight: r.OutputHeight,
		Reprocessing: r.Reprocessing,
	}
}
