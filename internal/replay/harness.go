package replay

import (
	"fmt"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/applier"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/config"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/engine"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/trace"
)

// #region types
// ReplayConfig configures the engine a replay runs against.
type ReplayConfig struct {
	Engine engine.Config
}

// DefaultReplayConfig replays against the reference platform.
func DefaultReplayConfig() (ReplayConfig, error) {
	cfg, err := engine.ConfigFromPlatform(config.DefaultPlatform())
	if err != nil {
		return ReplayConfig{}, err
	}
	return ReplayConfig{Engine: cfg}, nil
}

// ReplayResult captures the outcome of one trace record.
type ReplayResult struct {
	Seq       int64
	Kind      string
	Instance  int
	Decisions []engine.FrameResult
	Ops       []applier.Op // sink requests the record caused
	Err       string
}

// Action returns the action of the record's last decision, or "none".
func (r ReplayResult) Action() string {
	if len(r.Decisions) == 0 {
		return "none"
	}
	return r.Decisions[len(r.Decisions)-1].Action
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalRecords int
	Frames       int
	Selects      int
	Holds        int
	Restores     int
	Skips        int
	Throttles    int
	Errors       int
	Writes       int
	Final        applier.State
}

// #endregion types

// #region replay
// Replay feeds records through a fresh engine backed by an in-memory
// Recorder. Record errors are captured per result and do not stop the run.
func Replay(records []trace.Record, cfg ReplayConfig) ([]ReplayResult, applier.State) {
	rec := &applier.Recorder{}
	p := NewPlayer(engine.New(cfg.Engine, rec), rec)
	results := make([]ReplayResult, 0, len(records))
	for _, r := range records {
		results = append(results, p.Step(r))
	}
	return results, p.Engine().Applied()
}

// Player drives one engine record by record, mapping trace instance
// numbers to engine instance ids.
type Player struct {
	eng *engine.Engine
	rec *applier.Recorder
	ids map[int]string
}

// NewPlayer wraps eng. rec may be nil when the engine's sink is not a
// Recorder; results then carry no ops.
func NewPlayer(eng *engine.Engine, rec *applier.Recorder) *Player {
	return &Player{eng: eng, rec: rec, ids: make(map[int]string)}
}

// Engine returns the engine the player drives.
func (p *Player) Engine() *engine.Engine {
	return p.eng
}

// Step applies one record and returns its outcome.
func (p *Player) Step(r trace.Record) ReplayResult {
	res := ReplayResult{Seq: r.Seq, Kind: r.Kind, Instance: r.Instance}
	if err := p.step(r, &res); err != nil {
		res.Err = err.Error()
	}
	if p.rec != nil {
		res.Ops = p.rec.Drain()
	}
	return res
}

func (p *Player) step(r trace.Record, res *ReplayResult) error {
	if err := r.Validate(); err != nil {
		return err
	}
	id, known := p.ids[r.Instance]
	needsInstance := r.Kind == trace.KindStart || r.Kind == trace.KindExternal ||
		r.Kind == trace.KindFrame || r.Kind == trace.KindClose
	if needsInstance && !known {
		return fmt.Errorf("record %d: instance %d is not open", r.Seq, r.Instance)
	}

	switch r.Kind {
	case trace.KindOpen:
		if known {
			return fmt.Errorf("record %d: instance %d already open", r.Seq, r.Instance)
		}
		p.ids[r.Instance] = p.eng.OpenInstance().ID
	case trace.KindStart:
		d, err := p.eng.StartStream(id, r.HALVersion, r.Input())
		if err != nil {
			return err
		}
		res.Decisions = append(res.Decisions, d)
	case trace.KindExternal:
		d, err := p.eng.StartExternal(id, r.HALVersion, r.Input())
		if err != nil {
			return err
		}
		res.Decisions = append(res.Decisions, d)
	case trace.KindFrame:
		out, err := p.eng.ProcessFrame(id, r.Frame())
		res.Decisions = append(res.Decisions, out...)
		return err
	case trace.KindLimitedFPS:
		return p.eng.SetLimitedFPS(r.LimitedFPS)
	case trace.KindUserQoS:
		p.eng.SetUserQoS(r.On)
	case trace.KindClose:
		delete(p.ids, r.Instance)
		return p.eng.CloseInstance(id)
	}
	return nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, final applier.State) ReplaySummary {
	s := ReplaySummary{
		TotalRecords: len(results),
		Final:        final,
	}
	for _, r := range results {
		if r.Kind == trace.KindFrame {
			s.Frames++
		}
		if r.Err != "" {
			s.Errors++
		}
		for _, op := range r.Ops {
			if op.Kind == "write" {
				s.Writes++
			}
		}
		for _, d := range r.Decisions {
			switch d.Action {
			case engine.ActionSelect:
				s.Selects++
			case engine.ActionHold:
				s.Holds++
			case engine.ActionRestore:
				s.Restores++
			case engine.ActionSkip:
				s.Skips++
			case engine.ActionThrottle:
				s.Throttles++
			}
		}
	}
	return s
}

// #endregion replay
