package engine

import (
	"fmt"
	"log/slog"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
)

// #region platform-sink
// PlatformSink receives the memory-system hints that follow scenario
// changes. Sinks that do not implement it never see them.
type PlatformSink interface {
	SetBTSScenario(index int, on bool) error
	AllocLLC(votf, mcfp int) error
	ReleaseLLC() error
}

// #endregion platform-sink

// #region bts
// BTSIndex returns the bus-traffic scenario for id: 1 for the 8K and
// triple-sensor scenarios, 0 otherwise.
func BTSIndex(id catalog.ScenarioID) int {
	switch id {
	case catalog.RearSingleTeleVideo8K24,
		catalog.RearSingleTeleVideo8K30,
		catalog.RearSingleWideVideo8K24,
		catalog.RearSingleWideVideo8K30,
		catalog.TriplePhoto,
		catalog.TripleVideoFHD30,
		catalog.TripleVideoUHD30,
		catalog.TripleVideoFHD60,
		catalog.TripleVideoUHD60,
		catalog.TripleCapture:
		return 1
	}
	return 0
}

// configureBTS switches the bus-traffic scenario. A specific scenario is
// turned off before falling back to the default one.
func (e *Engine) configureBTS(id catalog.ScenarioID) error {
	ps, ok := e.sink.(PlatformSink)
	if !ok {
		return nil
	}
	idx := BTSIndex(id)
	if e.bts != 0 && idx == 0 {
		if err := ps.SetBTSScenario(e.bts, false); err != nil {
			return fmt.Errorf("bts off %d: %w", e.bts, err)
		}
	}
	if idx != 0 && idx != e.bts {
		if err := ps.SetBTSScenario(idx, true); err != nil {
			return fmt.Errorf("bts on %d: %w", idx, err)
		}
	}
	e.bts = idx
	return nil
}

// #endregion bts

// #region llc
// LLCWays returns the cache ways, in 512KB units, for the vOTF and MCFP
// regions of a stream in mode at resolution.
func LLCWays(mode snapshot.Mode, res snapshot.Resolution) (votf, mcfp int) {
	switch mode {
	case snapshot.ModePhoto:
		return 11, 3
	case snapshot.ModeVideo:
		switch res {
		case snapshot.ResolutionFHD, snapshot.ResolutionUHD:
			return 10, 4
		case snapshot.ResolutionEightK:
			return 9, 4
		}
	}
	return 0, 0
}

func (e *Engine) allocLLC(snap snapshot.Snapshot) error {
	ps, ok := e.sink.(PlatformSink)
	if !ok || e.llcOn {
		return nil
	}
	votf, mcfp := LLCWays(snap.Mode, snap.Resolution)
	if err := ps.AllocLLC(votf, mcfp); err != nil {
		return fmt.Errorf("llc alloc: %w", err)
	}
	slog.Info("engine: llc alloc", "votf_half_mb", votf, "mcfp_half_mb", mcfp)
	e.llcOn = true
	return nil
}

func (e *Engine) releaseLLC() error {
	ps, ok := e.sink.(PlatformSink)
	if !ok || !e.llcOn {
		return nil
	}
	if err := ps.ReleaseLLC(); err != nil {
		return fmt.Errorf("llc release: %w", err)
	}
	e.llcOn = false
	return nil
}

// #endregion llc
