package engine

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/applier"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/config"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/dual"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/floor"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/logging"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/state"
)

// #region helpers
const (
	wideBit = 1 << 0
	teleBit = 1 << 2
)

func newTestEngine(t *testing.T) (*Engine, *applier.Recorder) {
	t.Helper()
	cfg, err := ConfigFromPlatform(config.DefaultPlatform())
	if err != nil {
		t.Fatalf("ConfigFromPlatform: %v", err)
	}
	rec := &applier.Recorder{}
	return New(cfg, rec), rec
}

func photoInput(sensorMap uint32) snapshot.Input {
	return snapshot.Input{
		SensorMap:    sensorMap,
		Common:       snapshot.CommonPhoto,
		SensorFPS:    30,
		RecordWidth:  1920,
		RecordHeight: 1080,
	}
}

func startWide(t *testing.T, e *Engine) *Instance {
	t.Helper()
	inst := e.OpenInstance()
	res, err := e.StartStream(inst.ID, floor.HALVersion3_2, photoInput(wideBit))
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	if res.Scenario != catalog.RearSingleWidePhoto {
		t.Fatalf("expected RearSingleWidePhoto, got %s", res.Name)
	}
	return inst
}

func previewFrame(sensorMap uint32, pos snapshot.Position, fps int) Frame {
	return Frame{
		Input:        photoInput(sensorMap),
		Position:     pos,
		HeadIsSensor: true,
		TargetFPS:    fps,
		OutputWidth:  1920,
		OutputHeight: 1080,
	}
}

func captureFrame() Frame {
	f := previewFrame(wideBit, 0, 30)
	f.Input.Capture = true
	f.Reprocessing = true
	return f
}

func process(t *testing.T, e *Engine, id string, f Frame) []FrameResult {
	t.Helper()
	out, err := e.ProcessFrame(id, f)
	if err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	return out
}

func countKind(ops []applier.Op, kind string) int {
	n := 0
	for _, op := range ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// #endregion helpers

// #region lifecycle-tests
func TestStartStream_AppliesStatic(t *testing.T) {
	e, rec := newTestEngine(t)
	inst := startWide(t, e)

	ops := rec.Ops()
	if countKind(ops, "write") == 0 {
		t.Fatal("expected floor writes on stream start")
	}
	last := ops[len(ops)-1]
	if last.Kind != "llc" || last.Ways != [2]int{11, 3} {
		t.Fatalf("expected preview llc allocation last, got %v", last)
	}

	got, ok := e.Instance(inst.ID)
	if !ok || !got.Streaming() {
		t.Fatal("instance should be streaming")
	}
	if e.Applied().Scenario != catalog.RearSingleWidePhoto {
		t.Fatalf("applied scenario = %d", e.Applied().Scenario)
	}
}

func TestStartStream_Errors(t *testing.T) {
	e, _ := newTestEngine(t)

	if _, err := e.StartStream("missing", floor.HALVersion1_0, photoInput(wideBit)); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expected ErrUnknownInstance, got %v", err)
	}

	inst := e.OpenInstance()
	if _, err := e.StartStream(inst.ID, floor.HALVersion1_0, photoInput(0)); err == nil {
		t.Fatal("expected classification error for an empty sensor map")
	}
	if _, err := e.ProcessFrame(inst.ID, previewFrame(wideBit, 0, 30)); !errors.Is(err, ErrNotStreaming) {
		t.Fatalf("expected ErrNotStreaming, got %v", err)
	}
}

func TestStartStream_UnknownHALFallsBackToFirstTable(t *testing.T) {
	e, _ := newTestEngine(t)
	inst := e.OpenInstance()
	if _, err := e.StartStream(inst.ID, "9.9", photoInput(wideBit)); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	if idx, ok := e.selection.Index(); !ok || idx != 0 {
		t.Fatalf("expected table 0 selected, got %d (%v)", idx, ok)
	}
}

func TestCloseInstance_LastResetsSharedState(t *testing.T) {
	e, rec := newTestEngine(t)
	a := startWide(t, e)
	b := e.OpenInstance()

	if err := e.CloseInstance(a.ID); err != nil {
		t.Fatalf("CloseInstance: %v", err)
	}
	if _, ok := e.selection.Index(); !ok {
		t.Fatal("selection must survive while an instance is open")
	}

	rec.Drain()
	if err := e.CloseInstance(b.ID); err != nil {
		t.Fatalf("CloseInstance: %v", err)
	}
	if _, ok := e.selection.Index(); ok {
		t.Fatal("selection should reset with the last instance")
	}
	ops := rec.Ops()
	if len(ops) != 1 || ops[0].String() != "llc(off)" {
		t.Fatalf("expected llc release, got %v", ops)
	}

	if err := e.CloseInstance(b.ID); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expected ErrUnknownInstance, got %v", err)
	}
}

func TestStartExternal(t *testing.T) {
	e, _ := newTestEngine(t)
	inst := e.OpenInstance()
	res, err := e.StartExternal(inst.ID, floor.HALVersion1_0, photoInput(wideBit))
	if err != nil {
		t.Fatalf("StartExternal: %v", err)
	}
	if res.Scenario != catalog.ExtRearSingle || res.Category != string(catalog.CategoryExternal) {
		t.Fatalf("unexpected result %+v", res)
	}
}

// #endregion lifecycle-tests

// #region dynamic-tests
func TestProcessFrame_CaptureHoldThenRestore(t *testing.T) {
	e, _ := newTestEngine(t)
	inst := startWide(t, e)
	hold := e.cfg.Catalog.TickConfig().CaptureTick()

	out := process(t, e, inst.ID, captureFrame())
	if len(out) != 1 || out[0].Action != ActionSelect || out[0].Scenario != catalog.RearSingleWideCapture {
		t.Fatalf("expected capture select, got %+v", out)
	}
	if out[0].Ticks != hold {
		t.Fatalf("expected %d ticks, got %d", hold, out[0].Ticks)
	}
	if e.Applied().Scenario != catalog.RearSingleWideCapture {
		t.Fatal("capture scenario should be applied")
	}

	// Preview frames count the hold down without deciding anything.
	for i := 1; i < hold; i++ {
		if out := process(t, e, inst.ID, previewFrame(wideBit, 0, 30)); len(out) != 0 {
			t.Fatalf("frame %d: expected no decision, got %+v", i, out)
		}
	}

	out = process(t, e, inst.ID, previewFrame(wideBit, 0, 30))
	if len(out) != 1 || out[0].Action != ActionRestore || out[0].Scenario != catalog.RearSingleWidePhoto {
		t.Fatalf("expected static restore, got %+v", out)
	}
	if e.Applied().Scenario != catalog.RearSingleWidePhoto {
		t.Fatal("static scenario should be applied again")
	}

	if out := process(t, e, inst.ID, previewFrame(wideBit, 0, 30)); len(out) != 0 {
		t.Fatalf("expected no decision after restore, got %+v", out)
	}
}

func TestProcessFrame_HoldDuringReprocessing(t *testing.T) {
	e, _ := newTestEngine(t)
	inst := startWide(t, e)

	process(t, e, inst.ID, captureFrame())
	out := process(t, e, inst.ID, captureFrame())
	if len(out) != 1 || out[0].Action != ActionHold || out[0].Scenario != catalog.RearSingleWideCapture {
		t.Fatalf("expected hold, got %+v", out)
	}
}

func TestProcessFrame_ReprocessingClassifiesAsCapture(t *testing.T) {
	e, _ := newTestEngine(t)
	inst := startWide(t, e)

	f := previewFrame(wideBit, 0, 30)
	f.Reprocessing = true
	out := process(t, e, inst.ID, f)
	if len(out) != 1 || out[0].Action != ActionSelect || out[0].Scenario != catalog.RearSingleWideCapture {
		t.Fatalf("expected capture select for a reprocessing frame, got %+v", out)
	}
	if e.Applied().Scenario != catalog.RearSingleWideCapture {
		t.Errorf("applied %d, want capture", e.Applied().Scenario)
	}
}

func TestProcessFrame_RestoreWhenHoldEnds(t *testing.T) {
	unclassifiable := previewFrame(0, 0, 30)
	unclassifiable.Reprocessing = true

	tests := []struct {
		name    string
		last    Frame
		actions []string
	}{
		{"not applicable", previewFrame(wideBit, 0, 30), []string{ActionRestore}},
		{"classification error", unclassifiable, []string{ActionError, ActionRestore}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			inst := startWide(t, e)
			hold := e.cfg.Catalog.TickConfig().CaptureTick()

			process(t, e, inst.ID, captureFrame())
			for i := 1; i < hold; i++ {
				process(t, e, inst.ID, tt.last)
			}
			if e.Applied().Scenario != catalog.RearSingleWideCapture {
				t.Fatal("capture should still be held")
			}

			out := process(t, e, inst.ID, tt.last)
			if len(out) != len(tt.actions) {
				t.Fatalf("expected %v, got %+v", tt.actions, out)
			}
			for i, want := range tt.actions {
				if out[i].Action != want {
					t.Errorf("decision %d: got %s, want %s", i, out[i].Action, want)
				}
			}
			if e.Applied().Scenario != catalog.RearSingleWidePhoto {
				t.Fatalf("applied %d after the hold ended, want static photo", e.Applied().Scenario)
			}

			for i := 0; i < 5; i++ {
				process(t, e, inst.ID, previewFrame(wideBit, 0, 30))
			}
			if e.Applied().Scenario != catalog.RearSingleWidePhoto {
				t.Errorf("applied %d after preview, want static photo", e.Applied().Scenario)
			}
		})
	}
}

func TestProcessFrame_PinnedOrDisabled(t *testing.T) {
	e, rec := newTestEngine(t)
	inst := startWide(t, e)
	rec.Drain()

	e.SetUserQoS(true)
	if out := process(t, e, inst.ID, captureFrame()); out != nil {
		t.Fatalf("expected no decisions while pinned, got %+v", out)
	}
	if ops := rec.Ops(); len(ops) != 0 {
		t.Fatalf("expected no writes while pinned, got %v", ops)
	}
	e.SetUserQoS(false)

	cfg, _ := ConfigFromPlatform(config.DefaultPlatform())
	cfg.Disabled = true
	off := New(cfg, &applier.Recorder{})
	offInst := startWide(t, off)
	if out := process(t, off, offInst.ID, captureFrame()); out != nil {
		t.Fatalf("expected no decisions when disabled, got %+v", out)
	}
}

// #endregion dynamic-tests

// #region dual-tests
func TestDualDebounce_SelectThenSkip(t *testing.T) {
	e, _ := newTestEngine(t)
	inst := e.OpenInstance()
	pair := uint32(wideBit | teleBit)
	if _, err := e.StartStream(inst.ID, floor.HALVersion1_0, photoInput(pair)); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	if got := inst.Selector.Static().Current; got != catalog.RearDualWideTelePhoto {
		t.Fatalf("expected dual photo at start, got %d", got)
	}

	tests := []struct {
		name     string
		frame    Frame
		mode     dual.Mode
		action   string
		scenario catalog.ScenarioID
	}{
		{"wide only: bypass", previewFrame(pair, 0, 30), dual.ModeBypass, ActionSelect, catalog.RearSingleWidePhoto},
		{"tele joins: sync", previewFrame(pair, 2, 30), dual.ModeSync, ActionSelect, catalog.RearDualWideTelePhoto},
		{"tele idles: debounce armed", previewFrame(pair, 2, 0), dual.ModeBypass, "", catalog.Unset},
		{"tele back before expiry", previewFrame(pair, 2, 30), dual.ModeSync, ActionSkip, catalog.RearDualWideTelePhoto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := process(t, e, inst.ID, tt.frame)
			if got := e.DualState().Mode; got != tt.mode {
				t.Fatalf("mode = %s, want %s", got, tt.mode)
			}
			if tt.action == "" {
				if len(out) != 0 {
					t.Fatalf("expected no decision, got %+v", out)
				}
				return
			}
			if len(out) == 0 || out[0].Category != CategoryDual {
				t.Fatalf("expected a dual decision, got %+v", out)
			}
			if out[0].Action != tt.action || out[0].Scenario != tt.scenario {
				t.Fatalf("got %s %s, want %s %d", out[0].Action, out[0].Name, tt.action, tt.scenario)
			}
		})
	}
}

func TestDualDebounce_WaitsDualTickAfterFusion(t *testing.T) {
	e, _ := newTestEngine(t)
	inst := e.OpenInstance()
	pair := uint32(wideBit | teleBit)
	if _, err := e.StartStream(inst.ID, floor.HALVersion1_0, photoInput(pair)); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	process(t, e, inst.ID, previewFrame(pair, 0, 30))
	process(t, e, inst.ID, previewFrame(pair, 2, 30))

	// Leaving Sync arms the counter; the static scenario follows only once
	// it reaches zero.
	process(t, e, inst.ID, previewFrame(pair, 2, 0))
	for i := 1; i < e.cfg.Dual.DualTick; i++ {
		if out := process(t, e, inst.ID, previewFrame(pair, 0, 30)); len(out) != 0 {
			t.Fatalf("frame %d: expected no decision, got %+v", i, out)
		}
	}
	out := process(t, e, inst.ID, previewFrame(pair, 0, 30))
	if len(out) != 1 || out[0].Action != ActionSelect || out[0].Scenario != catalog.RearSingleWidePhoto {
		t.Fatalf("expected single wide after debounce, got %+v", out)
	}
}

func TestLimitedFPSOverridesTargetFPS(t *testing.T) {
	e, _ := newTestEngine(t)
	inst := e.OpenInstance()
	pair := uint32(wideBit | teleBit)
	if _, err := e.StartStream(inst.ID, floor.HALVersion1_0, photoInput(pair)); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	if err := e.SetLimitedFPS(15); err != nil {
		t.Fatalf("SetLimitedFPS: %v", err)
	}
	process(t, e, inst.ID, previewFrame(pair, 0, 30))
	if got := e.DualState().MaxFPS[0]; got != 15 {
		t.Fatalf("expected target fps 15, got %d", got)
	}
}

// #endregion dual-tests

// #region throttle-tests
func TestSetLimitedFPS_ReappliesStaticOnce(t *testing.T) {
	e, rec := newTestEngine(t)
	inst := startWide(t, e)
	rec.Drain()

	if err := e.SetLimitedFPS(10); err != nil {
		t.Fatalf("SetLimitedFPS: %v", err)
	}
	out := process(t, e, inst.ID, previewFrame(wideBit, 0, 30))
	if len(out) != 1 || out[0].Action != ActionThrottle || out[0].Scenario != catalog.RearSingleWidePhoto {
		t.Fatalf("expected throttle re-apply, got %+v", out)
	}
	throttle := e.cfg.Features.Throttle[floor.IntCam]
	found := false
	for _, op := range rec.Drain() {
		if op.Kind == "write" && op.Resource == floor.IntCam && op.Level == throttle {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the int_cam throttle level to be written")
	}

	if out := process(t, e, inst.ID, previewFrame(wideBit, 0, 30)); len(out) != 0 {
		t.Fatalf("re-apply should happen once, got %+v", out)
	}

	if err := e.SetLimitedFPS(0); err != nil {
		t.Fatalf("SetLimitedFPS(0): %v", err)
	}
	if e.Applied().LimitedFPS != 0 {
		t.Fatal("throttle should be released")
	}
	if countKind(rec.Ops(), "write") == 0 {
		t.Fatal("expected restore writes on release")
	}
	if err := e.SetLimitedFPS(-1); err == nil {
		t.Fatal("expected error for negative fps")
	}
}

// #endregion throttle-tests

// #region platform-tests
func TestBTSIndex(t *testing.T) {
	tests := []struct {
		id   catalog.ScenarioID
		want int
	}{
		{catalog.RearSingleWideVideo8K30, 1},
		{catalog.RearSingleTeleVideo8K24, 1},
		{catalog.TripleCapture, 1},
		{catalog.RearSingleWideVideo8K30HF, 0},
		{catalog.RearSingleWidePhoto, 0},
	}
	for _, tt := range tests {
		if got := BTSIndex(tt.id); got != tt.want {
			t.Errorf("BTSIndex(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestBTS_OffBeforeDefault(t *testing.T) {
	e, rec := newTestEngine(t)
	inst := e.OpenInstance()
	in := snapshot.Input{
		SensorMap:    wideBit,
		Common:       snapshot.CommonVideo,
		SensorFPS:    30,
		RecordWidth:  7680,
		RecordHeight: 4320,
	}
	res, err := e.StartStream(inst.ID, floor.HALVersion1_0, in)
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	if res.Scenario != catalog.RearSingleWideVideo8K30 {
		t.Fatalf("expected 8K30, got %s", res.Name)
	}
	var seq []string
	for _, op := range rec.Drain() {
		if op.Kind == "bts" || op.Kind == "llc" {
			seq = append(seq, op.String())
		}
	}
	if len(seq) != 2 || seq[0] != "bts(1,true)" || seq[1] != "llc(9,4)" {
		t.Fatalf("unexpected platform ops %v", seq)
	}

	if err := e.configureBTS(catalog.RearSingleWidePhoto); err != nil {
		t.Fatalf("configureBTS: %v", err)
	}
	ops := rec.Drain()
	if len(ops) != 1 || ops[0].String() != "bts(1,false)" {
		t.Fatalf("expected bts off, got %v", ops)
	}
}

func TestLLCWays(t *testing.T) {
	tests := []struct {
		mode       snapshot.Mode
		res        snapshot.Resolution
		votf, mcfp int
	}{
		{snapshot.ModePhoto, snapshot.ResolutionFHD, 11, 3},
		{snapshot.ModeVideo, snapshot.ResolutionFHD, 10, 4},
		{snapshot.ModeVideo, snapshot.ResolutionUHD, 10, 4},
		{snapshot.ModeVideo, snapshot.ResolutionEightK, 9, 4},
		{snapshot.ModeCapture, snapshot.ResolutionFHD, 0, 0},
	}
	for _, tt := range tests {
		votf, mcfp := LLCWays(tt.mode, tt.res)
		if votf != tt.votf || mcfp != tt.mcfp {
			t.Errorf("LLCWays(%s, %s) = %d/%d, want %d/%d", tt.mode, tt.res, votf, mcfp, tt.votf, tt.mcfp)
		}
	}
}

// #endregion platform-tests

// #region store-tests
func TestAttachStore_PersistsSessionsAndDecisions(t *testing.T) {
	s, err := state.NewStore(filepath.Join(t.TempDir(), "dvfs.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	e, _ := newTestEngine(t)
	e.AttachStore(s)
	inst := startWide(t, e)
	process(t, e, inst.ID, captureFrame())

	got, _ := e.Instance(inst.ID)
	if got.SessionID == "" {
		t.Fatal("expected a persisted session")
	}
	active, err := s.GetActive(got.SessionID)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.Static != int(catalog.RearSingleWidePhoto) || active.Dynamic != int(catalog.RearSingleWideCapture) {
		t.Fatalf("unexpected active scenarios %+v", active)
	}

	recs, err := s.ListApplied(got.SessionID, 10)
	if err != nil {
		t.Fatalf("ListApplied: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 apply records, got %d", len(recs))
	}

	decisions, err := logging.ListDecisions(s.DB(), logging.Filter{SessionID: got.SessionID})
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(decisions) != 2 || decisions[1].Action != ActionSelect || decisions[1].Category != "dynamic" {
		t.Fatalf("unexpected decisions %+v", decisions)
	}

	if err := e.CloseInstance(inst.ID); err != nil {
		t.Fatalf("CloseInstance: %v", err)
	}
	sess, _ := s.GetSession(got.SessionID)
	if sess.Open() {
		t.Fatal("session should be closed with the instance")
	}
}

// #endregion store-tests
