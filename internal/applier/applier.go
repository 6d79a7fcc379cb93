package applier

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/floor"
)

// Target identifies the camera instance an apply pass is made for.
type Target struct {
	Instance     int
	Reprocessing bool // capture path; HPG requests are not made from it
}

// Result summarizes one apply pass.
type Result struct {
	Scenario catalog.ScenarioID
	Writes   int
	Bundle   bool
	QoS      string
}

// #region applier
// Applier owns the process-wide applied state. One mutex serializes every
// comparison and write, so concurrent instances never race on a resource.
type Applier struct {
	mu        sync.Mutex
	table     *floor.Table
	selection *floor.Selection
	sink      Sink
	features  Features

	state   State
	pending map[int]bool // instances that must re-apply after a throttle change
}

// New creates an Applier. A nil Throttle map disables throttling.
func New(table *floor.Table, sel *floor.Selection, sink Sink, features Features) *Applier {
	return &Applier{
		table:     table,
		selection: sel,
		sink:      sink,
		features:  features,
		state:     newState(),
		pending:   make(map[int]bool),
	}
}

// Apply requests every floor of id. All lookups happen before the first
// write; a failed lookup aborts the pass with an *ApplyError and no writes.
func (a *Applier) Apply(target Target, id catalog.ScenarioID) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.pending, target.Instance)

	idx, _ := a.selection.Index()
	row, err := a.table.Row(idx, id)
	if err != nil {
		return Result{Scenario: id}, &ApplyError{Scenario: id, Err: err}
	}
	for _, res := range floor.Resources() {
		if a.features.Enabled[res] && row.Floors[res] < 0 {
			return Result{Scenario: id}, &ApplyError{
				Scenario: id,
				Resource: res.String(),
				Err:      fmt.Errorf("negative floor %d", row.Floors[res]),
			}
		}
	}
	maxRow, err := a.table.Row(idx, catalog.Max)
	if err != nil {
		return Result{Scenario: id}, &ApplyError{Scenario: catalog.Max, Err: err}
	}

	w := &pass{a: a}

	w.write(floor.I2C, row.Floors[floor.I2C])
	w.throttled(floor.Int, row.Floors[floor.Int])

	bundled := w.bundle(id, row, maxRow)

	w.write(floor.Cam, row.Floors[floor.Cam])
	w.throttled(floor.IntCam, row.Floors[floor.IntCam])
	w.write(floor.TNR, row.Floors[floor.TNR])
	w.write(floor.CSIS, row.Floors[floor.CSIS])
	w.write(floor.ISP, row.Floors[floor.ISP])
	w.throttled(floor.MIF, row.Floors[floor.MIF])

	if !target.Reprocessing {
		w.hpg(row.Floors[floor.HPG])
	}
	w.affinity(row.CPUs)

	if w.err != nil {
		return Result{Scenario: id, Writes: w.writes, Bundle: bundled}, fmt.Errorf("apply scenario %d: %w", id, w.err)
	}

	a.state.Scenario = id
	res := Result{
		Scenario: id,
		Writes:   w.writes,
		Bundle:   bundled,
		QoS:      a.state.QoS(a.features),
	}
	slog.Info("applier: "+res.QoS, "instance", target.Instance, "scenario", int(id), "writes", w.writes)
	return res, nil
}

// #endregion applier

// #region throttle
// SetThrottle records the limited frame rate. A positive value throttles;
// the given instances are marked for re-apply. Zero releases the throttle.
func (a *Applier) SetThrottle(limitedFPS int, instances ...int) error {
	a.mu.Lock()
	a.state.LimitedFPS = limitedFPS
	for _, inst := range instances {
		a.pending[inst] = true
	}
	a.mu.Unlock()

	if limitedFPS == 0 {
		return a.ReleaseThrottle()
	}
	return nil
}

// Throttled reports whether frame-rate limiting is asserted.
func (a *Applier) Throttled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.LimitedFPS > 0
}

// Pending reports whether inst must re-apply its static scenario.
func (a *Applier) Pending(inst int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending[inst]
}

// ReleaseThrottle restores the scenario floors recorded while throttled,
// writing only where the hardware holds something else.
func (a *Applier) ReleaseThrottle() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, res := range floor.Resources() {
		if a.state.ThrottleFloor[res] < 0 {
			continue
		}
		want := a.state.Wanted[res]
		if want >= 0 && want != a.state.ThrottleFloor[res] {
			if err := a.sink.Write(res, want); err != nil {
				return fmt.Errorf("restore %s: %w", res, err)
			}
		}
		a.state.Current[res] = want
		a.state.ThrottleFloor[res] = -1
	}
	slog.Info("applier: throttle released", "qos", a.state.QoS(a.features))
	return nil
}

// #endregion throttle

// State returns a copy of the applied state.
func (a *Applier) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Features returns the applier's feature set.
func (a *Applier) Features() Features {
	return a.features
}

// #region pass
// pass carries one apply call's write count and first sink error. Writes
// after an error are skipped.
type pass struct {
	a      *Applier
	writes int
	err    error
}

func (p *pass) emit(res floor.Resource, level int) bool {
	if p.err != nil {
		return false
	}
	if err := p.a.sink.Write(res, level); err != nil {
		p.err = fmt.Errorf("write %s: %w", res, err)
		return false
	}
	p.writes++
	return true
}

// write requests level when the resource is enabled and differs from what
// is held. Zero is a valid level.
func (p *pass) write(res floor.Resource, level int) {
	st := &p.a.state
	if !p.a.features.Enabled[res] {
		return
	}
	st.Wanted[res] = level
	if st.Current[res] == level && st.ThrottleFloor[res] < 0 {
		return
	}
	if p.emit(res, level) {
		st.Current[res] = level
		st.ThrottleFloor[res] = -1
	}
}

// throttled writes the throttle level instead of level while frame-rate
// limiting is asserted, keeping level as the value to restore.
func (p *pass) throttled(res floor.Resource, level int) {
	st := &p.a.state
	thr, ok := p.a.features.Throttle[res]
	if !ok || st.LimitedFPS <= 0 || !p.a.features.Enabled[res] {
		p.write(res, level)
		return
	}
	st.Wanted[res] = level
	if st.ThrottleFloor[res] == thr {
		return
	}
	if p.emit(res, thr) {
		st.ThrottleFloor[res] = thr
	}
}

// bundle runs the CSIS/CAM sequence when the scenario calls for it and the
// pair is not already at the target.
func (p *pass) bundle(id catalog.ScenarioID, row, maxRow floor.Row) bool {
	st := &p.a.state
	if !p.a.features.Enabled[floor.CSIS] || !p.a.features.Enabled[floor.Cam] {
		return false
	}
	if st.Current[floor.CSIS] == row.Floors[floor.CSIS] && st.Current[floor.Cam] == row.Floors[floor.Cam] {
		return false
	}
	steps, operating := bundleSequence(id, st.BundleOperating)
	st.BundleOperating = operating
	if len(steps) == 0 {
		return false
	}
	for _, step := range steps {
		res := floor.Cam
		if step.csis {
			res = floor.CSIS
		}
		level := row.Floors[res]
		if step.scenario == catalog.Max {
			level = maxRow.Floors[res]
		}
		if !p.emit(res, level) {
			return true
		}
		st.Current[res] = level
	}
	return true
}

// hpg requests the online-core floor and raises or drops the boost signal
// only when crossing BoostCores.
func (p *pass) hpg(cores int) {
	st := &p.a.state
	if !p.a.features.Enabled[floor.HPG] || st.Current[floor.HPG] == cores {
		return
	}
	if !p.emit(floor.HPG, cores) {
		return
	}
	st.Current[floor.HPG] = cores
	if !p.a.features.HPGBoost {
		return
	}
	on := cores > BoostCores
	if on == st.Boosted || p.err != nil {
		return
	}
	if err := p.a.sink.Boost(on); err != nil {
		p.err = fmt.Errorf("boost %v: %w", on, err)
		return
	}
	slog.Info("applier: boost", "on", on, "cores", cores)
	st.Boosted = on
}

func (p *pass) affinity(cpus string) {
	st := &p.a.state
	if cpus == "" || cpus == st.CPUs || p.err != nil {
		return
	}
	if err := p.a.sink.SetAffinity(cpus); err != nil {
		p.err = fmt.Errorf("affinity %q: %w", cpus, err)
		return
	}
	p.writes++
	st.CPUs = cpus
}

// #endregion pass
