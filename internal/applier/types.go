package applier

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/floor"
)

// #region sink
// Sink performs the actual floor requests. Implementations may block; the
// applier never calls a sink concurrently.
type Sink interface {
	Write(res floor.Resource, level int) error
	Boost(on bool) error
	SetAffinity(cpus string) error
}

// Op is one request recorded by a Recorder.
type Op struct {
	Kind     string // "write", "boost", "affinity", "bts" or "llc"
	Resource floor.Resource
	Level    int
	On       bool
	CPUs     string
	Ways     [2]int // llc: votf, mcfp
}

func (o Op) String() string {
	switch o.Kind {
	case "boost":
		return fmt.Sprintf("boost(%v)", o.On)
	case "affinity":
		return fmt.Sprintf("affinity(%s)", o.CPUs)
	case "bts":
		return fmt.Sprintf("bts(%d,%v)", o.Level, o.On)
	case "llc":
		if !o.On {
			return "llc(off)"
		}
		return fmt.Sprintf("llc(%d,%d)", o.Ways[0], o.Ways[1])
	default:
		return fmt.Sprintf("%s=%d", o.Resource, o.Level)
	}
}

// Recorder is an in-memory Sink used by replay and tests.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

func (r *Recorder) Write(res floor.Resource, level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: "write", Resource: res, Level: level})
	return nil
}

func (r *Recorder) Boost(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: "boost", On: on})
	return nil
}

func (r *Recorder) SetAffinity(cpus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: "affinity", CPUs: cpus})
	return nil
}

// SetBTSScenario records a bus-traffic scenario switch.
func (r *Recorder) SetBTSScenario(index int, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: "bts", Level: index, On: on})
	return nil
}

// AllocLLC records a last-level-cache way allocation.
func (r *Recorder) AllocLLC(votf, mcfp int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: "llc", On: true, Ways: [2]int{votf, mcfp}})
	return nil
}

// ReleaseLLC records the release of every camera cache region.
func (r *Recorder) ReleaseLLC() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: "llc"})
	return nil
}

// Ops returns a copy of everything recorded so far.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Drain returns the recorded ops and clears the log.
func (r *Recorder) Drain() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ops
	r.ops = nil
	return out
}

// #endregion sink

// #region features
// Features selects which resources this platform drives and which of them
// drop to a fixed level while frame-rate limiting is asserted.
type Features struct {
	Enabled  [floor.ResourceCount]bool
	Throttle map[floor.Resource]int
	HPGBoost bool // raise the boost signal when HPG asks for more than BoostCores
}

// Drives reports whether the applier writes res. DISP belongs to the display
// pipeline; its table column is carried but never written.
func (f Features) Drives(res floor.Resource) bool {
	return res != floor.Disp && f.Enabled[res]
}

// BoostCores is the online-core floor above which the boost signal is raised.
const BoostCores = 4

// DefaultFeatures enables every resource and throttles INT, INT_CAM and MIF.
func DefaultFeatures() Features {
	f := Features{
		Throttle: map[floor.Resource]int{
			floor.Int:    200000,
			floor.IntCam: 200000,
			floor.MIF:    845000,
		},
		HPGBoost: true,
	}
	for i := range f.Enabled {
		f.Enabled[i] = true
	}
	return f
}

// #endregion features

// #region state
// State is the process-wide view of what the hardware currently holds.
// Current is -1 for a resource that was never requested; ThrottleFloor is -1
// when no throttle level is active for the resource.
type State struct {
	Current         [floor.ResourceCount]int
	ThrottleFloor   [floor.ResourceCount]int
	Wanted          [floor.ResourceCount]int
	Boosted         bool
	CPUs            string
	BundleOperating bool
	LimitedFPS      int
	Scenario        catalog.ScenarioID
}

func newState() State {
	s := State{Scenario: catalog.Unset}
	for i := range s.Current {
		s.Current[i] = -1
		s.ThrottleFloor[i] = -1
		s.Wanted[i] = -1
	}
	return s
}

// Effective returns the level the hardware holds for res.
func (s State) Effective(res floor.Resource) int {
	if s.ThrottleFloor[res] >= 0 {
		return s.ThrottleFloor[res]
	}
	return s.Current[res]
}

// QoS renders the state the way the applier logs it.
func (s State) QoS(features Features) string {
	var b strings.Builder
	b.WriteString("New QoS [")
	for _, res := range floor.Resources() {
		if !features.Drives(res) {
			continue
		}
		fmt.Fprintf(&b, " %s(%d),", strings.ToUpper(res.String()), s.Effective(res))
	}
	fmt.Fprintf(&b, " BOOST(%v), CPU(%s)], L_FPS(%d)", s.Boosted, s.CPUs, s.LimitedFPS)
	return b.String()
}

// #endregion state

// #region errors
// ErrApply is wrapped by every aborted apply pass.
var ErrApply = errors.New("dvfs apply failed")

// ApplyError reports why an apply pass was aborted before any write.
type ApplyError struct {
	Scenario catalog.ScenarioID
	Resource string
	Err      error
}

func (e *ApplyError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: scenario %d %s: %v", ErrApply, e.Scenario, e.Resource, e.Err)
	}
	return fmt.Sprintf("%s: scenario %d: %v", ErrApply, e.Scenario, e.Err)
}

func (e *ApplyError) Unwrap() []error {
	return []error{ErrApply, e.Err}
}

// #endregion errors
