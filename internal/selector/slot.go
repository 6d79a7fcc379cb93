package selector

import "github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"

// #region hysteresis
// Hysteresis is the remaining lifetime of a slot's scenario. A disabled
// value never expires on its own.
type Hysteresis struct {
	counting bool
	n        uint32
}

// Disabled returns a hysteresis that never counts down.
func Disabled() Hysteresis { return Hysteresis{} }

// CountingDown returns a hysteresis with n frames remaining.
func CountingDown(n uint32) Hysteresis { return Hysteresis{counting: true, n: n} }

// FromTicks converts a catalog tick value; negative means disabled.
func FromTicks(ticks int) Hysteresis {
	if ticks < 0 {
		return Disabled()
	}
	return CountingDown(uint32(ticks))
}

// Counting reports whether the value is counting down.
func (h Hysteresis) Counting() bool { return h.counting }

// Remaining returns the frames left, 0 when disabled.
func (h Hysteresis) Remaining() uint32 { return h.n }

// Int is the signed view used in logs and persisted state, -1 when disabled.
func (h Hysteresis) Int() int {
	if !h.counting {
		return -1
	}
	return int(h.n)
}

// step decrements a counting value. expired is true when the decrement
// crossed below zero, which leaves the value disabled.
func (h Hysteresis) step() (next Hysteresis, expired bool) {
	if !h.counting {
		return h, false
	}
	if h.n == 0 {
		return Disabled(), true
	}
	return CountingDown(h.n - 1), false
}

// #endregion hysteresis

// #region slot
// Slot holds the scenario currently resolved for one selector category.
type Slot struct {
	Current catalog.ScenarioID
	Ticks   Hysteresis
	Index   int
}

func newSlot(index int) Slot {
	return Slot{Current: catalog.Unset, Ticks: Disabled(), Index: index}
}

func (s *Slot) set(id catalog.ScenarioID, ticks int) {
	s.Current = id
	s.Ticks = FromTicks(ticks)
}

func (s *Slot) clear() {
	s.Current = catalog.Unset
	s.Ticks = Disabled()
}

// #endregion slot
