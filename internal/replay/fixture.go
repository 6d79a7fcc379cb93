package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/config"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/engine"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/trace"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Platform        string                  `json:"platform,omitempty"` // platform YAML, relative to the fixture; empty uses the reference platform
	Records         []trace.Record          `json:"records"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureExpectedResult is one decision the replay must produce for the
// record with the given seq.
type FixtureExpectedResult struct {
	Seq      int64  `json:"seq"`
	Category string `json:"category"`
	Action   string `json:"action"`
	Scenario string `json:"scenario"` // display name, e.g. REAR_SINGLE_WIDE_CAPTURE
}

// Mismatch describes an expected decision that did not occur.
type Mismatch struct {
	Seq  int64
	Want string
	Got  string
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for _, r := range f.Records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("fixture %s: %w", path, err)
		}
	}
	return &f, nil
}

// ToReplayConfig loads the fixture's platform, resolved against dir.
func (f *Fixture) ToReplayConfig(dir string) (ReplayConfig, error) {
	if f.Platform == "" {
		return DefaultReplayConfig()
	}
	p, err := config.Load(filepath.Join(dir, f.Platform))
	if err != nil {
		return ReplayConfig{}, err
	}
	cfg, err := engine.ConfigFromPlatform(p)
	if err != nil {
		return ReplayConfig{}, err
	}
	return ReplayConfig{Engine: cfg}, nil
}

// Compare checks every expected decision against the replay results.
func Compare(results []ReplayResult, expected []FixtureExpectedResult) []Mismatch {
	bySeq := make(map[int64]ReplayResult, len(results))
	for _, r := range results {
		bySeq[r.Seq] = r
	}

	var out []Mismatch
	for _, exp := range expected {
		want := fmt.Sprintf("%s %s %s", exp.Category, exp.Action, exp.Scenario)
		r, ok := bySeq[exp.Seq]
		if !ok {
			out = append(out, Mismatch{Seq: exp.Seq, Want: want, Got: "no such record"})
			continue
		}
		if !matches(r.Decisions, exp) {
			out = append(out, Mismatch{Seq: exp.Seq, Want: want, Got: describe(r)})
		}
	}
	return out
}

func matches(decisions []engine.FrameResult, exp FixtureExpectedResult) bool {
	for _, d := range decisions {
		if d.Category == exp.Category && d.Action == exp.Action && d.Name == exp.Scenario {
			return true
		}
	}
	return false
}

func describe(r ReplayResult) string {
	if r.Err != "" {
		return "error: " + r.Err
	}
	if len(r.Decisions) == 0 {
		return "none"
	}
	s := ""
	for i, d := range r.Decisions {
		if i > 0 {
			s += "; "
		}
		s += fmt.Sprintf("%s %s %s", d.Category, d.Action, d.Name)
	}
	return s
}

// #endregion fixture-loader
