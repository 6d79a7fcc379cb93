package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/applier"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/dual"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/floor"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
)

//go:embed platform.schema.json
var schemaJSON []byte

const schemaURL = "platform.schema.json"

// #region platform
// Platform is the parsed platform description: the floor tables plus the
// feature switches that shape how they are applied.
type Platform struct {
	Name                 string           `yaml:"name,omitempty" json:"name"`
	KeepFrameTickDefault *int             `yaml:"keep_frame_tick_default,omitempty" json:"keep_frame_tick_default,omitempty"`
	DualTick             int              `yaml:"dual_tick,omitempty" json:"dual_tick,omitempty"`
	Standby              bool             `yaml:"standby" json:"standby"`
	HPGBoost             *bool            `yaml:"hpg_boost,omitempty" json:"hpg_boost,omitempty"`
	Layout               *snapshot.Layout `yaml:"layout,omitempty" json:"layout,omitempty"`
	Resources            map[string]bool  `yaml:"resources,omitempty" json:"resources,omitempty"`
	Throttle             map[string]int   `yaml:"throttle,omitempty" json:"throttle,omitempty"`
	Tables               []TableSpec      `yaml:"tables" json:"tables"`
}

// TableSpec is one floor table keyed by scenario key.
type TableSpec struct {
	HALVersion string             `yaml:"hal_version,omitempty" json:"hal_version,omitempty"`
	Scenarios  map[string]RowSpec `yaml:"scenarios" json:"scenarios"`
}

// RowSpec is one scenario's floors by resource name plus its CPU affinity.
type RowSpec struct {
	Floors map[string]int `yaml:",inline" json:"-"`
	CPUs   string         `yaml:"cpus,omitempty" json:"cpus,omitempty"`
}

// MarshalJSON flattens the floors next to cpus, matching the YAML shape.
func (r RowSpec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Floors)+1)
	for k, v := range r.Floors {
		out[k] = v
	}
	if r.CPUs != "" {
		out["cpus"] = r.CPUs
	}
	return json.Marshal(out)
}

// #endregion platform

// #region load
// Load reads a platform file, checks it against the embedded schema and
// validates it.
func Load(path string) (*Platform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read platform file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates platform YAML.
func Parse(data []byte) (*Platform, error) {
	if err := CheckSchema(data); err != nil {
		return nil, err
	}

	layout := snapshot.DefaultLayout()
	p := Platform{Layout: &layout}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse platform: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid platform: %w", err)
	}
	return &p, nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// CheckSchema validates raw platform YAML against the embedded JSON schema.
// The YAML tree is re-encoded as JSON so numbers reach the validator in the
// form it expects.
func CheckSchema(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parse platform: %w", err)
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("platform to json: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("platform to json: %w", err)
	}
	if err := s.Validate(payload); err != nil {
		return fmt.Errorf("platform schema: %w", err)
	}
	return nil
}

// #endregion load

// #region validate
// Validate checks what the schema cannot: scenario keys must name catalog
// scenarios, every table needs default and max rows, and layout positions
// must not collide.
func (p *Platform) Validate() error {
	if len(p.Tables) == 0 || len(p.Tables) > floor.MaxTables {
		return fmt.Errorf("table count %d out of range [1, %d]", len(p.Tables), floor.MaxTables)
	}
	cat := catalog.New(p.TickConfig())
	halIndex := map[string]int{floor.HALVersion1_0: 0, floor.HALVersion3_2: 1}
	for i, t := range p.Tables {
		if want, ok := halIndex[t.HALVersion]; t.HALVersion != "" && (!ok || want != i) {
			return fmt.Errorf("table %d: hal version %q does not select this table", i, t.HALVersion)
		}
		for key, row := range t.Scenarios {
			if _, ok := cat.Lookup(key); !ok {
				return fmt.Errorf("table %d: unknown scenario %q", i, key)
			}
			for name, v := range row.Floors {
				if _, ok := floor.ParseResource(name); !ok {
					return fmt.Errorf("table %d: scenario %q: unknown resource %q", i, key, name)
				}
				if v < 0 {
					return fmt.Errorf("table %d: scenario %q: negative %s floor", i, key, name)
				}
			}
		}
		for _, required := range []catalog.ScenarioID{catalog.Default, catalog.Max} {
			if !t.has(cat, required) {
				return fmt.Errorf("table %d: missing %s row", i, cat.Name(required))
			}
		}
	}
	for name := range p.Resources {
		if _, ok := floor.ParseResource(name); !ok {
			return fmt.Errorf("unknown resource %q", name)
		}
	}
	for name := range p.Throttle {
		res, ok := floor.ParseResource(name)
		if !ok || (res != floor.Int && res != floor.IntCam && res != floor.MIF) {
			return fmt.Errorf("resource %q cannot be throttled", name)
		}
	}
	return validateLayout(p.layout())
}

func (t TableSpec) has(cat *catalog.Catalog, id catalog.ScenarioID) bool {
	for key := range t.Scenarios {
		if got, ok := cat.Lookup(key); ok && got == id {
			return true
		}
	}
	return false
}

func validateLayout(l snapshot.Layout) error {
	seen := map[snapshot.Position]string{}
	roles := []struct {
		name string
		pos  snapshot.Position
	}{
		{"wide", l.Wide}, {"front", l.Front}, {"tele", l.Tele},
		{"tele2", l.Tele2}, {"ultrawide", l.UltraWide}, {"macro", l.Macro},
	}
	for _, r := range roles {
		if r.pos == snapshot.NoPosition {
			continue
		}
		if r.pos < 0 || r.pos >= snapshot.MaxPositions {
			return fmt.Errorf("layout: %s position %d out of range", r.name, r.pos)
		}
		if other, dup := seen[r.pos]; dup {
			return fmt.Errorf("layout: %s and %s share position %d", other, r.name, r.pos)
		}
		seen[r.pos] = r.name
	}
	if l.Wide == snapshot.NoPosition {
		return fmt.Errorf("layout: wide position is required")
	}
	return nil
}

// #endregion validate

// #region build
// TickConfig returns the catalog tick settings.
func (p *Platform) TickConfig() catalog.TickConfig {
	tc := catalog.DefaultTickConfig()
	if p.KeepFrameTickDefault != nil {
		tc.KeepFrameTickDefault = *p.KeepFrameTickDefault
	}
	return tc
}

func (p *Platform) layout() snapshot.Layout {
	if p.Layout != nil {
		return *p.Layout
	}
	return snapshot.DefaultLayout()
}

// SensorLayout returns the sensor position layout.
func (p *Platform) SensorLayout() snapshot.Layout {
	return p.layout()
}

// DualConfig returns the dual tracker settings.
func (p *Platform) DualConfig() dual.Config {
	cfg := dual.DefaultConfig()
	cfg.Layout = p.layout()
	cfg.Standby = p.Standby
	if p.DualTick > 0 {
		cfg.DualTick = p.DualTick
	}
	return cfg
}

// Features returns the applier feature set. Resources missing from the
// resources map are enabled; a missing throttle map keeps the defaults.
func (p *Platform) Features() applier.Features {
	f := applier.DefaultFeatures()
	for name, on := range p.Resources {
		if res, ok := floor.ParseResource(name); ok {
			f.Enabled[res] = on
		}
	}
	if p.Throttle != nil {
		f.Throttle = make(map[floor.Resource]int, len(p.Throttle))
		for name, level := range p.Throttle {
			if res, ok := floor.ParseResource(name); ok {
				f.Throttle[res] = level
			}
		}
	}
	if p.HPGBoost != nil {
		f.HPGBoost = *p.HPGBoost
	}
	return f
}

// Build creates the scenario catalog and floor table described by p.
func (p *Platform) Build() (*catalog.Catalog, *floor.Table, error) {
	cat := catalog.New(p.TickConfig())
	tbl, err := floor.NewTable(len(p.Tables))
	if err != nil {
		return nil, nil, err
	}
	for idx, t := range p.Tables {
		for key, spec := range t.Scenarios {
			id, ok := cat.Lookup(key)
			if !ok {
				return nil, nil, fmt.Errorf("table %d: unknown scenario %q", idx, key)
			}
			var row floor.Row
			for name, v := range spec.Floors {
				res, ok := floor.ParseResource(name)
				if !ok {
					return nil, nil, fmt.Errorf("table %d: unknown resource %q", idx, name)
				}
				row.Floors[res] = v
			}
			row.CPUs = spec.CPUs
			if err := tbl.SetRow(idx, id, row); err != nil {
				return nil, nil, fmt.Errorf("table %d: %w", idx, err)
			}
		}
	}
	return cat, tbl, nil
}

// Encode renders p as YAML.
func (p *Platform) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encode platform: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode platform: %w", err)
	}
	return buf.Bytes(), nil
}

// #endregion build
