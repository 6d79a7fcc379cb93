package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/floor"
)

const minimal = `
tables:
  - scenarios:
      default_: {int: 0}
      max_: {int: 800000, cpus: "0-7"}
`

func TestLoad(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "platform.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Name != "test-board" || p.DualTick != 3 || !p.Standby {
		t.Errorf("unexpected header %+v", p)
	}
	if p.TickConfig().KeepFrameTickDefault != 6 {
		t.Errorf("keep frame tick = %d", p.TickConfig().KeepFrameTickDefault)
	}
	if l := p.SensorLayout(); l.Macro != 6 || l.Tele2 != -1 {
		t.Errorf("unexpected layout %+v", l)
	}

	cat, tbl, err := p.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cat.Ticks(catalog.RearSingleWideCapture) != 9 {
		t.Errorf("capture ticks = %d, want 9", cat.Ticks(catalog.RearSingleWideCapture))
	}
	got, err := tbl.GetFloor(0, floor.MIF, catalog.RearSingleWideVideoUHD60)
	if err != nil || got != 2093000 {
		t.Errorf("uhd60 mif = %d, %v", got, err)
	}
	cpus, _ := tbl.GetAffinity(0, catalog.RearSingleWideVideoUHD60)
	if cpus != "0-3,6-7" {
		t.Errorf("cpus = %q", cpus)
	}
	if !tbl.Configured(catalog.RearSingleWidePhoto) || tbl.Configured(catalog.ExtRearSingle) {
		t.Error("configured rows do not match the file")
	}
}

func TestFeaturesAndDual(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "platform.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := p.Features()
	if f.Enabled[floor.Disp] || !f.Enabled[floor.MIF] {
		t.Errorf("unexpected enable flags %v", f.Enabled)
	}
	if f.Throttle[floor.Int] != 100000 || f.Throttle[floor.MIF] != 421000 {
		t.Errorf("unexpected throttle %v", f.Throttle)
	}
	if _, ok := f.Throttle[floor.IntCam]; ok {
		t.Error("int_cam throttle must follow the file")
	}

	d := p.DualConfig()
	if d.DualTick != 3 || !d.Standby || d.Layout.Macro != 6 {
		t.Errorf("unexpected dual config %+v", d)
	}
}

func TestParseMinimalUsesDefaults(t *testing.T) {
	p, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.TickConfig() != catalog.DefaultTickConfig() {
		t.Errorf("tick config = %+v", p.TickConfig())
	}
	if p.DualConfig().DualTick != 4 {
		t.Errorf("dual tick = %d", p.DualConfig().DualTick)
	}
	if p.SensorLayout().Tele != 2 {
		t.Errorf("layout = %+v", p.SensorLayout())
	}
	if len(p.Features().Throttle) != 3 {
		t.Errorf("throttle = %v", p.Features().Throttle)
	}
}

func TestSchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no tables", "name: x\n"},
		{"negative floor", "tables:\n  - scenarios:\n      max_: {int: -1}\n"},
		{"unknown resource column", "tables:\n  - scenarios:\n      max_: {gpu: 1}\n"},
		{"bad cpus", "tables:\n  - scenarios:\n      max_: {cpus: \"all\"}\n"},
		{"unknown top-level key", "extra: 1\n" + minimal},
		{"too many tables", "tables: [{scenarios: {max_: {}}}, {scenarios: {max_: {}}}, {scenarios: {max_: {}}}, {scenarios: {max_: {}}}]\n"},
		{"throttle on cam", "throttle: {cam: 1}\n" + minimal},
		{"position out of range", "layout: {wide: 16}\n" + minimal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSchema([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected schema error")
			}
			if !strings.Contains(err.Error(), "platform schema") {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown scenario", "tables:\n  - scenarios:\n      default_: {}\n      max_: {}\n      rear_quad_photo_: {}\n", "unknown scenario"},
		{"missing max", "tables:\n  - scenarios:\n      default_: {}\n", "missing MAX"},
		{"layout collision", "layout: {tele: 0}\n" + minimal, "share position"},
		{"hal on wrong table", "tables:\n  - hal_version: \"3.2\"\n    scenarios:\n      default_: {}\n      max_: {}\n", "hal version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestDefaultPlatformRoundTrip(t *testing.T) {
	def := DefaultPlatform()
	if err := def.Validate(); err != nil {
		t.Fatalf("default platform invalid: %v", err)
	}
	data, err := def.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	path := filepath.Join(t.TempDir(), "platform.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	cat, tbl, err := p.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if tbl.TableCount() != 2 {
		t.Fatalf("tables = %d", tbl.TableCount())
	}
	for _, d := range cat.All() {
		if !tbl.Configured(d.ID) {
			t.Errorf("%s not configured", d.Key)
		}
	}

	maxMIF, _ := tbl.GetFloor(0, floor.MIF, catalog.Max)
	photoMIF, _ := tbl.GetFloor(0, floor.MIF, catalog.RearSingleWidePhoto)
	uhdMIF0, _ := tbl.GetFloor(0, floor.MIF, catalog.RearSingleWideVideoUHD60)
	uhdMIF1, _ := tbl.GetFloor(1, floor.MIF, catalog.RearSingleWideVideoUHD60)
	if !(maxMIF > uhdMIF0 && uhdMIF0 > photoMIF) {
		t.Errorf("mif tiers not ordered: max=%d uhd60=%d photo=%d", maxMIF, uhdMIF0, photoMIF)
	}
	if uhdMIF1 >= uhdMIF0 {
		t.Errorf("table 1 mif %d should be below table 0 %d", uhdMIF1, uhdMIF0)
	}
}

func TestTierOf(t *testing.T) {
	tests := map[string]int{
		"default_":                            0,
		"rear_single_wide_photo_":             1,
		"rear_single_wide_video_fhd60_":       2,
		"rear_single_wide_video_uhd60_":       3,
		"rear_single_wide_capture_":           3,
		"rear_single_wide_video_8k30_":        4,
		"triple_video_fhd30_":                 3,
		"max_":                                5,
		"front_single_video_fhd30_":           1,
		"rear_single_ultrawide_video_fhd120_": 2,
	}
	for key, want := range tests {
		if got := tierOf(key); got != want {
			t.Errorf("tierOf(%q) = %d, want %d", key, got, want)
		}
	}
}
