package config

import (
	"strings"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/floor"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
)

// #region tiers
// Floor levels per load tier. Tier 0 is the idle default row and tier 5 the
// max row.
var tierLevels = map[floor.Resource][6]int{
	floor.IntCam: {0, 400000, 533000, 663000, 800000, 800000},
	floor.TNR:    {0, 400000, 533000, 663000, 800000, 800000},
	floor.CSIS:   {0, 400000, 533000, 663000, 800000, 800000},
	floor.ISP:    {0, 400000, 533000, 663000, 800000, 800000},
	floor.Int:    {0, 200000, 400000, 534000, 664000, 800000},
	floor.MIF:    {0, 845000, 1539000, 2093000, 2730000, 3172000},
	floor.Cam:    {0, 400000, 533000, 663000, 800000, 800000},
	floor.HPG:    {0, 0, 0, 4, 6, 8},
}

func tierOf(key string) int {
	switch {
	case key == "default_":
		return 0
	case key == "max_":
		return 5
	case strings.Contains(key, "8k"):
		return 4
	}
	for _, hot := range []string{"uhd120", "fhd480", "fhd240", "uhd60", "ssm", "triple", "capture"} {
		if strings.Contains(key, hot) {
			return 3
		}
	}
	for _, warm := range []string{"fhd120", "uhd30", "fhd60", "remosaic", "pip"} {
		if strings.Contains(key, warm) {
			return 2
		}
	}
	return 1
}

// #endregion tiers

// #region default-platform
// DefaultPlatform returns a two-table reference platform (HAL 1.0 and 3.2)
// with every scenario configured by load tier. The 3.2 table runs MIF one
// tier lower.
func DefaultPlatform() *Platform {
	tick := catalog.DefaultTickConfig().KeepFrameTickDefault
	boost := true
	layout := snapshot.DefaultLayout()
	p := &Platform{
		Name:                 "reference",
		KeepFrameTickDefault: &tick,
		DualTick:             4,
		HPGBoost:             &boost,
		Layout:               &layout,
		Throttle: map[string]int{
			floor.Int.String():    200000,
			floor.IntCam.String(): 200000,
			floor.MIF.String():    845000,
		},
	}

	cat := catalog.New(p.TickConfig())
	for i, hal := range []string{floor.HALVersion1_0, floor.HALVersion3_2} {
		t := TableSpec{HALVersion: hal, Scenarios: map[string]RowSpec{}}
		for _, d := range cat.All() {
			tier := tierOf(d.Key)
			row := RowSpec{Floors: map[string]int{}}
			for res, levels := range tierLevels {
				lvl := levels[tier]
				if i == 1 && res == floor.MIF && tier > 1 && tier < 5 {
					lvl = levels[tier-1]
				}
				row.Floors[res.String()] = lvl
			}
			row.Floors[floor.I2C.String()] = 0
			row.Floors[floor.Disp.String()] = 0
			switch {
			case tier >= 4:
				row.CPUs = "0-7"
			case tier > 0:
				row.CPUs = "0-3"
			}
			t.Scenarios[d.Key] = row
		}
		p.Tables = append(p.Tables, t)
	}
	return p
}

// #endregion default-platform
