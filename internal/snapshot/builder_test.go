package snapshot

import (
	"errors"
	"testing"
)

func testLayout() Layout {
	l := DefaultLayout()
	l.Macro = 8
	return l
}

func videoInput(sensorMap uint32, w, h, fps int) Input {
	return Input{
		SensorMap:    sensorMap,
		Common:       CommonVideo,
		SensorFPS:    fps,
		SensorWidth:  4000,
		SensorHeight: 3000,
		RecordWidth:  w,
		RecordHeight: h,
	}
}

func TestIsPositionActive(t *testing.T) {
	tests := []struct {
		name      string
		pos       Position
		fps       int
		throttled bool
		standby   bool
		want      bool
	}{
		{"below default threshold", 0, 4, false, false, false},
		{"at default threshold", 0, 5, false, false, true},
		{"standby needs ten", 0, 9, false, true, false},
		{"standby at ten", 0, 10, false, true, true},
		{"throttled any nonzero", 2, 1, true, true, true},
		{"throttled zero", 2, 0, true, false, false},
		{"disabled position", NoPosition, 30, false, false, false},
		{"position out of range", MaxPositions, 30, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPositionActive(tt.pos, tt.fps, tt.throttled, tt.standby); got != tt.want {
				t.Errorf("IsPositionActive(%d, %d, %v, %v) = %v, want %v",
					tt.pos, tt.fps, tt.throttled, tt.standby, got, tt.want)
			}
		})
	}
}

func TestBuildRearSingleWideVideo(t *testing.T) {
	l := testLayout()
	snap := Build(videoInput(l.Wide.Mask(), 1920, 1080, 60), l)

	if !snap.Valid() {
		t.Fatalf("unexpected error: %v", snap.Err)
	}
	if snap.Facing != FacingRear || snap.Count != CountSingle || snap.Sensor != SensorWide {
		t.Fatalf("unexpected topology %s/%s/%s", snap.Facing, snap.Count, snap.Sensor)
	}
	if snap.Mode != ModeVideo || snap.Resolution != ResolutionFHD || snap.FPS != FPS60 {
		t.Fatalf("unexpected classes %s/%s/%d", snap.Mode, snap.Resolution, snap.FPS)
	}
}

func TestBuildFacingAndCount(t *testing.T) {
	l := testLayout()
	tests := []struct {
		name   string
		smap   uint32
		facing Facing
		count  Count
		sensor Sensor
	}{
		{"front single", l.Front.Mask(), FacingFront, CountSingle, SensorFront},
		{"wide tele", l.Wide.Mask() | l.Tele.Mask(), FacingRear, CountDual, SensorWideTele},
		{"wide tele2", l.Wide.Mask() | l.Tele2.Mask(), FacingRear, CountDual, SensorWideTele},
		{"wide ultrawide", l.Wide.Mask() | l.UltraWide.Mask(), FacingRear, CountDual, SensorWideUltraWide},
		{"wide macro", l.Wide.Mask() | l.Macro.Mask(), FacingRear, CountDual, SensorWideMacro},
		{"rear triple", l.Wide.Mask() | l.Tele.Mask() | l.UltraWide.Mask(), FacingRear, CountTriple, SensorTriple},
		{"pip dual", l.Wide.Mask() | l.Front.Mask(), FacingPIP, CountDual, SensorPIP},
		{"pip triple", l.Wide.Mask() | l.Tele.Mask() | l.Front.Mask(), FacingPIP, CountTriple, SensorTriple},
		{"single tele", l.Tele.Mask(), FacingRear, CountSingle, SensorTele},
		{"single macro", l.Macro.Mask(), FacingRear, CountSingle, SensorMacro},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Build(videoInput(tt.smap, 1920, 1080, 30), l)
			if !snap.Valid() {
				t.Fatalf("unexpected error: %v", snap.Err)
			}
			if snap.Facing != tt.facing || snap.Count != tt.count || snap.Sensor != tt.sensor {
				t.Errorf("got %s/%s/%s, want %s/%s/%s",
					snap.Facing, snap.Count, snap.Sensor, tt.facing, tt.count, tt.sensor)
			}
		})
	}
}

func TestBuildRejectsIllegalPairing(t *testing.T) {
	l := testLayout()
	snap := Build(videoInput(l.Tele.Mask()|l.UltraWide.Mask(), 1920, 1080, 30), l)

	if snap.Valid() {
		t.Fatalf("expected tele+ultrawide to be rejected, got %s", snap.Sensor)
	}
	var de *DerivationError
	if !errors.As(snap.Err, &de) || de.Field != "sensor" {
		t.Fatalf("expected sensor derivation error, got %v", snap.Err)
	}
	if !errors.Is(snap.Err, ErrInvalid) {
		t.Error("expected error to wrap ErrInvalid")
	}
}

func TestBuildEmptyMapIsInvalid(t *testing.T) {
	snap := Build(videoInput(0, 1920, 1080, 30), testLayout())
	if snap.Valid() {
		t.Fatal("expected empty sensor map to be invalid")
	}
}

func TestBuildSpecialModes(t *testing.T) {
	l := testLayout()
	tests := []struct {
		name string
		smap uint32
		mod  func(*Input)
		want Sensor
	}{
		{"wide fastae", l.Wide.Mask(), func(in *Input) { in.Special = SpecialFastAE }, SensorWideFastAE},
		{"wide remosaic", l.Wide.Mask(), func(in *Input) { in.Special = SpecialRemosaic }, SensorWideRemosaic},
		{"wide ssm", l.Wide.Mask(), func(in *Input) { in.Vendor = VendorSSM }, SensorWideSSM},
		{"tele remosaic", l.Tele.Mask(), func(in *Input) { in.Special = SpecialRemosaic }, SensorTeleRemosaic},
		{"ultrawide ssm", l.UltraWide.Mask(), func(in *Input) { in.Vendor = VendorSSM }, SensorUltraWideSSM},
		{"macro fastae", l.Macro.Mask(), func(in *Input) { in.Special = SpecialFastAE }, SensorWideFastAE},
		{"front secure", l.Front.Mask(), func(in *Input) { in.Secure = true }, SensorFrontSecure},
		{"front vt", l.Front.Mask(), func(in *Input) { in.Vendor = VendorVT }, SensorFrontVT},
		{"front fastae beats secure", l.Front.Mask(), func(in *Input) { in.Special = SpecialFastAE; in.Secure = true }, SensorFrontFastAE},
		{"pip fastae", l.Wide.Mask() | l.Front.Mask(), func(in *Input) { in.Special = SpecialFastAE }, SensorWideFastAE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := videoInput(tt.smap, 1920, 1080, 30)
			tt.mod(&in)
			snap := Build(in, l)
			if !snap.Valid() {
				t.Fatalf("unexpected error: %v", snap.Err)
			}
			if snap.Sensor != tt.want {
				t.Errorf("got %s, want %s", snap.Sensor, tt.want)
			}
		})
	}
}

func TestBuildHighFreqOnlyForSingle(t *testing.T) {
	l := testLayout()

	in := videoInput(l.Wide.Mask(), 1920, 1080, 60)
	in.HighFreq = true
	if snap := Build(in, l); !snap.HighFreq {
		t.Error("expected high frequency flag on single wide")
	}

	in = videoInput(l.Wide.Mask()|l.Tele.Mask(), 1920, 1080, 60)
	in.HighFreq = true
	if snap := Build(in, l); snap.HighFreq {
		t.Error("expected high frequency flag cleared on dual")
	}
}

func TestBuildDualMasking(t *testing.T) {
	l := testLayout()
	in := videoInput(l.Wide.Mask()|l.Tele.Mask(), 1920, 1080, 30)
	in.DualEngaged = true
	in.MaxFPS[l.Wide] = 30
	in.MaxFPS[l.Tele] = 0

	snap := Build(in, l)
	if !snap.Valid() {
		t.Fatalf("unexpected error: %v", snap.Err)
	}
	if snap.ActiveMap != l.Wide.Mask() {
		t.Fatalf("expected tele masked out, active=0x%x", snap.ActiveMap)
	}
	if snap.Count != CountSingle || snap.Sensor != SensorWide {
		t.Errorf("expected single wide, got %s/%s", snap.Count, snap.Sensor)
	}
}

func TestBuildDualMaskingEmptyFallback(t *testing.T) {
	l := testLayout()
	smap := l.Wide.Mask() | l.Tele.Mask()

	t.Run("8k restores unmasked map", func(t *testing.T) {
		in := videoInput(smap, 7680, 4320, 30)
		in.DualEngaged = true
		snap := Build(in, l)
		if !snap.Valid() {
			t.Fatalf("unexpected error: %v", snap.Err)
		}
		if snap.ActiveMap != smap || snap.Sensor != SensorWideTele {
			t.Errorf("expected unmasked dual, got active=0x%x sensor=%s", snap.ActiveMap, snap.Sensor)
		}
	})

	t.Run("uhd stays empty", func(t *testing.T) {
		in := videoInput(smap, 3840, 2160, 30)
		in.DualEngaged = true
		snap := Build(in, l)
		if snap.Valid() {
			t.Fatalf("expected invalid snapshot, got %s", snap.Sensor)
		}
	})
}

func TestClassifyResolution(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		w, h int
		want Resolution
		err  bool
	}{
		{"fhd", ModeVideo, 1920, 1080, ResolutionFHD, false},
		{"just under fhd threshold", ModeVideo, 1920 * 3, 1079, ResolutionFHD, false},
		{"uhd", ModeVideo, 3840, 2160, ResolutionUHD, false},
		{"8k", ModeVideo, 7680, 4320, ResolutionEightK, false},
		{"too large", ModeVideo, 7680 * 3, 4320, "", true},
		{"full sensor in photo", ModePhoto, 4000, 3000, ResolutionFullSensor, false},
		{"full sensor size in video", ModeVideo, 4000, 3000, ResolutionUHD, false},
		{"full sensor size in capture", ModeCapture, 4000, 3000, ResolutionUHD, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyResolution(tt.mode, tt.w, tt.h, 4000, 3000)
			if tt.err {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyFPS(t *testing.T) {
	tests := []struct {
		fps  int
		want FPSClass
	}{
		{15, FPS24}, {24, FPS24}, {25, FPS30}, {30, FPS30}, {60, FPS60},
		{120, FPS120}, {240, FPS240}, {480, FPS480},
	}
	for _, tt := range tests {
		got, err := ClassifyFPS(tt.fps)
		if err != nil || got != tt.want {
			t.Errorf("ClassifyFPS(%d) = %d, %v; want %d", tt.fps, got, err, tt.want)
		}
	}
	if _, err := ClassifyFPS(960); err == nil {
		t.Error("expected 960fps to be rejected")
	}
}

func TestBuildModeFromControls(t *testing.T) {
	l := testLayout()
	in := Input{SensorMap: l.Wide.Mask(), SensorFPS: 30}
	in.ApplyControls(EncodeScenarioControl(ScenarioControl{Common: CommonPhoto, Vendor: VendorSuperSteady}),
		EncodeRecordSize(1920, 1080))

	snap := Build(in, l)
	if !snap.Valid() {
		t.Fatalf("unexpected error: %v", snap.Err)
	}
	if snap.Mode != ModePhoto || snap.Vendor != VendorSuperSteady {
		t.Errorf("got mode %s vendor %d", snap.Mode, snap.Vendor)
	}

	in.Capture = true
	if snap := Build(in, l); snap.Mode != ModeCapture {
		t.Errorf("expected capture flag to force capture, got %s", snap.Mode)
	}

	in.Capture = false
	in.Common = 0
	if snap := Build(in, l); snap.Valid() {
		t.Error("expected missing common mode to be invalid")
	}
}

func TestDecodeRecordSize(t *testing.T) {
	w, h := DecodeRecordSize(EncodeRecordSize(3840, 2160))
	if w != 3840 || h != 2160 {
		t.Errorf("got %dx%d", w, h)
	}
	c := DecodeScenarioControl(0x00040002)
	if c.Common != CommonVideo || c.Vendor != VendorSuperSteady {
		t.Errorf("unexpected control %+v", c)
	}
}
