package snapshot

// Scenario control word layout, as written by the camera HAL.
const (
	CommonPhoto = 1
	CommonVideo = 2

	commonMask  = 0xffff
	vendorShift = 16
	vendorMask  = 0xffff
	heightShift = 16
	widthMask   = 0xffff
)

// ScenarioControl is the decoded scenario control word.
type ScenarioControl struct {
	Common int
	Vendor Vendor
}

// DecodeScenarioControl splits the control word into the common mode (low
// half) and the vendor sub-mode (high half).
func DecodeScenarioControl(v uint32) ScenarioControl {
	return ScenarioControl{
		Common: int(v & commonMask),
		Vendor: Vendor((v >> vendorShift) & vendorMask),
	}
}

// EncodeScenarioControl is the inverse of DecodeScenarioControl.
func EncodeScenarioControl(c ScenarioControl) uint32 {
	return uint32(c.Common)&commonMask | (uint32(c.Vendor)&vendorMask)<<vendorShift
}

// DecodeRecordSize splits the record-size control into width and height.
func DecodeRecordSize(v uint32) (width, height int) {
	return int(v & widthMask), int(v >> heightShift)
}

// EncodeRecordSize packs width and height into one control value.
func EncodeRecordSize(width, height int) uint32 {
	return uint32(width)&widthMask | uint32(height)<<heightShift
}

// ApplyControls fills the control-derived fields of in.
func (in *Input) ApplyControls(scenario, recordSize uint32) {
	c := DecodeScenarioControl(scenario)
	in.Common = c.Common
	in.Vendor = c.Vendor
	in.RecordWidth, in.RecordHeight = DecodeRecordSize(recordSize)
}
