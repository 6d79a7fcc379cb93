package floor

import (
	"errors"
	"fmt"
)

// #region resource
// Resource identifies one independently requested hardware floor.
type Resource int

const (
	IntCam Resource = iota
	TNR
	CSIS
	ISP
	Int
	MIF
	I2C
	Cam
	Disp
	HPG

	// ResourceCount is the number of floor columns per scenario row.
	ResourceCount
)

var resourceNames = [ResourceCount]string{
	IntCam: "int_cam",
	TNR:    "tnr",
	CSIS:   "csis",
	ISP:    "isp",
	Int:    "int",
	MIF:    "mif",
	I2C:    "i2c",
	Cam:    "cam",
	Disp:   "disp",
	HPG:    "hpg",
}

func (r Resource) String() string {
	if r < 0 || r >= ResourceCount {
		return fmt.Sprintf("resource(%d)", int(r))
	}
	return resourceNames[r]
}

// ParseResource maps a platform-file column name to a Resource.
func ParseResource(name string) (Resource, bool) {
	for r, n := range resourceNames {
		if n == name {
			return Resource(r), true
		}
	}
	return 0, false
}

// Resources lists every resource in column order.
func Resources() []Resource {
	out := make([]Resource, ResourceCount)
	for i := range out {
		out[i] = Resource(i)
	}
	return out
}

// #endregion resource

// #region errors
// ErrTable is wrapped by every out-of-bounds lookup.
var ErrTable = errors.New("floor table lookup")

// TableError reports which coordinate of a lookup was out of range.
type TableError struct {
	Field string
	Value int
	Limit int
}

func (e *TableError) Error() string {
	return fmt.Sprintf("%s: %s %d out of range [0, %d)", ErrTable, e.Field, e.Value, e.Limit)
}

func (e *TableError) Unwrap() error {
	return ErrTable
}

// #endregion errors

// #region hal
// HAL versions that select a table.
const (
	HALVersion1_0 = "1.0"
	HALVersion3_2 = "3.2"
)

// #endregion hal
