package logic

import "github.com/chewxy/math32"

// CoolingOn decides whether the fan should run: only while the group is
// strictly above target. A non-numeric or infinite group temperature
// (disconnected sensor) always resolves to off. This is threshold control
// only; output polarity is handled by the fan driver.
func CoolingOn(group, target float32) bool {
	if math32.IsNaN(group) || math32.IsInf(group, 0) {
		return false
	}
	return group > target
}
