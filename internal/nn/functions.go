package nn

const defaultSaturationLimit = 1000.0

// Saturation clamps values to the default range [-1000, 1000].
func Saturation(value float64) float64 {
	return SaturationWithSpread(value, defaultSaturationLimit)
}

// SaturationWithSpread clamps values to the symmetric range [-spread, spread].
func SaturationWithSpread(value, spread float64) float64 {
	if spread < 0 {
		spread = -spread
	}
	if value > spread {
		return spread
	}
	if value < -spread {
		return -spread
	}
	return value
}

// Sat clamps value to [min, max].
func Sat(value, max, min float64) float64 {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}
