package domain

// StandardLightRatio is the light share of the 12-on/12-off reference cycle
const StandardLightRatio = 0.5

// EnergyBalance returns the hours of light saved (positive) or overspent
// (negative) compared to a 12/12 reference over the same elapsed time.
// Before the start instant nothing has been consumed and the balance is 0.
func EnergyBalance(cfg CycleConfig, elapsedHours float64) float64 {
	if elapsedHours < 0 {
		return 0
	}
	custom := cfg.LightRatio() * elapsedHours
	standard := StandardLightRatio * elapsedHours
	return standard - custom
}
