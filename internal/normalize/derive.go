package normalize

import (
	"math"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

const (
	// DaysPerYear is the orbital period of a body at 1 AU around a solar-mass star.
	DaysPerYear = 365.25
	// SolarRadiiPerAU converts stellar radii to astronomical units.
	SolarRadiiPerAU = 215.032
)

// SemiMajorAxisFromPeriod estimates orbital distance in AU from a period in
// days, assuming a circular orbit around a solar-mass star. Negative periods
// clamp to zero.
func SemiMajorAxisFromPeriod(periodDays float64) float64 {
	years := math.Max(periodDays/DaysPerYear, 0)
	return math.Pow(years, 2.0/3.0)
}

// EquilibriumTemperature estimates the zero-albedo equilibrium temperature in
// K from the stellar effective temperature (K), stellar radius (solar radii)
// and orbital distance (AU). It reports false when the distance is not
// positive or the result is not finite.
func EquilibriumTemperature(stellarTemp, stellarRadius, semiMajorAxis float64) (float64, bool) {
	if !(semiMajorAxis > 0) {
		return 0, false
	}
	rAU := stellarRadius / SolarRadiiPerAU
	t := stellarTemp * math.Sqrt(rAU/(2*semiMajorAxis))
	if !isFinite(t) {
		return 0, false
	}
	return t, true
}

// derive fills semi-major axis and equilibrium temperature when they were not
// supplied directly. Supplied values are never replaced.
func derive(row *model.CanonicalRow) {
	if row.SemiMajorAxis == nil && row.Period != nil {
		a := SemiMajorAxisFromPeriod(*row.Period)
		if isFinite(a) {
			row.SemiMajorAxis = &a
			row.SemiMajorAxisDerived = true
		}
	}

	if row.EquilibriumTemp == nil && row.StellarTemp != nil && row.StellarRadius != nil && row.SemiMajorAxis != nil {
		if t, ok := EquilibriumTemperature(*row.StellarTemp, *row.StellarRadius, *row.SemiMajorAxis); ok {
			row.EquilibriumTemp = &t
			row.EquilibriumTempDerived = true
		}
	}
}
