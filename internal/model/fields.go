package model

import "slices"

// FieldID names a canonical column.
type FieldID string

const (
	FieldName            FieldID = "name"
	FieldLabel           FieldID = "label"
	FieldTrueLabel       FieldID = "trueLabel"
	FieldPeriod          FieldID = "period"
	FieldSemiMajorAxis   FieldID = "semiMajorAxis"
	FieldRadius          FieldID = "radius"
	FieldEquilibriumTemp FieldID = "equilibriumTemp"
	FieldStellarTemp     FieldID = "stellarTemp"
	FieldStellarRadius   FieldID = "stellarRadius"
	FieldDiscoveryYear   FieldID = "discoveryYear"
	FieldHostStar        FieldID = "hostStar"
	FieldDiscoveryMethod FieldID = "discoveryMethod"
	FieldDuration        FieldID = "duration"
	FieldDepth           FieldID = "depth"
	FieldSNR             FieldID = "snr"
	FieldImpactParameter FieldID = "impactParameter"
	FieldInsolation      FieldID = "insolation"
	FieldRightAscension  FieldID = "rightAscension"
	FieldDeclination     FieldID = "declination"
	FieldTransitEpoch    FieldID = "transitEpoch"
)

// NumericFields lists the canonical float columns in display order.
var NumericFields = []FieldID{
	FieldPeriod, FieldSemiMajorAxis, FieldRadius, FieldEquilibriumTemp,
	FieldStellarTemp, FieldStellarRadius, FieldDuration, FieldDepth,
	FieldSNR, FieldImpactParameter, FieldInsolation, FieldRightAscension,
	FieldDeclination, FieldTransitEpoch,
}

// TextFields lists the canonical free-text columns.
var TextFields = []FieldID{FieldName, FieldTrueLabel, FieldHostStar, FieldDiscoveryMethod}

// AllFields lists every canonical column in export order.
var AllFields = []FieldID{
	FieldName, FieldLabel, FieldTrueLabel, FieldHostStar, FieldDiscoveryMethod, FieldDiscoveryYear,
	FieldPeriod, FieldSemiMajorAxis, FieldRadius, FieldEquilibriumTemp,
	FieldStellarTemp, FieldStellarRadius, FieldDuration, FieldDepth,
	FieldSNR, FieldImpactParameter, FieldInsolation, FieldRightAscension,
	FieldDeclination, FieldTransitEpoch,
}

// IsNumeric reports whether f holds numbers (including the discovery year).
func (f FieldID) IsNumeric() bool {
	if f == FieldDiscoveryYear {
		return true
	}
	return slices.Contains(NumericFields, f)
}

// IsKnown reports whether f is a canonical column.
func (f FieldID) IsKnown() bool {
	return f == FieldLabel || f.IsNumeric() || slices.Contains(TextFields, f)
}

func (r *CanonicalRow) floatPtr(f FieldID) **float64 {
	switch f {
	case FieldPeriod:
		return &r.Period
	case FieldSemiMajorAxis:
		return &r.SemiMajorAxis
	case FieldRadius:
		return &r.Radius
	case FieldEquilibriumTemp:
		return &r.EquilibriumTemp
	case FieldStellarTemp:
		return &r.StellarTemp
	case FieldStellarRadius:
		return &r.StellarRadius
	case FieldDuration:
		return &r.Duration
	case FieldDepth:
		return &r.Depth
	case FieldSNR:
		return &r.SNR
	case FieldImpactParameter:
		return &r.ImpactParameter
	case FieldInsolation:
		return &r.Insolation
	case FieldRightAscension:
		return &r.RightAscension
	case FieldDeclination:
		return &r.Declination
	case FieldTransitEpoch:
		return &r.TransitEpoch
	}
	return nil
}

func (r *CanonicalRow) textPtr(f FieldID) **string {
	switch f {
	case FieldName:
		return &r.Name
	case FieldTrueLabel:
		return &r.TrueLabel
	case FieldHostStar:
		return &r.HostStar
	case FieldDiscoveryMethod:
		return &r.DiscoveryMethod
	}
	return nil
}

// Float returns the numeric value of f. The discovery year is reported as a
// float so callers can treat every numeric column alike.
func (r *CanonicalRow) Float(f FieldID) (float64, bool) {
	if f == FieldDiscoveryYear {
		if r.DiscoveryYear == nil {
			return 0, false
		}
		return float64(*r.DiscoveryYear), true
	}
	p := r.floatPtr(f)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// SetFloat stores v under f. Unknown or non-float fields are ignored.
func (r *CanonicalRow) SetFloat(f FieldID, v float64) {
	if p := r.floatPtr(f); p != nil {
		*p = &v
	}
}

// Text returns the string value of f. The label is always present.
func (r *CanonicalRow) Text(f FieldID) (string, bool) {
	if f == FieldLabel {
		return r.Label, true
	}
	p := r.textPtr(f)
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

// SetText stores s under f.
func (r *CanonicalRow) SetText(f FieldID, s string) {
	if f == FieldLabel {
		r.Label = s
		return
	}
	if p := r.textPtr(f); p != nil {
		*p = &s
	}
}
