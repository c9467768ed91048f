package model

import "time"

// DefaultLabel is the category assigned to rows without a label.
const DefaultLabel = "Other"

// CanonicalRow is the dialect-independent shape of one normalized record.
// Nil pointers are absent values; numeric fields are never NaN or infinite.
type CanonicalRow struct {
	Name      *string `json:"name"`
	Label     string  `json:"label"`
	TrueLabel *string `json:"trueLabel,omitempty"`

	Period          *float64 `json:"period"`          // days
	SemiMajorAxis   *float64 `json:"semiMajorAxis"`   // AU
	Radius          *float64 `json:"radius"`          // Earth radii
	EquilibriumTemp *float64 `json:"equilibriumTemp"` // K
	StellarTemp     *float64 `json:"stellarTemp"`     // K
	StellarRadius   *float64 `json:"stellarRadius"`   // solar radii

	DiscoveryYear   *int    `json:"discoveryYear"`
	HostStar        *string `json:"hostStar"`
	DiscoveryMethod *string `json:"discoveryMethod"`

	// Transit fields, present in KOI exports only.
	Duration        *float64 `json:"duration,omitempty"` // hours
	Depth           *float64 `json:"depth,omitempty"`    // ppm
	SNR             *float64 `json:"snr,omitempty"`
	ImpactParameter *float64 `json:"impactParameter,omitempty"`
	Insolation      *float64 `json:"insolation,omitempty"`
	RightAscension  *float64 `json:"rightAscension,omitempty"`
	Declination     *float64 `json:"declination,omitempty"`
	TransitEpoch    *float64 `json:"transitEpoch,omitempty"`

	SemiMajorAxisDerived   bool `json:"semiMajorAxisDerived,omitempty"`
	EquilibriumTempDerived bool `json:"equilibriumTempDerived,omitempty"`
}

// Snapshot pairs the raw records of one load with their canonical rows.
type Snapshot struct {
	ID       string         `json:"id"`
	Source   string         `json:"source"`
	Dialect  string         `json:"dialect"`
	LoadedAt time.Time      `json:"loaded_at"`
	Raw      []RawRecord    `json:"-"`
	Rows     []CanonicalRow `json:"-"`
}

// LoadEvent records a dataset load for the history log.
type LoadEvent struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Dialect  string    `json:"dialect"`
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}

// FeatureScore is the ANOVA separability of one numeric feature.
type FeatureScore struct {
	Feature    string  `json:"feature"`
	FScore     float64 `json:"fScore"`
	SampleSize int     `json:"sampleSize"`
	Groups     int     `json:"groups"`
	PValue     float64 `json:"pValue"`
}

// APISettings is the persisted remote endpoint configuration.
type APISettings struct {
	BaseURL     string    `json:"base_url"`
	DataPath    string    `json:"data_path"`
	PredictPath string    `json:"predict_path"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// PredictRequest is the body sent to the remote prediction endpoint.
type PredictRequest struct {
	Period          *float64 `json:"period"`
	Radius          *float64 `json:"radius"`
	DiscoveryYear   *int     `json:"discoveryYear"`
	DiscoveryMethod *string  `json:"discoveryMethod"`
}

// PredictResponse is the opaque reply from the prediction endpoint.
type PredictResponse struct {
	Label *string        `json:"label,omitempty"`
	Prob  *float64       `json:"prob,omitempty"`
	Raw   map[string]any `json:"-"`
}
