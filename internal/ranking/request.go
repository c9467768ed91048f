package ranking

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// Mode selects which view of a dataset is ranked.
type Mode string

const (
	// ModeRaw reads source columns by name.
	ModeRaw Mode = "raw"
	// ModeCanonical reads normalized fields.
	ModeCanonical Mode = "canonical"
)

// Request describes one ranking run. Blank fields take mode defaults: raw
// mode ranks DefaultFeatures against DefaultTarget, canonical mode ranks
// every numeric field against the label.
type Request struct {
	Mode       Mode     `json:"mode"`
	Target     string   `json:"target"`
	Features   []string `json:"features"`
	MinSamples int      `json:"minSamples"`
}

// Run ranks raw or rows according to r.Mode.
func (r Request) Run(raw []model.RawRecord, rows []model.CanonicalRow) ([]model.FeatureScore, error) {
	opts := Options{MinSamples: r.MinSamples}

	switch r.Mode {
	case "", ModeRaw:
		target, features := r.Target, r.Features
		if target == "" {
			target = DefaultTarget
		}
		if len(features) == 0 {
			features = DefaultFeatures
		}
		return Rank(raw, target, features, opts)

	case ModeCanonical:
		target := model.FieldID(r.Target)
		if target == "" {
			target = model.FieldLabel
		}
		features := model.NumericFields
		if len(r.Features) > 0 {
			features = make([]model.FieldID, len(r.Features))
			for i, f := range r.Features {
				features[i] = model.FieldID(f)
			}
		}
		return RankCanonical(rows, target, features, opts)
	}
	return nil, eris.Errorf("ranking: unknown mode %q", r.Mode)
}
