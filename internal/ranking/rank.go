package ranking

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/normalize"
)

// DefaultTarget is the target column of model prediction exports.
const DefaultTarget = "predicted_label"

// DefaultFeatures are the KOI numeric columns scored when none are given.
var DefaultFeatures = []string{
	"koi_period",
	"koi_time0bk",
	"koi_duration",
	"koi_insol",
	"ra",
	"dec",
	"koi_srad",
	"koi_impact",
	"koi_depth",
	"koi_prad",
	"koi_model_snr",
}

// Options tunes ranking.
type Options struct {
	MinSamples int // default DefaultMinSamples
}

func (o Options) minSamples() int {
	if o.MinSamples <= 0 {
		return DefaultMinSamples
	}
	return o.MinSamples
}

// Rank scores each feature column of the raw records against the target
// column. Column names are matched after header normalization. Features
// with fewer than two classes or too few samples are omitted. The result is
// sorted by F descending; ties keep feature-list order.
func Rank(records []model.RawRecord, target string, features []string, opts Options) ([]model.FeatureScore, error) {
	if err := validate(target, features); err != nil {
		return nil, err
	}

	targetKey := normalize.NormalizeKey(target)
	featureKeys := make([]string, len(features))
	for i, f := range features {
		featureKeys[i] = normalize.NormalizeKey(f)
	}

	groups := make([]map[string][]float64, len(features))
	for i := range groups {
		groups[i] = make(map[string][]float64)
	}

	for _, rec := range records {
		idx := normalize.NewIndex(rec)
		label := bucketLabel(idx[targetKey].String())
		for i, key := range featureKeys {
			if x, ok := normalize.ToNumber(idx[key]); ok {
				groups[i][label] = append(groups[i][label], x)
			}
		}
	}

	return collect(features, groups, opts), nil
}

// RankCanonical scores canonical numeric fields against a canonical text
// field of normalized rows.
func RankCanonical(rows []model.CanonicalRow, target model.FieldID, features []model.FieldID, opts Options) ([]model.FeatureScore, error) {
	names := make([]string, len(features))
	for i, f := range features {
		if !f.IsNumeric() {
			return nil, eris.Errorf("ranking: %q is not a numeric field", f)
		}
		names[i] = string(f)
	}
	if err := validate(string(target), names); err != nil {
		return nil, err
	}
	if target.IsNumeric() || !target.IsKnown() {
		return nil, eris.Errorf("ranking: %q is not a categorical field", target)
	}

	groups := make([]map[string][]float64, len(features))
	for i := range groups {
		groups[i] = make(map[string][]float64)
	}

	for _, row := range rows {
		s, _ := row.Text(target)
		label := bucketLabel(s)
		for i, f := range features {
			if x, ok := row.Float(f); ok {
				groups[i][label] = append(groups[i][label], x)
			}
		}
	}

	return collect(names, groups, opts), nil
}

func validate(target string, features []string) error {
	if strings.TrimSpace(target) == "" {
		return eris.New("ranking: target field is required")
	}
	if len(features) == 0 {
		return eris.New("ranking: at least one feature is required")
	}
	for i, f := range features {
		if strings.TrimSpace(f) == "" {
			return eris.Errorf("ranking: feature %d is blank", i)
		}
	}
	return nil
}

func bucketLabel(s string) string {
	if s == "" {
		return model.DefaultLabel
	}
	return s
}

func collect(names []string, groups []map[string][]float64, opts Options) []model.FeatureScore {
	minN := opts.minSamples()
	out := make([]model.FeatureScore, 0, len(names))
	for i, name := range names {
		res := FScore(groups[i])
		if res.Groups < 2 || res.SampleSize < minN {
			continue
		}
		out = append(out, model.FeatureScore{
			Feature:    name,
			FScore:     res.F,
			SampleSize: res.SampleSize,
			Groups:     res.Groups,
			PValue:     res.PValue,
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].FScore > out[b].FScore })
	return out
}
