package normalize

import (
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// Kind controls how a resolved cell is coerced.
type Kind string

const (
	KindText   Kind = "text"
	KindLabel  Kind = "label"
	KindNumber Kind = "number"
	KindYear   Kind = "year"
)

// FieldSpec maps one canonical field to the header names it may appear under,
// highest priority first.
type FieldSpec struct {
	Field      model.FieldID `yaml:"field"`
	Kind       Kind          `yaml:"kind"`
	Candidates []string      `yaml:"candidates"`

	keys []string
}

// Schema is a declarative candidate-name table. New source dialects are
// supported by editing the table, not the normalizer.
type Schema struct {
	Name   string      `yaml:"name"`
	Fields []FieldSpec `yaml:"fields"`
}

// defaultFields enumerates the synonyms observed across KOI cumulative
// exports, NASA Exoplanet Archive tables and the Arabic-labelled sheets.
var defaultFields = []FieldSpec{
	{Field: model.FieldName, Kind: KindText, Candidates: []string{
		"pl_name", "name", "planet", "kepler_name", "kepoi_name", "koi_name", "kepid", "الاسم", "الكوكب",
	}},
	{Field: model.FieldLabel, Kind: KindLabel, Candidates: []string{
		"predicted_label", "label", "class", "koi_disposition", "disposition", "الحالة",
	}},
	{Field: model.FieldTrueLabel, Kind: KindText, Candidates: []string{
		"true_label",
	}},
	{Field: model.FieldPeriod, Kind: KindNumber, Candidates: []string{
		"pl_orbper", "period", "koi_period", "period_days", "orbital_period", "الفترة", "الفترة (يوم)",
	}},
	{Field: model.FieldSemiMajorAxis, Kind: KindNumber, Candidates: []string{
		"pl_orbsmax", "a", "semimajoraxis", "orbitaldistance", "koi_sma", "المسافة (وحدات فلكية)",
	}},
	{Field: model.FieldRadius, Kind: KindNumber, Candidates: []string{
		"pl_rade", "radius", "koi_prad", "earth_radius", "نصف القطر", "نصف القطر (أرضي)",
	}},
	{Field: model.FieldEquilibriumTemp, Kind: KindNumber, Candidates: []string{
		"pl_eqt", "teq", "equilibriumtemperature", "koi_teq", "درجة التوازن", "درجة الحرارة",
	}},
	{Field: model.FieldStellarTemp, Kind: KindNumber, Candidates: []string{
		"st_teff", "teff", "koi_steff", "درجة حرارة النجم",
	}},
	{Field: model.FieldStellarRadius, Kind: KindNumber, Candidates: []string{
		"st_rad", "rstar", "koi_srad", "نصف قطر النجم",
	}},
	{Field: model.FieldDiscoveryYear, Kind: KindYear, Candidates: []string{
		"disc_year", "year", "discovery_year", "سنة الاكتشاف",
	}},
	{Field: model.FieldHostStar, Kind: KindText, Candidates: []string{
		"hostname", "host_star", "star", "koi_targetname", "النجم المضيف", "النجم",
	}},
	{Field: model.FieldDiscoveryMethod, Kind: KindText, Candidates: []string{
		"discoverymethod", "method", "discovery_method", "طريقة الاكتشاف", "الطريقة",
	}},
	{Field: model.FieldDuration, Kind: KindNumber, Candidates: []string{"koi_duration", "duration", "transit_duration"}},
	{Field: model.FieldDepth, Kind: KindNumber, Candidates: []string{"koi_depth", "depth", "transit_depth"}},
	{Field: model.FieldSNR, Kind: KindNumber, Candidates: []string{"koi_model_snr", "snr", "model_snr"}},
	{Field: model.FieldImpactParameter, Kind: KindNumber, Candidates: []string{"koi_impact", "impact"}},
	{Field: model.FieldInsolation, Kind: KindNumber, Candidates: []string{"koi_insol", "pl_insol", "insol"}},
	{Field: model.FieldRightAscension, Kind: KindNumber, Candidates: []string{"ra"}},
	{Field: model.FieldDeclination, Kind: KindNumber, Candidates: []string{"dec"}},
	{Field: model.FieldTransitEpoch, Kind: KindNumber, Candidates: []string{"koi_time0bk"}},
}

// DefaultSchema returns the union of all known dialects.
func DefaultSchema() *Schema {
	s := &Schema{Name: "default", Fields: cloneFields(defaultFields)}
	s.compile()
	return s
}

// dialectPrefixes promote candidates with the given prefixes ahead of the
// rest, keeping relative order otherwise.
var dialectPrefixes = map[string][]string{
	"koi":     {"koi_", "kep", "predicted_label", "true_label"},
	"archive": {"pl_", "st_", "disc", "host"},
}

// Dialects returns the registered dialect names.
func Dialects() []string {
	names := []string{"default"}
	for k := range dialectPrefixes {
		names = append(names, k)
	}
	sort.Strings(names[1:])
	return names
}

// Dialect returns the named schema preset.
func Dialect(name string) (*Schema, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "default" {
		return DefaultSchema(), nil
	}
	prefixes, ok := dialectPrefixes[name]
	if !ok {
		return nil, eris.Errorf("normalize: unknown dialect %q", name)
	}

	s := &Schema{Name: name, Fields: cloneFields(defaultFields)}
	for i := range s.Fields {
		c := s.Fields[i].Candidates
		sort.SliceStable(c, func(a, b int) bool {
			return hasAnyPrefix(c[a], prefixes) && !hasAnyPrefix(c[b], prefixes)
		})
	}
	s.compile()
	return s, nil
}

// LoadSchema reads a schema table from a YAML file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: read schema %s", path)
	}
	return ParseSchema(data)
}

// ParseSchema decodes and validates a YAML schema table. Fields not listed
// in the file keep their default candidates.
func ParseSchema(data []byte) (*Schema, error) {
	var file Schema
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "normalize: parse schema")
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}

	s := DefaultSchema()
	if file.Name != "" {
		s.Name = file.Name
	}
	for _, fs := range file.Fields {
		i := slices.IndexFunc(s.Fields, func(d FieldSpec) bool { return d.Field == fs.Field })
		if i < 0 {
			s.Fields = append(s.Fields, fs)
			continue
		}
		if fs.Kind == "" {
			fs.Kind = s.Fields[i].Kind
		}
		s.Fields[i] = fs
	}
	s.compile()
	return s, nil
}

// KindOf returns the only kind a canonical field accepts.
func KindOf(f model.FieldID) Kind {
	switch {
	case f == model.FieldLabel:
		return KindLabel
	case f == model.FieldDiscoveryYear:
		return KindYear
	case f.IsNumeric():
		return KindNumber
	default:
		return KindText
	}
}

// Validate checks that every entry names a known field, a kind that fits
// it, and at least one candidate.
func (s *Schema) Validate() error {
	seen := make(map[model.FieldID]bool, len(s.Fields))
	for _, fs := range s.Fields {
		if !fs.Field.IsKnown() {
			return eris.Errorf("normalize: schema: unknown field %q", fs.Field)
		}
		if seen[fs.Field] {
			return eris.Errorf("normalize: schema: duplicate field %q", fs.Field)
		}
		seen[fs.Field] = true
		switch fs.Kind {
		case "":
		case KindText, KindLabel, KindNumber, KindYear:
			if fs.Kind != KindOf(fs.Field) {
				return eris.Errorf("normalize: schema: field %q cannot use kind %q", fs.Field, fs.Kind)
			}
		default:
			return eris.Errorf("normalize: schema: field %q has unknown kind %q", fs.Field, fs.Kind)
		}
		if len(fs.Candidates) == 0 {
			return eris.Errorf("normalize: schema: field %q has no candidates", fs.Field)
		}
	}
	return nil
}

// Candidates returns the header names for field f, or nil.
func (s *Schema) Candidates(f model.FieldID) []string {
	for _, fs := range s.Fields {
		if fs.Field == f {
			return fs.Candidates
		}
	}
	return nil
}

func (s *Schema) compile() {
	for i := range s.Fields {
		keys := make([]string, 0, len(s.Fields[i].Candidates))
		for _, c := range s.Fields[i].Candidates {
			if k := NormalizeKey(c); k != "" {
				keys = append(keys, k)
			}
		}
		s.Fields[i].keys = keys
	}
}

func cloneFields(in []FieldSpec) []FieldSpec {
	out := make([]FieldSpec, len(in))
	for i, fs := range in {
		out[i] = FieldSpec{Field: fs.Field, Kind: fs.Kind, Candidates: slices.Clone(fs.Candidates)}
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
