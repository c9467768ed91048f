package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// WriteCSV writes rows with one column per canonical field. Absent cells are
// empty.
func WriteCSV(w io.Writer, rows []model.CanonicalRow) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(model.AllFields))
	for i, f := range model.AllFields {
		header[i] = string(f)
	}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "dataset: write csv header")
	}

	rec := make([]string, len(model.AllFields))
	for i := range rows {
		for j, f := range model.AllFields {
			rec[j] = cell(&rows[i], f)
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "dataset: write csv row %d", i)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush csv")
}

func cell(r *model.CanonicalRow, f model.FieldID) string {
	if f == model.FieldDiscoveryYear {
		if r.DiscoveryYear == nil {
			return ""
		}
		return strconv.Itoa(*r.DiscoveryYear)
	}
	if f.IsNumeric() {
		v, ok := r.Float(f)
		if !ok {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s, _ := r.Text(f)
	return s
}
