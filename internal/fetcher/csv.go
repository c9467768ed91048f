// Package fetcher downloads exoplanet tables over HTTP and FTP and parses
// CSV, JSON, XLSX, VOTable and ZIP payloads into raw records.
package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// sniffOrder is the delimiter fallback order for CSV-like text.
var sniffOrder = []rune{',', ';', '\t'}

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune            // default ','
	HasHeader  bool            // if true, first row is skipped but sent to HeaderCh
	HeaderCh   chan<- []string // optional: receives the header row
	Comment    rune            // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads a CSV file and sends rows to a channel.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow ragged rows

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			if first && opts.HasHeader {
				first = false
				if opts.HeaderCh != nil {
					select {
					case opts.HeaderCh <- record:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
						return
					}
				}
				continue
			}
			first = false

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// SniffDelimiter picks the first of ',', ';' and tab that splits the header
// line into more than one column. It falls back to tab.
func SniffDelimiter(header string) rune {
	for _, d := range sniffOrder {
		r := csv.NewReader(strings.NewReader(header))
		r.Comma = d
		r.LazyQuotes = true
		r.FieldsPerRecord = -1
		cols, err := r.Read()
		if err == nil && len(cols) > 1 {
			return d
		}
	}
	return '\t'
}

// ReadCSVRecords parses delimited text with a header row into raw records.
// A zero Delimiter is sniffed from the header. Cells are trimmed, blank rows
// are skipped and a leading byte-order mark is dropped. When the first line
// starts with '#', as in Exoplanet Archive downloads, '#' lines are comments.
func ReadCSVRecords(ctx context.Context, r io.Reader, opts CSVOptions) ([]model.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "csv: read input")
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if opts.Comment == 0 && strings.HasPrefix(firstLine(data, 0), "#") {
		opts.Comment = '#'
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = SniffDelimiter(firstLine(data, opts.Comment))
	}
	opts.HasHeader = true
	opts.LazyQuotes = true
	opts.TrimSpace = true

	headerCh := make(chan []string, 1)
	opts.HeaderCh = headerCh
	rowCh, errCh := StreamCSV(ctx, bytes.NewReader(data), opts)

	var (
		header []string
		out    []model.RawRecord
	)
	for row := range rowCh {
		if header == nil {
			header = <-headerCh
		}
		rec := model.NewRawRecord(header, row)
		if rec.IsBlank() {
			continue
		}
		out = append(out, rec)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return out, nil
}

// firstLine returns the first non-blank line that does not start with
// comment (0 = none).
func firstLine(data []byte, comment rune) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if comment != 0 && strings.HasPrefix(line, string(comment)) {
			continue
		}
		return line
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
