package fetcher

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// Format identifies a table encoding.
type Format string

const (
	FormatUnknown Format = ""
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatXLSX    Format = "xlsx"
	FormatVOTable Format = "votable"
	FormatZIP     Format = "zip"
)

// FormatOf infers the format from a file name or URL path. Query strings
// are ignored.
func FormatOf(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".csv", ".tsv", ".tab", ".txt":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xml", ".vot", ".votable":
		return FormatVOTable
	case ".zip":
		return FormatZIP
	default:
		return FormatUnknown
	}
}

// sniffFormat guesses the format of an unnamed payload from its first bytes.
func sniffFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	switch {
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		// XLSX workbooks are ZIP containers too.
		if bytes.Contains(data[:min(len(data), 4096)], []byte("[Content_Types].xml")) {
			return FormatXLSX
		}
		return FormatZIP
	case len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{'):
		return FormatJSON
	case len(trimmed) > 0 && trimmed[0] == '<':
		return FormatVOTable
	default:
		return FormatCSV
	}
}

// ParseRecords decodes a payload into raw records. The format comes from the
// name's extension, or is sniffed from the content when the name has none.
func ParseRecords(ctx context.Context, name string, data []byte) ([]model.RawRecord, error) {
	format := FormatOf(name)
	if format == FormatUnknown {
		format = sniffFormat(data)
	}

	var (
		recs []model.RawRecord
		err  error
	)
	switch format {
	case FormatCSV:
		opts := CSVOptions{}
		if strings.EqualFold(path.Ext(name), ".tsv") {
			opts.Delimiter = '\t'
		}
		recs, err = ReadCSVRecords(ctx, bytes.NewReader(data), opts)
	case FormatJSON:
		recs, err = ReadJSONRecords(ctx, bytes.NewReader(data))
	case FormatXLSX:
		recs, err = ReadXLSXRecords(data, XLSXOptions{})
	case FormatVOTable:
		recs, err = ReadVOTableRecords(ctx, bytes.NewReader(data))
	case FormatZIP:
		recs, err = ReadZIPRecords(ctx, data)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "parse %s as %s", name, format)
	}

	zap.L().Debug("fetcher: parsed records",
		zap.String("name", name),
		zap.String("format", string(format)),
		zap.Int("records", len(recs)),
	)
	return recs, nil
}

// ReadRecords drains r and parses it with ParseRecords.
func ReadRecords(ctx context.Context, name string, r io.Reader) ([]model.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", name)
	}
	return ParseRecords(ctx, name, data)
}

// Loader resolves a source string to raw records. Sources are local paths,
// http(s):// URLs or ftp:// URLs.
type Loader struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewLoader creates a Loader with default HTTP and FTP fetchers.
func NewLoader(httpOpts HTTPOptions, ftpOpts FTPOptions) *Loader {
	return &Loader{HTTP: NewHTTPFetcher(httpOpts), FTP: NewFTPFetcher(ftpOpts)}
}

// Load fetches and parses source.
func (l *Loader) Load(ctx context.Context, source string) ([]model.RawRecord, error) {
	fetcher, err := l.fetcherFor(source)
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		f, err := os.Open(source)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", source)
		}
		defer f.Close() //nolint:errcheck
		return ReadRecords(ctx, source, f)
	}

	body, err := fetcher.Download(ctx, source)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck
	return ReadRecords(ctx, source, body)
}

// Mirror copies source byte for byte to dst, then parses the copy. The
// format is still inferred from source, so dst may have any name.
func (l *Loader) Mirror(ctx context.Context, source, dst string) ([]model.RawRecord, error) {
	fetcher, err := l.fetcherFor(source)
	if err != nil {
		return nil, err
	}

	var n int64
	if fetcher != nil {
		n, err = fetcher.DownloadToFile(ctx, source, dst)
	} else {
		n, err = copyFile(source, dst)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "save %s", source)
	}
	zap.L().Info("fetcher: saved raw source",
		zap.String("source", source),
		zap.String("path", dst),
		zap.Int64("bytes", n),
	)

	f, err := os.Open(dst)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", dst)
	}
	defer f.Close() //nolint:errcheck
	return ReadRecords(ctx, source, f)
}

// fetcherFor returns the remote fetcher for source, or nil for a local path.
func (l *Loader) fetcherFor(source string) (Fetcher, error) {
	var fetcher Fetcher
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		fetcher = l.HTTP
	case strings.HasPrefix(source, "ftp://"):
		fetcher = l.FTP
	default:
		return nil, nil
	}
	if fetcher == nil {
		return nil, eris.Errorf("no fetcher configured for %s", source)
	}
	return fetcher, nil
}

func copyFile(src, dst string) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, eris.Wrapf(err, "open %s", src)
	}
	defer f.Close() //nolint:errcheck
	return writeFile(dst, f)
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
