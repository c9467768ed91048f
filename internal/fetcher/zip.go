package fetcher

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// maxZIPEntry caps the decompressed size of the table inside an archive.
const maxZIPEntry = 512 << 20

// ReadZIPRecords parses an archive that holds exactly one table file in a
// supported format. Directories and macOS metadata entries are ignored.
func ReadZIPRecords(ctx context.Context, data []byte) ([]model.RawRecord, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}

	var tables []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if FormatOf(f.Name) != FormatUnknown && FormatOf(f.Name) != FormatZIP {
			tables = append(tables, f)
		}
	}
	if len(tables) != 1 {
		return nil, eris.Errorf("zip: expected exactly 1 table file, got %d", len(tables))
	}

	entry := tables[0]
	rc, err := entry.Open()
	if err != nil {
		return nil, eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(rc, maxZIPEntry+1))
	if err != nil {
		return nil, eris.Wrap(err, "zip: read entry")
	}
	if len(body) > maxZIPEntry {
		return nil, eris.Errorf("zip: entry %q exceeds %d bytes", entry.Name, maxZIPEntry)
	}

	return ParseRecords(ctx, path.Base(entry.Name), body)
}
