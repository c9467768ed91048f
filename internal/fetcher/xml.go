package fetcher

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// StreamXML decodes XML elements matching the given local name and sends them to a channel.
// The type parameter T must be a struct with appropriate xml tags.
// Both channels are closed when processing completes.
func StreamXML[T any](ctx context.Context, r io.Reader, elementName string) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := newXMLDecoder(r)
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "xml: read token")
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != elementName {
				continue
			}

			var item T
			if err := decoder.DecodeElement(&item, &se); err != nil {
				errCh <- eris.Wrap(err, "xml: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}

func newXMLDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return decoder
}

// votField is a VOTable column declaration.
type votField struct {
	Name     string `xml:"name,attr"`
	ID       string `xml:"ID,attr"`
	Datatype string `xml:"datatype,attr"`
}

// votRow is one TABLEDATA row.
type votRow struct {
	Cells []votCell `xml:"TD"`
}

type votCell struct {
	Value string `xml:",chardata"`
}

// ReadVOTableRecords parses the first table of a VOTable document with
// TABLEDATA serialization, as returned by the NASA Exoplanet Archive TAP
// service with format=votable. Empty cells are absent; cells of numeric
// columns that parse are kept as numbers.
func ReadVOTableRecords(ctx context.Context, r io.Reader) ([]model.RawRecord, error) {
	decoder := newXMLDecoder(r)

	var (
		fields []votField
		out    []model.RawRecord
		inData bool
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "votable: context cancelled")
		}

		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "votable: read token")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "FIELD":
				if inData {
					continue
				}
				var f votField
				if err := decoder.DecodeElement(&f, &t); err != nil {
					return nil, eris.Wrap(err, "votable: decode field")
				}
				fields = append(fields, f)
			case "TABLEDATA":
				inData = true
			case "TR":
				if !inData {
					continue
				}
				var row votRow
				if err := decoder.DecodeElement(&row, &t); err != nil {
					return nil, eris.Wrap(err, "votable: decode row")
				}
				out = append(out, votRecord(fields, row))
			}
		case xml.EndElement:
			if t.Name.Local == "TABLE" && inData {
				return out, nil
			}
		}
	}

	if fields == nil {
		return nil, eris.New("votable: no FIELD declarations found")
	}
	return out, nil
}

func votRecord(fields []votField, row votRow) model.RawRecord {
	rec := model.RawRecord{Fields: make([]model.Field, len(fields))}
	for i, f := range fields {
		name := f.Name
		if name == "" {
			name = f.ID
		}
		rec.Fields[i] = model.Field{Key: name, Value: model.Absent()}
		if i >= len(row.Cells) || row.Cells[i].Value == "" {
			continue
		}
		rec.Fields[i].Value = votValue(f.Datatype, row.Cells[i].Value)
	}
	return rec
}

func votValue(datatype, s string) model.Value {
	switch datatype {
	case "double", "float", "int", "long", "short":
		if n, ok := parseFinite(s); ok {
			return model.Num(n)
		}
	}
	return model.Str(s)
}
