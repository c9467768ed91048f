package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// DecodeJSONArray decodes a JSON array streaming, sending each element to a channel.
// Expects input in the form [{...},{...}].
// Both channels are closed when processing completes.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}

		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}

			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "json: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}

// envelope is the {"data": [...]} wrapper some prediction APIs return.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// ReadJSONRecords decodes a JSON array of flat objects, or the same array
// wrapped as {"data": [...]}.
func ReadJSONRecords(ctx context.Context, r io.Reader) ([]model.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "json: read input")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, eris.New("json: empty input")
	}

	if data[0] == '{' {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, eris.Wrap(err, "json: decode envelope")
		}
		if len(env.Data) == 0 || env.Data[0] != '[' {
			return nil, eris.New("json: expected an array or an object with a data array")
		}
		data = env.Data
	}

	outCh, errCh := DecodeJSONArray[model.RawRecord](ctx, bytes.NewReader(data))
	var out []model.RawRecord
	for rec := range outCh {
		out = append(out, rec)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return out, nil
}
