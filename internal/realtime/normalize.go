package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errEmptyPayload = errors.New("empty publication data")

// normalizeData returns structured JSON bytes for a publication payload.
// Brokers deliver data either as a JSON value or as a JSON string that
// itself contains encoded JSON; both forms must yield the same structured
// bytes so consumers never see the string case.
func normalizeData(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errEmptyPayload
	}

	if trimmed[0] != '"' {
		if !json.Valid(trimmed) {
			return nil, errors.New("publication data is not valid JSON")
		}
		return trimmed, nil
	}

	var encoded string
	if err := json.Unmarshal(trimmed, &encoded); err != nil {
		return nil, err
	}
	inner := []byte(encoded)
	if !json.Valid(inner) {
		return nil, errors.New("string publication data does not decode to JSON")
	}
	return inner, nil
}
