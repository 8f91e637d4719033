package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxBodyBytes bounds request and response bodies. Base64 PDFs are the
// largest payloads the agent handles.
const MaxBodyBytes int64 = 64 << 20

var (
	ErrEmptyBody    = errors.New("empty body")
	ErrBodyTooLarge = errors.New("body too large")
)

// Encode serializes v as one line of JSON.
func Encode(w io.Writer, v any) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode body: %w", err)
	}
	return nil
}

// Decode reads at most limit bytes from r and unmarshals them into v.
// limit <= 0 means MaxBodyBytes. The raw bytes are returned for logging
// even when unmarshalling fails.
func Decode(r io.Reader, v any, limit int64) ([]byte, error) {
	data, err := ReadLimited(r, limit)
	if err != nil {
		return data, err
	}
	if len(data) == 0 {
		return data, ErrEmptyBody
	}
	if err := json.Unmarshal(data, v); err != nil {
		return data, fmt.Errorf("body is not valid JSON: %w", err)
	}
	return data, nil
}

// ReadLimited reads r fully, failing with ErrBodyTooLarge past limit bytes.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = MaxBodyBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > limit {
		return data[:limit], ErrBodyTooLarge
	}
	return data, nil
}

// Snippet trims data for log lines.
func Snippet(data []byte, max int) string {
	if len(data) <= max {
		return string(data)
	}
	return string(data[:max]) + "...(truncated)"
}
