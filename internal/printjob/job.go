package printjob

import (
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Job is one unit of print work. Printer is the target for KindZPLRaw,
// KindImage and KindDocument; Host and Port are the target for KindZPLSocket.
// Payload is UTF-8 text for ZPL kinds and base64 for image and document kinds.
type Job struct {
	Kind    Kind
	Printer string
	Host    string
	Port    int
	Payload string
}

// Validate checks that the fields required by the job's kind are present.
// The returned error wraps ErrValidation.
func (j Job) Validate() error {
	switch j.Kind {
	case KindZPLRaw, KindImage, KindDocument:
		if strings.TrimSpace(j.Printer) == "" {
			return missingField("printer name")
		}
	case KindZPLSocket:
		if strings.TrimSpace(j.Host) == "" {
			return missingField("host")
		}
		if j.Port <= 0 || j.Port > 65535 {
			return fmt.Errorf("%w: port must be between 1 and 65535 (got %d)", ErrValidation, j.Port)
		}
	default:
		return fmt.Errorf("%w: unknown job kind %s", ErrValidation, j.Kind)
	}

	if j.Payload == "" {
		return missingField("payload")
	}
	return nil
}

// Bytes returns the payload in its wire form for the job's kind. Base64
// payloads that fail to decode are reported as validation errors.
func (j Job) Bytes() ([]byte, error) {
	switch j.Kind {
	case KindZPLRaw, KindZPLSocket:
		return []byte(j.Payload), nil
	case KindImage, KindDocument:
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(j.Payload))
		if err != nil {
			return nil, fmt.Errorf("%w: payload is not valid base64: %v", ErrValidation, err)
		}
		if len(data) == 0 {
			return nil, missingField("payload")
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unknown job kind %s", ErrValidation, j.Kind)
	}
}

// Target renders the job's destination for logs and events.
func (j Job) Target() string {
	if j.Kind == KindZPLSocket {
		return net.JoinHostPort(j.Host, strconv.Itoa(j.Port))
	}
	return j.Printer
}

// Result is the normalized outcome of a dispatch. Detail carries the failure
// cause and is empty on success.
type Result struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

func Succeeded() Result {
	return Result{Success: true}
}

func Failed(err error) Result {
	if err == nil {
		return Result{Success: false, Detail: "unknown failure"}
	}
	return Result{Success: false, Detail: err.Error()}
}
