package printjob

import (
	"fmt"
	"strings"
)

// Kind tags the payload encoding and delivery mechanism of a Job.
type Kind int

const (
	// KindZPLRaw is ZPL text written to a local printer's raw data channel.
	KindZPLRaw Kind = iota + 1
	// KindZPLSocket is ZPL text streamed to a network printer over TCP.
	KindZPLSocket
	// KindImage is a base64 bitmap rendered through the OS print pipeline.
	KindImage
	// KindDocument is a base64 PDF handed to an external renderer.
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindZPLRaw:
		return "zpl"
	case KindZPLSocket:
		return "zpl_tcp"
	case KindImage:
		return "image"
	case KindDocument:
		return "pdf"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParsePrintType maps a forwarding print type ("zpl", "image", "pdf") onto a
// Kind. Matching is case-insensitive and ignores surrounding whitespace.
func ParsePrintType(printType string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(printType)) {
	case "zpl":
		return KindZPLRaw, nil
	case "image":
		return KindImage, nil
	case "pdf":
		return KindDocument, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedKind, printType)
	}
}
