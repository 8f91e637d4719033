package dispatch

import "context"

//go:generate mockgen -destination=mocks/mock_senders.go -package=mocks github.com/mattjoyce/printmesh/internal/dispatch TextSender,SocketWriter,BlobSender

// TextSender writes ZPL text to a local printer's raw channel.
type TextSender interface {
	Send(ctx context.Context, printer string, payload []byte) error
}

// SocketWriter streams ZPL text to host:port.
type SocketWriter interface {
	Send(ctx context.Context, host string, port int, payload []byte) error
}

// BlobSender prints a decoded binary payload on a local printer.
type BlobSender interface {
	Send(ctx context.Context, printer string, data []byte) error
}

// Senders bundles one sender per job kind.
type Senders struct {
	Raw      TextSender
	Socket   SocketWriter
	Image    BlobSender
	Document BlobSender
}
