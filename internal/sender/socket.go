package sender

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/mattjoyce/printmesh/internal/log"
	"github.com/mattjoyce/printmesh/internal/printjob"
)

const defaultSocketTimeout = 5 * time.Second

// SocketSender streams a payload to a network printer's raw TCP port.
type SocketSender struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewSocketSender bounds connect and write by timeout; non-positive values use 5s.
func NewSocketSender(timeout time.Duration) *SocketSender {
	if timeout <= 0 {
		timeout = defaultSocketTimeout
	}
	return &SocketSender{
		timeout: timeout,
		logger:  log.WithComponent("sender.socket"),
	}
}

// Send connects, writes payload as one stream write and closes. No reply is read.
func (s *SocketSender) Send(ctx context.Context, host string, port int, payload []byte) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %w", printjob.ErrDelivery, addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return fmt.Errorf("%w: set write deadline on %s: %w", printjob.ErrDelivery, addr, err)
	}

	n, err := conn.Write(payload)
	if err != nil {
		return fmt.Errorf("%w: write to %s: %w", printjob.ErrDelivery, addr, err)
	}
	if n != len(payload) {
		return fmt.Errorf("%w: short write to %s: %d of %d bytes", printjob.ErrDelivery, addr, n, len(payload))
	}

	s.logger.Info("socket job sent", "addr", addr, "bytes", n)
	return nil
}
