// Package peer talks to other agents on the LAN: it forwards print jobs to
// them and fetches their self-description. Peers are addressed per call and
// never stored.
package peer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/printmesh/internal/events"
	"github.com/mattjoyce/printmesh/internal/log"
	"github.com/mattjoyce/printmesh/internal/printjob"
	"github.com/mattjoyce/printmesh/internal/wire"
)

const (
	defaultForwardTimeout = 30 * time.Second
	defaultInfoTimeout    = 10 * time.Second
	maxLoggedBody         = 512
)

// RequestIDHeader carries a forward's correlation id to the peer.
const RequestIDHeader = "X-Request-Id"

var printPaths = map[printjob.Kind]string{
	printjob.KindZPLRaw:   "/print/zpl",
	printjob.KindImage:    "/print/image",
	printjob.KindDocument: "/print/pdf",
}

// Client forwards jobs to and queries other agents.
type Client struct {
	http           *http.Client
	forwardTimeout time.Duration
	infoTimeout    time.Duration
	hub            *events.Hub
	logger         *slog.Logger
}

// NewClient creates a Client. hub may be nil.
func NewClient(forwardTimeout, infoTimeout time.Duration, hub *events.Hub, logger *slog.Logger) *Client {
	if forwardTimeout <= 0 {
		forwardTimeout = defaultForwardTimeout
	}
	if infoTimeout <= 0 {
		infoTimeout = defaultInfoTimeout
	}
	return &Client{
		http:           &http.Client{},
		forwardTimeout: forwardTimeout,
		infoTimeout:    infoTimeout,
		hub:            hub,
		logger:         logger.With("component", "peer"),
	}
}

// Forward sends one job to target's print endpoint for printType. Transport
// failures wrap ErrUnreachablePeer; non-2xx answers wrap ErrPeerRejected.
func (c *Client) Forward(ctx context.Context, target printjob.PeerTarget, printType, printer, data string) (err error) {
	kind, err := printjob.ParsePrintType(printType)
	if err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return err
	}
	body, err := wire.NewForwardBody(kind, printer, data)
	if err != nil {
		return err
	}

	requestID := uuid.NewString()
	logger := log.WithPrinter(log.WithPeer(c.logger, target.Addr()), printer).With("print_type", kind.String(), "request_id", requestID)
	defer func() {
		outcome := events.ForwardOutcome{Peer: target.Addr(), PrintType: kind.String(), Printer: printer}
		if err != nil {
			outcome.Detail = err.Error()
			c.hub.Publish(events.ForwardFailed, outcome)
			return
		}
		c.hub.Publish(events.ForwardSucceeded, outcome)
	}()

	var buf bytes.Buffer
	if err := wire.Encode(&buf, body); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.forwardTimeout)
	defer cancel()

	url := "http://" + target.Addr() + printPaths[kind]
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", printjob.ErrUnreachablePeer, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("peer unreachable", "error", err)
		return fmt.Errorf("%w: %w", printjob.ErrUnreachablePeer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := wire.ReadLimited(resp.Body, maxLoggedBody)
		logger.Warn("peer rejected job", "status", resp.StatusCode, "body", wire.Snippet(raw, maxLoggedBody))
		return fmt.Errorf("%w: status %d", printjob.ErrPeerRejected, resp.StatusCode)
	}

	logger.Info("job forwarded", "bytes", len(data))
	return nil
}

// QueryInfo fetches target's PeerInfo. Any failure yields nil.
func (c *Client) QueryInfo(ctx context.Context, target printjob.PeerTarget) *printjob.PeerInfo {
	if err := target.Validate(); err != nil {
		return nil
	}
	logger := log.WithPeer(c.logger, target.Addr())

	ctx, cancel := context.WithTimeout(ctx, c.infoTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+target.Addr()+"/network/info", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("peer info unavailable", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Debug("peer info unavailable", "status", resp.StatusCode)
		return nil
	}

	var info printjob.PeerInfo
	if raw, err := wire.Decode(resp.Body, &info, 0); err != nil {
		logger.Debug("peer info undecodable", "error", err, "body", wire.Snippet(raw, maxLoggedBody))
		return nil
	}
	return &info
}
