package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/printmesh/internal/events"
	"github.com/mattjoyce/printmesh/internal/log"
	"github.com/mattjoyce/printmesh/internal/printjob"
)

// Dispatcher is the local dispatch boundary shared by the HTTP API and the
// peer-forwarding path on the receiving agent.
type Dispatcher struct {
	senders Senders
	hub     *events.Hub
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Dispatcher. hub may be nil.
func New(senders Senders, hub *events.Hub, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		senders: senders,
		hub:     hub,
		logger:  logger.With("component", "dispatch"),
		now:     time.Now,
	}
}

// Dispatch validates job, decodes its payload and hands it to one sender.
func (d *Dispatcher) Dispatch(ctx context.Context, job printjob.Job) (res printjob.Result) {
	started := d.now()
	jobLogger := d.logger.With("kind", job.Kind.String())
	if job.Kind == printjob.KindZPLSocket {
		jobLogger = jobLogger.With("target", job.Target())
	} else {
		jobLogger = log.WithPrinter(jobLogger, job.Printer)
	}

	var size int
	defer func() {
		if r := recover(); r != nil {
			jobLogger.Error("sender panicked", "panic", r)
			res = printjob.Failed(fmt.Errorf("%w: sender panic: %v", printjob.ErrDelivery, r))
		}
		d.publish(job, size, res, d.now().Sub(started))
	}()

	if err := job.Validate(); err != nil {
		jobLogger.Warn("rejected print job", "error", err)
		return printjob.Failed(err)
	}

	payload, err := job.Bytes()
	if err != nil {
		jobLogger.Warn("rejected print job", "error", err)
		return printjob.Failed(err)
	}
	size = len(payload)

	if err := d.route(ctx, job, payload); err != nil {
		if !errors.Is(err, printjob.ErrDelivery) {
			err = fmt.Errorf("%w: %w", printjob.ErrDelivery, err)
		}
		jobLogger.Error("print job failed", "error", err, "bytes", size)
		return printjob.Failed(err)
	}

	jobLogger.Info("print job delivered", "bytes", size, "took", d.now().Sub(started))
	return printjob.Succeeded()
}

func (d *Dispatcher) route(ctx context.Context, job printjob.Job, payload []byte) error {
	switch job.Kind {
	case printjob.KindZPLRaw:
		return d.senders.Raw.Send(ctx, job.Printer, payload)
	case printjob.KindZPLSocket:
		return d.senders.Socket.Send(ctx, job.Host, job.Port, payload)
	case printjob.KindImage:
		return d.senders.Image.Send(ctx, job.Printer, payload)
	case printjob.KindDocument:
		return d.senders.Document.Send(ctx, job.Printer, payload)
	default:
		return fmt.Errorf("%w: %s", printjob.ErrUnsupportedKind, job.Kind)
	}
}

func (d *Dispatcher) publish(job printjob.Job, size int, res printjob.Result, took time.Duration) {
	outcome := events.PrintOutcome{
		Kind:   job.Kind.String(),
		Target: job.Target(),
		Bytes:  size,
		Detail: res.Detail,
		TookMS: took.Milliseconds(),
	}
	if res.Success {
		d.hub.Publish(events.PrintSucceeded, outcome)
		return
	}
	d.hub.Publish(events.PrintFailed, outcome)
}
