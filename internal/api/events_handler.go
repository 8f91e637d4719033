package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mattjoyce/printmesh/internal/events"
)

const (
	keepAliveInterval = 15 * time.Second
	reconnectDelay    = 3 * time.Second
)

// typeFilter selects events by type. An entry matches its exact type or,
// without a dot, a whole family: "print" matches print.succeeded and
// print.failed. An empty filter matches everything.
type typeFilter []string

func parseTypeFilter(raw string) typeFilter {
	var f typeFilter
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			f = append(f, part)
		}
	}
	return f
}

func (f typeFilter) match(eventType string) bool {
	if len(f) == 0 {
		return true
	}
	for _, want := range f {
		if eventType == want || strings.HasPrefix(eventType, want+".") {
			return true
		}
	}
	return false
}

// resumeFrom reads the resume point from Last-Event-ID, falling back to the
// since query parameter for clients that cannot set headers.
func resumeFrom(r *http.Request) int64 {
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		return parseLastEventID(v)
	}
	return parseLastEventID(r.URL.Query().Get("since"))
}

func parseLastEventID(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// sseWriter frames hub events onto one streaming response.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	filter  typeFilter
}

func (s *sseWriter) open() error {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)

	_, err := fmt.Fprintf(s.w, "retry: %d\n\n", reconnectDelay.Milliseconds())
	return err
}

// event writes ev unless the filter drops it. Payloads are single-line JSON.
func (s *sseWriter) event(ev events.Event) error {
	if !s.filter.match(ev.Type) {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "id: %d\n", ev.ID)
	if ev.Type != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Type)
	}
	fmt.Fprintf(&b, "data: %s\n\n", ev.Data)
	_, err := fmt.Fprint(s.w, b.String())
	return err
}

func (s *sseWriter) ping() error {
	_, err := fmt.Fprint(s.w, ": keep-alive\n\n")
	return err
}

func (s *sseWriter) flush() { s.flusher.Flush() }

// handleEvents handles GET /events. The buffered backlog after the resume
// point is replayed before live events; ?type= narrows both.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	stream := &sseWriter{w: w, flusher: flusher, filter: parseTypeFilter(r.URL.Query().Get("type"))}

	// Subscribe before the snapshot so nothing published in between is lost.
	ch, unsubscribe := s.deps.Events.Subscribe()
	defer unsubscribe()

	if err := stream.open(); err != nil {
		return
	}
	last := resumeFrom(r)
	for _, ev := range s.deps.Events.SnapshotSince(last) {
		if err := stream.event(ev); err != nil {
			return
		}
		last = ev.ID
	}
	stream.flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.ID <= last {
				continue
			}
			last = ev.ID
			err = stream.event(ev)
		case <-ticker.C:
			err = stream.ping()
		}
		if err != nil {
			return
		}
		stream.flush()
	}
}
