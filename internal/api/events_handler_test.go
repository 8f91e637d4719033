package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/printmesh/internal/events"
)

// openStream connects to path on a live server and returns a reader of
// blank-line separated SSE blocks.
func openStream(t *testing.T, env *testEnv, path string, header http.Header) func() []string {
	t.Helper()
	srv := httptest.NewServer(env.server.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	return func() []string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			if line == "" {
				return lines
			}
			lines = append(lines, line)
		}
	}
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.hub.Publish(events.PrintSucceeded, events.PrintOutcome{Kind: "zpl", Target: "ZEBRA1"})

	next := openStream(t, env, "/events", nil)
	assert.Equal(t, []string{"retry: 3000"}, next())

	backlog := next()
	assert.Equal(t, "id: 1", backlog[0])
	assert.Equal(t, "event: print.succeeded", backlog[1])
	assert.Contains(t, backlog[2], `"target":"ZEBRA1"`)

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	env.hub.Publish(events.PrintFailed, events.PrintOutcome{Kind: "pdf", Target: "Office"})

	live := next()
	assert.Equal(t, "id: 2", live[0])
	assert.Equal(t, "event: print.failed", live[1])
}

func TestEventsStream_TypeFilter(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.hub.Publish(events.PrintSucceeded, events.PrintOutcome{Kind: "zpl", Target: "ZEBRA1"})
	env.hub.Publish(events.ForwardFailed, events.ForwardOutcome{Peer: "10.0.0.5:5246"})

	next := openStream(t, env, "/events?type=forward", nil)
	next() // retry

	backlog := next()
	assert.Equal(t, "id: 2", backlog[0])
	assert.Equal(t, "event: forward.failed", backlog[1])

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	env.hub.Publish(events.PrintFailed, events.PrintOutcome{Kind: "pdf", Target: "Office"})
	env.hub.Publish(events.ForwardSucceeded, events.ForwardOutcome{Peer: "10.0.0.5:5246"})

	live := next()
	assert.Equal(t, "id: 4", live[0])
	assert.Equal(t, "event: forward.succeeded", live[1])
}

func TestEventsStream_Resume(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header http.Header
	}{
		{name: "header", path: "/events", header: http.Header{"Last-Event-Id": {"1"}}},
		{name: "query", path: "/events?since=1"},
		{name: "header wins", path: "/events?since=0", header: http.Header{"Last-Event-Id": {"1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Config{})
			env.hub.Publish(events.PrintSucceeded, events.PrintOutcome{Kind: "zpl", Target: "ZEBRA1"})
			env.hub.Publish(events.PrintFailed, events.PrintOutcome{Kind: "pdf", Target: "Office"})

			next := openStream(t, env, tt.path, tt.header)
			next() // retry

			assert.Equal(t, "id: 2", next()[0])
		})
	}
}

func TestTypeFilter(t *testing.T) {
	tests := []struct {
		raw       string
		eventType string
		want      bool
	}{
		{"", events.PrintFailed, true},
		{"print", events.PrintFailed, true},
		{"print", events.ForwardFailed, false},
		{"print.failed", events.PrintSucceeded, false},
		{" update , forward.failed ", events.ForwardFailed, true},
		{" update , forward.failed ", events.UpdateAvailable, true},
		{"pri", events.PrintFailed, false},
		{",,", events.PrintFailed, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTypeFilter(tt.raw).match(tt.eventType), "%q vs %s", tt.raw, tt.eventType)
	}
}

func TestParseLastEventID(t *testing.T) {
	assert.Equal(t, int64(0), parseLastEventID(""))
	assert.Equal(t, int64(0), parseLastEventID("-4"))
	assert.Equal(t, int64(0), parseLastEventID("abc"))
	assert.Equal(t, int64(12), parseLastEventID("12"))
}
