package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/printmesh/internal/dispatch/mocks"
	"github.com/mattjoyce/printmesh/internal/events"
	"github.com/mattjoyce/printmesh/internal/printjob"
)

type fixture struct {
	raw      *mocks.MockTextSender
	socket   *mocks.MockSocketWriter
	image    *mocks.MockBlobSender
	document *mocks.MockBlobSender
	hub      *events.Hub
	logs     *bytes.Buffer
	d        *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		raw:      mocks.NewMockTextSender(ctrl),
		socket:   mocks.NewMockSocketWriter(ctrl),
		image:    mocks.NewMockBlobSender(ctrl),
		document: mocks.NewMockBlobSender(ctrl),
		hub:      events.NewHub(16),
		logs:     &bytes.Buffer{},
	}
	logger := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.d = New(Senders{Raw: f.raw, Socket: f.socket, Image: f.image, Document: f.document}, f.hub, logger)
	return f
}

func TestDispatchRoutesByKind(t *testing.T) {
	ctx := context.Background()
	png := []byte{0x89, 'P', 'N', 'G'}
	pdf := []byte("%PDF-1.4")

	t.Run("zpl raw", func(t *testing.T) {
		f := newFixture(t)
		f.raw.EXPECT().Send(ctx, "ZEBRA1", []byte("^XA^FO50,50^FDHello^FS^XZ")).Return(nil)

		res := f.d.Dispatch(ctx, printjob.Job{Kind: printjob.KindZPLRaw, Printer: "ZEBRA1", Payload: "^XA^FO50,50^FDHello^FS^XZ"})
		assert.Equal(t, printjob.Succeeded(), res)
	})

	t.Run("zpl socket", func(t *testing.T) {
		f := newFixture(t)
		f.socket.EXPECT().Send(ctx, "10.0.0.9", 9100, []byte("^XA^XZ")).Return(nil)

		res := f.d.Dispatch(ctx, printjob.Job{Kind: printjob.KindZPLSocket, Host: "10.0.0.9", Port: 9100, Payload: "^XA^XZ"})
		assert.True(t, res.Success)
	})

	t.Run("image decodes base64", func(t *testing.T) {
		f := newFixture(t)
		f.image.EXPECT().Send(ctx, "Labels", png).Return(nil)

		res := f.d.Dispatch(ctx, printjob.Job{Kind: printjob.KindImage, Printer: "Labels", Payload: base64.StdEncoding.EncodeToString(png)})
		assert.True(t, res.Success)
	})

	t.Run("document decodes base64", func(t *testing.T) {
		f := newFixture(t)
		f.document.EXPECT().Send(ctx, "Office", pdf).Return(nil)

		res := f.d.Dispatch(ctx, printjob.Job{Kind: printjob.KindDocument, Printer: "Office", Payload: base64.StdEncoding.EncodeToString(pdf)})
		assert.True(t, res.Success)
	})
}

func TestDispatchValidationSkipsSenders(t *testing.T) {
	tests := []struct {
		name   string
		job    printjob.Job
		detail string
	}{
		{name: "missing printer", job: printjob.Job{Kind: printjob.KindZPLRaw, Payload: "^XA^XZ"}, detail: "printer name is required"},
		{name: "missing payload", job: printjob.Job{Kind: printjob.KindDocument, Printer: "Office"}, detail: "payload is required"},
		{name: "missing host", job: printjob.Job{Kind: printjob.KindZPLSocket, Port: 9100, Payload: "^XA^XZ"}, detail: "host is required"},
		{name: "zero port", job: printjob.Job{Kind: printjob.KindZPLSocket, Host: "10.0.0.9", Payload: "^XA^XZ"}, detail: "port must be between"},
		{name: "bad base64", job: printjob.Job{Kind: printjob.KindImage, Printer: "Labels", Payload: "not base64!"}, detail: "not valid base64"},
		{name: "unknown kind", job: printjob.Job{Printer: "x", Payload: "y"}, detail: "unknown job kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No EXPECT calls: any sender invocation fails the test.
			f := newFixture(t)
			res := f.d.Dispatch(context.Background(), tt.job)
			assert.False(t, res.Success)
			assert.Contains(t, res.Detail, tt.detail)
			assert.Contains(t, res.Detail, printjob.ErrValidation.Error())
		})
	}
}

func TestDispatchNormalizesSenderErrors(t *testing.T) {
	f := newFixture(t)
	f.raw.EXPECT().Send(gomock.Any(), "ZEBRA1", gomock.Any()).Return(errors.New("spooler offline"))

	res := f.d.Dispatch(context.Background(), printjob.Job{Kind: printjob.KindZPLRaw, Printer: "ZEBRA1", Payload: "^XA^XZ"})
	assert.False(t, res.Success)
	assert.Equal(t, "delivery failed: spooler offline", res.Detail)
	assert.Contains(t, f.logs.String(), "print job failed")
	assert.Contains(t, f.logs.String(), `"printer":"ZEBRA1"`)
	assert.NotContains(t, f.logs.String(), `"target"`)
}

func TestDispatchSocketJobLogsTarget(t *testing.T) {
	f := newFixture(t)
	f.socket.EXPECT().Send(gomock.Any(), "10.0.0.9", 9100, gomock.Any()).Return(errors.New("refused"))

	res := f.d.Dispatch(context.Background(), printjob.Job{Kind: printjob.KindZPLSocket, Host: "10.0.0.9", Port: 9100, Payload: "^XA^XZ"})
	assert.False(t, res.Success)
	assert.Contains(t, f.logs.String(), `"target":"10.0.0.9:9100"`)
	assert.NotContains(t, f.logs.String(), `"printer"`)
}

func TestDispatchRecoversSenderPanic(t *testing.T) {
	f := newFixture(t)
	f.document.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, []byte) error { panic("renderer exploded") })

	var res printjob.Result
	require.NotPanics(t, func() {
		res = f.d.Dispatch(context.Background(), printjob.Job{Kind: printjob.KindDocument, Printer: "Office", Payload: "JVBERg=="})
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Detail, "renderer exploded")

	snap := f.hub.SnapshotSince(0)
	require.Len(t, snap, 1)
	assert.Equal(t, events.PrintFailed, snap[0].Type)
}

func TestDispatchPublishesOutcome(t *testing.T) {
	f := newFixture(t)
	f.socket.EXPECT().Send(gomock.Any(), "10.0.0.9", 9100, gomock.Any()).Return(nil)
	f.socket.EXPECT().Send(gomock.Any(), "10.0.0.9", 9100, gomock.Any()).Return(errors.New("connection refused"))

	job := printjob.Job{Kind: printjob.KindZPLSocket, Host: "10.0.0.9", Port: 9100, Payload: "^XA^XZ"}
	f.d.Dispatch(context.Background(), job)
	f.d.Dispatch(context.Background(), job)

	snap := f.hub.SnapshotSince(0)
	require.Len(t, snap, 2)
	assert.Equal(t, events.PrintSucceeded, snap[0].Type)
	assert.Equal(t, events.PrintFailed, snap[1].Type)

	var outcome events.PrintOutcome
	require.NoError(t, json.Unmarshal(snap[1].Data, &outcome))
	assert.Equal(t, "zpl_tcp", outcome.Kind)
	assert.Equal(t, "10.0.0.9:9100", outcome.Target)
	assert.Equal(t, 6, outcome.Bytes)
	assert.Contains(t, outcome.Detail, "connection refused")
}

func TestDispatchWithoutHub(t *testing.T) {
	ctrl := gomock.NewController(t)
	raw := mocks.NewMockTextSender(ctrl)
	raw.EXPECT().Send(gomock.Any(), "ZEBRA1", gomock.Any()).Return(nil)

	d := New(Senders{Raw: raw}, nil, slog.Default())
	assert.True(t, d.Dispatch(context.Background(), printjob.Job{Kind: printjob.KindZPLRaw, Printer: "ZEBRA1", Payload: "^XA^XZ"}).Success)
}
