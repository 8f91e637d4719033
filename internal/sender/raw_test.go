package sender

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/printmesh/internal/printjob"
)

type fakeRawDevice struct {
	openErr error
	handle  *fakeRawHandle
	opened  []string
}

func (d *fakeRawDevice) Open(_ context.Context, printer string) (RawHandle, error) {
	d.opened = append(d.opened, printer)
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.handle, nil
}

type fakeRawHandle struct {
	failAt   string
	shortBy  int
	written  []byte
	steps    []string
	docName  string
	dataType string
	closed   bool
}

func (h *fakeRawHandle) step(name string) error {
	h.steps = append(h.steps, name)
	if h.failAt == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (h *fakeRawHandle) StartDoc(docName, dataType string) error {
	h.docName, h.dataType = docName, dataType
	return h.step("startdoc")
}
func (h *fakeRawHandle) StartPage() error { return h.step("startpage") }
func (h *fakeRawHandle) Write(p []byte) (int, error) {
	if err := h.step("write"); err != nil {
		return 0, err
	}
	n := len(p) - h.shortBy
	h.written = append(h.written, p[:n]...)
	return n, nil
}
func (h *fakeRawHandle) EndPage() error { return h.step("endpage") }
func (h *fakeRawHandle) EndDoc() error  { return h.step("enddoc") }
func (h *fakeRawHandle) Close() error {
	h.closed = true
	return h.step("close")
}

func TestRawSender_Send(t *testing.T) {
	payload := []byte("^XA^FO50,50^FDHello^FS^XZ")
	handle := &fakeRawHandle{}
	device := &fakeRawDevice{handle: handle}

	err := NewRawSenderWithDevice(device, "label").Send(context.Background(), "ZEBRA1", payload)
	require.NoError(t, err)

	assert.Equal(t, []string{"ZEBRA1"}, device.opened)
	assert.Equal(t, payload, handle.written)
	assert.Equal(t, "label", handle.docName)
	assert.Equal(t, RawDataType, handle.dataType)
	assert.Equal(t, []string{"startdoc", "startpage", "write", "endpage", "enddoc", "close"}, handle.steps)
}

func TestRawSender_StepFailuresCloseHandle(t *testing.T) {
	for _, step := range []string{"startdoc", "startpage", "write", "endpage", "enddoc"} {
		t.Run(step, func(t *testing.T) {
			handle := &fakeRawHandle{failAt: step}
			err := NewRawSenderWithDevice(&fakeRawDevice{handle: handle}, "doc").
				Send(context.Background(), "ZEBRA1", []byte("^XA^XZ"))

			require.Error(t, err)
			assert.ErrorIs(t, err, printjob.ErrDelivery)
			assert.True(t, handle.closed)
			assert.Equal(t, step, handle.steps[len(handle.steps)-2], "later steps must not run")
		})
	}
}

func TestRawSender_ShortWrite(t *testing.T) {
	handle := &fakeRawHandle{shortBy: 2}
	err := NewRawSenderWithDevice(&fakeRawDevice{handle: handle}, "doc").
		Send(context.Background(), "ZEBRA1", []byte("^XA^XZ"))

	require.Error(t, err)
	assert.ErrorIs(t, err, printjob.ErrDelivery)
	assert.Contains(t, err.Error(), "short write")
	assert.True(t, handle.closed)
	assert.NotContains(t, handle.steps, "enddoc")
}

func TestRawSender_OpenFailure(t *testing.T) {
	device := &fakeRawDevice{openErr: errors.New("no such printer")}
	err := NewRawSenderWithDevice(device, "doc").Send(context.Background(), "NOPE", []byte("^XA^XZ"))

	require.Error(t, err)
	assert.ErrorIs(t, err, printjob.ErrDelivery)
	assert.Contains(t, err.Error(), `"NOPE"`)
}

func TestRawSender_CloseErrorDoesNotFailJob(t *testing.T) {
	handle := &fakeRawHandle{failAt: "close"}
	err := NewRawSenderWithDevice(&fakeRawDevice{handle: handle}, "doc").
		Send(context.Background(), "ZEBRA1", []byte("^XA^XZ"))
	assert.NoError(t, err)
}
