package sender

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/printmesh/internal/config"
	"github.com/mattjoyce/printmesh/internal/printjob"
)

type recordingDocuments struct {
	printer string
	pdf     []byte
	err     error
}

func (r *recordingDocuments) Send(_ context.Context, printer string, pdf []byte) error {
	r.printer, r.pdf = printer, pdf
	return r.err
}

func testPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageSender_SendsSinglePagePDF(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	img.Set(1, 1, color.Black)

	docs := &recordingDocuments{}
	s := NewImageSender(docs, config.ImageConfig{PageSize: "a4", Orientation: "portrait"})
	require.NoError(t, s.Send(context.Background(), "Labels", testPNG(t, img)))

	assert.Equal(t, "Labels", docs.printer)
	require.NotEmpty(t, docs.pdf)
	assert.True(t, bytes.HasPrefix(docs.pdf, []byte("%PDF-")))
	assert.Contains(t, string(docs.pdf), "/Type /Page")
}

func TestImageSender_PalettedImage(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.White, color.Black})
	docs := &recordingDocuments{}

	require.NoError(t, NewImageSender(docs, config.ImageConfig{}).Send(context.Background(), "Labels", testPNG(t, img)))
	assert.NotEmpty(t, docs.pdf)
}

func TestImageSender_MalformedImage(t *testing.T) {
	docs := &recordingDocuments{}
	err := NewImageSender(docs, config.ImageConfig{}).Send(context.Background(), "Labels", []byte("not an image"))

	require.Error(t, err)
	assert.ErrorIs(t, err, printjob.ErrDelivery)
	assert.Empty(t, docs.printer, "document pipeline must not run")
}

func TestImageSender_DocumentFailurePropagates(t *testing.T) {
	docs := &recordingDocuments{err: errors.Join(printjob.ErrDelivery, errors.New("spooler down"))}
	img := image.NewGray(image.Rect(0, 0, 4, 4))

	err := NewImageSender(docs, config.ImageConfig{}).Send(context.Background(), "Labels", testPNG(t, img))
	assert.ErrorIs(t, err, printjob.ErrDelivery)
}

func TestNewImageSender_Geometry(t *testing.T) {
	tests := []struct {
		cfg         config.ImageConfig
		size        string
		orientation string
	}{
		{cfg: config.ImageConfig{}, size: "A4", orientation: "P"},
		{cfg: config.ImageConfig{PageSize: "Letter", Orientation: "Landscape"}, size: "Letter", orientation: "L"},
		{cfg: config.ImageConfig{PageSize: "tabloid"}, size: "A4", orientation: "P"},
	}
	for _, tt := range tests {
		s := NewImageSender(nil, tt.cfg)
		assert.Equal(t, tt.size, s.pageSize)
		assert.Equal(t, tt.orientation, s.orientation)
	}
}
