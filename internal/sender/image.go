package sender

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"

	"github.com/mattjoyce/printmesh/internal/config"
	"github.com/mattjoyce/printmesh/internal/log"
	"github.com/mattjoyce/printmesh/internal/printjob"
)

// DocumentPrinter submits a finished PDF to a named printer.
type DocumentPrinter interface {
	Send(ctx context.Context, printer string, pdf []byte) error
}

// ImageSender lays a bitmap out on a single page and hands the page to the
// document pipeline.
type ImageSender struct {
	documents   DocumentPrinter
	pageSize    string
	orientation string
	logger      *slog.Logger
}

func NewImageSender(documents DocumentPrinter, cfg config.ImageConfig) *ImageSender {
	size, ok := config.PageSizes[strings.ToLower(cfg.PageSize)]
	if !ok {
		size = "A4"
	}
	orientation := "P"
	if strings.EqualFold(cfg.Orientation, "landscape") {
		orientation = "L"
	}
	return &ImageSender{
		documents:   documents,
		pageSize:    size,
		orientation: orientation,
		logger:      log.WithComponent("sender.image"),
	}
}

// Send decodes img and prints it scaled to the full page bounds.
func (s *ImageSender) Send(ctx context.Context, printer string, img []byte) error {
	doc, err := s.Layout(img)
	if err != nil {
		return fmt.Errorf("%w: %w", printjob.ErrDelivery, err)
	}
	if err := s.documents.Send(ctx, printer, doc); err != nil {
		return err
	}
	log.WithPrinter(s.logger, printer).Info("image job sent", "bytes", len(img))
	return nil
}

// Layout renders img as a one page PDF.
func (s *ImageSender) Layout(img []byte) ([]byte, error) {
	decoded, format, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// gofpdf rejects paletted and 16-bit PNGs; normalise to 8-bit RGBA.
	bounds := decoded.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, draw.Src)

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, rgba); err != nil {
		return nil, fmt.Errorf("re-encode %s image: %w", format, err)
	}

	pdf := gofpdf.New(s.orientation, "mm", s.pageSize, "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	name := uuid.NewString()
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, &encoded)
	width, height := pdf.GetPageSize()
	pdf.ImageOptions(name, 0, 0, width, height, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("layout page: %w", err)
	}
	return out.Bytes(), nil
}
