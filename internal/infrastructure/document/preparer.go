// Package document turns uploads into images a vision model accepts.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/finnexus/internal/application/port"
)

const (
	mimePDF  = "application/pdf"
	mimeJPEG = "image/jpeg"
)

var (
	// ErrEmptyDocument is returned for zero-length uploads
	ErrEmptyDocument = errors.New("document is empty")

	// ErrTooLarge is returned when an upload exceeds the size limit
	ErrTooLarge = errors.New("document exceeds size limit")

	// ErrUnsupportedType is returned for anything but images and PDFs
	ErrUnsupportedType = errors.New("unsupported document type")
)

// Config limits what the preparer accepts and produces
type Config struct {
	MaxBytes     int64
	MaxDimension int
	JPEGQuality  int
}

// Preparer implements port.DocumentPreparer
type Preparer struct {
	cfg    Config
	logger *zap.Logger
}

// NewPreparer creates a preparer
func NewPreparer(cfg Config, logger *zap.Logger) *Preparer {
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 85
	}
	return &Preparer{cfg: cfg, logger: logger}
}

// Prepare validates the upload, renders PDFs to their first page and
// downscales large images. Small images pass through unchanged.
func (p *Preparer) Prepare(ctx context.Context, upload port.Document) (*port.Document, error) {
	if len(upload.Data) == 0 {
		return nil, ErrEmptyDocument
	}
	if p.cfg.MaxBytes > 0 && int64(len(upload.Data)) > p.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(upload.Data), p.cfg.MaxBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mimeType := detectType(upload)
	p.logger.Debug("Preparing document",
		zap.String("filename", upload.Filename),
		zap.String("declared_type", upload.MimeType),
		zap.String("mime_type", mimeType))

	switch {
	case mimeType == mimePDF:
		img, err := renderFirstPage(upload.Data)
		if err != nil {
			return nil, err
		}
		return p.encode(upload.Filename, p.fit(img))

	case strings.HasPrefix(mimeType, "image/"):
		img, err := imaging.Decode(bytes.NewReader(upload.Data), imaging.AutoOrientation(true))
		if err != nil {
			// formats imaging cannot decode go to the model as they are
			p.logger.Debug("Passing image through undecoded", zap.String("mime_type", mimeType), zap.Error(err))
			return &port.Document{Data: upload.Data, MimeType: mimeType, Filename: upload.Filename}, nil
		}
		if !p.oversized(img) {
			return &port.Document{Data: upload.Data, MimeType: mimeType, Filename: upload.Filename}, nil
		}
		return p.encode(upload.Filename, p.fit(img))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
}

// detectType trusts a specific declared type and sniffs otherwise
func detectType(upload port.Document) string {
	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(upload.MimeType, ";", 2)[0]))
	if declared == mimePDF || strings.HasPrefix(declared, "image/") {
		return declared
	}
	return mimetype.Detect(upload.Data).String()
}

func renderFirstPage(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("failed to open PDF: no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("failed to render PDF page: %w", err)
	}
	return img, nil
}

func (p *Preparer) oversized(img image.Image) bool {
	if p.cfg.MaxDimension <= 0 {
		return false
	}
	b := img.Bounds()
	return b.Dx() > p.cfg.MaxDimension || b.Dy() > p.cfg.MaxDimension
}

func (p *Preparer) fit(img image.Image) image.Image {
	if !p.oversized(img) {
		return img
	}
	return imaging.Fit(img, p.cfg.MaxDimension, p.cfg.MaxDimension, imaging.Lanczos)
}

func (p *Preparer) encode(filename string, img image.Image) (*port.Document, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.cfg.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &port.Document{Data: buf.Bytes(), MimeType: mimeJPEG, Filename: filename}, nil
}

var _ port.DocumentPreparer = (*Preparer)(nil)
