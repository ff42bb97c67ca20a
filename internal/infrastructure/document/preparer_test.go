package document

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/finnexus/internal/application/port"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newPreparer() *Preparer {
	return NewPreparer(Config{MaxBytes: 1 << 20, MaxDimension: 100}, zap.NewNop())
}

func TestPrepare_SmallImagePassesThrough(t *testing.T) {
	data := pngBytes(t, 50, 40)

	doc, err := newPreparer().Prepare(context.Background(), port.Document{Data: data, MimeType: "image/png", Filename: "a.png"})

	require.NoError(t, err)
	assert.Equal(t, data, doc.Data)
	assert.Equal(t, "image/png", doc.MimeType)
	assert.Equal(t, "a.png", doc.Filename)
}

func TestPrepare_LargeImageIsDownscaled(t *testing.T) {
	data := pngBytes(t, 400, 200)

	doc, err := newPreparer().Prepare(context.Background(), port.Document{Data: data, MimeType: "image/png"})

	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", doc.MimeType)

	img, err := imaging.Decode(bytes.NewReader(doc.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestPrepare_SniffsGenericType(t *testing.T) {
	data := pngBytes(t, 10, 10)

	doc, err := newPreparer().Prepare(context.Background(), port.Document{Data: data, MimeType: "application/octet-stream"})

	require.NoError(t, err)
	assert.Equal(t, "image/png", doc.MimeType)
}

func TestPrepare_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		upload  port.Document
		wantErr error
	}{
		{"empty", port.Document{MimeType: "image/png"}, ErrEmptyDocument},
		{"too large", port.Document{Data: make([]byte, 1<<20+1), MimeType: "image/png"}, ErrTooLarge},
		{"text file", port.Document{Data: []byte("just some notes\n"), MimeType: ""}, ErrUnsupportedType},
		{"declared text", port.Document{Data: []byte("a,b\n1,2\n"), MimeType: "text/csv"}, ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPreparer().Prepare(context.Background(), tt.upload)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPrepare_BrokenPDF(t *testing.T) {
	_, err := newPreparer().Prepare(context.Background(), port.Document{Data: []byte("%PDF-1.4\nnot really"), MimeType: "application/pdf"})
	assert.Error(t, err)
}

func TestPrepare_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPreparer().Prepare(ctx, port.Document{Data: pngBytes(t, 5, 5), MimeType: "image/png"})
	assert.ErrorIs(t, err, context.Canceled)
}
