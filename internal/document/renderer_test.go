package document

import (
	"bytes"
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wudi/pdfkit/extractor"
)

func grayAsset(page, w, h int, shade byte) extractor.ImageAsset {
	data := make([]byte, w*h)
	for i := range data {
		data[i] = shade
	}
	return extractor.ImageAsset{Page: page, Width: w, Height: h, BitsPerComponent: 8, ColorSpace: "DeviceGray", Data: data}
}

func TestResizeToFit(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		maxEdge int
		wantW   int
		wantH   int
	}{
		{name: "landscape is bounded by width", w: 2000, h: 1000, maxEdge: 1000, wantW: 1000, wantH: 500},
		{name: "portrait is bounded by height", w: 600, h: 1200, maxEdge: 300, wantW: 150, wantH: 300},
		{name: "small image is untouched", w: 200, h: 100, maxEdge: 1024, wantW: 200, wantH: 100},
		{name: "zero disables scaling", w: 4000, h: 3000, maxEdge: 0, wantW: 4000, wantH: 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewGray(image.Rect(0, 0, tt.w, tt.h))
			got := resizeToFit(src, tt.maxEdge)
			assert.Equal(t, tt.wantW, got.Bounds().Dx())
			assert.Equal(t, tt.wantH, got.Bounds().Dy())
		})
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Name: Asha Rao DOB: 01/01/1990", normalizeText("  Name: Asha Rao\n\tDOB:   01/01/1990 \n"))
	assert.Empty(t, normalizeText(" \n "))
}

func TestRenderPage(t *testing.T) {
	doc := &renderedDocument{
		pageCount: 3,
		text:      map[int]string{2: "Government of India"},
		images: map[int][]extractor.ImageAsset{
			2: {grayAsset(1, 10, 10, 0x10), grayAsset(1, 40, 20, 0xF0)},
			3: {{Page: 2, Width: 5, Height: 5, Data: []byte{1, 2}}},
		},
		maxEdge: 20,
	}

	t.Run("largest image wins and is downscaled", func(t *testing.T) {
		page, err := doc.RenderPage(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Number)
		assert.Equal(t, "Government of India", page.Text)
		assert.Equal(t, "image/png", page.Image.MIMEType)

		img, _, err := image.Decode(bytes.NewReader(page.Image.Data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
		r, _, _, _ := img.At(10, 5).RGBA()
		assert.InDelta(t, 0xF0, int(r>>8), 2)
	})

	t.Run("page without images", func(t *testing.T) {
		_, err := doc.RenderPage(context.Background(), 1)
		assert.ErrorIs(t, err, ErrNoPageImage)
	})

	t.Run("page with undecodable image", func(t *testing.T) {
		_, err := doc.RenderPage(context.Background(), 3)
		assert.ErrorIs(t, err, ErrNoPageImage)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := doc.RenderPage(context.Background(), 4)
		assert.ErrorIs(t, err, ErrPageOutOfRange)
		_, err = doc.RenderPage(context.Background(), 0)
		assert.ErrorIs(t, err, ErrPageOutOfRange)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := doc.RenderPage(ctx, 2)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestOpenRejectsGarbage(t *testing.T) {
	r := NewRenderer()

	_, err := r.Open(context.Background(), nil)
	assert.Error(t, err)

	_, err = r.Open(context.Background(), []byte("this is not a pdf"))
	assert.Error(t, err)
}
