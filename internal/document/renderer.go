// Package document turns an uploaded ID PDF into per-page images and text for
// the extraction pipeline.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"sort"
	"strings"

	"github.com/wudi/pdfkit/extractor"
	"github.com/wudi/pdfkit/ir"
	xdraw "golang.org/x/image/draw"

	"altid/internal/verification/models"
	"altid/internal/verification/ports"
)

// DefaultMaxEdge bounds the longest side of a page image sent to providers.
const DefaultMaxEdge = 1024

var (
	ErrPageOutOfRange = errors.New("page out of range")
	ErrNoPageImage    = errors.New("page has no usable image")
)

// Renderer parses PDFs with pdfkit.
type Renderer struct {
	maxEdge int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxEdge overrides DefaultMaxEdge. Zero disables downscaling.
func WithMaxEdge(px int) Option {
	return func(r *Renderer) {
		if px >= 0 {
			r.maxEdge = px
		}
	}
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{maxEdge: DefaultMaxEdge}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open parses content and indexes text and images by page. Decoding of the
// page image is deferred to RenderPage.
func (r *Renderer) Open(ctx context.Context, content []byte) (ports.RenderedDocument, error) {
	if len(content) == 0 {
		return nil, errors.New("document is empty")
	}
	doc, err := ir.NewDefault().Parse(ctx, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	dec := doc.Decoded()
	if dec == nil {
		return nil, errors.New("pdf has no decoded representation")
	}
	ext, err := extractor.New(dec)
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	texts, err := ext.ExtractText()
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	assets, err := ext.ExtractImages()
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	rendered := &renderedDocument{
		pageCount: ext.ExtractMetadata().PageCount,
		text:      make(map[int]string, len(texts)),
		images:    make(map[int][]extractor.ImageAsset),
		maxEdge:   r.maxEdge,
	}
	for _, t := range texts {
		rendered.text[t.Page+1] = normalizeText(t.Content)
	}
	for _, a := range assets {
		rendered.images[a.Page+1] = append(rendered.images[a.Page+1], a)
	}
	return rendered, nil
}

type renderedDocument struct {
	pageCount int
	text      map[int]string
	images    map[int][]extractor.ImageAsset
	maxEdge   int
}

func (d *renderedDocument) PageCount() int {
	return d.pageCount
}

// RenderPage returns the largest decodable image on the page as PNG. number
// is 1-indexed.
func (d *renderedDocument) RenderPage(ctx context.Context, number int) (*ports.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if number < 1 || number > d.pageCount {
		return nil, fmt.Errorf("page %d of %d: %w", number, d.pageCount, ErrPageOutOfRange)
	}

	candidates := append([]extractor.ImageAsset(nil), d.images[number]...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Width*candidates[i].Height > candidates[j].Width*candidates[j].Height
	})

	var lastErr error
	for _, asset := range candidates {
		img, err := asset.ToImage()
		if err != nil {
			lastErr = err
			continue
		}
		data, err := encodePNG(resizeToFit(img, d.maxEdge))
		if err != nil {
			lastErr = err
			continue
		}
		return &ports.Page{
			Number: number,
			Image:  models.Image{MIMEType: "image/png", Data: data},
			Text:   d.text[number],
		}, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("page %d: %w: %v", number, ErrNoPageImage, lastErr)
	}
	return nil, fmt.Errorf("page %d: %w", number, ErrNoPageImage)
}

// normalizeText collapses runs of whitespace into single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resizeToFit scales img so its longest side is at most maxEdge, keeping the
// aspect ratio. Smaller images are returned as is.
func resizeToFit(src image.Image, maxEdge int) image.Image {
	bw, bh := src.Bounds().Dx(), src.Bounds().Dy()
	if maxEdge <= 0 || (bw <= maxEdge && bh <= maxEdge) {
		return src
	}
	scale := float64(maxEdge) / float64(max(bw, bh))
	w := max(1, int(math.Round(float64(bw)*scale)))
	h := max(1, int(math.Round(float64(bh)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
