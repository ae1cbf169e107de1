// Package raster captures a rendered chart region into a PNG artifact.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"

	"github.com/dgnsrekt/tv_export/internal/artifact"
)

// Scale is the fixed pixel density used for captures.
const Scale = 2.0

// ErrElementNotFound matches any *ElementNotFoundError via errors.Is.
var ErrElementNotFound = errors.New("element not found")

// ElementNotFoundError reports a capture target missing from the page at call time.
type ElementNotFoundError struct {
	ElementID string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %q", e.ElementID)
}

func (e *ElementNotFoundError) Is(target error) bool { return target == ErrElementNotFound }

// Capturer rasterizes the element with the given id.
type Capturer interface {
	Capture(ctx context.Context, elementID string) (image.Image, error)
}

// EncodeFunc turns a bitmap into image bytes.
type EncodeFunc func(img image.Image) ([]byte, error)

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Exporter captures an element and hands the PNG to a sink.
type Exporter struct {
	capturer Capturer
	sink     artifact.Sink
	encode   EncodeFunc
}

// NewExporter builds an Exporter. A nil encode uses EncodePNG.
func NewExporter(capturer Capturer, sink artifact.Sink, encode EncodeFunc) *Exporter {
	if encode == nil {
		encode = EncodePNG
	}
	return &Exporter{capturer: capturer, sink: sink, encode: encode}
}

// Export captures elementID and saves it as filename. Capture and sink errors
// are returned. An encoding failure is not an error: nothing is saved and
// saved is false, which is the only signal the caller gets.
func (e *Exporter) Export(ctx context.Context, elementID, filename string) (saved bool, err error) {
	img, err := e.capturer.Capture(ctx, elementID)
	if err != nil {
		return false, err
	}

	var data []byte
	var encErr error
	if img != nil {
		data, encErr = e.encode(Flatten(img))
	}
	if encErr != nil || len(data) == 0 {
		slog.Warn("raster encode produced no data, skipping save",
			"element_id", elementID,
			"filename", filename,
			"error", encErr,
		)
		return false, nil
	}

	if err := e.sink.Save(ctx, artifact.Artifact{Data: data, Filename: filename, Kind: artifact.KindPNG}); err != nil {
		return false, fmt.Errorf("raster: save %s: %w", filename, err)
	}
	return true, nil
}

// Flatten composites img over an opaque white background.
func Flatten(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}
