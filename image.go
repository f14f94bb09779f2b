package toolkit

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// ImageBackend is the image transform capability consumed by the queue.
// Calls are stateless: one input file and options in, one output blob out.
type ImageBackend interface {
	Compress(ctx context.Context, f *File, quality float64, format string) (*Blob, error)
	Resize(ctx context.Context, f *File, width, height int, maintainAspectRatio, highQuality bool) (*Blob, error)
	Convert(ctx context.Context, f *File, targetFormat string, quality float64) (*Blob, error)
}

// fallbackFormat is the lossy encoding used when a requested format cannot be
// encoded.
const fallbackFormat = "jpeg"

// imagingFormats maps normalized format names to their encoder. The key set
// doubles as the supported-format list.
var imagingFormats = map[string]imaging.Format{
	"jpeg": imaging.JPEG,
	"png":  imaging.PNG,
	"gif":  imaging.GIF,
	"tiff": imaging.TIFF,
	"bmp":  imaging.BMP,
}

// normalizeFormat lowercases a format name and folds "jpg" into "jpeg".
func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "jpg" {
		format = "jpeg"
	}
	return format
}

// formatSupported reports whether the format can be encoded.
func formatSupported(format string) bool {
	_, ok := imagingFormats[normalizeFormat(format)]
	return ok
}

// chooseCompressFormat resolves the output format for a compress request.
// "original" keeps the source format when it is lossy; anything that cannot
// be encoded falls back to the lossy default so compression has an effect.
func chooseCompressFormat(requested, srcMIME string) string {
	if requested == "" {
		return fallbackFormat
	}
	if requested == "original" {
		n := normalizeFormat(mimeSubtype(srcMIME))
		if n == "jpeg" {
			return n
		}
		return fallbackFormat
	}
	n := normalizeFormat(requested)
	if !formatSupported(n) {
		return fallbackFormat
	}
	return n
}

// DefaultMaxDimension bounds input width/height accepted by the imaging backend.
const DefaultMaxDimension = 16384

// ImagingBackend implements ImageBackend on top of disintegration/imaging.
type ImagingBackend struct {
	maxDimension int
	log          Logger
}

// NewImagingBackend creates an image backend with the default dimension cap.
func NewImagingBackend(log Logger) *ImagingBackend {
	if log == nil {
		log = NewFmtLogger()
	}
	return &ImagingBackend{maxDimension: DefaultMaxDimension, log: log}
}

// Compress re-encodes the image at the given quality in the given format.
func (b *ImagingBackend) Compress(ctx context.Context, f *File, quality float64, format string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format = normalizeFormat(format)
	if !formatSupported(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	img, err := b.decode(f)
	if err != nil {
		return nil, err
	}
	return b.encode(img, format, quality)
}

// Resize scales the image to the target dimensions. With maintainAspectRatio
// the image is fitted inside the target box instead of stretched. The output
// keeps the source format where possible.
func (b *ImagingBackend) Resize(ctx context.Context, f *File, width, height int, maintainAspectRatio, highQuality bool) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if width < 1 || width > b.maxDimension {
		return nil, fmt.Errorf("toolkit: invalid width: %d", width)
	}
	if height < 1 || height > b.maxDimension {
		return nil, fmt.Errorf("toolkit: invalid height: %d", height)
	}
	img, err := b.decode(f)
	if err != nil {
		return nil, err
	}

	if maintainAspectRatio {
		srcW, srcH := img.Bounds().Dx(), img.Bounds().Dy()
		originalRatio := float64(srcW) / float64(srcH)
		requestedRatio := float64(width) / float64(height)
		if requestedRatio > originalRatio {
			width = int(float64(height)*originalRatio + 0.5)
		} else {
			height = int(float64(width)/originalRatio + 0.5)
		}
	}

	filter := imaging.Box
	if highQuality {
		filter = imaging.Lanczos
	}
	resized := imaging.Resize(img, width, height, filter)

	format := normalizeFormat(mimeSubtype(f.Type))
	if !formatSupported(format) {
		format = fallbackFormat
	}
	return b.encode(resized, format, 0.9)
}

// Convert re-encodes the image in the target format. Converting to JPEG
// flattens transparency onto a white background.
func (b *ImagingBackend) Convert(ctx context.Context, f *File, targetFormat string, quality float64) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	targetFormat = normalizeFormat(targetFormat)
	if !formatSupported(targetFormat) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, targetFormat)
	}
	img, err := b.decode(f)
	if err != nil {
		return nil, err
	}
	if targetFormat == "jpeg" {
		bg := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
		img = imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
	}
	return b.encode(img, targetFormat, quality)
}

func (b *ImagingBackend) decode(f *File) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > b.maxDimension || bounds.Dy() > b.maxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, bounds.Dx(), bounds.Dy())
	}
	return img, nil
}

func (b *ImagingBackend) encode(img image.Image, format string, quality float64) (*Blob, error) {
	ifmt, ok := imagingFormats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if quality < 0.1 {
		quality = 0.1
	} else if quality > 1.0 {
		quality = 1.0
	}
	var opts []imaging.EncodeOption
	if ifmt == imaging.JPEG {
		opts = append(opts, imaging.JPEGQuality(int(quality*100)))
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, ifmt, opts...); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return &Blob{Data: buf.Bytes(), Type: "image/" + format}, nil
}
