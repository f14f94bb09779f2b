package toolkit

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned when a handler receives an options payload of
// the wrong type for its operation.
var ErrInvalidOptions = errors.New("toolkit: invalid options for operation")

// HandlerFunc is the function signature for processing a single input file.
// It returns the processed output or a typed error; the queue turns either
// into the item's terminal state.
type HandlerFunc func(ctx context.Context, in *File, opts Options) (*Blob, error)

// Middleware is a function that wraps a HandlerFunc to provide cross-cutting concerns.
type Middleware func(HandlerFunc) HandlerFunc

// Mux maps operations to their handlers. It replaces stringly-typed dispatch
// with a lookup table over the closed Operation set.
type Mux struct {
	handlers    map[Operation]HandlerFunc
	middlewares []Middleware
}

// NewMux creates an empty operation Mux.
func NewMux() *Mux {
	return &Mux{
		handlers:    make(map[Operation]HandlerFunc),
		middlewares: []Middleware{},
	}
}

// Handle registers a handler for an operation, replacing any previous one.
func (m *Mux) Handle(op Operation, fn HandlerFunc) {
	m.handlers[op] = fn
}

// Use adds middleware(s) to the mux. Middlewares are executed in the order they are added.
func (m *Mux) Use(mw Middleware) {
	m.middlewares = append(m.middlewares, mw)
}

// handlerFor resolves the wrapped handler for an operation.
func (m *Mux) handlerFor(op Operation) (HandlerFunc, bool) {
	h, ok := m.handlers[op]
	if !ok {
		return nil, false
	}
	return m.wrapHandler(h), true
}

func (m *Mux) wrapHandler(h HandlerFunc) HandlerFunc {
	for i := len(m.middlewares) - 1; i >= 0; i-- {
		h = m.middlewares[i](h)
	}
	return h
}

// DefaultMux wires the standard operation set against the given backends.
func DefaultMux(img ImageBackend, pdf PDFBackend) *Mux {
	m := NewMux()

	m.Handle(OpCompress, func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		if img == nil {
			return nil, ErrBackendUnavailable
		}
		o, err := compressOpts(opts)
		if err != nil {
			return nil, err
		}
		format := chooseCompressFormat(o.Format, in.Type)
		SetOutputFormat(ctx, format)
		quality := o.Quality
		if quality == 0 {
			quality = 0.8
		}
		return img.Compress(ctx, in, quality, format)
	})

	m.Handle(OpResize, func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		if img == nil {
			return nil, ErrBackendUnavailable
		}
		o := DefaultResizeOptions()
		if opts != nil {
			var ok bool
			o, ok = opts.(ResizeOptions)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrInvalidOptions, OpResize)
			}
			if o.Width == 0 {
				o.Width = 800
			}
			if o.Height == 0 {
				o.Height = 600
			}
		}
		return img.Resize(ctx, in, o.Width, o.Height, o.MaintainAspectRatio, o.HighQuality)
	})

	m.Handle(OpConvert, func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		if img == nil {
			return nil, ErrBackendUnavailable
		}
		o := ConvertOptions{}
		if opts != nil {
			var ok bool
			o, ok = opts.(ConvertOptions)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrInvalidOptions, OpConvert)
			}
		}
		target := normalizeFormat(o.TargetFormat)
		if !formatSupported(target) {
			target = fallbackFormat
		}
		SetOutputFormat(ctx, target)
		quality := o.Quality
		if quality == 0 {
			quality = 0.9
		}
		return img.Convert(ctx, in, target, quality)
	})

	m.Handle(OpPDFCompress, func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		if pdf == nil {
			return nil, ErrBackendUnavailable
		}
		o := PDFCompressOptions{}
		if opts != nil {
			var ok bool
			o, ok = opts.(PDFCompressOptions)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrInvalidOptions, OpPDFCompress)
			}
		}
		out, err := pdf.CompressPDF(ctx, in, o)
		if err != nil {
			return nil, err
		}
		return &Blob{Data: out, Type: "application/pdf"}, nil
	})

	m.Handle(OpPDFMerge, func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		if pdf == nil {
			return nil, ErrBackendUnavailable
		}
		o := PDFMergeOptions{}
		if opts != nil {
			var ok bool
			o, ok = opts.(PDFMergeOptions)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrInvalidOptions, OpPDFMerge)
			}
		}
		files := o.Files
		if len(files) == 0 {
			files = []*File{in}
		}
		merged, err := pdf.MergePDFs(ctx, files)
		if err != nil {
			return nil, err
		}
		if o.CompressAfterMerge {
			// Post-merge compression is best effort; on failure the plain
			// merge result is kept.
			tmp := NewFile("merged.pdf", "application/pdf", merged)
			if compressed, cerr := pdf.CompressPDF(ctx, tmp, o.CompressOptions); cerr == nil {
				merged = compressed
			}
		}
		return &Blob{Data: merged, Type: "application/pdf"}, nil
	})

	return m
}

func compressOpts(opts Options) (CompressOptions, error) {
	if opts == nil {
		return CompressOptions{}, nil
	}
	o, ok := opts.(CompressOptions)
	if !ok {
		return CompressOptions{}, fmt.Errorf("%w: %s", ErrInvalidOptions, OpCompress)
	}
	return o, nil
}
