package toolkit

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imagetoolkit/toolkit-go/internal/hctx"
)

// fakeImageBackend records calls and returns canned bytes. A file named like
// failOn errors instead, and a non-nil err fails every call.
type fakeImageBackend struct {
	out    []byte
	err    error
	failOn string
	calls  []string
}

func (f *fakeImageBackend) fail(in *File) error {
	if f.err != nil {
		return f.err
	}
	if f.failOn != "" && in.Name == f.failOn {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeImageBackend) Compress(_ context.Context, in *File, quality float64, format string) (*Blob, error) {
	f.calls = append(f.calls, fmt.Sprintf("compress %s q=%.1f f=%s", in.Name, quality, format))
	if err := f.fail(in); err != nil {
		return nil, err
	}
	return &Blob{Data: f.out, Type: "image/" + normalizeFormat(format)}, nil
}

func (f *fakeImageBackend) Resize(_ context.Context, in *File, width, height int, aspect, hq bool) (*Blob, error) {
	f.calls = append(f.calls, fmt.Sprintf("resize %s %dx%d aspect=%t hq=%t", in.Name, width, height, aspect, hq))
	if err := f.fail(in); err != nil {
		return nil, err
	}
	return &Blob{Data: f.out, Type: in.Type}, nil
}

func (f *fakeImageBackend) Convert(_ context.Context, in *File, target string, quality float64) (*Blob, error) {
	f.calls = append(f.calls, fmt.Sprintf("convert %s to=%s q=%.1f", in.Name, target, quality))
	if err := f.fail(in); err != nil {
		return nil, err
	}
	return &Blob{Data: f.out, Type: "image/" + target}, nil
}

// fakePDFBackend returns canned outputs per method.
type fakePDFBackend struct {
	err         error
	compressErr error
	compressOut []byte
	mergeOut    []byte
	pages       [][]byte
	importOut   []byte
	mergedOf    int
}

func (f *fakePDFBackend) CompressPDF(_ context.Context, in *File, _ PDFCompressOptions) ([]byte, error) {
	if f.compressErr != nil {
		return nil, f.compressErr
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.compressOut, nil
}

func (f *fakePDFBackend) MergePDFs(_ context.Context, files []*File) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mergedOf = len(files)
	return f.mergeOut, nil
}

func (f *fakePDFBackend) SplitPDF(_ context.Context, in *File) ([][]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func (f *fakePDFBackend) ImagesToPDF(_ context.Context, files []*File, _ ImagesToPDFOptions) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.importOut, nil
}

// bogusOptions satisfies Options without matching any handler's expected type.
type bogusOptions struct{}

func (bogusOptions) Op() Operation { return "bogus" }

func TestMux_MiddlewareOrderAndOverwrite(t *testing.T) {
	m := NewMux()

	order := []int{}
	mw1 := func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, in *File, opts Options) (*Blob, error) {
			order = append(order, 1)
			return next(ctx, in, opts)
		}
	}
	mw2 := func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, in *File, opts Options) (*Blob, error) {
			order = append(order, 2)
			return next(ctx, in, opts)
		}
	}
	m.Use(mw1)
	m.Use(mw2)

	called := 0
	m.Handle("t", func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		called++
		return &Blob{Data: []byte("x")}, nil
	})
	// overwrite handler
	m.Handle("t", func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		called += 10
		return &Blob{Data: []byte("x")}, nil
	})

	h, ok := m.handlerFor("t")
	if !ok {
		t.Fatal("handler not found")
	}
	if _, err := h(context.Background(), NewFile("a.png", "image/png", []byte{1}), nil); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("middleware order wrong: %v", order)
	}
	if called != 10 {
		t.Fatalf("expected only the overwritten handler to run, called=%d", called)
	}
	if _, ok := m.handlerFor("missing"); ok {
		t.Fatal("expected no handler for unknown operation")
	}
}

func TestDefaultMux_CompressReportsChosenFormat(t *testing.T) {
	img := &fakeImageBackend{out: []byte("x")}
	m := DefaultMux(img, nil)
	h, ok := m.handlerFor(OpCompress)
	require.True(t, ok)

	st := hctx.New()
	ctx := hctx.WithState(context.Background(), st)

	// "original" on a format without a lossy encoder falls back.
	in := NewFile("photo.webp", "image/webp", []byte("data"))
	_, err := h(ctx, in, CompressOptions{Format: "original"})
	require.NoError(t, err)
	require.Equal(t, "jpeg", st.OutputFormat)

	// "original" on a JPEG keeps it.
	in = NewFile("photo.jpg", "image/jpeg", []byte("data"))
	_, err = h(ctx, in, CompressOptions{Format: "original"})
	require.NoError(t, err)
	require.Equal(t, "jpeg", st.OutputFormat)

	// Explicit supported format is honored, with "jpg" and case normalized.
	_, err = h(ctx, in, CompressOptions{Format: "PNG"})
	require.NoError(t, err)
	require.Equal(t, "png", st.OutputFormat)
}

func TestDefaultMux_CompressQualityDefault(t *testing.T) {
	img := &fakeImageBackend{out: []byte("x")}
	m := DefaultMux(img, nil)
	h, _ := m.handlerFor(OpCompress)

	_, err := h(context.Background(), NewFile("a.png", "image/png", []byte{1}), nil)
	require.NoError(t, err)
	require.Contains(t, img.calls[0], "q=0.8")
}

func TestDefaultMux_ResizeDefaults(t *testing.T) {
	img := &fakeImageBackend{out: []byte("x")}
	m := DefaultMux(img, nil)
	h, _ := m.handlerFor(OpResize)

	_, err := h(context.Background(), NewFile("a.png", "image/png", []byte{1}), nil)
	require.NoError(t, err)
	require.Equal(t, "resize a.png 800x600 aspect=true hq=true", img.calls[0])

	// Zero dimensions fall back per axis.
	_, err = h(context.Background(), NewFile("a.png", "image/png", []byte{1}), ResizeOptions{Width: 1024})
	require.NoError(t, err)
	require.Equal(t, "resize a.png 1024x600 aspect=false hq=false", img.calls[1])
}

func TestDefaultMux_InvalidOptionsType(t *testing.T) {
	img := &fakeImageBackend{out: []byte("x")}
	m := DefaultMux(img, &fakePDFBackend{})
	for _, op := range []Operation{OpCompress, OpResize, OpConvert, OpPDFCompress, OpPDFMerge} {
		h, ok := m.handlerFor(op)
		require.True(t, ok, op)
		_, err := h(context.Background(), NewFile("a.png", "image/png", []byte{1}), bogusOptions{})
		require.ErrorIs(t, err, ErrInvalidOptions, op)
	}
}

func TestDefaultMux_NilBackendsUnavailable(t *testing.T) {
	m := DefaultMux(nil, nil)
	for _, op := range []Operation{OpCompress, OpResize, OpConvert, OpPDFCompress, OpPDFMerge} {
		h, ok := m.handlerFor(op)
		require.True(t, ok, op)
		_, err := h(context.Background(), NewFile("a.pdf", "application/pdf", []byte{1}), nil)
		require.ErrorIs(t, err, ErrBackendUnavailable, op)
	}
}

func TestDefaultMux_MergeKeepsPlainResultOnCompressFailure(t *testing.T) {
	pdf := &fakePDFBackend{
		mergeOut:    []byte("merged"),
		compressErr: errors.New("optimizer exploded"),
	}
	m := DefaultMux(nil, pdf)
	h, _ := m.handlerFor(OpPDFMerge)

	in := NewFile("a.pdf", "application/pdf", []byte("a"))
	blob, err := h(context.Background(), in, PDFMergeOptions{
		Files:              []*File{in, NewFile("b.pdf", "application/pdf", []byte("b"))},
		CompressAfterMerge: true,
	})
	require.NoError(t, err)
	require.Equal(t, []byte("merged"), blob.Data)
	require.Equal(t, "application/pdf", blob.Type)
	require.Equal(t, 2, pdf.mergedOf)
}
