package toolkit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFBackend is the PDF transform capability consumed by the queue and the
// batch orchestrator.
type PDFBackend interface {
	CompressPDF(ctx context.Context, f *File, opts PDFCompressOptions) ([]byte, error)
	MergePDFs(ctx context.Context, files []*File) ([]byte, error)
	SplitPDF(ctx context.Context, f *File) ([][]byte, error)
	ImagesToPDF(ctx context.Context, files []*File, opts ImagesToPDFOptions) ([]byte, error)
}

// PDFCPUBackend implements PDFBackend on top of pdfcpu.
type PDFCPUBackend struct {
	conf *model.Configuration
	log  Logger
}

// NewPDFCPUBackend creates a PDF backend with relaxed validation, matching
// the tolerance of in-browser PDF tooling toward slightly malformed inputs.
func NewPDFCPUBackend(log Logger) *PDFCPUBackend {
	if log == nil {
		log = NewFmtLogger()
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPUBackend{conf: conf, log: log}
}

// CompressPDF optimizes the document: unused objects removed, streams
// compacted.
func (b *PDFCPUBackend) CompressPDF(ctx context.Context, f *File, _ PDFCompressOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(f.Data), &buf, b.conf); err != nil {
		return nil, fmt.Errorf("optimize %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

// MergePDFs concatenates the given documents in order.
func (b *PDFCPUBackend) MergePDFs(ctx context.Context, files []*File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoInput
	}
	readers := make([]io.ReadSeeker, 0, len(files))
	for _, f := range files {
		readers = append(readers, bytes.NewReader(f.Data))
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, b.conf); err != nil {
		return nil, fmt.Errorf("merge %d documents: %w", len(files), err)
	}
	return buf.Bytes(), nil
}

// SplitPDF produces one single-page document per page of the input.
func (b *PDFCPUBackend) SplitPDF(ctx context.Context, f *File) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := api.PageCount(bytes.NewReader(f.Data), b.conf)
	if err != nil {
		return nil, fmt.Errorf("page count %s: %w", f.Name, err)
	}
	pages := make([][]byte, 0, n)
	for i := 1; i <= n; i++ {
		var buf bytes.Buffer
		if err := api.Trim(bytes.NewReader(f.Data), &buf, []string{strconv.Itoa(i)}, b.conf); err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", i, f.Name, err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}

// ImagesToPDF builds one document with one page per image, centered on the
// configured page size.
func (b *PDFCPUBackend) ImagesToPDF(ctx context.Context, files []*File, opts ImagesToPDFOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoInput
	}
	imgs := make([]io.Reader, 0, len(files))
	for _, f := range files {
		imgs = append(imgs, bytes.NewReader(f.Data))
	}

	imp := b.importConfig(opts)
	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, imgs, imp, b.conf); err != nil {
		return nil, fmt.Errorf("import %d images: %w", len(files), err)
	}
	return buf.Bytes(), nil
}

func (b *PDFCPUBackend) importConfig(opts ImagesToPDFOptions) *pdfcpu.Import {
	pageSize := opts.PageSize
	if pageSize == "" {
		pageSize = "A4"
	}
	imp, err := api.Import(fmt.Sprintf("formsize:%s, pos:c", pageSize), types.POINTS)
	if err != nil {
		// Unknown page formats fall back to pdfcpu's default layout.
		b.log.Warnf("invalid page size %q, using defaults: %v", pageSize, err)
		return nil
	}
	return imp
}
