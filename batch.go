package toolkit

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// BatchProgressFunc receives orchestration progress: position within the
// batch plus a human readable phase message.
type BatchProgressFunc func(current, total int, message string)

// BatchResult summarizes one finished batch action.
type BatchResult struct {
	// Succeeded and Failed partition the processed queue items. Aggregate
	// actions that bypass the queue leave both nil.
	Succeeded []*QueueItem
	Failed    []*QueueItem
	// Output holds the single delivered artifact of an aggregate action.
	Output *Blob
	// Filename is the delivered name of Output.
	Filename string
	// SpaceSaved is the total bytes saved across succeeded items.
	SpaceSaved int64
	// Activity is the persisted record, nil when nothing was recorded.
	Activity *Activity
}

// Batch orchestrates whole-selection actions: it filters the file set for the
// operation, drives the queue (or calls an aggregate backend directly),
// delivers the artifacts and records the outcome.
type Batch struct {
	queue     *Queue
	ledger    *Ledger
	pdf       PDFBackend
	qr        QRBackend
	downloads Downloader

	log        Logger
	onProgress BatchProgressFunc
	now        func() time.Time
}

// NewBatch creates a batch orchestrator over the given queue. Ledger,
// backends and delivery sink are wired through options; missing pieces
// degrade gracefully (no recording, ErrBackendUnavailable, no delivery).
func NewBatch(queue *Queue, opts ...BatchOption) *Batch {
	b := &Batch{
		queue: queue,
		log:   NewFmtLogger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessFiles runs a per-file operation over the files matching that
// operation's input kind. Files of the wrong kind are skipped up front; a
// selection with no matching file fails fast with ErrNoInput. Successes are
// delivered (single file directly, several as one archive) and one activity
// is recorded when at least one item succeeded. Item failures never abort
// the batch.
func (b *Batch) ProcessFiles(ctx context.Context, op Operation, files []*File, opts Options) (*BatchResult, error) {
	matching := filterForOp(op, files)
	if len(matching) == 0 {
		return nil, fmt.Errorf("%w: no files for %s", ErrNoInput, op)
	}

	b.queue.Enqueue(matching, op, opts)
	msg := phaseMessage(op)
	finished := b.queue.RunAll(ctx, func(current, total, percent int) {
		b.progress(current, total, msg)
	})

	res := &BatchResult{}
	for _, it := range finished {
		if it.Status == StatusCompleted {
			res.Succeeded = append(res.Succeeded, it)
			res.SpaceSaved += it.Result.SavedBytes
		} else {
			res.Failed = append(res.Failed, it)
		}
	}
	if len(res.Failed) > 0 {
		b.log.Warnf("%d of %d file(s) failed to process", len(res.Failed), len(finished))
	}
	if len(res.Succeeded) == 0 {
		return res, nil
	}

	if err := b.deliverItems(res.Succeeded); err != nil {
		return res, err
	}
	res.Activity = b.record(ctx, op, ActivityDetails{
		FilesProcessed: len(res.Succeeded),
		SpaceSaved:     res.SpaceSaved,
	})
	return res, nil
}

// MergePDFs concatenates the PDF files of the selection into one document,
// bypassing the per-item queue. A failing post-merge compression is dropped
// and the plain merge result delivered.
func (b *Batch) MergePDFs(ctx context.Context, files []*File, opts PDFMergeOptions) (*BatchResult, error) {
	pdfs := filterForOp(OpPDFMerge, files)
	if len(pdfs) == 0 {
		return nil, fmt.Errorf("%w: no PDF files to merge", ErrNoInput)
	}
	if b.pdf == nil {
		return nil, ErrBackendUnavailable
	}

	b.progress(0, 1, "Merging PDFs...")
	merged, err := b.pdf.MergePDFs(ctx, pdfs)
	if err != nil {
		return nil, err
	}
	if opts.CompressAfterMerge {
		tmp := NewFile("merged.pdf", "application/pdf", merged)
		if compressed, cerr := b.pdf.CompressPDF(ctx, tmp, opts.CompressOptions); cerr == nil {
			merged = compressed
		} else {
			b.log.Warnf("post-merge compression failed, keeping uncompressed merge: %v", cerr)
		}
	}
	b.progress(1, 1, "Merge complete")

	var inputTotal int64
	for _, f := range pdfs {
		inputTotal += f.Size
	}
	blob := &Blob{Data: merged, Type: "application/pdf"}
	base := opts.OutputName
	if base == "" {
		base = trimExt(pdfs[0].Name) + "_merged"
	}
	return b.deliver(ctx, OpPDFMerge, blob, fmt.Sprintf("%s_%d.pdf", base, b.now().UnixMilli()), ActivityDetails{
		Title:          fmt.Sprintf("%d PDFs merged", len(pdfs)),
		FilesProcessed: len(pdfs),
		SpaceSaved:     clampSaved(inputTotal, blob.Size()),
	})
}

// SplitPDF explodes a PDF into single-page documents. One page is delivered
// directly, several as one archive.
func (b *Batch) SplitPDF(ctx context.Context, f *File) (*BatchResult, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: no PDF file to split", ErrNoInput)
	}
	if b.pdf == nil {
		return nil, ErrBackendUnavailable
	}

	b.progress(0, 1, "Splitting PDF...")
	pages, err := b.pdf.SplitPDF(ctx, f)
	if err != nil {
		return nil, err
	}
	b.progress(1, 1, "Split complete")

	ts := b.now().UnixMilli()
	base := trimExt(f.Name)
	entries := make([]ZipEntry, 0, len(pages))
	for i, page := range pages {
		entries = append(entries, ZipEntry{
			Filename: fmt.Sprintf("%s_page_%d_%d.pdf", base, i+1, ts),
			Blob:     &Blob{Data: page, Type: "application/pdf"},
		})
	}

	res := &BatchResult{}
	if len(entries) == 1 {
		res.Output = entries[0].Blob
		res.Filename = entries[0].Filename
		if err := b.download(res.Output, res.Filename); err != nil {
			return res, err
		}
	} else {
		res.Filename = fmt.Sprintf("%s_pages_%d.zip", base, ts)
		if err := b.downloadZip(entries, res.Filename); err != nil {
			return res, err
		}
	}
	res.Activity = b.record(ctx, OpPDFSplit, ActivityDetails{
		Title:          fmt.Sprintf("%s split into %d pages", f.Name, len(pages)),
		Description:    fmt.Sprintf("Extracted %d single-page documents", len(pages)),
		FilesProcessed: 1,
	})
	return res, nil
}

// ImagesToPDF builds one PDF out of the selection's images.
func (b *Batch) ImagesToPDF(ctx context.Context, files []*File, opts ImagesToPDFOptions) (*BatchResult, error) {
	images := filterForOp(OpCompress, files)
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no images to convert", ErrNoInput)
	}
	if b.pdf == nil {
		return nil, ErrBackendUnavailable
	}

	b.progress(0, 1, "Building PDF...")
	out, err := b.pdf.ImagesToPDF(ctx, images, opts)
	if err != nil {
		return nil, err
	}
	b.progress(1, 1, "PDF ready")

	blob := &Blob{Data: out, Type: "application/pdf"}
	return b.deliver(ctx, OpImagesToPDF, blob, fmt.Sprintf("images_%d.pdf", b.now().UnixMilli()), ActivityDetails{
		Title:          fmt.Sprintf("%d images combined into PDF", len(images)),
		FilesProcessed: len(images),
	})
}

// GenerateQR renders a QR code from the payload and delivers it as a PNG.
func (b *Batch) GenerateQR(ctx context.Context, text string, opts QROptions) (*BatchResult, error) {
	if b.qr == nil {
		return nil, ErrBackendUnavailable
	}
	blob, err := b.qr.Generate(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	return b.deliver(ctx, OpQRGenerate, blob, fmt.Sprintf("qr_code_%d.png", b.now().UnixMilli()), ActivityDetails{
		Title:          "QR code generated",
		Description:    "Rendered 1 QR code",
		FilesProcessed: 1,
	})
}

// deliver downloads one aggregate artifact and records its activity.
func (b *Batch) deliver(ctx context.Context, op Operation, blob *Blob, filename string, d ActivityDetails) (*BatchResult, error) {
	res := &BatchResult{Output: blob, Filename: filename, SpaceSaved: d.SpaceSaved}
	if err := b.download(blob, filename); err != nil {
		return res, err
	}
	res.Activity = b.record(ctx, op, d)
	return res, nil
}

// deliverItems downloads completed queue items: one directly, several as an
// archive.
func (b *Batch) deliverItems(items []*QueueItem) error {
	if b.downloads == nil {
		return nil
	}
	if len(items) == 1 {
		r := items[0].Result
		return b.download(r.Blob, r.Filename)
	}
	entries := make([]ZipEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, ZipEntry{Filename: it.Result.Filename, Blob: it.Result.Blob})
	}
	return b.downloadZip(entries, fmt.Sprintf("processed_files_%d.zip", b.now().UnixMilli()))
}

func (b *Batch) download(blob *Blob, filename string) error {
	if b.downloads == nil {
		return nil
	}
	return b.downloads.Download(blob, filename)
}

func (b *Batch) downloadZip(entries []ZipEntry, name string) error {
	if b.downloads == nil {
		return nil
	}
	return b.downloads.DownloadZip(entries, name)
}

func (b *Batch) record(ctx context.Context, op Operation, d ActivityDetails) *Activity {
	if b.ledger == nil {
		return nil
	}
	a, err := b.ledger.Record(ctx, op, d)
	if err != nil {
		// Recording is observability, not correctness. The batch outcome
		// stands even when the ledger write fails.
		b.log.Warnf("record activity: %v", err)
		return nil
	}
	return a
}

func (b *Batch) progress(current, total int, message string) {
	if b.onProgress != nil {
		b.onProgress(current, total, message)
	}
}

// filterForOp keeps the files an operation can consume: images for the image
// operations, PDFs for the PDF ones. The declared MIME type wins; files
// without one fall back to their extension.
func filterForOp(op Operation, files []*File) []*File {
	var want func(string) bool
	switch op {
	case OpCompress, OpResize, OpConvert, OpImagesToPDF:
		want = func(t string) bool { return strings.HasPrefix(t, "image/") }
	case OpPDFCompress, OpPDFMerge, OpPDFSplit:
		want = func(t string) bool { return t == "application/pdf" }
	default:
		return files
	}
	var out []*File
	for _, f := range files {
		if want(effectiveType(f)) {
			out = append(out, f)
		}
	}
	return out
}

// effectiveType returns the declared MIME type, falling back to the one
// implied by the file extension.
func effectiveType(f *File) string {
	if f.Type != "" {
		return f.Type
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
	return typesByExtension[ext]
}

func phaseMessage(op Operation) string {
	switch op {
	case OpCompress:
		return "Compressing images..."
	case OpResize:
		return "Resizing images..."
	case OpConvert:
		return "Converting images..."
	case OpPDFCompress:
		return "Compressing PDFs..."
	case OpPDFMerge:
		return "Merging PDFs..."
	default:
		return "Processing files..."
	}
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
