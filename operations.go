package toolkit

// Operation identifies a processing capability. The set is closed: dispatch
// goes through a Mux lookup, and an unregistered operation fails the item with
// ErrUnknownOperation instead of being retried.
type Operation string

const (
	// OpCompress re-encodes an image at reduced quality.
	OpCompress Operation = "compress"
	// OpResize scales an image to target dimensions.
	OpResize Operation = "resize"
	// OpConvert re-encodes an image in a different format.
	OpConvert Operation = "convert"
	// OpPDFCompress optimizes a PDF in place.
	OpPDFCompress Operation = "pdf_compress"
	// OpPDFMerge concatenates a set of PDFs into one document.
	OpPDFMerge Operation = "pdf_merge"

	// The aggregate actions below run through the batch orchestrator instead
	// of the per-item queue: their output is not 1:1 with their inputs. They
	// share the Operation type so activity records stay uniformly tagged.

	// OpPDFSplit explodes a PDF into single-page documents.
	OpPDFSplit Operation = "pdf_split"
	// OpImagesToPDF builds one PDF from a set of images.
	OpImagesToPDF Operation = "images_to_pdf"
	// OpQRGenerate renders a QR code image from a text payload.
	OpQRGenerate Operation = "qr_generate"
)

// String returns the raw string value of the operation.
func (o Operation) String() string { return string(o) }

// Options is the per-operation configuration payload. Each operation variant
// carries its own strongly typed struct; handlers type-assert and fall back to
// defaults when nil.
type Options interface {
	// Op returns the operation variant this payload configures.
	Op() Operation
}

// CompressOptions configures OpCompress.
type CompressOptions struct {
	// Quality is the encoding quality in 0.0..1.0. Zero means the 0.8 default.
	Quality float64
	// Format is the requested output format. "original" keeps the source
	// format when it is lossy, otherwise the backend's lossy fallback is used.
	Format string
}

func (CompressOptions) Op() Operation { return OpCompress }

// ResizeOptions configures OpResize.
type ResizeOptions struct {
	// Width and Height are the target dimensions in pixels. Zero values mean
	// the 800x600 defaults.
	Width  int
	Height int
	// MaintainAspectRatio fits the image inside the target box instead of
	// stretching it.
	MaintainAspectRatio bool
	// HighQuality selects the slower, higher quality resampling filter.
	HighQuality bool
}

func (ResizeOptions) Op() Operation { return OpResize }

// DefaultResizeOptions returns the resize defaults: 800x600, aspect ratio
// preserved, high quality resampling.
func DefaultResizeOptions() ResizeOptions {
	return ResizeOptions{Width: 800, Height: 600, MaintainAspectRatio: true, HighQuality: true}
}

// ConvertOptions configures OpConvert.
type ConvertOptions struct {
	// TargetFormat is the requested output format ("jpg" normalizes to "jpeg";
	// unsupported formats fall back to the backend default).
	TargetFormat string
	// Quality is the encoding quality in 0.0..1.0. Zero means the 0.9 default.
	Quality float64
}

func (ConvertOptions) Op() Operation { return OpConvert }

// PDFCompressOptions configures OpPDFCompress.
type PDFCompressOptions struct {
	// ObjectsPerTick bounds optimizer work per step. Zero means the backend
	// default.
	ObjectsPerTick int
}

func (PDFCompressOptions) Op() Operation { return OpPDFCompress }

// PDFMergeOptions configures OpPDFMerge. Merge is not 1:1 with its queue item:
// the item's input file is the first document and Files carries the full set.
type PDFMergeOptions struct {
	// Files is the ordered document set to merge. When empty, only the item's
	// own input is used.
	Files []*File
	// OutputName overrides the generated base name of the merged document.
	OutputName string
	// CompressAfterMerge runs the optimizer on the merged output. A failing
	// compression step is discarded and the plain merge result is kept.
	CompressAfterMerge bool
	// CompressOptions configures the optional post-merge compression.
	CompressOptions PDFCompressOptions
}

func (PDFMergeOptions) Op() Operation { return OpPDFMerge }

// ImagesToPDFOptions configures the aggregate images-to-PDF action. It runs
// outside the per-item queue since its output is not 1:1 with inputs.
type ImagesToPDFOptions struct {
	// PageSize selects the page format (A4, Letter, Legal, A3). Empty means A4.
	PageSize string
	// Margin is the page margin in points. Zero means the 20pt default.
	Margin float64
}
