package toolkit

// File is an in-memory input file as handed over by the intake layer.
// The queue borrows it read-only; it never mutates name, type or content.
type File struct {
	// Name is the original filename including extension.
	Name string `json:"name"`
	// Size is the declared size in bytes.
	Size int64 `json:"size"`
	// Type is the declared MIME type. It may be empty; intake falls back to
	// the extension when validating.
	Type string `json:"type"`
	// Data is the raw file content.
	Data []byte `json:"-"`
}

// NewFile builds a File from raw content, deriving Size from the data.
func NewFile(name, mimeType string, data []byte) *File {
	return &File{Name: name, Size: int64(len(data)), Type: mimeType, Data: data}
}

// Blob is a processed output produced by a backend.
type Blob struct {
	// Data is the encoded output bytes.
	Data []byte `json:"-"`
	// Type is the MIME type of the output.
	Type string `json:"type"`
}

// Size returns the output size in bytes.
func (b *Blob) Size() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.Data))
}

// Result holds the outcome of a completed queue item.
type Result struct {
	// Blob is the processed output.
	Blob *Blob `json:"-"`
	// OriginalSize is the input size in bytes.
	OriginalSize int64 `json:"original_size"`
	// ProcessedSize is the output size in bytes.
	ProcessedSize int64 `json:"processed_size"`
	// SavedBytes is max(0, OriginalSize-ProcessedSize); never negative even
	// when the output grew.
	SavedBytes int64 `json:"saved_bytes"`
	// Filename is the generated download name for the output.
	Filename string `json:"filename"`
}

// QueueItem is one unit of work: a single input file plus a requested
// operation, tracked through its processing lifecycle. Items are owned by the
// Queue from creation until a caller extracts the result; callers observe but
// never mutate them directly.
type QueueItem struct {
	// ID is the unique identifier for the item.
	ID string `json:"id"`
	// Input is the source file, borrowed read-only from intake.
	Input *File `json:"input"`
	// Op is the requested operation.
	Op Operation `json:"operation"`
	// Options is the operation-specific configuration. May be nil, in which
	// case the handler applies its defaults.
	Options Options `json:"-"`
	// Status is the item's lifecycle position; see states.go.
	Status Status `json:"status"`
	// Progress is the current percentage (0..100). Meaningful only while
	// Processing (monotonically non-decreasing) and Completed (always 100).
	Progress int `json:"progress"`
	// Result is set exactly once, on reaching Completed.
	Result *Result `json:"result,omitempty"`
	// Err is set exactly once, on reaching Failed.
	Err string `json:"error,omitempty"`
	// StartedAt is the timestamp (ms) when processing began.
	StartedAt int64 `json:"started_at,omitempty"`
	// CompletedAt is the timestamp (ms) when the item reached a terminal state.
	CompletedAt int64 `json:"completed_at,omitempty"`

	// chosenFormat is the output format the handler reported, used to keep
	// the generated filename consistent with the actual encoding.
	chosenFormat string
}
