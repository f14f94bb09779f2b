package toolkit

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// AcceptedImageTypes is the default image MIME type allowlist.
var AcceptedImageTypes = []string{
	"image/jpeg", "image/jpg", "image/png", "image/gif",
	"image/webp", "image/bmp", "image/tiff", "image/svg+xml",
}

// AcceptedPDFTypes is the default PDF MIME type allowlist.
var AcceptedPDFTypes = []string{"application/pdf"}

// typesByExtension maps file extensions to MIME types. Extension is a
// fallback signal only: some sources report an empty declared type.
var typesByExtension = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
}

// DefaultMaxFileSize is the per-file size ceiling applied by validation.
const DefaultMaxFileSize = 50 * 1024 * 1024

// DefaultMaxFiles is the per-selection file count limit.
const DefaultMaxFiles = 50

// ValidateFile checks a single file against an accepted-type set and a size
// ceiling. Checks run in a fixed order and the first failure short-circuits:
// absent file, type (declared MIME first, extension-derived as fallback),
// size ceiling, empty file. A nil return means the file is valid.
func ValidateFile(f *File, acceptedTypes []string, maxSize int64) error {
	if f == nil {
		return fmt.Errorf("toolkit: no file provided")
	}
	if !containsType(acceptedTypes, f.Type) {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
		detected := typesByExtension[ext]
		if detected == "" || !containsType(acceptedTypes, detected) {
			declared := f.Type
			if declared == "" {
				declared = "unknown"
			}
			return fmt.Errorf("toolkit: unsupported file type: %s (accepted: %s)",
				declared, strings.Join(acceptedTypes, ", "))
		}
	}
	if f.Size > maxSize {
		return fmt.Errorf("toolkit: file too large: %s (maximum %s)",
			FormatBytes(f.Size), FormatBytes(maxSize))
	}
	if f.Size == 0 {
		return fmt.Errorf("toolkit: file is empty")
	}
	return nil
}

func containsType(types []string, t string) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

// ChangeKind classifies a FileSet mutation.
type ChangeKind string

const (
	// FilesAdded means one or more files were appended or replaced the list.
	FilesAdded ChangeKind = "files_added"
	// FileRemoved means a single file left the list by index.
	FileRemoved ChangeKind = "file_removed"
	// FilesCleared means the whole list was discarded.
	FilesCleared ChangeKind = "files_cleared"
)

// ChangeEvent is delivered to subscribers after every FileSet mutation so
// observers can resynchronize.
type ChangeEvent struct {
	Kind ChangeKind
	// Added holds the files accepted by an add; nil otherwise.
	Added []*File
	// Removed holds the file dropped by a removal; nil otherwise.
	Removed *File
	// Errors holds per-file validation failures from an add.
	Errors []error
	// All is a snapshot of the list after the mutation.
	All []*File
}

// FileSet is the single ordered, mutable accepted-file list shared across an
// application session. Only the set itself mutates the list; consumers read
// snapshots and react to change notifications.
type FileSet struct {
	mu          sync.Mutex
	accepted    []string
	maxFileSize int64
	maxFiles    int
	files       []*File
	subs        []func(ChangeEvent)
}

// NewFileSet creates a file set accepting images and PDFs by default.
func NewFileSet(opts ...FileSetOption) *FileSet {
	s := &FileSet{
		accepted:    append(append([]string{}, AcceptedImageTypes...), AcceptedPDFTypes...),
		maxFileSize: DefaultMaxFileSize,
		maxFiles:    DefaultMaxFiles,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks a file against this set's accepted types and size ceiling.
func (s *FileSet) Validate(f *File) error {
	return ValidateFile(f, s.accepted, s.maxFileSize)
}

// Add validates the given files and appends the valid ones. With replace set
// (single-select semantics) the current list is swapped for the valid files
// instead. Invalid files are reported per file and never abort the rest.
func (s *FileSet) Add(files []*File, replace bool) (added []*File, errs []error) {
	if len(files) > s.maxFiles {
		errs = append(errs, fmt.Errorf("toolkit: too many files selected (maximum %d)", s.maxFiles))
		files = files[:s.maxFiles]
	}
	for i, f := range files {
		if err := s.Validate(f); err != nil {
			errs = append(errs, fmt.Errorf("file %d (%s): %w", i+1, fileName(f), err))
			continue
		}
		added = append(added, f)
	}

	s.mu.Lock()
	if replace {
		s.files = append([]*File{}, added...)
	} else {
		s.files = append(s.files, added...)
	}
	all := s.snapshotLocked()
	subs := s.subsLocked()
	s.mu.Unlock()

	notify(subs, ChangeEvent{Kind: FilesAdded, Added: added, Errors: errs, All: all})
	return added, errs
}

// RemoveAt drops the file at the given index. Out-of-range indexes are a no-op.
func (s *FileSet) RemoveAt(index int) (*File, bool) {
	s.mu.Lock()
	if index < 0 || index >= len(s.files) {
		s.mu.Unlock()
		return nil, false
	}
	removed := s.files[index]
	s.files = append(s.files[:index], s.files[index+1:]...)
	all := s.snapshotLocked()
	subs := s.subsLocked()
	s.mu.Unlock()

	notify(subs, ChangeEvent{Kind: FileRemoved, Removed: removed, All: all})
	return removed, true
}

// Clear discards all files.
func (s *FileSet) Clear() {
	s.mu.Lock()
	s.files = nil
	subs := s.subsLocked()
	s.mu.Unlock()

	notify(subs, ChangeEvent{Kind: FilesCleared, All: nil})
}

// Files returns a snapshot of the current list in insertion order.
func (s *FileSet) Files() []*File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of accepted files.
func (s *FileSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// OnChange registers a subscriber invoked after every mutation.
func (s *FileSet) OnChange(fn func(ChangeEvent)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *FileSet) snapshotLocked() []*File {
	out := make([]*File, len(s.files))
	copy(out, s.files)
	return out
}

func (s *FileSet) subsLocked() []func(ChangeEvent) {
	out := make([]func(ChangeEvent), len(s.subs))
	copy(out, s.subs)
	return out
}

func notify(subs []func(ChangeEvent), ev ChangeEvent) {
	for _, fn := range subs {
		fn(ev)
	}
}

func fileName(f *File) string {
	if f == nil {
		return "<nil>"
	}
	return f.Name
}

// FileInfo describes a file for display: basic attributes plus decoded image
// dimensions when the content is a decodable image.
type FileInfo struct {
	Name          string  `json:"name"`
	Size          int64   `json:"size"`
	Type          string  `json:"type"`
	Extension     string  `json:"extension"`
	FormattedSize string  `json:"formatted_size"`
	Width         int     `json:"width,omitempty"`
	Height        int     `json:"height,omitempty"`
	AspectRatio   float64 `json:"aspect_ratio,omitempty"`
	Megapixels    float64 `json:"megapixels,omitempty"`
}

// Info inspects a file. Image decoding failures are ignored; the basic
// attributes are always populated.
func Info(f *File) FileInfo {
	info := FileInfo{
		Name:          f.Name,
		Size:          f.Size,
		Type:          f.Type,
		Extension:     strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), ".")),
		FormattedSize: FormatBytes(f.Size),
	}
	if strings.HasPrefix(f.Type, "image/") {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data)); err == nil {
			info.Width = cfg.Width
			info.Height = cfg.Height
			if cfg.Height > 0 {
				info.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
			}
			info.Megapixels = float64(cfg.Width) * float64(cfg.Height) / 1e6
		}
	}
	return info
}

// EstimateDuration predicts how long processing a file set will take, scaling
// a per-operation base cost by each file's size in megabytes.
func EstimateDuration(files []*File, op Operation) time.Duration {
	base := map[Operation]float64{
		OpCompress:    2,
		OpResize:      1.5,
		OpConvert:     2.5,
		OpPDFMerge:    1,
		OpPDFCompress: 2,
	}
	perFile, ok := base[op]
	if !ok {
		perFile = 2
	}
	var total float64
	for _, f := range files {
		mb := float64(f.Size) / (1024 * 1024)
		if mb < 1 {
			mb = 1
		}
		total += perFile * mb
	}
	return time.Duration(total * float64(time.Second))
}
