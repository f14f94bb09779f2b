package toolkit

import (
	"fmt"
	"path/filepath"
	"strings"
)

// generateFilename derives the download name for a completed item. The shape
// is {base}_{suffix}_{timestamp}.{ext} for every operation except pdf_merge,
// which uses {outputName or base_merged}_{timestamp}.pdf. The timestamp is
// milliseconds since epoch at generation time; uniqueness is best effort.
func generateFilename(it *QueueItem, ts int64) string {
	name := it.Input.Name
	base := strings.TrimSuffix(name, filepath.Ext(name))
	suffix := string(it.Op)
	ext := "jpg"

	switch it.Op {
	case OpCompress:
		ext = it.chosenFormat
		if ext == "" {
			o, _ := it.Options.(CompressOptions)
			if o.Format == "original" {
				ext = normalizeFormat(mimeSubtype(it.Input.Type))
			} else {
				ext = normalizeFormat(o.Format)
			}
			if !formatSupported(ext) {
				ext = fallbackFormat
			}
		}
		if ext == "" {
			ext = fallbackFormat
		}

	case OpResize:
		o := DefaultResizeOptions()
		if ro, ok := it.Options.(ResizeOptions); ok {
			if ro.Width != 0 {
				o.Width = ro.Width
			}
			if ro.Height != 0 {
				o.Height = ro.Height
			}
		}
		suffix = fmt.Sprintf("resized_%dx%d", o.Width, o.Height)
		ext = mimeSubtype(it.Input.Type)
		if ext == "" {
			ext = "jpg"
		}

	case OpConvert:
		ext = it.chosenFormat
		if ext == "" {
			if o, ok := it.Options.(ConvertOptions); ok {
				ext = o.TargetFormat
			}
		}
		ext = normalizeFormat(ext)
		if ext == "" {
			ext = fallbackFormat
		}

	case OpPDFCompress:
		suffix = "compressed"
		ext = "pdf"

	case OpPDFMerge:
		mergedBase := base + "_merged"
		if o, ok := it.Options.(PDFMergeOptions); ok && o.OutputName != "" {
			mergedBase = o.OutputName
		}
		return fmt.Sprintf("%s_%d.pdf", mergedBase, ts)
	}

	return fmt.Sprintf("%s_%s_%d.%s", base, suffix, ts, ext)
}

// mimeSubtype extracts the subtype of a MIME type ("image/png" -> "png").
func mimeSubtype(mimeType string) string {
	_, sub, ok := strings.Cut(mimeType, "/")
	if !ok {
		return ""
	}
	return strings.ToLower(sub)
}
