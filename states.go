package toolkit

// Status represents a queue item's position in its processing lifecycle.
// Use the exported constants (StatusQueued, StatusProcessing, etc.) instead of
// raw strings to avoid typos.
type Status string

const (
	// StatusQueued marks items waiting for dispatch, in insertion order.
	StatusQueued Status = "queued"
	// StatusProcessing marks the single item currently handed to a backend.
	StatusProcessing Status = "processing"
	// StatusCompleted marks items whose backend call succeeded (terminal).
	StatusCompleted Status = "completed"
	// StatusFailed marks items whose backend call failed (terminal).
	StatusFailed Status = "failed"
)

// AllStatuses lists every valid item status in a stable order.
var AllStatuses = []Status{StatusQueued, StatusProcessing, StatusCompleted, StatusFailed}

// String returns the raw string value of the status.
func (s Status) String() string { return string(s) }

// Terminal reports whether no further transitions can leave this status.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// ParseStatus converts a string into a Status, returning an error for unknown values.
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(StatusQueued):
		return StatusQueued, nil
	case string(StatusProcessing):
		return StatusProcessing, nil
	case string(StatusCompleted):
		return StatusCompleted, nil
	case string(StatusFailed):
		return StatusFailed, nil
	default:
		return "", ErrUnknownStatus
	}
}
