package toolkit

import (
	"testing"
)

func TestStatus_StringAndParse(t *testing.T) {
	// String()
	if StatusQueued.String() != "queued" || StatusProcessing.String() != "processing" || StatusCompleted.String() != "completed" || StatusFailed.String() != "failed" {
		t.Fatal("unexpected status string values")
	}
	// Parse valid
	for _, s := range []string{"queued", "processing", "completed", "failed"} {
		if _, err := ParseStatus(s); err != nil {
			t.Fatalf("parse valid status %q failed: %v", s, err)
		}
	}
	// Parse invalid
	if _, err := ParseStatus("weird"); err == nil {
		t.Fatal("expected error for invalid status")
	} else if err != ErrUnknownStatus {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestStatus_Terminal(t *testing.T) {
	if StatusQueued.Terminal() || StatusProcessing.Terminal() {
		t.Fatal("queued/processing must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("completed/failed must be terminal")
	}
	if len(AllStatuses) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(AllStatuses))
	}
}
