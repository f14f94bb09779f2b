// Package store centralizes key construction for the persisted activity
// ledger. It is kept in internal to avoid leaking key formats to public API.
package store

// Activities returns the LIST key holding activity records, newest first.
func Activities(ns string) string { return "imgtk:{" + ns + "}:activities" }

// Stats returns the string key holding the JSON-encoded cumulative counters.
func Stats(ns string) string { return "imgtk:{" + ns + "}:stats" }

// Namespace holds precomputed keys for one ledger namespace to avoid repeated
// concatenations.
type Namespace struct {
	Activities string
	Stats      string
}

// For returns the precomputed keys for the provided namespace.
func For(ns string) Namespace {
	prefix := "imgtk:{" + ns + "}:"
	return Namespace{
		Activities: prefix + "activities",
		Stats:      prefix + "stats",
	}
}
