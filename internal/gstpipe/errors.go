package gstpipe

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory represents the classification of GStreamer bus errors for telemetry
type ErrorCategory int

const (
	// ErrCategoryResource indicates device or file access failures (busy, permission, read)
	ErrCategoryResource ErrorCategory = iota
	// ErrCategoryNotFound indicates a missing file, device or plugin
	ErrCategoryNotFound
	// ErrCategoryNegotiation indicates caps negotiation or decoding failures
	ErrCategoryNegotiation
	// ErrCategoryNetwork indicates HTTP/network failures
	ErrCategoryNetwork
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryResource:
		return "resource"
	case ErrCategoryNotFound:
		return "not_found"
	case ErrCategoryNegotiation:
		return "negotiation"
	case ErrCategoryNetwork:
		return "network"
	default:
		return "unknown"
	}
}

var (
	networkKeywords = []string{
		"http",
		"souphttpsrc",
		"connection",
		"timeout",
		"timed out",
		"unreachable",
		"network",
		"dns",
		"resolve",
		"socket",
		"could not connect",
	}
	notFoundKeywords = []string{
		"not found",
		"no such file",
		"does not exist",
		"no such device",
		"missing plugin",
		"no element",
		"could not determine type",
	}
	negotiationKeywords = []string{
		"not negotiated",
		"negotiation",
		"caps",
		"format",
		"decode",
		"codec",
		"no decoder",
	}
	resourceKeywords = []string{
		"resource",
		"busy",
		"permission",
		"could not open",
		"could not read",
		"failed to allocate",
		"device",
	}
)

// ClassifyError categorizes a bus error from its message and debug string.
//
// go-gst's GError does not expose the error domain, so classification relies
// on keyword matching. Checks run from most to least specific: network errors
// mention the HTTP source, and "not found" must win over the generic
// resource keywords.
func ClassifyError(message, debug string) ErrorCategory {
	combined := strings.ToLower(message + " " + debug)

	switch {
	case containsAny(combined, networkKeywords):
		return ErrCategoryNetwork
	case containsAny(combined, notFoundKeywords):
		return ErrCategoryNotFound
	case containsAny(combined, negotiationKeywords):
		return ErrCategoryNegotiation
	case containsAny(combined, resourceKeywords):
		return ErrCategoryResource
	default:
		return ErrCategoryUnknown
	}
}

// ClassifyGError categorizes a GStreamer error.
func ClassifyGError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return ClassifyError(gerr.Error(), gerr.DebugString())
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
