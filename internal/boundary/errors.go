package boundary

import (
	"fmt"
	"strings"
)

// DownloadError reports a failure to acquire a boundary archive when no
// usable local copy exists. Reference data is foundational, so callers
// treat this as fatal for the run.
type DownloadError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("boundary: download %s dataset from %s: %v", e.Kind, e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// CacheCorruptError reports a serialized cache form that could not be
// decoded. The cache recovers by re-deriving from the archive; this error
// surfaces only when re-derivation is impossible too.
type CacheCorruptError struct {
	Path string
	Err  error
}

func (e *CacheCorruptError) Error() string {
	return fmt.Sprintf("boundary: corrupt cache file %s: %v", e.Path, e.Err)
}

func (e *CacheCorruptError) Unwrap() error { return e.Err }

// NoMatchError reports that a point fell outside every candidate polygon,
// or that a looked-up attribute value matched no feature. Recoverable
// per record; the pipeline decides whether it aborts the batch.
type NoMatchError struct {
	Kind  Kind
	Lon   float64
	Lat   float64
	Value string // set for attribute lookups instead of Lon/Lat
}

func (e *NoMatchError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("boundary: no %s feature matches %q", e.Kind, e.Value)
	}
	return fmt.Sprintf("boundary: no %s polygon contains point (%g, %g)", e.Kind, e.Lon, e.Lat)
}

// MissingColumnsError reports input that lacks the columns a requested
// enrichment group needs.
type MissingColumnsError struct {
	Group   string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("boundary: %s enrichment requires missing columns: %s",
		e.Group, strings.Join(e.Missing, ", "))
}

// UnknownFieldError reports a requested field absent from the resolved
// dataset. Fatal for the whole run.
type UnknownFieldError struct {
	Group string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("boundary: field %q is not present in %s data", e.Field, e.Group)
}
