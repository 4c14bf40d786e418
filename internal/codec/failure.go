package codec

import (
	"errors"
	"fmt"
)

// FailKind classifies why processing an asset failed. The pipeline recovers
// from all of these per asset; only a missing required tool is fatal, and
// that is caught at startup before any asset is touched.
type FailKind int

const (
	FailTranscode         FailKind = iota // External tool ran but produced an invalid/failed result.
	FailMissingDependency                 // Required external tool absent at invocation time.
	FailSourceUnreadable                  // Asset cannot be opened or decoded.
	FailDestinationWrite                  // Filesystem error on the output tree.
	FailClassification                    // Asset kind cannot be determined.
)

// String returns the short label used in per-asset error reports.
func (k FailKind) String() string {
	switch k {
	case FailMissingDependency:
		return "missing dependency"
	case FailSourceUnreadable:
		return "source unreadable"
	case FailDestinationWrite:
		return "destination write failed"
	case FailClassification:
		return "classification ambiguous"
	default:
		return "transcode failed"
	}
}

// Failure is the typed error surfaced by codec invokers and the
// replacement logic. It always names the asset path it refers to.
type Failure struct {
	Kind FailKind
	Path string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Kind, f.Path)
	}
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.Path, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf extracts the FailKind from an error chain. Errors that are not
// Failures report FailTranscode, the most conservative classification.
func KindOf(err error) FailKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailTranscode
}
