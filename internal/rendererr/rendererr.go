// Package rendererr defines the stable error-kind taxonomy shared by every
// stage of the rendering pipeline, so callers can errors.As into a single
// type regardless of which package raised the failure.
package rendererr

import "fmt"

// Kind identifies a class of render failure. The set is closed and stable;
// add new values here rather than inventing ad-hoc sentinel errors elsewhere.
type Kind string

const (
	InvalidCoordinates    Kind = "InvalidCoordinates"
	WindowOutsideCoverage Kind = "WindowOutsideCoverage"
	NotElevationData      Kind = "NotElevationData"
	UnreadableSource      Kind = "UnreadableSource"
	EmptyCatalog          Kind = "EmptyCatalog"
	OutputTooLarge        Kind = "OutputTooLarge"
	OutOfMemory           Kind = "OutOfMemory"
	TimedOut              Kind = "TimedOut"
	WriteError            Kind = "WriteError"
	Cancelled             Kind = "Cancelled"

	// FileNotFound, UnreadableHeader, UnsupportedFormat, IoError are C2's
	// reader-level kinds (spec.md §4.2); they surface to the controller
	// as-is, not rewrapped as UnreadableSource, and ExitCode maps them
	// directly.
	FileNotFound      Kind = "FileNotFound"
	UnreadableHeader  Kind = "UnreadableHeader"
	UnsupportedFormat Kind = "UnsupportedFormat"
	IoError           Kind = "IoError"
)

// Error wraps an underlying cause with a stable Kind and optional structured
// detail (e.g. RecommendedScale for OutputTooLarge).
type Error struct {
	Kind             Kind
	Detail           string
	RecommendedScale float64 // set only for OutputTooLarge
	Cause            error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
		}
		return string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a Kind-tagged error with a free-form detail message.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap tags an existing error with a Kind, preserving it as the cause for
// errors.Is/errors.As.
func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

// TooLarge builds the OutputTooLarge variant carrying the recommended safe
// export scale per spec.md §4.5 rule 6.
func TooLarge(detail string, recommendedScale float64) *Error {
	return &Error{Kind: OutputTooLarge, Detail: detail, RecommendedScale: recommendedScale}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var re *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			re = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return re != nil && re.Kind == kind
}

// ExitCode maps an error's Kind onto the CLI exit codes from spec.md §6.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var re *Error
	if e, ok := err.(*Error); ok {
		re = e
	} else {
		return 1
	}
	switch re.Kind {
	case InvalidCoordinates, WindowOutsideCoverage, NotElevationData, UnsupportedFormat:
		return 2
	case UnreadableSource, EmptyCatalog, FileNotFound, UnreadableHeader, IoError:
		return 3
	case OutputTooLarge:
		return 4
	case OutOfMemory:
		return 5
	case TimedOut:
		return 6
	case WriteError:
		return 7
	case Cancelled:
		return 1
	default:
		return 1
	}
}
