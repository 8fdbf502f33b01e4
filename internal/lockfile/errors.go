package lockfile

import "fmt"

// UnknownFormatError is returned when no parser could be matched to a
// path. Attempts, when set, is the aggregate of every fallback parser's
// rejection (§4.1 step 4), useful for diagnosing why the guess failed.
type UnknownFormatError struct {
	Path     string
	Attempts error
}

func (e *UnknownFormatError) Error() string {
	if e.Attempts != nil {
		return fmt.Sprintf("unknown dependency file format: %s (%v)", e.Path, e.Attempts)
	}
	return fmt.Sprintf("unknown dependency file format: %s", e.Path)
}

func (e *UnknownFormatError) Unwrap() error { return e.Attempts }

// ManifestWithoutGenerationError is returned when a manifest was selected
// but its parser has no generator and no sibling lockfile exists.
type ManifestWithoutGenerationError struct{ Path string }

func (e *ManifestWithoutGenerationError) Error() string {
	return fmt.Sprintf("%s is a manifest with no lockfile and generation is not enabled for it", e.Path)
}

// ParseFailureError wraps an underlying parse error with the offending path.
type ParseFailureError struct {
	Path string
	Err  error
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseFailureError) Unwrap() error { return e.Err }

// GenerationFailureError wraps a failure to synthesize a lockfile from a
// manifest via the ecosystem's own tool.
type GenerationFailureError struct {
	Path string
	Err  error
}

func (e *GenerationFailureError) Error() string {
	return fmt.Sprintf("failed to generate a lockfile for %s: %v", e.Path, e.Err)
}

func (e *GenerationFailureError) Unwrap() error { return e.Err }
