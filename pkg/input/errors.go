package input

import "fmt"

// UnsupportedError reports an image input of an unrecognized kind. It is
// raised before any normalization or network activity takes place.
type UnsupportedError struct {
	Kind string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported image input kind: %s", e.Kind)
}

// ReadError reports a failure to read an image from the local filesystem.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read image %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
