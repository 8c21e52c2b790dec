// Package input models the image inputs accepted by the analyzer as a closed
// set of variants (file path, raw bytes, readable stream) and normalizes each
// of them into a raw byte payload with a detectable MIME type.
package input

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"

	// Decoder registrations used for MIME sniffing only. The image data is
	// never decoded into pixels before dispatch.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// DefaultMIME is declared for payloads whose format cannot be sniffed.
// Empty probe payloads fall into this bucket as well.
const DefaultMIME = "image/png"

// Input is a caller-supplied image in one of a closed set of representations.
// The unexported method keeps the variant set closed, so every consumer of an
// Input is guaranteed to handle all kinds.
type Input interface {
	normalize() ([]byte, error)
}

// Path is an image addressed by a filesystem path.
type Path string

// Bytes is an in-memory image payload, used as-is.
type Bytes []byte

// reader wraps a readable stream. Use FromReader to construct it.
type reader struct {
	r io.Reader
}

// FromPath returns an Input that reads the file at p when normalized.
func FromPath(p string) Input { return Path(p) }

// FromBytes returns an Input backed by b. The buffer is not copied.
func FromBytes(b []byte) Input { return Bytes(b) }

// FromReader returns an Input that drains r when normalized. If r is also an
// io.Seeker, its read position is restored after normalization so the caller
// can reuse the stream; plain readers are consumed.
func FromReader(r io.Reader) Input { return reader{r: r} }

// From adapts a dynamically-typed value into an Input. It accepts string
// (path), []byte, Input, and io.Reader; anything else is an *UnsupportedError.
func From(v any) (Input, error) {
	switch t := v.(type) {
	case Input:
		return t, nil
	case string:
		return Path(t), nil
	case []byte:
		return Bytes(t), nil
	case io.Reader:
		return FromReader(t), nil
	default:
		return nil, &UnsupportedError{Kind: fmt.Sprintf("%T", v)}
	}
}

// Normalize resolves an Input into its raw bytes. No network activity is
// involved; failures here are local read or input-shape errors.
func Normalize(in Input) ([]byte, error) {
	if in == nil {
		return nil, &UnsupportedError{Kind: "nil"}
	}
	return in.normalize()
}

func (p Path) normalize() ([]byte, error) {
	data, err := os.ReadFile(string(p))
	if err != nil {
		return nil, &ReadError{Path: string(p), Err: err}
	}
	return data, nil
}

func (b Bytes) normalize() ([]byte, error) {
	return []byte(b), nil
}

func (r reader) normalize() ([]byte, error) {
	if r.r == nil {
		return nil, &UnsupportedError{Kind: "nil reader"}
	}

	seeker, seekable := r.r.(io.Seeker)
	var start int64
	if seekable {
		pos, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("failed to record stream position: %w", err)
		}
		start = pos
	}

	data, readErr := io.ReadAll(r.r)

	// Restore the caller's cursor even when the read failed partway.
	if seekable {
		if _, err := seeker.Seek(start, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to restore stream position: %w", err)
		}
	}

	if readErr != nil {
		return nil, fmt.Errorf("failed to read image stream: %w", readErr)
	}
	return data, nil
}

// DetectMIME sniffs the image format of data through the registered image
// decoders and returns the matching MIME type. Unrecognized payloads report
// DefaultMIME so that the remote service, not this package, decides whether
// to reject them.
func DetectMIME(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return DefaultMIME
	}

	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	default:
		return DefaultMIME
	}
}
