package tlvinfo

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidHeader    = errors.New("tlvinfo: invalid header")
	ErrCorruptRecord    = errors.New("tlvinfo: corrupt record")
	ErrOutOfSpace       = errors.New("tlvinfo: out of space")
	ErrNotFound         = errors.New("tlvinfo: record not found")
	ErrChecksumMismatch = errors.New("tlvinfo: checksum mismatch")
	ErrInvalidCode      = errors.New("tlvinfo: invalid record code")
	ErrValueTooLong     = errors.New("tlvinfo: value too long")
	ErrShortImage       = errors.New("tlvinfo: image shorter than header")
)

// RecordError reports a malformed record found while scanning. It matches
// ErrCorruptRecord with errors.Is.
type RecordError struct {
	Offset int
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("tlvinfo: corrupt record at offset %d: %s", e.Offset, e.Reason)
}

func (e *RecordError) Unwrap() error {
	return ErrCorruptRecord
}
