package tlvinfo

import (
	"bytes"
	"encoding/binary"
)

const (
	// HeaderSize is the size of the fixed image header.
	HeaderSize = 11
	// EntryHeaderSize is the size of a record's type and length bytes.
	EntryHeaderSize = 2
	// MaxSize is the capacity of an image.
	MaxSize = 2048
	// MaxTotalLen is the largest record area a header may declare.
	MaxTotalLen = MaxSize - HeaderSize
	// MaxValueLen is the largest value a single record can carry.
	MaxValueLen = 255

	// Signature is the tag stored in the first eight bytes of the header.
	Signature = "TlvInfo"
	// Version is the only supported format version.
	Version = 0x01

	signatureLen  = 8
	versionOffset = 8
	lengthOffset  = 9
)

// Header is the decoded fixed prefix of an image.
type Header struct {
	Signature [signatureLen]byte
	Version   uint8
	TotalLen  uint16
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, ErrShortImage
	}
	copy(h.Signature[:], b[:signatureLen])
	h.Version = b[versionOffset]
	h.TotalLen = binary.BigEndian.Uint16(b[lengthOffset:HeaderSize])
	return h, nil
}

// Valid reports whether the signature is "TlvInfo", the version is 1 and
// the declared length fits in an image.
func (h Header) Valid() bool {
	sig := h.Signature[:]
	if i := bytes.IndexByte(sig, 0); i >= 0 {
		sig = sig[:i]
	} else {
		// not NUL terminated
		return false
	}
	return string(sig) == Signature &&
		h.Version == Version &&
		h.TotalLen <= MaxTotalLen
}

// SignatureString returns the signature up to its NUL terminator.
func (h Header) SignatureString() string {
	sig := h.Signature[:]
	if i := bytes.IndexByte(sig, 0); i >= 0 {
		sig = sig[:i]
	}
	return string(sig)
}

// IsValidHeader reports whether b starts with a valid TlvInfo header.
func IsValidHeader(b []byte) bool {
	h, err := ParseHeader(b)
	return err == nil && h.Valid()
}

func putHeader(b []byte, h Header) {
	copy(b[:signatureLen], h.Signature[:])
	b[versionOffset] = h.Version
	binary.BigEndian.PutUint16(b[lengthOffset:HeaderSize], h.TotalLen)
}

func freshHeader() Header {
	h := Header{Version: Version}
	copy(h.Signature[:], Signature)
	return h
}
