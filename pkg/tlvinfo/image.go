package tlvinfo

import (
	"encoding/binary"
	"fmt"
)

// Record is one decoded type-length-value entry.
type Record struct {
	Offset int    // Byte offset of the type field within the image
	Code   Code   // Record type
	Value  []byte // Value bytes
}

// Size returns the encoded size of the record.
func (r Record) Size() int {
	return EntryHeaderSize + len(r.Value)
}

// End returns the offset of the first byte after the record.
func (r Record) End() int {
	return recordEnd(r.Offset, len(r.Value))
}

// recordEnd is the single place record extents are computed.
func recordEnd(offset, valueLen int) int {
	return offset + EntryHeaderSize + valueLen
}

// Image is an in-memory TlvInfo EEPROM image.
type Image struct {
	buf [MaxSize]byte
}

// NewImage returns an erased image: a valid header with no records.
func NewImage() *Image {
	img := &Image{}
	img.Erase()
	return img
}

// FromBytes copies b into a new image. Bytes beyond MaxSize are ignored;
// a short b leaves the remainder zeroed. The content is not validated.
func FromBytes(b []byte) (*Image, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d < %d", ErrShortImage, len(b), HeaderSize)
	}
	img := &Image{}
	copy(img.buf[:], b)
	return img, nil
}

// Raw returns the whole backing buffer. Storage reads fill it directly.
func (img *Image) Raw() []byte {
	return img.buf[:]
}

// Bytes returns the header and record area, the part worth persisting.
func (img *Image) Bytes() []byte {
	return img.buf[:img.end()]
}

// Clone returns an independent copy of img.
func (img *Image) Clone() *Image {
	c := *img
	return &c
}

// Header returns the decoded header.
func (img *Image) Header() Header {
	h, _ := ParseHeader(img.buf[:])
	return h
}

// Valid reports whether the image header is valid.
func (img *Image) Valid() bool {
	return img.Header().Valid()
}

// TotalLen returns the declared length of the record area.
func (img *Image) TotalLen() int {
	return int(binary.BigEndian.Uint16(img.buf[lengthOffset:HeaderSize]))
}

// Free returns the number of unused bytes after the record area.
func (img *Image) Free() int {
	return MaxTotalLen - img.TotalLen()
}

// Erase resets the header and clears the record area.
func (img *Image) Erase() {
	img.buf = [MaxSize]byte{}
	putHeader(img.buf[:], freshHeader())
}

func (img *Image) setTotalLen(n int) {
	binary.BigEndian.PutUint16(img.buf[lengthOffset:HeaderSize], uint16(n))
}

// end is the offset just past the last record, clamped to the buffer.
func (img *Image) end() int {
	tl := img.TotalLen()
	if tl > MaxTotalLen {
		tl = MaxTotalLen
	}
	return HeaderSize + tl
}

// entryAt decodes the record at off, which must end at or before limit.
func (img *Image) entryAt(off, limit int) (Record, error) {
	if off+EntryHeaderSize > limit {
		return Record{}, &RecordError{Offset: off, Reason: "truncated entry header"}
	}
	code := Code(img.buf[off])
	if !code.Valid() {
		return Record{}, &RecordError{Offset: off, Reason: fmt.Sprintf("reserved code 0x%02X", uint8(code))}
	}
	end := recordEnd(off, int(img.buf[off+1]))
	if end > limit {
		return Record{}, &RecordError{
			Offset: off,
			Reason: fmt.Sprintf("length %d overruns record area ending at %d", img.buf[off+1], limit),
		}
	}
	return Record{Offset: off, Code: code, Value: img.buf[off+EntryHeaderSize : end]}, nil
}

// Walk visits records in order until fn returns false. It stops with
// ErrInvalidHeader or a *RecordError. Values passed to fn alias the image
// and are only valid during the call.
func (img *Image) Walk(fn func(r Record) bool) error {
	if !img.Valid() {
		return ErrInvalidHeader
	}
	limit := img.end()
	for off := HeaderSize; off < limit; {
		r, err := img.entryAt(off, limit)
		if err != nil {
			return err
		}
		if !fn(r) {
			return nil
		}
		off = r.End()
	}
	return nil
}

// Records returns a copy of every record in order.
func (img *Image) Records() ([]Record, error) {
	var out []Record
	err := img.Walk(func(r Record) bool {
		out = append(out, copyRecord(r))
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Find returns the offset of the first record with code c. A missing record
// is reported through found, not err; err is set only when the header is
// invalid or the scan hits a corrupt record.
func (img *Image) Find(c Code) (offset int, found bool, err error) {
	err = img.Walk(func(r Record) bool {
		if r.Code == c {
			offset, found = r.Offset, true
			return false
		}
		return true
	})
	if err != nil {
		return 0, false, err
	}
	return offset, found, nil
}

// Lookup returns a copy of the first record with code c.
func (img *Image) Lookup(c Code) (Record, bool, error) {
	off, found, err := img.Find(c)
	if err != nil || !found {
		return Record{}, found, err
	}
	r, err := img.entryAt(off, img.end())
	if err != nil {
		return Record{}, false, err
	}
	return copyRecord(r), true, nil
}

// ReadString returns the value of the first record with code c as a string.
func (img *Image) ReadString(c Code) (string, bool, error) {
	r, found, err := img.Lookup(c)
	if err != nil || !found {
		return "", found, err
	}
	return string(r.Value), true, nil
}

// Add appends a record with code c and the given value. The new record must
// fit in the free space as it stands; an existing CRC-32 record is then
// dropped so the checksum can be rebuilt last by UpdateCRC. On error the
// image is unchanged.
func (img *Image) Add(c Code, value []byte) error {
	if !c.Valid() {
		return fmt.Errorf("%w: 0x%02X is reserved", ErrInvalidCode, uint8(c))
	}
	if c == CodeCRC32 {
		return fmt.Errorf("%w: CRC-32 is maintained by UpdateCRC", ErrInvalidCode)
	}
	if len(value) > MaxValueLen {
		return fmt.Errorf("%w: %d > %d", ErrValueTooLong, len(value), MaxValueLen)
	}
	// Scan everything, not just up to the checksum, so a corrupt tail is
	// reported before the image is touched.
	crcOff, hasCRC := 0, false
	err := img.Walk(func(r Record) bool {
		if r.Code == CodeCRC32 && !hasCRC {
			crcOff, hasCRC = r.Offset, true
		}
		return true
	})
	if err != nil {
		return err
	}
	need := EntryHeaderSize + len(value)
	if free := img.Free(); need > free {
		return fmt.Errorf("%w: need %d bytes, %d free", ErrOutOfSpace, need, free)
	}
	if hasCRC {
		if err := img.remove(crcOff); err != nil {
			return err
		}
	}

	off := img.end()
	img.buf[off] = byte(c)
	img.buf[off+1] = byte(len(value))
	copy(img.buf[off+EntryHeaderSize:], value)
	img.setTotalLen(img.TotalLen() + need)
	return nil
}

// Delete removes the first record with code c and reports whether one was
// found. Later records move down to close the gap. A CRC-32 record left in
// place is stale until UpdateCRC runs.
func (img *Image) Delete(c Code) (bool, error) {
	off, found, err := img.Find(c)
	if err != nil || !found {
		return false, err
	}
	if err := img.remove(off); err != nil {
		return false, err
	}
	return true, nil
}

// remove cuts the record at off out of the record area.
func (img *Image) remove(off int) error {
	end := img.end()
	r, err := img.entryAt(off, end)
	if err != nil {
		return err
	}
	size := r.Size()
	copy(img.buf[off:], img.buf[r.End():end])
	clear(img.buf[end-size : end])
	img.setTotalLen(img.TotalLen() - size)
	return nil
}

func copyRecord(r Record) Record {
	v := make([]byte, len(r.Value))
	copy(v, r.Value)
	r.Value = v
	return r
}
