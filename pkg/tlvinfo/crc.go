package tlvinfo

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	crcValueLen   = 4
	crcRecordSize = EntryHeaderSize + crcValueLen
)

// UpdateCRC removes any CRC-32 records, then appends a fresh one as the last
// record. The checksum covers the image from offset 0 through the new
// record's type and length bytes. Calling it twice yields the same image.
func (img *Image) UpdateCRC() error {
	for {
		off, found, err := img.Find(CodeCRC32)
		if err != nil {
			return err
		}
		if !found {
			break
		}
		if err := img.remove(off); err != nil {
			return err
		}
	}

	if free := img.Free(); free < crcRecordSize {
		return fmt.Errorf("%w: no room for CRC-32 record (%d free)", ErrOutOfSpace, free)
	}

	off := img.end()
	img.buf[off] = byte(CodeCRC32)
	img.buf[off+1] = crcValueLen
	img.setTotalLen(img.TotalLen() + crcRecordSize)
	sum := crc32.ChecksumIEEE(img.buf[:off+EntryHeaderSize])
	binary.BigEndian.PutUint32(img.buf[off+EntryHeaderSize:], sum)
	return nil
}

// VerifyCRC checks that the last record is a CRC-32 record holding the
// checksum of everything before its value. It returns ErrInvalidHeader,
// ErrNotFound when there is no trailing CRC-32 record, or ErrChecksumMismatch.
func (img *Image) VerifyCRC() error {
	if !img.Valid() {
		return ErrInvalidHeader
	}
	tl := img.TotalLen()
	if tl < crcRecordSize {
		return fmt.Errorf("%w: no trailing CRC-32 record", ErrNotFound)
	}
	off := HeaderSize + tl - crcRecordSize
	if Code(img.buf[off]) != CodeCRC32 || img.buf[off+1] != crcValueLen {
		return fmt.Errorf("%w: no trailing CRC-32 record", ErrNotFound)
	}
	stored := binary.BigEndian.Uint32(img.buf[off+EntryHeaderSize:])
	calc := crc32.ChecksumIEEE(img.buf[:off+EntryHeaderSize])
	if stored != calc {
		return fmt.Errorf("%w: stored 0x%08X, computed 0x%08X", ErrChecksumMismatch, stored, calc)
	}
	return nil
}

// CheckCRC reports whether VerifyCRC succeeds.
func (img *Image) CheckCRC() bool {
	return img.VerifyCRC() == nil
}
