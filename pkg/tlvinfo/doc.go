// Package tlvinfo implements the TlvInfo identity EEPROM format used by
// embedded boards to store manufacturing data such as the serial number,
// base MAC address and part number.
//
// # Image Format
//
// An image is a fixed 2048 byte buffer holding a header followed by a
// packed sequence of type-length-value records:
//
//	[Signature(8)][Version(1)][TotalLen(2)][Type(1)][Len(1)][Value]...[0xFE][0x04][CRC32(4)]
//
// Fields:
//   - Signature: the NUL terminated ASCII string "TlvInfo"
//   - Version: format version, always 1
//   - TotalLen: big-endian count of record bytes following the header
//   - Type: record code, 0x00 and 0xFF are reserved
//   - Len: value length in bytes, 0-255
//   - Value: Len raw bytes
//
// The last record should be a CRC-32 record. Its value is the big-endian
// IEEE CRC-32 of every byte from the start of the image up to, but not
// including, the four checksum bytes themselves.
//
// # Usage
//
//	img := tlvinfo.NewImage()
//
//	if err := img.Add(tlvinfo.CodeSerialNumber, []byte("SN12345")); err != nil {
//	    return err
//	}
//	if err := img.UpdateCRC(); err != nil {
//	    return err
//	}
//
//	rec, ok, err := img.Lookup(tlvinfo.CodeSerialNumber)
//
// # Checksum Maintenance
//
// Add drops an existing CRC-32 record as part of the mutation, so the image
// carries no checksum until UpdateCRC is called again. Delete removes only
// the requested record; a CRC-32 record stays where it is and no longer
// matches. UpdateCRC removes every CRC-32 record and appends a fresh one as
// the last record, so calling it twice changes nothing.
//
// # Thread Safety
//
// An Image is a plain buffer. Callers that share one between goroutines
// must serialize access themselves.
package tlvinfo
