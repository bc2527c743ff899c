package tlvinfo

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Code identifies the meaning of a record.
type Code uint8

// Record codes understood by the decoder.
const (
	CodeProductName   Code = 0x21
	CodePartNumber    Code = 0x22
	CodeSerialNumber  Code = 0x23
	CodeMACBase       Code = 0x24
	CodeManufDate     Code = 0x25
	CodeDeviceVersion Code = 0x26
	CodeLabelRevision Code = 0x27
	CodePlatformName  Code = 0x28
	CodeONIEVersion   Code = 0x29
	CodeMACSize       Code = 0x2A
	CodeManufName     Code = 0x2B
	CodeManufCountry  Code = 0x2C
	CodeVendorName    Code = 0x2D
	CodeDiagVersion   Code = 0x2E
	CodeServiceTag    Code = 0x2F
	CodeVendorExt     Code = 0xFD
	CodeCRC32         Code = 0xFE

	codeReservedLow  Code = 0x00
	codeReservedHigh Code = 0xFF
)

// Kind selects how a record value is rendered for display.
type Kind uint8

const (
	KindHex Kind = iota
	KindString
	KindMAC
	KindUint8
	KindUint16
	KindCRC
)

const (
	unknownName = "Unknown"
	// DecodeNameMax is the width of the name column; names are cut to one less.
	DecodeNameMax = 20
)

// CodeInfo describes one known record code.
type CodeInfo struct {
	Code Code
	Name string
	Kind Kind
}

// codeTable is ordered by code; CodeList returns it for display.
var codeTable = []CodeInfo{
	{CodeProductName, "Product Name", KindString},
	{CodePartNumber, "Part Number", KindString},
	{CodeSerialNumber, "Serial Number", KindString},
	{CodeMACBase, "Base MAC Address", KindMAC},
	{CodeManufDate, "Manufacture Date", KindString},
	{CodeDeviceVersion, "Device Version", KindUint8},
	{CodeLabelRevision, "Label Revision", KindString},
	{CodePlatformName, "Platform Name", KindString},
	{CodeONIEVersion, "ONIE Version", KindString},
	{CodeMACSize, "MAC Addresses", KindUint16},
	{CodeManufName, "Manufacturer", KindString},
	{CodeManufCountry, "Country Code", KindString},
	{CodeVendorName, "Vendor Name", KindString},
	{CodeDiagVersion, "Diag Version", KindString},
	{CodeServiceTag, "Service Tag", KindString},
	{CodeVendorExt, "Vendor Extension", KindHex},
	{CodeCRC32, "CRC-32", KindCRC},
}

var codeIndex = func() map[Code]CodeInfo {
	m := make(map[Code]CodeInfo, len(codeTable))
	for _, ci := range codeTable {
		m[ci.Code] = ci
	}
	return m
}()

// CodeList returns the known codes in ascending order.
func CodeList() []CodeInfo {
	out := make([]CodeInfo, len(codeTable))
	copy(out, codeTable)
	return out
}

// Valid reports whether c is usable as a record type.
func (c Code) Valid() bool {
	return c != codeReservedLow && c != codeReservedHigh
}

// Known reports whether c has an entry in the code table.
func (c Code) Known() bool {
	_, ok := codeIndex[c]
	return ok
}

// Name returns the display name of c, or "Unknown".
func (c Code) Name() string {
	if ci, ok := codeIndex[c]; ok {
		return ci.Name
	}
	return unknownName
}

// Kind returns the decode strategy for c. Unknown codes decode as hex.
func (c Code) Kind() Kind {
	if ci, ok := codeIndex[c]; ok {
		return ci.Kind
	}
	return KindHex
}

func (c Code) String() string {
	return fmt.Sprintf("%s (0x%02X)", c.Name(), uint8(c))
}

// DecodeValue renders value the way code c is displayed. Values too short
// for a fixed layout fall back to a hex dump.
func DecodeValue(c Code, value []byte) string {
	switch c.Kind() {
	case KindString:
		return printable(value)
	case KindMAC:
		if len(value) >= 6 {
			return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
				value[0], value[1], value[2], value[3], value[4], value[5])
		}
	case KindUint8:
		if len(value) >= 1 {
			return fmt.Sprintf("%d", value[0])
		}
	case KindUint16:
		if len(value) >= 2 {
			return fmt.Sprintf("%d", binary.BigEndian.Uint16(value))
		}
	case KindCRC:
		if len(value) >= 4 {
			return fmt.Sprintf("0x%08X", binary.BigEndian.Uint32(value))
		}
	}
	return hexDump(value)
}

// FormatRecord renders one display line: name, code, length and value.
func FormatRecord(r Record) string {
	name := r.Code.Name()
	if len(name) > DecodeNameMax-1 {
		name = name[:DecodeNameMax-1]
	}
	return fmt.Sprintf("%-20s 0x%02X %3d %s", name, uint8(r.Code), len(r.Value), DecodeValue(r.Code, r.Value))
}

// printable stops at the first NUL and masks non-printable bytes.
func printable(value []byte) string {
	var sb strings.Builder
	sb.Grow(len(value))
	for _, b := range value {
		if b == 0 {
			break
		}
		if b < 0x20 || b > 0x7E {
			sb.WriteByte('.')
			continue
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

func hexDump(value []byte) string {
	if len(value) > MaxValueLen {
		value = value[:MaxValueLen]
	}
	var sb strings.Builder
	sb.Grow(len(value) * 5)
	for _, b := range value {
		fmt.Fprintf(&sb, " 0x%02X", b)
	}
	return sb.String()
}
