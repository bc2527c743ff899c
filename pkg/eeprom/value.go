package eeprom

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ssargent/tlvinfo/pkg/tlvinfo"
)

// ManufDateLayout is the only accepted Manufacture Date form.
const ManufDateLayout = "01/02/2006 15:04:05"

// ParseCode reads a record code written in decimal, 0x hex, or 0 octal, the
// way the operator supplies it on a command line.
func ParseCode(s string) (tlvinfo.Code, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: code %q", tlvinfo.ErrInvalidCode, s)
	}
	c := tlvinfo.Code(n)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: 0x%02X is reserved", tlvinfo.ErrInvalidCode, uint8(c))
	}
	return c, nil
}

// ParseValue converts operator text into the stored bytes for code.
func ParseValue(code tlvinfo.Code, value string) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch code.Kind() {
	case tlvinfo.KindMAC:
		raw, err = parseMAC(value)
	case tlvinfo.KindUint8:
		raw, err = parseUint(value, 8)
	case tlvinfo.KindUint16:
		raw, err = parseUint(value, 16)
	case tlvinfo.KindString:
		if code == tlvinfo.CodeManufDate {
			if _, perr := time.Parse(ManufDateLayout, value); perr != nil || len(value) != len(ManufDateLayout) {
				return nil, fmt.Errorf("%w: date must be MM/DD/YYYY hh:mm:ss, got %q", ErrInvalidValue, value)
			}
		}
		raw = []byte(value)
	case tlvinfo.KindCRC:
		return nil, fmt.Errorf("%w: CRC-32 is computed on write", tlvinfo.ErrInvalidCode)
	default:
		raw, err = parseHexBytes(value)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) > tlvinfo.MaxValueLen {
		return nil, fmt.Errorf("%w: %d > %d", tlvinfo.ErrValueTooLong, len(raw), tlvinfo.MaxValueLen)
	}
	return raw, nil
}

func parseMAC(value string) ([]byte, error) {
	hw, err := net.ParseMAC(value)
	if err != nil || len(hw) != 6 {
		return nil, fmt.Errorf("%w: MAC address %q", ErrInvalidValue, value)
	}
	return []byte(hw), nil
}

func parseUint(value string, bits int) ([]byte, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 0, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a %d-bit number", ErrInvalidValue, value, bits)
	}
	if bits == 8 {
		return []byte{byte(n)}, nil
	}
	return binary.BigEndian.AppendUint16(nil, uint16(n)), nil
}

// parseHexBytes accepts whitespace separated bytes such as "0x01 0xAB ff".
func parseHexBytes(value string) ([]byte, error) {
	fields := strings.Fields(value)
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X"), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: bad byte %q", ErrInvalidValue, f)
		}
		out = append(out, byte(n))
	}
	return out, nil
}
