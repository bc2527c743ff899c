package eeprom

import (
	"errors"
	"fmt"
	"io"

	"github.com/ssargent/tlvinfo/pkg/tlvinfo"
)

// Show prints the loaded image of the current device.
func (s *Session) Show(w io.Writer) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	err := ShowImage(w, s.current, s.image)
	var recErr *tlvinfo.RecordError
	if errors.As(err, &recErr) {
		s.log.Warn().Int("device", s.current).Int("offset", recErr.Offset).Str("reason", recErr.Reason).Msg("corrupt record")
		return nil
	}
	return err
}

// ShowImage prints the header, a decoded line per record and the checksum
// status of img. Content problems are reported in the output; only write
// errors and a *tlvinfo.RecordError are returned.
func ShowImage(w io.Writer, dev int, img *tlvinfo.Image) error {
	p := &printer{w: w}
	h := img.Header()
	if !h.Valid() {
		p.printf("EEPROM does not contain data in a valid TlvInfo format.\n")
		return p.err
	}
	p.printf("TLV: %d\n", dev)
	p.printf("TlvInfo Header:\n")
	p.printf("   Id String:    %s\n", h.SignatureString())
	p.printf("   Version:      %d\n", h.Version)
	p.printf("   Total Length: %d\n", h.TotalLen)
	p.printf("TLV Name             Code Len Value\n")
	p.printf("-------------------- ---- --- -----\n")

	err := img.Walk(func(r tlvinfo.Record) bool {
		p.printf("%s\n", tlvinfo.FormatRecord(r))
		return p.err == nil
	})
	if p.err != nil {
		return p.err
	}
	var recErr *tlvinfo.RecordError
	if errors.As(err, &recErr) {
		p.printf("Invalid TLV field starting at EEPROM offset %d\n", recErr.Offset)
		if p.err != nil {
			return p.err
		}
		return err
	}
	if err != nil {
		return err
	}

	status := "invalid"
	if img.CheckCRC() {
		status = "valid"
	}
	p.printf("Checksum is %s.\n", status)
	return p.err
}

// WriteCodeList prints the known record codes.
func WriteCodeList(w io.Writer) error {
	p := &printer{w: w}
	p.printf("TLV Code    TLV Name\n")
	p.printf("========    =================\n")
	for _, ci := range tlvinfo.CodeList() {
		p.printf("0x%02X        %s\n", uint8(ci.Code), ci.Name)
	}
	return p.err
}

// WriteDevices prints the device slots, marking the current one.
func (s *Session) WriteDevices(w io.Writer) error {
	p := &printer{w: w}
	for _, d := range s.Devices() {
		mark := ""
		if d.Current {
			mark = " (*)"
		}
		p.printf("TLV: %d%s\n", d.Index, mark)
	}
	return p.err
}

// Dump prints the whole in-memory buffer, 16 bytes per row.
func (s *Session) Dump(w io.Writer) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	return DumpImage(w, s.image)
}

// DumpImage prints every byte of img's buffer, 16 per row.
func DumpImage(w io.Writer, img *tlvinfo.Image) error {
	p := &printer{w: w}
	raw := img.Raw()
	p.printf("EEPROM dump: (0x%x bytes)", len(raw))
	for i, b := range raw {
		if i%16 == 0 {
			p.printf("\n%02X: ", i)
		}
		p.printf("%02X ", b)
	}
	p.printf("\n")
	return p.err
}

// printer keeps the first write error so callers can check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
