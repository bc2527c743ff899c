// Package board derives the device tree file name for CN913x boards from
// the Part Number stored in their TlvInfo EEPROMs.
package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ssargent/tlvinfo/pkg/eeprom"
	"github.com/ssargent/tlvinfo/pkg/storage"
	"github.com/ssargent/tlvinfo/pkg/tlvinfo"
)

const (
	DefaultCPU     = "9130"
	DefaultCarrier = "cf-pro"
)

var ErrUnknownSKU = errors.New("board: unrecognised SKU")

// Identity is what one SKU says about the board. Empty fields are unknown.
type Identity struct {
	CPU     string `json:"cpu,omitempty"`
	Carrier string `json:"carrier,omitempty"`
}

// Merge returns id with the known fields of next laid over it.
func (id Identity) Merge(next Identity) Identity {
	if next.CPU != "" {
		id.CPU = next.CPU
	}
	if next.Carrier != "" {
		id.Carrier = next.Carrier
	}
	return id
}

// FDTFile returns the device tree path, filling unknown fields with the
// defaults.
func (id Identity) FDTFile() string {
	cpu, carrier := id.CPU, id.Carrier
	if cpu == "" {
		cpu = DefaultCPU
	}
	if carrier == "" {
		carrier = DefaultCarrier
	}
	return fmt.Sprintf("marvell/cn%s-%s.dtb", cpu, carrier)
}

// ParseSKU decodes a Part Number. The product family sits at index 2, after
// a two character vendor prefix.
func ParseSKU(sku string) (Identity, error) {
	if strings.HasPrefix(sku, "VT") {
		if field(sku, 2, 4) == "CFCB" {
			return Identity{CPU: field(sku, 6, 4), Carrier: "vt-air-300"}, nil
		}
		return Identity{}, fmt.Errorf("%w: %q", ErrUnknownSKU, sku)
	}

	switch {
	case field(sku, 2, 4) == "CFCB":
		return Identity{CPU: "9130", Carrier: "cf-base"}, nil
	case field(sku, 2, 4) == "CFCP":
		return Identity{CPU: "9130", Carrier: "cf-pro"}, nil
	case field(sku, 2, 4) == "CFSW":
		return Identity{CPU: "9131", Carrier: "cf-solidwan"}, nil
	case field(sku, 2, 4) == "S913":
		// A bare SoM says nothing about the carrier.
		return Identity{}, nil
	case field(sku, 2, 1) == "C":
		return Identity{CPU: field(sku, 3, 4), Carrier: "cex7"}, nil
	}
	return Identity{}, fmt.Errorf("%w: %q", ErrUnknownSKU, sku)
}

// FDTFile maps a single Part Number to its device tree path.
func FDTFile(sku string) string {
	id, _ := ParseSKU(sku)
	return id.FDTFile()
}

// Identify reads the Part Number from every device in turn and returns the
// combined identity. Later devices override earlier ones; unreadable
// devices are skipped.
func Identify(backend storage.Backend, log zerolog.Logger) Identity {
	var id Identity
	for dev := 0; dev < backend.Devices(); dev++ {
		img, err := eeprom.LoadImage(backend, dev)
		if err != nil {
			log.Info().Err(err).Int("device", dev).Msg("failed to read eeprom")
			continue
		}
		sku, found, err := img.ReadString(tlvinfo.CodePartNumber)
		if err != nil || !found {
			log.Warn().Err(err).Int("device", dev).Msg("could not find sku in eeprom")
			continue
		}
		log.Debug().Int("device", dev).Str("sku", sku).Msg("read sku")

		next, err := ParseSKU(sku)
		if err != nil {
			log.Error().Err(err).Int("device", dev).Msg("did not recognise sku")
			continue
		}
		id = id.Merge(next)
	}

	if id.CPU == "" {
		log.Error().Str("default", DefaultCPU).Msg("could not identify SoC")
	}
	if id.Carrier == "" {
		log.Error().Str("default", DefaultCarrier).Msg("could not identify carrier")
	}
	return id
}

// field returns up to n bytes of s starting at off.
func field(s string, off, n int) string {
	if off >= len(s) {
		return ""
	}
	end := off + n
	if end > len(s) {
		end = len(s)
	}
	return s[off:end]
}
