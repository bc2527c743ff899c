// Package storage provides the byte-range backends that hold EEPROM images.
//
// A backend stands in for a numbered EEPROM device: Read fills a buffer from
// an offset within the device and Write stores a buffer from offset zero.
// Devices that were never written read back as erased (0xFF) bytes.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/tlvinfo/pkg/config"
	"github.com/ssargent/tlvinfo/pkg/tlvinfo"
)

var (
	ErrNoDevice         = errors.New("storage: no such device")
	ErrOutOfRange       = errors.New("storage: range outside device")
	ErrDeviceBusy       = errors.New("storage: device is locked by another process")
	ErrSnapshotNotFound = errors.New("storage: snapshot not found")
	ErrUnknownKind      = errors.New("storage: unknown backend kind")
)

// DeviceSize is the addressable size of every device.
const DeviceSize = tlvinfo.MaxSize

const erased = 0xFF

// Backend reads and writes byte ranges of numbered devices.
type Backend interface {
	// Read fills p from offset within device dev.
	Read(dev, offset int, p []byte) error
	// Write stores p at the start of device dev.
	Write(dev int, p []byte) error
	// Exists reports whether dev is a usable device index.
	Exists(dev int) bool
	// Devices returns the number of device slots.
	Devices() int
	Close() error
}

// Snapshot describes one stored copy of a device image.
type Snapshot struct {
	ID     ksuid.KSUID
	Device int
	Size   int
}

// Snapshotter is implemented by backends that keep a history of writes.
type Snapshotter interface {
	Snapshots(dev int) ([]Snapshot, error)
	Restore(dev int, id ksuid.KSUID) error
}

// Open creates the backend selected by cfg.
func Open(cfg config.Storage) (Backend, error) {
	switch cfg.Kind {
	case config.StorageFile:
		return NewFileBackend(cfg.DataDir, cfg.Devices)
	case config.StoragePebble:
		return NewPebbleBackend(filepath.Join(cfg.DataDir, "pebble"), cfg.Devices)
	case config.StorageBolt:
		return NewBoltBackend(filepath.Join(cfg.DataDir, "eeprom.db"), cfg.Devices)
	case config.StorageMemory:
		return NewMemoryBackend(cfg.Devices), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

func checkDevice(devices, dev int) error {
	if dev < 0 || dev >= devices {
		return fmt.Errorf("%w: %d (have %d)", ErrNoDevice, dev, devices)
	}
	return nil
}

func checkRange(offset, n int) error {
	if offset < 0 || n < 0 || offset+n > DeviceSize {
		return fmt.Errorf("%w: offset %d length %d", ErrOutOfRange, offset, n)
	}
	return nil
}

// readWindow fills p from stored starting at offset; bytes past the end of
// stored read as erased.
func readWindow(stored []byte, offset int, p []byte) {
	n := 0
	if offset < len(stored) {
		n = copy(p, stored[offset:])
	}
	for i := n; i < len(p); i++ {
		p[i] = erased
	}
}

// overlay returns stored with its first len(p) bytes replaced by p.
func overlay(stored, p []byte) []byte {
	size := len(stored)
	if len(p) > size {
		size = len(p)
	}
	out := make([]byte, size)
	copy(out, stored)
	copy(out, p)
	return out
}
