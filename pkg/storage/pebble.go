package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

// PebbleBackend keeps device images in a pebble database. Every write also
// stores a snapshot of the written bytes under a ksuid, so earlier images
// can be listed and restored.
type PebbleBackend struct {
	db      *pebble.DB
	devices int
}

// NewPebbleBackend opens (or creates) the database at path.
func NewPebbleBackend(path string, devices int) (*PebbleBackend, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble store: %w", err)
	}
	return &PebbleBackend{db: db, devices: devices}, nil
}

func imageKey(dev int) []byte {
	return []byte(fmt.Sprintf("eeprom/%d", dev))
}

func snapshotPrefix(dev int) []byte {
	return []byte(fmt.Sprintf("snapshot/%d/", dev))
}

func snapshotKey(dev int, id ksuid.KSUID) []byte {
	return append(snapshotPrefix(dev), id.String()...)
}

// get returns a copy of the value at key, or nil when absent.
func (s *PebbleBackend) get(key []byte) ([]byte, error) {
	data, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *PebbleBackend) Read(dev, offset int, p []byte) error {
	if err := checkDevice(s.devices, dev); err != nil {
		return err
	}
	if err := checkRange(offset, len(p)); err != nil {
		return err
	}
	stored, err := s.get(imageKey(dev))
	if err != nil {
		return fmt.Errorf("failed to read device %d: %w", dev, err)
	}
	readWindow(stored, offset, p)
	return nil
}

func (s *PebbleBackend) Write(dev int, p []byte) error {
	if err := checkDevice(s.devices, dev); err != nil {
		return err
	}
	if err := checkRange(0, len(p)); err != nil {
		return err
	}
	stored, err := s.get(imageKey(dev))
	if err != nil {
		return fmt.Errorf("failed to read device %d: %w", dev, err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(imageKey(dev), overlay(stored, p), nil); err != nil {
		return err
	}
	if err := batch.Set(snapshotKey(dev, ksuid.New()), p, nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to write device %d: %w", dev, err)
	}
	return nil
}

// Snapshots lists the stored writes of dev in ksuid order: by second of
// creation, then by the random payload.
func (s *PebbleBackend) Snapshots(dev int) ([]Snapshot, error) {
	if err := checkDevice(s.devices, dev); err != nil {
		return nil, err
	}
	prefix := snapshotPrefix(dev)
	upper := append([]byte(nil), prefix...)
	upper[len(upper)-1]++ // '/' + 1

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Snapshot
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.Parse(string(bytes.TrimPrefix(iter.Key(), prefix)))
		if err != nil {
			return nil, fmt.Errorf("bad snapshot key %q: %w", iter.Key(), err)
		}
		out = append(out, Snapshot{ID: id, Device: dev, Size: len(iter.Value())})
	}
	return out, iter.Error()
}

// Restore writes a stored snapshot back as the live image of dev.
func (s *PebbleBackend) Restore(dev int, id ksuid.KSUID) error {
	if err := checkDevice(s.devices, dev); err != nil {
		return err
	}
	data, err := s.get(snapshotKey(dev, id))
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return s.Write(dev, data)
}

func (s *PebbleBackend) Exists(dev int) bool {
	return checkDevice(s.devices, dev) == nil
}

func (s *PebbleBackend) Devices() int {
	return s.devices
}

func (s *PebbleBackend) Close() error {
	return s.db.Close()
}
