package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileBackend stores each device as eeprom<N>.bin in a directory. Access is
// guarded by an advisory lock file per device so two processes never
// interleave a read-modify-write cycle on the same image.
type FileBackend struct {
	dir     string
	devices int
}

// NewFileBackend creates the data directory if needed.
func NewFileBackend(dir string, devices int) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileBackend{dir: dir, devices: devices}, nil
}

// ImagePath returns the file holding device dev.
func (b *FileBackend) ImagePath(dev int) string {
	return filepath.Join(b.dir, fmt.Sprintf("eeprom%d.bin", dev))
}

// LockPath returns the lock file guarding device dev.
func (b *FileBackend) LockPath(dev int) string {
	return filepath.Join(b.dir, fmt.Sprintf("eeprom%d.lock", dev))
}

func (b *FileBackend) Read(dev, offset int, p []byte) error {
	if err := checkDevice(b.devices, dev); err != nil {
		return err
	}
	if err := checkRange(offset, len(p)); err != nil {
		return err
	}

	lock := flock.New(b.LockPath(dev))
	held, err := lock.TryRLock()
	if err != nil {
		return fmt.Errorf("failed to lock device %d: %w", dev, err)
	}
	if !held {
		return fmt.Errorf("%w: %d", ErrDeviceBusy, dev)
	}
	defer lock.Unlock()

	f, err := os.Open(b.ImagePath(dev))
	if errors.Is(err, os.ErrNotExist) {
		readWindow(nil, 0, p)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open device %d: %w", dev, err)
	}
	defer f.Close()

	n, err := f.ReadAt(p, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read device %d: %w", dev, err)
	}
	readWindow(nil, 0, p[n:])
	return nil
}

func (b *FileBackend) Write(dev int, p []byte) error {
	if err := checkDevice(b.devices, dev); err != nil {
		return err
	}
	if err := checkRange(0, len(p)); err != nil {
		return err
	}

	lock := flock.New(b.LockPath(dev))
	held, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock device %d: %w", dev, err)
	}
	if !held {
		return fmt.Errorf("%w: %d", ErrDeviceBusy, dev)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(b.ImagePath(dev), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open device %d: %w", dev, err)
	}
	defer f.Close()

	if _, err := f.WriteAt(p, 0); err != nil {
		return fmt.Errorf("failed to write device %d: %w", dev, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync device %d: %w", dev, err)
	}
	return nil
}

func (b *FileBackend) Exists(dev int) bool {
	return checkDevice(b.devices, dev) == nil
}

func (b *FileBackend) Devices() int {
	return b.devices
}

func (b *FileBackend) Close() error {
	return nil
}
