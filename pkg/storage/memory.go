package storage

import "sync"

// MemoryBackend keeps device images in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	devices int
	images  map[int][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(devices int) *MemoryBackend {
	return &MemoryBackend{
		devices: devices,
		images:  make(map[int][]byte),
	}
}

func (m *MemoryBackend) Read(dev, offset int, p []byte) error {
	if err := checkDevice(m.devices, dev); err != nil {
		return err
	}
	if err := checkRange(offset, len(p)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	readWindow(m.images[dev], offset, p)
	return nil
}

func (m *MemoryBackend) Write(dev int, p []byte) error {
	if err := checkDevice(m.devices, dev); err != nil {
		return err
	}
	if err := checkRange(0, len(p)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[dev] = overlay(m.images[dev], p)
	return nil
}

func (m *MemoryBackend) Exists(dev int) bool {
	return checkDevice(m.devices, dev) == nil
}

func (m *MemoryBackend) Devices() int {
	return m.devices
}

func (m *MemoryBackend) Close() error {
	return nil
}
