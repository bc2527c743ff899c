package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("eeprom")

// BoltBackend keeps device images in a single bbolt file.
type BoltBackend struct {
	db      *bolt.DB
	devices int
}

// NewBoltBackend opens (or creates) the bbolt file at path.
func NewBoltBackend(path string, devices int) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltBackend{db: db, devices: devices}, nil
}

func boltKey(dev int) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, uint32(dev))
	return k
}

func (b *BoltBackend) Read(dev, offset int, p []byte) error {
	if err := checkDevice(b.devices, dev); err != nil {
		return err
	}
	if err := checkRange(offset, len(p)); err != nil {
		return err
	}
	return b.db.View(func(tx *bolt.Tx) error {
		// The value is only valid inside the transaction; readWindow copies.
		readWindow(tx.Bucket(boltBucket).Get(boltKey(dev)), offset, p)
		return nil
	})
}

func (b *BoltBackend) Write(dev int, p []byte) error {
	if err := checkDevice(b.devices, dev); err != nil {
		return err
	}
	if err := checkRange(0, len(p)); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		return bucket.Put(boltKey(dev), overlay(bucket.Get(boltKey(dev)), p))
	})
}

func (b *BoltBackend) Exists(dev int) bool {
	return checkDevice(b.devices, dev) == nil
}

func (b *BoltBackend) Devices() int {
	return b.devices
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}
