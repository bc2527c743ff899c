package eeprom

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ssargent/tlvinfo/pkg/storage"
	"github.com/ssargent/tlvinfo/pkg/tlvinfo"
)

var (
	ErrNotLoaded     = errors.New("eeprom: data not read from device")
	ErrInvalidDevice = errors.New("eeprom: invalid device number")
	ErrInvalidValue  = errors.New("eeprom: invalid value")
	ErrUnsaved       = errors.New("eeprom: unwritten changes in memory")
)

const notLoaded = -1

// Session owns one in-memory image and the device it belongs to.
type Session struct {
	backend storage.Backend
	image   *tlvinfo.Image
	current int
	loaded  int
	dirty   bool
	log     zerolog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithDevice selects the initial device. It is not checked until used.
func WithDevice(dev int) Option {
	return func(s *Session) {
		s.current = dev
	}
}

// NewSession creates a session on device 0 with nothing loaded.
func NewSession(backend storage.Backend, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		image:   tlvinfo.NewImage(),
		loaded:  notLoaded,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Device returns the selected device index.
func (s *Session) Device() int {
	return s.current
}

// Loaded reports whether the selected device has been read into memory.
func (s *Session) Loaded() bool {
	return s.loaded == s.current
}

// Modified reports whether the in-memory image has edits that have not
// been written to the device it was read from.
func (s *Session) Modified() bool {
	return s.loaded != notLoaded && s.dirty
}

// DeviceInfo describes one device slot.
type DeviceInfo struct {
	Index   int  `json:"index"`
	Current bool `json:"current"`
}

// Devices lists the usable device slots.
func (s *Session) Devices() []DeviceInfo {
	var out []DeviceInfo
	for dev := 0; dev < s.backend.Devices(); dev++ {
		if s.backend.Exists(dev) {
			out = append(out, DeviceInfo{Index: dev, Current: dev == s.current})
		}
	}
	return out
}

// SelectDevice makes dev the current device. The in-memory image stays
// bound to the device it was read from, so a new device must be read
// before it can be edited.
func (s *Session) SelectDevice(dev int) error {
	if !s.backend.Exists(dev) {
		return fmt.Errorf("%w: %d", ErrInvalidDevice, dev)
	}
	s.current = dev
	s.log.Debug().Int("device", dev).Msg("selected device")
	return nil
}

// Read loads the whole current device into memory without validating it.
func (s *Session) Read() error {
	s.loaded = notLoaded
	if err := s.backend.Read(s.current, 0, s.image.Raw()); err != nil {
		return fmt.Errorf("failed to read device %d: %w", s.current, err)
	}
	s.loaded = s.current
	s.dirty = false
	s.log.Debug().
		Int("device", s.current).
		Bool("valid_header", s.image.Valid()).
		Msg("eeprom data loaded from device")
	return nil
}

// Image returns the loaded image of the current device. The image is
// shared with the session, not copied.
func (s *Session) Image() (*tlvinfo.Image, error) {
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	return s.image, nil
}

// Write seals the image with a fresh checksum and stores the header and
// records on the current device.
func (s *Session) Write() error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if err := s.image.UpdateCRC(); err != nil {
		return fmt.Errorf("failed to update checksum: %w", err)
	}
	data := s.image.Bytes()
	if err := s.backend.Write(s.current, data); err != nil {
		return fmt.Errorf("failed to write device %d: %w", s.current, err)
	}
	s.dirty = false
	s.log.Info().Int("device", s.current).Int("bytes", len(data)).Msg("eeprom data written")
	return nil
}

// Erase resets the in-memory image to an empty, checksummed one. The device
// is untouched until Write.
func (s *Session) Erase() error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	s.image.Erase()
	if err := s.image.UpdateCRC(); err != nil {
		return err
	}
	s.dirty = true
	s.log.Debug().Int("device", s.current).Msg("eeprom data in memory reset")
	return nil
}

// Set replaces the record for code with the parsed form of value and
// refreshes the checksum. The image is left unchanged when parsing or
// insertion fails.
func (s *Session) Set(code tlvinfo.Code, value string) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	raw, err := ParseValue(code, value)
	if err != nil {
		return err
	}

	next := s.image.Clone()
	if _, err := next.Delete(code); err != nil {
		return err
	}
	if err := next.Add(code, raw); err != nil {
		return err
	}
	if err := next.UpdateCRC(); err != nil {
		return err
	}
	s.image = next
	s.dirty = true
	s.log.Debug().Stringer("code", code).Int("len", len(raw)).Msg("record set")
	return nil
}

// Unset removes the record for code and reports whether one existed. The
// checksum is refreshed after a removal.
func (s *Session) Unset(code tlvinfo.Code) (bool, error) {
	if err := s.requireLoaded(); err != nil {
		return false, err
	}
	next := s.image.Clone()
	deleted, err := next.Delete(code)
	if err != nil {
		return false, err
	}
	if deleted {
		if err := next.UpdateCRC(); err != nil {
			return false, err
		}
		s.image = next
		s.dirty = true
	}
	s.log.Debug().Stringer("code", code).Bool("deleted", deleted).Msg("record unset")
	return deleted, nil
}

func (s *Session) requireLoaded() error {
	if !s.Loaded() {
		return fmt.Errorf("%w: device %d", ErrNotLoaded, s.current)
	}
	return nil
}

// LoadImage reads a validated image from dev, fetching only the bytes the
// header declares.
func LoadImage(backend storage.Backend, dev int) (*tlvinfo.Image, error) {
	img := tlvinfo.NewImage()
	raw := img.Raw()
	if err := backend.Read(dev, 0, raw[:tlvinfo.HeaderSize]); err != nil {
		return nil, fmt.Errorf("failed to read header from device %d: %w", dev, err)
	}
	if !img.Valid() {
		return nil, fmt.Errorf("device %d: %w", dev, tlvinfo.ErrInvalidHeader)
	}
	total := img.TotalLen()
	if err := backend.Read(dev, tlvinfo.HeaderSize, raw[tlvinfo.HeaderSize:tlvinfo.HeaderSize+total]); err != nil {
		return nil, fmt.Errorf("failed to read records from device %d: %w", dev, err)
	}
	return img, nil
}
