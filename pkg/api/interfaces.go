package api

import (
	"github.com/ssargent/tlvinfo/pkg/eeprom"
	"github.com/ssargent/tlvinfo/pkg/tlvinfo"
)

// Session is the EEPROM editing state the server drives. *eeprom.Session
// implements it.
type Session interface {
	Device() int
	Loaded() bool
	Modified() bool
	Devices() []eeprom.DeviceInfo
	SelectDevice(dev int) error
	Read() error
	Image() (*tlvinfo.Image, error)
	Write() error
	Erase() error
	Set(code tlvinfo.Code, value string) error
	Unset(code tlvinfo.Code) (bool, error)
}

var _ Session = (*eeprom.Session)(nil)
