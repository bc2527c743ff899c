package eeprom

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrUnknownCommand = errors.New("eeprom: unknown command")

// Usage describes the commands Exec accepts.
const Usage = `Commands:
  (empty)|show         display the current contents, reading the device if needed
  read                 load EEPROM data from the device to memory
  write                write the EEPROM data in memory to the device
  erase                reset the EEPROM data in memory
  list                 list the understood TLV codes
  dump                 hex dump the EEPROM data in memory
  dev [dev]            list devices or set the current device
  set <code> [value]   set a TLV field, or delete it when no value is given
`

// SplitCommand breaks an input line into at most three arguments. The
// third keeps its inner spaces so string values survive intact.
func SplitCommand(line string) []string {
	var args []string
	rest := strings.TrimSpace(line)
	for len(args) < 2 && rest != "" {
		i := strings.IndexAny(rest, " \t")
		if i < 0 {
			return append(args, rest)
		}
		args = append(args, rest[:i])
		rest = strings.TrimSpace(rest[i:])
	}
	if rest != "" {
		args = append(args, rest)
	}
	return args
}

// Exec runs one interactive command against the session, writing
// operator-facing output to w.
func (s *Session) Exec(w io.Writer, args []string) error {
	p := &printer{w: w}
	if len(args) == 0 || args[0] == "show" {
		if !s.Loaded() {
			if err := s.Read(); err != nil {
				return err
			}
		}
		return s.Show(w)
	}

	switch args[0] {
	case "read":
		if err := s.Read(); err != nil {
			return err
		}
		p.printf("EEPROM data loaded from device to memory.\n")
		return p.err
	case "list":
		return WriteCodeList(w)
	case "dev":
		if len(args) == 1 {
			return s.WriteDevices(w)
		}
		dev, err := strconv.ParseUint(args[1], 0, 31)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDevice, args[1])
		}
		return s.SelectDevice(int(dev))
	}

	if !s.Loaded() {
		p.printf("Please read the EEPROM data first, using the 'read' command.\n")
		if p.err != nil {
			return p.err
		}
		return ErrNotLoaded
	}

	switch args[0] {
	case "write":
		if err := s.Write(); err != nil {
			return err
		}
		p.printf("EEPROM data written to device %d.\n", s.current)
	case "erase":
		if err := s.Erase(); err != nil {
			return err
		}
		p.printf("EEPROM data in memory reset.\n")
	case "dump":
		return s.Dump(w)
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("%w: set needs a code", ErrUnknownCommand)
		}
		code, err := ParseCode(args[1])
		if err != nil {
			return err
		}
		if len(args) == 3 {
			return s.Set(code, args[2])
		}
		_, err = s.Unset(code)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}
	return p.err
}
