// Package eeprom drives read-modify-write cycles of TlvInfo images held on
// numbered storage devices.
//
// A Session carries the state an operator front end needs between commands:
// the selected device and whether that device's image has been read into
// memory. Nothing here is process-global; two sessions over the same
// backend are independent, and callers serialize access to a single
// session themselves.
package eeprom
