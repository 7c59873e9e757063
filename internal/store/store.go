// Package store implements the byte-addressable persistent-storage
// capability of spec.md §4.7 (EEPROM on hardware): the fixed-offset layout
// for node identity, the child-route table, the firmware descriptor and
// the user's local state, plus the write-skip-if-unchanged wear-leveling
// policy every backend shares.
package store

import "errors"

// Layout offsets and lengths, per spec §4.7.
const (
	OffsetNodeID = 0
	LenNodeID    = 1

	OffsetParent = OffsetNodeID + LenNodeID
	LenParent    = 1

	OffsetDistance = OffsetParent + LenParent
	LenDistance    = 1

	OffsetFirmwareConfig = OffsetDistance + LenDistance
	LenFirmwareConfig    = 8

	OffsetRoutes = OffsetFirmwareConfig + LenFirmwareConfig
	LenRoutes    = 256

	OffsetLocalConfig = OffsetRoutes + LenRoutes
	LenLocalConfig    = 256

	TotalSize = OffsetLocalConfig + LenLocalConfig
)

var ErrOutOfRange = errors.New("store: offset out of range")

// Store is the narrow capability every other package depends on instead of
// a concrete backend, per spec §9's "expose PersistentStore as a narrow
// capability... admits a RAM-backed fake" guidance.
type Store interface {
	ReadByte(offset int) (byte, error)
	WriteByte(offset int, value byte) error
	ReadBlock(offset int, dst []byte) error
	WriteBlock(offset int, src []byte) error
}

// ReadNodeID, WriteNodeID, etc. are layout-aware convenience wrappers
// shared by every backend via the free functions below, so a backend only
// has to implement the four Store methods.

func ReadNodeID(s Store) (byte, error) { return s.ReadByte(OffsetNodeID) }
func WriteNodeID(s Store, id byte) error { return s.WriteByte(OffsetNodeID, id) }

func ReadParent(s Store) (byte, error)    { return s.ReadByte(OffsetParent) }
func WriteParent(s Store, id byte) error  { return s.WriteByte(OffsetParent, id) }

func ReadDistance(s Store) (byte, error)     { return s.ReadByte(OffsetDistance) }
func WriteDistance(s Store, d byte) error    { return s.WriteByte(OffsetDistance, d) }

// FirmwareConfig is the persisted descriptor of the currently installed
// firmware image, {type, version, blocks, crc} per spec §3, packed
// little-endian into the 8-byte FIRMWARE_CONFIG slot.
type FirmwareConfig struct {
	Type    byte
	Version byte
	Blocks  uint16
	Crc     uint16
}

func ReadFirmwareConfig(s Store) (FirmwareConfig, error) {
	buf := make([]byte, LenFirmwareConfig)
	if err := s.ReadBlock(OffsetFirmwareConfig, buf); err != nil {
		return FirmwareConfig{}, err
	}
	return FirmwareConfig{
		Type:    buf[0],
		Version: buf[1],
		Blocks:  uint16(buf[2]) | uint16(buf[3])<<8,
		Crc:     uint16(buf[4]) | uint16(buf[5])<<8,
	}, nil
}

func WriteFirmwareConfig(s Store, fc FirmwareConfig) error {
	buf := make([]byte, LenFirmwareConfig)
	buf[0], buf[1] = fc.Type, fc.Version
	buf[2], buf[3] = byte(fc.Blocks), byte(fc.Blocks>>8)
	buf[4], buf[5] = byte(fc.Crc), byte(fc.Crc>>8)
	return s.WriteBlock(OffsetFirmwareConfig, buf)
}

// ReadRoutes/WriteRoutes move the whole 256-byte ChildRouteTable slot;
// internal/router owns the in-RAM copy and the decision of when to mirror
// it here (write-through on every update, per spec §3).
func ReadRoutes(s Store, dst *[LenRoutes]byte) error {
	return s.ReadBlock(OffsetRoutes, dst[:])
}

func WriteRoutes(s Store, src *[LenRoutes]byte) error {
	return s.WriteBlock(OffsetRoutes, src[:])
}

// ReadLocalState/WriteLocalState implement the user-facing
// loadState(pos)/saveState(pos, value) API (spec §6), one byte per key in
// 0..255.
func ReadLocalState(s Store, pos byte) (byte, error) {
	return s.ReadByte(OffsetLocalConfig + int(pos))
}

func WriteLocalState(s Store, pos byte, value byte) error {
	return s.WriteByte(OffsetLocalConfig+int(pos), value)
}
