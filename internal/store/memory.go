package store

import "gopkg.in/yaml.v3"

// Memory is a RAM-backed Store for tests and the host node simulator. It
// applies the same write-skip-if-unchanged policy as the file-backed
// backend so tests can assert on it without touching disk.
type Memory struct {
	data  [TotalSize]byte
	Skips int // count of writes elided because the value was unchanged
}

// NewMemory returns a Store pre-filled with 0xFF, the same erased-state
// default real EEPROM powers on with — the sentinels every layer relies on
// (AUTO, DISTANCE_INVALID, "no route") are all 0xFF specifically so a
// blank store reads as "unconfigured" rather than "configured to zero".
func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.data {
		m.data[i] = 0xFF
	}
	return m
}

func (m *Memory) ReadByte(offset int) (byte, error) {
	if offset < 0 || offset >= TotalSize {
		return 0, ErrOutOfRange
	}
	return m.data[offset], nil
}

func (m *Memory) WriteByte(offset int, value byte) error {
	if offset < 0 || offset >= TotalSize {
		return ErrOutOfRange
	}
	if m.data[offset] == value {
		m.Skips++
		return nil
	}
	m.data[offset] = value
	return nil
}

func (m *Memory) ReadBlock(offset int, dst []byte) error {
	if offset < 0 || offset+len(dst) > TotalSize {
		return ErrOutOfRange
	}
	copy(dst, m.data[offset:offset+len(dst)])
	return nil
}

func (m *Memory) WriteBlock(offset int, src []byte) error {
	if offset < 0 || offset+len(src) > TotalSize {
		return ErrOutOfRange
	}
	for i, b := range src {
		if m.data[offset+i] == b {
			m.Skips++
			continue
		}
		m.data[offset+i] = b
	}
	return nil
}

// snapshot is the YAML-friendly external representation used by
// Export/Import — a node-simulator `--seed` fixture format, not part of
// the wire protocol.
type snapshot struct {
	NodeID         byte           `yaml:"node_id"`
	Parent         byte           `yaml:"parent"`
	Distance       byte           `yaml:"distance"`
	FirmwareConfig FirmwareConfig `yaml:"firmware_config"`
	Routes         []byte         `yaml:"routes"`
	LocalConfig    []byte         `yaml:"local_config"`
}

// Export renders the store's contents as a YAML fixture.
func (m *Memory) Export() ([]byte, error) {
	fc, err := ReadFirmwareConfig(m)
	if err != nil {
		return nil, err
	}
	s := snapshot{
		NodeID:         m.data[OffsetNodeID],
		Parent:         m.data[OffsetParent],
		Distance:       m.data[OffsetDistance],
		FirmwareConfig: fc,
		Routes:         append([]byte(nil), m.data[OffsetRoutes:OffsetRoutes+LenRoutes]...),
		LocalConfig:    append([]byte(nil), m.data[OffsetLocalConfig:OffsetLocalConfig+LenLocalConfig]...),
	}
	return yaml.Marshal(s)
}

// Import seeds the store from a YAML fixture produced by Export, bypassing
// the write-skip accounting (it is a cold load, not a runtime mutation).
func (m *Memory) Import(raw []byte) error {
	var s snapshot
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return err
	}
	m.data[OffsetNodeID] = s.NodeID
	m.data[OffsetParent] = s.Parent
	m.data[OffsetDistance] = s.Distance
	fcBuf := make([]byte, LenFirmwareConfig)
	fc := s.FirmwareConfig
	fcBuf[0], fcBuf[1] = fc.Type, fc.Version
	fcBuf[2], fcBuf[3] = byte(fc.Blocks), byte(fc.Blocks>>8)
	fcBuf[4], fcBuf[5] = byte(fc.Crc), byte(fc.Crc>>8)
	copy(m.data[OffsetFirmwareConfig:OffsetFirmwareConfig+LenFirmwareConfig], fcBuf)
	copy(m.data[OffsetRoutes:OffsetRoutes+LenRoutes], s.Routes)
	copy(m.data[OffsetLocalConfig:OffsetLocalConfig+LenLocalConfig], s.LocalConfig)
	return nil
}
