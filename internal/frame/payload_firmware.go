package frame

import "encoding/binary"

// FirmwareConfigRequestPayload is sent by a node after presentation to
// announce the firmware it currently has installed (spec §4.6 step 1).
type FirmwareConfigRequestPayload struct {
	InstalledType    byte
	InstalledVersion byte
	InstalledBlocks  uint16
	InstalledCrc     uint16
}

func (p *FirmwareConfigRequestPayload) MessageType() MessageType { return MsgFirmwareConfigRequest }
func (p *FirmwareConfigRequestPayload) Marshal() []byte {
	buf := make([]byte, 6)
	buf[0], buf[1] = p.InstalledType, p.InstalledVersion
	binary.LittleEndian.PutUint16(buf[2:4], p.InstalledBlocks)
	binary.LittleEndian.PutUint16(buf[4:6], p.InstalledCrc)
	return buf
}
func (p *FirmwareConfigRequestPayload) Unmarshal(data []byte) error {
	if len(data) != 6 {
		return ErrMalformed
	}
	p.InstalledType, p.InstalledVersion = data[0], data[1]
	p.InstalledBlocks = binary.LittleEndian.Uint16(data[2:4])
	p.InstalledCrc = binary.LittleEndian.Uint16(data[4:6])
	return nil
}

// FirmwareConfigResponsePayload is the gateway's answer: the *available*
// descriptor. A node compares it field-by-field against its installed
// descriptor to decide whether to enter UPDATING.
type FirmwareConfigResponsePayload struct {
	Type    byte
	Version byte
	Blocks  uint16
	Crc     uint16
}

func (p *FirmwareConfigResponsePayload) MessageType() MessageType { return MsgFirmwareConfigResponse }
func (p *FirmwareConfigResponsePayload) Marshal() []byte {
	buf := make([]byte, 6)
	buf[0], buf[1] = p.Type, p.Version
	binary.LittleEndian.PutUint16(buf[2:4], p.Blocks)
	binary.LittleEndian.PutUint16(buf[4:6], p.Crc)
	return buf
}
func (p *FirmwareConfigResponsePayload) Unmarshal(data []byte) error {
	if len(data) != 6 {
		return ErrMalformed
	}
	p.Type, p.Version = data[0], data[1]
	p.Blocks = binary.LittleEndian.Uint16(data[2:4])
	p.Crc = binary.LittleEndian.Uint16(data[4:6])
	return nil
}

// FirmwareRequestPayload asks for one 16-byte block of the advertised
// image. Block indices are strictly monotonic within one update session.
type FirmwareRequestPayload struct {
	Type    byte
	Version byte
	Block   uint16
}

func (p *FirmwareRequestPayload) MessageType() MessageType { return MsgFirmwareRequest }
func (p *FirmwareRequestPayload) Marshal() []byte {
	buf := make([]byte, 4)
	buf[0], buf[1] = p.Type, p.Version
	binary.LittleEndian.PutUint16(buf[2:4], p.Block)
	return buf
}
func (p *FirmwareRequestPayload) Unmarshal(data []byte) error {
	if len(data) != 4 {
		return ErrMalformed
	}
	p.Type, p.Version = data[0], data[1]
	p.Block = binary.LittleEndian.Uint16(data[2:4])
	return nil
}

// FirmwareResponsePayload carries one fixed-size block of the staged
// image.
type FirmwareResponsePayload struct {
	Type    byte
	Version byte
	Block   uint16
	Data    [FirmwareBlockSize]byte
}

func (p *FirmwareResponsePayload) MessageType() MessageType { return MsgFirmwareResponse }
func (p *FirmwareResponsePayload) Marshal() []byte {
	buf := make([]byte, 4+FirmwareBlockSize)
	buf[0], buf[1] = p.Type, p.Version
	binary.LittleEndian.PutUint16(buf[2:4], p.Block)
	copy(buf[4:], p.Data[:])
	return buf
}
func (p *FirmwareResponsePayload) Unmarshal(data []byte) error {
	if len(data) != 4+FirmwareBlockSize {
		return ErrMalformed
	}
	p.Type, p.Version = data[0], data[1]
	p.Block = binary.LittleEndian.Uint16(data[2:4])
	copy(p.Data[:], data[4:])
	return nil
}
