package frame

// DevicePayload is the single wire shape shared by every device-family
// message type (spec §3/§6): a child sensor id, a request flag, and a
// ptype-tagged dynamic value. The MessageType alone tells a receiver how
// to interpret the value (RGB components, a tripped/armed flag, a level
// reading, ...) — the bytes on the wire are identical in shape.
type DevicePayload struct {
	msgType  MessageType
	DeviceID byte
	Request  bool
	Value    DynamicValue
}

// NewDevicePayload builds a DevicePayload for the given device-family
// message type.
func NewDevicePayload(mt MessageType, deviceID byte, request bool, value DynamicValue) *DevicePayload {
	return &DevicePayload{msgType: mt, DeviceID: deviceID, Request: request, Value: value}
}

func (p *DevicePayload) MessageType() MessageType { return p.msgType }

func (p *DevicePayload) Marshal() []byte {
	valueBytes := p.Value.marshal(nil)
	lengthReq := byte(len(valueBytes)) & 0x7F
	if p.Request {
		lengthReq |= 0x80
	}
	out := make([]byte, 0, 2+len(valueBytes))
	out = append(out, p.DeviceID, lengthReq)
	return append(out, valueBytes...)
}

func (p *DevicePayload) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return ErrMalformed
	}
	p.DeviceID = data[0]
	lengthReq := data[1]
	p.Request = lengthReq&0x80 != 0
	valueLen := int(lengthReq & 0x7F)

	rest := data[2:]
	if valueLen > len(rest) {
		return ErrMalformed
	}
	val, consumed, err := unmarshalValue(rest, valueLen)
	if err != nil {
		return err
	}
	if consumed != valueLen {
		return ErrMalformed
	}
	p.Value = val
	return nil
}
