package frame

import "encoding/binary"

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// NodePayload presents a node's firmware version, role and parent to the
// gateway during the lifecycle PRESENT step.
type NodePayload struct {
	MajorVersion byte
	MinorVersion byte
	IsRepeater   bool
	Parent       byte
}

func (p *NodePayload) MessageType() MessageType { return MsgNode }

func (p *NodePayload) Marshal() []byte {
	return []byte{p.MajorVersion, p.MinorVersion, boolByte(p.IsRepeater), p.Parent}
}

func (p *NodePayload) Unmarshal(data []byte) error {
	if len(data) != 4 {
		return ErrMalformed
	}
	p.MajorVersion, p.MinorVersion, p.Parent = data[0], data[1], data[3]
	p.IsRepeater = data[2] != 0
	return nil
}

// PresentationPayload announces one attached transducer. SensorType mirrors
// the MySensors sensor-type catalog in catalog.go.
type PresentationPayload struct {
	DeviceID   byte
	SensorType byte
	Binary     bool
	Calibrated bool
}

func (p *PresentationPayload) MessageType() MessageType { return MsgPresentation }

func (p *PresentationPayload) Marshal() []byte {
	return []byte{p.DeviceID, p.SensorType, boolByte(p.Binary), boolByte(p.Calibrated)}
}

func (p *PresentationPayload) Unmarshal(data []byte) error {
	if len(data) != 4 {
		return ErrMalformed
	}
	p.DeviceID, p.SensorType = data[0], data[1]
	p.Binary, p.Calibrated = data[2] != 0, data[3] != 0
	return nil
}

type VersionPayload struct {
	Major byte
	Minor byte
}

func (p *VersionPayload) MessageType() MessageType { return MsgVersion }
func (p *VersionPayload) Marshal() []byte          { return []byte{p.Major, p.Minor} }
func (p *VersionPayload) Unmarshal(data []byte) error {
	if len(data) != 2 {
		return ErrMalformed
	}
	p.Major, p.Minor = data[0], data[1]
	return nil
}

type NamePayload struct {
	Name string
}

func (p *NamePayload) MessageType() MessageType { return MsgName }
func (p *NamePayload) Marshal() []byte          { return []byte(p.Name) }
func (p *NamePayload) Unmarshal(data []byte) error {
	if len(data) > MaxPayloadSize {
		return ErrMalformed
	}
	p.Name = string(data)
	return nil
}

// IdRequestPayload carries a weak-entropy correlation id so the node can
// match the eventual IdResponse to this particular request. Lifecycle
// fills it with the node clock's milliseconds since start, truncated to 16
// bits; it is not a microsecond reading.
type IdRequestPayload struct {
	RequestIdentifier uint16
}

func (p *IdRequestPayload) MessageType() MessageType { return MsgIdRequest }
func (p *IdRequestPayload) Marshal() []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, p.RequestIdentifier)
	return buf
}
func (p *IdRequestPayload) Unmarshal(data []byte) error {
	if len(data) != 2 {
		return ErrMalformed
	}
	p.RequestIdentifier = binary.LittleEndian.Uint16(data)
	return nil
}

// IdResponsePayload's NewID == AUTO signals gateway id-space exhaustion
// (spec §7 IdExhausted — terminal for the requesting node).
type IdResponsePayload struct {
	RequestIdentifier uint16
	NewID             byte
}

func (p *IdResponsePayload) MessageType() MessageType { return MsgIdResponse }
func (p *IdResponsePayload) Marshal() []byte {
	buf := make([]byte, 3)
	binary.LittleEndian.PutUint16(buf, p.RequestIdentifier)
	buf[2] = p.NewID
	return buf
}
func (p *IdResponsePayload) Unmarshal(data []byte) error {
	if len(data) != 3 {
		return ErrMalformed
	}
	p.RequestIdentifier = binary.LittleEndian.Uint16(data)
	p.NewID = data[2]
	return nil
}

type FindParentRequestPayload struct{}

func (p *FindParentRequestPayload) MessageType() MessageType  { return MsgFindParentRequest }
func (p *FindParentRequestPayload) Marshal() []byte           { return nil }
func (p *FindParentRequestPayload) Unmarshal(data []byte) error {
	if len(data) != 0 {
		return ErrMalformed
	}
	return nil
}

type FindParentResponsePayload struct {
	Distance byte
}

func (p *FindParentResponsePayload) MessageType() MessageType { return MsgFindParentResponse }
func (p *FindParentResponsePayload) Marshal() []byte          { return []byte{p.Distance} }
func (p *FindParentResponsePayload) Unmarshal(data []byte) error {
	if len(data) != 1 {
		return ErrMalformed
	}
	p.Distance = data[0]
	return nil
}

// LogMessagePayload is rendered on the gateway debug channel as
// "0;0;<Command>;0;<type>;<Text>" (spec §6).
type LogMessagePayload struct {
	Command byte
	Text    string
}

func (p *LogMessagePayload) MessageType() MessageType { return MsgLogMessage }
func (p *LogMessagePayload) Marshal() []byte {
	return append([]byte{p.Command}, []byte(p.Text)...)
}
func (p *LogMessagePayload) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return ErrMalformed
	}
	p.Command = data[0]
	p.Text = string(data[1:])
	return nil
}

type BatteryLevelPayload struct {
	Level byte
}

func (p *BatteryLevelPayload) MessageType() MessageType { return MsgBatteryLevel }
func (p *BatteryLevelPayload) Marshal() []byte          { return []byte{p.Level} }
func (p *BatteryLevelPayload) Unmarshal(data []byte) error {
	if len(data) != 1 {
		return ErrMalformed
	}
	p.Level = data[0]
	return nil
}

type TimeRequestPayload struct{}

func (p *TimeRequestPayload) MessageType() MessageType { return MsgTimeRequest }
func (p *TimeRequestPayload) Marshal() []byte          { return nil }
func (p *TimeRequestPayload) Unmarshal(data []byte) error {
	if len(data) != 0 {
		return ErrMalformed
	}
	return nil
}

type TimeResponsePayload struct {
	Time uint32
}

func (p *TimeResponsePayload) MessageType() MessageType { return MsgTimeResponse }
func (p *TimeResponsePayload) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, p.Time)
	return buf
}
func (p *TimeResponsePayload) Unmarshal(data []byte) error {
	if len(data) != 4 {
		return ErrMalformed
	}
	p.Time = binary.LittleEndian.Uint32(data)
	return nil
}

type ResetPayload struct{}

func (p *ResetPayload) MessageType() MessageType { return MsgReset }
func (p *ResetPayload) Marshal() []byte          { return nil }
func (p *ResetPayload) Unmarshal(data []byte) error {
	if len(data) != 0 {
		return ErrMalformed
	}
	return nil
}

// InclusionModePayload is reserved: mentioned by spec but not exercised by
// the node runtime (spec §9 Open Questions). Kept for wire compatibility
// with a controller that sends it; the dispatcher does not act on it.
type InclusionModePayload struct {
	Enabled bool
}

func (p *InclusionModePayload) MessageType() MessageType { return MsgInclusionMode }
func (p *InclusionModePayload) Marshal() []byte           { return []byte{boolByte(p.Enabled)} }
func (p *InclusionModePayload) Unmarshal(data []byte) error {
	if len(data) != 1 {
		return ErrMalformed
	}
	p.Enabled = data[0] != 0
	return nil
}

type GatewayReadyPayload struct{}

func (p *GatewayReadyPayload) MessageType() MessageType { return MsgGatewayReady }
func (p *GatewayReadyPayload) Marshal() []byte          { return nil }
func (p *GatewayReadyPayload) Unmarshal(data []byte) error {
	if len(data) != 0 {
		return ErrMalformed
	}
	return nil
}
