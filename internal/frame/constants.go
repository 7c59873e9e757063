// Package frame implements the on-wire envelope and the typed payload
// union exchanged between mesh nodes: a 5-byte header followed by a
// message-type-discriminated payload, packed with no padding, never
// exceeding 32 bytes end to end.
package frame

// Node addressing.
const (
	Gateway   = byte(0)
	Broadcast = byte(255)
	// AUTO is the sentinel for "unassigned" node id or parent, persisted
	// as 0xFF in NodeConfig.
	AUTO = byte(255)
)

// Header / frame sizing, per spec: 5-byte header is the canonical layout
// (the 7-byte draft with a separate command byte is abandoned).
const (
	HeaderSize     = 5
	MaxFrameSize   = 32
	MaxPayloadSize = MaxFrameSize - HeaderSize // 27

	DistanceInvalid = byte(0xFF)

	FirmwareBlockSize = 16

	// MaxTextBufferSize is the minimum buffer size GetString requires —
	// large enough to hex-render a full-width custom-bytes payload (two
	// hex chars per byte) plus a null terminator.
	MaxTextBufferSize = 2*MaxPayloadSize + 1
)

// Header flag bits.
const (
	FlagAckRequested = byte(1 << 0)
	FlagIsAck        = byte(1 << 1)
	FlagIsRequest    = byte(1 << 2)
	// bits 3..7 reserved: sent as zero, ignored on receive.
	flagReservedMask = byte(0xF8)
)

// MessageType discriminates the payload union. Values are grouped by
// family (control / device / firmware) purely for readability; nothing
// depends on the grouping at the wire level.
type MessageType byte

const (
	// Control family.
	MsgNode MessageType = iota
	MsgPresentation
	MsgVersion
	MsgName
	MsgIdRequest
	MsgIdResponse
	MsgFindParentRequest
	MsgFindParentResponse
	MsgLogMessage
	MsgBatteryLevel
	MsgTimeRequest
	MsgTimeResponse
	MsgReset
	MsgInclusionMode
	MsgGatewayReady

	// Device family — all share the deviceId + dynamic-value wire shape
	// (see DevicePayload); the distinct MessageType values select how a
	// receiver interprets a single common layout.
	MsgDeviceRGB
	MsgDeviceRGBW
	MsgDeviceScene
	MsgDeviceTripped
	MsgDeviceArmed
	MsgDeviceStatus
	MsgDeviceLocked
	MsgDevicePower
	MsgDevicePercentage
	MsgDeviceLevel
	MsgDeviceAccumulated
	MsgDeviceRate
	MsgDeviceMode
	MsgDeviceAngle
	MsgDeviceStop
	MsgDeviceVar
	MsgDeviceConfig
	MsgDeviceIrSend
	MsgDeviceIrReceived

	// Firmware family.
	MsgFirmwareConfigRequest
	MsgFirmwareConfigResponse
	MsgFirmwareRequest
	MsgFirmwareResponse

	messageTypeCount
)

// IsDevice reports whether mt is one of the device-family variants, all of
// which share DevicePayload's wire layout.
func (mt MessageType) IsDevice() bool {
	return mt >= MsgDeviceRGB && mt <= MsgDeviceIrReceived
}

// IsKnown reports whether mt is a variant this build understands. Unknown
// types are dropped by the decoder with no side effect, per spec.
func (mt MessageType) IsKnown() bool {
	return mt < messageTypeCount
}

// IsFirmware reports whether mt is one of the four firmware-update
// variants, all delegated to FirmwareUpdater by the dispatcher.
func (mt MessageType) IsFirmware() bool {
	return mt >= MsgFirmwareConfigRequest && mt <= MsgFirmwareResponse
}
