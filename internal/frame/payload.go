package frame

// Payload is implemented by every message-type-specific payload. Marshal
// must produce at most MaxPayloadSize bytes; Unmarshal receives exactly the
// payload slice of a decoded Frame (header already stripped) and must
// return ErrMalformed on any inconsistency, never panic.
type Payload interface {
	MessageType() MessageType
	Marshal() []byte
	Unmarshal(data []byte) error
}

// newPayload returns a zero-value Payload for mt, or nil if mt is not a
// known variant. Decode uses this registry to avoid a type switch growing
// unboundedly as variants are added — a new constructor entry here is the
// only place a new MessageType needs to be wired in, matching spec §9's
// call for exhaustive-match discipline.
func newPayload(mt MessageType) Payload {
	if ctor, ok := payloadRegistry[mt]; ok {
		return ctor()
	}
	return nil
}

var payloadRegistry = map[MessageType]func() Payload{
	MsgNode:                func() Payload { return &NodePayload{} },
	MsgPresentation:        func() Payload { return &PresentationPayload{} },
	MsgVersion:             func() Payload { return &VersionPayload{} },
	MsgName:                func() Payload { return &NamePayload{} },
	MsgIdRequest:           func() Payload { return &IdRequestPayload{} },
	MsgIdResponse:          func() Payload { return &IdResponsePayload{} },
	MsgFindParentRequest:   func() Payload { return &FindParentRequestPayload{} },
	MsgFindParentResponse:  func() Payload { return &FindParentResponsePayload{} },
	MsgLogMessage:          func() Payload { return &LogMessagePayload{} },
	MsgBatteryLevel:        func() Payload { return &BatteryLevelPayload{} },
	MsgTimeRequest:         func() Payload { return &TimeRequestPayload{} },
	MsgTimeResponse:        func() Payload { return &TimeResponsePayload{} },
	MsgReset:               func() Payload { return &ResetPayload{} },
	MsgInclusionMode:       func() Payload { return &InclusionModePayload{} },
	MsgGatewayReady:        func() Payload { return &GatewayReadyPayload{} },

	MsgDeviceRGB:         func() Payload { return &DevicePayload{msgType: MsgDeviceRGB} },
	MsgDeviceRGBW:        func() Payload { return &DevicePayload{msgType: MsgDeviceRGBW} },
	MsgDeviceScene:       func() Payload { return &DevicePayload{msgType: MsgDeviceScene} },
	MsgDeviceTripped:     func() Payload { return &DevicePayload{msgType: MsgDeviceTripped} },
	MsgDeviceArmed:       func() Payload { return &DevicePayload{msgType: MsgDeviceArmed} },
	MsgDeviceStatus:      func() Payload { return &DevicePayload{msgType: MsgDeviceStatus} },
	MsgDeviceLocked:      func() Payload { return &DevicePayload{msgType: MsgDeviceLocked} },
	MsgDevicePower:       func() Payload { return &DevicePayload{msgType: MsgDevicePower} },
	MsgDevicePercentage:  func() Payload { return &DevicePayload{msgType: MsgDevicePercentage} },
	MsgDeviceLevel:       func() Payload { return &DevicePayload{msgType: MsgDeviceLevel} },
	MsgDeviceAccumulated: func() Payload { return &DevicePayload{msgType: MsgDeviceAccumulated} },
	MsgDeviceRate:        func() Payload { return &DevicePayload{msgType: MsgDeviceRate} },
	MsgDeviceMode:        func() Payload { return &DevicePayload{msgType: MsgDeviceMode} },
	MsgDeviceAngle:       func() Payload { return &DevicePayload{msgType: MsgDeviceAngle} },
	MsgDeviceStop:        func() Payload { return &DevicePayload{msgType: MsgDeviceStop} },
	MsgDeviceVar:         func() Payload { return &DevicePayload{msgType: MsgDeviceVar} },
	MsgDeviceConfig:      func() Payload { return &DevicePayload{msgType: MsgDeviceConfig} },
	MsgDeviceIrSend:      func() Payload { return &DevicePayload{msgType: MsgDeviceIrSend} },
	MsgDeviceIrReceived:  func() Payload { return &DevicePayload{msgType: MsgDeviceIrReceived} },

	MsgFirmwareConfigRequest:  func() Payload { return &FirmwareConfigRequestPayload{} },
	MsgFirmwareConfigResponse: func() Payload { return &FirmwareConfigResponsePayload{} },
	MsgFirmwareRequest:        func() Payload { return &FirmwareRequestPayload{} },
	MsgFirmwareResponse:       func() Payload { return &FirmwareResponsePayload{} },
}
