package frame

// Header is the 5-byte envelope prefix. Sender never changes across a
// relay path; Last is overwritten at every hop to the relaying node's own
// id (spec §3 invariant 1).
type Header struct {
	Last        byte
	Sender      byte
	Destination byte
	Flags       byte
	MessageType MessageType
}

func (h Header) AckRequested() bool { return h.Flags&FlagAckRequested != 0 }
func (h Header) IsAck() bool        { return h.Flags&FlagIsAck != 0 }
func (h Header) IsRequest() bool    { return h.Flags&FlagIsRequest != 0 }

// Frame is the ephemeral, fully decoded unit passed between Dispatcher,
// Router and the user callback. One receive buffer and one send buffer
// (plus a second outbound slot for acks) suffice for the whole runtime, per
// spec §5 — Frame itself carries no buffer-reuse state, callers own that.
type Frame struct {
	Header  Header
	Payload Payload
}

// EncodeFrame serialises f into its on-wire bytes. It never produces more
// than MaxFrameSize bytes; a too-large payload is a programmer error
// (every Payload.Marshal is bounded by construction) and returns
// ErrPayloadTooLarge rather than silently truncating, unlike the teacher's
// EncodeFrame, because unlike a fixed-width radio buffer a relayed frame
// silently losing trailing bytes would corrupt routing state downstream.
func EncodeFrame(f *Frame) ([]byte, error) {
	body := f.Payload.Marshal()
	if len(body) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	out := make([]byte, HeaderSize+len(body))
	out[0] = f.Header.Last
	out[1] = f.Header.Sender
	out[2] = f.Header.Destination
	out[3] = f.Header.Flags & ^flagReservedMask
	out[4] = byte(f.Header.MessageType)
	copy(out[HeaderSize:], body)
	return out, nil
}

// DecodeFrame validates and parses on-wire bytes into a Frame. Per spec
// §4.3: total length must be within [HeaderSize, MaxFrameSize], the
// message type must be known, and dynamic-payload variants must have a
// known ptype whose declared length fits the remaining bytes. Any
// violation returns ErrMalformed with no side effect — callers drop the
// frame silently (spec §7 MalformedFrame).
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < HeaderSize || len(data) > MaxFrameSize {
		return nil, ErrMalformed
	}

	mt := MessageType(data[4])
	if !mt.IsKnown() {
		return nil, ErrMalformed
	}

	payload := newPayload(mt)
	if payload == nil {
		return nil, ErrMalformed
	}
	if err := payload.Unmarshal(data[HeaderSize:]); err != nil {
		return nil, err
	}

	return &Frame{
		Header: Header{
			Last:        data[0],
			Sender:      data[1],
			Destination: data[2],
			Flags:       data[3] & ^flagReservedMask,
			MessageType: mt,
		},
		Payload: payload,
	}, nil
}

// GetString renders a device-family payload's value into buf per the
// textualization rule of spec §4.3, null-terminating if room remains. buf
// should be at least MaxTextBufferSize bytes. Returns false for payloads
// that carry no dynamic value.
func (f *Frame) GetString(buf []byte) (int, bool) {
	dp, ok := f.Payload.(*DevicePayload)
	if !ok {
		return 0, false
	}
	s := dp.Value.String()
	n := copy(buf, s)
	if n < len(buf) {
		buf[n] = 0
	}
	return n, true
}

// BuildAck constructs the single-hop ack for an inbound frame that
// requested one (spec §3 invariant, §8 invariant 2): same messageType and
// payload, is-ack set, ack-requested cleared, sender/destination swapped
// to this node.
func BuildAck(selfID byte, in *Frame) *Frame {
	return &Frame{
		Header: Header{
			Last:        selfID,
			Sender:      selfID,
			Destination: in.Header.Sender,
			Flags:       (in.Header.Flags &^ FlagAckRequested) | FlagIsAck,
			MessageType: in.Header.MessageType,
		},
		Payload: in.Payload,
	}
}
