package frame

import "errors"

var (
	// ErrMalformed covers any decode failure: too short, too long, unknown
	// message type, or a dynamic payload whose declared length doesn't fit
	// the remaining bytes. Per spec §7, malformed frames are silently
	// dropped by callers — this error exists so tests can assert on it.
	ErrMalformed = errors.New("frame: malformed")

	// ErrPayloadTooLarge is returned by encoders when a payload would not
	// fit the 27-byte budget.
	ErrPayloadTooLarge = errors.New("frame: payload exceeds MaxPayloadSize")

	// ErrUnknownValueKind names a DynamicValue ptype tag this build does
	// not recognise. The decoders in this package do not return it: an
	// unknown ptype during decode is reported as ErrMalformed.
	ErrUnknownValueKind = errors.New("frame: unknown dynamic value kind")
)
