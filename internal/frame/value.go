package frame

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// ValueKind is the ptype tag of a dynamic payload: the discriminator that
// lets a device-family or DeviceVar/DeviceConfig payload carry a string,
// an integer of several widths, a float with explicit precision, or an
// opaque custom-bytes blob, the receiver's end of which is fixed only by
// convention between sender and receiver (per spec §3).
type ValueKind byte

const (
	ValueString ValueKind = iota
	ValueByte
	ValueInt16
	ValueUint16
	ValueInt32
	ValueUint32
	ValueFloat
	ValueCustom

	valueKindCount
)

func (k ValueKind) valid() bool { return k < valueKindCount }

// DynamicValue is a ptype-tagged value: the wire representation is
// {ptype byte, [precision byte iff ValueFloat], raw value bytes}.
type DynamicValue struct {
	Kind      ValueKind
	Precision byte // decimal places, only meaningful for ValueFloat
	Raw       []byte
}

func NewStringValue(s string) DynamicValue {
	return DynamicValue{Kind: ValueString, Raw: []byte(s)}
}

func NewByteValue(b byte) DynamicValue {
	return DynamicValue{Kind: ValueByte, Raw: []byte{b}}
}

func NewInt16Value(v int16) DynamicValue {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(v))
	return DynamicValue{Kind: ValueInt16, Raw: buf}
}

func NewUint16Value(v uint16) DynamicValue {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return DynamicValue{Kind: ValueUint16, Raw: buf}
}

func NewInt32Value(v int32) DynamicValue {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return DynamicValue{Kind: ValueInt32, Raw: buf}
}

func NewUint32Value(v uint32) DynamicValue {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return DynamicValue{Kind: ValueUint32, Raw: buf}
}

func NewFloatValue(v float32, precision byte) DynamicValue {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return DynamicValue{Kind: ValueFloat, Precision: precision, Raw: buf}
}

func NewCustomValue(raw []byte) DynamicValue {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return DynamicValue{Kind: ValueCustom, Raw: cp}
}

// encodedLen is the number of bytes this value occupies after the ptype
// (and, for floats, precision) tag bytes.
func (v DynamicValue) encodedLen() int { return len(v.Raw) }

// marshal appends {ptype, [precision], raw...} to dst.
func (v DynamicValue) marshal(dst []byte) []byte {
	dst = append(dst, byte(v.Kind))
	if v.Kind == ValueFloat {
		dst = append(dst, v.Precision)
	}
	return append(dst, v.Raw...)
}

// tagLen is how many bytes the ptype+precision header occupies on wire.
func (v DynamicValue) tagLen() int {
	if v.Kind == ValueFloat {
		return 2
	}
	return 1
}

// unmarshalValue decodes a DynamicValue starting at data[0]. valueLen is
// the length declared by the caller from the length_req byte and counts
// the ptype/precision tag as well as the raw value bytes. It returns the
// value and the total number of bytes consumed (tag included), which
// equals valueLen on success.
func unmarshalValue(data []byte, valueLen int) (DynamicValue, int, error) {
	if len(data) < 1 {
		return DynamicValue{}, 0, ErrMalformed
	}
	kind := ValueKind(data[0])
	if !kind.valid() {
		return DynamicValue{}, 0, ErrMalformed
	}
	tagLen := 1
	var precision byte
	if kind == ValueFloat {
		if len(data) < 2 {
			return DynamicValue{}, 0, ErrMalformed
		}
		precision = data[1]
		tagLen = 2
	}

	rawLen := valueLen - tagLen
	switch kind {
	case ValueByte:
		if rawLen != 1 {
			return DynamicValue{}, 0, ErrMalformed
		}
	case ValueInt16, ValueUint16:
		if rawLen != 2 {
			return DynamicValue{}, 0, ErrMalformed
		}
	case ValueInt32, ValueUint32, ValueFloat:
		if rawLen != 4 {
			return DynamicValue{}, 0, ErrMalformed
		}
	case ValueString, ValueCustom:
		if rawLen < 0 {
			return DynamicValue{}, 0, ErrMalformed
		}
	}
	if rawLen < 0 || tagLen+rawLen > len(data) {
		return DynamicValue{}, 0, ErrMalformed
	}

	raw := make([]byte, rawLen)
	copy(raw, data[tagLen:tagLen+rawLen])

	return DynamicValue{Kind: kind, Precision: precision, Raw: raw}, tagLen + rawLen, nil
}

func (v DynamicValue) AsByte() (byte, bool) {
	if v.Kind != ValueByte || len(v.Raw) != 1 {
		return 0, false
	}
	return v.Raw[0], true
}

func (v DynamicValue) AsInt16() (int16, bool) {
	if v.Kind != ValueInt16 || len(v.Raw) != 2 {
		return 0, false
	}
	return int16(binary.LittleEndian.Uint16(v.Raw)), true
}

func (v DynamicValue) AsUint16() (uint16, bool) {
	if v.Kind != ValueUint16 || len(v.Raw) != 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(v.Raw), true
}

func (v DynamicValue) AsInt32() (int32, bool) {
	if v.Kind != ValueInt32 || len(v.Raw) != 4 {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(v.Raw)), true
}

func (v DynamicValue) AsUint32() (uint32, bool) {
	if v.Kind != ValueUint32 || len(v.Raw) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(v.Raw), true
}

func (v DynamicValue) AsFloat() (float32, bool) {
	if v.Kind != ValueFloat || len(v.Raw) != 4 {
		return 0, false
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(v.Raw)), true
}

// String renders the value per the textualization rule of spec §4.3:
// strings copied verbatim, integers base-10, floats at their stored
// precision, and anything else (custom bytes) as uppercase hex.
func (v DynamicValue) String() string {
	switch v.Kind {
	case ValueString:
		return string(v.Raw)
	case ValueByte:
		b, _ := v.AsByte()
		return strconv.FormatUint(uint64(b), 10)
	case ValueInt16:
		n, _ := v.AsInt16()
		return strconv.FormatInt(int64(n), 10)
	case ValueUint16:
		n, _ := v.AsUint16()
		return strconv.FormatUint(uint64(n), 10)
	case ValueInt32:
		n, _ := v.AsInt32()
		return strconv.FormatInt(int64(n), 10)
	case ValueUint32:
		n, _ := v.AsUint32()
		return strconv.FormatUint(uint64(n), 10)
	case ValueFloat:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(float64(f), 'f', int(v.Precision), 32)
	default:
		return fmt.Sprintf("%X", v.Raw)
	}
}
