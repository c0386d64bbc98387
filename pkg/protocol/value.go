package protocol

import "errors"

// ErrInvalidValueType reports an unknown value type tag.
var ErrInvalidValueType = errors.New("protocol: invalid value type tag")

// ValueType tags a dynamically typed prop or patch value on the wire.
type ValueType uint8

const (
	ValueNull   ValueType = 0x00
	ValueBool   ValueType = 0x01
	ValueInt    ValueType = 0x02
	ValueFloat  ValueType = 0x03
	ValueString ValueType = 0x04
	ValueArray  ValueType = 0x05
	ValueObject ValueType = 0x06
)

// EncodeValue encodes a prop value as a type tag plus payload. Integers of
// any width encode as ValueInt; functions and unknown types encode as
// null, handlers never cross the wire.
func EncodeValue(e *Encoder, v any) {
	switch val := v.(type) {
	case nil:
		e.WriteByte(byte(ValueNull))
	case bool:
		e.WriteByte(byte(ValueBool))
		e.WriteBool(val)
	case int:
		e.WriteByte(byte(ValueInt))
		e.WriteSvarint(int64(val))
	case int64:
		e.WriteByte(byte(ValueInt))
		e.WriteSvarint(val)
	case float64:
		e.WriteByte(byte(ValueFloat))
		e.WriteFloat64(val)
	case string:
		e.WriteByte(byte(ValueString))
		e.WriteString(val)
	case []any:
		e.WriteByte(byte(ValueArray))
		e.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			EncodeValue(e, item)
		}
	case map[string]any:
		e.WriteByte(byte(ValueObject))
		e.WriteUvarint(uint64(len(val)))
		for k, item := range val {
			e.WriteString(k)
			EncodeValue(e, item)
		}
	default:
		e.WriteByte(byte(ValueNull))
	}
}

// DecodeValue decodes a tagged value. Integers always decode as int64.
func DecodeValue(d *Decoder) (any, error) {
	return decodeValueDepth(d, 0)
}

func decodeValueDepth(d *Decoder, depth int) (any, error) {
	if err := checkDepth(depth, MaxValueDepth); err != nil {
		return nil, err
	}

	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch ValueType(tag) {
	case ValueNull:
		return nil, nil
	case ValueBool:
		return d.ReadBool()
	case ValueInt:
		return d.ReadSvarint()
	case ValueFloat:
		return d.ReadFloat64()
	case ValueString:
		return d.ReadString()
	case ValueArray:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		arr := make([]any, count)
		for i := 0; i < count; i++ {
			if arr[i], err = decodeValueDepth(d, depth+1); err != nil {
				return nil, err
			}
		}
		return arr, nil
	case ValueObject:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		obj := make(map[string]any, count)
		for i := 0; i < count; i++ {
			k, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			if obj[k], err = decodeValueDepth(d, depth+1); err != nil {
				return nil, err
			}
		}
		return obj, nil
	default:
		return nil, ErrInvalidValueType
	}
}
