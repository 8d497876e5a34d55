package protocol16

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// UnknownTagError is returned when the decoder meets a tag outside the
// recognized set. Everything parsed before the tag is still returned;
// the caller decides what to do with the unconsumed remainder.
type UnknownTagError struct {
	Tag    byte
	Offset int
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("protocol16: unknown tag %d at offset %d", e.Tag, e.Offset)
}

// TruncatedError is returned when a value body extends past the end of
// the buffer.
type TruncatedError struct {
	Want   int
	Have   int
	Offset int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("protocol16: truncated value at offset %d: want %d bytes, have %d", e.Offset, e.Want, e.Have)
}

// Reader is a cursor over an encoded buffer.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the unconsumed tail of the buffer.
func (r *Reader) Remaining() []byte { return r.buf[r.off:] }

func (r *Reader) need(n int) error {
	if len(r.buf)-r.off < n {
		return &TruncatedError{Want: n, Have: len(r.buf) - r.off, Offset: r.off}
	}
	return nil
}

func (r *Reader) U8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *Reader) I16() (int16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := int16(binary.BigEndian.Uint16(r.buf[r.off:]))
	r.off += 2
	return v, nil
}

func (r *Reader) I32() (int32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v, nil
}

func (r *Reader) I64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := int64(binary.BigEndian.Uint64(r.buf[r.off:]))
	r.off += 8
	return v, nil
}

func (r *Reader) F32() (float32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := math.Float32frombits(binary.BigEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v, nil
}

func (r *Reader) F64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.BigEndian.Uint64(r.buf[r.off:]))
	r.off += 8
	return v, nil
}

func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, &TruncatedError{Want: n, Have: len(r.buf) - r.off, Offset: r.off}
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:])
	r.off += n
	return out, nil
}

func (r *Reader) str() (string, error) {
	n, err := r.I16()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("protocol16: invalid UTF-8 string at offset %d", r.off-len(b))
	}
	return string(b), nil
}

// DecodeParamMap reads an i16 parameter count followed by (key, tagged
// value) pairs. On an unknown tag the map parsed so far is returned
// together with an *UnknownTagError; this is recoverable, not fatal.
func DecodeParamMap(r *Reader) (ParamMap, error) {
	count, err := r.I16()
	if err != nil {
		return nil, err
	}
	params := make(ParamMap, count)
	for i := 0; i < int(count); i++ {
		key, err := r.U8()
		if err != nil {
			return params, err
		}
		v, err := DecodeValue(r)
		if err != nil {
			return params, err
		}
		params[key] = v
	}
	return params, nil
}

// DecodeValue reads one tagged value.
func DecodeValue(r *Reader) (any, error) {
	tag, err := r.U8()
	if err != nil {
		return nil, err
	}
	return decodeBody(r, Type(tag))
}

func decodeBody(r *Reader, tag Type) (any, error) {
	switch tag {
	case TypeNil:
		return nil, nil
	case TypeBool:
		b, err := r.U8()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case TypeI8:
		b, err := r.U8()
		if err != nil {
			return nil, err
		}
		return int8(b), nil
	case TypeI16:
		return r.I16()
	case TypeI32:
		return r.I32()
	case TypeI64:
		return r.I64()
	case TypeF32:
		return r.F32()
	case TypeF64:
		return r.F64()
	case TypeString:
		return r.str()
	case TypeByteArray:
		n, err := r.I32()
		if err != nil {
			return nil, err
		}
		return r.Bytes(int(n))
	case TypeI32Array:
		n, err := r.I32()
		if err != nil {
			return nil, err
		}
		if n < 0 || int(n) > len(r.Remaining())/4 {
			return nil, &TruncatedError{Want: int(n) * 4, Have: len(r.Remaining()), Offset: r.Offset()}
		}
		out := make([]int32, n)
		for i := range out {
			out[i], err = r.I32()
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case TypeStringArray:
		n, err := r.I16()
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, &TruncatedError{Want: int(n), Have: len(r.Remaining()), Offset: r.Offset()}
		}
		out := make([]string, n)
		for i := range out {
			out[i], err = r.str()
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case TypeArray:
		n, err := r.I16()
		if err != nil {
			return nil, err
		}
		elem, err := r.U8()
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, &TruncatedError{Want: int(n), Have: len(r.Remaining()), Offset: r.Offset()}
		}
		out := make([]any, n)
		for i := range out {
			out[i], err = decodeBody(r, Type(elem))
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case TypeObjectArray:
		n, err := r.I16()
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, &TruncatedError{Want: int(n), Have: len(r.Remaining()), Offset: r.Offset()}
		}
		out := make([]any, n)
		for i := range out {
			out[i], err = DecodeValue(r)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case TypeDict:
		// Key and value tags declared once up front; tag 0 means
		// per-entry tagging for that position.
		keyTag, err := r.U8()
		if err != nil {
			return nil, err
		}
		valTag, err := r.U8()
		if err != nil {
			return nil, err
		}
		n, err := r.I16()
		if err != nil {
			return nil, err
		}
		out := make(map[any]any, n)
		for i := 0; i < int(n); i++ {
			k, err := decodeDictComponent(r, Type(keyTag))
			if err != nil {
				return nil, err
			}
			v, err := decodeDictComponent(r, Type(valTag))
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case TypeDictionary:
		n, err := r.I16()
		if err != nil {
			return nil, err
		}
		out := make(map[any]any, n)
		for i := 0; i < int(n); i++ {
			k, err := DecodeValue(r)
			if err != nil {
				return nil, err
			}
			v, err := DecodeValue(r)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case TypeCustom:
		code, err := r.U8()
		if err != nil {
			return nil, err
		}
		n, err := r.I16()
		if err != nil {
			return nil, err
		}
		data, err := r.Bytes(int(n))
		if err != nil {
			return nil, err
		}
		return Custom{Code: int8(code), Data: data}, nil
	default:
		return nil, &UnknownTagError{Tag: byte(tag), Offset: r.off - 1}
	}
}

func decodeDictComponent(r *Reader, declared Type) (any, error) {
	if declared == TypeNil {
		return DecodeValue(r)
	}
	return decodeBody(r, declared)
}
