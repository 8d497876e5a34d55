package protocol16

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Writer builds encoded buffers. It is used by tests and by synthetic
// traffic builders; the live pipeline only decodes.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

func (w *Writer) U8(b byte)     { w.buf.WriteByte(b) }
func (w *Writer) I16(v int16)   { binary.Write(&w.buf, binary.BigEndian, v) }
func (w *Writer) I32(v int32)   { binary.Write(&w.buf, binary.BigEndian, v) }
func (w *Writer) I64(v int64)   { binary.Write(&w.buf, binary.BigEndian, v) }
func (w *Writer) F32(v float32) { binary.Write(&w.buf, binary.BigEndian, math.Float32bits(v)) }
func (w *Writer) F64(v float64) { binary.Write(&w.buf, binary.BigEndian, math.Float64bits(v)) }

func (w *Writer) Raw(b []byte) { w.buf.Write(b) }

func (w *Writer) str(s string) {
	w.I16(int16(len(s)))
	w.buf.WriteString(s)
}

// ParamMap encodes an i16 count followed by key/value pairs. Keys are
// written in ascending order so output is deterministic.
func (w *Writer) ParamMap(p ParamMap) error {
	w.I16(int16(len(p)))
	keys := make([]int, 0, len(p))
	for k := range p {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	for _, k := range keys {
		w.U8(byte(k))
		if err := w.Value(p[uint8(k)]); err != nil {
			return err
		}
	}
	return nil
}

// Value encodes one tagged value, inferring the tag from the Go type.
func (w *Writer) Value(v any) error {
	switch x := v.(type) {
	case nil:
		w.U8(byte(TypeNil))
	case bool:
		w.U8(byte(TypeBool))
		if x {
			w.U8(1)
		} else {
			w.U8(0)
		}
	case int8:
		w.U8(byte(TypeI8))
		w.U8(byte(x))
	case int16:
		w.U8(byte(TypeI16))
		w.I16(x)
	case int32:
		w.U8(byte(TypeI32))
		w.I32(x)
	case int64:
		w.U8(byte(TypeI64))
		w.I64(x)
	case float32:
		w.U8(byte(TypeF32))
		w.F32(x)
	case float64:
		w.U8(byte(TypeF64))
		w.F64(x)
	case string:
		w.U8(byte(TypeString))
		w.str(x)
	case []byte:
		w.U8(byte(TypeByteArray))
		w.I32(int32(len(x)))
		w.Raw(x)
	case []int32:
		w.U8(byte(TypeI32Array))
		w.I32(int32(len(x)))
		for _, n := range x {
			w.I32(n)
		}
	case []string:
		w.U8(byte(TypeStringArray))
		w.I16(int16(len(x)))
		for _, s := range x {
			w.str(s)
		}
	case []any:
		w.U8(byte(TypeObjectArray))
		w.I16(int16(len(x)))
		for _, e := range x {
			if err := w.Value(e); err != nil {
				return err
			}
		}
	case map[any]any:
		w.U8(byte(TypeDictionary))
		w.I16(int16(len(x)))
		for k, val := range x {
			if err := w.Value(k); err != nil {
				return err
			}
			if err := w.Value(val); err != nil {
				return err
			}
		}
	case Custom:
		w.U8(byte(TypeCustom))
		w.U8(byte(x.Code))
		w.I16(int16(len(x.Data)))
		w.Raw(x.Data)
	default:
		return fmt.Errorf("protocol16: unencodable value %T", v)
	}
	return nil
}

// EncodeParamMap is a convenience wrapper around Writer.ParamMap.
func EncodeParamMap(p ParamMap) ([]byte, error) {
	w := NewWriter()
	if err := w.ParamMap(p); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
