package protocol16

import (
	"errors"
	"reflect"
	"testing"
)

func TestRoundTripScalars(t *testing.T) {
	cases := []struct {
		name string
		in   any
	}{
		{"nil", nil},
		{"bool_true", true},
		{"bool_false", false},
		{"i8", int8(-7)},
		{"i16", int16(-3000)},
		{"i32", int32(123456789)},
		{"i64", int64(-9876543210)},
		{"f32", float32(1.5)},
		{"f64", float64(-2.25)},
		{"string", "Alice"},
		{"string_empty", ""},
		{"bytes", []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{"i32_array", []int32{1, -2, 3}},
		{"string_array", []string{"a", "bc", ""}},
		{"object_array", []any{int32(1), "x", true}},
		{"custom", Custom{Code: 3, Data: []byte{1, 2, 3}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := NewWriter()
			if err := w.Value(tc.in); err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := DecodeValue(NewReader(w.Bytes()))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, tc.in) {
				t.Fatalf("round trip mismatch: got %#v want %#v", got, tc.in)
			}
		})
	}
}

func TestRoundTripParamMap(t *testing.T) {
	in := ParamMap{
		0:  int32(1234),
		1:  "Bob",
		2:  float64(-150.5),
		5:  []string{"Alice", "Bob"},
		40: []int32{101, 102, 103},
		252: int16(257),
	}
	data, err := EncodeParamMap(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeParamMap(NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("round trip mismatch: got %#v want %#v", got, in)
	}
}

func TestRoundTripDictionary(t *testing.T) {
	in := map[any]any{
		int32(1): "one",
		"two":    int64(2),
	}
	w := NewWriter()
	if err := w.Value(in); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeValue(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("round trip mismatch: got %#v want %#v", got, in)
	}
}

func TestDecodeTypedDict(t *testing.T) {
	// Tag 68: key and value tags declared once at the header.
	w := NewWriter()
	w.U8(byte(TypeDict))
	w.U8(byte(TypeI8))
	w.U8(byte(TypeString))
	w.I16(2)
	w.U8(1)
	w.I16(3)
	w.Raw([]byte("foo"))
	w.U8(2)
	w.I16(3)
	w.Raw([]byte("bar"))

	got, err := DecodeValue(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[any]any{int8(1): "foo", int8(2): "bar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
}

func TestDecodeArrayWithElementTag(t *testing.T) {
	w := NewWriter()
	w.U8(byte(TypeArray))
	w.I16(3)
	w.U8(byte(TypeI16))
	w.I16(10)
	w.I16(20)
	w.I16(30)

	got, err := DecodeValue(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []any{int16(10), int16(20), int16(30)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
}

func TestUnknownTagReturnsPartialMap(t *testing.T) {
	// Two parameters; the second carries an unrecognized tag.
	w := NewWriter()
	w.I16(2)
	w.U8(0)
	w.U8(byte(TypeI32))
	w.I32(42)
	w.U8(1)
	w.U8(0xEE)
	w.Raw([]byte{1, 2, 3})

	got, err := DecodeParamMap(NewReader(w.Bytes()))
	if err == nil {
		t.Fatal("expected error")
	}
	var unknown *UnknownTagError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTagError, got %v", err)
	}
	if unknown.Tag != 0xEE {
		t.Fatalf("tag = %d, want 0xEE", unknown.Tag)
	}
	if v, ok := got[0]; !ok || v != int32(42) {
		t.Fatalf("partial map missing parsed entry: %#v", got)
	}
}

func TestTruncatedValue(t *testing.T) {
	w := NewWriter()
	w.U8(byte(TypeString))
	w.I16(10)
	w.Raw([]byte("shor"))

	_, err := DecodeValue(NewReader(w.Bytes()))
	var trunc *TruncatedError
	if !errors.As(err, &trunc) {
		t.Fatalf("expected TruncatedError, got %v", err)
	}
}

func TestNegativeCountRejected(t *testing.T) {
	w := NewWriter()
	w.U8(byte(TypeI32Array))
	w.I32(-1)

	if _, err := DecodeValue(NewReader(w.Bytes())); err == nil {
		t.Fatal("expected error for negative count")
	}
}
