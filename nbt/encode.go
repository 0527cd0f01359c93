// Package nbt writes Go values as big-endian NBT. Structs and string-keyed maps become compounds;
// field names come from the `nbt` struct tag, falling back to the Go name.
package nbt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
)

var ErrUnsupported = errors.New("nbt: unsupported type")

func Marshal(w io.Writer, v interface{}) error {
	return NewEncoder(w).Encode(v)
}

type Encoder struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes v as an unnamed root tag.
func (e *Encoder) Encode(v interface{}) error {
	if err := e.marshal(reflect.ValueOf(v), ""); err != nil {
		return err
	}
	return e.w.Flush()
}

func (e *Encoder) marshal(val reflect.Value, name string) error {
	switch vk := val.Kind(); vk {
	case reflect.Bool:
		var b byte
		if val.Bool() {
			b = 1
		}
		e.writeTag(TagByte, name)
		return e.w.WriteByte(b)

	case reflect.Int8, reflect.Uint8:
		e.writeTag(TagByte, name)
		return e.w.WriteByte(byte(integer(val)))

	case reflect.Int16, reflect.Uint16:
		e.writeTag(TagShort, name)
		return e.writeInt16(int16(integer(val)))

	case reflect.Int32, reflect.Uint32:
		e.writeTag(TagInt, name)
		return e.writeInt32(int32(integer(val)))

	case reflect.Int64, reflect.Uint64:
		e.writeTag(TagLong, name)
		return e.writeInt64(integer(val))

	case reflect.Float32:
		e.writeTag(TagFloat, name)
		return e.writeInt32(int32(math.Float32bits(float32(val.Float()))))

	case reflect.Float64:
		e.writeTag(TagDouble, name)
		return e.writeInt64(int64(math.Float64bits(val.Float())))

	case reflect.String:
		e.writeTag(TagString, name)
		return e.writeString(val.String())

	case reflect.Array, reflect.Slice:
		return e.marshalSequence(val, name)

	case reflect.Struct:
		e.writeTag(TagCompound, name)
		return e.marshalStruct(val)

	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("%w: map key %s in %q", ErrUnsupported, val.Type().Key(), name)
		}
		e.writeTag(TagCompound, name)
		return e.marshalMap(val)

	case reflect.Interface, reflect.Ptr:
		if val.IsNil() {
			return fmt.Errorf("%w: nil value in %q", ErrUnsupported, name)
		}
		return e.marshal(val.Elem(), name)

	default:
		return fmt.Errorf("%w: %s in %q", ErrUnsupported, vk, name)
	}
}

func integer(val reflect.Value) int64 {
	switch val.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(val.Uint())
	}
	return val.Int()
}

// marshalSequence writes byte, int and long slices as the dedicated array tags and everything
// else as a list.
func (e *Encoder) marshalSequence(val reflect.Value, name string) error {
	n := val.Len()
	switch elem := val.Type().Elem(); elem.Kind() {
	case reflect.Int8, reflect.Uint8:
		e.writeTag(TagByteArray, name)
		e.writeInt32(int32(n))
		for i := 0; i < n; i++ {
			e.w.WriteByte(byte(integer(val.Index(i))))
		}
		return nil

	case reflect.Int32:
		e.writeTag(TagIntArray, name)
		e.writeInt32(int32(n))
		for i := 0; i < n; i++ {
			e.writeInt32(int32(val.Index(i).Int()))
		}
		return nil

	case reflect.Int64, reflect.Uint64:
		e.writeTag(TagLongArray, name)
		e.writeInt32(int32(n))
		for i := 0; i < n; i++ {
			e.writeInt64(integer(val.Index(i)))
		}
		return nil

	case reflect.Interface:
		return e.marshalInterfaceList(val, name)

	default:
		tag, err := listTag(elem)
		if err != nil {
			return fmt.Errorf("%w in %q", err, name)
		}
		e.writeTag(TagList, name)
		e.w.WriteByte(tag)
		e.writeInt32(int32(n))
		for i := 0; i < n; i++ {
			if err := e.marshalPayload(val.Index(i), tag); err != nil {
				return err
			}
		}
		return nil
	}
}

// marshalInterfaceList resolves the dynamic element type of an []interface{}, which must be the
// same for every element.
func (e *Encoder) marshalInterfaceList(val reflect.Value, name string) error {
	n := val.Len()
	var real reflect.Type
	for i := 0; i < n; i++ {
		t := val.Index(i).Elem().Type()
		if real == nil {
			real = t
		} else if real != t {
			return fmt.Errorf("%w: mixed types %s and %s in %q", ErrUnsupported, real, t, name)
		}
	}
	if real == nil {
		e.writeTag(TagList, name)
		e.w.WriteByte(TagEnd)
		return e.writeInt32(0)
	}
	if real.Kind() == reflect.Interface {
		return fmt.Errorf("%w: nested interface list in %q", ErrUnsupported, name)
	}
	fixed := reflect.MakeSlice(reflect.SliceOf(real), n, n)
	for i := 0; i < n; i++ {
		fixed.Index(i).Set(val.Index(i).Elem())
	}
	return e.marshalSequence(fixed, name)
}

func listTag(t reflect.Type) (byte, error) {
	switch t.Kind() {
	case reflect.Int16, reflect.Uint16:
		return TagShort, nil
	case reflect.Int32, reflect.Uint32:
		return TagInt, nil
	case reflect.Float32:
		return TagFloat, nil
	case reflect.Float64:
		return TagDouble, nil
	case reflect.String:
		return TagString, nil
	case reflect.Struct, reflect.Map:
		return TagCompound, nil
	}
	return 0, fmt.Errorf("%w: list of %s", ErrUnsupported, t)
}

// marshalPayload writes a list element, which carries no tag header of its own.
func (e *Encoder) marshalPayload(val reflect.Value, tag byte) error {
	switch tag {
	case TagShort:
		return e.writeInt16(int16(integer(val)))
	case TagInt:
		return e.writeInt32(int32(integer(val)))
	case TagFloat:
		return e.writeInt32(int32(math.Float32bits(float32(val.Float()))))
	case TagDouble:
		return e.writeInt64(int64(math.Float64bits(val.Float())))
	case TagString:
		return e.writeString(val.String())
	}
	if val.Kind() == reflect.Map {
		return e.marshalMap(val)
	}
	return e.marshalStruct(val)
}

func (e *Encoder) marshalStruct(val reflect.Value) error {
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("nbt")
		if (f.PkgPath != "" && !f.Anonymous) || tag == "-" {
			continue
		}
		name := f.Name
		if tag != "" {
			name = tag
		}
		if err := e.marshal(val.Field(i), name); err != nil {
			return err
		}
	}
	return e.w.WriteByte(TagEnd)
}

func (e *Encoder) marshalMap(val reflect.Value) error {
	iter := val.MapRange()
	for iter.Next() {
		if err := e.marshal(iter.Value(), iter.Key().String()); err != nil {
			return err
		}
	}
	return e.w.WriteByte(TagEnd)
}

func (e *Encoder) writeTag(tag byte, name string) error {
	e.w.WriteByte(tag)
	return e.writeString(name)
}

func (e *Encoder) writeString(s string) error {
	e.writeInt16(int16(len(s)))
	_, err := e.w.WriteString(s)
	return err
}

func (e *Encoder) writeInt16(n int16) error {
	_, err := e.w.Write([]byte{byte(n >> 8), byte(n)})
	return err
}

func (e *Encoder) writeInt32(n int32) error {
	_, err := e.w.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	return err
}

func (e *Encoder) writeInt64(n int64) error {
	_, err := e.w.Write([]byte{
		byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	return err
}
