// Package storedb implements the MYCO binary table format referenced by
// spec §6 ("a custom binary file format with a 4-byte magic MYCO, a 4-byte
// version, then length-prefixed table records"). It round-trips
// value.Value trees to disk for the `database` standard-library module,
// encoding operands BigEndian the way the teacher's own
// compiler/code.go.MakeInstruction does for bytecode operands.
package storedb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/IvyMycelia/myco/value"
)

const (
	magic          = "MYCO"
	formatVersion  = uint32(1)
	tagNull   byte = 0
	tagBool   byte = 1
	tagNumber byte = 2
	tagString byte = 3
	tagArray  byte = 4
	tagObject byte = 5
)

// writeValue encodes a single Value as a tag byte followed by its payload.
// Function/Class/Module/Range values are out of scope for persistence (spec
// §6 only requires the core data shapes to round-trip) and are rejected
// with an error rather than silently dropped.
func writeValue(w *bufio.Writer, v value.Value) error {
	switch t := v.(type) {
	case value.Null:
		return w.WriteByte(tagNull)
	case value.Bool:
		if err := w.WriteByte(tagBool); err != nil {
			return err
		}
		b := byte(0)
		if t.Value {
			b = 1
		}
		return w.WriteByte(b)
	case value.Number:
		if err := w.WriteByte(tagNumber); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, t.Value)
	case value.String:
		if err := w.WriteByte(tagString); err != nil {
			return err
		}
		return writeBytes(w, []byte(t.Value))
	case *value.Array:
		if err := w.WriteByte(tagArray); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(t.Elements))); err != nil {
			return err
		}
		for _, e := range t.Elements {
			if err := writeValue(w, e); err != nil {
				return err
			}
		}
		return nil
	case *value.Object:
		if err := w.WriteByte(tagObject); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(t.Keys))); err != nil {
			return err
		}
		for _, k := range t.Keys {
			if err := writeBytes(w, []byte(k)); err != nil {
				return err
			}
			fv, _ := t.Get(k)
			if err := writeValue(w, fv); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("storedb: value of type %s cannot be persisted", v.Type())
	}
}

func writeBytes(w *bufio.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readValue(r *bufio.Reader) (value.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNull:
		return value.NullValue, nil
	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return value.Bool{Value: b != 0}, nil
	case tagNumber:
		var f float64
		if err := binary.Read(r, binary.BigEndian, &f); err != nil {
			return nil, err
		}
		return value.Number{Value: f}, nil
	case tagString:
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return value.String{Value: string(b)}, nil
	case tagArray:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		elems := make([]value.Value, n)
		for i := range elems {
			v, err := readValue(r)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return &value.Array{Elements: elems}, nil
	case tagObject:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		obj := value.NewObject()
		for i := uint32(0); i < n; i++ {
			kb, err := readBytes(r)
			if err != nil {
				return nil, err
			}
			v, err := readValue(r)
			if err != nil {
				return nil, err
			}
			obj.Set(string(kb), v)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("storedb: unknown value tag %d", tag)
	}
}

func readBytes(r *bufio.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
