// Package tuple defines the row representation shared by the table heap,
// the B+ tree index, and the executor: a schema, typed column values, and
// the on-disk visibility metadata attached to every heap-resident row.
package tuple

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// ColumnType enumerates the value kinds a Schema column may hold.
type ColumnType int

const (
	TypeInt ColumnType = iota
	TypeFloat
	TypeString
	TypeBool
)

// ColumnDef describes one column of a table or an index key.
type ColumnDef struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	IsPrimaryKey bool       `json:"is_primary_key"`
}

// Schema is an ordered list of columns; both table rows and index keys are
// decoded against one. TableName is empty for a schema projected out as an
// index key rather than naming a table directly.
type Schema struct {
	Name    string     `json:"table_name,omitempty"`
	Columns []ColumnDef `json:"columns"`
}

// TableName returns s.Name, the accessor name catalog persistence and
// lookups use.
func (s *Schema) TableName() string { return s.Name }

// IndexOf returns the position of name in the schema, or -1.
func (s *Schema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// TupleMeta is the per-tuple visibility metadata stored alongside every
// heap row. Timestamp is opaque to the storage core (see txn.Context);
// IsDeleted is the sole visibility bit this spec's storage core resolves
// itself (concurrent MVCC beyond this flag is out of scope).
type TupleMeta struct {
	Timestamp uint64
	IsDeleted bool
}

const tupleMetaSize = 9 // 8 bytes timestamp + 1 byte flag

// EncodeMeta serializes m to a fixed 9-byte representation.
func EncodeMeta(m TupleMeta) [tupleMetaSize]byte {
	var buf [tupleMetaSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], m.Timestamp)
	if m.IsDeleted {
		buf[8] = 1
	}
	return buf
}

// DecodeMeta is the inverse of EncodeMeta.
func DecodeMeta(buf []byte) TupleMeta {
	return TupleMeta{
		Timestamp: binary.LittleEndian.Uint64(buf[0:8]),
		IsDeleted: buf[8] != 0,
	}
}

// MetaSize is the encoded size of a TupleMeta.
func MetaSize() int { return tupleMetaSize }

// Value is one column's runtime value: int64, float64, string, or bool.
type Value = interface{}

// Tuple is a decoded row: one Value per schema column, in schema order.
type Tuple struct {
	Values []Value
}

// Project extracts the columns named in attrs, in order, building a new
// tuple suitable for use as an index key.
func (t Tuple) Project(schema *Schema, attrs []string) Tuple {
	out := make([]Value, len(attrs))
	for i, name := range attrs {
		idx := schema.IndexOf(name)
		if idx >= 0 && idx < len(t.Values) {
			out[i] = t.Values[idx]
		}
	}
	return Tuple{Values: out}
}

// Encode serializes t into a self-describing byte payload: for each value,
// a 1-byte type tag followed by a type-specific encoding. Strings are
// length-prefixed so the payload can be decoded without the
// schema (the schema is still required to know column *names*, not sizes).
func (t Tuple) Encode() []byte {
	buf := make([]byte, 0, 16*len(t.Values))
	for _, v := range t.Values {
		buf = appendValue(buf, v)
	}
	return buf
}

func appendValue(buf []byte, v Value) []byte {
	switch x := v.(type) {
	case nil:
		return append(buf, 0)
	case int64:
		b := make([]byte, 9)
		b[0] = 1
		binary.LittleEndian.PutUint64(b[1:], uint64(x))
		return append(buf, b...)
	case int:
		return appendValue(buf, int64(x))
	case int32:
		return appendValue(buf, int64(x))
	case float64:
		b := make([]byte, 9)
		b[0] = 2
		binary.LittleEndian.PutUint64(b[1:], math.Float64bits(x))
		return append(buf, b...)
	case string:
		b := make([]byte, 5+len(x))
		b[0] = 3
		binary.LittleEndian.PutUint32(b[1:5], uint32(len(x)))
		copy(b[5:], x)
		return append(buf, b...)
	case bool:
		b := byte(4)
		v := byte(0)
		if x {
			v = 1
		}
		return append(buf, b, v)
	default:
		panic(fmt.Sprintf("tuple: unsupported value type %T", v))
	}
}

// Decode parses the payload produced by Encode, returning one value per
// encoded value in buf; schema only sizes the result slice's capacity.
func Decode(schema *Schema, buf []byte) Tuple {
	values := make([]Value, 0, len(schema.Columns))
	off := 0
	for off < len(buf) {
		tag := buf[off]
		off++
		switch tag {
		case 0:
			values = append(values, nil)
		case 1:
			values = append(values, int64(binary.LittleEndian.Uint64(buf[off:off+8])))
			off += 8
		case 2:
			values = append(values, math.Float64frombits(binary.LittleEndian.Uint64(buf[off:off+8])))
			off += 8
		case 3:
			n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
			off += 4
			values = append(values, string(buf[off:off+n]))
			off += n
		case 4:
			values = append(values, buf[off] != 0)
			off++
		default:
			panic(fmt.Sprintf("tuple: corrupt encoding, unknown tag %d", tag))
		}
	}
	return Tuple{Values: values}
}

// CompareValues orders two column values: numerics compare numerically
// (mixed int/float promotes to float), everything else falls back to
// string comparison. nil sorts before any non-nil value.
func CompareValues(a, b Value) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case isIntKind(va) && isIntKind(vb):
		ia, ib := va.Int(), vb.Int()
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		default:
			return 0
		}
	case (isIntKind(va) || isFloatKind(va)) && (isIntKind(vb) || isFloatKind(vb)):
		fa, fb := asFloat(va), asFloat(vb)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	default:
		sa, sb := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		default:
			return 0
		}
	}
}

func isIntKind(v reflect.Value) bool {
	k := v.Kind()
	return k >= reflect.Int && k <= reflect.Int64
}

func isFloatKind(v reflect.Value) bool {
	k := v.Kind()
	return k == reflect.Float32 || k == reflect.Float64
}

func asFloat(v reflect.Value) float64 {
	if isFloatKind(v) {
		return v.Float()
	}
	return float64(v.Int())
}
