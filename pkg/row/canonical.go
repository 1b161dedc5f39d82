package row

import (
	"encoding/binary"
	"fmt"
)

// AppendCanonical appends the canonical byte encoding of the column's value
// to dst. The encoding carries no kind tag and is the input to content
// hashing:
//
//	integers      fixed width, big-endian
//	Boolean       one byte, 0 or 1
//	byte arrays   raw bytes
//	strings/blobs uvarint length followed by the bytes
//	arrays        uvarint count followed by each element
//
// A null column encodes as its kind's default value.
func (c Column) AppendCanonical(dst []byte) []byte {
	if c.kind == KindArray {
		if c.null {
			return binary.AppendUvarint(dst, 0)
		}
		dst = binary.AppendUvarint(dst, uint64(len(c.array())))
		for _, e := range c.array() {
			dst = e.AppendCanonical(dst)
		}
		return dst
	}

	v := c.v
	if c.null {
		v = c.kind.Zero()
	}

	return appendValue(dst, v)
}

// Canonical returns the canonical encoding of the column.
func (c Column) Canonical() []byte {
	return c.AppendCanonical(nil)
}

func appendValue(dst []byte, v any) []byte {
	switch v := v.(type) {
	case uint64:
		return binary.BigEndian.AppendUint64(dst, v)
	case uint32:
		return binary.BigEndian.AppendUint32(dst, v)
	case uint8:
		return append(dst, v)
	case int64:
		return binary.BigEndian.AppendUint64(dst, uint64(v))
	case int32:
		return binary.BigEndian.AppendUint32(dst, uint32(v))
	case int8:
		return append(dst, byte(v))
	case bool:
		if v {
			return append(dst, 1)
		}
		return append(dst, 0)
	case string:
		dst = binary.AppendUvarint(dst, uint64(len(v)))
		return append(dst, v...)
	case []byte:
		dst = binary.AppendUvarint(dst, uint64(len(v)))
		return append(dst, v...)
	case Bytes4:
		return append(dst, v[:]...)
	case Bytes8:
		return append(dst, v[:]...)
	case Bytes32:
		return append(dst, v[:]...)
	case Bytes64:
		return append(dst, v[:]...)
	default:
		panic(fmt.Sprintf("no canonical encoding for %T", v))
	}
}
