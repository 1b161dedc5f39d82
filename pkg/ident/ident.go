// Package ident derives the stable identifiers used by indexed entities:
// type ids from qualified type names and content-derived record ids from
// canonical field encodings.
package ident

import (
	"encoding/binary"
	"hash"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"miren.dev/indexer/pkg/row"
)

const typeIDMask = 1<<63 - 1

// Hasher accumulates field encodings in order and yields an ID value.
type Hasher struct {
	h hash.Hash
}

func NewHasher() *Hasher {
	h, _ := blake2b.New256(nil)
	return &Hasher{h: h}
}

// Write feeds one canonical encoding into the digest.
//
//nolint:errcheck
func (h *Hasher) Write(enc []byte) {
	h.h.Write(enc)
}

// WriteColumn feeds the canonical encoding of c into the digest.
func (h *Hasher) WriteColumn(c row.Column) {
	h.Write(c.Canonical())
}

// Sum returns the digest mapped into the ID scalar: the first eight bytes,
// big-endian.
func (h *Hasher) Sum() uint64 {
	return binary.BigEndian.Uint64(h.h.Sum(nil)[:8])
}

// CAS returns the full digest in base58, used as a content key.
func (h *Hasher) CAS() string {
	return base58.Encode(h.h.Sum(nil))
}

// Derive hashes the encodings in order.
func Derive(encodings ...[]byte) uint64 {
	h := NewHasher()
	for _, e := range encodings {
		h.Write(e)
	}
	return h.Sum()
}

// FromColumns hashes the canonical encodings of cols in order.
func FromColumns(cols ...row.Column) uint64 {
	h := NewHasher()
	for _, c := range cols {
		h.WriteColumn(c)
	}
	return h.Sum()
}

// TypeID returns the 63-bit type identifier of name within the fully
// qualified namespace fqns.
func TypeID(fqns, name string) int64 {
	sum := blake2b.Sum256([]byte(fqns + "." + name))
	return int64(binary.BigEndian.Uint64(sum[:8]) & typeIDMask)
}

// FullyQualifiedNamespace joins a schema namespace with its optional
// identifier.
func FullyQualifiedNamespace(namespace, identifier string) string {
	if identifier == "" {
		return namespace
	}
	return namespace + "_" + identifier
}
