package ident

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"miren.dev/indexer/pkg/row"
)

func TestTypeID(t *testing.T) {
	t.Run("matches the hash of the qualified name", func(t *testing.T) {
		r := require.New(t)

		sum := blake2b.Sum256([]byte("fuel.Person"))
		want := int64(binary.BigEndian.Uint64(sum[:8]) % (1 << 63))

		r.Equal(want, TypeID("fuel", "Person"))
	})

	t.Run("is stable and non-negative", func(t *testing.T) {
		r := require.New(t)

		for _, n := range []string{"A", "Person", "Transfer", "Block"} {
			id := TypeID("ns", n)
			r.GreaterOrEqual(id, int64(0))
			r.Equal(id, TypeID("ns", n))
		}
	})

	t.Run("differs across namespaces", func(t *testing.T) {
		r := require.New(t)

		r.NotEqual(TypeID("alpha", "Person"), TypeID("beta", "Person"))
		r.NotEqual(
			TypeID(FullyQualifiedNamespace("fuel", ""), "Person"),
			TypeID(FullyQualifiedNamespace("fuel", "v2"), "Person"),
		)
	})
}

func TestDerive(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		r := require.New(t)

		a := FromColumns(row.Of(row.KindCharfield, "alice"), row.Of(row.KindUInt1, uint8(30)))
		b := FromColumns(row.Of(row.KindCharfield, "alice"), row.Of(row.KindUInt1, uint8(30)))

		r.Equal(a, b)
	})

	t.Run("depends on field order and values", func(t *testing.T) {
		r := require.New(t)

		name := row.Of(row.KindCharfield, "alice").Canonical()
		age := row.Of(row.KindUInt1, uint8(30)).Canonical()

		r.NotEqual(Derive(name, age), Derive(age, name))
		r.NotEqual(Derive(name, age), Derive(name, row.Of(row.KindUInt1, uint8(31)).Canonical()))
	})

	t.Run("columns and encodings agree", func(t *testing.T) {
		r := require.New(t)

		c := row.Of(row.KindAddress, row.Bytes32{9})
		r.Equal(Derive(c.Canonical()), FromColumns(c))
	})

	t.Run("is the leading digest bytes", func(t *testing.T) {
		r := require.New(t)

		sum := blake2b.Sum256([]byte("abc"))
		r.Equal(binary.BigEndian.Uint64(sum[:8]), Derive([]byte("a"), []byte("bc")))

		h := NewHasher()
		h.Write([]byte("abc"))
		r.NotEmpty(h.CAS())
	})
}
