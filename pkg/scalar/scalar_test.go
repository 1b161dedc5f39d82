package scalar

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"miren.dev/indexer/pkg/row"
)

func TestRegistry(t *testing.T) {
	t.Run("resolves builtin scalars", func(t *testing.T) {
		r := require.New(t)

		tests := []struct {
			name  string
			kind  row.Kind
			typ   reflect.Type
			clone CloneStrategy
		}{
			{"ID", row.KindID, reflect.TypeFor[uint64](), Copy},
			{"UInt1", row.KindUInt1, reflect.TypeFor[uint8](), Copy},
			{"BlockHeight", row.KindBlockHeight, reflect.TypeFor[uint32](), Copy},
			{"Timestamp", row.KindTimestamp, reflect.TypeFor[int64](), Copy},
			{"Charfield", row.KindCharfield, reflect.TypeFor[string](), Copy},
			{"Address", row.KindAddress, reflect.TypeFor[row.Bytes32](), Copy},
			{"Signature", row.KindSignature, reflect.TypeFor[row.Bytes64](), Copy},
			{"Blob", row.KindBlob, reflect.TypeFor[[]byte](), Deep},
			{"HexString", row.KindHexString, reflect.TypeFor[[]byte](), Deep},
		}

		for _, tt := range tests {
			s, err := Default().Resolve(tt.name)
			r.NoError(err, tt.name)

			r.Equal(tt.name, s.Name)
			r.Equal(tt.kind, s.Kind, tt.name)
			r.Equal(tt.typ, s.GoType, tt.name)
			r.Equal(tt.clone, s.Clone, tt.name)
		}
	})

	t.Run("fails on unknown scalars", func(t *testing.T) {
		r := require.New(t)

		_, err := Default().Resolve("Decimal")
		r.ErrorIs(err, ErrUnknownScalar)
		r.ErrorContains(err, "Decimal")
	})

	t.Run("every builtin has a default of its type", func(t *testing.T) {
		r := require.New(t)

		for _, n := range Default().Names() {
			s, err := Default().Resolve(n)
			r.NoError(err)
			r.Equal(s.GoType, reflect.TypeOf(s.Default), n)
		}
	})

	t.Run("rejects duplicates and non-scalar kinds", func(t *testing.T) {
		r := require.New(t)

		reg := NewRegistry()
		r.NoError(reg.Register("Money", row.KindInt8))
		r.Error(reg.Register("Money", row.KindInt8))
		r.Error(reg.Register("List", row.KindArray))
		r.True(reg.Has("Money"))
		r.False(reg.Has("ID"))
	})
}

func TestEncode(t *testing.T) {
	t.Run("is deterministic and total", func(t *testing.T) {
		r := require.New(t)

		s, err := Default().Resolve("Charfield")
		r.NoError(err)

		a, err := s.Encode("fuel")
		r.NoError(err)

		b, err := s.Encode("fuel")
		r.NoError(err)

		r.Equal(a, b)

		d, err := s.Encode(nil)
		r.NoError(err)
		r.Equal([]byte{0}, d)
	})

	t.Run("rejects values of the wrong type", func(t *testing.T) {
		r := require.New(t)

		s, err := Default().Resolve("UInt4")
		r.NoError(err)

		_, err = s.Encode(uint64(1))
		r.ErrorIs(err, row.ErrValueType)
	})

	t.Run("deep clones blobs", func(t *testing.T) {
		r := require.New(t)

		s, err := Default().Resolve("Blob")
		r.NoError(err)

		b := []byte{1, 2}
		c := s.CloneValue(b).([]byte)
		b[0] = 7

		r.Equal([]byte{1, 2}, c)
	})
}
