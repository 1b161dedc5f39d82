package row

import (
	"encoding/hex"
	"fmt"
	"strings"
)

type (
	Bytes4  [4]byte
	Bytes8  [8]byte
	Bytes32 [32]byte
	Bytes64 [64]byte
)

func decodeFixed(dst []byte, text []byte) error {
	s := strings.TrimPrefix(string(text), "0x")
	if hex.DecodedLen(len(s)) != len(dst) {
		return fmt.Errorf("expected %d hex bytes, got %d characters", len(dst), len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}

func (b Bytes4) String() string  { return "0x" + hex.EncodeToString(b[:]) }
func (b Bytes8) String() string  { return "0x" + hex.EncodeToString(b[:]) }
func (b Bytes32) String() string { return "0x" + hex.EncodeToString(b[:]) }
func (b Bytes64) String() string { return "0x" + hex.EncodeToString(b[:]) }

func (b Bytes4) MarshalText() ([]byte, error)  { return []byte(b.String()), nil }
func (b Bytes8) MarshalText() ([]byte, error)  { return []byte(b.String()), nil }
func (b Bytes32) MarshalText() ([]byte, error) { return []byte(b.String()), nil }
func (b Bytes64) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Bytes4) UnmarshalText(text []byte) error  { return decodeFixed(b[:], text) }
func (b *Bytes8) UnmarshalText(text []byte) error  { return decodeFixed(b[:], text) }
func (b *Bytes32) UnmarshalText(text []byte) error { return decodeFixed(b[:], text) }
func (b *Bytes64) UnmarshalText(text []byte) error { return decodeFixed(b[:], text) }
