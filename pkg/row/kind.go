package row

import (
	"reflect"
)

// Kind tags a Column with the scalar it carries. The tag travels with the
// column so a row can be decoded without consulting the schema.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindID
	KindAddress
	KindAssetId
	KindBlob
	KindBlockHeight
	KindBoolean
	KindBytes4
	KindBytes8
	KindBytes32
	KindBytes64
	KindCharfield
	KindContractId
	KindHexString
	KindInt1
	KindInt4
	KindInt8
	KindJson
	KindMessageId
	KindNonce
	KindSalt
	KindSignature
	KindTimestamp
	KindTxId
	KindUInt1
	KindUInt4
	KindUInt8
	KindVirtual
	KindArray

	kindCount
)

type kindInfo struct {
	name  string
	short string
	typ   reflect.Type
	width int // fixed canonical width, 0 for variable length
}

var kinds = [kindCount]kindInfo{
	KindInvalid:     {"Invalid", "xx", nil, 0},
	KindID:          {"ID", "id", reflect.TypeFor[uint64](), 8},
	KindAddress:     {"Address", "ad", reflect.TypeFor[Bytes32](), 32},
	KindAssetId:     {"AssetId", "as", reflect.TypeFor[Bytes32](), 32},
	KindBlob:        {"Blob", "bl", reflect.TypeFor[[]byte](), 0},
	KindBlockHeight: {"BlockHeight", "bh", reflect.TypeFor[uint32](), 4},
	KindBoolean:     {"Boolean", "bo", reflect.TypeFor[bool](), 1},
	KindBytes4:      {"Bytes4", "b4", reflect.TypeFor[Bytes4](), 4},
	KindBytes8:      {"Bytes8", "b8", reflect.TypeFor[Bytes8](), 8},
	KindBytes32:     {"Bytes32", "b32", reflect.TypeFor[Bytes32](), 32},
	KindBytes64:     {"Bytes64", "b64", reflect.TypeFor[Bytes64](), 64},
	KindCharfield:   {"Charfield", "cf", reflect.TypeFor[string](), 0},
	KindContractId:  {"ContractId", "ci", reflect.TypeFor[Bytes32](), 32},
	KindHexString:   {"HexString", "hx", reflect.TypeFor[[]byte](), 0},
	KindInt1:        {"Int1", "i1", reflect.TypeFor[int8](), 1},
	KindInt4:        {"Int4", "i4", reflect.TypeFor[int32](), 4},
	KindInt8:        {"Int8", "i8", reflect.TypeFor[int64](), 8},
	KindJson:        {"Json", "js", reflect.TypeFor[string](), 0},
	KindMessageId:   {"MessageId", "mi", reflect.TypeFor[Bytes32](), 32},
	KindNonce:       {"Nonce", "nc", reflect.TypeFor[Bytes32](), 32},
	KindSalt:        {"Salt", "sa", reflect.TypeFor[Bytes32](), 32},
	KindSignature:   {"Signature", "sg", reflect.TypeFor[Bytes64](), 64},
	KindTimestamp:   {"Timestamp", "ts", reflect.TypeFor[int64](), 8},
	KindTxId:        {"TxId", "tx", reflect.TypeFor[Bytes32](), 32},
	KindUInt1:       {"UInt1", "u1", reflect.TypeFor[uint8](), 1},
	KindUInt4:       {"UInt4", "u4", reflect.TypeFor[uint32](), 4},
	KindUInt8:       {"UInt8", "u8", reflect.TypeFor[uint64](), 8},
	KindVirtual:     {"Virtual", "vt", reflect.TypeFor[string](), 0},
	KindArray:       {"Array", "ar", nil, 0},
}

func (k Kind) valid() bool {
	return k > KindInvalid && k < kindCount
}

func (k Kind) String() string {
	if k < kindCount {
		return kinds[k].name
	}
	return "<unknown row.Kind>"
}

func (k Kind) ShortString() string {
	if k < kindCount {
		return kinds[k].short
	}
	return "??"
}

// GoType returns the native Go type a column of this kind holds. Array
// columns have no single native type and return nil.
func (k Kind) GoType() reflect.Type {
	if !k.valid() {
		return nil
	}
	return kinds[k].typ
}

// Scalar reports whether k tags a single scalar value (every kind but Array).
func (k Kind) Scalar() bool {
	return k.valid() && k != KindArray
}

// ParseKind returns the kind whose name matches s.
func ParseKind(s string) (Kind, bool) {
	for i := KindID; i < kindCount; i++ {
		if kinds[i].name == s {
			return i, true
		}
	}
	return KindInvalid, false
}

// Zero returns the default value for a scalar kind.
func (k Kind) Zero() any {
	if !k.Scalar() {
		return nil
	}
	return reflect.Zero(kinds[k].typ).Interface()
}
