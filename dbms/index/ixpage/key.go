package ixpage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// KeyType is the tag stored in the metadata page. All keys of one index share it.
type KeyType uint32

const (
	TypeInt     KeyType = 0
	TypeFloat   KeyType = 1
	TypeVarChar KeyType = 2
)

func (kt KeyType) String() string {
	switch kt {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeVarChar:
		return "varchar"
	}
	return fmt.Sprintf("KeyType(%d)", uint32(kt))
}

// Valid reports whether kt is one of the three supported key types.
func (kt KeyType) Valid() bool { return kt <= TypeVarChar }

// Key is a decoded index key: an int32, a float32 or a byte string.
type Key struct {
	typ  KeyType
	i    int32
	f    float32
	text []byte
}

func IntKey(v int32) Key     { return Key{typ: TypeInt, i: v} }
func FloatKey(v float32) Key { return Key{typ: TypeFloat, f: v} }
func TextKey(s string) Key   { return Key{typ: TypeVarChar, text: []byte(s)} }

// BytesKey copies b, the key never aliases caller memory.
func BytesKey(b []byte) Key {
	text := make([]byte, len(b))
	copy(text, b)
	return Key{typ: TypeVarChar, text: text}
}

func (k Key) Type() KeyType  { return k.typ }
func (k Key) Int() int32     { return k.i }
func (k Key) Float() float32 { return k.f }
func (k Key) Bytes() []byte  { return k.text }

func (k Key) String() string {
	switch k.typ {
	case TypeInt:
		return fmt.Sprintf("%d", k.i)
	case TypeFloat:
		return fmt.Sprintf("%g", k.f)
	}
	return string(cstring(k.text))
}

// Len is the encoded size of the key on a page.
func (k Key) Len() int {
	if k.typ == TypeVarChar {
		return 4 + len(k.text)
	}
	return 4
}

// Encode returns the on-page form of the key.
func (k Key) Encode() []byte {
	buf := make([]byte, k.Len())
	k.put(buf)
	return buf
}

func (k Key) put(buf []byte) int {
	switch k.typ {
	case TypeInt:
		binary.LittleEndian.PutUint32(buf, uint32(k.i))
	case TypeFloat:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(k.f))
	default:
		binary.LittleEndian.PutUint32(buf, uint32(len(k.text)))
		copy(buf[4:], k.text)
	}
	return k.Len()
}

// DecodeKey reads a key of type kt from the start of buf.
func DecodeKey(buf []byte, kt KeyType) (Key, int) {
	switch kt {
	case TypeInt:
		return IntKey(int32(binary.LittleEndian.Uint32(buf))), 4
	case TypeFloat:
		return FloatKey(math.Float32frombits(binary.LittleEndian.Uint32(buf))), 4
	}
	n := KeyLength(buf, kt)
	return BytesKey(buf[4:n]), n
}

// KeyLength is the encoded length of the key at the start of buf.
func KeyLength(buf []byte, kt KeyType) int {
	if kt == TypeVarChar {
		return 4 + int(binary.LittleEndian.Uint32(buf))
	}
	return 4
}

// CompositeLength is the encoded length of the key + RID entry at the start of buf.
func CompositeLength(buf []byte, kt KeyType) int {
	return KeyLength(buf, kt) + RIDSize
}

// RID locates a row in the record manager.
type RID struct {
	PageNum uint32
	SlotNum uint16
}

const RIDSize = 6

var (
	MinRID = RID{PageNum: 0, SlotNum: 0}
	MaxRID = RID{PageNum: math.MaxUint32, SlotNum: math.MaxUint16}
)

func (r RID) String() string { return fmt.Sprintf("(%d,%d)", r.PageNum, r.SlotNum) }

func (r RID) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf, r.PageNum)
	binary.LittleEndian.PutUint16(buf[4:], r.SlotNum)
}

func getRID(buf []byte) RID {
	return RID{
		PageNum: binary.LittleEndian.Uint32(buf),
		SlotNum: binary.LittleEndian.Uint16(buf[4:]),
	}
}

// CompareRID orders by page number, then slot number.
func CompareRID(a, b RID) int {
	switch {
	case a.PageNum < b.PageNum:
		return -1
	case a.PageNum > b.PageNum:
		return 1
	case a.SlotNum < b.SlotNum:
		return -1
	case a.SlotNum > b.SlotNum:
		return 1
	}
	return 0
}

// CompareKey compares the encoded key at the start of buf with k.
func CompareKey(buf []byte, k Key) int {
	switch k.typ {
	case TypeInt:
		v := int32(binary.LittleEndian.Uint32(buf))
		switch {
		case v < k.i:
			return -1
		case v > k.i:
			return 1
		}
		return 0
	case TypeFloat:
		v := math.Float32frombits(binary.LittleEndian.Uint32(buf))
		switch {
		case v < k.f:
			return -1
		case v > k.f:
			return 1
		}
		return 0
	}
	n := KeyLength(buf, TypeVarChar)
	return bytes.Compare(cstring(buf[4:n]), cstring(k.text))
}

// CompareComposite compares the (key, RID) entry at the start of buf with (k, rid).
func CompareComposite(buf []byte, k Key, rid RID) int {
	if c := CompareKey(buf, k); c != 0 {
		return c
	}
	return CompareRID(getRID(buf[KeyLength(buf, k.typ):]), rid)
}

// CompareKeys orders two decoded keys of the same type.
func CompareKeys(a, b Key) int {
	buf := make([]byte, a.Len())
	a.put(buf)
	return CompareKey(buf, b)
}

// cstring cuts b at its first NUL so text keys order like strcmp.
func cstring(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

// Entry is a composite key together with the page it points to. Inside a node the
// pointer is the child to the right of the key; coming out of a split it is the new
// sibling page.
type Entry struct {
	Key   Key
	RID   RID
	Child uint32
}

// Len is the encoded size of the entry's composite key.
func (e Entry) Len() int { return e.Key.Len() + RIDSize }

func (e Entry) put(buf []byte) int {
	n := e.Key.put(buf)
	e.RID.put(buf[n:])
	return n + RIDSize
}

func decodeEntry(buf []byte, kt KeyType) (Entry, int) {
	k, n := DecodeKey(buf, kt)
	return Entry{Key: k, RID: getRID(buf[n:])}, n + RIDSize
}
