// Package ixpage provides the on-disk page layout of the B+ tree index.
//
// Both page shapes share a 3-byte header and a trailer at the end of the page.
// The page size is the length of the buffer.
//
// Leaf page:
//
//	[0]       1 byte   flags, bit 7 set
//	[1-2]     2 bytes  entry count
//	[3..]     entries  [key][rid page:4][rid slot:2], ascending
//	          ...free space...
//	[P-6]     4 bytes  next leaf page number (NoPage = none)
//	[P-2]     2 bytes  start of free space
//
// Node page:
//
//	[0]       1 byte   flags, bit 7 clear
//	[1-2]     2 bytes  entry count N
//	[3..]     N+1 child page numbers, 4 bytes each
//	          N entries [key][rid page:4][rid slot:2], ascending
//	          ...free space...
//	[P-2]     2 bytes  start of free space
//
// Keys are a little-endian int32, a little-endian float32, or a 4-byte length
// followed by the text bytes.
package ixpage

import (
	"encoding/binary"
)

const (
	OffFlags = 0
	OffCount = 1

	HeaderSize = 3

	PointerSize = 4

	LeafTrailerSize = 6
	NodeTrailerSize = 2

	leafFlag = byte(1 << 7)

	NoPage = uint32(0xFFFFFFFF)
)

// Page is one fixed-size page buffer. Its length is the page size.
type Page []byte

// InitLeaf resets p to an empty leaf with no next page.
func InitLeaf(p Page) {
	clear(p)
	p[OffFlags] |= leafFlag
	p.setFreeStart(HeaderSize)
	p.SetNextLeaf(NoPage)
}

// InitNode resets p to an empty node.
func InitNode(p Page) {
	clear(p)
	p.setFreeStart(HeaderSize)
}

func (p Page) IsLeaf() bool { return p[OffFlags]&leafFlag != 0 }

func (p Page) Count() int {
	return int(binary.LittleEndian.Uint16(p[OffCount : OffCount+2]))
}

func (p Page) setCount(n int) {
	binary.LittleEndian.PutUint16(p[OffCount:OffCount+2], uint16(n))
}

// FreeStart is the offset of the first unused byte after the entries.
func (p Page) FreeStart() int {
	off := len(p) - 2
	return int(binary.LittleEndian.Uint16(p[off : off+2]))
}

func (p Page) setFreeStart(v int) {
	off := len(p) - 2
	binary.LittleEndian.PutUint16(p[off:off+2], uint16(v))
}

func (p Page) NextLeaf() uint32 {
	off := len(p) - LeafTrailerSize
	return binary.LittleEndian.Uint32(p[off : off+4])
}

func (p Page) SetNextLeaf(id uint32) {
	off := len(p) - LeafTrailerSize
	binary.LittleEndian.PutUint32(p[off:off+4], id)
}

func (p Page) trailerSize() int {
	if p.IsLeaf() {
		return LeafTrailerSize
	}
	return NodeTrailerSize
}

// FreeSpace is the number of unused bytes between the entries and the trailer.
func (p Page) FreeSpace() int {
	return len(p) - p.FreeStart() - p.trailerSize()
}

// HasSpace reports whether n more bytes fit on the page.
func (p Page) HasSpace(n int) bool { return p.FreeSpace() >= n }

// insertAt opens a gap of len(b) bytes at off, shifting the used tail right, and
// copies b into it. The free-space offset moves with the tail.
func (p Page) insertAt(off int, b []byte) {
	free := p.FreeStart()
	copy(p[off+len(b):free+len(b)], p[off:free])
	copy(p[off:], b)
	p.setFreeStart(free + len(b))
}

// removeAt closes the n-byte span at off and zeroes the vacated tail.
func (p Page) removeAt(off, n int) {
	free := p.FreeStart()
	copy(p[off:free-n], p[off+n:free])
	clear(p[free-n : free])
	p.setFreeStart(free - n)
}

// MaxEntrySize bounds a text entry (composite key plus one child pointer) so that
// either half of a split can still take the entry that caused it.
func MaxEntrySize(pageSize int) int {
	return (pageSize - HeaderSize - LeafTrailerSize) / 4
}

// Fits reports whether k can be stored in an index with the given page size.
func Fits(k Key, pageSize int) bool {
	if k.Type() != TypeVarChar {
		return true
	}
	return k.Len()+RIDSize+PointerSize <= MaxEntrySize(pageSize)
}
