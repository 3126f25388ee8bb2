package ixpage

import (
	"github.com/juju/errors"
)

// ErrPageOverflow means an entry did not fit on the page it was routed to.
var ErrPageOverflow = errors.New("entry does not fit on page")

// FindInLeaf returns the offset at which (k, rid) is stored or would be inserted,
// and whether that exact composite key is already present.
func (p Page) FindInLeaf(k Key, rid RID) (int, bool) {
	off := HeaderSize
	for i, n := 0, p.Count(); i < n; i++ {
		c := CompareComposite(p[off:], k, rid)
		if c == 0 {
			return off, true
		}
		if c > 0 {
			break
		}
		off += CompositeLength(p[off:], k.Type())
	}
	return off, false
}

func (p Page) LeafHasSpace(k Key) bool { return p.HasSpace(k.Len() + RIDSize) }

// InsertLeaf stores (k, rid) at off, as returned by FindInLeaf. The caller checks space.
func (p Page) InsertLeaf(off int, k Key, rid RID) {
	e := Entry{Key: k, RID: rid}
	buf := make([]byte, e.Len())
	e.put(buf)
	p.insertAt(off, buf)
	p.setCount(p.Count() + 1)
}

// RemoveLeaf drops the entry at off and shifts the following entries left.
func (p Page) RemoveLeaf(off int, kt KeyType) {
	p.removeAt(off, CompositeLength(p[off:], kt))
	p.setCount(p.Count() - 1)
}

// leafMid returns how many entries stay on the left page of a split. Fixed-width
// keys split by count; text keys split at the first entry crossing half the page.
func (p Page) leafMid(kt KeyType) int {
	n := p.Count()
	if kt != TypeVarChar {
		return n / 2
	}
	old, off := 0, HeaderSize
	for old < n && off < len(p)/2 {
		off += CompositeLength(p[off:], kt)
		old++
	}
	if old >= n {
		old = n - 1
	}
	return old
}

func (p Page) leafOffset(i int, kt KeyType) int {
	off := HeaderSize
	for ; i > 0; i-- {
		off += CompositeLength(p[off:], kt)
	}
	return off
}

// SplitLeaf moves the upper part of the full leaf left into right, which becomes
// page rightNum and is linked between left and left's old successor. (k, rid) is
// then inserted at off (from FindInLeaf on left) on whichever half owns it. The
// returned entry is the first of right, to be copied into the parent.
func SplitLeaf(left, right Page, rightNum uint32, off int, k Key, rid RID) (Entry, error) {
	kt := k.Type()
	n := left.Count()
	old := left.leafMid(kt)
	mid := left.leafOffset(old, kt)
	free := left.FreeStart()

	InitLeaf(right)
	right.SetNextLeaf(left.NextLeaf())
	left.SetNextLeaf(rightNum)

	copy(right[HeaderSize:], left[mid:free])
	right.setFreeStart(HeaderSize + free - mid)
	right.setCount(n - old)

	clear(left[mid:free])
	left.setFreeStart(mid)
	left.setCount(old)

	target, at := left, off
	if off > mid {
		target, at = right, HeaderSize+off-mid
	}
	if !target.LeafHasSpace(k) {
		return Entry{}, errors.Annotatef(ErrPageOverflow, "leaf split of %d entries", n)
	}
	target.InsertLeaf(at, k, rid)

	first, _ := decodeEntry(right[HeaderSize:], kt)
	first.Child = rightNum
	return first, nil
}

// LeafEntries decodes every entry of a leaf.
func (p Page) LeafEntries(kt KeyType) []Entry {
	n := p.Count()
	out := make([]Entry, 0, n)
	off := HeaderSize
	for i := 0; i < n; i++ {
		e, size := decodeEntry(p[off:], kt)
		out = append(out, e)
		off += size
	}
	return out
}

// LeafCursor walks the entries of one leaf in order.
type LeafCursor struct {
	page Page
	kt   KeyType
	idx  int
	off  int
}

func NewLeafCursor(p Page, kt KeyType) LeafCursor {
	return LeafCursor{page: p, kt: kt, off: HeaderSize}
}

// Valid reports whether the cursor is on an entry.
func (c *LeafCursor) Valid() bool { return c.idx < c.page.Count() }

// Compare compares the current entry with (k, rid).
func (c *LeafCursor) Compare(k Key, rid RID) int {
	return CompareComposite(c.page[c.off:], k, rid)
}

// Entry decodes the current entry.
func (c *LeafCursor) Entry() (Key, RID) {
	e, _ := decodeEntry(c.page[c.off:], c.kt)
	return e.Key, e.RID
}

func (c *LeafCursor) Advance() {
	c.off += CompositeLength(c.page[c.off:], c.kt)
	c.idx++
}

// Page returns the leaf the cursor reads.
func (c *LeafCursor) Page() Page { return c.page }
