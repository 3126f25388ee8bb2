package ixpage

import (
	"encoding/binary"

	"github.com/juju/errors"
)

// NodePos is the slot in a node where an entry propagated from the child at the
// same index is inserted: its key becomes key index, its page pointer index+1.
type NodePos struct {
	index int
}

func (p Page) keysStart() int { return HeaderSize + (p.Count()+1)*PointerSize }

func (p Page) child(i int) uint32 {
	off := HeaderSize + i*PointerSize
	return binary.LittleEndian.Uint32(p[off : off+4])
}

// FirstChild is the leftmost child pointer of a node.
func (p Page) FirstChild() uint32 { return p.child(0) }

// FindChild returns the child to descend into for (k, rid): the pointer after the
// last key that is <= (k, rid).
func (p Page) FindChild(k Key, rid RID) (uint32, NodePos) {
	n := p.Count()
	i, off := 0, p.keysStart()
	for i < n {
		if CompareComposite(p[off:], k, rid) > 0 {
			break
		}
		off += CompositeLength(p[off:], k.Type())
		i++
	}
	return p.child(i), NodePos{index: i}
}

// NodeHasSpace reports whether e and its child pointer fit in the node.
func (p Page) NodeHasSpace(e Entry) bool { return p.HasSpace(e.Len() + PointerSize) }

// InsertNode puts e at pos, its key before key pos.index and e.Child right after
// the pointer the search descended through. The caller checks space.
func (p Page) InsertNode(pos NodePos, e Entry) {
	kt := e.Key.Type()
	keyOff := p.keysStart()
	for i := 0; i < pos.index; i++ {
		keyOff += CompositeLength(p[keyOff:], kt)
	}
	buf := make([]byte, e.Len())
	e.put(buf)
	p.insertAt(keyOff, buf)

	var ptr [PointerSize]byte
	binary.LittleEndian.PutUint32(ptr[:], e.Child)
	p.insertAt(HeaderSize+(pos.index+1)*PointerSize, ptr[:])
	p.setCount(p.Count() + 1)
}

// InitRoot makes p a node with a single key whose children are left and e.Child.
func InitRoot(p Page, left uint32, e Entry) {
	InitNode(p)
	p.build([]uint32{left, e.Child}, []Entry{e})
}

// build lays out children and entries on an empty node.
func (p Page) build(children []uint32, entries []Entry) {
	off := HeaderSize
	for _, c := range children {
		binary.LittleEndian.PutUint32(p[off:off+4], c)
		off += PointerSize
	}
	for _, e := range entries {
		off += e.put(p[off:])
	}
	p.setCount(len(entries))
	p.setFreeStart(off)
}

// nodeMid returns the index of the key pushed up by a split; the keys before it
// stay left. Fixed-width keys split by count; text keys at the first key crossing
// half of the space left after the pointer block.
func (p Page) nodeMid(kt KeyType) int {
	n := p.Count()
	if kt != TypeVarChar {
		return n / 2
	}
	overhead := p.keysStart()
	half := overhead + (len(p)-overhead)/2
	old, off := 0, overhead
	for old < n && off < half {
		off += CompositeLength(p[off:], kt)
		old++
	}
	if old >= n {
		old = n - 1
	}
	return old
}

// splitPoint starts at nodeMid and moves to the nearest key whose split leaves
// room for e on its half and at least one key on the other. On small pages the
// text midpoint alone can leave the receiving half too full.
func (p Page) splitPoint(entries []Entry, pos NodePos, e Entry) int {
	n := len(entries)
	mid := p.nodeMid(e.Key.Type())
	for d := 0; d < n; d++ {
		for _, old := range []int{mid - d, mid + d} {
			if old < 0 || old >= n {
				continue
			}
			half, other := entries[:old], entries[old+1:]
			if pos.index > old {
				half, other = other, half
			}
			if len(other) > 0 && nodeSize(half)+e.Len()+PointerSize <= len(p)-NodeTrailerSize {
				return old
			}
		}
	}
	return mid
}

// nodeSize is the bytes used by a node holding entries and one more child than that.
func nodeSize(entries []Entry) int {
	n := HeaderSize + (len(entries)+1)*PointerSize
	for _, e := range entries {
		n += e.Len()
	}
	return n
}

// SplitNode splits the full node left, moving the keys after the middle one and
// their children into right (page rightNum), then inserts e at pos on the half
// that owns it. The middle key is not kept on either page; it is returned with
// Child set to rightNum for the parent.
func SplitNode(left, right Page, rightNum uint32, pos NodePos, e Entry) (Entry, error) {
	kt := e.Key.Type()
	children := left.Children()
	entries := left.NodeEntries(kt)
	old := left.splitPoint(entries, pos, e)
	pushed := entries[old]
	pushed.Child = rightNum

	InitNode(right)
	right.build(children[old+1:], entries[old+1:])
	InitNode(left)
	left.build(children[:old+1], entries[:old])

	target, at := left, pos.index
	if pos.index > old {
		target, at = right, pos.index-old-1
	}
	if !target.NodeHasSpace(e) {
		return Entry{}, errors.Annotatef(ErrPageOverflow, "node split of %d keys", len(entries))
	}
	target.InsertNode(NodePos{index: at}, e)
	return pushed, nil
}

// Children returns the N+1 child pointers of a node.
func (p Page) Children() []uint32 {
	n := p.Count()
	out := make([]uint32, n+1)
	for i := range out {
		out[i] = p.child(i)
	}
	return out
}

// NodeEntries decodes the keys of a node; each Child is the pointer to the key's right.
func (p Page) NodeEntries(kt KeyType) []Entry {
	n := p.Count()
	out := make([]Entry, 0, n)
	off := p.keysStart()
	for i := 0; i < n; i++ {
		e, size := decodeEntry(p[off:], kt)
		e.Child = p.child(i + 1)
		out = append(out, e)
		off += size
	}
	return out
}
