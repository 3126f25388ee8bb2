package ixpage

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLength(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want int
	}{
		{"int", IntKey(-7), 4},
		{"float", FloatKey(1.5), 4},
		{"empty text", TextKey(""), 4},
		{"text", TextKey("alice"), 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.key.Encode()
			assert.Equal(t, tt.want, len(buf))
			assert.Equal(t, tt.want, KeyLength(buf, tt.key.Type()))
			assert.Equal(t, tt.want+RIDSize, CompositeLength(append(buf, make([]byte, RIDSize)...), tt.key.Type()))
		})
	}
}

func TestDecodeKey(t *testing.T) {
	for _, k := range []Key{IntKey(math.MinInt32), FloatKey(-0.25), TextKey("bobby")} {
		got, n := DecodeKey(k.Encode(), k.Type())
		assert.Equal(t, k.Len(), n)
		assert.Equal(t, k.String(), got.String())
		assert.Equal(t, 0, CompareKeys(k, got))
	}
}

func TestCompareKey(t *testing.T) {
	tests := []struct {
		name string
		a, b Key
		want int
	}{
		{"int less", IntKey(-5), IntKey(3), -1},
		{"int greater overflow range", IntKey(math.MaxInt32), IntKey(math.MinInt32), 1},
		{"int equal", IntKey(9), IntKey(9), 0},
		{"float less", FloatKey(1.25), FloatKey(1.5), -1},
		{"float equal", FloatKey(2), FloatKey(2), 0},
		{"text order", TextKey("alice"), TextKey("bob"), -1},
		{"text prefix first", TextKey("bob"), TextKey("bobby"), -1},
		{"text longer after", TextKey("bobby"), TextKey("bob"), 1},
		{"text unsigned bytes", TextKey("\xff"), TextKey("a"), 1},
		{"text stops at nul", BytesKey([]byte("ab\x00z")), TextKey("ab"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareKey(tt.a.Encode(), tt.b))
		})
	}
}

func TestCompareComposite(t *testing.T) {
	e := Entry{Key: IntKey(4), RID: RID{PageNum: 2, SlotNum: 3}}
	buf := make([]byte, e.Len())
	e.put(buf)

	assert.Equal(t, 0, CompareComposite(buf, IntKey(4), RID{2, 3}))
	assert.Equal(t, 1, CompareComposite(buf, IntKey(4), RID{2, 2}))
	assert.Equal(t, -1, CompareComposite(buf, IntKey(4), RID{3, 0}))
	assert.Equal(t, 1, CompareComposite(buf, IntKey(3), MaxRID))
	assert.Equal(t, -1, CompareComposite(buf, IntKey(4), MaxRID))
	assert.Equal(t, 1, CompareComposite(buf, IntKey(4), MinRID))
}

func TestInitLeaf(t *testing.T) {
	p := make(Page, 64)
	InitLeaf(p)

	assert.True(t, p.IsLeaf())
	assert.Equal(t, byte(0x80), p[0])
	assert.Equal(t, 0, p.Count())
	assert.Equal(t, HeaderSize, p.FreeStart())
	assert.Equal(t, NoPage, p.NextLeaf())
	assert.Equal(t, uint32(NoPage), binary.LittleEndian.Uint32(p[58:62]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(p[62:64]))
	assert.Equal(t, 64-3-6, p.FreeSpace())
}

func TestInitNode(t *testing.T) {
	p := make(Page, 64)
	InitNode(p)

	assert.False(t, p.IsLeaf())
	assert.Equal(t, HeaderSize, p.FreeStart())
	assert.Equal(t, 64-3-2, p.FreeSpace())
}

func TestLeafInsertFindRemove(t *testing.T) {
	p := make(Page, 128)
	InitLeaf(p)

	for i, v := range []int32{5, 1, 3} {
		off, found := p.FindInLeaf(IntKey(v), RID{0, uint16(i)})
		require.False(t, found)
		p.InsertLeaf(off, IntKey(v), RID{0, uint16(i)})
	}
	require.Equal(t, 3, p.Count())
	assert.Equal(t, HeaderSize+3*10, p.FreeStart())

	var got []int32
	for _, e := range p.LeafEntries(TypeInt) {
		got = append(got, e.Key.Int())
	}
	assert.Equal(t, []int32{1, 3, 5}, got)

	off, found := p.FindInLeaf(IntKey(3), RID{0, 2})
	require.True(t, found)
	assert.Equal(t, HeaderSize+10, off)

	_, found = p.FindInLeaf(IntKey(3), RID{0, 1})
	assert.False(t, found)

	p.RemoveLeaf(off, TypeInt)
	assert.Equal(t, 2, p.Count())
	assert.Equal(t, HeaderSize+2*10, p.FreeStart())
	assert.Equal(t, make([]byte, 10), []byte(p[HeaderSize+20:HeaderSize+30]))
	entries := p.LeafEntries(TypeInt)
	assert.Equal(t, int32(1), entries[0].Key.Int())
	assert.Equal(t, int32(5), entries[1].Key.Int())
}

func fillLeaf(t *testing.T, p Page, keys ...Key) {
	t.Helper()
	for i, k := range keys {
		off, found := p.FindInLeaf(k, RID{1, uint16(i)})
		require.False(t, found)
		require.True(t, p.LeafHasSpace(k))
		p.InsertLeaf(off, k, RID{1, uint16(i)})
	}
}

func TestSplitLeafFixedWidth(t *testing.T) {
	left := make(Page, 64)
	right := make(Page, 64)
	InitLeaf(left)
	left.SetNextLeaf(9)
	fillLeaf(t, left, IntKey(10), IntKey(20), IntKey(30), IntKey(40), IntKey(50))
	require.False(t, left.LeafHasSpace(IntKey(35)))

	off, _ := left.FindInLeaf(IntKey(35), RID{1, 7})
	first, err := SplitLeaf(left, right, 4, off, IntKey(35), RID{1, 7})
	require.NoError(t, err)

	assert.Equal(t, uint32(4), left.NextLeaf())
	assert.Equal(t, uint32(9), right.NextLeaf())
	assert.Equal(t, 2, left.Count())
	assert.Equal(t, 4, right.Count())
	assert.Equal(t, int32(30), first.Key.Int())
	assert.Equal(t, uint32(4), first.Child)

	var keys []int32
	for _, e := range right.LeafEntries(TypeInt) {
		keys = append(keys, e.Key.Int())
	}
	assert.Equal(t, []int32{30, 35, 40, 50}, keys)
}

func TestSplitLeafPendingGoesLeftAtMidpoint(t *testing.T) {
	left := make(Page, 64)
	right := make(Page, 64)
	InitLeaf(left)
	fillLeaf(t, left, IntKey(10), IntKey(20), IntKey(30), IntKey(40), IntKey(50))

	off, _ := left.FindInLeaf(IntKey(25), RID{1, 7})
	first, err := SplitLeaf(left, right, 2, off, IntKey(25), RID{1, 7})
	require.NoError(t, err)
	assert.Equal(t, 3, left.Count())
	assert.Equal(t, 3, right.Count())
	assert.Equal(t, int32(30), first.Key.Int())
}

func TestSplitLeafText(t *testing.T) {
	left := make(Page, 128)
	right := make(Page, 128)
	InitLeaf(left)
	long := "xxxxxxxxxxxxxxxxxxxxx"
	// two long keys then short ones: the byte midpoint keeps only the long keys
	// on the left, where a count split would keep three entries.
	fillLeaf(t, left, TextKey("a"+long), TextKey("b"+long), TextKey("c"), TextKey("d"),
		TextKey("e"), TextKey("f"), TextKey("g"))
	k := TextKey("h")
	require.False(t, left.LeafHasSpace(k))

	off, _ := left.FindInLeaf(k, RID{1, 9})
	first, err := SplitLeaf(left, right, 3, off, k, RID{1, 9})
	require.NoError(t, err)

	// running offsets: 3, 35, 67 >= 64 after two entries
	assert.Equal(t, 2, left.Count())
	assert.Equal(t, 6, right.Count())
	assert.Equal(t, "c", first.Key.String())
	assert.Equal(t, 67, left.FreeStart())
	assert.Equal(t, HeaderSize+5*11+11, right.FreeStart())
}

func TestNodeInsertAndFindChild(t *testing.T) {
	p := make(Page, 128)
	InitRoot(p, 1, Entry{Key: IntKey(50), RID: RID{0, 0}, Child: 2})

	assert.False(t, p.IsLeaf())
	assert.Equal(t, 1, p.Count())
	assert.Equal(t, []uint32{1, 2}, p.Children())
	assert.Equal(t, HeaderSize+2*4+10, p.FreeStart())

	child, pos := p.FindChild(IntKey(70), RID{0, 0})
	assert.Equal(t, uint32(2), child)
	p.InsertNode(pos, Entry{Key: IntKey(80), RID: RID{0, 0}, Child: 3})

	child, pos = p.FindChild(IntKey(10), RID{0, 0})
	assert.Equal(t, uint32(1), child)
	p.InsertNode(pos, Entry{Key: IntKey(20), RID: RID{0, 0}, Child: 4})

	assert.Equal(t, []uint32{1, 4, 2, 3}, p.Children())
	var keys []int32
	for _, e := range p.NodeEntries(TypeInt) {
		keys = append(keys, e.Key.Int())
	}
	assert.Equal(t, []int32{20, 50, 80}, keys)

	// equal composite keys descend right of the separator
	child, _ = p.FindChild(IntKey(50), RID{0, 0})
	assert.Equal(t, uint32(2), child)
	child, _ = p.FindChild(IntKey(50), MinRID)
	assert.Equal(t, uint32(2), child)
	child, _ = p.FindChild(IntKey(49), MaxRID)
	assert.Equal(t, uint32(4), child)
	assert.Equal(t, uint32(1), p.FirstChild())
}

func TestSplitNodeFixedWidth(t *testing.T) {
	left := make(Page, 64)
	right := make(Page, 64)
	InitRoot(left, 100, Entry{Key: IntKey(10), Child: 101})
	_, pos := left.FindChild(IntKey(20), MinRID)
	left.InsertNode(pos, Entry{Key: IntKey(20), Child: 102})
	_, pos = left.FindChild(IntKey(30), MinRID)
	left.InsertNode(pos, Entry{Key: IntKey(30), Child: 103})

	pending := Entry{Key: IntKey(40), Child: 104}
	require.False(t, left.NodeHasSpace(pending))
	_, pos = left.FindChild(IntKey(40), MinRID)

	pushed, err := SplitNode(left, right, 7, pos, pending)
	require.NoError(t, err)

	assert.Equal(t, int32(20), pushed.Key.Int())
	assert.Equal(t, uint32(7), pushed.Child)
	assert.Equal(t, []uint32{100, 101}, left.Children())
	assert.Equal(t, []uint32{102, 103, 104}, right.Children())
	assert.Equal(t, 1, left.Count())
	assert.Equal(t, 2, right.Count())
	assert.Equal(t, int32(30), right.NodeEntries(TypeInt)[0].Key.Int())
	assert.Equal(t, int32(40), right.NodeEntries(TypeInt)[1].Key.Int())
}

func TestFits(t *testing.T) {
	assert.True(t, Fits(IntKey(1), 64))
	assert.True(t, Fits(TextKey(string(make([]byte, 100))), 4096))
	assert.False(t, Fits(TextKey(string(make([]byte, 1100))), 4096))
}

func TestSplitNodeTextMovesSplitPoint(t *testing.T) {
	left := make(Page, 128)
	right := make(Page, 128)
	InitNode(left)
	var entries []Entry
	for i, s := range []string{"a", "ba", "bb", "bc", "cxxxxxxxxxxxxxx", "ddd"} {
		entries = append(entries, Entry{Key: TextKey(s), RID: RID{1, uint16(i)}})
	}
	left.build([]uint32{100, 101, 102, 103, 104, 105, 106}, entries)

	// the byte midpoint keeps five keys on the left, leaving no room there for a
	// long key sorting first
	pending := Entry{Key: TextKey("AAAAAAAAAAAAAAA"), RID: RID{1, 9}, Child: 200}
	require.False(t, left.NodeHasSpace(pending))
	require.Equal(t, 5, left.nodeMid(TypeVarChar))

	pushed, err := SplitNode(left, right, 9, NodePos{index: 0}, pending)
	require.NoError(t, err)
	assert.Equal(t, "cxxxxxxxxxxxxxx", pushed.Key.String())
	assert.Equal(t, uint32(9), pushed.Child)
	assert.Equal(t, []uint32{100, 200, 101, 102, 103, 104}, left.Children())
	assert.Equal(t, []uint32{105, 106}, right.Children())
	assert.Equal(t, "AAAAAAAAAAAAAAA", left.NodeEntries(TypeVarChar)[0].Key.String())
	assert.Equal(t, "ddd", right.NodeEntries(TypeVarChar)[0].Key.String())
}
