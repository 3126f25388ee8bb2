package lsm

import (
	"bytes"
	"math"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lannywong2000/PeterDB/dbms/index"
	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
)

func TestEncodingPreservesOrder(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	gen := map[ixpage.KeyType]func() ixpage.Key{
		ixpage.TypeInt: func() ixpage.Key { return ixpage.IntKey(int32(r.Uint32())) },
		ixpage.TypeFloat: func() ixpage.Key {
			return ixpage.FloatKey(float32(r.NormFloat64() * 1000))
		},
		ixpage.TypeVarChar: func() ixpage.Key {
			b := make([]byte, r.Intn(6))
			for i := range b {
				b[i] = byte(r.Intn(256))
			}
			return ixpage.BytesKey(b)
		},
	}
	for kt, next := range gen {
		t.Run(kt.String(), func(t *testing.T) {
			type pair struct {
				k   ixpage.Key
				rid ixpage.RID
				enc []byte
			}
			var ps []pair
			for i := 0; i < 500; i++ {
				k, rid := next(), ixpage.RID{PageNum: uint32(r.Intn(3)), SlotNum: uint16(r.Intn(3))}
				ps = append(ps, pair{k, rid, encodeEntry(k, rid)})
			}
			sort.Slice(ps, func(i, j int) bool { return bytes.Compare(ps[i].enc, ps[j].enc) < 0 })
			for i := 1; i < len(ps); i++ {
				c := ixpage.CompareKeys(ps[i-1].k, ps[i].k)
				if c == 0 {
					c = ixpage.CompareRID(ps[i-1].rid, ps[i].rid)
				}
				assert.LessOrEqual(t, c, 0, "%s %s before %s %s", ps[i-1].k, ps[i-1].rid, ps[i].k, ps[i].rid)
			}
			for _, p := range ps {
				k, rid, err := decodeEntry(p.enc, kt)
				require.NoError(t, err)
				assert.Equal(t, 0, ixpage.CompareKeys(p.k, k))
				assert.Equal(t, p.rid, rid)
			}
		})
	}
}

func TestEncodeFloatZero(t *testing.T) {
	assert.Equal(t, encodeKey(nil, ixpage.FloatKey(0)), encodeKey(nil, ixpage.FloatKey(float32(math.Copysign(0, -1)))))
}

func TestLSMIndex(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "lsm"), ixpage.TypeInt)
	require.NoError(t, err)
	defer l.Close()

	for i, k := range []int32{5, 3, 8, 1, 9, 2, 7, 5} {
		require.NoError(t, l.Insert(ixpage.IntKey(k), ixpage.RID{PageNum: 0, SlotNum: uint16(i)}))
	}
	assert.True(t, errors.IsAlreadyExists(l.Insert(ixpage.IntKey(5), ixpage.RID{SlotNum: 7})))
	assert.True(t, errors.IsNotValid(l.Insert(ixpage.FloatKey(1), ixpage.RID{})))

	rids, err := l.Get(ixpage.IntKey(5))
	require.NoError(t, err)
	assert.Equal(t, []ixpage.RID{{SlotNum: 0}, {SlotNum: 7}}, rids)

	three, seven := ixpage.IntKey(3), ixpage.IntKey(7)
	it, err := l.Range(&three, &seven, false, true)
	require.NoError(t, err)
	keys, _, err := index.Collect(it)
	require.NoError(t, err)
	var got []int32
	for _, k := range keys {
		got = append(got, k.Int())
	}
	assert.Equal(t, []int32{5, 5, 7}, got)

	require.NoError(t, l.Delete(ixpage.IntKey(5), ixpage.RID{SlotNum: 0}))
	assert.True(t, errors.IsNotFound(l.Delete(ixpage.IntKey(5), ixpage.RID{SlotNum: 0})))

	it, err = l.Range(nil, &three, false, false)
	require.NoError(t, err)
	keys, _, err = index.Collect(it)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
