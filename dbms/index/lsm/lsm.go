// Package lsm stores a secondary index directly in Pebble (CockroachDB's LSM
// storage engine) behind the common Index interface, so it can be benchmarked
// alongside the paged B+ tree.
//
// Each (key, RID) entry is one pebble key with an empty value. Keys are encoded
// so that pebble's byte order equals the composite order of the B+ tree.
package lsm

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/pebble"
	"github.com/juju/errors"

	"github.com/lannywong2000/PeterDB/dbms/index"
	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
)

type LSM struct {
	db *pebble.DB
	kt ixpage.KeyType
}

var _ index.Index = (*LSM)(nil)

// Open opens (or creates) a Pebble database at the given directory path.
func Open(dir string, kt ixpage.KeyType) (*LSM, error) {
	if !kt.Valid() {
		return nil, errors.NotValidf("key type %d", uint32(kt))
	}
	opts := &pebble.Options{
		MemTableSize: 16 << 20,
		// Keep spare memtables so one can be flushed while the other is active.
		MemTableStopWritesThreshold: 4,
		// L0 compaction trigger.
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Annotatef(err, "lsm: open %q", dir)
	}
	return &LSM{db: db, kt: kt}, nil
}

// Close cleanly shuts down Pebble, flushing any in-memory state.
func (l *LSM) Close() error {
	return errors.Trace(l.db.Close())
}

func (l *LSM) Insert(key ixpage.Key, rid ixpage.RID) error {
	if err := l.check(key); err != nil {
		return err
	}
	k := encodeEntry(key, rid)
	found, err := l.has(k)
	if err != nil {
		return err
	}
	if found {
		return errors.AlreadyExistsf("entry %s %s", key, rid)
	}
	return errors.Annotatef(l.db.Set(k, nil, pebble.NoSync), "lsm: insert")
}

func (l *LSM) Delete(key ixpage.Key, rid ixpage.RID) error {
	if err := l.check(key); err != nil {
		return err
	}
	k := encodeEntry(key, rid)
	found, err := l.has(k)
	if err != nil {
		return err
	}
	if !found {
		return errors.NotFoundf("entry %s %s", key, rid)
	}
	return errors.Annotatef(l.db.Delete(k, pebble.NoSync), "lsm: delete")
}

func (l *LSM) Get(key ixpage.Key) ([]ixpage.RID, error) {
	it, err := l.Range(&key, &key, true, true)
	if err != nil {
		return nil, err
	}
	_, rids, err := index.Collect(it)
	return rids, err
}

// Range returns an iterator over the entries between low and high.
func (l *LSM) Range(low, high *ixpage.Key, lowInclusive, highInclusive bool) (index.Iterator, error) {
	iterOpts := &pebble.IterOptions{}
	if low != nil {
		if err := l.check(*low); err != nil {
			return nil, err
		}
		if lowInclusive {
			iterOpts.LowerBound = encodeKey(nil, *low)
		} else {
			iterOpts.LowerBound = successor(encodeEntry(*low, ixpage.MaxRID))
		}
	}
	if high != nil {
		if err := l.check(*high); err != nil {
			return nil, err
		}
		if highInclusive {
			iterOpts.UpperBound = successor(encodeEntry(*high, ixpage.MaxRID))
		} else {
			iterOpts.UpperBound = encodeKey(nil, *high)
		}
	}
	iter, err := l.db.NewIter(iterOpts)
	if err != nil {
		return nil, errors.Annotatef(err, "lsm: range")
	}
	iter.First()
	return &rangeIterator{iter: iter, kt: l.kt, first: true}, nil
}

func (l *LSM) check(k ixpage.Key) error {
	if k.Type() != l.kt {
		return errors.NotValidf("%s key for %s index", k.Type(), l.kt)
	}
	return nil
}

func (l *LSM) has(k []byte) (bool, error) {
	_, closer, err := l.db.Get(k)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, errors.Annotatef(err, "lsm: get")
	}
	closer.Close()
	return true, nil
}

// ─── Key encoding ─────────────────────────────────────────────────────────────

// encodeKey appends an order-preserving form of k: big-endian with the sign bit
// flipped for ints, the usual sign-magnitude flip for floats, and the text up to
// its first NUL followed by a 0x00 terminator.
func encodeKey(dst []byte, k ixpage.Key) []byte {
	var b [4]byte
	switch k.Type() {
	case ixpage.TypeInt:
		binary.BigEndian.PutUint32(b[:], uint32(k.Int())^(1<<31))
		return append(dst, b[:]...)
	case ixpage.TypeFloat:
		f := k.Float()
		if f == 0 {
			f = 0 // -0 sorts with +0
		}
		bits := math.Float32bits(f)
		if bits&(1<<31) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 31
		}
		binary.BigEndian.PutUint32(b[:], bits)
		return append(dst, b[:]...)
	}
	text := k.Bytes()
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	dst = append(dst, text...)
	return append(dst, 0)
}

func encodeEntry(k ixpage.Key, rid ixpage.RID) []byte {
	dst := encodeKey(make([]byte, 0, k.Len()+ixpage.RIDSize+1), k)
	var b [ixpage.RIDSize]byte
	binary.BigEndian.PutUint32(b[:4], rid.PageNum)
	binary.BigEndian.PutUint16(b[4:], rid.SlotNum)
	return append(dst, b[:]...)
}

// successor is the smallest key sorting after k.
func successor(k []byte) []byte { return append(k, 0) }

func decodeEntry(b []byte, kt ixpage.KeyType) (ixpage.Key, ixpage.RID, error) {
	var (
		k ixpage.Key
		n int
	)
	switch kt {
	case ixpage.TypeInt:
		if len(b) < 4 {
			return k, ixpage.RID{}, errors.NotValidf("lsm key of %d bytes", len(b))
		}
		k, n = ixpage.IntKey(int32(binary.BigEndian.Uint32(b)^(1<<31))), 4
	case ixpage.TypeFloat:
		if len(b) < 4 {
			return k, ixpage.RID{}, errors.NotValidf("lsm key of %d bytes", len(b))
		}
		bits := binary.BigEndian.Uint32(b)
		if bits&(1<<31) != 0 {
			bits &^= 1 << 31
		} else {
			bits = ^bits
		}
		k, n = ixpage.FloatKey(math.Float32frombits(bits)), 4
	default:
		i := bytes.IndexByte(b, 0)
		if i < 0 {
			return k, ixpage.RID{}, errors.NotValidf("unterminated lsm text key")
		}
		k, n = ixpage.BytesKey(b[:i]), i+1
	}
	if len(b)-n != ixpage.RIDSize {
		return k, ixpage.RID{}, errors.NotValidf("lsm key of %d bytes", len(b))
	}
	rid := ixpage.RID{
		PageNum: binary.BigEndian.Uint32(b[n:]),
		SlotNum: binary.BigEndian.Uint16(b[n+4:]),
	}
	return k, rid, nil
}

// ─── Range Iterator ───────────────────────────────────────────────────────────

type rangeIterator struct {
	iter  *pebble.Iterator
	kt    ixpage.KeyType
	first bool
	key   ixpage.Key
	rid   ixpage.RID
	err   error
}

func (it *rangeIterator) Next() bool {
	if it.err != nil {
		return false
	}
	var valid bool
	if it.first {
		// iter.First() was already called in Range(); just check validity.
		it.first = false
		valid = it.iter.Valid()
	} else {
		valid = it.iter.Next()
	}
	if !valid {
		return false
	}
	it.key, it.rid, it.err = decodeEntry(it.iter.Key(), it.kt)
	return it.err == nil
}

func (it *rangeIterator) Key() ixpage.Key { return it.key }
func (it *rangeIterator) RID() ixpage.RID { return it.rid }

func (it *rangeIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return errors.Trace(it.iter.Error())
}

func (it *rangeIterator) Close() error { return errors.Trace(it.iter.Close()) }
