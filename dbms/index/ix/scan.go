package ix

import (
	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
)

// ScanIterator walks the leaf chain over a key range. It is forward only and
// cannot be restarted.
type ScanIterator struct {
	h   *Handle
	kt  ixpage.KeyType
	cur ixpage.LeafCursor

	high     *ixpage.Key
	highRID  ixpage.RID
	highIncl bool

	key  ixpage.Key
	rid  ixpage.RID
	done bool
	err  error
}

// Scan returns an iterator over the entries whose key lies between low and high.
// A nil bound is unbounded on that side. An index with no entries yields nothing.
func (m *Manager) Scan(h *Handle, kt ixpage.KeyType, low, high *ixpage.Key, lowInclusive, highInclusive bool) (*ScanIterator, error) {
	for _, k := range []*ixpage.Key{low, high} {
		if k == nil {
			continue
		}
		if err := checkKey(kt, *k); err != nil {
			return nil, err
		}
	}
	ok, err := h.prepare(kt)
	if err != nil {
		return nil, err
	}
	it := &ScanIterator{h: h, kt: kt, highIncl: highInclusive}
	if !ok {
		it.done = true
		return it, nil
	}
	if high != nil {
		hk := *high
		it.high = &hk
		// Comparing against (high, MaxRID) or (high, MinRID) compares the key alone.
		it.highRID = ixpage.MinRID
		if highInclusive {
			it.highRID = ixpage.MaxRID
		}
	}

	// Inclusive low starts before every RID of the key, exclusive low after.
	var lowKey ixpage.Key
	lowRID := ixpage.MinRID
	if low != nil {
		lowKey = *low
		if !lowInclusive {
			lowRID = ixpage.MaxRID
		}
	}
	_, leaf, err := h.descend(lowKey, lowRID, low == nil)
	if err != nil {
		return nil, err
	}
	it.cur = ixpage.NewLeafCursor(leaf, kt)
	if low != nil {
		for it.cur.Valid() {
			c := it.cur.Compare(lowKey, lowRID)
			if c > 0 || (c == 0 && lowInclusive) {
				break
			}
			it.cur.Advance()
		}
	}
	return it, nil
}

// Next moves to the next entry in range and reports whether there is one.
func (it *ScanIterator) Next() bool {
	if it.done {
		return false
	}
	for !it.cur.Valid() {
		next := it.cur.Page().NextLeaf()
		if next == ixpage.NoPage {
			it.done = true
			return false
		}
		p, err := it.h.readPage(next)
		if err != nil {
			it.err = err
			it.done = true
			return false
		}
		it.cur = ixpage.NewLeafCursor(p, it.kt)
	}

	if it.high != nil {
		c := it.cur.Compare(*it.high, it.highRID)
		if c > 0 || (c == 0 && !it.highIncl) {
			it.done = true
			return false
		}
	}
	it.key, it.rid = it.cur.Entry()
	it.cur.Advance()
	return true
}

func (it *ScanIterator) Key() ixpage.Key { return it.key }
func (it *ScanIterator) RID() ixpage.RID { return it.rid }

// Error returns the error that ended the scan early, if any.
func (it *ScanIterator) Error() error { return it.err }

// Close drops the leaf buffer and the bound. Next returns false afterwards.
func (it *ScanIterator) Close() error {
	it.done = true
	it.cur = ixpage.LeafCursor{}
	it.high = nil
	return nil
}
