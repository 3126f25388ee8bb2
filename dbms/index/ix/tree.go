package ix

import (
	"github.com/juju/errors"

	"github.com/lannywong2000/PeterDB/dbms/index"
	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
)

// Tree binds a Manager, an open Handle and a key type into an index.Index.
type Tree struct {
	m  *Manager
	h  *Handle
	kt ixpage.KeyType
}

var _ index.Index = (*Tree)(nil)

// Open opens the index file at name, creating it first if it does not exist.
func Open(m *Manager, name string, kt ixpage.KeyType) (*Tree, error) {
	if !kt.Valid() {
		return nil, errors.NotValidf("key type %d", uint32(kt))
	}
	h, err := m.OpenFile(name)
	if errors.IsNotFound(err) {
		if err = m.CreateFile(name); err != nil {
			return nil, err
		}
		h, err = m.OpenFile(name)
	}
	if err != nil {
		return nil, err
	}
	if !h.Empty() && h.keyType != kt {
		m.CloseFile(h)
		return nil, errors.NotValidf("key type %s for %s index %s", kt, h.keyType, name)
	}
	return &Tree{m: m, h: h, kt: kt}, nil
}

func (t *Tree) Handle() *Handle { return t.h }

func (t *Tree) Insert(key ixpage.Key, rid ixpage.RID) error {
	return t.m.InsertEntry(t.h, t.kt, key, rid)
}

func (t *Tree) Delete(key ixpage.Key, rid ixpage.RID) error {
	return t.m.DeleteEntry(t.h, t.kt, key, rid)
}

func (t *Tree) Get(key ixpage.Key) ([]ixpage.RID, error) {
	it, err := t.m.Scan(t.h, t.kt, &key, &key, true, true)
	if err != nil {
		return nil, err
	}
	_, rids, err := index.Collect(it)
	return rids, err
}

func (t *Tree) Range(low, high *ixpage.Key, lowInclusive, highInclusive bool) (index.Iterator, error) {
	it, err := t.m.Scan(t.h, t.kt, low, high, lowInclusive, highInclusive)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (t *Tree) Close() error { return t.m.CloseFile(t.h) }
