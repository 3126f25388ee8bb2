package ix

import (
	"github.com/juju/errors"

	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
)

// DeleteEntry removes (key, rid) from its leaf. Nodes are never touched and
// underfull or empty leaves stay in the tree.
func (m *Manager) DeleteEntry(h *Handle, kt ixpage.KeyType, key ixpage.Key, rid ixpage.RID) error {
	if err := checkKey(kt, key); err != nil {
		return err
	}
	ok, err := h.prepare(kt)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NotFoundf("entry %s %s in empty index", key, rid)
	}

	num, leaf, err := h.descend(key, rid, false)
	if err != nil {
		return err
	}
	off, found := leaf.FindInLeaf(key, rid)
	if !found {
		return errors.NotFoundf("entry %s %s", key, rid)
	}
	leaf.RemoveLeaf(off, kt)
	return h.writePage(num, leaf)
}
