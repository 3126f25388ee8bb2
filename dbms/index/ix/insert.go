package ix

import (
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
)

// InsertEntry adds (key, rid) to the index. kt must match the index's key type;
// the first insert fixes it. Inserting an existing composite key fails with an
// AlreadyExists error and leaves the index unchanged.
func (m *Manager) InsertEntry(h *Handle, kt ixpage.KeyType, key ixpage.Key, rid ixpage.RID) error {
	if err := checkKey(kt, key); err != nil {
		return err
	}
	if h.store != nil && !ixpage.Fits(key, h.store.PageSize()) {
		return errors.NotValidf("key of %d bytes for page size %d", key.Len(), h.store.PageSize())
	}
	ok, err := h.prepare(kt)
	if err != nil {
		return err
	}
	if !ok {
		return m.createTree(h, kt, key, rid)
	}

	e, err := m.insertRec(h, h.root, key, rid)
	if err != nil || e == nil {
		return err
	}
	return m.growRoot(h, *e)
}

// createTree lays out an empty index: the metadata page, then a single leaf at
// page 1 holding the first entry.
func (m *Manager) createTree(h *Handle, kt ixpage.KeyType, key ixpage.Key, rid ixpage.RID) error {
	h.root, h.keyType = 1, kt
	if err := h.appendPage(metaPage, h.encodeMeta()); err != nil {
		return err
	}
	leaf := h.newPage()
	ixpage.InitLeaf(leaf)
	leaf.InsertLeaf(ixpage.HeaderSize, key, rid)
	if err := h.appendPage(1, leaf); err != nil {
		return err
	}
	m.log.WithField("type", kt).Debugf("initialised index %s", h.name)
	return nil
}

// growRoot puts a new node above the old root holding the entry pushed up by its
// split, then records it as the root.
func (m *Manager) growRoot(h *Handle, e ixpage.Entry) error {
	num := h.store.PageCount()
	p := h.newPage()
	ixpage.InitRoot(p, h.root, e)
	if err := h.appendPage(num, p); err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{"old": h.root, "root": num}).Debug("root split")
	h.root = num
	return h.writeMeta()
}

// insertRec inserts into the subtree at page num. A non-nil entry means the page
// split: it carries the separator and the new right sibling for the parent.
func (m *Manager) insertRec(h *Handle, num uint32, key ixpage.Key, rid ixpage.RID) (*ixpage.Entry, error) {
	p, err := h.readPage(num)
	if err != nil {
		return nil, err
	}
	if p.IsLeaf() {
		return m.insertLeaf(h, num, p, key, rid)
	}

	child, pos := p.FindChild(key, rid)
	e, err := m.insertRec(h, child, key, rid)
	if err != nil || e == nil {
		return nil, err
	}

	if p.NodeHasSpace(*e) {
		p.InsertNode(pos, *e)
		return nil, h.writePage(num, p)
	}

	sibling := h.store.PageCount()
	right := h.newPage()
	pushed, err := ixpage.SplitNode(p, right, sibling, pos, *e)
	if err != nil {
		return nil, errors.Annotatef(err, "split node %d", num)
	}
	if err := h.appendPage(sibling, right); err != nil {
		return nil, err
	}
	if err := h.writePage(num, p); err != nil {
		return nil, err
	}
	m.log.WithFields(logrus.Fields{"page": num, "sibling": sibling, "root": num == h.root}).Debug("node split")
	return &pushed, nil
}

func (m *Manager) insertLeaf(h *Handle, num uint32, p ixpage.Page, key ixpage.Key, rid ixpage.RID) (*ixpage.Entry, error) {
	off, found := p.FindInLeaf(key, rid)
	if found {
		return nil, errors.AlreadyExistsf("entry %s %s", key, rid)
	}
	if p.LeafHasSpace(key) {
		p.InsertLeaf(off, key, rid)
		return nil, h.writePage(num, p)
	}

	sibling := h.store.PageCount()
	right := h.newPage()
	first, err := ixpage.SplitLeaf(p, right, sibling, off, key, rid)
	if err != nil {
		return nil, errors.Annotatef(err, "split leaf %d", num)
	}
	if err := h.appendPage(sibling, right); err != nil {
		return nil, err
	}
	if err := h.writePage(num, p); err != nil {
		return nil, err
	}
	m.log.WithFields(logrus.Fields{"page": num, "sibling": sibling, "root": num == h.root}).Debug("leaf split")
	return &first, nil
}
