// Package ix is a disk-backed B+ tree secondary index.
//
// An index file maps composite keys (key, RID) to nothing: the RID is the
// payload. Page 0 holds the metadata, the root page number and the key type,
// and is written on the first insert and whenever the root splits. Every other
// page is a leaf or a node in the ixpage layout. Pages are never freed: deletes
// only remove leaf entries.
//
// A Manager and the Handles it opens are not safe for concurrent use.
package ix

import (
	"encoding/binary"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
	"github.com/lannywong2000/PeterDB/dbms/pager"
)

const metaPage = 0

// Manager creates, opens and operates on index files.
type Manager struct {
	opts Options
	log  *logrus.Logger
}

func NewManager(opts Options) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Manager{opts: opts, log: opts.logger()}, nil
}

// Handle is an open index file.
type Handle struct {
	name    string
	store   pager.Store
	root    uint32
	keyType ixpage.KeyType
}

// Name is the path the handle was opened with.
func (h *Handle) Name() string { return h.name }

// CollectCounterValues returns the page reads, writes and appends made on the file
// since it was created.
func (h *Handle) CollectCounterValues() (reads, writes, appends uint32) {
	s := h.store.Stats()
	return s.Reads, s.Writes, s.Appends
}

// Empty reports whether nothing was ever inserted into the index.
func (h *Handle) Empty() bool { return h.store.PageCount() == 0 }

// ─── Files ────────────────────────────────────────────────────────────────────

func (m *Manager) CreateFile(name string) error {
	var err error
	switch m.opts.Backend {
	case BackendPebble:
		err = pager.CreatePebble(name, m.opts.PageSize)
	default:
		err = pager.Create(name, m.opts.PageSize)
	}
	if err != nil {
		return err
	}
	m.log.WithField("backend", m.opts.Backend).Infof("created index file %s", name)
	return nil
}

func (m *Manager) DestroyFile(name string) error {
	var err error
	switch m.opts.Backend {
	case BackendPebble:
		err = pager.DestroyPebble(name)
	default:
		err = pager.Destroy(name)
	}
	if err != nil {
		return err
	}
	m.log.Infof("destroyed index file %s", name)
	return nil
}

// OpenFile opens an index file and reads its metadata if it has any.
func (m *Manager) OpenFile(name string) (*Handle, error) {
	var (
		store pager.Store
		err   error
	)
	switch m.opts.Backend {
	case BackendPebble:
		store, err = pager.OpenPebble(name)
	default:
		store, err = pager.Open(name, m.opts.CachePages)
	}
	if err != nil {
		return nil, err
	}
	h := &Handle{name: name, store: store}
	if !h.Empty() {
		if err := h.readMeta(); err != nil {
			store.Close()
			return nil, err
		}
	}
	m.log.WithFields(logrus.Fields{"root": h.root, "pages": store.PageCount()}).Debugf("opened index file %s", name)
	return h, nil
}

// CloseFile persists the page counters and releases the file.
func (m *Manager) CloseFile(h *Handle) error {
	if h == nil || h.store == nil {
		return errors.NotValidf("closed handle")
	}
	err := h.store.Close()
	h.store = nil
	return errors.Trace(err)
}

// ─── Metadata ─────────────────────────────────────────────────────────────────
//
//	[0-3]  root page number
//	[4-7]  key type

func (h *Handle) readMeta() error {
	p, err := h.store.Read(metaPage)
	if err != nil {
		return errors.Annotatef(err, "read metadata of %s", h.name)
	}
	h.root = binary.LittleEndian.Uint32(p[0:4])
	h.keyType = ixpage.KeyType(binary.LittleEndian.Uint32(p[4:8]))
	if !h.keyType.Valid() {
		return errors.NotValidf("key type %d in %s", uint32(h.keyType), h.name)
	}
	return nil
}

func (h *Handle) encodeMeta() []byte {
	p := make([]byte, h.store.PageSize())
	binary.LittleEndian.PutUint32(p[0:4], h.root)
	binary.LittleEndian.PutUint32(p[4:8], uint32(h.keyType))
	return p
}

func (h *Handle) writeMeta() error {
	return errors.Annotatef(h.store.Write(metaPage, h.encodeMeta()), "write metadata of %s", h.name)
}

// prepare re-reads the metadata before an operation and checks the key type. It
// reports false for an index with no entries.
func (h *Handle) prepare(kt ixpage.KeyType) (bool, error) {
	if h.store == nil {
		return false, errors.NotValidf("closed handle")
	}
	if h.Empty() {
		return false, nil
	}
	if err := h.readMeta(); err != nil {
		return false, err
	}
	if kt != h.keyType {
		return false, errors.NotValidf("key type %s for %s index", kt, h.keyType)
	}
	return true, nil
}

// ─── Pages ────────────────────────────────────────────────────────────────────

func (h *Handle) readPage(num uint32) (ixpage.Page, error) {
	p, err := h.store.Read(num)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ixpage.Page(p), nil
}

func (h *Handle) writePage(num uint32, p ixpage.Page) error {
	return errors.Trace(h.store.Write(num, p))
}

func (h *Handle) newPage() ixpage.Page { return make(ixpage.Page, h.store.PageSize()) }

// appendPage stores p as the next page, which must be number want.
func (h *Handle) appendPage(want uint32, p ixpage.Page) error {
	num, err := h.store.Append(p)
	if err != nil {
		return errors.Trace(err)
	}
	if num != want {
		return errors.Errorf("appended page %d, expected %d", num, want)
	}
	return nil
}

// descend follows child pointers from the root to the leaf holding (k, rid).
// With first set it always takes the leftmost child.
func (h *Handle) descend(k ixpage.Key, rid ixpage.RID, first bool) (uint32, ixpage.Page, error) {
	num := h.root
	for {
		p, err := h.readPage(num)
		if err != nil {
			return 0, nil, err
		}
		if p.IsLeaf() {
			return num, p, nil
		}
		if first {
			num = p.FirstChild()
		} else {
			num, _ = p.FindChild(k, rid)
		}
	}
}

func checkKey(kt ixpage.KeyType, k ixpage.Key) error {
	if !kt.Valid() {
		return errors.NotValidf("key type %d", uint32(kt))
	}
	if k.Type() != kt {
		return errors.NotValidf("%s key for key type %s", k.Type(), kt)
	}
	return nil
}
