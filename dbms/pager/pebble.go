package pager

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/juju/errors"
)

// PebbleStore keeps pages in a pebble database, one value per page. The header
// record holds the page size, the page count and the counters in the same layout
// as the file Pager's header page.
type PebbleStore struct {
	db        *pebble.DB
	pageSize  int
	pageCount uint32
	stats     Stats
}

var _ Store = (*PebbleStore)(nil)

var headerKey = []byte("header")

func pebbleOptions() *pebble.Options {
	return &pebble.Options{
		MemTableSize: 16 << 20,
		// Keep spare memtables so one can be flushed while the other is active.
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
	}
}

// CreatePebble makes a new, empty page database in dir. It fails if dir exists.
func CreatePebble(dir string, pageSize int) error {
	if err := checkPageSize(pageSize); err != nil {
		return err
	}
	if Exists(dir) {
		return errors.AlreadyExistsf("page database %q", dir)
	}
	opts := pebbleOptions()
	opts.ErrorIfExists = true
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return errors.Annotatef(err, "pebble: create %q", dir)
	}
	s := &PebbleStore{db: db, pageSize: pageSize}
	if err := s.writeHeader(nil); err != nil {
		db.Close()
		return err
	}
	return errors.Trace(db.Close())
}

// OpenPebble opens a database made by CreatePebble.
func OpenPebble(dir string) (*PebbleStore, error) {
	if !Exists(dir) {
		return nil, errors.NotFoundf("page database %q", dir)
	}
	opts := pebbleOptions()
	opts.ErrorIfNotExists = true
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Annotatef(err, "pebble: open %q", dir)
	}

	val, closer, err := db.Get(headerKey)
	if err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "pebble: read header of %q", dir)
	}
	hdr := append([]byte(nil), val...)
	closer.Close()
	if len(hdr) < headerLen {
		db.Close()
		return nil, errors.NotValidf("pebble header of %d bytes", len(hdr))
	}
	s := &PebbleStore{
		db:        db,
		pageCount: binary.LittleEndian.Uint32(hdr[0:4]),
		stats: Stats{
			Reads:   binary.LittleEndian.Uint32(hdr[4:8]),
			Writes:  binary.LittleEndian.Uint32(hdr[8:12]),
			Appends: binary.LittleEndian.Uint32(hdr[12:16]),
		},
		pageSize: int(binary.LittleEndian.Uint32(hdr[16:20])),
	}
	if err := checkPageSize(s.pageSize); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "pebble: header of %q", dir)
	}
	return s, nil
}

// DestroyPebble removes the database directory.
func DestroyPebble(dir string) error {
	if !Exists(dir) {
		return errors.NotFoundf("page database %q", dir)
	}
	return errors.Annotatef(os.RemoveAll(dir), "pebble: destroy %q", dir)
}

func (s *PebbleStore) PageSize() int     { return s.pageSize }
func (s *PebbleStore) PageCount() uint32 { return s.pageCount }
func (s *PebbleStore) Stats() Stats      { return s.stats }

func (s *PebbleStore) Read(num uint32) ([]byte, error) {
	if err := checkPage("read", num, s.pageCount, nil, s.pageSize); err != nil {
		return nil, err
	}
	val, closer, err := s.db.Get(pageKey(num))
	if err != nil {
		return nil, errors.Annotatef(err, "pebble: read page %d", num)
	}
	// val is only valid until closer.Close(), so we copy it.
	pg := make([]byte, len(val))
	copy(pg, val)
	closer.Close()
	s.stats.Reads++
	return pg, nil
}

func (s *PebbleStore) Write(num uint32, data []byte) error {
	if err := checkPage("write", num, s.pageCount, data, s.pageSize); err != nil {
		return err
	}
	if err := s.db.Set(pageKey(num), data, pebble.NoSync); err != nil {
		return errors.Annotatef(err, "pebble: write page %d", num)
	}
	s.stats.Writes++
	return nil
}

// Append stores the page and the new header in one batch.
func (s *PebbleStore) Append(data []byte) (uint32, error) {
	num := s.pageCount
	if err := checkPage("append", num, num+1, data, s.pageSize); err != nil {
		return 0, err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(pageKey(num), data, nil); err != nil {
		return 0, errors.Trace(err)
	}
	s.pageCount++
	s.stats.Appends++
	if err := s.writeHeader(b); err != nil {
		s.pageCount--
		s.stats.Appends--
		return 0, err
	}
	return num, nil
}

// Close persists the counters and shuts pebble down, flushing in-memory state.
func (s *PebbleStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.writeHeader(nil)
	if cerr := s.db.Close(); err == nil {
		err = errors.Trace(cerr)
	}
	s.db = nil
	return err
}

// pageKey encodes a page number big-endian so pages sort in order.
func pageKey(num uint32) []byte {
	k := make([]byte, 5)
	k[0] = 'p'
	binary.BigEndian.PutUint32(k[1:], num)
	return k
}

// writeHeader stores the header record, through b when it is non-nil.
func (s *PebbleStore) writeHeader(b *pebble.Batch) error {
	hdr := make([]byte, headerLen)
	binary.LittleEndian.PutUint32(hdr[0:4], s.pageCount)
	binary.LittleEndian.PutUint32(hdr[4:8], s.stats.Reads)
	binary.LittleEndian.PutUint32(hdr[8:12], s.stats.Writes)
	binary.LittleEndian.PutUint32(hdr[12:16], s.stats.Appends)
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(s.pageSize))
	if b == nil {
		return errors.Annotatef(s.db.Set(headerKey, hdr, pebble.Sync), "pebble: write header")
	}
	if err := b.Set(headerKey, hdr, nil); err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(b.Commit(pebble.NoSync), "pebble: append")
}
