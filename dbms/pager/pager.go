package pager

import (
	"encoding/binary"
	"os"

	"github.com/juju/errors"
)

// File layout: one hidden header page followed by the data pages, so data page n
// lives at byte (n+1)*pageSize.
//
//	[0-3]   page count
//	[4-7]   read counter
//	[8-11]  write counter
//	[12-15] append counter
//	[16-19] page size
const headerLen = 20

// Pager is a Store backed by a single file. It caches recently used pages.
type Pager struct {
	file      *os.File
	cache     *lruCache
	pageSize  int
	pageCount uint32
	stats     Stats
}

var _ Store = (*Pager)(nil)

// Create makes a new, empty paged file. It fails if path already exists.
func Create(path string, pageSize int) error {
	if err := checkPageSize(pageSize); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return errors.AlreadyExistsf("paged file %q", path)
		}
		return errors.Annotatef(err, "pager create %q", path)
	}
	p := &Pager{file: f, pageSize: pageSize}
	if err := p.writeHeader(); err != nil {
		f.Close()
		return err
	}
	return errors.Trace(f.Close())
}

// Destroy removes the paged file at path.
func Destroy(path string) error {
	if !Exists(path) {
		return errors.NotFoundf("paged file %q", path)
	}
	return errors.Annotatef(os.Remove(path), "pager destroy %q", path)
}

// Open opens a file made by Create. cacheSize is the number of pages to hold in
// the LRU cache; zero disables caching.
func Open(path string, cacheSize int) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("paged file %q", path)
		}
		return nil, errors.Annotatef(err, "pager open %q", path)
	}

	var hdr [headerLen]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		f.Close()
		return nil, errors.Annotatef(err, "pager: read header of %q", path)
	}
	p := &Pager{
		file:      f,
		cache:     newLRUCache(cacheSize),
		pageCount: binary.LittleEndian.Uint32(hdr[0:4]),
		stats: Stats{
			Reads:   binary.LittleEndian.Uint32(hdr[4:8]),
			Writes:  binary.LittleEndian.Uint32(hdr[8:12]),
			Appends: binary.LittleEndian.Uint32(hdr[12:16]),
		},
		pageSize: int(binary.LittleEndian.Uint32(hdr[16:20])),
	}
	if err := checkPageSize(p.pageSize); err != nil {
		f.Close()
		return nil, errors.Annotatef(err, "pager: header of %q", path)
	}
	return p, nil
}

func (p *Pager) PageSize() int     { return p.pageSize }
func (p *Pager) PageCount() uint32 { return p.pageCount }
func (p *Pager) Stats() Stats      { return p.stats }

// Read returns a copy of page num, from cache or disk.
func (p *Pager) Read(num uint32) ([]byte, error) {
	if err := checkPage("read", num, p.pageCount, nil, p.pageSize); err != nil {
		return nil, err
	}
	p.stats.Reads++
	pg := make([]byte, p.pageSize)
	if cached := p.cache.get(num); cached != nil {
		copy(pg, cached)
		return pg, nil
	}
	if _, err := p.file.ReadAt(pg, p.offset(num)); err != nil {
		return nil, errors.Annotatef(err, "pager: read page %d", num)
	}
	p.cache.put(num, pg)
	return pg, nil
}

// Write writes a page back to disk and updates the cache.
func (p *Pager) Write(num uint32, data []byte) error {
	if err := checkPage("write", num, p.pageCount, data, p.pageSize); err != nil {
		return err
	}
	if _, err := p.file.WriteAt(data, p.offset(num)); err != nil {
		return errors.Annotatef(err, "pager: write page %d", num)
	}
	p.stats.Writes++
	p.cache.put(num, data)
	return nil
}

// Append extends the file by one page and returns its number.
func (p *Pager) Append(data []byte) (uint32, error) {
	num := p.pageCount
	if err := checkPage("append", num, num+1, data, p.pageSize); err != nil {
		return 0, err
	}
	if _, err := p.file.WriteAt(data, p.offset(num)); err != nil {
		return 0, errors.Annotatef(err, "pager: append page %d", num)
	}
	p.pageCount++
	p.stats.Appends++
	if err := p.writeHeader(); err != nil {
		return 0, err
	}
	p.cache.put(num, data)
	return num, nil
}

// Close persists the counters and closes the file.
func (p *Pager) Close() error {
	if p.file == nil {
		return nil
	}
	err := p.writeHeader()
	if cerr := p.file.Close(); err == nil {
		err = errors.Trace(cerr)
	}
	p.file = nil
	return err
}

// --- internal helpers ---

func (p *Pager) offset(num uint32) int64 {
	return (int64(num) + 1) * int64(p.pageSize)
}

func (p *Pager) writeHeader() error {
	hdr := make([]byte, p.pageSize)
	binary.LittleEndian.PutUint32(hdr[0:4], p.pageCount)
	binary.LittleEndian.PutUint32(hdr[4:8], p.stats.Reads)
	binary.LittleEndian.PutUint32(hdr[8:12], p.stats.Writes)
	binary.LittleEndian.PutUint32(hdr[12:16], p.stats.Appends)
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(p.pageSize))
	if _, err := p.file.WriteAt(hdr, 0); err != nil {
		return errors.Annotatef(err, "pager: write header")
	}
	return nil
}
