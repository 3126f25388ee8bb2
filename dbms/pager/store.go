// Package pager stores fixed-size pages for the index engine.
//
// Two backends implement Store: Pager keeps pages in a single file behind a
// hidden header page, PebbleStore keeps them as values in a pebble database.
// Page numbers are dense, starting at 0, and only grow through Append.
package pager

import (
	"os"

	"github.com/juju/errors"
)

const (
	DefaultPageSize = 4096
	MinPageSize     = 64
	MaxPageSize     = 32768
)

// ErrPageOutOfRange is the cause of reads and writes past the last page.
var ErrPageOutOfRange = errors.New("page number out of range")

// Stats counts page operations since the store was created.
type Stats struct {
	Reads   uint32
	Writes  uint32
	Appends uint32
}

// Store is a growable array of fixed-size pages.
type Store interface {
	// PageSize is the size of every page in bytes.
	PageSize() int
	// PageCount is the number of pages appended so far.
	PageCount() uint32
	// Read returns a copy of page num that the caller may modify.
	Read(num uint32) ([]byte, error)
	// Write overwrites an existing page.
	Write(num uint32, data []byte) error
	// Append adds a page at the end and returns its number.
	Append(data []byte) (uint32, error)
	Stats() Stats
	Close() error
}

// ValidPageSize reports whether n can be used as a page size.
func ValidPageSize(n int) bool { return n >= MinPageSize && n <= MaxPageSize }

// Exists reports whether a file or directory is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func checkPageSize(n int) error {
	if !ValidPageSize(n) {
		return errors.NotValidf("page size %d (allowed %d..%d)", n, MinPageSize, MaxPageSize)
	}
	return nil
}

func checkPage(op string, num, count uint32, data []byte, size int) error {
	if num >= count {
		return errors.Annotatef(ErrPageOutOfRange, "%s page %d of %d", op, num, count)
	}
	if data != nil && len(data) != size {
		return errors.NotValidf("%s page %d: buffer of %d bytes for page size %d", op, num, len(data), size)
	}
	return nil
}
