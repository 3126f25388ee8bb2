// Package index defines the interface shared by the secondary index
// implementations, so tools can drive and compare them.
package index

import "github.com/lannywong2000/PeterDB/dbms/index/ixpage"

// Index maps keys to the RIDs of the rows holding them. A key may map to many
// RIDs; each (key, RID) pair is stored once.
type Index interface {
	Insert(key ixpage.Key, rid ixpage.RID) error
	Delete(key ixpage.Key, rid ixpage.RID) error
	// Get returns the RIDs stored under key in ascending order.
	Get(key ixpage.Key) ([]ixpage.RID, error)
	// Range iterates the entries between low and high; nil is unbounded.
	Range(low, high *ixpage.Key, lowInclusive, highInclusive bool) (Iterator, error)
	Close() error
}

// Iterator walks (key, RID) entries in ascending order.
type Iterator interface {
	Next() bool
	Key() ixpage.Key
	RID() ixpage.RID
	Error() error
	Close() error
}

// Collect drains it and closes it.
func Collect(it Iterator) (keys []ixpage.Key, rids []ixpage.RID, err error) {
	defer it.Close()
	for it.Next() {
		keys = append(keys, it.Key())
		rids = append(rids, it.RID())
	}
	return keys, rids, it.Error()
}
