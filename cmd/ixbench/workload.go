package main

import (
	"fmt"
	"math/rand"

	"github.com/juju/errors"

	"github.com/lannywong2000/PeterDB/dbms/index"
	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
)

type WorkloadType string

const (
	OLTP      WorkloadType = "OLTP (90/10)"
	OLAP      WorkloadType = "OLAP (10/90)"
	Reporting WorkloadType = "Reporting (Range)"
	Cleanup   WorkloadType = "Cleanup (Delete)"
)

// keyGen produces keys of one type over a domain of n distinct values and hands
// out fresh RIDs, so inserts never collide.
type keyGen struct {
	kt   ixpage.KeyType
	n    int
	rng  *rand.Rand
	next uint32
}

func newKeyGen(kt ixpage.KeyType, n int, seed int64) *keyGen {
	return &keyGen{kt: kt, n: n, rng: rand.New(rand.NewSource(seed))}
}

func (g *keyGen) key(v int) ixpage.Key {
	switch g.kt {
	case ixpage.TypeFloat:
		return ixpage.FloatKey(float32(v) / 4)
	case ixpage.TypeVarChar:
		return ixpage.TextKey(fmt.Sprintf("key%08d", v))
	}
	return ixpage.IntKey(int32(v))
}

func (g *keyGen) random() ixpage.Key { return g.key(g.rng.Intn(g.n)) }

func (g *keyGen) rid() ixpage.RID {
	r := ixpage.RID{PageNum: g.next / 100, SlotNum: uint16(g.next % 100)}
	g.next++
	return r
}

type entry struct {
	key ixpage.Key
	rid ixpage.RID
}

// Load inserts n entries and returns them for later deletes.
func Load(idx index.Index, g *keyGen, n int) ([]entry, error) {
	out := make([]entry, 0, n)
	for i := 0; i < n; i++ {
		e := entry{g.random(), g.rid()}
		if err := idx.Insert(e.key, e.rid); err != nil {
			return out, errors.Annotatef(err, "load entry %d", i)
		}
		out = append(out, e)
	}
	return out, nil
}

// ExecuteWorkload runs a mixed distribution of ops
func ExecuteWorkload(idx index.Index, g *keyGen, wType WorkloadType, ops int) error {
	for i := 0; i < ops; i++ {
		choice := g.rng.Intn(100)
		key := g.random()

		var err error
		switch wType {
		case OLTP:
			if choice < 90 {
				_, err = idx.Get(key)
			} else {
				err = idx.Insert(key, g.rid())
			}
		case OLAP:
			if choice < 10 {
				_, err = idx.Get(key)
			} else {
				err = idx.Insert(key, g.rid())
			}
		case Reporting:
			err = scanFrom(idx, key, 100)
		}
		if err != nil {
			return errors.Annotatef(err, "%s op %d", wType, i)
		}
	}
	return nil
}

// scanFrom reads up to limit entries starting at low.
func scanFrom(idx index.Index, low ixpage.Key, limit int) error {
	it, err := idx.Range(&low, nil, true, false)
	if err != nil {
		return err
	}
	defer it.Close()
	for n := 0; n < limit && it.Next(); n++ {
	}
	return it.Error()
}

// Delete removes every entry of es.
func Delete(idx index.Index, es []entry) error {
	for _, e := range es {
		if err := idx.Delete(e.key, e.rid); err != nil {
			return errors.Annotatef(err, "delete %s %s", e.key, e.rid)
		}
	}
	return nil
}
