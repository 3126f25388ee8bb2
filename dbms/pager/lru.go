package pager

// lruCache holds the most recently used pages of a Pager. It owns its buffers:
// callers copy in and out.
type lruCache struct {
	cap   int
	items map[uint32]*lruEntry
	head  *lruEntry // most recent
	tail  *lruEntry // least recent
}

type lruEntry struct {
	num  uint32
	page []byte
	prev *lruEntry
	next *lruEntry
}

func newLRUCache(cap int) *lruCache {
	return &lruCache{
		cap:   cap,
		items: make(map[uint32]*lruEntry, cap),
	}
}

func (c *lruCache) get(num uint32) []byte {
	e, ok := c.items[num]
	if !ok {
		return nil
	}
	c.moveToFront(e)
	return e.page
}

func (c *lruCache) put(num uint32, pg []byte) {
	if c.cap <= 0 {
		return
	}
	if e, ok := c.items[num]; ok {
		copy(e.page, pg)
		c.moveToFront(e)
		return
	}
	e := &lruEntry{num: num, page: append([]byte(nil), pg...)}
	c.items[num] = e
	c.pushFront(e)
	if len(c.items) > c.cap {
		c.evict()
	}
}

func (c *lruCache) len() int { return len(c.items) }

func (c *lruCache) pushFront(e *lruEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) moveToFront(e *lruEntry) {
	if c.head == e {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if c.tail == e {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
}

func (c *lruCache) evict() {
	if c.tail == nil {
		return
	}
	delete(c.items, c.tail.num)
	if c.tail.prev != nil {
		c.tail.prev.next = nil
	}
	c.tail = c.tail.prev
	if c.tail == nil {
		c.head = nil
	}
}
