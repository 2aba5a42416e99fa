// Package thoughts captures and delivers the model's private reasoning.
package thoughts

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is the number of reasoning logs kept for on-demand
// lookup by message id.
const DefaultCacheSize = 50

// Entry is one captured reasoning log, keyed externally by the id of
// the message that displayed the final answer.
type Entry struct {
	Prompt    string
	Reasoning string
	AuthorID  string
}

// Cache is a fixed-capacity LRU of reasoning logs. Lookups refresh
// recency; inserting past capacity evicts the least-recently-accessed
// entry. Safe for concurrent use.
type Cache struct {
	capacity int

	mu    sync.Mutex
	order *list.List               // front = most recently used
	items map[string]*list.Element // message id -> *node
}

type node struct {
	key   string
	entry Entry
}

// NewCache creates a cache with the given capacity. A non-positive
// capacity falls back to DefaultCacheSize.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Put stores a reasoning log for a message id. Blank reasoning is a
// no-op: there is nothing to deliver later.
func (c *Cache) Put(messageID, prompt, reasoning, authorID string) {
	if messageID == "" || reasoning == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[messageID]; ok {
		el.Value.(*node).entry = Entry{Prompt: prompt, Reasoning: reasoning, AuthorID: authorID}
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&node{
		key:   messageID,
		entry: Entry{Prompt: prompt, Reasoning: reasoning, AuthorID: authorID},
	})
	c.items[messageID] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*node).key)
	}
}

// Get returns the entry for a message id, refreshing its recency.
func (c *Cache) Get(messageID string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[messageID]
	if !ok {
		return Entry{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*node).entry, true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
