package search

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed searches a cache keeps.
const DefaultCacheSize = 256

// Cache memoizes parsed searches by their JSON text. It is safe for
// concurrent use.
type Cache struct {
	lru *lru.Cache[string, *Search]
}

// NewCache returns a cache holding up to size searches. A size of zero or
// less uses DefaultCacheSize.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Search](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Parse returns the search for data, parsing it on a miss. Parse errors are
// not cached.
func (c *Cache) Parse(data []byte) (*Search, error) {
	key := string(data)
	if s, ok := c.lru.Get(key); ok {
		return s, nil
	}
	s, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, s)
	return s, nil
}

// Len returns the number of cached searches.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge empties the cache.
func (c *Cache) Purge() { c.lru.Purge() }
