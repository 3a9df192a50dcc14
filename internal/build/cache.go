package build

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps recent build results by caller key. It is safe for concurrent
// use.
type Cache struct {
	results *lru.Cache[string, *Result]
}

// NewCache creates a cache holding at most size results.
func NewCache(size int) (*Cache, error) {
	results, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, err
	}
	return &Cache{results: results}, nil
}

// Get returns the result stored under key.
func (c *Cache) Get(key string) (*Result, bool) {
	return c.results.Get(key)
}

// Add stores res under key, evicting the least recently used result when
// the cache is full.
func (c *Cache) Add(key string, res *Result) {
	c.results.Add(key, res)
}

// Remove drops key.
func (c *Cache) Remove(key string) {
	c.results.Remove(key)
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	return c.results.Len()
}
