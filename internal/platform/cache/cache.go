// Package cache provides a small expiring LRU for document text so the
// extraction preview and processing paths do not refetch large blobs.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TextCache holds document text keyed by document id. Entries expire after
// the configured TTL so edits to a document are eventually picked up.
type TextCache struct {
	lru *expirable.LRU[string, string]
}

// NewTextCache creates a cache bounded to size entries with the given TTL.
func NewTextCache(size int, ttl time.Duration) *TextCache {
	return &TextCache{
		lru: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *TextCache) Get(documentID string) (string, bool) {
	return c.lru.Get(documentID)
}

func (c *TextCache) Set(documentID, text string) {
	c.lru.Add(documentID, text)
}

// Invalidate drops a document's cached text, typically after an update.
func (c *TextCache) Invalidate(documentID string) {
	c.lru.Remove(documentID)
}
