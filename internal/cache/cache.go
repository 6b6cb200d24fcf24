// Package cache holds generated articles and resolved images for the
// lifetime of a browsing session.
package cache

import (
	"strings"
	"sync"

	"aipedia/internal/core"
)

// Stats reports cache occupancy and effectiveness
type Stats struct {
	Articles    int
	Images      int
	ArticleHits int
	ImageHits   int
	Misses      int
	Enabled     bool
}

// Cache is a session-scoped article and image store. When disabled every
// lookup misses and every write is dropped, without clearing stored entries.
// Articles are cloned on the way in and out.
type Cache struct {
	mu       sync.RWMutex
	enabled  bool
	articles map[string]core.Article
	images   map[string]core.Image
	stats    Stats
}

// New creates a cache in the given enabled state.
func New(enabled bool) *Cache {
	return &Cache{
		enabled:  enabled,
		articles: make(map[string]core.Article),
		images:   make(map[string]core.Image),
	}
}

// NormalizeKey lowercases and collapses whitespace.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func articleKey(topic string, style core.WritingStyle) string {
	return NormalizeKey(topic) + "|" + NormalizeKey(string(style))
}

// Get returns a copy of the article cached for (topic, style).
func (c *Cache) Get(topic string, style core.WritingStyle) (core.Article, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		c.stats.Misses++
		return core.Article{}, false
	}
	a, ok := c.articles[articleKey(topic, style)]
	if !ok {
		c.stats.Misses++
		return core.Article{}, false
	}
	c.stats.ArticleHits++
	return a.Clone(), true
}

// Put stores an article. Last write wins.
func (c *Cache) Put(topic string, style core.WritingStyle, article core.Article) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	c.articles[articleKey(topic, style)] = article.Clone()
}

// GetImage returns the image cached for a search term.
func (c *Cache) GetImage(term string) (core.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		c.stats.Misses++
		return core.Image{}, false
	}
	img, ok := c.images[NormalizeKey(term)]
	if !ok {
		c.stats.Misses++
		return core.Image{}, false
	}
	c.stats.ImageHits++
	return img, true
}

// PutImage stores an image for a search term.
func (c *Cache) PutImage(term string, img core.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	c.images[NormalizeKey(term)] = img
}

// Clear drops all cached articles.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.articles = make(map[string]core.Article)
}

// ClearImages drops all cached images.
func (c *Cache) ClearImages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = make(map[string]core.Image)
}

// ClearAll drops articles, images and counters.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.articles = make(map[string]core.Article)
	c.images = make(map[string]core.Image)
	c.stats = Stats{}
}

// SetEnabled toggles the cache. It takes effect for the next call.
func (c *Cache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Enabled reports whether the cache serves entries.
func (c *Cache) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Articles = len(c.articles)
	s.Images = len(c.images)
	s.Enabled = c.enabled
	return s
}
