// Package cache holds in-memory lookups that must stay cheap on the hot
// path of incoming commands.
package cache

import (
	"sync"

	"github.com/Xyntexx/AgOpenGPS/internal/guidance"
)

// LineCache caches guidance lines by name so a line can be re-selected
// without re-deriving it from its defining points.
type LineCache struct {
	m     sync.Mutex
	lines map[string]guidance.Line
}

func NewLineCache() *LineCache {
	return &LineCache{
		lines: make(map[string]guidance.Line),
	}
}

func (c *LineCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.lines = make(map[string]guidance.Line)
}

func (c *LineCache) Get(name string) (guidance.Line, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if l, ok := c.lines[name]; ok {
		return l, true
	}
	return nil, false
}

func (c *LineCache) Add(name string, line guidance.Line) {
	c.m.Lock()
	defer c.m.Unlock()
	c.lines[name] = line
}

func (c *LineCache) Names() []string {
	c.m.Lock()
	defer c.m.Unlock()
	names := make([]string, 0, len(c.lines))
	for name := range c.lines {
		names = append(names, name)
	}
	return names
}

// SafeCounter is a thread-safe counter.
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
