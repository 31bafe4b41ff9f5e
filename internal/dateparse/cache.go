package dateparse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// timeOfDay matches an optional trailing time component and the whitespace before it.
var timeOfDay = regexp.MustCompile(`\s*HH(:mm(:ss)?)?`)

// SimplifyPattern strips "HH", "HH:mm" and "HH:mm:ss" from a pattern.
// Applying it twice yields the same result as applying it once.
func SimplifyPattern(pattern string) string {
	return strings.TrimSpace(timeOfDay.ReplaceAllString(pattern, ""))
}

// Cache memoizes compiled layouts per pattern. Entries are never evicted and
// are immutable once stored; when two callers race to build the same
// pattern, the first stored layout wins.
type Cache struct {
	layouts *gocache.Cache
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{layouts: gocache.New(gocache.NoExpiration, 0)}
}

// Warm compiles and stores patterns ahead of first use.
func (c *Cache) Warm(patterns ...string) error {
	for _, p := range patterns {
		if _, err := c.Get(p); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the layout for pattern, compiling and storing it on first use.
func (c *Cache) Get(pattern string) (*Layout, error) {
	if v, ok := c.layouts.Get(pattern); ok {
		return v.(*Layout), nil
	}

	l, err := Compile(pattern)
	if err != nil {
		return nil, err
	}

	if err := c.layouts.Add(pattern, l, gocache.NoExpiration); err != nil {
		// Lost the race; use the stored layout.
		if v, ok := c.layouts.Get(pattern); ok {
			return v.(*Layout), nil
		}
	}
	return l, nil
}

// Len returns the number of cached layouts.
func (c *Cache) Len() int {
	return c.layouts.ItemCount()
}

// Parse parses raw against pattern. When that fails it retries once against
// the pattern with its time-of-day component removed, since some banks send
// a bare date on some rows and a date with time on others.
func (c *Cache) Parse(pattern, raw string) (time.Time, error) {
	primary, err := c.Get(pattern)
	if err != nil {
		return time.Time{}, fmt.Errorf("compiling date pattern: %w", err)
	}

	date, parseErr := primary.Parse(raw)
	if parseErr == nil {
		return date, nil
	}

	simple := SimplifyPattern(pattern)
	if simple == pattern {
		return time.Time{}, parseErr
	}

	fallback, err := c.Get(simple)
	if err != nil {
		return time.Time{}, parseErr
	}
	date, err = fallback.Parse(raw)
	if err != nil {
		return time.Time{}, parseErr
	}
	return date, nil
}
