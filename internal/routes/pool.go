package routes

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// ErrIndexOutOfRange is returned when a caller selects a route index the pool does not hold.
var ErrIndexOutOfRange = errors.New("route index out of range")

// Route is an opaque proxy descriptor handed to the downloader verbatim.
type Route string

// String returns the raw route, credentials included.
func (r Route) String() string { return string(r) }

// Redacted returns the route with any password replaced, suitable for logs and health output.
func (r Route) Redacted() string {
	parsed, err := url.Parse(string(r))
	if err != nil || parsed.User == nil {
		return string(r)
	}
	return parsed.Redacted()
}

// Validate reports whether value is a proxy URL the downloader accepts.
func Validate(value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("parse proxy url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "socks4", "socks4a", "socks5", "socks5h":
	default:
		return fmt.Errorf("unsupported proxy scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("proxy url missing host")
	}
	return nil
}

// Snapshot is a read-only view of the pool for health reporting.
type Snapshot struct {
	Routes []string
	Cursor int
}

// Pool is the configured route list plus a shared round-robin cursor.
type Pool struct {
	routes []Route

	mu     sync.Mutex
	cursor int
}

// New validates raw routes and builds a pool. Blank entries are ignored.
func New(raw []string) (*Pool, error) {
	pool := &Pool{}
	for i, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if err := Validate(value); err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		pool.routes = append(pool.routes, Route(value))
	}
	return pool, nil
}

// Len returns the number of configured routes.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.routes)
}

// At returns the route at index i.
func (p *Pool) At(i int) (Route, error) {
	if i < 0 || i >= p.Len() {
		return "", fmt.Errorf("%w: %d (pool has %d)", ErrIndexOutOfRange, i, p.Len())
	}
	return p.routes[i], nil
}

// Current returns the route under the cursor without moving it.
func (p *Pool) Current() (Route, bool) {
	if p.Len() == 0 {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.routes[p.cursor], true
}

// Advance moves the cursor to the next route and returns it. Concurrent callers
// each observe a distinct cursor step.
func (p *Pool) Advance() (Route, bool) {
	if p.Len() == 0 {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = (p.cursor + 1) % len(p.routes)
	return p.routes[p.cursor], true
}

// Cursor returns the current cursor position.
func (p *Pool) Cursor() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Snapshot returns redacted routes and the cursor.
func (p *Pool) Snapshot() Snapshot {
	snap := Snapshot{Routes: make([]string, 0, p.Len()), Cursor: p.Cursor()}
	for i := 0; i < p.Len(); i++ {
		snap.Routes = append(snap.Routes, p.routes[i].Redacted())
	}
	return snap
}
