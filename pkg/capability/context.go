package capability

import (
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Cache is the per-context key/value store shared by handlers and
// middleware. The engine never reads or writes it; entries live exactly as
// long as their Invocation is retained by its creator.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]interface{})}
}

// Get returns the value for key and whether it was present.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.entries[key]
	return value, ok
}

// Set stores value under key. Concurrent writers to the same key are
// last-write-wins.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = value
}

// Delete removes key, reporting whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Invocation is the per-call (or per-session) bundle handed to handlers
// and middleware: cache, fetch primitive, origin flag and ambient data.
// Pure data carrier; the engine only reads TrustedOrigin.
type Invocation struct {
	Cache         *Cache
	Fetch         Fetcher
	TrustedOrigin bool
	Identity      string
	Session       string
	Environment   map[string]string
}

// InvocationOption configures a new Invocation.
type InvocationOption func(*Invocation)

// WithFetcher overrides the HTTP fetch primitive.
func WithFetcher(f Fetcher) InvocationOption {
	return func(inv *Invocation) { inv.Fetch = f }
}

// WithUntrustedOrigin marks the invocation as coming from an untrusted
// caller, e.g. a remote client reached through the transport.
func WithUntrustedOrigin() InvocationOption {
	return func(inv *Invocation) { inv.TrustedOrigin = false }
}

// WithIdentity sets the caller identity.
func WithIdentity(identity string) InvocationOption {
	return func(inv *Invocation) { inv.Identity = identity }
}

// WithSession sets the session key. When unset, NewInvocation generates one.
func WithSession(session string) InvocationOption {
	return func(inv *Invocation) { inv.Session = session }
}

// WithEnvironment sets ambient environment data.
func WithEnvironment(env map[string]string) InvocationOption {
	return func(inv *Invocation) { inv.Environment = env }
}

// NewInvocation creates an invocation context with an empty cache, the
// default HTTP fetcher and a trusted origin. The process is the trusted
// side; transports flip the flag for remote callers.
func NewInvocation(opts ...InvocationOption) *Invocation {
	session, err := gonanoid.New()
	if err != nil {
		session = ""
	}

	inv := &Invocation{
		Cache:         NewCache(),
		Fetch:         DefaultFetcher(),
		TrustedOrigin: true,
		Session:       session,
	}

	for _, opt := range opts {
		opt(inv)
	}

	return inv
}
