package registry

import (
	"sort"
	"sync"

	"github.com/km-arc/go-micro/framework/inject"
)

// Catalog holds the Go code manifests refer to by name: constructors for
// `type` blocks, functions for `func` blocks and init hooks for units.
//
//	catalog := registry.NewCatalog().
//	    Provide("home.New", NewHome).
//	    ProvideFunc("handlers.Greet", Greet)
type Catalog struct {
	mu    sync.RWMutex
	ctors map[string]inject.Constructor
	funcs map[string]func(inject.Args) (any, error)
	inits map[string]func() error
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		ctors: make(map[string]inject.Constructor),
		funcs: make(map[string]func(inject.Args) (any, error)),
		inits: make(map[string]func() error),
	}
}

// Provide registers a constructor.
func (c *Catalog) Provide(name string, ctor inject.Constructor) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctors[name] = ctor
	return c
}

// ProvideFunc registers an invocable function.
func (c *Catalog) ProvideFunc(name string, fn func(inject.Args) (any, error)) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[name] = fn
	return c
}

// ProvideInit registers a hook run when a unit naming it is loaded.
func (c *Catalog) ProvideInit(name string, hook func() error) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inits[name] = hook
	return c
}

// Constructor returns the constructor registered under name.
func (c *Catalog) Constructor(name string) (inject.Constructor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctor, ok := c.ctors[name]
	return ctor, ok
}

// Func returns the function registered under name.
func (c *Catalog) Func(name string) (func(inject.Args) (any, error), bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.funcs[name]
	return fn, ok
}

// Init returns the init hook registered under name.
func (c *Catalog) Init(name string) (func() error, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hook, ok := c.inits[name]
	return hook, ok
}

// Names lists every constructor and function name.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.ctors)+len(c.funcs))
	for k := range c.ctors {
		out = append(out, k)
	}
	for k := range c.funcs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
