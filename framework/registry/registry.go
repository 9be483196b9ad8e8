package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/km-arc/go-micro/framework/inject"
)

// ManifestExt is the file extension of a loadable unit.
const ManifestExt = ".hcl"

// ErrRootNotFound is returned by AddRoot when the path is not a directory.
var ErrRootNotFound = errors.New("registry: root directory not found")

// DefaultExclude lists the name patterns skipped while scanning: private and
// hidden entries, and files prefixed as endpoint, config or test artifacts.
var DefaultExclude = []string{`^_`, `^\.`, `^ep_`, `^cfg_`, `^test_`}

// Entry is one discovered definition.
type Entry struct {
	FQN  string
	Name string
	Unit string

	// Exactly one of Type and Func is set.
	Type *inject.Type
	Func *inject.Func
}

// Stats summarizes the registry contents.
type Stats struct {
	Types       int
	SimpleNames int
	Units       int
	Roots       int
}

// Registry discovers definitions under a set of roots and indexes them by
// fully-qualified and by short name.
type Registry struct {
	mu sync.RWMutex

	roots   []string
	exclude []*regexp.Regexp
	catalog *Catalog
	logger  *slog.Logger

	// FQN → entry
	fqn map[string]*Entry

	// short name → entry (last registered wins)
	simple map[string]*Entry

	// unit name → manifest path
	units map[string]string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithExclude replaces the exclusion patterns.
func WithExclude(patterns ...string) Option {
	return func(r *Registry) {
		r.exclude = r.exclude[:0]
		for _, p := range patterns {
			r.exclude = append(r.exclude, regexp.MustCompile(p))
		}
	}
}

// New creates an empty registry resolving manifest references against catalog.
func New(catalog *Catalog, opts ...Option) *Registry {
	if catalog == nil {
		catalog = NewCatalog()
	}
	r := &Registry{
		catalog: catalog,
		logger:  slog.Default(),
		fqn:     make(map[string]*Entry),
		simple:  make(map[string]*Entry),
		units:   make(map[string]string),
	}
	WithExclude(DefaultExclude...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the catalog manifests are resolved against.
func (r *Registry) Catalog() *Catalog { return r.catalog }

// ── Roots & scanning ──────────────────────────────────────────────────────────

// AddRoot registers a directory to scan. The path is tried as given, then
// relative to the working directory.
func (r *Registry) AddRoot(path string) error {
	resolved, err := resolveDir(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roots {
		if existing == resolved {
			return nil
		}
	}
	r.roots = append(r.roots, resolved)
	return nil
}

func resolveDir(path string) (string, error) {
	if abs, err := filepath.Abs(path); err == nil && isDir(abs) {
		return abs, nil
	}
	if cwd, err := os.Getwd(); err == nil {
		alt := filepath.Join(cwd, path)
		if isDir(alt) {
			return alt, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrRootNotFound, path)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Roots returns the registered roots in order.
func (r *Registry) Roots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.roots...)
}

// Scan visits every root and loads units not loaded yet.
func (r *Registry) Scan() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanLocked()
}

// Rescan discards every entry and scans all roots again.
func (r *Registry) Rescan() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
	return r.scanLocked()
}

// Clear discards every entry and loaded unit. Roots are kept.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

func (r *Registry) clearLocked() {
	r.fqn = make(map[string]*Entry)
	r.simple = make(map[string]*Entry)
	r.units = make(map[string]string)
}

func (r *Registry) scanLocked() error {
	for _, root := range r.roots {
		if err := r.scanRoot(root); err != nil {
			return err
		}
	}
	r.logger.Debug("registry scan complete",
		"roots", len(r.roots), "units", len(r.units), "types", len(r.fqn))
	return nil
}

func (r *Registry) scanRoot(root string) error {
	base := filepath.Base(root)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			r.logger.Warn("registry skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if r.excluded(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ManifestExt {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		r.loadUnit(unitName(base, rel), path)
		return nil
	})
}

func (r *Registry) excluded(name string) bool {
	for _, re := range r.exclude {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// unitName turns "controllers/home.hcl" under root "app" into "app.controllers.home".
func unitName(base, rel string) string {
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := append([]string{base}, strings.Split(filepath.ToSlash(rel), "/")...)
	return strings.Join(parts, ".")
}

// loadUnit parses one manifest and records its definitions. A failing unit is
// logged and skipped.
func (r *Registry) loadUnit(unit, path string) {
	if _, loaded := r.units[unit]; loaded {
		return
	}
	defs, err := loadManifest(unit, path, r.catalog)
	if err != nil {
		r.logger.Warn("registry failed to load unit", "unit", unit, "path", path, "error", err)
		return
	}
	r.units[unit] = path
	for _, e := range defs {
		r.recordLocked(e)
	}
	r.logger.Debug("registry loaded unit", "unit", unit, "definitions", len(defs))
}

func (r *Registry) recordLocked(e *Entry) {
	r.fqn[e.FQN] = e
	r.simple[e.Name] = e
}

// ── Programmatic definitions ──────────────────────────────────────────────────

// Define records a type directly, as if a unit named t.Unit declared it.
func (r *Registry) Define(t *inject.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordLocked(&Entry{FQN: t.FQN(), Name: t.Name, Unit: t.Unit, Type: t})
}

// DefineFunc records an invocable symbol directly.
func (r *Registry) DefineFunc(f *inject.Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordLocked(&Entry{FQN: f.FQN(), Name: f.Name, Unit: f.Unit, Func: f})
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// Lookup returns the entry for a fully-qualified name, falling back to the
// short-name table.
func (r *Registry) Lookup(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.fqn[name]; ok {
		return e, nil
	}
	if e, ok := r.simple[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", inject.ErrSymbolNotFound, name)
}

// Get returns the type registered under name.
func (r *Registry) Get(name string) (*inject.Type, error) {
	e, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if e.Type == nil {
		return nil, fmt.Errorf("%w: %s is not a type", inject.ErrSymbolNotFound, name)
	}
	return e.Type, nil
}

// Symbol returns the invocable registered under name.
func (r *Registry) Symbol(name string) (*inject.Func, error) {
	e, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if e.Func == nil {
		return nil, fmt.Errorf("%w: %s is not invocable", inject.ErrSymbolNotFound, name)
	}
	return e.Func, nil
}

// Has reports whether name resolves by either table.
func (r *Registry) Has(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// Types lists registered names, short names when simple is true.
func (r *Registry) Types(simple bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table := r.fqn
	if simple {
		table = r.simple
	}
	out := make([]string, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Units lists loaded unit names.
func (r *Registry) Units() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.units))
	for k := range r.units {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Stats returns counts of the registry tables.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Types:       len(r.fqn),
		SimpleNames: len(r.simple),
		Units:       len(r.units),
		Roots:       len(r.roots),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("Registry(types=%d, units=%d, roots=%d)", s.Types, s.Units, s.Roots)
}
