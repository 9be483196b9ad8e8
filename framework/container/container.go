package container

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sort"
	"sync"

	"github.com/km-arc/go-micro/framework/inject"
)

// ── Recipe types ──────────────────────────────────────────────────────────────

// Factory builds a value from the container.
type Factory func(c *Container) any

// ArgsFactory builds a value from the merged parameters only.
type ArgsFactory func(args inject.Args) (any, error)

// ContainerFactory builds a value from the container and the merged parameters.
type ContainerFactory func(c *Container, args inject.Args) (any, error)

// Params are constructor-parameter overrides keyed by parameter name.
type Params map[string]any

// Resolver is the fallback consulted for keys with no binding, normally a
// *registry.Registry.
type Resolver interface {
	Get(name string) (*inject.Type, error)
	Symbol(name string) (*inject.Func, error)
}

// Re-exported so callers rarely need to import inject for error checks.
var (
	ErrSymbolNotFound     = inject.ErrSymbolNotFound
	ErrInvalidRecipe      = inject.ErrInvalidRecipe
	ErrMethodNotFound     = inject.ErrMethodNotFound
	ErrBuildFailure       = inject.ErrBuildFailure
	ErrCircularDependency = inject.ErrCircularDependency
)

// ErrInvalidAlias is returned by Alias for self-referencing or cyclic aliases.
var ErrInvalidAlias = errors.New("container: invalid alias")

// binding is a registered recipe.
type binding struct {
	concrete  any
	singleton bool
	params    Params
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container registers service recipes and resolves them into instances.
//
// It supports:
//   - Bind / Factory / Singleton / Instance / Alias
//   - Make with call-site overrides and forced builds
//   - Building inject.Type definitions from their declared parameters
//   - Call / MakeCallable over the four handler shapes
//   - Fallback to a Resolver (the registry) for unbound names
type Container struct {
	mu sync.RWMutex

	// canonical key → binding
	bindings map[string]*binding

	// canonical key → resolved singleton instance
	instances map[string]any

	// alias → canonical key
	aliases map[string]string

	resolver Resolver
	logger   *slog.Logger

	// parent is set on forks. Singletons inherited from it are cached there.
	parent *Container

	afterResolving []func(string, any)
}

// Option configures a Container.
type Option func(*Container)

// WithResolver sets the fallback resolver for unbound keys.
func WithResolver(r Resolver) Option {
	return func(c *Container) { c.resolver = r }
}

// WithLogger sets the logger used for degraded resolutions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// New creates an empty container bound to itself under "container".
func New(opts ...Option) *Container {
	c := &Container{
		bindings:  make(map[string]*binding),
		instances: make(map[string]any),
		aliases:   make(map[string]string),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Instance("container", c)
	return c
}

// SetResolver replaces the fallback resolver.
func (c *Container) SetResolver(r Resolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolver = r
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a factory recipe: every Make builds a new value.
//
//	c.Bind("mailer", &inject.Type{Name: "SMTPMailer", New: newMailer})
//	c.Bind("clock", func(c *container.Container) any { return time.Now })
//	c.Bind("Home", "app.controllers.home.Home", container.Params{"title": "Hi"})
func (c *Container) Bind(abstract, concrete any, params ...Params) {
	c.register(abstract, concrete, false, params)
}

// Factory is Bind under its lifecycle name.
func (c *Container) Factory(abstract, concrete any, params ...Params) {
	c.register(abstract, concrete, false, params)
}

// Singleton registers a cached recipe. A pre-built value is cached at once.
func (c *Container) Singleton(abstract, concrete any, params ...Params) {
	c.register(abstract, concrete, true, params)
}

// Instance registers a pre-built value as a singleton.
func (c *Container) Instance(abstract, instance any) {
	key := Key(abstract)
	c.mu.Lock()
	defer c.mu.Unlock()
	key = c.canonicalLocked(key)
	c.bindings[key] = &binding{concrete: instance, singleton: true}
	c.instances[key] = instance
}

func (c *Container) register(abstract, concrete any, singleton bool, params []Params) {
	key := Key(abstract)
	merged := mergeParams(params...)

	c.mu.Lock()
	defer c.mu.Unlock()
	key = c.canonicalLocked(key)

	// Drop any cached instance so the new recipe is used.
	delete(c.instances, key)
	c.bindings[key] = &binding{concrete: concrete, singleton: singleton, params: merged}
	if singleton && isInstance(concrete) {
		c.instances[key] = concrete
	}
}

// Alias makes alias resolve to target.
//
//	c.Alias("cache.store", "cache")
func (c *Container) Alias(alias, target any) error {
	a, t := Key(alias), Key(target)
	c.mu.Lock()
	defer c.mu.Unlock()
	t = c.canonicalLocked(t)
	if a == t {
		return fmt.Errorf("%w: [%s] is aliased to itself", ErrInvalidAlias, a)
	}
	c.aliases[a] = t
	return nil
}

// isInstance reports whether concrete is a live value rather than a recipe.
func isInstance(concrete any) bool {
	switch concrete.(type) {
	case nil, string, *inject.Type, *inject.Func,
		Factory, ArgsFactory, ContainerFactory,
		func(*Container) any, func(inject.Args) (any, error), func(*Container, inject.Args) (any, error):
		return false
	}
	return true
}

// ── Resolution ────────────────────────────────────────────────────────────────

type makeOptions struct {
	force     bool
	overrides Params
}

// MakeOption tunes a single Make call.
type MakeOption func(*makeOptions)

// ForceBuild builds a fresh value even when a singleton is cached. The cache
// is left untouched. A binding whose concrete names another binding forces
// that build too.
func ForceBuild() MakeOption {
	return func(o *makeOptions) { o.force = true }
}

// With supplies call-site parameter overrides. They win over the binding's.
func With(overrides Params) MakeOption {
	return func(o *makeOptions) {
		o.overrides = mergeParams(o.overrides, overrides)
	}
}

// Make resolves abstract into an instance.
//
//	home, err := c.Make("Home")
//	fresh, err := c.Make(HomeType, container.ForceBuild())
//	repo, err := c.Make("repo", container.With(container.Params{"dsn": dsn}))
func (c *Container) Make(abstract any, opts ...MakeOption) (any, error) {
	var o makeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return c.make(abstract, o.force, o.overrides, nil)
}

// MustMake is Make that panics on error.
func (c *Container) MustMake(abstract any, opts ...MakeOption) any {
	inst, err := c.Make(abstract, opts...)
	if err != nil {
		panic(err)
	}
	return inst
}

func (c *Container) make(abstract any, force bool, overrides Params, stack []string) (any, error) {
	c.mu.RLock()
	key := c.canonicalLocked(Key(abstract))
	if !force {
		if inst, ok := c.instances[key]; ok {
			c.mu.RUnlock()
			return inst, nil
		}
	}
	b := c.bindings[key]
	c.mu.RUnlock()

	if o := c.owner(key); o != c {
		return o.make(key, force, overrides, stack)
	}

	if slices.Contains(stack, key) {
		return nil, fmt.Errorf("%w: %v -> %s", ErrCircularDependency, stack, key)
	}
	stack = append(stack, key)

	var (
		concrete any = key
		params   Params
	)
	if b != nil {
		concrete = b.concrete
		params = mergeParams(b.params, overrides)
	} else {
		params = mergeParams(overrides)
		if t, ok := abstract.(*inject.Type); ok {
			concrete = t
		}
	}

	inst, err := c.resolve(key, concrete, params, force, stack)
	if err != nil {
		return nil, err
	}

	if b != nil && b.singleton && !force {
		c.mu.Lock()
		// First stored instance wins when two resolutions race.
		if existing, ok := c.instances[key]; ok {
			inst = existing
		} else {
			c.instances[key] = inst
		}
		c.mu.Unlock()
	}

	c.fireAfterResolving(key, inst)
	return inst, nil
}

// resolve turns a binding's concrete into an instance.
func (c *Container) resolve(key string, concrete any, params Params, force bool, stack []string) (any, error) {
	switch v := concrete.(type) {
	case nil:
		return nil, fmt.Errorf("%w: [%s] has no concrete", ErrInvalidRecipe, key)
	case *inject.Type:
		return c.build(v, params, stack)
	case *inject.Func:
		return c.invoke(v, params, stack)
	case string:
		return c.resolveName(key, v, params, force, stack)
	case ContainerFactory:
		return v(c, inject.ArgsOf(params))
	case func(*Container, inject.Args) (any, error):
		return v(c, inject.ArgsOf(params))
	case ArgsFactory:
		return v(inject.ArgsOf(params))
	case func(inject.Args) (any, error):
		return v(inject.ArgsOf(params))
	case Factory:
		return v(c), nil
	case func(*Container) any:
		return v(c), nil
	default:
		return v, nil
	}
}

// resolveName handles string concretes: another binding, or a registry name.
func (c *Container) resolveName(key, name string, params Params, force bool, stack []string) (any, error) {
	if name != key && c.Bound(name) {
		return c.make(name, force, params, stack)
	}
	t, err := c.lookupType(name)
	if err != nil {
		return nil, err
	}
	return c.build(t, params, stack)
}

func (c *Container) lookupType(name string) (*inject.Type, error) {
	c.mu.RLock()
	r := c.resolver
	c.mu.RUnlock()
	if r == nil {
		return nil, fmt.Errorf("container: make [%s]: %w", name, ErrSymbolNotFound)
	}
	t, err := r.Get(name)
	if err == nil {
		return t, nil
	}
	if _, symErr := r.Symbol(name); symErr == nil {
		return nil, fmt.Errorf("container: [%s] is a function, not a type: %w", name, ErrInvalidRecipe)
	}
	return nil, fmt.Errorf("container: make [%s]: %w", name, err)
}

// Build constructs t without consulting or touching any binding.
func (c *Container) Build(t *inject.Type, params ...Params) (any, error) {
	return c.build(t, mergeParams(params...), nil)
}

func (c *Container) build(t *inject.Type, params Params, stack []string) (any, error) {
	if t == nil || t.New == nil {
		return nil, fmt.Errorf("%w: type has no constructor", ErrInvalidRecipe)
	}
	args := c.assemble(t.Params, params, stack)
	return construct(t.FQN(), t.New, args)
}

// construct calls ctor, degrading from keyed to positional to no arguments
// while the constructor rejects the argument shape.
func construct(name string, ctor inject.Constructor, args inject.Args) (any, error) {
	attempts := []inject.Args{args, args.Positional(), {}}
	var cause error
	for i, a := range attempts {
		inst, err := safeConstruct(ctor, a)
		if err == nil {
			return inst, nil
		}
		if cause == nil {
			cause = err
		}
		if !errors.Is(err, inject.ErrArgumentShape) {
			return nil, &inject.BuildError{Type: name, Attempts: i + 1, Err: cause}
		}
	}
	return nil, &inject.BuildError{Type: name, Attempts: len(attempts), Err: cause}
}

func safeConstruct(ctor inject.Constructor, args inject.Args) (inst any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("constructor panic: %v", rec)
		}
	}()
	return ctor(args)
}

// assemble applies the parameter priority chain.
func (c *Container) assemble(params []inject.Param, overrides Params, stack []string) inject.Args {
	declared := make(map[string]bool, len(params))
	for _, p := range params {
		declared[p.Name] = true
	}

	var args inject.Args
	for _, p := range params {
		if v, ok := overrides[p.Name]; ok {
			args.Add(p.Name, v)
			continue
		}
		if p.Injectable() {
			dep, err := c.make(p.Key, false, nil, stack)
			if err == nil {
				args.Add(p.Name, dep)
				continue
			}
			c.logger.Debug("container: dependency not resolved", "param", p.Name, "key", p.Key, "error", err)
		}
		if p.HasDefault {
			args.Add(p.Name, p.Default)
			continue
		}
		if p.CatchAll() {
			rest := make(map[string]any)
			for k, v := range overrides {
				if !declared[k] {
					rest[k] = v
				}
			}
			args.Add(p.Name, rest)
			continue
		}
		args.Add(p.Name, inject.Unresolved)
	}
	return args
}

// ── Handlers ──────────────────────────────────────────────────────────────────

// MethodProvider is implemented by services that expose handler methods with
// declared parameters.
type MethodProvider interface {
	Method(name string) (*inject.Func, bool)
}

// Call invokes handler with the named arguments, resolving every declared
// parameter the same way constructors are resolved. Errors returned by the
// handler are passed through unchanged.
//
//	c.Call("Home@Index", map[string]any{"id": "42"})
func (c *Container) Call(handler any, named map[string]any) (any, error) {
	fn, err := c.MakeCallable(handler)
	if err != nil {
		return nil, err
	}
	return c.invoke(fn, named, nil)
}

func (c *Container) invoke(fn *inject.Func, named map[string]any, stack []string) (any, error) {
	if fn.PassThrough {
		return fn.Call(inject.ArgsOf(named))
	}
	return fn.Call(c.assemble(fn.Params, named, stack))
}

// MakeCallable normalizes a handler reference into an invocable.
func (c *Container) MakeCallable(ref any) (*inject.Func, error) {
	h, err := inject.ParseHandler(ref)
	if err != nil {
		return nil, err
	}
	switch h.Kind {
	case inject.HandlerCallable:
		return h.Func, nil

	case inject.HandlerPair:
		var (
			inst any
			typ  *inject.Type
		)
		switch t := h.Target.(type) {
		case string:
			typ = c.typeFor(t)
			inst, err = c.Make(t)
		case *inject.Type:
			typ = t
			inst, err = c.Make(t)
		case reflect.Type:
			inst, err = c.Make(t)
		default:
			inst = t
		}
		if err != nil {
			return nil, err
		}
		return c.method(inst, typ, h.Method, fmt.Sprint(h.Target))

	case inject.HandlerString:
		inst, err := c.Make(h.TypeKey)
		if err != nil {
			return nil, err
		}
		return c.method(inst, c.typeFor(h.TypeKey), h.Method, h.TypeKey)

	default:
		return c.symbol(h.Symbol)
	}
}

// method finds name on inst, preferring MethodProvider over reflection.
func (c *Container) method(inst any, typ *inject.Type, name, owner string) (*inject.Func, error) {
	if mp, ok := inst.(MethodProvider); ok {
		if fn, ok := mp.Method(name); ok && fn != nil {
			return fn, nil
		}
	}
	fn := &inject.Func{Name: name, PassThrough: true}
	if typ != nil {
		if params, ok := typ.Methods[name]; ok {
			fn.Unit, fn.Params, fn.PassThrough = typ.FQN(), params, false
		}
	}

	rv := reflect.ValueOf(inst)
	if !rv.IsValid() {
		return nil, fmt.Errorf("container: %s on nil instance of [%s]: %w", name, owner, ErrMethodNotFound)
	}
	m := rv.MethodByName(name)
	if !m.IsValid() {
		return nil, fmt.Errorf("container: method %q not found on [%s]: %w", name, owner, ErrMethodNotFound)
	}
	switch call := m.Interface().(type) {
	case func(inject.Args) (any, error):
		fn.Call = call
	case func(inject.Args) error:
		fn.Call = func(a inject.Args) (any, error) { return nil, call(a) }
	default:
		return nil, fmt.Errorf("container: method %q on [%s] has unsupported signature %s: %w",
			name, owner, m.Type(), ErrMethodNotFound)
	}
	return fn, nil
}

// typeFor finds the definition behind key, if any, for method parameter lists.
func (c *Container) typeFor(key string) *inject.Type {
	c.mu.RLock()
	k := c.canonicalLocked(key)
	b := c.bindings[k]
	r := c.resolver
	c.mu.RUnlock()
	if b != nil {
		switch v := b.concrete.(type) {
		case *inject.Type:
			return v
		case string:
			k = v
		}
	}
	if r == nil {
		return nil
	}
	t, err := r.Get(k)
	if err != nil {
		return nil
	}
	return t
}

// symbol resolves a bare name to an invocable: a binding holding a *Func, or
// a registry function.
func (c *Container) symbol(name string) (*inject.Func, error) {
	if c.Bound(name) {
		inst, err := c.Make(name)
		if err != nil {
			return nil, err
		}
		if fn, ok := inst.(*inject.Func); ok {
			return fn, nil
		}
		return nil, fmt.Errorf("container: [%s] is not invocable: %w", name, ErrInvalidRecipe)
	}
	c.mu.RLock()
	r := c.resolver
	c.mu.RUnlock()
	if r == nil {
		return nil, fmt.Errorf("container: symbol [%s]: %w", name, ErrSymbolNotFound)
	}
	fn, err := r.Symbol(name)
	if err != nil {
		return nil, fmt.Errorf("container: symbol [%s]: %w", name, err)
	}
	return fn, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound reports whether abstract has a binding or cached instance.
func (c *Container) Bound(abstract any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonicalLocked(Key(abstract))
	_, hasBinding := c.bindings[key]
	_, hasInstance := c.instances[key]
	return hasBinding || hasInstance
}

// Resolved reports whether a singleton instance is cached for abstract.
func (c *Container) Resolved(abstract any) bool {
	c.mu.RLock()
	key := c.canonicalLocked(Key(abstract))
	c.mu.RUnlock()
	o := c.owner(key)
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.instances[key]
	return ok
}

// IsSingleton reports whether abstract is bound with the singleton lifecycle.
func (c *Container) IsSingleton(abstract any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[c.canonicalLocked(Key(abstract))]
	return ok && b.singleton
}

// Forget removes the binding and cached instance for abstract.
func (c *Container) Forget(abstract any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonicalLocked(Key(abstract))
	delete(c.bindings, key)
	delete(c.instances, key)
}

// ForgetInstance drops the cached singleton so the next Make rebuilds it.
func (c *Container) ForgetInstance(abstract any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.instances, c.canonicalLocked(Key(abstract)))
}

// Reload rebuilds a singleton and caches the new instance. On a fork, a
// singleton inherited from the parent is rebuilt in the parent.
func (c *Container) Reload(abstract any) (any, error) {
	c.mu.RLock()
	key := c.canonicalLocked(Key(abstract))
	c.mu.RUnlock()
	c.owner(key).ForgetInstance(key)
	return c.Make(abstract)
}

// Flush resets the container, keeping only its self-binding.
func (c *Container) Flush() {
	c.mu.Lock()
	c.bindings = make(map[string]*binding)
	c.instances = make(map[string]any)
	c.aliases = make(map[string]string)
	c.mu.Unlock()
	c.Instance("container", c)
}

// Fork returns a container sharing this one's recipes as of the call.
// Registrations on the fork do not affect the parent, which makes forks
// suitable as per-request scopes. Singletons inherited from the parent are
// built and cached in the parent, so every fork sees the same instance; only
// singletons registered on the fork itself are cached per fork.
func (c *Container) Fork() *Container {
	c.mu.RLock()
	f := &Container{
		bindings:       make(map[string]*binding, len(c.bindings)),
		instances:      make(map[string]any),
		aliases:        make(map[string]string, len(c.aliases)),
		resolver:       c.resolver,
		logger:         c.logger,
		parent:         c,
		afterResolving: append([]func(string, any)(nil), c.afterResolving...),
	}
	for k, v := range c.bindings {
		f.bindings[k] = v
	}
	for k, v := range c.aliases {
		f.aliases[k] = v
	}
	c.mu.RUnlock()
	f.Instance("container", f)
	return f
}

// owner returns the container whose cache holds the singleton under key: the
// parent when key is a singleton the fork inherited unchanged, else c.
func (c *Container) owner(key string) *Container {
	c.mu.RLock()
	b, parent := c.bindings[key], c.parent
	c.mu.RUnlock()
	if b == nil || !b.singleton || parent == nil || parent.binding(key) != b {
		return c
	}
	return parent.owner(key)
}

// binding returns the recipe registered under the canonical key, or nil.
func (c *Container) binding(key string) *binding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bindings[c.canonicalLocked(key)]
}

// Bindings returns every registered key, sorted.
func (c *Container) Bindings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings))
	for k := range c.bindings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ServiceInfo describes one binding.
type ServiceInfo struct {
	Name         string
	Singleton    bool
	Instantiated bool
}

// Info describes every binding, sorted by name.
func (c *Container) Info() []ServiceInfo {
	c.mu.RLock()
	out := make([]ServiceInfo, 0, len(c.bindings))
	for k, b := range c.bindings {
		out = append(out, ServiceInfo{Name: k, Singleton: b.singleton})
	}
	c.mu.RUnlock()
	for i := range out {
		out[i].Instantiated = c.Resolved(out[i].Name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// canonicalLocked follows aliases to the canonical key (must hold mu).
func (c *Container) canonicalLocked(key string) string {
	seen := 0
	for {
		target, ok := c.aliases[key]
		if !ok || seen > len(c.aliases) {
			return key
		}
		key = target
		seen++
	}
}

func mergeParams(sets ...Params) Params {
	out := make(Params)
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after any abstract is resolved.
func (c *Container) AfterResolving(cb func(abstract string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireAfterResolving(abstract string, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(abstract, instance)
	}
}
