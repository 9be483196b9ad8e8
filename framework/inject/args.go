package inject

import (
	"fmt"
	"sort"
)

type unresolved struct{}

func (unresolved) String() string { return "<unresolved>" }

// Unresolved is supplied for a parameter that no rule could satisfy.
var Unresolved any = unresolved{}

// IsUnresolved reports whether v is the Unresolved sentinel.
func IsUnresolved(v any) bool {
	_, ok := v.(unresolved)
	return ok
}

// ── Args ──────────────────────────────────────────────────────────────────────

// Args is the ordered argument set passed to constructors and callables.
//
// Args is keyed by default. A positional copy (see Positional) hides the names
// so that constructors which reject keyed arguments can be retried.
type Args struct {
	names      []string
	values     []any
	positional bool
}

// ArgsOf builds keyed Args from a map, ordered by key.
func ArgsOf(m map[string]any) Args {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var a Args
	for _, k := range keys {
		a.Add(k, m[k])
	}
	return a
}

// Add appends a named argument. Re-adding a name replaces its value.
func (a *Args) Add(name string, value any) {
	for i, n := range a.names {
		if n == name {
			a.values[i] = value
			return
		}
	}
	a.names = append(a.names, name)
	a.values = append(a.values, value)
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.values) }

// Keyed reports whether names are visible.
func (a Args) Keyed() bool { return !a.positional }

// Positional returns a copy of a whose arguments are only reachable by index.
func (a Args) Positional() Args {
	return Args{
		names:      append([]string(nil), a.names...),
		values:     append([]any(nil), a.values...),
		positional: true,
	}
}

// Names returns the argument names in order. Positional args have no names.
func (a Args) Names() []string {
	if a.positional {
		return nil
	}
	return append([]string(nil), a.names...)
}

// At returns the i-th argument, or nil when out of range.
func (a Args) At(i int) any {
	if i < 0 || i >= len(a.values) {
		return nil
	}
	return a.values[i]
}

// Get returns the raw value stored under name, including Unresolved.
func (a Args) Get(name string) (any, bool) {
	if a.positional {
		return nil, false
	}
	for i, n := range a.names {
		if n == name {
			return a.values[i], true
		}
	}
	return nil, false
}

// Lookup returns the argument by name for keyed args and by index otherwise.
func (a Args) Lookup(name string, index int) (any, bool) {
	if !a.positional {
		return a.Get(name)
	}
	if index < 0 || index >= len(a.values) {
		return nil, false
	}
	return a.values[index], true
}

// Value returns the argument under name, or nil if absent or unresolved.
func (a Args) Value(name string) any {
	v, ok := a.Get(name)
	if !ok || IsUnresolved(v) {
		return nil
	}
	return v
}

// String returns the argument under name as a string. Non-string values are
// formatted with fmt; absent or unresolved values yield "".
func (a Args) String(name string) string {
	switch v := a.Value(name).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the argument under name when it holds an int.
func (a Args) Int(name string) (int, bool) {
	v, ok := a.Value(name).(int)
	return v, ok
}

// Map returns the argument under name when it holds a map[string]any.
func (a Args) Map(name string) map[string]any {
	m, _ := a.Value(name).(map[string]any)
	return m
}

// Has reports whether name carries a resolved value.
func (a Args) Has(name string) bool {
	v, ok := a.Get(name)
	return ok && !IsUnresolved(v)
}

// ToMap copies keyed args into a map.
func (a Args) ToMap() map[string]any {
	out := make(map[string]any, len(a.names))
	if a.positional {
		return out
	}
	for i, n := range a.names {
		out[n] = a.values[i]
	}
	return out
}
