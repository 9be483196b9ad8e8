package inject

import "strings"

// ── Parameter declarations ────────────────────────────────────────────────────

// Param declares one constructor or handler parameter together with the rule
// used to supply it when no explicit override is given.
//
//	inject.Inject("repo", "UserRepository")  // resolve-by-key
//	inject.Default("limit", 10)              // declared default
//	inject.Rest("params")                    // catch-all mapping
//	inject.Named("id")                       // override only, else Unresolved
type Param struct {
	Name string

	// Key is the capability to resolve through the container. Empty means the
	// parameter carries no capability annotation.
	Key string

	Default    any
	HasDefault bool

	// Rest marks a catch-all parameter that receives the named arguments no
	// other parameter consumed.
	Rest bool
}

// Named declares a parameter with no resolution rule of its own.
func Named(name string) Param { return Param{Name: name} }

// Inject declares a parameter resolved from the container under key.
func Inject(name, key string) Param { return Param{Name: name, Key: key} }

// Default declares a parameter with a default value.
func Default(name string, value any) Param {
	return Param{Name: name, Default: value, HasDefault: true}
}

// Literal declares a parameter that always receives value unless the caller
// overrides it by name.
func Literal(name string, value any) Param { return Default(name, value) }

// Rest declares a catch-all parameter.
func Rest(name string) Param { return Param{Name: name, Rest: true} }

// WithDefault returns a copy of p that falls back to value when its key cannot
// be resolved.
func (p Param) WithDefault(value any) Param {
	p.Default = value
	p.HasDefault = true
	return p
}

// Injectable reports whether the parameter's key names a capability that can
// be resolved through the container.
func (p Param) Injectable() bool {
	return p.Key != "" && !IsPrimitive(p.Key)
}

// CatchAll reports whether p receives the catch-all mapping, either because it
// is declared Rest or because its name follows a catch-all convention.
func (p Param) CatchAll() bool {
	return p.Rest || catchAllNames[p.Name]
}

var catchAllNames = map[string]bool{
	"args":     true,
	"kwargs":   true,
	"config":   true,
	"settings": true,
	"options":  true,
}

var primitives = map[string]bool{
	"bool": true, "string": true, "byte": true, "rune": true, "bytes": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"uintptr": true, "float32": true, "float64": true, "number": true,
	"complex64": true, "complex128": true,
	"any": true, "interface{}": true, "error": true,
	"map": true, "slice": true, "list": true, "set": true, "tuple": true, "dict": true,
}

// IsPrimitive reports whether key names a built-in value type (numeric, text,
// boolean, raw bytes, or a built-in collection) rather than a service.
func IsPrimitive(key string) bool {
	k := strings.TrimSpace(key)
	if primitives[k] {
		return true
	}
	return strings.HasPrefix(k, "[]") || strings.HasPrefix(k, "map[") ||
		strings.HasPrefix(k, "chan ") || strings.HasPrefix(k, "func(")
}
