package container

import (
	"fmt"
	"reflect"

	"github.com/km-arc/go-micro/framework/inject"
)

// ── Keys ──────────────────────────────────────────────────────────────────────

// Key canonicalizes an abstract into its string key. Strings are used as-is,
// definitions by their fully-qualified name and anything else by TypeKey.
//
//	container.Key("cache")                 // "cache"
//	container.Key(homeType)                // "app.controllers.home.Home"
//	container.Key((*http.Response)(nil))   // "github.com/km-arc/go-micro/framework/http.Response"
func Key(abstract any) string {
	switch v := abstract.(type) {
	case string:
		return v
	case *inject.Type:
		return v.FQN()
	case *inject.Func:
		return v.FQN()
	case reflect.Type:
		return typeName(v)
	case nil:
		return ""
	default:
		return TypeKey(v)
	}
}

// TypeKey returns a stable string key for a Go type.
//
//	container.TypeKey((*MyService)(nil))  // "github.com/you/app.MyService"
func TypeKey(v any) string {
	return typeName(reflect.TypeOf(v))
}

func typeName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve calls Make and type-asserts the result.
//
//	cfg, err := container.Resolve[*config.Config](c, "config")
func Resolve[T any](c *Container, abstract any, opts ...MakeOption) (T, error) {
	var zero T
	instance, err := c.Make(abstract, opts...)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%T]: [%s] resolved to %T", zero, Key(abstract), instance)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure.
//
//	router := container.MustResolve[*routing.Router](app, "router")
func MustResolve[T any](c *Container, abstract any) T {
	typed, err := Resolve[T](c, abstract)
	if err != nil {
		panic(err)
	}
	return typed
}
