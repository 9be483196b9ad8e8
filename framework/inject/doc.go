// Package inject is the capability vocabulary shared by the registry, the
// container and the router.
//
// Go has no runtime access to constructor parameter names, so every
// constructible Type and invocable Func declares its parameters explicitly as
// a list of Param rules. The container walks that list with a fixed priority:
//
//  1. an override supplied by name
//  2. Inject: resolve Key through the container (primitive keys are skipped)
//  3. Default / Literal
//  4. catch-all (Rest, or a parameter named args, kwargs, config, settings,
//     options) receives the unconsumed named arguments
//  5. Unresolved
//
// Handler references come in four shapes, normalized once into a Handler:
// a *Func, a (type-or-instance, method) pair, a "Type@method" string, and a
// bare fully-qualified symbol.
package inject
