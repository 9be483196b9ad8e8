package inject

import (
	"fmt"
	"strings"
)

// HandlerKind tags the four accepted handler shapes.
type HandlerKind int

const (
	// HandlerCallable is an already-invocable *Func.
	HandlerCallable HandlerKind = iota
	// HandlerPair is a (type-or-instance, method) pair.
	HandlerPair
	// HandlerString is a "Type@method" reference.
	HandlerString
	// HandlerSymbol is a bare fully-qualified symbol name.
	HandlerSymbol
)

func (k HandlerKind) String() string {
	switch k {
	case HandlerCallable:
		return "callable"
	case HandlerPair:
		return "pair"
	case HandlerString:
		return "type@method"
	case HandlerSymbol:
		return "symbol"
	default:
		return "unknown"
	}
}

// Handler is a normalized handler reference. Build one with Callable, Pair or
// ParseHandler; the container turns it into a *Func with MakeCallable.
type Handler struct {
	Kind HandlerKind

	Func *Func

	// Target is the type key, *Type, or live instance of a pair.
	Target any

	// TypeKey is the type half of a "Type@method" reference.
	TypeKey string
	Method  string

	Symbol string
}

// Callable wraps a *Func.
func Callable(f *Func) Handler { return Handler{Kind: HandlerCallable, Func: f} }

// Pair builds a (type-or-instance, method) handler.
func Pair(target any, method string) Handler {
	return Handler{Kind: HandlerPair, Target: target, Method: method}
}

// ParseHandler normalizes the accepted handler shapes:
//
//	inject.ParseHandler(fn)                        // *Func or func(Args) (any, error)
//	inject.ParseHandler([]any{&Home{}, "Index"})   // pair
//	inject.ParseHandler("Home@Index")              // type@method
//	inject.ParseHandler("app.handlers.Greet")      // symbol
func ParseHandler(ref any) (Handler, error) {
	switch h := ref.(type) {
	case Handler:
		return h, nil
	case *Func:
		if h == nil || h.Call == nil {
			return Handler{}, fmt.Errorf("%w: nil handler func", ErrInvalidRecipe)
		}
		return Callable(h), nil
	case func(Args) (any, error):
		return Callable(NewFunc(h)), nil
	case func(Args) error:
		return Callable(Action(h)), nil
	case []any:
		if len(h) != 2 {
			return Handler{}, fmt.Errorf("%w: handler pair needs 2 elements, got %d", ErrInvalidRecipe, len(h))
		}
		method, ok := h[1].(string)
		if !ok {
			return Handler{}, fmt.Errorf("%w: handler pair method must be a string", ErrInvalidRecipe)
		}
		return Pair(h[0], method), nil
	case [2]any:
		return ParseHandler([]any{h[0], h[1]})
	case string:
		if typ, method, ok := strings.Cut(h, "@"); ok {
			if typ == "" || method == "" {
				return Handler{}, fmt.Errorf("%w: malformed handler %q", ErrInvalidRecipe, h)
			}
			return Handler{Kind: HandlerString, TypeKey: typ, Method: method}, nil
		}
		if h == "" {
			return Handler{}, fmt.Errorf("%w: empty handler", ErrInvalidRecipe)
		}
		return Handler{Kind: HandlerSymbol, Symbol: h}, nil
	default:
		return Handler{}, fmt.Errorf("%w: unsupported handler %T", ErrInvalidRecipe, ref)
	}
}

func (h Handler) String() string {
	switch h.Kind {
	case HandlerCallable:
		if h.Func != nil {
			return h.Func.FQN()
		}
		return "func"
	case HandlerPair:
		return fmt.Sprintf("%v@%s", h.Target, h.Method)
	case HandlerString:
		return h.TypeKey + "@" + h.Method
	default:
		return h.Symbol
	}
}
