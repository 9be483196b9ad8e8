package inject

// Constructor builds an instance from an assembled argument set.
type Constructor func(args Args) (any, error)

// Type is a constructible service definition. Params replaces constructor
// introspection: each parameter is declared up front with its rule.
//
//	var HomeType = &inject.Type{
//	    Unit:   "app.controllers",
//	    Name:   "Home",
//	    Params: []inject.Param{inject.Inject("response", "response")},
//	    New:    func(a inject.Args) (any, error) { return &Home{res: a.Value("response")}, nil },
//	}
type Type struct {
	// Unit is the dotted name of the unit that defines the type.
	Unit   string
	Name   string
	Params []Param
	New    Constructor

	// Methods declares parameter lists for handler methods reached through
	// "Type@method" references. Methods not listed receive the call-site
	// arguments unchanged.
	Methods map[string][]Param
}

// FQN returns the fully-qualified name: Unit + "." + Name.
func (t *Type) FQN() string { return qualify(t.Unit, t.Name) }

// Func is an invocable symbol with declared parameters.
type Func struct {
	Unit   string
	Name   string
	Params []Param
	Call   func(args Args) (any, error)

	// PassThrough invokes Call with the call-site arguments as given, skipping
	// parameter assembly. Set for methods without declared parameters.
	PassThrough bool
}

// FQN returns the fully-qualified name of the symbol.
func (f *Func) FQN() string { return qualify(f.Unit, f.Name) }

// NewFunc wraps fn as an anonymous callable. Without declared params the
// call-site arguments are passed through unchanged.
func NewFunc(fn func(args Args) (any, error), params ...Param) *Func {
	return &Func{Name: "func", Params: params, Call: fn, PassThrough: len(params) == 0}
}

// Action wraps a handler that produces no value.
//
//	greet := inject.Action(func(a inject.Args) error {
//	    res := a.Value("response").(*gohttp.Response)
//	    res.SetBody("hello, " + a.String("name"))
//	    return nil
//	}, inject.Inject("response", "response"), inject.Named("name"))
func Action(fn func(args Args) error, params ...Param) *Func {
	return NewFunc(func(a Args) (any, error) { return nil, fn(a) }, params...)
}

func qualify(unit, name string) string {
	if unit == "" {
		return name
	}
	return unit + "." + name
}
