package registry

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/km-arc/go-micro/framework/inject"
)

// A unit manifest declares the types and functions it defines:
//
//	init = "app.boot"
//
//	type "Home" {
//	  constructor = "home.New"
//	  param "response" { inject = "response" }
//	  param "title"    { default = "Home" }
//	  method "Index" {
//	    param "name" {}
//	  }
//	}
//
//	func "Greet" {
//	  symbol = "handlers.Greet"
//	  param "name" {}
//	  param "params" { rest = true }
//	}
type unitSchema struct {
	Init  *string      `hcl:"init,optional"`
	Types []*typeBlock `hcl:"type,block"`
	Funcs []*funcBlock `hcl:"func,block"`
}

type typeBlock struct {
	Name        string         `hcl:"name,label"`
	Constructor string         `hcl:"constructor"`
	Params      []*paramBlock  `hcl:"param,block"`
	Methods     []*methodBlock `hcl:"method,block"`
}

type methodBlock struct {
	Name   string        `hcl:"name,label"`
	Params []*paramBlock `hcl:"param,block"`
}

type funcBlock struct {
	Name   string        `hcl:"name,label"`
	Symbol string        `hcl:"symbol"`
	Params []*paramBlock `hcl:"param,block"`
}

type paramBlock struct {
	Name    string         `hcl:"name,label"`
	Inject  *string        `hcl:"inject,optional"`
	Default hcl.Expression `hcl:"default,optional"`
	Rest    *bool          `hcl:"rest,optional"`
}

// loadManifest parses the unit at path and resolves its catalog references.
// The unit's init hook, if any, runs before definitions are returned.
func loadManifest(unit, path string, catalog *Catalog) ([]*Entry, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diags
	}

	var schema unitSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return nil, diags
	}

	if schema.Init != nil {
		hook, ok := catalog.Init(*schema.Init)
		if !ok {
			return nil, fmt.Errorf("unknown init hook %q", *schema.Init)
		}
		if err := runInit(hook); err != nil {
			return nil, fmt.Errorf("init %q: %w", *schema.Init, err)
		}
	}

	var defs []*Entry
	for _, tb := range schema.Types {
		ctor, ok := catalog.Constructor(tb.Constructor)
		if !ok {
			return nil, fmt.Errorf("type %s: unknown constructor %q", tb.Name, tb.Constructor)
		}
		params, err := decodeParams(tb.Params)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", tb.Name, err)
		}
		t := &inject.Type{Unit: unit, Name: tb.Name, Params: params, New: ctor}
		for _, mb := range tb.Methods {
			mp, err := decodeParams(mb.Params)
			if err != nil {
				return nil, fmt.Errorf("type %s method %s: %w", tb.Name, mb.Name, err)
			}
			if t.Methods == nil {
				t.Methods = make(map[string][]inject.Param)
			}
			t.Methods[mb.Name] = mp
		}
		defs = append(defs, &Entry{FQN: t.FQN(), Name: t.Name, Unit: unit, Type: t})
	}

	for _, fb := range schema.Funcs {
		fn, ok := catalog.Func(fb.Symbol)
		if !ok {
			return nil, fmt.Errorf("func %s: unknown symbol %q", fb.Name, fb.Symbol)
		}
		params, err := decodeParams(fb.Params)
		if err != nil {
			return nil, fmt.Errorf("func %s: %w", fb.Name, err)
		}
		f := &inject.Func{Unit: unit, Name: fb.Name, Params: params, Call: fn, PassThrough: len(params) == 0}
		defs = append(defs, &Entry{FQN: f.FQN(), Name: f.Name, Unit: unit, Func: f})
	}
	return defs, nil
}

func runInit(hook func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return hook()
}

func decodeParams(blocks []*paramBlock) ([]inject.Param, error) {
	params := make([]inject.Param, 0, len(blocks))
	for _, pb := range blocks {
		p := inject.Param{Name: pb.Name}
		if pb.Inject != nil {
			p.Key = *pb.Inject
		}
		if pb.Rest != nil {
			p.Rest = *pb.Rest
		}
		if pb.Default != nil {
			// Defaults must be literals, so no evaluation context.
			val, diags := pb.Default.Value(nil)
			if diags.HasErrors() {
				return nil, diags
			}
			if !val.IsNull() {
				v, err := ctyToGo(val)
				if err != nil {
					return nil, fmt.Errorf("param %s: %w", pb.Name, err)
				}
				p.Default = v
				p.HasDefault = true
			}
		}
		params = append(params, p)
	}
	return params, nil
}

// ctyToGo converts a literal cty value into plain Go values.
func ctyToGo(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("default value must be known")
	}
	t := v.Type()
	switch {
	case t == cty.String:
		var s string
		err := gocty.FromCtyValue(v, &s)
		return s, err
	case t == cty.Bool:
		var b bool
		err := gocty.FromCtyValue(v, &b)
		return b, err
	case t == cty.Number:
		var i int
		if err := gocty.FromCtyValue(v, &i); err == nil {
			return i, nil
		}
		var f float64
		err := gocty.FromCtyValue(v, &f)
		return f, err
	case t.IsListType() || t.IsTupleType() || t.IsSetType():
		var out []any
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			g, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	case t.IsMapType() || t.IsObjectType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			g, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = g
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported default type %s", t.FriendlyName())
}
