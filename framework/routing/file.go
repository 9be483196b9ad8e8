package routing

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk route table:
//
//	middleware:
//	  auth: middleware.bearer      # container key
//	routes:
//	  - method: GET
//	    path: /greet/{name}
//	    handler: Greeter@Hello
//	    middleware: [auth]
//	    params:
//	      greeting: hello
//	groups:
//	  - prefix: /api
//	    middleware: [throttle]
//	    routes:
//	      - {method: GET, path: "/users/{id}", handler: Users@Show}
type File struct {
	Middleware map[string]string `yaml:"middleware,omitempty"`
	Routes     []FileRoute       `yaml:"routes,omitempty"`
	Groups     []FileGroup       `yaml:"groups,omitempty"`
}

// FileRoute is one route entry. Handler is a "Type@method" reference or a
// registry symbol.
type FileRoute struct {
	Method     string         `yaml:"method"`
	Path       string         `yaml:"path"`
	Handler    string         `yaml:"handler"`
	Middleware []string       `yaml:"middleware,omitempty"`
	Params     map[string]any `yaml:"params,omitempty"`
}

// FileGroup shares a prefix and middleware across routes.
type FileGroup struct {
	Prefix     string      `yaml:"prefix"`
	Middleware []string    `yaml:"middleware,omitempty"`
	Routes     []FileRoute `yaml:"routes"`
}

// LoadFile reads a YAML route table into r.
func (r *Router) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening route file: %w", err)
	}
	defer f.Close()
	if err := r.Load(f); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads a YAML route table from rd. Middleware entries are registered
// first, as container keys. Routes are added in file order, then groups.
func (r *Router) Load(rd io.Reader) error {
	var file File
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding route file: %w", err)
	}

	for name, key := range file.Middleware {
		r.RegisterMiddleware(name, key)
	}
	if err := r.addFileRoutes(file.Routes); err != nil {
		return err
	}
	for _, g := range file.Groups {
		var err error
		r.Prefix(g.Prefix, func(gr *Router) {
			err = gr.addFileRoutes(g.Routes)
		}, g.Middleware...)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) addFileRoutes(routes []FileRoute) error {
	for i, fr := range routes {
		if fr.Method == "" || fr.Path == "" || fr.Handler == "" {
			return fmt.Errorf("route %d: method, path and handler are required", i)
		}
		if _, err := r.AddRoute(fr.Path, fr.Method, fr.Handler, fr.Middleware, fr.Params); err != nil {
			return err
		}
	}
	return nil
}

// Export writes the route table as YAML. Routes with function handlers are
// written with their rendered name and cannot be loaded back.
func (r *Router) Export(w io.Writer) error {
	var file File
	r.mu.RLock()
	for _, route := range r.routes {
		file.Routes = append(file.Routes, FileRoute{
			Method:     route.Method,
			Path:       route.Path,
			Handler:    route.Handler.String(),
			Middleware: route.Middleware,
			Params:     route.Extra,
		})
	}
	r.mu.RUnlock()
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return err
	}
	return enc.Close()
}
