// Package registry discovers service definitions on disk and indexes them for
// the container.
//
// A root is a directory tree of HCL manifests. Each manifest is a unit named
// after its path: root "app" with file "controllers/home.hcl" is unit
// "app.controllers.home", and a `type "Home"` block inside it is registered as
// both "app.controllers.home.Home" and "Home". Short names follow a last
// scanned wins policy; fully-qualified names are always checked first.
//
// Manifests cannot carry Go code, so they reference constructors and functions
// compiled into the binary through a Catalog:
//
//	catalog := registry.NewCatalog().Provide("home.New", NewHome)
//	reg := registry.New(catalog)
//	if err := reg.AddRoot("app"); err != nil {
//	    return err
//	}
//	if err := reg.Scan(); err != nil {
//	    return err
//	}
//	home, err := reg.Get("Home")
//
// A unit that fails to load (bad HCL, unknown catalog name, failing init hook)
// is logged and skipped; the rest of the scan proceeds.
package registry
