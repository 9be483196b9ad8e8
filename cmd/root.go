// Package cmd implements the micro command-line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-micro/framework/app"
	"github.com/km-arc/go-micro/framework/config"
	"github.com/km-arc/go-micro/framework/registry"
)

// Setup wires an application's catalog and routes into the CLI.
type Setup struct {
	// Catalog holds the constructors registry manifests may reference.
	Catalog *registry.Catalog

	// Configure registers routes, middleware and providers. It runs after
	// Boot, so the router and registry are ready.
	Configure func(a *app.Application) error
}

type flags struct {
	cfgFile string
	envFile string
	roots   []string
	verbose bool
}

// NewRootCommand builds the micro command tree.
func NewRootCommand(setup Setup) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:          "micro",
		Short:        "Serve and inspect a go-micro application",
		Long:         `micro boots the application container, scans the type registry and serves the routing table over HTTP.`,
		Version:      app.Version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&f.cfgFile, "config", "c", "",
		"settings file (YAML)")
	root.PersistentFlags().StringVar(&f.envFile, "env-file", "",
		"dotenv file (default: .env)")
	root.PersistentFlags().StringSliceVarP(&f.roots, "root", "r", nil,
		"additional registry root (repeatable)")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false,
		"debug logging")

	boot := func(cmd *cobra.Command) (*app.Application, error) {
		return bootApplication(cmd, f, setup)
	}
	root.AddCommand(newServeCommand(boot), newRoutesCommand(boot), newTypesCommand(boot))
	return root
}

// Execute runs the CLI.
func Execute(setup Setup) error {
	return NewRootCommand(setup).Execute()
}

func bootApplication(cmd *cobra.Command, f *flags, setup Setup) (*app.Application, error) {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	opts := config.Options{File: f.cfgFile}
	if f.envFile != "" {
		opts.EnvFiles = []string{f.envFile}
	}
	a := app.New(
		app.WithConfig(opts),
		app.WithCatalog(setup.Catalog),
		app.WithRoots(f.roots...),
		app.WithLogger(logger),
	)
	if err := a.Boot(); err != nil {
		return nil, err
	}
	if setup.Configure != nil {
		if err := setup.Configure(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}
