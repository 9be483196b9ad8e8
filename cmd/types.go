package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-micro/framework/app"
)

func newTypesCommand(boot func(*cobra.Command) (*app.Application, error)) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the definitions found under the registry roots",
		Long: `List every type and symbol the registry scanned, followed by the
units (manifest files) they came from.

Examples:
  # Fully-qualified names
  micro types --root ./app

  # Short names, as handlers may reference them
  micro types -s`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := boot(cmd)
			if err != nil {
				return err
			}
			reg := a.Registry()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, reg.Stats())
			for _, name := range reg.Types(short) {
				fmt.Fprintln(out, "  "+name)
			}
			if units := reg.Units(); len(units) > 0 {
				fmt.Fprintln(out, "units:")
				for _, u := range units {
					fmt.Fprintln(out, "  "+u)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "print short names instead of fully-qualified ones")
	return cmd
}
