package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-micro/framework/app"
)

func newRoutesCommand(boot func(*cobra.Command) (*app.Application, error)) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List registered routes in match order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := boot(cmd)
			if err != nil {
				return err
			}
			router := a.Router()
			if asYAML {
				return router.Export(cmd.OutOrStdout())
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METHOD\tPATH\tHANDLER\tMIDDLEWARE")
			for _, r := range router.Routes() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Method, r.Path, r.Handler, strings.Join(r.Middleware, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as a loadable route file")
	return cmd
}
