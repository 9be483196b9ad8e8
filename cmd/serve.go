package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-micro/framework/app"
)

func newServeCommand(boot func(*cobra.Command) (*app.Application, error)) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the application over HTTP until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := boot(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if port != "" {
				a.Config().App.Port = port
			}
			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (default: APP_PORT)")
	return cmd
}

