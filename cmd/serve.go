package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agubarev/rolegate/internal/config"
	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newServeCommand represents the serve command
func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			c, err := core.NewCore(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err = c.Init(ctx); err != nil {
				return err
			}

			defer c.Close()

			return server.Run(ctx, c, cfg.Server.Addr)
		},
	}

	cmd.Flags().String("addr", "", "address to listen on")
	v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
