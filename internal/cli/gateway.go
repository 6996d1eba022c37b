package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/gateway"
)

func newGatewayCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Serve the HTTP gateway (normally exec'd by launch)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.environment()
			if err != nil {
				return err
			}
			cfg := config.Resolve(env, config.DetectHost())
			log := newLogger(cfg, os.Stderr)
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return gateway.Run(ctx, cfg, gateway.RuntimeFromEnv(env), log)
		},
	}
}
