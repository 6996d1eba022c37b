package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"inferd/internal/backend"
	"inferd/internal/config"
	"inferd/internal/launcher"
)

func newLaunchCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Start llama-server, wait for it, then exec the gateway",
		Long: "Resolves the configuration, spawns llama-server when both the executable and the model exist,\n" +
			"polls its /health endpoint and replaces this process with the gateway in full or degraded mode.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.environment()
			if err != nil {
				return err
			}
			// The logger needs the level before the launcher resolves the rest.
			log := newLogger(config.Resolve(env, config.Host{NumCPU: 1}), os.Stderr)
			l := launcher.New(launcher.Options{
				Env:       env,
				Log:       log,
				Publisher: backend.LogPublisher{Log: log},
			})
			// No signal handling here: SIGINT/SIGTERM end the launcher by default.
			out, err := l.Run(context.Background())
			if err != nil {
				log.Error().Err(err).Int("exit_code", out.ExitCode).Msg("launch failed")
				return err
			}
			return nil
		},
	}
}
