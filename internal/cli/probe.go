package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"inferd/internal/backend"
	"inferd/internal/config"
)

func newProbeCmd(g *globalFlags) *cobra.Command {
	var url string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe the backend once; exit 0 when it answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				env, err := g.environment()
				if err != nil {
					return err
				}
				url = config.Resolve(env, config.DetectHost()).BackendURL()
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := backend.NewHTTPProber(url).Probe(ctx); err != nil {
				return fmt.Errorf("backend at %s not reachable: %w", url, err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "backend at %s is reachable\n", url)
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Backend base URL (defaults to http://127.0.0.1:$LLAMA_PORT)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "Probe timeout")
	return cmd
}
