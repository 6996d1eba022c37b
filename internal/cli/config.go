package cli

import (
	"github.com/spf13/cobra"

	"inferd/internal/config"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Print the resolved configuration",
		Example: "  inferd config\n  inferd config --output toml --env-file .env",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.environment()
			if err != nil {
				return err
			}
			b, err := config.Encode(config.FileFrom(config.Resolve(env, config.DetectHost())), output)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml|json|toml")
	return cmd
}
