// Package cli wires the inferd subcommands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
	onMissing  string
}

// NewRootCmd builds the command tree. Without a subcommand it launches.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Health-gated llama-server launcher and inference gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Config file (yaml, json or toml) layered under the environment")
	pf.StringVar(&g.envFile, "env-file", "", "A .env file layered between the config file and the environment")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error|off (defaults LOG_LEVEL or info)")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: console|json (defaults LOG_FORMAT or console)")
	pf.StringVar(&g.onMissing, "on-missing-executable", "", "Policy when llama-server is missing: degrade|fail (defaults ON_MISSING_EXECUTABLE or degrade)")

	launch := newLaunchCmd(g)
	root.RunE = launch.RunE
	root.AddCommand(launch, newGatewayCmd(g), newConfigCmd(g), newProbeCmd(g))
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inferd:", err)
		return 1
	}
	return 0
}

// environment gathers config file < .env < process env and applies flags on top.
func (g *globalFlags) environment() (config.Env, error) {
	env, err := config.Gather(config.Sources{ConfigFile: g.configFile, DotEnvFile: g.envFile}, config.FromOS())
	if err != nil {
		return nil, err
	}
	if g.onMissing != "" {
		p, err := config.ParsePolicy(g.onMissing)
		if err != nil {
			return nil, err
		}
		env[config.EnvOnMissingExec] = string(p)
	}
	if g.logLevel != "" {
		env[config.EnvLogLevel] = g.logLevel
	}
	if g.logFormat != "" {
		env[config.EnvLogFormat] = g.logFormat
	}
	return env, nil
}

func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	return logging.New(cfg.LogLevel, cfg.LogFormat, w)
}
