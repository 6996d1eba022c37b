package launcher

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"inferd/internal/config"
	"inferd/pkg/types"
)

// GatewayArg is the subcommand the launcher re-executes itself with.
const GatewayArg = "gateway"

// Command is a fully resolved process image: the executable path, argv
// (argv[0] included) and environment.
type Command struct {
	Path string
	Args []string
	Env  []string
}

// Execer replaces the current process with cmd. On success it does not return.
type Execer interface {
	Exec(cmd Command) error
}

// HandoffParams carries the runtime facts the gateway needs besides Config.
type HandoffParams struct {
	Mode       types.Mode
	BackendPID int
	BootID     string
	// Self is the path of the running binary, used when GATEWAY_CMD is unset.
	Self string
}

// BuildCommand assembles the gateway process image. The environment is base
// with the resolved configuration and handoff variables on top; every key
// appears exactly once.
func BuildCommand(base config.Env, cfg config.Config, p HandoffParams) (Command, error) {
	argv := strings.Fields(base[config.EnvGatewayCmd])
	if len(argv) == 0 {
		self := p.Self
		if self == "" {
			var err error
			if self, err = os.Executable(); err != nil {
				return Command{}, err
			}
		}
		argv = []string{self, GatewayArg}
	}
	path := argv[0]
	if !strings.Contains(path, "/") {
		lp, err := exec.LookPath(path)
		if err != nil && !errors.Is(err, exec.ErrDot) {
			return Command{}, err
		}
		path = lp
	}

	env := make(config.Env, len(base)+32)
	for k, v := range base {
		env[k] = v
	}
	// Copy rather than Merge: MODEL_FILE must be overwritten with "".
	for k, v := range cfg.Environ() {
		env[k] = v
	}
	env[config.EnvMode] = p.Mode.String()
	env[config.EnvBackendPID] = strconv.Itoa(max(p.BackendPID, 0))
	env[config.EnvBootID] = p.BootID

	return Command{Path: path, Args: argv, Env: env.Environ()}, nil
}
