package sandbox

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	appErr "codearena/pkg/errors"
)

// Container resource policy. Applied to run containers; compile containers
// only get the ulimits.
const (
	memoryLimit       = "300m"
	memoryReservation = "200m"
	memorySwapLimit   = "300m"
	cpuLimit          = "1.0"
	pidsLimit         = "50"
	ulimitNoFile      = "nofile=1024:2048"
	ulimitNProc       = "nproc=50:100"
)

// DockerEngine runs containers through the docker CLI. The binary must be
// on PATH; DOCKER_HOST is honoured when set.
type DockerEngine struct {
	dockerHost string
}

// NewDockerEngine creates a Docker-CLI backed engine.
func NewDockerEngine() *DockerEngine {
	return &DockerEngine{dockerHost: os.Getenv("DOCKER_HOST")}
}

// Ping verifies the docker daemon is reachable.
func (e *DockerEngine) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "docker", "version", "--format", "{{.Server.Version}}")
	e.applyEnv(cmd)
	if err := cmd.Run(); err != nil {
		return appErr.Wrap(err, appErr.EngineUnavailable)
	}
	return nil
}

// Run starts a fresh container, waits for it and returns its combined
// output and exit code. The container is removed on exit and has no
// network access.
func (e *DockerEngine) Run(ctx context.Context, spec ContainerSpec) (string, int, error) {
	args := []string{
		"run", "--rm",
		"--network", "none",
		"-v", spec.WorkDir + ":" + spec.WorkDir + ":rw",
		"-w", spec.WorkDir,
		"--ulimit", ulimitNoFile,
		"--ulimit", ulimitNProc,
	}
	if spec.Limited {
		args = append(args,
			"--memory", memoryLimit,
			"--memory-reservation", memoryReservation,
			"--memory-swap", memorySwapLimit,
			"--memory-swappiness", "0",
			"--cpus", cpuLimit,
			"--pids-limit", pidsLimit,
		)
	}
	args = append(args, spec.Image, "bash", "-c", spec.Command)

	cmd := exec.CommandContext(ctx, "docker", args...)
	e.applyEnv(cmd)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	logs := out.String()
	if err == nil {
		return logs, 0, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		return logs, exitErr.ExitCode(), nil
	}
	// docker binary missing, daemon unreachable, context cancelled
	return logs, 0, appErr.Wrap(err, appErr.EngineUnavailable)
}

func (e *DockerEngine) applyEnv(cmd *exec.Cmd) {
	if e.dockerHost != "" {
		cmd.Env = append(os.Environ(), "DOCKER_HOST="+e.dockerHost)
	}
}
