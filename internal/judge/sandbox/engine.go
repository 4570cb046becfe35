// Package sandbox compiles and runs untrusted submissions inside throwaway
// containers with enforced resource bounds.
package sandbox

import "context"

// ContainerSpec describes one throwaway container invocation. The work
// directory is bind-mounted read-write at the same path so compiled
// artifacts and output.txt/time.txt stay visible to the host.
type ContainerSpec struct {
	Image   string
	Command string // executed via bash -c
	WorkDir string

	// Limited applies the run-time resource caps (memory, cpu, pids).
	// Compile containers run without them.
	Limited bool
}

// Engine starts containers and reports their exit status. Implemented by
// DockerEngine; faked in tests.
type Engine interface {
	// Ping verifies the container engine is reachable.
	Ping(ctx context.Context) error

	// Run starts a fresh container, waits for it, and returns its combined
	// log output and exit code. A non-nil error means the engine itself
	// failed, not the contained process.
	Run(ctx context.Context, spec ContainerSpec) (logs string, exitCode int, err error)
}
