package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codearena/internal/judge/processor"
	appErr "codearena/pkg/errors"
)

// Executor drives compile and run containers for one work directory.
// Failures are classified and returned upward; the executor never retries.
type Executor struct {
	engine Engine
}

// NewExecutor creates an executor on top of a container engine.
func NewExecutor(engine Engine) *Executor {
	return &Executor{engine: engine}
}

// Compile runs the processor's compile command in a fresh container.
// A no-op for interpreted languages. Non-zero exit maps to CompilationError
// carrying the build logs and exit code.
func (e *Executor) Compile(ctx context.Context, workDir string, proc processor.Processor) error {
	if err := e.requireSource(workDir, proc); err != nil {
		return err
	}

	compileCmd := proc.CompileCmd(workDir)
	if compileCmd == "" {
		return nil
	}

	logs, exitCode, err := e.engine.Run(ctx, ContainerSpec{
		Image:   proc.Image,
		Command: compileCmd,
		WorkDir: workDir,
	})
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return appErr.Newf(appErr.CompilationError, "Compilation Error: %s", logs).
			WithDetail("exit_code", exitCode)
	}
	return nil
}

// Run executes the processor's final command in a fresh, resource-bounded
// container. The caller writes input.txt beforehand; on success the captured
// stdout comes from output.txt and the wall time from time.txt.
func (e *Executor) Run(ctx context.Context, workDir string, proc processor.Processor, timeoutSec int) (string, float64, error) {
	if err := e.requireSource(workDir, proc); err != nil {
		return "", 0, err
	}

	logs, exitCode, err := e.engine.Run(ctx, ContainerSpec{
		Image:   proc.Image,
		Command: proc.FinalCmd(workDir, timeoutSec),
		WorkDir: workDir,
		Limited: true,
	})
	if err != nil {
		return "", 0, err
	}
	if exitCode != 0 {
		code := ClassifyExit(exitCode)
		return "", 0, appErr.Newf(code, "%s", runFailureMessage(code, logs)).
			WithDetail("exit_code", exitCode)
	}

	stdout, err := os.ReadFile(filepath.Join(workDir, "output.txt"))
	if err != nil {
		return "", 0, appErr.Wrapf(err, appErr.FileNotFound, "File not found: %s", filepath.Join(workDir, "output.txt"))
	}
	return string(stdout), readElapsed(workDir), nil
}

// requireSource fails early when the source file is missing from the work
// directory.
func (e *Executor) requireSource(workDir string, proc processor.Processor) error {
	codeFile := filepath.Join(workDir, proc.CodeFilename)
	if _, err := os.Stat(codeFile); err != nil {
		return appErr.Newf(appErr.FileNotFound, "File not found: %s", codeFile)
	}
	return nil
}

// ClassifyExit maps a container exit code to an error code. Total over all
// integers: 0 means success and every unlisted non-zero code is a runtime
// error.
func ClassifyExit(exitCode int) appErr.ErrorCode {
	switch exitCode {
	case 0:
		return appErr.Success
	case 124:
		return appErr.TimeLimitExceeded
	case 137:
		return appErr.MemoryLimitExceeded
	case 139:
		return appErr.SegmentationFault
	case 126, 127:
		return appErr.FileNotFound
	default:
		return appErr.RuntimeError
	}
}

func runFailureMessage(code appErr.ErrorCode, logs string) string {
	switch code {
	case appErr.RuntimeError:
		return "Runtime Error: " + logs
	case appErr.FileNotFound:
		return "File not found: " + logs
	default:
		return code.Message()
	}
}

// readElapsed parses time.txt written by the time wrapper. GNU time may
// prefix the measurement with a status line, so the last parseable line
// wins. A missing or malformed file yields zero.
func readElapsed(workDir string) float64 {
	raw, err := os.ReadFile(filepath.Join(workDir, "time.txt"))
	if err != nil {
		return 0
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if v, err := strconv.ParseFloat(strings.TrimSpace(lines[i]), 64); err == nil {
			return v
		}
	}
	return 0
}
