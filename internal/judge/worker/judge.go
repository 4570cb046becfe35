// Package worker consumes judge tasks from the broker, drives the sandbox
// and publishes results keyed by correlation id.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codearena/internal/judge/model"
	"codearena/internal/judge/processor"
	"codearena/internal/judge/sandbox"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultRunTimeoutSec bounds each sandboxed run via the in-container
// timeout wrapper (exit 124 on expiry).
const DefaultRunTimeoutSec = 10

// Judge owns one container engine handle and turns requests into results.
type Judge struct {
	executor   *sandbox.Executor
	workRoot   string
	timeoutSec int
}

// NewJudge creates a judge. Zero values fall back to the package defaults.
func NewJudge(executor *sandbox.Executor, workRoot string, timeoutSec int) *Judge {
	if workRoot == "" {
		workRoot = sandbox.DefaultWorkRoot
	}
	if timeoutSec <= 0 {
		timeoutSec = DefaultRunTimeoutSec
	}
	return &Judge{executor: executor, workRoot: workRoot, timeoutSec: timeoutSec}
}

// Execute runs the code once against the optional stdin and reports either
// the captured stdout or a classified failure. Infrastructure failures
// (engine down, workspace errors) are returned as errors instead so the
// caller can surface them separately.
func (j *Judge) Execute(ctx context.Context, req model.ExecuteRequest) (model.ExecuteResult, error) {
	proc, err := processor.Lookup(req.Processor)
	if err != nil {
		return model.ExecuteResult{}, err
	}

	workDir, err := sandbox.NewWorkDir(j.workRoot)
	if err != nil {
		return model.ExecuteResult{}, err
	}
	defer cleanupWorkDir(workDir)

	if err := writeJobFiles(workDir, proc.CodeFilename, req.Code, req.InputData); err != nil {
		return model.ExecuteResult{}, err
	}

	if err := j.executor.Compile(ctx, workDir, proc); err != nil {
		if appErr.GetCode(err) == appErr.EngineUnavailable {
			return model.ExecuteResult{}, err
		}
		return failedExecute(err), nil
	}

	stdout, elapsed, err := j.executor.Run(ctx, workDir, proc, j.timeoutSec)
	if err != nil {
		if appErr.GetCode(err) == appErr.EngineUnavailable {
			return model.ExecuteResult{}, err
		}
		return failedExecute(err), nil
	}

	return model.ExecuteResult{
		Status:        "success",
		Output:        stdout,
		ExecutionTime: &elapsed,
	}, nil
}

// Evaluate compiles once and runs every testcase in order. A compile failure
// short-circuits into one compile_error result per testcase; a single
// testcase's failure never aborts the rest.
func (j *Judge) Evaluate(ctx context.Context, req model.EvaluateRequest) (model.EvaluationResult, error) {
	proc, err := processor.Lookup(req.Processor)
	if err != nil {
		return model.EvaluationResult{}, err
	}

	workDir, err := sandbox.NewWorkDir(j.workRoot)
	if err != nil {
		return model.EvaluationResult{}, err
	}
	defer cleanupWorkDir(workDir)

	if err := writeJobFiles(workDir, proc.CodeFilename, req.Code, ""); err != nil {
		return model.EvaluationResult{}, err
	}

	if err := j.executor.Compile(ctx, workDir, proc); err != nil {
		if appErr.GetCode(err) == appErr.EngineUnavailable {
			return model.EvaluationResult{}, err
		}
		return compileFailureResult(req.Testcases, err), nil
	}

	out := model.EvaluationResult{
		Results: make([]model.TestcaseResult, 0, len(req.Testcases)),
		Summary: model.Summary{Total: len(req.Testcases)},
	}
	for i, tc := range req.Testcases {
		result := j.runTestcase(ctx, workDir, proc, i, tc)
		if result.Status == model.StatusPassed {
			out.Summary.Passed++
			out.Summary.TotalScore += result.Score
		} else {
			out.Summary.Failed++
		}
		out.Results = append(out.Results, result)
	}
	return out, nil
}

func (j *Judge) runTestcase(ctx context.Context, workDir string, proc processor.Processor, idx int, tc model.Testcase) model.TestcaseResult {
	result := model.TestcaseResult{TestID: testID(idx)}

	if err := os.WriteFile(filepath.Join(workDir, "input.txt"), []byte(tc.Input), 0644); err != nil {
		result.Status = model.StatusError
		result.ErrorMessage = err.Error()
		return result
	}

	stdout, elapsed, err := j.executor.Run(ctx, workDir, proc, j.timeoutSec)
	if err != nil {
		result.Status = failureStatus(appErr.GetCode(err))
		result.ErrorMessage = err.Error()
		if code := exitCodeOf(err); code != nil {
			result.ExitCode = code
		}
		return result
	}

	result.ExecutionTime = &elapsed
	if rightTrim(stdout) == rightTrim(tc.Output) {
		result.Status = model.StatusPassed
		result.Score = tc.Score
	} else {
		result.Status = model.StatusFailed
		result.Output = stdout
		if tc.IsPublic {
			result.Expected = tc.Output
		}
	}
	return result
}

// failureStatus maps classified sandbox error codes to testcase verdicts.
func failureStatus(code appErr.ErrorCode) model.TestcaseStatus {
	switch code {
	case appErr.TimeLimitExceeded:
		return model.StatusTimeLimitExceeded
	case appErr.MemoryLimitExceeded:
		return model.StatusMemoryLimit
	case appErr.SegmentationFault:
		return model.StatusSegfault
	case appErr.RuntimeError, appErr.FileNotFound:
		return model.StatusRuntimeError
	default:
		return model.StatusError
	}
}

func compileFailureResult(testcases []model.Testcase, err error) model.EvaluationResult {
	msg := err.Error()
	exitCode := exitCodeOf(err)
	out := model.EvaluationResult{
		Results: make([]model.TestcaseResult, 0, len(testcases)),
		Summary: model.Summary{Failed: len(testcases), Total: len(testcases)},
	}
	for i := range testcases {
		out.Results = append(out.Results, model.TestcaseResult{
			TestID:       testID(i),
			Status:       model.StatusCompileError,
			ErrorMessage: msg,
			ExitCode:     exitCode,
		})
	}
	return out
}

func failedExecute(err error) model.ExecuteResult {
	result := model.ExecuteResult{
		Status:       "error",
		ErrorMessage: err.Error(),
	}
	if code := exitCodeOf(err); code != nil {
		result.ExitCode = code
	}
	return result
}

func exitCodeOf(err error) *int {
	if e := appErr.GetError(err); e != nil {
		if code := e.ExitCode(); code >= 0 {
			return &code
		}
	}
	return nil
}

// testID renders 1-based, zero-padded testcase ids ("test01", "test02", …).
func testID(idx int) string {
	return fmt.Sprintf("test%02d", idx+1)
}

// rightTrim strips trailing spaces, carriage returns and newlines so that
// cosmetic whitespace never fails a testcase.
func rightTrim(s string) string {
	return strings.TrimRight(s, " \r\n")
}

func writeJobFiles(workDir, codeFilename, code, input string) error {
	if err := os.WriteFile(filepath.Join(workDir, codeFilename), []byte(code), 0644); err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "write source file failed")
	}
	if err := os.WriteFile(filepath.Join(workDir, "input.txt"), []byte(input), 0644); err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "write input file failed")
	}
	return nil
}

func cleanupWorkDir(dir string) {
	if err := sandbox.RemoveWorkDir(dir); err != nil {
		logger.Warn(context.Background(), "remove work directory failed", zap.String("dir", dir), zap.Error(err))
	}
}
