package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codearena/internal/judge/model"
	"codearena/internal/judge/sandbox"
	appErr "codearena/pkg/errors"
)

// scriptedEngine plays the sandbox: the compile step is any unlimited
// container, the run step any limited one.
type scriptedEngine struct {
	compileExit int
	compileLogs string

	// run simulates the judged program. It receives the current stdin and
	// returns the stdout plus the container exit code.
	run func(input string) (string, int)

	err error
}

func (s *scriptedEngine) Ping(ctx context.Context) error { return s.err }

func (s *scriptedEngine) Run(ctx context.Context, spec sandbox.ContainerSpec) (string, int, error) {
	if s.err != nil {
		return "", 0, s.err
	}
	if !spec.Limited {
		return s.compileLogs, s.compileExit, nil
	}
	input, _ := os.ReadFile(filepath.Join(spec.WorkDir, "input.txt"))
	stdout, exit := "", 0
	if s.run != nil {
		stdout, exit = s.run(string(input))
	}
	if exit == 0 {
		os.WriteFile(filepath.Join(spec.WorkDir, "output.txt"), []byte(stdout), 0644)
		os.WriteFile(filepath.Join(spec.WorkDir, "time.txt"), []byte("0.01\n"), 0644)
	}
	return "", exit, nil
}

func newTestJudge(t *testing.T, engine sandbox.Engine) *Judge {
	t.Helper()
	return NewJudge(sandbox.NewExecutor(engine), t.TempDir(), 5)
}

func TestExecuteSuccess(t *testing.T) {
	engine := &scriptedEngine{run: func(input string) (string, int) { return "echo:" + input, 0 }}
	j := newTestJudge(t, engine)

	res, err := j.Execute(context.Background(), model.ExecuteRequest{
		Processor: "python3",
		Code:      "print('x')",
		InputData: "abc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != "success" || res.Output != "echo:abc" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.ExecutionTime == nil || *res.ExecutionTime != 0.01 {
		t.Errorf("execution time not captured: %+v", res.ExecutionTime)
	}
}

func TestExecuteUnknownProcessor(t *testing.T) {
	j := newTestJudge(t, &scriptedEngine{})
	_, err := j.Execute(context.Background(), model.ExecuteRequest{Processor: "cobol", Code: "x"})
	if appErr.GetCode(err) != appErr.LanguageNotSupported {
		t.Fatalf("got %v, want LanguageNotSupported", err)
	}
}

func TestExecuteCompileFailureIsResult(t *testing.T) {
	engine := &scriptedEngine{compileExit: 1, compileLogs: "syntax error"}
	j := newTestJudge(t, engine)

	res, err := j.Execute(context.Background(), model.ExecuteRequest{Processor: "c++17", Code: "int main( {"})
	if err != nil {
		t.Fatalf("compile failure must not surface as error: %v", err)
	}
	if res.Status != "error" {
		t.Errorf("status = %q, want error", res.Status)
	}
	if res.ExitCode == nil || *res.ExitCode != 1 {
		t.Errorf("exit code = %v, want 1", res.ExitCode)
	}
}

func TestExecuteEngineUnavailableIsError(t *testing.T) {
	engine := &scriptedEngine{err: appErr.New(appErr.EngineUnavailable)}
	j := newTestJudge(t, engine)

	_, err := j.Execute(context.Background(), model.ExecuteRequest{Processor: "python3", Code: "print(1)"})
	if appErr.GetCode(err) != appErr.EngineUnavailable {
		t.Fatalf("got %v, want EngineUnavailable", err)
	}
}

func TestEvaluateScoring(t *testing.T) {
	// Identity program: echoes stdin.
	engine := &scriptedEngine{run: func(input string) (string, int) { return input, 0 }}
	j := newTestJudge(t, engine)

	res, err := j.Evaluate(context.Background(), model.EvaluateRequest{
		Processor: "python3",
		Code:      "import sys; sys.stdout.write(sys.stdin.read())",
		Testcases: []model.Testcase{
			{Input: "a", Output: "a", Score: 30},
			{Input: "b", Output: "WRONG", Score: 30, IsPublic: true},
			{Input: "c", Output: "WRONG", Score: 40},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Summary.Passed != 1 || res.Summary.Failed != 2 || res.Summary.Total != 3 {
		t.Errorf("summary = %+v", res.Summary)
	}
	if res.Summary.TotalScore != 30 {
		t.Errorf("total score = %d, want 30", res.Summary.TotalScore)
	}

	if res.Results[0].TestID != "test01" || res.Results[2].TestID != "test03" {
		t.Errorf("test ids = %q, %q", res.Results[0].TestID, res.Results[2].TestID)
	}
	if res.Results[0].Status != model.StatusPassed || res.Results[0].Score != 30 {
		t.Errorf("first result = %+v", res.Results[0])
	}

	// Expected output only leaks on public testcases.
	if res.Results[1].Expected != "WRONG" {
		t.Errorf("public failure should reveal expected output, got %q", res.Results[1].Expected)
	}
	if res.Results[2].Expected != "" {
		t.Errorf("private failure must not reveal expected output, got %q", res.Results[2].Expected)
	}
}

func TestEvaluateTrailingWhitespaceTolerated(t *testing.T) {
	engine := &scriptedEngine{run: func(input string) (string, int) { return "42  \n", 0 }}
	j := newTestJudge(t, engine)

	res, err := j.Evaluate(context.Background(), model.EvaluateRequest{
		Processor: "python3",
		Code:      "print(42)",
		Testcases: []model.Testcase{{Input: "", Output: "42", Score: 100}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Results[0].Status != model.StatusPassed {
		t.Errorf("trailing whitespace should not fail a testcase: %+v", res.Results[0])
	}
}

func TestEvaluateCompileFailureShortCircuits(t *testing.T) {
	engine := &scriptedEngine{compileExit: 1, compileLogs: "undefined reference"}
	j := newTestJudge(t, engine)

	res, err := j.Evaluate(context.Background(), model.EvaluateRequest{
		Processor: "c11",
		Code:      "int main() { missing(); }",
		Testcases: []model.Testcase{
			{Input: "a", Output: "a", Score: 50},
			{Input: "b", Output: "b", Score: 50},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Summary.Failed != 2 || res.Summary.Total != 2 || res.Summary.TotalScore != 0 {
		t.Errorf("summary = %+v", res.Summary)
	}
	for _, r := range res.Results {
		if r.Status != model.StatusCompileError {
			t.Errorf("result %s status = %q, want compile_error", r.TestID, r.Status)
		}
		if r.ExitCode == nil || *r.ExitCode != 1 {
			t.Errorf("result %s exit code = %v, want 1", r.TestID, r.ExitCode)
		}
	}
}

func TestWorkDirRemovedAfterJob(t *testing.T) {
	tests := []struct {
		name   string
		engine *scriptedEngine
		job    func(j *Judge) error
	}{
		{
			name:   "execute success",
			engine: &scriptedEngine{run: func(input string) (string, int) { return input, 0 }},
			job: func(j *Judge) error {
				_, err := j.Execute(context.Background(), model.ExecuteRequest{Processor: "python3", Code: "x"})
				return err
			},
		},
		{
			name:   "evaluate success",
			engine: &scriptedEngine{run: func(input string) (string, int) { return input, 0 }},
			job: func(j *Judge) error {
				_, err := j.Evaluate(context.Background(), model.EvaluateRequest{
					Processor: "python3",
					Code:      "x",
					Testcases: []model.Testcase{{Input: "a", Output: "a", Score: 100}},
				})
				return err
			},
		},
		{
			name:   "evaluate compile failure",
			engine: &scriptedEngine{compileExit: 2, compileLogs: "boom"},
			job: func(j *Judge) error {
				_, err := j.Evaluate(context.Background(), model.EvaluateRequest{
					Processor: "c11",
					Code:      "int main( {",
					Testcases: []model.Testcase{{Input: "a", Output: "a", Score: 100}},
				})
				return err
			},
		},
		{
			name:   "execute engine down",
			engine: &scriptedEngine{err: appErr.New(appErr.EngineUnavailable)},
			job: func(j *Judge) error {
				_, err := j.Execute(context.Background(), model.ExecuteRequest{Processor: "python3", Code: "x"})
				if appErr.GetCode(err) != appErr.EngineUnavailable {
					return err
				}
				return nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workRoot := t.TempDir()
			j := NewJudge(sandbox.NewExecutor(tt.engine), workRoot, 5)

			if err := tt.job(j); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			entries, err := os.ReadDir(workRoot)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Errorf("work directory left behind: %v", entries)
			}
		})
	}
}

func TestEvaluateFailureStatuses(t *testing.T) {
	tests := []struct {
		exitCode int
		want     model.TestcaseStatus
	}{
		{124, model.StatusTimeLimitExceeded},
		{137, model.StatusMemoryLimit},
		{139, model.StatusSegfault},
		{1, model.StatusRuntimeError},
		{127, model.StatusRuntimeError},
	}
	for _, tt := range tests {
		engine := &scriptedEngine{run: func(string) (string, int) { return "", tt.exitCode }}
		j := newTestJudge(t, engine)

		res, err := j.Evaluate(context.Background(), model.EvaluateRequest{
			Processor: "python3",
			Code:      "boom",
			Testcases: []model.Testcase{{Input: "", Output: "", Score: 100}},
		})
		if err != nil {
			t.Fatal(err)
		}
		r := res.Results[0]
		if r.Status != tt.want {
			t.Errorf("exit %d: status = %q, want %q", tt.exitCode, r.Status, tt.want)
		}
		if r.ExitCode == nil || *r.ExitCode != tt.exitCode {
			t.Errorf("exit %d: exit code detail = %v", tt.exitCode, r.ExitCode)
		}
		if res.Summary.Passed != 0 || res.Summary.Failed != 1 {
			t.Errorf("exit %d: summary = %+v", tt.exitCode, res.Summary)
		}
	}
}

func TestEvaluateOneFailureDoesNotAbortRest(t *testing.T) {
	calls := 0
	engine := &scriptedEngine{run: func(input string) (string, int) {
		calls++
		if calls == 1 {
			return "", 139
		}
		return input, 0
	}}
	j := newTestJudge(t, engine)

	res, err := j.Evaluate(context.Background(), model.EvaluateRequest{
		Processor: "python3",
		Code:      "x",
		Testcases: []model.Testcase{
			{Input: "a", Output: "a", Score: 50},
			{Input: "b", Output: "b", Score: 50},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Results[0].Status != model.StatusSegfault {
		t.Errorf("first status = %q", res.Results[0].Status)
	}
	if res.Results[1].Status != model.StatusPassed {
		t.Errorf("second testcase should still run, status = %q", res.Results[1].Status)
	}
}
