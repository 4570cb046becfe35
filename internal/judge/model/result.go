package model

// TestcaseStatus is the verdict for one testcase.
type TestcaseStatus string

const (
	StatusPassed            TestcaseStatus = "passed"
	StatusFailed            TestcaseStatus = "failed"
	StatusCompileError      TestcaseStatus = "compile_error"
	StatusRuntimeError      TestcaseStatus = "runtime_error"
	StatusTimeLimitExceeded TestcaseStatus = "tle"
	StatusMemoryLimit       TestcaseStatus = "mle"
	StatusSegfault          TestcaseStatus = "segmentation_fault"
	StatusError             TestcaseStatus = "error"
)

// TestcaseResult is the outcome for one testcase.
// Expected is set only for public testcases that failed the comparison.
type TestcaseResult struct {
	TestID        string         `json:"test_id"`
	Status        TestcaseStatus `json:"status"`
	Output        string         `json:"output,omitempty"`
	Expected      string         `json:"expected,omitempty"`
	Score         int            `json:"score"`
	ExecutionTime *float64       `json:"execution_time,omitempty"`
	ExitCode      *int           `json:"exit_code,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// Summary aggregates one evaluation.
type Summary struct {
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
	TotalScore int `json:"total_score"`
}

// EvaluationResult is the full outcome of an evaluate task.
type EvaluationResult struct {
	Results []TestcaseResult `json:"results"`
	Summary Summary          `json:"summary"`
}

// ExecuteResult is the outcome of a one-shot execute task.
type ExecuteResult struct {
	Status        string   `json:"status"`
	Output        string   `json:"output,omitempty"`
	ExecutionTime *float64 `json:"execution_time,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
	ExitCode      *int     `json:"exit_code,omitempty"`
}
