// Package model defines the wire types flowing through the judge pipeline.
package model

import "encoding/json"

// Queue names shared by the gateway and the worker.
const (
	QueueExecutionTasks  = "code_execution_tasks"
	QueueEvaluationTasks = "code_evaluation_tasks"
	QueueResponses       = "response_queue"
)

// TaskType discriminates the two judge flows.
type TaskType string

const (
	TaskExecute  TaskType = "execute"
	TaskEvaluate TaskType = "evaluate"
)

// Task is the unit flowing through the broker. The correlation id is a
// fresh UUID minted by the gateway; the worker echoes it on the response.
type Task struct {
	Type          TaskType        `json:"type"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// ExecuteRequest is a one-shot run against optional stdin.
type ExecuteRequest struct {
	Processor string `json:"processor"`
	Code      string `json:"code"`
	InputData string `json:"input_data"`
}

// Testcase is an input/expected-output pair with a score and a public flag.
// Public testcases reveal their expected output on failure.
type Testcase struct {
	ID       string `json:"id"`
	Input    string `json:"input"`
	Output   string `json:"output"`
	Score    int    `json:"score"`
	IsPublic bool   `json:"isPublic"`
}

// EvaluateRequest carries a submission plus the testcases the gateway
// attached server-side.
type EvaluateRequest struct {
	Processor string     `json:"processor"`
	Code      string     `json:"code"`
	ContestID string     `json:"contest_id"`
	ProblemID string     `json:"problem_id"`
	UserID    string     `json:"user_id"`
	Testcases []Testcase `json:"testcases"`
}

// TaskResponse is published to the response queue, keyed by correlation id.
// Exactly one of Result or Error is set.
type TaskResponse struct {
	CorrelationID string          `json:"correlation_id"`
	Result        json.RawMessage `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
}
