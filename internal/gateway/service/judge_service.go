// Package service implements the gateway's judge flow: publish a task,
// await the correlated response.
package service

import (
	"context"
	"encoding/json"
	"time"

	"codearena/internal/common/mq"
	"codearena/internal/gateway/repository"
	"codearena/internal/judge/coreclient"
	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/contextkey"
	"codearena/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	executeTimeout  = 10 * time.Second
	evaluateTimeout = 30 * time.Second
	responseTTL     = 5 * time.Second
)

// JudgeService publishes judge tasks and awaits their responses.
type JudgeService struct {
	queue      mq.Producer
	dispatcher *Dispatcher
	contests   *repository.ContestRepository
	core       *coreclient.Client
}

// NewJudgeService wires the gateway-side judge flow.
func NewJudgeService(queue mq.Producer, dispatcher *Dispatcher, contests *repository.ContestRepository, core *coreclient.Client) *JudgeService {
	return &JudgeService{queue: queue, dispatcher: dispatcher, contests: contests, core: core}
}

// Execute publishes a one-shot execution task and waits up to 10 s for its
// response. The raw result body is returned verbatim.
func (s *JudgeService) Execute(ctx context.Context, req model.ExecuteRequest) (json.RawMessage, error) {
	if req.Processor == "" || req.Code == "" {
		return nil, appErr.BadRequest("processor and code are required")
	}
	return s.roundTrip(ctx, model.TaskExecute, model.QueueExecutionTasks, req, executeTimeout)
}

// EvaluateInput is what the HTTP client sends; user identity and testcases
// are attached server-side.
type EvaluateInput struct {
	Processor string `json:"processor"`
	Code      string `json:"code"`
	ContestID string `json:"contest_id"`
	ProblemID string `json:"problem_id"`

	// UserID is honored only for internal-key callers; token callers get
	// theirs from the claims.
	UserID string `json:"user_id"`
}

// Evaluate validates contest access, attaches testcases and waits up to
// 30 s for the evaluation result.
func (s *JudgeService) Evaluate(ctx context.Context, userID string, in EvaluateInput) (json.RawMessage, error) {
	if in.Processor == "" || in.Code == "" {
		return nil, appErr.BadRequest("processor and code are required")
	}
	if in.ContestID == "" || in.ProblemID == "" {
		return nil, appErr.BadRequest("contest_id and problem_id are required")
	}

	contest, err := s.contests.GetContest(ctx, in.ContestID)
	if err != nil {
		return nil, err
	}
	if !contest.HasApprovedRegistration(userID) {
		return nil, appErr.New(appErr.UserNotRegistered)
	}
	problem, ok := contest.FindProblem(in.ProblemID)
	if !ok {
		return nil, appErr.Newf(appErr.ProblemNotFound, "problem %s not in contest", in.ProblemID)
	}
	if len(problem.Testcases) == 0 {
		return nil, appErr.New(appErr.TestcasesNotFound)
	}

	if problem.MaxSubmissions > 0 && s.core != nil {
		count, err := s.core.SubmissionCount(ctx, userID, in.ContestID, in.ProblemID)
		if err != nil {
			return nil, err
		}
		if count >= problem.MaxSubmissions {
			return nil, appErr.Newf(appErr.SubmissionLimitHit,
				"submission limit reached (%d/%d)", count, problem.MaxSubmissions)
		}
	}

	req := model.EvaluateRequest{
		Processor: in.Processor,
		Code:      in.Code,
		ContestID: in.ContestID,
		ProblemID: in.ProblemID,
		UserID:    userID,
		Testcases: problem.Testcases,
	}
	return s.roundTrip(ctx, model.TaskEvaluate, model.QueueEvaluationTasks, req, evaluateTimeout)
}

// roundTrip publishes one task and blocks until the correlated response
// arrives or the deadline passes. The waiter is registered before the
// publish so a fast worker cannot race the registration.
func (s *JudgeService) roundTrip(ctx context.Context, taskType model.TaskType, queue string, payload any, timeout time.Duration) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.InternalServerError)
	}

	correlationID := uuid.NewString()
	ctx = context.WithValue(ctx, contextkey.CorrelationID, correlationID)

	task, err := json.Marshal(model.Task{
		Type:          taskType,
		CorrelationID: correlationID,
		Payload:       body,
	})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.InternalServerError)
	}

	respCh, cancel := s.dispatcher.Register(correlationID)
	defer cancel()

	msg := mq.NewMessage(task)
	msg.SetHeader("correlation_id", correlationID)
	if err := s.queue.Publish(ctx, queue, msg); err != nil {
		return nil, appErr.Wrap(err, appErr.BrokerFailure)
	}
	logger.Info(ctx, "task published", zap.String("queue", queue))

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if resp.Error != "" {
			return nil, appErr.Newf(appErr.JudgeSystemError, "%s", resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, appErr.New(appErr.ResponseTimeout)
	case <-ctx.Done():
		return nil, appErr.Wrap(ctx.Err(), appErr.ResponseTimeout)
	}
}
