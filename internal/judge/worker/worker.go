package worker

import (
	"context"
	"encoding/json"
	"time"

	"codearena/internal/common/mq"
	"codearena/internal/judge/coreclient"
	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/contextkey"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	responseTTL       = 5 * time.Second
	sideEffectTimeout = 5 * time.Second
)

// Worker consumes the two task queues, runs the judge and publishes
// responses keyed by correlation id. Evaluation side effects (leaderboard,
// submission store) are fire-and-forget.
type Worker struct {
	queue mq.MessageQueue
	judge *Judge
	core  *coreclient.Client
}

// NewWorker wires a worker. core may be nil when no core service is
// configured; side effects are then skipped.
func NewWorker(queue mq.MessageQueue, judge *Judge, core *coreclient.Client) *Worker {
	return &Worker{queue: queue, judge: judge, core: core}
}

// Start declares the pipeline queues, registers both consumers and begins
// consuming. Blocks only on broker errors, not on message handling.
func (w *Worker) Start(ctx context.Context) error {
	for _, q := range []struct {
		name string
		opts mq.QueueOptions
	}{
		{model.QueueExecutionTasks, mq.QueueOptions{Durable: true}},
		{model.QueueEvaluationTasks, mq.QueueOptions{Durable: true}},
		{model.QueueResponses, mq.QueueOptions{Durable: true, MessageTTL: responseTTL}},
	} {
		if err := w.queue.DeclareQueue(ctx, q.name, q.opts); err != nil {
			return appErr.Wrapf(err, appErr.BrokerFailure, "declare queue %s failed", q.name)
		}
	}

	opts := &mq.SubscribeOptions{PrefetchCount: 1, RequeueOnError: true}
	if err := w.queue.Subscribe(ctx, model.QueueExecutionTasks, w.handleTask, opts); err != nil {
		return err
	}
	if err := w.queue.Subscribe(ctx, model.QueueEvaluationTasks, w.handleTask, opts); err != nil {
		return err
	}
	return w.queue.Start()
}

// Stop stops consuming.
func (w *Worker) Stop() error {
	return w.queue.Stop()
}

// handleTask processes one task message. Returning nil acks; an error nacks
// for redelivery. Malformed tasks and tasks without a correlation id are
// acked and dropped, since redelivery cannot fix them.
func (w *Worker) handleTask(ctx context.Context, msg *mq.Message) error {
	var task model.Task
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		logger.Error(ctx, "drop undecodable task", zap.Error(err))
		return nil
	}
	if task.CorrelationID == "" {
		logger.Warn(ctx, "drop task without correlation id", zap.String("type", string(task.Type)))
		return nil
	}
	ctx = context.WithValue(ctx, contextkey.CorrelationID, task.CorrelationID)

	resp := model.TaskResponse{CorrelationID: task.CorrelationID}
	switch task.Type {
	case model.TaskExecute:
		resp.Result, resp.Error = w.runExecute(ctx, task.Payload)
	case model.TaskEvaluate:
		resp.Result, resp.Error = w.runEvaluate(ctx, task.Payload)
	default:
		resp.Error = appErr.Newf(appErr.TaskDecodeFailed, "unknown task type: %s", task.Type).Error()
	}

	return w.publishResponse(ctx, resp)
}

func (w *Worker) runExecute(ctx context.Context, payload json.RawMessage) (json.RawMessage, string) {
	var req model.ExecuteRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, appErr.Wrap(err, appErr.TaskDecodeFailed).Error()
	}

	result, err := w.judge.Execute(ctx, req)
	if err != nil {
		logger.Error(ctx, "execute task failed", zap.Error(err))
		return nil, err.Error()
	}
	return marshalResult(result)
}

func (w *Worker) runEvaluate(ctx context.Context, payload json.RawMessage) (json.RawMessage, string) {
	var req model.EvaluateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, appErr.Wrap(err, appErr.TaskDecodeFailed).Error()
	}

	result, err := w.judge.Evaluate(ctx, req)
	if err != nil {
		logger.Error(ctx, "evaluate task failed", zap.Error(err))
		return nil, err.Error()
	}

	w.fireSideEffects(req, result)
	return marshalResult(result)
}

// fireSideEffects updates the leaderboard and stores the submission without
// blocking the judge loop. Failures are logged, never surfaced.
func (w *Worker) fireSideEffects(req model.EvaluateRequest, result model.EvaluationResult) {
	if w.core == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		score := float64(result.Summary.TotalScore)
		if err := w.core.UpdateLeaderboard(ctx, coreclient.LeaderboardUpdate{
			ContestID: req.ContestID,
			ProblemID: req.ProblemID,
			UserID:    req.UserID,
			Score:     score,
		}); err != nil {
			logger.Warn(ctx, "leaderboard update failed", zap.String("user_id", req.UserID), zap.Error(err))
		}

		results, _ := json.Marshal(result.Results)
		if err := w.core.SaveSubmission(ctx, coreclient.SubmissionRecord{
			ContestID: req.ContestID,
			ProblemID: req.ProblemID,
			UserID:    req.UserID,
			Code:      req.Code,
			Processor: req.Processor,
			Score:     score,
			Results:   results,
		}); err != nil {
			logger.Warn(ctx, "submission store failed", zap.String("user_id", req.UserID), zap.Error(err))
		}
	}()
}

func (w *Worker) publishResponse(ctx context.Context, resp model.TaskResponse) error {
	body, err := json.Marshal(resp)
	if err != nil {
		logger.Error(ctx, "marshal task response failed", zap.Error(err))
		return nil
	}
	msg := mq.NewMessage(body)
	msg.SetHeader("correlation_id", resp.CorrelationID)
	if err := w.queue.Publish(ctx, model.QueueResponses, msg); err != nil {
		return appErr.Wrap(err, appErr.BrokerFailure)
	}
	return nil
}

func marshalResult(v any) (json.RawMessage, string) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err.Error()
	}
	return raw, ""
}
