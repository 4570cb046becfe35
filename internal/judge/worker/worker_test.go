package worker

import (
	"context"
	"encoding/json"
	"testing"

	"codearena/internal/common/mq"
	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
)

// fakeQueue records declarations, subscriptions and published messages.
type fakeQueue struct {
	declared   map[string]mq.QueueOptions
	subscribed []string
	published  map[string][]*mq.Message
	publishErr error
	started    bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		declared:  make(map[string]mq.QueueOptions),
		published: make(map[string][]*mq.Message),
	}
}

func (f *fakeQueue) Publish(ctx context.Context, queue string, msg *mq.Message) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published[queue] = append(f.published[queue], msg)
	return nil
}

func (f *fakeQueue) Subscribe(ctx context.Context, queue string, handler mq.HandlerFunc, opts *mq.SubscribeOptions) error {
	f.subscribed = append(f.subscribed, queue)
	return nil
}

func (f *fakeQueue) DeclareQueue(ctx context.Context, queue string, opts mq.QueueOptions) error {
	f.declared[queue] = opts
	return nil
}

func (f *fakeQueue) Start() error { f.started = true; return nil }

func (f *fakeQueue) Stop() error { return nil }

func (f *fakeQueue) Ping(ctx context.Context) error { return nil }

func (f *fakeQueue) Close() error { return nil }

func taskMessage(t *testing.T, task model.Task) *mq.Message {
	t.Helper()
	body, err := json.Marshal(task)
	if err != nil {
		t.Fatal(err)
	}
	return mq.NewMessage(body)
}

func TestStartDeclaresPipelineQueues(t *testing.T) {
	queue := newFakeQueue()
	w := NewWorker(queue, newTestJudge(t, &scriptedEngine{}), nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, q := range []string{model.QueueExecutionTasks, model.QueueEvaluationTasks, model.QueueResponses} {
		if _, ok := queue.declared[q]; !ok {
			t.Errorf("queue %s not declared", q)
		}
	}
	if queue.declared[model.QueueResponses].MessageTTL != responseTTL {
		t.Errorf("response queue TTL = %v", queue.declared[model.QueueResponses].MessageTTL)
	}
	if len(queue.subscribed) != 2 {
		t.Errorf("subscribed queues = %v", queue.subscribed)
	}
	if !queue.started {
		t.Error("consumer loop not started")
	}
}

func TestHandleTaskExecutePublishesResponse(t *testing.T) {
	queue := newFakeQueue()
	engine := &scriptedEngine{run: func(input string) (string, int) { return "ok", 0 }}
	w := NewWorker(queue, newTestJudge(t, engine), nil)

	payload, _ := json.Marshal(model.ExecuteRequest{Processor: "python3", Code: "print('ok')"})
	msg := taskMessage(t, model.Task{Type: model.TaskExecute, CorrelationID: "corr-1", Payload: payload})

	if err := w.handleTask(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	responses := queue.published[model.QueueResponses]
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	var resp model.TaskResponse
	if err := json.Unmarshal(responses[0].Body, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CorrelationID != "corr-1" {
		t.Errorf("correlation id = %q", resp.CorrelationID)
	}
	if resp.Error != "" {
		t.Errorf("unexpected error: %q", resp.Error)
	}
	if header, _ := responses[0].GetHeader("correlation_id"); header != "corr-1" {
		t.Errorf("correlation header = %q", header)
	}

	var result model.ExecuteResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatal(err)
	}
	if result.Status != "success" || result.Output != "ok" {
		t.Errorf("result = %+v", result)
	}
}

func TestHandleTaskDropsMissingCorrelationID(t *testing.T) {
	queue := newFakeQueue()
	w := NewWorker(queue, newTestJudge(t, &scriptedEngine{}), nil)

	msg := taskMessage(t, model.Task{Type: model.TaskExecute})
	if err := w.handleTask(context.Background(), msg); err != nil {
		t.Fatalf("missing correlation id must ack, got %v", err)
	}
	if len(queue.published[model.QueueResponses]) != 0 {
		t.Error("no response expected for dropped task")
	}
}

func TestHandleTaskDropsUndecodableBody(t *testing.T) {
	queue := newFakeQueue()
	w := NewWorker(queue, newTestJudge(t, &scriptedEngine{}), nil)

	if err := w.handleTask(context.Background(), mq.NewMessage([]byte("{not json"))); err != nil {
		t.Fatalf("undecodable task must ack, got %v", err)
	}
	if len(queue.published[model.QueueResponses]) != 0 {
		t.Error("no response expected for dropped task")
	}
}

func TestHandleTaskUnknownTypeRespondsWithError(t *testing.T) {
	queue := newFakeQueue()
	w := NewWorker(queue, newTestJudge(t, &scriptedEngine{}), nil)

	msg := taskMessage(t, model.Task{Type: "mystery", CorrelationID: "corr-2"})
	if err := w.handleTask(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	var resp model.TaskResponse
	json.Unmarshal(queue.published[model.QueueResponses][0].Body, &resp)
	if resp.Error == "" {
		t.Error("unknown task type should produce an error response")
	}
}

func TestHandleTaskNacksOnPublishFailure(t *testing.T) {
	queue := newFakeQueue()
	queue.publishErr = appErr.New(appErr.BrokerFailure)
	engine := &scriptedEngine{run: func(string) (string, int) { return "ok", 0 }}
	w := NewWorker(queue, newTestJudge(t, engine), nil)

	payload, _ := json.Marshal(model.ExecuteRequest{Processor: "python3", Code: "x"})
	msg := taskMessage(t, model.Task{Type: model.TaskExecute, CorrelationID: "corr-3", Payload: payload})

	if err := w.handleTask(context.Background(), msg); err == nil {
		t.Fatal("publish failure must nack the task")
	}
}

func TestHandleTaskEvaluate(t *testing.T) {
	queue := newFakeQueue()
	engine := &scriptedEngine{run: func(input string) (string, int) { return input, 0 }}
	w := NewWorker(queue, newTestJudge(t, engine), nil)

	payload, _ := json.Marshal(model.EvaluateRequest{
		Processor: "python3",
		Code:      "x",
		Testcases: []model.Testcase{{Input: "a", Output: "a", Score: 100}},
	})
	msg := taskMessage(t, model.Task{Type: model.TaskEvaluate, CorrelationID: "corr-4", Payload: payload})

	if err := w.handleTask(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	var resp model.TaskResponse
	json.Unmarshal(queue.published[model.QueueResponses][0].Body, &resp)
	var result model.EvaluationResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatal(err)
	}
	if result.Summary.TotalScore != 100 {
		t.Errorf("total score = %d", result.Summary.TotalScore)
	}
}
