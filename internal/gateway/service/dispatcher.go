package service

import (
	"context"
	"encoding/json"
	"sync"

	"codearena/internal/common/mq"
	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

// Dispatcher owns the single response-queue consumer and routes each
// response to the request that registered its correlation id. Responses for
// ids nobody is waiting on are dropped; the queue's message TTL collects
// anything published after the caller gave up.
type Dispatcher struct {
	queue mq.MessageQueue

	mu      sync.Mutex
	waiters map[string]chan model.TaskResponse
}

// NewDispatcher creates a dispatcher over the given broker connection.
func NewDispatcher(queue mq.MessageQueue) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		waiters: make(map[string]chan model.TaskResponse),
	}
}

// Start declares the response queue, subscribes and begins consuming.
func (d *Dispatcher) Start(ctx context.Context) error {
	err := d.queue.DeclareQueue(ctx, model.QueueResponses, mq.QueueOptions{
		Durable:    true,
		MessageTTL: responseTTL,
	})
	if err != nil {
		return appErr.Wrap(err, appErr.BrokerFailure)
	}
	opts := &mq.SubscribeOptions{PrefetchCount: 16}
	if err := d.queue.Subscribe(ctx, model.QueueResponses, d.handleResponse, opts); err != nil {
		return appErr.Wrap(err, appErr.BrokerFailure)
	}
	return d.queue.Start()
}

// Stop stops the consumer.
func (d *Dispatcher) Stop() error {
	return d.queue.Stop()
}

// Register creates a waiter for a correlation id. The returned cancel must
// be called exactly once, on every path, to release the slot.
func (d *Dispatcher) Register(correlationID string) (<-chan model.TaskResponse, func()) {
	ch := make(chan model.TaskResponse, 1)
	d.mu.Lock()
	d.waiters[correlationID] = ch
	d.mu.Unlock()

	cancel := func() {
		d.mu.Lock()
		delete(d.waiters, correlationID)
		d.mu.Unlock()
	}
	return ch, cancel
}

// handleResponse always acks: a response that cannot be delivered to a
// waiter is stale and redelivery would not change that.
func (d *Dispatcher) handleResponse(ctx context.Context, msg *mq.Message) error {
	var resp model.TaskResponse
	if err := json.Unmarshal(msg.Body, &resp); err != nil {
		logger.Error(ctx, "drop undecodable response", zap.Error(err))
		return nil
	}
	if resp.CorrelationID == "" {
		logger.Warn(ctx, "drop response without correlation id")
		return nil
	}

	d.mu.Lock()
	ch, ok := d.waiters[resp.CorrelationID]
	if ok {
		delete(d.waiters, resp.CorrelationID)
	}
	d.mu.Unlock()

	if !ok {
		logger.Debug(ctx, "drop unclaimed response", zap.String("correlation_id", resp.CorrelationID))
		return nil
	}
	ch <- resp
	return nil
}
