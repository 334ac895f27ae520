package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/broker"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/checkout"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/models"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Processor runs one job attempt. Implemented by checkout.Pipeline.
type Processor interface {
	Process(ctx context.Context, job *models.OrderJob) checkout.Outcome
}

// Pool consumes the intake queue with a fixed number of concurrent workers.
// Correctness does not depend on the pool size: stock is guarded by the
// atomic counter and the conditional decrement, so the bound only tunes
// throughput against database contention.
type Pool struct {
	consumer    *broker.Consumer
	queue       *broker.IntakeQueue
	events      *broker.EventPublisher
	pipeline    Processor
	size        int
	maxAttempts int

	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewPool creates a worker pool.
func NewPool(consumer *broker.Consumer, queue *broker.IntakeQueue, events *broker.EventPublisher, pipeline Processor, size, maxAttempts int) *Pool {
	if size < 1 {
		size = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Pool{
		consumer:    consumer,
		queue:       queue,
		events:      events,
		pipeline:    pipeline,
		size:        size,
		maxAttempts: maxAttempts,
		logger:      util.GetLogger(),
	}
}

// Start launches the worker goroutines. It returns immediately; workers run
// until the context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting checkout worker pool", zap.Int("workers", p.size))
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Stop closes the consumer and waits for all workers to drain.
func (p *Pool) Stop() error {
	err := p.consumer.Close()
	p.wg.Wait()
	p.logger.Info("Checkout worker pool stopped")
	return err
}

func (p *Pool) run(ctx context.Context, id int) {
	log := p.logger.With(zap.Int("worker", id))

	for {
		msg, err := p.consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				// Context cancelled or consumer closed: shut down.
				return
			}
			log.Warn("Fetch failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		job, attempt, err := broker.DecodeJob(msg)
		if err != nil {
			// Poison message: park it for inspection, never retry.
			log.Error("Undecodable job message", zap.Error(err))
			if dlErr := p.queue.DeadLetter(ctx, msg, "undecodable: "+err.Error()); dlErr != nil {
				log.Error("Dead-letter publish failed, leaving message uncommitted", zap.Error(dlErr))
				continue
			}
			util.JobsDeadLetteredTotal.WithLabelValues("undecodable").Inc()
			p.ack(ctx, msg, log)
			continue
		}

		outcome := p.pipeline.Process(ctx, job)

		switch disposition(outcome, attempt, p.maxAttempts) {
		case actionAck:
			p.ack(ctx, msg, log)

		case actionRequeue:
			log.Info("Requeueing job",
				zap.String("order_id", job.OrderID),
				zap.Int("attempt", attempt),
				zap.Error(outcome.Err))
			if err := p.queue.Requeue(ctx, job, attempt+1); err != nil {
				// Leave the message uncommitted so the broker redelivers it.
				log.Error("Requeue failed", zap.String("order_id", job.OrderID), zap.Error(err))
				continue
			}
			p.ack(ctx, msg, log)

		case actionDeadLetter:
			reason := outcome.Status.String()
			if outcome.Err != nil {
				reason = outcome.Err.Error()
			}
			log.Warn("Dead-lettering job",
				zap.String("order_id", job.OrderID),
				zap.Int("attempt", attempt),
				zap.String("reason", reason))
			if err := p.queue.DeadLetter(ctx, msg, reason); err != nil {
				log.Error("Dead-letter publish failed, leaving message uncommitted", zap.Error(err))
				continue
			}
			util.JobsDeadLetteredTotal.WithLabelValues(outcome.Status.String()).Inc()
			if err := p.events.PublishOrderFailed(ctx, job.OrderID, reason); err != nil {
				log.Error("OrderFailed event publish failed", zap.Error(err))
			}
			p.ack(ctx, msg, log)
		}
	}
}

func (p *Pool) ack(ctx context.Context, msg kafka.Message, log *zap.Logger) {
	if err := p.consumer.Commit(ctx, msg); err != nil {
		log.Error("Commit of consumed message failed", zap.Error(err))
	}
}
