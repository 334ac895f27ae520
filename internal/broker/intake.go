package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/models"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// attemptHeader carries the delivery attempt count across requeues. The
// first delivery has no header and counts as attempt 1.
const attemptHeader = "x-attempt"

// IntakeQueue is the durable work queue for checkout jobs. Enqueue is the
// only inbound surface; Requeue and DeadLetter serve the worker pool's retry
// policy.
type IntakeQueue struct {
	jobs *Producer
	dead *Producer
}

// NewIntakeQueue creates an intake queue writing jobs to the order topic and
// exhausted or poisoned jobs to the dead-letter topic.
func NewIntakeQueue(jobs, dead *Producer) *IntakeQueue {
	return &IntakeQueue{jobs: jobs, dead: dead}
}

// Enqueue submits a new checkout job. The job's OrderID must already be set
// by the caller.
func (q *IntakeQueue) Enqueue(ctx context.Context, job *models.OrderJob) error {
	if job.OrderID == "" {
		return fmt.Errorf("order job has no order id")
	}

	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal order job: %w", err)
	}

	if err := q.jobs.Publish(ctx, job.OrderID, value); err != nil {
		return err
	}

	util.JobsEnqueuedTotal.Inc()
	return nil
}

// Requeue resubmits a job for another attempt, carrying the attempt count in
// a message header so the retry budget survives the round trip.
func (q *IntakeQueue) Requeue(ctx context.Context, job *models.OrderJob, attempt int) error {
	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal order job: %w", err)
	}

	header := kafka.Header{Key: attemptHeader, Value: []byte(strconv.Itoa(attempt))}
	if err := q.jobs.Publish(ctx, job.OrderID, value, header); err != nil {
		return err
	}

	util.JobsRetriedTotal.Inc()
	return nil
}

// DeadLetter moves a job to the failure topic for manual inspection. The
// original payload is preserved verbatim; the failure reason travels as a
// header.
func (q *IntakeQueue) DeadLetter(ctx context.Context, msg kafka.Message, reason string) error {
	headers := append(msg.Headers, kafka.Header{Key: "x-failure-reason", Value: []byte(reason)})
	return q.dead.Publish(ctx, string(msg.Key), msg.Value, headers...)
}

// DecodeJob unpacks an intake message into the job and its attempt number.
func DecodeJob(msg kafka.Message) (*models.OrderJob, int, error) {
	var job models.OrderJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal order job: %w", err)
	}
	return &job, MessageAttempt(msg), nil
}

// MessageAttempt reads the attempt header, defaulting to 1 for first
// deliveries or unreadable headers.
func MessageAttempt(msg kafka.Message) int {
	for _, h := range msg.Headers {
		if h.Key != attemptHeader {
			continue
		}
		attempt, err := strconv.Atoi(string(h.Value))
		if err != nil || attempt < 1 {
			return 1
		}
		return attempt
	}
	return 1
}

// NewOrderJob builds a job with a freshly generated order id and enqueue
// timestamp. The id is assigned here, before the job ever reaches the queue,
// so every retry targets the same order row.
func NewOrderJob(buyerID int64, items []models.JobItem, paymentMethod string, directPurchase bool) *models.OrderJob {
	return &models.OrderJob{
		OrderID:        uuid.New().String(),
		BuyerID:        buyerID,
		Items:          items,
		PaymentMethod:  paymentMethod,
		DirectPurchase: directPurchase,
		EnqueuedAt:     time.Now(),
	}
}
