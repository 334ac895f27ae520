package worker

import "github.com/AnDev002/G-Mall-BE-sub001/internal/checkout"

type action int

const (
	actionAck action = iota
	actionRequeue
	actionDeadLetter
)

// disposition decides what the queue does with a finished attempt. Fatal
// outcomes never burn retries; retriable ones requeue until the attempt
// budget is spent, then dead-letter for manual inspection.
func disposition(outcome checkout.Outcome, attempt, maxAttempts int) action {
	switch outcome.Status {
	case checkout.Succeeded:
		return actionAck
	case checkout.Retriable:
		if attempt >= maxAttempts {
			return actionDeadLetter
		}
		return actionRequeue
	default:
		return actionDeadLetter
	}
}
