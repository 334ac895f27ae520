package checkout

// Status is the terminal state of one job attempt.
type Status int

const (
	// Succeeded means the order is durably committed (or was already
	// committed by a previous attempt with the same order id).
	Succeeded Status = iota
	// Retriable means the attempt failed on a transient condition and may be
	// redelivered by the queue. Any stock reserved in this attempt has
	// already been released.
	Retriable
	// Fatal means the attempt failed on a condition a retry cannot fix.
	Fatal
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Retriable:
		return "retriable"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one job attempt. The queue layer owns what
// happens next: ack on Succeeded, backoff and redeliver on Retriable,
// dead-letter on Fatal.
type Outcome struct {
	Status  Status
	OrderID string
	Err     error
}

func succeeded(orderID string) Outcome {
	return Outcome{Status: Succeeded, OrderID: orderID}
}

func retriable(orderID string, err error) Outcome {
	return Outcome{Status: Retriable, OrderID: orderID, Err: err}
}

func fatal(orderID string, err error) Outcome {
	return Outcome{Status: Fatal, OrderID: orderID, Err: err}
}
