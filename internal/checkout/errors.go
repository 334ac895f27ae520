package checkout

import "errors"

// Pipeline error taxonomy. Reservation and commit failures are classified
// into these variants so the queue layer can apply differentiated retry
// policy instead of retrying everything uniformly.
var (
	// ErrReservationDenied means a line item's fast counter had insufficient
	// quantity. A normal outcome under contention, not retriable: the buyer
	// sees "out of stock".
	ErrReservationDenied = errors.New("reservation denied: insufficient fast-path stock")

	// ErrStockConflict means the authoritative conditional decrement affected
	// zero rows: the fast counter and the durable store disagreed. Fatal for
	// the job, and a drift signal for operators.
	ErrStockConflict = errors.New("authoritative stock conflict")

	// ErrUnitNotFound means a referenced sellable unit vanished between
	// enqueue and commit. Fatal without re-resolving the order.
	ErrUnitNotFound = errors.New("sellable unit not found")

	// ErrInvalidQuantity means a line item carried a zero or negative
	// quantity. Rejected before anything is reserved.
	ErrInvalidQuantity = errors.New("line item quantity must be positive")
)

// IsFatal reports whether err is one of the non-retriable pipeline errors.
// Anything else (network failures, store timeouts) is considered transient
// and left to the queue's retry policy.
func IsFatal(err error) bool {
	return errors.Is(err, ErrReservationDenied) ||
		errors.Is(err, ErrStockConflict) ||
		errors.Is(err, ErrUnitNotFound) ||
		errors.Is(err, ErrInvalidQuantity)
}
