package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/models"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/util"

	"go.uber.org/zap"
)

// StockCounter is the fast-path admission gate (see internal/stockcounter).
type StockCounter interface {
	Reserve(ctx context.Context, productID int64, quantity int) (bool, error)
	Release(ctx context.Context, productID int64, quantity int) error
}

// CommitResult describes a successful durable commit.
type CommitResult struct {
	Total int64
	// Replayed is true when an order with the job's id already existed, i.e.
	// this attempt was a redelivery of an already-committed job.
	Replayed bool
}

// OrderCommitter runs the authoritative transaction: idempotency check,
// price re-fetch, conditional stock decrement, order + line insert.
type OrderCommitter interface {
	CommitOrder(ctx context.Context, job *models.OrderJob) (*CommitResult, error)
}

// Effects are the post-commit hooks: cart clearing and purchase analytics.
// Both are best-effort; their failure never undoes a committed order.
type Effects interface {
	OrderCommitted(ctx context.Context, orderID string, buyerID int64, directPurchase bool) error
	PurchaseRecorded(ctx context.Context, orderID string, totalAmount int64) error
}

// Pipeline processes one OrderJob at a time: fast reservation per line item
// (fail-fast), then the durable commit, compensating the fast counter when
// anything fails before the commit lands.
type Pipeline struct {
	counter   StockCounter
	committer OrderCommitter
	effects   Effects

	commitTimeout  time.Duration
	releaseTimeout time.Duration

	logger *zap.Logger
}

// NewPipeline creates a checkout pipeline.
func NewPipeline(counter StockCounter, committer OrderCommitter, effects Effects, commitTimeout time.Duration) *Pipeline {
	if commitTimeout <= 0 {
		commitTimeout = 10 * time.Second
	}
	return &Pipeline{
		counter:        counter,
		committer:      committer,
		effects:        effects,
		commitTimeout:  commitTimeout,
		releaseTimeout: 5 * time.Second,
		logger:         util.GetLogger(),
	}
}

// Process runs one job attempt to completion and reports the tagged outcome.
// Every failure path releases whatever this attempt reserved before
// returning, so a redelivery always starts from a clean counter state.
func (p *Pipeline) Process(ctx context.Context, job *models.OrderJob) Outcome {
	ctx, span := util.StartSpan(ctx, "checkout.Process")
	defer span.End()

	if err := validateJob(job); err != nil {
		// Nothing was reserved yet, no compensation needed.
		return fatal(job.OrderID, err)
	}

	acquired, err := p.reserve(ctx, job)
	if err != nil {
		p.compensate(job.OrderID, acquired)
		return p.classify(job, err)
	}

	result, err := p.commit(ctx, job)
	if err != nil {
		p.compensate(job.OrderID, acquired)
		return p.classify(job, err)
	}

	if result.Replayed {
		// A previous attempt already committed this order and decremented
		// authoritative stock. The reservation made by THIS attempt is an
		// over-hold on the counter and must be returned.
		p.compensate(job.OrderID, acquired)
	}

	// The order is durably committed; from here on nothing may release
	// stock. Effect failures are logged and counted, never compensated.
	p.fireEffects(ctx, job, result)

	if result.Replayed {
		util.OrdersReplayedTotal.Inc()
		p.logger.Info("Order already committed by earlier attempt",
			zap.String("order_id", job.OrderID))
	} else {
		util.OrdersCommittedTotal.Inc()
		p.logger.Info("Order committed",
			zap.String("order_id", job.OrderID),
			zap.Int64("total_amount", result.Total))
	}

	return succeeded(job.OrderID)
}

// reserve walks the line items in order, reserving each on the fast counter.
// It stops at the first denial or error and returns the items reserved so
// far; the caller owns releasing them.
func (p *Pipeline) reserve(ctx context.Context, job *models.OrderJob) ([]models.JobItem, error) {
	ctx, span := util.StartSpan(ctx, "checkout.reserve")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReserveLatency.Observe(time.Since(start).Seconds())
	}()

	acquired := make([]models.JobItem, 0, len(job.Items))
	for _, item := range job.Items {
		ok, err := p.counter.Reserve(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return acquired, fmt.Errorf("reserve product %d: %w", item.ProductID, err)
		}
		if !ok {
			util.ReservationsDeniedTotal.Inc()
			return acquired, fmt.Errorf("product %d: %w", item.ProductID, ErrReservationDenied)
		}
		acquired = append(acquired, item)
	}

	return acquired, nil
}

func (p *Pipeline) commit(ctx context.Context, job *models.OrderJob) (*CommitResult, error) {
	ctx, span := util.StartSpan(ctx, "checkout.commit")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CommitLatency.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, p.commitTimeout)
	defer cancel()

	return p.committer.CommitOrder(ctx, job)
}

// compensate releases every reserved item of this attempt, in the order they
// were acquired. It runs on a detached context: the job context may already
// be cancelled or timed out, and the release must still go through or stock
// leaks.
func (p *Pipeline) compensate(orderID string, acquired []models.JobItem) {
	if len(acquired) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.releaseTimeout)
	defer cancel()

	for _, item := range acquired {
		if err := p.counter.Release(ctx, item.ProductID, item.Quantity); err != nil {
			p.logger.Error("Failed to release reserved stock",
				zap.String("order_id", orderID),
				zap.Int64("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			continue
		}
		util.CompensationsTotal.Inc()
	}
}

func (p *Pipeline) fireEffects(ctx context.Context, job *models.OrderJob, result *CommitResult) {
	ctx, span := util.StartSpan(ctx, "checkout.effects")
	defer span.End()

	// Cart checkout consumes the cart; a direct "buy now" never touched it.
	if !job.DirectPurchase {
		if err := p.effects.OrderCommitted(ctx, job.OrderID, job.BuyerID, job.DirectPurchase); err != nil {
			util.EffectFailuresTotal.WithLabelValues("cart_clear").Inc()
			p.logger.Error("Cart clear failed after commit",
				zap.String("order_id", job.OrderID),
				zap.Error(err))
		}
	}

	if err := p.effects.PurchaseRecorded(ctx, job.OrderID, result.Total); err != nil {
		util.EffectFailuresTotal.WithLabelValues("analytics").Inc()
		p.logger.Error("Purchase event emission failed after commit",
			zap.String("order_id", job.OrderID),
			zap.Error(err))
	}
}

func (p *Pipeline) classify(job *models.OrderJob, err error) Outcome {
	if IsFatal(err) {
		if errors.Is(err, ErrStockConflict) {
			util.StockConflictsTotal.Inc()
			p.logger.Warn("Fast counter disagreed with authoritative stock",
				zap.String("order_id", job.OrderID),
				zap.Error(err))
		}
		return fatal(job.OrderID, err)
	}

	p.logger.Warn("Transient checkout failure",
		zap.String("order_id", job.OrderID),
		zap.Error(err))
	return retriable(job.OrderID, err)
}

func validateJob(job *models.OrderJob) error {
	if len(job.Items) == 0 {
		return fmt.Errorf("order %s has no line items: %w", job.OrderID, ErrInvalidQuantity)
	}
	for _, item := range job.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("order %s, product %d, quantity %d: %w",
				job.OrderID, item.ProductID, item.Quantity, ErrInvalidQuantity)
		}
	}
	return nil
}
