package service

import (
	"context"
	"fmt"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/stockcounter"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/store"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/util"

	"go.uber.org/zap"
)

// StockSyncer copies authoritative stock levels into the fast counters. A
// unit that is never synced reads as zero stock on the fast path, so this
// runs at startup and whenever catalog edits change stock materially. It is
// a full overwrite, never an incremental adjustment: the pipeline's own
// reserve/release traffic must not race a partial sync.
type StockSyncer struct {
	store   *store.Store
	counter *stockcounter.Counter
	logger  *zap.Logger
}

// NewStockSyncer creates a new stock syncer
func NewStockSyncer(store *store.Store, counter *stockcounter.Counter) *StockSyncer {
	return &StockSyncer{
		store:   store,
		counter: counter,
		logger:  util.GetLogger(),
	}
}

// SyncAll overwrites every fast counter from the durable stock table and
// returns the number of counters written.
func (ss *StockSyncer) SyncAll(ctx context.Context) (int, error) {
	ss.logger.Info("Starting stock counter sync")

	stocks, err := ss.store.GetAllStocks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load stocks: %w", err)
	}

	synced := 0
	for _, st := range stocks {
		if err := ss.counter.Set(ctx, st.ProductID, st.Quantity); err != nil {
			ss.logger.Error("Failed to sync counter",
				zap.Int64("product_id", st.ProductID),
				zap.Error(err))
			continue
		}
		synced++
	}

	ss.logger.Info("Stock counter sync completed",
		zap.Int("synced", synced),
		zap.Int("total", len(stocks)))
	return synced, nil
}

// StockView pairs the authoritative stock level with the fast counter value
// so operators can spot drift between the two.
type StockView struct {
	ProductID     int64 `json:"product_id"`
	Authoritative int   `json:"authoritative"`
	Counter       int   `json:"counter"`
}

// Inspect reads both stock views for one product.
func (ss *StockSyncer) Inspect(ctx context.Context, productID int64) (*StockView, error) {
	st, err := ss.store.GetStock(ctx, productID)
	if err != nil {
		return nil, err
	}

	counted, err := ss.counter.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to read counter for product %d: %w", productID, err)
	}

	return &StockView{
		ProductID:     productID,
		Authoritative: st.Quantity,
		Counter:       counted,
	}, nil
}
