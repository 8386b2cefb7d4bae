package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

const decrementSQL = `UPDATE products
SET stock = CASE WHEN stock > ? THEN stock - ? ELSE 0 END,
    is_published = CASE WHEN stock > ? THEN is_published ELSE false END,
    updated_at = ?
WHERE id = ?
RETURNING stock, is_published`

// Line is a single product quantity to remove from stock.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// Result is the product state after a decrement.
type Result struct {
	ProductID   uuid.UUID
	Remaining   int
	Unpublished bool
}

// DepletionRecorder counts products taken off sale by a decrement.
type DepletionRecorder interface {
	IncDepletion()
}

// Ledger owns the stock counter of every product.
type Ledger struct {
	db      *gorm.DB
	logg    *logger.Logger
	metrics DepletionRecorder
	now     func() time.Time
}

func NewLedger(db *gorm.DB, logg *logger.Logger, metrics DepletionRecorder) *Ledger {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Ledger{db: db, logg: logg, metrics: metrics, now: time.Now}
}

// WithTx returns a ledger bound to tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	if tx == nil {
		return l
	}
	clone := *l
	clone.db = tx
	return &clone
}

// Decrement removes qty from the product's stock in one statement. Stock never
// goes below zero; a product whose stock reaches zero is unpublished in the same
// write so concurrent decrements cannot leave a published product with no stock.
func (l *Ledger) Decrement(ctx context.Context, productID uuid.UUID, qty int) (*Result, error) {
	if qty <= 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be positive, got %d", qty)
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var row struct {
		Stock       int
		IsPublished bool
	}
	res := l.db.WithContext(ctx).Raw(decrementSQL, qty, qty, qty, l.now().UTC(), productID).Scan(&row)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}

	result := &Result{ProductID: productID, Remaining: row.Stock}
	if row.Stock == 0 && !row.IsPublished {
		result.Unpublished = true
		if l.metrics != nil {
			l.metrics.IncDepletion()
		}
	}
	return result, nil
}

// DecrementLines applies each line in order. A failing line is logged and does
// not stop the remaining lines; the combined error is returned.
func (l *Ledger) DecrementLines(ctx context.Context, lines []Line) ([]Result, error) {
	results := make([]Result, 0, len(lines))
	var errs error
	for _, line := range lines {
		res, err := l.Decrement(ctx, line.ProductID, line.Quantity)
		if err != nil {
			lctx := l.logg.WithFields(ctx, map[string]any{
				"product_id": line.ProductID.String(),
				"quantity":   line.Quantity,
			})
			l.logg.Error(lctx, "stock decrement failed", err)
			errs = multierr.Append(errs, err)
			continue
		}
		if res.Unpublished {
			l.logg.Info(l.logg.WithField(ctx, "product_id", line.ProductID.String()), "product sold out and unpublished")
		}
		results = append(results, *res)
	}
	return results, errs
}

// Merge collapses lines for the same product so each product is written once.
func Merge(lines []Line) []Line {
	index := make(map[uuid.UUID]int, len(lines))
	merged := make([]Line, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}
