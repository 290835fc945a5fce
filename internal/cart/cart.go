// Package cart implements the session-backed cart and wishlist ledgers.
// All stock checks here consult the live catalog; the session only ever
// holds quantities and price snapshots.
package cart

import (
	"context"
	"errors"
	"sort"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/session"
	"github.com/shopspring/decimal"
)

// Catalog is the read surface the ledger needs from the product catalog.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

type Ledger struct {
	sessions *session.Store
	catalog  Catalog
}

func NewLedger(sessions *session.Store, catalog Catalog) *Ledger {
	return &Ledger{sessions: sessions, catalog: catalog}
}

// Add puts one more unit of the product in the cart. If that would
// exceed the product's live stock the cart is left unchanged and an
// InsufficientStockError reports the stock ceiling. The unit price is
// snapshotted when the line is first created.
func (l *Ledger) Add(ctx context.Context, sessionID string, productID int64) error {
	product, err := l.catalog.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	c, err := l.sessions.Cart(ctx, sessionID)
	if err != nil {
		return err
	}

	line := c[productID]
	candidate := line.Quantity + 1
	if candidate > product.Stock {
		return &database.InsufficientStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Available: product.Stock,
		}
	}

	if line.Quantity == 0 {
		line.UnitPrice = product.Price
	}
	line.Quantity = candidate
	c[productID] = line

	return l.sessions.PutCart(ctx, sessionID, c)
}

// Remove deletes the product's line. Removing an absent product is not
// an error.
func (l *Ledger) Remove(ctx context.Context, sessionID string, productID int64) error {
	c, err := l.sessions.Cart(ctx, sessionID)
	if err != nil {
		return err
	}

	if _, ok := c[productID]; !ok {
		return nil
	}
	delete(c, productID)

	return l.sessions.PutCart(ctx, sessionID, c)
}

// Update sets the line's quantity, clamped to [1, live stock]. It
// returns the stored quantity and whether the request was reduced to
// the stock ceiling, so callers can surface a notice. Updating a
// product that is not in the cart is a no-op.
func (l *Ledger) Update(ctx context.Context, sessionID string, productID int64, requested int) (quantity int, reduced bool, err error) {
	c, err := l.sessions.Cart(ctx, sessionID)
	if err != nil {
		return 0, false, err
	}

	line, ok := c[productID]
	if !ok {
		return 0, false, nil
	}

	product, err := l.catalog.GetProduct(ctx, productID)
	if err != nil {
		return 0, false, err
	}

	if requested < 1 {
		requested = 1
	}
	if requested > product.Stock {
		requested = product.Stock
		reduced = true
	}

	line.Quantity = requested
	c[productID] = line

	if err := l.sessions.PutCart(ctx, sessionID, c); err != nil {
		return 0, false, err
	}
	return requested, reduced, nil
}

// Line is one resolved cart entry. When the referenced product no
// longer exists in the catalog the line is tagged Stale instead of
// failing the whole snapshot; the caller decides whether to drop or
// display it.
type Line struct {
	ProductID int64           `json:"product_id"`
	Product   *models.Product `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Stale     bool            `json:"stale,omitempty"`
}

type Snapshot struct {
	Lines []Line          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Snapshot resolves every cart line against the catalog. Subtotals use
// the snapshot unit price, not the live catalog price. Stale lines do
// not contribute to the total.
func (l *Ledger) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	c, err := l.sessions.Cart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Total: decimal.Zero}
	for productID, cl := range c {
		line := Line{
			ProductID: productID,
			Quantity:  cl.Quantity,
			UnitPrice: cl.UnitPrice,
		}

		product, err := l.catalog.GetProduct(ctx, productID)
		switch {
		case errors.Is(err, database.ErrProductNotFound):
			line.Stale = true
		case err != nil:
			return nil, err
		default:
			line.Product = product
			line.Subtotal = cl.UnitPrice.Mul(decimal.NewFromInt(int64(cl.Quantity)))
			snap.Total = snap.Total.Add(line.Subtotal)
		}

		snap.Lines = append(snap.Lines, line)
	}

	sort.Slice(snap.Lines, func(i, j int) bool { return snap.Lines[i].ProductID < snap.Lines[j].ProductID })
	return snap, nil
}

// Count is the total quantity across all lines, for the cart badge.
func (l *Ledger) Count(ctx context.Context, sessionID string) (int, error) {
	c, err := l.sessions.Cart(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, line := range c {
		count += line.Quantity
	}
	return count, nil
}

// Clear resets the cart to empty. Checkout calls this after the order
// is committed.
func (l *Ledger) Clear(ctx context.Context, sessionID string) error {
	return l.sessions.PutCart(ctx, sessionID, session.Cart{})
}
