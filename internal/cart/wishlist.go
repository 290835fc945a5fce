package cart

import (
	"context"
	"errors"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/session"
)

// ToggleWishlist adds the product id if absent and removes it if
// present; toggling twice restores the original membership. No stock or
// existence check happens here.
func (l *Ledger) ToggleWishlist(ctx context.Context, sessionID string, productID int64) (added bool, err error) {
	w, err := l.sessions.Wishlist(ctx, sessionID)
	if err != nil {
		return false, err
	}

	if w.Contains(productID) {
		next := make(session.Wishlist, 0, len(w)-1)
		for _, id := range w {
			if id != productID {
				next = append(next, id)
			}
		}
		w = next
	} else {
		w = append(w, productID)
		added = true
	}

	if err := l.sessions.PutWishlist(ctx, sessionID, w); err != nil {
		return false, err
	}
	return added, nil
}

// WishlistProducts resolves the wishlist against the catalog; ids that
// no longer resolve to a product are silently dropped.
func (l *Ledger) WishlistProducts(ctx context.Context, sessionID string) ([]models.Product, error) {
	w, err := l.sessions.Wishlist(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(w))
	for _, id := range w {
		product, err := l.catalog.GetProduct(ctx, id)
		if errors.Is(err, database.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, nil
}

func (l *Ledger) WishlistCount(ctx context.Context, sessionID string) (int, error) {
	w, err := l.sessions.Wishlist(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return len(w), nil
}
