package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/safar/go-storefront/internal/store"
)

type checkoutPayload struct {
	Shipping             store.AddressForm `json:"shipping"`
	Billing              store.AddressForm `json:"billing"`
	UseShippingAsBilling bool              `json:"use_shipping_as_billing"`
}

// handleCheckout converts the session cart into an order. The cart is
// only cleared after the transaction commits; on any failure it is left
// untouched so the user can adjust quantities and retry.
func (a *api) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(r)

	var payload checkoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := a.currentUserID(r)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	snapshot, err := a.ledger.Snapshot(ctx, sid)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	lines := make([]store.CheckoutLine, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		lines = append(lines, store.CheckoutLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	order, err := store.Checkout(ctx, a.db, store.CheckoutRequest{
		UserID:               userID,
		Lines:                lines,
		Shipping:             payload.Shipping,
		Billing:              payload.Billing,
		UseShippingAsBilling: payload.UseShippingAsBilling,
		Currency:             a.cfg.Shop.Currency,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if err := a.ledger.Clear(ctx, sid); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "order placed successfully",
		"order":   order,
	})
}

func (a *api) handleOrderConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := store.GetOrder(ctx, a.db, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	shipping, err := store.GetAddress(ctx, a.db, order.ShippingAddressID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	billing := shipping
	if order.BillingAddressID != order.ShippingAddressID {
		billing, err = store.GetAddress(ctx, a.db, order.BillingAddressID)
		if err != nil {
			respondStoreError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order":            order,
		"shipping_address": shipping,
		"billing_address":  billing,
	})
}
