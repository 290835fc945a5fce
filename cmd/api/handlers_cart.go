package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func productIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
}

func (a *api) handleCartDetail(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.ledger.Snapshot(r.Context(), sessionID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (a *api) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	if err := a.ledger.Add(r.Context(), sessionID(r), productID); err != nil {
		respondStoreError(w, err)
		return
	}

	count, err := a.ledger.Count(r.Context(), sessionID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "added to cart",
		"cart_count": count,
	})
}

func (a *api) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity, reduced, err := a.ledger.Update(r.Context(), sessionID(r), productID, req.Quantity)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	resp := map[string]interface{}{
		"message":  "cart updated",
		"quantity": quantity,
	}
	if reduced {
		resp["notice"] = fmt.Sprintf("Quantity reduced to %d due to stock limits.", quantity)
	}

	respondJSON(w, http.StatusOK, resp)
}

func (a *api) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	if err := a.ledger.Remove(r.Context(), sessionID(r), productID); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "removed from cart"})
}

func (a *api) handleWishlistDetail(w http.ResponseWriter, r *http.Request) {
	products, err := a.ledger.WishlistProducts(r.Context(), sessionID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

func (a *api) handleWishlistToggle(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	added, err := a.ledger.ToggleWishlist(r.Context(), sessionID(r), productID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	count, err := a.ledger.WishlistCount(r.Context(), sessionID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"added":          added,
		"wishlist_count": count,
	})
}
