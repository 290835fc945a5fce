package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
)

func (a *api) handleProductList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.ProductFilter{
		Query:        q.Get("q"),
		CategorySlug: q.Get("category"),
		Sort:         q.Get("sort"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	if raw := q.Get("min_price"); raw != "" {
		if price, err := decimal.NewFromString(raw); err == nil {
			filter.MinPrice = &price
		}
	}
	if raw := q.Get("max_price"); raw != "" {
		if price, err := decimal.NewFromString(raw); err == nil {
			filter.MaxPrice = &price
		}
	}

	result, err := store.SearchProducts(ctx, a.db, filter)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (a *api) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	product, err := store.GetProductBySlug(ctx, a.db, chi.URLParam(r, "slug"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	reviews, err := store.ListReviews(ctx, a.db, product.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	avgRating, err := store.AverageRating(ctx, a.db, product.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product":    product,
		"reviews":    reviews,
		"avg_rating": avgRating,
	})
}

func (a *api) handleProductCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		CategoryID  int64  `json:"category_id"`
		SKU         string `json:"sku"`
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
		Price       string `json:"price"`
		Stock       int    `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid price")
		return
	}

	product, err := store.CreateProduct(ctx, a.db, req.CategoryID, req.SKU, req.Name, req.Slug, req.Description, price, req.Stock)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (a *api) handleReviewCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	product, err := store.GetProductBySlug(ctx, a.db, chi.URLParam(r, "slug"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req struct {
		UserName string `json:"user_name"`
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	review, err := store.CreateReview(ctx, a.db, product.ID, req.UserName, req.Rating, req.Comment)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, review)
}

func (a *api) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), a.db)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, categories)
}

func (a *api) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := store.CreateCategory(r.Context(), a.db, req.Name, req.Slug)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, category)
}
