package integration

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
)

func testShipping() store.AddressForm {
	return store.AddressForm{
		FullName:   "Test Buyer",
		Email:      "buyer@example.com",
		Phone:      "555-0100",
		Line1:      "10 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
		t.Fatalf("Count %s: %v", table, err)
	}
	return count
}

func TestCheckout(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	category := seedCategory(t, db, "Checkout", "checkout")
	productA := seedProduct(t, db, category.ID, "Product A", "product-a", "10.00", 5)
	productB := seedProduct(t, db, category.ID, "Product B", "product-b", "25.00", 3)

	order, err := store.Checkout(ctx, db, store.CheckoutRequest{
		Lines: []store.CheckoutLine{
			{ProductID: productA.ID, Quantity: 2},
			{ProductID: productB.ID, Quantity: 1},
		},
		Shipping:             testShipping(),
		UseShippingAsBilling: true,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	expectedTotal := decimal.RequireFromString("45.00")
	if !order.TotalAmount.Equal(expectedTotal) {
		t.Errorf("Expected total %s, got %s", expectedTotal, order.TotalAmount)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("Expected pending order, got %s", order.Status)
	}
	if len(order.Items) != 2 {
		t.Fatalf("Expected 2 order items, got %d", len(order.Items))
	}

	if order.Payment == nil {
		t.Fatal("Expected a payment record")
	}
	if order.Payment.Status != models.PaymentStatusPending {
		t.Errorf("Expected pending payment, got %s", order.Payment.Status)
	}
	if !order.Payment.Amount.Equal(expectedTotal) {
		t.Errorf("Expected payment amount %s, got %s", expectedTotal, order.Payment.Amount)
	}

	productAAfter, err := store.GetProduct(ctx, db, productA.ID)
	if err != nil {
		t.Fatalf("Get product A: %v", err)
	}
	if productAAfter.Stock != 3 {
		t.Errorf("Expected product A stock 3, got %d", productAAfter.Stock)
	}

	productBAfter, err := store.GetProduct(ctx, db, productB.ID)
	if err != nil {
		t.Fatalf("Get product B: %v", err)
	}
	if productBAfter.Stock != 2 {
		t.Errorf("Expected product B stock 2, got %d", productBAfter.Stock)
	}
}

func TestCheckoutUsesCurrentCatalogPrice(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	category := seedCategory(t, db, "Repriced", "repriced")
	product := seedProduct(t, db, category.ID, "Volatile", "volatile", "10.00", 5)

	// The cart snapshotted 10.00, but the catalog changed underneath it.
	if _, err := db.ExecContext(ctx, `UPDATE products SET price = 12.50 WHERE id = $1`, product.ID); err != nil {
		t.Fatalf("Reprice product: %v", err)
	}

	order, err := store.Checkout(ctx, db, store.CheckoutRequest{
		Lines:                []store.CheckoutLine{{ProductID: product.ID, Quantity: 2}},
		Shipping:             testShipping(),
		UseShippingAsBilling: true,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	currentPrice := decimal.RequireFromString("12.50")
	if !order.Items[0].Price.Equal(currentPrice) {
		t.Errorf("Expected item priced at current %s, got %s", currentPrice, order.Items[0].Price)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("Expected total 25.00, got %s", order.TotalAmount)
	}
}

func TestCheckoutSharedBillingAddress(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	category := seedCategory(t, db, "Billing", "billing")
	product := seedProduct(t, db, category.ID, "Billed", "billed", "10.00", 5)

	order, err := store.Checkout(ctx, db, store.CheckoutRequest{
		Lines:                []store.CheckoutLine{{ProductID: product.ID, Quantity: 1}},
		Shipping:             testShipping(),
		UseShippingAsBilling: true,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if order.ShippingAddressID != order.BillingAddressID {
		t.Errorf("Expected shared address row, got shipping %d billing %d",
			order.ShippingAddressID, order.BillingAddressID)
	}
	if count := countRows(t, db, "addresses"); count != 1 {
		t.Errorf("Expected exactly 1 address row, got %d", count)
	}
}

func TestCheckoutBillingFallsBackToShipping(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	category := seedCategory(t, db, "Fallback", "fallback")
	product := seedProduct(t, db, category.ID, "Fell", "fell", "10.00", 5)

	order, err := store.Checkout(ctx, db, store.CheckoutRequest{
		Lines:    []store.CheckoutLine{{ProductID: product.ID, Quantity: 1}},
		Shipping: testShipping(),
		Billing:  store.AddressForm{FullName: "Accounts Payable"},
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if order.ShippingAddressID == order.BillingAddressID {
		t.Error("Expected a separate billing address row")
	}
	if count := countRows(t, db, "addresses"); count != 2 {
		t.Errorf("Expected 2 address rows, got %d", count)
	}

	billing, err := store.GetAddress(ctx, db, order.BillingAddressID)
	if err != nil {
		t.Fatalf("Get billing address: %v", err)
	}
	if billing.FullName != "Accounts Payable" {
		t.Errorf("Expected billing name kept, got %s", billing.FullName)
	}
	if billing.Line1 != "10 Main St" || billing.City != "Springfield" {
		t.Errorf("Expected blank billing fields to fall back to shipping, got %+v", billing)
	}
}

func TestCheckoutInsufficientStockMutatesNothing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	category := seedCategory(t, db, "Scarce", "scarce-cat")
	productA := seedProduct(t, db, category.ID, "Plenty", "plenty", "10.00", 50)
	productB := seedProduct(t, db, category.ID, "Rare", "rare", "25.00", 2)

	_, err := store.Checkout(ctx, db, store.CheckoutRequest{
		Lines: []store.CheckoutLine{
			{ProductID: productA.ID, Quantity: 1},
			{ProductID: productB.ID, Quantity: 5},
		},
		Shipping:             testShipping(),
		UseShippingAsBilling: true,
	})

	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Fatalf("Expected insufficient stock error, got: %v", err)
	}

	var stockErr *database.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected InsufficientStockError, got: %v", err)
	}
	if stockErr.ProductID != productB.ID {
		t.Errorf("Expected offending product %d, got %d", productB.ID, stockErr.ProductID)
	}
	if stockErr.Available != 2 {
		t.Errorf("Expected available 2 reported, got %d", stockErr.Available)
	}

	for _, table := range []string{"addresses", "orders", "order_items", "payments"} {
		if count := countRows(t, db, table); count != 0 {
			t.Errorf("Expected no %s rows after failed checkout, got %d", table, count)
		}
	}

	productAAfter, err := store.GetProduct(ctx, db, productA.ID)
	if err != nil {
		t.Fatalf("Get product A: %v", err)
	}
	if productAAfter.Stock != 50 {
		t.Errorf("Expected product A stock unchanged at 50, got %d", productAAfter.Stock)
	}
}

func TestCheckoutValidationPersistsNothing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	category := seedCategory(t, db, "Forms", "forms")
	product := seedProduct(t, db, category.ID, "Formed", "formed", "10.00", 5)

	_, err := store.Checkout(ctx, db, store.CheckoutRequest{
		Lines:    []store.CheckoutLine{{ProductID: product.ID, Quantity: 1}},
		Shipping: store.AddressForm{Email: "buyer@example.com"},
	})

	var validationErr store.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected validation error, got: %v", err)
	}

	for _, table := range []string{"addresses", "orders", "order_items", "payments"} {
		if count := countRows(t, db, table); count != 0 {
			t.Errorf("Expected no %s rows after validation failure, got %d", table, count)
		}
	}
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	category := seedCategory(t, db, "Race", "race")
	product := seedProduct(t, db, category.ID, "Contested", "contested", "100.00", 10)

	concurrency := 10
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := store.Checkout(ctx, db, store.CheckoutRequest{
				Lines:                []store.CheckoutLine{{ProductID: product.ID, Quantity: 2}},
				Shipping:             testShipping(),
				UseShippingAsBilling: true,
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	insufficientStockCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrInsufficientStock):
			insufficientStockCount++
		default:
			t.Logf("Unexpected error: %v", err)
		}
	}

	if successCount != 5 {
		t.Errorf("Expected exactly 5 successful checkouts, got %d (insufficient: %d)",
			successCount, insufficientStockCount)
	}

	productAfter, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if productAfter.Stock != 10-(successCount*2) {
		t.Errorf("Expected final stock %d, got %d", 10-(successCount*2), productAfter.Stock)
	}
	if productAfter.Stock < 0 {
		t.Errorf("Stock must never go negative, got %d", productAfter.Stock)
	}
}

func TestGetOrderRecomputesTotal(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	category := seedCategory(t, db, "Totals", "totals")
	product := seedProduct(t, db, category.ID, "Summed", "summed", "10.00", 5)

	created, err := store.Checkout(ctx, db, store.CheckoutRequest{
		Lines:                []store.CheckoutLine{{ProductID: product.ID, Quantity: 3}},
		Shipping:             testShipping(),
		UseShippingAsBilling: true,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	order, err := store.GetOrder(ctx, db, created.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}

	if !order.TotalAmount.Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("Expected recomputed total 30.00, got %s", order.TotalAmount)
	}
	if order.Payment == nil || !order.Payment.Amount.Equal(order.TotalAmount) {
		t.Errorf("Expected payment matching total, got %+v", order.Payment)
	}
	if len(order.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(order.Items))
	}
	if order.Items[0].Name != "Summed" {
		t.Errorf("Expected item name Summed, got %s", order.Items[0].Name)
	}
}

func TestListOrdersCursor(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, err := store.CreateUser(ctx, db, "history@example.com", "History Buyer", "secretpw")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	category := seedCategory(t, db, "History", "history")
	product := seedProduct(t, db, category.ID, "Repeated", "repeated", "10.00", 100)

	for i := 0; i < 15; i++ {
		_, err := store.Checkout(ctx, db, store.CheckoutRequest{
			UserID:               &user.ID,
			Lines:                []store.CheckoutLine{{ProductID: product.ID, Quantity: 1}},
			Shipping:             testShipping(),
			UseShippingAsBilling: true,
		})
		if err != nil {
			t.Fatalf("Checkout %d: %v", i, err)
		}
	}

	page1, err := store.ListOrdersCursor(ctx, db, user.ID, "", 10)
	if err != nil {
		t.Fatalf("List orders page 1: %v", err)
	}

	if !page1.HasMore {
		t.Error("Page 1 should have more results")
	}
	if page1.NextCursor == "" {
		t.Error("Page 1 should have a next cursor")
	}

	orders := page1.Items.([]models.Order)
	if len(orders) != 10 {
		t.Fatalf("Expected 10 orders on page 1, got %d", len(orders))
	}
	if !orders[0].TotalAmount.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("Expected derived total 10.00 in history, got %s", orders[0].TotalAmount)
	}

	page2, err := store.ListOrdersCursor(ctx, db, user.ID, page1.NextCursor, 10)
	if err != nil {
		t.Fatalf("List orders page 2: %v", err)
	}
	if page2.HasMore {
		t.Error("Page 2 should not have more results")
	}
	if len(page2.Items.([]models.Order)) != 5 {
		t.Errorf("Expected 5 orders on page 2, got %d", len(page2.Items.([]models.Order)))
	}
}
