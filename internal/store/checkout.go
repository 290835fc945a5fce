package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// CheckoutLine is one cart line handed to Checkout: quantity only, the
// price is deliberately re-read from the live catalog at commit time.
type CheckoutLine struct {
	ProductID int64
	Quantity  int
}

type CheckoutRequest struct {
	UserID               *int64
	Lines                []CheckoutLine
	Shipping             AddressForm
	Billing              AddressForm
	UseShippingAsBilling bool
	Currency             string
	PaymentProvider      string
}

// ValidationError maps field names to messages. Nothing is persisted
// when validation fails.
type ValidationError map[string]string

func (v ValidationError) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "invalid checkout form: " + strings.Join(fields, ", ")
}

func (r *CheckoutRequest) Validate() error {
	errs := ValidationError{}

	required := map[string]string{
		"full_name":   r.Shipping.FullName,
		"email":       r.Shipping.Email,
		"phone":       r.Shipping.Phone,
		"line1":       r.Shipping.Line1,
		"city":        r.Shipping.City,
		"postal_code": r.Shipping.PostalCode,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			errs[field] = "this field is required"
		}
	}
	if r.Shipping.Email != "" && !strings.Contains(r.Shipping.Email, "@") {
		errs["email"] = "enter a valid email address"
	}

	if len(r.Lines) == 0 {
		errs["cart"] = "cart is empty"
	}
	for _, line := range r.Lines {
		if line.Quantity < 1 {
			errs["cart"] = "line quantities must be positive"
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Checkout turns a cart snapshot into an order, its addresses, order
// items, and a pending payment placeholder.
//
// The whole sequence runs inside one transaction: every product row is
// locked FOR UPDATE (in ascending id order, so two checkouts over the
// same products cannot deadlock) and its stock re-checked before
// anything is written. A checkout blocked on another's lock re-reads
// the committed stock once the lock is released, so two concurrent
// checkouts can never jointly oversell. Any stock shortfall aborts the
// transaction with an InsufficientStockError naming the product and its
// remaining stock, leaving nothing mutated so the caller keeps the cart
// and can retry. Transient conflicts are retried via database.WithRetry.
func Checkout(ctx context.Context, db *sql.DB, req CheckoutRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lines := make([]CheckoutLine, len(req.Lines))
	copy(lines, req.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	provider := req.PaymentProvider
	if provider == "" {
		provider = "stripe"
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		// Lock and re-validate every product before any mutation. The
		// cart's cached view of stock is not authoritative here.
		products := make(map[int64]*models.Product, len(lines))
		for _, line := range lines {
			product, err := ReserveStock(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			products[line.ProductID] = product
		}

		shippingID, err := insertAddress(ctx, tx, req.UserID, req.Shipping)
		if err != nil {
			return err
		}

		billingID := shippingID
		if !req.UseShippingAsBilling {
			billingID, err = insertAddress(ctx, tx, req.UserID, req.Billing.withFallback(req.Shipping))
			if err != nil {
				return err
			}
		}

		orderNumber := generateOrderNumber()
		created := &models.Order{
			OrderNumber:       orderNumber,
			UserID:            req.UserID,
			ShippingAddressID: shippingID,
			BillingAddressID:  billingID,
			Status:            models.OrderStatusPending,
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, order_number, shipping_address_id, billing_address_id, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			 RETURNING id, created_at, updated_at`,
			req.UserID, orderNumber, shippingID, billingID, models.OrderStatusPending).Scan(
			&created.ID,
			&created.CreatedAt,
			&created.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		total := decimal.Zero
		for _, line := range lines {
			product := products[line.ProductID]

			// Items are priced at the product's current catalog price,
			// not the cart's earlier snapshot.
			item := models.OrderItem{
				OrderID:   created.ID,
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  line.Quantity,
				Price:     product.Price,
				Subtotal:  product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			}
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, price, created_at)
				 VALUES ($1, $2, $3, $4, NOW())
				 RETURNING id, created_at`,
				created.ID, product.ID, line.Quantity, product.Price).Scan(&item.ID, &item.CreatedAt)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}

			if err := DecrementStock(ctx, tx, product.ID, line.Quantity); err != nil {
				return err
			}

			total = total.Add(item.Subtotal)
			created.Items = append(created.Items, item)
		}
		created.TotalAmount = total

		payment := &models.Payment{
			OrderID:  created.ID,
			Provider: provider,
			IntentID: uuid.NewString(),
			Amount:   total,
			Currency: currency,
			Status:   models.PaymentStatusPending,
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO payments (order_id, provider, intent_id, amount, currency, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW())
			 RETURNING id, created_at`,
			created.ID, provider, payment.IntentID, total, currency, models.PaymentStatusPending).Scan(
			&payment.ID,
			&payment.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		created.Payment = payment

		order = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}
