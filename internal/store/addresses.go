package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/models"
)

// AddressForm holds the raw address fields of a checkout submission.
type AddressForm struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// withFallback fills blank fields from another form. Used for the
// billing address, which falls back field-by-field to the shipping
// values when left blank.
func (f AddressForm) withFallback(other AddressForm) AddressForm {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return AddressForm{
		FullName:   pick(f.FullName, other.FullName),
		Email:      pick(f.Email, other.Email),
		Phone:      pick(f.Phone, other.Phone),
		Line1:      pick(f.Line1, other.Line1),
		Line2:      pick(f.Line2, other.Line2),
		City:       pick(f.City, other.City),
		State:      pick(f.State, other.State),
		PostalCode: pick(f.PostalCode, other.PostalCode),
		Country:    pick(f.Country, other.Country),
	}
}

func insertAddress(ctx context.Context, tx *sql.Tx, userID *int64, form AddressForm) (int64, error) {
	country := form.Country
	if country == "" {
		country = "US"
	}

	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO addresses (user_id, full_name, email, phone, line1, line2, city, state, postal_code, country, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		 RETURNING id`,
		userID, form.FullName, form.Email, form.Phone, form.Line1, form.Line2,
		form.City, form.State, form.PostalCode, country).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create address: %w", err)
	}

	return id, nil
}

func GetAddress(ctx context.Context, db *sql.DB, id int64) (*models.Address, error) {
	address := &models.Address{}

	query := `
		SELECT id, user_id, full_name, email, phone, line1, line2, city, state, postal_code, country, created_at
		FROM addresses
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&address.ID,
		&address.UserID,
		&address.FullName,
		&address.Email,
		&address.Phone,
		&address.Line1,
		&address.Line2,
		&address.City,
		&address.State,
		&address.PostalCode,
		&address.Country,
		&address.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("address %d not found", id)
		}
		return nil, fmt.Errorf("get address: %w", err)
	}

	return address, nil
}
