package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/models"
)

func CreateReview(ctx context.Context, db *sql.DB, productID int64, userName string, rating int, comment string) (*models.Review, error) {
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}

	review := &models.Review{}

	query := `
		INSERT INTO reviews (product_id, user_name, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, product_id, user_name, rating, comment, created_at`

	err := db.QueryRowContext(ctx, query, productID, userName, rating, comment).Scan(
		&review.ID,
		&review.ProductID,
		&review.UserName,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	return review, nil
}

func ListReviews(ctx context.Context, db *sql.DB, productID int64) ([]models.Review, error) {
	query := `
		SELECT id, product_id, user_name, rating, comment, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var review models.Review
		err := rows.Scan(
			&review.ID,
			&review.ProductID,
			&review.UserName,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}

// AverageRating returns nil when the product has no reviews yet.
func AverageRating(ctx context.Context, db *sql.DB, productID int64) (*float64, error) {
	var avg sql.NullFloat64
	err := db.QueryRowContext(ctx,
		`SELECT AVG(rating) FROM reviews WHERE product_id = $1`,
		productID).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}

	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}
