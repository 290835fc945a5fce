// Package session persists per-browser-session state (cart, wishlist,
// signed-in user) in Redis, keyed by the session id carried in a cookie.
// Values are JSON; nothing here is durable storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CartLine is one cart entry. UnitPrice is the price snapshot taken when
// the product was first added, not a live catalog reference.
type CartLine struct {
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Cart maps product id to its line. Order is irrelevant.
type Cart map[int64]CartLine

// Wishlist is an ordered set of product ids.
type Wishlist []int64

func (w Wishlist) Contains(productID int64) bool {
	for _, id := range w {
		if id == productID {
			return true
		}
	}
	return false
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func cartKey(sessionID string) string     { return "session:" + sessionID + ":cart" }
func wishlistKey(sessionID string) string { return "session:" + sessionID + ":wishlist" }
func userKey(sessionID string) string     { return "session:" + sessionID + ":user" }

// Cart returns the session's cart, or an empty one if none is stored.
func (s *Store) Cart(ctx context.Context, sessionID string) (Cart, error) {
	data, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

func (s *Store) PutCart(ctx context.Context, sessionID string, cart Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put cart: %w", err)
	}
	return nil
}

func (s *Store) Wishlist(ctx context.Context, sessionID string) (Wishlist, error) {
	data, err := s.client.Get(ctx, wishlistKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Wishlist{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}

	var wishlist Wishlist
	if err := json.Unmarshal(data, &wishlist); err != nil {
		return nil, fmt.Errorf("decode wishlist: %w", err)
	}
	return wishlist, nil
}

func (s *Store) PutWishlist(ctx context.Context, sessionID string, wishlist Wishlist) error {
	data, err := json.Marshal(wishlist)
	if err != nil {
		return fmt.Errorf("encode wishlist: %w", err)
	}
	if err := s.client.Set(ctx, wishlistKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put wishlist: %w", err)
	}
	return nil
}

// UserID returns the signed-in user's id, or nil for anonymous sessions.
func (s *Store) UserID(ctx context.Context, sessionID string) (*int64, error) {
	id, err := s.client.Get(ctx, userKey(sessionID)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session user: %w", err)
	}
	return &id, nil
}

func (s *Store) PutUserID(ctx context.Context, sessionID string, userID int64) error {
	if err := s.client.Set(ctx, userKey(sessionID), userID, s.ttl).Err(); err != nil {
		return fmt.Errorf("put session user: %w", err)
	}
	return nil
}

func (s *Store) ClearUserID(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, userKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear session user: %w", err)
	}
	return nil
}

// Clear drops all state held for the session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	keys := []string{cartKey(sessionID), wishlistKey(sessionID), userKey(sessionID)}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
