package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/session"
	"github.com/safar/go-storefront/internal/store"
)

// api bundles the collaborators every handler needs.
type api struct {
	cfg      *config.Config
	db       *sql.DB
	sessions *session.Store
	ledger   *cart.Ledger
}

// dbCatalog adapts the product store to the read surface the cart
// ledger expects.
type dbCatalog struct {
	db *sql.DB
}

func (c dbCatalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return store.GetProduct(ctx, c.db, id)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		cancel()
		slog.Error("connect to redis", "error", err)
		os.Exit(1)
	}
	cancel()
	defer redisClient.Close()

	sessions := session.NewStore(redisClient, cfg.Session.TTL)

	app := &api{
		cfg:      cfg,
		db:       db,
		sessions: sessions,
		ledger:   cart.NewLedger(sessions, dbCatalog{db: db}),
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	slog.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func (a *api) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(a.withSession)

	r.Get("/products", a.handleProductList)
	r.Post("/products", a.handleProductCreate)
	r.Get("/products/{slug}", a.handleProductDetail)
	r.Post("/products/{slug}/reviews", a.handleReviewCreate)
	r.Get("/categories", a.handleCategoryList)
	r.Post("/categories", a.handleCategoryCreate)

	r.Get("/cart", a.handleCartDetail)
	r.Post("/cart/items/{productID}", a.handleCartAdd)
	r.Put("/cart/items/{productID}", a.handleCartUpdate)
	r.Delete("/cart/items/{productID}", a.handleCartRemove)

	r.Get("/wishlist", a.handleWishlistDetail)
	r.Post("/wishlist/toggle/{productID}", a.handleWishlistToggle)

	r.Post("/checkout", a.handleCheckout)
	r.Get("/orders/{id}", a.handleOrderConfirm)

	r.Post("/signup", a.handleSignup)
	r.Post("/login", a.handleLogin)
	r.Post("/logout", a.handleLogout)
	r.Get("/account/orders", a.handleOrderHistory)

	return r
}
