package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/warungmeja/api/internal/cache"
	"github.com/warungmeja/api/internal/cart"
	"github.com/warungmeja/api/internal/config"
	"github.com/warungmeja/api/internal/database"
	"github.com/warungmeja/api/internal/handler"
	mw "github.com/warungmeja/api/internal/middleware"
	"github.com/warungmeja/api/internal/service"
	"github.com/warungmeja/api/internal/ws"
)

const (
	cartTTL      = 24 * time.Hour
	menuCacheTTL = time.Hour
)

// New creates a Chi router with all application routes wired up.
// Customer-facing routes (menu, cart, checkout) are public and keyed by
// session; admin routes sit behind JWT authentication.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, rdb *redis.Client, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://order.warungmeja.com", "https://admin.warungmeja.com"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	tagCache := cache.New(rdb, menuCacheTTL)
	sessions := cart.NewRedisStore(rdb, cartTTL)
	engine := cart.NewEngine(sessions)

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Customer storefront routes (public, session-scoped)
	menuHandler := handler.NewMenuHandler(queries, tagCache)
	menuHandler.RegisterRoutes(r)

	cartHandler := handler.NewCartHandler(engine, sessions, queries)
	cartHandler.RegisterRoutes(r)

	checkoutService := service.NewCheckoutService(pool, func(db database.DBTX) service.CheckoutStore {
		return database.New(db)
	})
	orderHandler := handler.NewOrderHandler(queries, checkoutService, engine, sessions, hub)
	orderHandler.RegisterPublicRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Admin routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Get("/auth/me", authHandler.Me)

		productHandler := handler.NewProductHandler(queries, tagCache)
		r.Route("/products", productHandler.RegisterRoutes)

		catalogHandler := handler.NewCatalogHandler(queries, tagCache)
		r.Route("/catalogs", catalogHandler.RegisterRoutes)

		tableHandler := handler.NewTableHandler(queries, tagCache)
		r.Route("/tables", tableHandler.RegisterRoutes)

		r.Route("/orders", orderHandler.RegisterRoutes)
	})

	return r
}
