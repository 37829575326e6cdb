package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"spotbroker/internal/api/handler"
	"spotbroker/internal/api/middleware"
	"spotbroker/internal/app/service"
	"spotbroker/internal/common/security"
)

type Services struct {
	Auth    *service.AuthService
	Pool    *service.PoolService
	Price   *service.PriceService
	Broker  *service.BrokerService
	Charges *service.ChargeService
}

// NewRouter wires every route. ctx bounds the lifetime of client sessions.
func NewRouter(ctx context.Context, svc Services) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	// Client sessions are long-lived websockets and must not be timed out.
	sessionHandler := handler.NewSessionHandler(ctx, svc.Broker)
	sessionHandler.RegisterRoutes(r)

	r.Group(func(api chi.Router) {
		api.Use(chiMiddleware.Timeout(60 * time.Second))
		api.Use(jwtauth.Verifier(security.TokenAuth))

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		priceHandler := handler.NewPriceHandler(svc.Price)
		api.Route("/parameters", priceHandler.RegisterRoutes)

		api.Route("/api/v1", func(v1 chi.Router) {
			authHandler := handler.NewAuthHandler(svc.Auth)
			v1.Route("/auth", authHandler.RegisterRoutes)

			poolHandler := handler.NewPoolHandler(svc.Pool)
			chargeHandler := handler.NewChargeHandler(svc.Charges)
			v1.Route("/admin", func(admin chi.Router) {
				admin.Use(middleware.Authenticator)
				admin.Use(middleware.AdminOnly)
				poolHandler.RegisterRoutes(admin)
				chargeHandler.RegisterRoutes(admin)
			})
		})
	})

	return r
}
