package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/middleware"
)

// Public paths reachable without a bearer token.
const (
	LoginPath    = "/api/v1/users/login"
	RegisterPath = "/api/v1/users/register"
)

// NewRouter constructs the HTTP handler serving the bank API.
//
// Middleware chain (applied in order):
//  1. RequestID                          - echoes or assigns X-Request-ID
//  2. WithRequestLogging(logger)         - logs incoming requests
//  3. AllowContentType("application/json")
//  4. BearerAuth(secret)                 - verifies the JWT except on login and register
//
// Admin routes are additionally guarded by RequireAdmin.
func NewRouter(
	userHandler *UserHandler,
	accountHandler *AccountHandler,
	loanHandler *LoanHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.BearerAuth(userHandler.Secret, LoginPath, RegisterPath))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Get("/profile", userHandler.Profile)
			r.Put("/profile", userHandler.UpdateProfile)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", userHandler.List)
				r.Get("/{userID}", userHandler.Get)
				r.Delete("/{userID}", userHandler.Delete)
			})
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountHandler.List)
			r.Post("/", accountHandler.Create)
			r.Post("/transfer", accountHandler.Transfer)
			r.Get("/user/transactions", accountHandler.UserTransactions)
			r.Route("/{accountID}", func(r chi.Router) {
				r.Get("/", accountHandler.Get)
				r.Post("/close", accountHandler.Close)
				r.Post("/deposit", accountHandler.Deposit)
				r.Post("/withdraw", accountHandler.Withdraw)
				r.Get("/transactions", accountHandler.Transactions)
			})
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", loanHandler.List)
			r.Post("/", loanHandler.Apply)
			r.Route("/{loanID}", func(r chi.Router) {
				r.Get("/", loanHandler.Get)
				r.Get("/payment-amount", loanHandler.PaymentAmount)
				r.Post("/payment", loanHandler.Pay)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Post("/approve", loanHandler.Approve)
					r.Post("/reject", loanHandler.Reject)
					r.Post("/activate", loanHandler.Activate)
				})
			})
		})
	})

	return r
}
