package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/erazemk/trznica/internal/account"
	"github.com/erazemk/trznica/internal/catalog"
	"github.com/erazemk/trznica/internal/images"
	"github.com/erazemk/trznica/internal/ledger"
	"github.com/erazemk/trznica/internal/ratelimit"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Catalog  *catalog.Service
	Ledger   *ledger.Service
	Accounts *account.Service
	Log      *zap.Logger

	// Limiter caps requests per client under /api. Nil disables it.
	Limiter ratelimit.Limiter

	// ImageDir is served under /images/. Empty disables it.
	ImageDir string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	authHandler := &AuthHandler{Accounts: d.Accounts, Log: log}
	usersHandler := &UsersHandler{Accounts: d.Accounts, Log: log}
	itemsHandler := &ItemsHandler{Catalog: d.Catalog, Log: log}
	txHandler := &TransactionsHandler{Ledger: d.Ledger, Log: log}

	authMW := AuthMiddleware(d.Accounts, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, http.StatusNotFound, "Route does not exist.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	if d.ImageDir != "" {
		r.Handle(images.URLPrefix+"*", imageServer(d.ImageDir))
	}

	r.Route("/api", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(ratelimit.Middleware(d.Limiter, log))
		}

		// Public.
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)

		// Authenticated.
		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Post("/auth/logout", authHandler.Logout)

			r.Get("/users", usersHandler.List)
			r.Get("/users/{userID}", usersHandler.Get)
			r.Get("/users/{userID}/items", itemsHandler.ListBySeller)

			r.Get("/profile", usersHandler.GetProfile)
			r.Patch("/profile", usersHandler.UpdateProfile)
			r.Delete("/profile", usersHandler.DeleteProfile)

			r.Route("/items", func(r chi.Router) {
				r.Get("/", itemsHandler.List)
				r.Post("/", itemsHandler.Create)
				r.Get("/{itemID}", itemsHandler.Get)
				r.Patch("/{itemID}", itemsHandler.Update)
				r.Delete("/{itemID}", itemsHandler.Delete)

				r.Post("/{itemID}/transactions", txHandler.Create)
				r.Get("/{itemID}/transactions", txHandler.List)
				r.Get("/{itemID}/transactions/{transactionID}", txHandler.Get)
			})

			r.Get("/transactions", txHandler.List)
			r.Get("/transactions/{transactionID}", txHandler.Get)
		})
	})

	return r
}

// imageServer serves stored pictures without directory listings.
func imageServer(dir string) http.Handler {
	fs := http.StripPrefix(images.URLPrefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			jsonError(w, http.StatusNotFound, "Route does not exist.")
			return
		}
		fs.ServeHTTP(w, r)
	})
}
