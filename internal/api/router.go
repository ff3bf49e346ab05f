package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/erazemk/stockledger/internal/auth"
	"github.com/erazemk/stockledger/internal/metrics"
	"github.com/erazemk/stockledger/internal/model"
)

// deps are shared by every handler.
type deps struct {
	DB      *sqlx.DB
	Issuer  *auth.Issuer
	Metrics *metrics.Metrics
}

// NewRouter creates the HTTP handler with all endpoints registered and the
// request ID, logging and metrics middleware applied.
func NewRouter(db *sqlx.DB, issuer *auth.Issuer, m *metrics.Metrics, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	d := &deps{DB: db, Issuer: issuer, Metrics: m}

	authHandler := &AuthHandler{d}
	usersHandler := &UsersHandler{d}
	categoriesHandler := &CategoriesHandler{d}
	suppliersHandler := &SuppliersHandler{d}
	itemsHandler := &ItemsHandler{d}
	stockHandler := &StockHandler{d}
	loansHandler := &LoansHandler{d}
	reportsHandler := &ReportsHandler{d}

	authMW := AuthMiddleware(issuer, db)
	guard := func(h http.HandlerFunc, roles ...string) http.Handler {
		if len(roles) == 0 {
			return authMW(h)
		}
		return authMW(RequireRole(roles...)(h))
	}

	const (
		superadmin = model.RoleSuperAdmin
		admin      = model.RoleAdmin
		warehouse  = model.RoleWarehouse
		manager    = model.RoleManager
		borrower   = model.RoleBorrower
	)

	// Public.
	mux.HandleFunc("GET /healthz", healthz(db))
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Any authenticated user.
	mux.Handle("GET /api/auth/me", guard(authHandler.Me))
	mux.Handle("PUT /api/auth/password", guard(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", guard(authHandler.Logout))

	// Users.
	mux.Handle("GET /api/users", guard(usersHandler.List, superadmin))
	mux.Handle("POST /api/users", guard(usersHandler.Create, superadmin))
	mux.Handle("GET /api/users/{id}", guard(usersHandler.Get, superadmin))
	mux.Handle("PUT /api/users/{id}", guard(usersHandler.Update, superadmin))
	mux.Handle("PUT /api/users/{id}/password", guard(usersHandler.ResetPassword, superadmin))
	mux.Handle("DELETE /api/users/{id}", guard(usersHandler.Delete, superadmin))

	// Categories: read (all), write (admin), delete (superadmin).
	mux.Handle("GET /api/categories", guard(categoriesHandler.List))
	mux.Handle("GET /api/categories/{id}", guard(categoriesHandler.Get))
	mux.Handle("POST /api/categories", guard(categoriesHandler.Create, admin))
	mux.Handle("PUT /api/categories/{id}", guard(categoriesHandler.Update, admin))
	mux.Handle("DELETE /api/categories/{id}", guard(categoriesHandler.Delete, superadmin))

	// Suppliers.
	mux.Handle("GET /api/suppliers", guard(suppliersHandler.List, admin))
	mux.Handle("POST /api/suppliers", guard(suppliersHandler.Create, admin))
	mux.Handle("GET /api/suppliers/{id}", guard(suppliersHandler.Get, admin))
	mux.Handle("PUT /api/suppliers/{id}", guard(suppliersHandler.Update, admin))
	mux.Handle("DELETE /api/suppliers/{id}", guard(suppliersHandler.Delete, admin))

	// Items: read (admin, borrower), write (admin).
	mux.Handle("GET /api/items", guard(itemsHandler.List, admin, borrower))
	mux.Handle("GET /api/items/{id}", guard(itemsHandler.Get, admin, borrower))
	mux.Handle("GET /api/items/{id}/image", guard(itemsHandler.GetImage, admin, borrower))
	mux.Handle("POST /api/items", guard(itemsHandler.Create, admin))
	mux.Handle("PUT /api/items/{id}", guard(itemsHandler.Update, admin))
	mux.Handle("DELETE /api/items/{id}", guard(itemsHandler.Delete, admin))
	mux.Handle("PUT /api/items/{id}/image", guard(itemsHandler.UploadImage, admin))

	// Stock movements.
	mux.Handle("POST /api/stock-in", guard(stockHandler.RecordIn, admin, warehouse))
	mux.Handle("GET /api/stock-in", guard(stockHandler.ListIn, admin, warehouse))
	mux.Handle("POST /api/stock-out", guard(stockHandler.RecordOut, admin, warehouse))
	mux.Handle("GET /api/stock-out", guard(stockHandler.ListOut, admin, warehouse))

	// Loans.
	mux.Handle("GET /api/loans", guard(loansHandler.List))
	mux.Handle("GET /api/loans/{id}", guard(loansHandler.Get))
	mux.Handle("POST /api/loans", guard(loansHandler.Request, borrower))
	mux.Handle("PUT /api/loans/{id}/approve", guard(loansHandler.Approve, manager))
	mux.Handle("PUT /api/loans/{id}/reject", guard(loansHandler.Reject, manager))
	mux.Handle("PUT /api/loans/{id}/return", guard(loansHandler.Return, admin, warehouse))

	// Reports.
	mux.Handle("GET /api/reports/stock", guard(reportsHandler.Stock, admin, manager))
	mux.Handle("GET /api/reports/summary", guard(reportsHandler.Summary, admin, manager))
	mux.Handle("GET /api/reports/reconciliation", guard(reportsHandler.Reconciliation, admin, manager))
	mux.Handle("GET /api/reports/overdue", guard(reportsHandler.Overdue, admin, manager))

	return RequestIDMiddleware(logger)(LoggingMiddleware(m.Middleware(mux)))
}

func healthz(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
