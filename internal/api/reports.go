package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/erazemk/stockledger/internal/model"
	"github.com/erazemk/stockledger/internal/store"
)

// ReportsHandler serves read-only stock reports.
type ReportsHandler struct {
	*deps
}

// Stock handles GET /api/reports/stock.
func (h *ReportsHandler) Stock(w http.ResponseWriter, r *http.Request) {
	rows, err := store.StockReport(r.Context(), h.DB)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []model.StockReportRow{}
	}
	jsonResponse(w, http.StatusOK, rows)
}

// Summary handles GET /api/reports/summary.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := store.Summary(r.Context(), h.DB)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

type reconciliationRow struct {
	model.Reconciliation
	Derived int  `json:"derived"`
	Drift   bool `json:"drift"`
}

// Reconciliation handles GET /api/reports/reconciliation. Add ?drift=true to
// list only items whose stored quantity disagrees with their history.
func (h *ReportsHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	recs, err := store.Reconcile(r.Context(), h.DB)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	onlyDrift := r.URL.Query().Get("drift") == "true"
	rows := make([]reconciliationRow, 0, len(recs))
	for _, rec := range recs {
		if rec.Drift() {
			zerolog.Ctx(r.Context()).Warn().Int64("item_id", rec.ItemID).
				Int("stored", rec.Stored).Int("derived", rec.Derived()).Msg("stock drift")
		} else if onlyDrift {
			continue
		}
		rows = append(rows, reconciliationRow{Reconciliation: rec, Derived: rec.Derived(), Drift: rec.Drift()})
	}
	jsonResponse(w, http.StatusOK, rows)
}

// Overdue handles GET /api/reports/overdue.
func (h *ReportsHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	loans, err := store.OverdueLoans(r.Context(), h.DB, time.Now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	jsonResponse(w, http.StatusOK, loans)
}
