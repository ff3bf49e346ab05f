package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/erazemk/stockledger/internal/model"
	"github.com/erazemk/stockledger/internal/store"
)

// StockHandler handles stock-in and stock-out endpoints.
type StockHandler struct {
	*deps
}

type stockInRequest struct {
	ItemID     int64 `json:"item_id"`
	SupplierID int64 `json:"supplier_id"`
	Quantity   int   `json:"quantity"`
}

type stockOutRequest struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// RecordIn handles POST /api/stock-in.
func (h *StockHandler) RecordIn(w http.ResponseWriter, r *http.Request) {
	var req stockInRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	createdBy := GetClaims(r.Context()).UserID
	m, err := store.RecordIn(r.Context(), h.DB, model.StockIn{
		ItemID:     req.ItemID,
		SupplierID: req.SupplierID,
		Quantity:   req.Quantity,
		CreatedBy:  &createdBy,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Metrics.StockMovement(string(model.DirectionIn), m.Quantity)
	zerolog.Ctx(r.Context()).Info().Int64("item_id", m.ItemID).Int("quantity", m.Quantity).Msg("stock received")
	jsonResponse(w, http.StatusCreated, m)
}

// RecordOut handles POST /api/stock-out.
func (h *StockHandler) RecordOut(w http.ResponseWriter, r *http.Request) {
	var req stockOutRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	createdBy := GetClaims(r.Context()).UserID
	m, err := store.RecordOut(r.Context(), h.DB, model.StockOut{
		ItemID:    req.ItemID,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		CreatedBy: &createdBy,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Metrics.StockMovement(string(model.DirectionOut), m.Quantity)
	zerolog.Ctx(r.Context()).Info().Int64("item_id", m.ItemID).Int("quantity", m.Quantity).Msg("stock withdrawn")
	jsonResponse(w, http.StatusCreated, m)
}

// ListIn handles GET /api/stock-in.
func (h *StockHandler) ListIn(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.DirectionIn)
}

// ListOut handles GET /api/stock-out.
func (h *StockHandler) ListOut(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.DirectionOut)
}

func (h *StockHandler) list(w http.ResponseWriter, r *http.Request, dir model.Direction) {
	itemID, err := queryID(r, "item_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := store.ListMovements(r.Context(), h.DB, model.MovementFilter{Direction: dir, ItemID: itemID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.StockMovement{}
	}
	jsonResponse(w, http.StatusOK, list)
}
