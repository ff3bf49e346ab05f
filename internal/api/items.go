package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/erazemk/stockledger/internal/imaging"
	"github.com/erazemk/stockledger/internal/model"
	"github.com/erazemk/stockledger/internal/store"
)

// ItemsHandler handles item CRUD endpoints.
type ItemsHandler struct {
	*deps
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryID(r, "category_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, model.ItemFilter{
		CategoryID: categoryID,
		Search:     r.URL.Query().Get("search"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewItem
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	createdBy := GetClaims(r.Context()).UserID
	item, err := store.CreateItem(r.Context(), h.DB, req, &createdBy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.OpeningQuantity > 0 {
		h.Metrics.StockMovement(string(model.DirectionIn), req.OpeningQuantity)
	}
	zerolog.Ctx(r.Context()).Info().Int64("item_id", item.ID).Str("code", item.Code).Int("quantity", item.Quantity).Msg("item created")
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}. Quantity is not accepted here.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	var patch model.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.UpdateItem(r.Context(), h.DB, id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("item_id", id).Msg("item deleted")
	jsonResponse(w, http.StatusOK, message{"item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	opts := imaging.DefaultOptions
	r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBytes+1<<20)
	if err := r.ParseMultipartForm(opts.MaxBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Normalize(file, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, photo.Data, photo.MIME); err != nil {
		h.writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("item_id", id).Int("bytes", len(photo.Data)).
		Int("width", photo.Width).Int("height", photo.Height).Msg("item image stored")
	jsonResponse(w, http.StatusOK, message{"image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if mime == "" {
		mime = imaging.MIMEJPEG
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
