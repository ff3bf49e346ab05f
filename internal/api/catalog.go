package api

import (
	"net/http"

	"github.com/erazemk/stockledger/internal/model"
	"github.com/erazemk/stockledger/internal/store"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	*deps
}

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, cats)
}

// Get handles GET /api/categories/{id}.
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	c, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := store.CreateCategory(r.Context(), h.DB, req.Name, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// Update handles PUT /api/categories/{id}.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := store.UpdateCategory(r.Context(), h.DB, id, req.Name, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Delete handles DELETE /api/categories/{id}.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, message{"category deleted"})
}

// SuppliersHandler handles supplier endpoints.
type SuppliersHandler struct {
	*deps
}

type supplierRequest struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
}

// List handles GET /api/suppliers.
func (h *SuppliersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := store.ListSuppliers(r.Context(), h.DB)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Supplier{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// Get handles GET /api/suppliers/{id}.
func (h *SuppliersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "supplier")
	if !ok {
		return
	}
	s, err := store.GetSupplier(r.Context(), h.DB, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Create handles POST /api/suppliers.
func (h *SuppliersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := store.CreateSupplier(r.Context(), h.DB, req.Name, req.Phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, s)
}

// Update handles PUT /api/suppliers/{id}.
func (h *SuppliersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "supplier")
	if !ok {
		return
	}
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := store.UpdateSupplier(r.Context(), h.DB, id, req.Name, req.Phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Delete handles DELETE /api/suppliers/{id}.
func (h *SuppliersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "supplier")
	if !ok {
		return
	}
	if err := store.DeleteSupplier(r.Context(), h.DB, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, message{"supplier deleted"})
}
