package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medilink/medilink/internal/auth"
	"github.com/medilink/medilink/internal/platform/httpx"
)

// Handler serves the two stock ledgers. The hospital routes and supplier
// routes are mounted under their respective scope groups.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountHospitalRoutes registers the consumption-side ledger routes.
func (h *Handler) MountHospitalRoutes(r chi.Router) {
	r.Get("/inventory", h.listHospital)
	r.Post("/inventory", h.upsertHospital)
	r.Delete("/inventory/{id}", h.deleteHospital)
	r.Get("/inventory/low-stock", h.lowStock)
	r.Get("/available-medicines", h.availableMedicines)
}

// MountSupplierRoutes registers the supply-side ledger routes.
func (h *Handler) MountSupplierRoutes(r chi.Router) {
	r.Get("/inventory", h.listSupplier)
	r.Post("/inventory", h.upsertSupplier)
	r.Delete("/inventory/{id}", h.deleteSupplier)
}

type hospitalItemRequest struct {
	MedicineID      int64      `json:"medicineId"`
	CurrentStock    int        `json:"currentStock"`
	ReorderPoint    int        `json:"reorderPoint"`
	MaxStock        int        `json:"maxStock"`
	UnitCost        float64    `json:"unitCost"`
	BatchNumber     string     `json:"batchNumber"`
	ExpiryDate      *time.Time `json:"expiryDate"`
	StorageLocation string     `json:"storageLocation"`
}

type supplierItemRequest struct {
	MedicineID       int64      `json:"medicineId"`
	AvailableStock   int        `json:"availableStock"`
	UnitPrice        float64    `json:"unitPrice"`
	MinOrderQuantity int        `json:"minOrderQuantity"`
	BatchNumber      string     `json:"batchNumber"`
	ExpiryDate       *time.Time `json:"expiryDate"`
}

func (h *Handler) listHospital(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	items, err := h.service.HospitalInventory(r.Context(), actor.OrgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) upsertHospital(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req hospitalItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	item, err := h.service.UpsertHospitalItem(r.Context(), actor.OrgID, HospitalItemInput{
		MedicineID:      req.MedicineID,
		CurrentStock:    req.CurrentStock,
		ReorderPoint:    req.ReorderPoint,
		MaxStock:        req.MaxStock,
		UnitCost:        req.UnitCost,
		BatchNumber:     req.BatchNumber,
		ExpiryDate:      req.ExpiryDate,
		StorageLocation: req.StorageLocation,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) deleteHospital(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.DeleteHospitalItem(r.Context(), actor.OrgID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	items, err := h.service.LowStock(r.Context(), actor.OrgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) availableMedicines(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.AvailableFromSuppliers(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, offers)
}

func (h *Handler) listSupplier(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	items, err := h.service.SupplierInventory(r.Context(), actor.OrgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) upsertSupplier(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req supplierItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	item, err := h.service.UpsertSupplierItem(r.Context(), actor.OrgID, SupplierItemInput{
		MedicineID:       req.MedicineID,
		AvailableStock:   req.AvailableStock,
		UnitPrice:        req.UnitPrice,
		MinOrderQuantity: req.MinOrderQuantity,
		BatchNumber:      req.BatchNumber,
		ExpiryDate:       req.ExpiryDate,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.DeleteSupplierItem(r.Context(), actor.OrgID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("inventory", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
