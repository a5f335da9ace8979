package settlement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medilink/medilink/internal/auth"
	"github.com/medilink/medilink/internal/platform/httpx"
)

// Handler serves the payment ledger for both portals.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountHospitalRoutes registers the hospital-side ledger routes.
func (h *Handler) MountHospitalRoutes(r chi.Router) {
	r.Post("/settlements", h.record)
	r.Get("/settlements", h.listHospital)
	r.Get("/purchase-orders/{id}/settlements", h.listForPurchaseOrder)
}

// MountSupplierRoutes registers the supplier-side ledger routes.
func (h *Handler) MountSupplierRoutes(r chi.Router) {
	r.Get("/settlements", h.listSupplier)
	r.Post("/settlements/{id}/status", h.updateStatus)
}

type statusRequest struct {
	Status Status `json:"status" validate:"required"`
}

type poSettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
	Balance     Balance      `json:"balance"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var in RecordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	stl, err := h.service.Record(r.Context(), actor.OrgID, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, stl)
}

func (h *Handler) listHospital(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	settlements, err := h.service.ForHospital(r.Context(), actor.OrgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settlements)
}

func (h *Handler) listSupplier(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	settlements, err := h.service.ForSupplier(r.Context(), actor.OrgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settlements)
}

func (h *Handler) listForPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	settlements, balance, err := h.service.ForPurchaseOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, poSettlementsResponse{Settlements: settlements, Balance: balance})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var in statusRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	stl, err := h.service.UpdateStatus(r.Context(), actor.OrgID, id, in.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stl)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("settlement", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
