package procurement

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

// Handler exposes the lifecycle over both portals. Routes are mounted twice,
// once per scope group, so the auth middleware has already pinned the actor
// to the right portal by the time a request lands here.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountHospitalRoutes registers the hospital-side lifecycle routes.
func (h *Handler) MountHospitalRoutes(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listHospitalOrders)
	r.Get("/orders/{id}", h.getHospitalOrder)
	r.Get("/quotations", h.listHospitalQuotations)
	r.Get("/quotations/{id}", h.getHospitalQuotation)
	r.Post("/quotations/{id}/accept", h.acceptQuotation)
	r.Post("/quotations/{id}/reject", h.rejectQuotation)
	r.Get("/purchase-orders", h.listHospitalPurchaseOrders)
	r.Get("/purchase-orders/{id}", h.getHospitalPurchaseOrder)
	r.Post("/purchase-orders/{id}/status", h.advanceHospitalPurchaseOrder)
}

// MountSupplierRoutes registers the supplier-side lifecycle routes.
func (h *Handler) MountSupplierRoutes(r chi.Router) {
	r.Get("/orders", h.listOpenOrders)
	r.Get("/orders/{id}/items", h.getOrderItems)
	r.Post("/orders/{id}/quote", h.submitQuotation)
	r.Post("/orders/{id}/reject", h.rejectOrder)
	r.Post("/orders/{id}/ignore", h.ignoreOrder)
	r.Get("/quotations", h.listSupplierQuotations)
	r.Get("/purchase-orders", h.listSupplierPurchaseOrders)
	r.Get("/purchase-orders/{id}", h.getSupplierPurchaseOrder)
	r.Post("/purchase-orders/{id}/status", h.advanceSupplierPurchaseOrder)
}

type orderResponse struct {
	Order
	Items []OrderItem `json:"items"`
}

type quotationResponse struct {
	Quotation
	Items []QuotationItem `json:"items"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var in CreateOrderInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	order, items, err := h.service.CreateOrder(r.Context(), actor.OrgID, actor.UserID, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, orderResponse{Order: order, Items: items})
}

func (h *Handler) listHospitalOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	orders, err := h.service.OrdersForHospital(r.Context(), actor.OrgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) getHospitalOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	order, items, err := h.service.OrderForHospital(r.Context(), actor.OrgID, pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderResponse{Order: order, Items: items})
}

func (h *Handler) listOpenOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.OpenOrders(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrderItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.OrderItems(r.Context(), pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) submitQuotation(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var in SubmitQuotationInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	quotation, items, err := h.service.SubmitQuotation(r.Context(), actor.OrgID, pathID(r), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quotationResponse{Quotation: quotation, Items: items})
}

func (h *Handler) rejectOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	order, err := h.service.RejectOrder(r.Context(), actor.OrgID, pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) ignoreOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.IgnoreOrder(r.Context(), pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) listHospitalQuotations(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	quotations, err := h.service.QuotationsForHospital(r.Context(), actor.OrgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotations)
}

func (h *Handler) getHospitalQuotation(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	quotation, items, err := h.service.QuotationForHospital(r.Context(), actor.OrgID, pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotationResponse{Quotation: quotation, Items: items})
}

func (h *Handler) listSupplierQuotations(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	quotations, err := h.service.QuotationsForSupplier(r.Context(), actor.OrgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotations)
}

func (h *Handler) acceptQuotation(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var in AcceptQuotationInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	po, err := h.service.AcceptQuotation(r.Context(), actor.OrgID, actor.UserID, pathID(r), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) rejectQuotation(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	quotation, err := h.service.RejectQuotation(r.Context(), actor.OrgID, pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

func (h *Handler) listHospitalPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	orders, err := h.service.PurchaseOrdersForHospital(r.Context(), actor.OrgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) getHospitalPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	po, err := h.service.PurchaseOrderForHospital(r.Context(), actor.OrgID, pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) listSupplierPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	orders, err := h.service.PurchaseOrdersForSupplier(r.Context(), actor.OrgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) getSupplierPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	po, err := h.service.PurchaseOrderForSupplier(r.Context(), actor.OrgID, pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

type statusRequest struct {
	Status POStatus `json:"status" validate:"required"`
}

func (h *Handler) advanceHospitalPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var in statusRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	po, err := h.service.AdvancePurchaseOrderAsHospital(r.Context(), actor.OrgID, pathID(r), in.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) advanceSupplierPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var in statusRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	po, err := h.service.AdvancePurchaseOrderAsSupplier(r.Context(), actor.OrgID, pathID(r), in.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrExpired):
		httpx.Problem(w, http.StatusGone, "Quotation Expired", err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("procurement", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
