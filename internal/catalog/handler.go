package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medilink/medilink/internal/platform/httpx"
)

// Handler serves the shared medicine catalog. Reads are open to both
// portals; writes are mounted under the hospital group only.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountReadRoutes registers catalog lookups.
func (h *Handler) MountReadRoutes(r chi.Router) {
	r.Get("/medicines", h.list)
	r.Get("/medicines/search", h.search)
	r.Get("/medicines/{id}", h.get)
}

// MountWriteRoutes registers catalog administration.
func (h *Handler) MountWriteRoutes(r chi.Router) {
	r.Post("/medicines", h.create)
	r.Put("/medicines/{id}", h.update)
	r.Post("/medicines/{id}/deactivate", h.deactivate)
}

type medicineRequest struct {
	Name          string  `json:"name"`
	GenericName   string  `json:"genericName"`
	Brand         string  `json:"brand"`
	Strength      string  `json:"strength"`
	DosageForm    string  `json:"dosageForm"`
	Route         string  `json:"route"`
	Category      string  `json:"category"`
	HSNCode       string  `json:"hsnCode"`
	GSTPercent    float64 `json:"gstPercent"`
	UnitOfMeasure string  `json:"unitOfMeasure"`
	Description   string  `json:"description"`
}

func (req medicineRequest) toInput() MedicineInput {
	return MedicineInput{
		Name:          req.Name,
		GenericName:   req.GenericName,
		Brand:         req.Brand,
		Strength:      req.Strength,
		DosageForm:    req.DosageForm,
		Route:         req.Route,
		Category:      req.Category,
		HSNCode:       req.HSNCode,
		GSTPercent:    req.GSTPercent,
		UnitOfMeasure: req.UnitOfMeasure,
		Description:   req.Description,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.ListActive(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, medicines)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, medicines)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	medicine, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, medicine)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	medicine, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, medicine)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req medicineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	medicine, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, medicine)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Deactivate(r.Context(), id); err != nil {
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
		h.logger.Error("catalog", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
