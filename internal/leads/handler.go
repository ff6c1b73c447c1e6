package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
)

// ArchiveReader serves stored lead snapshots for the reporting endpoints.
type ArchiveReader interface {
	Get(ctx context.Context, leadID string) (*ArchivedLead, error)
	ListByStage(ctx context.Context, stage Stage, limit int) ([]*ArchivedLead, error)
}

// Handler serves the web lead-capture and archive endpoints.
type Handler struct {
	crm              CRM
	archive          ArchiveReader
	logger           *logging.Logger
	defaultProjectID string
}

// NewHandler creates a new leads handler. A nil archive disables the record
// endpoints with 503.
func NewHandler(crm CRM, archive ArchiveReader, logger *logging.Logger, defaultProjectID string) *Handler {
	return &Handler{
		crm:              crm,
		archive:          archive,
		logger:           logger,
		defaultProjectID: defaultProjectID,
	}
}

// CreateWebLeadRequest is the body for POST /leads/web.
type CreateWebLeadRequest struct {
	Nombre       string       `json:"nombre"`
	Telefono     string       `json:"telefono"`
	TipoInmueble PropertyType `json:"tipo_inmueble"`
	Zona         ZoneOption   `json:"zona"`
	Metraje      AreaRange    `json:"metraje"`
	ProyectoID   string       `json:"proyecto_id"`
}

// CreateWebLead handles POST /leads/web: web forms register preleads
// directly, consent is collected by the form itself.
func (h *Handler) CreateWebLead(w http.ResponseWriter, r *http.Request) {
	var req CreateWebLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if v := ValidateCustomerData(CustomerData{Nombre: req.Nombre, Telefono: req.Telefono}); !v.Valid {
		writeJSON(w, http.StatusBadRequest, RegisterResult{
			Status:  "error",
			Message: "Datos inválidos",
			Errors:  v.Errors,
		})
		return
	}
	if req.Nombre == "" || !req.TipoInmueble.IsValid() || !req.Zona.IsValid() || !req.Metraje.IsValid() {
		http.Error(w, "missing or invalid fields", http.StatusBadRequest)
		return
	}
	if req.ProyectoID == "" {
		req.ProyectoID = h.defaultProjectID
	}

	prelead := PreLead{
		Contacto:       ContactInfo{Nombre: req.Nombre, Telefono: req.Telefono},
		TipoInmueble:   req.TipoInmueble,
		Consentimiento: Yes,
		ProyectoID:     req.ProyectoID,
		Zona:           req.Zona,
		Metraje:        req.Metraje,
	}

	leadID, err := h.crm.RegisterPrelead(r.Context(), prelead)
	if err != nil {
		h.logger.Error("failed to register prelead", "error", err)
		http.Error(w, "failed to register lead", http.StatusInternalServerError)
		return
	}

	h.logger.Info("web prelead registered", "lead_id", leadID)
	writeJSON(w, http.StatusCreated, map[string]string{"lead_id": leadID, "stage": string(StagePreLead)})
}

// GetLeadStatus handles GET /leads/{leadID}/status.
func (h *Handler) GetLeadStatus(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	if leadID == "" {
		http.Error(w, "missing lead_id", http.StatusBadRequest)
		return
	}

	status, err := h.crm.Status(r.Context(), leadID)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get lead status", "error", err, "lead_id", leadID)
		http.Error(w, "failed to get lead status", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// GetLeadRecord handles GET /leads/{leadID}/record: the archived snapshot of
// a lead, including the full stage payload.
func (h *Handler) GetLeadRecord(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "lead archive unavailable", http.StatusServiceUnavailable)
		return
	}
	leadID := chi.URLParam(r, "leadID")
	if leadID == "" {
		http.Error(w, "missing lead_id", http.StatusBadRequest)
		return
	}

	rec, err := h.archive.Get(r.Context(), leadID)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get lead record", "error", err, "lead_id", leadID)
		http.Error(w, "failed to get lead record", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListLeadRecords handles GET /leads/records?stage=&limit=: archived leads
// at one stage, newest first.
func (h *Handler) ListLeadRecords(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "lead archive unavailable", http.StatusServiceUnavailable)
		return
	}

	stage := Stage(r.URL.Query().Get("stage"))
	switch stage {
	case StagePreLead, StageLead, StageEnriched:
	default:
		http.Error(w, "invalid or missing stage", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.archive.ListByStage(r.Context(), stage, limit)
	if err != nil {
		h.logger.Error("failed to list lead records", "error", err, "stage", stage)
		http.Error(w, "failed to list lead records", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stage":   stage,
		"count":   len(records),
		"records": records,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
