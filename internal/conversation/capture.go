package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/inmobilia/inmobilia-ai-platform/internal/leads"
	"github.com/inmobilia/inmobilia-ai-platform/internal/observability/metrics"
	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
)

var (
	nameCaptureRe  = regexp.MustCompile(`(?i:mi nombre es|me llamo|soy)\s+([A-ZÁÉÍÓÚÑ][\p{L}]*(?:\s+[A-ZÁÉÍÓÚÑ][\p{L}]*){0,3})`)
	phoneCaptureRe = regexp.MustCompile(`\+51\d{9}`)
	emailCaptureRe = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	dniCaptureRe   = regexp.MustCompile(`(?i)dni\s*:?\s*(\d{8})`)
	interestRe     = regexp.MustCompile(`(?i)(me interesa|agendar (una )?visita|quiero visitar|sep[aá]rame)`)
)

// leadArchive mirrors successful registrations into durable storage.
// Implementations may be nil; archiving is best-effort.
type leadArchive interface {
	Record(ctx context.Context, leadID string, stage leads.Stage, payload any) error
}

// CaptureAgent validates customer data and registers it in the CRM,
// promoting the record stage by stage: prelead, lead, enriched lead.
type CaptureAgent struct {
	crm              leads.CRM
	archive          leadArchive
	defaultProjectID string
	metrics          *metrics.ConversationMetrics
	events           *EventLogger
	logger           *logging.Logger
}

func NewCaptureAgent(crm leads.CRM, archive leadArchive, defaultProjectID string, m *metrics.ConversationMetrics, events *EventLogger, logger *logging.Logger) *CaptureAgent {
	if crm == nil {
		panic("conversation: capture agent requires a CRM")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if defaultProjectID == "" {
		defaultProjectID = "WEB001"
	}
	return &CaptureAgent{
		crm:              crm,
		archive:          archive,
		defaultProjectID: defaultProjectID,
		metrics:          m,
		events:           events,
		logger:           logger,
	}
}

// PreleadInput is the minimum data to open a CRM record.
type PreleadInput struct {
	Nombre       string
	Telefono     string
	TipoInmueble leads.PropertyType
	Zona         leads.ZoneOption
	Metraje      leads.AreaRange
	ProyectoID   string
}

// RegisterPrelead validates the input and opens a prelead in the CRM.
// On success the lead ID and captured data land in state.UserData.
func (a *CaptureAgent) RegisterPrelead(ctx context.Context, state *State, in PreleadInput) leads.RegisterResult {
	if v := leads.ValidateCustomerData(leads.CustomerData{Nombre: in.Nombre, Telefono: in.Telefono}); !v.Valid {
		return errorResult("Datos inválidos", v.Errors)
	}
	if !in.TipoInmueble.IsValid() || !in.Zona.IsValid() || !in.Metraje.IsValid() {
		return errorResult("Datos inválidos", []string{"Código de tipo, zona o metraje inválido."})
	}
	if in.ProyectoID == "" {
		in.ProyectoID = a.defaultProjectID
	}

	prelead := leads.PreLead{
		Contacto:       leads.ContactInfo{Nombre: in.Nombre, Telefono: in.Telefono},
		TipoInmueble:   in.TipoInmueble,
		Consentimiento: leads.Yes,
		ProyectoID:     in.ProyectoID,
		Zona:           in.Zona,
		Metraje:        in.Metraje,
	}
	leadID, err := a.crm.RegisterPrelead(ctx, prelead)
	if err != nil {
		a.metrics.ObserveLeadStage(string(leads.StagePreLead), "error")
		return errorResult(err.Error(), []string{err.Error()})
	}

	state.UserData["lead_id"] = leadID
	state.UserData["lead_stage"] = string(leads.StagePreLead)
	state.UserData["nombre"] = in.Nombre
	state.UserData["telefono"] = in.Telefono
	state.UserData["tipo_inmueble"] = string(in.TipoInmueble)
	state.UserData["zona"] = string(in.Zona)
	state.UserData["metraje"] = string(in.Metraje)
	state.UserData["proyecto_id"] = in.ProyectoID
	state.LeadRegistered = true
	state.AddInteraction("prelead_registered", map[string]any{"lead_id": leadID})

	a.archiveRecord(ctx, leadID, leads.StagePreLead, prelead)
	a.metrics.ObserveLeadStage(string(leads.StagePreLead), "registered")
	a.events.LeadStagePromoted(ctx, state.ConversationID, leadID, string(leads.StagePreLead))

	return successResult(leadID, fmt.Sprintf("PreLead ID=%s", leadID))
}

// LeadInput completes a prelead into a full lead.
type LeadInput struct {
	Email           string
	Habitaciones    leads.BedroomsOption
	Presupuesto     leads.BudgetOption
	TiempoCompra    leads.TimeframeOption
	TiempoBusqueda  leads.TimeframeOption
	TipoDocumento   leads.DocType
	NumeroDocumento string
}

// RegisterLead promotes an existing prelead to a complete lead. It requires
// a prior RegisterPrelead in this conversation or a restored user memory.
func (a *CaptureAgent) RegisterLead(ctx context.Context, state *State, in LeadInput) leads.RegisterResult {
	leadID := state.UserData["lead_id"]
	if leadID == "" {
		return errorResult("No existe prelead", []string{"Prelead no encontrado"})
	}
	if v := leads.ValidateCustomerData(leads.CustomerData{
		Email:           in.Email,
		TipoDocumento:   in.TipoDocumento,
		NumeroDocumento: in.NumeroDocumento,
	}); !v.Valid {
		return errorResult("Datos inválidos", v.Errors)
	}
	if !in.Habitaciones.IsValid() || !in.Presupuesto.IsValid() || !in.TiempoCompra.IsValid() || !in.TiempoBusqueda.IsValid() {
		return errorResult("Datos inválidos", []string{"Código de habitaciones, presupuesto o plazo inválido."})
	}

	lead := leads.Lead{
		PreLead: leads.PreLead{
			Contacto: leads.ContactInfo{
				Nombre:   state.UserData["nombre"],
				Telefono: state.UserData["telefono"],
				Email:    in.Email,
			},
			TipoInmueble:   leads.PropertyType(state.UserData["tipo_inmueble"]),
			Consentimiento: leads.Yes,
			ProyectoID:     orKey(state.UserData, "proyecto_id", a.defaultProjectID),
			Zona:           leads.ZoneOption(state.UserData["zona"]),
			Metraje:        leads.AreaRange(state.UserData["metraje"]),
		},
		Habitaciones:   in.Habitaciones,
		Presupuesto:    in.Presupuesto,
		TiempoCompra:   in.TiempoCompra,
		TiempoBusqueda: in.TiempoBusqueda,
	}
	if in.TipoDocumento != "" && in.NumeroDocumento != "" {
		lead.Document = &leads.Document{Tipo: in.TipoDocumento, Numero: in.NumeroDocumento}
	}

	if err := a.crm.UpdateLead(ctx, leadID, lead); err != nil {
		a.metrics.ObserveLeadStage(string(leads.StageLead), "error")
		return errorResult(err.Error(), []string{err.Error()})
	}

	state.UserData["email"] = in.Email
	state.UserData["habitaciones"] = string(in.Habitaciones)
	state.UserData["presupuesto"] = string(in.Presupuesto)
	state.UserData["tiempo_compra"] = string(in.TiempoCompra)
	state.UserData["tiempo_busqueda"] = string(in.TiempoBusqueda)
	if in.TipoDocumento != "" && in.NumeroDocumento != "" {
		state.UserData["tipo_documento"] = string(in.TipoDocumento)
		state.UserData["numero_documento"] = in.NumeroDocumento
	}
	state.UserData["lead_stage"] = string(leads.StageLead)
	state.AddInteraction("lead_registered", map[string]any{"lead_id": leadID})

	a.archiveRecord(ctx, leadID, leads.StageLead, lead)
	a.metrics.ObserveLeadStage(string(leads.StageLead), "registered")
	a.events.LeadStagePromoted(ctx, state.ConversationID, leadID, string(leads.StageLead))

	return successResult(leadID, fmt.Sprintf("Lead actualizado ID=%s", leadID))
}

// EnrichInput adds financial qualification to a complete lead.
type EnrichInput struct {
	CreditoPreaprobado leads.YesNo
	CuotaInicial       leads.YesNo
	Proposito          leads.Purpose
}

// EnrichLead promotes a complete lead to an enriched lead. It requires the
// lead stage to be reached first (a registered email marks that).
func (a *CaptureAgent) EnrichLead(ctx context.Context, state *State, in EnrichInput) leads.RegisterResult {
	leadID := state.UserData["lead_id"]
	if leadID == "" || state.UserData["email"] == "" {
		return errorResult("No existe lead completo", []string{"Lead no encontrado"})
	}
	if !in.CreditoPreaprobado.IsValid() || !in.CuotaInicial.IsValid() || !in.Proposito.IsValid() {
		return errorResult("Datos inválidos", []string{"Valor de crédito, cuota inicial o propósito inválido."})
	}

	enriched := leads.EnrichedLead{
		Lead: leads.Lead{
			PreLead: leads.PreLead{
				Contacto: leads.ContactInfo{
					Nombre:   state.UserData["nombre"],
					Telefono: state.UserData["telefono"],
					Email:    state.UserData["email"],
				},
				TipoInmueble:   leads.PropertyType(state.UserData["tipo_inmueble"]),
				Consentimiento: leads.Yes,
				ProyectoID:     orKey(state.UserData, "proyecto_id", a.defaultProjectID),
				Zona:           leads.ZoneOption(state.UserData["zona"]),
				Metraje:        leads.AreaRange(state.UserData["metraje"]),
			},
			Habitaciones:   leads.BedroomsOption(state.UserData["habitaciones"]),
			Presupuesto:    leads.BudgetOption(state.UserData["presupuesto"]),
			TiempoCompra:   leads.TimeframeOption(state.UserData["tiempo_compra"]),
			TiempoBusqueda: leads.TimeframeOption(state.UserData["tiempo_busqueda"]),
		},
		CreditoPreaprobado: in.CreditoPreaprobado,
		CuotaInicial:       in.CuotaInicial,
		Proposito:          in.Proposito,
	}
	if td, nd := state.UserData["tipo_documento"], state.UserData["numero_documento"]; td != "" && nd != "" {
		enriched.Document = &leads.Document{Tipo: leads.DocType(td), Numero: nd}
	}

	if err := a.crm.EnrichLead(ctx, leadID, enriched); err != nil {
		a.metrics.ObserveLeadStage(string(leads.StageEnriched), "error")
		return errorResult(err.Error(), []string{err.Error()})
	}

	state.UserData["credito_preaprobado"] = string(in.CreditoPreaprobado)
	state.UserData["cuota_inicial"] = string(in.CuotaInicial)
	state.UserData["proposito"] = string(in.Proposito)
	state.UserData["lead_stage"] = string(leads.StageEnriched)
	state.AddInteraction("lead_enriched", map[string]any{"lead_id": leadID})

	a.archiveRecord(ctx, leadID, leads.StageEnriched, enriched)
	a.metrics.ObserveLeadStage(string(leads.StageEnriched), "registered")
	a.events.LeadStagePromoted(ctx, state.ConversationID, leadID, string(leads.StageEnriched))

	return successResult(leadID, fmt.Sprintf("Lead enriquecido ID=%s", leadID))
}

// RegisterPropertyInterest tracks the customer's interest in a property.
// Basic contact data must already be captured.
func (a *CaptureAgent) RegisterPropertyInterest(ctx context.Context, state *State, propertyID, nivel string) error {
	if state.UserData["nombre"] == "" || state.UserData["telefono"] == "" {
		return leads.ErrPreleadRequired
	}
	if nivel == "" {
		nivel = "alto"
	}
	state.RecordPropertyInterest(propertyID, nivel)
	a.events.PropertyInterestRegistered(ctx, state.ConversationID, propertyID, nivel)
	return nil
}

// Handle drives one conversational capture turn: it pulls whatever data the
// message contains into state, attempts the next registration stage, and
// asks for the missing pieces.
func (a *CaptureAgent) Handle(ctx context.Context, state *State) string {
	a.extractFromMessage(state)

	if !state.ConsentObtained {
		state.GuardrailCache.AwaitingPersonalData = true
		return rejectPersonalData
	}
	state.GuardrailCache.AwaitingPersonalData = false

	ud := state.UserData
	// "Me interesa" over the last shown listing registers property interest.
	// Without contact data the stage switch below asks for it first.
	if propertyID := ud["last_property_id"]; propertyID != "" && interestRe.MatchString(state.LastUserMessage()) {
		if err := a.RegisterPropertyInterest(ctx, state, propertyID, "alto"); err == nil {
			return fmt.Sprintf("¡Anotado! Registré tu interés en la propiedad %s. Un asesor te contactará para coordinar la visita. ¿Quieres seguir viendo opciones?", propertyID)
		}
	}

	switch {
	case ud["lead_id"] == "":
		if ud["nombre"] == "" || ud["telefono"] == "" {
			return "Para registrarte necesito tu nombre completo y tu teléfono (formato +51XXXXXXXXX). ¿Me los compartes?"
		}
		res := a.RegisterPrelead(ctx, state, PreleadInput{
			Nombre:       ud["nombre"],
			Telefono:     ud["telefono"],
			TipoInmueble: orPropertyType(ud["tipo_inmueble"]),
			Zona:         orZone(ud["zona"]),
			Metraje:      orArea(ud["metraje"]),
		})
		if !res.OK() {
			return "No pude registrar tus datos: " + strings.Join(res.Errors, " ")
		}
		return fmt.Sprintf("¡Listo, %s! Registré tus datos (ref. %s). Para avanzar, ¿me compartes tu correo electrónico?", ud["nombre"], res.LeadID)

	case ud["email"] == "":
		return "Para completar tu registro me falta tu correo electrónico. ¿Me lo compartes?"

	case ud["lead_stage"] == string(leads.StagePreLead):
		res := a.RegisterLead(ctx, state, LeadInput{
			Email:           ud["email"],
			Habitaciones:    orBedrooms(ud["habitaciones"]),
			Presupuesto:     orBudget(ud["presupuesto"]),
			TiempoCompra:    leads.TimeframeOption("1"),
			TiempoBusqueda:  leads.TimeframeOption("1"),
			TipoDocumento:   leads.DocType(ud["tipo_documento"]),
			NumeroDocumento: ud["numero_documento"],
		})
		if !res.OK() {
			return "No pude completar tu registro: " + strings.Join(res.Errors, " ")
		}
		return "¡Perfecto! Tu registro está completo. ¿Cuentas con un crédito preaprobado o una cuota inicial para la compra?"

	default:
		return "Tus datos ya están registrados. Un asesor se pondrá en contacto contigo pronto. ¿Quieres seguir viendo propiedades?"
	}
}

// extractFromMessage captures contact data present in the message text.
// It only runs once consent handling is in play; the PII gate has already
// decided whether the data may be processed.
func (a *CaptureAgent) extractFromMessage(state *State) {
	msg := state.LastUserMessage()
	if !state.ConsentObtained {
		return
	}
	if m := nameCaptureRe.FindStringSubmatch(msg); m != nil && state.UserData["nombre"] == "" {
		state.UserData["nombre"] = strings.TrimSpace(m[1])
	}
	if m := phoneCaptureRe.FindString(msg); m != "" && state.UserData["telefono"] == "" {
		state.UserData["telefono"] = m
	}
	if m := emailCaptureRe.FindString(msg); m != "" && state.UserData["email"] == "" {
		state.UserData["email"] = m
	}
	if m := dniCaptureRe.FindStringSubmatch(msg); m != nil && state.UserData["numero_documento"] == "" {
		state.UserData["tipo_documento"] = string(leads.DocDNI)
		state.UserData["numero_documento"] = m[1]
	}
}

func (a *CaptureAgent) archiveRecord(ctx context.Context, leadID string, stage leads.Stage, payload any) {
	if a.archive == nil {
		return
	}
	if err := a.archive.Record(ctx, leadID, stage, payload); err != nil {
		a.logger.Warn("lead archive failed", "lead_id", leadID, "stage", stage, "error", err)
	}
}

func errorResult(message string, errs []string) leads.RegisterResult {
	return leads.RegisterResult{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Message:   message,
		Errors:    errs,
	}
}

func successResult(leadID, message string) leads.RegisterResult {
	return leads.RegisterResult{
		LeadID:    leadID,
		Status:    "success",
		Timestamp: time.Now().UTC(),
		Message:   message,
	}
}

func orKey(m map[string]string, key, def string) string {
	if v := m[key]; v != "" {
		return v
	}
	return def
}

func orPropertyType(v string) leads.PropertyType {
	if t := leads.PropertyType(v); t.IsValid() {
		return t
	}
	if code, ok := propertyTypeCodes[strings.ToLower(v)]; ok {
		return code
	}
	return leads.PropertyApartment
}

var propertyTypeCodes = map[string]leads.PropertyType{
	"departamento": leads.PropertyApartment,
	"casa":         leads.PropertyHouse,
	"oficina":      leads.PropertyOffice,
	"lote":         leads.PropertyLot,
}

func orZone(v string) leads.ZoneOption {
	if z := leads.ZoneOption(v); z.IsValid() {
		return z
	}
	// Free-text districts captured during search map to Lima Moderna by
	// default; zone refinement happens during advisor follow-up.
	return leads.ZoneLimaModerna
}

func orArea(v string) leads.AreaRange {
	if m := leads.AreaRange(v); m.IsValid() {
		return m
	}
	return leads.Area71To90
}

func orBedrooms(v string) leads.BedroomsOption {
	if b := leads.BedroomsOption(v); b.IsValid() {
		return b
	}
	return leads.BedroomsOption("2")
}

func orBudget(v string) leads.BudgetOption {
	if b := leads.BudgetOption(v); b.IsValid() {
		return b
	}
	return leads.Budget350To500K
}
