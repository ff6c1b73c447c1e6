package conversation

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/inmobilia/inmobilia-ai-platform/internal/leads"
)

var leadIDRe = regexp.MustCompile(`^L\d{5}$`)

func newCaptureAgent(crm leads.CRM) *CaptureAgent {
	return NewCaptureAgent(crm, nil, "WEB001", nil, nil, nil)
}

func consentedState() *State {
	state := NewState("conv-1")
	state.ConsentObtained = true
	return state
}

func TestRegisterPreleadSuccess(t *testing.T) {
	crm := leads.NewInMemoryCRM()
	agent := newCaptureAgent(crm)
	state := consentedState()

	res := agent.RegisterPrelead(context.Background(), state, PreleadInput{
		Nombre:       "Juan Pérez",
		Telefono:     "+51987654321",
		TipoInmueble: leads.PropertyApartment,
		Zona:         leads.ZoneLimaModerna,
		Metraje:      leads.Area71To90,
	})

	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	if !leadIDRe.MatchString(res.LeadID) {
		t.Fatalf("unexpected lead ID format: %q", res.LeadID)
	}
	if state.UserData["lead_id"] != res.LeadID {
		t.Fatalf("lead ID not recorded in state")
	}
	if state.UserData["lead_stage"] != string(leads.StagePreLead) {
		t.Fatalf("expected prelead stage, got %q", state.UserData["lead_stage"])
	}
	if !state.LeadRegistered {
		t.Fatalf("expected lead_registrado flag")
	}
	if state.UserData["proyecto_id"] != "WEB001" {
		t.Fatalf("expected default project, got %q", state.UserData["proyecto_id"])
	}

	status, err := crm.Status(context.Background(), res.LeadID)
	if err != nil || status.Stage != leads.StagePreLead {
		t.Fatalf("expected prelead in CRM, got %+v err=%v", status, err)
	}
}

func TestRegisterPreleadRejectsInvalidPhone(t *testing.T) {
	agent := newCaptureAgent(leads.NewInMemoryCRM())
	state := consentedState()

	res := agent.RegisterPrelead(context.Background(), state, PreleadInput{
		Nombre:       "Juan Pérez",
		Telefono:     "987654321", // missing +51 prefix
		TipoInmueble: leads.PropertyApartment,
		Zona:         leads.ZoneLimaModerna,
		Metraje:      leads.Area71To90,
	})

	if res.OK() {
		t.Fatalf("expected validation failure")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "Teléfono inválido") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected phone validation error, got %v", res.Errors)
	}
	if state.UserData["lead_id"] != "" {
		t.Fatalf("failed registration must not record a lead ID")
	}
}

func TestRegisterLeadRequiresPrelead(t *testing.T) {
	agent := newCaptureAgent(leads.NewInMemoryCRM())
	state := consentedState()

	res := agent.RegisterLead(context.Background(), state, LeadInput{
		Email:          "juan@example.com",
		Habitaciones:   leads.BedroomsOption("2"),
		Presupuesto:    leads.Budget350To500K,
		TiempoCompra:   leads.TimeframeOption("1"),
		TiempoBusqueda: leads.TimeframeOption("2"),
	})

	if res.OK() {
		t.Fatalf("expected failure without a prior prelead")
	}
}

func TestEnrichLeadRequiresCompleteLead(t *testing.T) {
	crm := leads.NewInMemoryCRM()
	agent := newCaptureAgent(crm)
	state := consentedState()

	pre := agent.RegisterPrelead(context.Background(), state, PreleadInput{
		Nombre:       "Juan Pérez",
		Telefono:     "+51987654321",
		TipoInmueble: leads.PropertyApartment,
		Zona:         leads.ZoneLimaModerna,
		Metraje:      leads.Area71To90,
	})
	if !pre.OK() {
		t.Fatalf("prelead failed: %+v", pre)
	}

	// Email (lead stage) missing: enrichment must be refused.
	res := agent.EnrichLead(context.Background(), state, EnrichInput{
		CreditoPreaprobado: leads.Yes,
		CuotaInicial:       leads.Yes,
		Proposito:          leads.PurposePrimaryHome,
	})
	if res.OK() {
		t.Fatalf("expected failure without the lead stage")
	}
}

func TestLeadProgressionThroughAllStages(t *testing.T) {
	crm := leads.NewInMemoryCRM()
	agent := newCaptureAgent(crm)
	state := consentedState()

	pre := agent.RegisterPrelead(context.Background(), state, PreleadInput{
		Nombre:       "María López",
		Telefono:     "+51912345678",
		TipoInmueble: leads.PropertyHouse,
		Zona:         leads.ZoneLimaTop,
		Metraje:      leads.Area91To110,
	})
	if !pre.OK() {
		t.Fatalf("prelead failed: %+v", pre)
	}

	lead := agent.RegisterLead(context.Background(), state, LeadInput{
		Email:           "maria@example.com",
		Habitaciones:    leads.BedroomsOption("3"),
		Presupuesto:     leads.Budget500To650K,
		TiempoCompra:    leads.TimeframeOption("2"),
		TiempoBusqueda:  leads.TimeframeOption("1"),
		TipoDocumento:   leads.DocDNI,
		NumeroDocumento: "12345678",
	})
	if !lead.OK() {
		t.Fatalf("lead failed: %+v", lead)
	}
	if state.UserData["lead_stage"] != string(leads.StageLead) {
		t.Fatalf("expected lead stage, got %q", state.UserData["lead_stage"])
	}

	enriched := agent.EnrichLead(context.Background(), state, EnrichInput{
		CreditoPreaprobado: leads.Yes,
		CuotaInicial:       leads.No,
		Proposito:          leads.PurposeInvestment,
	})
	if !enriched.OK() {
		t.Fatalf("enrichment failed: %+v", enriched)
	}

	status, err := crm.Status(context.Background(), pre.LeadID)
	if err != nil || status.Stage != leads.StageEnriched {
		t.Fatalf("expected enriched stage in CRM, got %+v err=%v", status, err)
	}
}

func TestRegisterPropertyInterestRequiresContactData(t *testing.T) {
	agent := newCaptureAgent(leads.NewInMemoryCRM())
	state := consentedState()

	err := agent.RegisterPropertyInterest(context.Background(), state, "DB-7", "alto")
	if !errors.Is(err, leads.ErrPreleadRequired) {
		t.Fatalf("expected ErrPreleadRequired, got %v", err)
	}

	state.UserData["nombre"] = "Juan Pérez"
	state.UserData["telefono"] = "+51987654321"
	if err := agent.RegisterPropertyInterest(context.Background(), state, "DB-7", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.PropertyInterests) != 1 || state.PropertyInterests[0].Nivel != "alto" {
		t.Fatalf("expected default-level interest recorded, got %+v", state.PropertyInterests)
	}
}

func TestCaptureHandleAsksForConsentFirst(t *testing.T) {
	agent := newCaptureAgent(leads.NewInMemoryCRM())
	state := stateWithMessage("mi nombre es Juan Pérez")

	reply := agent.Handle(context.Background(), state)
	if !strings.Contains(reply, "Ley 29733") {
		t.Fatalf("expected consent request, got %q", reply)
	}
	if !state.GuardrailCache.AwaitingPersonalData {
		t.Fatalf("expected awaiting_personal_data set")
	}
	if state.UserData["nombre"] != "" {
		t.Fatalf("data must not be extracted before consent")
	}
}

func TestCaptureHandleExtractsDataAndRegisters(t *testing.T) {
	crm := leads.NewInMemoryCRM()
	agent := newCaptureAgent(crm)

	state := NewState("conv-1")
	state.ConsentObtained = true
	state.AppendMessage(ChatRoleUser, "me llamo Juan Pérez y mi teléfono es +51987654321")

	reply := agent.Handle(context.Background(), state)
	if !strings.Contains(reply, "Registré tus datos") {
		t.Fatalf("expected registration confirmation, got %q", reply)
	}
	if state.UserData["nombre"] != "Juan Pérez" {
		t.Fatalf("expected extracted name, got %q", state.UserData["nombre"])
	}
	if state.UserData["telefono"] != "+51987654321" {
		t.Fatalf("expected extracted phone, got %q", state.UserData["telefono"])
	}
	if !leadIDRe.MatchString(state.UserData["lead_id"]) {
		t.Fatalf("expected CRM lead ID, got %q", state.UserData["lead_id"])
	}
}

func TestCaptureHandleAsksForMissingData(t *testing.T) {
	agent := newCaptureAgent(leads.NewInMemoryCRM())

	state := NewState("conv-1")
	state.ConsentObtained = true
	state.AppendMessage(ChatRoleUser, "quiero registrarme")

	reply := agent.Handle(context.Background(), state)
	if !strings.Contains(reply, "nombre completo") || !strings.Contains(reply, "+51") {
		t.Fatalf("expected request for name and phone, got %q", reply)
	}
}

func TestCaptureHandleRegistersInterestInShownProperty(t *testing.T) {
	agent := newCaptureAgent(leads.NewInMemoryCRM())

	state := NewState("conv-1")
	state.ConsentObtained = true
	state.UserData["nombre"] = "Ana Torres"
	state.UserData["telefono"] = "+51911222333"
	state.UserData["last_property_id"] = "U-101-0201"
	state.AppendMessage(ChatRoleUser, "me interesa, quiero agendar una visita")

	reply := agent.Handle(context.Background(), state)
	if !strings.Contains(reply, "Registré tu interés en la propiedad U-101-0201") {
		t.Fatalf("expected interest confirmation, got %q", reply)
	}
	if len(state.PropertyInterests) != 1 || state.PropertyInterests[0].PropertyID != "U-101-0201" {
		t.Fatalf("expected interest recorded, got %+v", state.PropertyInterests)
	}
}

func TestCaptureHandleInterestWithoutContactAsksForData(t *testing.T) {
	agent := newCaptureAgent(leads.NewInMemoryCRM())

	state := NewState("conv-1")
	state.ConsentObtained = true
	state.UserData["last_property_id"] = "U-101-0201"
	state.AppendMessage(ChatRoleUser, "me interesa esa propiedad")

	reply := agent.Handle(context.Background(), state)
	if !strings.Contains(reply, "nombre completo") {
		t.Fatalf("expected request for contact data, got %q", reply)
	}
	if len(state.PropertyInterests) != 0 {
		t.Fatalf("interest must not be recorded without contact data")
	}
}

func TestCaptureHandlePromotesToLeadWithEmail(t *testing.T) {
	crm := leads.NewInMemoryCRM()
	agent := newCaptureAgent(crm)

	state := NewState("conv-1")
	state.ConsentObtained = true
	state.AppendMessage(ChatRoleUser, "me llamo Ana Torres y mi teléfono es +51911222333")
	agent.Handle(context.Background(), state)

	state.AppendMessage(ChatRoleUser, "mi correo es ana.torres@example.com")
	reply := agent.Handle(context.Background(), state)
	if !strings.Contains(reply, "registro está completo") {
		t.Fatalf("expected lead completion, got %q", reply)
	}
	if state.UserData["lead_stage"] != string(leads.StageLead) {
		t.Fatalf("expected lead stage, got %q", state.UserData["lead_stage"])
	}
}
