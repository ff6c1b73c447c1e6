// Package leads holds the staged lead records exchanged with the CRM:
// PreLead, Lead and EnrichedLead, plus the coded enum values the CRM
// expects for property type, zone, area range and the rest.
package leads

import "time"

// YesNo is the CRM's boolean encoding.
type YesNo string

const (
	Yes YesNo = "SI"
	No  YesNo = "NO"
)

func (v YesNo) IsValid() bool { return v == Yes || v == No }

// PropertyType codes ("1"-"5").
type PropertyType string

const (
	PropertyApartment PropertyType = "1"
	PropertyHouse     PropertyType = "2"
	PropertyOffice    PropertyType = "3"
	PropertyLot       PropertyType = "4"
	PropertyOther     PropertyType = "5"
)

func (v PropertyType) IsValid() bool { return v >= "1" && v <= "5" && len(v) == 1 }

// ZoneOption codes ("1"-"8").
type ZoneOption string

const (
	ZoneLimaTop     ZoneOption = "1"
	ZoneLimaModerna ZoneOption = "2"
	ZoneLimaCentro  ZoneOption = "3"
	ZoneLimaSur     ZoneOption = "4"
	ZoneLimaNorte   ZoneOption = "5"
	ZoneLimaEste    ZoneOption = "6"
	ZoneCallao      ZoneOption = "7"
	ZoneFueraLima   ZoneOption = "8"
)

func (v ZoneOption) IsValid() bool { return v >= "1" && v <= "8" && len(v) == 1 }

// AreaRange codes ("1"-"6"), in square meters.
type AreaRange string

const (
	AreaUnder40  AreaRange = "1"
	Area41To70   AreaRange = "2"
	Area71To90   AreaRange = "3"
	Area91To110  AreaRange = "4"
	Area111To130 AreaRange = "5"
	AreaOver130  AreaRange = "6"
)

func (v AreaRange) IsValid() bool { return v >= "1" && v <= "6" && len(v) == 1 }

// DocType codes: 1=DNI, 2=passport, 3=foreigner card.
type DocType string

const (
	DocDNI           DocType = "1"
	DocPassport      DocType = "2"
	DocForeignerCard DocType = "3"
)

func (v DocType) IsValid() bool { return v >= "1" && v <= "3" && len(v) == 1 }

// BedroomsOption codes ("1"-"5", where "5" means five or more).
type BedroomsOption string

func (v BedroomsOption) IsValid() bool { return v >= "1" && v <= "5" && len(v) == 1 }

// BudgetOption codes ("1"-"6"); see BudgetForPrice for the USD thresholds.
type BudgetOption string

const (
	BudgetUnder350K BudgetOption = "1"
	Budget350To500K BudgetOption = "2"
	Budget500To650K BudgetOption = "3"
	Budget650To800K BudgetOption = "4"
	Budget800KTo1M  BudgetOption = "5"
	BudgetOver1M    BudgetOption = "6"
)

func (v BudgetOption) IsValid() bool { return v >= "1" && v <= "6" && len(v) == 1 }

// TimeframeOption codes ("1"-"4"): up to 3/6/12 months, or longer.
type TimeframeOption string

func (v TimeframeOption) IsValid() bool { return v >= "1" && v <= "4" && len(v) == 1 }

// Purpose of the purchase.
type Purpose string

const (
	PurposePrimaryHome Purpose = "vivienda_principal"
	PurposeInvestment  Purpose = "inversión"
	PurposeSecondHome  Purpose = "segunda_vivienda"
)

func (v Purpose) IsValid() bool {
	return v == PurposePrimaryHome || v == PurposeInvestment || v == PurposeSecondHome
}

// Stage identifies how far a lead has progressed in the pipeline.
type Stage string

const (
	StagePreLead  Stage = "prelead"
	StageLead     Stage = "lead"
	StageEnriched Stage = "enriched_lead"
)

// ContactInfo is the customer contact block. Email is optional at the
// prelead stage and required from the lead stage onward.
type ContactInfo struct {
	Nombre   string `json:"nombre"`
	Telefono string `json:"telefono"`
	Email    string `json:"email,omitempty"`
}

// Document is an identity document.
type Document struct {
	Tipo   DocType `json:"tipo"`
	Numero string  `json:"numero"`
}

// PreLead captures the minimum data for an initial follow-up.
type PreLead struct {
	Contacto       ContactInfo  `json:"contacto"`
	TipoInmueble   PropertyType `json:"tipo_inmueble"`
	Consentimiento YesNo        `json:"consentimiento"`
	ProyectoID     string       `json:"proyecto_id"`
	Zona           ZoneOption   `json:"zona"`
	Metraje        AreaRange    `json:"metraje"`
}

// Lead extends PreLead with contact email, preferences and documentation.
type Lead struct {
	PreLead
	Document       *Document       `json:"document,omitempty"`
	Habitaciones   BedroomsOption  `json:"habitaciones"`
	Presupuesto    BudgetOption    `json:"presupuesto"`
	TiempoCompra   TimeframeOption `json:"tiempo_compra"`
	TiempoBusqueda TimeframeOption `json:"tiempo_busqueda"`
}

// EnrichedLead extends Lead with financial qualification data.
type EnrichedLead struct {
	Lead
	CreditoPreaprobado YesNo   `json:"credito_preaprobado"`
	CuotaInicial       YesNo   `json:"cuota_inicial"`
	Proposito          Purpose `json:"proposito"`
}

// RegisterResult is returned by every CRM registration operation.
type RegisterResult struct {
	LeadID    string    `json:"lead_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Errors    []string  `json:"errors,omitempty"`
}

// OK reports whether the registration succeeded.
func (r RegisterResult) OK() bool { return r.Status == "success" }

// BudgetForPrice maps a maximum price in USD to the CRM budget code.
func BudgetForPrice(maxPrice float64) BudgetOption {
	switch {
	case maxPrice <= 350_000:
		return BudgetUnder350K
	case maxPrice <= 500_000:
		return Budget350To500K
	case maxPrice <= 650_000:
		return Budget500To650K
	case maxPrice <= 800_000:
		return Budget650To800K
	case maxPrice <= 1_000_000:
		return Budget800KTo1M
	default:
		return BudgetOver1M
	}
}
