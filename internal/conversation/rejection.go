package conversation

import "strings"

// RejectionReason is the closed set of causes a gate can block a turn for.
type RejectionReason int

const (
	ReasonNone RejectionReason = iota
	ReasonOffTopic
	ReasonSecurity
	ReasonPersonalData
)

func (r RejectionReason) String() string {
	switch r {
	case ReasonOffTopic:
		return "off_topic"
	case ReasonSecurity:
		return "security"
	case ReasonPersonalData:
		return "personal_data"
	default:
		return "none"
	}
}

// Rejection response templates, in the language the assistant speaks.
const (
	rejectOffTopic = "Disculpa, soy un asistente especializado exclusivamente en bienes raíces. Estoy aquí para ayudarte con búsqueda de propiedades, información sobre zonas residenciales, financiamiento hipotecario y temas relacionados con el mercado inmobiliario. ¿En qué puedo orientarte dentro de este ámbito?"

	rejectSecurity = "Por seguridad, mantengamos nuestra conversación enfocada en temas inmobiliarios. ¿Qué tipo de propiedad estás buscando o en qué zona te gustaría vivir?"

	rejectPersonalData = "Para poder ofrecerte información personalizada sobre propiedades, necesito tu consentimiento según la Ley 29733 para manejar tus datos de contacto. ¿Me autorizas a procesar esta información para asistirte mejor?"

	rejectGeneric = "Estoy aquí para ayudarte exclusivamente con temas inmobiliarios como búsqueda de propiedades, información sobre zonas residenciales o asesoría en el proceso de compra/alquiler. ¿En qué puedo orientarte dentro de este ámbito?"
)

// RejectionResponse returns the canned reply for a blocked turn and applies
// the reason's side effects: a personal-data rejection flags the state as
// awaiting consent so the next turn can ask for it.
func RejectionResponse(state *State, reason RejectionReason) string {
	switch reason {
	case ReasonOffTopic:
		return rejectOffTopic
	case ReasonSecurity:
		return rejectSecurity
	case ReasonPersonalData:
		state.GuardrailCache.AwaitingPersonalData = true
		return rejectPersonalData
	default:
		return rejectGeneric
	}
}

// PersonalDataDetail formats the detected data kinds into the rejection
// message shown in logs and guardrail events.
func PersonalDataDetail(kinds []string) string {
	if len(kinds) == 0 {
		return "información personal sin consentimiento"
	}
	return "información personal (" + strings.Join(kinds, ", ") + ") sin consentimiento"
}
