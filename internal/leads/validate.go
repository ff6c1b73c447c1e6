package leads

import "regexp"

var (
	emailRe = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)
	phoneRe = regexp.MustCompile(`^\+51\d{9}$`)
	dniRe   = regexp.MustCompile(`^\d{8}$`)
)

// ValidationResult reports field-level validation errors in the language
// the assistant speaks to the customer.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// CustomerData is the partial contact/document payload to validate. Empty
// fields are skipped, matching how customers supply data incrementally.
type CustomerData struct {
	Nombre          string
	Email           string
	Telefono        string
	TipoDocumento   DocType
	NumeroDocumento string
}

// ValidEmail reports whether e is a well-formed email address.
func ValidEmail(e string) bool { return emailRe.MatchString(e) }

// ValidPhone reports whether t is a Peruvian mobile number (+51 plus 9 digits).
func ValidPhone(t string) bool { return phoneRe.MatchString(t) }

// ValidDocument checks the document number against its type: DNI is exactly
// 8 digits, passport and foreigner card are 3-15 characters.
func ValidDocument(tipo DocType, numero string) bool {
	switch tipo {
	case DocDNI:
		return dniRe.MatchString(numero)
	case DocPassport, DocForeignerCard:
		return len(numero) >= 3 && len(numero) <= 15
	default:
		return false
	}
}

// ValidateCustomerData validates the supplied fields and returns every
// error found, not just the first.
func ValidateCustomerData(d CustomerData) ValidationResult {
	var errs []string
	if d.Email != "" && !ValidEmail(d.Email) {
		errs = append(errs, "Email inválido.")
	}
	if d.Telefono != "" && !ValidPhone(d.Telefono) {
		errs = append(errs, "Teléfono inválido.")
	}
	if d.TipoDocumento != "" && d.NumeroDocumento != "" && !ValidDocument(d.TipoDocumento, d.NumeroDocumento) {
		errs = append(errs, "Documento inválido.")
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
