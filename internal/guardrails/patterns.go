// Package guardrails provides the regex fast path used by the conversation
// gates: compiled, memoized pattern sets for domain relevance, injection
// detection, consent phrases, and PII detection in Spanish-language messages.
package guardrails

import (
	"regexp"
	"sync"
)

// Pattern categories recognized by a Matcher.
const (
	CategoryDomainRelevant = "domain-relevant"
	CategoryGreeting       = "greeting"
	CategoryOffTopic       = "off-topic"
	CategoryInjectionRisk  = "injection-risk"
	CategoryConsentPhrase  = "consent-phrase"
	CategoryPII            = "pii-kind"
)

// Pattern is a compiled regex with a label describing what it detects.
// For the pii-kind category the label names the detected data kind and
// surfaces in user-facing rejection text.
type Pattern struct {
	Label string
	re    *regexp.Regexp
}

// Matches reports whether the pattern matches anywhere in the message.
func (p Pattern) Matches(message string) bool {
	return p.re.MatchString(message)
}

var rawPatterns = map[string][]struct{ label, expr string }{
	CategoryDomainRelevant: {
		{"property-type", `(?i)(casa|departamento|depa|dpto|terreno|inmueble|propiedad|local|oficina)`},
		{"lima-district", `(?i)(miraflores|san isidro|la molina|surco|barranco|lince|san miguel|jesus maria|magdalena|pueblo libre|san borja|surquillo)`},
		{"feature", `(?i)(habitaci[oó]n|ba[ñn]o|cocina|sala|terraza|jard[ií]n|dorm|cuarto)`},
		{"metric-or-price", `(?i)(m2|metros cuadrados|precio|dolar|sol|soles)`},
		{"transaction", `(?i)(alquiler|compra|venta|hipoteca|cr[eé]dito|financiamiento)`},
	},
	CategoryGreeting: {
		{"greeting", `(?i)^(hola|buenos? d[ií]as|buenas? tardes|buenas? noches)( .*)?$`},
	},
	CategoryOffTopic: {
		{"mathematics", `(?i)(ecuaci[oó]n|matem[aá]tica|f[oó]rmula|[aá]lgebra|geometr[ií]a)`},
		{"politics", `(?i)(pol[ií]tica|presidente|gobierno|elecci[oó]n)`},
		{"sports", `(?i)(f[uú]tbol|tenis|baloncesto|mundial)`},
	},
	CategoryInjectionRisk: {
		{"ignore-instructions", `(?i)(ignore|olvida|desatiende).*(instrucciones|previas|anteriores)`},
		{"role-reassignment", `(?i)actuar como.*(diferente|otro|modo|prompt)`},
		{"system-prompt", `(?i)(system|prompt).*(role|instruction)`},
		{"reveal-prompt", `(?i)(mostrar|revelar).*(instruccion|prompt)`},
		{"no-restrictions", `(?i)actuar como si.*(no tuvieras|sin).*(limitaciones|restricciones)`},
	},
	CategoryConsentPhrase: {
		{"accept", `(?i)(acepto|autorizo|consiento|s[iíÍ])`},
		{"confirm", `(?i)(confirmo|estoy de acuerdo|procede)`},
		{"grant", `(?i)(doy mi consentimiento|pueden usar|pueden utilizar)`},
	},
	CategoryPII: {
		{"email", `[\w.-]+@[\w.-]+\.\w+`},
		{"teléfono", `(\+51)?\d{9,11}`},
		{"DNI", `\b\d{8}\b`},
		{"dirección", `(calle|avenida|av|jr|jirón|urb).+\d+`},
		{"nombre completo", `\b[A-Z][a-z]+ [A-Z][a-z]+( [A-Z][a-z]+)?\b`},
	},
}

// Matcher compiles pattern sets on first use and memoizes them. The cache
// belongs to the Matcher instance, so callers inject one into whatever owns
// the gates instead of sharing package state.
type Matcher struct {
	mu       sync.Mutex
	compiled map[string][]Pattern
}

// NewMatcher creates a matcher with an empty compilation cache.
func NewMatcher() *Matcher {
	return &Matcher{compiled: make(map[string][]Pattern, len(rawPatterns))}
}

// Patterns returns the compiled pattern set for a category, compiling it on
// first use. Unknown categories yield an empty slice.
func (m *Matcher) Patterns(category string) []Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ps, ok := m.compiled[category]; ok {
		return ps
	}

	raw := rawPatterns[category]
	ps := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		ps = append(ps, Pattern{Label: r.label, re: regexp.MustCompile(r.expr)})
	}
	m.compiled[category] = ps
	return ps
}

// MatchAny reports whether any pattern in the category matches the message.
func (m *Matcher) MatchAny(category, message string) bool {
	for _, p := range m.Patterns(category) {
		if p.Matches(message) {
			return true
		}
	}
	return false
}

// MatchLabels returns the labels of every pattern in the category that
// matches the message, in declaration order.
func (m *Matcher) MatchLabels(category, message string) []string {
	var labels []string
	for _, p := range m.Patterns(category) {
		if p.Matches(message) {
			labels = append(labels, p.Label)
		}
	}
	return labels
}
