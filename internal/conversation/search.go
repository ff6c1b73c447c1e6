package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/inmobilia/inmobilia-ai-platform/internal/catalog"
	"github.com/inmobilia/inmobilia-ai-platform/internal/leads"
	"github.com/inmobilia/inmobilia-ai-platform/internal/observability/metrics"
	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
)

var (
	districtRe = regexp.MustCompile(`(?i)\b(miraflores|san isidro|la molina|surco|barranco|lince|san miguel|jesus maria|magdalena|pueblo libre|san borja|surquillo)\b`)
	typeRe     = regexp.MustCompile(`(?i)\b(departamento|depa|dpto|casa|oficina|terreno|lote|local)\b`)
	bedroomsRe = regexp.MustCompile(`(?i)(\d+)\s*(?:habitaciones?|dormitorios?|cuartos?|hab\b)`)
	maxPriceRe = regexp.MustCompile(`(?i)(?:hasta|m[aá]ximo|menos de|no m[aá]s de)\s*(?:\$|us\$|usd)?\s*([\d.,]+)\s*(mil)?`)
	minPriceRe = regexp.MustCompile(`(?i)(?:desde|m[ií]nimo|m[aá]s de)\s*(?:\$|us\$|usd)?\s*([\d.,]+)\s*(mil)?`)

	// Follow-up intents over the last shown listing.
	similarRe = regexp.MustCompile(`(?i)\bsimilares?\b`)
	imagesRe  = regexp.MustCompile(`(?i)(im[aá]gen|fotos?\b)`)
	detailRe  = regexp.MustCompile(`(?i)(\bdetalles?\b|m[aá]s informaci[oó]n)`)
)

// parseCriteria extracts search filters from free-form Spanish text.
func parseCriteria(message string, limit int) catalog.Criteria {
	c := catalog.Criteria{Limit: limit}

	if m := districtRe.FindString(message); m != "" {
		c.Zona = titleCase(m)
	}
	if m := typeRe.FindString(message); m != "" {
		c.TipoPropidad = normalizePropertyType(m)
	}
	if m := bedroomsRe.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			c.Habitaciones = n
		}
	}
	if m := maxPriceRe.FindStringSubmatch(message); m != nil {
		c.MaxPrecio = parseAmount(m[1], m[2] != "")
	}
	if m := minPriceRe.FindStringSubmatch(message); m != nil {
		c.MinPrecio = parseAmount(m[1], m[2] != "")
	}
	return c
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func normalizePropertyType(raw string) string {
	switch strings.ToLower(raw) {
	case "depa", "dpto", "departamento":
		return "departamento"
	case "terreno", "lote":
		return "lote"
	default:
		return strings.ToLower(raw)
	}
}

func parseAmount(raw string, thousands bool) float64 {
	cleaned := strings.NewReplacer(",", "", ".", "").Replace(raw)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	if thousands {
		v *= 1000
	}
	return v
}

// SearchAgent answers inventory questions: it parses criteria from the
// message, queries the catalog and formats the results. A failed or empty
// query degrades to synthetic fallback listings instead of an error reply.
type SearchAgent struct {
	catalog     catalog.Repository
	resultLimit int
	metrics     *metrics.ConversationMetrics
	events      *EventLogger
	logger      *logging.Logger
}

func NewSearchAgent(repo catalog.Repository, resultLimit int, m *metrics.ConversationMetrics, events *EventLogger, logger *logging.Logger) *SearchAgent {
	if logger == nil {
		logger = logging.Default()
	}
	if resultLimit <= 0 {
		resultLimit = 5
	}
	return &SearchAgent{
		catalog:     repo,
		resultLimit: resultLimit,
		metrics:     m,
		events:      events,
		logger:      logger,
	}
}

// Handle answers the latest user message: follow-up intents (similar units,
// project images, project detail) resolve against the last shown listing,
// everything else runs a fresh criteria search. It records the turn in
// state: properties shown, the interaction counter, any newly learned
// preferences, and the identifiers follow-ups key on.
func (a *SearchAgent) Handle(ctx context.Context, state *State) string {
	msg := state.LastUserMessage()

	if a.catalog != nil {
		switch {
		case similarRe.MatchString(msg):
			if reply, ok := a.handleSimilar(ctx, state); ok {
				return reply
			}
		case imagesRe.MatchString(msg):
			if reply, ok := a.handleImages(ctx, state); ok {
				return reply
			}
		case detailRe.MatchString(msg):
			if reply, ok := a.handleDetail(ctx, state); ok {
				return reply
			}
		}
	}

	return a.handleSearch(ctx, state, msg)
}

func (a *SearchAgent) handleSearch(ctx context.Context, state *State, msg string) string {
	criteria := parseCriteria(msg, a.resultLimit)

	start := time.Now()
	var (
		props    []catalog.Property
		fallback bool
	)
	if a.catalog != nil {
		found, err := a.catalog.SearchUnits(ctx, criteria)
		if err != nil {
			a.logger.Warn("catalog search failed, using fallback listings", "error", err)
			a.events.ErrorOccurred(ctx, state.ConversationID, "catalog_search", err)
		} else {
			props = found
		}
	}
	if len(props) == 0 {
		props = catalog.FallbackProperties(criteria.Zona, criteria.TipoPropidad, criteria.MaxPrecio, criteria.Habitaciones, 2)
		fallback = true
	}

	a.recordSearch(state, criteria)
	rememberShown(state, props)
	a.events.PropertySearch(ctx, state.ConversationID, len(props), fallback, time.Since(start).Milliseconds())

	return formatListings(props, criteria)
}

// handleSimilar lists units near the last shown unit's price band. A false
// return degrades the turn to a regular search.
func (a *SearchAgent) handleSimilar(ctx context.Context, state *State) (string, bool) {
	unitID, _ := strconv.Atoi(state.UserData["last_unit_id"])
	if unitID <= 0 {
		return "¿Similares a cuál propiedad? Pídeme primero una búsqueda y desde ahí te muestro alternativas parecidas.", true
	}

	props, err := a.catalog.SimilarUnits(ctx, unitID, a.resultLimit)
	if err != nil {
		a.logger.Warn("similar units lookup failed", "unit_id", unitID, "error", err)
		a.events.ErrorOccurred(ctx, state.ConversationID, "similar_units", err)
		return "", false
	}
	if len(props) == 0 {
		return "No encontré propiedades similares a la que viste. ¿Quieres que busque con otros criterios?", true
	}

	state.InteractionCount++
	state.AddInteraction("similar_units", map[string]any{"unit_id": unitID, "result_count": len(props)})

	var b strings.Builder
	fmt.Fprintf(&b, "Estas %d propiedades se parecen a la que viste:\n", len(props))
	for i, p := range props {
		fmt.Fprintf(&b, "%d. %s — $%s, %d habitaciones\n", i+1, p.Titulo, formatPrice(p.Precio), p.Habitaciones)
	}
	b.WriteString("¿Te gustaría ver más detalles de alguna?")
	return b.String(), true
}

// handleImages returns the image links of the last shown project.
func (a *SearchAgent) handleImages(ctx context.Context, state *State) (string, bool) {
	projectID, _ := strconv.Atoi(state.UserData["last_project_id"])
	if projectID <= 0 {
		return "¿De cuál proyecto quieres ver fotos? Pídeme primero una búsqueda y te comparto las imágenes.", true
	}

	images, err := a.catalog.ProjectImages(ctx, projectID)
	if err != nil {
		a.logger.Warn("project images lookup failed", "project_id", projectID, "error", err)
		a.events.ErrorOccurred(ctx, state.ConversationID, "project_images", err)
		return "", false
	}
	if len(images) == 0 {
		return "Este proyecto todavía no tiene fotos publicadas. ¿Quieres ver otras opciones?", true
	}

	state.InteractionCount++
	state.AddInteraction("project_images", map[string]any{"project_id": projectID, "image_count": len(images)})

	var b strings.Builder
	b.WriteString("Aquí tienes las fotos del proyecto:\n")
	for _, img := range images {
		fmt.Fprintf(&b, "- %s\n", img.URL)
	}
	return b.String(), true
}

// handleDetail returns the full record of the last shown project.
func (a *SearchAgent) handleDetail(ctx context.Context, state *State) (string, bool) {
	projectID, _ := strconv.Atoi(state.UserData["last_project_id"])
	if projectID <= 0 {
		return "¿De cuál propiedad quieres más detalle? Pídeme primero una búsqueda y te cuento todo sobre el proyecto.", true
	}

	detail, err := a.catalog.ProjectDetail(ctx, projectID)
	if err != nil {
		a.logger.Warn("project detail lookup failed", "project_id", projectID, "error", err)
		a.events.ErrorOccurred(ctx, state.ConversationID, "project_detail", err)
		return "", false
	}

	state.InteractionCount++
	state.AddInteraction("project_detail", map[string]any{"project_id": projectID})

	var b strings.Builder
	fmt.Fprintf(&b, "%s, de %s", detail.Nombre, detail.Inmobiliaria)
	if detail.Distrito != "" {
		fmt.Fprintf(&b, ", en %s", detail.Distrito)
	}
	b.WriteString(".\n")
	if detail.Direccion != "" {
		fmt.Fprintf(&b, "Dirección: %s\n", detail.Direccion)
	}
	if detail.Fase != "" {
		fmt.Fprintf(&b, "Fase: %s\n", detail.Fase)
	}
	if detail.Servicios != "" {
		fmt.Fprintf(&b, "Servicios: %s\n", detail.Servicios)
	}
	if detail.TotalUnidades > 0 {
		fmt.Fprintf(&b, "Unidades en total: %d\n", detail.TotalUnidades)
	}
	b.WriteString("¿Quieres ver las unidades disponibles o agendar una visita?")
	return b.String(), true
}

// recordSearch mirrors the search into state so later turns (and the
// capture agent) know what the customer is looking for.
func (a *SearchAgent) recordSearch(state *State, c catalog.Criteria) {
	state.PropertiesShown = true
	state.InteractionCount++

	if c.Zona != "" && state.UserData["zona"] == "" {
		state.UserData["zona"] = c.Zona
	}
	if c.TipoPropidad != "" && state.UserData["tipo_inmueble"] == "" {
		state.UserData["tipo_inmueble"] = c.TipoPropidad
	}
	if c.Habitaciones > 0 && state.UserData["habitaciones"] == "" {
		state.UserData["habitaciones"] = strconv.Itoa(c.Habitaciones)
	}
	if c.MaxPrecio > 0 && state.UserData["presupuesto"] == "" {
		state.UserData["presupuesto"] = string(leads.BudgetForPrice(c.MaxPrecio))
	}

	state.AddInteraction("property_search", map[string]any{
		"zona":         c.Zona,
		"tipo":         c.TipoPropidad,
		"max_precio":   c.MaxPrecio,
		"habitaciones": c.Habitaciones,
	})
}

// rememberShown keeps the top listing's identifiers so follow-up turns
// (similar, fotos, detalle, me interesa) know what "esa propiedad" means.
// Fallback listings carry no database identifiers; only the display ID is
// kept for interest registration.
func rememberShown(state *State, props []catalog.Property) {
	if len(props) == 0 {
		return
	}
	top := props[0]
	state.UserData["last_property_id"] = top.ID
	if top.UnitID > 0 {
		state.UserData["last_unit_id"] = strconv.Itoa(top.UnitID)
	}
	if top.ProjectID > 0 {
		state.UserData["last_project_id"] = strconv.Itoa(top.ProjectID)
	}
}

func formatListings(props []catalog.Property, c catalog.Criteria) string {
	var b strings.Builder
	zona := c.Zona
	if zona == "" {
		zona = "Lima"
	}
	fmt.Fprintf(&b, "Encontré %d propiedades en %s que podrían interesarte:\n", len(props), zona)
	for i, p := range props {
		fmt.Fprintf(&b, "%d. %s — $%s, %d habitaciones", i+1, p.Titulo, formatPrice(p.Precio), p.Habitaciones)
		if p.Area > 0 {
			fmt.Fprintf(&b, ", %d m²", p.Area)
		}
		b.WriteString("\n")
	}
	b.WriteString("¿Te gustaría ver más detalles de alguna o agendar una visita?")
	return b.String()
}

func formatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	pre := n % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
