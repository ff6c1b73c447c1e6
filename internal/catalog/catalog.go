// Package catalog queries the property inventory: project units, project
// details and images. When the database is unreachable or returns nothing,
// search falls back to synthetic listings so the conversation can continue.
package catalog

import "context"

// Property is a unit formatted for display in the conversation. UnitID and
// ProjectID carry the database identifiers follow-up lookups (detail, images,
// similar units) key on; synthetic fallback listings leave them zero.
type Property struct {
	ID           string   `json:"id"`
	UnitID       int      `json:"unit_id,omitempty"`
	ProjectID    int      `json:"project_id,omitempty"`
	Titulo       string   `json:"titulo"`
	Precio       float64  `json:"precio"`
	Habitaciones int      `json:"habitaciones"`
	Banios       int      `json:"banios,omitempty"`
	Area         int      `json:"area,omitempty"`
	Zona         string   `json:"zona,omitempty"`
	Proyecto     string   `json:"proyecto,omitempty"`
	Tipologia    string   `json:"tipologia,omitempty"`
	Descripcion  string   `json:"descripcion"`
	Amenidades   []string `json:"amenidades"`
	Fotos        []string `json:"fotos"`
}

// Criteria filters a unit search. Zero values mean "no filter".
type Criteria struct {
	Zona         string
	TipoPropidad string
	MinPrecio    float64
	MaxPrecio    float64
	Habitaciones int
	Limit        int
}

// ProjectDetail is the full record of a development project.
type ProjectDetail struct {
	ProjectID     int    `json:"project_id"`
	Nombre        string `json:"nombre"`
	Inmobiliaria  string `json:"inmobiliaria"`
	Fase          string `json:"fase,omitempty"`
	Tipo          string `json:"tipo,omitempty"`
	Distrito      string `json:"distrito,omitempty"`
	Direccion     string `json:"direccion,omitempty"`
	Servicios     string `json:"servicios,omitempty"`
	TotalUnidades int    `json:"total_unidades,omitempty"`
}

// ProjectImage is one image of a project in a given resolution.
type ProjectImage struct {
	Tipo string `json:"tipo"`
	URL  string `json:"url"`
}

// Repository is the read-side interface over the property inventory.
type Repository interface {
	SearchUnits(ctx context.Context, c Criteria) ([]Property, error)
	ProjectDetail(ctx context.Context, projectID int) (*ProjectDetail, error)
	UnitsByProject(ctx context.Context, projectID int) ([]Property, error)
	ProjectImages(ctx context.Context, projectID int) ([]ProjectImage, error)
	SimilarUnits(ctx context.Context, unitID int, maxResults int) ([]Property, error)
}
