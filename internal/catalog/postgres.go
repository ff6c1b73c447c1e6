package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrProjectNotFound is returned when a project ID does not exist.
var ErrProjectNotFound = errors.New("project not found")

// SQLRepository reads the inventory from Postgres.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository wraps an open database handle.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// SearchUnits returns up to c.Limit units matching the criteria.
func (r *SQLRepository) SearchUnits(ctx context.Context, c Criteria) ([]Property, error) {
	var (
		filters []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if c.Zona != "" {
		filters = append(filters, "u.proyecto_direccion_distrito ILIKE "+arg("%"+c.Zona+"%"))
	}
	if c.TipoPropidad != "" {
		filters = append(filters, "u.proyecto_tipo = "+arg(c.TipoPropidad))
	}
	if c.MinPrecio > 0 {
		filters = append(filters, "u.unidad_precio >= "+arg(c.MinPrecio))
	}
	if c.MaxPrecio > 0 {
		filters = append(filters, "u.unidad_precio <= "+arg(c.MaxPrecio))
	}
	if c.Habitaciones > 0 {
		filters = append(filters, "u.unidad_num_dormitorios >= "+arg(c.Habitaciones))
	}

	where := "TRUE"
	if len(filters) > 0 {
		where = strings.Join(filters, " AND ")
	}
	limit := c.Limit
	if limit <= 0 {
		limit = 5
	}

	query := fmt.Sprintf(`
		SELECT
		  u.id,
		  u.project_id,
		  u.unidad_nombre AS titulo,
		  u.unidad_precio AS precio,
		  u.unidad_num_dormitorios AS habitaciones,
		  u.unidad_num_banios AS banios,
		  u.unidad_area_total AS area,
		  u.proyecto_nombre AS proyecto,
		  u.proyecto_direccion_distrito AS zona
		FROM bd_project_units u
		JOIN bd_all_projects p ON u.project_id = p.project_id
		WHERE %s
		LIMIT %s`, where, arg(limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: search units: %w", err)
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		var (
			id, projectID       int
			titulo              sql.NullString
			precio, hab, ba, ar sql.NullFloat64
			proyecto, zona      sql.NullString
		)
		if err := rows.Scan(&id, &projectID, &titulo, &precio, &hab, &ba, &ar, &proyecto, &zona); err != nil {
			return nil, fmt.Errorf("catalog: scan unit: %w", err)
		}

		p := Property{
			ID:           fmt.Sprintf("DB-%d", id),
			UnitID:       id,
			ProjectID:    projectID,
			Titulo:       titulo.String,
			Precio:       precio.Float64,
			Habitaciones: int(hab.Float64),
			Banios:       int(ba.Float64),
			Area:         int(ar.Float64),
			Proyecto:     proyecto.String,
			Zona:         zona.String,
			Amenidades:   []string{},
			Fotos:        []string{},
		}
		if p.Titulo == "" {
			p.Titulo = fallbackTitle(c.TipoPropidad, c.Zona)
		}
		dispZona := p.Zona
		if dispZona == "" {
			dispZona = orDefault(c.Zona, "Lima")
		}
		p.Descripcion = fmt.Sprintf("Propiedad en %s con %d habitaciones.", dispZona, p.Habitaciones)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProjectDetail returns the full record for one project.
func (r *SQLRepository) ProjectDetail(ctx context.Context, projectID int) (*ProjectDetail, error) {
	query := `
		SELECT
		  project_id,
		  proyecto_nombre,
		  inmobiliaria,
		  proyecto_fase,
		  proyecto_tipo,
		  proyecto_direccion_distrito,
		  proyecto_direccion,
		  proyecto_servicios,
		  proyecto_total_unidades
		FROM bd_all_projects
		WHERE project_id = $1`

	row := r.db.QueryRowContext(ctx, query, projectID)
	var (
		d                                          ProjectDetail
		fase, tipo, distrito, direccion, servicios sql.NullString
		totalUnidades                              sql.NullInt64
	)
	if err := row.Scan(&d.ProjectID, &d.Nombre, &d.Inmobiliaria, &fase, &tipo, &distrito, &direccion, &servicios, &totalUnidades); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("catalog: project detail: %w", err)
	}
	d.Fase = fase.String
	d.Tipo = tipo.String
	d.Distrito = distrito.String
	d.Direccion = direccion.String
	d.Servicios = servicios.String
	d.TotalUnidades = int(totalUnidades.Int64)
	return &d, nil
}

// UnitsByProject lists every unit of a project.
func (r *SQLRepository) UnitsByProject(ctx context.Context, projectID int) ([]Property, error) {
	query := `
		SELECT
		  u.id,
		  u.unidad_nombre AS titulo,
		  u.unidad_precio AS precio,
		  u.unidad_num_dormitorios AS habitaciones,
		  u.unidad_num_banios AS banios,
		  u.unidad_area_total AS area,
		  u.tipologia_tipo AS tipologia,
		  i.proyecto_imagen_full AS imagen_principal
		FROM bd_project_units u
		LEFT JOIN bd_all_images_project i ON i.project_id = u.project_id
		WHERE u.project_id = $1`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("catalog: units by project: %w", err)
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		var (
			id                  int
			titulo, tipologia   sql.NullString
			precio, hab, ba, ar sql.NullFloat64
			imagen              sql.NullString
		)
		if err := rows.Scan(&id, &titulo, &precio, &hab, &ba, &ar, &tipologia, &imagen); err != nil {
			return nil, fmt.Errorf("catalog: scan project unit: %w", err)
		}
		p := Property{
			ID:           fmt.Sprintf("U-%d-%s", projectID, titulo.String),
			UnitID:       id,
			ProjectID:    projectID,
			Titulo:       titulo.String,
			Precio:       precio.Float64,
			Habitaciones: int(hab.Float64),
			Banios:       int(ba.Float64),
			Area:         int(ar.Float64),
			Tipologia:    tipologia.String,
			Amenidades:   []string{},
		}
		if imagen.Valid {
			p.Fotos = []string{imagen.String}
		} else {
			p.Fotos = []string{}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProjectImages returns the project's images ordered by resolution.
func (r *SQLRepository) ProjectImages(ctx context.Context, projectID int) ([]ProjectImage, error) {
	query := `
		SELECT 'principal_full' AS tipo, proyecto_imagen_full AS url
		FROM bd_all_images_project
		WHERE project_id = $1
		UNION
		SELECT 'principal_xmedium' AS tipo, proyecto_imagen_xmedium AS url
		FROM bd_all_images_project
		WHERE project_id = $1
		UNION
		SELECT 'principal_small' AS tipo, proyecto_imagen_small AS url
		FROM bd_all_images_project
		WHERE project_id = $1
		ORDER BY
		  CASE tipo
		    WHEN 'principal_full' THEN 1
		    WHEN 'principal_xmedium' THEN 2
		    WHEN 'principal_small' THEN 3
		    ELSE 4
		  END`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("catalog: project images: %w", err)
	}
	defer rows.Close()

	var out []ProjectImage
	for rows.Next() {
		var img ProjectImage
		var url sql.NullString
		if err := rows.Scan(&img.Tipo, &url); err != nil {
			return nil, fmt.Errorf("catalog: scan image: %w", err)
		}
		if !url.Valid || url.String == "" {
			continue
		}
		img.URL = url.String
		out = append(out, img)
	}
	return out, rows.Err()
}

// SimilarUnits finds units near the reference unit's price band, in the
// same district, with at least as many bedrooms.
func (r *SQLRepository) SimilarUnits(ctx context.Context, unitID int, maxResults int) ([]Property, error) {
	if maxResults <= 0 {
		maxResults = 3
	}
	query := `
		WITH ref AS (
		  SELECT
		    u.project_id,
		    u.unidad_precio AS precio_ref,
		    u.unidad_num_dormitorios AS dorm_ref,
		    u.proyecto_direccion_distrito AS zona
		  FROM bd_project_units u
		  WHERE u.id = $1
		)
		SELECT
		  u.id,
		  u.unidad_nombre AS titulo,
		  u.unidad_precio AS precio,
		  u.unidad_num_dormitorios AS habitaciones,
		  u.proyecto_direccion_distrito AS zona
		FROM bd_project_units u
		JOIN ref ON TRUE
		WHERE
		  u.id <> $1
		  AND u.proyecto_direccion_distrito = ref.zona
		  AND u.unidad_precio BETWEEN ref.precio_ref * 0.8 AND ref.precio_ref * 1.2
		  AND u.unidad_num_dormitorios >= ref.dorm_ref
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, unitID, maxResults)
	if err != nil {
		return nil, fmt.Errorf("catalog: similar units: %w", err)
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		var (
			id          int
			titulo      sql.NullString
			precio, hab sql.NullFloat64
			zona        sql.NullString
		)
		if err := rows.Scan(&id, &titulo, &precio, &hab, &zona); err != nil {
			return nil, fmt.Errorf("catalog: scan similar unit: %w", err)
		}
		out = append(out, Property{
			ID:           fmt.Sprintf("U-%d", id),
			UnitID:       id,
			Titulo:       titulo.String,
			Precio:       precio.Float64,
			Habitaciones: int(hab.Float64),
			Zona:         orDefault(zona.String, "Lima"),
			Amenidades:   []string{},
			Fotos:        []string{},
		})
	}
	return out, rows.Err()
}

func fallbackTitle(tipo, zona string) string {
	return fmt.Sprintf("%s en %s", orDefault(tipo, "Propiedad"), orDefault(zona, "Lima"))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
