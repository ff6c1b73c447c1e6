package catalog

import "fmt"

// FallbackProperties generates synthetic listings when the inventory is
// unreachable or a search matches nothing. Prices start at 90% of the
// requested maximum and rise 5% per item; bedrooms increase by one per item.
func FallbackProperties(zona, tipo string, maxPrecio float64, habitaciones, maxResults int) []Property {
	zona = orDefault(zona, "Lima")
	tipo = orDefault(tipo, "Departamento")
	base := 150_000.0
	if maxPrecio > 0 {
		base = maxPrecio * 0.9
	}
	hab := habitaciones
	if hab <= 0 {
		hab = 2
	}
	if maxResults <= 0 {
		maxResults = 2
	}

	out := make([]Property, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		out = append(out, Property{
			ID:           fmt.Sprintf("FB-%s-%d", zona, i+1),
			Titulo:       fmt.Sprintf("%s en %s", tipo, zona),
			Precio:       base * (1 + 0.05*float64(i)),
			Habitaciones: hab + i,
			Zona:         zona,
			Descripcion:  fmt.Sprintf("Propiedad en %s con %d habitaciones.", zona, hab+i),
			Amenidades:   []string{"Seguridad 24/7", "Estacionamiento"},
			Fotos:        []string{},
		})
	}
	return out
}
