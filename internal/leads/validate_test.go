package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("+51987654321"))
	assert.False(t, ValidPhone("987654321"))
	assert.False(t, ValidPhone("+5198765432"))
	assert.False(t, ValidPhone("+519876543210"))
	assert.False(t, ValidPhone("+52987654321"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("maria@example.com"))
	assert.True(t, ValidEmail("juan.perez@mail.co.uk"))
	assert.False(t, ValidEmail("no-arroba.com"))
	assert.False(t, ValidEmail("a@b"))
}

func TestValidDocument(t *testing.T) {
	assert.True(t, ValidDocument(DocDNI, "45678912"))
	assert.False(t, ValidDocument(DocDNI, "4567891"))
	assert.False(t, ValidDocument(DocDNI, "4567891A"))

	assert.True(t, ValidDocument(DocPassport, "AB12345"))
	assert.False(t, ValidDocument(DocPassport, "AB"))
	assert.True(t, ValidDocument(DocForeignerCard, "X123456789012345"[0:15]))

	assert.False(t, ValidDocument(DocType("9"), "45678912"))
}

func TestValidateCustomerData(t *testing.T) {
	tests := []struct {
		name     string
		data     CustomerData
		wantOK   bool
		wantErrs []string
	}{
		{
			name:   "all fields valid",
			data:   CustomerData{Nombre: "María López", Email: "maria@example.com", Telefono: "+51987654321"},
			wantOK: true,
		},
		{
			name:   "empty fields are skipped",
			data:   CustomerData{Nombre: "María López"},
			wantOK: true,
		},
		{
			name:     "bad email",
			data:     CustomerData{Email: "no-es-correo"},
			wantErrs: []string{"Email inválido."},
		},
		{
			name:     "bad phone",
			data:     CustomerData{Telefono: "12345"},
			wantErrs: []string{"Teléfono inválido."},
		},
		{
			name:     "bad document",
			data:     CustomerData{TipoDocumento: DocDNI, NumeroDocumento: "123"},
			wantErrs: []string{"Documento inválido."},
		},
		{
			name:     "all errors reported",
			data:     CustomerData{Email: "x", Telefono: "y", TipoDocumento: DocDNI, NumeroDocumento: "z"},
			wantErrs: []string{"Email inválido.", "Teléfono inválido.", "Documento inválido."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateCustomerData(tt.data)
			assert.Equal(t, tt.wantOK, got.Valid)
			assert.Equal(t, tt.wantErrs, got.Errors)
		})
	}
}
