package leads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeArchive serves canned snapshots for the record endpoints.
type fakeArchive struct {
	records map[string]*ArchivedLead
}

func (f *fakeArchive) Get(_ context.Context, leadID string) (*ArchivedLead, error) {
	rec, ok := f.records[leadID]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return rec, nil
}

func (f *fakeArchive) ListByStage(_ context.Context, stage Stage, _ int) ([]*ArchivedLead, error) {
	var out []*ArchivedLead
	for _, rec := range f.records {
		if rec.Stage == stage {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestRouter(t *testing.T, archive ArchiveReader) (*chi.Mux, *InMemoryCRM) {
	t.Helper()
	crm := NewInMemoryCRM()
	h := NewHandler(crm, archive, logging.Default(), "WEB001")

	r := chi.NewRouter()
	r.Post("/leads/web", h.CreateWebLead)
	r.Get("/leads/records", h.ListLeadRecords)
	r.Get("/leads/{leadID}/status", h.GetLeadStatus)
	r.Get("/leads/{leadID}/record", h.GetLeadRecord)
	return r, crm
}

func TestCreateWebLead(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	body := `{"nombre":"María López","telefono":"+51987654321","tipo_inmueble":"1","zona":"2","metraje":"3"}`
	req := httptest.NewRequest(http.MethodPost, "/leads/web", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lead_id":"L`)
	assert.Contains(t, rec.Body.String(), `"stage":"prelead"`)
}

func TestCreateWebLeadDefaultsProject(t *testing.T) {
	router, crm := newTestRouter(t, nil)

	body := `{"nombre":"Juan Pérez","telefono":"+51912345678","tipo_inmueble":"2","zona":"1","metraje":"4"}`
	req := httptest.NewRequest(http.MethodPost, "/leads/web", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// One record, at prelead stage.
	crm.mu.RLock()
	defer crm.mu.RUnlock()
	require.Len(t, crm.records, 1)
	for _, rec := range crm.records {
		prelead := rec.data.(PreLead)
		assert.Equal(t, "WEB001", prelead.ProyectoID)
		assert.Equal(t, Yes, prelead.Consentimiento)
	}
}

func TestCreateWebLeadInvalidPhone(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	body := `{"nombre":"María López","telefono":"12345","tipo_inmueble":"1","zona":"2","metraje":"3"}`
	req := httptest.NewRequest(http.MethodPost, "/leads/web", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Teléfono inválido.")
}

func TestCreateWebLeadInvalidEnums(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	body := `{"nombre":"María López","telefono":"+51987654321","tipo_inmueble":"9","zona":"2","metraje":"3"}`
	req := httptest.NewRequest(http.MethodPost, "/leads/web", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLeadStatus(t *testing.T) {
	router, crm := newTestRouter(t, nil)

	leadID, err := crm.RegisterPrelead(t.Context(), samplePrelead())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/leads/"+leadID+"/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stage":"prelead"`)
}

func TestGetLeadStatusNotFound(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/leads/L00001/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLeadRecord(t *testing.T) {
	now := time.Now()
	archive := &fakeArchive{records: map[string]*ArchivedLead{
		"L00007": {
			LeadID:    "L00007",
			Stage:     StageLead,
			Payload:   json.RawMessage(`{"proyecto_id":"WEB001"}`),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}}
	router, _ := newTestRouter(t, archive)

	req := httptest.NewRequest(http.MethodGet, "/leads/L00007/record", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lead_id":"L00007"`)
	assert.Contains(t, rec.Body.String(), `"stage":"lead"`)
	assert.Contains(t, rec.Body.String(), `"proyecto_id":"WEB001"`)
}

func TestGetLeadRecordNotFound(t *testing.T) {
	router, _ := newTestRouter(t, &fakeArchive{records: map[string]*ArchivedLead{}})

	req := httptest.NewRequest(http.MethodGet, "/leads/L00099/record", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListLeadRecords(t *testing.T) {
	now := time.Now()
	archive := &fakeArchive{records: map[string]*ArchivedLead{
		"L00001": {LeadID: "L00001", Stage: StagePreLead, Payload: json.RawMessage(`{}`), CreatedAt: now, UpdatedAt: now},
		"L00002": {LeadID: "L00002", Stage: StageEnriched, Payload: json.RawMessage(`{}`), CreatedAt: now, UpdatedAt: now},
	}}
	router, _ := newTestRouter(t, archive)

	req := httptest.NewRequest(http.MethodGet, "/leads/records?stage=enriched_lead", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.Contains(t, rec.Body.String(), `"lead_id":"L00002"`)
}

func TestListLeadRecordsRejectsUnknownStage(t *testing.T) {
	router, _ := newTestRouter(t, &fakeArchive{records: map[string]*ArchivedLead{}})

	req := httptest.NewRequest(http.MethodGet, "/leads/records?stage=hot", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeadRecordsUnavailableWithoutArchive(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/leads/records?stage=prelead", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/leads/L00001/record", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
