package reporting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tib-ai/triage/pkg/catalog"
	"github.com/tib-ai/triage/pkg/records"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T, placeholders bool) (*mux.Router, *records.Repository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "reports.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := records.NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	require.NoError(t, repo.SeedCatalog(context.Background(), catalog.Default()))

	svc := NewService(repo, catalog.Default(), nil, StatsOptions{Placeholders: placeholders, Rand: fixedInts{}})
	router := mux.NewRouter()
	NewHTTPHandler(svc).Register(router.PathPrefix("/api").Subrouter())
	return router, repo
}

func seed(t *testing.T, repo *records.Repository, location string, diseaseID uint, level int) {
	t.Helper()
	p := &records.Patient{Name: "P", Age: 40, Gender: "M", Location: location}
	d := &records.Diagnosis{DiseaseID: diseaseID, SeverityID: uint(level), ConfidenceScore: 0.95}
	require.NoError(t, repo.CreateSubmission(context.Background(), p, d))
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestTriageDataEndpoints(t *testing.T) {
	router, repo := newTestRouter(t, true)
	seed(t, repo, "Lahore", 1, 1)
	seed(t, repo, "Lahore", 2, 3)

	rec := get(t, router, "/api/triage-data")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"level":"Critical","count":1,"color":"#1890FF"},
		{"level":"Urgent","count":0,"color":"#52C41A"},
		{"level":"Medium","count":1,"color":"#FFEC3D"},
		{"level":"Low","count":0,"color":"#FAAD14"},
		{"level":"Minimal","count":0,"color":"#FF4D4F"}
	]`, rec.Body.String())

	rec = get(t, router, "/api/triage-data/2")
	require.Equal(t, http.StatusOK, rec.Code)
	var buckets []SeverityBucket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buckets))
	require.Len(t, buckets, 5)
	assert.Zero(t, buckets[0].Count)
	assert.Equal(t, int64(1), buckets[2].Count)

	rec = get(t, router, "/api/triage-data/77")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRegionEndpoints(t *testing.T) {
	router, repo := newTestRouter(t, true)
	seed(t, repo, "Lahore", 5, 4)
	seed(t, repo, "Lahore", 5, 2)
	seed(t, repo, "Karachi", 5, 3)

	rec := get(t, router, "/api/region-data")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"Lahore":{"severity":"Urgent","color":"#1890FF","count":2},
		"Karachi":{"severity":"Medium","color":"#52C41A","count":1}
	}`, rec.Body.String())

	rec = get(t, router, "/api/disease-location/5")
	require.Equal(t, http.StatusOK, rec.Code)
	var regions DiseaseRegions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regions))
	assert.Equal(t, int64(3), regions.TotalPatients)
	assert.Equal(t, ZoneRed, regions.Regions["Karachi"].ZoneType)

	rec = get(t, router, "/api/disease-location/4")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"regions":{},"total_patients":0}`, rec.Body.String())

	rec = get(t, router, "/api/disease-location")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Tuberculosis":{"total":3,"Lahore":2,"Karachi":1}}`, rec.Body.String())
}

func TestStatsEndpointOnEmptyStore(t *testing.T) {
	router, _ := newTestRouter(t, true)

	rec := get(t, router, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(87), stats.TotalPatients)
	assert.Equal(t, "89%", stats.Accuracy)
	assert.Equal(t, int64(5), stats.TotalDiseasesDetected)
}

func TestStatsEndpointHonestZeroState(t *testing.T) {
	router, _ := newTestRouter(t, false)

	rec := get(t, router, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.TotalPatients)
	assert.Equal(t, "N/A", stats.Accuracy)
}

func TestReferenceDataEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, true)

	rec := get(t, router, "/api/diseases")
	require.Equal(t, http.StatusOK, rec.Code)
	var diseases []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diseases))
	require.Len(t, diseases, 5)
	assert.Equal(t, "Dengue", diseases[0]["name"])

	rec = get(t, router, "/api/severity-levels")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `{"id":5,"level":5,"name":"Minimal"}`)
}
