package reporting

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/tib-ai/triage/pkg/common/logger"
	"github.com/tib-ai/triage/pkg/records"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/diseases", h.handleDiseases).Methods(http.MethodGet)
	router.HandleFunc("/severity-levels", h.handleSeverities).Methods(http.MethodGet)
	router.HandleFunc("/triage-data", h.handleTriage).Methods(http.MethodGet)
	router.HandleFunc("/triage-data/{diseaseId:[0-9]+}", h.handleTriage).Methods(http.MethodGet)
	router.HandleFunc("/region-data", h.handleRegions).Methods(http.MethodGet)
	router.HandleFunc("/disease-location", h.handleDiseaseLocations).Methods(http.MethodGet)
	router.HandleFunc("/disease-location/{diseaseId:[0-9]+}", h.handleDiseaseRegions).Methods(http.MethodGet)
	router.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleDiseases(w http.ResponseWriter, r *http.Request) {
	diseases, err := h.service.Diseases(r.Context())
	if err != nil {
		h.fail(w, err, "failed to list diseases")
		return
	}
	out := make([]map[string]interface{}, 0, len(diseases))
	for _, d := range diseases {
		out = append(out, map[string]interface{}{"id": d.ID, "name": d.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) handleSeverities(w http.ResponseWriter, r *http.Request) {
	severities, err := h.service.Severities(r.Context())
	if err != nil {
		h.fail(w, err, "failed to list severity levels")
		return
	}
	writeJSON(w, http.StatusOK, severities)
}

func (h *HTTPHandler) handleTriage(w http.ResponseWriter, r *http.Request) {
	var diseaseID *uint
	if raw, ok := mux.Vars(r)["diseaseId"]; ok {
		id, err := parseID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid disease id")
			return
		}
		diseaseID = &id
	}

	buckets, err := h.service.SeverityBreakdown(r.Context(), diseaseID)
	if err != nil {
		h.fail(w, err, "failed to build triage data")
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (h *HTTPHandler) handleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.service.RegionOverview(r.Context())
	if err != nil {
		h.fail(w, err, "failed to build region data")
		return
	}
	writeJSON(w, http.StatusOK, regions)
}

func (h *HTTPHandler) handleDiseaseLocations(w http.ResponseWriter, r *http.Request) {
	matrix, err := h.service.DiseaseLocations(r.Context())
	if err != nil {
		h.fail(w, err, "failed to build disease locations")
		return
	}
	writeJSON(w, http.StatusOK, matrix)
}

func (h *HTTPHandler) handleDiseaseRegions(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["diseaseId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid disease id")
		return
	}
	regions, err := h.service.RegionForDisease(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to build disease regions")
		return
	}
	writeJSON(w, http.StatusOK, regions)
}

func (h *HTTPHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, err, "failed to build stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *HTTPHandler) fail(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, records.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	logger.Log.WithError(err).Error(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}
