package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/tib-ai/triage/pkg/common/logger"
	"github.com/tib-ai/triage/pkg/records"
)

const multipartMemory = 8 << 20

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	h.RegisterSubmit(router)
	h.RegisterReads(router)
}

func (h *HTTPHandler) RegisterSubmit(router *mux.Router) {
	router.HandleFunc("/patients", h.handleSubmit).Methods(http.MethodPost)
}

// RegisterReads mounts the stored-record routes, which expose patient data.
func (h *HTTPHandler) RegisterReads(router *mux.Router) {
	router.HandleFunc("/patients", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id:[0-9]+}", h.handleGet).Methods(http.MethodGet)
}

type diagnosisResponse struct {
	Disease           string  `json:"disease"`
	Severity          string  `json:"severity"`
	Confidence        float64 `json:"confidence"`
	Comment           string  `json:"comment"`
	Date              string  `json:"date"`
	RecommendedAction string  `json:"recommendedAction"`
}

type submitResponse struct {
	Success   bool              `json:"success"`
	PatientID uint              `json:"patient_id"`
	Diagnosis diagnosisResponse `json:"diagnosis"`
}

func (h *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		logger.Log.WithError(err).Warn("invalid patient submission")
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	form := Form{
		Name:            r.FormValue("name"),
		Age:             r.FormValue("age"),
		Gender:          r.FormValue("gender"),
		Location:        r.FormValue("location"),
		TemperatureF:    r.FormValue("temperature_f"),
		PregnancyStatus: r.FormValue("pregnancy_status"),
		BloodPressure:   r.FormValue("blood_pressure"),
		BloodGlucose:    r.FormValue("blood_glucose"),
		Symptoms:        r.FormValue("symptoms"),
	}

	var upload *Upload
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		if header.Filename != "" {
			upload = &Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Content:     file,
			}
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}

	result, err := h.service.Submit(r.Context(), form, upload)
	if err != nil {
		if IsValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Log.WithError(err).Error("failed to store patient submission")
		writeError(w, http.StatusInternalServerError, "failed to store patient submission")
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Success:   true,
		PatientID: result.PatientID,
		Diagnosis: diagnosisResponse{
			Disease:           result.Diagnosis.Disease,
			Severity:          result.Diagnosis.Severity,
			Confidence:        result.Diagnosis.Confidence,
			Comment:           result.Diagnosis.Comment,
			Date:              result.CreatedAt.Format(DateLayout),
			RecommendedAction: result.Diagnosis.RecommendedAction,
		},
	})
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	patients, err := h.service.Patients(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list patients")
		writeError(w, http.StatusInternalServerError, "failed to list patients")
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	patient, err := h.service.Patient(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Patient not found")
			return
		}
		logger.Log.WithError(err).Error("failed to fetch patient")
		writeError(w, http.StatusInternalServerError, "failed to fetch patient")
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}
