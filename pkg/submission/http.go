package submission

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/formrelay/platform/pkg/common/logger"
	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/formrelay/platform/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

const (
	msgFormNotFound     = "Form not found"
	msgUnsupportedType  = "Unsupported content type. Send JSON or form-data."
	msgBodyTooLarge     = "Request body too large"
	msgInternalError    = "Internal server error"
	allowedMethods      = "POST, OPTIONS"
	allowedHeaders      = "Content-Type"
	endpointPathPattern = "/submit/{endpointId}"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc(endpointPathPattern, h.handleSubmit).Methods(http.MethodPost)
	router.HandleFunc(endpointPathPattern, h.handlePreflight).Methods(http.MethodOptions)
}

func (h *HTTPHandler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	writeCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	writeCORS(w)
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	endpointID := mux.Vars(r)["endpointId"]
	res, err := h.service.Submit(r.Context(), Inbound{
		EndpointID:  endpointID,
		Origin:      requestOrigin(r),
		ContentType: r.Header.Get("Content-Type"),
		Body:        r.Body,
		ClientIP:    clientIP(r),
	})
	if err != nil {
		h.writeError(w, endpointID, err)
		return
	}

	metrics.ObserveSubmission(metrics.OutcomeAccepted)

	if res.RedirectURL != "" {
		w.Header().Set("Location", res.RedirectURL)
		w.WriteHeader(http.StatusFound)
		return
	}

	writeJSON(w, http.StatusCreated, models.SubmitResponse{
		Success:   true,
		ID:        res.ID,
		Timestamp: models.FormatTimestamp(res.CreatedAt),
	})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, endpointID string, err error) {
	log := logger.WithField("form_endpoint", endpointID)

	var originErr *OriginError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, forms.ErrNotFound):
		metrics.ObserveSubmission(metrics.OutcomeNotFound)
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: msgFormNotFound})
	case errors.As(err, &originErr):
		metrics.ObserveSubmission(metrics.OutcomeForbidden)
		log.WithField("origin", originErr.Origin).Info("submission origin rejected")
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: originErr.Error()})
	case errors.As(err, &tooLarge):
		metrics.ObserveSubmission(metrics.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: msgBodyTooLarge})
	case errors.Is(err, ErrUnsupportedContentType):
		metrics.ObserveSubmission(metrics.OutcomeInvalid)
		log.WithError(err).Debug("undecodable submission body")
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: msgUnsupportedType})
	default:
		metrics.ObserveSubmission(metrics.OutcomeFailed)
		log.WithError(err).Error("failed to process submission")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: msgInternalError})
	}
}

// Submissions are accepted from any page; the allow-list is enforced by
// CheckOrigin, not by CORS.
func writeCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
	w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Warn("failed to encode response")
	}
}

func requestOrigin(r *http.Request) string {
	if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" {
		return origin
	}
	return strings.TrimSpace(r.Header.Get("Referer"))
}

// clientIP is best effort: first X-Forwarded-For hop, then the CDN header.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("CF-Connecting-IP"))
}
