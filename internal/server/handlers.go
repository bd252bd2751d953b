package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/analysis"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/llm"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

// maxBodyBytes leaves room for JSON escaping of a maximum-size input.
const maxBodyBytes = 2 * ingest.MaxInputBytes

type handler struct {
	scanner Scanner
	analyst Analyst
}

type scanRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

type analyzeRequest struct {
	Content  string            `json:"content"`
	Filename string            `json:"filename"`
	Findings *[]models.Finding `json:"findings,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := ingest.FromText(req.Filename, req.Content)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "content is required")
		return
	}
	writeJSON(w, r, http.StatusOK, h.scanner.Scan(in).Report)
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := ingest.FromText(req.Filename, req.Content)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "content is required")
		return
	}

	scanned := h.scanner.Scan(in)
	areq := analysis.Request{
		Type:     scanned.Type,
		Document: scanned.Document,
		Findings: scanned.Report.Findings,
	}
	if req.Findings != nil {
		areq.Findings = *req.Findings
	}

	res, err := h.analyst.Analyze(r.Context(), areq)
	if err != nil {
		status, msg := analysisError(err)
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("analysis failed")
		writeError(w, r, status, msg)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// analysisError maps analysis failures to an HTTP status and a message.
func analysisError(err error) (int, string) {
	var ue *llm.UpstreamError
	switch {
	case errors.Is(err, llm.ErrServiceNotConfigured):
		return http.StatusInternalServerError, "server configuration error: the analysis API key is not set"
	case errors.As(err, &ue):
		status := ue.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return status, fmt.Sprintf("upstream API error: %d - %s", ue.StatusCode, ue.Message)
	case errors.Is(err, llm.ErrEmptyContent):
		return http.StatusBadGateway, "the analysis response was empty"
	}
	return http.StatusInternalServerError, "internal error: " + err.Error()
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
