package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/pipeline"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// maxTextBody caps a client-supplied paper text.
const maxTextBody = 32 << 20

type processRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// handleProcess runs the pipeline for {id}. A JSON body with a "text" field
// supplies the paper text and skips the download.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req processRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTextBody))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "reading request body", "")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
	}

	s.logger.Debug("process request", zap.String("arxiv_id", id), zap.Bool("text_supplied", req.Text != ""))

	var paper *types.ValidatedPaper
	if req.Text != "" {
		paper, err = s.processor.ProcessText(r.Context(), id, req.Text)
	} else {
		paper, err = s.processor.Process(r.Context(), id)
	}
	if err != nil {
		stage := ""
		var se *pipeline.StageError
		if errors.As(err, &se) {
			stage = se.Stage.String()
		}
		s.respondError(w, statusFor(err), err.Error(), stage)
		return
	}
	s.respondJSON(w, http.StatusOK, paper)
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.respondError(w, http.StatusNotImplemented, "cache listing not available", "")
		return
	}
	entries, err := s.cache.List(r.Context())
	if err != nil {
		s.logger.Error("listing cache failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": entries, "count": len(entries)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps a pipeline failure to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrFetch),
		errors.Is(err, types.ErrExtraction),
		errors.Is(err, types.ErrResolution):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message, stage string) {
	s.respondJSON(w, status, errorResponse{Error: message, Stage: stage})
}
