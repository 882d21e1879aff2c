package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wikisoft/rosterval/internal/agent"
	"github.com/wikisoft/rosterval/internal/diagnostic"
	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/events"
)

// validateRequest is the POST /validate payload. Data is base64 so the
// request body stays valid JSON regardless of the spreadsheet's binary
// or legacy-encoded contents.
type validateRequest struct {
	Data              string         `json:"data"`
	Sheet             string         `json:"sheet"`
	DiagnosticAnswers map[string]any `json:"diagnostic_answers,omitempty"`
}

type validateResponse struct {
	SessionID      string                     `json:"session_id"`
	Status         domain.AgentStatus         `json:"status"`
	Grade          domain.Grade               `json:"grade"`
	Confidence     float64                    `json:"confidence"`
	Recommendation string                     `json:"recommendation"`
	Reason         string                     `json:"reason,omitempty"`
	Transcript     []domain.ThoughtObservation `json:"transcript"`
	Validation     *domain.ValidationBundle   `json:"validation,omitempty"`
}

func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "data must be base64-encoded")
		return
	}

	sheet := domain.Sheet(req.Sheet)
	if sheet == "" {
		sheet = domain.SheetActive
	}

	sessionID := uuid.NewString()
	s.dispatcher.Dispatch(r.Context(), events.TypeValidationStarted, sessionID, events.ValidationPayload{
		SessionID: sessionID,
		Sheet:     string(sheet),
	})

	result := s.agent.Run(r.Context(), agent.Input{
		SessionID:         sessionID,
		Data:              data,
		Sheet:             sheet,
		DiagnosticAnswers: req.DiagnosticAnswers,
		RowCap:            s.cfg.RowCap,
		Layer2Tolerance:   s.cfg.Layer2Tolerance,
	}, agent.Config{
		MaxIterations:              s.cfg.MaxIterations,
		SkipAI:                     s.cfg.SkipAI,
		MatchRetryThreshold:        s.cfg.MatchRetryThreshold,
		MatchHumanThreshold:        s.cfg.MatchHumanThreshold,
		EarlyTerminationConfidence: s.cfg.EarlyTerminationConfidence,
	})

	payload := events.ValidationPayload{
		SessionID:  sessionID,
		Sheet:      string(sheet),
		Grade:      string(result.Grade),
		Confidence: result.Confidence,
		Reason:     result.Reason,
	}
	if result.Context.Parsed != nil {
		payload.RowCount = len(result.Context.Parsed.Rows)
	}

	switch result.Status {
	case domain.StatusCompleted:
		s.dispatcher.Dispatch(r.Context(), events.TypeValidationCompleted, sessionID, payload)
	case domain.StatusFailed:
		s.dispatcher.Dispatch(r.Context(), events.TypeValidationFailed, sessionID, payload)
	}

	resp := validateResponse{
		SessionID:      sessionID,
		Status:         result.Status,
		Grade:          result.Grade,
		Confidence:     result.Confidence,
		Recommendation: result.Recommendation,
		Reason:         result.Reason,
		Transcript:     result.Transcript,
		Validation:     result.Context.Validation,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleDiagnosticQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, diagnostic.Questions())
}

type webhookRegisterRequest struct {
	URL string `json:"url"`
}

func (s *server) handleWebhookRegister(w http.ResponseWriter, r *http.Request) {
	var req webhookRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	s.dispatcher.SetWebhookURL(req.URL)
	log.Info().Str("url", req.URL).Msg("webhook subscriber registered")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "registered"})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
