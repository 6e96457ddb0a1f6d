package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/attache-hq/attache/internal/agent"
	"github.com/attache-hq/attache/internal/ask"
	"github.com/attache-hq/attache/internal/domain"
	"github.com/attache-hq/attache/internal/version"
)

const maxBodyBytes = 4 * 1024 * 1024

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /agent/chat", s.handleAgentChat)
	mux.HandleFunc("DELETE /agent/thread", s.handleAgentReset)
	mux.HandleFunc("GET /agent/history", s.handleAgentHistory)
	mux.Handle("GET /agent/events", s.hub)

	mux.HandleFunc("POST /ask", s.handleAsk)

	mux.HandleFunc("POST /media/image", s.handleMediaImage)
	mux.HandleFunc("POST /media/describe", s.handleMediaDescribe)
	mux.HandleFunc("POST /media/speech", s.handleMediaSpeech)
	mux.HandleFunc("POST /media/transcribe", s.handleMediaTranscribe)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       version.Version,
		"uptimeSeconds": int(time.Since(s.startedAt).Seconds()),
		"subscribers":   s.hub.Subscribers(),
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleAgentChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	answer, err := s.loop.HandleMessage(r.Context(), req.Message)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}

func (s *Server) handleAgentReset(w http.ResponseWriter, r *http.Request) {
	if err := s.loop.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "thread deleted"})
}

func (s *Server) handleAgentHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.loop.History(r.Context())
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": history})
}

type askRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	answer, err := s.router.Ask(r.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, ask.ErrNoDecision):
			writeError(w, http.StatusUnprocessableEntity, "no_decision", err.Error())
		case errors.Is(err, ask.ErrUnrecognizedApproach):
			writeError(w, http.StatusUnprocessableEntity, "unrecognized_approach", err.Error())
		default:
			writeError(w, http.StatusBadGateway, "ask_failed", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleMediaImage(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "media service not configured")
		return
	}
	var req imageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "prompt is required")
		return
	}

	img, err := s.media.GenerateImage(r.Context(), req.Prompt)
	if err != nil {
		writeError(w, http.StatusBadGateway, "media_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

type describeRequest struct {
	Image    string `json:"image"`
	Question string `json:"question"`
}

func (s *Server) handleMediaDescribe(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "media service not configured")
		return
	}
	var req describeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	img, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil || len(img) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "image must be base64-encoded bytes")
		return
	}

	text, err := s.media.DescribeImage(r.Context(), img, req.Question)
	if err != nil {
		writeError(w, http.StatusBadGateway, "media_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": text})
}

type speechRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleMediaSpeech(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "media service not configured")
		return
	}
	var req speechRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	audio, err := s.media.Speak(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusBadGateway, "media_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(audio)
}

func (s *Server) handleMediaTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "media service not configured")
		return
	}
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart form with an audio file")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "audio file is required")
		return
	}
	defer file.Close()

	text, err := s.media.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		writeError(w, http.StatusBadGateway, "media_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// writeAgentError maps agent loop failures onto HTTP statuses.
func (s *Server) writeAgentError(w http.ResponseWriter, err error) {
	var failed *agent.TurnFailedError
	switch {
	case errors.Is(err, domain.ErrNoCredentials):
		writeError(w, http.StatusUnauthorized, "no_credentials", "no Google account connected")
	case errors.Is(err, agent.ErrTurnTimeout):
		writeError(w, http.StatusGatewayTimeout, "turn_timeout", err.Error())
	case errors.Is(err, agent.ErrTooManyRounds):
		writeError(w, http.StatusBadGateway, "too_many_rounds", err.Error())
	case errors.Is(err, agent.ErrEmptyThread):
		writeError(w, http.StatusBadGateway, "empty_thread", err.Error())
	case errors.As(err, &failed):
		writeError(w, http.StatusBadGateway, "turn_failed", failed.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

// decodeBody parses a JSON request body, writing the error response itself
// on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}
