package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/models"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

const maxSuggestBodyBytes = 64 << 10

type SuggestionEngine interface {
	Suggest(ctx context.Context, conversation []models.Message, role models.Role) ([]models.Suggestion, suggest.Outcome)
}

type SuggestionHandler struct {
	engine SuggestionEngine
	logger *logging.Logger
}

func NewSuggestionHandler(engine SuggestionEngine, logger *logging.Logger) *SuggestionHandler {
	if logger == nil {
		logger = logging.Default
	}
	return &SuggestionHandler{engine: engine, logger: logger}
}

type GenerateSuggestionsRequest struct {
	Messages []models.Message `json:"messages"`
	Role     models.Role      `json:"role"`
}

type SuggestionsResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
	Source      string              `json:"source,omitempty"`
}

type InsertSuggestionRequest struct {
	CurrentInput   string `json:"current_input"`
	SuggestionText string `json:"suggestion_text"`
}

type InsertSuggestionResponse struct {
	Text string `json:"text"`
}

// decodeBody rejects unknown fields, trailing data and bodies over the limit.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSuggestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func (h *SuggestionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateSuggestionsRequest
	if err := decodeBody(w, r, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	suggestions, outcome := h.engine.Suggest(r.Context(), req.Messages, req.Role)
	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}

	h.logger.FromContext(r.Context()).Debug("Suggestions served", map[string]interface{}{
		"role":     string(outcome.Role),
		"source":   string(outcome.Source),
		"count":    len(suggestions),
		"category": outcome.Category,
		"duration": outcome.Duration.String(),
	})

	resp := SuggestionsResponse{Suggestions: suggestions}
	if outcome.Source != suggest.SourceNone {
		resp.Source = string(outcome.Source)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SuggestionHandler) Insert(w http.ResponseWriter, r *http.Request) {
	var req InsertSuggestionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, InsertSuggestionResponse{
		Text: suggest.InsertSuggestion(req.CurrentInput, req.SuggestionText),
	})
}

func (h *SuggestionHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	role := models.Role(r.URL.Query().Get("role"))
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "role must be patient or doctor")
		return
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{
		Suggestions: suggest.DefaultBatch(role),
		Source:      string(suggest.SourceLocal),
	})
}
