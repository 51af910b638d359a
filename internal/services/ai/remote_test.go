package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/models"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

func TestHTTPProvider_Suggest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/health/chat/generate-suggestions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Request-ID") != "req-9" {
			t.Errorf("expected request id header, got %q", r.Header.Get("X-Request-ID"))
		}

		var body suggest.Request
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if body.Role != models.RolePatient || len(body.Messages) != 2 {
			t.Errorf("unexpected body %+v", body)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"suggestions": []models.Suggestion{
				{ID: 1, Text: "Is it contagious?", Icon: "🦠"},
				{ID: 2, Text: "Can I go to work?", Icon: "🏢"},
			},
		})
	}))
	defer ts.Close()

	logger, _ := quietLogger()
	p := NewHTTPProvider(ts.URL+"/api/", "tok", ts.Client(), logger)
	ctx := logging.WithRequestID(context.Background(), "req-9")

	got, err := p.Suggest(ctx, sampleRequest(models.RolePatient, "I have a cold", "Rest and fluids"))
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(got) != 2 || got[1].Text != "Can I go to work?" {
		t.Fatalf("unexpected suggestions: %+v", got)
	}
}

func TestHTTPProvider_NoTokenNoHeader(t *testing.T) {
	p := NewHTTPProvider("http://suggest.local/api", "", &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no Authorization header")
		}
		return jsonHTTPResponse(t, http.StatusOK, map[string]interface{}{
			"suggestions": []models.Suggestion{{ID: 1, Text: "ok", Icon: "👍"}},
		}), nil
	})}, nil)

	if _, err := p.Suggest(context.Background(), sampleRequest(models.RoleDoctor)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPProvider_Errors(t *testing.T) {
	tests := []struct {
		name string
		rt   roundTripperFunc
		want error
	}{
		{"transport", func(r *http.Request) (*http.Response, error) { return nil, errors.New("refused") }, ErrAIProviderUnavailable},
		{"429", func(r *http.Request) (*http.Response, error) { return textHTTPResponse(429, ""), nil }, ErrRateLimitExceeded},
		{"503", func(r *http.Request) (*http.Response, error) { return textHTTPResponse(503, "down"), nil }, ErrAIProviderUnavailable},
		{"malformed", func(r *http.Request) (*http.Response, error) { return textHTTPResponse(200, "{"), nil }, ErrAIProviderUnavailable},
		{"missing field", func(r *http.Request) (*http.Response, error) { return textHTTPResponse(200, `{"items":[]}`), nil }, ErrEmptySuggestions},
		{"empty list", func(r *http.Request) (*http.Response, error) { return textHTTPResponse(200, `{"suggestions":[]}`), nil }, ErrEmptySuggestions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := quietLogger()
			p := NewHTTPProvider("http://suggest.local/api", "", &http.Client{Transport: tt.rt}, logger)
			_, err := p.Suggest(context.Background(), sampleRequest(models.RolePatient, "hi"))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHTTPProvider_NotConfigured(t *testing.T) {
	p := NewHTTPProvider("", "", http.DefaultClient, nil)
	if _, err := p.Suggest(context.Background(), sampleRequest(models.RolePatient)); !errors.Is(err, ErrAINotConfigured) {
		t.Fatalf("expected ErrAINotConfigured, got %v", err)
	}
}
