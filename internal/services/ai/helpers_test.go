package ai

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/models"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func jsonHTTPResponse(t *testing.T, status int, v interface{}) *http.Response {
	t.Helper()
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(mustJSON(t, v))),
	}
}

func textHTTPResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func quietLogger() (*logging.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logging.New().SetOutput(buf).SetLevel(logging.LevelDebug), buf
}

func sampleRequest(role models.Role, contents ...string) suggest.Request {
	msgs := make([]suggest.RemoteMessage, 0, len(contents))
	for i, c := range contents {
		sender := models.RolePatient
		if i%2 == 1 {
			sender = models.RoleDoctor
		}
		msgs = append(msgs, suggest.RemoteMessage{SenderRole: sender, Content: c, MsgType: models.MessageTypeText})
	}
	return suggest.Request{Messages: msgs, Role: role}
}
