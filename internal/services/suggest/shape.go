package suggest

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/medoshield/chatassist/internal/models"
)

// HistoryWindow is the number of trailing messages sent to a remote provider.
const HistoryWindow = 10

// RemoteMessage is the projection of a chat message that leaves the process.
type RemoteMessage struct {
	SenderRole models.Role        `json:"sender_role"`
	Content    string             `json:"content"`
	MsgType    models.MessageType `json:"msg_type"`
}

// Truncate returns the first n suggestions in order. The result never
// aliases s, so truncating twice yields the same batch.
func Truncate(s []models.Suggestion, n int) []models.Suggestion {
	if n <= 0 {
		return []models.Suggestion{}
	}
	if len(s) < n {
		n = len(s)
	}
	out := make([]models.Suggestion, n)
	copy(out, s[:n])
	return out
}

// InsertSuggestion merges a tapped suggestion into the compose field.
func InsertSuggestion(currentInput, suggestionText string) string {
	if strings.TrimSpace(currentInput) != "" {
		return currentInput + "\n\n" + suggestionText
	}
	return suggestionText
}

// ProjectRecent keeps the last limit messages and strips them down to the
// fields a suggestion provider is allowed to see.
func ProjectRecent(conversation []models.Message, limit int) []RemoteMessage {
	if limit <= 0 {
		limit = HistoryWindow
	}
	start := 0
	if len(conversation) > limit {
		start = len(conversation) - limit
	}
	out := make([]RemoteMessage, 0, len(conversation)-start)
	for _, m := range conversation[start:] {
		out = append(out, RemoteMessage{
			SenderRole: m.SenderRole,
			Content:    m.Content,
			MsgType:    m.MsgType,
		})
	}
	return out
}

// normalizeBatch drops entries without text and renumbers IDs when the
// provider left them unset or duplicated.
func normalizeBatch(batch []models.Suggestion) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(batch))
	seen := make(map[int]bool, len(batch))
	renumber := false
	for _, s := range batch {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		s.Icon = strings.TrimSpace(s.Icon)
		if s.ID <= 0 || seen[s.ID] {
			renumber = true
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	if renumber {
		for i := range out {
			out[i].ID = i + 1
		}
	}
	return out
}

// ConversationDigest fingerprints the projected history so telemetry can
// correlate calls without storing message content.
func ConversationDigest(role models.Role, messages []RemoteMessage) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(role))
	for _, m := range messages {
		h.Write([]byte{0})
		h.Write([]byte(m.SenderRole))
		h.Write([]byte{0})
		h.Write([]byte(m.MsgType))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}
