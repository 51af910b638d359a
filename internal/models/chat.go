package models

import "time"

// Role identifies which side of a patient/doctor conversation authored a
// message or is asking for suggestions.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Valid reports whether r is one of the known conversation roles.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeVoice MessageType = "voice"
	MessageTypeImage MessageType = "image"
)

// Message is a single entry of a chat transcript as the portal stores it.
// Only SenderRole, Content and MsgType are ever sent to a suggestion
// provider; the remaining fields stay local.
type Message struct {
	ID         string      `json:"id,omitempty"`
	SenderRole Role        `json:"sender_role"`
	Content    string      `json:"content"`
	MsgType    MessageType `json:"msg_type"`
	CreatedAt  *time.Time  `json:"created_at,omitempty"`
}

// Suggestion is a tappable follow-up prompt. ID is only unique within the
// batch it was returned in.
type Suggestion struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Icon string `json:"icon"`
}
