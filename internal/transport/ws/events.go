package ws

import "encoding/json"

// Входящий конверт. Payload разбирается после резолва действия.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Канонические действия. Исторические имена событий мапятся сюда
// один раз, на границе; внутренняя логика по строкам не ветвится.
type action int

const (
	actionUnknown action = iota
	actionSendMessage
	actionMarkRead
	actionTypingStart
	actionTypingStop
	actionPresenceUpdate
)

var inboundActions = map[string]action{
	"send_message": actionSendMessage,
	"message:send": actionSendMessage,

	"mark_read":    actionMarkRead,
	"message_read": actionMarkRead,

	"typing":       actionTypingStart,
	"typing_start": actionTypingStart,

	"stop_typing": actionTypingStop,
	"typing_stop": actionTypingStop,

	"user_online":     actionPresenceUpdate,
	"presence_update": actionPresenceUpdate,
}

func resolveAction(name string) action {
	return inboundActions[name]
}

type ConnectedPayload struct {
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name"`
	Role          string `json:"role"`
	Authenticated bool   `json:"authenticated"`
}

type SnapshotItem struct {
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	LastSeenUnix *int64 `json:"last_seen_unix"` // nil пока онлайн
}

type StatusPayload struct {
	UserID       string `json:"user_id"`
	Status       string `json:"status"` // online|offline
	LastSeenUnix *int64 `json:"last_seen_unix,omitempty"`
}

type TypingInbound struct {
	RecipientID string `json:"recipient_id"`
	ReceiverID  string `json:"receiver_id"`
}

func (p TypingInbound) Recipient() string {
	if p.RecipientID != "" {
		return p.RecipientID
	}
	return p.ReceiverID
}

type TypingPayload struct {
	SenderID string `json:"sender_id"`
	TSUnix   int64  `json:"ts_unix"`
}

type PresenceUpdatePayload struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type MarkReadPayload struct {
	MessageID string `json:"message_id"`
}

// mark_read принимает и голую строку-id, и объект {message_id}.
func messageIDFromPayload(payload any) string {
	if id, ok := payload.(string); ok {
		return id
	}
	var p MarkReadPayload
	if decode(payload, &p) == nil {
		return p.MessageID
	}
	return ""
}

func decode(payload any, dst any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}
