package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/presence"
)

type MessageStore interface {
	Insert(ctx context.Context, m domain.Message) (*domain.Message, error)
	MarkRead(ctx context.Context, id string) error
}

// Client — соединение с точки зрения роутера сообщений.
type Client interface {
	ID() string
	UserID() string
	Authenticated() bool
}

type Ack struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type AckFunc func(Ack)

type SendPayload struct {
	Content string `json:"content"`
	// два исторических написания получателя; оба валидны
	RecipientID   string  `json:"recipient_id"`
	ReceiverID    string  `json:"receiver_id"`
	ApplicationID *string `json:"application_id,omitempty"`
}

// Recipient резолвит оба алиаса в одно семантическое поле.
func (p SendPayload) Recipient() string {
	if p.RecipientID != "" {
		return p.RecipientID
	}
	return p.ReceiverID
}

// MessagePayload — канонический исходящий вид сообщения.
// Идентичность и timestamp всегда серверные (из persisted-строки),
// получатель продублирован под обоими алиасами для старых клиентов.
type MessagePayload struct {
	ID            string    `json:"id"`
	SenderID      string    `json:"sender_id"`
	RecipientID   string    `json:"recipient_id"`
	ReceiverID    string    `json:"receiver_id"`
	ApplicationID *string   `json:"application_id,omitempty"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReadPayload struct {
	MessageID string `json:"message_id"`
	ReaderID  string `json:"reader_id"`
}

type MessageService struct {
	store MessageStore
	reg   *presence.Registry
}

func NewMessageService(store MessageStore, reg *presence.Registry) *MessageService {
	return &MessageService{store: store, reg: reg}
}

// Send валидирует, персистит и рассылает сообщение.
// Порядок строгий: пока insert не удался, никакого fan-out.
func (s *MessageService) Send(ctx context.Context, from Client, p SendPayload, ack AckFunc) {
	if !from.Authenticated() {
		fail(ack, domain.ErrAuthRequired.Error())
		return
	}

	content := strings.TrimSpace(p.Content)
	if content == "" {
		fail(ack, domain.ErrEmptyContent.Error())
		return
	}
	to := p.Recipient()
	if to == "" {
		fail(ack, domain.ErrNoRecipient.Error())
		return
	}

	saved, err := s.store.Insert(ctx, domain.Message{
		SenderID:      from.UserID(),
		ReceiverID:    to,
		ApplicationID: p.ApplicationID,
		Content:       content,
	})
	if err != nil {
		slog.Error("message insert failed", "sender", from.UserID(), "receiver", to, "err", err)
		fail(ack, domain.ErrPersistence.Error())
		return
	}

	out := MessagePayload{
		ID:            saved.ID,
		SenderID:      saved.SenderID,
		RecipientID:   saved.ReceiverID,
		ReceiverID:    saved.ReceiverID,
		ApplicationID: saved.ApplicationID,
		Content:       saved.Content,
		CreatedAt:     saved.CreatedAt,
	}

	// получателю — на все его устройства, под обоими именами события
	s.reg.ToUser(to, presence.Event{Type: presence.EventNewMessage, Payload: out})
	s.reg.ToUser(to, presence.Event{Type: presence.EventReceiveMessage, Payload: out})

	// echo на остальные устройства отправителя (кроме инициатора);
	// при сообщении самому себе доставка получателю уже покрыла
	// все устройства, второй раз не шлём
	if to != from.UserID() {
		s.reg.ToOthers(from.UserID(), from.ID(), presence.Event{Type: presence.EventNewMessage, Payload: out})
		s.reg.ToOthers(from.UserID(), from.ID(), presence.Event{Type: presence.EventReceiveMessage, Payload: out})
	}

	if ack != nil {
		ack(Ack{Success: true, MessageID: saved.ID})
	}
}

// MarkRead — best-effort: гость и пустой id молча игнорируются,
// ошибка стора логируется и не всплывает.
func (s *MessageService) MarkRead(ctx context.Context, from Client, messageID string) {
	if !from.Authenticated() || messageID == "" {
		return
	}
	if err := s.store.MarkRead(ctx, messageID); err != nil {
		slog.Warn("mark read failed", "message", messageID, "user", from.UserID(), "err", err)
		return
	}

	// подтверждение в комнату самого читателя: другие его устройства
	// тоже должны увидеть сообщение прочитанным
	rp := ReadPayload{MessageID: messageID, ReaderID: from.UserID()}
	s.reg.ToUser(from.UserID(), presence.Event{Type: presence.EventMessageRead, Payload: rp})
	s.reg.ToUser(from.UserID(), presence.Event{Type: presence.EventReadReceipt, Payload: rp})
}

func fail(ack AckFunc, msg string) {
	if ack != nil {
		ack(Ack{Success: false, Error: msg})
	}
}
