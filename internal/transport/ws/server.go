package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/presence-service/internal/presence"
	"github.com/cwrk-planet/presence-service/internal/security"
	"github.com/cwrk-planet/presence-service/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Verifier interface {
	Verify(token string) (security.Identity, error)
}

type Server struct {
	upgrader websocket.Upgrader
	reg      *presence.Registry
	msgSvc   *service.MessageService
	verifier Verifier

	pingEvery time.Duration
}

func NewServer(reg *presence.Registry, msgSvc *service.MessageService, verifier Verifier) *Server {
	return &Server{
		reg:      reg,
		msgSvc:   msgSvc,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws?access_token=...
//
// Токен опционален: без токена соединение гостевое (presence-only),
// с невалидным токеном — отказ ещё до апгрейда.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	connID := uuid.New().String()

	var ident security.Identity
	authed := false
	if token != "" {
		id, err := s.verifier.Verify(token)
		if err != nil {
			slog.Warn("ws handshake rejected", "err", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ident = id
		authed = true
	} else {
		ident = security.Identity{
			UserID: "guest:" + connID,
			Name:   "Guest",
			Role:   "guest",
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, connID, ident.UserID, ident.Role, authed)
	cameOnline := s.reg.Register(ident.UserID, c, ident.Name, ident.Role)

	if err := c.Send(presence.Event{
		Type: presence.EventConnected,
		Payload: ConnectedPayload{
			UserID:        ident.UserID,
			DisplayName:   ident.Name,
			Role:          ident.Role,
			Authenticated: authed,
		},
	}); err != nil {
		slog.Warn("ws send greeting failed", "user", ident.UserID, "err", err)
	}
	_ = c.Send(s.snapshotEvent())

	// статус вещаем только на переходе offline -> online:
	// второе устройство того же пользователя шум не создаёт
	if cameOnline {
		s.broadcastStatus(ident.UserID, "online", nil)
	}

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	if wentOffline, lastSeen := s.reg.Unregister(ident.UserID, connID); wentOffline {
		s.broadcastStatus(ident.UserID, "offline", &lastSeen)
	}

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "user", ident.UserID, "err", err)
	}
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch resolveAction(env.Type) {
		case actionSendMessage:
			ack := func(a service.Ack) {
				_ = c.Send(presence.Event{Type: presence.EventAck, Payload: a})
			}
			var p service.SendPayload
			if err := decode(env.Payload, &p); err != nil {
				// ack-контракт единый: нечитаемый payload — тоже отказ
				ack(service.Ack{Success: false, Error: "invalid payload"})
				continue
			}
			s.msgSvc.Send(ctx, c, p, ack)

		case actionMarkRead:
			s.msgSvc.MarkRead(ctx, c, messageIDFromPayload(env.Payload))

		case actionTypingStart:
			s.relayTyping(c, env.Payload, presence.EventTyping)

		case actionTypingStop:
			s.relayTyping(c, env.Payload, presence.EventStopTyping)

		case actionPresenceUpdate:
			s.updatePresenceMeta(c, env.Payload)

		default:
			// ignore
		}
	}
}

// relayTyping — без валидации и без ack; нет получателя — молча пропускаем.
func (s *Server) relayTyping(c *wsConn, payload any, event string) {
	var p TypingInbound
	if decode(payload, &p) != nil {
		return
	}
	to := p.Recipient()
	if to == "" {
		return
	}

	s.reg.ToUser(to, presence.Event{
		Type: event,
		Payload: TypingPayload{
			SenderID: c.userID,
			TSUnix:   time.Now().Unix(),
		},
	})
}

// updatePresenceMeta принимает расширенную мету (имя/роль) от
// аутентифицированных соединений; online/offline не меняется.
func (s *Server) updatePresenceMeta(c *wsConn, payload any) {
	if !c.Authenticated() {
		return
	}
	var p PresenceUpdatePayload
	if decode(payload, &p) != nil {
		return
	}

	s.reg.UpdateMeta(c.userID, p.Name, p.Role)
	s.broadcastStatus(c.userID, "online", nil)
}

// broadcastStatus шлёт всем дельту + свежий снапшот.
func (s *Server) broadcastStatus(userID, status string, lastSeen *time.Time) {
	var ls *int64
	if lastSeen != nil {
		u := lastSeen.Unix()
		ls = &u
	}
	s.reg.ToAll(presence.Event{
		Type: presence.EventUserStatus,
		Payload: StatusPayload{
			UserID:       userID,
			Status:       status,
			LastSeenUnix: ls,
		},
	})
	s.reg.ToAll(s.snapshotEvent())
}

func (s *Server) snapshotEvent() presence.Event {
	entries := s.reg.Snapshot()
	items := make([]SnapshotItem, 0, len(entries))
	for _, e := range entries {
		var ls *int64
		if e.LastSeen != nil {
			u := e.LastSeen.Unix()
			ls = &u
		}
		items = append(items, SnapshotItem{
			UserID:       e.UserID,
			DisplayName:  e.DisplayName,
			Role:         e.Role,
			LastSeenUnix: ls,
		})
	}

	return presence.Event{Type: presence.EventOnlineUsers, Payload: items}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}
