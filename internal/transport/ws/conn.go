package ws

import (
	"time"

	"github.com/cwrk-planet/presence-service/internal/presence"

	"github.com/gorilla/websocket"
)

type wsConn struct {
	conn   *websocket.Conn
	id     string
	userID string
	role   string
	authed bool
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn, id, userID, role string, authed bool) *wsConn {
	return &wsConn{
		conn:   c,
		id:     id,
		userID: userID,
		role:   role,
		authed: authed,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(ev presence.Event) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(ev)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

func (c *wsConn) ID() string          { return c.id }
func (c *wsConn) UserID() string      { return c.userID }
func (c *wsConn) Role() string        { return c.role }
func (c *wsConn) Authenticated() bool { return c.authed }
