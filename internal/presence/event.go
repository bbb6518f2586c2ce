package presence

// Типы событий, которые уходят клиентам
const (
	EventConnected      = "connected"       // приветствие с резолвнутой identity
	EventOnlineUsers    = "online_users"    // полный снапшот присутствия
	EventUserStatus     = "user_status"     // дельта online/offline
	EventNewMessage     = "new_message"     // новое сообщение
	EventReceiveMessage = "receive_message" // legacy-алиас new_message
	EventAck            = "ack"             // подтверждение send только отправителю
	EventMessageRead    = "message_read"    // прочитано
	EventReadReceipt    = "read_receipt"    // legacy-алиас message_read
	EventTyping         = "typing"
	EventStopTyping     = "stop_typing"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Conn interface {
	ID() string
	Send(ev Event) error
}
