package domain

import "time"

type Message struct {
	ID            string    `db:"id"`
	SenderID      string    `db:"sender_id"`
	ReceiverID    string    `db:"receiver_id"`
	ApplicationID *string   `db:"application_id"`
	Content       string    `db:"content"`
	CreatedAt     time.Time `db:"created_at"`
	IsRead        bool      `db:"is_read"`
}
